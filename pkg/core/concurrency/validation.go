package concurrency

import "fmt"

// failFastIf panics if condition is true
func failFastIf(condition bool, message string) {
	if condition {
		panic(fmt.Errorf("fail-fast: %s", message))
	}
}

// validateCapacity panics on a non-positive bounded capacity
func validateCapacity(capacity int) {
	failFastIf(capacity <= 0, fmt.Sprintf("mailbox capacity must be positive, got %d", capacity))
}
