package main

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fluxorio/arquebus/pkg/bus"
	"github.com/fluxorio/arquebus/pkg/inspector"
	"github.com/fluxorio/arquebus/pkg/observability/otel"
	"github.com/fluxorio/arquebus/pkg/reactive"
)

type benchOptions struct {
	targets     int
	subscribers int
	listeners   int
	publishers  int
	messages    int
	capacity    int
	metricsAddr string
}

// benchResult is what one bench run delivered
type benchResult struct {
	Published     int
	CallbackCalls int64
	ListenerMsgs  int
	Elapsed       time.Duration
}

func newBenchCommand() *cobra.Command {
	opts := benchOptions{}
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Publish messages concurrently and report delivery throughput",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.targets, "targets", 4, "Number of target keys")
	cmd.Flags().IntVar(&opts.subscribers, "subscribers", 2, "Callback subscriptions per target")
	cmd.Flags().IntVar(&opts.listeners, "listeners", 1, "Listeners per target")
	cmd.Flags().IntVar(&opts.publishers, "publishers", 4, "Concurrent publishers")
	cmd.Flags().IntVar(&opts.messages, "messages", 10000, "Total messages to publish")
	cmd.Flags().IntVar(&opts.capacity, "capacity", -1, "Listener queue capacity (-1 keeps the config value, 0 is unbounded)")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve /metrics and /targets on this address while running")
	return cmd
}

func runBench(cmd *cobra.Command, opts benchOptions) error {
	if opts.targets <= 0 || opts.publishers <= 0 || opts.messages < 0 {
		return fmt.Errorf("targets and publishers must be positive, messages must not be negative")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if opts.capacity >= 0 {
		cfg.Bus.QueueCapacity = opts.capacity
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	if opts.metricsAddr != "" {
		insp := inspector.NewInspector(opts.metricsAddr, a.bus, a.logger).WithMetrics(a.metricsHandler())
		if err := insp.Start(ctx); err != nil {
			return err
		}
		defer insp.Stop(context.Background())
		fmt.Fprintf(cmd.OutOrStdout(), "metrics on http://%s/metrics\n", insp.Addr())
	}

	res, err := bench(ctx, a.bus, opts)
	if err != nil {
		return err
	}

	rate := float64(res.Published) / res.Elapsed.Seconds()
	fmt.Fprintf(cmd.OutOrStdout(), "published:          %d\n", res.Published)
	fmt.Fprintf(cmd.OutOrStdout(), "callback calls:     %d\n", res.CallbackCalls)
	fmt.Fprintf(cmd.OutOrStdout(), "listener messages:  %d\n", res.ListenerMsgs)
	fmt.Fprintf(cmd.OutOrStdout(), "elapsed:            %s (%.0f msg/s)\n", res.Elapsed.Round(time.Millisecond), rate)
	return nil
}

// bench subscribes, publishes opts.messages spread over the targets, then
// stops the listeners and totals what they collected.
func bench(ctx context.Context, b *bus.Bus[string, int], opts benchOptions) (benchResult, error) {
	targets := make([]string, opts.targets)
	for i := range targets {
		targets[i] = fmt.Sprintf("target-%d", i)
	}

	var calls atomic.Int64
	var handles []*bus.Handle[string]
	listenCtx, stopListening := context.WithCancel(ctx)
	defer stopListening()
	var collected []*reactive.Future[int]

	for _, target := range targets {
		for i := 0; i < opts.subscribers; i++ {
			h, err := b.Subscribe(target, otel.WrapHandler(target, func(context.Context, int) error {
				calls.Add(1)
				return nil
			}))
			if err != nil {
				return benchResult{}, err
			}
			handles = append(handles, h)
		}
		for i := 0; i < opts.listeners; i++ {
			f, err := b.ListenAsync(listenCtx, target, nil)
			if err != nil {
				return benchResult{}, err
			}
			collected = append(collected, reactive.Map(f, func(msgs []int) int { return len(msgs) }))
		}
	}
	defer func() {
		for _, h := range handles {
			b.Unsubscribe(h)
		}
	}()

	start := time.Now()
	var published atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for p := 0; p < opts.publishers; p++ {
		g.Go(func() error {
			for i := p; i < opts.messages; i += opts.publishers {
				if err := otel.PublishWithSpan(gctx, b, targets[i%len(targets)], i); err != nil {
					return err
				}
				published.Add(1)
			}
			return nil
		})
	}
	err := g.Wait()
	elapsed := time.Since(start)

	stopListening()
	res := benchResult{
		Published:     int(published.Load()),
		CallbackCalls: calls.Load(),
		Elapsed:       elapsed,
	}
	for _, f := range collected {
		n, ferr := f.Get()
		if ferr != nil && err == nil {
			err = ferr
		}
		res.ListenerMsgs += n
	}
	return res, err
}
