package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fluxorio/arquebus/pkg/inspector"
)

func newInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Serve the registry of a demo bus as JSON until interrupted",
		Args:  cobra.NoArgs,
		RunE:  runInspect,
	}
	cmd.Flags().String("addr", ":8080", "Listen address")
	cmd.Flags().Duration("interval", time.Second, "Demo publish interval")
	return cmd
}

func runInspect(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	interval, _ := cmd.Flags().GetDuration("interval")
	if interval <= 0 {
		return fmt.Errorf("--interval must be positive")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	// a small fixed topology so there is something to look at
	a.bus.Subscribe("ticks", func(context.Context, int) error { return nil })
	a.bus.Subscribe("ticks", func(context.Context, int) error { return nil })
	if _, err := a.bus.ListenAsync(ctx, "ticks", nil); err != nil {
		return err
	}

	insp := inspector.NewInspector(addr, a.bus, a.logger).WithMetrics(a.metricsHandler())
	if err := insp.Start(ctx); err != nil {
		return err
	}
	defer insp.Stop(context.Background())
	fmt.Fprintf(cmd.OutOrStdout(), "inspector on http://%s/targets\n", insp.Addr())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for n := 0; ; n++ {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := a.bus.Publish(ctx, "ticks", n); err != nil && ctx.Err() == nil {
				a.logger.Error("demo publish failed: ", err)
			}
		}
	}
}
