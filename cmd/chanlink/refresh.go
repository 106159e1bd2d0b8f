package main

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/chanlink/chanlink/internal/metrics"
)

func newRefreshCommand(a *app) *cobra.Command {
	var cronSpec string
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Run prune, fetch and match; once, or on a cron schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := cronSpec
			if spec == "" {
				spec = a.cfg.CronSpec
			}
			if spec == "" {
				return runRefresh(cmd.Context(), a)
			}
			return runRefreshCron(cmd.Context(), a, spec)
		},
	}
	cmd.Flags().StringVar(&cronSpec, "cron", "", "cron schedule (empty = run once)")
	return cmd
}

func runRefresh(ctx context.Context, a *app) error {
	started := time.Now()
	if _, err := runPrune(a); err != nil {
		return err
	}
	if err := runFetch(ctx, a); err != nil {
		return err
	}
	if _, err := runMatch(ctx, a, a.cfg.MatchThreshold); err != nil {
		return err
	}
	metrics.ObserveStage("refresh", time.Since(started))
	return nil
}

// runRefreshCron runs the pipeline on schedule until the context ends.
// A failing run is logged and the schedule keeps going.
func runRefreshCron(ctx context.Context, a *app, spec string) error {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if err := runRefresh(ctx, a); err != nil {
			a.log.Error("scheduled refresh failed", "err", err)
		}
	})
	if err != nil {
		return err
	}
	a.log.Info("refresh scheduled", "cron", spec)
	c.Start()
	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	return nil
}
