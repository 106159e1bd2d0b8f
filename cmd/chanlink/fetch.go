package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/chanlink/chanlink/internal/fetcher"
	"github.com/chanlink/chanlink/internal/httpclient"
	"github.com/chanlink/chanlink/internal/metrics"
)

func newFetchCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Download per-country guide documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd.Context(), a)
		},
	}
}

// runFetch downloads every configured country's guide. Individual
// failures are tolerated; a run where nothing could be fetched fails.
func runFetch(ctx context.Context, a *app) error {
	if a.cfg.EPGTemplate == "" {
		return fmt.Errorf("fetch: CHANLINK_EPG_TEMPLATE is not set")
	}
	sources := fetcher.SourcesFromTemplate(a.cfg.EPGTemplate, a.cfg.Countries)
	if len(sources) == 0 {
		return fmt.Errorf("fetch: no country codes configured")
	}

	started := time.Now()
	f := fetcher.New(httpclient.WithTimeout(a.cfg.Timeout), rate.Limit(a.cfg.FetchRate), a.log)
	paths, err := f.FetchAll(ctx, sources, a.cfg.EPGDir, func(src fetcher.Source, err error) {
		metrics.ObserveFetch(src.Country, err == nil)
	})
	metrics.ObserveStage("fetch", time.Since(started))
	if err != nil {
		return err
	}
	a.log.Info("guides fetched", "ok", len(paths), "failed", len(sources)-len(paths))
	return nil
}
