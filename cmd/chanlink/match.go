package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/chanlink/chanlink/internal/auditdb"
	"github.com/chanlink/chanlink/internal/epgcat"
	"github.com/chanlink/chanlink/internal/metrics"
	"github.com/chanlink/chanlink/internal/playlist"
	"github.com/chanlink/chanlink/internal/pruner"
	"github.com/chanlink/chanlink/internal/resolver"
	"github.com/chanlink/chanlink/internal/xmltv"
)

func newMatchCommand(a *app) *cobra.Command {
	var threshold float64
	var guide string
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Correct playlist tvg-ids against the guide catalogs and prune the guide",
		RunE: func(cmd *cobra.Command, args []string) error {
			t := pickThreshold(a, threshold, guide)
			_, err := runMatch(cmd.Context(), a, t)
			return err
		},
	}
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "acceptance threshold override (0 = from config)")
	cmd.Flags().StringVar(&guide, "guide", "primary", "guide tier: primary or secondary")
	return cmd
}

// pickThreshold resolves the acceptance bar: explicit flag, then the
// secondary-guide bar, then the configured primary one.
func pickThreshold(a *app, flag float64, guide string) float64 {
	if flag > 0 {
		return flag
	}
	if strings.EqualFold(guide, "secondary") {
		return a.cfg.GuideThreshold
	}
	return a.cfg.MatchThreshold
}

// runMatch resolves every playlist entry, rewrites accepted ids, prunes
// the guide to the kept channels and writes all audit artifacts.
func runMatch(ctx context.Context, a *app, threshold float64) (*pruner.Report, error) {
	started := time.Now()
	entries, err := readPlaylistFile(a.cfg.PlaylistPath())
	if err != nil {
		return nil, fmt.Errorf("reading playlist: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("playlist %s has no channels", a.cfg.PlaylistPath())
	}

	docs := loadGuideDocs(a)
	cat := epgcat.Build(docs...)
	if cat.Len() == 0 {
		return nil, fmt.Errorf("no guide channels found under %s; run fetch first", a.cfg.EPGDir)
	}
	aliases, err := resolver.LoadAliasFile(a.cfg.AliasPath())
	if err != nil {
		return nil, fmt.Errorf("reading aliases: %w", err)
	}

	r := resolver.New(cat, aliases, resolver.Options{
		SuffixSwap: a.cfg.SuffixSwap,
		SlugGuess:  a.cfg.SlugGuess,
	})
	rep := pruner.Rewrite(entries, r, threshold)
	metrics.ObserveReport(rep)

	out, err := os.Create(a.cfg.PlaylistPath())
	if err != nil {
		return nil, err
	}
	if err := playlist.Write(out, rep.Entries()); err != nil {
		out.Close()
		return nil, err
	}
	if err := out.Close(); err != nil {
		return nil, err
	}

	pruned := pruner.FilterEPG(docs, rep.IDs())
	if len(pruned.Channels) == 0 {
		return nil, fmt.Errorf("no playlist channel matched a guide channel; refusing to write an empty guide")
	}
	if err := pruned.WriteFile(a.cfg.GuidePath()); err != nil {
		return nil, err
	}

	if err := writeReports(a, rep); err != nil {
		return nil, err
	}
	if err := recordRun(ctx, a, started, threshold, rep); err != nil {
		a.log.Warn("audit db insert failed", "err", err)
	}
	metrics.ObserveStage("match", time.Since(started))

	a.log.Info("match complete", "channels", len(rep.Outcomes),
		"rewritten", rep.Stats.Rewritten, "confirmed", rep.Stats.Confirmed,
		"kept_original", rep.Stats.KeptOriginal, "unmatched", rep.Stats.Unmatched,
		"guide_channels", len(pruned.Channels))
	renderMethodSummary(os.Stdout, rep)
	return rep, nil
}

// loadGuideDocs reads every guide document in EPGDir except the
// generated output; malformed files are skipped with a warning.
func loadGuideDocs(a *app) []*xmltv.Document {
	var docs []*xmltv.Document
	var paths []string
	for _, pat := range []string{"*.xml", "*.xml.gz"} {
		m, _ := filepath.Glob(filepath.Join(a.cfg.EPGDir, pat))
		paths = append(paths, m...)
	}
	sort.Strings(paths)
	for _, path := range paths {
		if filepath.Base(path) == a.cfg.GuideFile {
			continue
		}
		doc, err := xmltv.ReadFile(path)
		if err != nil {
			a.log.Warn("skipping malformed guide document", "path", path, "err", err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs
}

func writeReports(a *app, rep *pruner.Report) error {
	audit, err := os.Create(a.cfg.AuditPath())
	if err != nil {
		return err
	}
	defer audit.Close()
	if err := rep.WriteAuditCSV(audit); err != nil {
		return err
	}

	um, err := os.Create(a.cfg.UnmatchedPath())
	if err != nil {
		return err
	}
	defer um.Close()
	if err := rep.WriteUnmatchedCSV(um); err != nil {
		return err
	}

	trace, err := os.Create(a.cfg.TracePath())
	if err != nil {
		return err
	}
	defer trace.Close()
	if err := rep.WriteTrace(trace); err != nil {
		return err
	}
	return rep.WriteCountryMapFile(a.cfg.CountryMapPath())
}

func recordRun(ctx context.Context, a *app, started time.Time, threshold float64, rep *pruner.Report) error {
	db, err := auditdb.Open(a.cfg.AuditDBPath())
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.RecordRun(ctx, started, threshold, rep)
	return err
}
