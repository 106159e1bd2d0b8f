package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/chanlink/chanlink/internal/favourites"
	"github.com/chanlink/chanlink/internal/playlist"
	"github.com/chanlink/chanlink/internal/pruner"
)

func newPruneCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Render the favourites table as a pruned playlist",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := runPrune(a)
			return err
		},
	}
}

// runPrune merges masters into the favourites table, writes the pruned
// playlist and its side reports, and returns the selection stats.
func runPrune(a *app) (pruner.SelectStats, error) {
	var zero pruner.SelectStats
	rows, err := favourites.ReadCSVFile(a.cfg.FavouritesPath())
	if err != nil {
		return zero, fmt.Errorf("reading favourites: %w", err)
	}
	if len(rows) == 0 {
		return zero, fmt.Errorf("favourites table %s is empty", a.cfg.FavouritesPath())
	}

	if a.cfg.MasterMerge && len(a.cfg.Masters) > 0 {
		masters, err := loadMasters(a)
		if err != nil {
			return zero, err
		}
		if len(masters) > 0 {
			var stats favourites.Stats
			rows, stats = favourites.Merge(rows, favourites.NewMasterIndex(masters))
			a.log.Info("master merge", "matched", stats.Matched, "backfilled", stats.Backfilled, "appended", stats.Appended)
			if err := favourites.WriteCSVFile(a.cfg.FavouritesPath(), rows); err != nil {
				return zero, fmt.Errorf("updating favourites: %w", err)
			}
		}
	}

	entries, stats := pruner.SelectFavourites(rows)
	if len(entries) == 0 {
		return stats, fmt.Errorf("no favourite channels with a stream URL; refusing to write an empty playlist")
	}

	out, err := os.Create(a.cfg.PlaylistPath())
	if err != nil {
		return stats, err
	}
	if err := playlist.Write(out, entries); err != nil {
		out.Close()
		return stats, err
	}
	if err := out.Close(); err != nil {
		return stats, err
	}

	if err := pruner.WriteCountryMapJSONFile(a.cfg.CountryMapPath(), pruner.CountryCodes(entries)); err != nil {
		return stats, err
	}
	if err := writePruneReport(filepath.Join(a.cfg.LogDir, "prune_report.csv"), stats); err != nil {
		return stats, err
	}
	a.log.Info("playlist written", "path", a.cfg.PlaylistPath(),
		"channels", stats.Kept, "skipped_not_favourite", stats.SkippedNotFavourite, "skipped_no_url", stats.SkippedNoURL)
	return stats, nil
}

// loadMasters parses every configured master playlist; a missing or
// malformed master is logged and skipped rather than aborting the run.
func loadMasters(a *app) ([]favourites.MasterEntry, error) {
	var all []favourites.MasterEntry
	for _, src := range a.cfg.Masters {
		entries, err := readPlaylistFile(src.Path)
		if err != nil {
			a.log.Warn("skipping master playlist", "label", src.Label, "err", err)
			continue
		}
		all = append(all, favourites.MastersFromPlaylist(entries, src.Label, src.Priority)...)
	}
	return all, nil
}

func readPlaylistFile(path string) ([]playlist.Entry, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return playlist.Parse(f)
}

func writePruneReport(path string, stats pruner.SelectStats) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return err
	}
	defer f.Close()
	cw := csv.NewWriter(f)
	records := [][]string{
		{"metric", "count"},
		{"total_rows", strconv.Itoa(stats.Total)},
		{"written", strconv.Itoa(stats.Kept)},
		{"skipped_not_favourite", strconv.Itoa(stats.SkippedNotFavourite)},
		{"skipped_no_url", strconv.Itoa(stats.SkippedNoURL)},
	}
	for _, rec := range records {
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
