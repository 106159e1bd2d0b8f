package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chanlink/chanlink/internal/favourites"
	"github.com/chanlink/chanlink/internal/pruner"
	"github.com/chanlink/chanlink/internal/xmltv"
)

func newPruneEPGCommand(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "prune-epg <guide-file>",
		Short: "Cut a raw guide down to favourite channels by name",
		Long: "Prunes a guide document using the favourite channel names as a\n" +
			"fuzzy keep-list. Useful before any curated playlist exists for a\n" +
			"country, when id-based filtering has nothing to go on.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPruneEPG(a, args[0], out)
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output path (default: input with .pruned before the extension)")
	return cmd
}

func runPruneEPG(a *app, guidePath, outPath string) error {
	rows, err := favourites.ReadCSVFile(a.cfg.FavouritesPath())
	if err != nil {
		return fmt.Errorf("reading favourites: %w", err)
	}
	var names []string
	keepIDs := map[string]struct{}{}
	for _, row := range rows {
		if !row.Favourite {
			continue
		}
		if row.Name != "" {
			names = append(names, row.Name)
		}
		if row.TVGID != "" {
			keepIDs[row.TVGID] = struct{}{}
		}
	}
	if len(names) == 0 && len(keepIDs) == 0 {
		return fmt.Errorf("no favourite channels to keep; refusing to prune %s", guidePath)
	}

	doc, err := xmltv.ReadFile(guidePath)
	if err != nil {
		return fmt.Errorf("reading guide: %w", err)
	}
	pruned, decisions := pruner.FilterEPGByNames(doc, names, keepIDs, a.cfg.FuzzyThreshold)
	if len(pruned.Channels) == 0 {
		return fmt.Errorf("no guide channel matched a favourite; refusing to write an empty guide")
	}

	if outPath == "" {
		outPath = prunedGuidePath(guidePath)
	}
	if err := pruned.WriteFile(outPath); err != nil {
		return err
	}
	dec, err := os.Create(filepath.Join(a.cfg.LogDir, "fuzzy_prune.csv"))
	if err != nil {
		return err
	}
	defer dec.Close()
	if err := pruner.WriteFuzzyDecisionsCSV(dec, decisions); err != nil {
		return err
	}

	a.log.Info("guide pruned", "input", guidePath, "output", outPath,
		"kept", len(pruned.Channels), "dropped", len(decisions)-len(pruned.Channels))
	return nil
}

// prunedGuidePath inserts .pruned before the guide's extension, keeping
// a trailing .gz so compression survives the rewrite.
func prunedGuidePath(path string) string {
	gz := strings.HasSuffix(path, ".gz")
	base := strings.TrimSuffix(path, ".gz")
	ext := filepath.Ext(base)
	out := strings.TrimSuffix(base, ext) + ".pruned" + ext
	if gz {
		out += ".gz"
	}
	return out
}
