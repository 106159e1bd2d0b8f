package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/chanlink/chanlink/internal/grabber"
	"github.com/chanlink/chanlink/internal/xmltv"
)

func newGrabCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "grab",
		Short: "Run the external schedule grabber for favourite stations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGrab(cmd.Context(), a)
		},
	}
}

func runGrab(ctx context.Context, a *app) error {
	entries, err := readPlaylistFile(a.cfg.PlaylistPath())
	if err != nil {
		return fmt.Errorf("reading playlist: %w", err)
	}
	var ids []string
	seen := map[string]struct{}{}
	for _, e := range entries {
		if !grabber.IsStationID(e.TVGID) {
			continue
		}
		if _, dup := seen[e.TVGID]; dup {
			continue
		}
		seen[e.TVGID] = struct{}{}
		ids = append(ids, e.TVGID)
	}
	if len(ids) == 0 {
		return fmt.Errorf("grab: no favourite carries a grabber station id")
	}

	stationFile := filepath.Join(a.cfg.LogDir, "stations.txt")
	outPath := filepath.Join(a.cfg.EPGDir, "sd_guide.xml")
	g := grabber.New(a.cfg.GrabberCommand, a.cfg.GrabberArgs, a.log)
	res, err := g.Grab(ctx, ids, stationFile, outPath)
	if err != nil {
		return err
	}
	a.log.Info("grab complete", "stations", res.Stations,
		"channel_file", res.UsedChannelFile, "pruned_locally", res.PrunedLocally, "output", res.OutputPath)

	doc, err := xmltv.ReadFile(outPath)
	if err != nil {
		return fmt.Errorf("grab: reading output: %w", err)
	}
	cov, err := os.Create(filepath.Join(a.cfg.LogDir, "sd_coverage.csv"))
	if err != nil {
		return err
	}
	defer cov.Close()
	return grabber.WriteCoverageCSV(cov, ids, doc)
}
