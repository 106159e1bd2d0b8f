package main

import (
	"encoding/csv"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/chanlink/chanlink/internal/favourites"
)

func newSourcesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "Report which master source supplied each pruned channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSources(a)
		},
	}
}

// runSources attributes every pruned playlist channel to a master
// source, falling back to the stream URL's host when no master claims
// the channel.
func runSources(a *app) error {
	entries, err := readPlaylistFile(a.cfg.PlaylistPath())
	if err != nil {
		return fmt.Errorf("reading playlist: %w", err)
	}
	masters, err := loadMasters(a)
	if err != nil {
		return err
	}
	ix := favourites.NewMasterIndex(masters)

	out, err := os.Create(filepath.Join(a.cfg.LogDir, "sources.csv"))
	if err != nil {
		return err
	}
	defer out.Close()
	cw := csv.NewWriter(out)
	if err := cw.Write([]string{"name", "tvg_id", "source"}); err != nil {
		return err
	}
	for _, e := range entries {
		src := ""
		if m := ix.Find(favourites.Row{Name: e.Name, TVGID: e.TVGID, URL: e.URL}); m != nil {
			src = m.SourceLabel
		} else if u, err := url.Parse(e.URL); err == nil && u.Host != "" {
			src = u.Host
		}
		if err := cw.Write([]string{e.Name, e.TVGID, src}); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	a.log.Info("sources report written", "channels", len(entries))
	return nil
}
