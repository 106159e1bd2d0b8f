// Command chanlink reconciles a curated favourites table, master
// playlists and XMLTV guides into a pruned playlist with corrected
// tvg-ids, a matching pruned guide, and audit reports.
//
//	prune      favourites CSV -> pruned playlist (master merge first)
//	prune-epg  cut a raw guide down to favourite names (fuzzy keep-list)
//	match      correct tvg-ids against guide catalogs, filter the guide
//	fetch      download per-country guide documents
//	grab       run the external schedule grabber for favourite stations
//	sources    report which master source supplied each channel
//	refresh    prune + fetch + match, once or on a cron schedule
//	serve      serve playlist, guide and metrics over HTTP
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "chanlink:", err)
		os.Exit(1)
	}
}
