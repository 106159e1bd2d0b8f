// Package pruner turns the reconciled favourites table into a pruned
// playlist with corrected tvg-ids, filters guide documents down to the
// kept channels, and emits the audit artifacts of each run.
package pruner

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chanlink/chanlink/internal/favourites"
	"github.com/chanlink/chanlink/internal/playlist"
	"github.com/chanlink/chanlink/internal/resolver"
)

// SelectStats counts the favourites-selection phase.
type SelectStats struct {
	Total               int
	Kept                int
	SkippedNotFavourite int
	SkippedNoURL        int
}

// SelectFavourites keeps the rows flagged as favourites that carry a
// stream URL and renders them as playlist entries. The group title is
// rebuilt from the row's country and group.
func SelectFavourites(rows []favourites.Row) ([]playlist.Entry, SelectStats) {
	stats := SelectStats{Total: len(rows)}
	var entries []playlist.Entry
	for _, row := range rows {
		if !row.Favourite {
			stats.SkippedNotFavourite++
			continue
		}
		if row.URL == "" {
			stats.SkippedNoURL++
			continue
		}
		e := playlist.Entry{
			Name:    row.Name,
			TVGID:   row.TVGID,
			Group:   favourites.GroupTitle(row.Country, row.Group),
			Logo:    row.Logo,
			Country: row.Country,
			URL:     row.URL,
			Props:   append([]string(nil), row.Props...),
		}
		e.Raw = playlist.BuildExtinf(e, e.Group)
		entries = append(entries, e)
		stats.Kept++
	}
	return entries, stats
}

// Outcome pairs one playlist entry with its resolution verdict. Applied
// is the id present on the emitted line; when the verdict was rejected
// it is the original declared id, possibly empty.
type Outcome struct {
	Entry    playlist.Entry
	Verdict  resolver.Verdict
	Declared string // tvg-id as it arrived, before any rewrite
	Applied  string
	Accepted bool
}

// RewriteStats counts the id-rewrite phase.
type RewriteStats struct {
	Rewritten    int // accepted verdicts whose id differs from the declared one
	Confirmed    int // accepted verdicts matching the declared id
	KeptOriginal int // rejected verdicts, original line preserved
	Unmatched    int // rows no strategy could place
}

// Report is the outcome of rewriting one playlist.
type Report struct {
	Outcomes []Outcome
	Stats    RewriteStats
}

// Rewrite resolves every entry and applies accepted verdicts to the
// EXTINF lines. A verdict is accepted when its confidence reaches
// threshold and it names a catalog channel; anything weaker leaves the
// original line untouched, so a wrong guess can never destroy a
// previously good id.
func Rewrite(entries []playlist.Entry, r *resolver.Resolver, threshold float64) *Report {
	rep := &Report{Outcomes: make([]Outcome, 0, len(entries))}
	for _, e := range entries {
		v := r.Resolve(resolver.Row{
			Name:    e.Name,
			TVGID:   e.TVGID,
			TVGName: e.TVGName,
			Group:   e.Group,
			URL:     e.URL,
		})
		o := Outcome{Entry: e, Verdict: v, Declared: e.TVGID, Applied: e.TVGID}
		if v.MatchedID != "" && v.Confidence >= threshold {
			o.Accepted = true
			o.Applied = v.MatchedID
			o.Entry.Raw = playlist.SetAttr(e.Raw, "tvg-id", v.MatchedID)
			o.Entry.TVGID = v.MatchedID
			if v.MatchedID == e.TVGID {
				rep.Stats.Confirmed++
			} else {
				rep.Stats.Rewritten++
			}
		} else {
			rep.Stats.KeptOriginal++
			if v.Method == resolver.MethodUnmatched {
				rep.Stats.Unmatched++
			}
		}
		rep.Outcomes = append(rep.Outcomes, o)
	}
	return rep
}

// Entries returns the rewritten playlist entries in input order.
func (rep *Report) Entries() []playlist.Entry {
	out := make([]playlist.Entry, len(rep.Outcomes))
	for i, o := range rep.Outcomes {
		out[i] = o.Entry
	}
	return out
}

// IDs returns the set of accepted matched ids; this is the keep-set
// for guide filtering. Rejected rows keep their declared id in the
// playlist but must not pull channels into the guide.
func (rep *Report) IDs() map[string]struct{} {
	set := map[string]struct{}{}
	for _, o := range rep.Outcomes {
		if o.Accepted && o.Applied != "" {
			set[o.Applied] = struct{}{}
		}
	}
	return set
}

func formatConf(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// WriteAuditCSV emits one row per resolution outcome.
func (rep *Report) WriteAuditCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"name", "tvg_id", "tvg_name", "group", "matched_id", "match_method", "confidence"}); err != nil {
		return err
	}
	for _, o := range rep.Outcomes {
		rec := []string{
			o.Entry.Name,
			o.Declared,
			o.Entry.TVGName,
			o.Entry.Group,
			o.Verdict.MatchedID,
			string(o.Verdict.Method),
			formatConf(o.Verdict.Confidence),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteUnmatchedCSV emits the rows no strategy could place, for manual
// alias curation.
func (rep *Report) WriteUnmatchedCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"name", "tvg_id", "tvg_name", "group", "url"}); err != nil {
		return err
	}
	for _, o := range rep.Outcomes {
		if o.Verdict.Method != resolver.MethodUnmatched {
			continue
		}
		if err := cw.Write([]string{o.Entry.Name, o.Declared, o.Entry.TVGName, o.Entry.Group, o.Entry.URL}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTrace emits the per-row match trace consumed when debugging a
// bad rewrite.
func (rep *Report) WriteTrace(w io.Writer) error {
	for _, o := range rep.Outcomes {
		_, err := fmt.Fprintf(w, "[MATCH] %s: old_tvg_id='%s' matched_tvg_id='%s' method=%s confidence=%s applied_tvg_id='%s'\n",
			o.Entry.Name, o.Declared, o.Verdict.MatchedID, o.Verdict.Method, formatConf(o.Verdict.Confidence), o.Applied)
		if err != nil {
			return err
		}
	}
	return nil
}

// CountryMap maps each emitted tvg-id to its two-letter country suffix,
// when the id carries one.
func (rep *Report) CountryMap() map[string]string {
	out := map[string]string{}
	for _, o := range rep.Outcomes {
		id := o.Applied
		if id == "" {
			continue
		}
		if i := strings.LastIndex(id, "."); i >= 0 && len(id)-i == 3 {
			suf := id[i+1:]
			if isLowerAlpha(suf) {
				out[id] = suf
			}
		}
	}
	return out
}

// WriteCountryMapFile writes the country map as JSON; map keys marshal
// in sorted order, keeping the file diffable between runs.
func (rep *Report) WriteCountryMapFile(path string) error {
	return WriteCountryMapJSONFile(path, rep.CountryMap())
}

// WriteCountryMapJSONFile writes any channel-to-country map as JSON.
func WriteCountryMapJSONFile(path string, m map[string]string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Clean(path), append(data, '\n'), 0o644)
}

// CountryCodes guesses a two-letter country code per playlist entry,
// keyed by tvg-id when present, else display name. The declared country
// attribute wins over the id suffix.
func CountryCodes(entries []playlist.Entry) map[string]string {
	out := map[string]string{}
	for _, e := range entries {
		key := e.TVGID
		if key == "" {
			key = e.Name
		}
		if key == "" {
			continue
		}
		if cc := strings.ToLower(strings.TrimSpace(e.Country)); len(cc) == 2 && isLowerAlpha(cc) {
			out[key] = cc
			continue
		}
		if i := strings.LastIndex(e.TVGID, "."); i >= 0 && len(e.TVGID)-i == 3 {
			if suf := e.TVGID[i+1:]; isLowerAlpha(suf) {
				out[key] = suf
			}
		}
	}
	return out
}

func isLowerAlpha(s string) bool {
	for _, c := range s {
		if c < 'a' || c > 'z' {
			return false
		}
	}
	return s != ""
}
