package favourites

import (
	"sort"
	"strings"

	"github.com/chanlink/chanlink/internal/normalize"
	"github.com/chanlink/chanlink/internal/playlist"
)

// MasterEntry is a reference channel definition from a master playlist.
// Priority orders sources (lower = preferred); within one priority the
// first definition of a key wins.
type MasterEntry struct {
	Name        string
	TVGID       string
	URL         string
	Group       string
	Country     string
	Logo        string
	Props       []string
	SourceLabel string
	Priority    int
}

// MastersFromPlaylist converts parsed playlist entries into master
// entries tagged with their source label and priority.
func MastersFromPlaylist(entries []playlist.Entry, label string, priority int) []MasterEntry {
	out := make([]MasterEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, MasterEntry{
			Name:        e.Name,
			TVGID:       e.TVGID,
			URL:         e.URL,
			Group:       e.Group,
			Country:     e.Country,
			Logo:        e.Logo,
			Props:       e.Props,
			SourceLabel: label,
			Priority:    priority,
		})
	}
	return out
}

// MasterIndex answers "which master entry defines this favourite row",
// trying identity keys from strongest to weakest. Each key maps to the
// candidate entries in priority-then-first-seen order.
type MasterIndex struct {
	byURL        map[string][]*MasterEntry
	byID         map[string][]*MasterEntry
	byIDLower    map[string][]*MasterEntry
	byNormName   map[string][]*MasterEntry
	priorityList []*MasterEntry
}

// NewMasterIndex indexes entries. The sort is stable so entries sharing
// a priority keep their original order, preserving first-seen-wins.
func NewMasterIndex(entries []MasterEntry) *MasterIndex {
	ix := &MasterIndex{
		byURL:      map[string][]*MasterEntry{},
		byID:       map[string][]*MasterEntry{},
		byIDLower:  map[string][]*MasterEntry{},
		byNormName: map[string][]*MasterEntry{},
	}
	ordered := make([]*MasterEntry, len(entries))
	for i := range entries {
		ordered[i] = &entries[i]
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Priority < ordered[j].Priority })
	ix.priorityList = ordered
	for _, m := range ordered {
		if m.URL != "" {
			ix.byURL[m.URL] = append(ix.byURL[m.URL], m)
		}
		if m.TVGID != "" {
			ix.byID[m.TVGID] = append(ix.byID[m.TVGID], m)
			ix.byIDLower[strings.ToLower(m.TVGID)] = append(ix.byIDLower[strings.ToLower(m.TVGID)], m)
		}
		if key := normalize.Name(m.Name); key != "" {
			ix.byNormName[key] = append(ix.byNormName[key], m)
		}
	}
	return ix
}

// Entries returns all master entries in priority-then-first-seen order.
func (ix *MasterIndex) Entries() []*MasterEntry {
	return ix.priorityList
}

// Find locates the master entry for row. Lookup order: exact stream URL,
// exact declared id, declared id without an @suffix qualifier,
// case-insensitive declared id, exact normalized display name. When the
// row declares a source preference only entries with that label count.
func (ix *MasterIndex) Find(row Row) *MasterEntry {
	if m := ix.pick(ix.byURL[row.URL], row.Source); m != nil {
		return m
	}
	if row.TVGID != "" {
		if m := ix.pick(ix.byID[row.TVGID], row.Source); m != nil {
			return m
		}
		if at := strings.Index(row.TVGID, "@"); at > 0 {
			if m := ix.pick(ix.byID[row.TVGID[:at]], row.Source); m != nil {
				return m
			}
		}
		if m := ix.pick(ix.byIDLower[strings.ToLower(row.TVGID)], row.Source); m != nil {
			return m
		}
	}
	if key := normalize.Name(row.Name); key != "" {
		if m := ix.pick(ix.byNormName[key], row.Source); m != nil {
			return m
		}
	}
	return nil
}

func (ix *MasterIndex) pick(candidates []*MasterEntry, sourcePref string) *MasterEntry {
	for _, m := range candidates {
		if sourcePref != "" && !strings.EqualFold(m.SourceLabel, sourcePref) {
			continue
		}
		return m
	}
	return nil
}

// Stats counts what Merge did.
type Stats struct {
	Matched    int // rows that found a master entry
	Backfilled int // rows that had at least one blank field filled
	Appended   int // master-only channels added as new non-favourites
}

// Merge backfills blank row attributes from the best master entry and
// appends master-only channels as new, non-favourite rows. Existing
// rows are never overwritten; the append is additive only.
func Merge(rows []Row, ix *MasterIndex) ([]Row, Stats) {
	var stats Stats
	out := make([]Row, len(rows))
	copy(out, rows)

	seen := map[string]struct{}{}
	for i := range out {
		if key := playlist.IdentityKey(out[i].Name, out[i].TVGID, out[i].URL); key != "" {
			seen[key] = struct{}{}
		}
		m := ix.Find(out[i])
		if m == nil {
			continue
		}
		stats.Matched++
		if backfill(&out[i], m) {
			stats.Backfilled++
		}
	}

	for _, m := range ix.Entries() {
		key := playlist.IdentityKey(m.Name, m.TVGID, m.URL)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, Row{
			Favourite: false,
			New:       true,
			Name:      m.Name,
			TVGID:     m.TVGID,
			URL:       m.URL,
			Props:     append([]string(nil), m.Props...),
			Country:   m.Country,
			Group:     m.Group,
			Logo:      m.Logo,
			Source:    m.SourceLabel,
		})
		stats.Appended++
	}
	return out, stats
}

// backfill fills blank row fields from m and merges property lines
// (row first, then master, de-duplicated by exact text). Returns true
// when anything changed.
func backfill(row *Row, m *MasterEntry) bool {
	changed := false
	if row.Group == "" && m.Group != "" {
		row.Group = m.Group
		changed = true
	}
	if row.Country == "" {
		if cc := masterCountry(m); cc != "" {
			row.Country = cc
			changed = true
		}
	}
	if row.Logo == "" && m.Logo != "" {
		row.Logo = m.Logo
		changed = true
	}
	if row.Source == "" && m.SourceLabel != "" {
		row.Source = m.SourceLabel
		changed = true
	}
	if len(m.Props) > 0 {
		merged := mergeProps(row.Props, m.Props)
		if len(merged) != len(row.Props) {
			row.Props = merged
			changed = true
		}
	}
	return changed
}

// masterCountry prefers the entry's country attribute, falling back to
// its group title when that names a country (master lists often carry
// the country only as a group).
func masterCountry(m *MasterEntry) string {
	if m.Country != "" {
		return m.Country
	}
	if isCountryName(m.Group) {
		return m.Group
	}
	return ""
}

func mergeProps(rowProps, masterProps []string) []string {
	seen := make(map[string]struct{}, len(rowProps)+len(masterProps))
	out := make([]string, 0, len(rowProps)+len(masterProps))
	for _, p := range rowProps {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	for _, p := range masterProps {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
