// Package epgcat builds lookup indices over the channels of one or more
// XMLTV documents: by id, by normalized display name, and by the
// two-letter country suffix of ids like "bbcone.uk".
//
// De-duplication is first-seen-wins throughout. That keeps lookups stable
// when the same id appears in several guide sources; switching to
// last-seen-wins would silently change matching results.
package epgcat

import (
	"regexp"
	"sort"

	"github.com/chanlink/chanlink/internal/normalize"
	"github.com/chanlink/chanlink/internal/xmltv"
)

var suffixRe = regexp.MustCompile(`\.([a-z]{2})$`)

// Catalog indexes EPG channels for identity resolution.
type Catalog struct {
	order  []string                       // ids in first-seen order
	names  map[string]map[string]struct{} // id -> display names
	byName map[string]map[string]struct{} // normalized display name -> ids
	bySuf  map[string]map[string]struct{} // country suffix -> ids
}

// Build indexes the channels of docs. A channel whose id was already
// registered is skipped entirely; a channel without display names is
// indexed under its id.
func Build(docs ...*xmltv.Document) *Catalog {
	c := &Catalog{
		names:  map[string]map[string]struct{}{},
		byName: map[string]map[string]struct{}{},
		bySuf:  map[string]map[string]struct{}{},
	}
	for _, doc := range docs {
		for _, ch := range doc.Channels {
			c.add(ch.ID, ch.DisplayNames)
		}
	}
	return c
}

func (c *Catalog) add(id string, displayNames []string) {
	if id == "" {
		return
	}
	if _, dup := c.names[id]; dup {
		return
	}
	if len(displayNames) == 0 {
		displayNames = []string{id}
	}
	set := make(map[string]struct{}, len(displayNames))
	for _, dn := range displayNames {
		set[dn] = struct{}{}
		key := normalize.Name(dn)
		if key == "" {
			continue
		}
		ids, ok := c.byName[key]
		if !ok {
			ids = map[string]struct{}{}
			c.byName[key] = ids
		}
		ids[id] = struct{}{}
	}
	c.names[id] = set
	c.order = append(c.order, id)
	if m := suffixRe.FindStringSubmatch(id); m != nil {
		suf := m[1]
		ids, ok := c.bySuf[suf]
		if !ok {
			ids = map[string]struct{}{}
			c.bySuf[suf] = ids
		}
		ids[id] = struct{}{}
	}
}

// Has reports whether id is present.
func (c *Catalog) Has(id string) bool {
	_, ok := c.names[id]
	return ok
}

// DisplayNames returns the display-name set of id, or nil.
func (c *Catalog) DisplayNames(id string) map[string]struct{} {
	return c.names[id]
}

// IDs returns all channel ids in first-seen order.
func (c *Catalog) IDs() []string {
	return c.order
}

// Len returns the number of distinct channel ids.
func (c *Catalog) Len() int {
	return len(c.order)
}

// IDsByNormalizedName returns the ids registered under an
// already-normalized display name, sorted for determinism.
func (c *Catalog) IDsByNormalizedName(key string) []string {
	return sortedKeys(c.byName[key])
}

// IDsBySuffix returns the ids whose country suffix is suf, sorted.
func (c *Catalog) IDsBySuffix(suf string) []string {
	return sortedKeys(c.bySuf[suf])
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
