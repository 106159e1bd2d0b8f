// Package resolver matches playlist channel entries against an EPG
// channel catalog.
//
// Strategies run in a fixed order and the first applicable one wins:
// manual alias, exact id, punctuation-insensitive id, .gb/.uk suffix
// swap, unique normalized name, country-constrained token Jaccard, and
// finally a slug guess. Every row gets a verdict; an unmatchable row is
// reported as unmatched with confidence 0, never as an error.
package resolver

import (
	"sort"
	"strings"

	"github.com/chanlink/chanlink/internal/epgcat"
	"github.com/chanlink/chanlink/internal/normalize"
)

// Method identifies which strategy produced a verdict.
type Method string

const (
	MethodAlias        Method = "alias"
	MethodIDExact      Method = "id_exact"
	MethodIDCompact    Method = "id_compact"
	MethodIDSuffixSwap Method = "id_suffix_swap"
	MethodNameUnique   Method = "name_unique"
	MethodNameJaccard  Method = "name_jaccard"
	MethodSlugGuess    Method = "slug_guess"
	MethodUnmatched    Method = "unmatched"
)

// Confidence assigned per strategy. An exact id is never beaten by a
// name-similarity match; a manual alias ties with it.
const (
	confAlias      = 1.00
	confIDExact    = 1.00
	confIDCompact  = 0.97
	confSuffixSwap = 0.96
	confNameUnique = 0.92
	confJaccard    = 0.80
	confJaccardSuf = 0.85
	confSlugGuess  = 0.72

	jaccardFloor = 0.60
	jaccardBoost = 0.10
)

// Row is the playlist-side input of one resolution.
type Row struct {
	Name    string
	TVGID   string
	TVGName string
	Group   string
	URL     string
}

// Verdict is the outcome of resolving one row. MatchedID, when set,
// always names a channel present in the catalog the verdict came from.
type Verdict struct {
	Method     Method
	MatchedID  string
	Confidence float64
}

// Options toggles the optional strategies; historically these arrived as
// separate script revisions and some guide sources want them off.
type Options struct {
	SuffixSwap bool
	SlugGuess  bool
}

// DefaultOptions enables every strategy.
var DefaultOptions = Options{SuffixSwap: true, SlugGuess: true}

// slugSuffixes is the country order tried by the slug-guess strategy.
var slugSuffixes = []string{"uk", "us", "ca", "de"}

// Resolver matches rows against one catalog. Safe for concurrent reads;
// it never mutates the catalog or alias table.
type Resolver struct {
	cat     *epgcat.Catalog
	aliases AliasTable
	opts    Options

	compactIDs []compactID
	sortedName map[string][]string // id -> display names, sorted
}

type compactID struct {
	compact string
	id      string
}

// New builds a resolver over cat. aliases may be nil.
func New(cat *epgcat.Catalog, aliases AliasTable, opts Options) *Resolver {
	r := &Resolver{
		cat:        cat,
		aliases:    aliases,
		opts:       opts,
		sortedName: make(map[string][]string, cat.Len()),
	}
	for _, id := range cat.IDs() {
		r.compactIDs = append(r.compactIDs, compactID{compact: normalize.Compact(id), id: id})
		names := make([]string, 0, len(cat.DisplayNames(id)))
		for dn := range cat.DisplayNames(id) {
			names = append(names, dn)
		}
		sort.Strings(names)
		r.sortedName[id] = names
	}
	return r
}

// Resolve returns the verdict for row. It never fails: the weakest
// outcome is an unmatched verdict with confidence 0.
func (r *Resolver) Resolve(row Row) Verdict {
	tid := strings.TrimSpace(row.TVGID)
	name := strings.TrimSpace(row.TVGName)
	if name == "" {
		name = strings.TrimSpace(row.Name)
	}

	alias, haveAlias := r.aliases.Lookup(row.Name, row.TVGID)
	if haveAlias && alias.Target != "" {
		return Verdict{Method: MethodAlias, MatchedID: alias.Target, Confidence: confAlias}
	}

	if tid != "" && r.cat.Has(tid) {
		return Verdict{Method: MethodIDExact, MatchedID: tid, Confidence: confIDExact}
	}

	if tid != "" {
		if id, ok := r.compactLookup(tid); ok {
			return Verdict{Method: MethodIDCompact, MatchedID: id, Confidence: confIDCompact}
		}
		if r.opts.SuffixSwap {
			if id, ok := r.suffixSwap(tid); ok {
				return Verdict{Method: MethodIDSuffixSwap, MatchedID: id, Confidence: confSuffixSwap}
			}
		}
	}

	nkey := normalize.Name(name)
	if nkey != "" {
		if ids := r.cat.IDsByNormalizedName(nkey); len(ids) == 1 {
			return Verdict{Method: MethodNameUnique, MatchedID: ids[0], Confidence: confNameUnique}
		}
	}

	hint := alias.Suffix
	if hint == "" {
		hint = guessSuffix(row)
	}
	if id, conf, ok := r.bestJaccard(name, hint); ok {
		return Verdict{Method: MethodNameJaccard, MatchedID: id, Confidence: conf}
	}

	if r.opts.SlugGuess {
		slug := normalize.Compact(nkey)
		if slug != "" {
			for _, suf := range slugSuffixes {
				if guess := slug + "." + suf; r.cat.Has(guess) {
					return Verdict{Method: MethodSlugGuess, MatchedID: guess, Confidence: confSlugGuess}
				}
			}
		}
	}

	return Verdict{Method: MethodUnmatched}
}

func (r *Resolver) compactLookup(tid string) (string, bool) {
	want := normalize.Compact(tid)
	if want == "" {
		return "", false
	}
	for _, c := range r.compactIDs {
		if c.compact == want {
			return c.id, true
		}
	}
	return "", false
}

func (r *Resolver) suffixSwap(tid string) (string, bool) {
	var swapped string
	switch {
	case strings.HasSuffix(tid, ".gb"):
		swapped = strings.TrimSuffix(tid, ".gb") + ".uk"
	case strings.HasSuffix(tid, ".uk"):
		swapped = strings.TrimSuffix(tid, ".uk") + ".gb"
	default:
		return "", false
	}
	if r.cat.Has(swapped) {
		return swapped, true
	}
	return "", false
}

// bestJaccard scores the row name's token set against every display name
// of every candidate id. Candidates are restricted to the hinted country
// suffix when a hint exists; a hint with an empty bucket yields no match.
func (r *Resolver) bestJaccard(name, hint string) (string, float64, bool) {
	rowTokens := normalize.Tokens(name)
	if len(rowTokens) == 0 {
		return "", 0, false
	}
	var candidates []string
	if hint != "" {
		candidates = r.cat.IDsBySuffix(hint)
	} else {
		candidates = r.cat.IDs()
	}
	best, bestScore := "", 0.0
	for _, id := range candidates {
		for _, dn := range r.sortedName[id] {
			if score := normalize.Jaccard(rowTokens, normalize.Tokens(dn)); score > bestScore {
				bestScore, best = score, id
			}
		}
	}
	if best == "" || bestScore < jaccardFloor {
		return "", 0, false
	}
	conf := confJaccard
	if hint != "" && strings.HasSuffix(best, "."+hint) {
		conf = confJaccardSuf
	}
	conf += min(jaccardBoost, bestScore-jaccardFloor)
	return best, normalize.Round3(conf), true
}

// countryHints maps keyword fragments scanned across a row's id, group
// and name to a country suffix, checked in this order.
var countryHints = []struct {
	suffix  string
	needles []string
}{
	{"uk", []string{" uk ", " gb ", " united kingdom ", ".uk", ".gb", " british "}},
	{"us", []string{" us ", " usa ", " united states ", ".us"}},
	{"ca", []string{" ca ", " canada ", ".ca"}},
	{"de", []string{" de ", " germany ", " deutschland ", ".de"}},
}

func guessSuffix(row Row) string {
	name := row.TVGName
	if name == "" {
		name = row.Name
	}
	blob := " " + strings.ToLower(row.TVGID) + " " + strings.ToLower(row.Group) + " " + strings.ToLower(name) + " "
	for _, h := range countryHints {
		for _, n := range h.needles {
			if strings.Contains(blob, n) {
				return h.suffix
			}
		}
	}
	tid := strings.ToLower(strings.TrimSpace(row.TVGID))
	if len(tid) > 3 && tid[len(tid)-3] == '.' {
		suf := tid[len(tid)-2:]
		if isLowerAlpha(suf) {
			return suf
		}
	}
	return ""
}

func isLowerAlpha(s string) bool {
	for _, c := range s {
		if c < 'a' || c > 'z' {
			return false
		}
	}
	return s != ""
}
