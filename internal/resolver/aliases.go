package resolver

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Alias is a manual override target, with an optional country-suffix
// hint for the Jaccard strategy when the target itself is unset.
type Alias struct {
	Target string
	Suffix string
}

type aliasKey struct {
	name  string
	tvgID string
}

// AliasTable maps (lowercased display name, lowercased declared id) to
// an override. Manual overrides always win with confidence 1.0.
type AliasTable map[aliasKey]Alias

// Lookup returns the alias for the given raw name and declared id.
func (t AliasTable) Lookup(name, tvgID string) (Alias, bool) {
	a, ok := t[aliasKey{
		name:  strings.ToLower(strings.TrimSpace(name)),
		tvgID: strings.ToLower(strings.TrimSpace(tvgID)),
	}]
	return a, ok
}

// Set registers an alias; used by tests and curation tooling.
func (t AliasTable) Set(name, tvgID string, a Alias) {
	t[aliasKey{
		name:  strings.ToLower(strings.TrimSpace(name)),
		tvgID: strings.ToLower(strings.TrimSpace(tvgID)),
	}] = a
}

// LoadAliases reads the alias override CSV with columns m3u_name,
// tvg_id_current, tvg_id_target and optional _suffix. Rows without a
// target and without a suffix hint are ignored.
func LoadAliases(r io.Reader) (AliasTable, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return AliasTable{}, nil
		}
		return nil, err
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	get := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	table := AliasTable{}
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		a := Alias{
			Target: get(rec, "tvg_id_target"),
			Suffix: strings.ToLower(get(rec, "_suffix")),
		}
		if a.Target == "" && a.Suffix == "" {
			continue
		}
		table.Set(get(rec, "m3u_name"), get(rec, "tvg_id_current"), a)
	}
	return table, nil
}

// LoadAliasFile reads path; a missing file yields an empty table, since
// the alias CSV is an optional curation artifact.
func LoadAliasFile(path string) (AliasTable, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) {
			return AliasTable{}, nil
		}
		return nil, err
	}
	defer f.Close()
	return LoadAliases(f)
}
