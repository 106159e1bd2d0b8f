// Package favourites reads the curated favourites table and reconciles
// it against priority-ordered master playlists to pick the channel set
// that flows into the pruned playlist.
package favourites

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Row is one favourites-table record. URL blobs may arrive with embedded
// property lines; ReadCSV splits those into URL + Props.
type Row struct {
	Favourite bool
	New       bool // appended from a master source this run
	Name      string
	TVGID     string
	URL       string
	Props     []string
	Country   string
	Group     string
	Logo      string
	Source    string // preferred master source label, when declared
}

// truthy inclusion-flag values, case-insensitive.
var truthy = map[string]struct{}{"1": {}, "true": {}, "yes": {}, "y": {}}

// IsTruthy reports whether v marks a row as included.
func IsTruthy(v string) bool {
	_, ok := truthy[strings.ToLower(strings.TrimSpace(v))]
	return ok
}

// headerLookup resolves columns by case-insensitive candidate names, so
// hand-edited tables with Favorite/Favourite or Url/StreamUrl all load.
type headerLookup struct {
	cols map[string]int
}

func newHeaderLookup(header []string) headerLookup {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := cols[key]; !dup {
			cols[key] = i
		}
	}
	return headerLookup{cols: cols}
}

func (h headerLookup) get(rec []string, candidates ...string) string {
	for _, c := range candidates {
		i, ok := h.cols[strings.ToLower(c)]
		if !ok || i >= len(rec) {
			continue
		}
		if v := strings.TrimSpace(rec[i]); v != "" {
			return v
		}
	}
	return ""
}

// ReadCSV loads favourites rows. Column names are matched
// case-insensitively against the candidate spellings seen in the wild.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	h := newHeaderLookup(header)
	var rows []Row
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		url, props := SplitURLBlob(h.get(rec, "Url", "URL", "StreamUrl"))
		rows = append(rows, Row{
			Favourite: IsTruthy(h.get(rec, "Favourite", "Favorite", "Include")),
			New:       IsTruthy(h.get(rec, "New")),
			Name:      h.get(rec, "ChannelName", "Name", "Channel"),
			TVGID:     h.get(rec, "TvgId", "tvg-id"),
			URL:       url,
			Props:     props,
			Country:   h.get(rec, "Country", "tvg-country"),
			Group:     h.get(rec, "GroupTitle", "Group", "Category"),
			Logo:      h.get(rec, "Logo", "tvg-logo"),
			Source:    h.get(rec, "Source", "Provider", "Origin"),
		})
	}
	return rows, nil
}

// ReadCSVFile loads favourites from path.
func ReadCSVFile(path string) ([]Row, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

// SplitURLBlob separates a possibly multi-line stream field into the
// stream URL (first non-property line) and its property lines.
func SplitURLBlob(blob string) (url string, props []string) {
	for _, line := range strings.Split(blob, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			props = append(props, line)
			continue
		}
		if url == "" {
			url = line
		}
	}
	return url, props
}

// WriteCSV persists rows, re-joining property lines into the URL blob.
// Used to keep the favourites table append-only across runs.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Favourite", "New", "ChannelName", "TvgId", "Url", "Country", "GroupTitle", "Logo", "Source"}); err != nil {
		return err
	}
	for _, r := range rows {
		fav, isNew := "0", "0"
		if r.Favourite {
			fav = "1"
		}
		if r.New {
			isNew = "1"
		}
		blob := r.URL
		if len(r.Props) > 0 {
			blob = strings.Join(append(append([]string{}, r.Props...), r.URL), "\n")
		}
		if err := cw.Write([]string{fav, isNew, r.Name, r.TVGID, blob, r.Country, r.Group, r.Logo, r.Source}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes rows to path.
func WriteCSVFile(path string, rows []Row) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteCSV(f, rows)
}
