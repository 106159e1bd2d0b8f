// Package playlist parses and serializes M3U channel playlists.
//
// Each channel is one #EXTINF metadata line with key="value" attributes
// and a display name after the comma, zero or more property lines
// (#EXTVLCOPT, #KODIPROP, ...), then exactly one stream URL line. Entries
// keep their raw EXTINF text so identifier rewrites round-trip every
// attribute untouched.
package playlist

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

const maxLineSize = 1 << 20 // 1 MiB per line

const Header = "#EXTM3U"

var attrRe = regexp.MustCompile(`([A-Za-z0-9_-]+)="([^"]*)"`)

// Entry is one channel of a playlist.
type Entry struct {
	Raw     string   // full #EXTINF line as read (or built)
	Name    string   // display name after the comma
	TVGID   string   // declared id; possibly empty or unreliable
	TVGName string   // alternate display name
	Group   string   // group-title
	Logo    string   // tvg-logo
	Country string   // tvg-country
	URL     string   // stream address; required to be emitted
	Props   []string // property lines between EXTINF and URL, order preserved
}

// Parse reads a playlist. The first non-blank line must be the #EXTM3U
// header. Lines that are neither EXTINF, property, nor URL reset the
// pending entry, mirroring how lenient players skip garbage.
func Parse(r io.Reader) ([]Entry, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(nil, maxLineSize)

	var entries []Entry
	var cur *Entry
	sawHeader := false
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if !sawHeader {
			if !strings.HasPrefix(line, Header) {
				return nil, fmt.Errorf("playlist: missing %s header", Header)
			}
			sawHeader = true
			continue
		}
		switch {
		case strings.HasPrefix(line, "#EXTINF:"):
			e := FromExtinf(line)
			cur = &e
		case strings.HasPrefix(line, "#"):
			if cur != nil {
				cur.Props = append(cur.Props, line)
			}
		default:
			if cur != nil {
				cur.URL = line
				entries = append(entries, *cur)
				cur = nil
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if !sawHeader {
		return nil, fmt.Errorf("playlist: missing %s header", Header)
	}
	return entries, nil
}

// FromExtinf parses one #EXTINF line into an Entry (URL left empty).
func FromExtinf(line string) Entry {
	e := Entry{Raw: line}
	meta := line
	if i := strings.Index(line, ","); i >= 0 {
		meta = line[:i]
		e.Name = strings.TrimSpace(line[i+1:])
	}
	attrs := map[string]string{}
	for _, m := range attrRe.FindAllStringSubmatch(meta, -1) {
		attrs[m[1]] = m[2]
	}
	e.TVGID = strings.TrimSpace(first(attrs, "tvg-id", "tvg_id", "tvgid"))
	e.TVGName = first(attrs, "tvg-name", "tvg_name")
	e.Group = first(attrs, "group-title", "group_title")
	e.Logo = first(attrs, "tvg-logo", "tvg_logo")
	e.Country = first(attrs, "tvg-country", "tvg_country")
	return e
}

func first(attrs map[string]string, keys ...string) string {
	for _, k := range keys {
		if v, ok := attrs[k]; ok && v != "" {
			return v
		}
	}
	return ""
}

// SetAttr returns the EXTINF line with key="val" replaced in place, or
// inserted before the display-name comma when the key is absent. A blank
// val leaves the line unchanged, so an existing id is never blanked.
func SetAttr(extinf, key, val string) string {
	if val == "" {
		return extinf
	}
	pat := regexp.MustCompile(regexp.QuoteMeta(key) + `="[^"]*"`)
	if pat.MatchString(extinf) {
		return pat.ReplaceAllString(extinf, key+`="`+val+`"`)
	}
	if pos := strings.Index(extinf, ","); pos >= 0 {
		return extinf[:pos] + ` ` + key + `="` + val + `"` + extinf[pos:]
	}
	return extinf + ` ` + key + `="` + val + `"`
}

// BuildExtinf assembles a fresh EXTINF line from entry fields; used when
// writing the pruned favourites playlist from scratch.
func BuildExtinf(e Entry, groupTitle string) string {
	ext := "#EXTINF:-1"
	ext = SetAttr(ext, "tvg-id", e.TVGID)
	if e.TVGName != "" && e.TVGName != e.Name {
		ext = SetAttr(ext, "tvg-name", e.TVGName)
	}
	ext = SetAttr(ext, "tvg-country", e.Country)
	ext = SetAttr(ext, "tvg-logo", e.Logo)
	ext = SetAttr(ext, "group-title", groupTitle)
	return ext + "," + e.Name
}

// Write serializes entries in order. Entries without a stream URL are
// skipped; property lines are de-duplicated by exact text.
func Write(w io.Writer, entries []Entry) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(Header + "\n"); err != nil {
		return err
	}
	for _, e := range entries {
		if e.URL == "" {
			continue
		}
		raw := e.Raw
		if raw == "" {
			raw = BuildExtinf(e, e.Group)
		}
		bw.WriteString(raw + "\n")
		seen := map[string]struct{}{}
		for _, p := range e.Props {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			bw.WriteString(p + "\n")
		}
		bw.WriteString(e.URL + "\n")
	}
	return bw.Flush()
}

// IdentityKey is the merge/dedup key of an entry: the first non-empty of
// display name, declared id, stream URL, lowercased.
func IdentityKey(name, tvgID, url string) string {
	for _, v := range []string{name, tvgID, url} {
		if v = strings.TrimSpace(v); v != "" {
			return strings.ToLower(v)
		}
	}
	return ""
}
