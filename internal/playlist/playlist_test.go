package playlist

import (
	"bytes"
	"strings"
	"testing"
)

const sample = `#EXTM3U
#EXTINF:-1 tvg-id="bbcone.uk" tvg-name="BBC One" tvg-logo="http://x/bbc.png" group-title="UK",BBC One HD
#EXTVLCOPT:http-user-agent=Kodi
http://example.com/bbc1.m3u8
#EXTINF:-1 group-title="News",Sky News
http://example.com/skynews.m3u8
`

func TestParse(t *testing.T) {
	entries, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len=%d want 2", len(entries))
	}
	e := entries[0]
	if e.TVGID != "bbcone.uk" || e.TVGName != "BBC One" || e.Group != "UK" {
		t.Fatalf("attrs: %+v", e)
	}
	if e.Name != "BBC One HD" || e.URL != "http://example.com/bbc1.m3u8" {
		t.Fatalf("name/url: %+v", e)
	}
	if len(e.Props) != 1 || !strings.HasPrefix(e.Props[0], "#EXTVLCOPT") {
		t.Fatalf("props: %v", e.Props)
	}
	if entries[1].TVGID != "" || entries[1].Name != "Sky News" {
		t.Fatalf("second entry: %+v", entries[1])
	}
}

func TestParseMissingHeader(t *testing.T) {
	_, err := Parse(strings.NewReader("#EXTINF:-1,X\nhttp://x\n"))
	if err == nil {
		t.Fatalf("expected header error")
	}
}

func TestParseUnderscoreAttrs(t *testing.T) {
	in := "#EXTM3U\n" + `#EXTINF:-1 tvg_id="a.uk" group_title="G",A` + "\nhttp://x\n"
	entries, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if entries[0].TVGID != "a.uk" || entries[0].Group != "G" {
		t.Fatalf("underscore attrs: %+v", entries[0])
	}
}

func TestSetAttr(t *testing.T) {
	line := `#EXTINF:-1 tvg-id="old.id" group-title="UK",BBC One`
	got := SetAttr(line, "tvg-id", "bbcone.uk")
	if !strings.Contains(got, `tvg-id="bbcone.uk"`) || strings.Contains(got, "old.id") {
		t.Fatalf("replace: %q", got)
	}

	line = `#EXTINF:-1 group-title="UK",BBC One`
	got = SetAttr(line, "tvg-id", "bbcone.uk")
	if got != `#EXTINF:-1 group-title="UK" tvg-id="bbcone.uk",BBC One` {
		t.Fatalf("insert: %q", got)
	}

	// Blank value never blanks an existing id.
	line = `#EXTINF:-1 tvg-id="keep.me",X`
	if got := SetAttr(line, "tvg-id", ""); got != line {
		t.Fatalf("blank val changed line: %q", got)
	}
}

func TestWriteRoundTrip(t *testing.T) {
	entries, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var buf bytes.Buffer
	if err := Write(&buf, entries); err != nil {
		t.Fatalf("Write: %v", err)
	}
	again, err := Parse(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if len(again) != len(entries) || again[0].TVGID != entries[0].TVGID {
		t.Fatalf("round trip mismatch: %+v", again)
	}
}

func TestWriteSkipsEmptyURLAndDedupsProps(t *testing.T) {
	entries := []Entry{
		{Name: "No URL"},
		{Raw: "#EXTINF:-1,Dup", Name: "Dup", URL: "http://x",
			Props: []string{"#KODIPROP:a=1", "#KODIPROP:a=1", "#KODIPROP:b=2"}},
	}
	var buf bytes.Buffer
	if err := Write(&buf, entries); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "No URL") {
		t.Fatalf("entry without URL emitted:\n%s", out)
	}
	if strings.Count(out, "#KODIPROP:a=1") != 1 {
		t.Fatalf("props not deduped:\n%s", out)
	}
}

func TestIdentityKey(t *testing.T) {
	if IdentityKey("BBC One", "x", "u") != "bbc one" {
		t.Fatalf("name should win")
	}
	if IdentityKey("", "ID.UK", "u") != "id.uk" {
		t.Fatalf("id fallback")
	}
	if IdentityKey("", "", "HTTP://U") != "http://u" {
		t.Fatalf("url fallback")
	}
	if IdentityKey("", "", "") != "" {
		t.Fatalf("all empty")
	}
}
