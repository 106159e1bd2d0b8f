package xmltv

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sample = `<?xml version="1.0" encoding="utf-8"?>
<tv generator-info-name="test">
<channel id="bbcone.uk"><display-name>BBC One</display-name><display-name>BBC 1</display-name><icon src="http://x/bbc.png"/></channel>
<channel id="itv1.uk"><display-name>ITV1</display-name></channel>
<programme start="20260830060000 +0000" stop="20260830070000 +0000" channel="bbcone.uk"><title>Breakfast</title></programme>
<programme start="20260830060000 +0000" stop="20260830070000 +0000" channel="itv1.uk"><title>Good Morning</title></programme>
</tv>`

func TestParse(t *testing.T) {
	doc, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(doc.Channels) != 2 || len(doc.Programmes) != 2 {
		t.Fatalf("channels=%d programmes=%d", len(doc.Channels), len(doc.Programmes))
	}
	ch := doc.Channels[0]
	if ch.ID != "bbcone.uk" || len(ch.DisplayNames) != 2 {
		t.Fatalf("channel: %+v", ch)
	}
	if !strings.Contains(string(ch.Inner), "icon") {
		t.Fatalf("inner xml lost: %s", ch.Inner)
	}
	if doc.Programmes[1].Channel != "itv1.uk" {
		t.Fatalf("programme channel: %+v", doc.Programmes[1])
	}
	if got := attrValue(doc.RootAttrs, "generator-info-name"); got != "test" {
		t.Fatalf("root attrs: %v", doc.RootAttrs)
	}
}

func TestParseSkipsBlankChannelID(t *testing.T) {
	doc, err := Parse(strings.NewReader(`<tv><channel id=""><display-name>X</display-name></channel></tv>`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(doc.Channels) != 0 {
		t.Fatalf("blank id kept: %+v", doc.Channels)
	}
}

func TestWriteRoundTrip(t *testing.T) {
	doc, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var buf bytes.Buffer
	if err := doc.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	again, err := Parse(&buf)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if len(again.Channels) != 2 || len(again.Programmes) != 2 {
		t.Fatalf("round trip: %+v", again)
	}
	if again.Channels[0].DisplayNames[0] != "BBC One" {
		t.Fatalf("display names lost: %+v", again.Channels[0])
	}
	if !strings.Contains(string(again.Programmes[0].Inner), "Breakfast") {
		t.Fatalf("programme content lost: %s", again.Programmes[0].Inner)
	}
}

func TestReadFileGzip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "epg.xml.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	gz := gzip.NewWriter(f)
	gz.Write([]byte(sample))
	gz.Close()
	f.Close()

	doc, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(doc.Channels) != 2 || doc.SourcePath != path {
		t.Fatalf("gz read: %+v", doc)
	}
}

func TestWriteFileGzipRoundTrip(t *testing.T) {
	doc, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	path := filepath.Join(t.TempDir(), "out.xml.gz")
	if err := doc.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	again, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(again.Channels) != 2 {
		t.Fatalf("gz round trip: %+v", again)
	}
}

func TestParseMalformed(t *testing.T) {
	if _, err := Parse(strings.NewReader("<tv><channel id=\"x\">")); err == nil {
		t.Fatalf("expected parse error")
	}
}
