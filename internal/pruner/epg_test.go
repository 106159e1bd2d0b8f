package pruner

import (
	"encoding/xml"
	"strings"
	"testing"

	"github.com/chanlink/chanlink/internal/xmltv"
)

func attrs(pairs ...string) []xml.Attr {
	var out []xml.Attr
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, xml.Attr{Name: xml.Name{Local: pairs[i]}, Value: pairs[i+1]})
	}
	return out
}

func TestFilterEPGKeepsOnlyWantedChannels(t *testing.T) {
	doc := &xmltv.Document{
		Channels: []xmltv.Channel{
			{ID: "bbcone.uk", Attrs: attrs("id", "bbcone.uk")},
			{ID: "dropme.uk", Attrs: attrs("id", "dropme.uk")},
		},
		Programmes: []xmltv.Programme{
			{Channel: "bbcone.uk", Attrs: attrs("start", "20260830060000 +0000", "channel", "bbcone.uk")},
			{Channel: "dropme.uk", Attrs: attrs("start", "20260830060000 +0000", "channel", "dropme.uk")},
		},
	}
	out := FilterEPG([]*xmltv.Document{doc}, map[string]struct{}{"bbcone.uk": {}})
	if len(out.Channels) != 1 || out.Channels[0].ID != "bbcone.uk" {
		t.Fatalf("channels: %+v", out.Channels)
	}
	if len(out.Programmes) != 1 || out.Programmes[0].Channel != "bbcone.uk" {
		t.Fatalf("programmes: %+v", out.Programmes)
	}
}

func TestFilterEPGChannelDedupAcrossDocs(t *testing.T) {
	a := &xmltv.Document{
		Channels: []xmltv.Channel{{ID: "bbcone.uk", Inner: []byte("<display-name>First</display-name>")}},
		Programmes: []xmltv.Programme{
			{Channel: "bbcone.uk", Attrs: attrs("start", "20260830060000 +0000")},
		},
	}
	b := &xmltv.Document{
		Channels: []xmltv.Channel{{ID: "bbcone.uk", Inner: []byte("<display-name>Second</display-name>")}},
		Programmes: []xmltv.Programme{
			{Channel: "bbcone.uk", Attrs: attrs("start", "20260830060000 +0000")},
			{Channel: "bbcone.uk", Attrs: attrs("start", "20260830070000 +0000")},
		},
	}
	out := FilterEPG([]*xmltv.Document{a, b}, map[string]struct{}{"bbcone.uk": {}})
	if len(out.Channels) != 1 || string(out.Channels[0].Inner) != "<display-name>First</display-name>" {
		t.Fatalf("first-seen channel must win: %+v", out.Channels)
	}
	if len(out.Programmes) != 3 {
		t.Fatalf("every programme of a kept channel survives: %+v", out.Programmes)
	}
}

func TestFilterEPGKeepsAllProgrammesForKeptChannel(t *testing.T) {
	// Overlapping guides can carry the same channel and start time with
	// different listings; both entries belong in the output.
	a := &xmltv.Document{
		Channels: []xmltv.Channel{{ID: "bbcone.uk"}},
		Programmes: []xmltv.Programme{
			{Channel: "bbcone.uk", Attrs: attrs("start", "20260830060000 +0000"), Inner: []byte("<title>Breakfast</title>")},
		},
	}
	b := &xmltv.Document{
		Channels: []xmltv.Channel{{ID: "bbcone.uk"}},
		Programmes: []xmltv.Programme{
			{Channel: "bbcone.uk", Attrs: attrs("start", "20260830060000 +0000"), Inner: []byte("<title>Morning News</title>")},
		},
	}
	out := FilterEPG([]*xmltv.Document{a, b}, map[string]struct{}{"bbcone.uk": {}})
	if len(out.Programmes) != 2 {
		t.Fatalf("want both same-start programmes, got %d: %+v", len(out.Programmes), out.Programmes)
	}
	if string(out.Programmes[0].Inner) == string(out.Programmes[1].Inner) {
		t.Fatalf("distinct listings collapsed: %+v", out.Programmes)
	}
}

func TestFilterEPGClosure(t *testing.T) {
	// A kept id with no channel element must not leak dangling
	// programme refs into the output.
	doc := &xmltv.Document{
		Programmes: []xmltv.Programme{
			{Channel: "ghost.uk", Attrs: attrs("start", "20260830060000 +0000")},
		},
	}
	out := FilterEPG([]*xmltv.Document{doc}, map[string]struct{}{"ghost.uk": {}})
	if len(out.Programmes) != 0 {
		t.Fatalf("dangling programme kept: %+v", out.Programmes)
	}
}

func TestFilterEPGByNames(t *testing.T) {
	doc := &xmltv.Document{
		Channels: []xmltv.Channel{
			{ID: "daserste.de", DisplayNames: []string{"Das Erste"}},
			{ID: "zdf.de", DisplayNames: []string{"ZDF HD"}},
			{ID: "98765", DisplayNames: []string{"Numeric Channel"}},
			{ID: "keep.by.id", DisplayNames: []string{"Whatever"}},
			{ID: "shopping.de", DisplayNames: []string{"Shopping 24"}},
		},
		Programmes: []xmltv.Programme{
			{Channel: "daserste.de"},
			{Channel: "shopping.de"},
		},
	}
	keepNames := []string{"Das Erste", "ZDF"}
	keepIDs := map[string]struct{}{"keep.by.id": {}}
	out, decisions := FilterEPGByNames(doc, keepNames, keepIDs, DefaultFuzzyThreshold)

	byID := map[string]FuzzyDecision{}
	for _, d := range decisions {
		byID[d.ChannelID] = d
	}
	if byID["daserste.de"].Action != ActionKeptName {
		t.Fatalf("daserste: %+v", byID["daserste.de"])
	}
	// "zdf hd" vs "zdf" after normalization drops the quality token, so
	// the names collapse to an exact match.
	if byID["zdf.de"].Action != ActionKeptName {
		t.Fatalf("zdf: %+v", byID["zdf.de"])
	}
	if byID["98765"].Action != ActionKeptNumeric {
		t.Fatalf("numeric: %+v", byID["98765"])
	}
	if byID["keep.by.id"].Action != ActionKeptID {
		t.Fatalf("keep.by.id: %+v", byID["keep.by.id"])
	}
	if byID["shopping.de"].Action != ActionDropped {
		t.Fatalf("shopping: %+v", byID["shopping.de"])
	}

	if len(out.Channels) != 4 {
		t.Fatalf("channels: %+v", out.Channels)
	}
	if len(out.Programmes) != 1 || out.Programmes[0].Channel != "daserste.de" {
		t.Fatalf("programmes: %+v", out.Programmes)
	}
}

func TestWriteFuzzyDecisionsCSV(t *testing.T) {
	decisions := []FuzzyDecision{
		{ChannelID: "keep.by.id", Action: ActionKeptID},
		{ChannelID: "skynews.uk", Action: ActionKeptFuzzy, MatchedName: "Sky News", Score: 0.889},
		{ChannelID: "shopping.de", Action: ActionDropped},
	}
	var buf strings.Builder
	if err := WriteFuzzyDecisionsCSV(&buf, decisions); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != "channel_id,action,matched_name,score" {
		t.Fatalf("header: %q", lines[0])
	}
	if lines[2] != "skynews.uk,KEPT_FUZZY,Sky News,0.889" {
		t.Fatalf("fuzzy row: %q", lines[2])
	}
	// Score stays blank unless the match was fuzzy.
	if lines[1] != "keep.by.id,KEPT_ID,," {
		t.Fatalf("id row: %q", lines[1])
	}
}

func TestFuzzyThresholdBoundary(t *testing.T) {
	doc := &xmltv.Document{
		Channels: []xmltv.Channel{
			{ID: "skynews.uk", DisplayNames: []string{"Sky Newss"}},
		},
	}
	// "sky newss" vs "sky news": distance 1 over 9 runes = 0.889, above
	// the 0.86 bar.
	out, decisions := FilterEPGByNames(doc, []string{"Sky News"}, nil, DefaultFuzzyThreshold)
	if decisions[0].Action != ActionKeptFuzzy {
		t.Fatalf("decision: %+v", decisions[0])
	}
	if decisions[0].Score != 0.889 {
		t.Fatalf("score=%v", decisions[0].Score)
	}
	if len(out.Channels) != 1 {
		t.Fatalf("channels: %+v", out.Channels)
	}

	// A distant name stays out.
	doc2 := &xmltv.Document{Channels: []xmltv.Channel{{ID: "x.uk", DisplayNames: []string{"Completely Different"}}}}
	_, decisions = FilterEPGByNames(doc2, []string{"Sky News"}, nil, DefaultFuzzyThreshold)
	if decisions[0].Action != ActionDropped {
		t.Fatalf("decision: %+v", decisions[0])
	}
}
