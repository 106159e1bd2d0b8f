package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	os.Clearenv()
	c := Load()
	if c.MatchThreshold != 0.90 || c.GuideThreshold != 0.60 || c.FuzzyThreshold != 0.86 {
		t.Errorf("thresholds: %v %v %v", c.MatchThreshold, c.GuideThreshold, c.FuzzyThreshold)
	}
	if !c.SuffixSwap || !c.SlugGuess || !c.MasterMerge {
		t.Error("strategy toggles should default on")
	}
	if len(c.Countries) != 1 || c.Countries[0] != "uk" {
		t.Errorf("Countries: %v", c.Countries)
	}
	if c.FavouritesFile != "favourites.csv" || c.GuideFile != "guide.xml.gz" {
		t.Errorf("file names: %q %q", c.FavouritesFile, c.GuideFile)
	}
	if c.FetchRate != 1 {
		t.Errorf("FetchRate: %v", c.FetchRate)
	}
}

func TestLoadOverrides(t *testing.T) {
	os.Clearenv()
	os.Setenv("CHANLINK_MATCH_THRESHOLD", "0.6")
	os.Setenv("CHANLINK_SUFFIX_SWAP", "no")
	os.Setenv("CHANLINK_COUNTRIES", "uk, de ,us")
	c := Load()
	if c.MatchThreshold != 0.6 {
		t.Errorf("MatchThreshold: %v", c.MatchThreshold)
	}
	if c.SuffixSwap {
		t.Error("SuffixSwap should be off")
	}
	if len(c.Countries) != 3 || c.Countries[1] != "de" {
		t.Errorf("Countries: %v", c.Countries)
	}
}

func TestLoadRejectsBadThreshold(t *testing.T) {
	os.Clearenv()
	os.Setenv("CHANLINK_MATCH_THRESHOLD", "7")
	c := Load()
	if c.MatchThreshold != 0.90 {
		t.Errorf("out-of-range threshold must fall back: %v", c.MatchThreshold)
	}
}

func TestParseMasters(t *testing.T) {
	ms := parseMasters("providerA=/data/a.m3u, /data/master_b.m3u ,b=http://host/list.m3u")
	if len(ms) != 3 {
		t.Fatalf("masters: %+v", ms)
	}
	if ms[0].Label != "providerA" || ms[0].Path != "/data/a.m3u" || ms[0].Priority != 0 {
		t.Errorf("m0: %+v", ms[0])
	}
	if ms[1].Label != "master_b" || ms[1].Priority != 1 {
		t.Errorf("bare path label: %+v", ms[1])
	}
	if ms[2].Label != "b" || ms[2].Path != "http://host/list.m3u" {
		t.Errorf("m2: %+v", ms[2])
	}
}

func TestPaths(t *testing.T) {
	os.Clearenv()
	os.Setenv("CHANLINK_M3U_DIR", "/data/m3u")
	os.Setenv("CHANLINK_LOG_DIR", "/data/log")
	c := Load()
	if got := c.FavouritesPath(); got != filepath.Join("/data/m3u", "favourites.csv") {
		t.Errorf("FavouritesPath: %q", got)
	}
	if got := c.TracePath(); got != filepath.Join("/data/log", "match_trace.log") {
		t.Errorf("TracePath: %q", got)
	}
}
