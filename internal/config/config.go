// Package config builds the runtime configuration from the environment.
// Call LoadEnvFile(".env") before Load to pick up a local env file.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// MasterSource is one configured master playlist, in priority order.
type MasterSource struct {
	Label    string
	Path     string // file path or URL
	Priority int
}

// Config holds every knob of a run. No globals; pass it down.
type Config struct {
	// Paths
	M3UDir string // playlists, favourites CSV, alias CSV
	EPGDir string // downloaded and generated guide documents
	LogDir string // trace logs and reports

	// Input file names (resolved against the dirs above)
	FavouritesFile string
	AliasFile      string

	// Output file names
	PlaylistFile   string
	GuideFile      string
	AuditFile      string
	UnmatchedFile  string
	TraceFile      string
	CountryMapFile string
	AuditDBFile    string

	// Matching
	MatchThreshold float64 // primary acceptance bar
	GuideThreshold float64 // secondary-guide acceptance bar
	FuzzyThreshold float64 // fuzzy keep-list similarity bar
	SuffixSwap     bool
	SlugGuess      bool
	MasterMerge    bool

	// Masters, guide sources
	Masters     []MasterSource
	Countries   []string
	EPGTemplate string // URL template with {cc}
	FetchRate   float64 // requests per second per upstream host

	// Grabber
	GrabberCommand string
	GrabberArgs    []string

	// Serve / refresh
	ListenAddr string
	CronSpec   string

	// Logging
	LogLevel string
	Timeout  time.Duration
}

// Load reads config from environment with defaults suited to a
// single-user install under ./data.
func Load() *Config {
	c := &Config{
		M3UDir:         getEnv("CHANLINK_M3U_DIR", "./data/m3u"),
		EPGDir:         getEnv("CHANLINK_EPG_DIR", "./data/epg"),
		LogDir:         getEnv("CHANLINK_LOG_DIR", "./data/log"),
		FavouritesFile: getEnv("CHANLINK_FAVOURITES_FILE", "favourites.csv"),
		AliasFile:      getEnv("CHANLINK_ALIAS_FILE", "tvg_aliases.csv"),
		PlaylistFile:   getEnv("CHANLINK_PLAYLIST_FILE", "favourites.m3u"),
		GuideFile:      getEnv("CHANLINK_GUIDE_FILE", "guide.xml.gz"),
		AuditFile:      getEnv("CHANLINK_AUDIT_FILE", "match_report.csv"),
		UnmatchedFile:  getEnv("CHANLINK_UNMATCHED_FILE", "unmatched.csv"),
		TraceFile:      getEnv("CHANLINK_TRACE_FILE", "match_trace.log"),
		CountryMapFile: getEnv("CHANLINK_CC_MAP_FILE", "channel_cc_map.json"),
		AuditDBFile:    getEnv("CHANLINK_AUDIT_DB", "audit.db"),
		MatchThreshold: getEnvFloat("CHANLINK_MATCH_THRESHOLD", 0.90),
		GuideThreshold: getEnvFloat("CHANLINK_GUIDE_THRESHOLD", 0.60),
		FuzzyThreshold: getEnvFloat("CHANLINK_FUZZY_THRESHOLD", 0.86),
		SuffixSwap:     getEnvBool("CHANLINK_SUFFIX_SWAP", true),
		SlugGuess:      getEnvBool("CHANLINK_SLUG_GUESS", true),
		MasterMerge:    getEnvBool("CHANLINK_MASTER_MERGE", true),
		Masters:        parseMasters(os.Getenv("CHANLINK_MASTERS")),
		Countries:      splitList(getEnv("CHANLINK_COUNTRIES", "uk")),
		EPGTemplate:    os.Getenv("CHANLINK_EPG_TEMPLATE"),
		FetchRate:      getEnvFloat("CHANLINK_FETCH_RATE", 1),
		GrabberCommand: getEnv("CHANLINK_GRABBER", "tv_grab_zz_sdjson"),
		GrabberArgs:    splitList(os.Getenv("CHANLINK_GRABBER_ARGS")),
		ListenAddr:     getEnv("CHANLINK_LISTEN", ":8080"),
		CronSpec:       os.Getenv("CHANLINK_CRON"),
		LogLevel:       getEnv("CHANLINK_LOG_LEVEL", "info"),
		Timeout:        getEnvDuration("CHANLINK_HTTP_TIMEOUT", 45*time.Second),
	}
	if c.MatchThreshold <= 0 || c.MatchThreshold > 1 {
		c.MatchThreshold = 0.90
	}
	if c.GuideThreshold <= 0 || c.GuideThreshold > 1 {
		c.GuideThreshold = 0.60
	}
	if c.FuzzyThreshold <= 0 || c.FuzzyThreshold > 1 {
		c.FuzzyThreshold = 0.86
	}
	if c.FetchRate <= 0 {
		c.FetchRate = 1
	}
	return c
}

// FavouritesPath and friends resolve the configured file names.
func (c *Config) FavouritesPath() string { return filepath.Join(c.M3UDir, c.FavouritesFile) }
func (c *Config) AliasPath() string      { return filepath.Join(c.M3UDir, c.AliasFile) }
func (c *Config) PlaylistPath() string   { return filepath.Join(c.M3UDir, c.PlaylistFile) }
func (c *Config) GuidePath() string      { return filepath.Join(c.EPGDir, c.GuideFile) }
func (c *Config) AuditPath() string      { return filepath.Join(c.LogDir, c.AuditFile) }
func (c *Config) UnmatchedPath() string  { return filepath.Join(c.LogDir, c.UnmatchedFile) }
func (c *Config) TracePath() string      { return filepath.Join(c.LogDir, c.TraceFile) }
func (c *Config) CountryMapPath() string { return filepath.Join(c.M3UDir, c.CountryMapFile) }
func (c *Config) AuditDBPath() string    { return filepath.Join(c.LogDir, c.AuditDBFile) }

// EnsureDirs creates the data directories.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.M3UDir, c.EPGDir, c.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// parseMasters reads "label=path,label2=path2"; a bare path gets a
// label derived from its base name. Order defines priority.
func parseMasters(s string) []MasterSource {
	var out []MasterSource
	for i, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		label, path := "", part
		if eq := strings.Index(part, "="); eq > 0 && !strings.Contains(part[:eq], "/") {
			label, path = strings.TrimSpace(part[:eq]), strings.TrimSpace(part[eq+1:])
		}
		if label == "" {
			base := filepath.Base(path)
			label = strings.TrimSuffix(base, filepath.Ext(base))
		}
		out = append(out, MasterSource{Label: label, Path: path, Priority: i})
	}
	return out
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
