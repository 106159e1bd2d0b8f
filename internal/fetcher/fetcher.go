// Package fetcher downloads per-country guide documents over HTTP.
//
// Responses are decoded from gzip or brotli before hitting disk, each
// upstream host is rate limited, and a run where no source at all could
// be fetched is an error: an empty guide on disk must never look like a
// successful refresh.
package fetcher

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
	"golang.org/x/time/rate"

	"github.com/chanlink/chanlink/internal/httpclient"
	"github.com/chanlink/chanlink/internal/safeurl"
)

// Source is one downloadable guide document.
type Source struct {
	Country string // two-letter code, lowercased
	URL     string
}

// SourcesFromTemplate expands a URL template containing {cc} into one
// source per country code.
func SourcesFromTemplate(template string, countries []string) []Source {
	out := make([]Source, 0, len(countries))
	for _, cc := range countries {
		cc = strings.ToLower(strings.TrimSpace(cc))
		if cc == "" {
			continue
		}
		out = append(out, Source{Country: cc, URL: strings.ReplaceAll(template, "{cc}", cc)})
	}
	return out
}

// Fetcher downloads guide sources with per-host politeness.
type Fetcher struct {
	client *http.Client
	policy httpclient.RetryPolicy
	log    *slog.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	perHost  rate.Limit
	burst    int
}

// New builds a Fetcher. client may be nil for the shared default;
// perHost caps request rate against one upstream host.
func New(client *http.Client, perHost rate.Limit, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = httpclient.Default()
	}
	if perHost <= 0 {
		perHost = rate.Limit(1)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client:   client,
		policy:   httpclient.DefaultRetryPolicy,
		log:      logger,
		limiters: map[string]*rate.Limiter{},
		perHost:  perHost,
		burst:    1,
	}
}

func (f *Fetcher) limiter(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.limiters[host]
	if !ok {
		l = rate.NewLimiter(f.perHost, f.burst)
		f.limiters[host] = l
	}
	return l
}

// Fetch downloads one source into destDir as guide_<cc>.xml and returns
// the written path.
func (f *Fetcher) Fetch(ctx context.Context, src Source, destDir string) (string, error) {
	if !safeurl.IsHTTPOrHTTPS(src.URL) {
		return "", fmt.Errorf("fetch %s: not an http(s) url", src.URL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept-Encoding", "gzip, br")

	if err := f.limiter(req.URL.Host).Wait(ctx); err != nil {
		return "", err
	}
	resp, err := httpclient.DoWithRetry(ctx, f.client, req, f.policy)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", src.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", src.URL, resp.StatusCode)
	}

	body, err := decodeBody(resp, src.URL)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", src.URL, err)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", src.URL, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return "", fmt.Errorf("fetch %s: empty document", src.URL)
	}

	path := filepath.Join(destDir, "guide_"+src.Country+".xml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	f.log.Info("guide fetched", "country", src.Country, "bytes", len(data), "path", path)
	return path, nil
}

// FetchAll downloads every source, logging failures and continuing.
// onResult, when non-nil, observes each source's outcome. FetchAll
// fails outright when not a single source could be fetched.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source, destDir string, onResult func(Source, error)) ([]string, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("fetch: no guide sources configured")
	}
	var paths []string
	for _, src := range sources {
		path, err := f.Fetch(ctx, src, destDir)
		if onResult != nil {
			onResult(src, err)
		}
		if err != nil {
			f.log.Warn("guide fetch failed", "country", src.Country, "err", err)
			continue
		}
		paths = append(paths, path)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("fetch: all %d guide sources failed", len(sources))
	}
	return paths, nil
}

// decodeBody unwraps the response content encoding; a .gz URL served
// without an encoding header is treated as gzip payload.
func decodeBody(resp *http.Response, url string) (io.Reader, error) {
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "br":
		return brotli.NewReader(resp.Body), nil
	case "gzip":
		return gzip.NewReader(resp.Body)
	}
	if strings.HasSuffix(strings.ToLower(strings.SplitN(url, "?", 2)[0]), ".gz") {
		return gzip.NewReader(resp.Body)
	}
	return resp.Body, nil
}
