package fetcher

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/time/rate"
)

const sampleGuide = `<?xml version="1.0"?><tv><channel id="bbcone.uk"/></tv>`

func gzipped(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write([]byte(s)); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestSourcesFromTemplate(t *testing.T) {
	srcs := SourcesFromTemplate("http://h/epg/{cc}.xml.gz", []string{"UK", " de ", ""})
	if len(srcs) != 2 {
		t.Fatalf("srcs: %+v", srcs)
	}
	if srcs[0].Country != "uk" || srcs[0].URL != "http://h/epg/uk.xml.gz" {
		t.Fatalf("src0: %+v", srcs[0])
	}
	if srcs[1].Country != "de" {
		t.Fatalf("src1: %+v", srcs[1])
	}
}

func TestFetchPlain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleGuide))
	}))
	defer srv.Close()

	dir := t.TempDir()
	f := New(srv.Client(), rate.Inf, nil)
	path, err := f.Fetch(context.Background(), Source{Country: "uk", URL: srv.URL + "/epg.xml"}, dir)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if filepath.Base(path) != "guide_uk.xml" {
		t.Fatalf("path: %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != sampleGuide {
		t.Fatalf("content: %q", data)
	}
}

func TestFetchGzipByURLSuffix(t *testing.T) {
	payload := gzipped(t, sampleGuide)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	dir := t.TempDir()
	f := New(srv.Client(), rate.Inf, nil)
	path, err := f.Fetch(context.Background(), Source{Country: "de", URL: srv.URL + "/guide.xml.gz"}, dir)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != sampleGuide {
		t.Fatalf("content not decompressed: %q", data)
	}
}

func TestFetchRejectsNonHTTPURL(t *testing.T) {
	f := New(nil, rate.Inf, nil)
	if _, err := f.Fetch(context.Background(), Source{Country: "uk", URL: "file:///etc/passwd"}, t.TempDir()); err == nil {
		t.Fatal("file scheme must be rejected")
	}
}

func TestFetchRejectsEmptyDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("   \n"))
	}))
	defer srv.Close()

	f := New(srv.Client(), rate.Inf, nil)
	if _, err := f.Fetch(context.Background(), Source{Country: "uk", URL: srv.URL}, t.TempDir()); err == nil {
		t.Fatal("empty document must not be written")
	}
}

func TestFetchAllFailsWhenNothingFetched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := New(srv.Client(), rate.Inf, nil)
	srcs := SourcesFromTemplate(srv.URL+"/{cc}.xml", []string{"uk", "de"})
	if _, err := f.FetchAll(context.Background(), srcs, t.TempDir(), nil); err == nil {
		t.Fatal("all sources failed, FetchAll must error")
	}
}

func TestFetchAllPartialFailureSucceeds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/uk.xml" {
			w.Write([]byte(sampleGuide))
			return
		}
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := New(srv.Client(), rate.Inf, nil)
	srcs := SourcesFromTemplate(srv.URL+"/{cc}.xml", []string{"uk", "de"})
	results := map[string]bool{}
	paths, err := f.FetchAll(context.Background(), srcs, t.TempDir(), func(src Source, err error) {
		results[src.Country] = err == nil
	})
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("paths: %v", paths)
	}
	// The callback sees every source's outcome, success and failure.
	if len(results) != 2 || !results["uk"] || results["de"] {
		t.Fatalf("callback outcomes: %v", results)
	}
}
