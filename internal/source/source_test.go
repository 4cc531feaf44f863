package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

func newTestServer(t *testing.T, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{
			"https://docs.google.com/document/d/abc_DEF-123/edit?usp=sharing",
			"https://docs.google.com/document/d/abc_DEF-123/export?format=html",
		},
		{
			"https://docs.google.com/document/d/abc123/view",
			"https://docs.google.com/document/d/abc123/export?format=html",
		},
		{
			"https://docs.google.com/document/u/0/d/abc123/edit",
			"https://docs.google.com/document/d/abc123/export?format=html",
		},
		{
			"https://docs.google.com/document/d/abc123",
			"https://docs.google.com/document/d/abc123/export?format=html",
		},
		{
			"https://docs.google.com/document/d/e/2PACX-1vQ/pub",
			"https://docs.google.com/document/d/e/2PACX-1vQ/pub",
		},
		{
			"https://docs.google.com/document/d/abc123/pub",
			"https://docs.google.com/document/d/abc123/pub",
		},
		{
			"https://docs.google.com/document/d/abc123/export?format=txt",
			"https://docs.google.com/document/d/abc123/export?format=txt",
		},
		{
			"https://example.com/document/d/abc123/edit",
			"https://example.com/document/d/abc123/edit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ResolveURL(tt.in)
			if err != nil {
				t.Fatalf("ResolveURL() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsRemote(t *testing.T) {
	tests := map[string]bool{
		"https://example.com/doc": true,
		"http://localhost:8080/x": true,
		"ftp://example.com/doc":   false,
		"doc.html":                false,
		"/tmp/doc.html":           false,
		"-":                       false,
		"https://":                false,
	}
	for ref, want := range tests {
		if got := IsRemote(ref); got != want {
			t.Errorf("IsRemote(%q) = %v, want %v", ref, got, want)
		}
	}
}

func TestFetchRemote(t *testing.T) {
	srv, hits := newTestServer(t, "<table></table>")

	f, err := NewFetcher(Options{UserAgent: "test-agent"})
	if err != nil {
		t.Fatalf("NewFetcher() error: %v", err)
	}

	doc, err := f.Fetch(context.Background(), srv.URL+"/doc")
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if string(doc.Body) != "<table></table>" {
		t.Errorf("Body = %q", doc.Body)
	}
	if !strings.HasPrefix(doc.ContentType, "text/html") {
		t.Errorf("ContentType = %q", doc.ContentType)
	}
	if doc.FromCache {
		t.Error("first fetch should not come from cache")
	}
	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1", hits.Load())
	}
}

func TestFetchStatusError(t *testing.T) {
	srv, _ := newTestServer(t, "")

	f, _ := NewFetcher(Options{})
	_, err := f.Fetch(context.Background(), srv.URL+"/missing")

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Fetch() error = %v, want *StatusError", err)
	}
	if statusErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", statusErr.StatusCode)
	}
}

func TestFetchBodyLimit(t *testing.T) {
	srv, _ := newTestServer(t, strings.Repeat("x", 100))

	f, _ := NewFetcher(Options{MaxBodyBytes: 10})
	_, err := f.Fetch(context.Background(), srv.URL+"/doc")
	if !errors.Is(err, ErrBodyTooLarge) {
		t.Errorf("Fetch() error = %v, want ErrBodyTooLarge", err)
	}

	f, _ = NewFetcher(Options{MaxBodyBytes: 100})
	if _, err := f.Fetch(context.Background(), srv.URL+"/doc"); err != nil {
		t.Errorf("body exactly at the limit should be accepted: %v", err)
	}
}

func TestFetchMemoryCache(t *testing.T) {
	srv, hits := newTestServer(t, "body")

	f, err := NewFetcher(Options{MemoryEntries: 4})
	if err != nil {
		t.Fatalf("NewFetcher() error: %v", err)
	}
	ref := srv.URL + "/doc"

	if _, err := f.Fetch(context.Background(), ref); err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	doc, err := f.Fetch(context.Background(), ref)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if !doc.FromCache {
		t.Error("second fetch should be served from memory")
	}
	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1", hits.Load())
	}
}

func TestFetchDiskCache(t *testing.T) {
	srv, hits := newTestServer(t, "body")
	dir := t.TempDir()
	ref := srv.URL + "/doc"

	first, _ := NewFetcher(Options{CacheDir: dir})
	if _, err := first.Fetch(context.Background(), ref); err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}

	// A new fetcher, as in a new process, reads the disk cache
	second, _ := NewFetcher(Options{CacheDir: dir})
	doc, err := second.Fetch(context.Background(), ref)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if !doc.FromCache || string(doc.Body) != "body" {
		t.Errorf("Fetch() = %+v, want cached body", doc)
	}
	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1", hits.Load())
	}

	// NoCache goes back to the server
	fresh, _ := NewFetcher(Options{CacheDir: dir, NoCache: true})
	doc, err = fresh.Fetch(context.Background(), ref)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if doc.FromCache {
		t.Error("NoCache fetch should not come from cache")
	}
	if hits.Load() != 2 {
		t.Errorf("server hits = %d, want 2", hits.Load())
	}
}

func TestRefresh(t *testing.T) {
	var body atomic.Value
	body.Store("v1")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body.Load().(string)))
	}))
	defer srv.Close()
	dir := t.TempDir()
	ref := srv.URL + "/doc"

	f, _ := NewFetcher(Options{CacheDir: dir, MemoryEntries: 4})
	if _, err := f.Fetch(context.Background(), ref); err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}

	body.Store("v2")
	doc, err := f.Refresh(context.Background(), ref)
	if err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	if doc.FromCache || string(doc.Body) != "v2" {
		t.Errorf("Refresh() = %q (cached %v), want fresh v2", doc.Body, doc.FromCache)
	}

	// Both caches now hold the refreshed body
	doc, err = f.Fetch(context.Background(), ref)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if !doc.FromCache || string(doc.Body) != "v2" {
		t.Errorf("Fetch() after Refresh = %q (cached %v), want cached v2", doc.Body, doc.FromCache)
	}
	if disk := LoadCache(dir, ref); disk == nil || string(disk.Body) != "v2" {
		t.Errorf("disk cache = %+v, want v2", disk)
	}
}

func TestForget(t *testing.T) {
	srv, hits := newTestServer(t, "body")
	dir := t.TempDir()
	ref := srv.URL + "/doc"

	f, _ := NewFetcher(Options{CacheDir: dir, MemoryEntries: 4})
	if _, err := f.Fetch(context.Background(), ref); err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if err := f.Forget(ref); err != nil {
		t.Fatalf("Forget() error: %v", err)
	}
	if LoadCache(dir, ref) != nil {
		t.Error("disk cache entry should be gone")
	}

	doc, err := f.Fetch(context.Background(), ref)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if doc.FromCache {
		t.Error("Fetch() after Forget should not come from cache")
	}
	if hits.Load() != 2 {
		t.Errorf("server hits = %d, want 2", hits.Load())
	}
}

func TestFetchFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.html")
	if err := os.WriteFile(path, []byte("<tr></tr>"), 0644); err != nil {
		t.Fatal(err)
	}

	f, _ := NewFetcher(Options{})
	doc, err := f.Fetch(context.Background(), path)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if doc.ContentType != "text/html" || string(doc.Body) != "<tr></tr>" {
		t.Errorf("Fetch() = %+v", doc)
	}

	if _, err := f.Fetch(context.Background(), filepath.Join(t.TempDir(), "missing.html")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Fetch(missing) error = %v, want os.ErrNotExist", err)
	}
}

func TestFetchStdin(t *testing.T) {
	f, _ := NewFetcher(Options{Stdin: strings.NewReader("0 a 0\n")})
	doc, err := f.Fetch(context.Background(), StdinRef)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if doc.Ref != StdinRef || string(doc.Body) != "0 a 0\n" {
		t.Errorf("Fetch() = %+v", doc)
	}
}
