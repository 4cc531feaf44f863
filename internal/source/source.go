// Package source retrieves the documents that carry encoded messages.
//
// A ref is an http(s) URL, a local file path, or "-" for standard input.
// Remote documents pass through an in-process LRU and a file-locked disk
// cache so the browser can list and re-render them offline.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/henri123lemoine/gridmsg/internal/debug"
)

// StdinRef is the ref that reads the document from standard input.
const StdinRef = "-"

// Document is a fetched document body plus where it came from.
type Document struct {
	Ref         string    `json:"ref"`
	URL         string    `json:"url,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	Body        []byte    `json:"body"`
	FetchedAt   time.Time `json:"fetched_at"`

	// FromCache is set when the body was served from a cache.
	FromCache bool `json:"-"`
}

// ErrBodyTooLarge is returned when a document exceeds Options.MaxBodyBytes.
var ErrBodyTooLarge = errors.New("document exceeds size limit")

// StatusError reports a non-200 HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("failed to access document %s: %s", e.URL, e.Status)
}

// Options configures a Fetcher.
type Options struct {
	Client       *http.Client
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int64

	// CacheDir enables the disk cache when non-empty.
	CacheDir string

	// MemoryEntries sizes the in-process cache; zero disables it.
	MemoryEntries int

	// NoCache skips cache lookups. Fetched documents still refresh the caches.
	NoCache bool

	// Stdin is read for StdinRef; defaults to os.Stdin.
	Stdin io.Reader
}

// Fetcher retrieves documents by ref. It is safe for concurrent use.
type Fetcher struct {
	opts   Options
	memory *lru.Cache[string, *Document]
}

// NewFetcher creates a Fetcher.
func NewFetcher(opts Options) (*Fetcher, error) {
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}

	f := &Fetcher{opts: opts}
	if opts.MemoryEntries > 0 {
		cache, err := lru.New[string, *Document](opts.MemoryEntries)
		if err != nil {
			return nil, fmt.Errorf("creating memory cache: %w", err)
		}
		f.memory = cache
	}
	return f, nil
}

// IsRemote reports whether ref is an http or https URL.
func IsRemote(ref string) bool {
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Fetch returns the document named by ref.
func (f *Fetcher) Fetch(ctx context.Context, ref string) (*Document, error) {
	return f.fetch(ctx, ref, f.opts.NoCache)
}

// Refresh fetches ref without consulting the caches. The fetched document
// replaces any cached copy, so later Fetch calls see it.
func (f *Fetcher) Refresh(ctx context.Context, ref string) (*Document, error) {
	return f.fetch(ctx, ref, true)
}

func (f *Fetcher) fetch(ctx context.Context, ref string, skipCache bool) (*Document, error) {
	switch {
	case ref == StdinRef:
		return f.fetchReader(ref, f.opts.Stdin, "")
	case !IsRemote(ref):
		return f.fetchFile(ref)
	}

	if !skipCache {
		if doc := f.cached(ref); doc != nil {
			return doc, nil
		}
	}

	doc, err := f.fetchRemote(ctx, ref)
	if err != nil {
		return nil, err
	}

	if f.memory != nil {
		f.memory.Add(ref, doc)
	}
	if f.opts.CacheDir != "" {
		// A cache write failure must not fail the fetch
		if err := SaveCache(f.opts.CacheDir, doc); err != nil {
			debug.Log("cache save failed for %s: %v", ref, err)
		}
	}
	return doc, nil
}

func (f *Fetcher) cached(ref string) *Document {
	if f.memory != nil {
		if doc, ok := f.memory.Get(ref); ok {
			debug.Log("memory cache hit: %s", ref)
			hit := *doc
			hit.FromCache = true
			return &hit
		}
	}
	if f.opts.CacheDir != "" {
		if doc := LoadCache(f.opts.CacheDir, ref); doc != nil {
			debug.Log("disk cache hit: %s", ref)
			if f.memory != nil {
				f.memory.Add(ref, doc)
			}
			return doc
		}
	}
	return nil
}

// Forget drops ref from the memory and disk caches.
func (f *Fetcher) Forget(ref string) error {
	if f.memory != nil {
		f.memory.Remove(ref)
	}
	if f.opts.CacheDir == "" {
		return nil
	}
	return RemoveCache(f.opts.CacheDir, ref)
}

func (f *Fetcher) fetchRemote(ctx context.Context, ref string) (*Document, error) {
	defer debug.Timed("fetch " + ref)()

	target, err := ResolveURL(ref)
	if err != nil {
		return nil, err
	}

	if f.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if f.opts.UserAgent != "" {
		req.Header.Set("User-Agent", f.opts.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/json;q=0.9,text/plain;q=0.8,*/*;q=0.5")

	resp, err := f.opts.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: target, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := f.readLimited(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", target, err)
	}

	debug.Logw("fetched document", "ref", ref, "url", target, "bytes", len(body))
	return &Document{
		Ref:         ref,
		URL:         target,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		FetchedAt:   time.Now(),
	}, nil
}

func (f *Fetcher) fetchFile(path string) (*Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return f.fetchReader(path, file, contentTypeForPath(path))
}

func (f *Fetcher) fetchReader(ref string, r io.Reader, contentType string) (*Document, error) {
	body, err := f.readLimited(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", ref, err)
	}
	return &Document{
		Ref:         ref,
		ContentType: contentType,
		Body:        body,
		FetchedAt:   time.Now(),
	}, nil
}

// readLimited reads r fully, failing once more than MaxBodyBytes arrive.
func (f *Fetcher) readLimited(r io.Reader) ([]byte, error) {
	if f.opts.MaxBodyBytes <= 0 {
		return io.ReadAll(r)
	}
	body, err := io.ReadAll(io.LimitReader(r, f.opts.MaxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > f.opts.MaxBodyBytes {
		return nil, fmt.Errorf("%w (%d bytes)", ErrBodyTooLarge, f.opts.MaxBodyBytes)
	}
	return body, nil
}

func contentTypeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return "text/html"
	case ".json":
		return "application/json"
	case ".txt":
		return "text/plain"
	}
	return ""
}

// docsPath matches Google Docs document paths: /document/d/<id>/<rest>.
var docsPath = regexp.MustCompile(`^/document/(?:u/\d+/)?d/([A-Za-z0-9_-]+)(?:/(.*))?$`)

// ResolveURL maps a Google Docs editor or viewer URL to its HTML export URL.
// Published (/pub) URLs and every other URL are returned unchanged.
func ResolveURL(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid document URL %q: %w", ref, err)
	}
	if u.Host != "docs.google.com" {
		return ref, nil
	}

	m := docsPath.FindStringSubmatch(u.Path)
	if m == nil || m[1] == "e" {
		// /document/d/e/<id>/pub is already the published HTML
		return ref, nil
	}
	rest := m[2]
	if rest == "pub" || strings.HasPrefix(rest, "pub/") || strings.HasPrefix(rest, "export") {
		return ref, nil
	}

	return "https://docs.google.com/document/d/" + m[1] + "/export?format=html", nil
}
