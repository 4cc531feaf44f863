package decode

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/henri123lemoine/gridmsg/internal/grid"
	"github.com/henri123lemoine/gridmsg/internal/parse"
	"github.com/henri123lemoine/gridmsg/internal/source"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeFetcher serves documents from memory and tracks concurrent calls.
type fakeFetcher struct {
	docs  map[string]string
	delay time.Duration

	mu       sync.Mutex
	inFlight int
	maxSeen  int
	calls    atomic.Int32
}

func (f *fakeFetcher) Fetch(ctx context.Context, ref string) (*source.Document, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.inFlight++
	f.maxSeen = max(f.maxSeen, f.inFlight)
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	body, ok := f.docs[ref]
	if !ok {
		return nil, fmt.Errorf("no such document")
	}
	return &source.Document{Ref: ref, ContentType: "text/plain", Body: []byte(body)}, nil
}

const letterF = `x-coordinate Character y-coordinate
0 █ 0
0 █ 1
0 █ 2
1 ▀ 1
1 ▀ 2
2 ▀ 1
2 ▀ 2
3 ▀ 2
`

func TestDecode(t *testing.T) {
	f := &fakeFetcher{docs: map[string]string{"f": letterF}}
	d := New(f, Options{})

	res, err := d.Decode(context.Background(), "f")
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if diff := cmp.Diff([]string{"█   ", "█▀▀ ", "█▀▀▀"}, res.Rows); diff != "" {
		t.Errorf("Decode() rows mismatch (-want +got):\n%s", diff)
	}
	if res.Width != 4 || res.Height != 3 || res.Triples != 8 {
		t.Errorf("Decode() = %dx%d from %d triples, want 4x3 from 8", res.Width, res.Height, res.Triples)
	}
	if res.Empty() {
		t.Error("Empty() should be false")
	}
}

// refreshingFetcher serves cached bodies from Fetch and live ones from Refresh.
type refreshingFetcher struct {
	cached, live string
}

func (f *refreshingFetcher) Fetch(ctx context.Context, ref string) (*source.Document, error) {
	return &source.Document{Ref: ref, ContentType: "text/plain", Body: []byte(f.cached), FromCache: true}, nil
}

func (f *refreshingFetcher) Refresh(ctx context.Context, ref string) (*source.Document, error) {
	return &source.Document{Ref: ref, ContentType: "text/plain", Body: []byte(f.live)}, nil
}

func TestRefresh(t *testing.T) {
	d := New(&refreshingFetcher{cached: "0 a 0\n", live: "0 b 0\n"}, Options{})

	res, err := d.Refresh(context.Background(), "doc")
	if err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	if res.FromCache || res.Rows[0] != "b" {
		t.Errorf("Refresh() = %q (cached %v), want live body", res.Rows, res.FromCache)
	}

	// Fetchers without Refresh fall back to Fetch
	res, err = New(&fakeFetcher{docs: map[string]string{"f": letterF}}, Options{}).Refresh(context.Background(), "f")
	if err != nil {
		t.Fatalf("Refresh() fallback error: %v", err)
	}
	if res.Width != 4 {
		t.Errorf("Refresh() fallback width = %d, want 4", res.Width)
	}
}

func TestDecodeEmptyDocument(t *testing.T) {
	f := &fakeFetcher{docs: map[string]string{"empty": "x-coordinate Character y-coordinate\n"}}
	res, err := New(f, Options{}).Decode(context.Background(), "empty")
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if !res.Empty() || res.Rows == nil {
		t.Errorf("Decode() = %+v, want empty non-nil rows", res)
	}
}

func TestDecodeErrors(t *testing.T) {
	f := &fakeFetcher{docs: map[string]string{
		"negative": "-1 a 0\n",
		"big":      "99 a 99\n",
		"strict":   "0 a 0\nx a 1\n",
	}}

	tests := []struct {
		ref  string
		opts Options
		want error
	}{
		{"negative", Options{}, grid.ErrInvalidCoordinate},
		{"big", Options{MaxCells: 100}, grid.ErrGridTooLarge},
		{"strict", Options{Parse: parse.Options{Strict: true}}, grid.ErrInvalidCoordinate},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			_, err := New(f, tt.opts).Decode(context.Background(), tt.ref)
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode() error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := New(f, Options{}).Decode(context.Background(), "missing"); err == nil {
		t.Error("Decode() of unknown ref should fail")
	}
}

func TestDecodeAllOrderAndLimit(t *testing.T) {
	docs := map[string]string{}
	var refs []string
	for i := 0; i < 12; i++ {
		ref := fmt.Sprintf("doc-%d", i)
		docs[ref] = fmt.Sprintf("%d # 0\n", i)
		refs = append(refs, ref)
	}
	f := &fakeFetcher{docs: docs, delay: 5 * time.Millisecond}

	results, err := New(f, Options{Concurrency: 3}).DecodeAll(context.Background(), refs)
	if err != nil {
		t.Fatalf("DecodeAll() error: %v", err)
	}
	if len(results) != len(refs) {
		t.Fatalf("DecodeAll() returned %d results, want %d", len(results), len(refs))
	}
	for i, res := range results {
		if res.Ref != refs[i] {
			t.Errorf("result %d is %s, want %s", i, res.Ref, refs[i])
		}
		if res.Width != i+1 {
			t.Errorf("result %d width = %d, want %d", i, res.Width, i+1)
		}
	}
	if f.maxSeen > 3 {
		t.Errorf("saw %d concurrent fetches, limit is 3", f.maxSeen)
	}
}

func TestDecodeAllFailFast(t *testing.T) {
	f := &fakeFetcher{docs: map[string]string{"ok": "0 a 0\n"}}

	_, err := New(f, Options{Concurrency: 2}).DecodeAll(context.Background(), []string{"ok", "missing", "ok"})
	if err == nil {
		t.Fatal("DecodeAll() should fail when a ref fails")
	}
}

func TestDecodeAllKeepGoing(t *testing.T) {
	f := &fakeFetcher{docs: map[string]string{"ok": "0 a 0\n", "bad": "0 ab 0\n"}}

	results, err := New(f, Options{Concurrency: 2, KeepGoing: true}).DecodeAll(context.Background(), []string{"ok", "bad", "missing"})
	if err != nil {
		t.Fatalf("DecodeAll() error: %v", err)
	}
	if results[0].Err != nil || results[0].Rows[0] != "a" {
		t.Errorf("results[0] = %+v", results[0])
	}
	if !errors.Is(results[1].Err, grid.ErrInvalidCharacter) {
		t.Errorf("results[1].Err = %v, want ErrInvalidCharacter", results[1].Err)
	}
	if results[2].Err == nil || results[2].Empty() {
		t.Errorf("results[2] = %+v, want an error", results[2])
	}
}

func TestDecodeFromFiles(t *testing.T) {
	dir := t.TempDir()
	html := `<table><tr><td>x-coordinate</td><td>Character</td><td>y-coordinate</td></tr>
<tr><td>1</td><td>█</td><td>1</td></tr></table>`
	path := filepath.Join(dir, "doc.html")
	if err := os.WriteFile(path, []byte(html), 0644); err != nil {
		t.Fatal(err)
	}

	fetcher, err := source.NewFetcher(source.Options{})
	if err != nil {
		t.Fatalf("NewFetcher() error: %v", err)
	}
	res, err := New(fetcher, Options{}).Decode(context.Background(), path)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if diff := cmp.Diff([]string{"  ", " █"}, res.Rows); diff != "" {
		t.Errorf("Decode() rows mismatch (-want +got):\n%s", diff)
	}
}
