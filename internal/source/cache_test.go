package source

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	doc := &Document{
		Ref:         "https://example.com/a",
		URL:         "https://example.com/a",
		ContentType: "text/html",
		Body:        []byte("<table></table>"),
		FetchedAt:   time.Now().Round(time.Second),
	}

	if got := LoadCache(dir, doc.Ref); got != nil {
		t.Fatalf("LoadCache() before save = %+v, want nil", got)
	}
	if err := SaveCache(dir, doc); err != nil {
		t.Fatalf("SaveCache() error: %v", err)
	}

	got := LoadCache(dir, doc.Ref)
	if got == nil {
		t.Fatal("LoadCache() returned nil after save")
	}
	if !got.FromCache || string(got.Body) != string(doc.Body) || !got.FetchedAt.Equal(doc.FetchedAt) {
		t.Errorf("LoadCache() = %+v", got)
	}

	// No temp file left behind
	if _, err := os.Stat(cachePath(dir, doc.Ref) + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should be renamed away")
	}
}

func TestLoadCacheRejectsMismatchedRef(t *testing.T) {
	dir := t.TempDir()
	doc := &Document{Ref: "https://example.com/a", Body: []byte("x")}
	if err := SaveCache(dir, doc); err != nil {
		t.Fatal(err)
	}

	// Move the entry to where another ref would look for it
	other := "https://example.com/b"
	if err := os.Rename(cachePath(dir, doc.Ref), cachePath(dir, other)); err != nil {
		t.Fatal(err)
	}
	if got := LoadCache(dir, other); got != nil {
		t.Errorf("LoadCache() = %+v, want nil for mismatched ref", got)
	}
}

func TestListAndClearCache(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	docs := []*Document{
		{Ref: "https://example.com/old", FetchedAt: now.Add(-time.Hour)},
		{Ref: "https://example.com/new", FetchedAt: now},
		{Ref: "https://example.com/mid", FetchedAt: now.Add(-time.Minute)},
	}
	for _, d := range docs {
		if err := SaveCache(dir, d); err != nil {
			t.Fatal(err)
		}
	}
	// Unrelated files are ignored
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0600); err != nil {
		t.Fatal(err)
	}

	list, err := ListCache(dir)
	if err != nil {
		t.Fatalf("ListCache() error: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("ListCache() returned %d docs, want 3", len(list))
	}
	order := []string{list[0].Ref, list[1].Ref, list[2].Ref}
	want := []string{"https://example.com/new", "https://example.com/mid", "https://example.com/old"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("ListCache() order = %v, want %v", order, want)
		}
	}

	if err := RemoveCache(dir, "https://example.com/mid"); err != nil {
		t.Fatalf("RemoveCache() error: %v", err)
	}
	if err := RemoveCache(dir, "https://example.com/never-cached"); err != nil {
		t.Errorf("RemoveCache() of unknown ref error: %v", err)
	}

	n, err := ClearCache(dir)
	if err != nil {
		t.Fatalf("ClearCache() error: %v", err)
	}
	if n != 2 {
		t.Errorf("ClearCache() removed %d, want 2", n)
	}
	list, _ = ListCache(dir)
	if len(list) != 0 {
		t.Errorf("ListCache() after clear = %d docs", len(list))
	}
}

func TestListCacheMissingDir(t *testing.T) {
	list, err := ListCache(filepath.Join(t.TempDir(), "nope"))
	if err != nil || len(list) != 0 {
		t.Errorf("ListCache() = %v, %v; want empty, nil", list, err)
	}
}

func TestRemoveCacheKeepsLockFile(t *testing.T) {
	dir := t.TempDir()
	doc := &Document{Ref: "https://example.com/a", Body: []byte("x")}
	if err := SaveCache(dir, doc); err != nil {
		t.Fatal(err)
	}
	lockPath := cachePath(dir, doc.Ref) + ".lock"

	if err := RemoveCache(dir, doc.Ref); err != nil {
		t.Fatalf("RemoveCache() error: %v", err)
	}
	if _, err := os.Stat(lockPath); err != nil {
		t.Errorf("lock file should survive RemoveCache: %v", err)
	}

	// The entry can be written and listed again through the same lock
	if err := SaveCache(dir, doc); err != nil {
		t.Fatalf("SaveCache() after remove error: %v", err)
	}
	list, err := ListCache(dir)
	if err != nil || len(list) != 1 {
		t.Errorf("ListCache() = %d docs, %v; want 1", len(list), err)
	}
}
