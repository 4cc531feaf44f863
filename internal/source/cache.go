package source

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofrs/flock"
)

// cachePath returns the cache file path for ref inside dir.
func cachePath(dir, ref string) string {
	// Hash the ref so any URL maps to a safe file name
	sum := sha256.Sum256([]byte(ref))
	return filepath.Join(dir, hex.EncodeToString(sum[:12])+".json")
}

// LoadCache returns the cached document for ref, or nil if none is stored.
func LoadCache(dir, ref string) *Document {
	return readCacheFile(cachePath(dir, ref), ref)
}

func readCacheFile(path, ref string) *Document {
	// Acquire shared (read) lock - blocks if exclusive lock is held
	fileLock := flock.New(path + ".lock")
	if err := fileLock.RLock(); err != nil {
		return nil
	}
	defer fileLock.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil
	}

	// Guard against a hash collision or a hand-edited file
	if ref != "" && doc.Ref != ref {
		return nil
	}

	doc.FromCache = true
	return &doc
}

// SaveCache stores doc under its Ref.
func SaveCache(dir string, doc *Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	path := cachePath(dir, doc.Ref)

	// Acquire exclusive lock - blocks until lock is available
	fileLock := flock.New(path + ".lock")
	if err := fileLock.Lock(); err != nil {
		return err
	}
	defer fileLock.Unlock()

	// Write atomically: write to temp file then rename
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}

	return os.Rename(tmpPath, path)
}

// RemoveCache deletes the cached document for ref. Removing a ref that is
// not cached is not an error.
func RemoveCache(dir, ref string) error {
	path := cachePath(dir, ref)

	fileLock := flock.New(path + ".lock")
	if err := fileLock.Lock(); err != nil {
		return err
	}
	err := os.Remove(path)
	// Keep the lock file; other processes may be blocked on its inode
	_ = fileLock.Unlock()

	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// ListCache returns every cached document, most recently fetched first.
// A missing directory yields an empty list.
func ListCache(dir string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var docs []Document
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		if doc := readCacheFile(filepath.Join(dir, e.Name()), ""); doc != nil {
			docs = append(docs, *doc)
		}
	}

	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].FetchedAt.After(docs[j].FetchedAt)
	})
	return docs, nil
}

// ClearCache removes every cached document and returns how many were removed.
func ClearCache(dir string) (int, error) {
	docs, err := ListCache(dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, doc := range docs {
		if err := RemoveCache(dir, doc.Ref); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
