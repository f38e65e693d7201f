package source

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketSources = []byte("sources")
)

// Kind is what a source's entries do once applied.
type Kind string

// Source kinds. A source's kind comes from the first directory of its path
// below the sources directory: allow/ and redirect/ are special, everything
// else blocks.
const (
	KindAllow    Kind = "allow"
	KindBlock    Kind = "block"
	KindRedirect Kind = "redirect"
)

// Source is one hosts source tracked in the catalog.
type Source struct {
	// Path is the slash-separated path below the sources directory. It is
	// the catalog key.
	Path    string    `json:"path"`
	Label   string    `json:"label"`
	Kind    Kind      `json:"kind"`
	Enabled bool      `json:"enabled"`
	ModTime time.Time `json:"modTime"`
	// Hash is the content hash seen by the last freshness check.
	Hash string `json:"hash,omitempty"`
	// CachedHash is the content hash of the retrieved copy; empty until the
	// source has been retrieved once.
	CachedHash string `json:"cachedHash,omitempty"`
	Entries    int    `json:"entries"`
}

// IsOutdated reports whether the cached copy lags behind the source.
func (s Source) IsOutdated() bool {
	return s.CachedHash == "" || s.Hash != s.CachedHash
}

// Catalog persists sources in BoltDB. An empty path keeps the catalog in
// memory only.
type Catalog struct {
	db *bolt.DB
	mu sync.RWMutex

	// In-memory mirror of the bucket.
	sources map[string]Source
}

// OpenCatalog opens or creates the catalog at path.
func OpenCatalog(path string) (*Catalog, error) {
	catalog := &Catalog{sources: make(map[string]Source)}
	if path == "" {
		return catalog, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create catalog directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(bucketSources)
		if err != nil {
			return err
		}

		return bucket.ForEach(func(_, v []byte) error {
			var src Source
			if err := json.Unmarshal(v, &src); err != nil {
				return fmt.Errorf("failed to decode source: %w", err)
			}

			catalog.sources[src.Path] = src

			return nil
		})
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	catalog.db = db

	return catalog, nil
}

// Close releases the database.
func (c *Catalog) Close() error {
	if c.db != nil {
		return c.db.Close()
	}

	return nil
}

// Delete removes the source stored under path.
func (c *Catalog) Delete(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		err := c.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket(bucketSources).Delete([]byte(path))
		})
		if err != nil {
			return fmt.Errorf("failed to delete source %s: %w", path, err)
		}
	}

	delete(c.sources, path)

	return nil
}

// Get returns the source stored under path.
func (c *Catalog) Get(path string) (Source, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	src, ok := c.sources[path]

	return src, ok
}

// List returns every source sorted by path.
func (c *Catalog) List() []Source {
	c.mu.RLock()
	defer c.mu.RUnlock()

	sources := make([]Source, 0, len(c.sources))
	for _, src := range c.sources {
		sources = append(sources, src)
	}

	sort.Slice(sources, func(i, j int) bool {
		return sources[i].Path < sources[j].Path
	})

	return sources
}

// Put stores the given sources in one transaction.
func (c *Catalog) Put(sources ...Source) error {
	if len(sources) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		err := c.db.Update(func(tx *bolt.Tx) error {
			bucket := tx.Bucket(bucketSources)

			for _, src := range sources {
				data, err := json.Marshal(src)
				if err != nil {
					return err
				}

				if err := bucket.Put([]byte(src.Path), data); err != nil {
					return err
				}
			}

			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to store sources: %w", err)
		}
	}

	for _, src := range sources {
		c.sources[src.Path] = src
	}

	return nil
}
