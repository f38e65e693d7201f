// Package source tracks the hosts sources found below a local directory:
// which exist, which are enabled, and whether their cached copies are fresh.
package source

import (
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/joe/hosts-sync/internal/observable"
	"github.com/joe/hosts-sync/pkg/errors"
	"github.com/joe/hosts-sync/pkg/fileops"
	"github.com/joe/hosts-sync/pkg/filesystem"
)

// Options configures a Model.
type Options struct {
	SourcesDir string
	CacheDir   string
	// Pattern selects source files below SourcesDir; empty selects all.
	Pattern string
	Catalog *Catalog
	FS      filesystem.FileSystem
	Logger  *slog.Logger
	// HashWorkers bounds concurrent hashing; zero means one per CPU.
	HashWorkers int
}

// CachedSource is an enabled source with a retrieved copy.
type CachedSource struct {
	Source
	CachePath string
}

// Model owns the source catalog and the freshness observables.
type Model struct {
	// mu serializes catalog rewrites; the network and disk lanes both
	// mutate sources.
	mu sync.Mutex

	fs          filesystem.FileSystem
	ops         *fileops.FileOps
	catalog     *Catalog
	filter      Filter
	sourcesDir  string
	cacheDir    string
	hashWorkers int
	logger      *slog.Logger
	classifier  errors.Classifier

	updateAvailable *observable.Value[bool]
	upToDate        *observable.Value[int]
	outdated        *observable.Value[int]
}

// NewModel creates a source model and publishes the counts stored in the
// catalog.
func NewModel(opts Options) *Model {
	workers := opts.HashWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	m := &Model{
		fs:              opts.FS,
		ops:             fileops.NewFileOps(opts.FS),
		catalog:         opts.Catalog,
		filter:          NewGlobFilter(opts.Pattern),
		sourcesDir:      opts.SourcesDir,
		cacheDir:        opts.CacheDir,
		hashWorkers:     workers,
		logger:          opts.Logger,
		classifier:      errors.NewClassifier(),
		updateAvailable: observable.New(false),
		upToDate:        observable.New(0),
		outdated:        observable.New(0),
	}
	m.publishCounts()

	return m
}

// CachedSources returns the enabled sources that have a retrieved copy.
func (m *Model) CachedSources() []CachedSource {
	var cached []CachedSource

	for _, src := range m.catalog.List() {
		if !src.Enabled || src.CachedHash == "" {
			continue
		}

		cached = append(cached, CachedSource{Source: src, CachePath: m.cachePath(src.Path)})
	}

	return cached
}

// CheckForUpdate rediscovers the sources and rehashes the enabled ones.
func (m *Model) CheckForUpdate() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.publishCounts()

	return m.refreshLocked()
}

// EnableAllSources enables every disabled source. It reports whether any
// source changed.
func (m *Model) EnableAllSources() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	var changed []Source

	for _, src := range m.catalog.List() {
		if src.Enabled {
			continue
		}

		src.Enabled = true
		changed = append(changed, src)
	}

	if len(changed) == 0 {
		return false
	}

	if err := m.catalog.Put(changed...); err != nil {
		m.logger.Warn("failed to enable sources", "error", err)
		return false
	}

	m.logger.Info("enabled sources", "count", len(changed))
	m.publishCounts()

	return true
}

// IsUpdateAvailable reports whether any enabled source is outdated.
func (m *Model) IsUpdateAvailable() *observable.Value[bool] {
	return m.updateAvailable
}

// OutdatedSourceCount is the number of enabled sources whose cache is stale.
func (m *Model) OutdatedSourceCount() *observable.Value[int] {
	return m.outdated
}

// RetrieveHostsSources refreshes the catalog and copies every outdated
// enabled source into the cache directory.
func (m *Model) RetrieveHostsSources() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.publishCounts()

	if err := m.refreshLocked(); err != nil {
		return err
	}

	var retrieved []Source

	for _, src := range m.catalog.List() {
		if !src.Enabled || !src.IsOutdated() {
			continue
		}

		updated, err := m.retrieve(src)
		if err != nil {
			// keep what was retrieved so far
			if putErr := m.catalog.Put(retrieved...); putErr != nil {
				m.logger.Warn("failed to store retrieved sources", "error", putErr)
			}

			return err
		}

		retrieved = append(retrieved, updated)
	}

	if err := m.catalog.Put(retrieved...); err != nil {
		return m.classifier.Classify(err, errors.KindPrivateFileFailed, "source catalog")
	}

	m.logger.Info("sources retrieved", "count", len(retrieved))

	return nil
}

// SetEnabled enables or disables the source stored under sourcePath and
// reports whether it changed. An unknown path is a KindSourceNotFound error
// wrapping ErrSourceNotFound.
func (m *Model) SetEnabled(sourcePath string, enabled bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	src, ok := m.catalog.Get(path.Clean(filepath.ToSlash(sourcePath)))
	if !ok {
		return false, errors.Wrap(errors.KindSourceNotFound, sourcePath, errors.ErrSourceNotFound)
	}

	if src.Enabled == enabled {
		return false, nil
	}

	src.Enabled = enabled
	if err := m.catalog.Put(src); err != nil {
		return false, m.classifier.Classify(err, errors.KindPrivateFileFailed, "source catalog")
	}

	m.logger.Info("source toggled", "path", src.Path, "enabled", enabled)
	m.publishCounts()

	return true, nil
}

// Sources returns the catalog sorted by path.
func (m *Model) Sources() []Source {
	return m.catalog.List()
}

// UpToDateSourceCount is the number of enabled sources whose cache is fresh.
func (m *Model) UpToDateSourceCount() *observable.Value[int] {
	return m.upToDate
}

func (m *Model) cachePath(sourcePath string) string {
	return filepath.Join(m.cacheDir, filepath.FromSlash(sourcePath))
}

// discover scans the sources directory and returns the files the filter
// accepts, keyed by relative path.
func (m *Model) discover() (map[string]filesystem.FileInfo, error) {
	found := make(map[string]filesystem.FileInfo)
	scanner := m.fs.Scan(m.sourcesDir)

	for {
		info, ok := scanner.Next()
		if !ok {
			break
		}

		if info.IsDir || !m.filter.ShouldInclude(info.RelativePath) {
			continue
		}

		found[info.RelativePath] = info
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", m.sourcesDir, err)
	}

	return found, nil
}

// hash computes the content hash of each source concurrently.
func (m *Model) hash(sources []Source) error {
	var group errgroup.Group
	group.SetLimit(m.hashWorkers)

	for i := range sources {
		group.Go(func() error {
			sourcePath := m.sourcePath(sources[i].Path)

			sum, err := m.ops.ComputeFileHash(sourcePath)
			if err != nil {
				return m.classifier.Classify(err, errors.KindDownloadFailed, sourcePath)
			}

			sources[i].Hash = sum

			return nil
		})
	}

	return group.Wait()
}

func (m *Model) publishCounts() {
	upToDate, outdated := 0, 0

	for _, src := range m.catalog.List() {
		if !src.Enabled {
			continue
		}

		if src.IsOutdated() {
			outdated++
		} else {
			upToDate++
		}
	}

	m.upToDate.Set(upToDate)
	m.outdated.Set(outdated)
	m.updateAvailable.Set(outdated > 0)
}

// refreshLocked reconciles the catalog with the sources directory and
// rehashes every enabled source. The caller holds mu.
func (m *Model) refreshLocked() error {
	found, err := m.discover()
	if err != nil {
		return m.classifier.Classify(err, errors.KindDownloadFailed, m.sourcesDir)
	}

	for _, src := range m.catalog.List() {
		if _, ok := found[src.Path]; ok {
			continue
		}

		m.logger.Info("source removed", "path", src.Path)

		if err := m.catalog.Delete(src.Path); err != nil {
			return m.classifier.Classify(err, errors.KindPrivateFileFailed, "source catalog")
		}

		if err := m.fs.Remove(m.cachePath(src.Path)); err != nil {
			m.logger.Debug("failed to remove cached copy", "path", src.Path, "error", err)
		}
	}

	var enabled []Source

	for relPath, info := range found {
		src, ok := m.catalog.Get(relPath)
		if !ok {
			m.logger.Info("source discovered", "path", relPath)
			src = Source{
				Path:    relPath,
				Label:   labelFor(relPath),
				Kind:    kindFor(relPath),
				Enabled: true,
			}
		}

		src.ModTime = info.ModTime

		if src.Enabled {
			enabled = append(enabled, src)
			continue
		}

		if err := m.catalog.Put(src); err != nil {
			return m.classifier.Classify(err, errors.KindPrivateFileFailed, "source catalog")
		}
	}

	if err := m.hash(enabled); err != nil {
		return err
	}

	if err := m.catalog.Put(enabled...); err != nil {
		return m.classifier.Classify(err, errors.KindPrivateFileFailed, "source catalog")
	}

	m.logger.Debug("sources refreshed", "found", len(found), "enabled", len(enabled))

	return nil
}

func (m *Model) retrieve(src Source) (Source, error) {
	sourcePath := m.sourcePath(src.Path)
	cachePath := m.cachePath(src.Path)

	if _, err := m.ops.CopyFile(sourcePath, cachePath); err != nil {
		return src, m.classifier.Classify(err, errors.KindDownloadFailed, sourcePath)
	}

	entries, err := m.ops.CountEntries(cachePath)
	if err != nil {
		return src, m.classifier.Classify(err, errors.KindDownloadFailed, cachePath)
	}

	src.CachedHash = src.Hash
	src.Entries = entries
	m.logger.Debug("source retrieved", "path", src.Path, "entries", entries)

	return src, nil
}

func (m *Model) sourcePath(sourcePath string) string {
	return filepath.Join(m.sourcesDir, filepath.FromSlash(sourcePath))
}

func kindFor(relPath string) Kind {
	first, _, nested := strings.Cut(relPath, "/")
	if !nested {
		return KindBlock
	}

	switch Kind(strings.ToLower(first)) {
	case KindAllow:
		return KindAllow
	case KindRedirect:
		return KindRedirect
	default:
		return KindBlock
	}
}

func labelFor(relPath string) string {
	base := path.Base(relPath)
	return strings.TrimSuffix(base, path.Ext(base))
}
