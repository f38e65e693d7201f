// Package adblock applies the cached hosts sources by writing them into one
// hosts file, and reverts by removing it.
package adblock

import (
	stderrors "errors"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/joe/hosts-sync/internal/observable"
	"github.com/joe/hosts-sync/internal/source"
	"github.com/joe/hosts-sync/pkg/errors"
	"github.com/joe/hosts-sync/pkg/fileops"
	"github.com/joe/hosts-sync/pkg/filesystem"
)

// SourceProvider lists the sources ready to be applied.
type SourceProvider interface {
	CachedSources() []source.CachedSource
}

// Options configures a Model.
type Options struct {
	// HostsFile is where the merged hosts are written.
	HostsFile string
	Sources   SourceProvider
	FS        filesystem.FileSystem
	Logger    *slog.Logger
}

// Model owns the applied flag and the per-kind entry counts.
type Model struct {
	mu sync.Mutex

	hostsFile  string
	sources    SourceProvider
	fs         filesystem.FileSystem
	ops        *fileops.FileOps
	logger     *slog.Logger
	classifier errors.Classifier

	applied  *observable.Value[bool]
	blocked  *observable.Value[int]
	allowed  *observable.Value[int]
	redirect *observable.Value[int]
}

// NewModel creates a blocking model. The applied flag starts from whether
// the hosts file exists, and if it does the counts start from the cached
// sources. The flag stays unset when the hosts file cannot be inspected.
func NewModel(opts Options) *Model {
	_, statErr := opts.FS.Stat(opts.HostsFile)

	m := &Model{
		hostsFile:  opts.HostsFile,
		sources:    opts.Sources,
		fs:         opts.FS,
		ops:        fileops.NewFileOps(opts.FS),
		logger:     opts.Logger,
		classifier: errors.NewClassifier(),
		applied:    observable.NewUnset[bool](),
		blocked:    observable.New(0),
		allowed:    observable.New(0),
		redirect:   observable.New(0),
	}

	switch {
	case statErr == nil:
		_, counts := order(opts.Sources.CachedSources())
		m.publishCounts(counts)
		m.applied.Set(true)
	case stderrors.Is(statErr, fs.ErrNotExist):
		m.applied.Set(false)
	default:
		m.logger.Warn("cannot inspect hosts file, blocking state unknown", "hosts_file", opts.HostsFile, "error", statErr)
	}

	return m
}

// AllowedHostCount is the number of allow entries in the applied sources.
func (m *Model) AllowedHostCount() *observable.Value[int] {
	return m.allowed
}

// Apply merges the cached sources into the hosts file. Allow sources are
// written first so their entries precede the block lists.
func (m *Model) Apply() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ordered, counts := order(m.sources.CachedSources())

	written, err := m.ops.Concatenate(m.hostsFile, ordered)
	if err != nil {
		return m.classifier.Classify(err, errors.KindApplyFailed, m.hostsFile)
	}

	m.publishCounts(counts)
	m.applied.Set(true)

	m.logger.Info("blocking applied",
		"hosts_file", m.hostsFile,
		"sources", len(ordered),
		"bytes", written,
		"blocked", counts[source.KindBlock])

	return nil
}

// BlockedHostCount is the number of block entries in the applied sources.
func (m *Model) BlockedHostCount() *observable.Value[int] {
	return m.blocked
}

// IsApplied reports whether blocking is applied.
func (m *Model) IsApplied() *observable.Value[bool] {
	return m.applied
}

// RedirectHostCount is the number of redirect entries in the applied sources.
func (m *Model) RedirectHostCount() *observable.Value[int] {
	return m.redirect
}

// Revert removes the hosts file. Reverting when nothing is applied succeeds;
// a hosts file that cannot be inspected leaves the state untouched.
func (m *Model) Revert() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.fs.Stat(m.hostsFile)

	switch {
	case err == nil:
		if err := m.fs.Remove(m.hostsFile); err != nil {
			return m.classifier.Classify(err, errors.KindRevertFailed, m.hostsFile)
		}
	case stderrors.Is(err, fs.ErrNotExist):
		// nothing applied on disk
	default:
		return m.classifier.Classify(err, errors.KindRevertFailed, m.hostsFile)
	}

	m.publishCounts(nil)
	m.applied.Set(false)

	m.logger.Info("blocking reverted", "hosts_file", m.hostsFile)

	return nil
}

func (m *Model) publishCounts(counts map[source.Kind]int) {
	m.blocked.Set(counts[source.KindBlock])
	m.allowed.Set(counts[source.KindAllow])
	m.redirect.Set(counts[source.KindRedirect])
}

// order returns the cache paths allow first, then redirect, then block,
// along with the entry count per kind.
func order(cached []source.CachedSource) ([]string, map[source.Kind]int) {
	var ordered []string
	counts := map[source.Kind]int{}

	for _, kind := range []source.Kind{source.KindAllow, source.KindRedirect, source.KindBlock} {
		for _, src := range cached {
			if src.Kind != kind {
				continue
			}

			ordered = append(ordered, src.CachePath)
			counts[kind] += src.Entries
		}
	}

	return ordered, counts
}
