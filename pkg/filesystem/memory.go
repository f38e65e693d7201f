package filesystem

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemFileSystem is an in-memory FileSystem for tests. Paths are cleaned and
// slash-separated; parent directories are created implicitly.
type MemFileSystem struct {
	mu      sync.RWMutex
	entries map[string]*memEntry
	now     func() time.Time
}

// memEntry is a file or directory in a MemFileSystem.
type memEntry struct {
	data    []byte
	modTime time.Time
	isDir   bool
	perm    os.FileMode
}

// NewMemFileSystem creates an empty in-memory filesystem.
func NewMemFileSystem() *MemFileSystem {
	return &MemFileSystem{
		entries: make(map[string]*memEntry),
		now:     time.Now,
	}
}

// AddFile stores content at p with the given modification time.
func (m *MemFileSystem) AddFile(p string, content []byte, modTime time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p = path.Clean(p)
	m.mkdirAllLocked(path.Dir(p), 0o755)
	m.entries[p] = &memEntry{
		data:    append([]byte(nil), content...),
		modTime: modTime,
		perm:    0o644,
	}
}

// Create creates or truncates a file. The content becomes visible on Close.
func (m *MemFileSystem) Create(p string) (File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p = path.Clean(p)
	if entry, ok := m.entries[p]; ok && entry.isDir {
		return nil, pathError("create", p, fs.ErrInvalid)
	}

	m.mkdirAllLocked(path.Dir(p), 0o755)
	m.entries[p] = &memEntry{modTime: m.now(), perm: 0o644}

	return &memFile{fs: m, path: p, writer: &bytes.Buffer{}}, nil
}

// Exists reports whether p exists.
func (m *MemFileSystem) Exists(p string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.entries[path.Clean(p)]

	return ok
}

// ReadFile returns a copy of the content stored at p.
func (m *MemFileSystem) ReadFile(p string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[path.Clean(p)]
	if !ok {
		return nil, pathError("open", p, fs.ErrNotExist)
	}

	if entry.isDir {
		return nil, pathError("read", p, fs.ErrInvalid)
	}

	return append([]byte(nil), entry.data...), nil
}

// MkdirAll creates a directory and all necessary parents.
func (m *MemFileSystem) MkdirAll(p string, perm os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.mkdirAllLocked(path.Clean(p), perm)

	return nil
}

// Open opens a file for reading.
func (m *MemFileSystem) Open(p string) (File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p = path.Clean(p)
	entry, ok := m.entries[p]
	if !ok {
		return nil, pathError("open", p, fs.ErrNotExist)
	}

	if entry.isDir {
		return nil, pathError("open", p, fs.ErrInvalid)
	}

	return &memFile{fs: m, path: p, reader: bytes.NewReader(entry.data)}, nil
}

// Remove removes a file or empty directory.
func (m *MemFileSystem) Remove(p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p = path.Clean(p)
	entry, ok := m.entries[p]
	if !ok {
		return pathError("remove", p, fs.ErrNotExist)
	}

	if entry.isDir {
		for other := range m.entries {
			if strings.HasPrefix(other, p+"/") {
				return pathError("remove", p, fmt.Errorf("directory not empty"))
			}
		}
	}

	delete(m.entries, p)

	return nil
}

// Rename moves a file, replacing the destination.
func (m *MemFileSystem) Rename(oldPath, newPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	oldPath, newPath = path.Clean(oldPath), path.Clean(newPath)
	entry, ok := m.entries[oldPath]
	if !ok {
		return pathError("rename", oldPath, fs.ErrNotExist)
	}

	m.mkdirAllLocked(path.Dir(newPath), 0o755)
	m.entries[newPath] = entry
	delete(m.entries, oldPath)

	return nil
}

// Scan returns an iterator over all entries below root, sorted by path.
func (m *MemFileSystem) Scan(root string) FileScanner {
	m.mu.RLock()
	defer m.mu.RUnlock()

	root = path.Clean(root)
	scanner := &memScanner{}

	if _, ok := m.entries[root]; !ok && root != "." && root != "/" {
		scanner.err = pathError("lstat", root, fs.ErrNotExist)
		return scanner
	}

	prefix := root + "/"
	if root == "/" {
		prefix = "/"
	}

	for p, entry := range m.entries {
		if root != "." && !strings.HasPrefix(p, prefix) {
			continue
		}

		rel := strings.TrimPrefix(p, prefix)
		if root == "." {
			rel = p
		}

		scanner.files = append(scanner.files, FileInfo{
			RelativePath: rel,
			Size:         int64(len(entry.data)),
			ModTime:      entry.modTime,
			IsDir:        entry.isDir,
		})
	}

	sort.Slice(scanner.files, func(i, j int) bool {
		return scanner.files[i].RelativePath < scanner.files[j].RelativePath
	})

	return scanner
}

// SetModTime changes the modification time of p.
func (m *MemFileSystem) SetModTime(p string, modTime time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[path.Clean(p)]
	if !ok {
		return pathError("chtimes", p, fs.ErrNotExist)
	}

	entry.modTime = modTime

	return nil
}

// Stat returns file information.
func (m *MemFileSystem) Stat(p string) (os.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p = path.Clean(p)
	entry, ok := m.entries[p]
	if !ok {
		return nil, pathError("stat", p, fs.ErrNotExist)
	}

	return entry.info(path.Base(p)), nil
}

func (m *MemFileSystem) mkdirAllLocked(p string, perm os.FileMode) {
	for p != "." && p != "/" {
		if _, ok := m.entries[p]; ok {
			return
		}

		m.entries[p] = &memEntry{modTime: m.now(), isDir: true, perm: perm | os.ModeDir}
		p = path.Dir(p)
	}
}

func (e *memEntry) info(name string) os.FileInfo {
	return &memFileInfo{
		name:    name,
		size:    int64(len(e.data)),
		modTime: e.modTime,
		isDir:   e.isDir,
		perm:    e.perm,
	}
}

// memFile is an open handle on a MemFileSystem entry.
type memFile struct {
	fs     *MemFileSystem
	path   string
	reader *bytes.Reader
	writer *bytes.Buffer
	closed bool
}

func (f *memFile) Close() error {
	if f.closed {
		return os.ErrClosed
	}
	f.closed = true

	if f.writer == nil {
		return nil
	}

	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()

	f.fs.entries[f.path] = &memEntry{
		data:    f.writer.Bytes(),
		modTime: f.fs.now(),
		perm:    0o644,
	}

	return nil
}

func (f *memFile) Read(p []byte) (int, error) {
	if f.closed {
		return 0, os.ErrClosed
	}

	if f.reader == nil {
		return 0, io.EOF
	}

	return f.reader.Read(p)
}

func (f *memFile) Stat() (os.FileInfo, error) {
	if f.closed {
		return nil, os.ErrClosed
	}

	return f.fs.Stat(f.path)
}

func (f *memFile) Write(p []byte) (int, error) {
	if f.closed {
		return 0, os.ErrClosed
	}

	if f.writer == nil {
		return 0, pathError("write", f.path, fs.ErrPermission)
	}

	return f.writer.Write(p)
}

// memFileInfo implements os.FileInfo for MemFileSystem entries.
type memFileInfo struct {
	name    string
	size    int64
	modTime time.Time
	isDir   bool
	perm    os.FileMode
}

func (fi *memFileInfo) IsDir() bool        { return fi.isDir }
func (fi *memFileInfo) ModTime() time.Time { return fi.modTime }
func (fi *memFileInfo) Mode() os.FileMode  { return fi.perm }
func (fi *memFileInfo) Name() string       { return fi.name }
func (fi *memFileInfo) Size() int64        { return fi.size }
func (fi *memFileInfo) Sys() any           { return nil }

// memScanner iterates over a snapshot taken by MemFileSystem.Scan.
type memScanner struct {
	files []FileInfo
	index int
	err   error
}

func (s *memScanner) Err() error {
	return s.err
}

func (s *memScanner) Next() (FileInfo, bool) {
	if s.err != nil || s.index >= len(s.files) {
		return FileInfo{}, false
	}

	file := s.files[s.index]
	s.index++

	return file, true
}

func pathError(op, p string, err error) error {
	return &fs.PathError{Op: op, Path: p, Err: err}
}
