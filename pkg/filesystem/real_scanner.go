package filesystem

import (
	"path/filepath"

	"github.com/kr/fs"
)

// realFileScanner walks the host disk lazily with a kr/fs walker.
type realFileScanner struct {
	root   string
	walker *fs.Walker
	err    error
}

func newRealFileScanner(root string) *realFileScanner {
	return &realFileScanner{
		root:   root,
		walker: fs.Walk(root),
	}
}

// Err returns any error that occurred during scanning.
func (s *realFileScanner) Err() error {
	return s.err
}

// Next advances to the next entry below the root.
func (s *realFileScanner) Next() (FileInfo, bool) {
	if s.err != nil {
		return FileInfo{}, false
	}

	for s.walker.Step() {
		if err := s.walker.Err(); err != nil {
			s.err = err
			return FileInfo{}, false
		}

		relPath, err := filepath.Rel(s.root, s.walker.Path())
		if err != nil {
			s.err = err
			return FileInfo{}, false
		}

		if relPath == "." {
			continue
		}

		info := s.walker.Stat()

		return FileInfo{
			RelativePath: filepath.ToSlash(relPath),
			Size:         info.Size(),
			ModTime:      info.ModTime(),
			IsDir:        info.IsDir(),
		}, true
	}

	return FileInfo{}, false
}
