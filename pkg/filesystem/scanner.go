package filesystem

import (
	"time"
)

// FileScanner is an iterator over the entries of a directory tree.
type FileScanner interface {
	// Next advances to the next entry. It returns false when done or on
	// error; check Err afterwards to tell the two apart.
	Next() (FileInfo, bool)

	// Err returns the error that stopped the scan, if any.
	Err() error
}

// FileInfo describes one scanned entry.
type FileInfo struct {
	// RelativePath is the slash-separated path relative to the scan root.
	RelativePath string
	Size         int64
	ModTime      time.Time
	IsDir        bool
}
