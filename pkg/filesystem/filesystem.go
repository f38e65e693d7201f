// Package filesystem provides an abstraction layer over the disk so the
// source and blocking models can run against an in-memory filesystem in tests.
package filesystem

import (
	"fmt"
	"io"
	"os"
)

// File is an open file handle.
type File interface {
	io.Reader
	io.Writer
	io.Closer
	Stat() (os.FileInfo, error)
}

// FileSystem is the set of disk operations the models need.
type FileSystem interface {
	// Scan returns an iterator over every entry below path, recursively.
	Scan(path string) FileScanner

	Open(path string) (File, error)
	Create(path string) (File, error)
	MkdirAll(path string, perm os.FileMode) error
	Remove(path string) error
	// Rename moves oldPath to newPath, replacing newPath if it exists.
	Rename(oldPath, newPath string) error
	Stat(path string) (os.FileInfo, error)
}

// RealFileSystem implements FileSystem on the host disk.
type RealFileSystem struct{}

// NewRealFileSystem creates a new RealFileSystem instance.
func NewRealFileSystem() *RealFileSystem {
	return &RealFileSystem{}
}

// Create creates or truncates a file for writing.
func (fs *RealFileSystem) Create(path string) (File, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}

	return file, nil
}

// MkdirAll creates a directory and all necessary parents.
func (fs *RealFileSystem) MkdirAll(path string, perm os.FileMode) error {
	err := os.MkdirAll(path, perm)
	if err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}

	return nil
}

// Open opens a file for reading.
func (fs *RealFileSystem) Open(path string) (File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	return file, nil
}

// Remove removes a file or empty directory.
func (fs *RealFileSystem) Remove(path string) error {
	err := os.Remove(path)
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}

	return nil
}

// Rename moves a file, replacing the destination.
func (fs *RealFileSystem) Rename(oldPath, newPath string) error {
	err := os.Rename(oldPath, newPath)
	if err != nil {
		return fmt.Errorf("failed to rename %s: %w", oldPath, err)
	}

	return nil
}

// Scan returns an iterator over all entries in a directory tree.
func (fs *RealFileSystem) Scan(path string) FileScanner {
	return newRealFileScanner(path)
}

// Stat returns file information.
func (fs *RealFileSystem) Stat(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	return info, nil
}
