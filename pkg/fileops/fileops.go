// Package fileops provides the file operations the source and blocking models
// share: hashing, atomic copies, concatenation and entry counting.
package fileops

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/joe/hosts-sync/pkg/filesystem"
)

// Exported constants.
const (
	// BufferSize is the size of the buffer used for copy operations (64KB)
	BufferSize = 64 * 1024
	// DefaultDirPermissions is the default permission mode for created directories
	DefaultDirPermissions = 0o750
)

// FileOps runs file operations against an injected filesystem.
type FileOps struct {
	FS filesystem.FileSystem
}

// NewFileOps creates a new FileOps instance with the given filesystem.
func NewFileOps(fs filesystem.FileSystem) *FileOps {
	return &FileOps{FS: fs}
}

// NewRealFileOps creates a new FileOps instance using the real filesystem.
func NewRealFileOps() *FileOps {
	return &FileOps{FS: filesystem.NewRealFileSystem()}
}

// ComputeFileHash computes the SHA256 hash of a file.
func (fo *FileOps) ComputeFileHash(filePath string) (string, error) {
	file, err := fo.FS.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file %s: %w", filePath, err)
	}

	defer func() {
		_ = file.Close()
	}()

	hash := sha256.New()

	_, err = io.CopyBuffer(hash, file, make([]byte, BufferSize))
	if err != nil {
		return "", fmt.Errorf("failed to read file %s for hashing: %w", filePath, err)
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

// Concatenate writes the sources one after another into dst, replacing dst
// atomically. Each source is terminated by a newline if it lacks one.
func (fo *FileOps) Concatenate(dst string, srcs []string) (int64, error) {
	return fo.writeAtomic(dst, func(w io.Writer) (int64, error) {
		var total int64

		for _, src := range srcs {
			written, err := fo.appendFile(w, src)
			total += written

			if err != nil {
				return total, err
			}
		}

		return total, nil
	})
}

// CopyFile copies src to dst. The destination is written to a temporary file
// and renamed into place, so readers never observe a partial copy.
func (fo *FileOps) CopyFile(src, dst string) (int64, error) {
	return fo.writeAtomic(dst, func(w io.Writer) (int64, error) {
		sourceFile, err := fo.FS.Open(src)
		if err != nil {
			return 0, fmt.Errorf("failed to open source file %s: %w", src, err)
		}

		defer func() {
			_ = sourceFile.Close()
		}()

		written, err := io.CopyBuffer(w, sourceFile, make([]byte, BufferSize))
		if err != nil {
			return written, fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
		}

		return written, nil
	})
}

// CountEntries counts the host entries in a file: every line that is neither
// blank nor a comment. Lines of any length are supported; a line is judged by
// its first non-blank byte.
func (fo *FileOps) CountEntries(filePath string) (int, error) {
	file, err := fo.FS.Open(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to open file %s: %w", filePath, err)
	}

	defer func() {
		_ = file.Close()
	}()

	count := 0
	decided := false
	reader := bufio.NewReaderSize(file, BufferSize)

	for {
		fragment, more, err := reader.ReadLine()
		if errors.Is(err, io.EOF) {
			return count, nil
		}

		if err != nil {
			return count, fmt.Errorf("failed to read file %s: %w", filePath, err)
		}

		// long lines arrive in several fragments
		if !decided {
			if trimmed := bytes.TrimLeft(fragment, " \t\r"); len(trimmed) > 0 {
				decided = true

				if trimmed[0] != '#' {
					count++
				}
			}
		}

		if !more {
			decided = false
		}
	}
}

func (fo *FileOps) appendFile(w io.Writer, src string) (int64, error) {
	file, err := fo.FS.Open(src)
	if err != nil {
		return 0, fmt.Errorf("failed to open source file %s: %w", src, err)
	}

	defer func() {
		_ = file.Close()
	}()

	tail := &lastByteWriter{w: w}

	written, err := io.CopyBuffer(tail, file, make([]byte, BufferSize))
	if err != nil {
		return written, fmt.Errorf("failed to append %s: %w", src, err)
	}

	if written > 0 && tail.last != '\n' {
		n, err := io.WriteString(w, "\n")
		written += int64(n)

		if err != nil {
			return written, fmt.Errorf("failed to append %s: %w", src, err)
		}
	}

	return written, nil
}

func (fo *FileOps) writeAtomic(dst string, fill func(io.Writer) (int64, error)) (int64, error) {
	dstDir := filepath.Dir(dst)

	err := fo.FS.MkdirAll(dstDir, DefaultDirPermissions)
	if err != nil {
		return 0, fmt.Errorf("failed to create destination directory %s: %w", dstDir, err)
	}

	tmp := filepath.Join(dstDir, filepath.Base(dst)+".tmp")

	destFile, err := fo.FS.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("failed to create destination file %s: %w", tmp, err)
	}

	written, err := fill(destFile)
	closeErr := destFile.Close()

	if err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close %s: %w", tmp, closeErr)
	}

	if err != nil {
		_ = fo.FS.Remove(tmp)
		return written, err
	}

	err = fo.FS.Rename(tmp, dst)
	if err != nil {
		_ = fo.FS.Remove(tmp)
		return written, fmt.Errorf("failed to move %s into place: %w", dst, err)
	}

	return written, nil
}

// lastByteWriter remembers the final byte written through it.
type lastByteWriter struct {
	w    io.Writer
	last byte
}

func (l *lastByteWriter) Write(p []byte) (int, error) {
	n, err := l.w.Write(p)
	if n > 0 {
		l.last = p[n-1]
	}

	return n, err
}
