package source

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Filter decides which files below the sources directory are hosts sources.
type Filter interface {
	// ShouldInclude returns true if the file at the given relative path is a source
	ShouldInclude(relativePath string) bool
}

// GlobFilter implements Filter using doublestar glob patterns
type GlobFilter struct {
	normalizedPattern string
	isEmpty           bool
}

// NewGlobFilter creates a new GlobFilter with the given pattern
// Empty pattern matches all files
func NewGlobFilter(pattern string) *GlobFilter {
	normalized := strings.ToLower(pattern)

	return &GlobFilter{
		normalizedPattern: normalized,
		isEmpty:           pattern == "",
	}
}

// ShouldInclude returns true if the file matches the glob pattern.
// Matching is case-insensitive.
func (f *GlobFilter) ShouldInclude(relativePath string) bool {
	if f.isEmpty {
		return true
	}

	normalizedPath := strings.ToLower(relativePath)

	matched, err := doublestar.Match(f.normalizedPattern, normalizedPath)
	if err != nil {
		// invalid pattern matches nothing
		return false
	}

	return matched
}

// ValidatePattern reports whether pattern is a usable glob.
func ValidatePattern(pattern string) bool {
	return pattern == "" || doublestar.ValidatePattern(strings.ToLower(pattern))
}
