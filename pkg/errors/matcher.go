package errors

import "strings"

// PatternMatcher matches error messages to kinds using string patterns.
type PatternMatcher interface {
	Match(errorMsg string) Kind
}

// NewPatternMatcher creates a new PatternMatcher with predefined patterns.
func NewPatternMatcher() PatternMatcher {
	return &patternMatcher{
		order: []Kind{
			KindPermissionDenied,
			KindNotEnoughSpace,
			KindNoConnection,
			KindDownloadFailed,
			KindCopyFailed,
		},
		patterns: map[Kind][]string{
			KindPermissionDenied: {
				"permission denied",
				"access denied",
				"operation not permitted",
				"read-only file system",
			},
			KindNotEnoughSpace: {
				"no space left on device",
				"disk full",
				"quota exceeded",
			},
			KindNoConnection: {
				"connection refused",
				"no such host",
				"network is unreachable",
				"i/o timeout",
			},
			KindDownloadFailed: {
				"no such file or directory",
				"file not found",
				"file does not exist",
			},
			KindCopyFailed: {
				"short write",
				"input/output error",
				"i/o error",
			},
		},
	}
}

// patternMatcher is the concrete implementation of PatternMatcher.
type patternMatcher struct {
	order    []Kind
	patterns map[Kind][]string
}

// Match returns the kind whose patterns appear in the message, checking kinds
// in a fixed order so overlapping messages classify deterministically.
func (m *patternMatcher) Match(errorMsg string) Kind {
	lowerMsg := strings.ToLower(errorMsg)

	for _, kind := range m.order {
		for _, pattern := range m.patterns[kind] {
			if strings.Contains(lowerMsg, pattern) {
				return kind
			}
		}
	}

	return KindUnknown
}
