package errors

import (
	"regexp"
	"strings"
)

// Classifier turns raw errors into HostErrors.
type Classifier interface {
	Classify(err error, fallback Kind, detail string) *HostError
}

// NewClassifier creates a new Classifier with the default pattern matcher.
func NewClassifier() Classifier {
	return &classifier{
		matcher: NewPatternMatcher(),
	}
}

// unexported variables.
var (
	//nolint:gochecknoglobals // Compiled regexes shared across all classifier instances
	pathExtractionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\w+\s+([./][^\s:]+):`),
		regexp.MustCompile(`\b\w+\s+([A-Za-z]:\\[^\s:]+):`),
		regexp.MustCompile(`\b\w+\s+([A-Za-z]:/[^\s:]+):`),
	}
)

// classifier is the concrete implementation of Classifier.
type classifier struct {
	matcher PatternMatcher
}

// Classify wraps err into a HostError. An err that already is a HostError is
// returned unchanged. When the message matches a known pattern that kind wins
// over fallback. If detail is empty, a path is extracted from the message.
func (c *classifier) Classify(err error, fallback Kind, detail string) *HostError {
	if err == nil {
		return nil
	}

	if hostErr, ok := AsHostError(err); ok {
		return hostErr
	}

	errMsg := err.Error()

	if detail == "" {
		detail = extractPath(errMsg)
	}

	kind := c.matcher.Match(errMsg)
	if kind == KindUnknown {
		kind = fallback
	}

	return Wrap(kind, detail, err)
}

// extractPath pulls a file path out of the usual Go error formats such as
// "open /path/to/file: permission denied". Returns empty string if none.
func extractPath(errorMsg string) string {
	for _, pattern := range pathExtractionPatterns {
		if matches := pattern.FindStringSubmatch(errorMsg); len(matches) > 1 {
			path := strings.TrimSpace(matches[1])
			if path != "" {
				return path
			}
		}
	}

	return ""
}
