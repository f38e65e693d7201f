// Package errors provides the domain error shared by the source, blocking and
// update models.
//
// Collaborators classify every failure at their boundary into a HostError so
// that only one error type crosses into the controller. The controller catches
// HostError and nothing else; any other error reaching it is a defect.
//
// Basic Usage:
//
//	classifier := errors.NewClassifier()
//	if err := os.WriteFile(path, data, 0o644); err != nil {
//	    return classifier.Classify(err, errors.KindApplyFailed, path)
//	}
//
// The classifier inspects the message of the raw error and picks a more
// specific kind when it recognizes one (permission, disk space, connectivity),
// falling back to the kind supplied by the caller.
//
// Integration with TUI:
//
//	formatted := errors.FormatSuggestions(hostErr)
//	fmt.Println(formatted) // "  • suggestion 1\n  • suggestion 2"
package errors

import (
	"errors"
	"strings"
)

// Exported constants.
const (
	KindApplyFailed       Kind = "apply_failed"
	KindCopyFailed        Kind = "copy_failed"
	KindDownloadFailed    Kind = "download_failed"
	KindNoConnection      Kind = "no_connection"
	KindNotEnoughSpace    Kind = "not_enough_space"
	KindPermissionDenied  Kind = "permission_denied"
	KindPrivateFileFailed Kind = "private_file_failed"
	KindRevertFailed      Kind = "revert_failed"
	KindSourceNotFound    Kind = "source_not_found"
	KindUnknown           Kind = "unknown"
)

// Exported variables.
var (
	ErrSourceNotFound = errors.New("hosts source not found")
)

// Kind classifies a HostError.
type Kind string

// Message returns the user facing summary for the kind.
func (k Kind) Message() string {
	switch k {
	case KindApplyFailed:
		return "Failed to apply blocking"
	case KindCopyFailed:
		return "Failed to copy hosts file"
	case KindDownloadFailed:
		return "Failed to retrieve hosts source"
	case KindNoConnection:
		return "No connection"
	case KindNotEnoughSpace:
		return "Not enough space"
	case KindPermissionDenied:
		return "Permission denied"
	case KindPrivateFileFailed:
		return "Failed to write private file"
	case KindRevertFailed:
		return "Failed to revert blocking"
	case KindSourceNotFound:
		return "Hosts source not found"
	default:
		return "Unknown error"
	}
}

// HostError is the domain error raised by collaborators.
type HostError struct {
	Kind   Kind
	Detail string // source label or affected path, may be empty
	Err    error  // underlying cause, may be nil
}

// New creates a HostError without an underlying cause.
func New(kind Kind, detail string) *HostError {
	return &HostError{Kind: kind, Detail: detail}
}

// Wrap creates a HostError around err.
func Wrap(kind Kind, detail string, err error) *HostError {
	return &HostError{Kind: kind, Detail: detail, Err: err}
}

// AsHostError reports whether err is, or wraps, a HostError.
func AsHostError(err error) (*HostError, bool) {
	var hostErr *HostError
	if errors.As(err, &hostErr) {
		return hostErr, true
	}

	return nil, false
}

// Error implements the error interface.
func (e *HostError) Error() string {
	var builder strings.Builder
	builder.WriteString(e.Kind.Message())

	if e.Detail != "" {
		builder.WriteString(": ")
		builder.WriteString(e.Detail)
	}

	if e.Err != nil {
		builder.WriteString(": ")
		builder.WriteString(e.Err.Error())
	}

	return builder.String()
}

// Suggestions returns actionable hints for the error.
func (e *HostError) Suggestions() []string {
	return NewSuggestionGenerator().Generate(e.Kind, e.Detail)
}

// Unwrap returns the underlying cause.
func (e *HostError) Unwrap() error {
	return e.Err
}

// FormatSuggestions formats the suggestions of a HostError as a bulleted list
// for display in the TUI. Returns empty string if err is nil, is not a
// HostError, or has no suggestions.
func FormatSuggestions(err error) string {
	if err == nil {
		return ""
	}

	hostErr, ok := AsHostError(err)
	if !ok {
		return ""
	}

	suggestions := hostErr.Suggestions()
	if len(suggestions) == 0 {
		return ""
	}

	var builder strings.Builder
	for i, suggestion := range suggestions {
		if i > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString("  • ")
		builder.WriteString(suggestion)
	}

	return builder.String()
}
