package errors

import "fmt"

// SuggestionGenerator generates actionable suggestions based on error kind.
type SuggestionGenerator interface {
	Generate(kind Kind, detail string) []string
}

// NewSuggestionGenerator creates a new SuggestionGenerator.
func NewSuggestionGenerator() SuggestionGenerator {
	return &suggestionGenerator{}
}

// suggestionGenerator is the concrete implementation of SuggestionGenerator.
type suggestionGenerator struct{}

// Generate returns actionable suggestions based on the error kind and detail.
func (g *suggestionGenerator) Generate(kind Kind, detail string) []string {
	switch kind {
	case KindPermissionDenied, KindPrivateFileFailed:
		return g.generatePermissionSuggestions(detail)
	case KindNotEnoughSpace:
		return g.generateDiskSpaceSuggestions(detail)
	case KindDownloadFailed:
		return g.generateSourceSuggestions(detail)
	case KindNoConnection:
		return g.generateConnectionSuggestions()
	case KindCopyFailed, KindApplyFailed:
		return g.generateApplySuggestions(detail)
	case KindRevertFailed:
		return g.generateRevertSuggestions(detail)
	case KindSourceNotFound:
		return g.generateNotFoundSuggestions(detail)
	default:
		return g.generateUnknownSuggestions(detail)
	}
}

func (g *suggestionGenerator) generateApplySuggestions(path string) []string {
	suggestions := []string{
		"Check if there is sufficient disk space for the hosts file",
	}

	if path != "" {
		suggestions = append(suggestions, "Verify the hosts file location is writable: "+path)
	}

	return append(suggestions, "Try the operation again - this may be a transient I/O error")
}

func (g *suggestionGenerator) generateConnectionSuggestions() []string {
	return []string{
		"Check your network connection",
		"Try again once the connection is restored",
	}
}

func (g *suggestionGenerator) generateDiskSpaceSuggestions(path string) []string {
	suggestions := []string{
		"Free up space on the device",
		"Check available space with 'df -h'",
	}

	if path != "" {
		suggestions = append(suggestions, "Verify disk usage for the filesystem containing "+path)
	}

	return suggestions
}

func (g *suggestionGenerator) generateNotFoundSuggestions(source string) []string {
	suggestions := []string{}

	if source != "" {
		suggestions = append(suggestions, "Give the path relative to the sources directory: "+source)
	}

	return append(suggestions, "Check for source updates so new files are discovered")
}

func (g *suggestionGenerator) generatePermissionSuggestions(path string) []string {
	suggestions := []string{
		"Ensure you have read/write permissions for the hosts file and cache directory",
	}

	if path != "" {
		suggestions = append(suggestions, fmt.Sprintf("Check permissions with 'ls -la %s'", path))
	}

	return append(suggestions, "Try running with appropriate permissions or as a privileged user")
}

func (g *suggestionGenerator) generateRevertSuggestions(path string) []string {
	suggestions := []string{
		"Blocking may still be applied",
	}

	if path != "" {
		suggestions = append(suggestions, "Remove the generated hosts file manually: "+path)
	}

	return suggestions
}

func (g *suggestionGenerator) generateSourceSuggestions(source string) []string {
	suggestions := []string{
		"Verify the hosts source still exists",
	}

	if source != "" {
		suggestions = append(suggestions, "Check the source location: "+source)
	}

	return append(suggestions, "Disable the source if it is no longer available")
}

func (g *suggestionGenerator) generateUnknownSuggestions(detail string) []string {
	suggestions := []string{
		"Check the log file for more details",
	}

	if detail != "" {
		suggestions = append(suggestions, "Verify the path is accessible: "+detail)
	}

	return suggestions
}
