package shared

import (
	"fmt"
	"strings"

	"github.com/joe/hosts-sync/internal/controller"
	"github.com/joe/hosts-sync/pkg/errors"
)

// RenderLatestError renders the most recent failure with its suggestions.
// Lines longer than maxWidth are truncated when maxWidth > 0.
func RenderLatestError(record controller.ErrorRecord, maxWidth int) string {
	var builder strings.Builder

	fmt.Fprintf(&builder, "%s %s\n",
		RenderError(OperationLabel(record.Operation)+" failed"),
		RenderDim(record.At.Format("15:04:05")))

	msg := record.Err.Error()
	if maxWidth > 3 && len(msg) > maxWidth {
		msg = msg[:maxWidth-3] + "..."
	}

	fmt.Fprintf(&builder, "  %s", msg)

	if suggestions := errors.FormatSuggestions(record.Err); suggestions != "" {
		builder.WriteString("\n")
		builder.WriteString(strings.TrimRight(suggestions, "\n"))
	}

	return builder.String()
}
