package shared

import (
	"fmt"
	"strings"
	"time"

	"github.com/joe/hosts-sync/internal/controller"
)

// FormatEvent renders a controller event as one activity line stamped with
// at. Events without a line (queued) return "".
func FormatEvent(event controller.Event, at time.Time) string {
	stamp := at.Format("15:04:05")

	switch e := event.(type) {
	case controller.OperationStarted:
		return fmt.Sprintf("%s %s started", stamp, OperationLabel(e.Op))
	case controller.OperationCompleted:
		return fmt.Sprintf("%s %s done in %s", stamp, OperationLabel(e.Op), e.Elapsed.Round(time.Millisecond))
	case controller.OperationFailed:
		return fmt.Sprintf("%s %s failed: %s", stamp, OperationLabel(e.Op), e.Err.Kind.Message())
	default:
		return ""
	}
}

// OperationLabel is the user-facing name of an operation.
func OperationLabel(op controller.Operation) string {
	switch op {
	case controller.OpCheckUpdate:
		return "update check"
	case controller.OpEnableAllSources:
		return "enable sources"
	case controller.OpSetSourceEnabled:
		return "source toggle"
	case controller.OpSync:
		return "sync"
	case controller.OpToggleBlocking:
		return "toggle blocking"
	case controller.OpUpdate:
		return "source check"
	default:
		return string(op)
	}
}

// RenderActivityLog renders a chronological activity log with optional title.
// Entries are displayed oldest to newest. If maxEntries > 0, only the most
// recent N entries are shown.
func RenderActivityLog(title string, entries []string, maxEntries int) string {
	var builder strings.Builder

	trimmedTitle := strings.TrimSpace(title)
	if trimmedTitle != "" {
		builder.WriteString(RenderLabel(trimmedTitle))
		builder.WriteString("\n")
	}

	if len(entries) == 0 {
		builder.WriteString(RenderDim("  no activity yet"))
		return builder.String()
	}

	startIdx := 0
	if maxEntries > 0 && maxEntries < len(entries) {
		startIdx = len(entries) - maxEntries
	}

	for i := startIdx; i < len(entries); i++ {
		builder.WriteString("  ")
		builder.WriteString(entries[i])

		if i < len(entries)-1 {
			builder.WriteString("\n")
		}
	}

	return builder.String()
}
