package shared

import (
	"github.com/joe/hosts-sync/internal/controller"
)

// ControllerEventMsg wraps a controller.Event for use as a tea.Msg.
type ControllerEventMsg struct {
	Event controller.Event
}

// StateChangedMsg is sent when an observed value changed. The dashboard
// rereads the values when it renders, so the message carries nothing.
type StateChangedMsg struct{}
