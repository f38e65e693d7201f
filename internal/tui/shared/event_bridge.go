package shared

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/hosts-sync/internal/controller"
	"github.com/joe/hosts-sync/internal/observable"
)

// EventBridge adapts controller events and observable changes to bubble tea
// messages. It implements controller.EventEmitter.
//
// Controller events are queued without bound and delivered in order. Value
// changes only mark the bridge dirty; any number of changes between two
// reads are delivered as one StateChangedMsg, since the dashboard reads the
// current values when it renders.
type EventBridge struct {
	mu      sync.Mutex
	events  []tea.Msg
	dirty   bool
	closed  bool
	cancels []func()
	wake    chan struct{}
}

// NewEventBridge creates a new event bridge.
func NewEventBridge() *EventBridge {
	return &EventBridge{
		wake: make(chan struct{}, 1),
	}
}

// Close stops all observations. Queued events are still delivered; after
// that Next reports the bridge closed.
func (b *EventBridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, cancel := range b.cancels {
		cancel()
	}
	b.cancels = nil

	if !b.closed {
		b.closed = true
		close(b.wake)
	}
}

// Emit implements controller.EventEmitter. It never blocks.
func (b *EventBridge) Emit(event controller.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.events = append(b.events, ControllerEventMsg{Event: event})
	b.signal()
}

// ListenCmd returns a tea.Cmd that blocks until a message is available.
// Use this in Init() or after processing a message to continue listening.
func (b *EventBridge) ListenCmd() tea.Cmd {
	return func() tea.Msg {
		msg, ok := b.Next()
		if !ok {
			return nil
		}

		return msg
	}
}

// Next blocks until a message is available and returns it. Queued controller
// events come first, then a pending state change. It returns false once the
// bridge is closed and drained.
func (b *EventBridge) Next() (tea.Msg, bool) {
	for {
		b.mu.Lock()

		if len(b.events) > 0 {
			msg := b.events[0]
			b.events[0] = nil
			b.events = b.events[1:]
			b.mu.Unlock()

			return msg, true
		}

		if b.dirty {
			b.dirty = false
			b.mu.Unlock()

			return StateChangedMsg{}, true
		}

		if b.closed {
			b.mu.Unlock()
			return nil, false
		}

		b.mu.Unlock()
		<-b.wake
	}
}

// NotifyErrors marks the state changed whenever an error is published.
func (b *EventBridge) NotifyErrors(errs *controller.ErrorChannel) {
	b.track(errs.Observe(func(controller.ErrorRecord) {
		b.markDirty()
	}))
}

// Notify marks the state changed whenever value changes.
func Notify[T any](b *EventBridge, value *observable.Value[T]) {
	b.track(value.Observe(func(T) {
		b.markDirty()
	}))
}

// markDirty runs on lane goroutines and never blocks.
func (b *EventBridge) markDirty() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.dirty = true
	b.signal()
}

// signal wakes a waiting reader. The caller holds mu and the bridge is open.
func (b *EventBridge) signal() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *EventBridge) track(cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		cancel()
		return
	}

	b.cancels = append(b.cancels, cancel)
}
