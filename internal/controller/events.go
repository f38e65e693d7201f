package controller

import (
	"time"

	"github.com/joe/hosts-sync/pkg/errors"
)

// Event is the interface implemented by all controller events.
type Event interface {
	isEvent()
}

// EventEmitter receives controller events. Emit is called from the caller's
// goroutine and from both lanes, so implementations must be safe for
// concurrent use and must not block.
type EventEmitter interface {
	Emit(event Event)
}

// OperationQueued is emitted when an operation is submitted to a lane.
type OperationQueued struct {
	Op   Operation
	ID   string
	Lane string
}

func (OperationQueued) isEvent() {}

// OperationStarted is emitted when the lane starts running an operation.
type OperationStarted struct {
	Op Operation
	ID string
}

func (OperationStarted) isEvent() {}

// OperationCompleted is emitted when an operation finishes without error.
type OperationCompleted struct {
	Op      Operation
	ID      string
	Elapsed time.Duration
}

func (OperationCompleted) isEvent() {}

// OperationFailed is emitted after the failure was published to the error
// channel.
type OperationFailed struct {
	Op  Operation
	ID  string
	Err *errors.HostError
}

func (OperationFailed) isEvent() {}
