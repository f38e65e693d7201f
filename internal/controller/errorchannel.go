package controller

import (
	"time"

	"github.com/joe/hosts-sync/internal/observable"
	"github.com/joe/hosts-sync/pkg/errors"
)

// ErrorRecord is a failure published by a background operation.
type ErrorRecord struct {
	Err         *errors.HostError
	Operation   Operation
	OperationID string
	At          time.Time
}

// Kind returns the classification of the failure.
func (r ErrorRecord) Kind() errors.Kind {
	if r.Err == nil {
		return errors.KindUnknown
	}

	return r.Err.Kind
}

// ErrorChannel holds the most recent failure. Publishing overwrites the
// previous record whether or not it was observed; reading does not clear it.
type ErrorChannel struct {
	latest *observable.Value[ErrorRecord]
}

// NewErrorChannel creates an empty error channel.
func NewErrorChannel() *ErrorChannel {
	return &ErrorChannel{
		latest: observable.NewUnset[ErrorRecord](),
	}
}

// Latest returns the most recent record, if any.
func (c *ErrorChannel) Latest() (ErrorRecord, bool) {
	return c.latest.Get()
}

// Observe calls fn with the current record, if any, and every later one.
func (c *ErrorChannel) Observe(fn func(ErrorRecord)) (cancel func()) {
	return c.latest.Observe(fn)
}

// Publish replaces the current record.
func (c *ErrorChannel) Publish(record ErrorRecord) {
	c.latest.Set(record)
}
