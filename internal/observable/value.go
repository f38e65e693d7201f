// Package observable provides push-style value holders.
//
// A Value has one writer and any number of observers. Observers receive the
// current value when they register and every later change, in write order.
package observable

import "sync"

// Value is a thread-safe observable holder for a single value.
type Value[T any] struct {
	// notifyMu serializes writes with their delivery so observers see
	// changes in the order they were written.
	notifyMu  sync.Mutex
	mu        sync.RWMutex
	value     T
	set       bool
	observers map[int]func(T)
	nextID    int
}

// New creates a Value holding initial.
func New[T any](initial T) *Value[T] {
	return &Value[T]{
		value:     initial,
		set:       true,
		observers: make(map[int]func(T)),
	}
}

// NewUnset creates a Value that has no value until the first Set.
func NewUnset[T any]() *Value[T] {
	return &Value[T]{
		observers: make(map[int]func(T)),
	}
}

// Get returns the current value and whether one was ever set.
func (v *Value[T]) Get() (T, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return v.value, v.set
}

// Observe registers fn and immediately calls it with the current value, if
// any. The returned function removes the observer.
//
// fn runs on the writer's goroutine and must not call Set or Observe on the
// same Value.
func (v *Value[T]) Observe(fn func(T)) (cancel func()) {
	v.notifyMu.Lock()
	defer v.notifyMu.Unlock()

	v.mu.Lock()
	if v.observers == nil {
		v.observers = make(map[int]func(T))
	}
	id := v.nextID
	v.nextID++
	v.observers[id] = fn
	current, isSet := v.value, v.set
	v.mu.Unlock()

	if isSet {
		fn(current)
	}

	var once sync.Once

	return func() {
		once.Do(func() {
			v.mu.Lock()
			delete(v.observers, id)
			v.mu.Unlock()
		})
	}
}

// Set stores value and notifies every observer.
func (v *Value[T]) Set(value T) {
	v.notifyMu.Lock()
	defer v.notifyMu.Unlock()

	v.mu.Lock()
	v.value = value
	v.set = true
	observers := make([]func(T), 0, len(v.observers))
	for _, fn := range v.observers {
		observers = append(observers, fn)
	}
	v.mu.Unlock()

	for _, fn := range observers {
		fn(value)
	}
}
