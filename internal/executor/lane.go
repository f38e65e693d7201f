// Package executor runs background work on sequential lanes.
//
// A Lane drains a FIFO queue on a single goroutine: tasks on one lane never
// overlap, while separate lanes run concurrently with each other and with the
// submitter. Submission never blocks. There is no priority and no
// cancellation; a submitted task always runs to completion.
package executor

import (
	"log/slog"
	"sync"
	"time"
)

// Exported constants.
const (
	// LaneDisk is the name of the lane for disk-bound work.
	LaneDisk = "disk"
	// LaneNetwork is the name of the lane for network-bound work.
	LaneNetwork = "network"
)

// Runner accepts tasks for background execution.
type Runner interface {
	Submit(task func())
}

// Lane is a named sequential task queue with one worker goroutine.
type Lane struct {
	name    string
	logger  *slog.Logger
	metrics *Metrics

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func()
	running bool
	closed  bool
	done    chan struct{}
}

// NewLane creates a lane and starts its worker. metrics may be nil.
func NewLane(name string, logger *slog.Logger, metrics *Metrics) *Lane {
	lane := &Lane{
		name:    name,
		logger:  logger.With("lane", name),
		metrics: metrics,
		done:    make(chan struct{}),
	}
	lane.cond = sync.NewCond(&lane.mu)

	go lane.work()

	return lane
}

// Close stops accepting tasks, runs everything already queued and stops the
// worker. It blocks until the worker has exited.
func (l *Lane) Close() {
	l.mu.Lock()
	l.closed = true
	l.cond.Broadcast()
	l.mu.Unlock()

	<-l.done
}

// Idle reports whether the queue is empty and no task is running.
func (l *Lane) Idle() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.queue) == 0 && !l.running
}

// Name returns the lane name.
func (l *Lane) Name() string {
	return l.name
}

// Submit appends task to the queue and returns immediately.
// Tasks submitted after Close are dropped and logged.
func (l *Lane) Submit(task func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		l.logger.Error("task submitted to closed lane, dropping")
		return
	}

	l.queue = append(l.queue, task)
	l.metrics.submitted(l.name, len(l.queue))
	l.cond.Broadcast()
}

// Wait blocks until the queue is empty and no task is running.
func (l *Lane) Wait() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for len(l.queue) > 0 || l.running {
		l.cond.Wait()
	}
}

func (l *Lane) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for len(l.queue) == 0 && !l.closed {
		l.cond.Wait()
	}

	if len(l.queue) == 0 {
		return nil, false
	}

	task := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	l.running = true

	return task, true
}

func (l *Lane) finish(started time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.metrics.completed(l.name, len(l.queue), time.Since(started))
	l.running = false
	l.cond.Broadcast()
}

// work runs tasks one at a time. A panicking task is not recovered: it is a
// programming defect and takes the process down.
func (l *Lane) work() {
	defer close(l.done)

	for {
		task, ok := l.next()
		if !ok {
			l.logger.Debug("lane stopped")
			return
		}

		started := time.Now()
		task()
		l.finish(started)
	}
}

// Lanes bundles the network and disk lanes.
type Lanes struct {
	Network *Lane
	Disk    *Lane
}

// NewLanes creates and starts both lanes.
func NewLanes(logger *slog.Logger, metrics *Metrics) *Lanes {
	return &Lanes{
		Network: NewLane(LaneNetwork, logger, metrics),
		Disk:    NewLane(LaneDisk, logger, metrics),
	}
}

// Close drains and stops both lanes.
func (l *Lanes) Close() {
	l.Disk.Close()
	l.Network.Close()
}

// Wait blocks until both lanes are idle. Disk tasks may chain into the
// network lane, so the disk lane is drained first and the check repeats until
// both are idle at once.
func (l *Lanes) Wait() {
	for {
		l.Disk.Wait()
		l.Network.Wait()

		if l.Disk.Idle() && l.Network.Idle() {
			return
		}
	}
}
