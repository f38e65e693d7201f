package controller_test

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/joe/hosts-sync/internal/controller"
	"github.com/joe/hosts-sync/internal/observable"
	"github.com/joe/hosts-sync/internal/update"
)

// fakeSources is a test double for controller.SourceModel.
type fakeSources struct {
	updateAvailable *observable.Value[bool]
	checkErr        error
	retrieveErr     error
	enableChanged   bool
	setErr          error
	setChanged      bool

	checkCalls    atomic.Int32
	retrieveCalls atomic.Int32
	enableCalls   atomic.Int32
	setCalls      atomic.Int32
}

func newFakeSources() *fakeSources {
	return &fakeSources{updateAvailable: observable.New(false)}
}

func (f *fakeSources) CheckForUpdate() error {
	f.checkCalls.Add(1)
	return f.checkErr
}

func (f *fakeSources) EnableAllSources() bool {
	f.enableCalls.Add(1)
	return f.enableChanged
}

func (f *fakeSources) IsUpdateAvailable() *observable.Value[bool] {
	return f.updateAvailable
}

func (f *fakeSources) SetEnabled(string, bool) (bool, error) {
	f.setCalls.Add(1)
	return f.setChanged, f.setErr
}

func (f *fakeSources) RetrieveHostsSources() error {
	f.retrieveCalls.Add(1)
	return f.retrieveErr
}

// fakeBlocking is a test double for controller.AdBlockModel. It records the
// order of calls and the applied state each call observed.
type fakeBlocking struct {
	applied  *observable.Value[bool]
	applyErr error
	delay    time.Duration

	mu       sync.Mutex
	calls    []string
	inFlight atomic.Int32
	overlaps atomic.Int32
}

func newFakeBlocking(applied bool) *fakeBlocking {
	return &fakeBlocking{applied: observable.New(applied)}
}

// newUnknownBlocking returns a blocking double whose state was never set.
func newUnknownBlocking() *fakeBlocking {
	return &fakeBlocking{applied: observable.NewUnset[bool]()}
}

func (f *fakeBlocking) Apply() error {
	return f.do("apply", true, f.applyErr)
}

func (f *fakeBlocking) IsApplied() *observable.Value[bool] {
	return f.applied
}

func (f *fakeBlocking) Revert() error {
	return f.do("revert", false, nil)
}

func (f *fakeBlocking) callsOf(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	count := 0
	for _, call := range f.calls {
		if call == name {
			count++
		}
	}

	return count
}

func (f *fakeBlocking) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.calls...)
}

func (f *fakeBlocking) do(name string, result bool, err error) error {
	if f.inFlight.Add(1) > 1 {
		f.overlaps.Add(1)
	}
	defer f.inFlight.Add(-1)

	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	if err != nil {
		return err
	}

	f.applied.Set(result)

	return nil
}

// fakeUpdates is a test double for controller.UpdateModel.
type fakeUpdates struct {
	checkErr error
	manifest *observable.Value[*update.Manifest]
	calls    atomic.Int32
}

func newFakeUpdates() *fakeUpdates {
	return &fakeUpdates{manifest: observable.NewUnset[*update.Manifest]()}
}

func (f *fakeUpdates) CheckUpdate() error {
	f.calls.Add(1)
	return f.checkErr
}

func (f *fakeUpdates) Manifest() *observable.Value[*update.Manifest] {
	return f.manifest
}

func (f *fakeUpdates) VersionName() string {
	return "1.2.3"
}

// fakeCounts is a test double for controller.CountsProvider.
type fakeCounts struct {
	blocked, allowed, redirect, upToDate, outdated *observable.Value[int]
}

func newFakeCounts() *fakeCounts {
	return &fakeCounts{
		blocked:  observable.New(10),
		allowed:  observable.New(2),
		redirect: observable.New(1),
		upToDate: observable.New(3),
		outdated: observable.New(4),
	}
}

func (f *fakeCounts) AllowedHostCount() *observable.Value[int]    { return f.allowed }
func (f *fakeCounts) BlockedHostCount() *observable.Value[int]    { return f.blocked }
func (f *fakeCounts) OutdatedSourceCount() *observable.Value[int] { return f.outdated }
func (f *fakeCounts) RedirectHostCount() *observable.Value[int]   { return f.redirect }
func (f *fakeCounts) UpToDateSourceCount() *observable.Value[int] { return f.upToDate }

// recordingRunner queues tasks without running them, so tests can count
// what was scheduled and run it by hand.
type recordingRunner struct {
	mu    sync.Mutex
	tasks []func()
}

func (r *recordingRunner) Submit(task func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tasks = append(r.tasks, task)
}

func (r *recordingRunner) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.tasks)
}

// runNext runs the oldest queued task.
func (r *recordingRunner) runNext() {
	r.mu.Lock()
	task := r.tasks[0]
	r.tasks = r.tasks[1:]
	r.mu.Unlock()

	task()
}

// recordingEmitter captures controller events.
type recordingEmitter struct {
	mu     sync.Mutex
	events []controller.Event
}

func (e *recordingEmitter) Emit(event controller.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.events = append(e.events, event)
}

func (e *recordingEmitter) snapshot() []controller.Event {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]controller.Event(nil), e.events...)
}
