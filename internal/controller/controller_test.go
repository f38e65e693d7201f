//nolint:varnamelen // Test files use idiomatic short variable names (t, g, etc.)
package controller_test

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/hosts-sync/internal/controller"
	"github.com/joe/hosts-sync/internal/executor"
	pkgerrors "github.com/joe/hosts-sync/pkg/errors"
)

type harness struct {
	sources  *fakeSources
	blocking *fakeBlocking
	updates  *fakeUpdates
	counts   *fakeCounts
	emitter  *recordingEmitter
	lanes    *executor.Lanes
	ctrl     *controller.SyncController
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newHarness wires a controller to fakes and real lanes.
func newHarness(t *testing.T, applied bool) *harness {
	t.Helper()

	h := &harness{
		sources:  newFakeSources(),
		blocking: newFakeBlocking(applied),
		updates:  newFakeUpdates(),
		counts:   newFakeCounts(),
		emitter:  &recordingEmitter{},
		lanes:    executor.NewLanes(discardLogger(), nil),
	}
	t.Cleanup(h.lanes.Close)

	return h
}

func (h *harness) start() *controller.SyncController {
	h.ctrl = controller.New(controller.Deps{
		Sources:  h.sources,
		Blocking: h.blocking,
		Updates:  h.updates,
		Counts:   h.counts,
		Network:  h.lanes.Network,
		Disk:     h.lanes.Disk,
		Logger:   discardLogger(),
		Emitter:  h.emitter,
	})

	return h.ctrl
}

func TestNew_RunsStartupUpdateCheck(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	h := newHarness(t, false)
	h.start()
	h.lanes.Wait()

	g.Expect(h.updates.calls.Load()).To(Equal(int32(1)))
}

func TestNew_StartupCheckFailureNeverReachesErrorChannel(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	h := newHarness(t, false)
	h.updates.checkErr = pkgerrors.New(pkgerrors.KindNoConnection, "")
	ctrl := h.start()
	h.lanes.Wait()

	g.Expect(h.updates.calls.Load()).To(Equal(int32(1)))
	_, published := ctrl.Errors().Latest()
	g.Expect(published).To(BeFalse())
}

func TestNew_StartupCheckIsQueuedOnNetworkLane(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	network, disk := &recordingRunner{}, &recordingRunner{}
	updates := newFakeUpdates()

	controller.New(controller.Deps{
		Sources:  newFakeSources(),
		Blocking: newFakeBlocking(false),
		Updates:  updates,
		Counts:   newFakeCounts(),
		Network:  network,
		Disk:     disk,
		Logger:   discardLogger(),
	})

	// Construction only queues the check; it does not run it.
	g.Expect(network.len()).To(Equal(1))
	g.Expect(disk.len()).To(Equal(0))
	g.Expect(updates.calls.Load()).To(Equal(int32(0)))

	network.runNext()
	g.Expect(updates.calls.Load()).To(Equal(int32(1)))
}

func TestToggleBlocking_RevertsWhenApplied(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	h := newHarness(t, true)
	ctrl := h.start()

	ctrl.ToggleBlocking()
	h.lanes.Wait()

	g.Expect(h.blocking.callsOf("revert")).To(Equal(1))
	g.Expect(h.blocking.callsOf("apply")).To(Equal(0))

	applied, _ := ctrl.IsAdBlocked().Get()
	g.Expect(applied).To(BeFalse())
}

func TestToggleBlocking_AppliesWhenUnknown(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	h := newHarness(t, false)
	h.blocking = newUnknownBlocking()
	ctrl := h.start()

	ctrl.ToggleBlocking()
	h.lanes.Wait()

	g.Expect(h.blocking.recorded()).To(Equal([]string{"apply"}))
}

func TestToggleBlocking_RapidTogglesAreSerialized(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	h := newHarness(t, false)
	h.blocking.delay = 2 * time.Millisecond
	ctrl := h.start()

	for range 10 {
		ctrl.ToggleBlocking()
	}
	h.lanes.Wait()

	// Each toggle saw the state left by the previous one.
	expected := []string{}
	for i := range 10 {
		if i%2 == 0 {
			expected = append(expected, "apply")
		} else {
			expected = append(expected, "revert")
		}
	}
	g.Expect(h.blocking.recorded()).To(Equal(expected))
	g.Expect(h.blocking.overlaps.Load()).To(Equal(int32(0)))

	applied, _ := ctrl.IsAdBlocked().Get()
	g.Expect(applied).To(BeFalse())
}

func TestToggleBlocking_ReturnsBeforeTaskRuns(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	network, disk := &recordingRunner{}, &recordingRunner{}
	blocking := newFakeBlocking(false)

	ctrl := controller.New(controller.Deps{
		Sources:  newFakeSources(),
		Blocking: blocking,
		Updates:  newFakeUpdates(),
		Counts:   newFakeCounts(),
		Network:  network,
		Disk:     disk,
		Logger:   discardLogger(),
	})

	ctrl.ToggleBlocking()

	g.Expect(disk.len()).To(Equal(1))
	g.Expect(blocking.recorded()).To(BeEmpty())

	disk.runNext()
	g.Expect(blocking.recorded()).To(Equal([]string{"apply"}))
}

func TestToggleBlocking_FailurePublishesKind(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	h := newHarness(t, false)
	h.blocking.applyErr = pkgerrors.New(pkgerrors.KindPermissionDenied, "/etc/hosts")
	ctrl := h.start()

	ctrl.ToggleBlocking()
	h.lanes.Wait()

	record, ok := ctrl.Errors().Latest()
	g.Expect(ok).To(BeTrue())
	g.Expect(record.Kind()).To(Equal(pkgerrors.KindPermissionDenied))
	g.Expect(record.Operation).To(Equal(controller.OpToggleBlocking))

	applied, _ := ctrl.IsAdBlocked().Get()
	g.Expect(applied).To(BeFalse())
}

func TestUpdate_ChecksSources(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	h := newHarness(t, false)
	ctrl := h.start()

	ctrl.Update()
	h.lanes.Wait()

	g.Expect(h.sources.checkCalls.Load()).To(Equal(int32(1)))
	_, published := ctrl.Errors().Latest()
	g.Expect(published).To(BeFalse())
}

func TestUpdate_FailurePublishesError(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	h := newHarness(t, false)
	h.sources.checkErr = pkgerrors.New(pkgerrors.KindNoConnection, "")
	ctrl := h.start()

	ctrl.Update()
	h.lanes.Wait()

	record, ok := ctrl.Errors().Latest()
	g.Expect(ok).To(BeTrue())
	g.Expect(record.Kind()).To(Equal(pkgerrors.KindNoConnection))
	g.Expect(record.Operation).To(Equal(controller.OpUpdate))
}

func TestSync_RetrievesThenApplies(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	h := newHarness(t, false)
	ctrl := h.start()

	ctrl.Sync()
	h.lanes.Wait()

	g.Expect(h.sources.retrieveCalls.Load()).To(Equal(int32(1)))
	g.Expect(h.blocking.recorded()).To(Equal([]string{"apply"}))

	applied, _ := ctrl.IsAdBlocked().Get()
	g.Expect(applied).To(BeTrue())
}

func TestSync_NeverAppliesAfterFailedRetrieval(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	h := newHarness(t, false)
	h.sources.retrieveErr = pkgerrors.New(pkgerrors.KindDownloadFailed, "easylist")
	ctrl := h.start()

	for range 3 {
		ctrl.Sync()
	}
	h.lanes.Wait()

	g.Expect(h.sources.retrieveCalls.Load()).To(Equal(int32(3)))
	g.Expect(h.blocking.callsOf("apply")).To(Equal(0))

	record, ok := ctrl.Errors().Latest()
	g.Expect(ok).To(BeTrue())
	g.Expect(record.Kind()).To(Equal(pkgerrors.KindDownloadFailed))
	g.Expect(record.Operation).To(Equal(controller.OpSync))
}

func TestSync_ApplyFailurePublishesItsKind(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	h := newHarness(t, false)
	h.blocking.applyErr = pkgerrors.New(pkgerrors.KindNotEnoughSpace, "/tmp/hosts")
	ctrl := h.start()

	ctrl.Sync()
	h.lanes.Wait()

	g.Expect(h.sources.retrieveCalls.Load()).To(Equal(int32(1)))

	record, ok := ctrl.Errors().Latest()
	g.Expect(ok).To(BeTrue())
	g.Expect(record.Kind()).To(Equal(pkgerrors.KindNotEnoughSpace))
}

func TestEnableAllSources_ChangedTriggersSync(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	network, disk := &recordingRunner{}, &recordingRunner{}
	sources := newFakeSources()
	sources.enableChanged = true
	blocking := newFakeBlocking(false)

	controller.New(controller.Deps{
		Sources:  sources,
		Blocking: blocking,
		Updates:  newFakeUpdates(),
		Counts:   newFakeCounts(),
		Network:  network,
		Disk:     disk,
		Logger:   discardLogger(),
	}).EnableAllSources()

	g.Expect(disk.len()).To(Equal(1))
	g.Expect(network.len()).To(Equal(1)) // startup check

	disk.runNext()
	g.Expect(sources.enableCalls.Load()).To(Equal(int32(1)))
	g.Expect(network.len()).To(Equal(2))

	network.runNext() // startup check
	network.runNext() // sync
	g.Expect(sources.retrieveCalls.Load()).To(Equal(int32(1)))
	g.Expect(blocking.recorded()).To(Equal([]string{"apply"}))
}

func TestEnableAllSources_UnchangedSchedulesNothing(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	network, disk := &recordingRunner{}, &recordingRunner{}
	sources := newFakeSources()
	sources.enableChanged = false

	controller.New(controller.Deps{
		Sources:  sources,
		Blocking: newFakeBlocking(false),
		Updates:  newFakeUpdates(),
		Counts:   newFakeCounts(),
		Network:  network,
		Disk:     disk,
		Logger:   discardLogger(),
	}).EnableAllSources()

	disk.runNext()

	g.Expect(sources.enableCalls.Load()).To(Equal(int32(1)))
	g.Expect(network.len()).To(Equal(1)) // only the startup check
	g.Expect(sources.retrieveCalls.Load()).To(Equal(int32(0)))
}

func TestSetSourceEnabled_ChangedTriggersSync(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	network, disk := &recordingRunner{}, &recordingRunner{}
	sources := newFakeSources()
	sources.setChanged = true
	blocking := newFakeBlocking(true)

	controller.New(controller.Deps{
		Sources:  sources,
		Blocking: blocking,
		Updates:  newFakeUpdates(),
		Counts:   newFakeCounts(),
		Network:  network,
		Disk:     disk,
		Logger:   discardLogger(),
	}).SetSourceEnabled("ads.txt", false)

	g.Expect(disk.len()).To(Equal(1))
	disk.runNext()
	g.Expect(sources.setCalls.Load()).To(Equal(int32(1)))
	g.Expect(network.len()).To(Equal(2), "startup check and sync")

	network.runNext()
	network.runNext()
	g.Expect(sources.retrieveCalls.Load()).To(Equal(int32(1)))
	g.Expect(blocking.recorded()).To(Equal([]string{"apply"}))
}

func TestSetSourceEnabled_UnknownSourceIsPublished(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	h := newHarness(t, false)
	h.sources.setErr = pkgerrors.Wrap(pkgerrors.KindSourceNotFound, "missing.txt", pkgerrors.ErrSourceNotFound)
	ctrl := h.start()

	ctrl.SetSourceEnabled("missing.txt", true)
	h.lanes.Wait()

	record, ok := ctrl.Errors().Latest()
	g.Expect(ok).To(BeTrue())
	g.Expect(record.Operation).To(Equal(controller.OpSetSourceEnabled))
	g.Expect(record.Kind()).To(Equal(pkgerrors.KindSourceNotFound))
	g.Expect(h.sources.retrieveCalls.Load()).To(Equal(int32(0)))
}

func TestErrorChannel_LastWriteWinsAcrossLanes(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	h := newHarness(t, false)
	errA := pkgerrors.New(pkgerrors.KindApplyFailed, "a")
	errB := pkgerrors.New(pkgerrors.KindNoConnection, "b")
	h.blocking.applyErr = errA
	h.sources.checkErr = errB
	ctrl := h.start()

	var seen []controller.ErrorRecord
	ctrl.Errors().Observe(func(r controller.ErrorRecord) { seen = append(seen, r) })

	ctrl.ToggleBlocking() // A on the disk lane
	h.lanes.Disk.Wait()
	ctrl.Update() // B on the network lane
	h.lanes.Wait()

	record, ok := ctrl.Errors().Latest()
	g.Expect(ok).To(BeTrue())
	g.Expect(record.Err).To(BeIdenticalTo(errB))
	g.Expect(record.Operation).To(Equal(controller.OpUpdate))

	g.Expect(seen).To(HaveLen(2))
	g.Expect(seen[0].Err).To(BeIdenticalTo(errA))
	g.Expect(seen[0].Operation).To(Equal(controller.OpToggleBlocking))
	g.Expect(seen[1].Err).To(BeIdenticalTo(errB))
	g.Expect(seen[0].OperationID).NotTo(Equal(seen[1].OperationID))
}

func TestErrorChannel_ConcurrentFailuresKeepWholeRecords(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	h := newHarness(t, false)
	errA := pkgerrors.New(pkgerrors.KindApplyFailed, "a")
	errB := pkgerrors.New(pkgerrors.KindNoConnection, "b")
	h.blocking.applyErr = errA
	h.sources.checkErr = errB
	ctrl := h.start()

	ctrl.ToggleBlocking()
	ctrl.Update()
	h.lanes.Wait()

	record, ok := ctrl.Errors().Latest()
	g.Expect(ok).To(BeTrue())

	// Whichever failure landed last, the record is entirely that failure.
	switch record.Operation {
	case controller.OpToggleBlocking:
		g.Expect(record.Err).To(BeIdenticalTo(errA))
	case controller.OpUpdate:
		g.Expect(record.Err).To(BeIdenticalTo(errB))
	default:
		t.Fatalf("unexpected operation %q", record.Operation)
	}
}

func TestRun_UnclassifiedErrorPanics(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	network, disk := &recordingRunner{}, &recordingRunner{}
	sources := newFakeSources()
	sources.checkErr = errors.New("not a host error")

	ctrl := controller.New(controller.Deps{
		Sources:  sources,
		Blocking: newFakeBlocking(false),
		Updates:  newFakeUpdates(),
		Counts:   newFakeCounts(),
		Network:  network,
		Disk:     disk,
		Logger:   discardLogger(),
	})
	network.runNext() // startup check

	ctrl.Update()

	g.Expect(network.runNext).To(Panic())
	_, published := ctrl.Errors().Latest()
	g.Expect(published).To(BeFalse())
}

func TestEvents_TrackOperationLifecycle(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	h := newHarness(t, false)
	h.sources.retrieveErr = pkgerrors.New(pkgerrors.KindDownloadFailed, "")
	ctrl := h.start()

	ctrl.Update()
	ctrl.Sync()
	h.lanes.Wait()

	events := h.emitter.snapshot()
	g.Expect(events).To(HaveLen(6))

	queued, ok := events[0].(controller.OperationQueued)
	g.Expect(ok).To(BeTrue())
	g.Expect(queued.Op).To(Equal(controller.OpUpdate))
	g.Expect(queued.Lane).To(Equal(executor.LaneNetwork))

	g.Expect(events).To(ContainElement(BeAssignableToTypeOf(controller.OperationCompleted{})))

	var failures []controller.OperationFailed
	for _, event := range events {
		if failed, ok := event.(controller.OperationFailed); ok {
			failures = append(failures, failed)
		}
	}
	g.Expect(failures).To(HaveLen(1))
	g.Expect(failures[0].Op).To(Equal(controller.OpSync))
	g.Expect(failures[0].Err.Kind).To(Equal(pkgerrors.KindDownloadFailed))
}

func TestAccessors_ExposeCollaboratorState(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	h := newHarness(t, true)
	ctrl := h.start()

	g.Expect(ctrl.VersionName()).To(Equal("1.2.3"))
	g.Expect(ctrl.IsUpdateAvailable()).To(BeIdenticalTo(h.sources.updateAvailable))
	g.Expect(ctrl.AppManifest()).To(BeIdenticalTo(h.updates.manifest))

	blocked, _ := ctrl.BlockedHostCount().Get()
	allowed, _ := ctrl.AllowedHostCount().Get()
	redirect, _ := ctrl.RedirectHostCount().Get()
	upToDate, _ := ctrl.UpToDateSourceCount().Get()
	outdated, _ := ctrl.OutdatedSourceCount().Get()
	g.Expect([]int{blocked, allowed, redirect, upToDate, outdated}).To(Equal([]int{10, 2, 1, 3, 4}))
}
