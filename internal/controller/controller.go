// Package controller coordinates the source, blocking and update models.
//
// SyncController turns user actions into tasks on two background lanes and
// reports their failures to a single ErrorChannel. Disk-bound actions
// (toggling, enabling sources) run on the disk lane; network-bound actions
// (source update checks, sync, the startup release check) run on the network
// lane. Every action returns as soon as its task is queued.
package controller

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joe/hosts-sync/internal/executor"
	"github.com/joe/hosts-sync/internal/observable"
	"github.com/joe/hosts-sync/internal/update"
	"github.com/joe/hosts-sync/pkg/errors"
)

// Operation names a controller action.
type Operation string

// Exported constants.
const (
	OpCheckUpdate      Operation = "check_update"
	OpEnableAllSources Operation = "enable_all_sources"
	OpSetSourceEnabled Operation = "set_source_enabled"
	OpSync             Operation = "sync"
	OpToggleBlocking   Operation = "toggle_blocking"
	OpUpdate           Operation = "update"
)

// Deps holds everything a SyncController needs.
type Deps struct {
	Sources  SourceModel
	Blocking AdBlockModel
	Updates  UpdateModel
	Counts   CountsProvider

	Network executor.Runner
	Disk    executor.Runner

	Logger  *slog.Logger
	Emitter EventEmitter  // optional
	Errors  *ErrorChannel // optional, created when nil
}

// SyncController is the coordinator behind the dashboard.
type SyncController struct {
	sources  SourceModel
	blocking AdBlockModel
	updates  UpdateModel
	counts   CountsProvider
	network  executor.Runner
	disk     executor.Runner
	logger   *slog.Logger
	emitter  EventEmitter
	errors   *ErrorChannel
}

// New creates a controller and queues the startup release check on the
// network lane. That check is best effort: its failure is logged and never
// published to the error channel.
func New(deps Deps) *SyncController {
	errorChannel := deps.Errors
	if errorChannel == nil {
		errorChannel = NewErrorChannel()
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &SyncController{
		sources:  deps.Sources,
		blocking: deps.Blocking,
		updates:  deps.Updates,
		counts:   deps.Counts,
		network:  deps.Network,
		disk:     deps.Disk,
		logger:   logger,
		emitter:  deps.Emitter,
		errors:   errorChannel,
	}

	id := uuid.NewString()
	c.network.Submit(func() {
		if err := c.updates.CheckUpdate(); err != nil {
			c.logger.Debug("startup update check failed", "op", OpCheckUpdate, "id", id, "error", err)
		}
	})

	return c
}

// EnableAllSources enables every source on the disk lane and, if anything
// changed, continues with Sync.
func (c *SyncController) EnableAllSources() {
	c.submit(c.disk, executor.LaneDisk, OpEnableAllSources, func() error {
		if c.sources.EnableAllSources() {
			c.Sync()
		}

		return nil
	})
}

// SetSourceEnabled enables or disables one source on the disk lane and, if
// it changed, continues with Sync. An unknown source is published as a
// KindSourceNotFound failure.
func (c *SyncController) SetSourceEnabled(sourcePath string, enabled bool) {
	c.submit(c.disk, executor.LaneDisk, OpSetSourceEnabled, func() error {
		changed, err := c.sources.SetEnabled(sourcePath, enabled)
		if err != nil {
			return err
		}

		if changed {
			c.Sync()
		}

		return nil
	})
}

// Sync retrieves sources and then applies blocking, on the network lane.
// Blocking is never applied when retrieval fails.
func (c *SyncController) Sync() {
	c.submit(c.network, executor.LaneNetwork, OpSync, func() error {
		err := c.sources.RetrieveHostsSources()
		if err != nil {
			return err
		}

		return c.blocking.Apply()
	})
}

// ToggleBlocking reverts blocking if it is applied and applies it otherwise.
// Toggles run one at a time on the disk lane, each seeing the state left by
// the previous one.
func (c *SyncController) ToggleBlocking() {
	c.submit(c.disk, executor.LaneDisk, OpToggleBlocking, func() error {
		if applied, _ := c.blocking.IsApplied().Get(); applied {
			return c.blocking.Revert()
		}

		return c.blocking.Apply()
	})
}

// Update checks the sources for updates on the network lane.
func (c *SyncController) Update() {
	c.submit(c.network, executor.LaneNetwork, OpUpdate, c.sources.CheckForUpdate)
}

// AllowedHostCount returns the number of allowed hosts.
func (c *SyncController) AllowedHostCount() *observable.Value[int] {
	return c.counts.AllowedHostCount()
}

// AppManifest returns the latest release manifest.
func (c *SyncController) AppManifest() *observable.Value[*update.Manifest] {
	return c.updates.Manifest()
}

// BlockedHostCount returns the number of blocked hosts.
func (c *SyncController) BlockedHostCount() *observable.Value[int] {
	return c.counts.BlockedHostCount()
}

// Errors returns the error channel.
func (c *SyncController) Errors() *ErrorChannel {
	return c.errors
}

// IsAdBlocked returns whether blocking is applied.
func (c *SyncController) IsAdBlocked() *observable.Value[bool] {
	return c.blocking.IsApplied()
}

// IsUpdateAvailable returns whether a source update is available.
func (c *SyncController) IsUpdateAvailable() *observable.Value[bool] {
	return c.sources.IsUpdateAvailable()
}

// OutdatedSourceCount returns the number of outdated sources.
func (c *SyncController) OutdatedSourceCount() *observable.Value[int] {
	return c.counts.OutdatedSourceCount()
}

// RedirectHostCount returns the number of redirected hosts.
func (c *SyncController) RedirectHostCount() *observable.Value[int] {
	return c.counts.RedirectHostCount()
}

// UpToDateSourceCount returns the number of up-to-date sources.
func (c *SyncController) UpToDateSourceCount() *observable.Value[int] {
	return c.counts.UpToDateSourceCount()
}

// VersionName returns the running application version.
func (c *SyncController) VersionName() string {
	return c.updates.VersionName()
}

// emit sends an event if an emitter is configured.
func (c *SyncController) emit(event Event) {
	if c.emitter != nil {
		c.emitter.Emit(event)
	}
}

// run executes body and routes its outcome. Only HostErrors are reported;
// any other error panics, since collaborators must classify their failures.
func (c *SyncController) run(op Operation, id string, body func() error) {
	started := time.Now()
	c.emit(OperationStarted{Op: op, ID: id})

	err := body()
	if err == nil {
		c.logger.Debug("operation complete", "op", op, "id", id, "elapsed", time.Since(started))
		c.emit(OperationCompleted{Op: op, ID: id, Elapsed: time.Since(started)})

		return
	}

	hostErr, ok := errors.AsHostError(err)
	if !ok {
		panic(fmt.Errorf("%s %s: unclassified collaborator error: %w", op, id, err))
	}

	c.logger.Warn("operation failed", "op", op, "id", id, "kind", hostErr.Kind, "error", hostErr)
	c.errors.Publish(ErrorRecord{
		Err:         hostErr,
		Operation:   op,
		OperationID: id,
		At:          time.Now(),
	})
	c.emit(OperationFailed{Op: op, ID: id, Err: hostErr})
}

func (c *SyncController) submit(lane executor.Runner, laneName string, op Operation, body func() error) {
	id := uuid.NewString()
	c.emit(OperationQueued{Op: op, ID: id, Lane: laneName})
	lane.Submit(func() { c.run(op, id, body) })
}
