// Package tui renders the live dashboard: blocking state, host and source
// counts, running operations and the latest error, with keys bound to the
// controller actions.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/hosts-sync/internal/controller"
	"github.com/joe/hosts-sync/internal/observable"
	"github.com/joe/hosts-sync/internal/tui/shared"
	"github.com/joe/hosts-sync/internal/update"
)

// Controller is what the dashboard drives and observes.
type Controller interface {
	EnableAllSources()
	Sync()
	ToggleBlocking()
	Update()

	AllowedHostCount() *observable.Value[int]
	AppManifest() *observable.Value[*update.Manifest]
	BlockedHostCount() *observable.Value[int]
	Errors() *controller.ErrorChannel
	IsAdBlocked() *observable.Value[bool]
	IsUpdateAvailable() *observable.Value[bool]
	OutdatedSourceCount() *observable.Value[int]
	RedirectHostCount() *observable.Value[int]
	UpToDateSourceCount() *observable.Value[int]
	VersionName() string
}

// pendingOp is an operation that was queued and has not finished.
type pendingOp struct {
	id      string
	op      controller.Operation
	started time.Time // zero while queued
}

// Dashboard is the top-level bubble tea model.
type Dashboard struct {
	ctrl     Controller
	bridge   *shared.EventBridge
	keys     keyMap
	help     help.Model
	spinner  spinner.Model
	progress progress.Model
	activity []string
	pending  []pendingOp
	width    int
	now      func() time.Time
}

// NewDashboard creates a dashboard for ctrl. bridge must be the controller's
// event emitter; the dashboard also registers the controller's values on it.
func NewDashboard(ctrl Controller, bridge *shared.EventBridge) *Dashboard {
	shared.Notify(bridge, ctrl.IsAdBlocked())
	shared.Notify(bridge, ctrl.IsUpdateAvailable())
	shared.Notify(bridge, ctrl.AppManifest())
	shared.Notify(bridge, ctrl.BlockedHostCount())
	shared.Notify(bridge, ctrl.AllowedHostCount())
	shared.Notify(bridge, ctrl.RedirectHostCount())
	shared.Notify(bridge, ctrl.UpToDateSourceCount())
	shared.Notify(bridge, ctrl.OutdatedSourceCount())
	bridge.NotifyErrors(ctrl.Errors())

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = shared.LabelStyle()

	return &Dashboard{
		ctrl:     ctrl,
		bridge:   bridge,
		keys:     defaultKeyMap(),
		help:     help.New(),
		spinner:  spin,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(shared.ProgressBarWidth)),
		now:      time.Now,
	}
}

// Init implements tea.Model
func (d *Dashboard) Init() tea.Cmd {
	return tea.Batch(d.bridge.ListenCmd(), d.spinner.Tick, shared.TickCmd())
}

// Update implements tea.Model
func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.help.Width = msg.Width
		d.progress.Width = min(max(msg.Width-2*shared.DefaultPadding-4, 10), shared.MaxProgressBarWidth)

		return d, nil
	case tea.KeyMsg:
		return d.handleKey(msg)
	case shared.ControllerEventMsg:
		d.record(msg.Event)
		return d, d.bridge.ListenCmd()
	case shared.StateChangedMsg:
		return d, d.bridge.ListenCmd()
	case shared.TickMsg:
		return d, shared.TickCmd()
	case spinner.TickMsg:
		var cmd tea.Cmd
		d.spinner, cmd = d.spinner.Update(msg)

		return d, cmd
	}

	return d, nil
}

func (d *Dashboard) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, d.keys.Quit):
		return d, tea.Quit
	case key.Matches(msg, d.keys.Toggle):
		d.ctrl.ToggleBlocking()
	case key.Matches(msg, d.keys.Update):
		d.ctrl.Update()
	case key.Matches(msg, d.keys.Sync):
		d.ctrl.Sync()
	case key.Matches(msg, d.keys.EnableAll):
		d.ctrl.EnableAllSources()
	case key.Matches(msg, d.keys.Help):
		d.help.ShowAll = !d.help.ShowAll
	}

	return d, nil
}

// record updates the pending list and appends to the activity log.
func (d *Dashboard) record(event controller.Event) {
	switch e := event.(type) {
	case controller.OperationQueued:
		d.pending = append(d.pending, pendingOp{id: e.ID, op: e.Op})
	case controller.OperationStarted:
		for i := range d.pending {
			if d.pending[i].id == e.ID {
				d.pending[i].started = d.now()
			}
		}
	case controller.OperationCompleted:
		d.finish(e.ID)
	case controller.OperationFailed:
		d.finish(e.ID)
	}

	if line := shared.FormatEvent(event, d.now()); line != "" {
		d.activity = append(d.activity, line)
		if len(d.activity) > shared.ActivityLogEntries {
			d.activity = d.activity[len(d.activity)-shared.ActivityLogEntries:]
		}
	}
}

func (d *Dashboard) finish(id string) {
	for i := range d.pending {
		if d.pending[i].id == id {
			d.pending = append(d.pending[:i], d.pending[i+1:]...)
			return
		}
	}
}
