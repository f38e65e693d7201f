package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/joe/hosts-sync/internal/controller"
	"github.com/joe/hosts-sync/internal/observable"
	"github.com/joe/hosts-sync/internal/tui/shared"
	"github.com/joe/hosts-sync/internal/update"
	"github.com/joe/hosts-sync/pkg/errors"
)

// fakeController records actions and exposes settable values.
type fakeController struct {
	calls []string

	adBlocked       *observable.Value[bool]
	updateAvailable *observable.Value[bool]
	manifest        *observable.Value[*update.Manifest]
	blocked         *observable.Value[int]
	allowed         *observable.Value[int]
	redirect        *observable.Value[int]
	upToDate        *observable.Value[int]
	outdated        *observable.Value[int]
	errs            *controller.ErrorChannel
}

func newFakeController() *fakeController {
	return &fakeController{
		adBlocked:       observable.NewUnset[bool](),
		updateAvailable: observable.New(false),
		manifest:        observable.NewUnset[*update.Manifest](),
		blocked:         observable.New(0),
		allowed:         observable.New(0),
		redirect:        observable.New(0),
		upToDate:        observable.New(0),
		outdated:        observable.New(0),
		errs:            controller.NewErrorChannel(),
	}
}

func (f *fakeController) EnableAllSources() { f.calls = append(f.calls, "enable") }
func (f *fakeController) Sync()             { f.calls = append(f.calls, "sync") }
func (f *fakeController) ToggleBlocking()   { f.calls = append(f.calls, "toggle") }
func (f *fakeController) Update()           { f.calls = append(f.calls, "update") }

func (f *fakeController) AllowedHostCount() *observable.Value[int]         { return f.allowed }
func (f *fakeController) AppManifest() *observable.Value[*update.Manifest] { return f.manifest }
func (f *fakeController) BlockedHostCount() *observable.Value[int]         { return f.blocked }
func (f *fakeController) Errors() *controller.ErrorChannel                 { return f.errs }
func (f *fakeController) IsAdBlocked() *observable.Value[bool]             { return f.adBlocked }
func (f *fakeController) IsUpdateAvailable() *observable.Value[bool]       { return f.updateAvailable }
func (f *fakeController) OutdatedSourceCount() *observable.Value[int]      { return f.outdated }
func (f *fakeController) RedirectHostCount() *observable.Value[int]        { return f.redirect }
func (f *fakeController) UpToDateSourceCount() *observable.Value[int]      { return f.upToDate }
func (f *fakeController) VersionName() string                              { return "1.2.3" }

func runes(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

var _ = Describe("Dashboard", func() {
	var (
		ctrl   *fakeController
		bridge *shared.EventBridge
		dash   *Dashboard
		clock  time.Time
	)

	BeforeEach(func() {
		ctrl = newFakeController()
		bridge = shared.NewEventBridge()
		dash = NewDashboard(ctrl, bridge)
		clock = time.Date(2026, 5, 4, 9, 0, 0, 0, time.Local)
		dash.now = func() time.Time { return clock }
	})

	AfterEach(func() {
		bridge.Close()
	})

	Describe("Key Bindings", func() {
		It("maps keys to controller actions", func() {
			dash.Update(runes('t'))
			dash.Update(runes('u'))
			dash.Update(runes('s'))
			dash.Update(runes('e'))

			Expect(ctrl.calls).To(Equal([]string{"toggle", "update", "sync", "enable"}))
		})

		It("quits on q and ctrl+c", func() {
			_, cmd := dash.Update(runes('q'))
			Expect(cmd).NotTo(BeNil())
			Expect(cmd()).To(Equal(tea.QuitMsg{}))

			_, cmd = dash.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
			Expect(cmd()).To(Equal(tea.QuitMsg{}))
			Expect(ctrl.calls).To(BeEmpty())
		})

		It("toggles the full help", func() {
			Expect(dash.help.ShowAll).To(BeFalse())
			dash.Update(runes('?'))
			Expect(dash.help.ShowAll).To(BeTrue())
			Expect(ansi.Strip(dash.View())).To(ContainSubstring("enable all sources"))
		})
	})

	Describe("Observed State", func() {
		It("shows unknown blocking state until it is set", func() {
			Expect(ansi.Strip(dash.View())).To(ContainSubstring("? unknown"))

			ctrl.adBlocked.Set(true)
			Expect(ansi.Strip(dash.View())).To(ContainSubstring("● applied"))

			ctrl.adBlocked.Set(false)
			Expect(ansi.Strip(dash.View())).To(ContainSubstring("○ not applied"))
		})

		It("renders counts and the source update hint", func() {
			ctrl.blocked.Set(10)
			ctrl.allowed.Set(2)
			ctrl.redirect.Set(1)
			ctrl.upToDate.Set(3)
			ctrl.outdated.Set(4)
			ctrl.updateAvailable.Set(true)

			view := ansi.Strip(dash.View())
			Expect(view).To(ContainSubstring("10 blocked · 2 allowed · 1 redirected"))
			Expect(view).To(ContainSubstring("3 up to date · 4 outdated"))
			Expect(view).To(ContainSubstring("press s to sync"))
		})

		It("announces a newer release", func() {
			ctrl.manifest.Set(&update.Manifest{Version: "2.0.0", UpdateAvailable: true})

			view := ansi.Strip(dash.View())
			Expect(view).To(ContainSubstring("v1.2.3"))
			Expect(view).To(ContainSubstring("version 2.0.0 available"))
		})

		It("shows the latest error with suggestions", func() {
			ctrl.errs.Publish(controller.ErrorRecord{
				Err:       errors.New(errors.KindNoConnection, ""),
				Operation: controller.OpSync,
				At:        clock,
			})

			view := ansi.Strip(dash.View())
			Expect(view).To(ContainSubstring("sync failed"))
			Expect(view).To(ContainSubstring("Check your network connection"))
		})

		It("forwards value changes as state messages", func() {
			// registration marks the state changed once
			msg, ok := bridge.Next()
			Expect(ok).To(BeTrue())
			Expect(msg).To(Equal(shared.StateChangedMsg{}))

			ctrl.blocked.Set(42)
			ctrl.allowed.Set(7)
			msg, _ = bridge.Next()
			Expect(msg).To(Equal(shared.StateChangedMsg{}))

			_, cmd := dash.Update(msg)
			Expect(cmd).NotTo(BeNil(), "keeps listening")
		})

		It("receives completions after a burst of value changes", func() {
			bridge.Emit(controller.OperationQueued{Op: controller.OpSync, ID: "s"})
			bridge.Emit(controller.OperationStarted{Op: controller.OpSync, ID: "s"})

			for i := range 300 {
				ctrl.blocked.Set(i)
				ctrl.upToDate.Set(i)
			}

			bridge.Emit(controller.OperationCompleted{Op: controller.OpSync, ID: "s", Elapsed: time.Second})

			for range 4 {
				msg, ok := bridge.Next()
				Expect(ok).To(BeTrue())
				dash.Update(msg)
			}

			Expect(dash.pending).To(BeEmpty())
			Expect(dash.activity).To(ContainElement(ContainSubstring("sync done in 1s")))
		})
	})

	Describe("Operation Events", func() {
		It("tracks queued, running and finished operations", func() {
			dash.Update(shared.ControllerEventMsg{Event: controller.OperationQueued{Op: controller.OpSync, ID: "a", Lane: "network"}})
			Expect(ansi.Strip(dash.View())).To(ContainSubstring("sync queued"))

			dash.Update(shared.ControllerEventMsg{Event: controller.OperationStarted{Op: controller.OpSync, ID: "a"}})
			clock = clock.Add(3 * time.Second)
			view := ansi.Strip(dash.View())
			Expect(view).To(ContainSubstring(shared.PromptArrow))
			Expect(view).To(ContainSubstring("3s"))

			dash.Update(shared.ControllerEventMsg{Event: controller.OperationCompleted{Op: controller.OpSync, ID: "a", Elapsed: 3 * time.Second}})
			Expect(dash.pending).To(BeEmpty())
			Expect(dash.activity).To(Equal([]string{
				"09:00:00 sync started",
				"09:00:03 sync done in 3s",
			}))
		})

		It("drops failed operations from the pending list", func() {
			dash.Update(shared.ControllerEventMsg{Event: controller.OperationQueued{Op: controller.OpToggleBlocking, ID: "b"}})
			dash.Update(shared.ControllerEventMsg{Event: controller.OperationFailed{
				Op:  controller.OpToggleBlocking,
				ID:  "b",
				Err: errors.New(errors.KindApplyFailed, "/etc/hosts"),
			}})

			Expect(dash.pending).To(BeEmpty())
			Expect(dash.activity).To(HaveLen(1))
			Expect(dash.activity[0]).To(ContainSubstring("toggle blocking failed"))
		})

		It("keeps only the most recent activity", func() {
			for i := range shared.ActivityLogEntries + 3 {
				dash.Update(shared.ControllerEventMsg{Event: controller.OperationStarted{Op: controller.OpUpdate, ID: string(rune('a' + i))}})
			}

			Expect(dash.activity).To(HaveLen(shared.ActivityLogEntries))
		})
	})

	Describe("Window Size Handling", func() {
		It("sizes help and progress to the window", func() {
			dash.Update(tea.WindowSizeMsg{Width: 60, Height: 20})

			Expect(dash.width).To(Equal(60))
			Expect(dash.help.Width).To(Equal(60))
			Expect(dash.progress.Width).To(Equal(52))
		})
	})
})
