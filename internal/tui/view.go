package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/joe/hosts-sync/internal/tui/shared"
)

// View implements tea.Model
func (d *Dashboard) View() string {
	sections := []string{
		d.renderHeader(),
		shared.RenderBox(d.renderStatus()),
	}

	if pending := d.renderPending(); pending != "" {
		sections = append(sections, pending)
	}

	if record, ok := d.ctrl.Errors().Latest(); ok {
		sections = append(sections, shared.ErrorBoxStyle().Render(shared.RenderLatestError(record, d.width-8)))
	}

	sections = append(sections,
		shared.RenderActivityLog("Activity", d.activity, shared.ActivityLogEntries),
		d.help.View(d.keys),
	)

	return strings.Join(sections, "\n\n") + "\n"
}

func (d *Dashboard) renderHeader() string {
	header := shared.RenderTitle("hosts-sync") + " " + shared.RenderDim("v"+d.ctrl.VersionName())

	if manifest, ok := d.ctrl.AppManifest().Get(); ok && manifest != nil && manifest.UpdateAvailable {
		header += "  " + shared.RenderWarning("version "+manifest.Version+" available")
	}

	return header
}

func (d *Dashboard) renderPending() string {
	lines := make([]string, 0, len(d.pending))

	for _, p := range d.pending {
		label := shared.OperationLabel(p.op)

		if p.started.IsZero() {
			lines = append(lines, "  "+shared.RenderDim(label+" queued"))
			continue
		}

		elapsed := d.now().Sub(p.started).Round(time.Second)
		lines = append(lines, fmt.Sprintf("%s%s %s %s",
			shared.PromptArrow, d.spinner.View(), label, shared.RenderDim(elapsed.String())))
	}

	return strings.Join(lines, "\n")
}

func (d *Dashboard) renderStatus() string {
	var builder strings.Builder

	blocking := shared.RenderDim(shared.SymbolUnknown + " unknown")
	if applied, ok := d.ctrl.IsAdBlocked().Get(); ok {
		if applied {
			blocking = shared.RenderSuccess(shared.SymbolOn + " applied")
		} else {
			blocking = shared.RenderWarning(shared.SymbolOff + " not applied")
		}
	}

	fmt.Fprintf(&builder, "%s %s\n", shared.RenderLabel("Blocking"), blocking)
	fmt.Fprintf(&builder, "%s %d blocked · %d allowed · %d redirected\n",
		shared.RenderLabel("Hosts   "),
		count(d.ctrl.BlockedHostCount()),
		count(d.ctrl.AllowedHostCount()),
		count(d.ctrl.RedirectHostCount()))

	upToDate := count(d.ctrl.UpToDateSourceCount())
	outdated := count(d.ctrl.OutdatedSourceCount())
	fmt.Fprintf(&builder, "%s %d up to date · %d outdated\n",
		shared.RenderLabel("Sources "), upToDate, outdated)

	ratio := 0.0
	if total := upToDate + outdated; total > 0 {
		ratio = float64(upToDate) / float64(total)
	}

	builder.WriteString(d.progress.ViewAs(ratio))

	if available, _ := d.ctrl.IsUpdateAvailable().Get(); available {
		builder.WriteString("\n")
		builder.WriteString(shared.RenderWarning("Source updates available, press s to sync"))
	}

	return builder.String()
}

func count(v interface{ Get() (int, bool) }) int {
	n, _ := v.Get()
	return n
}
