// Package main is the entry point for the hosts-sync application.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/term" //nolint:depguard // Required for TTY detection

	"github.com/joe/hosts-sync/internal/adblock"
	"github.com/joe/hosts-sync/internal/config"
	"github.com/joe/hosts-sync/internal/controller"
	"github.com/joe/hosts-sync/internal/executor"
	"github.com/joe/hosts-sync/internal/source"
	"github.com/joe/hosts-sync/internal/stats"
	"github.com/joe/hosts-sync/internal/tui"
	"github.com/joe/hosts-sync/internal/tui/shared"
	"github.com/joe/hosts-sync/internal/update"
	hosterrors "github.com/joe/hosts-sync/pkg/errors"
	"github.com/joe/hosts-sync/pkg/filesystem"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	os.Exit(run(cfg))
}

// app holds the wired models, lanes and controller.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	catalog *source.Catalog
	sources *source.Model
	lanes   *executor.Lanes
	bridge  *shared.EventBridge
	ctrl    *controller.SyncController
}

func run(cfg *config.Config) int {
	logger, logCloser, err := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a, err := wire(cfg, logger, executor.NewMetrics(registry))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer a.close()

	if cfg.MetricsAddr != "" {
		shutdown := serveMetrics(cfg.MetricsAddr, registry, logger)
		defer shutdown()
	}

	if cfg.Watch {
		watcher, err := source.NewWatcher(cfg.SourcesDir, source.DefaultDebounce, a.ctrl.Update, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}

		if err := watcher.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		defer watcher.Stop()
	}

	if useDashboard(cfg) {
		return a.runDashboard(ctx)
	}

	return a.runHeadless(os.Stdout)
}

func wire(cfg *config.Config, logger *slog.Logger, metrics *executor.Metrics) (*app, error) {
	catalog, err := source.OpenCatalog(cfg.StateFile)
	if err != nil {
		return nil, err
	}

	fs := filesystem.NewRealFileSystem()

	sources := source.NewModel(source.Options{
		SourcesDir: cfg.SourcesDir,
		CacheDir:   cfg.SourceCacheDir(),
		Pattern:    cfg.Pattern,
		Catalog:    catalog,
		FS:         fs,
		Logger:     logger.With("component", "source"),
	})

	blocking := adblock.NewModel(adblock.Options{
		HostsFile: cfg.HostsFile,
		Sources:   sources,
		FS:        fs,
		Logger:    logger.With("component", "adblock"),
	})

	lanes := executor.NewLanes(logger.With("component", "executor"), metrics)
	bridge := shared.NewEventBridge()

	ctrl := controller.New(controller.Deps{
		Sources:  sources,
		Blocking: blocking,
		Updates:  update.NewModel(config.VersionName, cfg.ManifestURL, logger.With("component", "update")),
		Counts:   stats.New(blocking, sources),
		Network:  lanes.Network,
		Disk:     lanes.Disk,
		Logger:   logger.With("component", "controller"),
		Emitter:  bridge,
	})

	return &app{
		cfg:     cfg,
		logger:  logger,
		catalog: catalog,
		sources: sources,
		lanes:   lanes,
		bridge:  bridge,
		ctrl:    ctrl,
	}, nil
}

// close drains the lanes before the catalog they write to is closed.
func (a *app) close() {
	a.lanes.Close()
	a.bridge.Close()

	if err := a.catalog.Close(); err != nil {
		a.logger.Error("failed to close catalog", "error", err)
	}
}

func (a *app) runDashboard(ctx context.Context) int {
	var opts []tea.ProgramOption
	if term.IsTerminal(int(os.Stdout.Fd())) {
		opts = append(opts, tea.WithAltScreen())
	}

	opts = append(opts, tea.WithContext(ctx))

	p := tea.NewProgram(tui.NewDashboard(a.ctrl, a.bridge), opts...)

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	return 0
}

// runHeadless performs the requested actions in order (enable all, update,
// per-source toggles, sync, toggle blocking), waits for every
// chained task to finish and prints the resulting status. It fails when any
// action published an error.
func (a *app) runHeadless(out io.Writer) int {
	var (
		mu       sync.Mutex
		failures []controller.ErrorRecord
	)

	cancel := a.ctrl.Errors().Observe(func(record controller.ErrorRecord) {
		mu.Lock()
		defer mu.Unlock()

		failures = append(failures, record)
	})
	defer cancel()

	if a.cfg.EnableAll {
		a.ctrl.EnableAllSources()
		a.lanes.Wait()
	}

	if a.cfg.Update {
		a.ctrl.Update()
		a.lanes.Wait()
	}

	if len(a.cfg.EnableSources)+len(a.cfg.DisableSources) > 0 {
		for _, sourcePath := range a.cfg.EnableSources {
			a.ctrl.SetSourceEnabled(sourcePath, true)
		}

		for _, sourcePath := range a.cfg.DisableSources {
			a.ctrl.SetSourceEnabled(sourcePath, false)
		}

		a.lanes.Wait()
	}

	if a.cfg.Sync {
		a.ctrl.Sync()
		a.lanes.Wait()
	}

	if a.cfg.Toggle {
		a.ctrl.ToggleBlocking()
	}

	a.lanes.Wait()

	printStatus(out, a.ctrl)

	mu.Lock()
	defer mu.Unlock()

	for _, record := range failures {
		fmt.Fprintf(out, "\n%s failed: %v\n", shared.OperationLabel(record.Operation), record.Err)

		if suggestions := hosterrors.FormatSuggestions(record.Err); suggestions != "" {
			fmt.Fprintln(out, suggestions)
		}
	}

	if len(failures) > 0 {
		return 1
	}

	return 0
}

func printStatus(out io.Writer, ctrl *controller.SyncController) {
	blocking := "unknown"
	if applied, ok := ctrl.IsAdBlocked().Get(); ok {
		blocking = "not applied"
		if applied {
			blocking = "applied"
		}
	}

	get := func(v interface{ Get() (int, bool) }) int {
		n, _ := v.Get()
		return n
	}

	fmt.Fprintf(out, "hosts-sync %s\n", ctrl.VersionName())
	fmt.Fprintf(out, "Blocking: %s\n", blocking)
	fmt.Fprintf(out, "Hosts:    %d blocked, %d allowed, %d redirected\n",
		get(ctrl.BlockedHostCount()), get(ctrl.AllowedHostCount()), get(ctrl.RedirectHostCount()))
	fmt.Fprintf(out, "Sources:  %d up to date, %d outdated\n",
		get(ctrl.UpToDateSourceCount()), get(ctrl.OutdatedSourceCount()))

	if available, _ := ctrl.IsUpdateAvailable().Get(); available {
		fmt.Fprintln(out, "Source updates available, run with --sync")
	}

	if manifest, ok := ctrl.AppManifest().Get(); ok && manifest != nil && manifest.UpdateAvailable {
		fmt.Fprintf(out, "Version %s is available\n", manifest.Version)
	}
}

func serveMetrics(addr string, registry *prometheus.Registry, logger *slog.Logger) (shutdown func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("serving metrics", "addr", addr)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		_ = server.Shutdown(ctx)
	}
}

func useDashboard(cfg *config.Config) bool {
	switch cfg.Mode {
	case config.ModeInteractive:
		return true
	case config.ModeHeadless:
		return false
	default:
		return term.IsTerminal(int(os.Stdout.Fd()))
	}
}
