// Package config handles application configuration and command-line argument parsing.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alexflint/go-arg"

	"github.com/joe/hosts-sync/internal/source"
)

// VersionName is the running release; overridden at build time with -ldflags.
//
//nolint:gochecknoglobals // set by the linker
var VersionName = "1.0.0"

// Mode selects between the dashboard and plain output.
type Mode int

const (
	// ModeAuto runs the dashboard on a terminal and headless otherwise
	ModeAuto Mode = iota
	// ModeInteractive always runs the dashboard
	ModeInteractive
	// ModeHeadless runs the requested actions, prints the status and exits
	ModeHeadless
)

// String returns the string representation of Mode
func (m Mode) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case ModeInteractive:
		return "interactive"
	case ModeHeadless:
		return "headless"
	default:
		return "unknown"
	}
}

// ParseMode parses a string into a Mode
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "auto", "":
		return ModeAuto, nil
	case "interactive", "tui":
		return ModeInteractive, nil
	case "headless", "batch":
		return ModeHeadless, nil
	default:
		return ModeAuto, fmt.Errorf("invalid mode: %s (valid: auto, interactive, headless)", s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler for go-arg
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Config holds the application configuration
type Config struct {
	SourcesDir  string `arg:"-s,--sources-dir" help:"Directory holding hosts sources; allow/ and redirect/ subdirectories hold allow and redirect lists"`
	Pattern     string `arg:"-p,--pattern" help:"Glob selecting source files, e.g. '**/*.{txt,hosts}' (default: all files)"`
	CacheDir    string `arg:"--cache-dir" help:"Directory for retrieved sources (default: user cache dir)"`
	StateFile   string `arg:"--state-file" help:"Source catalog database (default: <cache-dir>/sources.db)"`
	HostsFile   string `arg:"-o,--hosts-file" help:"Merged hosts file written when blocking is applied (default: <cache-dir>/hosts)"`
	ManifestURL string `arg:"--manifest-url,env:HOSTS_SYNC_MANIFEST_URL" help:"Release manifest URL or path; empty disables update checks"`
	LogFile     string `arg:"--log-file" help:"Log file (default: <cache-dir>/hosts-sync.log)"`
	LogLevel    string `arg:"--log-level" default:"info" help:"Log level: debug|info|warn|error"`
	MetricsAddr string `arg:"--metrics-addr" help:"Serve Prometheus metrics on this address, e.g. :9090"`
	Watch       bool   `arg:"-w,--watch" help:"Check sources for updates when the sources directory changes"`
	Mode        Mode   `arg:"--mode" default:"auto" help:"Run mode: auto|interactive|headless"`
	Headless    bool   `arg:"--headless" help:"Shorthand for --mode headless"`

	// Actions run in order in headless mode.
	EnableAll bool `arg:"--enable-all" help:"Enable every source, then sync if anything changed"`
	Update    bool `arg:"--update" help:"Check sources for updates"`
	Sync      bool `arg:"--sync" help:"Retrieve outdated sources and apply blocking"`
	Toggle    bool `arg:"--toggle" help:"Toggle blocking"`

	EnableSources  []string `arg:"--enable-source,separate" help:"Enable a source by its path below the sources directory (repeatable)"`
	DisableSources []string `arg:"--disable-source,separate" help:"Disable a source by its path below the sources directory (repeatable)"`
}

// Description returns the program description for go-arg
func (Config) Description() string {
	return "Keep a merged hosts file in sync with local blocking sources, with a live Terminal UI"
}

// Version returns the version string for go-arg
func (Config) Version() string {
	return "hosts-sync " + VersionName
}

// HasActions reports whether any headless action was requested.
func (cfg *Config) HasActions() bool {
	return cfg.EnableAll || cfg.Update || cfg.Sync || cfg.Toggle ||
		len(cfg.EnableSources) > 0 || len(cfg.DisableSources) > 0
}

// ParseFlags parses command-line flags and returns configuration
func ParseFlags() (*Config, error) {
	cfg := &Config{}

	arg.MustParse(cfg)

	return PostProcessConfig(cfg)
}

// PostProcessConfig fills defaults and validates a parsed config
func PostProcessConfig(cfg *Config) (*Config, error) {
	if cfg.Headless {
		cfg.Mode = ModeHeadless
	}

	if cfg.Mode == ModeAuto && cfg.HasActions() {
		cfg.Mode = ModeHeadless
	}

	if cfg.CacheDir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("cannot determine cache directory: %w", err)
		}
		cfg.CacheDir = filepath.Join(base, "hosts-sync")
	}

	if cfg.StateFile == "" {
		cfg.StateFile = filepath.Join(cfg.CacheDir, "sources.db")
	}

	if cfg.HostsFile == "" {
		cfg.HostsFile = filepath.Join(cfg.CacheDir, "hosts")
	}

	if cfg.LogFile == "" {
		cfg.LogFile = filepath.Join(cfg.CacheDir, "hosts-sync.log")
	}

	if _, err := ParseLogLevel(cfg.LogLevel); err != nil {
		return nil, err
	}

	if err := ValidateFilePattern(cfg.Pattern); err != nil {
		return nil, err
	}

	if err := cfg.ValidatePaths(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SourceCacheDir is where retrieved sources are stored.
func (cfg *Config) SourceCacheDir() string {
	return filepath.Join(cfg.CacheDir, "sources")
}

// ValidatePaths validates that the sources directory is usable
func (cfg *Config) ValidatePaths() error {
	if cfg.SourcesDir == "" {
		return fmt.Errorf("sources directory is required")
	}

	info, err := os.Stat(cfg.SourcesDir)
	if os.IsNotExist(err) {
		return fmt.Errorf("sources directory does not exist: %s", cfg.SourcesDir)
	}
	if err != nil {
		return fmt.Errorf("cannot access sources directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("sources path is not a directory: %s", cfg.SourcesDir)
	}

	return nil
}

// ValidateFilePattern checks that pattern is a valid doublestar glob
func ValidateFilePattern(pattern string) error {
	if !source.ValidatePattern(pattern) {
		return fmt.Errorf("invalid pattern: %s", pattern)
	}

	return nil
}
