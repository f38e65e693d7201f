package update

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joe/hosts-sync/internal/observable"
	"github.com/joe/hosts-sync/pkg/errors"
)

// Exported constants.
const (
	// FetchTimeout bounds a single manifest fetch.
	FetchTimeout = 10 * time.Second
	// MaxManifestBytes caps the manifest body size.
	MaxManifestBytes = 1 << 20
)

// Model owns the version name and the latest release manifest.
type Model struct {
	versionName string
	location    string // http(s) URL or local path, empty disables checks
	client      *http.Client
	logger      *slog.Logger
	classifier  errors.Classifier
	manifest    *observable.Value[*Manifest]
}

// NewModel creates an update model for the running version.
func NewModel(versionName, location string, logger *slog.Logger) *Model {
	return &Model{
		versionName: versionName,
		location:    location,
		client:      &http.Client{Timeout: FetchTimeout},
		logger:      logger,
		classifier:  errors.NewClassifier(),
		manifest:    observable.NewUnset[*Manifest](),
	}
}

// CheckUpdate fetches the manifest and publishes it. Failures are returned as
// HostErrors; the manifest keeps its previous value.
func (m *Model) CheckUpdate() error {
	if m.location == "" {
		m.logger.Debug("no manifest location configured, skipping update check")
		return nil
	}

	data, err := m.fetch()
	if err != nil {
		return m.classifier.Classify(err, errors.KindDownloadFailed, m.location)
	}

	manifest, err := ParseManifest(data, m.versionName)
	if err != nil {
		return errors.Wrap(errors.KindDownloadFailed, m.location, err)
	}

	m.logger.Info("update check complete",
		"current", m.versionName,
		"latest", manifest.Version,
		"available", manifest.UpdateAvailable)
	m.manifest.Set(manifest)

	return nil
}

// Manifest returns the observable release manifest.
func (m *Model) Manifest() *observable.Value[*Manifest] {
	return m.manifest
}

// VersionName returns the running version.
func (m *Model) VersionName() string {
	return m.versionName
}

func (m *Model) fetch() ([]byte, error) {
	if !strings.HasPrefix(m.location, "http://") && !strings.HasPrefix(m.location, "https://") {
		data, err := os.ReadFile(m.location)
		if err != nil {
			return nil, fmt.Errorf("failed to read manifest: %w", err)
		}

		return data, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.location, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build manifest request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch manifest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch manifest: unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxManifestBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	return data, nil
}
