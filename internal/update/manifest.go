// Package update checks for new application releases.
package update

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// Manifest describes the latest published release.
type Manifest struct {
	Version         string `json:"version"`
	VersionCode     int    `json:"versionCode"`
	Changelog       string `json:"changelog"`
	UpdateAvailable bool   `json:"-"`
}

// ParseManifest decodes a release manifest and marks it available when its
// version is newer than currentVersion.
func ParseManifest(data []byte, currentVersion string) (*Manifest, error) {
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	if manifest.Version == "" {
		return nil, fmt.Errorf("manifest has no version")
	}

	manifest.UpdateAvailable = IsNewer(manifest.Version, currentVersion)

	return &manifest, nil
}

// IsNewer reports whether candidate is a newer semantic version than current.
// Development builds with a non-semver current version never see updates.
func IsNewer(candidate, current string) bool {
	candidate, current = canonical(candidate), canonical(current)
	if !semver.IsValid(candidate) || !semver.IsValid(current) {
		return false
	}

	return semver.Compare(candidate, current) > 0
}

func canonical(version string) string {
	version = strings.TrimSpace(version)
	if version != "" && !strings.HasPrefix(version, "v") {
		version = "v" + version
	}

	return version
}
