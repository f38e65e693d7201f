package controller

import (
	"github.com/joe/hosts-sync/internal/observable"
	"github.com/joe/hosts-sync/internal/update"
)

// Collaborator methods that can fail return error. A failure must be an
// *errors.HostError (possibly wrapped); anything else is treated as a defect.

// SourceModel manages hosts sources and their freshness.
type SourceModel interface {
	// IsUpdateAvailable reports whether any enabled source is outdated.
	IsUpdateAvailable() *observable.Value[bool]
	// CheckForUpdate refreshes source freshness.
	CheckForUpdate() error
	// RetrieveHostsSources copies outdated sources locally.
	RetrieveHostsSources() error
	// EnableAllSources enables every source and reports whether anything changed.
	EnableAllSources() bool
	// SetEnabled enables or disables one source and reports whether it changed.
	SetEnabled(sourcePath string, enabled bool) (bool, error)
}

// AdBlockModel applies and reverts blocking.
type AdBlockModel interface {
	// IsApplied reports whether blocking is applied; unset means unknown.
	IsApplied() *observable.Value[bool]
	Apply() error
	Revert() error
}

// UpdateModel checks for application releases.
type UpdateModel interface {
	// CheckUpdate is best effort; the controller ignores its error.
	CheckUpdate() error
	VersionName() string
	Manifest() *observable.Value[*update.Manifest]
}

// CountsProvider exposes the host and source counters shown to the user.
type CountsProvider interface {
	BlockedHostCount() *observable.Value[int]
	AllowedHostCount() *observable.Value[int]
	RedirectHostCount() *observable.Value[int]
	UpToDateSourceCount() *observable.Value[int]
	OutdatedSourceCount() *observable.Value[int]
}
