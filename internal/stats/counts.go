// Package stats gathers the host and source counters shown to the user.
package stats

import "github.com/joe/hosts-sync/internal/observable"

// HostCounts is implemented by the blocking model.
type HostCounts interface {
	BlockedHostCount() *observable.Value[int]
	AllowedHostCount() *observable.Value[int]
	RedirectHostCount() *observable.Value[int]
}

// SourceCounts is implemented by the source model.
type SourceCounts interface {
	UpToDateSourceCount() *observable.Value[int]
	OutdatedSourceCount() *observable.Value[int]
}

// Counts composes the host and source counters into one provider.
type Counts struct {
	HostCounts
	SourceCounts
}

// New creates a Counts over the given models.
func New(hosts HostCounts, sources SourceCounts) *Counts {
	return &Counts{HostCounts: hosts, SourceCounts: sources}
}

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	Blocked  int
	Allowed  int
	Redirect int
	UpToDate int
	Outdated int
}

// Snapshot reads every counter. Unset counters read as zero.
func (c *Counts) Snapshot() Snapshot {
	get := func(v *observable.Value[int]) int {
		n, _ := v.Get()
		return n
	}

	return Snapshot{
		Blocked:  get(c.BlockedHostCount()),
		Allowed:  get(c.AllowedHostCount()),
		Redirect: get(c.RedirectHostCount()),
		UpToDate: get(c.UpToDateSourceCount()),
		Outdated: get(c.OutdatedSourceCount()),
	}
}
