// Package fleet schedules per-host work across a bounded worker pool and
// aggregates the outcomes into a run summary.
package fleet

import (
	"strings"
	"time"
)

// SwitchOutcome records what happened to the optional switchpool trigger.
type SwitchOutcome int

const (
	// SwitchNotRequested means the run did not ask for a switchpool.
	SwitchNotRequested SwitchOutcome = iota
	// SwitchOK means the miner acknowledged the switchpool command.
	SwitchOK
	// SwitchFailed means the control port was unreachable or the miner did
	// not acknowledge. Never fails the host.
	SwitchFailed
)

// HostResult is the immutable outcome of processing one host.
type HostResult struct {
	Host  string
	Index int // position in the original host list

	// Success covers the SSH and config portion only; a failed switchpool
	// leaves it true.
	Success       bool
	ConfigChanged bool

	// Note carries informational text for successful hosts, e.g. that the
	// target URL matched no pool entry.
	Note string

	// BackupWarning is set when the best-effort backup failed but the
	// config write went ahead.
	BackupWarning string

	Switch       SwitchOutcome
	SwitchDetail string

	Err      error
	Duration time.Duration
}

// Detail renders the per-host message for the progress line and the failure
// listing.
func (r HostResult) Detail() string {
	if r.Err != nil {
		return r.Err.Error()
	}

	var parts []string
	if r.ConfigChanged {
		parts = append(parts, "config updated")
	} else if r.Note != "" {
		parts = append(parts, r.Note)
	}
	if r.BackupWarning != "" {
		parts = append(parts, "backup warning: "+r.BackupWarning)
	}
	if r.Switch != SwitchNotRequested {
		parts = append(parts, "switchpool: "+r.SwitchDetail)
	}
	return strings.Join(parts, " | ")
}

// RunSummary aggregates a whole run.
type RunSummary struct {
	Total     int
	Succeeded int
	Failed    int

	// FailedHosts is ordered by original host-list position, not by
	// completion order, so reruns and tests see a deterministic listing.
	FailedHosts []HostResult

	Elapsed time.Duration
}
