// Package identity answers "which session does the calling process belong
// to?" with zero tolerance for ambiguity. Resolution runs a short state
// machine over a snapshot of the host environment: detect exactly one
// strategy, collect its candidates, verify the single candidate against the
// persisted session logs, and either return the one verified id or fail
// with a diagnostic. There is no heuristic fallback: picking "most recent"
// or "first" is unsafe when two sessions run in nearby terminals on one
// host, so zero or multiple matches at any step is unconditionally a
// failure.
package identity

import (
	"errors"
	"fmt"
)

// Environment variables consumed during strategy detection.
const (
	// SessionIDEnv carries a session id injected directly by the host
	// process.
	SessionIDEnv = "WORKLOG_SESSION_ID"

	// MarkerDirEnv names an inherited temporary directory holding a
	// session marker file unique to the invoking host process.
	MarkerDirEnv = "WORKLOG_MARKER_DIR"
)

// Strategy identifies which host signal a resolution run used. Exactly one
// strategy is attempted per run; strategies never combine or race.
type Strategy string

const (
	// StrategyEnv reads the id injected via SessionIDEnv.
	StrategyEnv Strategy = "environment"

	// StrategyMarker scans the inherited marker directory for session
	// marker files.
	StrategyMarker Strategy = "marker"

	// StrategyParentFD inspects the parent process's open-file table for
	// session logs it holds open.
	StrategyParentFD Strategy = "parent-fd"
)

// Resolution steps reported in failure diagnostics.
const (
	StepCollect = "collect_candidates"
	StepVerify  = "verify_unique"
)

// ErrEnvironmentUnsupported reports that no strategy could be detected: the
// environment carries no injected id, no marker directory, and no readable
// parent-process file table.
var ErrEnvironmentUnsupported = errors.New("no usable session identity signal in this environment")

// AmbiguousMatchError reports a uniqueness violation: a resolution step
// observed zero or more than one match where exactly one was required.
type AmbiguousMatchError struct {
	Step     string
	Strategy Strategy
	Count    int
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("session identity %s failed (%s strategy): %d matches, want exactly 1", e.Step, e.Strategy, e.Count)
}

// Candidate is a tentative, unverified match produced mid-resolution. It
// records which signal matched and where, so failures can be diagnosed.
type Candidate struct {
	Strategy Strategy
	Source   string
	ID       string
}
