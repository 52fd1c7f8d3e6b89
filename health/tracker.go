// Package health tracks context-window utilization for one session and
// counts threshold crossings.
//
// Two fixed thresholds matter: "rot" at 80% of the window, where model
// quality degrades, and "smash" at 99%, where the session is effectively out
// of room. A crossing is edge-triggered: a sustained run of samples above a
// threshold counts once, but a dip below (e.g. after compaction) followed by
// a re-crossing counts again.
package health

// Utilization thresholds, as fractions of the context window.
const (
	RotThreshold   = 0.80
	SmashThreshold = 0.99
)

// Crossing reports which thresholds an observation just crossed upward.
type Crossing struct {
	Rot   bool
	Smash bool
}

// State is a snapshot of a tracker's counters.
type State struct {
	BelowRot       bool
	BelowSmash     bool
	RotCrossings   int
	SmashCrossings int
	LastRatio      float64
	Samples        int
}

// Tracker consumes token-usage ratios for a single session, in timestamp
// order, and maintains edge-triggered crossing counters. The zero value is
// not usable; call NewTracker. Trackers are not safe for concurrent use and
// never need to be — one tracker belongs to one aggregation pass.
type Tracker struct {
	state State
}

// NewTracker returns a tracker primed so that a first sample already at or
// above a threshold counts as one crossing.
func NewTracker() *Tracker {
	return &Tracker{
		state: State{
			BelowRot:   true,
			BelowSmash: true,
		},
	}
}

// Observe records one utilization sample and reports any upward crossings.
// A crossing fires only when the previous sample was strictly below the
// threshold and this one is at or above it.
func (t *Tracker) Observe(ratio float64) Crossing {
	var c Crossing

	if t.state.BelowRot && ratio >= RotThreshold {
		t.state.RotCrossings++
		c.Rot = true
	}
	t.state.BelowRot = ratio < RotThreshold

	if t.state.BelowSmash && ratio >= SmashThreshold {
		t.state.SmashCrossings++
		c.Smash = true
	}
	t.state.BelowSmash = ratio < SmashThreshold

	t.state.LastRatio = ratio
	t.state.Samples++
	return c
}

// State returns a copy of the tracker's current counters.
func (t *Tracker) State() State {
	return t.state
}
