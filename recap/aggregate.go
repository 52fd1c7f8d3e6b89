package recap

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/zhubert/worklog-core/config"
	"github.com/zhubert/worklog-core/event"
	"github.com/zhubert/worklog-core/git"
	"github.com/zhubert/worklog-core/health"
)

// Summary is the aggregate view of one session within a window. It is
// derived, read-only data: rebuilt fresh per recap request, never cached.
type Summary struct {
	ID               string       `json:"id"`
	CWD              string       `json:"cwd,omitempty"`
	Title            string       `json:"title,omitempty"`
	Start            time.Time    `json:"start"`
	End              time.Time    `json:"end"`
	DurationSeconds  int          `json:"duration_seconds"`
	TokenRatioEnd    float64      `json:"token_ratio_end"`
	RotCrossings     int          `json:"rot_crossings"`
	SmashCrossings   int          `json:"smash_crossings"`
	UserMessages     int          `json:"user_messages"`
	ToolCalls        int          `json:"tool_calls"`
	DiscussionPoints []string     `json:"discussion_points,omitempty"`
	Commits          []git.Commit `json:"commits,omitempty"`
	Warnings         int          `json:"warnings,omitempty"`

	// transcript is the ordered message/tool-call subsequence handed to the
	// discussion-point collaborator. Not part of the rendered output.
	transcript []event.Event
}

// Transcript returns the ordered message and tool-call events that fell in
// the window, for handing to a summarizer.
func (s *Summary) Transcript() []event.Event {
	return s.transcript
}

// DisplayName returns the title if one was derived, else the working
// directory — a session with no usable text renders under its path.
func (s *Summary) DisplayName() string {
	if s.Title != "" {
		return s.Title
	}
	return s.CWD
}

// Aggregator groups session log events into per-session summaries.
type Aggregator struct {
	// TitleMaxLen bounds titles derived from user messages.
	TitleMaxLen int
}

// NewAggregator returns an aggregator with default limits.
func NewAggregator() *Aggregator {
	return &Aggregator{TitleMaxLen: config.DefaultTitleMaxLen}
}

// AggregateReader drives a streaming event reader to completion and
// aggregates per session. The reader's corrupt-line warning count is spread
// onto every summary it produced, since warnings are per-log, not
// per-session.
func (a *Aggregator) AggregateReader(r *event.Reader, window Window) ([]Summary, error) {
	var events []event.Event
	for {
		ev, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	summaries, err := a.Aggregate(events, window)
	if err != nil {
		return nil, err
	}
	for i := range summaries {
		summaries[i].Warnings = r.Warnings()
	}
	return summaries, nil
}

// Aggregate groups events by their enclosing session_meta record and builds
// one summary per session that intersects the window. Sessions entirely
// outside the window are dropped silently. A sequence with no session_meta
// at all is rejected with event.ErrNoSessionMeta: an unattributable log is
// never guessed at.
//
// Output order is by session start time, and the result is deterministic:
// re-running on the same input yields identical summaries.
func (a *Aggregator) Aggregate(events []event.Event, window Window) ([]Summary, error) {
	var groups []*accumulator
	var current *accumulator

	for _, ev := range events {
		if ev.Type == event.TypeSessionMeta {
			current = newAccumulator(ev)
			groups = append(groups, current)
			continue
		}
		if current == nil {
			// Events before any session_meta cannot be attributed.
			continue
		}
		current.observe(ev, window)
	}

	if len(groups) == 0 {
		return nil, fmt.Errorf("aggregate: %w", event.ErrNoSessionMeta)
	}

	var summaries []Summary
	for _, g := range groups {
		if s, ok := g.summary(window, a.titleLimit()); ok {
			summaries = append(summaries, s)
		}
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Start.Before(summaries[j].Start)
	})
	return summaries, nil
}

func (a *Aggregator) titleLimit() int {
	if a.TitleMaxLen > 0 {
		return a.TitleMaxLen
	}
	return config.DefaultTitleMaxLen
}

// accumulator collects one session's events between session_meta boundaries.
type accumulator struct {
	meta       event.Event
	first      time.Time
	last       time.Time
	tracker    *health.Tracker
	firstUser  string
	userCount  int
	toolCount  int
	transcript []event.Event
	commits    []git.Commit
}

func newAccumulator(meta event.Event) *accumulator {
	acc := &accumulator{
		meta:    meta,
		tracker: health.NewTracker(),
	}
	acc.markTime(meta.Timestamp)
	return acc
}

func (acc *accumulator) markTime(ts time.Time) {
	if ts.IsZero() {
		return
	}
	if acc.first.IsZero() || ts.Before(acc.first) {
		acc.first = ts
	}
	if acc.last.IsZero() || ts.After(acc.last) {
		acc.last = ts
	}
}

// observe folds one event into the session. Timestamps always extend the
// session span, but counters, health samples, and the transcript only admit
// events inside the window — activity outside it belongs to another recap.
func (acc *accumulator) observe(ev event.Event, window Window) {
	acc.markTime(ev.Timestamp)

	inWindow := ev.Timestamp.IsZero() || window.Contains(ev.Timestamp)
	if !inWindow {
		return
	}

	switch ev.Type {
	case event.TypeTokenUsage:
		acc.tracker.Observe(ev.Ratio())

	case event.TypeUserMessage:
		acc.userCount++
		acc.transcript = append(acc.transcript, ev)
		if acc.firstUser == "" {
			acc.firstUser = strings.Join(strings.Fields(ev.Text), " ")
		}

	case event.TypeToolCall:
		acc.toolCount++
		acc.transcript = append(acc.transcript, ev)

	case event.TypeGitCommit:
		acc.commits = append(acc.commits, git.Commit{
			SHA:     ev.SHA,
			Message: ev.Message,
			Date:    ev.Timestamp,
		})
	}
}

// summary produces the session's aggregate view, or ok=false when the
// session's span lies entirely outside the window.
func (acc *accumulator) summary(window Window, titleMaxLen int) (Summary, bool) {
	if !acc.first.IsZero() && !window.Intersects(acc.first, acc.last) {
		return Summary{}, false
	}

	st := acc.tracker.State()

	duration := 0
	if !acc.first.IsZero() && acc.last.After(acc.first) {
		duration = int(acc.last.Sub(acc.first).Seconds())
	}

	return Summary{
		ID:              acc.meta.SessionID,
		CWD:             acc.meta.CWD,
		Title:           acc.title(titleMaxLen),
		Start:           acc.first,
		End:             acc.last,
		DurationSeconds: duration,
		TokenRatioEnd:   st.LastRatio,
		RotCrossings:    st.RotCrossings,
		SmashCrossings:  st.SmashCrossings,
		UserMessages:    acc.userCount,
		ToolCalls:       acc.toolCount,
		Commits:         acc.commits,
		transcript:      acc.transcript,
	}, true
}

// title resolves the session title: explicit meta title, else the first
// non-empty user message truncated, else empty (the session renders under
// its working directory).
func (acc *accumulator) title(maxLen int) string {
	if acc.meta.Title != "" {
		return truncate(acc.meta.Title, maxLen)
	}
	if acc.firstUser != "" {
		return truncate(acc.firstUser, maxLen)
	}
	return ""
}

// truncate shortens s to maxLen characters, including "..." suffix.
func truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
