// Package event decodes append-only session log files into typed event
// streams.
//
// A session log is a newline-delimited JSON file owned by the host agent
// process. Each line is one record; records never mutate once written, so a
// log open at time T is a consistent snapshot of everything appended before T.
// The decoder is forward-only and line-at-a-time: memory use is bounded by the
// longest single line, never by file size.
package event

import "time"

// Type discriminates the records a session log may contain.
type Type string

const (
	// TypeSessionMeta announces a session and carries its identity.
	TypeSessionMeta Type = "session_meta"
	// TypeTokenUsage is a context-window utilization sample.
	TypeTokenUsage Type = "token_usage"
	// TypeUserMessage is a user-authored prompt.
	TypeUserMessage Type = "user_message"
	// TypeToolCall is a one-line summary of a tool invocation.
	TypeToolCall Type = "tool_call"
	// TypeGitCommit records a commit the agent made during the session.
	TypeGitCommit Type = "git_commit"
)

// Event is one decoded record from a session log. Fields beyond Type and
// Timestamp are populated according to the record type.
type Event struct {
	Type      Type
	Timestamp time.Time

	// session_meta
	SessionID string
	CWD       string
	Title     string

	// token_usage
	UsedTokens    int
	ContextWindow int

	// user_message
	Text string

	// tool_call
	Summary string

	// git_commit
	SHA     string
	Message string
}

// Ratio returns the context utilization of a token_usage event as a fraction
// of the window. Zero for any other event type.
func (e Event) Ratio() float64 {
	if e.Type != TypeTokenUsage || e.ContextWindow <= 0 {
		return 0
	}
	return float64(e.UsedTokens) / float64(e.ContextWindow)
}

// Meta is the identity block of a session log.
type Meta struct {
	ID        string
	CWD       string
	Title     string
	StartTime time.Time
	Path      string
}
