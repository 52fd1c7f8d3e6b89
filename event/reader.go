package event

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/zhubert/worklog-core/logger"
)

// ErrNoSessionMeta is returned when a log contains no session_meta record.
// Such a log cannot be attributed to a session and must not be guessed at.
var ErrNoSessionMeta = errors.New("session_meta record not found")

// maxLineSize caps a single record. Logs carry full user prompts and tool
// output summaries, so lines can be large, but never unbounded.
const maxLineSize = 8 * 1024 * 1024

// record is the wire shape of one log line. Unknown fields are ignored by
// encoding/json, and unknown types are skipped by the reader, which keeps the
// format forward-compatible.
type record struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp,omitempty"`

	// session_meta
	ID        string `json:"id,omitempty"`
	CWD       string `json:"cwd,omitempty"`
	Title     string `json:"title,omitempty"`
	StartTime string `json:"start_time,omitempty"`

	// token_usage
	UsedTokens    int `json:"used_tokens,omitempty"`
	ContextWindow int `json:"context_window,omitempty"`

	// user_message
	Text string `json:"text,omitempty"`

	// tool_call
	Summary string `json:"summary,omitempty"`

	// git_commit
	SHA     string `json:"sha,omitempty"`
	Message string `json:"message,omitempty"`
}

// Reader streams typed events from one session log. It is forward-only: a
// fresh Open re-scans from the start. Corrupt lines are skipped and counted,
// never fatal — one bad record must not abort an otherwise valid log.
type Reader struct {
	scanner  *bufio.Scanner
	closer   io.Closer
	path     string
	warnings int
	log      *slog.Logger

	// DefaultContextWindow fills token_usage records that omit a window,
	// for logs written before window reporting. Zero disables the fill.
	DefaultContextWindow int
}

// Open opens the session log at path for streaming.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open session log: %w", err)
	}
	r := NewReader(f)
	r.closer = f
	r.path = path
	return r, nil
}

// NewReader streams events from r. The caller owns r's lifetime.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024), maxLineSize)
	return &Reader{
		scanner: scanner,
		log:     logger.WithComponent("event"),
	}
}

// Next returns the next decoded event. It skips corrupt lines (incrementing
// the warning count) and records of unknown type, and returns io.EOF when the
// log is exhausted.
func (r *Reader) Next() (Event, error) {
	for r.scanner.Scan() {
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" {
			continue
		}

		ev, ok := r.decode(line)
		if !ok {
			continue
		}
		return ev, nil
	}

	if err := r.scanner.Err(); err != nil {
		return Event{}, fmt.Errorf("scan session log: %w", err)
	}
	return Event{}, io.EOF
}

// Warnings returns the number of corrupt lines skipped so far.
func (r *Reader) Warnings() int {
	return r.warnings
}

// Close closes the underlying file, if the reader owns one.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// decode parses one line into an event. The second return is false when the
// line was skipped: corrupt (counted) or of an unknown type (ignored).
func (r *Reader) decode(line string) (Event, bool) {
	var rec record
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		r.warn("undecodable line", "error", err)
		return Event{}, false
	}

	if rec.Type == "" {
		r.warn("record missing type")
		return Event{}, false
	}

	ts, err := parseTimestamp(rec.Timestamp)
	if err != nil {
		r.warn("bad timestamp", "value", rec.Timestamp)
		return Event{}, false
	}

	switch Type(rec.Type) {
	case TypeSessionMeta:
		if rec.ID == "" {
			r.warn("session_meta missing id")
			return Event{}, false
		}
		if ts.IsZero() && rec.StartTime != "" {
			ts, err = parseTimestamp(rec.StartTime)
			if err != nil {
				r.warn("bad start_time", "value", rec.StartTime)
				return Event{}, false
			}
		}
		return Event{
			Type:      TypeSessionMeta,
			Timestamp: ts,
			SessionID: rec.ID,
			CWD:       rec.CWD,
			Title:     rec.Title,
		}, true

	case TypeTokenUsage:
		if rec.ContextWindow == 0 {
			rec.ContextWindow = r.DefaultContextWindow
		}
		if rec.ContextWindow <= 0 || rec.UsedTokens < 0 {
			r.warn("token_usage with invalid counts", "used", rec.UsedTokens, "window", rec.ContextWindow)
			return Event{}, false
		}
		return Event{
			Type:          TypeTokenUsage,
			Timestamp:     ts,
			UsedTokens:    rec.UsedTokens,
			ContextWindow: rec.ContextWindow,
		}, true

	case TypeUserMessage:
		return Event{Type: TypeUserMessage, Timestamp: ts, Text: rec.Text}, true

	case TypeToolCall:
		return Event{Type: TypeToolCall, Timestamp: ts, Summary: rec.Summary}, true

	case TypeGitCommit:
		return Event{
			Type:      TypeGitCommit,
			Timestamp: ts,
			SHA:       rec.SHA,
			Message:   rec.Message,
		}, true

	default:
		// Unknown record types are ignored for forward compatibility.
		return Event{}, false
	}
}

func (r *Reader) warn(msg string, args ...any) {
	r.warnings++
	r.log.Debug(msg, args...)
}

// parseTimestamp accepts RFC3339 with or without sub-second precision.
// An empty string yields the zero time without error.
func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return ts, nil
}

// ReadMeta scans path until the first session_meta record and returns it.
// Returns ErrNoSessionMeta if the log has no identity block.
func ReadMeta(path string) (*Meta, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	for {
		ev, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil, ErrNoSessionMeta
		}
		if err != nil {
			return nil, err
		}
		if ev.Type != TypeSessionMeta {
			continue
		}
		return &Meta{
			ID:        ev.SessionID,
			CWD:       ev.CWD,
			Title:     ev.Title,
			StartTime: ev.Timestamp,
			Path:      path,
		}, nil
	}
}
