// Package summarize produces discussion points from a session's message and
// tool-call events. The aggregator treats summarizers as external
// collaborators: it hands over the ordered event subsequence and embeds
// whatever comes back verbatim.
package summarize

import (
	"context"

	"github.com/zhubert/worklog-core/event"
)

// Summarizer turns an ordered sequence of message/tool-call events into
// short human-readable discussion points.
type Summarizer interface {
	Summarize(ctx context.Context, events []event.Event) ([]string, error)
}

// maxStaticPoints bounds the output of the static summarizer.
const maxStaticPoints = 10

// maxPointLen bounds how much of a message makes it into a point.
const maxPointLen = 100

// StaticSummarizer extracts the leading user messages as discussion points.
// It is the default collaborator: deterministic, offline, no model calls.
type StaticSummarizer struct{}

// NewStaticSummarizer returns a StaticSummarizer.
func NewStaticSummarizer() *StaticSummarizer {
	return &StaticSummarizer{}
}

// Summarize returns up to ten cleaned user-message previews, in order.
func (s *StaticSummarizer) Summarize(_ context.Context, events []event.Event) ([]string, error) {
	var points []string
	for _, ev := range events {
		if ev.Type != event.TypeUserMessage {
			continue
		}
		text := cleanText(ev.Text)
		if text == "" {
			continue
		}
		points = append(points, truncate(text, maxPointLen))
		if len(points) == maxStaticPoints {
			break
		}
	}
	return points, nil
}

var _ Summarizer = (*StaticSummarizer)(nil)
