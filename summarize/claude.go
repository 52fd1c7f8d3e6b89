package summarize

import (
	"context"
	"fmt"
	"strings"

	"github.com/zhubert/worklog-core/event"
	pexec "github.com/zhubert/worklog-core/exec"
	"github.com/zhubert/worklog-core/logger"
)

// maxTranscriptSize caps how much session text is sent to the model.
// Larger transcripts slow down summarization without improving the points.
const maxTranscriptSize = 50000

// ClaudeSummarizer asks the Claude CLI for discussion points. It shells out
// with --print so the call is a plain one-shot completion.
type ClaudeSummarizer struct {
	executor pexec.CommandExecutor
}

// NewClaudeSummarizer creates a summarizer backed by the claude CLI.
func NewClaudeSummarizer() *ClaudeSummarizer {
	return &ClaudeSummarizer{executor: pexec.NewRealExecutor()}
}

// NewClaudeSummarizerWithExecutor injects a custom executor, for testing.
func NewClaudeSummarizerWithExecutor(exec pexec.CommandExecutor) *ClaudeSummarizer {
	return &ClaudeSummarizer{executor: exec}
}

// Summarize renders the events as a compact transcript and asks Claude for
// one bullet per distinct topic. Each non-empty output line becomes one
// discussion point.
func (s *ClaudeSummarizer) Summarize(ctx context.Context, events []event.Event) ([]string, error) {
	log := logger.WithComponent("summarize")

	transcript := buildTranscript(events)
	if transcript == "" {
		return nil, nil
	}
	if len(transcript) > maxTranscriptSize {
		transcript = transcript[:maxTranscriptSize] + "\n... (transcript truncated)"
	}

	prompt := fmt.Sprintf(`Summarize this coding session transcript as discussion points. Follow these rules:
1. One line per distinct topic or task, at most 10 lines
2. Each line is a short plain statement of what was worked on or decided
3. No preamble, no numbering, no markdown bullets - just output the lines directly

Transcript:
%s`, transcript)

	output, err := s.executor.Output(ctx, "", "claude", "--print", "-p", prompt)
	if err != nil {
		log.Error("claude summarization failed", "error", err)
		return nil, fmt.Errorf("failed to summarize with claude: %w", err)
	}

	var points []string
	for _, line := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			points = append(points, line)
		}
	}

	log.Debug("claude summarization complete", "points", len(points))
	return points, nil
}

// buildTranscript renders message and tool-call events one per line.
func buildTranscript(events []event.Event) string {
	var b strings.Builder
	for _, ev := range events {
		switch ev.Type {
		case event.TypeUserMessage:
			text := cleanText(ev.Text)
			if text != "" {
				fmt.Fprintf(&b, "user: %s\n", truncate(text, 300))
			}
		case event.TypeToolCall:
			if ev.Summary != "" {
				fmt.Fprintf(&b, "tool: %s\n", truncate(ev.Summary, 120))
			}
		}
	}
	return b.String()
}

// cleanText collapses whitespace so multi-line prompts read as one line.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate shortens s to maxLen characters, including "..." suffix.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

var _ Summarizer = (*ClaudeSummarizer)(nil)
