package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/zhubert/worklog-core/git"
	"github.com/zhubert/worklog-core/recap"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "0s"},
		{45, "45s"},
		{90, "1m"},
		{3600, "1h00m"},
		{5400, "1h30m"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.seconds); got != tt.want {
			t.Errorf("formatDuration(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestRenderSummaries(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)
	summaries := []recap.Summary{
		{
			ID:               "abc-123",
			CWD:              "/work/project",
			Title:            "Fixing the watcher",
			Start:            start,
			End:              start.Add(30 * time.Minute),
			DurationSeconds:  1800,
			TokenRatioEnd:    0.84,
			RotCrossings:     1,
			UserMessages:     5,
			ToolCalls:        12,
			Warnings:         2,
			DiscussionPoints: []string{"Traced the race to the init path"},
			Commits: []git.Commit{
				{SHA: "aaaa1111bbbb2222", Message: "fix watcher race", Date: start},
			},
		},
	}

	cmd := &cobra.Command{}
	var buf bytes.Buffer
	cmd.SetOut(&buf)

	renderSummaries(cmd, summaries)
	out := buf.String()

	for _, want := range []string{
		"Fixing the watcher",
		"abc-123",
		"5 messages, 12 tool calls",
		"84% used, 1 rot / 0 smash",
		"2 corrupt log lines skipped",
		"Traced the race to the init path",
		"aaaa1111 fix watcher race",
		"30m",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderSummariesEmpty(t *testing.T) {
	cmd := &cobra.Command{}
	var buf bytes.Buffer
	cmd.SetOut(&buf)

	renderSummaries(cmd, nil)
	if !strings.Contains(buf.String(), "No sessions in window.") {
		t.Errorf("empty render = %q", buf.String())
	}
}
