package git

import (
	"context"
	"strings"
	"testing"
	"time"

	pexec "github.com/zhubert/worklog-core/exec"
)

// repoMock returns a mock executor that reports dir as a git checkout.
func repoMock() *pexec.MockExecutor {
	mock := pexec.NewMockExecutor(nil)
	mock.AddExactMatch("git", []string{"rev-parse", "--git-dir"}, pexec.MockResponse{
		Stdout: []byte(".git\n"),
	})
	return mock
}

func TestCommitsBetween(t *testing.T) {
	mock := repoMock()
	mock.AddPrefixMatch("git", []string{"log"}, pexec.MockResponse{
		Stdout: []byte(strings.Join([]string{
			"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa|Fix parser buffering|2026-02-01T10:30:00+00:00",
			"bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb|Add window tests|2026-02-01T11:00:00+00:00",
		}, "\n")),
	})

	svc := NewGitServiceWithExecutor(mock)
	since := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	until := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	commits := svc.CommitsBetween(context.Background(), t.TempDir(), since, until)
	if len(commits) != 2 {
		t.Fatalf("expected 2 commits, got %d", len(commits))
	}

	if commits[0].SHA != "aaaaaaaa" {
		t.Errorf("SHA = %q, want abbreviated aaaaaaaa", commits[0].SHA)
	}
	if commits[0].Message != "Fix parser buffering" {
		t.Errorf("Message = %q", commits[0].Message)
	}
	if want := time.Date(2026, 2, 1, 10, 30, 0, 0, time.UTC); !commits[0].Date.Equal(want) {
		t.Errorf("Date = %v, want %v", commits[0].Date, want)
	}
}

func TestCommitsBetween_NotARepository(t *testing.T) {
	mock := pexec.NewMockExecutor(nil)
	mock.AddExactMatch("git", []string{"rev-parse", "--git-dir"}, pexec.MockResponse{
		Err: context.DeadlineExceeded,
	})

	svc := NewGitServiceWithExecutor(mock)
	commits := svc.CommitsBetween(context.Background(), t.TempDir(), time.Now().Add(-time.Hour), time.Now())
	if commits != nil {
		t.Errorf("expected nil commits for non-repository, got %v", commits)
	}
}

func TestCommitsBetween_MissingDirectory(t *testing.T) {
	svc := NewGitServiceWithExecutor(repoMock())
	commits := svc.CommitsBetween(context.Background(), "/nonexistent/path", time.Now().Add(-time.Hour), time.Now())
	if commits != nil {
		t.Errorf("expected nil commits for missing directory, got %v", commits)
	}
}

func TestCommitsBetween_SkipsMalformedLines(t *testing.T) {
	mock := repoMock()
	mock.AddPrefixMatch("git", []string{"log"}, pexec.MockResponse{
		Stdout: []byte(strings.Join([]string{
			"not-a-commit-line",
			"cccccccccccccccccccccccccccccccccccccccc|Real commit|2026-02-01T10:00:00+00:00",
			"dddddddd|bad date|never",
		}, "\n")),
	})

	svc := NewGitServiceWithExecutor(mock)
	commits := svc.CommitsBetween(context.Background(), t.TempDir(), time.Now().Add(-time.Hour), time.Now())
	if len(commits) != 1 {
		t.Fatalf("expected 1 valid commit, got %d", len(commits))
	}
	if commits[0].Message != "Real commit" {
		t.Errorf("Message = %q", commits[0].Message)
	}
}

func TestCommitsBetween_PassesWindowToGit(t *testing.T) {
	mock := repoMock()
	svc := NewGitServiceWithExecutor(mock)

	since := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	until := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	svc.CommitsBetween(context.Background(), t.TempDir(), since, until)

	var logCall *pexec.MockCall
	for _, call := range mock.GetCalls() {
		if len(call.Args) > 0 && call.Args[0] == "log" {
			logCall = &call
			break
		}
	}
	if logCall == nil {
		t.Fatal("expected a git log invocation")
	}

	joined := strings.Join(logCall.Args, " ")
	if !strings.Contains(joined, "--since=") || !strings.Contains(joined, "--until=") {
		t.Errorf("git log should carry window bounds, got %q", joined)
	}
	if !strings.Contains(joined, "--all") {
		t.Errorf("git log should scan all branches, got %q", joined)
	}
}
