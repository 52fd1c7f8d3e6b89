package exec

import (
	"context"
	"errors"
	"testing"
)

func TestRealExecutor_Run(t *testing.T) {
	executor := NewRealExecutor()
	ctx := context.Background()

	stdout, stderr, err := executor.Run(ctx, "", "echo", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(stdout) != "hello\n" {
		t.Errorf("expected 'hello\\n', got %q", string(stdout))
	}
	if len(stderr) != 0 {
		t.Errorf("expected empty stderr, got %q", string(stderr))
	}
}

func TestRealExecutor_Output(t *testing.T) {
	executor := NewRealExecutor()
	ctx := context.Background()

	output, err := executor.Output(ctx, "", "echo", "world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(output) != "world\n" {
		t.Errorf("expected 'world\\n', got %q", string(output))
	}
}

func TestRealExecutor_CombinedOutput(t *testing.T) {
	executor := NewRealExecutor()
	ctx := context.Background()

	output, err := executor.CombinedOutput(ctx, "", "echo", "combined")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(output) != "combined\n" {
		t.Errorf("expected 'combined\\n', got %q", string(output))
	}
}

func TestMockExecutor_Run(t *testing.T) {
	mock := NewMockExecutor(nil)

	mock.AddExactMatch("git", []string{"status"}, MockResponse{
		Stdout: []byte("On branch main"),
	})

	ctx := context.Background()
	stdout, stderr, err := mock.Run(ctx, "/some/dir", "git", "status")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(stdout) != "On branch main" {
		t.Errorf("expected 'On branch main', got %q", string(stdout))
	}
	if len(stderr) != 0 {
		t.Errorf("expected empty stderr, got %q", string(stderr))
	}

	// Verify call was recorded
	calls := mock.GetCalls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].Dir != "/some/dir" {
		t.Errorf("expected dir '/some/dir', got %q", calls[0].Dir)
	}
	if calls[0].Name != "git" {
		t.Errorf("expected name 'git', got %q", calls[0].Name)
	}
}

func TestMockExecutor_PrefixMatch(t *testing.T) {
	mock := NewMockExecutor(nil)

	mock.AddPrefixMatch("git", []string{"log"}, MockResponse{
		Stdout: []byte("abc123|fix parser|2026-02-01T09:00:00+00:00"),
	})

	ctx := context.Background()

	// Should match "git log --since=... --until=..."
	stdout, _, err := mock.Run(ctx, "", "git", "log", "--since=2026-02-01", "--all")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stdout) == 0 {
		t.Error("expected prefix rule to match")
	}
}

func TestMockExecutor_ErrorResponse(t *testing.T) {
	mock := NewMockExecutor(nil)

	wantErr := errors.New("boom")
	mock.AddExactMatch("lsof", []string{"-p", "42"}, MockResponse{Err: wantErr})

	_, err := mock.Output(context.Background(), "", "lsof", "-p", "42")
	if !errors.Is(err, wantErr) {
		t.Errorf("expected configured error, got %v", err)
	}
}

func TestMockExecutor_UnmatchedReturnsEmpty(t *testing.T) {
	mock := NewMockExecutor(nil)

	stdout, stderr, err := mock.Run(context.Background(), "", "unknown", "cmd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stdout) != 0 || len(stderr) != 0 {
		t.Error("expected empty output for unmatched command")
	}
}

func TestMockExecutor_CombinedOutput(t *testing.T) {
	mock := NewMockExecutor(nil)

	mock.AddExactMatch("git", []string{"rev-parse", "--git-dir"}, MockResponse{
		Stdout: []byte(".git\n"),
		Stderr: []byte("warning: something\n"),
	})

	output, err := mock.CombinedOutput(context.Background(), "", "git", "rev-parse", "--git-dir")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(output) != ".git\nwarning: something\n" {
		t.Errorf("unexpected combined output: %q", string(output))
	}
}

func TestDefaultExecutor_Swap(t *testing.T) {
	original := GetDefaultExecutor()
	defer SetDefaultExecutor(original)

	mock := NewMockExecutor(nil)
	SetDefaultExecutor(mock)

	if GetDefaultExecutor() != mock {
		t.Error("SetDefaultExecutor should swap the default executor")
	}
}
