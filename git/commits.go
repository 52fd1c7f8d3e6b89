package git

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/zhubert/worklog-core/logger"
)

// logTimeout bounds a single git log invocation. Commit enumeration is a
// best-effort enrichment; a slow or wedged repository must not stall a recap.
const logTimeout = 10 * time.Second

// shortSHALen is the abbreviated hash length used in summaries.
const shortSHALen = 8

// Commit is one commit made during a session window.
type Commit struct {
	SHA     string    `json:"sha"`
	Message string    `json:"message"`
	Date    time.Time `json:"date"`
}

// IsRepository reports whether dir is inside a git checkout.
func (s *GitService) IsRepository(ctx context.Context, dir string) bool {
	if dir == "" {
		return false
	}
	if _, err := os.Stat(dir); err != nil {
		return false
	}
	_, _, err := s.executor.Run(ctx, dir, "git", "rev-parse", "--git-dir")
	return err == nil
}

// CommitsBetween returns commits made in dir between since and until, on any
// branch, newest last. A directory that is not a repository, or any git
// failure, yields an empty slice rather than an error — commits are
// enrichment, never a reason to fail a recap.
func (s *GitService) CommitsBetween(ctx context.Context, dir string, since, until time.Time) []Commit {
	log := logger.WithComponent("git")

	if !s.IsRepository(ctx, dir) {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, logTimeout)
	defer cancel()

	sinceArg := "--since=" + since.Local().Format("2006-01-02 15:04:05")
	untilArg := "--until=" + until.Local().Format("2006-01-02 15:04:05")

	output, err := s.executor.Output(ctx, dir, "git", "log", sinceArg, untilArg, "--format=%H|%s|%aI", "--all")
	if err != nil {
		log.Debug("git log failed", "dir", dir, "error", err)
		return nil
	}

	var commits []Commit
	for _, line := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "|", 3)
		if len(parts) < 3 {
			log.Debug("skipping malformed git log line", "line", line)
			continue
		}

		date, err := time.Parse(time.RFC3339, strings.TrimSpace(parts[2]))
		if err != nil {
			log.Debug("skipping commit with unparseable date", "line", line, "error", err)
			continue
		}

		sha := parts[0]
		if len(sha) > shortSHALen {
			sha = sha[:shortSHALen]
		}

		commits = append(commits, Commit{
			SHA:     sha,
			Message: parts[1],
			Date:    date,
		})
	}

	log.Debug("enumerated commits", "dir", dir, "count", len(commits))
	return commits
}
