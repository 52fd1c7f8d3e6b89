package recap

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/zhubert/worklog-core/event"
	"github.com/zhubert/worklog-core/git"
	"github.com/zhubert/worklog-core/logger"
	"github.com/zhubert/worklog-core/summarize"
)

// CommitLister enumerates commits made in a working directory. Satisfied by
// git.GitService; injected so tests can stub repository state.
type CommitLister interface {
	IsRepository(ctx context.Context, dir string) bool
	CommitsBetween(ctx context.Context, dir string, since, until time.Time) []git.Commit
}

// Recapper scans a session-log root and produces ordered session summaries
// for a window. Each invocation reads an immutable snapshot of the logs at
// call time; nothing is shared across concurrent invocations.
type Recapper struct {
	root          string
	aggregator    *Aggregator
	commits       CommitLister
	summarizer    summarize.Summarizer
	contextWindow int
}

// Option configures a Recapper.
type Option func(*Recapper)

// WithCommitLister sets the commit enumeration collaborator.
func WithCommitLister(l CommitLister) Option {
	return func(r *Recapper) { r.commits = l }
}

// WithSummarizer sets the discussion-point collaborator.
func WithSummarizer(s summarize.Summarizer) Option {
	return func(r *Recapper) { r.summarizer = s }
}

// WithTitleMaxLen bounds titles derived from user messages.
func WithTitleMaxLen(n int) Option {
	return func(r *Recapper) { r.aggregator.TitleMaxLen = n }
}

// WithContextWindow sets the fallback token budget for usage records that
// omit a window.
func WithContextWindow(n int) Option {
	return func(r *Recapper) { r.contextWindow = n }
}

// NewRecapper creates a Recapper over the given session-log root.
func NewRecapper(root string, opts ...Option) *Recapper {
	r := &Recapper{
		root:       root,
		aggregator: NewAggregator(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Recap aggregates every session log under the root that intersects the
// window, ordered by session start time. Per-log failures are scoped: a
// missing session_meta or an unreadable file excludes that log, logs a
// warning, and never prevents reporting on the others.
func (r *Recapper) Recap(ctx context.Context, window Window) ([]Summary, error) {
	log := logger.WithComponent("recap")

	paths, err := r.findSessionLogs(window.Start)
	if err != nil {
		return nil, err
	}

	var summaries []Summary
	for _, path := range paths {
		logSummaries, err := r.recapLog(path, window)
		if err != nil {
			log.Warn("skipping session log", "path", path, "error", err)
			continue
		}
		for i := range logSummaries {
			r.enrich(ctx, &logSummaries[i], window)
		}
		summaries = append(summaries, logSummaries...)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Start.Before(summaries[j].Start)
	})

	log.Info("recap complete", "logs", len(paths), "sessions", len(summaries))
	return summaries, nil
}

// RecapSession aggregates the single session identified by id, over all
// time. Returns an error if no log under the root carries that id.
func (r *Recapper) RecapSession(ctx context.Context, id string) (*Summary, error) {
	paths, err := r.findSessionLogs(time.Time{})
	if err != nil {
		return nil, err
	}

	log := logger.WithComponent("recap")
	window := AllTime()

	for _, path := range paths {
		meta, err := event.ReadMeta(path)
		if err != nil {
			log.Debug("skipping log without meta", "path", path, "error", err)
			continue
		}
		if meta.ID != id {
			continue
		}

		summaries, err := r.recapLog(path, window)
		if err != nil {
			return nil, err
		}
		for i := range summaries {
			if summaries[i].ID != id {
				continue
			}
			r.enrich(ctx, &summaries[i], window)
			return &summaries[i], nil
		}
	}

	return nil, fmt.Errorf("session %s not found under %s", id, r.root)
}

// recapLog aggregates one log file.
func (r *Recapper) recapLog(path string, window Window) ([]Summary, error) {
	reader, err := event.Open(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	reader.DefaultContextWindow = r.contextWindow

	return r.aggregator.AggregateReader(reader, window)
}

// enrich merges collaborator data into a summary: commits enumerated from
// the working directory (time-filtered against the window, deduplicated
// against commits already recorded in the log) and discussion points from
// the summarizer, embedded verbatim.
func (r *Recapper) enrich(ctx context.Context, s *Summary, window Window) {
	log := logger.WithSession(s.ID)

	if r.commits != nil && s.CWD != "" && !s.Start.IsZero() && r.commits.IsRepository(ctx, s.CWD) {
		seen := make(map[string]bool, len(s.Commits))
		for _, c := range s.Commits {
			seen[shortSHA(c.SHA)] = true
		}
		for _, c := range r.commits.CommitsBetween(ctx, s.CWD, s.Start, s.End) {
			if !window.Contains(c.Date) {
				continue
			}
			if seen[shortSHA(c.SHA)] {
				continue
			}
			seen[shortSHA(c.SHA)] = true
			s.Commits = append(s.Commits, c)
		}
		sort.SliceStable(s.Commits, func(i, j int) bool {
			return s.Commits[i].Date.Before(s.Commits[j].Date)
		})
	}

	if r.summarizer != nil && len(s.Transcript()) > 0 {
		points, err := r.summarizer.Summarize(ctx, s.Transcript())
		if err != nil {
			log.Warn("discussion summarization failed", "error", err)
		} else {
			s.DiscussionPoints = points
		}
	}
}

// findSessionLogs walks the root for .jsonl session logs, skipping subagent
// logs and, when since is set, files not modified since then. A missing
// root yields an empty list, not an error — no sessions is a valid answer.
func (r *Recapper) findSessionLogs(since time.Time) ([]string, error) {
	var paths []string

	err := filepath.WalkDir(r.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == r.root {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() {
			if d.Name() == "subagents" {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".jsonl" {
			return nil
		}
		if !since.IsZero() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			if info.ModTime().Before(since) {
				return nil
			}
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan session root %s: %w", r.root, err)
	}

	sort.Strings(paths)
	return paths, nil
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}

// HomeRelative rewrites an absolute path under the user's home directory to
// ~/ form, for display.
func HomeRelative(path string) string {
	if path == "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == home {
		return "~"
	}
	if rest, ok := strings.CutPrefix(path, home+string(os.PathSeparator)); ok {
		return "~/" + filepath.ToSlash(rest)
	}
	return path
}
