package identity

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/zhubert/worklog-core/event"
	pexec "github.com/zhubert/worklog-core/exec"
	"github.com/zhubert/worklog-core/logger"
)

// markerPrefix names session marker files inside the inherited marker
// directory: session-<id>.
const markerPrefix = "session-"

// Resolver resolves the calling process's session id from a snapshot of the
// host environment. Every ambient input is injected so tests can construct
// synthetic environments; zero-value collaborators fall back to the real
// host. A Resolver holds no mutable state and is safe to reuse.
type Resolver struct {
	root     string
	env      func(string) (string, bool)
	procRoot string
	ppid     int
	goos     string
	executor pexec.CommandExecutor
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithEnvLookup replaces the environment snapshot.
func WithEnvLookup(lookup func(string) (string, bool)) ResolverOption {
	return func(r *Resolver) { r.env = lookup }
}

// WithProcRoot replaces the proc filesystem root.
func WithProcRoot(root string) ResolverOption {
	return func(r *Resolver) { r.procRoot = root }
}

// WithParentPID replaces the parent process id.
func WithParentPID(pid int) ResolverOption {
	return func(r *Resolver) { r.ppid = pid }
}

// WithGOOS replaces the detected operating system.
func WithGOOS(goos string) ResolverOption {
	return func(r *Resolver) { r.goos = goos }
}

// WithExecutor replaces the command executor used for lsof.
func WithExecutor(exec pexec.CommandExecutor) ResolverOption {
	return func(r *Resolver) { r.executor = exec }
}

// NewResolver creates a Resolver over the given session-log root.
func NewResolver(sessionRoot string, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		root:     sessionRoot,
		env:      os.LookupEnv,
		procRoot: "/proc",
		ppid:     os.Getppid(),
		goos:     runtime.GOOS,
		executor: pexec.GetDefaultExecutor(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve runs the resolution state machine once and returns the single
// verified session id. Any ambiguity — zero or multiple candidates from the
// chosen strategy, or zero or multiple session logs embedding the derived
// id — fails hard with the step and count observed. The caller must treat
// failure as "abort", never as "pick one".
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	log := logger.WithComponent("identity")

	strategy, err := r.detectStrategy()
	if err != nil {
		return "", err
	}
	log.Debug("resolution strategy selected", "strategy", strategy)

	candidates, err := r.collectCandidates(ctx, strategy)
	if err != nil {
		return "", err
	}
	if len(candidates) != 1 {
		log.Warn("candidate collection ambiguous", "strategy", strategy, "count", len(candidates))
		return "", &AmbiguousMatchError{Step: StepCollect, Strategy: strategy, Count: len(candidates)}
	}

	id := candidates[0].ID
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("%s strategy produced malformed session id %q from %s: %w", strategy, id, candidates[0].Source, err)
	}

	if err := r.verifyLogUnique(strategy, id); err != nil {
		return "", err
	}

	log.Debug("session identity resolved", "strategy", strategy, "source", candidates[0].Source)
	return id, nil
}

// detectStrategy picks the single strategy the environment supports. An
// injected id wins over a marker directory, which wins over the parent's
// file table; a variable that is set but unusable still claims its
// strategy — detection never falls through to the next signal.
func (r *Resolver) detectStrategy() (Strategy, error) {
	if _, ok := r.env(SessionIDEnv); ok {
		return StrategyEnv, nil
	}
	if _, ok := r.env(MarkerDirEnv); ok {
		return StrategyMarker, nil
	}
	if r.parentTableReadable() {
		return StrategyParentFD, nil
	}
	return "", ErrEnvironmentUnsupported
}

func (r *Resolver) parentTableReadable() bool {
	switch r.goos {
	case "linux":
		_, err := os.Stat(filepath.Join(r.procRoot, strconv.Itoa(r.ppid), "fd"))
		return err == nil
	case "darwin":
		return r.ppid > 0
	default:
		return false
	}
}

// collectCandidates enumerates every host-level match for the chosen
// strategy's signal. It never narrows: uniqueness is judged by the caller.
func (r *Resolver) collectCandidates(ctx context.Context, strategy Strategy) ([]Candidate, error) {
	switch strategy {
	case StrategyEnv:
		return r.envCandidates(), nil
	case StrategyMarker:
		return r.markerCandidates()
	case StrategyParentFD:
		return r.parentFDCandidates(ctx)
	default:
		return nil, fmt.Errorf("unknown resolution strategy %q", strategy)
	}
}

func (r *Resolver) envCandidates() []Candidate {
	value, _ := r.env(SessionIDEnv)
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return []Candidate{{Strategy: StrategyEnv, Source: SessionIDEnv, ID: value}}
}

// markerCandidates scans the inherited marker directory for session-<id>
// files. The directory is private to one host process, so more than one
// marker means the host misbehaved, not that we should pick.
func (r *Resolver) markerCandidates() ([]Candidate, error) {
	dir, _ := r.env(MarkerDirEnv)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read marker directory %s: %w", dir, err)
	}

	var candidates []Candidate
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id, ok := strings.CutPrefix(entry.Name(), markerPrefix)
		if !ok || id == "" {
			continue
		}
		candidates = append(candidates, Candidate{
			Strategy: StrategyMarker,
			Source:   filepath.Join(dir, entry.Name()),
			ID:       id,
		})
	}
	return candidates, nil
}

// parentFDCandidates derives candidates from the session logs the direct
// parent process holds open. A session's host process keeps its own log
// open for append, so the parent's file table is structurally unique to one
// session. The same log open on multiple descriptors is still one match.
func (r *Resolver) parentFDCandidates(ctx context.Context) ([]Candidate, error) {
	paths, err := r.parentOpenFiles(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var candidates []Candidate
	for _, path := range paths {
		if !r.isSessionLogPath(path) {
			continue
		}
		id := strings.TrimSuffix(filepath.Base(path), ".jsonl")
		if seen[id] {
			continue
		}
		seen[id] = true
		candidates = append(candidates, Candidate{
			Strategy: StrategyParentFD,
			Source:   path,
			ID:       id,
		})
	}
	return candidates, nil
}

// parentOpenFiles lists the paths open in the parent process, via the proc
// filesystem on linux and lsof on darwin.
func (r *Resolver) parentOpenFiles(ctx context.Context) ([]string, error) {
	switch r.goos {
	case "linux":
		fdDir := filepath.Join(r.procRoot, strconv.Itoa(r.ppid), "fd")
		entries, err := os.ReadDir(fdDir)
		if err != nil {
			return nil, fmt.Errorf("read parent file table %s: %w", fdDir, err)
		}
		var paths []string
		for _, entry := range entries {
			target, err := os.Readlink(filepath.Join(fdDir, entry.Name()))
			if err != nil {
				continue
			}
			paths = append(paths, target)
		}
		return paths, nil

	case "darwin":
		out, err := r.executor.Output(ctx, "", "lsof", "-a", "-p", strconv.Itoa(r.ppid), "-F", "n")
		if err != nil {
			return nil, fmt.Errorf("lsof on parent pid %d: %w", r.ppid, err)
		}
		var paths []string
		for _, line := range strings.Split(string(out), "\n") {
			if path, ok := strings.CutPrefix(line, "n"); ok && path != "" {
				paths = append(paths, path)
			}
		}
		return paths, nil

	default:
		return nil, ErrEnvironmentUnsupported
	}
}

// isSessionLogPath reports whether path is a session log under the
// configured root, excluding subagent logs.
func (r *Resolver) isSessionLogPath(path string) bool {
	if filepath.Ext(path) != ".jsonl" {
		return false
	}
	rel, err := filepath.Rel(r.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	for _, part := range strings.Split(filepath.Dir(rel), string(os.PathSeparator)) {
		if part == "subagents" {
			return false
		}
	}
	return true
}

// verifyLogUnique performs the second, independent uniqueness check:
// exactly one persisted session log under the root must carry the derived
// id, both in its filename and in its embedded session_meta record.
func (r *Resolver) verifyLogUnique(strategy Strategy, id string) error {
	var matches []string
	err := filepath.WalkDir(r.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "subagents" {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Base(path) == id+".jsonl" {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan session root %s: %w", r.root, err)
	}

	if len(matches) != 1 {
		return &AmbiguousMatchError{Step: StepVerify, Strategy: strategy, Count: len(matches)}
	}

	meta, err := event.ReadMeta(matches[0])
	if err != nil {
		return fmt.Errorf("verify session log %s: %w", matches[0], err)
	}
	if meta.ID != id {
		return fmt.Errorf("session log %s embeds id %q, want %q", matches[0], meta.ID, id)
	}
	return nil
}
