// Package git enumerates commits made in a working directory during a
// session window. It is a read-only collaborator for the recap aggregator:
// repository detection and log scraping happen here, time-filtering against
// the requested window happens in the recap layer.
package git

import (
	pexec "github.com/zhubert/worklog-core/exec"
)

// GitService provides git operations with explicit dependency injection.
// Each instance holds its own executor, enabling proper testing and
// avoiding global state.
type GitService struct {
	executor pexec.CommandExecutor
}

// NewGitService creates a new GitService with the default real executor.
func NewGitService() *GitService {
	return &GitService{executor: pexec.NewRealExecutor()}
}

// NewGitServiceWithExecutor creates a new GitService with a custom executor.
// This is primarily used for testing where a mock executor is needed.
func NewGitServiceWithExecutor(exec pexec.CommandExecutor) *GitService {
	return &GitService{executor: exec}
}
