// Package vcs records config changes in git.
package vcs

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/eleven-am/sgsync/internal/domain"
)

type Git struct {
	runner CommandRunner
	dir    string
	pull   bool
	push   bool
	logger *log.Logger
}

var _ domain.Committer = (*Git)(nil)

type Options struct {
	Dir  string
	Pull bool
	Push bool
}

func NewGit(runner CommandRunner, opts Options, logger *log.Logger) *Git {
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Git{
		runner: runner,
		dir:    opts.Dir,
		pull:   opts.Pull,
		push:   opts.Push,
		logger: logger,
	}
}

// CommitAndPush stages path, commits it with message and pushes. It reports
// false without committing when path has no pending changes.
func (g *Git) CommitAndPush(ctx context.Context, path, message string) (bool, error) {
	dir := g.dir
	if dir == "" {
		dir = filepath.Dir(path)
	}
	rel := path
	if filepath.IsAbs(path) {
		if r, err := filepath.Rel(dir, path); err == nil {
			rel = r
		}
	}

	status, err := g.git(ctx, dir, "status", "--porcelain", "--", rel)
	if err != nil {
		return false, err
	}
	if strings.TrimSpace(string(status)) == "" {
		g.logger.Info("no changes to commit", "file", rel)
		return false, nil
	}

	if g.pull {
		if _, err := g.git(ctx, dir, "pull", "--rebase", "--autostash"); err != nil {
			return false, err
		}
	}
	if _, err := g.git(ctx, dir, "add", "--", rel); err != nil {
		return false, err
	}
	if _, err := g.git(ctx, dir, "commit", "-m", message, "--", rel); err != nil {
		return false, err
	}
	g.logger.Info("committed config", "file", rel, "message", message)

	if g.push {
		if _, err := g.git(ctx, dir, "push"); err != nil {
			return true, err
		}
		g.logger.Info("pushed config")
	}
	return true, nil
}

func (g *Git) git(ctx context.Context, dir string, args ...string) ([]byte, error) {
	out, err := g.runner.Output(ctx, dir, "git", args...)
	if err != nil {
		return nil, fmt.Errorf("git %s: %w", args[0], err)
	}
	return out, nil
}
