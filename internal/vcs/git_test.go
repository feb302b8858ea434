package vcs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const message = "Update security group rules [skip ci]"

func TestCommitAndPush_NoChanges(t *testing.T) {
	runner := &mockRunner{}
	runner.On("Output", "/repo", "git", "status", "--porcelain", "--", "security-group.yaml").Return([]byte(""), nil)

	git := NewGit(runner, Options{Pull: true, Push: true}, nil)
	committed, err := git.CommitAndPush(context.Background(), "/repo/security-group.yaml", message)

	require.NoError(t, err)
	assert.False(t, committed)
	runner.AssertExpectations(t)
	runner.AssertNumberOfCalls(t, "Output", 1)
}

func TestCommitAndPush_FullSequence(t *testing.T) {
	runner := &mockRunner{}
	runner.On("Output", "/repo", "git", "status", "--porcelain", "--", "security-group.yaml").Return([]byte(" M security-group.yaml\n"), nil)
	runner.On("Output", "/repo", "git", "pull", "--rebase", "--autostash").Return([]byte{}, nil)
	runner.On("Output", "/repo", "git", "add", "--", "security-group.yaml").Return([]byte{}, nil)
	runner.On("Output", "/repo", "git", "commit", "-m", message, "--", "security-group.yaml").Return([]byte{}, nil)
	runner.On("Output", "/repo", "git", "push").Return([]byte{}, nil)

	git := NewGit(runner, Options{Pull: true, Push: true}, nil)
	committed, err := git.CommitAndPush(context.Background(), "/repo/security-group.yaml", message)

	require.NoError(t, err)
	assert.True(t, committed)
	runner.AssertExpectations(t)
}

func TestCommitAndPush_SkipsPullAndPush(t *testing.T) {
	runner := &mockRunner{}
	runner.On("Output", "/work", "git", "status", "--porcelain", "--", "cfg/sg.yaml").Return([]byte("?? cfg/sg.yaml\n"), nil)
	runner.On("Output", "/work", "git", "add", "--", "cfg/sg.yaml").Return([]byte{}, nil)
	runner.On("Output", "/work", "git", "commit", "-m", message, "--", "cfg/sg.yaml").Return([]byte{}, nil)

	git := NewGit(runner, Options{Dir: "/work"}, nil)
	committed, err := git.CommitAndPush(context.Background(), "/work/cfg/sg.yaml", message)

	require.NoError(t, err)
	assert.True(t, committed)
	runner.AssertExpectations(t)
	runner.AssertNotCalled(t, "Output", "/work", "git", "push")
}

func TestCommitAndPush_PushFailureReportsCommit(t *testing.T) {
	runner := &mockRunner{}
	runner.On("Output", "/repo", "git", "status", "--porcelain", "--", "security-group.yaml").Return([]byte(" M security-group.yaml\n"), nil)
	runner.On("Output", "/repo", "git", "add", "--", "security-group.yaml").Return([]byte{}, nil)
	runner.On("Output", "/repo", "git", "commit", "-m", message, "--", "security-group.yaml").Return([]byte{}, nil)
	runner.On("Output", "/repo", "git", "push").Return(nil, errors.New("rejected"))

	git := NewGit(runner, Options{Push: true}, nil)
	committed, err := git.CommitAndPush(context.Background(), "/repo/security-group.yaml", message)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "git push")
	assert.True(t, committed)
}

func TestCommitAndPush_StatusFailure(t *testing.T) {
	runner := &mockRunner{}
	runner.On("Output", "/repo", "git", "status", "--porcelain", "--", "security-group.yaml").Return(nil, errors.New("not a git repository"))

	git := NewGit(runner, Options{Pull: true, Push: true}, nil)
	committed, err := git.CommitAndPush(context.Background(), "/repo/security-group.yaml", message)

	require.Error(t, err)
	assert.False(t, committed)
	runner.AssertNumberOfCalls(t, "Output", 1)
}
