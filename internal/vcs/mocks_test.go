package vcs

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Output(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	callArgs := make([]interface{}, 0, len(args)+2)
	callArgs = append(callArgs, dir, name)
	for _, a := range args {
		callArgs = append(callArgs, a)
	}
	result := m.Called(callArgs...)
	if result.Get(0) == nil {
		return nil, result.Error(1)
	}
	return result.Get(0).([]byte), result.Error(1)
}
