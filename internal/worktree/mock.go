package worktree

import "context"

// MockRunner is a function-field mock of the Runner interface for testing.
type MockRunner struct {
	// OutputFunc is the mock implementation for Output.
	OutputFunc func(ctx context.Context, dir, name string, args ...string) (string, error)
	// Calls records every invocation as name followed by args.
	Calls [][]string
}

// Output calls the mock OutputFunc if set, otherwise returns empty output.
func (m *MockRunner) Output(ctx context.Context, dir, name string, args ...string) (string, error) {
	m.Calls = append(m.Calls, append([]string{name}, args...))
	if m.OutputFunc != nil {
		return m.OutputFunc(ctx, dir, name, args...)
	}
	return "", nil
}
