package installer

import (
	"bytes"
	"errors"
	"os/user"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"provision/internal/config"
	"provision/internal/logger"
	"provision/internal/runner"
	"provision/internal/session"
)

// fakeExecutor records every command and answers with a scripted exit code.
type fakeExecutor struct {
	calls []runner.Command
	// fail maps a substring of the rendered command to the exit code it gets.
	fail map[string]int
}

func (f *fakeExecutor) Run(c runner.Command) runner.Result {
	f.calls = append(f.calls, c)
	line := c.String()
	for sub, code := range f.fail {
		if strings.Contains(line, sub) {
			return runner.Result{Command: c, ExitCode: code}
		}
	}
	return runner.Result{Command: c}
}

func (f *fakeExecutor) lines() []string {
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.String()
	}
	return out
}

// mockExecutor is for expectation style tests.
type mockExecutor struct {
	mock.Mock
}

func (m *mockExecutor) Run(c runner.Command) runner.Result {
	args := m.Called(c)
	return args.Get(0).(runner.Result)
}

// runnerFunc adapts a function over the full argv to runner.Executor.
type runnerFunc func(argv []string) int

func (f runnerFunc) Run(c runner.Command) runner.Result {
	return runner.Result{Command: c, ExitCode: f(append([]string{c.Name}, c.Args...))}
}

func notFound(string) (string, error) { return "", errors.New("not found") }

// newTestContext builds a context for user "u" with home /home/u, the
// embedded default settings and exec as the runner.
func newTestContext(t *testing.T, exec runner.Executor) (*session.Context, *bytes.Buffer) {
	t.Helper()
	cfg, err := config.LoadConfig(config.LoadOptions{})
	require.NoError(t, err)

	logs := &bytes.Buffer{}
	return &session.Context{
		User:     &user.User{Username: "u", HomeDir: "/home/u", Uid: "1000", Gid: "1000"},
		Group:    "u",
		EUID:     1000,
		NoColor:  true,
		Log:      logger.New(logger.Options{Console: logs, NoColor: true}),
		Runner:   exec,
		Settings: cfg,
		LookPath: notFound,
	}, logs
}
