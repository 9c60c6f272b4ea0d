package session

import (
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strings"

	"provision/internal/config"
	"provision/internal/logger"
	"provision/internal/runner"
)

// Context is the state of one provisioning run: who invoked it, how to log,
// how to run commands and what settings apply. It is built once at startup
// and only read afterwards.
type Context struct {
	User     *user.User
	Group    string // primary group name of User
	EUID     int
	NoColor  bool
	Log      *logger.Logger
	Runner   runner.Executor
	Settings *config.Settings

	// LookPath resolves a program on PATH; swapped out in tests.
	LookPath func(file string) (string, error)
}

// New resolves the invoking user and wires a Runner on the process's own
// stdin and stdout.
func New(log *logger.Logger, settings *config.Settings) (*Context, error) {
	u, err := user.Current()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve current user: %w", err)
	}

	group := u.Username
	if g, err := user.LookupGroupId(u.Gid); err == nil {
		group = g.Name
	} else {
		log.Debug("Primary group %s not resolvable, using %s: %v", u.Gid, group, err)
	}

	return &Context{
		User:     u,
		Group:    group,
		EUID:     os.Geteuid(),
		NoColor:  log.NoColor(),
		Log:      log,
		Runner:   runner.NewRunner(log),
		Settings: settings,
		LookPath: exec.LookPath,
	}, nil
}

// IsRoot reports whether the run has superuser privileges.
func (c *Context) IsRoot() bool { return c.EUID == 0 }

// Home is the invoking user's home directory.
func (c *Context) Home() string { return c.User.HomeDir }

// ExpandHome turns "~" and "~/x" into paths under the user's home.
func (c *Context) ExpandHome(path string) string {
	if path == "~" {
		return c.Home()
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(c.Home(), path[2:])
	}
	return path
}

// DotfilePath resolves a directive source against the dotfiles directory.
func (c *Context) DotfilePath(source string) string {
	return filepath.Join(c.Settings.Dotfiles.Dir, source)
}
