package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"provision/internal/config"
	"provision/internal/installer"
	"provision/internal/logger"
	"provision/internal/runner"
	"provision/internal/session"
	"provision/internal/state"
)

// execute runs the root command with args and returns what it printed.
func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		noColor, debug, configPath = false, false, ""
		manifestPath, dotfilesDir, phaseNames = "", "", nil
	})
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func stubExit(t *testing.T) *[]int {
	t.Helper()
	var codes []int
	orig := exitFunc
	exitFunc = func(code int) { codes = append(codes, code) }
	t.Cleanup(func() { exitFunc = orig })
	return &codes
}

func useStateHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", dir)
	xdg.Reload()
	t.Cleanup(xdg.Reload)
	return dir
}

// forbidRuns fails the test on any command.
type forbidRuns struct{ t *testing.T }

func (f forbidRuns) Run(c runner.Command) runner.Result {
	f.t.Errorf("unexpected command: %s", c)
	return runner.Result{Command: c}
}

func sampleRun() *state.Run {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &state.Run{
		ID:       "0b6f3f5e-2a8e-4d55-9d4c-1f7b6f0c2a11",
		User:     "alice",
		Phases:   []string{"packages", "dotfiles"},
		Started:  started,
		Finished: started.Add(95 * time.Second),
		Steps: []state.Step{
			{Phase: "packages", Label: "system upgrade", Command: "sudo pacman -Syu --noconfirm"},
			{Phase: "dotfiles", Label: "copy fish", Command: "sudo cp -RT dotfiles/fish /home/alice/.config/fish", ExitCode: 1, Entry: 1},
		},
	}
}

func TestRenderStatus(t *testing.T) {
	out, err := renderStatus(sampleRun(), true)
	require.NoError(t, err)

	assert.Contains(t, out, "Run 0b6f3f5e-2a8e-4d55-9d4c-1f7b6f0c2a11 by alice\n")
	assert.Contains(t, out, "took 1m35s")
	assert.Contains(t, out, "Phases: packages, dotfiles\n")
	assert.Contains(t, out, "Failed steps: 1 of 2\n")
	assert.Contains(t, out, "Phase")
	assert.Contains(t, out, "system upgrade")
	assert.Contains(t, out, "sudo cp -RT dotfiles/fish /home/alice/.config/fish")
	assert.NotContains(t, out, "\x1b[")
}

func TestRenderStatusWithoutSteps(t *testing.T) {
	run := sampleRun()
	run.Steps = nil

	out, err := renderStatus(run, true)
	require.NoError(t, err)
	assert.Contains(t, out, "Failed steps: 0 of 0\n")
	assert.NotContains(t, out, "Command")
}

func TestStatusCommandWithoutRecord(t *testing.T) {
	useStateHome(t)

	out := execute(t, "status")
	assert.Equal(t, "No run recorded yet.\n", out)
}

func TestStatusCommandShowsLastRun(t *testing.T) {
	useStateHome(t)
	path, err := state.DefaultPath()
	require.NoError(t, err)
	require.NoError(t, state.Save(path, sampleRun()))

	out := execute(t, "status", "--no-color")
	assert.Contains(t, out, "by alice")
	assert.Contains(t, out, "copy fish")
}

func TestRunExitsOnBadSettings(t *testing.T) {
	codes := stubExit(t)
	bad := filepath.Join(t.TempDir(), "settings.ini")

	execute(t, "run", "finalize", "--config", bad)
	assert.Equal(t, []int{1}, *codes)
}

func TestRunOverrides(t *testing.T) {
	t.Cleanup(func() { manifestPath, dotfilesDir = "", "" })

	c := &cobra.Command{}
	c.Flags().StringVar(&manifestPath, "manifest", "", "")
	c.Flags().StringVar(&dotfilesDir, "dotfiles-dir", "", "")
	require.NoError(t, c.ParseFlags([]string{"--manifest", "/srv/dotfiles.json"}))

	assert.Equal(t, map[string]any{"dotfiles.manifest": "/srv/dotfiles.json"}, runOverrides(c))

	require.NoError(t, c.ParseFlags([]string{"--dotfiles-dir", "/srv/dotfiles"}))
	assert.Equal(t, map[string]any{
		"dotfiles.manifest": "/srv/dotfiles.json",
		"dotfiles.dir":      "/srv/dotfiles",
	}, runOverrides(c))
}

func TestPhaseSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range runCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["packages"])
	assert.True(t, names["dotfiles"])
	assert.True(t, names["finalize"])
}

func TestRunAsRootLeavesNoFiles(t *testing.T) {
	codes := stubExit(t)
	stateHome := useStateHome(t)

	orig := newContext
	newContext = func(log *logger.Logger, settings *config.Settings) (*session.Context, error) {
		ctx, err := orig(log, settings)
		if err != nil {
			return nil, err
		}
		ctx.EUID = 0
		ctx.Runner = forbidRuns{t}
		return ctx, nil
	}
	t.Cleanup(func() { newContext = orig })

	execute(t, "run", "finalize")

	assert.Equal(t, []int{1}, *codes)
	entries, err := os.ReadDir(stateHome)
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing is written under XDG_STATE_HOME")
}

func TestSelectPhases(t *testing.T) {
	phases, err := selectPhases(nil)
	require.NoError(t, err)
	assert.Equal(t, installer.AllPhases(), phases)

	phases, err = selectPhases([]string{"finalize", "packages", "finalize"})
	require.NoError(t, err)
	assert.Equal(t, []installer.Phase{installer.PhasePackages, installer.PhaseFinalize}, phases)

	_, err = selectPhases([]string{"reboot"})
	assert.ErrorContains(t, err, `unknown phase "reboot"`)
}
