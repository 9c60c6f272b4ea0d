package cmd

import (
	"github.com/spf13/cobra"

	"provision/internal/installer"
	"provision/internal/state"
)

var (
	// manifestPath overrides dotfiles.manifest (--manifest).
	manifestPath string
	// dotfilesDir overrides dotfiles.dir (--dotfiles-dir).
	dotfilesDir string
	// phaseNames restricts run to the named phases (--phase, repeatable).
	phaseNames []string
)

// runCmd runs the whole sequence: packages, dotfiles, finalize, or the
// subset picked with --phase.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Provision the machine (packages, dotfiles, finalize)",
	RunE: func(cmd *cobra.Command, args []string) error {
		phases, err := selectPhases(phaseNames)
		if err != nil {
			return err
		}
		exitWith(provision(cmd, phases))
		return nil
	},
}

// runPackagesCmd runs only the package phase.
var runPackagesCmd = &cobra.Command{
	Use:   "packages",
	Short: "Update the system, bootstrap the repository and install packages",
	Run: func(cmd *cobra.Command, args []string) {
		exitWith(provision(cmd, []installer.Phase{installer.PhasePackages}))
	},
}

// runDotfilesCmd runs only the manifest driven copy loop.
var runDotfilesCmd = &cobra.Command{
	Use:   "dotfiles",
	Short: "Copy dotfiles into place from the manifest",
	Run: func(cmd *cobra.Command, args []string) {
		exitWith(provision(cmd, []installer.Phase{installer.PhaseDotfiles}))
	},
}

// runFinalizeCmd enables services and fixes home ownership.
var runFinalizeCmd = &cobra.Command{
	Use:   "finalize",
	Short: "Enable services and fix ownership of the home directory",
	Run: func(cmd *cobra.Command, args []string) {
		exitWith(provision(cmd, []installer.Phase{installer.PhaseFinalize}))
	},
}

// provision runs phases and returns the process exit code: 1 for the fatal
// cases, 0 otherwise, however many individual commands failed.
func provision(cmd *cobra.Command, phases []installer.Phase) int {
	ctx, closeLog, err := newSession(runOverrides(cmd))
	if err != nil {
		return 1
	}
	defer closeLog()

	names := make([]string, len(phases))
	for i, p := range phases {
		names[i] = string(p)
	}
	st := state.NewRun(ctx.User.Username, names)

	if err := installer.Provision(ctx, phases, st); err != nil {
		return 1
	}
	st.Finish()

	if path, err := state.DefaultPath(); err != nil {
		ctx.Log.Warn("Not saving run record: %v", err)
	} else if err := state.Save(path, st); err != nil {
		ctx.Log.Warn("Not saving run record: %v", err)
	} else {
		ctx.Log.Debug("Run record written to %s", path)
	}

	ctx.Log.Info("Provisioning finished")
	return 0
}

// selectPhases parses phase names and returns them in execution order,
// whatever order they were given in. No names means every phase.
func selectPhases(names []string) ([]installer.Phase, error) {
	if len(names) == 0 {
		return installer.AllPhases(), nil
	}
	want := map[installer.Phase]bool{}
	for _, n := range names {
		p, err := installer.ParsePhase(n)
		if err != nil {
			return nil, err
		}
		want[p] = true
	}
	var phases []installer.Phase
	for _, p := range installer.AllPhases() {
		if want[p] {
			phases = append(phases, p)
		}
	}
	return phases, nil
}

// runOverrides turns explicitly set flags into settings overrides.
func runOverrides(cmd *cobra.Command) map[string]any {
	overrides := map[string]any{}
	if f := cmd.Flag("manifest"); f != nil && f.Changed {
		overrides["dotfiles.manifest"] = manifestPath
	}
	if f := cmd.Flag("dotfiles-dir"); f != nil && f.Changed {
		overrides["dotfiles.dir"] = dotfilesDir
	}
	return overrides
}

func exitWith(code int) {
	if code != 0 {
		exitFunc(code)
	}
}

func init() {
	runCmd.PersistentFlags().StringVarP(&manifestPath, "manifest", "m", "", "Path to the dotfiles manifest (default from settings: dotfiles.json)")
	runCmd.PersistentFlags().StringVar(&dotfilesDir, "dotfiles-dir", "", "Directory manifest sources are relative to (default from settings: dotfiles)")
	runCmd.Flags().StringSliceVar(&phaseNames, "phase", nil, "Run only these phases: packages, dotfiles, finalize (repeatable)")

	runCmd.AddCommand(runPackagesCmd)
	runCmd.AddCommand(runDotfilesCmd)
	runCmd.AddCommand(runFinalizeCmd)
}
