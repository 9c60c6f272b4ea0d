package cmd

import (
	"github.com/spf13/cobra"

	"provision/internal/config"
	"provision/internal/logger"
	"provision/internal/session"
)

var (
	// debug enables debug logging (--debug).
	debug bool
	// noColor disables coloured output (--no-color); NO_COLOR does the same.
	noColor bool
	// configPath is an optional settings file layered over the embedded defaults.
	configPath string
)

// rootCmd is the base command for the CLI tool `provision`.
var rootCmd = &cobra.Command{
	Use:          "provision",
	Short:        "Desktop provisioning tool",
	Long:         "Updates the system, bootstraps the Chaotic-AUR repository, installs the package list and copies dotfiles into place.",
	SilenceUsage: true,
}

// Execute runs the CLI. A command line error exits with status 1.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		exitFunc(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable coloured output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a settings file (.yaml, .yml or .toml)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
}

// newContext builds the run context; stubbed in tests.
var newContext = session.New

// newSession loads settings, builds the logger and resolves the invoking
// user. The log file is only opened for a non-root user, so a refused root
// run leaves nothing behind. The returned close function releases the file.
func newSession(overrides map[string]any) (*session.Context, func(), error) {
	log := logger.New(logger.Options{Debug: debug, NoColor: noColor})

	settings, err := config.LoadConfig(config.LoadOptions{File: configPath, Overrides: overrides})
	if err != nil {
		log.Error("Failed to load settings: %v", err)
		return nil, nil, err
	}

	ctx, err := newContext(log, settings)
	if err != nil {
		log.Error("%v", err)
		return nil, nil, err
	}

	if settings.Log.File && !ctx.IsRoot() {
		if path, err := logger.DefaultFile(); err != nil {
			log.Warn("Logging to console only: %v", err)
		} else if err := log.OpenFile(path); err != nil {
			log.Warn("Logging to console only: %v", err)
		} else {
			log.Debug("Logging to %s", path)
		}
	}
	return ctx, func() { _ = log.Close() }, nil
}
