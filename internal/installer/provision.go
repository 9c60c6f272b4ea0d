package installer

import (
	"errors"
	"slices"

	"provision/internal/config"
	"provision/internal/session"
	"provision/internal/state"
)

// ErrRunningAsRoot is returned when the run was started by the superuser.
var ErrRunningAsRoot = errors.New("refusing to run as root")

// Preflight checks the conditions that must hold before anything on the
// system is touched.
func Preflight(ctx *session.Context) error {
	ctx.Log.Info("Running as user: %s", ctx.User.Username)
	if ctx.IsRoot() {
		ctx.Log.Error("Please make a new user and run this script as that user, not as root.")
		return ErrRunningAsRoot
	}
	return nil
}

// Provision runs the requested phases in order. It only returns an error for
// the fatal cases, running as root and an unloadable manifest, and both are
// detected before any command runs. Command failures are logged and
// recorded in st; they never end the run early.
func Provision(ctx *session.Context, phases []Phase, st *state.Run) error {
	if err := Preflight(ctx); err != nil {
		return err
	}

	var directives []config.Directive
	if slices.Contains(phases, PhaseDotfiles) {
		manifest := ctx.Settings.Dotfiles.Manifest
		var err error
		directives, err = config.LoadManifest(manifest)
		if err != nil {
			ctx.Log.Error("Failed to load manifest: %v", err)
			return err
		}
		ctx.Log.Info("Loaded %d directives from %s", len(directives), manifest)
	}

	for _, p := range phases {
		ctx.Log.Debug("Starting phase %s", p)
		switch p {
		case PhasePackages:
			SyncPackages(ctx, st)
		case PhaseDotfiles:
			SyncDotfiles(ctx, directives, st)
		case PhaseFinalize:
			Finalize(ctx, st)
		}
	}
	return nil
}
