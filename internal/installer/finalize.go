package installer

import (
	"provision/internal/runner"
	"provision/internal/session"
	"provision/internal/state"
)

// Finalize enables the configured services and hands the invoking user's
// home back to them, since the dotfile copies ran as root.
func Finalize(ctx *session.Context, st *state.Run) {
	for _, svc := range ctx.Settings.Services {
		ctx.Log.Info("Enabling %s", svc)
		step(ctx, st, finalizeStep("enable "+svc), runner.Sudo("systemctl", "enable", svc))
	}

	if !ctx.Settings.OwnerFix {
		ctx.Log.Debug("Ownership fix disabled")
		return
	}
	owner := ctx.User.Username + ":" + ctx.Group
	ctx.Log.Info("Setting ownership of %s to %s", ctx.Home(), owner)
	step(ctx, st, finalizeStep("fix ownership of "+ctx.Home()), runner.Sudo("chown", "-R", owner, ctx.Home()))
}

func finalizeStep(label string) state.Step {
	return state.Step{Phase: string(PhaseFinalize), Label: label}
}
