package installer

import (
	"fmt"

	"provision/internal/runner"
	"provision/internal/session"
	"provision/internal/state"
)

// Phase is one independently runnable part of the provisioning sequence.
type Phase string

const (
	PhasePackages Phase = "packages"
	PhaseDotfiles Phase = "dotfiles"
	PhaseFinalize Phase = "finalize"
)

// AllPhases is the full sequence in execution order.
func AllPhases() []Phase {
	return []Phase{PhasePackages, PhaseDotfiles, PhaseFinalize}
}

// ParsePhase maps a phase name to its Phase.
func ParsePhase(s string) (Phase, error) {
	for _, p := range AllPhases() {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown phase %q", s)
}

// step runs one command of the sequence, records its outcome and logs a
// failure with enough context to find it again. It never stops the caller.
func step(ctx *session.Context, st *state.Run, s state.Step, cmd runner.Command) runner.Result {
	res := ctx.Runner.Run(cmd)

	s.Command = cmd.String()
	s.ExitCode = res.ExitCode
	st.Record(s)

	if !res.OK() {
		if s.Entry > 0 {
			ctx.Log.Error("Directive %d: %s failed with exit code %d: %s", s.Entry, s.Label, res.ExitCode, s.Command)
		} else {
			ctx.Log.Error("%s failed with exit code %d: %s", s.Label, res.ExitCode, s.Command)
		}
	}
	return res
}
