package installer

import (
	"os"

	"provision/internal/config"
	"provision/internal/runner"
	"provision/internal/session"
	"provision/internal/state"
)

// exitUnpackFailed is recorded for a copy step whose archive source could not
// be unpacked, so the copy never ran.
const exitUnpackFailed = 1

// SyncDotfiles applies the manifest directives in order. A directive's
// failures are logged and recorded but never stop the directives after it,
// and nothing already copied is undone.
func SyncDotfiles(ctx *session.Context, directives []config.Directive, st *state.Run) {
	ctx.Log.Debug("Starting SyncDotfiles with %d directives", len(directives))
	for i, d := range directives {
		applyDirective(ctx, i+1, d, st)
	}
	ctx.Log.Debug("Finished SyncDotfiles")
}

// applyDirective runs pre_copy, the copy and post_copy for one directive.
// Each stage runs whatever happened in the previous one.
func applyDirective(ctx *session.Context, n int, d config.Directive, st *state.Run) {
	target := ctx.ExpandHome(d.Target)

	ctx.Log.Info("Source: %s", d.Source)
	ctx.Log.Info("Target: %s", target)
	ctx.Log.Info("Pre-copy commands: %q", d.PreCopy)
	ctx.Log.Info("Post-copy commands: %q", d.PostCopy)
	ctx.Log.Info("----------")

	for _, c := range d.PreCopy {
		step(ctx, st, dotfilesStep(n, "pre_copy "+d.Source), runner.Shell(c))
	}

	copyDotfile(ctx, n, d.Source, target, st)

	for _, c := range d.PostCopy {
		step(ctx, st, dotfilesStep(n, "post_copy "+d.Source), runner.Shell(c))
	}
}

// copyDotfile recursively copies the packaged source onto target as root.
// Archive sources are unpacked into a staging directory first and the
// staged tree is copied instead.
func copyDotfile(ctx *session.Context, n int, source, target string, st *state.Run) {
	s := dotfilesStep(n, "copy "+source)
	src := ctx.DotfilePath(source)

	if isArchive(src) {
		staging, err := os.MkdirTemp("", "provision-")
		if err != nil {
			unpackFailed(ctx, st, s, src, err)
			return
		}
		defer os.RemoveAll(staging)

		extracted, err := ExtractArchive(src, staging)
		if err != nil {
			unpackFailed(ctx, st, s, src, err)
			return
		}
		ctx.Log.Debug("Unpacked %s to %s", src, extracted)
		src = extracted
	}

	step(ctx, st, s, copyCommand(src, target))
}

// copyCommand copies src onto target as root. -T makes target the copy
// itself rather than a directory to copy into, so a second run overwrites
// the first instead of nesting src inside it.
func copyCommand(src, target string) runner.Command {
	return runner.Sudo("cp", "-RT", src, target)
}

func unpackFailed(ctx *session.Context, st *state.Run, s state.Step, src string, err error) {
	ctx.Log.Error("Directive %d: failed to unpack %s: %v", s.Entry, src, err)
	s.Command = "unpack " + src
	s.ExitCode = exitUnpackFailed
	st.Record(s)
}

func dotfilesStep(n int, label string) state.Step {
	return state.Step{Phase: string(PhaseDotfiles), Label: label, Entry: n}
}
