package installer

import (
	"fmt"
	"path"
	"strings"

	"provision/internal/config"
	"provision/internal/runner"
	"provision/internal/session"
	"provision/internal/state"
)

// SyncPackages updates the system, bootstraps the third-party repository,
// builds the AUR helper and installs the package list. Every step runs even
// when an earlier one failed; the package manager is left to sort out what
// it can.
func SyncPackages(ctx *session.Context, st *state.Run) {
	cfg := ctx.Settings

	ctx.Log.Info("Updating system packages")
	step(ctx, st, packagesStep("system upgrade"), runner.Sudo("pacman", "-Syu", "--noconfirm"))

	if len(cfg.Pacman.BasePackages) > 0 {
		args := append([]string{"-S", "--needed"}, cfg.Pacman.BasePackages...)
		args = append(args, "--noconfirm")
		step(ctx, st, packagesStep("base packages"), runner.Sudo("pacman", args...))
	}

	BootstrapRepository(ctx, st)
	InstallAURHelper(ctx, st)
	InstallPackages(ctx, st)
}

// BootstrapRepository trusts the repository signing key, installs its keyring
// and mirrorlist packages, appends the repository stanza to pacman.conf when
// it is not there yet and refreshes the package databases.
func BootstrapRepository(ctx *session.Context, st *state.Run) {
	r := ctx.Settings.Repository
	ctx.Log.Info("Bootstrapping %s repository", r.Name)

	recv := []string{"--recv-key", r.Key}
	if r.Keyserver != "" {
		recv = append(recv, "--keyserver", r.Keyserver)
	}
	step(ctx, st, packagesStep("receive "+r.Name+" key"), runner.Sudo("pacman-key", recv...))
	step(ctx, st, packagesStep("sign "+r.Name+" key"), runner.Sudo("pacman-key", "--lsign-key", r.Key))

	for _, url := range []string{r.KeyringURL, r.MirrorlistURL} {
		if url == "" {
			continue
		}
		step(ctx, st, packagesStep("install "+path.Base(url)), runner.Sudo("pacman", "-U", url, "--noconfirm"))
	}

	step(ctx, st, packagesStep("add "+r.Section()+" to "+r.ConfigFile), runner.SudoShell(repositoryStanzaScript(r)))
	step(ctx, st, packagesStep("refresh package databases"), runner.Sudo("pacman", "-Syu", "--noconfirm"))
}

// repositoryStanzaScript appends the repository section to pacman.conf unless
// the section header is already present. It runs under sudo sh -c so the
// append itself is privileged.
func repositoryStanzaScript(r config.Repository) string {
	stanza := fmt.Sprintf("\n%s\nInclude = %s\n", r.Section(), r.Include)
	conf := runner.Quote(r.ConfigFile)
	return fmt.Sprintf("grep -qF %s %s || printf '%%s' %s >> %s",
		runner.Quote(r.Section()), conf, runner.Quote(stanza), conf)
}

// InstallAURHelper clones and builds the AUR helper with makepkg unless it is
// already on PATH.
func InstallAURHelper(ctx *session.Context, st *state.Run) {
	h := ctx.Settings.AURHelper
	if p, err := ctx.LookPath(h.Name); err == nil {
		ctx.Log.Info("%s already installed at %s, skipping build", h.Name, p)
		return
	}
	ctx.Log.Info("Building %s from %s", h.Name, h.Repo)
	step(ctx, st, packagesStep("build "+h.Name), runner.Shell(aurHelperScript(h)))
}

// aurHelperScript is the clone-and-build sequence. makepkg refuses to run as
// root, so this goes through a plain shell; makepkg -si asks sudo itself.
func aurHelperScript(h config.AURHelper) string {
	buildDir := h.BuildDir
	if buildDir == "" {
		buildDir = "/tmp"
	}
	dir := runner.Quote(h.Name)
	return strings.Join([]string{
		"set -e",
		"cd " + runner.Quote(buildDir),
		"rm -rf " + dir,
		"git clone " + runner.Quote(h.Repo) + " " + dir,
		"cd " + dir,
		"makepkg -si --noconfirm",
		"cd ..",
		"rm -rf " + dir,
	}, "\n")
}

// InstallPackages installs the configured package list in one AUR helper call.
func InstallPackages(ctx *session.Context, st *state.Run) {
	cfg := ctx.Settings
	if len(cfg.Packages) == 0 {
		ctx.Log.Warn("No packages configured. Skipping.")
		return
	}
	ctx.Log.Info("Installing %d packages with %s", len(cfg.Packages), cfg.AURHelper.Name)
	args := append([]string{"-S", "--noconfirm", "--needed"}, cfg.Packages...)
	step(ctx, st, packagesStep("install packages"), runner.New(cfg.AURHelper.Name, args...))
}

func packagesStep(label string) state.Step {
	return state.Step{Phase: string(PhasePackages), Label: label}
}
