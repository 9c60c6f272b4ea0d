package main

import (
	"provision/cmd"
)

// main is the program entry point.
//
// provision sets up a freshly installed Arch-based desktop for the invoking
// user. It upgrades the system, bootstraps the Chaotic-AUR repository,
// builds the AUR helper, installs the configured package list and then
// copies dotfiles into place as described by a manifest, running each
// entry's pre- and post-copy shell hooks.
//
// Individual command failures are logged and the run continues. Running as
// root or an unreadable manifest aborts before anything is changed.
func main() {
	cmd.Execute()
}
