package runner

import "strings"

// Command is a program and its argument vector. Nothing is interpreted by a
// shell unless the command was built with Shell or SudoShell.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory; empty means the current one.
	Dir string
}

// New returns a structured command.
func New(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

// Sudo returns name args... run through sudo.
func Sudo(name string, args ...string) Command {
	return Command{Name: "sudo", Args: append([]string{name}, args...)}
}

// Shell runs script with bash -c.
//
// This is an escape hatch for steps that need shell features (pipes,
// redirection, sequencing). The script text must come from a trusted,
// developer controlled source such as the embedded defaults or the dotfiles
// manifest shipped next to the binary. Never pass user input through it.
func Shell(script string) Command {
	return Command{Name: "bash", Args: []string{"-c", script}}
}

// SudoShell is Shell run as root, so redirections inside the script are
// privileged too. Same trust rules as Shell.
func SudoShell(script string) Command {
	return Command{Name: "sudo", Args: []string{"sh", "-c", script}}
}

// String renders the command as a copy-pasteable shell line.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, Quote(c.Name))
	for _, a := range c.Args {
		parts = append(parts, Quote(a))
	}
	return strings.Join(parts, " ")
}

// Quote minimally quotes s for POSIX shells. Safe strings are returned as is,
// everything else is single-quoted with the '\'' escape for embedded quotes.
// A leading ~ is always quoted so the shell never expands it.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	if !needsQuoting(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func needsQuoting(s string) bool {
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			continue
		case strings.ContainsRune("-_./@:,+=", r):
			continue
		case r == '~' && i > 0:
			continue
		}
		return true
	}
	return false
}
