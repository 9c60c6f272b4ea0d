package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"provision/internal/logger"
	"provision/internal/state"
)

// statusCmd prints the record of the most recent run.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the steps of the last run and their exit codes",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := state.DefaultPath()
		if err != nil {
			return err
		}
		run, err := state.Load(path)
		if errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintln(cmd.OutOrStdout(), "No run recorded yet.")
			return nil
		}
		if err != nil {
			return err
		}

		out, err := renderStatus(run, noColor || !logger.ColorSupported(os.Stdout))
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

// renderStatus formats a run record as a header and a table of steps.
func renderStatus(run *state.Run, plain bool) (string, error) {
	if plain {
		pterm.DisableStyling()
	} else {
		pterm.EnableStyling()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Run %s by %s\n", run.ID, run.User)
	fmt.Fprintf(&b, "Started %s, took %s\n", run.Started.Format(time.RFC1123), run.Finished.Sub(run.Started).Round(time.Second))
	fmt.Fprintf(&b, "Phases: %s\n", strings.Join(run.Phases, ", "))
	fmt.Fprintf(&b, "Failed steps: %d of %d\n\n", len(run.Failed()), len(run.Steps))

	if len(run.Steps) == 0 {
		return b.String(), nil
	}

	data := pterm.TableData{{"Phase", "Directive", "Step", "Exit", "Command"}}
	for _, s := range run.Steps {
		entry := ""
		if s.Entry > 0 {
			entry = strconv.Itoa(s.Entry)
		}
		exit := strconv.Itoa(s.ExitCode)
		if !s.OK() {
			exit = pterm.FgRed.Sprint(exit)
		}
		data = append(data, []string{s.Phase, entry, s.Label, exit, s.Command})
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return "", fmt.Errorf("failed to render status table: %w", err)
	}
	b.WriteString(table)
	b.WriteString("\n")
	return b.String(), nil
}
