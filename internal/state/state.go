package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/google/uuid"
)

// Step is the outcome of one external command of a run.
type Step struct {
	Phase    string `json:"phase"`               // packages, dotfiles or finalize
	Label    string `json:"label"`               // what the command was for, e.g. "copy fish"
	Command  string `json:"command"`             // shell rendering of the command
	ExitCode int    `json:"exit_code"`           // the child's own exit status
	Entry    int    `json:"directive,omitempty"` // 1-based manifest position for dotfiles steps
}

// OK reports a zero exit status.
func (s Step) OK() bool { return s.ExitCode == 0 }

// Run records the most recent provisioning run. It is written after the run
// and only read back by the status command; it never drives behaviour.
type Run struct {
	ID       string    `json:"id"`
	User     string    `json:"user"`
	Phases   []string  `json:"phases"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Steps    []Step    `json:"steps"`
}

// NewRun starts a record for user.
func NewRun(user string, phases []string) *Run {
	return &Run{
		ID:      uuid.NewString(),
		User:    user,
		Phases:  phases,
		Started: time.Now(),
	}
}

// Record appends a step. A nil Run records nothing, so callers that do not
// keep state can pass nil.
func (r *Run) Record(s Step) {
	if r == nil {
		return
	}
	r.Steps = append(r.Steps, s)
}

// Finish stamps the end time.
func (r *Run) Finish() {
	r.Finished = time.Now()
}

// Failed returns the steps with a non-zero exit code, in run order.
func (r *Run) Failed() []Step {
	var failed []Step
	for _, s := range r.Steps {
		if !s.OK() {
			failed = append(failed, s)
		}
	}
	return failed
}

// DefaultPath returns $XDG_STATE_HOME/provision/state.json, creating the
// parent directory.
func DefaultPath() (string, error) {
	return xdg.StateFile("provision/state.json")
}

// Load reads a run record. A missing file is reported with an error that
// satisfies errors.Is(err, fs.ErrNotExist).
func Load(path string) (*Run, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read state file %s: %w", path, err)
	}
	var r Run
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", path, err)
	}
	return &r, nil
}

// Save writes r as indented JSON, replacing any previous record.
func Save(path string, r *Run) error {
	raw, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return fmt.Errorf("failed to write state file %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace state file %s: %w", path, err)
	}
	return nil
}
