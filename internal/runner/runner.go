package runner

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"provision/internal/logger"
)

const (
	// ExitNotStarted is reported when the program could not be started at
	// all, the same code a shell uses for "command not found".
	ExitNotStarted = 127
	// exitSignalBase is added to the signal number of a killed child.
	exitSignalBase = 128
)

// Result is the outcome of one command. The output itself is not kept: it
// was streamed to the console while the child ran.
type Result struct {
	Command  Command
	ExitCode int
	Duration time.Duration
}

// OK reports a zero exit status.
func (r Result) OK() bool { return r.ExitCode == 0 }

// Executor runs one command to completion and reports its exit status.
type Executor interface {
	Run(cmd Command) Result
}

// Runner executes commands as child processes. Stdin is passed through so
// the child can prompt (sudo passwords, package manager confirmations) and
// stdout and stderr are merged into one stream that is copied to Out as it
// arrives.
//
// There is no timeout: a child that never exits blocks the caller forever.
type Runner struct {
	Stdin io.Reader
	Out   io.Writer
	Log   *logger.Logger
}

// NewRunner returns a Runner wired to the process's own stdin and stdout.
func NewRunner(log *logger.Logger) *Runner {
	return &Runner{Stdin: os.Stdin, Out: os.Stdout, Log: log}
}

// Run executes cmd and blocks until it exits. The returned exit code is the
// child's own; Run never retries and never turns a failure into an error.
func (r *Runner) Run(c Command) Result {
	start := time.Now()
	res := Result{Command: c}

	r.Log.Info("Running: %s", c)

	code, err := r.run(c)
	if err != nil {
		r.Log.Error("Failed to start %s: %v", c.Name, err)
	}
	res.ExitCode = code
	res.Duration = time.Since(start)

	r.Log.Info("Exit code: %d", code)
	r.Log.Debug("%s finished in %s", c.Name, res.Duration.Round(time.Millisecond))
	return res
}

func (r *Runner) run(c Command) (int, error) {
	cmd := exec.Command(c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdin = r.Stdin // prompts from sudo, makepkg and friends reach the user

	// One pipe for both streams keeps the interleaving the child produced.
	pr, pw, err := os.Pipe()
	if err != nil {
		return ExitNotStarted, err
	}
	defer pr.Close()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		return ExitNotStarted, err
	}
	// The child owns the write end now; EOF arrives once it (and anything it
	// spawned holding the pipe) is gone.
	pw.Close()

	// Drain on a separate goroutine while Wait blocks on the child
	done := make(chan struct{})
	go func() {
		defer close(done)
		drain(r.out(), pr)
	}()

	waitErr := cmd.Wait()
	<-done // every byte is on the console before the exit code is logged

	// A non-zero exit is an ExitError and still a valid result; anything
	// else means the process never ran properly
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		return ExitNotStarted, waitErr
	}
	return exitCode(cmd.ProcessState), nil
}

// drain forwards everything read from src to dst until EOF. Each chunk is
// written as soon as it is read, so complete lines and unterminated prompts
// both show up immediately.
func drain(dst io.Writer, src io.Reader) {
	buf := make([]byte, 32*1024)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				dst = io.Discard
			}
		}
		if err != nil {
			return
		}
	}
}

func (r *Runner) out() io.Writer {
	if r.Out == nil {
		return io.Discard
	}
	return r.Out
}

func exitCode(state *os.ProcessState) int {
	if state == nil {
		return ExitNotStarted
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return exitSignalBase + int(ws.Signal())
	}
	return state.ExitCode()
}
