package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"
)

var (
	ErrInstallerTimeout = errors.New("installer did not finish in time")
	ErrInstallerSpawn   = errors.New("failed to start installer")
)

// Command is one installer invocation.
type Command struct {
	Path  string
	Dir   string
	Stdin string
}

// Runner executes an installer and reports its exit code.
type Runner interface {
	Run(ctx context.Context, cmd Command) (int, error)
}

// ExecRunner runs installers as child processes, streaming their output to
// Stdout and Stderr.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

func NewExecRunner() *ExecRunner {
	return &ExecRunner{Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run starts the installer with no arguments, writes the script to its
// standard input, closes it and waits. A non-zero exit is not an error.
func (r *ExecRunner) Run(ctx context.Context, c Command) (int, error) {
	cmd := exec.CommandContext(ctx, c.Path)
	cmd.Dir = c.Dir
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	cmd.WaitDelay = 5 * time.Second

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInstallerSpawn, err)
	}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInstallerSpawn, err)
	}

	// The installer may exit before reading everything.
	_, _ = io.WriteString(stdin, c.Stdin)
	_ = stdin.Close()

	err = cmd.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return 0, ErrInstallerTimeout
		}
		return 0, ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return 0, err
	}
	return 0, nil
}
