package installer

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/autopkg/autopkg/models"
)

// System abstracts the process environment installers depend on so tests can
// stand in for dpkg, sudo and the terminal.
type System interface {
	LookPath(file string) (string, error)
	// Geteuid returns the effective user id of the process.
	Geteuid() int
	// IsTerminal reports whether stdin is attached to a terminal.
	IsTerminal() bool
	// Output runs a command and returns its stdout. A non-zero exit is
	// reported as *models.ExitError.
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
	// Run runs a command attached to the process's stdio. A non-zero exit
	// is reported as *models.ExitError.
	Run(ctx context.Context, name string, args ...string) error
}

// RealSystem implements System using actual system calls.
type RealSystem struct{}

func (RealSystem) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (RealSystem) Geteuid() int {
	return os.Geteuid()
}

func (RealSystem) IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func (RealSystem) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	return out, exitError(commandLine(name, args), err, stderr.String())
}

func (RealSystem) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return exitError(commandLine(name, args), cmd.Run(), "")
}

func exitError(command string, err error, stderr string) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &models.ExitError{Command: command, ExitCode: exitErr.ExitCode(), Stderr: strings.TrimSpace(stderr)}
	}
	return errors.Wrapf(err, "failed to run %s", command)
}

func commandLine(name string, args []string) string {
	return strings.TrimSpace(name + " " + strings.Join(args, " "))
}
