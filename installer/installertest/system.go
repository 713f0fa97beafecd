// Package installertest provides a scripted installer.System for tests.
package installertest

import (
	"context"
	"os/exec"
	"strings"
	"sync"

	"github.com/autopkg/autopkg/models"
)

// Response scripts the result of one command line.
type Response struct {
	Stdout   string
	ExitCode int
	Err      error
}

// System is a fake installer.System. Commands are matched by their full
// command line ("dpkg -s foo"); unscripted commands succeed with no output.
type System struct {
	mu sync.Mutex

	EUID     int
	Terminal bool
	// Missing lists executables LookPath cannot find.
	Missing   map[string]bool
	Responses map[string]Response
	Calls     []string
}

// NewRoot returns a System running as root with every tool available.
func NewRoot() *System {
	return &System{EUID: 0, Missing: map[string]bool{}, Responses: map[string]Response{}}
}

// NewUser returns a System running as an unprivileged user.
func NewUser(terminal bool) *System {
	s := NewRoot()
	s.EUID = 1000
	s.Terminal = terminal
	return s
}

func (s *System) LookPath(file string) (string, error) {
	if s.Missing[file] {
		return "", &exec.Error{Name: file, Err: exec.ErrNotFound}
	}
	return "/usr/bin/" + file, nil
}

func (s *System) Geteuid() int { return s.EUID }

func (s *System) IsTerminal() bool { return s.Terminal }

func (s *System) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	r, line := s.record(name, args)
	if r.Err != nil {
		return nil, r.Err
	}
	if r.ExitCode != 0 {
		return []byte(r.Stdout), &models.ExitError{Command: line, ExitCode: r.ExitCode}
	}
	return []byte(r.Stdout), nil
}

func (s *System) Run(ctx context.Context, name string, args ...string) error {
	_, err := s.Output(ctx, name, args...)
	return err
}

// Called reports whether line was executed.
func (s *System) Called(line string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.Calls {
		if c == line {
			return true
		}
	}
	return false
}

func (s *System) record(name string, args []string) (Response, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	line := strings.TrimSpace(name + " " + strings.Join(args, " "))
	s.Calls = append(s.Calls, line)
	return s.Responses[line], line
}
