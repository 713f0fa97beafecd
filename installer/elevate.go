package installer

import (
	"context"

	"github.com/pkg/errors"

	"github.com/autopkg/autopkg/log"
	"github.com/autopkg/autopkg/models"
)

// ElevationHelper is re-invoked around commands that need root.
const ElevationHelper = "sudo"

// ElevationPrefix decides how to run a command that needs root. It returns
// nil when the process already runs as root, the helper invocation when the
// helper is on PATH and a terminal can show its password prompt, and an
// environment error otherwise.
func ElevationPrefix(sys System) ([]string, error) {
	if sys.Geteuid() == 0 {
		return nil, nil
	}
	if _, err := sys.LookPath(ElevationHelper); err != nil {
		return nil, models.EnvironmentErrorf("not running as root and %s is not available in PATH", ElevationHelper)
	}
	if !sys.IsTerminal() {
		return nil, models.EnvironmentErrorf("not running as root and no terminal available for %s password prompt", ElevationHelper)
	}
	return []string{ElevationHelper}, nil
}

// RunPrivileged runs name with root privileges according to
// ElevationPrefix. A non-zero exit is a subprocess error carrying the exit
// status.
func RunPrivileged(ctx context.Context, sys System, name string, args ...string) error {
	prefix, err := ElevationPrefix(sys)
	if err != nil {
		return err
	}

	argv := append(append(prefix, name), args...)
	log.G(ctx).Infof("Running install command: %s", commandLine(argv[0], argv[1:]))

	if err := sys.Run(ctx, argv[0], argv[1:]...); err != nil {
		var exitErr *models.ExitError
		if errors.As(err, &exitErr) {
			return models.NewError(models.KindSubprocess, errors.Wrap(err, "installer command failed"))
		}
		return models.NewError(models.KindEnvironment, err)
	}
	return nil
}
