package deb

import (
	"bufio"
	"bytes"
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/autopkg/autopkg/installer"
	"github.com/autopkg/autopkg/log"
	"github.com/autopkg/autopkg/models"
)

// Kind is the installer type tag handled by this package.
const Kind = "deb"

// NotInstalledVersion is reported when the package is absent, so any real
// upstream release compares as newer.
const NotInstalledVersion = "0.0.0"

const dpkg = "dpkg"

func init() {
	installer.Register(Kind, func(app *models.ApplicationSpec, sys installer.System) (installer.Installer, error) {
		return New(app, sys), nil
	})
}

// Deb installs .deb packages with dpkg.
type Deb struct {
	packageName string
	pinned      bool
	sys         installer.System
}

func New(app *models.ApplicationSpec, sys installer.System) *Deb {
	if sys == nil {
		sys = installer.RealSystem{}
	}
	return &Deb{
		packageName: app.PackageNameOrDefault(),
		pinned:      app.IsPinned(),
		sys:         sys,
	}
}

// PackageName implements installer.PackageNamer.
func (d *Deb) PackageName() string {
	return d.packageName
}

// ShouldCheckForUpdate implements installer.Installer.
func (d *Deb) ShouldCheckForUpdate(ctx context.Context) (models.UpdateCheck, error) {
	if d.pinned {
		log.G(ctx).Infof("Deb: package %s is pinned; skipping update check", d.packageName)
		return models.SkipUpdate(), nil
	}

	v, err := d.installedVersion(ctx)
	if err != nil {
		return models.UpdateCheck{}, err
	}
	if v == "" {
		log.G(ctx).Infof("Deb: package %s not installed; treating as version %s", d.packageName, NotInstalledVersion)
		return models.CheckAgainst(NotInstalledVersion), nil
	}
	return models.CheckAgainst(v), nil
}

// installedVersion asks dpkg for the installed version. An empty result
// means the version could not be determined.
func (d *Deb) installedVersion(ctx context.Context) (string, error) {
	if _, err := d.sys.LookPath(dpkg); err != nil {
		log.G(ctx).Warnf("Deb: %s not found in PATH; cannot query installed version", dpkg)
		return "", nil
	}

	out, err := d.sys.Output(ctx, dpkg, "-s", d.packageName)
	if err != nil {
		var exitErr *models.ExitError
		if errors.As(err, &exitErr) {
			log.G(ctx).Infof("Deb: %s -s %s failed with status %d; assuming not installed", dpkg, d.packageName, exitErr.ExitCode)
			return "", nil
		}
		return "", models.NewError(models.KindEnvironment, errors.Wrapf(err, "failed to query %s", d.packageName))
	}

	v := parseVersion(out)
	if v != "" {
		log.G(ctx).Infof("Deb: found installed version for %s: %s", d.packageName, v)
	}
	return v, nil
}

// parseVersion returns the value of the first "Version:" line of dpkg -s
// output.
func parseVersion(status []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(status))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "Version:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "Version:"))
		}
	}
	return ""
}

// Install implements installer.Installer.
func (d *Deb) Install(ctx context.Context, path string) error {
	return installer.RunPrivileged(ctx, d.sys, dpkg, "-i", path)
}
