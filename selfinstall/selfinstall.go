// Package selfinstall installs the running autopkg binary, a default config
// and the systemd units that run it periodically.
package selfinstall

import (
	"bytes"
	"context"
	"embed"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"text/template"

	"github.com/pkg/errors"

	"github.com/autopkg/autopkg/installer"
	"github.com/autopkg/autopkg/log"
	"github.com/autopkg/autopkg/models"
)

const (
	DefaultInstallDir = "/usr/local/bin"
	DefaultConfigPath = "/etc/autopkg/config.yml"
	DefaultSystemdDir = "/etc/systemd/system"

	BinaryName  = "autopkg"
	ServiceName = "autopkg.service"
	TimerName   = "autopkg.timer"
)

//go:embed templates
var templates embed.FS

// Options controls where things are installed.
type Options struct {
	InstallDir string
	ConfigPath string
	SystemdDir string
	// Executable is the binary to copy; defaults to os.Executable().
	Executable string
	System     installer.System
}

func (o Options) withDefaults() (Options, error) {
	if o.InstallDir == "" {
		o.InstallDir = DefaultInstallDir
	}
	if o.ConfigPath == "" {
		o.ConfigPath = DefaultConfigPath
	}
	if o.SystemdDir == "" {
		o.SystemdDir = DefaultSystemdDir
	}
	if o.System == nil {
		o.System = installer.RealSystem{}
	}
	if o.Executable == "" {
		exe, err := os.Executable()
		if err != nil {
			return o, errors.Wrap(err, "failed to get current executable path")
		}
		o.Executable = exe
	}
	return o, nil
}

// Run installs every piece that is missing and enables the timer. Existing
// files are never overwritten.
func Run(ctx context.Context, opts Options) error {
	opts, err := opts.withDefaults()
	if err != nil {
		return err
	}
	log.G(ctx).Info("Starting self-install")

	binary, err := installBinary(ctx, opts.Executable, opts.InstallDir)
	if err != nil {
		return err
	}
	if err := installConfig(ctx, opts.ConfigPath); err != nil {
		return err
	}
	if err := installUnits(ctx, opts.SystemdDir, binary, opts.ConfigPath); err != nil {
		return err
	}
	if err := enableTimer(ctx, opts.System); err != nil {
		return err
	}

	log.G(ctx).Infof("Self-install completed: binary %s, config %s", binary, opts.ConfigPath)
	log.G(ctx).Infof("Check the timer with: systemctl status %s", TimerName)
	return nil
}

func installBinary(ctx context.Context, exe, dir string) (string, error) {
	target := filepath.Join(dir, BinaryName)
	if exists(target) {
		log.G(ctx).Infof("Binary already exists at %s, skipping", target)
		return target, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrapf(err, "failed to create install directory %s", dir)
	}

	src, err := os.Open(exe)
	if err != nil {
		return "", errors.Wrapf(err, "failed to open %s", exe)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0755)
	if err != nil {
		return "", errors.Wrapf(err, "failed to create %s, do you have permission?", target)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(target)
		return "", errors.Wrapf(err, "failed to copy binary to %s", target)
	}
	if err := dst.Close(); err != nil {
		return "", errors.Wrapf(err, "failed to copy binary to %s", target)
	}
	// The umask may have stripped the execute bits.
	if err := os.Chmod(target, 0755); err != nil {
		return "", errors.Wrapf(err, "failed to set permissions on %s", target)
	}
	log.G(ctx).Infof("Binary installed to %s", target)
	return target, nil
}

func installConfig(ctx context.Context, path string) error {
	if exists(path) {
		log.G(ctx).Infof("Config file already exists at %s, skipping", path)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "failed to create config directory %s", filepath.Dir(path))
	}
	content, err := templates.ReadFile("templates/default_config.yml")
	if err != nil {
		return err
	}
	if err := ioutil.WriteFile(path, content, 0644); err != nil {
		return errors.Wrapf(err, "failed to write config file to %s, do you have permission?", path)
	}
	log.G(ctx).Infof("Default config written to %s", path)
	return nil
}

type unitData struct {
	Binary string
	Config string
}

func installUnits(ctx context.Context, dir, binary, configPath string) error {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return models.EnvironmentErrorf("systemd directory %s does not exist, is this a systemd-based system?", dir)
	}
	data := unitData{Binary: binary, Config: configPath}
	for _, name := range []string{ServiceName, TimerName} {
		path := filepath.Join(dir, name)
		if exists(path) {
			log.G(ctx).Infof("%s already exists, skipping", path)
			continue
		}
		content, err := renderUnit(name, data)
		if err != nil {
			return err
		}
		if err := ioutil.WriteFile(path, content, 0644); err != nil {
			return errors.Wrapf(err, "failed to write %s, try running with sudo", path)
		}
		log.G(ctx).Infof("Created %s", path)
	}
	return nil
}

func renderUnit(name string, data unitData) ([]byte, error) {
	tmpl, err := template.ParseFS(templates, "templates/"+name)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s template", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, errors.Wrapf(err, "failed to render %s", name)
	}
	return buf.Bytes(), nil
}

func enableTimer(ctx context.Context, sys installer.System) error {
	if _, err := sys.LookPath("systemctl"); err != nil {
		return models.EnvironmentErrorf("systemctl command not found, is this a systemd-based system?")
	}
	log.G(ctx).Info("Reloading systemd daemon")
	if _, err := sys.Output(ctx, "systemctl", "daemon-reload"); err != nil {
		return models.NewError(models.KindSubprocess, errors.Wrap(err, "failed to reload systemd daemon"))
	}
	log.G(ctx).Infof("Enabling and starting %s", TimerName)
	if _, err := sys.Output(ctx, "systemctl", "enable", "--now", TimerName); err != nil {
		return models.NewError(models.KindSubprocess, errors.Wrapf(err, "failed to enable %s", TimerName))
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
