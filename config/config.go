package config

import (
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/go-yaml/yaml"
	"github.com/pkg/errors"

	"github.com/autopkg/autopkg/log"
	"github.com/autopkg/autopkg/models"
)

// DefaultPath is used when no --config flag is given.
const DefaultPath = "autopkg.yml"

// Store loads and saves the application list at Path.
type Store struct {
	Path string
}

func NewStore(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{Path: path}
}

func (s *Store) Load() (*models.Config, error) {
	log.L.Infof("Using config file: %s", s.Path)

	content, err := ioutil.ReadFile(s.Path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(content)
}

// Save writes cfg next to the existing file and renames it into place so
// readers never observe a partially written config.
func (s *Store) Save(cfg *models.Config) error {
	content, err := Marshal(cfg)
	if err != nil {
		return err
	}

	perm := os.FileMode(0644)
	if fi, err := os.Stat(s.Path); err == nil {
		perm = fi.Mode().Perm()
	}

	tmp, err := ioutil.TempFile(filepath.Dir(s.Path), ".autopkg-*.yml")
	if err != nil {
		return errors.Wrapf(err, "failed to write config file to %s", s.Path)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "failed to write config file to %s", s.Path)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "failed to write config file to %s", s.Path)
	}
	if err := os.Chmod(tmp.Name(), perm); err != nil {
		return errors.Wrapf(err, "failed to write config file to %s", s.Path)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return errors.Wrapf(err, "failed to write config file to %s", s.Path)
	}

	log.L.Infof("Config file updated: %s", s.Path)
	return nil
}

// Parse decodes and validates a YAML config document.
func Parse(content []byte) (*models.Config, error) {
	cfg := &models.Config{}
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config YAML")
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal renders cfg in canonical form; installers are always emitted as
// objects.
func Marshal(cfg *models.Config) ([]byte, error) {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to serialize config to YAML")
	}
	return out, nil
}

// Validate checks the invariants the batch relies on: every application has
// a unique, non-empty name. Fetcher and installer settings are validated
// per application when the batch constructs them.
func Validate(cfg *models.Config) error {
	seen := map[string]bool{}
	for i, app := range cfg.Applications {
		if app.Name == "" {
			return errors.Errorf("application #%d has no name", i+1)
		}
		if seen[app.Name] {
			return errors.Errorf("application %q is defined more than once", app.Name)
		}
		seen[app.Name] = true
	}
	return nil
}
