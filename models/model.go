package models

// Config is the declarative application list persisted as YAML.
type Config struct {
	Applications []ApplicationSpec `yaml:"applications"`
}

// ApplicationSpec describes how one application is fetched and installed.
type ApplicationSpec struct {
	Name      string        `yaml:"name"`
	Fetcher   FetcherSpec   `yaml:"fetcher"`
	Installer InstallerSpec `yaml:"installer"`
	// PackageName overrides the installed package identity. It defaults to
	// Name and is filled in after the first successful package install.
	PackageName *string `yaml:"package_name,omitempty"`
	Pinned      *bool   `yaml:"pinned,omitempty"`
}

// PackageNameOrDefault returns the package identity used by package-database
// backed installers.
func (a *ApplicationSpec) PackageNameOrDefault() string {
	if a.PackageName != nil && *a.PackageName != "" {
		return *a.PackageName
	}
	return a.Name
}

// IsPinned reports whether update checks are disabled for the application.
func (a *ApplicationSpec) IsPinned() bool {
	return a.Pinned != nil && *a.Pinned
}

type FetcherSpec struct {
	Type string `yaml:"type"`
	// Repo is "owner/name" for the github fetcher.
	Repo        string `yaml:"repo,omitempty"`
	FilePattern string `yaml:"file_pattern,omitempty"`
}

// InstallerSpec accepts both `installer: deb` and `installer: {type: deb}`.
type InstallerSpec struct {
	Type string `yaml:"type"`
}

// UnmarshalYAML normalizes the shorthand string form into the object form.
func (s *InstallerSpec) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var short string
	if err := unmarshal(&short); err == nil {
		s.Type = short
		return nil
	}

	type plain InstallerSpec
	var full plain
	if err := unmarshal(&full); err != nil {
		return err
	}
	*s = InstallerSpec(full)
	return nil
}

// UpdateCheck is an installer's answer to whether, and against which
// version, an update check should run.
type UpdateCheck struct {
	Skip           bool
	CurrentVersion string
}

func SkipUpdate() UpdateCheck {
	return UpdateCheck{Skip: true}
}

func CheckAgainst(currentVersion string) UpdateCheck {
	return UpdateCheck{CurrentVersion: currentVersion}
}
