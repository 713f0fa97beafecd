// Package installer defines the Installer capability, the registry through
// which installer kinds are selected, and the privilege elevation policy
// shared by installers that modify the system.
package installer

import (
	"context"
	"sort"
	"sync"

	"github.com/autopkg/autopkg/models"
)

// Installer reports the installed version of an application and applies
// downloaded artifacts.
type Installer interface {
	ShouldCheckForUpdate(ctx context.Context) (models.UpdateCheck, error)
	Install(ctx context.Context, path string) error
}

// PackageNamer is implemented by installers backed by a system package
// database. After their first successful install the batch persists the
// package identity in the application's config.
type PackageNamer interface {
	PackageName() string
}

// Factory builds an Installer for one application.
type Factory func(app *models.ApplicationSpec, sys System) (Installer, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes an installer kind available. It panics if kind is
// registered twice or factory is nil.
func Register(kind string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	if factory == nil {
		panic("installer: Register factory is nil")
	}
	if _, dup := factories[kind]; dup {
		panic("installer: Register called twice for kind " + kind)
	}
	factories[kind] = factory
}

func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// New builds the installer selected by app.Installer.Type. A nil sys uses
// RealSystem.
func New(app *models.ApplicationSpec, sys System) (Installer, error) {
	mu.RLock()
	factory, ok := factories[app.Installer.Type]
	mu.RUnlock()
	if !ok {
		return nil, models.ConfigurationErrorf("unknown installer type: %q", app.Installer.Type)
	}
	if sys == nil {
		sys = RealSystem{}
	}
	return factory(app, sys)
}
