// Package fetcher defines the Fetcher capability and the registry through
// which fetcher kinds are selected by their configuration tag.
//
// Variants register themselves from an init function, in the way
// database/sql drivers do:
//
//	import _ "github.com/autopkg/autopkg/fetcher/github"
package fetcher

import (
	"context"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/autopkg/autopkg/models"
)

// DefaultTimeout bounds every request a fetcher makes.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent identifies autopkg to upstream servers.
const DefaultUserAgent = "autopkg/0.1"

// Download describes an artifact that is newer than the installed version.
type Download struct {
	Version string
	Path    string
}

// Fetcher checks an upstream source for a release newer than the installed
// version and downloads it.
type Fetcher interface {
	// FetchIfNewer returns nil when there is nothing to install, either
	// because no newer release exists or because no asset matches. Errors
	// are reserved for transport and protocol failures.
	FetchIfNewer(ctx context.Context, currentVersion string) (*Download, error)
}

// Options carries process-wide settings shared by all fetchers.
type Options struct {
	// HTTPClient overrides the client used for API calls and downloads.
	HTTPClient *http.Client
	// APIBaseURL overrides the upstream API endpoint.
	APIBaseURL string
	// Token authenticates API calls when set.
	Token       string
	UserAgent   string
	DownloadDir string
	Timeout     time.Duration
}

// WithDefaults fills in unset fields.
func (o Options) WithDefaults() Options {
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.DownloadDir == "" {
		o.DownloadDir = os.TempDir()
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// Factory builds a Fetcher for one application. It returns a configuration
// error when the application's fetcher settings are unusable.
type Factory func(app *models.ApplicationSpec, opts Options) (Fetcher, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a fetcher kind available. It panics if kind is registered
// twice or factory is nil.
func Register(kind string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	if factory == nil {
		panic("fetcher: Register factory is nil")
	}
	if _, dup := factories[kind]; dup {
		panic("fetcher: Register called twice for kind " + kind)
	}
	factories[kind] = factory
}

// Kinds lists the registered fetcher kinds.
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

// New builds the fetcher selected by app.Fetcher.Type.
func New(app *models.ApplicationSpec, opts Options) (Fetcher, error) {
	mu.RLock()
	factory, ok := factories[app.Fetcher.Type]
	mu.RUnlock()
	if !ok {
		return nil, models.ConfigurationErrorf("unknown fetcher type: %q", app.Fetcher.Type)
	}
	return factory(app, opts.WithDefaults())
}
