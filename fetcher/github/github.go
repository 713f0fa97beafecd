package github

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gobwas/glob"
	ghApi "github.com/google/go-github/v26/github"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/autopkg/autopkg/fetcher"
	"github.com/autopkg/autopkg/log"
	"github.com/autopkg/autopkg/models"
	"github.com/autopkg/autopkg/version"
)

// Kind is the fetcher type tag handled by this package.
const Kind = "github"

const defaultPattern = "*"

func init() {
	fetcher.Register(Kind, func(app *models.ApplicationSpec, opts fetcher.Options) (fetcher.Fetcher, error) {
		return New(app.Fetcher, opts)
	})
}

// Asset is a downloadable file attached to a release.
type Asset struct {
	Name        string
	DownloadURL string
}

// Release is the subset of the latest-release response autopkg uses.
type Release struct {
	TagName string
	Assets  []Asset
}

// Github fetches the latest release of a GitHub repository.
type Github struct {
	Owner   string
	Repo    string
	Pattern string

	matcher     glob.Glob
	client      *ghApi.Client
	download    *http.Client
	userAgent   string
	downloadDir string
}

// New validates spec and prepares the API client. A missing or malformed
// repo and an invalid file pattern are configuration errors.
func New(spec models.FetcherSpec, opts fetcher.Options) (*Github, error) {
	opts = opts.WithDefaults()

	if spec.Repo == "" {
		return nil, models.ConfigurationErrorf("github fetcher requires `repo` field")
	}
	owner, repo, err := splitRepo(spec.Repo)
	if err != nil {
		return nil, err
	}

	pattern := spec.FilePattern
	if pattern == "" {
		pattern = defaultPattern
	}
	matcher, err := glob.Compile(pattern)
	if err != nil {
		return nil, models.NewError(models.KindConfiguration, errors.Wrapf(err, "invalid glob pattern: %s", pattern))
	}

	apiHTTP, downloadHTTP := httpClients(opts)
	client := ghApi.NewClient(apiHTTP)
	client.UserAgent = opts.UserAgent
	if opts.APIBaseURL != "" {
		base, err := url.Parse(strings.TrimSuffix(opts.APIBaseURL, "/") + "/")
		if err != nil {
			return nil, models.NewError(models.KindConfiguration, errors.Wrapf(err, "invalid API base url %s", opts.APIBaseURL))
		}
		client.BaseURL = base
	}

	return &Github{
		Owner:       owner,
		Repo:        repo,
		Pattern:     pattern,
		matcher:     matcher,
		client:      client,
		download:    downloadHTTP,
		userAgent:   opts.UserAgent,
		downloadDir: opts.DownloadDir,
	}, nil
}

func splitRepo(s string) (string, string, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", models.ConfigurationErrorf("github repo must be in form `owner/repo`, got %q", s)
	}
	return parts[0], parts[1], nil
}

// httpClients returns the API client, authenticated when a token is set, and
// a plain client for asset downloads so the token never follows redirects to
// third-party hosts.
func httpClients(opts fetcher.Options) (*http.Client, *http.Client) {
	if opts.HTTPClient != nil {
		return opts.HTTPClient, opts.HTTPClient
	}

	download := &http.Client{Timeout: opts.Timeout}
	if opts.Token == "" {
		return &http.Client{Timeout: opts.Timeout}, download
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
	api := oauth2.NewClient(context.Background(), ts)
	api.Timeout = opts.Timeout
	return api, download
}

// FetchIfNewer implements fetcher.Fetcher.
func (g *Github) FetchIfNewer(ctx context.Context, currentVersion string) (*fetcher.Download, error) {
	release, err := g.LatestRelease(ctx)
	if err != nil {
		return nil, err
	}

	latest := version.Normalize(release.TagName)
	current := version.Normalize(currentVersion)
	log.G(ctx).Infof("GitHub: latest tag=%s, normalized=%s, current=%s", release.TagName, latest, current)

	if !version.IsNewer(current, latest) {
		log.G(ctx).Info("GitHub: no newer version available")
		return nil, nil
	}
	log.G(ctx).Infof("GitHub: newer version available: %s > %s", latest, current)

	asset, ok := g.SelectAsset(release)
	if !ok {
		log.G(ctx).Warnf("GitHub: no asset matching pattern '%s' found", g.Pattern)
		return nil, nil
	}
	log.G(ctx).Infof("GitHub: selected asset '%s' (%s)", asset.Name, asset.DownloadURL)

	path := fetcher.CachePath(g.downloadDir, g.Owner+"/"+g.Repo, asset.Name)
	if err := fetcher.DownloadFile(ctx, g.download, g.userAgent, asset.DownloadURL, path); err != nil {
		return nil, err
	}
	return &fetcher.Download{Version: latest, Path: path}, nil
}

// LatestRelease queries the releases-latest endpoint.
func (g *Github) LatestRelease(ctx context.Context) (*Release, error) {
	log.G(ctx).Infof("GitHub: querying latest release of %s/%s", g.Owner, g.Repo)

	rel, _, err := g.client.Repositories.GetLatestRelease(ctx, g.Owner, g.Repo)
	if err != nil {
		return nil, models.NewError(models.KindTransport, errors.Wrapf(err, "failed to get latest release of %s/%s", g.Owner, g.Repo))
	}

	release := &Release{TagName: rel.GetTagName()}
	for _, a := range rel.Assets {
		release.Assets = append(release.Assets, Asset{
			Name:        a.GetName(),
			DownloadURL: a.GetBrowserDownloadURL(),
		})
	}
	return release, nil
}

// SelectAsset returns the first asset, in upstream order, whose name
// matches the file pattern.
func (g *Github) SelectAsset(release *Release) (Asset, bool) {
	for _, a := range release.Assets {
		if g.matcher.Match(a.Name) {
			return a, true
		}
	}
	return Asset{}, false
}
