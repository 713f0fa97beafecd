package runner

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/autopkg/autopkg/fetcher"
	"github.com/autopkg/autopkg/history"
	"github.com/autopkg/autopkg/installer"
	"github.com/autopkg/autopkg/models"
)

// script drives the fake fetcher and installer for one application.
type script struct {
	check      models.UpdateCheck
	checkErr   error
	download   *fetcher.Download
	fetchErr   error
	installErr error

	fetched   []string
	installed []string
}

var scripts = map[string]*script{}

type fakeFetcher struct{ s *script }

func (f *fakeFetcher) FetchIfNewer(ctx context.Context, currentVersion string) (*fetcher.Download, error) {
	f.s.fetched = append(f.s.fetched, currentVersion)
	return f.s.download, f.s.fetchErr
}

type fakeInstaller struct{ s *script }

func (i *fakeInstaller) ShouldCheckForUpdate(ctx context.Context) (models.UpdateCheck, error) {
	return i.s.check, i.s.checkErr
}

func (i *fakeInstaller) Install(ctx context.Context, path string) error {
	i.s.installed = append(i.s.installed, path)
	return i.s.installErr
}

type fakePackageInstaller struct {
	fakeInstaller
	name string
}

func (i *fakePackageInstaller) PackageName() string { return i.name }

func init() {
	fetcher.Register("fake", func(app *models.ApplicationSpec, opts fetcher.Options) (fetcher.Fetcher, error) {
		return &fakeFetcher{s: scripts[app.Name]}, nil
	})
	installer.Register("fake", func(app *models.ApplicationSpec, sys installer.System) (installer.Installer, error) {
		return &fakeInstaller{s: scripts[app.Name]}, nil
	})
	installer.Register("fake-pkg", func(app *models.ApplicationSpec, sys installer.System) (installer.Installer, error) {
		return &fakePackageInstaller{fakeInstaller: fakeInstaller{s: scripts[app.Name]}, name: app.PackageNameOrDefault()}, nil
	})
}

func fakeApp(name, installerKind string) models.ApplicationSpec {
	return models.ApplicationSpec{
		Name:      name,
		Fetcher:   models.FetcherSpec{Type: "fake"},
		Installer: models.InstallerSpec{Type: installerKind},
	}
}

type countingSaver struct {
	saves   int
	payload []*string
	err     error
}

func (s *countingSaver) Save(cfg *models.Config) error {
	s.saves++
	s.payload = nil
	for _, app := range cfg.Applications {
		s.payload = append(s.payload, app.PackageName)
	}
	return s.err
}

type memoryRecorder struct{ entries []history.Entry }

func (m *memoryRecorder) Record(ctx context.Context, e history.Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

func TestRunApplication(t *testing.T) {
	download := &fetcher.Download{Version: "1.3.0", Path: "/tmp/autopkg-app.deb"}

	tests := []struct {
		name          string
		kind          string
		dryRun        bool
		script        script
		want          Outcome
		wantErr       bool
		wantFetched   int
		wantInstalled int
		wantMutated   bool
	}{
		{
			name:   "pinned never fetches",
			kind:   "fake",
			script: script{check: models.SkipUpdate(), download: download},
			want:   OutcomePinned,
		},
		{
			name:        "up to date",
			kind:        "fake",
			script:      script{check: models.CheckAgainst("1.3.0")},
			want:        OutcomeUpToDate,
			wantFetched: 1,
		},
		{
			name:          "installed",
			kind:          "fake",
			script:        script{check: models.CheckAgainst("1.2.0"), download: download},
			want:          OutcomeInstalled,
			wantFetched:   1,
			wantInstalled: 1,
		},
		{
			name:          "installed with package database infers name",
			kind:          "fake-pkg",
			script:        script{check: models.CheckAgainst("0.0.0"), download: download},
			want:          OutcomeInstalled,
			wantFetched:   1,
			wantInstalled: 1,
			wantMutated:   true,
		},
		{
			name:        "dry run downloads but does not install",
			kind:        "fake-pkg",
			dryRun:      true,
			script:      script{check: models.CheckAgainst("0.0.0"), download: download},
			want:        OutcomeAvailable,
			wantFetched: 1,
		},
		{
			name:    "installer check fails",
			kind:    "fake",
			script:  script{checkErr: errors.New("dpkg exploded")},
			wantErr: true,
		},
		{
			name:        "fetch fails",
			kind:        "fake-pkg",
			script:      script{check: models.CheckAgainst("1.0"), fetchErr: models.NewError(models.KindTransport, errors.New("502"))},
			wantErr:     true,
			wantFetched: 1,
		},
		{
			name:          "install fails",
			kind:          "fake-pkg",
			script:        script{check: models.CheckAgainst("1.0"), download: download, installErr: errors.New("exit 1")},
			wantErr:       true,
			wantFetched:   1,
			wantInstalled: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.script
			scripts = map[string]*script{"app": &s}
			app := fakeApp("app", tt.kind)

			r := &Runner{DryRun: tt.dryRun}
			got, err := r.RunApplication(context.Background(), &app)
			if (err != nil) != tt.wantErr {
				t.Fatalf("RunApplication() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got.Outcome != tt.want {
				t.Errorf("Outcome = %q, want %q", got.Outcome, tt.want)
			}
			if len(s.fetched) != tt.wantFetched {
				t.Errorf("fetched %d times, want %d", len(s.fetched), tt.wantFetched)
			}
			if len(s.installed) != tt.wantInstalled {
				t.Errorf("installed %d times, want %d", len(s.installed), tt.wantInstalled)
			}
			if got.Mutated != tt.wantMutated {
				t.Errorf("Mutated = %v, want %v", got.Mutated, tt.wantMutated)
			}
			if tt.wantMutated {
				if app.PackageName == nil || *app.PackageName != "app" {
					t.Errorf("PackageName = %v, want app", app.PackageName)
				}
			} else if app.PackageName != nil {
				t.Errorf("PackageName changed to %q", *app.PackageName)
			}
		})
	}
}

func TestRunApplication_CurrentVersionFeedsFetcher(t *testing.T) {
	s := &script{check: models.CheckAgainst("0.0.0")}
	scripts = map[string]*script{"app": s}
	app := fakeApp("app", "fake")

	_, err := (&Runner{}).RunApplication(context.Background(), &app)
	require.NoError(t, err)
	require.Equal(t, []string{"0.0.0"}, s.fetched)
}

func TestRunApplication_KeepsExistingPackageName(t *testing.T) {
	s := &script{check: models.CheckAgainst("1.0"), download: &fetcher.Download{Version: "2.0", Path: "/tmp/x.deb"}}
	scripts = map[string]*script{"app": s}
	app := fakeApp("app", "fake-pkg")
	existing := "app-bin"
	app.PackageName = &existing

	res, err := (&Runner{}).RunApplication(context.Background(), &app)
	require.NoError(t, err)
	require.False(t, res.Mutated)
	require.Equal(t, "app-bin", *app.PackageName)
}

func TestRunApplication_ConfigurationErrors(t *testing.T) {
	scripts = map[string]*script{"app": {}}

	unknownFetcher := fakeApp("app", "fake")
	unknownFetcher.Fetcher.Type = "carrier-pigeon"
	_, err := (&Runner{}).RunApplication(context.Background(), &unknownFetcher)
	require.Equal(t, models.KindConfiguration, models.KindOf(err))

	unknownInstaller := fakeApp("app", "rpm")
	_, err = (&Runner{}).RunApplication(context.Background(), &unknownInstaller)
	require.Equal(t, models.KindConfiguration, models.KindOf(err))
}

func TestRunBatch_IsolatesFailuresAndSavesOnce(t *testing.T) {
	download := &fetcher.Download{Version: "2.0", Path: "/tmp/x.deb"}
	scripts = map[string]*script{
		"broken":  {check: models.CheckAgainst("1.0"), fetchErr: models.NewError(models.KindTransport, errors.New("unreachable"))},
		"first":   {check: models.CheckAgainst("0.0.0"), download: download},
		"pinned":  {check: models.SkipUpdate()},
		"second":  {check: models.CheckAgainst("0.0.0"), download: download},
		"current": {check: models.CheckAgainst("2.0")},
	}
	cfg := &models.Config{Applications: []models.ApplicationSpec{
		fakeApp("broken", "fake-pkg"),
		fakeApp("first", "fake-pkg"),
		fakeApp("pinned", "fake-pkg"),
		fakeApp("second", "fake-pkg"),
		fakeApp("current", "fake-pkg"),
	}}

	saver := &countingSaver{}
	recorder := &memoryRecorder{}
	r := &Runner{Recorder: recorder}

	results, err := r.RunBatch(context.Background(), cfg, "", saver)
	require.NoError(t, err)
	require.Len(t, results, 5)

	var outcomes []Outcome
	for _, res := range results {
		outcomes = append(outcomes, res.Outcome)
	}
	require.Equal(t, []Outcome{OutcomeFailed, OutcomeInstalled, OutcomePinned, OutcomeInstalled, OutcomeUpToDate}, outcomes)
	require.Error(t, results[0].Err)

	require.Equal(t, 1, saver.saves)
	require.Nil(t, saver.payload[0])
	require.Equal(t, "first", *saver.payload[1])
	require.Nil(t, saver.payload[2])
	require.Equal(t, "second", *saver.payload[3])
	require.Nil(t, saver.payload[4])

	require.Len(t, recorder.entries, 5)
	require.Equal(t, "failed", recorder.entries[0].Outcome)
	require.Contains(t, recorder.entries[0].Error, "unreachable")
	require.Equal(t, recorder.entries[0].RunID, recorder.entries[4].RunID)
}

func TestRunBatch_NoMutationNoSave(t *testing.T) {
	scripts = map[string]*script{
		"a": {check: models.CheckAgainst("1.0")},
		"b": {check: models.SkipUpdate()},
	}
	cfg := &models.Config{Applications: []models.ApplicationSpec{fakeApp("a", "fake-pkg"), fakeApp("b", "fake-pkg")}}

	saver := &countingSaver{}
	_, err := (&Runner{}).RunBatch(context.Background(), cfg, "", saver)
	require.NoError(t, err)
	require.Equal(t, 0, saver.saves)
}

func TestRunBatch_DryRunNeverSaves(t *testing.T) {
	scripts = map[string]*script{
		"a": {check: models.CheckAgainst("0.0.0"), download: &fetcher.Download{Version: "1.0", Path: "/tmp/a.deb"}},
	}
	cfg := &models.Config{Applications: []models.ApplicationSpec{fakeApp("a", "fake-pkg")}}

	saver := &countingSaver{}
	results, err := (&Runner{DryRun: true}).RunBatch(context.Background(), cfg, "", saver)
	require.NoError(t, err)
	require.Equal(t, OutcomeAvailable, results[0].Outcome)
	require.Equal(t, "/tmp/a.deb", results[0].Artifact)
	require.Empty(t, scripts["a"].installed)
	require.Nil(t, cfg.Applications[0].PackageName)
	require.Equal(t, 0, saver.saves)
}

func TestRunBatch_Only(t *testing.T) {
	download := &fetcher.Download{Version: "1.0", Path: "/tmp/a.deb"}
	scripts = map[string]*script{
		"a": {check: models.CheckAgainst("0.0.0"), download: download},
		"b": {check: models.CheckAgainst("0.0.0"), download: download},
	}
	cfg := &models.Config{Applications: []models.ApplicationSpec{fakeApp("a", "fake-pkg"), fakeApp("b", "fake-pkg")}}

	saver := &countingSaver{}
	results, err := (&Runner{}).RunBatch(context.Background(), cfg, "b", saver)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "b", results[0].Name)
	require.Empty(t, scripts["a"].fetched)

	// The whole list is saved, including the untouched application.
	require.Equal(t, 1, saver.saves)
	require.Len(t, saver.payload, 2)
	require.Nil(t, saver.payload[0])

	results, err = (&Runner{}).RunBatch(context.Background(), cfg, "missing", saver)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestRunBatch_SaveError(t *testing.T) {
	scripts = map[string]*script{
		"a": {check: models.CheckAgainst("0.0.0"), download: &fetcher.Download{Version: "1.0", Path: "/tmp/a.deb"}},
	}
	cfg := &models.Config{Applications: []models.ApplicationSpec{fakeApp("a", "fake-pkg")}}

	saver := &countingSaver{err: errors.New("read-only file system")}
	results, err := (&Runner{}).RunBatch(context.Background(), cfg, "", saver)
	require.Error(t, err)
	require.Len(t, results, 1)
}
