package runner

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/autopkg/autopkg/fetcher"
	"github.com/autopkg/autopkg/history"
	"github.com/autopkg/autopkg/installer"
	"github.com/autopkg/autopkg/log"
	"github.com/autopkg/autopkg/models"
)

// Outcome is the terminal state of one application's run.
type Outcome string

const (
	OutcomePinned    Outcome = "pinned"
	OutcomeUpToDate  Outcome = "up-to-date"
	OutcomeAvailable Outcome = "available"
	OutcomeInstalled Outcome = "installed"
	OutcomeFailed    Outcome = "failed"
)

// Result describes how one application was processed.
type Result struct {
	Name           string
	CurrentVersion string
	NewVersion     string
	Artifact       string
	Outcome        Outcome
	Err            error
	// Mutated is set when the application's spec changed and the config
	// needs to be saved.
	Mutated bool
}

// Saver persists the application list.
type Saver interface {
	Save(cfg *models.Config) error
}

// Recorder stores results for later inspection.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) error
}

// Runner processes applications through the installer/fetcher protocol.
type Runner struct {
	DryRun   bool
	Fetchers fetcher.Options
	System   installer.System
	// Recorder is optional.
	Recorder Recorder
}

// RunApplication runs the check, fetch and install steps for app. On a
// successful install with a package-database installer it fills in
// app.PackageName when unset and reports Mutated.
func (r *Runner) RunApplication(ctx context.Context, app *models.ApplicationSpec) (Result, error) {
	res := Result{Name: app.Name}

	inst, err := installer.New(app, r.System)
	if err != nil {
		return res, errors.Wrap(err, "failed to create installer")
	}
	f, err := fetcher.New(app, r.Fetchers)
	if err != nil {
		return res, errors.Wrap(err, "failed to create fetcher")
	}

	check, err := inst.ShouldCheckForUpdate(ctx)
	if err != nil {
		return res, errors.Wrap(err, "failed to determine installed version")
	}
	if check.Skip {
		log.G(ctx).Info("Update check skipped (pinned or disabled)")
		res.Outcome = OutcomePinned
		return res, nil
	}
	res.CurrentVersion = check.CurrentVersion
	log.G(ctx).Infof("Current version reported by installer: %s", check.CurrentVersion)

	download, err := f.FetchIfNewer(ctx, check.CurrentVersion)
	if err != nil {
		return res, errors.Wrap(err, "failed to fetch update")
	}
	if download == nil {
		log.G(ctx).Info("Already up-to-date")
		res.Outcome = OutcomeUpToDate
		return res, nil
	}
	res.NewVersion = download.Version
	res.Artifact = download.Path

	if r.DryRun {
		log.G(ctx).Warnf("Update available (downloaded to %s), dry-run enabled; not installing", download.Path)
		res.Outcome = OutcomeAvailable
		return res, nil
	}

	log.G(ctx).Infof("Installing update from %s", download.Path)
	if err := inst.Install(ctx, download.Path); err != nil {
		return res, errors.Wrap(err, "failed to install update")
	}
	log.G(ctx).Info("Installation completed")
	res.Outcome = OutcomeInstalled

	if _, ok := inst.(installer.PackageNamer); ok && app.PackageName == nil {
		log.G(ctx).Infof("Updating config to set package_name = %s", app.Name)
		name := app.Name
		app.PackageName = &name
		res.Mutated = true
	}
	return res, nil
}

// RunBatch processes the applications of cfg in order. With only set, the
// other applications are left untouched. Failures are logged per
// application and never stop the batch. When any application mutated its
// spec, cfg is saved exactly once at the end; the save error is the only
// error returned.
func (r *Runner) RunBatch(ctx context.Context, cfg *models.Config, only string, saver Saver) ([]Result, error) {
	runID := uuid.New().String()
	ctx = log.WithLogger(ctx, log.G(ctx).WithField("run", runID))
	log.G(ctx).Infof("Loaded %d application(s) from config", len(cfg.Applications))

	var results []Result
	needsSave := false

	for i := range cfg.Applications {
		app := &cfg.Applications[i]
		if only != "" && app.Name != only {
			continue
		}

		appCtx := log.WithLogger(ctx, log.G(ctx).WithField("app", app.Name))
		log.G(appCtx).Infof("Processing application: %s", app.Name)

		res, err := r.RunApplication(appCtx, app)
		if err != nil {
			log.G(appCtx).Errorf("Application '%s' failed: %v. Continuing with others.", app.Name, err)
			res.Outcome = OutcomeFailed
			res.Err = err
		}
		if res.Mutated {
			needsSave = true
		}
		r.record(appCtx, runID, res)
		results = append(results, res)
	}

	if only != "" && len(results) == 0 {
		log.G(ctx).Warnf("No application named %q in config", only)
	}

	if needsSave && saver != nil {
		if err := saver.Save(cfg); err != nil {
			return results, err
		}
	}
	return results, nil
}

func (r *Runner) record(ctx context.Context, runID string, res Result) {
	if r.Recorder == nil {
		return
	}
	e := history.Entry{
		RunID:          runID,
		Application:    res.Name,
		Outcome:        string(res.Outcome),
		CurrentVersion: res.CurrentVersion,
		NewVersion:     res.NewVersion,
		Artifact:       res.Artifact,
	}
	if res.Err != nil {
		e.Error = res.Err.Error()
	}
	if err := r.Recorder.Record(ctx, e); err != nil {
		log.G(ctx).Warnf("Could not record history: %v", err)
	}
}
