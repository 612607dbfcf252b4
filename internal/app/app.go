package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/pkg/browser"

	"github.com/ibeckermayer/xdash/internal/analytics"
	"github.com/ibeckermayer/xdash/internal/chart"
	"github.com/ibeckermayer/xdash/internal/config"
	"github.com/ibeckermayer/xdash/internal/importer"
	"github.com/ibeckermayer/xdash/internal/mockdata"
	"github.com/ibeckermayer/xdash/internal/notifier"
	"github.com/ibeckermayer/xdash/internal/probe"
	"github.com/ibeckermayer/xdash/internal/report"
	"github.com/ibeckermayer/xdash/internal/scheduler"
	"github.com/ibeckermayer/xdash/internal/server"
	"github.com/ibeckermayer/xdash/internal/state"
	"github.com/ibeckermayer/xdash/internal/store"
	"github.com/ibeckermayer/xdash/internal/types"
	"github.com/ibeckermayer/xdash/internal/views"
)

// ErrNoPosts is returned when an action needs at least one loaded post.
var ErrNoPosts = errors.New("no posts loaded")

// App wires the dashboard components together.
type App struct {
	config    *config.Config // immutable after creation
	store     *store.Store
	state     *state.Store
	charts    *chart.Adapter
	views     *views.Renderer
	prober    *probe.Prober
	scheduler *scheduler.Scheduler
	notifier  *notifier.Notifier // nil when email is not configured
	builder   *report.Builder
	importer  *importer.Watcher
	reportDir string

	now      func() time.Time
	copyText func(string) error

	mu     sync.Mutex
	server *server.Server
	cancel context.CancelFunc
}

// New opens the state database and builds every component from cfg.
func New(cfg *config.Config) (*App, error) {
	dbPath, err := cfg.DBPath()
	if err != nil {
		return nil, err
	}
	reportDir, err := cfg.ReportDir()
	if err != nil {
		return nil, err
	}
	importDir, err := cfg.ImportDir()
	if err != nil {
		return nil, err
	}
	rng, err := types.ParseRange(cfg.Mock.DefaultRangeDays)
	if err != nil {
		return nil, fmt.Errorf("mock.default_range_days: %w", err)
	}

	builder, err := report.NewBuilder(cfg.Report.Timezone)
	if err != nil {
		return nil, err
	}
	sched, err := scheduler.New(cfg.Report.Timezone)
	if err != nil {
		return nil, err
	}
	n, err := notifier.NewFromConfig(cfg.Email)
	if err != nil {
		return nil, err
	}
	charts, err := chart.New(cfg.Chart.Format, cfg.Chart.Width, cfg.Chart.Height)
	if err != nil {
		return nil, err
	}

	db, err := store.New(dbPath)
	if err != nil {
		return nil, err
	}

	seed := cfg.Mock.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	st, err := state.Load(db, mockdata.New(seed, cfg.Mock.FeaturedAccount), rng)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	return &App{
		config:    cfg,
		store:     db,
		state:     st,
		charts:    charts,
		views:     views.NewRenderer(st, charts),
		prober:    probe.New(cfg.Probe.Timeout.Duration),
		scheduler: sched,
		notifier:  n,
		builder:   builder,
		importer:  importer.NewWatcher(importDir, db, st),
		reportDir: reportDir,
		now:       time.Now,
		copyText:  clipboard.WriteAll,
	}, nil
}

// State exposes the shared view state.
func (a *App) State() *state.Store {
	return a.state
}

// Views exposes the page renderer.
func (a *App) Views() *views.Renderer {
	return a.views
}

// Handler builds the HTTP API over the app's components.
func (a *App) Handler() *server.Handler {
	return server.NewHandler(a.state, a.views, a.charts, a)
}

// Start registers the scheduled jobs, begins watching the import directory
// and serves the dashboard on the configured address.
func (a *App) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	if err := a.scheduler.AddWeeklyReportJob(a.config.Report.WeeklySchedule, func(ctx context.Context) error {
		_, err := a.WeeklyReport(ctx)
		return err
	}); err != nil {
		cancel()
		return err
	}
	if err := a.scheduler.AddProbeJob(a.config.Probe.Schedule, func(ctx context.Context) error {
		a.Probe(ctx)
		return nil
	}); err != nil {
		cancel()
		a.scheduler.RemoveJob(scheduler.JobWeeklyReport)
		return err
	}

	if err := a.importer.Start(ctx); err != nil {
		log.Printf("[app] import watcher disabled: %v", err)
	}

	srv, err := server.Listen(a.config.Server.Addr, server.NewRouter(a.Handler(), a.config.Server.Debug))
	if err != nil {
		cancel()
		a.importer.Stop()
		return fmt.Errorf("failed to listen on %s: %w", a.config.Server.Addr, err)
	}

	a.mu.Lock()
	a.server = srv
	a.cancel = cancel
	a.mu.Unlock()

	go func() {
		if err := srv.Serve(); err != nil {
			log.Printf("[app] server stopped: %v", err)
		}
	}()
	a.scheduler.Start()
	return nil
}

// URL is the dashboard address, empty before Start.
func (a *App) URL() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server == nil {
		return ""
	}
	return a.server.URL()
}

// OpenDashboard opens the dashboard in the default browser.
func (a *App) OpenDashboard() error {
	url := a.URL()
	if url == "" {
		return errors.New("dashboard is not running")
	}
	return browser.OpenURL(url)
}

// Shutdown stops the server, waits for running jobs and closes the database.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	srv, cancel := a.server, a.cancel
	a.server, a.cancel = nil, nil
	a.mu.Unlock()

	var errs []error
	if srv != nil {
		errs = append(errs, srv.Shutdown(ctx))
	}
	if cancel != nil {
		select {
		case <-a.scheduler.Stop().Done():
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("waiting for jobs: %w", ctx.Err()))
		}
		cancel()
	}
	a.importer.Stop()
	a.prober.Close()
	errs = append(errs, a.store.Close())
	return errors.Join(errs...)
}

// Probe checks every configured account endpoint and records the report for
// the settings page.
func (a *App) Probe(ctx context.Context) probe.Report {
	rep := a.prober.Check(ctx, a.state.Snapshot().Accounts)
	a.views.RecordProbe(rep)
	log.Printf("[app] probe finished: %v", rep.Counts())
	return rep
}

// RunJob runs a scheduled job immediately.
func (a *App) RunJob(ctx context.Context, name string) error {
	return a.scheduler.RunNow(ctx, name)
}

// Jobs lists the scheduled jobs.
func (a *App) Jobs() []scheduler.JobInfo {
	return a.scheduler.ListJobs()
}

// ExportCSV writes the loaded posts to the report directory.
func (a *App) ExportCSV() (string, error) {
	snap := a.state.Snapshot()
	if len(snap.Posts) == 0 {
		return "", ErrNoPosts
	}
	path, err := report.ExportCSV(a.reportDir, snap.Posts, a.now())
	if err != nil {
		return "", err
	}
	log.Printf("[app] exported %d posts to %s", len(snap.Posts), path)
	return path, nil
}

// WeeklyReport builds the current account's weekly report, saves it and mails
// it when email is configured.
func (a *App) WeeklyReport(ctx context.Context) (*report.Weekly, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap := a.state.Snapshot()
	w, err := a.builder.Build(currentAccount(snap), snap.Posts, a.now())
	if err != nil {
		return nil, err
	}
	path, err := w.Save(a.reportDir)
	if err != nil {
		return nil, err
	}
	log.Printf("[app] weekly report saved to %s", path)

	if a.notifier != nil {
		if err := a.notifier.SendWeekly(w); err != nil {
			return w, err
		}
		log.Println("[app] weekly report mailed")
	}
	return w, nil
}

// LatestWeeklyReport returns the path of the most recent saved report.
func (a *App) LatestWeeklyReport() (string, error) {
	return store.LatestExport(a.reportDir, report.WeeklyPrefix, ".md")
}

// Import migrates one legacy JSON dump into the store and reloads state.
func (a *App) Import(path string) (store.Slot, error) {
	slot, err := importer.ImportFile(a.store, path)
	if err != nil {
		return slot, err
	}
	if err := a.state.Reload(); err != nil {
		return slot, fmt.Errorf("imported %s but reload failed: %w", slot, err)
	}
	log.Printf("[app] imported %s from %s", slot, path)
	return slot, nil
}

// CopyPost places a post's text on the clipboard.
func (a *App) CopyPost(index int) error {
	text, err := a.state.PostText(index)
	if err != nil {
		return err
	}
	return a.copyText(text)
}

// CopyBestPost copies the text of the post with the most likes.
func (a *App) CopyBestPost() (types.Post, error) {
	best, _ := analytics.BestWorst(a.state.Snapshot().Posts, 1)
	if len(best) == 0 {
		return types.Post{}, ErrNoPosts
	}
	return best[0], a.copyText(best[0].Text)
}

func currentAccount(snap state.Snapshot) types.Account {
	for _, acc := range snap.Accounts {
		if acc.ID == snap.Account {
			return acc
		}
	}
	return types.Account{ID: snap.Account}
}
