// Package app wires the cache store, remote client, ingest queue and sync
// scheduler into one runnable daemon.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/cwaldbieser/slack-tui/internal/retention"
	"github.com/cwaldbieser/slack-tui/pkg/config"
	"github.com/cwaldbieser/slack-tui/pkg/files"
	"github.com/cwaldbieser/slack-tui/pkg/ingest"
	"github.com/cwaldbieser/slack-tui/pkg/logger"
	"github.com/cwaldbieser/slack-tui/pkg/remote"
	"github.com/cwaldbieser/slack-tui/pkg/slack"
	"github.com/cwaldbieser/slack-tui/pkg/store"
	"github.com/cwaldbieser/slack-tui/pkg/syncer"
)

// App encapsulates the daemon components and lifecycle.
type App struct {
	cfg       *config.Config
	version   string
	commit    string
	buildDate string

	store  *store.Store
	client *slack.Client
	queue  *ingest.Queue
	files  *files.Cache
	sched  *syncer.Scheduler

	srv *http.Server
}

// New initializes resources that do not require a running context. It does
// not start the socket feed or the status server; call Run for that.
func New(cfg *config.Config, version, commit, buildDate string) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.EffectiveDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open cache at %s: %w", cfg.EffectiveDBPath(), err)
	}

	client := slack.New(cfg.Auth.UserToken, cfg.Auth.AppToken)
	sched := syncer.New(st, client, syncer.Options{
		Interval:          cfg.SyncInterval(),
		HistoryWindowDays: cfg.Sync.HistoryWindowDays,
	})
	queue := ingest.NewQueue(cfg.Sync.QueueCapacity)

	return &App{
		cfg:       cfg,
		version:   version,
		commit:    commit,
		buildDate: buildDate,
		store:     st,
		client:    client,
		queue:     queue,
		files:     files.New(st, client),
		sched:     sched,
	}, nil
}

// Store exposes the cache store, mainly for the presentation layer.
func (a *App) Store() *store.Store { return a.store }

// Scheduler exposes the sync scheduler for conversation selection and
// mutations.
func (a *App) Scheduler() *syncer.Scheduler { return a.sched }

// Files exposes the attachment cache.
func (a *App) Files() *files.Cache { return a.files }

// Run starts every background component and blocks until ctx is canceled
// or the status server fails.
func (a *App) Run(ctx context.Context) error {
	if err := a.refreshDirectory(ctx); err != nil {
		// A stale directory is usable; the cache already has one if this
		// workspace was synced before.
		logger.Log.Warn("directory_refresh_failed", zap.Error(err))
	}

	applier := &ingest.Applier{Store: a.store, Notify: a.sched.Notify}
	stopWorker := make(chan struct{})
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		a.queue.RunWorker(stopWorker, applier.Apply)
	}()

	go func() {
		if err := a.client.RunSocketMode(ctx, func(ev remote.Event) {
			if err := a.queue.EnqueueEvent(ev); err != nil {
				logger.Log.Warn("event_enqueue_failed",
					zap.String("channel", ev.Channel), zap.Error(err))
			}
		}); err != nil && ctx.Err() == nil {
			logger.Log.Error("socket_mode_exited", zap.Error(err))
		}
	}()

	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		a.sched.Run(ctx)
	}()
	go a.drainPatches(ctx)

	cancelRetention, err := retention.Start(ctx, a.cfg, a.store, a.sched.Active)
	if err != nil {
		return err
	}
	defer cancelRetention()

	errCh := a.startHTTP()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if a.srv != nil {
		_ = a.srv.Shutdown(shutdownCtx)
	}
	close(stopWorker)
	<-workerDone
	a.queue.CloseAndDrain()
	// the scheduler joins its history pulls before returning; only then is
	// the store safe to close
	<-schedDone
	if err := a.store.Close(); err != nil {
		logger.Log.Error("store_close_failed", zap.Error(err))
	}
	logger.Log.Info("daemon_stopped")
	return nil
}

// refreshDirectory pulls the conversation and user directories and upserts
// them into the cache.
func (a *App) refreshDirectory(ctx context.Context) error {
	chans, err := a.client.ListChannels(ctx)
	if err != nil {
		return err
	}
	for _, ch := range chans {
		if err := a.store.UpsertChannel(ch); err != nil {
			return err
		}
	}
	users, err := a.client.ListUsers(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		if err := a.store.UpsertUser(u); err != nil {
			return err
		}
	}
	logger.Log.Info("directory_refreshed",
		zap.Int("channels", len(chans)), zap.Int("users", len(users)))
	return nil
}

// drainPatches consumes patch batches when no presentation layer is
// attached so the scheduler's outbound channel never sits full.
func (a *App) drainPatches(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case b := <-a.sched.Patches():
			logger.Log.Debug("patch_batch",
				zap.String("channel", b.Channel), zap.Int("patches", len(b.Patches)))
		}
	}
}
