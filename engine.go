// Package parlo wires the learning engine together: the local store, the
// sync queue, the spaced-repetition scheduler, and the session
// controller. Host applications construct one Engine, hand it their
// audio and presentation collaborators, and drive lessons through the
// Session field.
package parlo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/parlo-app/parlo/internal/auth"
	"github.com/parlo-app/parlo/internal/config"
	"github.com/parlo-app/parlo/internal/domain/srs"
	"github.com/parlo-app/parlo/internal/platform/logger"
	"github.com/parlo-app/parlo/internal/platform/postgres"
	"github.com/parlo-app/parlo/internal/platform/sqlite"
	"github.com/parlo-app/parlo/internal/session"
	"github.com/parlo-app/parlo/internal/store"
	"github.com/parlo-app/parlo/internal/syncq"
)

// Collaborators are the host-supplied ports the engine cannot provide
// itself: audio output, voice input, lesson content, and UI updates.
type Collaborators struct {
	Speaker   session.Speaker
	Listener  session.Listener
	Lessons   session.LessonSource
	Presenter session.Presenter
}

// Engine is the assembled client core. Session and Scheduler are
// exported for direct use; everything else is reached through methods.
type Engine struct {
	Session   *session.Controller
	Scheduler *srs.Scheduler

	cfg        config.Config
	logger     *slog.Logger
	local      *sqlite.Store
	remoteDB   *sql.DB
	authn      *auth.TokenAuthenticator
	queue      *syncq.Queue
	reconciler *syncq.Reconciler
}

// New builds an Engine from configuration. When Remote.DatabaseURL is
// empty the engine runs in permanent local-only mode: the queue stays
// offline and Login only installs the token.
func New(ctx context.Context, cfg config.Config, collab Collaborators) (*Engine, error) {
	if collab.Speaker == nil || collab.Listener == nil || collab.Lessons == nil || collab.Presenter == nil {
		return nil, errors.New("all collaborators must be provided")
	}

	log := logger.Setup(cfg.Logging)
	clock := store.SystemClock{}

	local, err := sqlite.Open(cfg.Local.DatabasePath, clock, log)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	var remoteDB *sql.DB
	var remote store.RemoteStore
	if cfg.Remote.DatabaseURL != "" {
		remoteDB, err = postgres.Open(ctx, cfg.Remote.DatabaseURL)
		if err != nil {
			_ = local.Close()
			return nil, fmt.Errorf("connect remote store: %w", err)
		}
		if err := postgres.EnsureSchema(ctx, remoteDB, log); err != nil {
			_ = remoteDB.Close()
			_ = local.Close()
			return nil, fmt.Errorf("prepare remote schema: %w", err)
		}
		remote = postgres.NewRemote(remoteDB, log)
	}

	authn := auth.NewTokenAuthenticator([]byte(cfg.Auth.TokenSecret), clock, log)

	queueCfg := syncq.DefaultConfig()
	queueCfg.FlushDelay = cfg.Engine.FlushDelay
	queueCfg.MaxRetries = cfg.Engine.MaxRetries
	queue := syncq.NewQueue(local, remote, authn, clock, queueCfg, log)

	sched := srs.NewScheduler(local, queue, clock, nil, log)
	reconciler := syncq.NewReconciler(local, remote, queue, authn, log)

	opts := session.DefaultOptions()
	opts.ShowTargetText = cfg.Engine.ShowTargetText
	opts.PassThreshold = cfg.Engine.PassThreshold
	opts.ExamQuestionCap = cfg.Engine.ExamQuestionCap
	opts.ReviewSessionCap = cfg.Engine.ReviewSessionCap

	ctrl := session.NewController(
		local,
		sched,
		queue,
		collab.Speaker,
		collab.Listener,
		collab.Lessons,
		collab.Presenter,
		clock,
		opts,
		log,
	)

	return &Engine{
		Session:    ctrl,
		Scheduler:  sched,
		cfg:        cfg,
		logger:     log.With(slog.String("component", "engine")),
		local:      local,
		remoteDB:   remoteDB,
		authn:      authn,
		queue:      queue,
		reconciler: reconciler,
	}, nil
}

// Login installs the account's access token, merges the remote snapshot
// into the local store, and flushes anything queued while logged out.
// The returned error is informational: the engine keeps working locally
// even when the merge fails.
func (e *Engine) Login(ctx context.Context, token string) error {
	e.authn.SetToken(token)
	if err := e.reconciler.Reconcile(ctx); err != nil {
		e.logger.Warn("login merge failed, continuing local-only", "error", err)
		return fmt.Errorf("login merge: %w", err)
	}
	e.queue.Flush(ctx)
	return nil
}

// Logout drops the token and clears the pending queue. Local records are
// kept; they belong to the device, not the session.
func (e *Engine) Logout() {
	e.authn.ClearToken()
	e.queue.Clear()
}

// SetOnline tells the engine about connectivity changes. Coming online
// triggers a flush and, with an active session, a reconcile.
func (e *Engine) SetOnline(ctx context.Context, online bool) {
	e.queue.SetOnline(online)
	if online && e.authn.SessionActive() {
		if err := e.reconciler.Reconcile(ctx); err != nil {
			e.logger.Warn("reconnect merge failed", "error", err)
		}
	}
}

// SyncStatus reports the queue's current state.
func (e *Engine) SyncStatus() syncq.Status {
	return e.queue.Status()
}

// Close stops the running flow, the queue's background flusher, and the
// underlying database handles.
func (e *Engine) Close() error {
	e.Session.Close()
	e.queue.Close()

	var errs []error
	if e.remoteDB != nil {
		if err := e.remoteDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close remote store: %w", err))
		}
	}
	if err := e.local.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close local store: %w", err))
	}
	return errors.Join(errs...)
}
