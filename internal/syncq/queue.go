package syncq

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/retry"

	"github.com/parlo-app/parlo/internal/auth"
	"github.com/parlo-app/parlo/internal/domain"
	"github.com/parlo-app/parlo/internal/store"
)

// Status is the queue state exposed for UI consumption only; no engine
// logic branches on it.
type Status string

// Possible queue status values.
const (
	StatusSynced  Status = "synced"
	StatusPending Status = "pending"
	StatusOffline Status = "offline"
	StatusError   Status = "error"
)

// Config holds tuning for the queue.
type Config struct {
	// FlushDelay is the debounce delay between an enqueue and the
	// background flush it schedules.
	FlushDelay time.Duration

	// MaxRetries is how many failed flush attempts an operation survives
	// before it is dropped with a warning.
	MaxRetries int

	// FlushAttempts is how many network attempts one flush of one
	// operation makes before that flush attempt counts as failed. The
	// extra attempts smooth over momentary blips without consuming one
	// of the operation's MaxRetries.
	FlushAttempts int

	// AttemptDelay is the initial backoff between those network attempts.
	AttemptDelay time.Duration
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		FlushDelay:    2 * time.Second,
		MaxRetries:    5,
		FlushAttempts: 2,
		AttemptDelay:  250 * time.Millisecond,
	}
}

// Queue is the durable, deduplicated list of pending remote writes.
//
// The foreground path (Write) attempts the remote call immediately when a
// session is active and the device is online, falling back to the durable
// queue on any failure. The background flush is debounced and single-
// flight: a flush requested while one is running is coalesced into one
// more pass, never run concurrently. Each flush attempt for an operation
// is wrapped in a short exponential-backoff retry; an operation that
// fails MaxRetries consecutive flush attempts is dropped and logged — the
// record stays correct locally but is no longer guaranteed to reach the
// remote store.
type Queue struct {
	ops     store.QueueStore
	remote  store.RemoteStore
	authn   auth.Authenticator
	clock   store.Clock
	cfg     Config
	logger  *slog.Logger
	retrier retry.Retry[struct{}]

	mu       sync.Mutex
	online   bool
	timer    *time.Timer
	flushing bool
	rerun    bool
	degraded bool
	closed   bool

	wg sync.WaitGroup
}

// NewQueue creates a queue over the given durable operation store and
// remote target. A nil remote keeps the queue permanently offline (pure
// local mode). Operations persisted by a previous run are flushed once
// the first flush trigger fires.
func NewQueue(ops store.QueueStore, remote store.RemoteStore, authn auth.Authenticator, clock store.Clock, cfg Config, logger *slog.Logger) *Queue {
	if ops == nil {
		panic("ops cannot be nil")
	}
	if authn == nil {
		panic("authn cannot be nil")
	}
	if clock == nil {
		clock = store.SystemClock{}
	}
	if cfg.FlushDelay <= 0 {
		cfg.FlushDelay = DefaultConfig().FlushDelay
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultConfig().MaxRetries
	}
	if cfg.FlushAttempts <= 0 {
		cfg.FlushAttempts = DefaultConfig().FlushAttempts
	}
	if cfg.AttemptDelay <= 0 {
		cfg.AttemptDelay = DefaultConfig().AttemptDelay
	}
	if logger == nil {
		logger = slog.Default()
	}

	q := &Queue{
		ops:    ops,
		remote: remote,
		authn:  authn,
		clock:  clock,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "sync_queue")),
		online: remote != nil,
		retrier: retry.New[struct{}](retry.Config{
			MaxAttempts:   cfg.FlushAttempts,
			InitialDelay:  cfg.AttemptDelay,
			MaxDelay:      2 * time.Second,
			Multiplier:    2.0,
			BackoffPolicy: retry.BackoffExponential,
			Jitter:        true,
			IsRetryable: func(err error) bool {
				return !errors.Is(err, context.Canceled)
			},
		}),
	}

	// Recover writes queued by a previous run.
	if pending, err := ops.ListOperations(); err == nil && len(pending) > 0 {
		q.logger.Info("recovered pending sync operations", "count", len(pending))
		q.scheduleFlush()
	}

	return q
}

// Write records one local mutation for remote delivery. It never fails
// from the caller's point of view: when a session is active and the
// device is online the remote call is attempted immediately, and any
// failure (or being offline) falls back to the durable queue with a
// debounced background flush. Without an active session the queue is
// cleared instead — local-only mode has no remote target.
func (q *Queue) Write(ctx context.Context, kind domain.OpKind, key string, payload any) {
	if _, ok := q.authn.UserID(); !ok {
		q.Clear()
		return
	}

	op, err := domain.NewSyncOperation(kind, key, payload, q.clock.Now())
	if err != nil {
		q.logger.Warn("dropping unserializable sync payload",
			"kind", kind,
			"key", key,
			"error", err)
		return
	}

	if q.isOnline() && q.remote != nil {
		accountID, ok := q.authn.UserID()
		if ok {
			if err := applyOperation(ctx, q.remote, accountID, op); err == nil {
				return
			}
			// Fall through to the queue; the flush will retry.
		}
	}

	if err := q.ops.SaveOperation(op); err != nil {
		q.logger.Error("failed to persist sync operation",
			"kind", kind,
			"key", key,
			"error", err)
		return
	}
	q.scheduleFlush()
}

// SetOnline records network reachability. The transition from offline to
// online triggers a flush of everything queued while disconnected.
func (q *Queue) SetOnline(online bool) {
	q.mu.Lock()
	wasOnline := q.online
	q.online = online
	closed := q.closed
	q.mu.Unlock()

	if online && !wasOnline && !closed {
		go q.Flush(context.Background())
	}
}

// Status derives the queue state for UI consumption.
func (q *Queue) Status() Status {
	q.mu.Lock()
	online := q.online
	degraded := q.degraded
	q.mu.Unlock()

	if !online {
		return StatusOffline
	}

	pending, err := q.ops.ListOperations()
	if err != nil {
		return StatusError
	}
	if len(pending) == 0 {
		return StatusSynced
	}
	if degraded {
		return StatusError
	}
	return StatusPending
}

// Clear drops every pending operation without attempting network calls.
func (q *Queue) Clear() {
	if err := q.ops.ClearOperations(); err != nil {
		q.logger.Error("failed to clear sync queue", "error", err)
		return
	}
	q.mu.Lock()
	q.degraded = false
	q.mu.Unlock()
}

// Flush attempts every queued operation in order. Concurrent calls are
// coalesced: if a flush is already running, one more pass is scheduled
// instead of a second flush.
func (q *Queue) Flush(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	if q.flushing {
		q.rerun = true
		q.mu.Unlock()
		return
	}
	q.flushing = true
	q.wg.Add(1)
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.flushing = false
		q.mu.Unlock()
		q.wg.Done()
	}()

	for {
		q.flushPass(ctx)

		q.mu.Lock()
		if !q.rerun {
			q.mu.Unlock()
			return
		}
		q.rerun = false
		q.mu.Unlock()
	}
}

// Close stops the debounce timer and waits for any in-flight flush.
// Pending operations stay in the durable store for the next run.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	q.mu.Unlock()

	q.wg.Wait()
}

// flushPass runs one pass over the queued operations.
func (q *Queue) flushPass(ctx context.Context) {
	accountID, ok := q.authn.UserID()
	if !ok {
		// Session ended while operations were queued; no remote target.
		q.Clear()
		return
	}

	if !q.isOnline() || q.remote == nil {
		return
	}

	pending, err := q.ops.ListOperations()
	if err != nil {
		q.logger.Error("failed to list pending operations", "error", err)
		return
	}

	anyFailed := false
	for _, op := range pending {
		if ctx.Err() != nil {
			return
		}

		_, err := q.retrier.Do(ctx, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, applyOperation(ctx, q.remote, accountID, op)
		})
		if err == nil {
			if delErr := q.ops.DeleteOperation(op.DedupeKey()); delErr != nil {
				q.logger.Error("failed to remove delivered operation",
					"key", op.Key,
					"error", delErr)
			}
			continue
		}

		anyFailed = true
		op.Retries++
		if op.Retries >= q.cfg.MaxRetries {
			// Accepted data-loss edge case: the record stays correct
			// locally but this write will not reach the remote store.
			q.logger.Warn("dropping sync operation after max retries",
				"kind", op.Kind,
				"key", op.Key,
				"retries", op.Retries,
				"error", err)
			if delErr := q.ops.DeleteOperation(op.DedupeKey()); delErr != nil {
				q.logger.Error("failed to drop exhausted operation",
					"key", op.Key,
					"error", delErr)
			}
			continue
		}

		if setErr := q.ops.SetRetries(op.DedupeKey(), op.Retries); setErr != nil {
			q.logger.Error("failed to record retry count",
				"key", op.Key,
				"error", setErr)
		}
		q.logger.Debug("sync operation failed, will retry",
			"kind", op.Kind,
			"key", op.Key,
			"retries", op.Retries,
			"error", err)
	}

	q.mu.Lock()
	q.degraded = anyFailed
	q.mu.Unlock()

	if anyFailed {
		// Operations remain queued; try again after the debounce delay.
		q.scheduleFlush()
	}
}

// scheduleFlush arms the debounced flush timer. A timer already armed is
// left alone, so bursts of writes collapse into one flush.
func (q *Queue) scheduleFlush() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || q.timer != nil {
		return
	}
	q.timer = time.AfterFunc(q.cfg.FlushDelay, func() {
		q.mu.Lock()
		q.timer = nil
		q.mu.Unlock()
		q.Flush(context.Background())
	})
}

func (q *Queue) isOnline() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.online
}
