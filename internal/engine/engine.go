// Package engine coordinates background draining of the mutation outbox
// against the remote service. It owns the sync status state machine and
// the scheduler that wakes drains on enqueues, connectivity changes, and
// a periodic tick. Exactly one drain runs at a time; overlapping
// triggers collapse into a no-op.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/openlift/liftlog/internal/api"
	"github.com/openlift/liftlog/internal/store"
	"github.com/openlift/liftlog/internal/workout"
)

// Default scheduler intervals and the retry ceiling.
const (
	defaultTickInterval = 5 * time.Second
	defaultDebounce     = 250 * time.Millisecond
	defaultRetryCeiling = 5
)

// Queue is the outbox surface the engine drains. Satisfied by
// *store.Outbox.
type Queue interface {
	ListPending(ctx context.Context) ([]store.Entry, error)
	MarkProcessing(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, errMsg string) error
	Remove(ctx context.Context, id int64) error
	ResetStuckProcessing(ctx context.Context) (int, error)
	PendingCount(ctx context.Context) (int, error)
	MaxRetryCount(ctx context.Context) (int, error)
}

// Sender transmits one mutation to the remote service. Satisfied by
// *api.Client.
type Sender interface {
	Send(ctx context.Context, m workout.Mutation) (*api.SendResult, error)
}

// SessionBinder records the remote session identity returned by a
// start-session acknowledgement. Satisfied by *store.SessionStore.
type SessionBinder interface {
	SetRemoteID(ctx context.Context, remoteID string) error
}

// Config holds the options for New.
type Config struct {
	Queue        Queue
	Sender       Sender
	Sessions     SessionBinder
	Logger       *slog.Logger
	TickInterval time.Duration // periodic drain attempt interval (0 → 5s)
	Debounce     time.Duration // enqueue-triggered drain debounce (0 → 250ms)
	RetryCeiling int           // retry count above which status is error (0 → 5)
	StartOnline  bool          // initial connectivity assumption
}

// Engine drains the outbox whenever online, strictly in creation order.
type Engine struct {
	queue        Queue
	sender       Sender
	sessions     SessionBinder
	logger       *slog.Logger
	tickInterval time.Duration
	debounce     time.Duration
	retryCeiling int

	mu        sync.Mutex
	status    Status
	online    bool
	subs      []func(Status)
	notes     []Status // undelivered status changes, oldest first
	notifying bool     // a dispatch goroutine is draining notes

	draining atomic.Bool // single-drain guard
	running  atomic.Bool // idempotent Run guard
	kick     chan struct{}
}

// New creates an Engine. Run must be called to start the scheduler.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tick := cfg.TickInterval
	if tick <= 0 {
		tick = defaultTickInterval
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	ceiling := cfg.RetryCeiling
	if ceiling <= 0 {
		ceiling = defaultRetryCeiling
	}

	initial := StatusOffline
	if cfg.StartOnline {
		initial = StatusSynced
	}

	return &Engine{
		queue:        cfg.Queue,
		sender:       cfg.Sender,
		sessions:     cfg.Sessions,
		logger:       logger,
		tickInterval: tick,
		debounce:     debounce,
		retryCeiling: ceiling,
		status:       initial,
		online:       cfg.StartOnline,
		kick:         make(chan struct{}, 1),
	}
}

// Run starts the scheduler loop and blocks until ctx is canceled. A
// second concurrent Run is a no-op returning an error, so repeated init
// can never duplicate timers.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return errors.New("engine: already running")
	}
	defer e.running.Store(false)

	// Crash recovery: nothing may stay processing across a restart.
	reclaimed, err := e.queue.ResetStuckProcessing(ctx)
	if err != nil {
		return fmt.Errorf("engine: resetting stuck entries: %w", err)
	}

	if reclaimed > 0 {
		e.logger.Info("recovered interrupted drain", slog.Int("entries", reclaimed))
	}

	e.recomputeStatus(ctx)
	e.logger.Info("sync engine running",
		slog.Duration("tick", e.tickInterval),
		slog.Duration("debounce", e.debounce),
	)

	ticker := time.NewTicker(e.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.drain(ctx)

		case <-e.kick:
			// Short debounce so bursts of rapid enqueues coalesce into
			// one drain instead of one drain per set logged.
			if !sleepCtx(ctx, e.debounce) {
				return nil
			}

			e.drain(ctx)

		case <-ctx.Done():
			e.logger.Info("sync engine stopped")
			return nil
		}
	}
}

// NotifyEnqueued schedules a near-immediate drain after a new enqueue,
// rather than waiting for the next periodic tick.
func (e *Engine) NotifyEnqueued(ctx context.Context) {
	e.mu.Lock()
	if e.online && e.status == StatusSynced {
		e.setStatusLocked(StatusPending)
	}
	e.mu.Unlock()

	select {
	case e.kick <- struct{}{}:
	default: // a wake-up is already queued
	}
}

// SetOnline records a connectivity change. Losing connectivity forces
// the offline status unconditionally; regaining it recomputes status and
// schedules an immediate drain attempt.
func (e *Engine) SetOnline(ctx context.Context, online bool) {
	e.mu.Lock()
	was := e.online
	e.online = online

	if !online {
		e.setStatusLocked(StatusOffline)
	}
	e.mu.Unlock()

	if online && !was {
		e.logger.Info("connectivity regained")
		e.recomputeStatus(ctx)

		select {
		case e.kick <- struct{}{}:
		default:
		}
	}

	if !online && was {
		e.logger.Info("connectivity lost")
	}
}

// TriggerSync runs a drain attempt synchronously. Collapses into a no-op
// when a drain is already in progress.
func (e *Engine) TriggerSync(ctx context.Context) {
	e.drain(ctx)
}

// Status returns the current sync status.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.status
}

// Subscribe registers a callback invoked on every status change.
// Callbacks run on a dispatch goroutine, one change at a time in
// transition order; a slow callback delays later notifications, not
// the engine.
func (e *Engine) Subscribe(fn func(Status)) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.subs = append(e.subs, fn)
}

// drain processes pending entries strictly in creation order. At most
// one drain runs at a time.
func (e *Engine) drain(ctx context.Context) {
	if !e.draining.CompareAndSwap(false, true) {
		return
	}
	defer e.draining.Store(false)

	e.mu.Lock()
	online := e.online
	e.mu.Unlock()

	if !online {
		return
	}

	entries, err := e.queue.ListPending(ctx)
	if err != nil {
		e.logger.Error("listing pending mutations", slog.String("error", err.Error()))
		return
	}

	if len(entries) == 0 {
		e.recomputeStatus(ctx)
		return
	}

	e.setStatus(StatusSyncing)
	e.logger.Debug("drain starting", slog.Int("pending", len(entries)))

	for i := range entries {
		if ctx.Err() != nil {
			break
		}

		if !e.processEntry(ctx, &entries[i]) {
			break // connectivity failure aborts the remainder, preserving order
		}
	}

	e.recomputeStatus(ctx)
}

// processEntry sends one entry and classifies the outcome:
// success removes it, an application-level rejection fails it and moves
// on, a connectivity failure fails it and reports false to abort the
// drain and flip the engine offline.
func (e *Engine) processEntry(ctx context.Context, entry *store.Entry) bool {
	if err := e.queue.MarkProcessing(ctx, entry.ID); err != nil {
		e.logger.Error("marking entry processing",
			slog.Int64("id", entry.ID),
			slog.String("error", err.Error()),
		)

		return true
	}

	result, err := e.sender.Send(ctx, entry.Mutation)
	if err == nil {
		if removeErr := e.queue.Remove(ctx, entry.ID); removeErr != nil {
			e.logger.Error("removing confirmed entry",
				slog.Int64("id", entry.ID),
				slog.String("error", removeErr.Error()),
			)
		}

		e.bindSession(ctx, result)

		return true
	}

	if markErr := e.queue.MarkFailed(ctx, entry.ID, err.Error()); markErr != nil {
		e.logger.Error("marking entry failed",
			slog.Int64("id", entry.ID),
			slog.String("error", markErr.Error()),
		)
	}

	if api.IsConnectivity(err) {
		e.logger.Warn("drain aborted: connectivity failure",
			slog.Int64("id", entry.ID),
			slog.String("kind", string(entry.Kind)),
			slog.String("error", err.Error()),
		)

		e.mu.Lock()
		e.online = false
		e.setStatusLocked(StatusOffline)
		e.mu.Unlock()

		return false
	}

	// Application-level rejection: the entry stays failed with its
	// lastError, and must not head-of-line-block unrelated work.
	e.logger.Warn("mutation rejected by service",
		slog.Int64("id", entry.ID),
		slog.String("kind", string(entry.Kind)),
		slog.Int("retries", entry.RetryCount+1),
		slog.String("error", err.Error()),
	)

	return true
}

// bindSession records the remote session id from a start-session ack.
func (e *Engine) bindSession(ctx context.Context, result *api.SendResult) {
	if result == nil || result.RemoteSessionID == "" || e.sessions == nil {
		return
	}

	if err := e.sessions.SetRemoteID(ctx, result.RemoteSessionID); err != nil {
		// The session may have ended locally before the ack arrived.
		if errors.Is(err, workout.ErrNoActiveSession) {
			e.logger.Debug("remote session ack after local session end")
			return
		}

		e.logger.Error("binding remote session",
			slog.String("remote_id", result.RemoteSessionID),
			slog.String("error", err.Error()),
		)
	}
}

// recomputeStatus derives status from {online, pendingCount, maxRetry}.
// The error status is advisory: it reports an entry stuck past the retry
// ceiling but halts neither local edits nor new enqueues.
func (e *Engine) recomputeStatus(ctx context.Context) {
	e.mu.Lock()
	online := e.online
	e.mu.Unlock()

	if !online {
		e.setStatus(StatusOffline)
		return
	}

	maxRetries, err := e.queue.MaxRetryCount(ctx)
	if err != nil {
		e.logger.Error("reading outbox retry counts", slog.String("error", err.Error()))
	} else if maxRetries > e.retryCeiling {
		e.setStatus(StatusError)
		return
	}

	pending, err := e.queue.PendingCount(ctx)
	if err != nil {
		e.logger.Error("reading outbox depth", slog.String("error", err.Error()))
		return
	}

	if pending > 0 {
		e.setStatus(StatusPending)
	} else {
		e.setStatus(StatusSynced)
	}
}

// setStatus updates status and notifies subscribers on change.
func (e *Engine) setStatus(s Status) {
	e.mu.Lock()
	e.setStatusLocked(s)
	e.mu.Unlock()
}

// setStatusLocked requires e.mu held. Changes are queued and delivered
// by a single dispatch goroutine, so subscribers observe transitions in
// the order they happened even across rapid flips.
func (e *Engine) setStatusLocked(s Status) {
	if e.status == s {
		return
	}

	e.status = s
	e.logger.Debug("sync status changed", slog.String("status", string(s)))

	if len(e.subs) == 0 {
		return
	}

	e.notes = append(e.notes, s)

	if !e.notifying {
		e.notifying = true
		go e.dispatchNotes()
	}
}

// dispatchNotes delivers queued status changes in order, one at a time.
// The subscriber list is re-copied per note so a callback may itself
// call Subscribe. Exits once the queue is empty.
func (e *Engine) dispatchNotes() {
	for {
		e.mu.Lock()
		if len(e.notes) == 0 {
			e.notifying = false
			e.mu.Unlock()

			return
		}

		s := e.notes[0]
		e.notes = e.notes[1:]
		subs := append(([]func(Status))(nil), e.subs...)
		e.mu.Unlock()

		for _, fn := range subs {
			fn(s)
		}
	}
}

// sleepCtx waits for d or until ctx is canceled, reporting whether the
// full duration elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
