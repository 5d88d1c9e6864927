// Package orchestrator sequences pulls and pushes in response to user actions.
//
// It owns the sync state machine:
//
//	idle -> saving -> synced -> idle
//	idle -> saving -> error  -> idle
//	idle -> pending             (auto-save while offline)
//
// Only one pull or push runs at a time; a trigger that arrives while saving is
// rejected with apperr.ErrBusy.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/starford/memosync/internal/apperr"
	"github.com/starford/memosync/internal/metrics"
	"github.com/starford/memosync/internal/models"
	"github.com/starford/memosync/internal/notify"
)

// State is the sync state shown to the user.
type State string

const (
	StateIdle    State = "idle"
	StateSaving  State = "saving"
	StateSynced  State = "synced"
	StateError   State = "error"
	StatePending State = "pending"
)

var allStates = []string{
	string(StateIdle), string(StateSaving), string(StateSynced), string(StateError), string(StatePending),
}

// Defaults.
const (
	DefaultDebounce        = 2 * time.Second
	DefaultDisplayInterval = notify.DefaultDisplayInterval
)

// Engine is the reconciliation engine driven by the orchestrator.
type Engine interface {
	Pull(ctx context.Context) ([]models.Note, error)
	Push(ctx context.Context, slug, ifMatch string) (*models.Note, error)
	Delete(ctx context.Context, slug string) (*models.Note, error)
	RemoveRemote(ctx context.Context, n models.Note) error
}

// Status is a snapshot of the state machine.
type Status struct {
	State     State     `json:"state"`
	Pending   []string  `json:"pending"`
	LastError string    `json:"lastError,omitempty"`
	LastSync  time.Time `json:"lastSync,omitempty"`
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithConnectivity sets the connectivity check used by auto-save.
func WithConnectivity(c Connectivity) Option {
	return func(o *Orchestrator) { o.conn = c }
}

// WithNotifier sets the notification center.
func WithNotifier(c *notify.Center) Option {
	return func(o *Orchestrator) { o.toasts = c }
}

// WithDebounce sets the quiescence interval after the last edit.
func WithDebounce(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// WithDisplayInterval sets how long synced and error stay visible.
func WithDisplayInterval(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.display = d
		}
	}
}

// WithStateSink receives every status change.
func WithStateSink(fn func(Status)) Option {
	return func(o *Orchestrator) { o.sink = fn }
}

// Orchestrator runs engine operations one at a time.
type Orchestrator struct {
	eng      Engine
	logger   *slog.Logger
	conn     Connectivity
	toasts   *notify.Center
	sink     func(Status)
	debounce time.Duration
	display  time.Duration

	// base is the context for timer-driven and background work.
	base   context.Context
	cancel context.CancelFunc
	bg     sync.WaitGroup

	mu       sync.Mutex
	state    State
	gen      uint64
	settle   *time.Timer
	timers   map[string]*time.Timer
	pending  map[string]struct{}
	lastErr  string
	lastSync time.Time
	closed   bool
}

// New creates an Orchestrator over eng.
func New(eng Engine, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		eng:      eng,
		logger:   slog.Default(),
		conn:     AlwaysOnline,
		debounce: DefaultDebounce,
		display:  DefaultDisplayInterval,
		state:    StateIdle,
		timers:   map[string]*time.Timer{},
		pending:  map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.toasts == nil {
		o.toasts = notify.NewCenter(o.display, nil)
	}
	o.base, o.cancel = context.WithCancel(context.Background())
	metrics.SetState(string(StateIdle), allStates)
	return o
}

// Status returns the current state.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.statusLocked()
}

// Online reports whether the configured connectivity check sees the network.
func (o *Orchestrator) Online(ctx context.Context) bool {
	return o.conn.Online(ctx)
}

// Toasts returns the notification center.
func (o *Orchestrator) Toasts() *notify.Center { return o.toasts }

func (o *Orchestrator) statusLocked() Status {
	pending := make([]string, 0, len(o.pending))
	for slug := range o.pending {
		pending = append(pending, slug)
	}
	sort.Strings(pending)
	return Status{State: o.state, Pending: pending, LastError: o.lastErr, LastSync: o.lastSync}
}

func (o *Orchestrator) publish(st Status) {
	metrics.SetState(string(st.State), allStates)
	if o.sink != nil {
		o.sink(st)
	}
}

// begin enters saving, or fails with ErrBusy.
func (o *Orchestrator) begin() error {
	o.mu.Lock()
	if o.state == StateSaving {
		o.mu.Unlock()
		return apperr.ErrBusy
	}
	o.gen++
	if o.settle != nil {
		o.settle.Stop()
		o.settle = nil
	}
	o.state = StateSaving
	st := o.statusLocked()
	o.mu.Unlock()
	o.publish(st)
	return nil
}

// finish leaves saving. Quiet outcomes skip synced/error and return to rest at once.
func (o *Orchestrator) finish(op string, started time.Time, err error, quiet bool) {
	metrics.TrackSync(op, apperr.Kind(err), time.Since(started))

	o.mu.Lock()
	if err == nil {
		o.lastErr = ""
		o.lastSync = time.Now()
	} else {
		o.lastErr = err.Error()
	}
	switch {
	case quiet:
		o.state = o.restLocked()
	case err == nil:
		o.state = StateSynced
	default:
		o.state = StateError
	}
	if o.state == StateSynced || o.state == StateError {
		gen := o.gen
		o.settle = time.AfterFunc(o.display, func() { o.settleTo(gen) })
	}
	st := o.statusLocked()
	o.mu.Unlock()
	o.publish(st)
}

func (o *Orchestrator) restLocked() State {
	if len(o.pending) > 0 {
		return StatePending
	}
	return StateIdle
}

func (o *Orchestrator) settleTo(gen uint64) {
	o.mu.Lock()
	if o.gen != gen || (o.state != StateSynced && o.state != StateError) {
		o.mu.Unlock()
		return
	}
	o.state = o.restLocked()
	o.settle = nil
	st := o.statusLocked()
	o.mu.Unlock()
	o.publish(st)
}

// Start runs the start-up pull. Failures are logged and the app works offline.
func (o *Orchestrator) Start(ctx context.Context) {
	if err := o.begin(); err != nil {
		return
	}
	started := time.Now()
	notes, err := o.eng.Pull(ctx)
	if err != nil {
		o.logger.Warn("orchestrator: start-up pull failed, working offline",
			slog.String("kind", apperr.Kind(err)),
			slog.String("error", err.Error()))
		o.finish("pull", started, err, true)
		return
	}
	o.logger.Info("orchestrator: start-up pull done", slog.Int("notes", len(notes)))
	o.finish("pull", started, nil, true)
}

// StartBackground runs Start on the orchestrator's own context. Close waits for it.
func (o *Orchestrator) StartBackground() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.bg.Add(1)
	o.mu.Unlock()
	go func() {
		defer o.bg.Done()
		o.Start(o.base)
	}()
}

// Sync pushes the notes left pending by offline auto-saves, then pulls. A pending
// push that fails stops the pull, since the remote body would replace the unsaved one.
func (o *Orchestrator) Sync(ctx context.Context) ([]models.Note, error) {
	if err := o.begin(); err != nil {
		return nil, err
	}
	started := time.Now()
	if err := o.flushPending(ctx); err != nil {
		o.finish("pull", started, err, false)
		o.fail("Save failed", err)
		return nil, err
	}
	notes, err := o.eng.Pull(ctx)
	o.finish("pull", started, err, false)
	if err != nil {
		o.fail("Sync failed", err)
		return nil, err
	}
	o.toasts.Success("Synced")
	return notes, nil
}

// flushPending pushes every pending note. A slug leaves the pending set only when its
// push succeeds or the note no longer exists.
func (o *Orchestrator) flushPending(ctx context.Context) error {
	o.mu.Lock()
	slugs := make([]string, 0, len(o.pending))
	for slug := range o.pending {
		slugs = append(slugs, slug)
	}
	o.mu.Unlock()
	sort.Strings(slugs)

	var errs []error
	for _, slug := range slugs {
		if _, err := o.eng.Push(ctx, slug, ""); err != nil {
			o.logger.Warn("orchestrator: pending push failed",
				slog.String("slug", slug),
				slog.String("kind", apperr.Kind(err)),
				slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("pending %s: %w", slug, err))
			continue
		}
		o.mu.Lock()
		delete(o.pending, slug)
		o.mu.Unlock()
	}
	return errors.Join(errs...)
}

// Discard drops slug from the pending set so the next pull may replace its body.
// It reports whether slug was pending.
func (o *Orchestrator) Discard(slug string) bool {
	o.mu.Lock()
	_, ok := o.pending[slug]
	delete(o.pending, slug)
	if ok && o.state == StatePending && len(o.pending) == 0 {
		o.state = StateIdle
	}
	st := o.statusLocked()
	o.mu.Unlock()
	if ok {
		o.publish(st)
	}
	return ok
}

// Push writes one note to the remote. ifMatch overrides the stored token.
func (o *Orchestrator) Push(ctx context.Context, slug, ifMatch string) (*models.Note, error) {
	if err := o.begin(); err != nil {
		return nil, err
	}
	started := time.Now()
	n, err := o.eng.Push(ctx, slug, ifMatch)
	if err == nil {
		o.mu.Lock()
		delete(o.pending, slug)
		o.mu.Unlock()
	}
	o.finish("push", started, err, false)
	switch {
	case err != nil:
		o.fail("Save failed", err)
		return nil, err
	case n != nil:
		o.toasts.Success("Saved " + slug)
	}
	return n, nil
}

// Edited arms the auto-save timer for slug, replacing any earlier one.
func (o *Orchestrator) Edited(slug string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	if t, ok := o.timers[slug]; ok {
		t.Stop()
	}
	o.timers[slug] = time.AfterFunc(o.debounce, func() { o.autosave(slug) })
}

func (o *Orchestrator) autosave(slug string) {
	o.mu.Lock()
	delete(o.timers, slug)
	closed := o.closed
	o.mu.Unlock()
	if closed {
		return
	}

	if !o.conn.Online(o.base) {
		o.mu.Lock()
		o.pending[slug] = struct{}{}
		if o.state != StateSaving {
			o.state = StatePending
		}
		st := o.statusLocked()
		o.mu.Unlock()
		o.publish(st)
		o.logger.Info("orchestrator: offline, auto-save deferred", slog.String("slug", slug))
		o.toasts.Info("Offline: changes kept on this device")
		return
	}

	if _, err := o.Push(o.base, slug, ""); errors.Is(err, apperr.ErrBusy) {
		o.Edited(slug)
	}
}

// Delete removes slug locally and schedules the best-effort remote removal.
// It reports whether a note was removed.
func (o *Orchestrator) Delete(ctx context.Context, slug string) (bool, error) {
	o.mu.Lock()
	if t, ok := o.timers[slug]; ok {
		t.Stop()
		delete(o.timers, slug)
	}
	delete(o.pending, slug)
	o.mu.Unlock()

	n, err := o.eng.Delete(ctx, slug)
	if err != nil {
		return false, err
	}
	if n == nil {
		return false, nil
	}

	o.bg.Add(1)
	go func() {
		defer o.bg.Done()
		started := time.Now()
		err := o.eng.RemoveRemote(o.base, *n)
		metrics.TrackSync("delete", apperr.Kind(err), time.Since(started))
		if err != nil {
			o.logger.Warn("orchestrator: remote delete failed",
				slog.String("slug", n.Slug),
				slog.String("kind", apperr.Kind(err)),
				slog.String("error", err.Error()))
		}
	}()
	return true, nil
}

// Wait blocks until background work finishes.
func (o *Orchestrator) Wait() {
	o.bg.Wait()
}

// WaitTimeout is Wait bounded by d. It reports whether the background work finished.
func (o *Orchestrator) WaitTimeout(d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		o.bg.Wait()
		close(done)
	}()
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-done:
		return true
	case <-t.C:
		return false
	}
}

// Close stops pending timers, cancels background work and waits for it.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	for slug, t := range o.timers {
		t.Stop()
		delete(o.timers, slug)
	}
	if o.settle != nil {
		o.settle.Stop()
	}
	o.mu.Unlock()
	o.cancel()
	o.bg.Wait()
	o.toasts.Close()
}

func (o *Orchestrator) fail(prefix string, err error) {
	o.logger.Warn("orchestrator: "+prefix,
		slog.String("kind", apperr.Kind(err)),
		slog.String("error", err.Error()))
	o.toasts.Error(Message(prefix, err))
}

// Message renders err for a toast.
func Message(prefix string, err error) string {
	switch {
	case errors.Is(err, apperr.ErrNotConfigured):
		return "Connect a repository in settings to sync"
	case errors.Is(err, apperr.ErrConflict):
		return prefix + ": the remote copy changed, pull first"
	case errors.Is(err, apperr.ErrAuth):
		return prefix + ": check your access token"
	case errors.Is(err, apperr.ErrNetwork):
		return prefix + ": network unavailable"
	default:
		return prefix + ": " + err.Error()
	}
}
