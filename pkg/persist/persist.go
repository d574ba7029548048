package persist

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	cerrors "github.com/vango-dev/counter/internal/errors"
	"github.com/vango-dev/counter/pkg/store"
)

// ActionHydrate is the action label used when stored state replaces the
// store's state.
const ActionHydrate = "persist/hydrate"

// DefaultTimeout bounds each storage call.
const DefaultTimeout = 5 * time.Second

// Option configures a Persister.
type Option[S any] func(*Persister[S])

// WithName sets the storage key. Default: "store".
func WithName[S any](name string) Option[S] {
	return func(p *Persister[S]) {
		if name != "" {
			p.name = name
		}
	}
}

// WithCodec sets the codec. Default: JSONCodec.
func WithCodec[S any](c Codec[S]) Option[S] {
	return func(p *Persister[S]) {
		if c != nil {
			p.codec = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger[S any](logger *slog.Logger) Option[S] {
	return func(p *Persister[S]) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithTimeout bounds each storage call. Default: DefaultTimeout.
func WithTimeout[S any](d time.Duration) Option[S] {
	return func(p *Persister[S]) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithSkipHydration leaves the store at its initial state on attach.
// Call Rehydrate to load stored state later.
func WithSkipHydration[S any]() Option[S] {
	return func(p *Persister[S]) {
		p.skipHydration = true
	}
}

// WithOnHydrate registers fn to run after every hydration attempt with the
// hydrated state and the error that caused a fallback, if any.
func WithOnHydrate[S any](fn func(state S, err error)) Option[S] {
	return func(p *Persister[S]) {
		p.onHydrate = fn
	}
}

// Persister is a store.Middleware that mirrors a store into a Storage.
//
// Writes happen on a background goroutine and are coalesced: if several
// transitions commit while a write is in flight, only the latest state is
// written next. Call Flush to wait for pending writes and Close to stop the
// writer.
type Persister[S any] struct {
	storage       Storage
	codec         Codec[S]
	name          string
	timeout       time.Duration
	logger        *slog.Logger
	skipHydration bool
	onHydrate     func(S, error)

	store    *store.Store[S]
	hydrated atomic.Bool

	// writeMu serialises storage writes with Clear.
	writeMu sync.Mutex

	mu         sync.Mutex
	pending    S
	hasPending bool
	waiters    []chan struct{}
	closed     bool

	wake chan struct{}
	quit chan struct{}
	done chan struct{}
}

// Compile-time interface check.
var _ store.Middleware[struct{}] = (*Persister[struct{}])(nil)

// Middleware creates a Persister over storage. Pass it to the store with
// store.WithMiddleware.
func Middleware[S any](storage Storage, opts ...Option[S]) *Persister[S] {
	p := &Persister[S]{
		storage: storage,
		codec:   JSONCodec[S]{},
		name:    "store",
		timeout: DefaultTimeout,
		logger:  slog.Default().With("component", "persist"),
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("key", p.name)

	go p.writeLoop()
	return p
}

// Name returns the storage key.
func (p *Persister[S]) Name() string {
	return p.name
}

// Attach implements store.Middleware. It hydrates s unless hydration is
// skipped.
func (p *Persister[S]) Attach(s *store.Store[S]) {
	p.store = s
	if p.skipHydration {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	p.Rehydrate(ctx)
}

// Transition implements store.Middleware. It schedules a write of t.State.
func (p *Persister[S]) Transition(t store.Transition[S]) {
	if t.Action == ActionHydrate {
		return
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.logger.Warn("transition after close dropped", "action", t.Action)
		return
	}
	p.pending = t.State
	p.hasPending = true
	p.mu.Unlock()
	p.nudge()
}

// Rehydrate loads the stored state into the store. Missing or malformed
// payloads leave the store unchanged; the reason is logged and returned.
// A nil return means stored state was applied.
func (p *Persister[S]) Rehydrate(ctx context.Context) error {
	state, err := p.load(ctx)
	if err == nil && p.store != nil {
		p.store.Replace(ActionHydrate, state)
	}
	if err != nil {
		if p.store != nil {
			state = p.store.Get()
		}
		if errors.Is(err, ErrNotFound) {
			p.logger.Debug("no stored state, using defaults")
		} else {
			p.logger.Warn("discarding stored state, using defaults",
				"code", cerrors.Code(err),
				"error", err)
		}
	}
	p.hydrated.Store(true)
	if p.onHydrate != nil {
		p.onHydrate(state, err)
	}
	return err
}

func (p *Persister[S]) load(ctx context.Context) (S, error) {
	var zero S
	data, err := p.storage.GetItem(ctx, p.name)
	if errors.Is(err, ErrNotFound) {
		return zero, err
	}
	if err != nil {
		return zero, cerrors.New("E200").Wrap(err)
	}
	state, err := p.codec.Unmarshal(data)
	if err != nil {
		return zero, cerrors.New("E202").Wrap(err)
	}
	return state, nil
}

// HasHydrated reports whether a hydration attempt has completed.
func (p *Persister[S]) HasHydrated() bool {
	return p.hydrated.Load()
}

// Clear removes the stored state. The in-memory store is not changed.
// A write already in flight completes first; a queued one is dropped.
// Either way the key stays removed until the next transition.
func (p *Persister[S]) Clear(ctx context.Context) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	p.mu.Lock()
	p.hasPending = false
	p.mu.Unlock()

	if err := p.storage.RemoveItem(ctx, p.name); err != nil {
		return cerrors.New("E204").Wrap(err)
	}
	return nil
}

// Flush blocks until every transition committed before the call has been
// written (or failed to write), or ctx is done.
func (p *Persister[S]) Flush(ctx context.Context) error {
	ch := make(chan struct{})
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.waiters = append(p.waiters, ch)
	p.mu.Unlock()
	p.nudge()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close writes any pending state and stops the writer. It does not close
// the Storage, which belongs to the caller.
func (p *Persister[S]) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.done
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	close(p.quit)
	<-p.done
	return nil
}

func (p *Persister[S]) nudge() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Persister[S]) writeLoop() {
	defer close(p.done)
	for {
		select {
		case <-p.wake:
			p.drain()
		case <-p.quit:
			p.drain()
			return
		}
	}
}

// drain writes the latest pending state, then releases flush waiters that
// were registered before the state was taken.
func (p *Persister[S]) drain() {
	p.writeMu.Lock()
	p.mu.Lock()
	state, has := p.pending, p.hasPending
	p.hasPending = false
	waiters := p.waiters
	p.waiters = nil
	p.mu.Unlock()

	if has {
		p.write(state)
	}
	p.writeMu.Unlock()

	for _, w := range waiters {
		close(w)
	}
}

func (p *Persister[S]) write(state S) {
	data, err := p.codec.Marshal(state)
	if err != nil {
		p.logger.Error("encode state", "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.storage.SetItem(ctx, p.name, data); err != nil {
		p.logger.Error("write state",
			"code", "E201",
			"error", err)
	}
}
