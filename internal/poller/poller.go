// Package poller keeps the current edges snapshot fresh.
//
// A Poller runs fetch cycles against the edges API. Each cycle makes up to
// RetryBudget attempts with linear backoff between them. Cycles start from
// the interval ticker in Run, from Resume (terminal focus), or from
// TriggerRefresh (manual refresh, debounced unless bypassed).
//
// Only one cycle is live at a time: starting a cycle cancels the one in
// flight and bumps the generation, and a cycle whose generation is no longer
// current publishes nothing.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/abelbrown/edgeboard/internal/api"
	"github.com/abelbrown/edgeboard/internal/config"
	"github.com/abelbrown/edgeboard/internal/edges"
	"github.com/abelbrown/edgeboard/internal/logging"
	"github.com/abelbrown/edgeboard/internal/otel"
)

// maxRetryAfter caps how long a server Retry-After can stretch one backoff.
const maxRetryAfter = 30 * time.Second

var (
	// ErrRetriesExhausted wraps the last attempt error of a failed cycle.
	ErrRetriesExhausted = errors.New("retries exhausted")
	// ErrSuperseded is returned by a cycle cancelled by a newer one.
	ErrSuperseded = errors.New("superseded by a newer fetch")
)

// Fetcher loads one snapshot. *api.Client satisfies it.
type Fetcher interface {
	CurrentEdges(ctx context.Context) (*edges.Snapshot, error)
}

// Sleeper waits d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Poller owns the fetch lifecycle and the published State.
// Safe for concurrent use.
type Poller struct {
	fetcher  Fetcher
	cfg      config.PollConfig
	now      func() time.Time
	sleep    Sleeper
	events   otel.Emitter
	log      *log.Logger
	onUpdate func(State)

	mu          sync.Mutex
	state       State
	lastTrigger time.Time
	gen         uint64
	cancel      context.CancelFunc
	toastSeq    uint64
}

// Option configures a Poller.
type Option func(*Poller)

// WithClock replaces time.Now, which drives the debounce window.
func WithClock(now func() time.Time) Option {
	return func(p *Poller) { p.now = now }
}

// WithSleeper replaces the backoff wait.
func WithSleeper(s Sleeper) Option {
	return func(p *Poller) { p.sleep = s }
}

// WithLogger sends poll events to l.
func WithLogger(l *otel.Logger) Option {
	return func(p *Poller) { p.events = l.For("poller") }
}

// WithUpdateFunc registers fn to receive every published State.
// fn runs on the goroutine that changed the state and must not block.
func WithUpdateFunc(fn func(State)) Option {
	return func(p *Poller) { p.onUpdate = fn }
}

// New creates a Poller. Non-positive tunables fall back to the defaults.
func New(f Fetcher, cfg config.PollConfig, opts ...Option) *Poller {
	def := config.Default().Poll
	if cfg.RetryBudget <= 0 {
		cfg.RetryBudget = def.RetryBudget
	}
	if cfg.BackoffStep <= 0 {
		cfg.BackoffStep = def.BackoffStep
	}
	if cfg.Debounce < 0 {
		cfg.Debounce = def.Debounce
	}
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}

	p := &Poller{
		fetcher: f,
		cfg:     cfg,
		now:     time.Now,
		sleep:   sleepCtx,
		log:     logging.WithPrefix("poller"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the latest published state.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Run fetches immediately, then every Interval, until ctx is done.
// It always returns nil so it can run under an errgroup.
func (p *Poller) Run(ctx context.Context) error {
	p.TriggerRefresh(ctx, true)

	ticker := time.NewTicker(p.cfg.Interval.Std())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.stop()
			return nil
		case <-ticker.C:
			p.TriggerRefresh(ctx, true)
		}
	}
}

// Resume is called when the user returns to the terminal.
func (p *Poller) Resume(ctx context.Context) bool {
	return p.TriggerRefresh(ctx, true)
}

// TriggerRefresh runs one fetch cycle and reports whether it ran.
// Unless bypass is set, a call within Debounce of the previous trigger is a
// no-op. Errors end up in State, never in the caller.
func (p *Poller) TriggerRefresh(ctx context.Context, bypass bool) bool {
	p.mu.Lock()
	now := p.now()
	if !bypass && !p.lastTrigger.IsZero() && now.Sub(p.lastTrigger) < p.cfg.Debounce.Std() {
		p.mu.Unlock()
		p.events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindPollDebounced})
		return false
	}
	p.lastTrigger = now
	p.mu.Unlock()

	p.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindPollTrigger, Extra: map[string]any{"bypass": bypass}})
	if err := p.FetchOnce(ctx); err != nil && !errors.Is(err, ErrSuperseded) && ctx.Err() == nil {
		p.log.Warn("fetch cycle failed", "err", err)
	}
	return true
}

// FetchOnce runs one cycle of up to RetryBudget attempts.
func (p *Poller) FetchOnce(ctx context.Context) error {
	cycleCtx, gen := p.begin(ctx)
	defer p.end(gen)

	started := p.now()
	budget := p.cfg.RetryBudget
	var lastErr error

	for attempt := 1; attempt <= budget; attempt++ {
		if attempt > 1 && !p.publish(gen, func(s *State) { s.Attempt = attempt }) {
			return p.abandoned(ctx, gen)
		}
		p.events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindPollStart, Gen: gen, Attempt: attempt})

		snap, err := p.attempt(cycleCtx)
		if err == nil {
			p.succeed(gen, snap, started)
			return nil
		}
		if cycleCtx.Err() != nil {
			return p.abandoned(ctx, gen)
		}

		lastErr = err
		p.events.Emit(otel.Event{
			Level:   otel.LevelWarn,
			Kind:    otel.KindPollRetry,
			Gen:     gen,
			Attempt: attempt,
			Status:  api.StatusCode(err),
			Err:     err.Error(),
		})
		p.log.Debug("attempt failed", "gen", gen, "attempt", attempt, "err", err)

		if attempt < budget {
			if err := p.sleep(cycleCtx, p.backoff(attempt, err)); err != nil {
				return p.abandoned(ctx, gen)
			}
		}
	}

	msg := fmt.Sprintf("Could not load edges after %d attempts: %v", budget, lastErr)
	if !p.publish(gen, func(s *State) {
		s.Phase = Idle
		s.Attempt = 0
		s.ErrorMessage = msg
	}) {
		return p.abandoned(ctx, gen)
	}
	p.events.Emit(otel.Event{
		Level:   otel.LevelError,
		Kind:    otel.KindPollExhausted,
		Gen:     gen,
		Attempt: budget,
		Dur:     p.now().Sub(started),
		Status:  api.StatusCode(lastErr),
		Err:     lastErr.Error(),
	})
	return fmt.Errorf("%w: %w", ErrRetriesExhausted, lastErr)
}

// begin starts a new generation, cancelling the previous cycle.
func (p *Poller) begin(ctx context.Context) (context.Context, uint64) {
	cycleCtx, cancel := context.WithCancel(ctx)

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindPollSuperseded, Gen: p.gen})
	}
	p.gen++
	gen := p.gen
	p.cancel = cancel
	p.state.Phase = Loading
	if p.state.Snapshot != nil {
		p.state.Phase = Refreshing
	}
	p.state.Attempt = 1
	p.state.Toast = nil
	p.state.Version++
	s := p.state
	p.mu.Unlock()

	p.notify(s)
	return cycleCtx, gen
}

// end releases the cycle context if gen still owns it.
func (p *Poller) end(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gen == gen && p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// stop cancels whatever cycle is in flight.
func (p *Poller) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// publish applies fn and notifies, but only while gen is current.
func (p *Poller) publish(gen uint64, fn func(*State)) bool {
	p.mu.Lock()
	if p.gen != gen {
		p.mu.Unlock()
		return false
	}
	fn(&p.state)
	p.state.Version++
	s := p.state
	p.mu.Unlock()

	p.notify(s)
	return true
}

func (p *Poller) succeed(gen uint64, snap *edges.Snapshot, started time.Time) {
	var (
		toast  *Toast
		change edges.Change
	)
	ok := p.publish(gen, func(s *State) {
		if prev := s.Snapshot; prev != nil {
			change = edges.Diff(prev.Edges, snap.Edges)
			if toast = diffToast(change); toast != nil {
				p.toastSeq++
				toast.ID = p.toastSeq
			}
		}
		s.Snapshot = snap
		s.Phase = Idle
		s.Attempt = 0
		s.ErrorMessage = ""
		s.LastSuccessAt = p.now()
		s.Toast = toast
	})
	if !ok {
		return
	}

	p.events.Emit(otel.Event{
		Level:   otel.LevelInfo,
		Kind:    otel.KindPollSuccess,
		Gen:     gen,
		Dur:     p.now().Sub(started),
		Count:   snap.Len(),
		Added:   change.Added,
		Removed: change.Removed,
	})
	if toast != nil {
		p.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindToast, Gen: gen, Msg: toast.Message})
	}
}

// abandoned reports why a cycle stopped without publishing.
func (p *Poller) abandoned(ctx context.Context, gen uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.log.Debug("cycle superseded", "gen", gen)
	return ErrSuperseded
}

// attempt performs one fetch. A panicking fetcher counts as a failed attempt.
func (p *Poller) attempt(ctx context.Context) (snap *edges.Snapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			snap, err = nil, fmt.Errorf("fetch panicked: %v", r)
		}
	}()
	snap, err = p.fetcher.CurrentEdges(ctx)
	if err == nil && snap == nil {
		err = errors.New("empty response")
	}
	return snap, err
}

// backoff is BackoffStep × attempt, stretched to a server Retry-After.
func (p *Poller) backoff(attempt int, err error) time.Duration {
	d := p.cfg.BackoffStep.Std() * time.Duration(attempt)
	if ra := min(api.RetryAfter(err), maxRetryAfter); ra > d {
		d = ra
	}
	return d
}

func (p *Poller) notify(s State) {
	if p.onUpdate != nil {
		p.onUpdate(s)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
