package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/comalice/botix"
)

var (
	ErrRunning    = errors.New("realtime: a run is already in progress")
	ErrNotStarted = errors.New("realtime: no run started")
	ErrPanic      = errors.New("realtime: run panicked")
)

// Result describes one finished run.
type Result struct {
	RunID    string
	Report   botix.Report
	Err      error
	Started  time.Time
	Finished time.Time
}

// Duration is the wall time of the run.
func (r Result) Duration() time.Duration { return r.Finished.Sub(r.Started) }

// Runner serializes access to a registry and executes runs in the
// background.
type Runner struct {
	regMu sync.Mutex // held by a run and by Do
	reg   *botix.Botix

	mu      sync.Mutex
	running bool
	runID   string
	cancel  context.CancelFunc
	group   *errgroup.Group
	last    Result

	log      zerolog.Logger
	stop     botix.Predicate
	onFinish []func(Result)
	newID    func() string
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the runner logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// WithStop adds a stop predicate polled alongside context cancellation.
func WithStop(p botix.Predicate) Option {
	return func(r *Runner) { r.stop = p }
}

// OnFinish registers fn to be called with every finished run, on the run's
// goroutine.
func OnFinish(fn func(Result)) Option {
	return func(r *Runner) { r.onFinish = append(r.onFinish, fn) }
}

// WithRunIDs replaces the uuid run id generator.
func WithRunIDs(fn func() string) Option {
	return func(r *Runner) { r.newID = fn }
}

// NewRunner wraps reg.
func NewRunner(reg *botix.Botix, opts ...Option) *Runner {
	r := &Runner{
		reg:   reg,
		log:   log.Logger.With().Str("component", "realtime").Logger(),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Do calls fn with the registry once no run holds it.
func (r *Runner) Do(fn func(*botix.Botix) error) error {
	r.regMu.Lock()
	defer r.regMu.Unlock()
	return fn(r.reg)
}

// Start begins a run in the background and returns its id. Only one run is
// active at a time.
func (r *Runner) Start(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return "", fmt.Errorf("%s: %w", r.runID, ErrRunning)
	}

	if r.cancel != nil {
		// release the previous run's context when nobody waited on it
		r.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)
	id := r.newID()
	r.running, r.runID, r.cancel, r.group = true, id, cancel, g

	g.Go(func() error { return r.run(gctx, id) })
	r.log.Info().Str("run_id", id).Msg("run started")
	return id, nil
}

func (r *Runner) run(ctx context.Context, id string) (err error) {
	res := Result{RunID: id, Started: time.Now()}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, p)
			res.Err = err
			r.log.Error().Str("run_id", id).Interface("panic", p).Msg("run panicked")
		}
		res.Finished = time.Now()
		r.finish(res)
	}()

	r.regMu.Lock()
	defer r.regMu.Unlock()

	cancelled := botix.PredicateFunc(func() bool { return ctx.Err() != nil })
	res.Report, res.Err = r.reg.RunUntil(botix.Any(cancelled, r.stop))
	return res.Err
}

func (r *Runner) finish(res Result) {
	r.mu.Lock()
	r.last = res
	r.running = false
	r.mu.Unlock()

	ev := r.log.Info()
	if res.Err != nil {
		ev = r.log.Error().Err(res.Err)
	}
	ev.Str("run_id", res.RunID).
		Bool("stopped", res.Report.Stopped).
		Int("visited", len(res.Report.Visited)).
		Dur("took", res.Duration()).
		Msg("run finished")

	for _, fn := range r.onFinish {
		fn(res)
	}
}

// Wait blocks until the latest run ends and returns its result.
func (r *Runner) Wait() (Result, error) {
	r.mu.Lock()
	g, cancel := r.group, r.cancel
	r.mu.Unlock()
	if g == nil {
		return Result{}, ErrNotStarted
	}

	err := g.Wait()
	cancel()

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, err
}

// Stop cancels the latest run and waits for it.
func (r *Runner) Stop() (Result, error) {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel == nil {
		return Result{}, ErrNotStarted
	}
	cancel()
	return r.Wait()
}

// Running reports whether a run is in progress.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// RunID returns the id of the latest run, or "".
func (r *Runner) RunID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runID
}
