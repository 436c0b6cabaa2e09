package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/abhiarc/Dream-interpreter/internal/domain"
	"github.com/abhiarc/Dream-interpreter/internal/ports"
	"github.com/abhiarc/Dream-interpreter/internal/prompt"
)

// QuotaExceededMessage is shown when the model provider reports exhausted billing.
const QuotaExceededMessage = "OpenAI API quota exceeded for this API key. " +
	"Please add credits / enable billing on the OpenAI platform, then try again."

const callFailurePrefix = "Error calling the interpretation service: "

// DefaultSlowThreshold is how long a request runs before Snapshot.Slow is set.
const DefaultSlowThreshold = 10 * time.Second

// SlowNotice is shown to the user while Snapshot.Slow is set.
const SlowNotice = "Our AI is lost in a deep dream coma... even Freud needs coffee sometimes!"

// Snapshot is a read-only view of a session for the presentation layer.
type Snapshot struct {
	SessionID uuid.UUID
	Phase     domain.Phase
	Request   *domain.InterpretationRequest
	StartedAt time.Time
	Elapsed   time.Duration
	// Slow is a cosmetic hint; the call is never aborted.
	Slow   bool
	Result *domain.Result
}

// flight is the memoized outbound call for one submitted request.
type flight struct {
	done chan struct{}
	once sync.Once
}

func newFlight() *flight {
	return &flight{done: make(chan struct{})}
}

func (f *flight) finish() {
	f.once.Do(func() { close(f.done) })
}

type liveSession struct {
	mu       sync.Mutex
	state    *domain.Session
	flight   *flight
	lastSeen time.Time
	// evicted is set by Sweep once the session has left the registry.
	evicted bool
}

// testHookSessionLookedUp runs between the registry lookup and the session lock.
var testHookSessionLookedUp = func() {}

// Controller drives the interpretation lifecycle for many independent sessions.
// Each session has its own lock; sessions never share mutable state.
type Controller struct {
	interpreter ports.Interpreter
	counters    ports.CounterStore
	clock       clockwork.Clock
	rng         domain.RNG
	rules       string
	slowAfter   time.Duration
	recorder    Recorder
	logger      *slog.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu       sync.Mutex
	sessions map[uuid.UUID]*liveSession
}

// Option configures a Controller.
type Option func(*Controller)

func WithClock(clock clockwork.Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

func WithRNG(rng domain.RNG) Option {
	return func(c *Controller) { c.rng = rng }
}

func WithSlowThreshold(d time.Duration) Option {
	return func(c *Controller) { c.slowAfter = d }
}

func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithHouseRules replaces the system instruction sent to the model.
func WithHouseRules(rules string) Option {
	return func(c *Controller) { c.rules = rules }
}

func NewController(interp ports.Interpreter, counters ports.CounterStore, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		interpreter: interp,
		counters:    counters,
		clock:       clockwork.NewRealClock(),
		rng:         stdRNG{},
		rules:       prompt.HouseRules,
		slowAfter:   DefaultSlowThreshold,
		recorder:    nopRecorder{},
		logger:      slog.Default(),
		baseCtx:     ctx,
		cancel:      cancel,
		sessions:    make(map[uuid.UUID]*liveSession),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit validates the dream, moves the session to Generating, counts the
// selection and dispatches the outbound call. An empty dream leaves the
// session untouched and returns domain.ErrEmptyDream.
func (c *Controller) Submit(ctx context.Context, id uuid.UUID, category domain.Category, dreamText string) (Snapshot, error) {
	req, err := domain.NewInterpretationRequest(category, dreamText)
	if err != nil {
		return Snapshot{}, err
	}

	ls := c.lockSession(id, true)
	now := c.clock.Now()
	if err := ls.state.Submit(req, now); err != nil {
		ls.mu.Unlock()
		return Snapshot{}, err
	}
	ls.flight = newFlight()
	ls.lastSeen = now
	ls.mu.Unlock()

	if req.Category != domain.General {
		if err := c.counters.Increment(ctx, id, req.Category); err != nil {
			c.logger.WarnContext(ctx, "failed to increment selection counter",
				"session_id", id, "category", req.Category, "error", err)
		}
	}

	c.logger.InfoContext(ctx, "interpretation submitted",
		"session_id", id, "category", req.Category, "dream_chars", len(req.DreamText))

	return c.Poll(ctx, id)
}

// Poll is the render step. It may be called any number of times while a
// request is outstanding; the outbound call is dispatched at most once.
func (c *Controller) Poll(_ context.Context, id uuid.UUID) (Snapshot, error) {
	ls := c.lockSession(id, true)
	defer ls.mu.Unlock()

	c.ensureDispatched(id, ls)
	ls.lastSeen = c.clock.Now()
	return c.snapshot(id, ls), nil
}

// Wait blocks until the current request finishes or ctx ends. Ending ctx
// does not cancel the outbound call.
func (c *Controller) Wait(ctx context.Context, id uuid.UUID) (Snapshot, error) {
	ls := c.lockSession(id, false)
	if ls == nil {
		return Snapshot{}, domain.ErrSessionNotFound
	}

	c.ensureDispatched(id, ls)
	f := ls.flight
	generating := ls.state.Phase() == domain.PhaseGenerating
	ls.mu.Unlock()

	var waitErr error
	if generating && f != nil {
		select {
		case <-f.done:
		case <-ctx.Done():
			waitErr = ctx.Err()
		}
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.lastSeen = c.clock.Now()
	return c.snapshot(id, ls), waitErr
}

// Reset returns the session to Idle. A call still in flight keeps running
// but its result is discarded.
func (c *Controller) Reset(_ context.Context, id uuid.UUID) (Snapshot, error) {
	ls := c.lockSession(id, true)
	defer ls.mu.Unlock()

	ls.state.Reset()
	if ls.flight != nil {
		ls.flight.finish()
		ls.flight = nil
	}
	ls.lastSeen = c.clock.Now()
	return c.snapshot(id, ls), nil
}

// OrderedCategories returns the schools in display order for the session.
func (c *Controller) OrderedCategories(ctx context.Context, id uuid.UUID) ([]domain.Category, error) {
	counts, err := c.counters.Counts(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load selection counters: %w", err)
	}
	return domain.OrderedCategories(counts, c.rng), nil
}

// Shutdown waits for in-flight calls until ctx ends, then cancels them.
func (c *Controller) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.cancel()
		return nil
	case <-ctx.Done():
		c.cancel()
		<-done
		return ctx.Err()
	}
}

func (c *Controller) session(id uuid.UUID, create bool) *liveSession {
	c.mu.Lock()
	defer c.mu.Unlock()

	ls, ok := c.sessions[id]
	if !ok && create {
		ls = &liveSession{state: domain.NewSession(), lastSeen: c.clock.Now()}
		c.sessions[id] = ls
	}
	return ls
}

// lockSession returns the session with ls.mu held, or nil when create is
// false and the session is unknown. A session swept between lookup and lock
// is looked up again.
func (c *Controller) lockSession(id uuid.UUID, create bool) *liveSession {
	for {
		ls := c.session(id, create)
		if ls == nil {
			return nil
		}
		testHookSessionLookedUp()
		ls.mu.Lock()
		if !ls.evicted {
			return ls
		}
		ls.mu.Unlock()
	}
}

// ensureDispatched must be called with ls.mu held.
func (c *Controller) ensureDispatched(id uuid.UUID, ls *liveSession) {
	if !ls.state.MarkDispatched() {
		return
	}
	req, _ := ls.state.Request()
	f := ls.flight
	if f == nil {
		f = newFlight()
		ls.flight = f
	}

	c.wg.Add(1)
	go c.dispatch(id, ls, f, req)
}

func (c *Controller) dispatch(id uuid.UUID, ls *liveSession, f *flight, req domain.InterpretationRequest) {
	defer c.wg.Done()
	defer f.finish()

	c.recorder.Dispatched()
	start := c.clock.Now()
	text, err := c.interpret(req)
	outcome := classify(err)
	c.recorder.Completed(outcome, c.clock.Since(start))

	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.flight != f {
		c.logger.Debug("discarding result for a reset session", "session_id", id)
		return
	}

	if err != nil {
		c.logger.Warn("interpretation failed", "session_id", id, "outcome", outcome, "error", err)
		_ = ls.state.CompleteWithError(failureMessage(err))
		return
	}
	_ = ls.state.CompleteWithResult(text)
	c.logger.Info("interpretation completed", "session_id", id, "latency_ms", c.clock.Since(start).Milliseconds())
}

func (c *Controller) interpret(req domain.InterpretationRequest) (string, error) {
	payload, err := prompt.Build(c.rules, req)
	if err != nil {
		return "", fmt.Errorf("build prompt: %w", err)
	}
	return c.interpreter.Interpret(c.baseCtx, payload)
}

func (c *Controller) snapshot(id uuid.UUID, ls *liveSession) Snapshot {
	now := c.clock.Now()
	snap := Snapshot{
		SessionID: id,
		Phase:     ls.state.Phase(),
		Elapsed:   ls.state.Elapsed(now),
	}
	if req, ok := ls.state.Request(); ok {
		snap.Request = &req
	}
	if started, ok := ls.state.StartedAt(); ok {
		snap.StartedAt = started
	}
	if res, ok := ls.state.Result(); ok {
		snap.Result = &res
	}
	snap.Slow = snap.Phase == domain.PhaseGenerating && snap.Elapsed > c.slowAfter
	return snap
}

func classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, domain.ErrQuotaExceeded):
		return OutcomeQuotaExceeded
	default:
		return OutcomeError
	}
}

func failureMessage(err error) string {
	if errors.Is(err, domain.ErrQuotaExceeded) {
		return QuotaExceededMessage
	}
	return callFailurePrefix + err.Error()
}
