package app_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/abhiarc/Dream-interpreter/internal/app"
	"github.com/abhiarc/Dream-interpreter/internal/domain"
	"github.com/abhiarc/Dream-interpreter/internal/prompt"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// --- Mocks ---

type mockInterpreter struct {
	gate  chan struct{}
	err   error
	calls atomic.Int32

	mu       sync.Mutex
	payloads []prompt.Payload
	ctxErrs  []error
}

func newMockInterpreter() *mockInterpreter {
	return &mockInterpreter{gate: make(chan struct{})}
}

func (m *mockInterpreter) Interpret(ctx context.Context, p prompt.Payload) (string, error) {
	m.calls.Add(1)
	<-m.gate

	m.mu.Lock()
	m.payloads = append(m.payloads, p)
	m.ctxErrs = append(m.ctxErrs, ctx.Err())
	m.mu.Unlock()

	if m.err != nil {
		return "", m.err
	}
	dream := p.Messages[1].Content[strings.LastIndex(p.Messages[1].Content, "\n")+1:]
	return "interpretation of " + dream, nil
}

func (m *mockInterpreter) release() { close(m.gate) }

func (m *mockInterpreter) lastPayload() prompt.Payload {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.payloads[len(m.payloads)-1]
}

type fakeCounters struct {
	mu     sync.Mutex
	counts map[uuid.UUID]domain.SelectionCounters
	err    error
}

func newFakeCounters() *fakeCounters {
	return &fakeCounters{counts: make(map[uuid.UUID]domain.SelectionCounters)}
}

func (f *fakeCounters) Increment(_ context.Context, id uuid.UUID, cat domain.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.counts[id] == nil {
		f.counts[id] = domain.NewSelectionCounters()
	}
	f.counts[id][cat]++
	return nil
}

func (f *fakeCounters) Counts(_ context.Context, id uuid.UUID) (domain.SelectionCounters, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := domain.NewSelectionCounters()
	for k, v := range f.counts[id] {
		out[k] = v
	}
	return out, nil
}

func (f *fakeCounters) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.counts, id)
	return nil
}

type countingRecorder struct {
	dispatched atomic.Int32
	mu         sync.Mutex
	outcomes   []app.Outcome
}

func (r *countingRecorder) Dispatched() { r.dispatched.Add(1) }

func (r *countingRecorder) Completed(o app.Outcome, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

type fixedRNG struct{ val int }

func (r fixedRNG) Intn(n int) int { return r.val % n }

func newController(t *testing.T, interp *mockInterpreter, counters *fakeCounters, opts ...app.Option) *app.Controller {
	t.Helper()
	ctrl := app.NewController(interp, counters, opts...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, ctrl.Shutdown(ctx))
	})
	return ctrl
}

func waitDone(t *testing.T, ctrl *app.Controller, id uuid.UUID) app.Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := ctrl.Wait(ctx, id)
	require.NoError(t, err)
	require.Equal(t, domain.PhaseDone, snap.Phase)
	return snap
}

// --- Tests ---

func TestSubmit_SingleFlightAcrossPolls(t *testing.T) {
	interp := newMockInterpreter()
	ctrl := newController(t, interp, newFakeCounters())
	id := uuid.New()
	ctx := context.Background()

	snap, err := ctrl.Submit(ctx, id, domain.Gestalt, "a blue door")
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseGenerating, snap.Phase)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 10 {
				s, err := ctrl.Poll(ctx, id)
				assert.NoError(t, err)
				assert.Equal(t, domain.PhaseGenerating, s.Phase)
			}
		}()
	}
	wg.Wait()

	require.Eventually(t, func() bool { return interp.calls.Load() == 1 }, time.Second, time.Millisecond)
	interp.release()

	done := waitDone(t, ctrl, id)
	require.NotNil(t, done.Result)
	assert.Equal(t, "interpretation of a blue door", done.Result.Text)
	assert.False(t, done.Result.Failed)

	for range 5 {
		_, err := ctrl.Poll(ctx, id)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), interp.calls.Load())
}

func TestSubmit_EmptyDreamStaysIdle(t *testing.T) {
	interp := newMockInterpreter()
	counters := newFakeCounters()
	ctrl := newController(t, interp, counters)
	id := uuid.New()
	ctx := context.Background()

	for _, text := range []string{"", "   ", "\n\t "} {
		_, err := ctrl.Submit(ctx, id, domain.Gestalt, text)
		assert.ErrorIs(t, err, domain.ErrEmptyDream)
	}

	snap, err := ctrl.Poll(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseIdle, snap.Phase)
	assert.Nil(t, snap.Result)
	assert.Zero(t, interp.calls.Load())

	counts, err := counters.Counts(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, counts[domain.Gestalt])
}

func TestSubmit_WhileGeneratingRejected(t *testing.T) {
	interp := newMockInterpreter()
	ctrl := newController(t, interp, newFakeCounters())
	id := uuid.New()
	ctx := context.Background()

	_, err := ctrl.Submit(ctx, id, domain.Gestalt, "first")
	require.NoError(t, err)

	_, err = ctrl.Submit(ctx, id, domain.Gestalt, "second")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	interp.release()
	waitDone(t, ctrl, id)

	_, err = ctrl.Submit(ctx, id, domain.Gestalt, "third")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "done sessions must be reset first")
	assert.Equal(t, int32(1), interp.calls.Load())
}

func TestCompleteThenReset(t *testing.T) {
	interp := newMockInterpreter()
	interp.release()
	ctrl := newController(t, interp, newFakeCounters())
	id := uuid.New()
	ctx := context.Background()

	_, err := ctrl.Submit(ctx, id, domain.HinduVedic, "a river of light")
	require.NoError(t, err)
	done := waitDone(t, ctrl, id)
	assert.Equal(t, "interpretation of a river of light", done.Result.Text)
	assert.False(t, done.StartedAt.IsZero())

	snap, err := ctrl.Reset(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseIdle, snap.Phase)
	assert.Nil(t, snap.Result)
	assert.Nil(t, snap.Request)
	assert.True(t, snap.StartedAt.IsZero())
}

func TestQuotaFailureScenario(t *testing.T) {
	interp := newMockInterpreter()
	interp.err = fmt.Errorf("%w: insufficient_quota", domain.ErrQuotaExceeded)
	interp.release()
	rec := &countingRecorder{}
	ctrl := newController(t, interp, newFakeCounters(), app.WithRecorder(rec))
	id := uuid.New()

	_, err := ctrl.Submit(context.Background(), id, domain.JungianAnalyticalPsychology, "I was flying over a quiet village.")
	require.NoError(t, err)

	done := waitDone(t, ctrl, id)
	require.NotNil(t, done.Result)
	assert.Equal(t, app.QuotaExceededMessage, done.Result.Text)
	assert.True(t, done.Result.Failed)

	p := interp.lastPayload()
	require.Len(t, p.Messages, 2)
	assert.Equal(t, prompt.HouseRules, p.Messages[0].Content)
	assert.Equal(t,
		"Selected school: Jungian Analytical Psychology\n\nDream:\nI was flying over a quiet village.",
		p.Messages[1].Content,
	)

	assert.Equal(t, int32(1), rec.dispatched.Load())
	rec.mu.Lock()
	assert.Equal(t, []app.Outcome{app.OutcomeQuotaExceeded}, rec.outcomes)
	rec.mu.Unlock()
}

func TestCallFailureIsTerminalNotRetried(t *testing.T) {
	interp := newMockInterpreter()
	interp.err = fmt.Errorf("%w: upstream status 500", domain.ErrUpstreamLLM)
	interp.release()
	ctrl := newController(t, interp, newFakeCounters())
	id := uuid.New()

	_, err := ctrl.Submit(context.Background(), id, domain.Gestalt, "a maze")
	require.NoError(t, err)

	done := waitDone(t, ctrl, id)
	assert.Equal(t, "Error calling the interpretation service: upstream LLM failure: upstream status 500", done.Result.Text)
	assert.True(t, done.Result.Failed)
	assert.Equal(t, int32(1), interp.calls.Load())
}

func TestCountersPerSubmission(t *testing.T) {
	interp := newMockInterpreter()
	interp.release()
	counters := newFakeCounters()
	ctrl := newController(t, interp, counters)
	id := uuid.New()
	ctx := context.Background()

	_, err := ctrl.Submit(ctx, id, domain.Gestalt, "first dream")
	require.NoError(t, err)
	waitDone(t, ctrl, id)
	_, err = ctrl.Reset(ctx, id)
	require.NoError(t, err)

	_, err = ctrl.Submit(ctx, id, domain.NordicNorse, "second dream")
	require.NoError(t, err)
	waitDone(t, ctrl, id)
	_, err = ctrl.Reset(ctx, id)
	require.NoError(t, err)

	_, err = ctrl.Submit(ctx, id, domain.General, "third dream")
	require.NoError(t, err)
	waitDone(t, ctrl, id)

	counts, err := counters.Counts(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[domain.Gestalt])
	assert.Equal(t, 1, counts[domain.NordicNorse])
	assert.Zero(t, counts[domain.General])

	total := 0
	for _, v := range counts {
		total += v
	}
	assert.Equal(t, 2, total)
}

func TestCounterFailureDoesNotBlockSubmission(t *testing.T) {
	interp := newMockInterpreter()
	interp.release()
	counters := newFakeCounters()
	counters.err = errors.New("redis down")
	ctrl := newController(t, interp, counters)
	id := uuid.New()

	_, err := ctrl.Submit(context.Background(), id, domain.Gestalt, "a dream")
	require.NoError(t, err)
	done := waitDone(t, ctrl, id)
	assert.False(t, done.Result.Failed)
}

func TestResetDiscardsInFlightResult(t *testing.T) {
	interp := newMockInterpreter()
	ctrl := newController(t, interp, newFakeCounters())
	id := uuid.New()
	ctx := context.Background()

	_, err := ctrl.Submit(ctx, id, domain.Gestalt, "old dream")
	require.NoError(t, err)
	_, err = ctrl.Reset(ctx, id)
	require.NoError(t, err)
	_, err = ctrl.Submit(ctx, id, domain.Gestalt, "new dream")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return interp.calls.Load() == 2 }, time.Second, time.Millisecond)
	interp.release()

	done := waitDone(t, ctrl, id)
	assert.Equal(t, "interpretation of new dream", done.Result.Text)
}

func TestSlowFlagAfterThreshold(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	interp := newMockInterpreter()
	ctrl := newController(t, interp, newFakeCounters(), app.WithClock(clock))
	id := uuid.New()
	ctx := context.Background()

	snap, err := ctrl.Submit(ctx, id, domain.Gestalt, "a long corridor")
	require.NoError(t, err)
	assert.False(t, snap.Slow)

	clock.Advance(9 * time.Second)
	snap, err = ctrl.Poll(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 9*time.Second, snap.Elapsed)
	assert.False(t, snap.Slow)

	clock.Advance(2 * time.Second)
	snap, err = ctrl.Poll(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 11*time.Second, snap.Elapsed)
	assert.True(t, snap.Slow)
	assert.Equal(t, domain.PhaseGenerating, snap.Phase, "slow requests are never aborted")

	interp.release()
	done := waitDone(t, ctrl, id)
	assert.False(t, done.Slow)
}

func TestWait_TimeoutDoesNotCancelCall(t *testing.T) {
	interp := newMockInterpreter()
	ctrl := newController(t, interp, newFakeCounters())
	id := uuid.New()

	_, err := ctrl.Submit(context.Background(), id, domain.Gestalt, "a dream")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	snap, err := ctrl.Wait(ctx, id)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, domain.PhaseGenerating, snap.Phase)

	interp.release()
	waitDone(t, ctrl, id)

	interp.mu.Lock()
	defer interp.mu.Unlock()
	assert.NoError(t, interp.ctxErrs[0])
}

func TestWait_UnknownSession(t *testing.T) {
	ctrl := newController(t, newMockInterpreter(), newFakeCounters())
	_, err := ctrl.Wait(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionsAreIsolated(t *testing.T) {
	interp := newMockInterpreter()
	interp.release()
	ctrl := newController(t, interp, newFakeCounters())
	a, b := uuid.New(), uuid.New()
	ctx := context.Background()

	_, err := ctrl.Submit(ctx, a, domain.Gestalt, "dream a")
	require.NoError(t, err)

	snapB, err := ctrl.Poll(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseIdle, snapB.Phase)

	_, err = ctrl.Submit(ctx, b, domain.Gestalt, "dream b")
	require.NoError(t, err)

	assert.Equal(t, "interpretation of dream a", waitDone(t, ctrl, a).Result.Text)
	assert.Equal(t, "interpretation of dream b", waitDone(t, ctrl, b).Result.Text)
}

func TestOrderedCategories(t *testing.T) {
	interp := newMockInterpreter()
	interp.release()
	ctrl := newController(t, interp, newFakeCounters(), app.WithRNG(fixedRNG{val: 0}))
	id := uuid.New()
	ctx := context.Background()

	cats, err := ctrl.OrderedCategories(ctx, id)
	require.NoError(t, err)
	assert.ElementsMatch(t, domain.Categories(), cats)

	_, err = ctrl.Submit(ctx, id, domain.CognitiveNeuroscientific, "a lab")
	require.NoError(t, err)
	waitDone(t, ctrl, id)

	cats, err = ctrl.OrderedCategories(ctx, id)
	require.NoError(t, err)
	assert.ElementsMatch(t, domain.Categories(), cats)
	assert.Equal(t, domain.CognitiveNeuroscientific, cats[0])
}

func TestOrderedCategories_StoreError(t *testing.T) {
	counters := newFakeCounters()
	counters.err = errors.New("boom")
	ctrl := newController(t, newMockInterpreter(), counters)

	_, err := ctrl.OrderedCategories(context.Background(), uuid.New())
	assert.Error(t, err)
}
