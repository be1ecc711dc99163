package poller

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/abelbrown/edgeboard/internal/api"
	"github.com/abelbrown/edgeboard/internal/config"
	"github.com/abelbrown/edgeboard/internal/edges"
	"github.com/abelbrown/edgeboard/internal/otel"
)

// step is one scripted fetch outcome.
type step struct {
	snap  *edges.Snapshot
	err   error
	panic bool
}

// mockFetcher replays steps in order; once exhausted it repeats the last one.
type mockFetcher struct {
	mu    sync.Mutex
	steps []step
	calls int
}

func (m *mockFetcher) CurrentEdges(ctx context.Context) (*edges.Snapshot, error) {
	m.mu.Lock()
	i := m.calls
	m.calls++
	if i >= len(m.steps) {
		i = len(m.steps) - 1
	}
	s := m.steps[i]
	m.mu.Unlock()

	if s.panic {
		panic("boom")
	}
	return s.snap, s.err
}

func (m *mockFetcher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockFetcher) push(s ...step) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, s...)
}

// fakeClock is advanced by hand.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// recordingSleeper returns immediately and remembers what it was asked.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *recordingSleeper) Delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func snapshot(list ...edges.Edge) *edges.Snapshot {
	if list == nil {
		list = []edges.Edge{}
	}
	return &edges.Snapshot{Edges: list, Summary: edges.Summary{TotalEdges: len(list)}}
}

func edge(player, team string) edges.Edge {
	return edges.Edge{Type: "prop", Player: player, Team: team}
}

func testConfig() config.PollConfig {
	return config.Default().Poll
}

func newTestPoller(t *testing.T, f Fetcher, opts ...Option) (*Poller, *fakeClock, *recordingSleeper) {
	t.Helper()
	clock := newFakeClock()
	sleeper := &recordingSleeper{}
	all := append([]Option{WithClock(clock.Now), WithSleeper(sleeper.Sleep)}, opts...)
	return New(f, testConfig(), all...), clock, sleeper
}

var errNetwork = errors.New("connection refused")

func TestFirstSuccessHasNoToast(t *testing.T) {
	f := &mockFetcher{steps: []step{{snap: snapshot(edge("A", "X"))}}}
	p, clock, _ := newTestPoller(t, f)

	if err := p.FetchOnce(context.Background()); err != nil {
		t.Fatalf("FetchOnce failed: %v", err)
	}
	s := p.State()
	if s.Toast != nil {
		t.Errorf("initial load should not toast, got %+v", s.Toast)
	}
	if s.Snapshot.Len() != 1 || s.Phase != Idle || s.ErrorMessage != "" {
		t.Errorf("unexpected state: %+v", s)
	}
	if !s.LastSuccessAt.Equal(clock.Now()) {
		t.Errorf("LastSuccessAt = %v", s.LastSuccessAt)
	}
}

func TestNewEdgeToast(t *testing.T) {
	f := &mockFetcher{steps: []step{
		{snap: snapshot(edge("A", "X"))},
		{snap: snapshot(edge("A", "X"), edge("B", "Y"))},
	}}
	p, _, _ := newTestPoller(t, f)
	ctx := context.Background()

	p.FetchOnce(ctx)
	p.FetchOnce(ctx)

	s := p.State()
	if s.Toast == nil || s.Toast.Message != "1 edge detected." || s.Toast.Kind != ToastSuccess {
		t.Fatalf("toast = %+v, want success \"1 edge detected.\"", s.Toast)
	}
	if s.Snapshot.Len() != 2 {
		t.Errorf("snapshot should hold both edges, got %d", s.Snapshot.Len())
	}
}

func TestDisjointSnapshotsCountEveryEdge(t *testing.T) {
	f := &mockFetcher{steps: []step{
		{snap: snapshot(edge("A", "X"))},
		{snap: snapshot(edge("B", "Y"), edge("C", "Z"), edge("D", "W"))},
	}}
	p, _, _ := newTestPoller(t, f)
	p.FetchOnce(context.Background())
	p.FetchOnce(context.Background())

	if s := p.State(); s.Toast == nil || s.Toast.Message != "3 edges detected." {
		t.Errorf("toast = %+v", s.Toast)
	}
}

func TestRemovedEdgeToast(t *testing.T) {
	f := &mockFetcher{steps: []step{
		{snap: snapshot(edge("A", "X"), edge("B", "Y"), edge("C", "Z"))},
		{snap: snapshot(edge("A", "X"))},
	}}
	p, _, _ := newTestPoller(t, f)
	p.FetchOnce(context.Background())
	p.FetchOnce(context.Background())

	s := p.State()
	if s.Toast == nil || s.Toast.Message != "2 edges removed." || s.Toast.Kind != ToastInfo {
		t.Errorf("toast = %+v, want info \"2 edges removed.\"", s.Toast)
	}
}

func TestUnchangedSnapshotHasNoToast(t *testing.T) {
	f := &mockFetcher{steps: []step{{snap: snapshot(edge("A", "X"))}}}
	p, _, _ := newTestPoller(t, f)
	p.FetchOnce(context.Background())
	p.FetchOnce(context.Background())

	if s := p.State(); s.Toast != nil {
		t.Errorf("identical keys should not toast, got %+v", s.Toast)
	}
}

func TestToastIDsAreUnique(t *testing.T) {
	f := &mockFetcher{steps: []step{
		{snap: snapshot(edge("A", "X"))},
		{snap: snapshot(edge("A", "X"), edge("B", "Y"))},
		{snap: snapshot(edge("A", "X"))},
	}}
	p, _, _ := newTestPoller(t, f)
	ctx := context.Background()
	p.FetchOnce(ctx)
	p.FetchOnce(ctx)
	first := p.State().Toast
	p.FetchOnce(ctx)
	second := p.State().Toast

	if first == nil || second == nil || first.ID == second.ID {
		t.Errorf("expected two toasts with distinct IDs, got %+v and %+v", first, second)
	}
}

func TestExhaustionKeepsStaleSnapshot(t *testing.T) {
	f := &mockFetcher{steps: []step{
		{snap: snapshot(edge("A", "X"))},
		{err: errNetwork},
	}}
	p, _, sleeper := newTestPoller(t, f)
	ctx := context.Background()

	p.FetchOnce(ctx)
	before := p.State().Snapshot

	err := p.FetchOnce(ctx)
	if !errors.Is(err, ErrRetriesExhausted) || !errors.Is(err, errNetwork) {
		t.Fatalf("err = %v, want ErrRetriesExhausted wrapping the network error", err)
	}

	s := p.State()
	if s.Snapshot != before {
		t.Error("stale snapshot should be kept after exhaustion")
	}
	if s.ErrorMessage == "" {
		t.Error("ErrorMessage should be set after exhaustion")
	}
	if s.Phase != Idle {
		t.Errorf("phase = %v, want idle", s.Phase)
	}
	if f.Calls() != 4 {
		t.Errorf("calls = %d, want 1 success + 3 attempts", f.Calls())
	}

	want := []time.Duration{1500 * time.Millisecond, 3000 * time.Millisecond}
	got := sleeper.Delays()
	if len(got) != len(want) {
		t.Fatalf("delays = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestNoAttemptsAfterExhaustionUntilTriggered(t *testing.T) {
	f := &mockFetcher{steps: []step{{err: errNetwork}}}
	p, clock, _ := newTestPoller(t, f)

	p.FetchOnce(context.Background())
	if f.Calls() != 3 {
		t.Fatalf("calls = %d, want 3", f.Calls())
	}
	s := p.State()
	if s.HasData() || s.ErrorMessage == "" {
		t.Errorf("expected error with no data, got %+v", s)
	}

	clock.Advance(time.Hour)
	if f.Calls() != 3 {
		t.Errorf("no attempt should happen without a trigger, got %d calls", f.Calls())
	}

	f.push(step{snap: snapshot(edge("A", "X"))})
	if !p.TriggerRefresh(context.Background(), true) {
		t.Fatal("bypass trigger should run")
	}
	if s := p.State(); s.ErrorMessage != "" || s.Snapshot.Len() != 1 {
		t.Errorf("successful retry should clear the error, got %+v", s)
	}
}

func TestRecoversWithinBudget(t *testing.T) {
	f := &mockFetcher{steps: []step{
		{err: &api.StatusError{Status: http.StatusBadGateway}},
		{snap: snapshot(edge("A", "X"))},
	}}
	p, _, sleeper := newTestPoller(t, f)

	if err := p.FetchOnce(context.Background()); err != nil {
		t.Fatalf("FetchOnce should succeed on the second attempt: %v", err)
	}
	if got := sleeper.Delays(); len(got) != 1 || got[0] != 1500*time.Millisecond {
		t.Errorf("delays = %v", got)
	}
}

func TestRetryAfterStretchesBackoff(t *testing.T) {
	f := &mockFetcher{steps: []step{
		{err: &api.StatusError{Status: http.StatusTooManyRequests, RetryAfter: 5 * time.Second}},
		{err: &api.StatusError{Status: http.StatusTooManyRequests, RetryAfter: time.Hour}},
		{snap: snapshot()},
	}}
	p, _, sleeper := newTestPoller(t, f)
	p.FetchOnce(context.Background())

	got := sleeper.Delays()
	if len(got) != 2 || got[0] != 5*time.Second || got[1] != maxRetryAfter {
		t.Errorf("delays = %v, want [5s %v]", got, maxRetryAfter)
	}
}

func TestPanicCountsAsFailedAttempt(t *testing.T) {
	f := &mockFetcher{steps: []step{{panic: true}, {snap: snapshot(edge("A", "X"))}}}
	p, _, _ := newTestPoller(t, f)

	if err := p.FetchOnce(context.Background()); err != nil {
		t.Fatalf("panic should be retried, got %v", err)
	}
	if p.State().Snapshot.Len() != 1 {
		t.Error("expected snapshot after recovery")
	}
}

func TestNilSnapshotIsFailure(t *testing.T) {
	f := &mockFetcher{steps: []step{{}}}
	p, _, _ := newTestPoller(t, f)
	if err := p.FetchOnce(context.Background()); !errors.Is(err, ErrRetriesExhausted) {
		t.Errorf("err = %v", err)
	}
}

func TestDebounce(t *testing.T) {
	f := &mockFetcher{steps: []step{{snap: snapshot()}}}
	p, clock, _ := newTestPoller(t, f)
	ctx := context.Background()

	if !p.TriggerRefresh(ctx, false) {
		t.Fatal("first trigger should run")
	}
	clock.Advance(1499 * time.Millisecond)
	if p.TriggerRefresh(ctx, false) {
		t.Error("trigger inside the window should be ignored")
	}
	if f.Calls() != 1 {
		t.Errorf("calls = %d, want 1", f.Calls())
	}

	if !p.TriggerRefresh(ctx, true) {
		t.Error("bypass should ignore the window")
	}
	clock.Advance(1500 * time.Millisecond)
	if !p.TriggerRefresh(ctx, false) {
		t.Error("trigger after the window should run")
	}
	if f.Calls() != 3 {
		t.Errorf("calls = %d, want 3", f.Calls())
	}
}

func TestPhasesSeenByObserver(t *testing.T) {
	var (
		mu     sync.Mutex
		states []State
	)
	f := &mockFetcher{steps: []step{{snap: snapshot(edge("A", "X"))}}}
	p, _, _ := newTestPoller(t, f, WithUpdateFunc(func(s State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	}))

	p.FetchOnce(context.Background())
	p.FetchOnce(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if len(states) != 4 {
		t.Fatalf("got %d updates, want 4", len(states))
	}
	if !states[0].IsInitialLoading() {
		t.Errorf("first update should be initial loading: %+v", states[0])
	}
	if states[1].Phase != Idle || !states[1].HasData() {
		t.Errorf("second update should be idle with data: %+v", states[1])
	}
	if !states[2].IsRefreshing() || states[2].IsInitialLoading() {
		t.Errorf("third update should be refreshing: %+v", states[2])
	}
	for i := 1; i < len(states); i++ {
		if states[i].Version <= states[i-1].Version {
			t.Errorf("versions not increasing: %d then %d", states[i-1].Version, states[i].Version)
		}
	}
}

// blockingFetcher parks its first call until ctx is cancelled.
type blockingFetcher struct {
	entered chan struct{}
	once    sync.Once
	next    *edges.Snapshot
}

func (b *blockingFetcher) CurrentEdges(ctx context.Context) (*edges.Snapshot, error) {
	first := false
	b.once.Do(func() { first = true })
	if first {
		close(b.entered)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return b.next, nil
}

func TestNewCycleSupersedesInFlight(t *testing.T) {
	f := &blockingFetcher{entered: make(chan struct{}), next: snapshot(edge("B", "Y"))}
	p, _, _ := newTestPoller(t, f)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- p.FetchOnce(ctx) }()
	<-f.entered

	if err := p.FetchOnce(ctx); err != nil {
		t.Fatalf("second cycle failed: %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, ErrSuperseded) {
			t.Errorf("first cycle err = %v, want ErrSuperseded", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("first cycle was not cancelled")
	}

	s := p.State()
	if s.Snapshot.Len() != 1 || s.Snapshot.Edges[0].Player != "B" || s.ErrorMessage != "" {
		t.Errorf("newest cycle should own the state, got %+v", s)
	}
}

func TestRunPollsUntilCancelled(t *testing.T) {
	f := &mockFetcher{steps: []step{{snap: snapshot()}}}
	cfg := testConfig()
	cfg.Interval = config.Duration(5 * time.Millisecond)
	p := New(f, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for f.Calls() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d polls before deadline", f.Calls())
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestResumeBypassesDebounce(t *testing.T) {
	f := &mockFetcher{steps: []step{{snap: snapshot()}}}
	p, _, _ := newTestPoller(t, f)
	ctx := context.Background()

	p.TriggerRefresh(ctx, false)
	if !p.Resume(ctx) {
		t.Error("Resume should always run")
	}
	if f.Calls() != 2 {
		t.Errorf("calls = %d, want 2", f.Calls())
	}
}

func TestEventsEmitted(t *testing.T) {
	ring := otel.NewRingBuffer(64)
	l := otel.NewNullLogger()
	l.SetRingBuffer(ring)

	f := &mockFetcher{steps: []step{
		{snap: snapshot(edge("A", "X"))},
		{err: errNetwork},
	}}
	p, _, _ := newTestPoller(t, f, WithLogger(l))
	p.FetchOnce(context.Background())
	p.FetchOnce(context.Background())
	l.Close()

	stats := ring.Stats()
	if stats[otel.KindPollSuccess] != 1 || stats[otel.KindPollRetry] != 3 || stats[otel.KindPollExhausted] != 1 {
		t.Errorf("stats = %v", stats)
	}
	if e, ok := ring.LastOf(otel.KindPollExhausted); !ok || e.Comp != "poller" || e.Err != errNetwork.Error() {
		t.Errorf("exhausted event = %+v", e)
	}
}

func TestDiffToastMessages(t *testing.T) {
	tests := []struct {
		change edges.Change
		want   string
		kind   ToastKind
	}{
		{edges.Change{Added: 1}, "1 edge detected.", ToastSuccess},
		{edges.Change{Added: 2, Removed: 5}, "2 edges detected.", ToastSuccess},
		{edges.Change{Removed: 1}, "1 edge removed.", ToastInfo},
	}
	for _, tt := range tests {
		got := diffToast(tt.change)
		if got == nil || got.Message != tt.want || got.Kind != tt.kind {
			t.Errorf("diffToast(%+v) = %+v, want %q", tt.change, got, tt.want)
		}
	}
	if diffToast(edges.Change{}) != nil {
		t.Error("no change should give no toast")
	}
}
