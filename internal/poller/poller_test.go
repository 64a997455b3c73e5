package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeTicker struct {
	d       time.Duration
	c       chan time.Time
	stopped atomic.Bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.c }
func (t *fakeTicker) Stop()               { t.stopped.Store(true) }

// fakeClock records every ticker it hands out; tests fire them by hand.
type fakeClock struct {
	mu      sync.Mutex
	tickers []*fakeTicker
}

func (f *fakeClock) NewTicker(d time.Duration) Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTicker{d: d, c: make(chan time.Time)}
	f.tickers = append(f.tickers, t)
	return t
}

func (f *fakeClock) last() *fakeTicker {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tickers[len(f.tickers)-1]
}

func (f *fakeClock) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tickers)
}

// gatedFetcher blocks each fetch until the test releases the subject.
type gatedFetcher struct {
	mu    sync.Mutex
	gates map[string]chan string
	calls chan string
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{gates: make(map[string]chan string), calls: make(chan string, 16)}
}

func (g *gatedFetcher) gate(subject string) chan string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[subject]
	if !ok {
		ch = make(chan string, 4)
		g.gates[subject] = ch
	}
	return ch
}

func (g *gatedFetcher) fetch(ctx context.Context, subject string) (string, error) {
	g.calls <- subject
	select {
	case v := <-g.gate(subject):
		return v, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (g *gatedFetcher) release(subject, value string) {
	g.gate(subject) <- value
}

func (g *gatedFetcher) awaitCall(t *testing.T) string {
	t.Helper()
	select {
	case s := <-g.calls:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("fetch was not issued")
		return ""
	}
}

type recorder struct {
	mu      sync.Mutex
	applied []string
	errs    int
	next    Directive
}

func (r *recorder) handle(subject, result string, err error) Directive {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.errs++
		return r.next
	}
	r.applied = append(r.applied, subject+"="+result)
	return r.next
}

func (r *recorder) results() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.applied...)
}

// waitSettled waits until n cycles have been applied or discarded.
func waitSettled(t *testing.T, c *Coordinator[string], n uint64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if st := c.Stats(); st.Applied+st.Discarded >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("cycles did not settle: %+v", c.Stats())
}

func newTestCoordinator(t *testing.T, fetch Fetcher[string], rec *recorder) (*Coordinator[string], *fakeClock) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	clk := &fakeClock{}
	c := New(ctx, fetch, rec.handle, WithClock(clk))
	t.Cleanup(func() {
		c.Stop()
		cancel()
		c.Wait()
	})
	return c, clk
}

func TestRestartDiscardsFirstResult(t *testing.T) {
	g := newGatedFetcher()
	rec := &recorder{}
	c, _ := newTestCoordinator(t, g.fetch, rec)

	first := c.Start("game-a", 30*time.Second)
	g.awaitCall(t)
	second := c.Start("game-b", 30*time.Second)
	g.awaitCall(t)

	if second <= first {
		t.Fatalf("tokens must increase: first=%d second=%d", first, second)
	}

	g.release("game-b", "b1")
	g.release("game-a", "a1")
	waitSettled(t, c, 2)

	got := rec.results()
	if len(got) != 1 || got[0] != "game-b=b1" {
		t.Fatalf("applied = %v, want only game-b=b1", got)
	}
	st := c.Stats()
	if st.Applied != 1 || st.Discarded != 1 || st.Issued != 2 {
		t.Errorf("stats = %+v", st)
	}
}

func TestStopDiscardsInFlight(t *testing.T) {
	g := newGatedFetcher()
	rec := &recorder{}
	c, clk := newTestCoordinator(t, g.fetch, rec)

	c.Start("game-a", 30*time.Second)
	g.awaitCall(t)
	c.Stop()

	if !clk.last().stopped.Load() {
		t.Error("ticker must be stopped")
	}
	if c.Subject() != "" || c.Interval() != 0 {
		t.Errorf("stopped coordinator still reports subject=%q interval=%v", c.Subject(), c.Interval())
	}

	g.release("game-a", "late")
	c.Wait()
	if got := rec.results(); len(got) != 0 {
		t.Fatalf("stale result applied after Stop: %v", got)
	}
}

func TestTickSupersedesSlowFetch(t *testing.T) {
	g := newGatedFetcher()
	rec := &recorder{}
	c, clk := newTestCoordinator(t, g.fetch, rec)

	c.Start("game-a", 30*time.Second)
	g.awaitCall(t)

	clk.last().c <- time.Now()
	g.awaitCall(t)

	g.release("game-a", "old")
	g.release("game-a", "new")
	waitSettled(t, c, 2)

	// Both fetches of game-a race for the two values; exactly one was issued
	// under the current token.
	if got := rec.results(); len(got) != 1 {
		t.Fatalf("applied = %v, want exactly one result", got)
	}
	if st := c.Stats(); st.Discarded != 1 {
		t.Errorf("expected one discarded cycle, got %+v", st)
	}
}

func TestFailedFetchKeepsPolling(t *testing.T) {
	var calls atomic.Int32
	fetch := func(ctx context.Context, subject string) (string, error) {
		if calls.Add(1) == 1 {
			return "", errors.New("boom")
		}
		return "ok", nil
	}
	rec := &recorder{}
	c, clk := newTestCoordinator(t, fetch, rec)

	c.Start("game-a", 30*time.Second)
	waitSettled(t, c, 1)
	clk.last().c <- time.Now()
	waitSettled(t, c, 2)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.errs != 1 || len(rec.applied) != 1 {
		t.Errorf("errs=%d applied=%v", rec.errs, rec.applied)
	}
}

func TestSameIntervalDirectiveKeepsTicker(t *testing.T) {
	fetch := func(ctx context.Context, subject string) (string, error) { return "x", nil }
	rec := &recorder{next: Directive{Interval: 30 * time.Second}}
	c, clk := newTestCoordinator(t, fetch, rec)

	c.Start("game-a", 30*time.Second)
	waitSettled(t, c, 1)
	if clk.count() != 1 {
		t.Fatalf("same interval re-armed the ticker: %d tickers", clk.count())
	}

	rec.mu.Lock()
	rec.next = Directive{Interval: 2 * time.Minute}
	rec.mu.Unlock()
	clk.last().c <- time.Now()
	waitSettled(t, c, 2)
	if clk.count() != 2 {
		t.Fatalf("new interval did not re-arm: %d tickers", clk.count())
	}
	if !clk.tickers[0].stopped.Load() {
		t.Error("previous ticker must be stopped on re-arm")
	}
	if c.Interval() != 2*time.Minute {
		t.Errorf("Interval = %v", c.Interval())
	}
}

func TestHandlerDirectives(t *testing.T) {
	results := make(chan struct{}, 4)
	fetch := func(ctx context.Context, subject string) (string, error) { return "x", nil }
	rec := &recorder{next: Directive{Interval: 2 * time.Minute}}
	handle := func(subject, result string, err error) Directive {
		d := rec.handle(subject, result, err)
		results <- struct{}{}
		return d
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clk := &fakeClock{}
	c := New(ctx, fetch, handle, WithClock(clk))

	c.Start("game-a", 30*time.Second)
	<-results
	c.Wait()
	if c.Interval() != 2*time.Minute || clk.count() != 2 {
		t.Fatalf("handler interval not applied: interval=%v tickers=%d", c.Interval(), clk.count())
	}

	rec.mu.Lock()
	rec.next = Directive{Stop: true}
	rec.mu.Unlock()
	clk.last().c <- time.Now()
	<-results
	c.Wait()
	if c.Subject() != "" || !clk.last().stopped.Load() {
		t.Error("handler stop directive must disarm the coordinator")
	}
}
