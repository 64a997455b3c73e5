// Package poller repeatedly fetches the state of one subject and applies each
// result only if no newer cycle has been issued since the fetch started.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/logger"
)

// Token tags one fetch-and-handle cycle. A result is applied only if its
// token still equals the coordinator's current token when the fetch returns.
type Token uint64

// Fetcher retrieves the state of subject. It may fail; failures are handed to
// the Handler like any other result.
type Fetcher[T any] func(ctx context.Context, subject string) (T, error)

// Directive is what a Handler asks of the coordinator after applying a result.
type Directive struct {
	Interval time.Duration // desired tick interval, zero keeps the current one
	Stop     bool
}

// Handler applies the result of a current cycle. It runs with the coordinator
// locked, so results are applied one at a time, and it must not call back
// into the coordinator.
type Handler[T any] func(subject string, result T, err error) Directive

// Stats counts cycle outcomes.
type Stats struct {
	Issued    uint64
	Applied   uint64
	Discarded uint64
}

type Coordinator[T any] struct {
	ctx    context.Context
	fetch  Fetcher[T]
	handle Handler[T]
	clock  Clock

	mu       sync.Mutex
	gen      Token
	subject  string
	interval time.Duration
	ticker   Ticker
	tickDone chan struct{}
	stats    Stats

	inflight sync.WaitGroup
}

type Option func(*options)

type options struct {
	clock Clock
}

// WithClock replaces the wall clock, mostly for tests.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// New creates an idle coordinator. ctx bounds every fetch it issues.
func New[T any](ctx context.Context, fetch Fetcher[T], handle Handler[T], opts ...Option) *Coordinator[T] {
	o := options{clock: RealClock()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Coordinator[T]{
		ctx:    ctx,
		fetch:  fetch,
		handle: handle,
		clock:  o.clock,
	}
}

// Start switches to subject, issues an immediate cycle and arms the ticker at
// interval. Results of cycles issued before Start are discarded.
func (c *Coordinator[T]) Start(subject string, interval time.Duration) Token {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.subject = subject
	c.arm(interval)
	tok := c.issue()
	logger.Debug("Polling %s every %v (token %d)", subject, interval, tok)
	return tok
}

// Stop disarms the ticker and invalidates every in-flight cycle.
func (c *Coordinator[T]) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stop()
}

// Wait blocks until every issued fetch has returned.
func (c *Coordinator[T]) Wait() {
	c.inflight.Wait()
}

// Subject returns the subject being polled, empty when stopped.
func (c *Coordinator[T]) Subject() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subject
}

// Interval returns the armed tick interval, zero when stopped.
func (c *Coordinator[T]) Interval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval
}

func (c *Coordinator[T]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// issue bumps the generation and launches a cycle tagged with it.
// Caller holds c.mu.
func (c *Coordinator[T]) issue() Token {
	c.gen++
	c.stats.Issued++
	tok, subject := c.gen, c.subject
	c.inflight.Add(1)
	go c.cycle(tok, subject)
	return tok
}

func (c *Coordinator[T]) cycle(tok Token, subject string) {
	defer c.inflight.Done()

	result, err := c.fetch(c.ctx, subject)

	c.mu.Lock()
	defer c.mu.Unlock()

	if tok != c.gen {
		c.stats.Discarded++
		logger.Debug("Discarded stale result for %s (token %d, current %d)", subject, tok, c.gen)
		return
	}
	c.stats.Applied++

	d := c.handle(subject, result, err)
	if d.Stop {
		logger.Debug("Polling of %s stopped by handler", subject)
		c.stop()
		return
	}
	// Re-arming at the interval already in effect would reset the tick phase.
	if d.Interval > 0 && d.Interval != c.interval && c.ticker != nil {
		logger.Debug("Re-arming %s poll: %v -> %v", subject, c.interval, d.Interval)
		c.arm(d.Interval)
	}
}

// stop bumps the generation rather than resetting it, keeping tokens unique
// for the lifetime of the coordinator. Caller holds c.mu.
func (c *Coordinator[T]) stop() {
	c.gen++
	c.subject = ""
	c.disarm()
}

// arm replaces any running ticker. Caller holds c.mu.
func (c *Coordinator[T]) arm(d time.Duration) {
	c.disarm()
	t := c.clock.NewTicker(d)
	done := make(chan struct{})
	c.ticker, c.tickDone, c.interval = t, done, d
	go c.loop(t, done)
}

// disarm stops the ticker. Caller holds c.mu.
func (c *Coordinator[T]) disarm() {
	if c.ticker == nil {
		return
	}
	c.ticker.Stop()
	close(c.tickDone)
	c.ticker, c.tickDone, c.interval = nil, nil, 0
}

func (c *Coordinator[T]) loop(t Ticker, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-c.ctx.Done():
			return
		case <-t.C():
			c.mu.Lock()
			select {
			case <-done:
				// Re-armed or stopped while this tick was pending.
				c.mu.Unlock()
				return
			default:
			}
			c.issue()
			c.mu.Unlock()
		}
	}
}
