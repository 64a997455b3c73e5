// Package session owns the polling loop of the selected game and routes each
// applied result through the hype, moment and one-play engines.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/hype"
	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/logger"
	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/mlb"
	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/models"
	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/moments"
	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/oneplay"
	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/poller"
	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/storage"
	"golang.org/x/sync/errgroup"
)

// Event types handed to the Publisher.
const (
	EventHype    = "hype"
	EventMoment  = "moment"
	EventOnePlay = "oneplay"
	EventPulse   = "pulse"
)

// ErrNoGame is returned when no game is selected or scheduled.
var ErrNoGame = errors.New("no game selected")

// Feed is the upstream data source.
type Feed interface {
	FetchSchedule(ctx context.Context, date string) ([]models.GameSummary, error)
	FetchLiveFeed(ctx context.Context, gameID string) (*models.LiveFeed, error)
	FetchWinProbability(ctx context.Context, gameID string) ([]models.WinProbabilitySample, error)
}

// Publisher pushes state changes to connected clients.
type Publisher interface {
	Publish(eventType, gameID string, payload any)
}

// Alerter receives moments and feed health notifications.
type Alerter interface {
	SendMoment(m models.Moment) error
	SendError(err error) error
	SendRecovery(failures int) error
}

type Config struct {
	LiveInterval time.Duration
	IdleInterval time.Duration
	Hype         hype.Config
	Moments      moments.Config
	OnePlay      oneplay.Config
}

// Snapshot is the result of one fetch cycle.
type Snapshot struct {
	Feed    *models.LiveFeed
	Samples []models.WinProbabilitySample
}

// Status is the aggregate view served to clients.
type Status struct {
	GameID   string               `json:"game_id"`
	Phase    models.GamePhase     `json:"phase"`
	Home     string               `json:"home_team,omitempty"`
	Away     string               `json:"away_team,omitempty"`
	HomeRuns *int                 `json:"home_runs,omitempty"`
	AwayRuns *int                 `json:"away_runs,omitempty"`
	Hype     models.HypeState     `json:"hype"`
	OnePlay  *models.OnePlayState `json:"oneplay"`
	Options  []models.Category    `json:"options"`
	Interval time.Duration        `json:"interval"`
	Failures int                  `json:"consecutive_failures"`
}

type Session struct {
	config   Config
	feed     Feed
	hype     *hype.Engine
	moments  *moments.Detector
	oneplay  *oneplay.Engine
	poll     *poller.Coordinator[Snapshot]
	pub      Publisher
	alerter  Alerter
	pollOpts []poller.Option

	mu       sync.Mutex
	gameID   string
	lastFeed *models.LiveFeed
	failures int
	alerts   sync.WaitGroup
}

type Option func(*Session)

// WithPublisher enables push updates. Haptic pulses are delivered through
// the publisher, so without one haptics are disabled.
func WithPublisher(p Publisher) Option {
	return func(s *Session) { s.pub = p }
}

func WithAlerter(a Alerter) Option {
	return func(s *Session) { s.alerter = a }
}

// WithPollOptions forwards options to the poll coordinator.
func WithPollOptions(opts ...poller.Option) Option {
	return func(s *Session) { s.pollOpts = append(s.pollOpts, opts...) }
}

// New builds a session. Every fetch it issues is bounded by ctx.
func New(ctx context.Context, config Config, feed Feed, store storage.Records, opts ...Option) *Session {
	if config.LiveInterval <= 0 {
		config.LiveInterval = 30 * time.Second
	}
	if config.IdleInterval <= 0 {
		config.IdleInterval = 2 * time.Minute
	}
	s := &Session{
		config:  config,
		feed:    feed,
		moments: moments.New(store, config.Moments),
		oneplay: oneplay.New(store, config.OnePlay),
	}
	for _, opt := range opts {
		opt(s)
	}

	var vib hype.Vibrator
	if s.pub != nil {
		vib = pulseSink{s}
	}
	s.hype = hype.New(store, config.Hype, vib)
	s.poll = poller.New(ctx, s.fetch, s.handle, s.pollOpts...)
	return s
}

// SelectGame switches polling to gameID. In-flight results of the previous
// game are discarded before the engines reload.
func (s *Session) SelectGame(gameID string) {
	s.poll.Stop()

	s.mu.Lock()
	s.gameID = gameID
	s.lastFeed = nil
	s.mu.Unlock()

	s.hype.Load(gameID)
	restored := s.moments.Load(gameID)
	pred := s.oneplay.Load(gameID)
	logger.Info("Selected game %s (%d moments, prediction restored: %v)", gameID, len(restored), pred != nil)

	s.poll.Start(gameID, s.config.IdleInterval)
}

// PickGame returns preferred when it is on the schedule of date, otherwise
// the first scheduled game.
func (s *Session) PickGame(ctx context.Context, date, preferred string) (string, error) {
	games, err := s.feed.FetchSchedule(ctx, date)
	if err != nil {
		return "", fmt.Errorf("failed to fetch schedule: %w", err)
	}
	if len(games) == 0 {
		return "", fmt.Errorf("%w: no games on %s", ErrNoGame, date)
	}
	for _, g := range games {
		if preferred != "" && g.GameID == preferred {
			return g.GameID, nil
		}
	}
	if preferred != "" {
		logger.Warn("Game %s is not scheduled on %s, using %s", preferred, date, games[0].GameID)
	}
	return games[0].GameID, nil
}

// Stop halts polling. Pending alerts are flushed.
func (s *Session) Stop() {
	s.poll.Stop()
	s.poll.Wait()
	s.alerts.Wait()
}

func (s *Session) GameID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gameID
}

func (s *Session) Hype() models.HypeState { return s.hype.State() }

func (s *Session) Moments() []models.Moment { return s.moments.Moments() }

func (s *Session) OnePlay() *models.OnePlayState { return s.oneplay.State() }

func (s *Session) Options() []models.Category { return s.oneplay.Options() }

// Status aggregates the current view of the selected game.
func (s *Session) Status() Status {
	s.mu.Lock()
	st := Status{GameID: s.gameID, Phase: models.PhaseUnknown, Failures: s.failures}
	if f := s.lastFeed; f != nil {
		st.Phase = f.Phase
		st.Home, st.Away = f.HomeTeam, f.AwayTeam
		st.HomeRuns, st.AwayRuns = f.HomeRuns, f.AwayRuns
	}
	s.mu.Unlock()

	st.Hype = s.hype.State()
	st.OnePlay = s.oneplay.State()
	st.Options = s.oneplay.Options()
	st.Interval = s.poll.Interval()
	return st
}

// RevealMoment toggles the detail of a moment.
func (s *Session) RevealMoment(id string) (models.Moment, error) {
	m, err := s.moments.Reveal(id)
	if err != nil {
		return m, err
	}
	s.publish(EventMoment, m.GameID, m)
	return m, nil
}

// CommitChoice locks in choice against the latest live feed.
func (s *Session) CommitChoice(choice models.Category) (*models.OnePlayState, error) {
	s.mu.Lock()
	feed := s.lastFeed
	s.mu.Unlock()

	st, err := s.oneplay.Commit(choice, feed)
	if err != nil {
		return nil, err
	}
	s.publish(EventOnePlay, st.GameID, st)
	return st, nil
}

// ForceOutcome grades the pending prediction as if actual had happened.
func (s *Session) ForceOutcome(actual models.Category) (*models.OnePlayState, error) {
	st, err := s.oneplay.ForceOutcome(actual)
	if err != nil {
		return nil, err
	}
	s.publish(EventOnePlay, st.GameID, st)
	return st, nil
}

func (s *Session) ResetOnePlay() error {
	if err := s.oneplay.Reset(); err != nil {
		return err
	}
	s.publish(EventOnePlay, s.GameID(), (*models.OnePlayState)(nil))
	return nil
}

// fetch loads the live feed and the win-probability series concurrently. A
// failed win-probability fetch only drops the sample; without the feed the
// cycle fails.
func (s *Session) fetch(ctx context.Context, gameID string) (Snapshot, error) {
	var snap Snapshot
	var g errgroup.Group
	g.Go(func() error {
		feed, err := s.feed.FetchLiveFeed(ctx, gameID)
		if err != nil {
			return fmt.Errorf("failed to fetch live feed: %w", err)
		}
		if feed == nil {
			return fmt.Errorf("empty live feed for game %s", gameID)
		}
		snap.Feed = feed
		return nil
	})
	g.Go(func() error {
		samples, err := s.feed.FetchWinProbability(ctx, gameID)
		if err != nil {
			logger.Warn("Failed to fetch win probability for game %s: %v", gameID, err)
			return nil
		}
		snap.Samples = samples
		return nil
	})
	err := g.Wait()
	return snap, err
}

// handle applies one current cycle result. It runs under the poll
// coordinator's lock, so it must not call back into the coordinator.
func (s *Session) handle(gameID string, snap Snapshot, err error) poller.Directive {
	if err != nil {
		logger.Error("Poll of game %s failed: %v", gameID, err)
		s.recordFailure(err)
		s.publish(EventHype, gameID, HypePayload{State: s.hype.Fail()})
		return poller.Directive{}
	}
	s.recordSuccess()

	feed := snap.Feed
	sample := mlb.LatestSample(snap.Samples)
	up := s.hype.Observe(hype.Input{
		Phase:       feed.Phase,
		Inning:      feed.Inning,
		InningState: feed.InningState,
		Sample:      sample,
	})
	s.publish(EventHype, gameID, HypePayload{State: up.State, Narrative: up.Narrative, Bump: up.Bump})

	if feed.IsLive() {
		m, ok := s.moments.Observe(moments.Observation{
			Sample:      sample,
			Level:       up.State.Level,
			Inning:      feed.Inning,
			InningState: feed.InningState,
		})
		if ok {
			s.publish(EventMoment, gameID, m)
			s.alert(func(a Alerter) error { return a.SendMoment(m) })
		}
	}
	// The last at-bat of a game can only be graded from the final feed.
	if feed.IsLive() || feed.IsFinal() {
		if st, changed := s.oneplay.Observe(feed); changed {
			s.publish(EventOnePlay, gameID, st)
		}
	}

	s.mu.Lock()
	s.lastFeed = feed
	s.mu.Unlock()

	switch {
	case feed.IsFinal():
		logger.Info("Game %s is final, polling stopped", gameID)
		return poller.Directive{Stop: true}
	case feed.IsLive():
		return poller.Directive{Interval: s.config.LiveInterval}
	default:
		return poller.Directive{Interval: s.config.IdleInterval}
	}
}

// HypePayload is the hype event body.
type HypePayload struct {
	State     models.HypeState `json:"state"`
	Narrative string           `json:"narrative,omitempty"`
	Bump      bool             `json:"bump"`
}

func (s *Session) recordFailure(err error) {
	s.mu.Lock()
	s.failures++
	n := s.failures
	s.mu.Unlock()
	if n == 1 {
		s.alert(func(a Alerter) error { return a.SendError(err) })
	}
}

func (s *Session) recordSuccess() {
	s.mu.Lock()
	n := s.failures
	s.failures = 0
	s.mu.Unlock()
	if n > 0 {
		logger.Info("Feed recovered after %d failed polls", n)
		s.alert(func(a Alerter) error { return a.SendRecovery(n) })
	}
}

// alert delivers asynchronously so a slow chat API never holds up polling.
func (s *Session) alert(send func(Alerter) error) {
	if s.alerter == nil {
		return
	}
	s.alerts.Add(1)
	go func() {
		defer s.alerts.Done()
		if err := send(s.alerter); err != nil {
			logger.Warn("Failed to send alert: %v", err)
		}
	}()
}

func (s *Session) publish(eventType, gameID string, payload any) {
	if s.pub != nil {
		s.pub.Publish(eventType, gameID, payload)
	}
}

// pulseSink turns haptic patterns into pulse events for connected clients.
type pulseSink struct{ s *Session }

// PulsePayload is the pulse event body, in milliseconds.
type PulsePayload struct {
	Pattern []int64 `json:"pattern"`
}

func (p pulseSink) Vibrate(pattern []time.Duration) error {
	ms := make([]int64, len(pattern))
	for i, d := range pattern {
		ms[i] = d.Milliseconds()
	}
	p.s.publish(EventPulse, p.s.GameID(), PulsePayload{Pattern: ms})
	return nil
}
