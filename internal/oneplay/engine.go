// Package oneplay runs the daily one-play prediction: the user picks what the
// next completed plate appearance will be, and the engine grades the pick
// against the live feed.
package oneplay

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/logger"
	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/models"
	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/plays"
	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/storage"
)

var (
	ErrNotLive          = errors.New("game is not live")
	ErrAlreadyCommitted = errors.New("a prediction was already made today")
	ErrInvalidChoice    = errors.New("choice is not one of today's options")
	ErrNoPrediction     = errors.New("no prediction today")
	ErrDecided          = errors.New("prediction already decided")
	ErrDebugDisabled    = errors.New("forced outcomes are disabled")
)

const dateLayout = "2006-01-02"

type Config struct {
	User     string
	MaxDraws int
	Debug    bool
}

// RecordKey is the storage key of a user's prediction for date.
func RecordKey(user, date string) string {
	return "oneplay:" + user + ":" + date
}

type Engine struct {
	mu     sync.Mutex
	store  storage.Records
	config Config
	now    func() time.Time

	gameID string
	date   string
	state  *models.OnePlayState
}

func New(s storage.Records, config Config) *Engine {
	if config.User == "" {
		config.User = "local"
	}
	return &Engine{store: s, config: config, now: time.Now}
}

// Load switches the engine to gameID and restores today's prediction. A
// persisted prediction for another game is discarded.
func (e *Engine) Load(gameID string) *models.OnePlayState {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.load(gameID, e.today())
	return e.snapshot()
}

func (e *Engine) today() string {
	return e.now().Format(dateLayout)
}

// load restores the record for (gameID, date). Caller holds e.mu.
func (e *Engine) load(gameID, date string) {
	e.gameID, e.date, e.state = gameID, date, nil

	key := RecordKey(e.config.User, date)
	var stored models.OnePlayState
	found, err := e.store.GetRecord(key, &stored)
	switch {
	case err != nil:
		logger.Warn("Failed to load prediction %s: %v", key, err)
	case !found:
	case stored.GameID != gameID:
		logger.Debug("Discarding prediction %s for game %s", key, stored.GameID)
		if err := e.store.DeleteRecord(key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			logger.Warn("Failed to discard prediction %s: %v", key, err)
		}
	default:
		if err := stored.Validate(); err != nil {
			logger.Warn("Ignoring invalid prediction %s: %v", key, err)
			return
		}
		e.state = &stored
	}
}

// rollover reloads when the calendar day changed. Caller holds e.mu.
func (e *Engine) rollover() {
	if today := e.today(); today != e.date {
		logger.Info("New day %s, loading fresh prediction", today)
		e.load(e.gameID, today)
	}
}

// Options returns today's four categories for the loaded game.
func (e *Engine) Options() []models.Category {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rollover()
	return BuildOptions(e.date, e.gameID, e.config.MaxDraws)
}

// State returns a copy of today's prediction, or nil.
func (e *Engine) State() *models.OnePlayState {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rollover()
	return e.snapshot()
}

// Pending reports whether a prediction is waiting for its play.
func (e *Engine) Pending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rollover()
	return e.state != nil && !e.state.Decided
}

// Commit records choice against the next play after the last completed one
// in feed.
func (e *Engine) Commit(choice models.Category, feed *models.LiveFeed) (*models.OnePlayState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rollover()

	if e.gameID == "" {
		return nil, ErrNotLive
	}
	if e.state != nil {
		return nil, ErrAlreadyCommitted
	}
	if !feed.IsLive() || feed.GameID != e.gameID {
		return nil, ErrNotLive
	}
	options := BuildOptions(e.date, e.gameID, e.config.MaxDraws)
	st := &models.OnePlayState{
		Date:             e.date,
		GameID:           e.gameID,
		Options:          options,
		Choice:           choice,
		BaselineSequence: feed.LastCompletedSequence(),
		CommittedAt:      e.now(),
	}
	if !st.HasOption(choice) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidChoice, choice)
	}

	e.state = st
	e.persist()
	logger.Info("Committed %s for game %s after at-bat %d", choice, e.gameID, st.BaselineSequence)
	return e.snapshot(), nil
}

// Observe grades a pending prediction against feed. Completed plays whose
// category was not offered are skipped as no-contests. It reports whether
// the prediction changed.
func (e *Engine) Observe(feed *models.LiveFeed) (*models.OnePlayState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rollover()

	if e.state == nil || e.state.Decided || feed == nil || feed.GameID != e.state.GameID {
		return e.snapshot(), false
	}

	changed := false
	for !e.state.Decided {
		p, ok := feed.FirstCompletedAfter(e.state.BaselineSequence)
		if !ok {
			break
		}
		e.apply(plays.Classify(p), p.AtBatIndex)
		changed = true
	}
	if changed {
		e.persist()
	}
	return e.snapshot(), changed
}

// ForceOutcome grades the pending prediction as if the next play were actual.
func (e *Engine) ForceOutcome(actual models.Category) (*models.OnePlayState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rollover()

	if !e.config.Debug {
		return nil, ErrDebugDisabled
	}
	if e.state == nil {
		return nil, ErrNoPrediction
	}
	if e.state.Decided {
		return nil, ErrDecided
	}
	e.apply(actual, e.state.BaselineSequence)
	e.persist()
	logger.Debug("Forced outcome %s for game %s", actual, e.gameID)
	return e.snapshot(), nil
}

// Reset deletes today's prediction.
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rollover()

	e.state = nil
	key := RecordKey(e.config.User, e.date)
	if err := e.store.DeleteRecord(key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		logger.Warn("Failed to delete prediction %s: %v", key, err)
		return fmt.Errorf("failed to delete prediction: %w", err)
	}
	return nil
}

// apply resolves one play of category actual at sequence seq.
// Caller holds e.mu.
func (e *Engine) apply(actual models.Category, seq int) {
	st := e.state
	if !st.HasOption(actual) {
		if seq > st.BaselineSequence {
			st.BaselineSequence = seq
		}
		st.SkippedCount++
		st.LastNoContestCategory = actual
		logger.Debug("No-contest %s at at-bat %d, waiting for the next play", actual, seq)
		return
	}

	now := e.now()
	st.Decided = true
	st.ActualCategory = actual
	st.DecidedAt = &now
	if actual == st.Choice {
		st.Outcome = models.OutcomeHit
		st.Badge = st.Choice.Badge()
	} else {
		st.Outcome = models.OutcomeMiss
	}
	logger.Info("Prediction %s for game %s decided: actual %s, %s", st.Choice, st.GameID, actual, st.Outcome)
}

// persist writes the whole record and reads it back. Caller holds e.mu.
func (e *Engine) persist() {
	key := RecordKey(e.config.User, e.state.Date)
	if err := e.store.PutRecord(key, e.state); err != nil {
		logger.Warn("Failed to persist prediction %s: %v", key, err)
		return
	}
	var readBack models.OnePlayState
	found, err := e.store.GetRecord(key, &readBack)
	if err != nil || !found {
		logger.Warn("Failed to read back prediction %s (found=%v): %v", key, found, err)
		return
	}
	e.state = &readBack
}

func (e *Engine) snapshot() *models.OnePlayState {
	if e.state == nil {
		return nil
	}
	cp := *e.state
	cp.Options = append([]models.Category(nil), e.state.Options...)
	if e.state.DecidedAt != nil {
		t := *e.state.DecidedAt
		cp.DecidedAt = &t
	}
	return &cp
}
