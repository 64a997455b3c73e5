// Package moments turns win-probability spikes of the selected game into a
// short, persisted, newest-first highlight feed.
package moments

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/logger"
	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/models"
	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/storage"
	"golang.org/x/time/rate"
)

// RecordKey is the storage key of the moment feed.
const RecordKey = "moments"

var ErrNotFound = errors.New("moment not found")

type Config struct {
	Cooldown          time.Duration
	MaxMoments        int
	WPDeltaThreshold  float64
	DramaThreshold    float64
	LeverageThreshold float64
}

func DefaultConfig() Config {
	return Config{
		Cooldown:          20 * time.Second,
		MaxMoments:        25,
		WPDeltaThreshold:  6,
		DramaThreshold:    120,
		LeverageThreshold: 2.8,
	}
}

// Observation is one live reading handed to the detector.
type Observation struct {
	Sample      *models.WinProbabilitySample
	Level       models.HypeLevel
	Inning      *int
	InningState string
}

type Detector struct {
	mu      sync.Mutex
	store   storage.Records
	config  Config
	limiter *rate.Limiter
	now     func() time.Time

	gameID   string
	feed     []models.Moment
	lastSeq  int
	hasSeq   bool
	prevHome *float64
}

// New creates a detector. Zero config fields fall back to DefaultConfig.
func New(s storage.Records, config Config) *Detector {
	def := DefaultConfig()
	if config.Cooldown <= 0 {
		config.Cooldown = def.Cooldown
	}
	if config.MaxMoments <= 0 {
		config.MaxMoments = def.MaxMoments
	}
	if config.WPDeltaThreshold <= 0 {
		config.WPDeltaThreshold = def.WPDeltaThreshold
	}
	if config.DramaThreshold <= 0 {
		config.DramaThreshold = def.DramaThreshold
	}
	if config.LeverageThreshold <= 0 {
		config.LeverageThreshold = def.LeverageThreshold
	}
	return &Detector{
		store:   s,
		config:  config,
		limiter: rate.NewLimiter(rate.Every(config.Cooldown), 1),
		now:     time.Now,
	}
}

// Load switches the detector to gameID and restores its persisted feed. A
// persisted feed belonging to another game is discarded.
func (d *Detector) Load(gameID string) []models.Moment {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gameID = gameID
	d.feed = nil
	d.hasSeq = false
	d.prevHome = nil
	d.limiter = rate.NewLimiter(rate.Every(d.config.Cooldown), 1)

	var stored models.MomentFeed
	found, err := d.store.GetRecord(RecordKey, &stored)
	switch {
	case err != nil:
		logger.Warn("Failed to load moments: %v", err)
	case !found:
	case stored.GameID != gameID:
		logger.Debug("Discarding %d moments of game %s", len(stored.Moments), stored.GameID)
		if err := d.store.DeleteRecord(RecordKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
			logger.Warn("Failed to discard stale moments: %v", err)
		}
	default:
		d.feed = stored.Moments
		d.prevHome = stored.LastHomeWinProb
		if stored.LastSeq != nil {
			d.lastSeq, d.hasSeq = *stored.LastSeq, true
		}
		if len(d.feed) > 0 {
			newest := d.feed[0]
			if !d.hasSeq {
				d.lastSeq, d.hasSeq = newest.AtBat, true
			}
			// The cooldown runs from the newest accepted moment.
			d.limiter.AllowN(newest.Timestamp, 1)
		}
		logger.Info("Loaded %d persisted moments for game %s", len(d.feed), gameID)
	}
	return d.snapshot()
}

// Observe processes one live sample. It returns the accepted moment, or
// false when the sample was a duplicate, not a spike, or within cooldown.
func (d *Detector) Observe(obs Observation) (models.Moment, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := obs.Sample
	if d.gameID == "" || s == nil || s.AtBatSequence == nil {
		return models.Moment{}, false
	}
	seq := *s.AtBatSequence
	if d.hasSeq && seq <= d.lastSeq {
		return models.Moment{}, false
	}
	d.lastSeq, d.hasSeq = seq, true

	swing := 0.0
	if s.HomeWinProb != nil {
		if d.prevHome != nil {
			swing = *s.HomeWinProb - *d.prevHome
		}
		home := *s.HomeWinProb
		d.prevHome = &home
	}

	// The swing baseline is persisted even when no moment is accepted.
	m, ok := d.accept(seq, swing, obs)
	d.persist()
	if ok {
		logger.Info("Moment at at-bat %d of game %s: %s", seq, d.gameID, m.Headline)
	}
	return m, ok
}

// accept prepends a moment for a spike outside the cooldown. Caller holds d.mu.
func (d *Detector) accept(seq int, swing float64, obs Observation) (models.Moment, bool) {
	s := obs.Sample
	if !d.isSpike(math.Abs(swing), s, obs.Level) {
		return models.Moment{}, false
	}
	now := d.now()
	if !d.limiter.AllowN(now, 1) {
		logger.Debug("Spike at at-bat %d of game %s suppressed by cooldown", seq, d.gameID)
		return models.Moment{}, false
	}

	m := models.Moment{
		ID:           MomentID(d.gameID, seq, now),
		GameID:       d.gameID,
		AtBat:        seq,
		Timestamp:    now,
		Level:        obs.Level,
		Headline:     Headline(swing, d.config.WPDeltaThreshold, s),
		Subtext:      subtext(obs),
		RevealDetail: revealDetail(s),
	}

	d.feed = append([]models.Moment{m}, d.feed...)
	if len(d.feed) > d.config.MaxMoments {
		d.feed = d.feed[:d.config.MaxMoments]
	}
	return m, true
}

func (d *Detector) isSpike(delta float64, s *models.WinProbabilitySample, level models.HypeLevel) bool {
	switch {
	case delta >= d.config.WPDeltaThreshold:
		return true
	case s.DramaIndex != nil && *s.DramaIndex >= d.config.DramaThreshold:
		return true
	case s.LeverageIndex != nil && *s.LeverageIndex >= d.config.LeverageThreshold:
		return true
	}
	return level == models.LevelInsane
}

// Reveal toggles the revealed flag of a moment.
func (d *Detector) Reveal(id string) (models.Moment, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := range d.feed {
		if d.feed[i].ID != id {
			continue
		}
		d.feed[i].Revealed = !d.feed[i].Revealed
		m := d.feed[i]
		d.persist()
		return m, nil
	}
	return models.Moment{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Moments returns the feed, newest first.
func (d *Detector) Moments() []models.Moment {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshot()
}

// GameID returns the game the detector is tracking.
func (d *Detector) GameID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gameID
}

func (d *Detector) snapshot() []models.Moment {
	return append([]models.Moment{}, d.feed...)
}

// persist writes the whole feed with its swing baseline and reads it back.
// On failure the in-memory feed stays authoritative for the session. Caller
// holds d.mu.
func (d *Detector) persist() {
	record := models.MomentFeed{GameID: d.gameID, Moments: d.feed, LastHomeWinProb: d.prevHome}
	if d.hasSeq {
		seq := d.lastSeq
		record.LastSeq = &seq
	}
	if err := d.store.PutRecord(RecordKey, record); err != nil {
		logger.Warn("Failed to persist moments: %v", err)
		return
	}
	var readBack models.MomentFeed
	found, err := d.store.GetRecord(RecordKey, &readBack)
	if err != nil || !found || readBack.GameID != d.gameID {
		logger.Warn("Failed to read back moments (found=%v): %v", found, err)
		return
	}
	d.feed = readBack.Moments
}

// MomentID is stable for a game, at-bat and acceptance time.
func MomentID(gameID string, atBat int, ts time.Time) string {
	name := fmt.Sprintf("%s:%d:%d", gameID, atBat, ts.UnixMilli())
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}
