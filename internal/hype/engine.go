package hype

import (
	"sync"
	"time"

	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/logger"
	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/models"
	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/storage"
	"golang.org/x/time/rate"
)

// Vibrator is the haptic capability of the device showing the meter.
type Vibrator interface {
	Vibrate(pattern []time.Duration) error
}

// Pattern is the vibration played when the meter climbs into l.
func Pattern(l models.HypeLevel) []time.Duration {
	ms := time.Millisecond
	switch l {
	case models.LevelWarm:
		return []time.Duration{40 * ms}
	case models.LevelHot:
		return []time.Duration{60 * ms, 40 * ms, 60 * ms}
	case models.LevelInsane:
		return []time.Duration{80 * ms, 40 * ms, 80 * ms, 40 * ms, 140 * ms}
	}
	return nil
}

type Config struct {
	HapticCooldown time.Duration
	ReducedMotion  bool
}

// Update is the result of one observation.
type Update struct {
	State     models.HypeState
	Narrative string
	// Bump is set when a live meter climbed to a higher level.
	Bump bool
	// Pulse holds the pattern that was played, nil when no pulse fired.
	Pulse []time.Duration
}

// RecordKey is the storage key of the meter checkpoint.
const RecordKey = "hype"

// Engine tracks the meter of the selected game.
type Engine struct {
	mu       sync.Mutex
	store    storage.Records
	vibrator Vibrator
	cooldown time.Duration
	limiter  *rate.Limiter
	reduced  bool
	now      func() time.Time

	gameID    string
	state     models.HypeState
	prevLevel models.HypeLevel
	lastPulse time.Time
}

// New creates an engine. A nil vibrator or ReducedMotion disables haptics.
func New(s storage.Records, cfg Config, vibrator Vibrator) *Engine {
	cooldown := cfg.HapticCooldown
	if cooldown <= 0 {
		cooldown = 25 * time.Second
	}
	return &Engine{
		store:    s,
		vibrator: vibrator,
		cooldown: cooldown,
		limiter:  rate.NewLimiter(rate.Every(cooldown), 1),
		reduced:  cfg.ReducedMotion,
		now:      time.Now,
		state:    Neutral(),
	}
}

// Load switches the engine to gameID and restores the persisted checkpoint.
// The level of another game is discarded but its last pulse still counts
// toward the haptic cooldown.
func (e *Engine) Load(gameID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.gameID = gameID
	e.state = Neutral()
	e.prevLevel = ""

	var cp models.HypeCheckpoint
	found, err := e.store.GetRecord(RecordKey, &cp)
	switch {
	case err != nil:
		logger.Warn("Failed to load hype checkpoint: %v", err)
	case !found:
	default:
		if cp.GameID == gameID {
			e.prevLevel = cp.PrevLevel
		} else {
			logger.Debug("Discarding hype level %q of game %s", cp.PrevLevel, cp.GameID)
		}
		if cp.LastPulse.After(e.lastPulse) {
			e.lastPulse = cp.LastPulse
		}
	}

	// The limiter holds a single token, so its state is fully described by
	// the last pulse.
	e.limiter = rate.NewLimiter(rate.Every(e.cooldown), 1)
	if !e.lastPulse.IsZero() {
		e.limiter.AllowN(e.lastPulse, 1)
	}
	if found && cp.GameID != gameID {
		e.persist()
	}
}

// Observe renders in, records the level and fires a pulse if the level was
// promoted while live and the haptic cooldown has elapsed.
func (e *Engine) Observe(in Input) Update {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := Render(in)
	u := Update{State: st, Narrative: Narrative(st.Level)}
	e.state = st
	if !st.HasData {
		return u
	}

	// The meter starts out calm.
	prev := e.prevLevel
	if prev == "" {
		prev = models.LevelCalm
	}
	changed := e.prevLevel != st.Level
	e.prevLevel = st.Level
	if st.IsLive && st.Level.Rank() > prev.Rank() {
		u.Bump = true
		u.Pulse = e.pulse(st.Level)
	}
	if changed || u.Pulse != nil {
		e.persist()
	}
	return u
}

// pulse plays the pattern of l unless haptics are off or cooling down.
// Caller holds e.mu.
func (e *Engine) pulse(l models.HypeLevel) []time.Duration {
	if e.vibrator == nil || e.reduced {
		return nil
	}
	now := e.now()
	if !e.limiter.AllowN(now, 1) {
		logger.Debug("Haptic pulse for %s suppressed, last pulse at %s", l, e.lastPulse.Format(time.RFC3339))
		return nil
	}
	pattern := Pattern(l)
	if err := e.vibrator.Vibrate(pattern); err != nil {
		logger.Warn("Failed to vibrate: %v", err)
		return nil
	}
	e.lastPulse = now
	return pattern
}

// Fail records a cycle that produced no data and returns the neutral state.
// The previous level is kept so the next real reading is compared against it.
func (e *Engine) Fail() models.HypeState {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = Neutral()
	return e.state
}

// persist writes the whole checkpoint and reads it back. On failure the
// in-memory state stays authoritative. Caller holds e.mu.
func (e *Engine) persist() {
	cp := models.HypeCheckpoint{GameID: e.gameID, PrevLevel: e.prevLevel, LastPulse: e.lastPulse}
	if err := e.store.PutRecord(RecordKey, cp); err != nil {
		logger.Warn("Failed to persist hype checkpoint: %v", err)
		return
	}
	var readBack models.HypeCheckpoint
	found, err := e.store.GetRecord(RecordKey, &readBack)
	if err != nil || !found || readBack.GameID != e.gameID {
		logger.Warn("Failed to read back hype checkpoint (found=%v): %v", found, err)
		return
	}
	e.prevLevel, e.lastPulse = readBack.PrevLevel, readBack.LastPulse
}

// State returns the last rendered state.
func (e *Engine) State() models.HypeState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}
