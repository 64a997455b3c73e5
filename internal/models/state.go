package models

import (
	"errors"
	"time"
)

// HypeLevel is the discrete band of the drama meter.
type HypeLevel string

const (
	LevelCalm   HypeLevel = "calm"
	LevelWarm   HypeLevel = "warm"
	LevelHot    HypeLevel = "hot"
	LevelInsane HypeLevel = "insane"
)

// Rank orders levels calm < warm < hot < insane.
func (l HypeLevel) Rank() int {
	switch l {
	case LevelCalm:
		return 0
	case LevelWarm:
		return 1
	case LevelHot:
		return 2
	case LevelInsane:
		return 3
	}
	return -1
}

// HypeState is what the drama meter renders.
type HypeState struct {
	Value   float64   `json:"value"`
	Level   HypeLevel `json:"level"`
	IsLive  bool      `json:"is_live"`
	HasData bool      `json:"has_data"`
	Tag     string    `json:"tag"`
	Subtext string    `json:"subtext"`
}

// HypeCheckpoint is the persisted meter state. LastPulse is device-wide and
// outlives a game switch.
type HypeCheckpoint struct {
	GameID    string    `json:"game_id"`
	PrevLevel HypeLevel `json:"prev_level"`
	LastPulse time.Time `json:"last_pulse"`
}

// Moment is one entry in the highlight feed.
type Moment struct {
	ID           string    `json:"id"`
	GameID       string    `json:"game_id"`
	AtBat        int       `json:"at_bat"`
	Timestamp    time.Time `json:"timestamp"`
	Level        HypeLevel `json:"level"`
	Headline     string    `json:"headline"`
	Subtext      string    `json:"subtext"`
	RevealDetail string    `json:"reveal_detail"`
	Revealed     bool      `json:"revealed"`
}

// MomentFeed is the persisted, newest-first moment list of one game along
// with the last at-bat the detector measured swings from.
type MomentFeed struct {
	GameID          string   `json:"game_id"`
	Moments         []Moment `json:"moments"`
	LastSeq         *int     `json:"last_seq,omitempty"`
	LastHomeWinProb *float64 `json:"last_home_win_prob,omitempty"`
}

// Outcome is the graded result of a decided prediction.
type Outcome string

const (
	OutcomeHit  Outcome = "hit"
	OutcomeMiss Outcome = "miss"
)

// OnePlayState is the single prediction a user holds for one calendar day.
type OnePlayState struct {
	Date                  string     `json:"date"`
	GameID                string     `json:"game_id"`
	Options               []Category `json:"options"`
	Choice                Category   `json:"choice"`
	BaselineSequence      int        `json:"baseline_sequence"`
	Decided               bool       `json:"decided"`
	ActualCategory        Category   `json:"actual_category,omitempty"`
	Outcome               Outcome    `json:"outcome,omitempty"`
	Badge                 string     `json:"badge,omitempty"`
	SkippedCount          int        `json:"skipped_count"`
	LastNoContestCategory Category   `json:"last_no_contest_category,omitempty"`
	CommittedAt           time.Time  `json:"committed_at"`
	DecidedAt             *time.Time `json:"decided_at,omitempty"`
}

// HasOption reports whether c is one of the offered options.
func (s *OnePlayState) HasOption(c Category) bool {
	for _, o := range s.Options {
		if o == c {
			return true
		}
	}
	return false
}

// Validate checks the structural invariants of a prediction record.
func (s *OnePlayState) Validate() error {
	if s.Date == "" {
		return errors.New("date must not be empty")
	}
	if s.GameID == "" {
		return errors.New("game ID must not be empty")
	}
	if len(s.Options) != 4 {
		return errors.New("options must contain exactly 4 categories")
	}
	seen := make(map[Category]bool, len(s.Options))
	for _, o := range s.Options {
		if seen[o] {
			return errors.New("options must be distinct")
		}
		seen[o] = true
	}
	if !seen[s.Choice] {
		return errors.New("choice must be one of the options")
	}
	if s.SkippedCount < 0 {
		return errors.New("skipped count must not be negative")
	}
	if s.Decided && s.Outcome != OutcomeHit && s.Outcome != OutcomeMiss {
		return errors.New("decided prediction must have an outcome")
	}
	return nil
}
