package models

import (
	"sort"
	"time"
)

// HalfInning is the side of the inning a sample belongs to.
type HalfInning string

const (
	HalfTop    HalfInning = "top"
	HalfBottom HalfInning = "bottom"
)

// WinProbabilitySample is one point of the upstream win-probability series.
// Every numeric field is optional; nil means the feed did not carry it.
type WinProbabilitySample struct {
	HomeWinProb   *float64   `json:"home_win_prob,omitempty"`
	AwayWinProb   *float64   `json:"away_win_prob,omitempty"`
	DramaIndex    *float64   `json:"drama_index,omitempty"`
	LeverageIndex *float64   `json:"leverage_index,omitempty"`
	Inning        *int       `json:"inning,omitempty"`
	Half          HalfInning `json:"half,omitempty"`
	AtBatSequence *int       `json:"at_bat_sequence,omitempty"`
	Description   string     `json:"description,omitempty"`
}

// HasSignal reports whether the sample carries any numeric field of interest.
func (s *WinProbabilitySample) HasSignal() bool {
	if s == nil {
		return false
	}
	return s.HomeWinProb != nil || s.AwayWinProb != nil || s.DramaIndex != nil || s.LeverageIndex != nil
}

// GamePhase is the coarse lifecycle state of a game.
type GamePhase string

const (
	PhaseUnknown GamePhase = ""
	PhasePreview GamePhase = "preview"
	PhaseLive    GamePhase = "live"
	PhaseFinal   GamePhase = "final"
)

// Play is one plate appearance from the live feed.
type Play struct {
	AtBatIndex  int      `json:"at_bat_index"`
	Complete    bool     `json:"complete"`
	EventType   string   `json:"event_type,omitempty"`
	Event       string   `json:"event,omitempty"`
	Description string   `json:"description,omitempty"`
	ScoringPlay bool     `json:"scoring_play"`
	IsOut       bool     `json:"is_out"`
	SubEvents   []string `json:"sub_events,omitempty"` // event types of nested pitch/action events
}

// LiveFeed is the parsed subset of the live game document the engines use.
type LiveFeed struct {
	GameID        string    `json:"game_id"`
	Phase         GamePhase `json:"phase"`
	StatusCode    string    `json:"status_code,omitempty"`
	DetailedState string    `json:"detailed_state,omitempty"`
	Inning        *int      `json:"inning,omitempty"`
	InningState   string    `json:"inning_state,omitempty"`
	HomeTeam      string    `json:"home_team,omitempty"`
	AwayTeam      string    `json:"away_team,omitempty"`
	HomeRuns      *int      `json:"home_runs,omitempty"`
	AwayRuns      *int      `json:"away_runs,omitempty"`
	Plays         []Play    `json:"plays,omitempty"` // ascending AtBatIndex
}

// IsLive reports whether the feed describes a game in progress.
func (f *LiveFeed) IsLive() bool {
	return f != nil && f.Phase == PhaseLive
}

// IsFinal reports whether the feed describes a finished game.
func (f *LiveFeed) IsFinal() bool {
	return f != nil && f.Phase == PhaseFinal
}

// SortPlays orders plays by at-bat index.
func (f *LiveFeed) SortPlays() {
	sort.SliceStable(f.Plays, func(i, j int) bool {
		return f.Plays[i].AtBatIndex < f.Plays[j].AtBatIndex
	})
}

// LastCompletedSequence returns the highest at-bat index marked complete,
// or -1 when no play has completed.
func (f *LiveFeed) LastCompletedSequence() int {
	last := -1
	if f == nil {
		return last
	}
	for _, p := range f.Plays {
		if p.Complete && p.AtBatIndex > last {
			last = p.AtBatIndex
		}
	}
	return last
}

// FirstCompletedAfter returns the earliest completed play whose index is
// strictly greater than seq.
func (f *LiveFeed) FirstCompletedAfter(seq int) (Play, bool) {
	if f == nil {
		return Play{}, false
	}
	var best Play
	found := false
	for _, p := range f.Plays {
		if !p.Complete || p.AtBatIndex <= seq {
			continue
		}
		if !found || p.AtBatIndex < best.AtBatIndex {
			best = p
			found = true
		}
	}
	return best, found
}

// GameSummary is one entry of the daily schedule.
type GameSummary struct {
	GameID        string    `json:"game_id"`
	Date          string    `json:"date"`
	StartTime     time.Time `json:"start_time"`
	HomeTeam      string    `json:"home_team"`
	AwayTeam      string    `json:"away_team"`
	StatusCode    string    `json:"status_code"`
	DetailedState string    `json:"detailed_state"`
}
