package models

import (
	"testing"
	"time"
)

func validOnePlay() OnePlayState {
	return OnePlayState{
		Date:             "2026-04-01",
		GameID:           "745001",
		Options:          []Category{CategoryOut, CategoryHit, CategoryHomeRun, CategoryError},
		Choice:           CategoryHit,
		BaselineSequence: 12,
		CommittedAt:      time.Now(),
	}
}

func TestOnePlayStateValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *OnePlayState)
		wantErr bool
	}{
		{name: "valid pending prediction", mutate: func(s *OnePlayState) {}},
		{
			name: "valid decided prediction",
			mutate: func(s *OnePlayState) {
				s.Decided = true
				s.ActualCategory = CategoryHit
				s.Outcome = OutcomeHit
			},
		},
		{name: "empty date", mutate: func(s *OnePlayState) { s.Date = "" }, wantErr: true},
		{name: "empty game", mutate: func(s *OnePlayState) { s.GameID = "" }, wantErr: true},
		{name: "three options", mutate: func(s *OnePlayState) { s.Options = s.Options[:3] }, wantErr: true},
		{
			name:    "duplicate options",
			mutate:  func(s *OnePlayState) { s.Options[3] = CategoryOut },
			wantErr: true,
		},
		{name: "choice not offered", mutate: func(s *OnePlayState) { s.Choice = CategoryWalk }, wantErr: true},
		{name: "negative skips", mutate: func(s *OnePlayState) { s.SkippedCount = -1 }, wantErr: true},
		{name: "decided without outcome", mutate: func(s *OnePlayState) { s.Decided = true }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validOnePlay()
			tt.mutate(&s)
			err := s.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCategoryLabelsAndBadges(t *testing.T) {
	for _, c := range AllCategories {
		if c.Label() == "" || c.Label() == string(c) {
			t.Errorf("category %q has no display label", c)
		}
		if c.Pickable() != (c.Badge() != "") {
			t.Errorf("category %q: pickable=%v but badge=%q", c, c.Pickable(), c.Badge())
		}
	}
	for _, c := range append(append([]Category{}, FrequentPool...), SpicyPool...) {
		if !c.Pickable() {
			t.Errorf("pool category %q is not pickable", c)
		}
	}
	if _, err := ParseCategory("triple"); err == nil {
		t.Error("expected error for unknown category")
	}
	if c, err := ParseCategory("dp"); err != nil || c != CategoryDoublePlay {
		t.Errorf("ParseCategory(dp) = %q, %v", c, err)
	}
}

func TestHypeLevelRank(t *testing.T) {
	levels := []HypeLevel{LevelCalm, LevelWarm, LevelHot, LevelInsane}
	for i := 1; i < len(levels); i++ {
		if levels[i].Rank() <= levels[i-1].Rank() {
			t.Errorf("%s should outrank %s", levels[i], levels[i-1])
		}
	}
	if HypeLevel("bogus").Rank() != -1 {
		t.Error("unknown level should rank -1")
	}
}

func TestLiveFeedHelpers(t *testing.T) {
	var nilFeed *LiveFeed
	if nilFeed.IsLive() || nilFeed.IsFinal() || nilFeed.LastCompletedSequence() != -1 {
		t.Error("nil feed must be neither live nor final and have no completed plays")
	}

	f := &LiveFeed{Phase: PhaseLive, Plays: []Play{
		{AtBatIndex: 4, Complete: false},
		{AtBatIndex: 2, Complete: true},
		{AtBatIndex: 3, Complete: true},
	}}
	f.SortPlays()
	if f.Plays[0].AtBatIndex != 2 {
		t.Errorf("plays not sorted: %+v", f.Plays)
	}
	if got := f.LastCompletedSequence(); got != 3 {
		t.Errorf("LastCompletedSequence = %d, want 3", got)
	}
	if p, ok := f.FirstCompletedAfter(-1); !ok || p.AtBatIndex != 2 {
		t.Errorf("FirstCompletedAfter(-1) = %+v, %v", p, ok)
	}
	if _, ok := f.FirstCompletedAfter(3); ok {
		t.Error("no completed play after 3")
	}
}
