package mlb

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/models"
)

// decodeLenient unmarshals data into v, tolerating fields whose JSON type
// does not match: those are left at their zero value.
func decodeLenient(data []byte, v any) error {
	err := json.Unmarshal(data, v)
	var typeErr *json.UnmarshalTypeError
	if err != nil && !errors.As(err, &typeErr) {
		return err
	}
	return nil
}

// finalCodes are the status codes of a finished game.
var finalCodes = map[string]bool{"F": true, "FD": true, "FF": true, "FT": true, "FO": true}

// PhaseOf derives the game phase from the status triple.
func PhaseOf(abstract, statusCode, detailed string) models.GamePhase {
	if finalCodes[statusCode] {
		return models.PhaseFinal
	}
	if abstract == "Live" || statusCode == "I" || strings.Contains(strings.ToLower(detailed), "in progress") {
		return models.PhaseLive
	}
	if abstract == "" && statusCode == "" && detailed == "" {
		return models.PhaseUnknown
	}
	return models.PhasePreview
}

// ParseSchedule extracts the games of a schedule document.
func ParseSchedule(data []byte) ([]models.GameSummary, error) {
	var raw apiSchedule
	if err := decodeLenient(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode schedule: %w", err)
	}
	games := []models.GameSummary{}
	for _, d := range raw.Dates {
		for _, g := range d.Games {
			if g.GamePk.v == nil {
				continue
			}
			start, _ := time.Parse(time.RFC3339, g.GameDate)
			games = append(games, models.GameSummary{
				GameID:        strconv.Itoa(*g.GamePk.v),
				Date:          d.Date,
				StartTime:     start,
				HomeTeam:      g.Teams.Home.Team.Name,
				AwayTeam:      g.Teams.Away.Team.Name,
				StatusCode:    g.Status.StatusCode,
				DetailedState: g.Status.DetailedState,
			})
		}
	}
	return games, nil
}

// ParseLiveFeed extracts status, linescore and plays from a live feed
// document. Plays that cannot be read are skipped.
func ParseLiveFeed(data []byte) (*models.LiveFeed, error) {
	var raw apiLiveFeed
	if err := decodeLenient(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode live feed: %w", err)
	}

	st := raw.GameData.Status
	feed := &models.LiveFeed{
		Phase:         PhaseOf(st.AbstractGameState, st.StatusCode, st.DetailedState),
		StatusCode:    st.StatusCode,
		DetailedState: st.DetailedState,
		Inning:        raw.LiveData.Linescore.CurrentInning.v,
		InningState:   raw.LiveData.Linescore.InningState,
		HomeTeam:      raw.GameData.Teams.Home.Name,
		AwayTeam:      raw.GameData.Teams.Away.Name,
		HomeRuns:      raw.LiveData.Linescore.Teams.Home.Runs.v,
		AwayRuns:      raw.LiveData.Linescore.Teams.Away.Runs.v,
	}
	if raw.GamePk.v != nil {
		feed.GameID = strconv.Itoa(*raw.GamePk.v)
	}

	for _, msg := range raw.LiveData.Plays.AllPlays {
		var ap apiPlay
		if err := decodeLenient(msg, &ap); err != nil {
			continue
		}
		if ap.About.AtBatIndex.v == nil {
			continue
		}
		p := models.Play{
			AtBatIndex:  *ap.About.AtBatIndex.v,
			Complete:    bool(ap.About.IsComplete),
			EventType:   ap.Result.EventType,
			Event:       ap.Result.Event,
			Description: ap.Result.Description,
			ScoringPlay: bool(ap.About.IsScoringPlay),
			IsOut:       bool(ap.Result.IsOut),
		}
		for _, ev := range ap.PlayEvents {
			switch {
			case ev.Details.EventType != "":
				p.SubEvents = append(p.SubEvents, ev.Details.EventType)
			case ev.Details.Event != "":
				p.SubEvents = append(p.SubEvents, ev.Details.Event)
			}
		}
		feed.Plays = append(feed.Plays, p)
	}
	feed.SortPlays()

	return feed, nil
}

// ParseWinProbability converts the win probability series, in feed order.
// A document that is not an array yields an empty series.
func ParseWinProbability(data []byte) ([]models.WinProbabilitySample, error) {
	var rawList []json.RawMessage
	if err := json.Unmarshal(data, &rawList); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, fmt.Errorf("failed to decode win probability: %w", err)
		}
		return []models.WinProbabilitySample{}, nil
	}

	samples := make([]models.WinProbabilitySample, 0, len(rawList))
	for _, msg := range rawList {
		var raw apiWPSample
		if err := decodeLenient(msg, &raw); err != nil {
			samples = append(samples, models.WinProbabilitySample{})
			continue
		}
		s := models.WinProbabilitySample{
			HomeWinProb:   raw.HomeTeamWinProbability.v,
			AwayWinProb:   raw.AwayTeamWinProbability.v,
			DramaIndex:    raw.DramaIndex.v,
			LeverageIndex: raw.LeverageIndex.v,
			Inning:        raw.About.Inning.v,
			Half:          halfOf(raw.About.HalfInning),
			AtBatSequence: raw.AtBatIndex.v,
			Description:   raw.Result.Description,
		}
		if s.AtBatSequence == nil {
			s.AtBatSequence = raw.About.AtBatIndex.v
		}
		samples = append(samples, s)
	}
	return samples, nil
}

// LatestSample scans newest to oldest and returns the first sample carrying
// any numeric field of interest. Older samples are ignored.
func LatestSample(samples []models.WinProbabilitySample) *models.WinProbabilitySample {
	for i := len(samples) - 1; i >= 0; i-- {
		if samples[i].HasSignal() {
			s := samples[i]
			return &s
		}
	}
	return nil
}

func halfOf(s string) models.HalfInning {
	switch strings.ToLower(s) {
	case "top":
		return models.HalfTop
	case "bottom":
		return models.HalfBottom
	}
	return ""
}
