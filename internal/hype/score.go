// Package hype turns win-probability samples into a 0-100 drama score, a
// discrete level and the text shown next to the meter. The Engine also
// decides when a level promotion earns a haptic pulse.
package hype

import (
	"fmt"
	"math"
	"strings"

	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/models"
)

// Leverage is clamped to maxLeverage, then divided by leverageSpan, so
// anything above leverageSpan saturates the leverage score.
const (
	maxDrama     = 320.0
	maxLeverage  = 6.0
	leverageSpan = 4.0

	dramaWeight    = 0.7
	leverageWeight = 0.3
)

// Display strings.
const (
	TagLive     = "LIVE"
	TagFinal    = "FINAL"
	TextWaiting = "Updates during the game."
	TextNoData  = "No win-probability data yet."
)

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Score combines the drama and leverage indices of s. It reports false when
// neither index is present.
func Score(s *models.WinProbabilitySample) (float64, bool) {
	if s == nil {
		return 0, false
	}
	var d, l float64
	hasD, hasL := s.DramaIndex != nil, s.LeverageIndex != nil
	if hasD {
		d = math.Sqrt(clamp(*s.DramaIndex, 0, maxDrama)/maxDrama) * 100
	}
	if hasL {
		l = clamp(clamp(*s.LeverageIndex, 0, maxLeverage)/leverageSpan, 0, 1) * 100
	}
	switch {
	case hasD && hasL:
		return dramaWeight*d + leverageWeight*l, true
	case hasD:
		return d, true
	case hasL:
		return l, true
	}
	return 0, false
}

// LevelOf buckets a score.
func LevelOf(v float64) models.HypeLevel {
	switch {
	case v >= 75:
		return models.LevelInsane
	case v >= 50:
		return models.LevelHot
	case v >= 25:
		return models.LevelWarm
	}
	return models.LevelCalm
}

// Narrative is the one-line caption for a level.
func Narrative(l models.HypeLevel) string {
	switch l {
	case models.LevelInsane:
		return "Absolute chaos. Do not look away."
	case models.LevelHot:
		return "Things are heating up."
	case models.LevelWarm:
		return "Something is brewing."
	default:
		return "Quiet stretch."
	}
}

// Input is everything rendering needs from one poll cycle.
type Input struct {
	Phase       models.GamePhase
	Inning      *int
	InningState string
	Sample      *models.WinProbabilitySample
}

// Neutral is the state shown when a cycle produced nothing usable.
func Neutral() models.HypeState {
	return models.HypeState{Level: models.LevelCalm}
}

// Render derives the meter state from one cycle. It has no side effects.
func Render(in Input) models.HypeState {
	live := in.Phase == models.PhaseLive
	final := in.Phase == models.PhaseFinal

	st := models.HypeState{Level: models.LevelCalm, IsLive: live}
	switch {
	case final:
		st.Tag = TagFinal
	case live:
		st.Tag = TagLive
	}

	inningText := inningLine(in)
	if !live && !final {
		st.IsLive = false
		st.Subtext = joinNonEmpty(inningText, TextWaiting)
		return st
	}

	wpText := winProbLine(in.Sample)
	v, ok := Score(in.Sample)
	if !ok {
		if wpText == "" {
			wpText = TextNoData
		}
		st.Subtext = joinNonEmpty(inningText, wpText)
		return st
	}

	st.Value = clamp(v, 0, 100)
	st.Level = LevelOf(st.Value)
	st.HasData = true
	st.Subtext = joinNonEmpty(inningText, wpText)
	return st
}

func inningLine(in Input) string {
	inning := in.Inning
	var half models.HalfInning
	if in.Sample != nil {
		if inning == nil {
			inning = in.Sample.Inning
		}
		half = in.Sample.Half
	}
	if inning == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Inning %d", *inning)
	if in.InningState != "" {
		fmt.Fprintf(&b, " (%s)", in.InningState)
	}
	if half != "" {
		fmt.Fprintf(&b, " · %s", half)
	}
	return b.String()
}

func winProbLine(s *models.WinProbabilitySample) string {
	if s == nil || s.HomeWinProb == nil {
		return ""
	}
	home := math.Round(clamp(*s.HomeWinProb, 0, 100))
	if s.AwayWinProb == nil {
		return fmt.Sprintf("Win prob: Home %.0f%%", home)
	}
	away := math.Round(clamp(*s.AwayWinProb, 0, 100))
	return fmt.Sprintf("Win prob: Home %.0f%% · Away %.0f%%", home, away)
}

func joinNonEmpty(parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " · ")
}
