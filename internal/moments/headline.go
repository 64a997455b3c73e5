package moments

import (
	"fmt"
	"math"
	"strings"

	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/models"
)

// Headline describes a spike. A win-probability swing of at least threshold
// points is framed as a swing; anything else is framed by the drama index,
// then leverage, then the meter itself. swing is the signed change of the
// home side's probability.
func Headline(swing, threshold float64, s *models.WinProbabilitySample) string {
	if math.Abs(swing) >= threshold {
		verb := "jumps"
		if swing < 0 {
			verb = "drops"
		}
		return fmt.Sprintf("Home win probability %s %.0f pts", verb, math.Abs(swing))
	}
	switch {
	case s != nil && s.DramaIndex != nil:
		return fmt.Sprintf("Drama index hits %.0f", *s.DramaIndex)
	case s != nil && s.LeverageIndex != nil:
		return fmt.Sprintf("High-leverage spot (LI %.1f)", *s.LeverageIndex)
	}
	return "The meter just maxed out"
}

func subtext(obs Observation) string {
	var parts []string
	inning := obs.Inning
	if inning == nil && obs.Sample != nil {
		inning = obs.Sample.Inning
	}
	if inning != nil {
		line := fmt.Sprintf("Inning %d", *inning)
		if obs.InningState != "" {
			line += " (" + obs.InningState + ")"
		}
		parts = append(parts, line)
	}
	if s := obs.Sample; s != nil && s.HomeWinProb != nil {
		parts = append(parts, fmt.Sprintf("Home %.0f%%", math.Round(*s.HomeWinProb)))
	}
	return strings.Join(parts, " · ")
}

func revealDetail(s *models.WinProbabilitySample) string {
	if s != nil && s.Description != "" {
		return s.Description
	}
	return "No play description yet."
}
