// Package plays maps raw plate appearances onto prediction categories.
package plays

import (
	"strings"

	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/models"
)

// rule is one classification predicate. Rules are evaluated in order and the
// first match wins, so a scoring single resolves to hit, not run.
type rule struct {
	category models.Category
	match    func(p models.Play, eventType string) bool
}

var rules = []rule{
	{models.CategoryHomeRun, func(_ models.Play, et string) bool {
		return et == "home_run"
	}},
	{models.CategoryStolenBase, func(p models.Play, et string) bool {
		if isStolenBase(et) {
			return true
		}
		for _, sub := range p.SubEvents {
			if isStolenBase(normalize(sub)) {
				return true
			}
		}
		return false
	}},
	{models.CategoryStrikeout, func(_ models.Play, et string) bool {
		return strings.HasPrefix(et, "strikeout") || et == "strike_out"
	}},
	{models.CategoryWalk, func(_ models.Play, et string) bool {
		return et == "walk" || et == "intent_walk" || et == "intentional_walk" || et == "hit_by_pitch"
	}},
	{models.CategoryHit, func(_ models.Play, et string) bool {
		return et == "single" || et == "double" || et == "triple"
	}},
	{models.CategoryDoublePlay, func(_ models.Play, et string) bool {
		return strings.Contains(et, "double_play") || strings.Contains(et, "triple_play")
	}},
	{models.CategoryError, func(_ models.Play, et string) bool {
		return et == "field_error" || et == "error" || strings.HasSuffix(et, "_error")
	}},
	{models.CategorySacrifice, func(_ models.Play, et string) bool {
		return strings.HasPrefix(et, "sac_")
	}},
	{models.CategoryRun, func(p models.Play, _ string) bool {
		return p.ScoringPlay
	}},
	{models.CategoryOut, func(p models.Play, _ string) bool {
		return p.IsOut
	}},
}

// Classify returns the most specific category a play satisfies, or
// CategoryUnknown when nothing matches.
func Classify(p models.Play) models.Category {
	et := normalize(p.EventType)
	if et == "" {
		et = normalize(p.Event)
	}
	for _, r := range rules {
		if r.match(p, et) {
			return r.category
		}
	}
	return models.CategoryUnknown
}

func isStolenBase(et string) bool {
	return strings.HasPrefix(et, "stolen_base")
}

// normalize lowercases and folds the display form ("Grounded Into DP",
// "Home Run") onto the snake_case event type vocabulary.
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	switch s {
	case "grounded_into_dp":
		return "grounded_into_double_play"
	case "strikeout_dp":
		return "strikeout_double_play"
	case "sac_fly_dp":
		return "sac_fly_double_play"
	}
	return s
}
