// Package models defines the core domain entities: play categories, win
// probability samples, live feeds, hype state, moments and one-play predictions.
package models

import "fmt"

// Category is the canonical outcome class of a single plate appearance.
type Category string

const (
	CategoryHomeRun    Category = "hr"
	CategoryStolenBase Category = "sb"
	CategoryStrikeout  Category = "k"
	CategoryWalk       Category = "bb"
	CategoryHit        Category = "hit"
	CategoryDoublePlay Category = "dp"
	CategoryError      Category = "error"
	CategorySacrifice  Category = "sac"
	CategoryRun        Category = "run"
	CategoryOut        Category = "out"
	CategoryUnknown    Category = "unknown"
)

// AllCategories lists every category in classification priority order.
var AllCategories = []Category{
	CategoryHomeRun,
	CategoryStolenBase,
	CategoryStrikeout,
	CategoryWalk,
	CategoryHit,
	CategoryDoublePlay,
	CategoryError,
	CategorySacrifice,
	CategoryRun,
	CategoryOut,
	CategoryUnknown,
}

// FrequentPool holds the categories that happen most plate appearances.
var FrequentPool = []Category{CategoryOut, CategoryHit, CategoryWalk, CategoryStrikeout, CategoryRun}

// SpicyPool holds the rare, high-payoff categories.
var SpicyPool = []Category{CategoryHomeRun, CategoryStolenBase, CategoryDoublePlay, CategoryError}

// ParseCategory validates a raw tag.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	for _, known := range AllCategories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Pickable reports whether a user can choose c as a prediction.
func (c Category) Pickable() bool {
	switch c {
	case CategoryOut, CategoryHit, CategoryWalk, CategoryStrikeout, CategoryRun,
		CategoryHomeRun, CategoryStolenBase, CategoryDoublePlay, CategoryError:
		return true
	case CategorySacrifice, CategoryUnknown:
		return false
	}
	return false
}

// Label is the short display name.
func (c Category) Label() string {
	switch c {
	case CategoryHomeRun:
		return "Home run"
	case CategoryStolenBase:
		return "Stolen base"
	case CategoryStrikeout:
		return "Strikeout"
	case CategoryWalk:
		return "Walk / HBP"
	case CategoryHit:
		return "Base hit"
	case CategoryDoublePlay:
		return "Double play"
	case CategoryError:
		return "Error"
	case CategorySacrifice:
		return "Sacrifice"
	case CategoryRun:
		return "Run scores"
	case CategoryOut:
		return "Out"
	case CategoryUnknown:
		return "Other"
	}
	return string(c)
}

// Badge is awarded for a correct prediction. Non-pickable categories have none.
func (c Category) Badge() string {
	switch c {
	case CategoryHomeRun:
		return "Moonshot Oracle"
	case CategoryStolenBase:
		return "Base Burglar"
	case CategoryStrikeout:
		return "K Whisperer"
	case CategoryWalk:
		return "Eye of the Zone"
	case CategoryHit:
		return "Contact Seer"
	case CategoryDoublePlay:
		return "Twin Killer"
	case CategoryError:
		return "Chaos Caller"
	case CategoryRun:
		return "Run Reader"
	case CategoryOut:
		return "Steady Hand"
	case CategorySacrifice, CategoryUnknown:
		return ""
	}
	return ""
}
