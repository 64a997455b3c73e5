// Package mockfeed simulates MLB games deterministically and serves them in
// the shape of the Stats API, so the client can run without the real feed.
package mockfeed

import (
	"fmt"
	"math"

	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/prng"
)

const (
	regulationInnings = 9
	maxInnings        = 12
)

// PlateAppearance is one simulated at-bat and the state after it.
type PlateAppearance struct {
	AtBatIndex  int
	Inning      int
	Top         bool
	EventType   string
	Event       string
	Description string
	IsOut       bool
	Scoring     bool
	SubEvents   []string
	HomeRuns    int
	AwayRuns    int
	HomeWinProb float64
	DramaIndex  float64
	Leverage    float64
}

type outcome struct {
	eventType string
	event     string
	verb      string
	weight    float64
}

var outcomes = []outcome{
	{"strikeout", "Strikeout", "strikes out swinging", 22},
	{"field_out", "Groundout", "grounds out to shortstop", 21},
	{"field_out", "Flyout", "flies out to center fielder", 19},
	{"single", "Single", "singles on a line drive to left field", 15},
	{"double", "Double", "doubles on a sharp ground ball down the line", 4.5},
	{"triple", "Triple", "triples on a fly ball to the gap", 0.5},
	{"home_run", "Home Run", "homers on a fly ball to deep right field", 3},
	{"walk", "Walk", "walks", 8},
	{"hit_by_pitch", "Hit By Pitch", "is hit by a pitch", 1},
	{"grounded_into_double_play", "Grounded Into DP", "grounds into a double play", 2.5},
	{"field_error", "Field Error", "reaches on a fielding error by the third baseman", 1.5},
	{"sac_fly", "Sac Fly", "hits a sacrifice fly to right field", 2},
}

var batters = [2][]string{
	{"Alvarez", "Brooks", "Castillo", "Dawson", "Ellis", "Foster", "Garcia", "Hayes", "Ibarra"},
	{"Jansen", "Kimura", "Lopez", "Morales", "Nakamura", "Ortiz", "Price", "Quinn", "Rivera"},
}

// Simulate plays out a whole game. The result depends only on seed.
func Simulate(seed string) []PlateAppearance {
	r := prng.New(seed)
	total := 0.0
	for _, o := range outcomes {
		total += o.weight
	}

	var (
		pas        []PlateAppearance
		runs       [2]int // away, home
		lineup     [2]int
		prevHomeWP = 50.0
	)
	for inning := 1; inning <= maxInnings; inning++ {
		for half := 0; half < 2; half++ {
			top := half == 0
			batting := 0
			if !top {
				batting = 1
			}
			// The home side does not bat in a half it cannot change.
			if !top && inning >= regulationInnings && runs[1] > runs[0] {
				break
			}

			outs := 0
			var bases [3]bool
			for outs < 3 {
				o := pick(r, total)
				// Double plays and sacrifice flies need a runner and fewer than two outs.
				if (o.eventType == "grounded_into_double_play" && (!bases[0] || outs == 2)) ||
					(o.eventType == "sac_fly" && (!bases[2] || outs == 2)) {
					o = outcomes[1]
				}

				pa := PlateAppearance{
					AtBatIndex: len(pas),
					Inning:     inning,
					Top:        top,
					EventType:  o.eventType,
					Event:      o.event,
				}
				name := batters[batting][lineup[batting]%len(batters[batting])]
				lineup[batting]++
				pa.Description = fmt.Sprintf("%s %s.", name, o.verb)

				if bases[0] && !bases[1] && outs < 2 && r.Float64() < 0.08 {
					pa.SubEvents = append(pa.SubEvents, "stolen_base_2b")
					bases[0], bases[1] = false, true
				}

				scored := 0
				switch o.eventType {
				case "strikeout", "field_out":
					outs++
					pa.IsOut = true
				case "grounded_into_double_play":
					outs += 2
					bases[0] = false
					pa.IsOut = true
				case "sac_fly":
					outs++
					pa.IsOut = true
					bases[2] = false
					scored = 1
				case "single", "field_error":
					scored = advance(&bases, 1)
				case "double":
					scored = advance(&bases, 2)
				case "triple":
					scored = advance(&bases, 3)
				case "home_run":
					scored = advance(&bases, 4)
				case "walk", "hit_by_pitch":
					scored = force(&bases)
				}
				if outs > 3 {
					outs = 3
				}
				runs[batting] += scored
				pa.Scoring = scored > 0
				pa.AwayRuns, pa.HomeRuns = runs[0], runs[1]

				progress := (float64(inning-1) + float64(half)*0.5 + float64(outs)/6) / regulationInnings
				pa.HomeWinProb = winProb(runs[1]-runs[0], progress)
				pa.Leverage = leverage(runs[1]-runs[0], progress, bases)
				swing := math.Abs(pa.HomeWinProb - prevHomeWP)
				pa.DramaIndex = math.Round((swing*9+pa.Leverage*18+r.Float64()*10)*10) / 10
				prevHomeWP = pa.HomeWinProb
				pas = append(pas, pa)

				// Walk-off.
				if !top && inning >= regulationInnings && runs[1] > runs[0] {
					break
				}
			}
		}
		if inning >= regulationInnings && runs[0] != runs[1] {
			break
		}
	}
	return pas
}

func pick(r *prng.Stream, total float64) outcome {
	x := r.Float64() * total
	for _, o := range outcomes {
		if x < o.weight {
			return o
		}
		x -= o.weight
	}
	return outcomes[len(outcomes)-1]
}

// advance moves every runner and the batter n bases and returns the runs
// scored.
func advance(bases *[3]bool, n int) int {
	scored := 0
	for i := 2; i >= 0; i-- {
		if !bases[i] {
			continue
		}
		bases[i] = false
		if i+n >= 3 {
			scored++
		} else {
			bases[i+n] = true
		}
	}
	if n >= 4 {
		return scored + 1
	}
	bases[n-1] = true
	return scored
}

// force puts the batter on first, pushing only forced runners.
func force(bases *[3]bool) int {
	scored := 0
	if bases[0] {
		if bases[1] {
			if bases[2] {
				scored = 1
			}
			bases[2] = true
		}
		bases[1] = true
	}
	bases[0] = true
	return scored
}

// winProb is the home win probability in percent for a run differential at
// a point of the game in [0, 1]. Leads matter more as the game goes on.
func winProb(diff int, progress float64) float64 {
	k := 0.35 + 1.1*progress
	p := 100 / (1 + math.Exp(-k*float64(diff)))
	return math.Round(p*10) / 10
}

func leverage(diff int, progress float64, bases [3]bool) float64 {
	onBase := 0
	for _, b := range bases {
		if b {
			onBase++
		}
	}
	li := (0.6 + 0.3*float64(onBase)) * (1 + 2.5*progress) * math.Exp(-0.55*math.Abs(float64(diff)))
	return math.Round(math.Min(li, 6)*100) / 100
}
