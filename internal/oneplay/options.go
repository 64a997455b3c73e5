package oneplay

import (
	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/models"
	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/prng"
)

// OptionCount is the number of categories offered per day.
const OptionCount = 4

// DefaultMaxDraws bounds the collision retries per pool.
const DefaultMaxDraws = 60

// BuildOptions returns the four categories offered for date and gameID: two
// from the frequent pool, two from the spicy pool, in a shuffled order. The
// result depends only on its arguments.
func BuildOptions(date, gameID string, maxDraws int) []models.Category {
	if maxDraws <= 0 {
		maxDraws = DefaultMaxDraws
	}
	r := prng.New(date + ":" + gameID + ":options")

	picked := make([]models.Category, 0, OptionCount)
	taken := make(map[models.Category]bool, OptionCount)
	take := func(c models.Category) {
		picked = append(picked, c)
		taken[c] = true
	}

	drawFrom := func(pool []models.Category, want int) {
		got := 0
		for draws := 0; got < want && draws < maxDraws; draws++ {
			c := pool[r.Intn(len(pool))]
			if taken[c] {
				continue
			}
			take(c)
			got++
		}
	}
	drawFrom(models.FrequentPool, 2)
	drawFrom(models.SpicyPool, 2)

	if len(picked) < OptionCount {
		union := make([]models.Category, 0, len(models.FrequentPool)+len(models.SpicyPool))
		union = append(union, models.FrequentPool...)
		union = append(union, models.SpicyPool...)
		start := r.Intn(len(union))
		for i := 0; i < len(union) && len(picked) < OptionCount; i++ {
			if c := union[(start+i)%len(union)]; !taken[c] {
				take(c)
			}
		}
	}

	for i := len(picked) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		picked[i], picked[j] = picked[j], picked[i]
	}
	return picked
}
