package mockfeed

import (
	"context"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/mlb"
	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/models"
	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/plays"
)

func TestSimulate(t *testing.T) {
	a := Simulate("2026-04-01:900001:mock")
	if !reflect.DeepEqual(a, Simulate("2026-04-01:900001:mock")) {
		t.Fatal("simulation is not reproducible")
	}
	if reflect.DeepEqual(a, Simulate("2026-04-01:900002:mock")) {
		t.Error("different games simulated identically")
	}
	if len(a) < 40 {
		t.Fatalf("game too short: %d plate appearances", len(a))
	}

	prevHome, prevAway := 0, 0
	for i, pa := range a {
		if pa.AtBatIndex != i {
			t.Fatalf("at-bat %d has index %d", i, pa.AtBatIndex)
		}
		if pa.HomeRuns < prevHome || pa.AwayRuns < prevAway {
			t.Fatalf("score went backwards at at-bat %d", i)
		}
		if pa.Scoring != (pa.HomeRuns+pa.AwayRuns > prevHome+prevAway) {
			t.Errorf("at-bat %d scoring flag disagrees with the score", i)
		}
		prevHome, prevAway = pa.HomeRuns, pa.AwayRuns
		if pa.HomeWinProb < 0 || pa.HomeWinProb > 100 || pa.Leverage < 0 || pa.Leverage > 6 {
			t.Errorf("at-bat %d out of range: %+v", i, pa)
		}
	}
}

func TestSimulate_EveryPlayClassifies(t *testing.T) {
	for _, game := range []string{"900001", "900002", "900003"} {
		for _, pa := range Simulate("2026-04-01:" + game + ":mock") {
			p := models.Play{
				AtBatIndex:  pa.AtBatIndex,
				Complete:    true,
				EventType:   pa.EventType,
				IsOut:       pa.IsOut,
				ScoringPlay: pa.Scoring,
				SubEvents:   pa.SubEvents,
			}
			if c := plays.Classify(p); c == models.CategoryUnknown {
				t.Errorf("%s at-bat %d (%s) classified as unknown", game, pa.AtBatIndex, pa.EventType)
			}
		}
	}
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func TestServer_GameProgresses(t *testing.T) {
	const window = 10 * time.Second
	start := time.Date(2026, 4, 1, 19, 0, 0, 0, time.UTC)
	clk := &testClock{t: start}

	s := NewServer("2026-04-01", window, nil)
	s.start, s.now = start, clk.now
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	client := mlb.NewClient(srv.URL+"/api/v1", srv.URL+"/api/v1.1", 5*time.Second, mlb.ClientConfig{MaxRetries: 1})
	ctx := context.Background()

	games, err := client.FetchSchedule(ctx, "2026-04-01")
	if err != nil || len(games) != len(DefaultGames) {
		t.Fatalf("schedule = %v, %v", games, err)
	}
	if games[0].GameID != "900001" || games[0].HomeTeam != "Los Angeles Dodgers" {
		t.Errorf("first game = %+v", games[0])
	}
	if other, _ := client.FetchSchedule(ctx, "2026-04-02"); len(other) != 0 {
		t.Errorf("other dates should be empty, got %d games", len(other))
	}

	feed, err := client.FetchLiveFeed(ctx, "900001")
	if err != nil || feed.Phase != models.PhasePreview {
		t.Fatalf("before first pitch: %+v, %v", feed, err)
	}

	// Delay 1 window, then 5 completed plate appearances.
	clk.set(start.Add(6 * window))
	feed, err = client.FetchLiveFeed(ctx, "900001")
	if err != nil || feed.Phase != models.PhaseLive {
		t.Fatalf("mid game: %+v, %v", feed, err)
	}
	if got := feed.LastCompletedSequence(); got != 4 {
		t.Errorf("last completed at-bat = %d, want 4", got)
	}
	if n := len(feed.Plays); n != 6 {
		t.Errorf("got %d plays, want 5 completed plus the current one", n)
	}
	if feed.HomeRuns == nil || feed.Inning == nil {
		t.Error("linescore missing")
	}
	samples, err := client.FetchWinProbability(ctx, "900001")
	if err != nil || len(samples) != 5 {
		t.Fatalf("win probability = %d samples, %v", len(samples), err)
	}
	if s := mlb.LatestSample(samples); s == nil || *s.AtBatSequence != 4 || s.DramaIndex == nil {
		t.Errorf("latest sample = %+v", s)
	}

	total := len(s.Timeline("900001"))
	clk.set(start.Add(time.Duration(total+1) * window))
	feed, err = client.FetchLiveFeed(ctx, "900001")
	if err != nil || feed.Phase != models.PhaseFinal || feed.LastCompletedSequence() != total-1 {
		t.Fatalf("after the last at-bat: phase %s, last %d, %v", feed.Phase, feed.LastCompletedSequence(), err)
	}

	if _, err := client.FetchLiveFeed(ctx, "123"); err == nil {
		t.Error("unknown game should 404")
	}
}
