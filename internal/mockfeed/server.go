package mockfeed

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/logger"
)

// Game is one scheduled mock game.
type Game struct {
	ID    string
	Home  string
	Away  string
	Delay int // windows between server start and first pitch
}

// DefaultGames is the slate served when none is configured.
var DefaultGames = []Game{
	{ID: "900001", Home: "Los Angeles Dodgers", Away: "San Diego Padres", Delay: 1},
	{ID: "900002", Home: "New York Yankees", Away: "Boston Red Sox", Delay: 3},
	{ID: "900003", Home: "Seattle Mariners", Away: "Houston Astros", Delay: 6},
}

// Server advances every game by one plate appearance per window.
type Server struct {
	date   string
	window time.Duration
	start  time.Time
	now    func() time.Time
	games  []Game

	mu        sync.Mutex
	timelines map[string][]PlateAppearance
}

func NewServer(date string, window time.Duration, games []Game) *Server {
	if window <= 0 {
		window = 15 * time.Second
	}
	if len(games) == 0 {
		games = DefaultGames
	}
	return &Server{
		date:      date,
		window:    window,
		start:     time.Now(),
		now:       time.Now,
		games:     games,
		timelines: make(map[string][]PlateAppearance),
	}
}

func (s *Server) game(id string) (Game, bool) {
	for _, g := range s.games {
		if g.ID == id {
			return g, true
		}
	}
	return Game{}, false
}

// Timeline returns the full simulated game, seeded from date and game ID.
func (s *Server) Timeline(gameID string) []PlateAppearance {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.timelines[gameID]
	if !ok {
		t = Simulate(s.date + ":" + gameID + ":mock")
		s.timelines[gameID] = t
	}
	return t
}

// progress is the number of completed plate appearances, negative before
// first pitch.
func (s *Server) progress(g Game) int {
	windows := int(s.now().Sub(s.start) / s.window)
	return windows - g.Delay
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/api/v1/schedule", s.handleSchedule)
	r.Get("/api/v1/game/{gamePk}/winProbability", s.handleWinProbability)
	r.Get("/api/v1.1/game/{gamePk}/feed/live", s.handleLiveFeed)
	return r
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = s.date
	}
	doc := scheduleDoc{Dates: []scheduleDate{}}
	if date == s.date {
		day := scheduleDate{Date: s.date}
		for _, g := range s.games {
			day.Games = append(day.Games, s.scheduleGame(g))
		}
		doc.Dates = append(doc.Dates, day)
	}
	writeJSON(w, doc)
}

func (s *Server) handleLiveFeed(w http.ResponseWriter, r *http.Request) {
	g, ok := s.game(chi.URLParam(r, "gamePk"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, s.liveFeed(g))
}

func (s *Server) handleWinProbability(w http.ResponseWriter, r *http.Request) {
	g, ok := s.game(chi.URLParam(r, "gamePk"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, s.winProbability(g))
}

func (s *Server) status(g Game) statusDoc {
	n := s.progress(g)
	switch {
	case n < 0:
		return statusDoc{AbstractGameState: "Preview", StatusCode: "S", DetailedState: "Scheduled"}
	case n >= len(s.Timeline(g.ID)):
		return statusDoc{AbstractGameState: "Final", StatusCode: "F", DetailedState: "Final"}
	}
	return statusDoc{AbstractGameState: "Live", StatusCode: "I", DetailedState: "In Progress"}
}

func (s *Server) scheduleGame(g Game) scheduleGame {
	pk, _ := strconv.Atoi(g.ID)
	sg := scheduleGame{
		GamePk:   pk,
		GameDate: s.start.Add(time.Duration(g.Delay) * s.window).UTC().Format(time.RFC3339),
		Status:   s.status(g),
	}
	sg.Teams.Home.Team = teamDoc{Name: g.Home}
	sg.Teams.Away.Team = teamDoc{Name: g.Away}
	return sg
}

// completed returns the plate appearances finished so far.
func (s *Server) completed(g Game) []PlateAppearance {
	t := s.Timeline(g.ID)
	n := s.progress(g)
	if n < 0 {
		return nil
	}
	if n > len(t) {
		n = len(t)
	}
	return t[:n]
}

func (s *Server) liveFeed(g Game) liveFeedDoc {
	pk, _ := strconv.Atoi(g.ID)
	doc := liveFeedDoc{GamePk: pk}
	doc.GameData.Status = s.status(g)
	doc.GameData.Teams.Home = teamDoc{Name: g.Home}
	doc.GameData.Teams.Away = teamDoc{Name: g.Away}
	doc.LiveData.Plays.AllPlays = []playDoc{}

	t := s.Timeline(g.ID)
	done := s.completed(g)
	for _, pa := range done {
		doc.LiveData.Plays.AllPlays = append(doc.LiveData.Plays.AllPlays, completedPlay(pa))
	}

	ls := &doc.LiveData.Linescore
	if len(done) > 0 {
		last := done[len(done)-1]
		ls.Teams.Home.Runs = intPtr(last.HomeRuns)
		ls.Teams.Away.Runs = intPtr(last.AwayRuns)
		ls.CurrentInning, ls.InningState = intPtr(last.Inning), inningState(last.Top)
	} else if s.progress(g) >= 0 {
		ls.Teams.Home.Runs, ls.Teams.Away.Runs = intPtr(0), intPtr(0)
	}
	// The at-bat in progress is listed without a result.
	if n := len(done); s.progress(g) >= 0 && n < len(t) {
		cur := t[n]
		p := playDoc{}
		p.About.AtBatIndex = cur.AtBatIndex
		p.About.HalfInning = halfName(cur.Top)
		p.About.Inning = cur.Inning
		doc.LiveData.Plays.AllPlays = append(doc.LiveData.Plays.AllPlays, p)
		ls.CurrentInning, ls.InningState = intPtr(cur.Inning), inningState(cur.Top)
	}
	return doc
}

func completedPlay(pa PlateAppearance) playDoc {
	p := playDoc{}
	p.Result.EventType = pa.EventType
	p.Result.Event = pa.Event
	p.Result.Description = pa.Description
	p.Result.IsOut = pa.IsOut
	p.Result.HomeScore, p.Result.AwayScore = pa.HomeRuns, pa.AwayRuns
	p.About.AtBatIndex = pa.AtBatIndex
	p.About.HalfInning = halfName(pa.Top)
	p.About.Inning = pa.Inning
	p.About.IsComplete = true
	p.About.IsScoringPlay = pa.Scoring
	for _, ev := range pa.SubEvents {
		var pe playEventDoc
		pe.Details.EventType = ev
		p.PlayEvents = append(p.PlayEvents, pe)
	}
	return p
}

func (s *Server) winProbability(g Game) []wpDoc {
	done := s.completed(g)
	out := make([]wpDoc, 0, len(done))
	for _, pa := range done {
		d := wpDoc{
			HomeTeamWinProbability: pa.HomeWinProb,
			AwayTeamWinProbability: 100 - pa.HomeWinProb,
			DramaIndex:             pa.DramaIndex,
			LeverageIndex:          pa.Leverage,
			AtBatIndex:             pa.AtBatIndex,
		}
		d.About.AtBatIndex = pa.AtBatIndex
		d.About.Inning = pa.Inning
		d.About.HalfInning = halfName(pa.Top)
		d.Result.Description = pa.Description
		out = append(out, d)
	}
	return out
}

func halfName(top bool) string {
	if top {
		return "top"
	}
	return "bottom"
}

// inningState is the linescore form of the half.
func inningState(top bool) string {
	if top {
		return "Top"
	}
	return "Bottom"
}

func intPtr(v int) *int { return &v }

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("mock: failed to encode response: %v", err)
	}
}
