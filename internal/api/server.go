// Package api exposes the session over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/logger"
	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/models"
	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/moments"
	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/oneplay"
	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/session"
)

// Session is the part of the live session the API drives.
type Session interface {
	Status() session.Status
	SelectGame(gameID string)
	Moments() []models.Moment
	RevealMoment(id string) (models.Moment, error)
	OnePlay() *models.OnePlayState
	Options() []models.Category
	CommitChoice(c models.Category) (*models.OnePlayState, error)
	ForceOutcome(actual models.Category) (*models.OnePlayState, error)
	ResetOnePlay() error
}

type Server struct {
	sess      Session
	ws        http.Handler
	startTime time.Time
}

// NewServer builds the API. ws, when non-nil, is mounted at /ws.
func NewServer(sess Session, ws http.Handler) *Server {
	return &Server{sess: sess, ws: ws, startTime: time.Now()}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	if s.ws != nil {
		r.Handle("/ws", s.ws)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(10 * time.Second))
		r.Get("/state", s.handleState)
		r.Post("/game", s.handleSelectGame)
		r.Get("/moments", s.handleMoments)
		r.Post("/moments/{id}/reveal", s.handleReveal)
		r.Route("/oneplay", func(r chi.Router) {
			r.Get("/", s.handleOnePlay)
			r.Delete("/", s.handleResetOnePlay)
			r.Post("/commit", s.handleCommit)
			r.Post("/force", s.handleForce)
		})
	})
	return r
}

type healthResponse struct {
	Status string `json:"status"`
	GameID string `json:"game_id"`
	Uptime string `json:"uptime"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.sess.Status()
	status := "healthy"
	if st.Failures > 0 {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status: status,
		GameID: st.GameID,
		Uptime: time.Since(s.startTime).Round(time.Second).String(),
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.Status())
}

type selectGameRequest struct {
	GameID string `json:"game_id"`
}

func (s *Server) handleSelectGame(w http.ResponseWriter, r *http.Request) {
	var req selectGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GameID == "" {
		writeError(w, r, http.StatusBadRequest, "bad_request", "game_id is required")
		return
	}
	s.sess.SelectGame(req.GameID)
	writeJSON(w, http.StatusAccepted, s.sess.Status())
}

func (s *Server) handleMoments(w http.ResponseWriter, r *http.Request) {
	ms := s.sess.Moments()
	if ms == nil {
		ms = []models.Moment{}
	}
	writeJSON(w, http.StatusOK, ms)
}

func (s *Server) handleReveal(w http.ResponseWriter, r *http.Request) {
	m, err := s.sess.RevealMoment(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// OptionView is one offered category with its display strings.
type OptionView struct {
	Category models.Category `json:"category"`
	Label    string          `json:"label"`
	Badge    string          `json:"badge"`
}

type onePlayResponse struct {
	Options    []OptionView         `json:"options"`
	Prediction *models.OnePlayState `json:"prediction"`
}

func (s *Server) onePlayView() onePlayResponse {
	opts := s.sess.Options()
	views := make([]OptionView, len(opts))
	for i, c := range opts {
		views[i] = OptionView{Category: c, Label: c.Label(), Badge: c.Badge()}
	}
	return onePlayResponse{Options: views, Prediction: s.sess.OnePlay()}
}

func (s *Server) handleOnePlay(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.onePlayView())
}

type categoryRequest struct {
	Category string `json:"category"`
}

func decodeCategory(r *http.Request) (models.Category, error) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", err
	}
	return models.ParseCategory(req.Category)
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	c, err := decodeCategory(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if _, err := s.sess.CommitChoice(c); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.onePlayView())
}

func (s *Server) handleForce(w http.ResponseWriter, r *http.Request) {
	c, err := decodeCategory(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if _, err := s.sess.ForceOutcome(c); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.onePlayView())
}

func (s *Server) handleResetOnePlay(w http.ResponseWriter, r *http.Request) {
	if err := s.sess.ResetOnePlay(); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// statusOf maps domain errors onto HTTP statuses.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, oneplay.ErrInvalidChoice):
		return http.StatusBadRequest, "invalid_choice"
	case errors.Is(err, moments.ErrNotFound), errors.Is(err, oneplay.ErrNoPrediction):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, oneplay.ErrAlreadyCommitted),
		errors.Is(err, oneplay.ErrNotLive),
		errors.Is(err, oneplay.ErrDecided):
		return http.StatusConflict, "conflict"
	case errors.Is(err, oneplay.ErrDebugDisabled):
		return http.StatusForbidden, "forbidden"
	}
	return http.StatusInternalServerError, "internal"
}

func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := statusOf(err)
	if status == http.StatusInternalServerError {
		logger.Error("%s %s failed: %v", r.Method, r.URL.Path, err)
	}
	writeError(w, r, status, kind, err.Error())
}

func writeError(w http.ResponseWriter, r *http.Request, status int, kind, msg string) {
	writeJSON(w, status, ErrorResponse{
		Type:      kind,
		Message:   msg,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response: %v", err)
	}
}
