// Package api provides HTTP API handlers for the highscore service
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/alexbotov/highscore/internal/domain"
	"github.com/alexbotov/highscore/internal/highscore"
	"github.com/alexbotov/highscore/internal/metrics"
)

// maxBodyBytes bounds POST bodies; a score needs a few bytes
const maxBodyBytes = 1 << 20

// Handler contains all HTTP handlers
type Handler struct {
	scores  *highscore.Service
	metrics *metrics.Metrics
	hub     *Hub
	static  http.Handler
}

// New creates a new API handler
func New(scores *highscore.Service, m *metrics.Metrics, hub *Hub, staticDir string) *Handler {
	return &Handler{
		scores:  scores,
		metrics: m,
		hub:     hub,
		static:  NewStaticHandler(staticDir),
	}
}

// Response helpers

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// === Health ===

// Ping handles GET /api/ping
func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// === Highscore ===

// GetHighscore handles GET /api/highscore
func (h *Handler) GetHighscore(w http.ResponseWriter, r *http.Request) {
	team := h.scores.Team()
	best, err := h.scores.GetBest(r.Context(), team)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to get highscore", "team", team, "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondJSON(w, http.StatusOK, domain.HighscoreRecord{Team: team, Best: best})
}

// isJSON reports whether the request declares a JSON body
// (application/json or any +json media type)
func isJSON(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// PostHighscore handles POST /api/highscore
func (h *Handler) PostHighscore(w http.ResponseWriter, r *http.Request) {
	if !isJSON(r) {
		h.metrics.ObserveSubmission(metrics.OutcomeInvalid)
		respondError(w, http.StatusBadRequest, domain.ErrInvalidScore.Error())
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.metrics.ObserveSubmission(metrics.OutcomeInvalid)
		respondError(w, http.StatusBadRequest, domain.ErrInvalidScore.Error())
		return
	}

	score, err := domain.ParseScoreBody(body)
	if err != nil {
		h.metrics.ObserveSubmission(metrics.OutcomeInvalid)
		respondError(w, http.StatusBadRequest, domain.ErrInvalidScore.Error())
		return
	}

	result, err := h.scores.SubmitScore(r.Context(), h.scores.Team(), score)
	if err != nil {
		h.metrics.ObserveSubmission(metrics.OutcomeError)
		switch {
		case errors.Is(err, highscore.ErrNoTeam):
			slog.ErrorContext(r.Context(), "highscore service has no team configured")
		default:
			slog.ErrorContext(r.Context(), "failed to submit score", "score", score, "error", err)
		}
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if result.Updated {
		h.metrics.ObserveSubmission(metrics.OutcomeAccepted)
	} else {
		h.metrics.ObserveSubmission(metrics.OutcomeKept)
	}

	respondJSON(w, http.StatusOK, result)
}
