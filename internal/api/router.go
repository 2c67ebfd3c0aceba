// Package api - Router setup
package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// SetupRouter creates and configures the HTTP router
func (h *Handler) SetupRouter() *mux.Router {
	r := mux.NewRouter()

	// Apply global middleware
	r.Use(RecoveryMiddleware)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)

	// API routes
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/ping", h.Ping).Methods("GET")
	api.HandleFunc("/highscore", h.GetHighscore).Methods("GET")
	api.HandleFunc("/highscore", h.PostHighscore).Methods("POST")
	api.HandleFunc("/highscore/ws", h.HandleWebSocket).Methods("GET")

	// Metrics
	r.Handle("/metrics", h.metrics.Handler()).Methods("GET")

	// Preflight requests are answered by CORSMiddleware
	r.PathPrefix("/").Methods("OPTIONS").HandlerFunc(func(http.ResponseWriter, *http.Request) {})

	// Static front-end
	r.PathPrefix("/").Handler(h.static).Methods("GET", "HEAD")

	r.NotFoundHandler = http.HandlerFunc(NotFoundHandler)
	r.MethodNotAllowedHandler = http.HandlerFunc(MethodNotAllowedHandler)

	return r
}

// NotFoundHandler handles 404 errors
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusNotFound, "not found")
}

// MethodNotAllowedHandler handles 405 errors
func MethodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusMethodNotAllowed, "method not allowed")
}
