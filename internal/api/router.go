package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/lobbyworks/presencehub/internal/middleware"
)

// RouterConfig holds the router's handlers
type RouterConfig struct {
	Logger        *slog.Logger
	WSHandler     http.HandlerFunc
	StatusHandler *StatusHandler
}

// NewRouter wires the HTTP surface. The websocket endpoint is mounted
// outside the logging middleware: the response wrapper does not implement
// http.Hijacker and the upgrade would fail behind it.
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowedHandler)

	// Websocket endpoint, bare
	r.HandleFunc("/ws", cfg.WSHandler)

	// JSON API with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowedHandler)
	api.Use(middleware.Recovery(cfg.Logger))
	api.Use(middleware.Logging(cfg.Logger))
	api.Handle("/status", cfg.StatusHandler).Methods(http.MethodGet)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	// Health check without the /api prefix for load balancers
	r.HandleFunc("/healthz", healthHandler).Methods(http.MethodGet)

	return r
}

func methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusMethodNotAllowed)
	_, _ = w.Write([]byte(`{"error":"method not allowed"}`))
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
