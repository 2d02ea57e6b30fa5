// Package http exposes the bot over a JSON API. Chat transports push
// inbound messages to it and read back the rendered reply.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"grana/internal/bot"
	"grana/internal/middleware/trace"
)

const (
	readTimeout     = 15 * time.Second
	writeTimeout    = 60 * time.Second
	idleTimeout     = 120 * time.Second
	maxRequestBytes = 64 << 10
)

type Server struct {
	http.Server

	bot *bot.Service
}

// NewServer configures routes and returns a ready-to-run server.
func NewServer(addr string, svc *bot.Service) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:         addr,
			Handler:      trace.Middleware(mux),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			IdleTimeout:  idleTimeout,
		},
		bot: svc,
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/v1/messages", s.handleMessage)
	mux.HandleFunc("/v1/help", s.handleHelp)
	mux.HandleFunc("/v1/entries", s.handleEntries)
	mux.HandleFunc("/v1/report", s.handleReport)
	mux.HandleFunc("/v1/balance", s.handleBalance)
	mux.HandleFunc("/v1/charts/daily", s.handleDailyChart)
	mux.HandleFunc("/v1/charts/balance", s.handleBalanceChart)

	return s
}

// Shutdown drains in-flight requests before returning.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.InfoContext(ctx, "Shutting down HTTP server")
	return s.Server.Shutdown(ctx)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
