package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"grana/internal/bot"
	"grana/internal/core"
)

type messageRequest struct {
	UserID string `json:"user_id"`
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type replyResponse struct {
	Reply  string `json:"reply"`
	Silent bool   `json:"silent"`
}

func toResponse(r bot.Reply) replyResponse {
	return replyResponse{Reply: r.Text, Silent: r.Silent}
}

// handleMessage ingests one chat message and returns the reply to relay.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req messageRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	reply := s.bot.HandleMessage(r.Context(), req.UserID, req.ChatID, req.Text)
	writeJSON(w, http.StatusOK, toResponse(reply))
}

func (s *Server) handleHelp(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toResponse(s.bot.Help(userID)))
}

// handleEntries lists the newest entries; ?type=income switches the ledger
// side, anything else means expenses.
func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	typ := core.Expense
	if r.URL.Query().Get("type") == string(core.Income) {
		typ = core.Income
	}

	reply, err := s.bot.LastEntries(r.Context(), userID, typ)
	if err != nil {
		serverError(w, r, "list entries", err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(reply))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	reply, err := s.bot.Summary(r.Context(), userID)
	if err != nil {
		serverError(w, r, "build report", err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(reply))
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	reply, err := s.bot.MonthBalance(r.Context(), userID)
	if err != nil {
		serverError(w, r, "build balance", err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(reply))
}

func (s *Server) handleDailyChart(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	series, err := s.bot.DailyChart(r.Context(), userID, queryInt(r, "days"))
	if errors.Is(err, bot.ErrNotAllowed) {
		writeError(w, http.StatusForbidden, "user not allowed")
		return
	}
	if err != nil {
		serverError(w, r, "build daily chart", err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

func (s *Server) handleBalanceChart(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	series, err := s.bot.BalanceChart(r.Context(), userID, queryInt(r, "weeks"))
	if errors.Is(err, bot.ErrNotAllowed) {
		writeError(w, http.StatusForbidden, "user not allowed")
		return
	}
	if err != nil {
		serverError(w, r, "build balance chart", err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return "", false
	}
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return "", false
	}
	return userID, true
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}

func serverError(w http.ResponseWriter, r *http.Request, op string, err error) {
	slog.ErrorContext(r.Context(), "Handler failure", "op", op, "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}
