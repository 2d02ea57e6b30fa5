package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"grana/internal/bot"
	"grana/internal/classify"
	"grana/internal/extract"
	"grana/internal/guard"
	"grana/internal/report"
	"grana/internal/storage/memory"
)

type stubClassifier struct {
	result classify.Classification
	err    error
}

func (c *stubClassifier) Classify(context.Context, string) (classify.Classification, error) {
	return c.result, c.err
}

func newTestServer(t *testing.T, cls extract.Classifier, allowed []string) *Server {
	t.Helper()
	store := memory.NewStore(time.UTC)
	g := guard.New(guard.Config{
		AllowedUsers:  allowed,
		RateLimitMsgs: 5,
		RateWindow:    time.Minute,
		MaxTextLength: 500,
	})
	x := extract.New(cls, store, nil, decimal.NewFromInt(1_000_000))
	svc := bot.NewService(g, x, report.NewEngine(store, time.UTC))
	return NewServer(":0", svc)
}

func amt(v float64) *float64 { return &v }

func doJSON(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeReply(t *testing.T, rec *httptest.ResponseRecorder) replyResponse {
	t.Helper()
	var resp replyResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestHandleMessageRecorded(t *testing.T) {
	srv := newTestServer(t, &stubClassifier{result: classify.Classification{
		Type:        "expense",
		Amount:      amt(50),
		Category:    "transporte",
		Description: "uber",
		Confidence:  0.9,
	}}, nil)

	rec := doJSON(t, srv.Handler, http.MethodPost, "/v1/messages",
		`{"user_id":"u1","chat_id":"c1","text":"gastei 50 no uber"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	resp := decodeReply(t, rec)
	if resp.Silent {
		t.Error("reply should not be silent")
	}
	if !strings.Contains(resp.Reply, "Gasto registrado!") {
		t.Errorf("reply = %q", resp.Reply)
	}
}

func TestHandleMessageSilentForUnknownUser(t *testing.T) {
	srv := newTestServer(t, &stubClassifier{}, []string{"42"})

	rec := doJSON(t, srv.Handler, http.MethodPost, "/v1/messages",
		`{"user_id":"7","chat_id":"c1","text":"gastei 50"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	resp := decodeReply(t, rec)
	if !resp.Silent || resp.Reply != "" {
		t.Errorf("resp = %+v; want silent", resp)
	}
}

func TestHandleMessageValidation(t *testing.T) {
	srv := newTestServer(t, &stubClassifier{}, nil)

	tests := []struct {
		name string
		body string
	}{
		{"missing user", `{"chat_id":"c1","text":"oi"}`},
		{"missing text", `{"user_id":"u1","chat_id":"c1"}`},
		{"malformed json", `{"user_id":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, srv.Handler, http.MethodPost, "/v1/messages", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d; want 400", rec.Code)
			}
		})
	}
}

func TestHandleMessageMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, &stubClassifier{}, nil)
	rec := doJSON(t, srv.Handler, http.MethodGet, "/v1/messages", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d; want 405", rec.Code)
	}
}

func TestHandleReport(t *testing.T) {
	srv := newTestServer(t, &stubClassifier{result: classify.Classification{
		Amount:   amt(30),
		Category: "lazer",
	}}, nil)

	doJSON(t, srv.Handler, http.MethodPost, "/v1/messages",
		`{"user_id":"u1","chat_id":"c1","text":"gastei 30"}`)

	rec := doJSON(t, srv.Handler, http.MethodGet, "/v1/report?user_id=u1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	resp := decodeReply(t, rec)
	if !strings.Contains(resp.Reply, "Hoje") || !strings.Contains(resp.Reply, "Semana") {
		t.Errorf("report = %q", resp.Reply)
	}
}

func TestHandleEntriesTypeSwitch(t *testing.T) {
	srv := newTestServer(t, &stubClassifier{}, nil)

	rec := doJSON(t, srv.Handler, http.MethodGet, "/v1/entries?user_id=u1&type=income", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	resp := decodeReply(t, rec)
	if !strings.Contains(resp.Reply, "Nenhum ganho registrado") {
		t.Errorf("reply = %q", resp.Reply)
	}
}

func TestHandleEntriesRequiresUser(t *testing.T) {
	srv := newTestServer(t, &stubClassifier{}, nil)
	rec := doJSON(t, srv.Handler, http.MethodGet, "/v1/entries", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d; want 400", rec.Code)
	}
}

func TestHandleDailyChart(t *testing.T) {
	srv := newTestServer(t, &stubClassifier{result: classify.Classification{
		Amount:   amt(25),
		Category: "casa",
	}}, nil)

	doJSON(t, srv.Handler, http.MethodPost, "/v1/messages",
		`{"user_id":"u1","chat_id":"c1","text":"25 de luz"}`)

	rec := doJSON(t, srv.Handler, http.MethodGet, "/v1/charts/daily?user_id=u1&days=7", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}

	var series report.DailySeries
	if err := json.NewDecoder(rec.Body).Decode(&series); err != nil {
		t.Fatalf("decode series: %v", err)
	}
	if len(series.Points) != 8 {
		t.Errorf("len(Points) = %d; want 8", len(series.Points))
	}
	if series.ActiveDays != 1 {
		t.Errorf("ActiveDays = %d; want 1", series.ActiveDays)
	}
}

func TestHandleChartForbiddenForUnknownUser(t *testing.T) {
	srv := newTestServer(t, &stubClassifier{}, []string{"42"})

	rec := doJSON(t, srv.Handler, http.MethodGet, "/v1/charts/daily?user_id=7", "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d; want 403", rec.Code)
	}
	rec = doJSON(t, srv.Handler, http.MethodGet, "/v1/charts/balance?user_id=7", "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d; want 403", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, &stubClassifier{}, nil)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, srv.Handler, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d; want 200", path, rec.Code)
		}
	}
}
