package schedule

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"grana/internal/report"
)

// WebhookSender posts rendered reports to an external chat relay. The relay
// owns the actual Telegram (or other transport) delivery.
type WebhookSender struct {
	client *http.Client
	url    string
}

var (
	_ Sender      = (*WebhookSender)(nil)
	_ ChartSender = (*WebhookSender)(nil)
)

func NewWebhookSender(url string) *WebhookSender {
	return &WebhookSender{
		client: &http.Client{Timeout: 15 * time.Second},
		url:    url,
	}
}

type webhookPayload struct {
	ChatID     string              `json:"chat_id"`
	Text       string              `json:"text,omitempty"`
	DailyChart *report.DailySeries `json:"daily_chart,omitempty"`
}

func (s *WebhookSender) Send(ctx context.Context, chatID, text string) error {
	return s.post(ctx, webhookPayload{ChatID: chatID, Text: text})
}

// SendDailyChart posts the chart series; the relay owns the rendering.
func (s *WebhookSender) SendDailyChart(ctx context.Context, chatID string, series report.DailySeries) error {
	return s.post(ctx, webhookPayload{ChatID: chatID, DailyChart: &series})
}

func (s *WebhookSender) post(ctx context.Context, payload webhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post report: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// LogSender is the fallback when no webhook is configured: reports land in
// the log instead of a chat.
type LogSender struct{}

var _ Sender = LogSender{}

func (LogSender) Send(ctx context.Context, chatID, text string) error {
	slog.InfoContext(ctx, "Scheduled report (no webhook configured)",
		"chat_id", chatID,
		"chars", len(text))
	return nil
}
