// Package classify talks to the hosted classification capability: free text
// in, a strict structured guess out. The response is never trusted blindly;
// callers must run the normalization and amount validation in extract.
package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// systemPrompt pins the model to a strict JSON schema in pt-BR.
const systemPrompt = `Você é um extrator de despesas e ganhos financeiros em português do Brasil.
Dada uma mensagem, devolva APENAS um JSON válido (sem texto extra) com:
{
  "type": "expense" | "income",
  "amount": number | null,
  "currency": "BRL",
  "category": "alimentacao"|"transporte"|"saude"|"lazer"|"casa"|"salario"|"freelance"|"investimento"|"outros",
  "description": string,
  "confidence": number
}
Regras:
- Se a mensagem indicar dinheiro RECEBIDO (salário, pagamento, venda, freelance, transferência recebida, investimento), type="income".
- Se a mensagem indicar dinheiro GASTO (compra, pagamento de conta, despesa), type="expense".
- Se não houver valor claro, amount=null, category="outros" e confidence baixa.
- description deve ser curta (2 a 6 palavras).
- currency sempre "BRL".`

const (
	requestTimeout = 30 * time.Second
	maxErrBody     = 300
)

// Classification is the capability's structured guess, decoded strictly.
// Amount stays a pointer: null means "no clear value in the message".
type Classification struct {
	Type        string   `json:"type"`
	Amount      *float64 `json:"amount"`
	Currency    string   `json:"currency"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Confidence  float64  `json:"confidence"`
}

// StatusError is an upstream HTTP failure, carrying the status and a
// truncated excerpt of the body for the user-facing diagnostic.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("classification upstream returned status %d", e.StatusCode)
}

// Client calls a chat-completions style endpoint.
type Client struct {
	httpClient *http.Client
	url        string
	apiKey     string
	model      string
}

func NewClient(url, apiKey, model string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		url:        url,
		apiKey:     apiKey,
		model:      model,
	}
}

type chatRequest struct {
	Model          string        `json:"model"`
	Temperature    float64       `json:"temperature"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat responseFmt   `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFmt struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Classify sends the fixed instruction prompt plus the user's text and
// decodes the model's JSON object. Malformed JSON anywhere is an error; the
// caller maps it to a Failed outcome.
func (c *Client) Classify(ctx context.Context, text string) (Classification, error) {
	var out Classification

	payload := chatRequest{
		Model:       c.model,
		Temperature: 0,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: strings.TrimSpace(text)},
		},
		ResponseFormat: responseFmt{Type: "json_object"},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return out, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return out, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return out, fmt.Errorf("call classification endpoint: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return out, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt := string(respBody)
		if len(excerpt) > maxErrBody {
			excerpt = excerpt[:maxErrBody]
		}
		return out, &StatusError{StatusCode: resp.StatusCode, Body: excerpt}
	}

	var chat chatResponse
	if err := json.Unmarshal(respBody, &chat); err != nil {
		return out, fmt.Errorf("decode completion envelope: %w", err)
	}
	if len(chat.Choices) == 0 {
		return out, fmt.Errorf("completion returned no choices")
	}

	content := chat.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		slog.WarnContext(ctx, "Classification returned structurally invalid JSON",
			"error", err, "content_length", len(content))
		return out, fmt.Errorf("decode classification object: %w", err)
	}

	return out, nil
}
