package extract

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"grana/internal/classify"
	"grana/internal/core"
	"grana/internal/storage"
	"grana/internal/storage/memory"
)

type fakeClassifier struct {
	result classify.Classification
	err    error
}

func (f *fakeClassifier) Classify(_ context.Context, _ string) (classify.Classification, error) {
	return f.result, f.err
}

type recordingPublisher struct {
	published []string
	err       error
}

func (p *recordingPublisher) PublishEntryRecorded(_ context.Context, entryID, _ string) error {
	p.published = append(p.published, entryID)
	return p.err
}

func maxAmount() decimal.Decimal {
	return decimal.NewFromInt(1_000_000)
}

func amt(v float64) *float64 { return &v }

func TestProcessRecordsValidExpense(t *testing.T) {
	store := memory.NewStore(time.UTC)
	pub := &recordingPublisher{}
	x := New(&fakeClassifier{result: classify.Classification{
		Type:        "expense",
		Amount:      amt(50),
		Currency:    "BRL",
		Category:    "transporte",
		Description: "uber pro trabalho",
		Confidence:  0.95,
	}}, store, pub, maxAmount())

	res := x.Process(context.Background(), "u1", "c1", "gastei 50 no uber")
	if res.Status != StatusRecorded {
		t.Fatalf("Status = %v; want StatusRecorded", res.Status)
	}
	if res.Entry.ID == "" {
		t.Error("expected entry id to be set")
	}
	if res.Entry.Category != "transporte" || res.Entry.Type != core.Expense {
		t.Errorf("entry = %+v", res.Entry)
	}
	if store.Len() != 1 {
		t.Fatalf("store has %d entries; want 1", store.Len())
	}
	if len(pub.published) != 1 || pub.published[0] != res.Entry.ID {
		t.Errorf("published = %v; want [%s]", pub.published, res.Entry.ID)
	}
}

func TestProcessNormalizesUnknownFields(t *testing.T) {
	store := memory.NewStore(time.UTC)
	x := New(&fakeClassifier{result: classify.Classification{
		Type:     "gasolina",
		Amount:   amt(80),
		Category: "combustivel",
	}}, store, nil, maxAmount())

	res := x.Process(context.Background(), "u1", "c1", "80 de gasolina")
	if res.Status != StatusRecorded {
		t.Fatalf("Status = %v; want StatusRecorded", res.Status)
	}
	if res.Entry.Category != "outros" {
		t.Errorf("Category = %q; want outros", res.Entry.Category)
	}
	if res.Entry.Type != core.Expense {
		t.Errorf("Type = %q; want expense", res.Entry.Type)
	}
	if res.Entry.Currency != "BRL" {
		t.Errorf("Currency = %q; want BRL", res.Entry.Currency)
	}
}

func TestProcessUnrecognizedWritesNothing(t *testing.T) {
	tests := []struct {
		name   string
		amount *float64
	}{
		{"nil amount", nil},
		{"zero amount", amt(0)},
		{"negative amount", amt(-10)},
		{"over limit", amt(1_000_001)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewStore(time.UTC)
			x := New(&fakeClassifier{result: classify.Classification{
				Amount:     tt.amount,
				Confidence: 0.9,
			}}, store, nil, maxAmount())

			res := x.Process(context.Background(), "u1", "c1", "???")
			if res.Status != StatusUnrecognized {
				t.Fatalf("Status = %v; want StatusUnrecognized", res.Status)
			}
			if store.Len() != 0 {
				t.Fatalf("store has %d entries; want 0", store.Len())
			}
		})
	}
}

func TestProcessUpstreamStatusError(t *testing.T) {
	store := memory.NewStore(time.UTC)
	x := New(&fakeClassifier{err: &classify.StatusError{
		StatusCode: 429,
		Body:       "rate limited",
	}}, store, nil, maxAmount())

	res := x.Process(context.Background(), "u1", "c1", "gastei 50")
	if res.Status != StatusFailed {
		t.Fatalf("Status = %v; want StatusFailed", res.Status)
	}
	if !strings.Contains(res.Detail, "status 429") {
		t.Errorf("Detail = %q; want status mention", res.Detail)
	}
	if !strings.Contains(res.Detail, "rate limited") {
		t.Errorf("Detail = %q; want body excerpt", res.Detail)
	}
	if store.Len() != 0 {
		t.Fatal("failed classification must not write")
	}
}

func TestProcessGenericFailure(t *testing.T) {
	store := memory.NewStore(time.UTC)
	x := New(&fakeClassifier{err: errors.New("connection reset")}, store, nil, maxAmount())

	res := x.Process(context.Background(), "u1", "c1", "gastei 50")
	if res.Status != StatusFailed {
		t.Fatalf("Status = %v; want StatusFailed", res.Status)
	}
	if !strings.Contains(res.Detail, "Deu erro") {
		t.Errorf("Detail = %q", res.Detail)
	}
}

func TestProcessInsertFailure(t *testing.T) {
	x := New(&fakeClassifier{result: classify.Classification{
		Amount: amt(50),
	}}, failingStore{}, nil, maxAmount())

	res := x.Process(context.Background(), "u1", "c1", "gastei 50")
	if res.Status != StatusFailed {
		t.Fatalf("Status = %v; want StatusFailed", res.Status)
	}
}

func TestProcessPublishFailureIsNonFatal(t *testing.T) {
	store := memory.NewStore(time.UTC)
	pub := &recordingPublisher{err: errors.New("broker down")}
	x := New(&fakeClassifier{result: classify.Classification{
		Amount: amt(50),
	}}, store, pub, maxAmount())

	res := x.Process(context.Background(), "u1", "c1", "gastei 50")
	if res.Status != StatusRecorded {
		t.Fatalf("Status = %v; want StatusRecorded despite publish error", res.Status)
	}
	if store.Len() != 1 {
		t.Fatal("entry must persist even when publish fails")
	}
}

// failingStore errors on every write.
type failingStore struct {
	storage.LedgerStore
}

func (failingStore) Insert(context.Context, core.Entry) (string, error) {
	return "", errors.New("disk full")
}
