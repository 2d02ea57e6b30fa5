package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Expense EntryType = "expense"
	Income  EntryType = "income"

	// DefaultCurrency is the single currency supported by the current scope.
	DefaultCurrency = "BRL"

	// CategoryOther is the fallback for anything outside the fixed taxonomy.
	CategoryOther = "outros"
)

type (
	EntryType string

	// Entry is one persisted expense or income record. Entries are immutable
	// after creation: there are no update or delete operations.
	Entry struct {
		ID          string
		UserID      string
		ChatID      string // last known delivery chat; may be empty
		RawText     string
		Amount      decimal.Decimal
		Currency    string
		Category    string
		Description string
		Confidence  float64
		Type        EntryType
		CreatedAt   time.Time
	}
)

// Categories is the fixed taxonomy the extractor normalizes into.
var Categories = []string{
	"alimentacao",
	"transporte",
	"saude",
	"lazer",
	"casa",
	"salario",
	"freelance",
	"investimento",
	CategoryOther,
}

// CategoryEmoji maps each category to the icon used in report output.
var CategoryEmoji = map[string]string{
	"alimentacao":  "🍔",
	"transporte":   "🚗",
	"saude":        "💊",
	"lazer":        "🎮",
	"casa":         "🏠",
	"salario":      "💼",
	"freelance":    "💻",
	"investimento": "📈",
	CategoryOther:  "📦",
}

var (
	ErrEmptyUser      = errors.New("empty user id")
	ErrEmptyRawText   = errors.New("empty raw text")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrAmountTooLarge = errors.New("amount above ceiling")
)

var categorySet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(Categories))
	for _, c := range Categories {
		set[c] = struct{}{}
	}
	return set
}()

// NormalizeCategory maps any input onto the fixed taxonomy. Unknown, empty or
// differently-cased values all collapse to CategoryOther.
func NormalizeCategory(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if _, ok := categorySet[s]; ok {
		return s
	}
	return CategoryOther
}

// NormalizeType maps any input onto {expense, income}, defaulting to expense.
func NormalizeType(s string) EntryType {
	switch EntryType(strings.ToLower(strings.TrimSpace(s))) {
	case Income:
		return Income
	default:
		return Expense
	}
}

// Emoji returns the display icon for a category.
func Emoji(category string) string {
	if e, ok := CategoryEmoji[category]; ok {
		return e
	}
	return CategoryEmoji[CategoryOther]
}

func (t EntryType) Valid() bool {
	return t == Expense || t == Income
}

// Validate checks the persistence invariants: a non-empty owner and raw text,
// a normalized type, and 0 < amount <= maxAmount. Out-of-range amounts are an
// error, never clamped.
func (e Entry) Validate(maxAmount decimal.Decimal) error {
	if strings.TrimSpace(e.UserID) == "" {
		return ErrEmptyUser
	}
	if strings.TrimSpace(e.RawText) == "" {
		return ErrEmptyRawText
	}
	if !e.Type.Valid() {
		return errors.New("invalid entry type: " + string(e.Type))
	}
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if e.Amount.GreaterThan(maxAmount) {
		return ErrAmountTooLarge
	}
	return nil
}
