// Package export appends recorded ledger entries to a Google Spreadsheet.
// It authenticates with a Service Account; the worker is its only caller.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"grana/internal/core"
)

// Exporter writes one spreadsheet row per ledger entry.
type Exporter interface {
	Append(ctx context.Context, e core.Entry) error
}

type SheetsExporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ Exporter = (*SheetsExporter)(nil)

// NewSheetsExporter builds the exporter for the given spreadsheet and sheet.
// Credentials come from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE
// or GOOGLE_APPLICATION_CREDENTIALS.
func NewSheetsExporter(ctx context.Context, spreadsheetID, sheetName string) (*SheetsExporter, error) {
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if sheetName == "" {
		sheetName = "Entries"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &SheetsExporter{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return service, nil
}

// Append writes the entry as one row: id, created_at, user, type, amount,
// currency, category, description.
func (e *SheetsExporter) Append(ctx context.Context, entry core.Entry) error {
	if e.svc == nil {
		return errors.New("sheets service not initialized")
	}

	amount, _ := entry.Amount.Round(2).Float64()
	row := []any{
		entry.ID,
		entry.CreatedAt.Format("2006-01-02 15:04:05"),
		entry.UserID,
		string(entry.Type),
		amount,
		entry.Currency,
		entry.Category,
		entry.Description,
	}

	rng := fmt.Sprintf("%s!A:H", e.sheetName)
	_, err := e.svc.Spreadsheets.Values.Append(e.spreadsheetID, rng, &gsheet.ValueRange{
		Values: [][]any{row},
	}).ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append row to sheet %s: %w", e.sheetName, err)
	}

	slog.InfoContext(ctx, "Exported entry to spreadsheet",
		"entry_id", entry.ID,
		"sheet", e.sheetName)

	return nil
}
