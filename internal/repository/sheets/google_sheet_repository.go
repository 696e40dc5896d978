package sheets

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/agritrace/internal/config"
	"github.com/mamadbah2/agritrace/internal/domain/models"
)

// eventRange is the sheet tab receiving one row per mirrored registry event.
const eventRange = "Events!A:F"

// Repository defines the export operations supported by the Google Sheets adapter.
type Repository interface {
	StoreEvent(ctx context.Context, event models.Event) error
	ReadRange(ctx context.Context, sheetRange string) ([][]interface{}, error)
}

// GoogleSheetRepository implements the Repository interface using the official Google Sheets API.
type GoogleSheetRepository struct {
	service       *sheetsapi.Service
	spreadsheetID string
	logger        *zap.Logger
}

// NewGoogleSheetRepository builds a Google Sheets backed export instance.
func NewGoogleSheetRepository(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &GoogleSheetRepository{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		logger:        logger,
	}, nil
}

// StoreEvent appends one registry event as a row on the Events tab.
func (r *GoogleSheetRepository) StoreEvent(ctx context.Context, event models.Event) error {
	row := []interface{}{
		event.Seq,
		string(event.Name),
		event.Key,
		event.Actor,
		event.Timestamp.Format(time.RFC3339),
		fmt.Sprintf("%v", event.Fields),
	}

	payload := &sheetsapi.ValueRange{Values: [][]interface{}{row}}

	call := r.service.Spreadsheets.Values.Append(r.spreadsheetID, eventRange, payload).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("append event row: %w", err)
	}

	r.logger.Debug("event row appended to sheet", zap.Uint64("seq", event.Seq))
	return nil
}

// ReadRange fetches a rectangular data range from the spreadsheet.
func (r *GoogleSheetRepository) ReadRange(ctx context.Context, sheetRange string) ([][]interface{}, error) {
	if sheetRange == "" {
		return nil, fmt.Errorf("sheetRange must not be empty")
	}

	resp, err := r.service.Spreadsheets.Values.Get(r.spreadsheetID, sheetRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read range %s: %w", sheetRange, err)
	}

	return resp.Values, nil
}
