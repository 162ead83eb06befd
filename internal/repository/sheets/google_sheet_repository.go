package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/tally/internal/config"
	"github.com/mamadbah2/tally/internal/domain/models"
)

// InventoryRange receives one row per parsed inventory item.
const InventoryRange = "Inventory!A:F"

var (
	errEmptyRange = errors.New("sheetRange must not be empty")
	errEmptySheet = errors.New("sheet title must not be empty")
)

// Repository defines the persistence operations supported by the Google Sheets adapter.
type Repository interface {
	WriteRows(ctx context.Context, sheetRange string, rows [][]interface{}) error
	ReplaceRows(ctx context.Context, sheet string, rows [][]interface{}) error
}

// GoogleSheetRepository implements the Repository interface using the official Google Sheets API.
type GoogleSheetRepository struct {
	service       *sheetsapi.Service
	spreadsheetID string
	logger        *zap.Logger
}

// NewGoogleSheetRepository builds a Google Sheets backed repository instance.
func NewGoogleSheetRepository(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*GoogleSheetRepository, error) {
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

// WriteRows appends rows below the last filled row of sheetRange in one call.
func (r *GoogleSheetRepository) WriteRows(ctx context.Context, sheetRange string, rows [][]interface{}) error {
	if sheetRange == "" {
		return errEmptyRange
	}
	if len(rows) == 0 {
		return nil
	}

	payload := &sheetsapi.ValueRange{Values: rows}
	call := r.service.Spreadsheets.Values.Append(r.spreadsheetID, sheetRange, payload).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("append rows into range %s: %w", sheetRange, err)
	}

	r.logger.Debug("rows appended to sheet", zap.String("range", sheetRange), zap.Int("rows", len(rows)))
	return nil
}

// ReplaceRows overwrites the whole of sheet with rows from A1, adding the
// tab first when the spreadsheet lacks it. Writing the same rows twice leaves
// the sheet unchanged.
func (r *GoogleSheetRepository) ReplaceRows(ctx context.Context, sheet string, rows [][]interface{}) error {
	if sheet == "" {
		return errEmptySheet
	}
	if err := r.ensureSheet(ctx, sheet); err != nil {
		return err
	}

	quoted := "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
	if _, err := r.service.Spreadsheets.Values.Clear(r.spreadsheetID, quoted, &sheetsapi.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil
	}

	payload := &sheetsapi.ValueRange{Values: rows}
	call := r.service.Spreadsheets.Values.Update(r.spreadsheetID, quoted+"!A1", payload).
		ValueInputOption("USER_ENTERED").
		Context(ctx)
	if _, err := call.Do(); err != nil {
		return fmt.Errorf("update sheet %s: %w", sheet, err)
	}

	r.logger.Debug("sheet replaced", zap.String("sheet", sheet), zap.Int("rows", len(rows)))
	return nil
}

func (r *GoogleSheetRepository) ensureSheet(ctx context.Context, title string) error {
	ss, err := r.service.Spreadsheets.Get(r.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("list sheets: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return nil
		}
	}

	req := &sheetsapi.BatchUpdateSpreadsheetRequest{Requests: []*sheetsapi.Request{{
		AddSheet: &sheetsapi.AddSheetRequest{Properties: &sheetsapi.SheetProperties{Title: title}},
	}}}
	if _, err := r.service.Spreadsheets.BatchUpdate(r.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", title, err)
	}
	r.logger.Info("sheet added", zap.String("sheet", title))
	return nil
}

// CalendarSheet names the tab holding the calendar of one month.
func CalendarSheet(p models.Period) string {
	return fmt.Sprintf("Totals_%04d-%02d", p.Year, p.Month)
}

// InventoryRows lays a batch out as batch id, source, sequence, name, unit and
// quantity columns. Items without a quantity leave the last two cells blank.
func InventoryRows(batch models.InventoryBatch) [][]interface{} {
	rows := make([][]interface{}, 0, len(batch.Records))
	for _, rec := range batch.Records {
		var qty interface{} = ""
		if rec.Quantity != nil {
			qty = *rec.Quantity
		}
		rows = append(rows, []interface{}{batch.ID, batch.Source, rec.Sequence, rec.Name, rec.Unit, qty})
	}
	return rows
}

// CalendarRows lays a calendar out as date, source file and total columns.
func CalendarRows(cal models.Calendar) [][]interface{} {
	rows := make([][]interface{}, 0, len(cal.Entries))
	for _, e := range cal.Entries {
		rows = append(rows, []interface{}{e.Date, e.SourceFilename, e.Total})
	}
	return rows
}
