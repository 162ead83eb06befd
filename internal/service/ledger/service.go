package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/tally/internal/domain/models"
	"github.com/mamadbah2/tally/internal/repository/sheets"
	"github.com/mamadbah2/tally/internal/service/inventory"
)

// ErrEmptyList indicates a submission without any text.
var ErrEmptyList = errors.New("inventory list is empty")

// SheetWriter appends rows to a spreadsheet range.
type SheetWriter interface {
	WriteRows(ctx context.Context, sheetRange string, rows [][]interface{}) error
}

// BatchStore archives parse runs.
type BatchStore interface {
	SaveInventoryBatch(ctx context.Context, batch *models.InventoryBatch) error
}

// Service parses submitted inventory lists and records them wherever storage
// is configured. Both sinks are optional.
type Service struct {
	parser *inventory.Parser
	sheets SheetWriter
	store  BatchStore
	logger *zap.Logger
	now    func() time.Time
}

// NewService constructs a ledger. A nil parser selects the default vocabulary.
func NewService(parser *inventory.Parser, sheetWriter SheetWriter, store BatchStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if parser == nil {
		parser = inventory.NewParser(nil, logger.Named("inventory"))
	}
	return &Service{
		parser: parser,
		sheets: sheetWriter,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Parse normalizes text without recording anything.
func (s *Service) Parse(text string) inventory.Result {
	return s.parser.Parse(text)
}

// Record parses text and writes the resulting batch to the configured sinks.
// The batch is returned even when a sink fails so callers can still reply.
func (s *Service) Record(ctx context.Context, source, text string) (models.InventoryBatch, error) {
	if strings.TrimSpace(text) == "" {
		return models.InventoryBatch{}, ErrEmptyList
	}

	res := s.parser.Parse(text)
	batch := models.InventoryBatch{
		ID:        uuid.NewString(),
		Source:    source,
		Raw:       text,
		Records:   res.Records,
		Failures:  res.Failures,
		CreatedAt: s.now().UTC(),
	}
	s.logger.Info("extracted records",
		zap.String("batch_id", batch.ID),
		zap.String("source", source),
		zap.Int("records", len(batch.Records)),
		zap.Int("failures", len(batch.Failures)))

	var errs []error
	if s.sheets != nil && len(batch.Records) > 0 {
		if err := s.sheets.WriteRows(ctx, sheets.InventoryRange, sheets.InventoryRows(batch)); err != nil {
			errs = append(errs, fmt.Errorf("write inventory rows: %w", err))
		}
	}
	if s.store != nil {
		if err := s.store.SaveInventoryBatch(ctx, &batch); err != nil {
			errs = append(errs, fmt.Errorf("archive inventory batch: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		s.logger.Error("failed recording inventory batch", zap.String("batch_id", batch.ID), zap.Error(err))
		return batch, err
	}
	return batch, nil
}

// Reply renders a batch as a confirmation message, one line per record
// followed by the items that could not be read.
func Reply(batch models.InventoryBatch) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Recorded %d item(s)", len(batch.Records))
	for _, rec := range batch.Records {
		fmt.Fprintf(&b, "\n%d. %s", rec.Sequence, rec.Name)
		if rec.HasQuantity() {
			fmt.Fprintf(&b, " %s%s", rec.QuantityText(), rec.Unit)
		}
	}
	if len(batch.Failures) > 0 {
		fmt.Fprintf(&b, "\nCould not read %d item(s):", len(batch.Failures))
		for _, f := range batch.Failures {
			fmt.Fprintf(&b, "\n- %s", f.Text)
		}
	}
	return b.String()
}
