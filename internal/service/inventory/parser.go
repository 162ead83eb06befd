package inventory

import (
	"go.uber.org/zap"

	"github.com/mamadbah2/tally/internal/domain/models"
)

// Result is the outcome of parsing one pasted list. Failures never stop the
// remaining items from being parsed.
type Result struct {
	Records  []models.InventoryRecord
	Failures []models.ItemFailure
}

// Parser runs segmentation and extraction over a whole list.
type Parser struct {
	extractor *Extractor
	logger    *zap.Logger
}

// NewParser constructs a parser; a nil vocabulary selects the default tables.
func NewParser(vocab *Vocabulary, logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{extractor: NewExtractor(vocab), logger: logger}
}

// Parse extracts records in input order. Items without an explicit index are
// numbered one past the records produced so far.
func (p *Parser) Parse(text string) Result {
	res := Result{
		Records:  []models.InventoryRecord{},
		Failures: []models.ItemFailure{},
	}

	for candidate := range Segment(text) {
		record, err := p.extractor.Extract(candidate, len(res.Records)+1)
		if err != nil {
			p.logger.Warn("skipping unparsable item", zap.String("text", candidate), zap.Error(err))
			res.Failures = append(res.Failures, models.ItemFailure{Text: candidate, Reason: err.Error(), Err: err})
			continue
		}
		res.Records = append(res.Records, record)
	}

	p.logger.Debug("inventory parsed",
		zap.Int("records", len(res.Records)),
		zap.Int("failures", len(res.Failures)))
	return res
}
