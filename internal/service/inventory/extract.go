package inventory

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/width"

	"github.com/mamadbah2/tally/internal/domain/models"
)

var (
	// ErrInvalidSequence indicates an explicit index that is not a positive integer.
	ErrInvalidSequence = errors.New("invalid sequence number")
	// ErrNumberOutOfRange indicates a quantity that cannot be represented.
	ErrNumberOutOfRange = errors.New("quantity out of range")
)

var sequencePrefix = regexp.MustCompile(`^(` + digit + `+)` + space + `*[,，.。:：、]` + space + `*(.*)$`)

// ItemError reports a candidate that could not be normalized.
type ItemError struct {
	Text string
	Err  error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("parse item %q: %v", e.Text, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// quantityRule is one way of reading a trailing "<amount><unit>". Rules are
// tried in order and the first one that matches decides the record.
type quantityRule struct {
	name   string
	match  func(v *Vocabulary) *regexp.Regexp
	amount func(v *Vocabulary, token string) (float64, error)
}

var quantityRules = []quantityRule{
	{
		name:   "numeric",
		match:  func(v *Vocabulary) *regexp.Regexp { return v.numeric },
		amount: func(_ *Vocabulary, token string) (float64, error) { return parseNumber(token) },
	},
	{
		name:  "numeral",
		match: func(v *Vocabulary) *regexp.Regexp { return v.numeral },
		amount: func(v *Vocabulary, token string) (float64, error) {
			value, ok := v.Numeral(token)
			if !ok {
				return 0, fmt.Errorf("unknown numeral %q", token)
			}
			return value, nil
		},
	},
}

// Extractor turns one candidate string into an InventoryRecord.
type Extractor struct {
	vocab *Vocabulary
}

// NewExtractor binds an extractor to a vocabulary; nil selects the default one.
func NewExtractor(vocab *Vocabulary) *Extractor {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	return &Extractor{vocab: vocab}
}

// Extract reads the sequence, quantity and unit of a candidate. fallbackSeq is
// used when the candidate carries no explicit index.
func (e *Extractor) Extract(candidate string, fallbackSeq int) (models.InventoryRecord, error) {
	seq := fallbackSeq
	rest := candidate
	if m := sequencePrefix.FindStringSubmatch(candidate); m != nil {
		n, err := parseSequence(m[1])
		if err != nil {
			return models.InventoryRecord{}, &ItemError{Text: candidate, Err: err}
		}
		seq = n
		rest = m[2]
	}
	rest = strings.TrimSpace(rest)

	record := models.InventoryRecord{Sequence: seq, Name: rest}
	for _, rule := range quantityRules {
		re := rule.match(e.vocab)
		if re == nil {
			continue
		}
		loc := re.FindStringSubmatchIndex(rest)
		if loc == nil {
			continue
		}
		amount, err := rule.amount(e.vocab, rest[loc[2]:loc[3]])
		if err != nil {
			return models.InventoryRecord{}, &ItemError{Text: candidate, Err: err}
		}
		record.Name = strings.TrimSpace(rest[:loc[0]])
		record.Unit = rest[loc[4]:loc[5]]
		record.Quantity = &amount
		break
	}
	return record, nil
}

func parseSequence(token string) (int, error) {
	n, err := strconv.Atoi(width.Narrow.String(token))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSequence, token)
	}
	return n, nil
}

func parseNumber(token string) (float64, error) {
	value, err := strconv.ParseFloat(width.Narrow.String(token), 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, fmt.Errorf("%w: %q", ErrNumberOutOfRange, token)
		}
		return 0, fmt.Errorf("parse quantity %q: %w", token, err)
	}
	return value, nil
}
