package workbook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// DefaultMarker labels the cell sitting above a report's total figure.
const DefaultMarker = "合计"

var (
	// ErrMarkerNotFound indicates no cell of the first sheet contains the marker.
	ErrMarkerNotFound = errors.New("total marker not found")
	// ErrTotalBlank indicates the marker has no value underneath it.
	ErrTotalBlank = errors.New("total cell is empty")
	// ErrNoSheets indicates a workbook without any worksheet.
	ErrNoSheets = errors.New("workbook has no sheets")
)

// Scanner reads the total figure out of daily report workbooks.
type Scanner struct {
	marker string
	logger *zap.Logger
}

// NewScanner builds a scanner looking for marker; empty selects DefaultMarker.
func NewScanner(marker string, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	marker = strings.TrimSpace(marker)
	if marker == "" {
		marker = DefaultMarker
	}
	return &Scanner{marker: marker, logger: logger}
}

// ScanTotal opens the workbook at path and returns the cell directly below the
// first marker cell of its first sheet, rows scanned top to bottom.
func (s *Scanner) ScanTotal(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("open workbook %s: %w", filepath.Base(path), err)
	}
	defer func() { _ = f.Close() }()

	total, err := s.totalFrom(f)
	if err != nil {
		return "", fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	s.logger.Info("found total in file", zap.String("file", filepath.Base(path)), zap.String("total", total))
	return total, nil
}

// ReadTotal is ScanTotal for a workbook that is already in memory.
func (s *Scanner) ReadTotal(r io.Reader) (string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()
	return s.totalFrom(f)
}

func (s *Scanner) totalFrom(f *excelize.File) (string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", ErrNoSheets
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return "", fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}

	for i, row := range rows {
		col := slices.IndexFunc(row, func(cell string) bool { return strings.Contains(cell, s.marker) })
		if col < 0 {
			continue
		}
		if i+1 >= len(rows) || col >= len(rows[i+1]) {
			return "", ErrTotalBlank
		}
		value := strings.TrimSpace(rows[i+1][col])
		if value == "" {
			return "", ErrTotalBlank
		}
		return value, nil
	}
	return "", ErrMarkerNotFound
}
