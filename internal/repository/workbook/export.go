package workbook

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/mamadbah2/tally/internal/domain/models"
)

const (
	inventorySheet = "库存"
	calendarSheet  = "合计"
)

var (
	inventoryHeaders = []string{"序号", "商品名称", "单位", "数量"}
	calendarHeaders  = []string{"日期", "文件名", "合计数据"}
)

// ExportInventory renders records as a one-sheet workbook, one row per item
// in input order.
func ExportInventory(records []models.InventoryRecord) ([]byte, error) {
	f, err := newSheetFile(inventorySheet, inventoryHeaders)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	for i, rec := range records {
		row := i + 2
		var qty any
		if rec.Quantity != nil {
			qty = *rec.Quantity
		}
		if err := writeRow(f, inventorySheet, row, rec.Sequence, rec.Name, rec.Unit, qty); err != nil {
			return nil, err
		}
	}
	_ = f.SetColWidth(inventorySheet, "B", "B", 24)

	return finish(f)
}

// ExportCalendar renders a calendar as date, source file and total columns.
// Totals that look numeric are stored as numbers.
func ExportCalendar(cal models.Calendar) ([]byte, error) {
	f, err := newSheetFile(calendarSheet, calendarHeaders)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	for i, e := range cal.Entries {
		var total any = e.Total
		if v, err := strconv.ParseFloat(e.Total, 64); err == nil {
			total = v
		}
		if err := writeRow(f, calendarSheet, i+2, e.Date, e.SourceFilename, total); err != nil {
			return nil, err
		}
	}
	_ = f.SetColWidth(calendarSheet, "A", "A", 14)
	_ = f.SetColWidth(calendarSheet, "B", "B", 32)

	return finish(f)
}

func newSheetFile(sheet string, headers []string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("name sheet %s: %w", sheet, err)
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	return f, nil
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) error {
	for col, v := range values {
		if v == nil {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("write %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

func finish(f *excelize.File) ([]byte, error) {
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
