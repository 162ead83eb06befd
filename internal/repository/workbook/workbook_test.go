package workbook_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/mamadbah2/tally/internal/domain/models"
	"github.com/mamadbah2/tally/internal/repository/workbook"
)

// writeWorkbook saves rows into the first sheet of a new workbook under dir.
func writeWorkbook(t *testing.T, dir, name string, rows [][]any) string {
	t.Helper()

	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })
	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				t.Fatalf("set %s: %v", cell, err)
			}
		}
	}
	path := filepath.Join(dir, name)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save %s: %v", path, err)
	}
	return path
}

func TestScanTotal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	scanner := workbook.NewScanner("", nil)
	ctx := context.Background()

	cases := []struct {
		name    string
		rows    [][]any
		want    string
		wantErr error
	}{
		{
			name: "value below marker",
			rows: [][]any{
				{"日期", "品名", "金额"},
				{"10-05", "三黄鸡", 80},
				{nil, nil, "合计"},
				{nil, nil, 120.5},
			},
			want: "120.5",
		},
		{
			name: "first marker wins",
			rows: [][]any{
				{"合计(元)", nil},
				{"98", nil},
				{nil, "合计"},
				{nil, "7"},
			},
			want: "98",
		},
		{
			name:    "no marker",
			rows:    [][]any{{"日期", "金额"}, {"10-05", 3}},
			wantErr: workbook.ErrMarkerNotFound,
		},
		{
			name:    "marker on last row",
			rows:    [][]any{{"a"}, {"合计"}},
			wantErr: workbook.ErrTotalBlank,
		},
		{
			name:    "blank cell below",
			rows:    [][]any{{"x", "合计"}, {"y"}},
			wantErr: workbook.ErrTotalBlank,
		},
	}

	for i, tc := range cases {
		path := writeWorkbook(t, dir, filepath.Base(tc.name)+string(rune('a'+i))+".xlsx", tc.rows)
		got, err := scanner.ScanTotal(ctx, path)
		if tc.wantErr != nil {
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("%s: want err=%v got=%v", tc.name, tc.wantErr, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: want=%q got=%q", tc.name, tc.want, got)
		}
	}
}

func TestScanTotal_CustomMarkerAndCancel(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeWorkbook(t, dir, "10-07.xlsx", [][]any{{"Total"}, {"42"}})

	scanner := workbook.NewScanner("Total", nil)
	got, err := scanner.ScanTotal(context.Background(), path)
	if err != nil || got != "42" {
		t.Fatalf("want=42 got=%q err=%v", got, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := scanner.ScanTotal(ctx, path); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled got %v", err)
	}

	if _, err := scanner.ScanTotal(context.Background(), filepath.Join(dir, "missing.xlsx")); err == nil {
		t.Fatalf("expected error for missing workbook")
	}
}

func TestExportInventory(t *testing.T) {
	t.Parallel()

	qty := 36.0
	half := 0.5
	records := []models.InventoryRecord{
		{Sequence: 1, Name: "三黄鸡", Unit: "斤", Quantity: &qty},
		{Sequence: 2, Name: "葱", Unit: "把", Quantity: &half},
		{Sequence: 3, Name: "备注"},
	}
	data, err := workbook.ExportInventory(records)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("want 4 rows got %d: %v", len(rows), rows)
	}
	if got := rows[0]; len(got) != 4 || got[0] != "序号" || got[3] != "数量" {
		t.Fatalf("unexpected header %v", got)
	}
	if got := rows[1]; got[0] != "1" || got[1] != "三黄鸡" || got[2] != "斤" || got[3] != "36" {
		t.Fatalf("unexpected first row %v", got)
	}
	if got := rows[2]; got[3] != "0.5" {
		t.Fatalf("unexpected half quantity %v", got)
	}
	if got := rows[3]; len(got) != 2 || got[1] != "备注" {
		t.Fatalf("item without quantity should leave unit and quantity blank, got %v", got)
	}
}

func TestExportCalendar_ReadBack(t *testing.T) {
	t.Parallel()

	cal := models.Calendar{
		Entries: []models.CalendarEntry{
			{Date: "2024-02-01", SourceFilename: "02-01.xlsx", Total: "12.5"},
			{Date: "2024-02-02"},
			{Date: "2024-02-03", SourceFilename: "02-03.xlsx", Total: "n/a"},
		},
	}
	data, err := workbook.ExportCalendar(cal)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 4 || rows[0][2] != "合计数据" {
		t.Fatalf("unexpected rows %v", rows)
	}
	if rows[1][2] != "12.5" || rows[3][2] != "n/a" || rows[2][0] != "2024-02-02" {
		t.Fatalf("unexpected body %v", rows)
	}

	// the export itself carries the marker, so it can be rescanned
	total, err := workbook.NewScanner("", nil).ReadTotal(bytes.NewReader(data))
	if err != nil || total != "12.5" {
		t.Fatalf("want=12.5 got=%q err=%v", total, err)
	}
}
