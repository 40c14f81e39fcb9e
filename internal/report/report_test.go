package report_test

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/ggproduction/onboarding/internal/report"
)

func TestWriteProgressWorkbook(t *testing.T) {
	rows := []report.LearnerRow{
		{Rank: 1, Name: "Ana Dealer", Email: "ana@example.com", Department: "Floor", Points: 120, CompletedLessons: 6, TotalLessons: 8, Percentage: 75},
		{Rank: 2, Name: "Ben Croupier", Email: "ben@example.com", Points: 40, CompletedLessons: 2, TotalLessons: 8, Percentage: 25},
	}

	var buf bytes.Buffer
	if err := report.WriteProgressWorkbook(&buf, rows); err != nil {
		t.Fatalf("WriteProgressWorkbook() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	if got := f.GetSheetName(0); got != report.SheetName {
		t.Errorf("sheet name = %q, want %q", got, report.SheetName)
	}
	got, err := f.GetRows(report.SheetName)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("rows = %d, want 3", len(got))
	}
	if got[0][0] != "Rank" || got[0][7] != "Progress %" {
		t.Errorf("header = %v", got[0])
	}

	tests := []struct {
		row, col int
		want     string
	}{
		{1, 0, "1"},
		{1, 1, "Ana Dealer"},
		{1, 4, "120"},
		{1, 7, "75"},
		{2, 1, "Ben Croupier"},
		{2, 3, ""},
		{2, 5, "2"},
	}
	for _, tt := range tests {
		r := got[tt.row]
		var cell string
		if tt.col < len(r) {
			cell = r[tt.col]
		}
		if cell != tt.want {
			t.Errorf("cell (%d,%d) = %q, want %q", tt.row, tt.col, cell, tt.want)
		}
	}
}

func TestProgressWorkbook_Empty(t *testing.T) {
	f, err := report.ProgressWorkbook(nil)
	if err != nil {
		t.Fatalf("ProgressWorkbook() error = %v", err)
	}
	defer f.Close()

	got, err := f.GetRows(report.SheetName)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("rows = %d, want header only", len(got))
	}
}
