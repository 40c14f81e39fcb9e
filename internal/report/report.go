// Package report builds spreadsheet exports for trainers and admins.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet holding the progress report.
const SheetName = "Leaderboard"

// ContentType is the MIME type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var header = []any{"Rank", "Name", "Email", "Department", "Points", "Completed Lessons", "Total Lessons", "Progress %"}

// LearnerRow is one learner's line in the progress report.
type LearnerRow struct {
	Rank             int
	Name             string
	Email            string
	Department       string
	Points           int
	CompletedLessons int
	TotalLessons     int
	Percentage       int
}

// ProgressWorkbook lays rows out on the Leaderboard sheet in the given order.
// The caller closes the returned file.
func ProgressWorkbook(rows []LearnerRow) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := fill(f, rows); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func fill(f *excelize.File, rows []LearnerRow) error {
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{r.Rank, r.Name, r.Email, r.Department, r.Points, r.CompletedLessons, r.TotalLessons, r.Percentage}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(SheetName, "B", "D", 28); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	return f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// WriteProgressWorkbook renders rows as an .xlsx document to w.
func WriteProgressWorkbook(w io.Writer, rows []LearnerRow) error {
	f, err := ProgressWorkbook(rows)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
