// Package export renders result lists into downloadable formats. Purely a
// presentation transform: nothing here touches task state.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/dropscope/dropscope/internal/domain"
)

const sheetName = "Domains"

// columns is the fixed export layout, shared by the Excel and CSV writers.
var columns = []string{
	"domain",
	"has_snapshot",
	"total_snapshots",
	"timemap_count",
	"first_snapshot",
	"last_snapshot",
	"avg_interval_days",
	"max_gap_days",
	"years_covered",
	"unique_versions",
	"is_good",
	"recommended",
	"primary_category",
	"summary",
	"error",
}

// WriteExcel renders one worksheet with a header row and one row per
// result.
func WriteExcel(w io.Writer, results []domain.DomainResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	for i, header := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("header cell %d: %w", i+1, err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return fmt.Errorf("write header %s: %w", header, err)
		}
	}

	for rowIdx, result := range results {
		for colIdx, value := range rowValues(result) {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return fmt.Errorf("cell for row %d: %w", rowIdx+2, err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return fmt.Errorf("write row %d: %w", rowIdx+2, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// rowValues flattens one result into the column layout. Undefined values
// render as empty cells, not zeros.
func rowValues(result domain.DomainResult) []string {
	row := make([]string, len(columns))
	row[0] = result.DomainName

	if m := result.Metrics; m != nil {
		row[1] = fmt.Sprintf("%t", m.HasSnapshot)
		row[2] = fmt.Sprintf("%d", m.TotalSnapshots)
		row[4] = formatTime(m.FirstSnapshot)
		row[5] = formatTime(m.LastSnapshot)
		if m.AvgIntervalDays != nil {
			row[6] = fmt.Sprintf("%.2f", *m.AvgIntervalDays)
		}
		if m.MaxGapDays != nil {
			row[7] = fmt.Sprintf("%d", *m.MaxGapDays)
		}
		row[8] = fmt.Sprintf("%d", m.YearsCovered)
		if m.UniqueVersions != nil {
			row[9] = fmt.Sprintf("%d", *m.UniqueVersions)
		}
		row[10] = fmt.Sprintf("%t", m.IsGood)
		row[11] = fmt.Sprintf("%t", m.Recommended)
	}

	var errs []string
	if h := result.History; h != nil {
		row[3] = fmt.Sprintf("%d", h.TimemapCount)
		if h.Error != "" {
			errs = append(errs, h.Error)
		}
	}
	if t := result.Thematic; t != nil {
		row[12] = t.PrimaryCategory
		row[13] = t.Summary
		if t.Error != "" {
			errs = append(errs, t.Error)
		}
	}
	row[14] = strings.Join(errs, "; ")
	return row
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}
