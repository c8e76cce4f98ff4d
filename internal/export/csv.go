package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/dropscope/dropscope/internal/domain"
)

// WriteCSV renders the same column layout as the Excel export as
// comma-delimited text.
func WriteCSV(w io.Writer, results []domain.DomainResult) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, result := range results {
		if err := cw.Write(rowValues(result)); err != nil {
			return fmt.Errorf("write row for %s: %w", result.DomainName, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
