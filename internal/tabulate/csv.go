package tabulate

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteRows writes rows as CSV without a header line.
func WriteRows(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}
