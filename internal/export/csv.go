package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/i474232898/pws-history/internal/weather"
)

// Separator is the CSV field delimiter; spreadsheet locales that use a
// decimal comma expect semicolons.
const Separator = ';'

// WriteCSV renders rows and writes them as CSV, header first.
func WriteCSV(w io.Writer, rows []weather.CanonicalRow) error {
	table := BuildTable(rows)

	cw := csv.NewWriter(w)
	cw.Comma = Separator
	if err := gocsv.MarshalCSV(&table, gocsv.NewSafeCSVWriter(cw)); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
