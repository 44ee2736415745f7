package analyzer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rewired-gh/fxcorr/internal/models"
)

// Export file names written by ExportCSV.
const (
	CurrencyCSV = "exchange_rates.csv"
	EquityCSV   = "stock_prices.csv"
)

// WriteCSV writes table in wide form: a Date column followed by one column
// per instrument. Days missing from a series are left blank.
func WriteCSV(w io.Writer, table models.PriceTable) error {
	cw := csv.NewWriter(w)

	header := append([]string{"Date"}, table.Instruments()...)
	if err := cw.Write(header); err != nil {
		return err
	}

	columns := make([]map[time.Time]float64, len(table.Series))
	for i, s := range table.Series {
		columns[i] = make(map[time.Time]float64, len(s.Points))
		for _, p := range s.Points {
			columns[i][models.Day(p.Date)] = p.Close
		}
	}

	for _, d := range table.Dates() {
		row := make([]string, 0, len(header))
		row = append(row, d.Format(models.DateLayout))
		for _, col := range columns {
			if v, ok := col[d]; ok {
				row = append(row, strconv.FormatFloat(v, 'f', -1, 64))
			} else {
				row = append(row, "")
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ExportCSV writes the report's currency and equity price tables into dir.
func ExportCSV(dir string, report *Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	files := []struct {
		name  string
		table models.PriceTable
	}{
		{CurrencyCSV, report.Currencies},
		{EquityCSV, report.Equities},
	}
	for _, f := range files {
		if err := writeFile(filepath.Join(dir, f.name), f.table); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, table models.PriceTable) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteCSV(out, table); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return out.Close()
}
