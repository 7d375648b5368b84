package ratio

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/freddycharles/ecoscrape/pkg/models"
)

// RequiredColumns is the exact column set the financial facts table must
// carry. A missing column is a whole-run error raised before any row is
// processed.
var RequiredColumns = []string{
	"CompanyName", "Ticker", "Year",
	"TotalCurrentAssets", "TotalCurrentLiabilities",
	"TotalDebt", "TotalEquity",
	"Revenue", "NetIncome",
}

// OutputColumns is the ratio results file header.
var OutputColumns = []string{
	"CompanyName", "Ticker", "Year",
	"CurrentRatio", "DebtToEquityRatio", "NetProfitMargin",
}

// ErrMissingColumns reports required columns absent from the input.
type ErrMissingColumns struct {
	Path    string
	Columns []string
}

func (e *ErrMissingColumns) Error() string {
	return fmt.Sprintf("input %s is missing required columns: %s",
		e.Path, strings.Join(e.Columns, ", "))
}

// LoadFinancials reads and normalizes the financial facts table. Column
// order in the file is free; identification is by header name. Numeric
// cells go through NormalizeValue, so blanks, "-" markers and junk all
// land as NaN rather than errors.
func LoadFinancials(path string, log zerolog.Logger) ([]models.FinancialRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse input %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("input %s is empty", path)
	}

	idx := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		idx[strings.TrimSpace(name)] = i
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &ErrMissingColumns{Path: path, Columns: missing}
	}

	cell := func(rec []string, col string) string {
		i := idx[col]
		if i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	numeric := func(rec []string, col, ticker, year string) float64 {
		v := NormalizeValue(cell(rec, col))
		if math.IsNaN(v) && cell(rec, col) != "" && cell(rec, col) != "-" {
			log.Warn().Str("phase", "analysis").Str("column", col).
				Str("ticker", ticker).Str("year", year).
				Msg("non-numeric value coerced to NaN")
		}
		return v
	}

	rows := make([]models.FinancialRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		ticker := cell(rec, "Ticker")
		year := cell(rec, "Year")
		rows = append(rows, models.FinancialRow{
			CompanyName:             cell(rec, "CompanyName"),
			Ticker:                  ticker,
			Year:                    year,
			TotalCurrentAssets:      numeric(rec, "TotalCurrentAssets", ticker, year),
			TotalCurrentLiabilities: numeric(rec, "TotalCurrentLiabilities", ticker, year),
			TotalDebt:               numeric(rec, "TotalDebt", ticker, year),
			TotalEquity:             numeric(rec, "TotalEquity", ticker, year),
			Revenue:                 numeric(rec, "Revenue", ticker, year),
			NetIncome:               numeric(rec, "NetIncome", ticker, year),
		})
	}
	return rows, nil
}

// WriteRatios writes the results file, fully overwriting any previous
// run. Floats are rounded to 4 decimals here and only here; NaN becomes
// an empty field.
func WriteRatios(path string, rows []models.RatioRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(OutputColumns); err != nil {
		return fmt.Errorf("write header %s: %w", path, err)
	}
	for _, row := range rows {
		rec := []string{
			row.CompanyName,
			row.Ticker,
			row.Year,
			formatRatio(row.CurrentRatio),
			formatRatio(row.DebtToEquityRatio),
			formatRatio(row.NetProfitMargin),
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write row %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return nil
}

func formatRatio(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}
