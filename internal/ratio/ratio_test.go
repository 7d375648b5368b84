package ratio

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/freddycharles/ecoscrape/pkg/models"
)

func approx(got, want float64) bool {
	return math.Abs(got-want) < 1e-4
}

func TestComputeKnownScenario(t *testing.T) {
	e := NewEngine(zerolog.Nop())
	rows := []models.FinancialRow{{
		CompanyName:             "Apple Inc.",
		Ticker:                  "AAPL",
		Year:                    "2023",
		TotalCurrentAssets:      143566,
		TotalCurrentLiabilities: 145308,
		TotalDebt:               111088,
		TotalEquity:             62146,
		Revenue:                 383285,
		NetIncome:               96995,
	}}

	out := e.Compute(rows)
	if len(out) != 1 {
		t.Fatalf("got %d rows, want 1", len(out))
	}
	r := out[0]
	if !approx(r.CurrentRatio, 0.9880) {
		t.Errorf("CurrentRatio = %.4f, want 0.9880", r.CurrentRatio)
	}
	if !approx(r.DebtToEquityRatio, 1.7875) {
		t.Errorf("DebtToEquityRatio = %.4f, want 1.7875", r.DebtToEquityRatio)
	}
	if !approx(r.NetProfitMargin, 0.2530) {
		t.Errorf("NetProfitMargin = %.4f, want 0.2530", r.NetProfitMargin)
	}
}

func TestComputeZeroDenominator(t *testing.T) {
	e := NewEngine(zerolog.Nop())
	out := e.Compute([]models.FinancialRow{{
		Ticker:                  "ZRO",
		TotalCurrentAssets:      100,
		TotalCurrentLiabilities: 0,
		TotalDebt:               50,
		TotalEquity:             25,
		Revenue:                 10,
		NetIncome:               1,
	}})

	r := out[0]
	if !math.IsNaN(r.CurrentRatio) {
		t.Errorf("CurrentRatio = %v, want NaN for zero denominator", r.CurrentRatio)
	}
	if math.IsInf(r.CurrentRatio, 0) {
		t.Error("ratio must never be infinite")
	}
	// Other ratios are computed independently.
	if math.IsNaN(r.DebtToEquityRatio) || !approx(r.DebtToEquityRatio, 2.0) {
		t.Errorf("DebtToEquityRatio = %v, want 2.0", r.DebtToEquityRatio)
	}
}

func TestComputeOverflowBecomesNaN(t *testing.T) {
	e := NewEngine(zerolog.Nop())
	out := e.Compute([]models.FinancialRow{{
		Ticker:                  "OVF",
		TotalCurrentAssets:      1e308,
		TotalCurrentLiabilities: 1e-10,
		TotalDebt:               -1e308,
		TotalEquity:             1e-10,
		Revenue:                 4,
		NetIncome:               1,
	}})

	r := out[0]
	if !math.IsNaN(r.CurrentRatio) {
		t.Errorf("CurrentRatio = %v, want NaN for overflowing division", r.CurrentRatio)
	}
	if !math.IsNaN(r.DebtToEquityRatio) {
		t.Errorf("DebtToEquityRatio = %v, want NaN for negative overflow", r.DebtToEquityRatio)
	}
	// An overflowing ratio must not leak into the output file either.
	if got := formatRatio(r.CurrentRatio); got != "" {
		t.Errorf("formatRatio(overflow) = %q, want empty field", got)
	}
	if !approx(r.NetProfitMargin, 0.25) {
		t.Errorf("NetProfitMargin = %v, want 0.25", r.NetProfitMargin)
	}
}

func TestComputeNaNOperandPropagates(t *testing.T) {
	e := NewEngine(zerolog.Nop())
	nan := math.NaN()
	out := e.Compute([]models.FinancialRow{{
		Ticker:                  "MIS",
		TotalCurrentAssets:      nan,
		TotalCurrentLiabilities: 10,
		TotalDebt:               nan,
		TotalEquity:             nan,
		Revenue:                 nan,
		NetIncome:               nan,
	}})

	r := out[0]
	if !math.IsNaN(r.CurrentRatio) || !math.IsNaN(r.DebtToEquityRatio) || !math.IsNaN(r.NetProfitMargin) {
		t.Errorf("all ratios must be NaN when operands are NaN: %+v", r)
	}
}

func TestNormalizeValue(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		nan  bool
	}{
		{"123.45", 123.45, false},
		{" 1,234,567 ", 1234567, false},
		{"-42", -42, false},
		{"-", 0, true},
		{"", 0, true},
		{"  ", 0, true},
		{"N/A", 0, true},
		{"abc", 0, true},
	}
	for _, c := range cases {
		got := NormalizeValue(c.in)
		if c.nan != math.IsNaN(got) || (!c.nan && got != c.want) {
			t.Errorf("NormalizeValue(%q) = %v, want %v (nan=%v)", c.in, got, c.want, c.nan)
		}
	}
}

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input_financials.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFinancials(t *testing.T) {
	path := writeInput(t, strings.Join([]string{
		"CompanyName,Ticker,Year,TotalCurrentAssets,TotalCurrentLiabilities,TotalDebt,TotalEquity,Revenue,NetIncome",
		"Apple Inc.,AAPL,2023,143566,145308,111088,62146,383285,96995",
		`Holdings Co,HLD,2023,"1,000",-,,500,junk,10`,
	}, "\n"))

	rows, err := LoadFinancials(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("LoadFinancials: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].Ticker != "AAPL" || rows[0].TotalCurrentAssets != 143566 {
		t.Errorf("row 0 = %+v", rows[0])
	}

	h := rows[1]
	if h.TotalCurrentAssets != 1000 {
		t.Errorf("comma-grouped value = %v, want 1000", h.TotalCurrentAssets)
	}
	if !math.IsNaN(h.TotalCurrentLiabilities) {
		t.Errorf(`"-" marker should be NaN, got %v`, h.TotalCurrentLiabilities)
	}
	if !math.IsNaN(h.TotalDebt) {
		t.Errorf("blank should be NaN, got %v", h.TotalDebt)
	}
	if !math.IsNaN(h.Revenue) {
		t.Errorf("junk should coerce to NaN, got %v", h.Revenue)
	}
}

func TestLoadFinancialsMissingColumns(t *testing.T) {
	path := writeInput(t, strings.Join([]string{
		"CompanyName,Ticker,Year,Revenue,NetIncome",
		"Apple Inc.,AAPL,2023,383285,96995",
	}, "\n"))

	_, err := LoadFinancials(path, zerolog.Nop())
	var mc *ErrMissingColumns
	if !errors.As(err, &mc) {
		t.Fatalf("expected ErrMissingColumns, got %v", err)
	}
	if len(mc.Columns) != 4 {
		t.Errorf("missing columns = %v, want the 4 absent numeric columns", mc.Columns)
	}
}

func TestLoadFinancialsMissingFile(t *testing.T) {
	if _, err := LoadFinancials(filepath.Join(t.TempDir(), "nope.csv"), zerolog.Nop()); err == nil {
		t.Error("expected error for missing input file")
	}
}

func TestWriteRatiosOverwritesAndRounds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output_ratios.csv")
	rows := []models.RatioRow{
		{CompanyName: "Apple Inc.", Ticker: "AAPL", Year: "2023",
			CurrentRatio: 0.98801222, DebtToEquityRatio: 1.78752936, NetProfitMargin: 0.25306123},
		{CompanyName: "Zero Co", Ticker: "ZRO", Year: "2023",
			CurrentRatio: math.NaN(), DebtToEquityRatio: 2, NetProfitMargin: math.NaN()},
	}

	// Write twice; the file must be overwritten, not appended.
	if err := WriteRatios(path, rows); err != nil {
		t.Fatal(err)
	}
	if err := WriteRatios(path, rows); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2 rows (overwrite, not append)", len(lines))
	}
	if lines[0] != "CompanyName,Ticker,Year,CurrentRatio,DebtToEquityRatio,NetProfitMargin" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "Apple Inc.,AAPL,2023,0.9880,1.7875,0.2531" {
		t.Errorf("row 1 = %q, want 4-decimal rounding", lines[1])
	}
	if lines[2] != "Zero Co,ZRO,2023,,2.0000," {
		t.Errorf("row 2 = %q, want empty fields for NaN", lines[2])
	}
}
