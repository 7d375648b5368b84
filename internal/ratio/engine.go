// Package ratio derives financial ratios from validated numeric rows.
// The engine is a pure transform: it never fails for any single row,
// because partial financial data is an expected condition in this
// domain. Every arithmetic edge case resolves to NaN instead.
package ratio

import (
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/freddycharles/ecoscrape/pkg/models"
)

// Engine computes ratios row by row. It holds no state across rows.
type Engine struct {
	log zerolog.Logger
}

// NewEngine creates a ratio engine.
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{log: log.With().Str("phase", "analysis").Logger()}
}

// Compute derives the ratio set for every input row. Per ratio,
// independently: a NaN operand yields NaN, a zero denominator yields NaN
// (logged at warning level), anything else is plain floating-point
// division. The result is never infinite and computation never fails.
// Full precision is retained here; rounding happens at write time only.
func (e *Engine) Compute(rows []models.FinancialRow) []models.RatioRow {
	out := make([]models.RatioRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.RatioRow{
			CompanyName:       row.CompanyName,
			Ticker:            row.Ticker,
			Year:              row.Year,
			CurrentRatio:      e.divide("CurrentRatio", row, row.TotalCurrentAssets, row.TotalCurrentLiabilities),
			DebtToEquityRatio: e.divide("DebtToEquityRatio", row, row.TotalDebt, row.TotalEquity),
			NetProfitMargin:   e.divide("NetProfitMargin", row, row.NetIncome, row.Revenue),
		})
	}
	return out
}

func (e *Engine) divide(name string, row models.FinancialRow, num, den float64) float64 {
	if math.IsNaN(num) || math.IsNaN(den) {
		return math.NaN()
	}
	if den == 0 {
		e.log.Warn().Str("ratio", name).Str("ticker", row.Ticker).Str("year", row.Year).
			Msg("division by zero, setting to NaN")
		return math.NaN()
	}
	v := num / den
	if math.IsInf(v, 0) {
		e.log.Warn().Str("ratio", name).Str("ticker", row.Ticker).Str("year", row.Year).
			Msg("overflow to infinity, setting to NaN")
		return math.NaN()
	}
	return v
}

// NormalizeValue coerces a raw cell into a float64. Textual zero/blank
// markers ("-", "") and anything that fails best-effort numeric parsing
// become NaN. Thousands separators are tolerated.
func NormalizeValue(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" || s == "-" {
		return math.NaN()
	}
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
