package models

// FinancialRow is one normalized row of the externally-produced financial
// facts table. Numeric fields are NaN when the source value was missing,
// blank, or could not be coerced.
type FinancialRow struct {
	CompanyName             string  `json:"company_name"`
	Ticker                  string  `json:"ticker"`
	Year                    string  `json:"year"`
	TotalCurrentAssets      float64 `json:"total_current_assets"`
	TotalCurrentLiabilities float64 `json:"total_current_liabilities"`
	TotalDebt               float64 `json:"total_debt"`
	TotalEquity             float64 `json:"total_equity"`
	Revenue                 float64 `json:"revenue"`
	NetIncome               float64 `json:"net_income"`
}

// RatioRow holds the derived ratios for one input row. A ratio is NaN
// whenever an operand was NaN or the denominator was zero.
type RatioRow struct {
	CompanyName       string  `json:"company_name"`
	Ticker            string  `json:"ticker"`
	Year              string  `json:"year"`
	CurrentRatio      float64 `json:"current_ratio"`
	DebtToEquityRatio float64 `json:"debt_to_equity_ratio"`
	NetProfitMargin   float64 `json:"net_profit_margin"`
}
