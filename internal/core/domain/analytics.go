package domain

import "time"

// DailyAggregate is a derived per-day rollup keyed by
// (date, currency, category). TotalAmount carries the signed sum of entry
// amounts; increments are commutative and rebuildable from the ledger.
type DailyAggregate struct {
	Date        time.Time           `json:"date"` // UTC day, truncated
	Currency    CurrencyKind        `json:"currency"`
	Category    TransactionCategory `json:"category"`
	TxCount     int64               `json:"total_transactions"`
	TotalAmount int64               `json:"total_amount"`
}

// CategoryBreakdown is one category line inside a daily report.
type CategoryBreakdown struct {
	Category TransactionCategory `json:"type"`
	Count    int64               `json:"count"`
	Amount   int64               `json:"amount"`
}

// DailyReport summarizes one currency for one day.
type DailyReport struct {
	Date        time.Time           `json:"date"`
	Currency    CurrencyKind        `json:"currency"`
	TotalEarned int64               `json:"total_earned"`
	TotalSpent  int64               `json:"total_spent"` // absolute value
	NetChange   int64               `json:"net_change"`
	UniqueUsers int64               `json:"unique_users"`
	Categories  []CategoryBreakdown `json:"transactions"`
}

// CirculationStats describes one currency's circulation.
type CirculationStats struct {
	TotalInCirculation int64   `json:"total_in_circulation"`
	AveragePerUser     float64 `json:"average_per_user"`
	Holders            int64   `json:"-"`
}

// EconomyHealth is the operator-facing snapshot of the whole economy.
// All figures are best effort and may lag in-flight mutations.
type EconomyHealth struct {
	Soft struct {
		CirculationStats
		DailyEarnRate  int64   `json:"daily_earn_rate"`
		DailySpendRate int64   `json:"daily_spend_rate"`
		InflationRate  float64 `json:"inflation_rate"` // percent
	} `json:"soft_currency"`
	Premium struct {
		CirculationStats
		AdoptionRate float64 `json:"conversion_rate"` // percent of soft holders
	} `json:"premium_currency"`
	Engagement struct {
		ActiveEarners       int64 `json:"active_earners"`
		ActiveSpenders      int64 `json:"active_spenders"`
		TransactionVelocity int64 `json:"transaction_velocity"`
	} `json:"engagement"`
}

// PackageRevenue is one catalog entry's contribution to a revenue report.
type PackageRevenue struct {
	PackageID string  `json:"package_id"`
	Count     int64   `json:"count"`
	Revenue   float64 `json:"revenue"`
}

// RevenueReport summarizes completed purchases over a window.
type RevenueReport struct {
	Period             string           `json:"period"`
	TotalRevenue       float64          `json:"total_revenue"`
	TotalPurchases     int64            `json:"total_purchases"`
	UniqueBuyers       int64            `json:"unique_buyers"`
	AverageTransaction float64          `json:"average_transaction"`
	Packages           []PackageRevenue `json:"package_breakdown"`
}

// CurrencyFlow is a per-day earned/spent/net series for one currency.
type CurrencyFlow struct {
	Dates  []string `json:"dates"`
	Earned []int64  `json:"earned"`
	Spent  []int64  `json:"spent"`
	Net    []int64  `json:"net"`
}
