package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SpendSummary holds the top-level aggregate across a set of transactions.
type SpendSummary struct {
	TotalSpent   decimal.Decimal
	Transactions int
	ActiveDays   int
	Days         int

	SpentPerDay   decimal.Decimal
	AveragePerTx  decimal.Decimal
	Largest       decimal.Decimal
	RecurringPart decimal.Decimal
}

// DailySpend holds spending for a single calendar day.
type DailySpend struct {
	Date         time.Time
	Spent        decimal.Decimal
	Transactions int
}

// CategorySpend holds spending for a single category.
type CategorySpend struct {
	CategoryID   string
	Name         string
	Spent        decimal.Decimal
	Transactions int
	SharePercent float64
}

// WeekdaySpend holds spending by day of week.
type WeekdaySpend struct {
	Weekday      time.Weekday
	Spent        decimal.Decimal
	Transactions int
}
