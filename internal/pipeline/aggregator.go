// Package pipeline loads transaction history and aggregates it into spending
// reports.
package pipeline

import (
	"sort"
	"time"

	"github.com/theirongolddev/budget/internal/model"

	"github.com/shopspring/decimal"
)

// Uncategorized labels transactions without a category.
const Uncategorized = "Uncategorized"

// Aggregate computes summary statistics from transactions dated within
// [since, until).
func Aggregate(txs []model.Transaction, since, until time.Time) model.SpendSummary {
	filtered := FilterByTime(txs, since, until)

	var stats model.SpendSummary
	activeDays := make(map[string]struct{})

	for _, tx := range filtered {
		stats.Transactions++
		stats.TotalSpent = stats.TotalSpent.Add(tx.Amount)
		if tx.Amount.GreaterThan(stats.Largest) {
			stats.Largest = tx.Amount
		}
		if tx.IsRecurring {
			stats.RecurringPart = stats.RecurringPart.Add(tx.Amount)
		}
		activeDays[dayKey(tx.TransactionDate.Time)] = struct{}{}
	}

	stats.ActiveDays = len(activeDays)
	stats.Days = spanDays(since, until)

	if stats.Days > 0 {
		stats.SpentPerDay = stats.TotalSpent.Div(decimal.NewFromInt(int64(stats.Days))).Round(2)
	}
	if stats.Transactions > 0 {
		stats.AveragePerTx = stats.TotalSpent.Div(decimal.NewFromInt(int64(stats.Transactions))).Round(2)
	}

	return stats
}

// AggregateDays computes per-day spending, most recent first. Every day in the
// range is present so charts show gaps as zeros.
func AggregateDays(txs []model.Transaction, since, until time.Time) []model.DailySpend {
	filtered := FilterByTime(txs, since, until)

	dayMap := make(map[string]*model.DailySpend)

	for _, tx := range filtered {
		key := dayKey(tx.TransactionDate.Time)
		ds, ok := dayMap[key]
		if !ok {
			t, _ := time.ParseInLocation(time.DateOnly, key, time.Local)
			ds = &model.DailySpend{Date: t}
			dayMap[key] = ds
		}
		ds.Transactions++
		ds.Spent = ds.Spent.Add(tx.Amount)
	}

	if !since.IsZero() && !until.IsZero() {
		day := startOfDay(since)
		for day.Before(until) {
			key := day.Format(time.DateOnly)
			if _, ok := dayMap[key]; !ok {
				dayMap[key] = &model.DailySpend{Date: day}
			}
			day = day.AddDate(0, 0, 1)
		}
	}

	days := make([]model.DailySpend, 0, len(dayMap))
	for _, ds := range dayMap {
		days = append(days, *ds)
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Date.After(days[j].Date)
	})

	return days
}

// AggregateCategories computes per-category spending, largest first. names
// maps category IDs to display names.
func AggregateCategories(txs []model.Transaction, names map[string]string, since, until time.Time) []model.CategorySpend {
	filtered := FilterByTime(txs, since, until)

	catMap := make(map[string]*model.CategorySpend)
	total := decimal.Zero

	for _, tx := range filtered {
		cs, ok := catMap[tx.CategoryID]
		if !ok {
			name := names[tx.CategoryID]
			if name == "" {
				name = Uncategorized
			}
			cs = &model.CategorySpend{CategoryID: tx.CategoryID, Name: name}
			catMap[tx.CategoryID] = cs
		}
		cs.Transactions++
		cs.Spent = cs.Spent.Add(tx.Amount)
		total = total.Add(tx.Amount)
	}

	cats := make([]model.CategorySpend, 0, len(catMap))
	for _, cs := range catMap {
		if total.IsPositive() {
			cs.SharePercent = cs.Spent.Div(total).Mul(decimal.NewFromInt(100)).InexactFloat64()
		}
		cats = append(cats, *cs)
	}
	sort.Slice(cats, func(i, j int) bool {
		if !cats[i].Spent.Equal(cats[j].Spent) {
			return cats[i].Spent.GreaterThan(cats[j].Spent)
		}
		return cats[i].Name < cats[j].Name
	})

	return cats
}

// AggregateWeekdays computes spending by day of week, Sunday first.
func AggregateWeekdays(txs []model.Transaction, since, until time.Time) []model.WeekdaySpend {
	filtered := FilterByTime(txs, since, until)

	days := make([]model.WeekdaySpend, 7)
	for i := range days {
		days[i].Weekday = time.Weekday(i)
	}

	for _, tx := range filtered {
		if tx.TransactionDate.IsZero() {
			continue
		}
		wd := tx.TransactionDate.Local().Weekday()
		days[wd].Transactions++
		days[wd].Spent = days[wd].Spent.Add(tx.Amount)
	}
	return days
}

// FilterByTime returns transactions dated within [since, until). Zero bounds
// are open.
func FilterByTime(txs []model.Transaction, since, until time.Time) []model.Transaction {
	if since.IsZero() && until.IsZero() {
		return txs
	}

	var result []model.Transaction
	for _, tx := range txs {
		d := tx.TransactionDate.Time
		if d.IsZero() {
			continue
		}
		if !since.IsZero() && d.Before(since) {
			continue
		}
		if !until.IsZero() && !d.Before(until) {
			continue
		}
		result = append(result, tx)
	}
	return result
}

// FilterByCategory returns transactions in the given category.
func FilterByCategory(txs []model.Transaction, categoryID string) []model.Transaction {
	if categoryID == "" {
		return txs
	}
	var result []model.Transaction
	for _, tx := range txs {
		if tx.CategoryID == categoryID {
			result = append(result, tx)
		}
	}
	return result
}

func dayKey(t time.Time) string {
	return t.Local().Format(time.DateOnly)
}

func startOfDay(t time.Time) time.Time {
	l := t.Local()
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, time.Local)
}

func spanDays(since, until time.Time) int {
	if since.IsZero() || until.IsZero() || !until.After(since) {
		return 0
	}
	n := 0
	for day := startOfDay(since); day.Before(until); day = day.AddDate(0, 0, 1) {
		n++
	}
	return n
}
