package model

import "github.com/shopspring/decimal"

// BudgetStatus is the server's per-category spend against a monthly limit.
// PercentageUsed is what the server reports; the client recomputes it.
type BudgetStatus struct {
	CategoryID     string          `json:"category_id"`
	CategoryName   string          `json:"category_name"`
	BudgetLimit    decimal.Decimal `json:"budget_limit"`
	Spent          decimal.Decimal `json:"spent"`
	Remaining      decimal.Decimal `json:"remaining"`
	PercentageUsed float64         `json:"percentage_used"`
}

// Budget is a configured monthly limit for one category.
type Budget struct {
	ID              string          `json:"id"`
	CategoryID      string          `json:"category_id"`
	MonthlyLimit    decimal.Decimal `json:"monthly_limit"`
	BudgetPeriod    string          `json:"budget_period"`
	RolloverEnabled bool            `json:"rollover_enabled"`
}

// BudgetInput creates or updates a budget.
type BudgetInput struct {
	CategoryID      string          `json:"category_id"`
	MonthlyLimit    decimal.Decimal `json:"monthly_limit"`
	BudgetPeriod    string          `json:"budget_period,omitempty"`
	RolloverEnabled bool            `json:"rollover_enabled"`
}

// Category groups transactions and budgets.
type Category struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Icon      string `json:"icon,omitempty"`
	Color     string `json:"color,omitempty"`
	IsDefault bool   `json:"is_default"`
}
