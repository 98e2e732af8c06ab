package model

import "github.com/shopspring/decimal"

// Transaction is a single recorded expense.
type Transaction struct {
	ID              string          `json:"id"`
	CategoryID      string          `json:"category_id,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description,omitempty"`
	TransactionDate Timestamp       `json:"transaction_date"`
	PaymentMethod   string          `json:"payment_method,omitempty"`
	IsRecurring     bool            `json:"is_recurring"`
	ReceiptURL      string          `json:"receipt_url,omitempty"`
	CreatedAt       Timestamp       `json:"created_at"`
}

// TransactionInput records a new transaction.
type TransactionInput struct {
	CategoryID      string          `json:"category_id,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description,omitempty"`
	TransactionDate string          `json:"transaction_date"`
	PaymentMethod   string          `json:"payment_method,omitempty"`
	IsRecurring     bool            `json:"is_recurring"`
}

// TransactionFilter narrows a transaction listing. Zero values are omitted,
// so the server's defaults apply (limit 50, offset 0). Since and Until are
// inclusive dates.
type TransactionFilter struct {
	CategoryID string
	Since      string
	Until      string
	Limit      int
	Offset     int
}

// TransactionSummary aggregates spend over the current period.
type TransactionSummary struct {
	TotalSpent        decimal.Decimal            `json:"total_spent"`
	TotalTransactions int                        `json:"total_transactions"`
	CategoryBreakdown map[string]decimal.Decimal `json:"category_breakdown"`
}
