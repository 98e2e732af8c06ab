package model

import "github.com/shopspring/decimal"

// Recommendation is a suggested monthly limit for one category. CategoryID
// is empty when the suggestion names a category the user does not have.
type Recommendation struct {
	CategoryID       string          `json:"category_id,omitempty"`
	CategoryName     string          `json:"category_name"`
	RecommendedLimit decimal.Decimal `json:"recommended_limit"`
	Reasoning        string          `json:"reasoning"`
}

// Analysis is the assistant's review of recent spending.
type Analysis struct {
	Recommendations []Recommendation `json:"recommendations"`
	Patterns        []string         `json:"patterns"`
	Suggestions     []string         `json:"suggestions"`
}

// LifeEventInput records a change in circumstances (a move, a new job, a
// child) so the assistant can adjust its advice.
type LifeEventInput struct {
	EventType   string `json:"event_type"`
	EventDate   string `json:"event_date"`
	Description string `json:"description,omitempty"`
}

// LifeEvent is a recorded LifeEventInput.
type LifeEvent struct {
	ID          string    `json:"id"`
	EventType   string    `json:"event_type"`
	EventDate   string    `json:"event_date"`
	Description string    `json:"description,omitempty"`
	CreatedAt   Timestamp `json:"created_at"`
}
