package model

import "github.com/shopspring/decimal"

// Credentials is the access/refresh token pair issued by the auth endpoints.
// Both values are opaque to the client.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`
}

// Empty reports whether no access token is present.
func (c Credentials) Empty() bool {
	return c.AccessToken == ""
}

// User is the authenticated identity returned by the profile endpoint.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt Timestamp `json:"created_at"`
}

// FinancialProfile is the optional per-user financial context. Monetary
// fields are nil when the user has not filled them in.
type FinancialProfile struct {
	ID             string           `json:"id"`
	MonthlyIncome  *decimal.Decimal `json:"monthly_income,omitempty"`
	CurrentSavings *decimal.Decimal `json:"current_savings,omitempty"`
	FinancialGoals string           `json:"financial_goals,omitempty"`
	Currency       string           `json:"currency"`
}

// FinancialProfileInput updates a financial profile. Nil fields are left
// unchanged by the server, but Currency is always written, so callers must
// carry the current value forward to keep it.
type FinancialProfileInput struct {
	MonthlyIncome  *decimal.Decimal `json:"monthly_income,omitempty"`
	CurrentSavings *decimal.Decimal `json:"current_savings,omitempty"`
	FinancialGoals *string          `json:"financial_goals,omitempty"`
	Currency       string           `json:"currency"`
}

// Registration is the payload for creating a new account.
type Registration struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password"`
}
