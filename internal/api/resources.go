package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/budget/internal/model"
)

// Profile returns the authenticated user's identity.
func (c *Client) Profile(ctx context.Context) (model.User, error) {
	var u model.User
	if err := c.get(ctx, "/api/user/profile", nil, &u); err != nil {
		return model.User{}, err
	}
	if err := validateUser(&u); err != nil {
		return model.User{}, malformed("profile", err)
	}
	return u, nil
}

// FinancialProfile returns the user's financial profile. A user who never
// filled one in gets ErrNotFound.
func (c *Client) FinancialProfile(ctx context.Context) (model.FinancialProfile, error) {
	var p model.FinancialProfile
	if err := c.get(ctx, "/api/user/financial-profile", nil, &p); err != nil {
		return model.FinancialProfile{}, err
	}
	if err := validateFinancialProfile(&p); err != nil {
		return model.FinancialProfile{}, malformed("financial profile", err)
	}
	return p, nil
}

// UpdateFinancialProfile writes the set fields of in and returns the stored
// profile. An empty Currency is rejected, since the service would reset it.
func (c *Client) UpdateFinancialProfile(ctx context.Context, in model.FinancialProfileInput) (model.FinancialProfile, error) {
	if in.Currency == "" {
		return model.FinancialProfile{}, fmt.Errorf("%w: currency is required", ErrInvalidInput)
	}
	for _, f := range []struct {
		name string
		v    *decimal.Decimal
	}{{"monthly income", in.MonthlyIncome}, {"current savings", in.CurrentSavings}} {
		if f.v != nil && f.v.IsNegative() {
			return model.FinancialProfile{}, fmt.Errorf("%w: negative %s %s", ErrInvalidInput, f.name, f.v)
		}
	}
	var p model.FinancialProfile
	if err := c.send(ctx, http.MethodPut, "/api/user/financial-profile", in, &p); err != nil {
		return model.FinancialProfile{}, err
	}
	if err := validateFinancialProfile(&p); err != nil {
		return model.FinancialProfile{}, malformed("financial profile", err)
	}
	return p, nil
}

// BudgetStatus returns per-category spend against limits for the current
// period.
func (c *Client) BudgetStatus(ctx context.Context) ([]model.BudgetStatus, error) {
	var out []model.BudgetStatus
	if err := c.get(ctx, "/api/budget/status", nil, &out); err != nil {
		return nil, err
	}
	if err := validateEach("budget status", out, validateBudgetStatus); err != nil {
		return nil, err
	}
	return out, nil
}

// Budgets lists configured budgets.
func (c *Client) Budgets(ctx context.Context) ([]model.Budget, error) {
	var out []model.Budget
	if err := c.get(ctx, "/api/budget", nil, &out); err != nil {
		return nil, err
	}
	if err := validateEach("budget", out, validateBudget); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateBudget adds a budget for a category.
func (c *Client) CreateBudget(ctx context.Context, in model.BudgetInput) (model.Budget, error) {
	if err := checkID("category", in.CategoryID); err != nil {
		return model.Budget{}, err
	}
	var b model.Budget
	if err := c.send(ctx, http.MethodPost, "/api/budget", in, &b); err != nil {
		return model.Budget{}, err
	}
	if err := validateBudget(&b); err != nil {
		return model.Budget{}, malformed("budget", err)
	}
	return b, nil
}

// UpdateBudget changes an existing budget.
func (c *Client) UpdateBudget(ctx context.Context, id string, in model.BudgetInput) (model.Budget, error) {
	path, err := resourcePath("budget", "/api/budget", id)
	if err != nil {
		return model.Budget{}, err
	}
	var b model.Budget
	if err := c.send(ctx, http.MethodPut, path, in, &b); err != nil {
		return model.Budget{}, err
	}
	if err := validateBudget(&b); err != nil {
		return model.Budget{}, malformed("budget", err)
	}
	return b, nil
}

// DeleteBudget removes a budget.
func (c *Client) DeleteBudget(ctx context.Context, id string) error {
	path, err := resourcePath("budget", "/api/budget", id)
	if err != nil {
		return err
	}
	return c.send(ctx, http.MethodDelete, path, nil, nil)
}

// Categories lists the user's categories, defaults included.
func (c *Client) Categories(ctx context.Context) ([]model.Category, error) {
	var out []model.Category
	if err := c.get(ctx, "/api/budget/category", nil, &out); err != nil {
		return nil, err
	}
	if err := validateEach("category", out, validateCategory); err != nil {
		return nil, err
	}
	return out, nil
}

// TransactionSummary returns aggregate spend for the current period.
func (c *Client) TransactionSummary(ctx context.Context) (model.TransactionSummary, error) {
	var s model.TransactionSummary
	if err := c.get(ctx, "/api/transactions/summary/summary", nil, &s); err != nil {
		return model.TransactionSummary{}, err
	}
	if err := validateSummary(&s); err != nil {
		return model.TransactionSummary{}, malformed("summary", err)
	}
	return s, nil
}

// Transactions lists transactions, newest first.
func (c *Client) Transactions(ctx context.Context, f model.TransactionFilter) ([]model.Transaction, error) {
	q := url.Values{}
	if f.CategoryID != "" {
		if err := checkID("category", f.CategoryID); err != nil {
			return nil, err
		}
		q.Set("category_id", f.CategoryID)
	}
	if f.Since != "" {
		q.Set("start_date", f.Since)
	}
	if f.Until != "" {
		q.Set("end_date", f.Until)
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Offset > 0 {
		q.Set("offset", strconv.Itoa(f.Offset))
	}

	var out []model.Transaction
	if err := c.get(ctx, "/api/transactions", q, &out); err != nil {
		return nil, err
	}
	if err := validateEach("transaction", out, validateTransaction); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateTransaction records a transaction.
func (c *Client) CreateTransaction(ctx context.Context, in model.TransactionInput) (model.Transaction, error) {
	if in.CategoryID != "" {
		if err := checkID("category", in.CategoryID); err != nil {
			return model.Transaction{}, err
		}
	}
	var t model.Transaction
	if err := c.send(ctx, http.MethodPost, "/api/transactions", in, &t); err != nil {
		return model.Transaction{}, err
	}
	if err := validateTransaction(&t); err != nil {
		return model.Transaction{}, malformed("transaction", err)
	}
	return t, nil
}

// DeleteTransaction removes a transaction.
func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	path, err := resourcePath("transaction", "/api/transactions", id)
	if err != nil {
		return err
	}
	return c.send(ctx, http.MethodDelete, path, nil, nil)
}

// Alerts lists alerts newest first, optionally only unread ones.
func (c *Client) Alerts(ctx context.Context, unreadOnly bool) ([]model.Alert, error) {
	var q url.Values
	if unreadOnly {
		q = url.Values{"unread_only": {"true"}}
	}
	var out []model.Alert
	if err := c.get(ctx, "/api/alerts", q, &out); err != nil {
		return nil, err
	}
	if err := validateEach("alert", out, validateAlert); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkAlertRead marks one alert read and returns its updated form.
func (c *Client) MarkAlertRead(ctx context.Context, id string) (model.Alert, error) {
	path, err := resourcePath("alert", "/api/alerts", id, "read")
	if err != nil {
		return model.Alert{}, err
	}
	var a model.Alert
	if err := c.send(ctx, http.MethodPut, path, nil, &a); err != nil {
		return model.Alert{}, err
	}
	if err := validateAlert(&a); err != nil {
		return model.Alert{}, malformed("alert", err)
	}
	return a, nil
}

// DismissAlert deletes an alert.
func (c *Client) DismissAlert(ctx context.Context, id string) error {
	path, err := resourcePath("alert", "/api/alerts", id)
	if err != nil {
		return err
	}
	return c.send(ctx, http.MethodDelete, path, nil, nil)
}

// AlertPreferences returns the user's notification settings.
func (c *Client) AlertPreferences(ctx context.Context) (model.AlertPreferences, error) {
	var p model.AlertPreferences
	if err := c.get(ctx, "/api/alerts/preferences", nil, &p); err != nil {
		return model.AlertPreferences{}, err
	}
	if err := validatePreferences(&p); err != nil {
		return model.AlertPreferences{}, malformed("alert preferences", err)
	}
	return p, nil
}

// UpdateAlertPreferences changes the set fields of upd and returns the
// resulting settings. When both thresholds are set, warning must not exceed
// critical.
func (c *Client) UpdateAlertPreferences(ctx context.Context, upd model.AlertPreferencesUpdate) (model.AlertPreferences, error) {
	var errs []error
	if upd.WarningThreshold != nil {
		errs = append(errs, validThreshold("warning_threshold", *upd.WarningThreshold))
	}
	if upd.CriticalThreshold != nil {
		errs = append(errs, validThreshold("critical_threshold", *upd.CriticalThreshold))
	}
	if upd.WarningThreshold != nil && upd.CriticalThreshold != nil && *upd.WarningThreshold > *upd.CriticalThreshold {
		errs = append(errs, fmt.Errorf("warning_threshold %v above critical_threshold %v", *upd.WarningThreshold, *upd.CriticalThreshold))
	}
	if err := errors.Join(errs...); err != nil {
		return model.AlertPreferences{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var p model.AlertPreferences
	if err := c.send(ctx, http.MethodPut, "/api/alerts/preferences", upd, &p); err != nil {
		return model.AlertPreferences{}, err
	}
	if err := validatePreferences(&p); err != nil {
		return model.AlertPreferences{}, malformed("alert preferences", err)
	}
	return p, nil
}

// Insights lists generated insights newest first.
func (c *Client) Insights(ctx context.Context) ([]model.Insight, error) {
	var out []model.Insight
	if err := c.get(ctx, "/api/ai/insights", nil, &out); err != nil {
		return nil, err
	}
	if err := validateEach("insight", out, validateInsight); err != nil {
		return nil, err
	}
	return out, nil
}
