package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/theirongolddev/budget/internal/model"
)

var (
	// ErrInvalidID is returned before any request when a caller passes an
	// ID that is not a UUID.
	ErrInvalidID = errors.New("api: invalid id")
	// ErrInvalidInput is returned before any request for arguments the
	// service would reject.
	ErrInvalidInput = errors.New("api: invalid input")
)

func checkID(kind, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s %q", ErrInvalidID, kind, id)
	}
	return nil
}

func validID(field, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%s %q is not a uuid", field, id)
	}
	return nil
}

func malformed(kind string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrMalformed, kind, err)
}

// validateEach runs fn over every element, reporting the first failure with
// its index.
func validateEach[T any](kind string, items []T, fn func(*T) error) error {
	for i := range items {
		if err := fn(&items[i]); err != nil {
			return malformed(fmt.Sprintf("%s[%d]", kind, i), err)
		}
	}
	return nil
}

func validateCredentials(c *model.Credentials) error {
	if strings.TrimSpace(c.AccessToken) == "" {
		return errors.New("missing access_token")
	}
	return nil
}

func validateUser(u *model.User) error {
	if err := validID("id", u.ID); err != nil {
		return err
	}
	if u.Username == "" {
		return errors.New("missing username")
	}
	return nil
}

func validateFinancialProfile(p *model.FinancialProfile) error {
	if err := validID("id", p.ID); err != nil {
		return err
	}
	if p.Currency == "" {
		p.Currency = "USD"
	}
	return nil
}

func validateBudgetStatus(s *model.BudgetStatus) error {
	if err := validID("category_id", s.CategoryID); err != nil {
		return err
	}
	if s.BudgetLimit.IsNegative() {
		return fmt.Errorf("negative budget_limit %s", s.BudgetLimit)
	}
	return nil
}

func validateBudget(b *model.Budget) error {
	if err := validID("id", b.ID); err != nil {
		return err
	}
	return validID("category_id", b.CategoryID)
}

func validateCategory(c *model.Category) error {
	if err := validID("id", c.ID); err != nil {
		return err
	}
	if c.Name == "" {
		return errors.New("missing name")
	}
	return nil
}

func validateTransaction(t *model.Transaction) error {
	if err := validID("id", t.ID); err != nil {
		return err
	}
	if t.CategoryID != "" {
		if err := validID("category_id", t.CategoryID); err != nil {
			return err
		}
	}
	return nil
}

func validateSummary(s *model.TransactionSummary) error {
	if s.TotalTransactions < 0 {
		return fmt.Errorf("negative total_transactions %d", s.TotalTransactions)
	}
	return nil
}

// validateAlert also fills in the default severity; the field is optional
// on the wire.
func validateAlert(a *model.Alert) error {
	if err := validID("id", a.ID); err != nil {
		return err
	}
	if a.Severity == "" {
		a.Severity = model.SeverityInfo
	}
	if !a.Severity.Valid() {
		return fmt.Errorf("unknown severity %q", a.Severity)
	}
	return nil
}

func validateInsight(i *model.Insight) error {
	return validID("id", i.ID)
}

func validateRecommendation(r *model.Recommendation) error {
	if r.CategoryID != "" {
		if err := validID("category_id", r.CategoryID); err != nil {
			return err
		}
	}
	if r.RecommendedLimit.IsNegative() {
		return fmt.Errorf("negative recommended_limit %s", r.RecommendedLimit)
	}
	return nil
}

func validThreshold(field string, v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%s %v outside [0, 1]", field, v)
	}
	return nil
}

func validatePreferences(p *model.AlertPreferences) error {
	return errors.Join(
		validThreshold("warning_threshold", p.WarningThreshold),
		validThreshold("critical_threshold", p.CriticalThreshold),
	)
}
