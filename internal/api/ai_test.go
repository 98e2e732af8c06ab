package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/budget/internal/model"
)

const eventID = "c2d8e6f4-5a1b-4c3d-9e7f-1a2b3c4d5e66"

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		t.Errorf("decoding request body: %v", err)
	}
	return body
}

func TestAskPostsQuestion(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/ai/ask" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		if q := decodeBody(t, r)["question"]; q != "Can I afford a holiday?" {
			t.Errorf("question = %v", q)
		}
		_, _ = w.Write([]byte(`{"answer":"Trim dining first."}`))
	}), loggedIn())

	got, err := c.Ask(context.Background(), "  Can I afford a holiday?  ")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if got != "Trim dining first." {
		t.Errorf("answer = %q", got)
	}
}

func TestAskRejectsEmptyQuestionLocally(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) { calls.Add(1) }), loggedIn())
	if _, err := c.Ask(context.Background(), "   "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
	if calls.Load() != 0 {
		t.Error("empty question reached the server")
	}
}

func TestAskUsesAITimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(150 * time.Millisecond)
		_, _ = w.Write([]byte(`{"answer":"ok"}`))
	}))
	t.Cleanup(srv.Close)
	c, err := NewClient(Options{BaseURL: srv.URL, Timeout: 20 * time.Millisecond, AITimeout: 5 * time.Second}, loggedIn())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := c.Ask(context.Background(), "slow?"); err != nil {
		t.Fatalf("Ask under AI timeout: %v", err)
	}
	if _, err := c.Insights(context.Background()); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Insights err = %v, want the regular timeout", err)
	}
}

func TestAnalyzeDecodesRecommendations(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/ai/analyze" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if m := decodeBody(t, r)["months"]; m != float64(3) {
			t.Errorf("months = %v", m)
		}
		_, _ = w.Write([]byte(`{
			"recommendations": [
				{"category_id":"` + categoryID + `","category_name":"Dining","recommended_limit":"180.00","reasoning":"Spend is steady"},
				{"category_name":"Pets","recommended_limit":40.5,"reasoning":"New category"}
			],
			"patterns": ["Weekend dining spikes"],
			"suggestions": ["Cook on Fridays"]
		}`))
	}), loggedIn())

	a, err := c.Analyze(context.Background(), 3)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(a.Recommendations) != 2 || len(a.Patterns) != 1 || len(a.Suggestions) != 1 {
		t.Fatalf("Analysis = %+v", a)
	}
	if !a.Recommendations[0].RecommendedLimit.Equal(decimal.NewFromInt(180)) || a.Recommendations[0].CategoryID != categoryID {
		t.Errorf("first = %+v", a.Recommendations[0])
	}
	if a.Recommendations[1].CategoryID != "" || !a.Recommendations[1].RecommendedLimit.Equal(decimal.RequireFromString("40.5")) {
		t.Errorf("second = %+v", a.Recommendations[1])
	}
}

func TestAnalyzeValidation(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"recommendations":[{"category_id":"nope","category_name":"X","recommended_limit":"1","reasoning":""}],"patterns":[],"suggestions":[]}`))
	}), loggedIn())

	if _, err := c.Analyze(context.Background(), 0); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("months=0 err = %v, want ErrInvalidInput", err)
	}
	if _, err := c.Analyze(context.Background(), 6); !errors.Is(err, ErrMalformed) {
		t.Errorf("bad category_id err = %v, want ErrMalformed", err)
	}
}

func TestLogLifeEvent(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		if body["event_type"] != "new_job" || body["event_date"] != "2026-09-01" || body["description"] != "Raise" {
			t.Errorf("body = %v", body)
		}
		_, _ = w.Write([]byte(`{"id":"` + eventID + `","event_type":"new_job","event_date":"2026-09-01","description":"Raise","created_at":"2026-09-02T10:00:00"}`))
	}), loggedIn())

	ev, err := c.LogLifeEvent(context.Background(), model.LifeEventInput{EventType: "new_job", EventDate: "2026-09-01", Description: "Raise"})
	if err != nil {
		t.Fatalf("LogLifeEvent: %v", err)
	}
	if ev.ID != eventID || ev.CreatedAt.Day() != 2 {
		t.Errorf("event = %+v", ev)
	}

	if _, err := c.LogLifeEvent(context.Background(), model.LifeEventInput{EventType: "move", EventDate: "next week"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("bad date err = %v, want ErrInvalidInput", err)
	}
}

func TestAlertPreferences(t *testing.T) {
	var put map[string]any
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/alerts/preferences" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Method == http.MethodPut {
			put = decodeBody(t, r)
			_, _ = w.Write([]byte(`{"email_enabled":false,"in_app_enabled":true,"warning_threshold":0.6,"critical_threshold":0.9,"unusual_spending_enabled":true,"bill_reminders_enabled":true,"weekly_summary_enabled":true}`))
			return
		}
		_, _ = w.Write([]byte(`{"email_enabled":true,"in_app_enabled":true,"warning_threshold":0.7,"critical_threshold":0.9,"unusual_spending_enabled":true,"bill_reminders_enabled":true,"weekly_summary_enabled":true}`))
	}), loggedIn())

	p, err := c.AlertPreferences(context.Background())
	if err != nil {
		t.Fatalf("AlertPreferences: %v", err)
	}
	if p.WarningThreshold != 0.7 || p.CriticalThreshold != 0.9 || !p.EmailEnabled {
		t.Errorf("preferences = %+v", p)
	}

	off, warn := false, 0.6
	p, err = c.UpdateAlertPreferences(context.Background(), model.AlertPreferencesUpdate{EmailEnabled: &off, WarningThreshold: &warn})
	if err != nil {
		t.Fatalf("UpdateAlertPreferences: %v", err)
	}
	if len(put) != 2 || put["email_enabled"] != false || put["warning_threshold"] != 0.6 {
		t.Errorf("PUT body = %v, want only the two set fields", put)
	}
	if p.EmailEnabled || p.WarningThreshold != 0.6 {
		t.Errorf("updated = %+v", p)
	}
}

func TestUpdateAlertPreferencesRejectsBadThresholds(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) { calls.Add(1) }), loggedIn())

	high, low, tooBig := 0.95, 0.9, 1.5
	for _, upd := range []model.AlertPreferencesUpdate{
		{WarningThreshold: &high, CriticalThreshold: &low},
		{CriticalThreshold: &tooBig},
	} {
		if _, err := c.UpdateAlertPreferences(context.Background(), upd); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("UpdateAlertPreferences(%+v) err = %v, want ErrInvalidInput", upd, err)
		}
	}
	if calls.Load() != 0 {
		t.Errorf("server saw %d requests, want 0", calls.Load())
	}
}

func TestUpdateFinancialProfile(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/user/financial-profile" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		body := decodeBody(t, r)
		if body["currency"] != "EUR" || body["monthly_income"] != "4200" {
			t.Errorf("body = %v", body)
		}
		if _, ok := body["current_savings"]; ok {
			t.Error("unset current_savings was sent")
		}
		_, _ = w.Write([]byte(`{"id":"` + userID + `","monthly_income":4200.0,"current_savings":null,"financial_goals":null,"currency":"EUR"}`))
	}), loggedIn())

	income := decimal.NewFromInt(4200)
	p, err := c.UpdateFinancialProfile(context.Background(), model.FinancialProfileInput{MonthlyIncome: &income, Currency: "EUR"})
	if err != nil {
		t.Fatalf("UpdateFinancialProfile: %v", err)
	}
	if p.Currency != "EUR" || p.MonthlyIncome == nil || !p.MonthlyIncome.Equal(income) || p.CurrentSavings != nil {
		t.Errorf("profile = %+v", p)
	}

	if _, err := c.UpdateFinancialProfile(context.Background(), model.FinancialProfileInput{MonthlyIncome: &income}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("missing currency err = %v, want ErrInvalidInput", err)
	}
	neg := decimal.NewFromInt(-1)
	if _, err := c.UpdateFinancialProfile(context.Background(), model.FinancialProfileInput{CurrentSavings: &neg, Currency: "EUR"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("negative savings err = %v, want ErrInvalidInput", err)
	}
}
