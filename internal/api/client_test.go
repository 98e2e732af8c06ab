package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/budget/internal/model"
	"github.com/theirongolddev/budget/internal/store"
)

const (
	userID     = "6f1c2a4e-9a55-4a43-b7a2-0f0d4c2f5e11"
	categoryID = "3b9d2f10-7c1e-4f7b-9a8e-2d6f1c0b4a22"
	alertID    = "a7e4c9b2-1d3f-4e5a-8b6c-9d0e1f2a3b44"
)

func newTestClient(t *testing.T, h http.Handler, creds CredentialSource) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(Options{BaseURL: srv.URL}, creds)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func loggedIn() *store.Memory {
	return store.NewMemory(model.Credentials{AccessToken: "tok-1", RefreshToken: "ref-1"})
}

func TestNewClientRejectsBadURL(t *testing.T) {
	for _, raw := range []string{"://nope", "ftp://example.com", "example.com"} {
		if _, err := NewClient(Options{BaseURL: raw}, nil); err == nil {
			t.Errorf("NewClient(%q) succeeded, want error", raw)
		}
	}
	c, err := NewClient(Options{BaseURL: "https://api.example.com/"}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.BaseURL() != "https://api.example.com" {
		t.Errorf("BaseURL = %q", c.BaseURL())
	}
}

func TestProfileSendsBearerToken(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/api/user/profile" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"id":"` + userID + `","username":"ana","full_name":"Ana","email":"a@x.io","created_at":"2024-03-01T10:00:00.123456"}`))
	}), loggedIn())

	u, err := c.Profile(context.Background())
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if gotAuth != "Bearer tok-1" {
		t.Errorf("Authorization = %q, want Bearer tok-1", gotAuth)
	}
	if u.Username != "ana" || u.CreatedAt.Year() != 2024 {
		t.Errorf("Profile = %+v", u)
	}
}

func TestAuthenticatedCallWithoutCredentialsSendsNothing(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}), store.NewMemory(model.Credentials{}))

	_, err := c.Profile(context.Background())
	if !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("err = %v, want ErrNoCredentials", err)
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("server saw %d requests, want 0", n)
	}
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusTooManyRequests, ErrRateLimited},
	}
	for _, tt := range tests {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.code)
			_, _ = w.Write([]byte(`{"detail":"nope"}`))
		}), loggedIn())

		_, err := c.BudgetStatus(context.Background())
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: err = %v, want %v", tt.code, err, tt.want)
		}
		var se *StatusError
		if !errors.As(err, &se) || se.Detail != "nope" {
			t.Errorf("status %d: StatusError detail missing: %v", tt.code, err)
		}
	}
}

func TestValidationDetailIsFlattened(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":[{"loc":["body","amount"],"msg":"must be greater than 0"}]}`))
	}), loggedIn())

	_, err := c.CreateTransaction(context.Background(), model.TransactionInput{Amount: decimal.Zero})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if se.Detail != "amount: must be greater than 0" {
		t.Errorf("Detail = %q", se.Detail)
	}
}

func TestBudgetStatusDecodesMoney(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"category_id":"` + categoryID + `","category_name":"Food","budget_limit":"500.00","spent":412.5,"remaining":"87.50","percentage_used":82.5}
		]`))
	}), loggedIn())

	got, err := c.BudgetStatus(context.Background())
	if err != nil {
		t.Fatalf("BudgetStatus: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if !got[0].BudgetLimit.Equal(decimal.RequireFromString("500")) {
		t.Errorf("BudgetLimit = %s", got[0].BudgetLimit)
	}
	if !got[0].Spent.Equal(decimal.RequireFromString("412.5")) {
		t.Errorf("Spent = %s", got[0].Spent)
	}
}

func TestMalformedPayloads(t *testing.T) {
	tests := []struct {
		name string
		body string
		call func(*Client) error
	}{
		{"not json", `<html>`, func(c *Client) error { _, err := c.Insights(context.Background()); return err }},
		{"bad alert id", `[{"id":"42","title":"x","is_read":false}]`, func(c *Client) error {
			_, err := c.Alerts(context.Background(), false)
			return err
		}},
		{"unknown severity", `[{"id":"` + alertID + `","severity":"apocalyptic"}]`, func(c *Client) error {
			_, err := c.Alerts(context.Background(), false)
			return err
		}},
		{"missing username", `{"id":"` + userID + `"}`, func(c *Client) error {
			_, err := c.Profile(context.Background())
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}), loggedIn())
			if err := tt.call(c); !errors.Is(err, ErrMalformed) {
				t.Errorf("err = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestAlertsDefaultsSeverityAndFilters(t *testing.T) {
	var query string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		_, _ = w.Write([]byte(`[{"id":"` + alertID + `","alert_type":"budget_warning","title":"t","message":"m","is_read":false,"created_at":"2024-05-01T09:00:00"}]`))
	}), loggedIn())

	got, err := c.Alerts(context.Background(), true)
	if err != nil {
		t.Fatalf("Alerts: %v", err)
	}
	if query != "unread_only=true" {
		t.Errorf("query = %q", query)
	}
	if got[0].Severity != model.SeverityInfo {
		t.Errorf("Severity = %q, want info", got[0].Severity)
	}
}

func TestMarkAlertReadRejectsBadIDLocally(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}), loggedIn())

	if _, err := c.MarkAlertRead(context.Background(), "../user/profile"); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("err = %v, want ErrInvalidID", err)
	}
	if calls.Load() != 0 {
		t.Error("request sent for invalid id")
	}
}

func TestMarkAlertReadPath(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/alerts/"+alertID+"/read" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"id":"` + alertID + `","severity":"warning","is_read":true}`))
	}), loggedIn())

	a, err := c.MarkAlertRead(context.Background(), alertID)
	if err != nil {
		t.Fatalf("MarkAlertRead: %v", err)
	}
	if !a.IsRead {
		t.Error("IsRead = false")
	}
}

func TestLoginIsFormEncodedAndAnonymous(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("login carried Authorization %q", got)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm: %v", err)
		}
		if r.PostForm.Get("username") != "ana" || r.PostForm.Get("password") != "s3cret&x" {
			t.Errorf("form = %v", r.PostForm)
		}
		_, _ = w.Write([]byte(`{"access_token":"new-a","refresh_token":"new-r","token_type":"bearer"}`))
	}), loggedIn())

	creds, err := c.Login(context.Background(), "ana", "s3cret&x")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if creds.AccessToken != "new-a" || creds.RefreshToken != "new-r" {
		t.Errorf("creds = %+v", creds)
	}
}

func TestLoginRejectsEmptyToken(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"","token_type":"bearer"}`))
	}), nil)

	if _, err := c.Login(context.Background(), "a", "b"); !errors.Is(err, ErrMalformed) {
		t.Errorf("err = %v, want ErrMalformed", err)
	}
}

func TestRefreshSendsRefreshToken(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"refresh_token":"ref-1"`) {
			t.Errorf("body = %s", body)
		}
		_, _ = w.Write([]byte(`{"access_token":"a2","refresh_token":"r2"}`))
	}), nil)

	creds, err := c.Refresh(context.Background(), "ref-1")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if creds.AccessToken != "a2" {
		t.Errorf("AccessToken = %q", creds.AccessToken)
	}
}

func TestTransactionsQuery(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("category_id") != categoryID || q.Get("start_date") != "2024-01-01" || q.Get("limit") != "20" || q.Get("offset") != "40" {
			t.Errorf("query = %v", q)
		}
		_, _ = w.Write([]byte(`[{"id":"` + userID + `","amount":"12.30","transaction_date":"2024-01-05","is_recurring":false,"created_at":"2024-01-05T08:00:00Z"}]`))
	}), loggedIn())

	got, err := c.Transactions(context.Background(), model.TransactionFilter{
		CategoryID: categoryID, Since: "2024-01-01", Limit: 20, Offset: 40,
	})
	if err != nil {
		t.Fatalf("Transactions: %v", err)
	}
	if got[0].TransactionDate.Day() != 5 {
		t.Errorf("TransactionDate = %v", got[0].TransactionDate)
	}
}

func TestRequestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	c, err := NewClient(Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, loggedIn())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	start := time.Now()
	_, err = c.Insights(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("timeout took %v", elapsed)
	}
}
