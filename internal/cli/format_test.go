package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		want     string
	}{
		{"0", "", "$0.00"},
		{"12.5", "USD", "$12.50"},
		{"1234567.891", "usd", "$1,234,567.89"},
		{"-250", "EUR", "-€250.00"},
		{"99.995", "CHF", "100.00 CHF"},
	}
	for _, tt := range tests {
		got := FormatMoney(decimal.RequireFromString(tt.amount), tt.currency)
		if got != tt.want {
			t.Errorf("FormatMoney(%s, %q) = %q, want %q", tt.amount, tt.currency, got, tt.want)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	tests := map[int64]string{
		0:        "0",
		999:      "999",
		1000:     "1,000",
		-1234567: "-1,234,567",
	}
	for in, want := range tests {
		if got := FormatNumber(in); got != want {
			t.Errorf("FormatNumber(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatAge(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "just now"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
		{50 * time.Hour, "2d ago"},
		{60 * 24 * time.Hour, "Apr 2, 2024"},
	}
	for _, tt := range tests {
		if got := FormatAge(now.Add(-tt.ago), now); got != tt.want {
			t.Errorf("FormatAge(-%v) = %q, want %q", tt.ago, got, tt.want)
		}
	}
	if got := FormatAge(time.Time{}, now); got != "-" {
		t.Errorf("FormatAge(zero) = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("groceries", 5); got != "groc…" {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("café", 10); got != "café" {
		t.Errorf("Truncate short = %q", got)
	}
}

func TestRenderBar(t *testing.T) {
	if got := []rune(plainBar(150, 10)); len(got) != 10 || string(got) != "██████████" {
		t.Errorf("plainBar(150) = %q", string(got))
	}
	if got := plainBar(50, 10); got != "█████░░░░░" {
		t.Errorf("plainBar(50) = %q", got)
	}
	if got := plainBar(0, 4); got != "░░░░" {
		t.Errorf("plainBar(0) = %q", got)
	}
}

func TestWrap(t *testing.T) {
	out := Wrap("Move fifty dollars a month from dining into the emergency fund until it covers three months.", 30)
	lines := strings.Split(out, "\n")
	if len(lines) < 3 {
		t.Fatalf("expected wrapping, got %d lines:\n%s", len(lines), out)
	}
	for _, l := range lines {
		if w := lipgloss.Width(l); w > 30 {
			t.Errorf("line %q is %d cells wide", l, w)
		}
		if !strings.HasPrefix(l, "  ") {
			t.Errorf("line %q is not indented", l)
		}
	}
}
