package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/budget/internal/model"
)

// Ask sends a free-form question to the assistant, which answers with the
// user's income and budgets as context.
func (c *Client) Ask(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("%w: empty question", ErrInvalidInput)
	}
	var out struct {
		Answer string `json:"answer"`
	}
	if err := c.sendAI(ctx, "/api/ai/ask", map[string]string{"question": question}, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.Answer) == "" {
		return "", malformed("answer", errors.New("empty answer"))
	}
	return out.Answer, nil
}

// Analyze asks for a review of the last months of spending: recommended
// limits per category, observed patterns and suggestions.
func (c *Client) Analyze(ctx context.Context, months int) (model.Analysis, error) {
	if months < 1 {
		return model.Analysis{}, fmt.Errorf("%w: months %d must be at least 1", ErrInvalidInput, months)
	}
	var a model.Analysis
	if err := c.sendAI(ctx, "/api/ai/analyze", map[string]int{"months": months}, &a); err != nil {
		return model.Analysis{}, err
	}
	if err := validateEach("recommendation", a.Recommendations, validateRecommendation); err != nil {
		return model.Analysis{}, err
	}
	return a, nil
}

// LogLifeEvent records a life event. The service stores an adjusted-advice
// insight alongside it, which shows up on the next dashboard load.
func (c *Client) LogLifeEvent(ctx context.Context, in model.LifeEventInput) (model.LifeEvent, error) {
	in.EventType = strings.TrimSpace(in.EventType)
	if in.EventType == "" {
		return model.LifeEvent{}, fmt.Errorf("%w: empty event type", ErrInvalidInput)
	}
	if _, err := time.Parse(time.DateOnly, in.EventDate); err != nil {
		return model.LifeEvent{}, fmt.Errorf("%w: event date %q is not YYYY-MM-DD", ErrInvalidInput, in.EventDate)
	}
	var ev model.LifeEvent
	if err := c.sendAI(ctx, "/api/ai/life-event", in, &ev); err != nil {
		return model.LifeEvent{}, err
	}
	if err := validID("id", ev.ID); err != nil {
		return model.LifeEvent{}, malformed("life event", err)
	}
	return ev, nil
}
