// Package api is a typed client for the budgeting service's REST API.
//
// Every response body passes through a validation step before it is
// returned; payloads that do not match the expected shape surface as
// ErrMalformed rather than as partially populated values.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/theirongolddev/budget/internal/model"
)

const (
	DefaultBaseURL   = "http://localhost:8000"
	defaultTimeout   = 10 * time.Second
	defaultAITimeout = 60 * time.Second
	maxBodySize      = 1 << 20 // 1 MB
	userAgent        = "budget-cli/1.0"
)

var (
	// ErrUnauthorized indicates the access token is expired or invalid,
	// or that the login credentials were rejected.
	ErrUnauthorized = errors.New("api: unauthorized")
	// ErrRateLimited indicates the server throttled the request.
	ErrRateLimited = errors.New("api: rate limited")
	// ErrNotFound indicates the addressed resource does not exist.
	ErrNotFound = errors.New("api: not found")
	// ErrMalformed indicates a response body that failed decoding or validation.
	ErrMalformed = errors.New("api: malformed response")
	// ErrNoCredentials is returned by authenticated calls when no access token
	// is stored. No request is sent.
	ErrNoCredentials = errors.New("api: no stored credentials")
)

// StatusError is a non-2xx response. It unwraps to the matching sentinel
// for 401/403, 404 and 429.
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api: status %d: %s", e.Code, e.Detail)
	}
	return fmt.Sprintf("api: unexpected status %d", e.Code)
}

func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	}
	return nil
}

// CredentialSource supplies the access token attached to authenticated calls.
type CredentialSource interface {
	Load() (model.Credentials, bool, error)
}

// Options configures a Client.
type Options struct {
	BaseURL string
	// Timeout bounds each request. Zero means 10s.
	Timeout time.Duration
	// AITimeout bounds assistant requests. Zero means 60s.
	AITimeout time.Duration
	// Transport overrides the underlying round tripper, mainly for tests.
	Transport http.RoundTripper
}

// Client talks to the budgeting service.
type Client struct {
	baseURL   string
	timeout   time.Duration
	aiTimeout time.Duration
	anon      *http.Client
	authed    *http.Client
}

// NewClient creates a client. Authenticated calls read the current access
// token from creds on every request, so a token saved after construction is
// picked up without rebuilding the client.
func NewClient(opts Options, creds CredentialSource) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api: invalid base URL %q", opts.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api: unsupported scheme %q", u.Scheme)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	aiTimeout := opts.AITimeout
	if aiTimeout <= 0 {
		aiTimeout = defaultAITimeout
	}
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &Client{
		baseURL:   base,
		timeout:   timeout,
		aiTimeout: aiTimeout,
		anon:      &http.Client{Transport: transport},
		authed: &http.Client{Transport: &oauth2.Transport{
			Source: storeTokenSource{src: creds},
			Base:   transport,
		}},
	}, nil
}

// BaseURL returns the normalized service root.
func (c *Client) BaseURL() string { return c.baseURL }

// storeTokenSource adapts a CredentialSource to oauth2.TokenSource. Tokens
// never expire client-side; the server decides via 401.
type storeTokenSource struct {
	src CredentialSource
}

func (s storeTokenSource) Token() (*oauth2.Token, error) {
	if s.src == nil {
		return nil, ErrNoCredentials
	}
	creds, ok, err := s.src.Load()
	if err != nil {
		return nil, fmt.Errorf("api: loading credentials: %w", err)
	}
	if !ok || creds.Empty() {
		return nil, ErrNoCredentials
	}
	return &oauth2.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		TokenType:    "Bearer",
	}, nil
}

// request describes one API call.
type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	anonymous   bool
	timeout     time.Duration // overrides the client default when set
}

// do sends req and decodes a JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, req request, out any) error {
	timeout := c.timeout
	if req.timeout > 0 {
		timeout = req.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, req.body)
	if err != nil {
		return fmt.Errorf("api: creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}

	hc := c.authed
	if req.anonymous {
		hc = c.anon
	}

	resp, err := hc.Do(httpReq)
	if err != nil {
		if errors.Is(err, ErrNoCredentials) {
			return ErrNoCredentials
		}
		return fmt.Errorf("api: %s %s: %w", req.method, req.path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("api: reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, Detail: errorDetail(body)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrMalformed, req.method, req.path, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, request{method: http.MethodGet, path: path, query: query}, out)
}

func (c *Client) send(ctx context.Context, method, path string, in, out any) error {
	req := request{method: method, path: path}
	if err := setJSON(&req, in); err != nil {
		return err
	}
	return c.do(ctx, req, out)
}

// sendAI posts to an assistant endpoint under the longer AI timeout.
func (c *Client) sendAI(ctx context.Context, path string, in, out any) error {
	req := request{method: http.MethodPost, path: path, timeout: c.aiTimeout}
	if err := setJSON(&req, in); err != nil {
		return err
	}
	return c.do(ctx, req, out)
}

func setJSON(req *request, in any) error {
	if in == nil {
		return nil
	}
	payload, err := jsonBody(in)
	if err != nil {
		return err
	}
	req.body = payload
	req.contentType = "application/json"
	return nil
}

func jsonBody(in any) (io.Reader, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("api: encoding request: %w", err)
	}
	return bytes.NewReader(payload), nil
}

// errorDetail pulls the human-readable message out of an error body. The
// service sends {"detail": "..."} for most errors and a list of field
// errors for validation failures.
func errorDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(envelope.Detail, &s); err == nil {
		return s
	}
	var fields []struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &fields); err == nil && len(fields) > 0 {
		msgs := make([]string, 0, len(fields))
		for _, f := range fields {
			if len(f.Loc) > 0 {
				msgs = append(msgs, fmt.Sprintf("%v: %s", f.Loc[len(f.Loc)-1], f.Msg))
			} else {
				msgs = append(msgs, f.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}

// resourcePath joins a collection path and an ID after checking the ID is a
// well-formed UUID, so a typo never reaches the server as a path segment.
func resourcePath(kind, collection, id string, suffix ...string) (string, error) {
	if err := checkID(kind, id); err != nil {
		return "", err
	}
	p := collection + "/" + url.PathEscape(id)
	for _, s := range suffix {
		p += "/" + s
	}
	return p, nil
}
