package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/theirongolddev/budget/internal/model"
)

// Login exchanges a username and password for a credential pair. The
// service expects an OAuth2 password-grant form body.
func (c *Client) Login(ctx context.Context, username, password string) (model.Credentials, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	var creds model.Credentials
	err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/api/auth/login",
		body:        strings.NewReader(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
		anonymous:   true,
	}, &creds)
	if err != nil {
		return model.Credentials{}, err
	}
	if err := validateCredentials(&creds); err != nil {
		return model.Credentials{}, malformed("login", err)
	}
	return creds, nil
}

// Register creates an account and returns its first credential pair.
func (c *Client) Register(ctx context.Context, reg model.Registration) (model.Credentials, error) {
	var creds model.Credentials
	if err := c.sendAnonymous(ctx, "/api/auth/register", reg, &creds); err != nil {
		return model.Credentials{}, err
	}
	if err := validateCredentials(&creds); err != nil {
		return model.Credentials{}, malformed("register", err)
	}
	return creds, nil
}

// Refresh trades a refresh token for a new credential pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (model.Credentials, error) {
	in := struct {
		RefreshToken string `json:"refresh_token"`
	}{refreshToken}

	var creds model.Credentials
	if err := c.sendAnonymous(ctx, "/api/auth/refresh", in, &creds); err != nil {
		return model.Credentials{}, err
	}
	if err := validateCredentials(&creds); err != nil {
		return model.Credentials{}, malformed("refresh", err)
	}
	return creds, nil
}

// Logout notifies the server. Tokens are stateless server-side, so this is
// advisory; callers discard local credentials regardless of the outcome.
func (c *Client) Logout(ctx context.Context) error {
	return c.send(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

func (c *Client) sendAnonymous(ctx context.Context, path string, in, out any) error {
	payload, err := jsonBody(in)
	if err != nil {
		return err
	}
	return c.do(ctx, request{
		method:      http.MethodPost,
		path:        path,
		body:        payload,
		contentType: "application/json",
		anonymous:   true,
	}, out)
}
