package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/theirongolddev/budget/internal/api"
	"github.com/theirongolddev/budget/internal/model"
)

var (
	// ErrNotAuthenticated is returned when stored credentials do not yield an
	// identity. The credentials have been discarded.
	ErrNotAuthenticated = errors.New("session: not authenticated")
	// ErrSuperseded is returned by a hydration whose result was discarded
	// because a newer hydration or a teardown started after it.
	ErrSuperseded = errors.New("session: superseded by a newer session change")
)

// TokenStore persists the credential pair.
type TokenStore interface {
	Load() (model.Credentials, bool, error)
	Save(model.Credentials) error
	Clear() error
}

// Remote is the subset of the API the session lifecycle needs.
type Remote interface {
	Profile(ctx context.Context) (model.User, error)
	FinancialProfile(ctx context.Context) (model.FinancialProfile, error)
	Login(ctx context.Context, username, password string) (model.Credentials, error)
	Register(ctx context.Context, reg model.Registration) (model.Credentials, error)
	Refresh(ctx context.Context, refreshToken string) (model.Credentials, error)
	Logout(ctx context.Context) error
}

// Controller is the only writer of a State.
type Controller struct {
	state  *State
	tokens TokenStore
	remote Remote
	log    *slog.Logger
}

// NewController wires a controller. A nil logger uses slog.Default().
func NewController(state *State, tokens TokenStore, remote Remote, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{state: state, tokens: tokens, remote: remote, log: logger}
}

// View exposes the session read-only.
func (c *Controller) View() View { return c.state }

// Hydrate rebuilds the session from stored credentials.
//
// With nothing stored the session becomes Anonymous without touching the
// network. Otherwise identity and financial profile are fetched
// concurrently; a profile failure only leaves the profile empty, while an
// identity failure discards the stored credentials.
func (c *Controller) Hydrate(ctx context.Context) (Snapshot, error) {
	creds, ok, err := c.tokens.Load()
	if err != nil {
		anon := Snapshot{Status: Anonymous}
		_ = c.state.supersede(&anon, nil)
		return anon, fmt.Errorf("session: reading credentials: %w", err)
	}
	if !ok || creds.Empty() {
		anon := Snapshot{Status: Anonymous}
		_ = c.state.supersede(&anon, nil)
		c.log.Debug("no stored credentials")
		return anon, nil
	}

	gen := c.state.begin()

	var (
		user    model.User
		profile *model.FinancialProfile
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := c.remote.Profile(gctx)
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	g.Go(func() error {
		p, err := c.remote.FinancialProfile(gctx)
		if err != nil {
			c.log.Debug("financial profile unavailable", "error", err)
			return nil
		}
		profile = &p
		return nil
	})

	if err := g.Wait(); err != nil {
		anon := Snapshot{Status: Anonymous}
		// A cancelled caller says nothing about the credentials.
		if ctx.Err() != nil {
			if !c.state.commit(gen, anon, nil) {
				return c.state.Snapshot(), ErrSuperseded
			}
			return anon, ctx.Err()
		}
		committed := c.state.commit(gen, anon, func() {
			if clearErr := c.tokens.Clear(); clearErr != nil {
				c.log.Warn("clearing rejected credentials", "error", clearErr)
			}
		})
		if !committed {
			return c.state.Snapshot(), ErrSuperseded
		}
		c.log.Info("session verification failed", "error", err)
		return anon, fmt.Errorf("%w: %w", ErrNotAuthenticated, err)
	}

	snap := Snapshot{Status: Authenticated, Identity: &user, FinancialProfile: profile}
	if !c.state.commit(gen, snap, nil) {
		return c.state.Snapshot(), ErrSuperseded
	}
	c.log.Debug("session verified", "user", user.Username, "profile", profile != nil)
	return snap, nil
}

// Establish stores a freshly issued credential pair and hydrates from it.
func (c *Controller) Establish(ctx context.Context, creds model.Credentials) (Snapshot, error) {
	if err := c.state.supersede(nil, func() error { return c.tokens.Save(creds) }); err != nil {
		return c.state.Snapshot(), fmt.Errorf("session: saving credentials: %w", err)
	}
	return c.Hydrate(ctx)
}

// Teardown discards credentials and marks the session Anonymous. Calling it
// on an already anonymous session is a no-op.
func (c *Controller) Teardown() error {
	anon := Snapshot{Status: Anonymous}
	if err := c.state.supersede(&anon, c.tokens.Clear); err != nil {
		return fmt.Errorf("session: clearing credentials: %w", err)
	}
	return nil
}

// Login authenticates with a username and password, then establishes the
// session.
func (c *Controller) Login(ctx context.Context, username, password string) (Snapshot, error) {
	creds, err := c.remote.Login(ctx, username, password)
	if err != nil {
		return c.state.Snapshot(), fmt.Errorf("session: login: %w", err)
	}
	return c.Establish(ctx, creds)
}

// Register creates an account and establishes a session for it.
func (c *Controller) Register(ctx context.Context, reg model.Registration) (Snapshot, error) {
	creds, err := c.remote.Register(ctx, reg)
	if err != nil {
		return c.state.Snapshot(), fmt.Errorf("session: register: %w", err)
	}
	return c.Establish(ctx, creds)
}

// Refresh trades the stored refresh token for a new pair. A rejected refresh
// token tears the session down.
func (c *Controller) Refresh(ctx context.Context) (Snapshot, error) {
	creds, ok, err := c.tokens.Load()
	if err != nil {
		return c.state.Snapshot(), fmt.Errorf("session: reading credentials: %w", err)
	}
	if !ok || creds.RefreshToken == "" {
		return c.state.Snapshot(), ErrNotAuthenticated
	}

	fresh, err := c.remote.Refresh(ctx, creds.RefreshToken)
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, api.ErrUnauthorized) {
			if tdErr := c.Teardown(); tdErr != nil {
				c.log.Warn("teardown after rejected refresh", "error", tdErr)
			}
		}
		return c.state.Snapshot(), fmt.Errorf("session: refresh: %w", err)
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = creds.RefreshToken
	}
	return c.Establish(ctx, fresh)
}

// Logout tells the server, then tears down locally whatever it said.
func (c *Controller) Logout(ctx context.Context) error {
	if _, ok, _ := c.tokens.Load(); ok {
		if err := c.remote.Logout(ctx); err != nil {
			c.log.Debug("server logout failed", "error", err)
		}
	}
	return c.Teardown()
}
