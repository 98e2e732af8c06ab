package session

import "errors"

// LoginRoute is where unauthenticated users are sent.
const LoginRoute = "login"

// ErrLoginRequired is what a protected command returns when the gate
// redirects.
var ErrLoginRequired = errors.New("not logged in; run `budget login`")

// Verdict is the outcome of an access check.
type Verdict int

const (
	// Pending means the session is still being verified; show a neutral
	// placeholder and neither protected content nor the login screen.
	Pending Verdict = iota
	// Redirect means navigate to RedirectTo, replacing the current entry.
	Redirect
	// Allow means render the protected view.
	Allow
)

func (v Verdict) String() string {
	switch v {
	case Redirect:
		return "redirect"
	case Allow:
		return "allow"
	default:
		return "pending"
	}
}

// Decision is what a protected view should do right now.
type Decision struct {
	Verdict        Verdict
	RedirectTo     string
	ReplaceHistory bool
}

// Decide maps a session snapshot to an access decision.
func Decide(s Snapshot) Decision {
	switch s.Status {
	case Authenticated:
		if s.Identity != nil {
			return Decision{Verdict: Allow}
		}
		return Decision{Verdict: Redirect, RedirectTo: LoginRoute, ReplaceHistory: true}
	case Anonymous:
		return Decision{Verdict: Redirect, RedirectTo: LoginRoute, ReplaceHistory: true}
	default:
		return Decision{Verdict: Pending}
	}
}

// Err converts a decision to the error a command should return, or nil when
// access is allowed.
func (d Decision) Err() error {
	switch d.Verdict {
	case Allow:
		return nil
	case Redirect:
		return ErrLoginRequired
	default:
		return errors.New("session is still being verified")
	}
}

// Gate evaluates Decide against a live session.
type Gate struct {
	view View
}

func NewGate(v View) Gate {
	return Gate{view: v}
}

// Check re-reads the session and decides. Call it on every render.
func (g Gate) Check() Decision {
	return Decide(g.view.Snapshot())
}
