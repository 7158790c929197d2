// Package authenticator is the high-level entry point for interactive
// Microsoft Entra ID authentication. It decides between reusing a cached
// session and running a fresh browser flow, and it owns session
// persistence: successful live flows are saved, failures never are.
package authenticator

import (
	"context"
	"fmt"

	"entraflow/internal/authflow"
	"entraflow/internal/browser"
	"entraflow/internal/config"
	"entraflow/internal/session"
	"entraflow/pkg/logging"
)

const logSubsystem = "authenticator"

// flowRunner abstracts the interactive browser flow so tests can substitute
// a scripted implementation.
type flowRunner interface {
	Authenticate(ctx context.Context, username string) authflow.Result
}

// Authenticator combines the session store and the browser flow behind a
// single Login call.
type Authenticator struct {
	store *session.Store
	flow  flowRunner
}

// New builds an Authenticator from resolved configuration. The launcher is
// injected so callers control headless mode and tests control the browser.
func New(cfg *config.Config, launcher browser.Launcher) (*Authenticator, error) {
	store, err := session.NewStore(cfg.SessionDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}
	flow := &authflow.Flow{
		ClientID:    cfg.ClientID,
		TenantID:    cfg.TenantID,
		RedirectURI: cfg.RedirectURI,
		Scopes:      cfg.Scopes,
		Browser:     launcher,
	}
	return &Authenticator{store: store, flow: flow}, nil
}

func newWithFlow(store *session.Store, flow flowRunner) *Authenticator {
	return &Authenticator{store: store, flow: flow}
}

// Login authenticates the given user. Unless forceNew is set, a valid
// cached session short-circuits the browser flow entirely and the result is
// marked FromCache. A successful live flow is persisted before returning;
// if persistence fails the authentication itself still succeeded, so the
// result stays successful and the storage error is returned alongside it.
func (a *Authenticator) Login(ctx context.Context, username string, forceNew bool) (authflow.Result, error) {
	if !forceNew {
		record, err := a.store.Load(username)
		if err != nil {
			return authflow.Result{Username: username, Error: err.Error()}, err
		}
		if record != nil {
			logging.Info(logSubsystem, "Using cached session for %s", username)
			return authflow.Result{
				Success:   true,
				Username:  record.Username,
				Cookies:   record.Cookies,
				Tokens:    record.Tokens,
				FromCache: true,
			}, nil
		}
	}

	logging.Info(logSubsystem, "Starting interactive authentication for %s", username)
	result := a.flow.Authenticate(ctx, username)
	if !result.Success {
		return result, nil
	}

	if err := a.store.Save(username, result.Cookies, result.Tokens); err != nil {
		logging.Error(logSubsystem, err, "Authentication succeeded but session could not be saved")
		return result, err
	}
	return result, nil
}

// Logout removes the stored session for the given user. Removing a session
// that does not exist is not an error.
func (a *Authenticator) Logout(username string) error {
	return a.store.Clear(username)
}

// IsAuthenticated reports whether a valid cached session exists for the
// given user without touching the browser.
func (a *Authenticator) IsAuthenticated(username string) bool {
	return a.store.IsValid(username)
}

// Session returns the cached session record for the given user, or nil when
// none is valid.
func (a *Authenticator) Session(username string) (*session.Record, error) {
	return a.store.Load(username)
}

// Sessions returns all currently valid session records.
func (a *Authenticator) Sessions() ([]*session.Record, error) {
	return a.store.List()
}

// ClearAllSessions removes every stored session.
func (a *Authenticator) ClearAllSessions() error {
	return a.store.ClearAll()
}

// SessionDir returns the directory sessions are persisted under.
func (a *Authenticator) SessionDir() string {
	return a.store.Dir()
}
