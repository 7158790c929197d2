package authflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"entraflow/internal/browser"
	"entraflow/pkg/logging"
)

const logSubsystem = "AuthFlow"

// State identifies where the flow currently is. StateCompleted and
// StateFailed are terminal.
type State int

const (
	StateInit State = iota
	StateNavigating
	StateAwaitingIdentifier
	StateAwaitingPassword
	StateAwaitingMFA
	StateCompleted
	StateFailed
)

// String returns the string representation of the flow state.
func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateNavigating:
		return "navigating"
	case StateAwaitingIdentifier:
		return "awaiting_identifier"
	case StateAwaitingPassword:
		return "awaiting_password"
	case StateAwaitingMFA:
		return "awaiting_mfa"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Token kinds carried in Result.Tokens.
const (
	TokenAccess            = "access_token"
	TokenRefresh           = "refresh_token"
	TokenAuthorizationCode = "authorization_code"
)

// Result is the normalized outcome of an authentication attempt. Both live
// flows and cache hits produce this shape.
type Result struct {
	Success   bool
	Username  string
	Cookies   []browser.Cookie
	Tokens    map[string]string
	FromCache bool
	Error     string
}

// Identity-provider page selectors. These are CSS group selectors, so a
// single Count or Fill call covers every variant the provider renders.
const (
	identifierSelector = "input[type='email'], input[name='loginfmt']"
	submitSelector     = "input[type='submit'], button[type='submit']"
	passwordSelector   = "input[type='password'], input[name='passwd']"
	mfaSelector        = "div[data-testid='proofConfirmationText'], input[name='otc'], div[class*='mfa']"
	errorSelector      = "div[class*='error'], div[id*='error'], .error-message"
)

// Flow timing. Variables rather than constants so tests can shrink them.
var (
	navigationTimeout = 30 * time.Second
	identifierTimeout = 10 * time.Second
	challengeTimeout  = 15 * time.Second
	pollInterval      = 1 * time.Second
	stageDeadline     = 5 * time.Minute
)

// defaultLoginHost is the identity provider's login host. Leaving it during
// the MFA stage counts as flow completion (third-party MFA providers
// redirect away from it).
const defaultLoginHost = "login.microsoftonline.com"

// Flow orchestrates one interactive authorization flow per Authenticate
// call. The browser is acquired from Browser at the start of each call and
// released on every exit path.
type Flow struct {
	ClientID    string
	TenantID    string
	RedirectURI string
	Scopes      []string

	// Browser supplies the controlled page. Injected so tests can use a
	// scripted page instead of a real browser.
	Browser browser.Launcher

	// LoginHost overrides defaultLoginHost; used by tests.
	LoginHost string
}

// flowContext is the per-call state: the page handle, the state-nonce, and
// the current FSM state. It never outlives one Authenticate call.
type flowContext struct {
	page     browser.Page
	username string
	nonce    string
	state    State
}

// Authenticate runs the full interactive flow for username. It always
// returns a Result; internal errors are normalized into a failed Result
// rather than returned, so callers see one uniform failure shape.
func (f *Flow) Authenticate(ctx context.Context, username string) Result {
	page, err := f.Browser.NewPage(ctx)
	if err != nil {
		logging.Error(logSubsystem, err, "Browser startup failed")
		return Result{Username: username, Error: fmt.Sprintf("failed to start browser: %v", err)}
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			logging.Warn(logSubsystem, "Browser teardown reported: %v", cerr)
		}
	}()

	fc := &flowContext{
		page:     page,
		username: username,
		nonce:    "state_" + uuid.NewString(),
		state:    StateInit,
	}
	return f.run(ctx, fc)
}

// run performs the linear startup stages and then hands off to the polling
// loop once the flow reaches a human-interaction stage.
func (f *Flow) run(ctx context.Context, fc *flowContext) Result {
	fc.state = StateNavigating
	authURL := f.authorizeURL(fc.nonce)
	logging.Info(logSubsystem, "Navigating to sign-in page for %s", fc.username)
	if err := fc.page.Navigate(authURL, navigationTimeout); err != nil {
		return f.fail(fc, fmt.Sprintf("navigation timeout: %v", err))
	}

	fc.state = StateAwaitingIdentifier
	if _, err := fc.page.WaitForAny([]string{identifierSelector}, identifierTimeout); err != nil {
		return f.fail(fc, fmt.Sprintf("sign-in form did not load: %v", err))
	}

	logging.Debug(logSubsystem, "Entering username")
	if err := fc.page.Fill(identifierSelector, fc.username); err != nil {
		return f.fail(fc, fmt.Sprintf("authentication flow error: %v", err))
	}
	if err := fc.page.Click(submitSelector); err != nil {
		return f.fail(fc, fmt.Sprintf("authentication flow error: %v", err))
	}

	// Race the two possible next challenges. The password selector comes
	// first: when both render at once, password handling wins.
	matched, err := fc.page.WaitForAny([]string{passwordSelector, mfaSelector}, challengeTimeout)
	if err != nil {
		// Neither challenge appeared. An SSO session may have skipped
		// straight to the redirect.
		if f.redirectMatch(fc.page.CurrentURL()) {
			return f.extract(fc)
		}
		return f.fail(fc, fmt.Sprintf("authentication flow error: %v", err))
	}

	if matched == passwordSelector {
		fc.state = StateAwaitingPassword
		logging.Info(logSubsystem, "Password required, waiting for interactive entry")
	} else {
		fc.state = StateAwaitingMFA
		logging.Info(logSubsystem, "MFA challenge detected, waiting for completion")
	}

	return f.pollUntilTerminal(ctx, fc)
}

// pollUntilTerminal ticks once per pollInterval until dispatch reaches a
// terminal result or the stage deadline passes. A state transition resets
// the deadline, so the password and MFA stages each get the full window.
func (f *Flow) pollUntilTerminal(ctx context.Context, fc *flowContext) Result {
	deadline := time.Now().Add(stageDeadline)
	for {
		next, result := f.dispatch(fc)
		if result != nil {
			return *result
		}
		if next != fc.state {
			logging.Debug(logSubsystem, "State %s -> %s", fc.state, next)
			fc.state = next
			deadline = time.Now().Add(stageDeadline)
			continue
		}
		if !time.Now().Before(deadline) {
			return f.fail(fc, stageTimeoutMessage(fc.state))
		}
		select {
		case <-ctx.Done():
			return f.fail(fc, fmt.Sprintf("authentication cancelled: %v", ctx.Err()))
		case <-time.After(pollInterval):
		}
	}
}

// dispatch performs one poll of the page in the current state. It returns
// either the next state (possibly unchanged) or a terminal result. Checks
// run in priority order: terminal redirect, stage transition, provider
// error.
func (f *Flow) dispatch(fc *flowContext) (State, *Result) {
	currentURL := fc.page.CurrentURL()

	switch fc.state {
	case StateAwaitingPassword:
		if f.redirectMatch(currentURL) {
			r := f.extract(fc)
			return fc.state, &r
		}
		if elementPresent(fc.page, mfaSelector) {
			return StateAwaitingMFA, nil
		}
		if msg, found := providerError(fc.page); found {
			r := f.fail(fc, "authentication error: "+msg)
			return fc.state, &r
		}
		return StateAwaitingPassword, nil

	case StateAwaitingMFA:
		if f.redirectMatch(currentURL) || f.leftLoginHost(currentURL) {
			r := f.extract(fc)
			return fc.state, &r
		}
		if msg, found := providerError(fc.page); found {
			r := f.fail(fc, "MFA error: "+msg)
			return fc.state, &r
		}
		return StateAwaitingMFA, nil

	default:
		// Polling is only entered from the two waiting states.
		r := f.fail(fc, fmt.Sprintf("unexpected flow state %s", fc.state))
		return fc.state, &r
	}
}

// extract reads the final URL and the full cookie jar and produces the
// successful result. A flow yielding no tokens at all is still a success;
// cookie-only sessions are valid.
func (f *Flow) extract(fc *flowContext) Result {
	finalURL := fc.page.CurrentURL()
	tokens := extractTokens(finalURL)

	cookies, err := fc.page.Cookies()
	if err != nil {
		return f.fail(fc, fmt.Sprintf("failed to read session cookies: %v", err))
	}

	fc.state = StateCompleted
	logging.Info(logSubsystem, "Authentication successful for %s (%d cookies, %d tokens)",
		fc.username, len(cookies), len(tokens))

	return Result{
		Success:  true,
		Username: fc.username,
		Cookies:  cookies,
		Tokens:   tokens,
	}
}

// fail marks the flow failed. Failures carry the attempted username and a
// message only; partial cookies or tokens are never attached.
func (f *Flow) fail(fc *flowContext, message string) Result {
	fc.state = StateFailed
	logging.Warn(logSubsystem, "Authentication failed for %s: %s", fc.username, message)
	return Result{Username: fc.username, Error: message}
}

func stageTimeoutMessage(s State) string {
	if s == StateAwaitingMFA {
		return "timeout waiting for MFA completion"
	}
	return "timeout waiting for password authentication"
}

func elementPresent(page browser.Page, selector string) bool {
	count, err := page.Count(selector)
	return err == nil && count > 0
}

// providerError reports whether the identity provider is displaying an
// error element, returning its text verbatim.
func providerError(page browser.Page) (string, bool) {
	if !elementPresent(page, errorSelector) {
		return "", false
	}
	text, err := page.TextContent(errorSelector)
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(text), true
}
