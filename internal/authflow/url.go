package authflow

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

func (f *Flow) loginHost() string {
	if f.LoginHost != "" {
		return f.LoginHost
	}
	return defaultLoginHost
}

// authorizeURL builds the OAuth authorization URL for the configured client:
// response_type=code, response_mode=query, space-joined scopes, and the
// given state nonce.
func (f *Flow) authorizeURL(state string) string {
	cfg := oauth2.Config{
		ClientID:    f.ClientID,
		RedirectURL: f.RedirectURI,
		Scopes:      f.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL: fmt.Sprintf("https://%s/%s/oauth2/v2.0/authorize", f.loginHost(), f.TenantID),
		},
	}
	return cfg.AuthCodeURL(state, oauth2.SetAuthURLParam("response_mode", "query"))
}

// redirectMatch is the terminal-redirect heuristic, evaluated identically at
// every polling site: the URL starts with the configured redirect URI, or
// carries an access token, or carries an authorization code.
func (f *Flow) redirectMatch(currentURL string) bool {
	if f.RedirectURI != "" && strings.HasPrefix(currentURL, f.RedirectURI) {
		return true
	}
	return strings.Contains(currentURL, "access_token") || strings.Contains(currentURL, "code=")
}

// leftLoginHost reports whether the page has navigated away from the
// identity provider's login host.
func (f *Flow) leftLoginHost(currentURL string) bool {
	u, err := url.Parse(currentURL)
	if err != nil || u.Host == "" {
		return false
	}
	return !strings.EqualFold(u.Host, f.loginHost())
}

// extractTokens pulls tokens out of the final URL. Implicit-flow responses
// carry access_token (and possibly refresh_token) in the fragment;
// code-flow responses carry the authorization code in the query. A URL with
// neither yields an empty map, which is not an error.
func extractTokens(finalURL string) map[string]string {
	tokens := map[string]string{}

	u, err := url.Parse(finalURL)
	if err != nil {
		return tokens
	}

	if strings.Contains(finalURL, "access_token") {
		fragment, err := url.ParseQuery(u.Fragment)
		if err != nil {
			return tokens
		}
		if v := fragment.Get("access_token"); v != "" {
			tokens[TokenAccess] = v
		}
		if v := fragment.Get("refresh_token"); v != "" {
			tokens[TokenRefresh] = v
		}
		return tokens
	}

	if strings.Contains(finalURL, "code=") {
		if v := u.Query().Get("code"); v != "" {
			tokens[TokenAuthorizationCode] = v
		}
	}
	return tokens
}
