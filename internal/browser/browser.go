// Package browser defines the narrow browser-automation capability the
// authentication flow depends on, plus a go-rod backed implementation.
//
// The orchestrator in internal/authflow only ever talks to the Page
// interface, so tests can substitute a scripted fake and never touch a real
// browser process.
package browser

import (
	"context"
	"time"
)

// Cookie is a single browser cookie captured from the page context.
// Expires is seconds since the Unix epoch; zero means a session cookie.
type Cookie struct {
	Name    string  `json:"name"`
	Value   string  `json:"value"`
	Domain  string  `json:"domain"`
	Path    string  `json:"path"`
	Expires float64 `json:"expires,omitempty"`
}

// Page is the minimal surface of a controlled browser page required by the
// authentication flow. Selector arguments are CSS selectors; comma-separated
// group selectors are supported.
type Page interface {
	// Navigate loads the URL and waits for the page load event, bounded by
	// timeout. Returns an error on navigation failure or timeout.
	Navigate(url string, timeout time.Duration) error

	// WaitForAny blocks until one of the selectors matches an element on the
	// page, returning the selector that matched. Selectors are checked in
	// order on every poll, so earlier selectors win when several match at
	// once. Returns an error when the timeout elapses with no match.
	WaitForAny(selectors []string, timeout time.Duration) (string, error)

	// Fill types text into the first element matching the selector.
	Fill(selector, text string) error

	// Click clicks the first element matching the selector.
	Click(selector string) error

	// Count returns the number of elements currently matching the selector.
	Count(selector string) (int, error)

	// TextContent returns the text content of the first element matching the
	// selector.
	TextContent(selector string) (string, error)

	// CurrentURL returns the page's current URL.
	CurrentURL() string

	// Cookies returns every cookie in the browser context, verbatim.
	Cookies() ([]Cookie, error)

	// Close releases all browser resources. It is safe to call after a
	// prior failure and safe to call more than once.
	Close() error
}

// Launcher creates browser pages. The real implementation spawns a Chromium
// process per page; fakes return scripted pages.
type Launcher interface {
	NewPage(ctx context.Context) (Page, error)
}
