package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"entraflow/pkg/logging"
)

// elementTimeout bounds individual element lookups (fill, click, count).
const elementTimeout = 5 * time.Second

// waitPollInterval is how often WaitForAny re-checks its selectors.
const waitPollInterval = 100 * time.Millisecond

// RodLauncher spawns Chromium pages via go-rod. One browser process is
// started per page and torn down when the page is closed.
type RodLauncher struct {
	// Headless controls whether the browser window is visible. Interactive
	// logins need a visible window so the user can type their password.
	Headless bool
}

// NewPage launches a browser and opens a blank page bound to ctx.
func (l *RodLauncher) NewPage(ctx context.Context) (Page, error) {
	lnch := launcher.New().Headless(l.Headless)

	controlURL, err := lnch.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		lnch.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = b.Close()
		lnch.Kill()
		return nil, fmt.Errorf("failed to create browser page: %w", err)
	}

	logging.Debug("Browser", "Browser launched (headless=%t)", l.Headless)

	return &rodPage{launcher: lnch, browser: b, page: page}, nil
}

type rodPage struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	closed   bool
}

func (p *rodPage) Navigate(url string, timeout time.Duration) error {
	page := p.page.Timeout(timeout)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("page load failed: %w", err)
	}
	return nil
}

func (p *rodPage) WaitForAny(selectors []string, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	for {
		// Check in order so earlier selectors take priority within a poll.
		for _, sel := range selectors {
			has, _, err := p.page.Timeout(elementTimeout).Has(sel)
			if err == nil && has {
				return sel, nil
			}
		}
		if time.Now().After(deadline) {
			return "", fmt.Errorf("timeout waiting for selectors %v", selectors)
		}
		time.Sleep(waitPollInterval)
	}
}

func (p *rodPage) Fill(selector, text string) error {
	el, err := p.page.Timeout(elementTimeout).Element(selector)
	if err != nil {
		return fmt.Errorf("could not find element %q: %w", selector, err)
	}
	el = el.Timeout(elementTimeout)
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("could not focus element %q: %w", selector, err)
	}
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("could not select text in element %q: %w", selector, err)
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("could not fill element %q: %w", selector, err)
	}
	return nil
}

func (p *rodPage) Click(selector string) error {
	el, err := p.page.Timeout(elementTimeout).Element(selector)
	if err != nil {
		return fmt.Errorf("could not find element %q: %w", selector, err)
	}
	if err := el.Timeout(elementTimeout).Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("could not click element %q: %w", selector, err)
	}
	return nil
}

func (p *rodPage) Count(selector string) (int, error) {
	elements, err := p.page.Timeout(elementTimeout).Elements(selector)
	if err != nil {
		return 0, err
	}
	return len(elements), nil
}

func (p *rodPage) TextContent(selector string) (string, error) {
	el, err := p.page.Timeout(elementTimeout).Element(selector)
	if err != nil {
		return "", fmt.Errorf("could not find element %q: %w", selector, err)
	}
	text, err := el.Timeout(elementTimeout).Text()
	if err != nil {
		return "", fmt.Errorf("could not read element %q: %w", selector, err)
	}
	return text, nil
}

func (p *rodPage) CurrentURL() string {
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (p *rodPage) Cookies() ([]Cookie, error) {
	rodCookies, err := p.page.Cookies(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies: %w", err)
	}

	cookies := make([]Cookie, 0, len(rodCookies))
	for _, c := range rodCookies {
		cookies = append(cookies, Cookie{
			Name:    c.Name,
			Value:   c.Value,
			Domain:  c.Domain,
			Path:    c.Path,
			Expires: float64(c.Expires),
		})
	}
	return cookies, nil
}

func (p *rodPage) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true

	// Best effort teardown: the browser process must die even when the page
	// is already gone.
	if p.page != nil {
		_ = p.page.Close()
	}
	var err error
	if p.browser != nil {
		err = p.browser.Close()
	}
	if p.launcher != nil {
		p.launcher.Kill()
		p.launcher.Cleanup()
	}

	logging.Debug("Browser", "Browser closed")
	return err
}
