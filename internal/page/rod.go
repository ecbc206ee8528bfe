package page

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/allendavis-developer/cg-stock-take/internal/config"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	log "github.com/sirupsen/logrus"
)

// RodAccessor drives a real Chromium page over CDP. One instance owns one
// page and one logged-in session; the drivers share it strictly sequentially.
type RodAccessor struct {
	browser *rod.Browser
	page    *rod.Page

	navTimeout     time.Duration
	settleTimeout  time.Duration
	elementTimeout time.Duration
}

// NewRodAccessor launches (or reuses, via the user data dir) a Chromium
// profile and opens the single page every driver works against.
func NewRodAccessor(cfg config.BrowserConfig) (*RodAccessor, error) {
	l := launcher.New().Headless(cfg.Headless)
	if cfg.UserDataDir != "" {
		l = l.UserDataDir(cfg.UserDataDir)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chromium: %w", err)
	}

	p, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("create page: %w", err)
	}

	return &RodAccessor{
		browser:        browser,
		page:           p,
		navTimeout:     cfg.NavTimeout(),
		settleTimeout:  cfg.SettleWait(),
		elementTimeout: cfg.ElementWait(),
	}, nil
}

func (a *RodAccessor) Navigate(ctx context.Context, url string) (*Response, error) {
	if a.IsClosed() {
		return nil, ErrSessionClosed
	}

	p := a.page.Context(ctx).Timeout(a.navTimeout)

	var status int
	var finalURL string
	wait := p.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type != proto.NetworkResourceTypeDocument {
			return false
		}
		status = e.Response.Status
		finalURL = e.Response.URL
		return true
	})

	if err := p.Navigate(url); err != nil {
		if a.IsClosed() {
			return nil, ErrSessionClosed
		}
		return nil, fmt.Errorf("navigate %s: %w", url, err)
	}
	wait()

	if finalURL == "" {
		finalURL = url
	}
	return &Response{Status: status, URL: finalURL}, nil
}

func (a *RodAccessor) WaitSettled(ctx context.Context) error {
	p := a.page.Context(ctx).Timeout(a.settleTimeout)
	if err := p.WaitLoad(); err != nil {
		if a.IsClosed() {
			return ErrSessionClosed
		}
		return fmt.Errorf("wait for load: %w", err)
	}
	p.WaitRequestIdle(300*time.Millisecond, nil, nil, nil)()
	return nil
}

func (a *RodAccessor) Location(ctx context.Context) (string, error) {
	info, err := a.page.Context(ctx).Info()
	if err != nil {
		if a.IsClosed() {
			return "", ErrSessionClosed
		}
		return "", fmt.Errorf("read page location: %w", err)
	}
	return info.URL, nil
}

func (a *RodAccessor) Extract(ctx context.Context, query string) (json.RawMessage, error) {
	res, err := a.page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:           query,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		if a.IsClosed() {
			return nil, ErrSessionClosed
		}
		return nil, fmt.Errorf("evaluate query: %w", err)
	}
	if res == nil || res.Value.Nil() {
		return nil, nil
	}
	return res.Value.MarshalJSON()
}

func (a *RodAccessor) Fill(ctx context.Context, selector, value string) error {
	el, err := a.element(ctx, selector)
	if err != nil {
		return err
	}
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("select text in %s: %w", selector, err)
	}
	if err := el.Input(value); err != nil {
		return fmt.Errorf("fill %s: %w", selector, err)
	}
	return nil
}

func (a *RodAccessor) Click(ctx context.Context, selector string) error {
	el, err := a.element(ctx, selector)
	if err != nil {
		return err
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

func (a *RodAccessor) IsClosed() bool {
	_, err := a.page.Info()
	return err != nil
}

// element waits briefly for a selector to appear. Timeouts surface as
// ErrNoElement, which the drivers treat as a recoverable missing-element
// condition rather than a run failure.
func (a *RodAccessor) element(ctx context.Context, selector string) (*rod.Element, error) {
	el, err := a.page.Context(ctx).Timeout(a.elementTimeout).Element(selector)
	if err != nil {
		if a.IsClosed() {
			return nil, ErrSessionClosed
		}
		return nil, fmt.Errorf("%w: %s", ErrNoElement, selector)
	}
	return el, nil
}

// Cookies exports the session cookies so the receipt capturer can fetch
// printable receipts over plain HTTP with the same identity.
func (a *RodAccessor) Cookies() ([]*http.Cookie, error) {
	cookies, err := a.page.Cookies(nil)
	if err != nil {
		return nil, fmt.Errorf("export cookies: %w", err)
	}
	out := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, &http.Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
		})
	}
	return out, nil
}

// WaitForLogin navigates to the entry URL and, when the application bounces
// to its login screen, waits for a human to complete login in the browser
// window. Polls once a second up to maxChecks before giving up.
func (a *RodAccessor) WaitForLogin(ctx context.Context, entryURL string, maxChecks int) error {
	log.Info("Navigating to NOSPOS...")
	if _, err := a.Navigate(ctx, entryURL); err != nil {
		return err
	}
	if err := a.WaitSettled(ctx); err != nil {
		return err
	}

	loc, err := a.Location(ctx)
	if err != nil {
		return err
	}
	if strings.Contains(loc, "/login") {
		log.Info("Please complete login manually in the browser window")
	}

	for checks := 0; checks < maxChecks; checks++ {
		if a.IsClosed() {
			return ErrSessionClosed
		}
		loc, err := a.Location(ctx)
		if err != nil {
			return err
		}
		if !strings.Contains(loc, "/login") {
			log.Info("Login confirmed")
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}

	return fmt.Errorf("timed out waiting for login to finish")
}

func (a *RodAccessor) Close() error {
	return a.browser.Close()
}
