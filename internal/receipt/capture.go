package receipt

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/allendavis-developer/cg-stock-take/internal/report"

	log "github.com/sirupsen/logrus"
	"resty.dev/v3"
)

// CookieSource exposes the browser session's cookies so receipts can be
// fetched over plain HTTP under the same identity.
type CookieSource interface {
	Cookies() ([]*http.Cookie, error)
}

// Capturer saves a durable copy of each batch's printable receipt, keyed by
// the assigned cart identifier and the branch read from the page chrome.
type Capturer struct {
	httpClient *resty.Client
	baseURL    string
	dir        string
	cookies    CookieSource
}

func NewCapturer(baseURL, dir string, cookies CookieSource) *Capturer {
	client := resty.New().
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(2 * time.Second)

	return &Capturer{
		httpClient: client,
		baseURL:    baseURL,
		dir:        dir,
		cookies:    cookies,
	}
}

// Capture fetches the printable receipt for a cart and writes it atomically
// under the receipt directory. Returns the written path.
func (c *Capturer) Capture(ctx context.Context, cartID, branch string) (string, error) {
	cookies, err := c.cookies.Cookies()
	if err != nil {
		return "", fmt.Errorf("export session cookies: %w", err)
	}

	url := fmt.Sprintf("%s/pos/receipt?id=%s", c.baseURL, cartID)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetCookies(cookies).
		Get(url)
	if err != nil {
		return "", fmt.Errorf("fetch receipt for cart %s: %w", cartID, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("receipt fetch for cart %s: HTTP %d %s", cartID, resp.StatusCode(), resp.Status())
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return "", fmt.Errorf("create receipt directory: %w", err)
	}

	name := fmt.Sprintf("receipt_%s_%s.html", report.SanitizeName(branch), cartID)
	final := filepath.Join(c.dir, name)

	tmp, err := os.CreateTemp(c.dir, "."+name+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp receipt file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(resp.Bytes()); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write receipt: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp receipt file: %w", err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		return "", fmt.Errorf("replace receipt file: %w", err)
	}

	log.Debugf("Captured receipt for cart %s at %s", cartID, final)
	return final, nil
}
