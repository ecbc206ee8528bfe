package page

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

// Response is the outcome of one navigation.
type Response struct {
	Status int
	URL    string
}

// RateLimited reports whether the remote service throttled the request.
// Throttling is the only condition the retry driver backs off for; every
// other status, error statuses included, is handed back to the caller.
func (r *Response) RateLimited() bool {
	return r != nil && r.Status == http.StatusTooManyRequests
}

var (
	// ErrNoElement is returned when an expected interactive element never
	// became available within its wait window. Callers handle it at the
	// narrowest scope the workflow allows: this row, this card, this batch.
	ErrNoElement = errors.New("page: element not found")

	// ErrSessionClosed is returned when the browser session has been closed
	// externally, e.g. by a human closing the window. It is fatal for the
	// whole run: session state cannot be recovered.
	ErrSessionClosed = errors.New("page: session closed")
)

// Accessor is the capability the drivers hold on the rendered remote
// application: navigate, wait for the document to settle, read structured
// data out of it, and fill/click form controls. Selector and query strings
// are owned by this package (queries.go) and the concrete adapter, never by
// the drivers, which is what lets the drivers run against a fake in tests.
type Accessor interface {
	Navigate(ctx context.Context, url string) (*Response, error)
	WaitSettled(ctx context.Context) error
	Location(ctx context.Context) (string, error)
	Extract(ctx context.Context, query string) (json.RawMessage, error)
	Fill(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	IsClosed() bool
}
