package fetch

import (
	"context"
	"time"

	"github.com/allendavis-developer/cg-stock-take/internal/page"

	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
)

// Fetcher paces and retries navigations against the shared session. The
// limiter caps overall request rate; the fixed delay handles the remote
// service's explicit throttling responses.
type Fetcher struct {
	accessor   page.Accessor
	rl         ratelimit.Limiter
	maxRetries int
	delay      time.Duration

	sleep func(time.Duration)
}

// New builds a Fetcher. requestsPerSecond <= 0 disables pacing, which the
// tests rely on.
func New(accessor page.Accessor, requestsPerSecond, maxRetries int, delay time.Duration) *Fetcher {
	rl := ratelimit.NewUnlimited()
	if requestsPerSecond > 0 {
		rl = ratelimit.New(requestsPerSecond)
	}
	return &Fetcher{
		accessor:   accessor,
		rl:         rl,
		maxRetries: maxRetries,
		delay:      delay,
		sleep:      time.Sleep,
	}
}

// FetchWithRetry navigates to url, sleeping a fixed delay and retrying while
// the remote service answers with a rate-limit status, up to maxRetries
// navigations. It returns nil once retries are exhausted: nil means
// "unreachable, abort this branch", never an empty success. Any non-throttled
// response, error statuses included, is returned as-is without retry.
func (f *Fetcher) FetchWithRetry(ctx context.Context, url string) *page.Response {
	for attempt := 0; attempt < f.maxRetries; attempt++ {
		f.rl.Take()

		resp, err := f.accessor.Navigate(ctx, url)
		if err != nil {
			log.Warnf("Navigation to %s failed: %v", url, err)
			return nil
		}
		if !resp.RateLimited() {
			return resp
		}

		log.Warnf("Rate limited on %s (attempt %d/%d), backing off %s",
			url, attempt+1, f.maxRetries, f.delay)
		f.sleep(f.delay)
	}

	log.Errorf("Retries exhausted for %s", url)
	return nil
}
