package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/allendavis-developer/cg-stock-take/internal/domain"
	"github.com/allendavis-developer/cg-stock-take/internal/domain/task"
	"github.com/allendavis-developer/cg-stock-take/internal/fetch"
	"github.com/allendavis-developer/cg-stock-take/internal/page"
	"github.com/allendavis-developer/cg-stock-take/internal/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSite serves a canned table per URL through the Accessor surface.
type fakeSite struct {
	pages    map[string]string // url -> report table HTML
	statuses map[string]int    // url -> status; unlisted URLs answer 200
	closed   bool
	current  string
	visits   []string
}

func (s *fakeSite) Navigate(ctx context.Context, url string) (*page.Response, error) {
	s.current = url
	s.visits = append(s.visits, url)
	status := s.statuses[url]
	if status == 0 {
		status = http.StatusOK
	}
	return &page.Response{Status: status, URL: url}, nil
}

func (s *fakeSite) WaitSettled(ctx context.Context) error { return nil }

func (s *fakeSite) Location(ctx context.Context) (string, error) { return s.current, nil }

func (s *fakeSite) Extract(ctx context.Context, query string) (json.RawMessage, error) {
	return json.Marshal(s.pages[s.current])
}

func (s *fakeSite) Fill(ctx context.Context, selector, value string) error { return nil }
func (s *fakeSite) Click(ctx context.Context, selector string) error       { return nil }
func (s *fakeSite) IsClosed() bool                                         { return s.closed }

// capturingQueue records published tasks instead of talking to Redis.
type capturingQueue struct {
	tasks []task.Task
}

func (q *capturingQueue) Publish(ctx context.Context, t task.Task) (string, error) {
	q.tasks = append(q.tasks, t)
	return "1-0", nil
}

const base = "https://nospos.com"

func categoryHTML(links ...[2]string) string {
	html := `<table><thead><tr><th>Category</th><th>Value</th></tr></thead><tbody>`
	for _, l := range links {
		html += `<tr><td><a href="` + l[1] + `">` + l[0] + `</a></td><td>0.00</td></tr>`
	}
	return html + `</tbody></table>`
}

func newTestCrawler(site *fakeSite, q queue.Queue, firstChildOnly bool) *Crawler {
	fetcher := fetch.New(site, 0, 3, 0)
	c := New(site, fetcher, q, base, "/stock/valuation", firstChildOnly, 0, 0)
	c.politeness = func() {}
	return c
}

func TestCrawlThreeLevels(t *testing.T) {
	// Root -> Consoles -> {Retro: two rows, Modern: no-results marker}.
	site := &fakeSite{pages: map[string]string{
		base + "/stock/valuation":        categoryHTML([2]string{"Consoles", "/stock/valuation?cat=1"}),
		base + "/stock/valuation?cat=1":  categoryHTML([2]string{"Retro", "/stock/valuation?cat=11"}, [2]string{"Modern", "/stock/valuation?cat=12"}),
		base + "/stock/valuation?cat=11": leafTable,
		base + "/stock/valuation?cat=12": emptyTable,
	}}

	c := newTestCrawler(site, nil, false)
	results, err := c.Crawl(context.Background())
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "Consoles", results[0].Category)

	records := results[0].Records
	require.Len(t, records, 3)

	// The leaf rows carry the full path down to their leaf category.
	assert.Equal(t, domain.CategoryPath{"Consoles", "Retro"}, records[0].Path)
	assert.Equal(t, "100001", records[0].Cells[0])
	assert.Equal(t, domain.CategoryPath{"Consoles", "Retro"}, records[1].Path)
	assert.Equal(t, "100002", records[1].Cells[0])

	// The empty category contributes one record with blank leaf cells.
	assert.Equal(t, domain.CategoryPath{"Consoles", "Modern"}, records[2].Path)
	assert.Equal(t, make([]string, len(domain.LeafColumns)), records[2].Cells)

	// Pre-order traversal: root, Consoles, Retro, Modern.
	assert.Equal(t, []string{
		base + "/stock/valuation",
		base + "/stock/valuation?cat=1",
		base + "/stock/valuation?cat=11",
		base + "/stock/valuation?cat=12",
	}, site.visits)
}

func TestCrawlFirstChildOnly(t *testing.T) {
	site := &fakeSite{pages: map[string]string{
		base + "/stock/valuation":       categoryHTML([2]string{"Consoles", "/stock/valuation?cat=1"}, [2]string{"Games", "/stock/valuation?cat=2"}),
		base + "/stock/valuation?cat=1": leafTable,
		base + "/stock/valuation?cat=2": leafTable,
	}}

	c := newTestCrawler(site, nil, true)
	results, err := c.Crawl(context.Background())
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "Consoles", results[0].Category)
	assert.NotContains(t, site.visits, base+"/stock/valuation?cat=2")
}

func TestCrawlRootNotACategory(t *testing.T) {
	site := &fakeSite{pages: map[string]string{
		base + "/stock/valuation": leafTable,
	}}

	c := newTestCrawler(site, nil, false)
	results, err := c.Crawl(context.Background())
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestCrawlSiblingPathsStayIndependent(t *testing.T) {
	// Two sibling subtrees under the same parent must not leak path segments
	// into each other.
	site := &fakeSite{pages: map[string]string{
		base + "/stock/valuation":        categoryHTML([2]string{"Consoles", "/stock/valuation?cat=1"}),
		base + "/stock/valuation?cat=1":  categoryHTML([2]string{"Retro", "/stock/valuation?cat=11"}, [2]string{"Modern", "/stock/valuation?cat=12"}),
		base + "/stock/valuation?cat=11": leafTable,
		base + "/stock/valuation?cat=12": leafTable,
	}}

	c := newTestCrawler(site, nil, false)
	results, err := c.Crawl(context.Background())
	require.NoError(t, err)

	records := results[0].Records
	require.Len(t, records, 4)
	assert.Equal(t, domain.CategoryPath{"Consoles", "Retro"}, records[0].Path)
	assert.Equal(t, domain.CategoryPath{"Consoles", "Modern"}, records[2].Path)
}

func TestCrawlUnreachableSubtreeAbandonsOnlyItself(t *testing.T) {
	// Retro never stops answering 429; its subtree is abandoned after retry
	// exhaustion while the Modern sibling is still crawled in full.
	site := &fakeSite{
		pages: map[string]string{
			base + "/stock/valuation":        categoryHTML([2]string{"Consoles", "/stock/valuation?cat=1"}),
			base + "/stock/valuation?cat=1":  categoryHTML([2]string{"Retro", "/stock/valuation?cat=11"}, [2]string{"Modern", "/stock/valuation?cat=12"}),
			base + "/stock/valuation?cat=12": leafTable,
		},
		statuses: map[string]int{
			base + "/stock/valuation?cat=11": http.StatusTooManyRequests,
		},
	}
	q := &capturingQueue{}

	c := newTestCrawler(site, q, false)
	results, err := c.Crawl(context.Background())
	require.NoError(t, err)

	require.Len(t, results, 1)
	records := results[0].Records
	require.Len(t, records, 2)
	assert.Equal(t, domain.CategoryPath{"Consoles", "Modern"}, records[0].Path)
	assert.Equal(t, domain.CategoryPath{"Consoles", "Modern"}, records[1].Path)

	// The abandoned subtree is published to the failure stream.
	require.Len(t, q.tasks, 1)
	failure, ok := q.tasks[0].(*task.NodeFailureTask)
	require.True(t, ok)
	assert.Equal(t, base+"/stock/valuation?cat=11", failure.URL)
	assert.Equal(t, []string{"Consoles", "Retro"}, failure.Path)
	assert.Equal(t, "unreachable after retries", failure.Reason)
}

func TestCrawlClosedSessionIsFatal(t *testing.T) {
	// When the session is closed, an unreachable node aborts the whole crawl
	// instead of being treated as an abandoned subtree.
	site := &fakeSite{
		pages: map[string]string{
			base + "/stock/valuation": categoryHTML([2]string{"Consoles", "/stock/valuation?cat=1"}),
		},
		statuses: map[string]int{
			base + "/stock/valuation?cat=1": http.StatusTooManyRequests,
		},
		closed: true,
	}
	q := &capturingQueue{}

	c := newTestCrawler(site, q, false)
	results, err := c.Crawl(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, page.ErrSessionClosed))
	assert.Nil(t, results)
	assert.Empty(t, q.tasks, "a dead session is not an auditable gap")
}
