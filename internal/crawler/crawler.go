package crawler

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/allendavis-developer/cg-stock-take/internal/domain"
	"github.com/allendavis-developer/cg-stock-take/internal/domain/task"
	"github.com/allendavis-developer/cg-stock-take/internal/fetch"
	"github.com/allendavis-developer/cg-stock-take/internal/page"
	"github.com/allendavis-developer/cg-stock-take/internal/queue"

	log "github.com/sirupsen/logrus"
)

// CategoryResult is the complete record set crawled under one top-level
// category, in rendered order.
type CategoryResult struct {
	Category string
	Records  []domain.LeafRecord
}

// Crawler walks the stock-valuation report depth-first against the shared
// session. One outstanding navigation at a time: the collaborator page holds
// a single document, so parallel navigations would race on it.
type Crawler struct {
	accessor       page.Accessor
	fetcher        *fetch.Fetcher
	queue          queue.Queue // optional failure stream
	reportURL      string
	baseURL        string
	firstChildOnly bool

	// politeness pauses before every navigation; the remote service is
	// rate-limited and this throughput cap is deliberate.
	politeness func()
}

func New(accessor page.Accessor, fetcher *fetch.Fetcher, q queue.Queue, baseURL, reportPath string, firstChildOnly bool, minDelay, maxDelay time.Duration) *Crawler {
	return &Crawler{
		accessor:       accessor,
		fetcher:        fetcher,
		queue:          q,
		reportURL:      baseURL + reportPath,
		baseURL:        baseURL,
		firstChildOnly: firstChildOnly,
		politeness: func() {
			spread := maxDelay - minDelay
			if spread <= 0 {
				time.Sleep(minDelay)
				return
			}
			time.Sleep(minDelay + time.Duration(rand.Int63n(int64(spread))))
		},
	}
}

// Crawl walks the whole report and returns one result set per top-level
// category. A subtree that proves unreachable is abandoned with a warning
// and its siblings continue; a closed session aborts the crawl outright.
func (c *Crawler) Crawl(ctx context.Context) ([]CategoryResult, error) {
	info, err := c.readNode(ctx, c.reportURL, nil)
	if err != nil {
		return nil, err
	}
	if info == nil || info.kind != kindCategory {
		log.Warnf("Report root did not render a category table; nothing to crawl")
		return nil, nil
	}

	children := info.children
	if c.firstChildOnly && len(children) > 1 {
		log.Warnf("Test mode: exploring only the first of %d top-level categories", len(children))
		children = children[:1]
	}

	results := make([]CategoryResult, 0, len(children))
	for _, child := range children {
		log.Infof("Crawling top-level category %q", child.Name)

		records, err := c.crawlNode(ctx, child.URL, domain.CategoryPath{}.Extend(child.Name))
		if err != nil {
			return nil, err
		}

		log.Infof("Category %q yielded %d records", child.Name, len(records))
		results = append(results, CategoryResult{Category: child.Name, Records: records})
	}
	return results, nil
}

// crawlNode visits one node and returns its subtree's complete record set.
// Each frame accumulates into its own slice and returns it; parents
// concatenate. Paths are copy-on-extend, so sibling frames never share
// backing arrays.
func (c *Crawler) crawlNode(ctx context.Context, url string, path domain.CategoryPath) ([]domain.LeafRecord, error) {
	info, err := c.readNode(ctx, url, path)
	if err != nil {
		return nil, err
	}
	if info == nil {
		// Unreachable after retries: abandon this subtree, siblings go on.
		c.reportFailure(ctx, url, path, "unreachable after retries")
		return nil, nil
	}

	switch info.kind {
	case kindNone:
		log.Warnf("No table and no empty marker at %s; nothing recorded", path)
		return nil, nil

	case kindEmpty:
		log.Debugf("Category %s is empty", path)
		return []domain.LeafRecord{domain.EmptyLeafRecord(path)}, nil

	case kindLeaf:
		// Leaves terminate the branch even if they contain links.
		records := make([]domain.LeafRecord, 0, len(info.rows))
		for _, row := range info.rows {
			records = append(records, domain.LeafRecord{Path: path, Cells: row})
		}
		log.Debugf("Leaf %s: %d rows", path, len(records))
		return records, nil

	default: // kindCategory
		var records []domain.LeafRecord
		for _, child := range info.children {
			childRecords, err := c.crawlNode(ctx, child.URL, path.Extend(child.Name))
			if err != nil {
				return nil, err
			}
			records = append(records, childRecords...)
		}
		return records, nil
	}
}

// readNode navigates to a node and classifies its table. Returns (nil, nil)
// when the node is unreachable, and an error only for fatal conditions.
func (c *Crawler) readNode(ctx context.Context, url string, path domain.CategoryPath) (*tableInfo, error) {
	c.politeness()

	resp := c.fetcher.FetchWithRetry(ctx, url)
	if resp == nil {
		if c.accessor.IsClosed() {
			return nil, page.ErrSessionClosed
		}
		log.Warnf("Giving up on %q: unreachable", path)
		return nil, nil
	}

	if err := c.accessor.WaitSettled(ctx); err != nil {
		if c.accessor.IsClosed() {
			return nil, page.ErrSessionClosed
		}
		log.Warnf("Page never settled at %q: %v", path, err)
	}

	raw, err := c.accessor.Extract(ctx, page.QueryReportTable)
	if err != nil {
		if c.accessor.IsClosed() {
			return nil, page.ErrSessionClosed
		}
		log.Warnf("Failed to read report table at %q: %v", path, err)
		return nil, nil
	}

	var html string
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &html); err != nil {
			log.Warnf("Unexpected table payload at %q: %v", path, err)
			return nil, nil
		}
	}

	info, err := classifyTable(html, c.baseURL)
	if err != nil {
		log.Warnf("Failed to classify table at %q: %v", path, err)
		return nil, nil
	}

	log.Debugf("Node %q classified as %s", path, info.kind)
	return info, nil
}

func (c *Crawler) reportFailure(ctx context.Context, url string, path domain.CategoryPath, reason string) {
	if c.queue == nil {
		return
	}
	t := &task.NodeFailureTask{URL: url, Path: path, Reason: reason}
	if _, err := c.queue.Publish(ctx, t); err != nil {
		log.Errorf("Failed to publish node failure for %q: %v", path, err)
	}
}
