package sales

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/allendavis-developer/cg-stock-take/internal/domain"
	"github.com/allendavis-developer/cg-stock-take/internal/domain/task"
	"github.com/allendavis-developer/cg-stock-take/internal/fetch"
	"github.com/allendavis-developer/cg-stock-take/internal/page"
	"github.com/allendavis-developer/cg-stock-take/internal/queue"
	"github.com/allendavis-developer/cg-stock-take/internal/receipt"
	"github.com/allendavis-developer/cg-stock-take/internal/repository"

	log "github.com/sirupsen/logrus"
)

// discountJustification is the placeholder entered against every priced
// line; the workflow requires one but re-entered stock has no real discount
// story to tell.
const discountJustification = "Stock re-entry"

// cartIDPattern pulls the cart identifier the application assigns when a new
// sale opens, e.g. /pos/sale?id=18423.
var cartIDPattern = regexp.MustCompile(`[?&]id=(\d+)`)

// maxCartClears bounds the stale-cart cleanup loop.
const maxCartClears = 50

// Driver replays unit batches through the cart/checkout workflow. Batches
// are strictly sequential: one cart, one session, one batch at a time.
type Driver struct {
	accessor page.Accessor
	fetcher  *fetch.Fetcher
	baseURL  string
	cooldown time.Duration

	ledger   repository.SaleLedger // optional audit row per batch
	queue    queue.Queue           // optional failure stream
	capturer *receipt.Capturer     // optional receipt artifact capture

	sleep func(time.Duration)
}

func NewDriver(accessor page.Accessor, fetcher *fetch.Fetcher, baseURL string, cooldown time.Duration,
	ledger repository.SaleLedger, q queue.Queue, capturer *receipt.Capturer) *Driver {
	return &Driver{
		accessor: accessor,
		fetcher:  fetcher,
		baseURL:  baseURL,
		cooldown: cooldown,
		ledger:   ledger,
		queue:    q,
		capturer: capturer,
		sleep:    time.Sleep,
	}
}

// Run processes every batch in order. A failed batch is logged and skipped;
// the remote application clears carts on reopen, so no rollback is
// attempted. Only a closed session stops the run.
func (d *Driver) Run(ctx context.Context, batches []domain.Batch, finalize bool) error {
	if !finalize {
		log.Info("Dry run: transactions will be left open for inspection")
	}

	for i, batch := range batches {
		n := i + 1
		log.Infof("Processing batch %d/%d (%d units)", n, len(batches), len(batch.Units))

		if cartID, err := d.processBatch(ctx, n, batch, finalize); err != nil {
			if errors.Is(err, page.ErrSessionClosed) {
				return err
			}
			log.Errorf("Batch %d/%d failed, moving on: %v", n, len(batches), err)
			d.reportFailure(ctx, n, cartID, batch, err)
		}

		if i < len(batches)-1 {
			d.sleep(d.cooldown)
		}
	}
	return nil
}

// processBatch drives one batch through its cart. The cart identifier is
// returned even on failure so the failure report can carry it.
func (d *Driver) processBatch(ctx context.Context, n int, batch domain.Batch, finalize bool) (string, error) {
	cartID, err := d.openCart(ctx)
	if err != nil {
		return "", err
	}
	log.Infof("Batch %d: cart %s assigned", n, cartID)

	d.clearCart(ctx)

	groups := batch.Group()
	for _, g := range groups {
		if err := d.enterItem(ctx, g.Barserial); err != nil {
			return cartID, fmt.Errorf("enter item %s: %w", g.Barserial, err)
		}
	}

	if err := d.priceItems(ctx, groups); err != nil {
		return cartID, err
	}

	if err := d.accessor.Click(ctx, page.SelPricingSubmit); err != nil {
		return cartID, fmt.Errorf("submit pricing: %w", err)
	}
	if err := d.accessor.WaitSettled(ctx); err != nil {
		return cartID, fmt.Errorf("settle after pricing: %w", err)
	}

	if err := d.accessor.Click(ctx, page.SelPaymentMethod); err != nil {
		return cartID, fmt.Errorf("select payment method: %w", err)
	}

	// Recompute the total from our own data; the page's displayed figure is
	// never trusted.
	total := batch.Total()
	if err := d.accessor.Fill(ctx, page.SelPaymentAmount, fmt.Sprintf("%.2f", total)); err != nil {
		return cartID, fmt.Errorf("fill payment amount: %w", err)
	}
	log.Infof("Batch %d: cart %s, %d lines, %d units, total %.2f",
		n, cartID, len(groups), len(batch.Units), total)

	if finalize {
		if err := d.accessor.Click(ctx, page.SelFinalizeButton); err != nil {
			return cartID, fmt.Errorf("finalize transaction: %w", err)
		}
		if err := d.accessor.WaitSettled(ctx); err != nil {
			log.Warnf("Batch %d: page never settled after finalize: %v", n, err)
		}
	} else {
		log.Infof("Batch %d: leaving transaction %s open", n, cartID)
	}

	branch := d.branchName(ctx)

	if d.capturer != nil {
		artifact, err := d.capturer.Capture(ctx, cartID, branch)
		if err != nil {
			log.Errorf("Batch %d: receipt capture failed for cart %s: %v", n, cartID, err)
		} else {
			log.Infof("Batch %d: receipt saved to %s", n, artifact)
		}
	}

	if d.ledger != nil {
		entry := repository.BatchEntry{
			CartID:    cartID,
			Branch:    branch,
			Lines:     len(groups),
			Units:     len(batch.Units),
			Total:     total,
			Finalized: finalize,
		}
		if err := d.ledger.RecordBatch(ctx, entry); err != nil {
			log.Errorf("Batch %d: ledger write failed: %v", n, err)
		}
	}

	return cartID, nil
}

// openCart navigates home, starts a fresh sale and extracts the cart
// identifier the application assigned. A missing identifier aborts this
// batch only.
func (d *Driver) openCart(ctx context.Context) (string, error) {
	resp := d.fetcher.FetchWithRetry(ctx, d.baseURL+"/")
	if resp == nil {
		if d.accessor.IsClosed() {
			return "", page.ErrSessionClosed
		}
		return "", fmt.Errorf("home page unreachable")
	}
	if err := d.accessor.WaitSettled(ctx); err != nil {
		return "", fmt.Errorf("settle home page: %w", err)
	}

	if err := d.accessor.Click(ctx, page.SelNewSaleButton); err != nil {
		return "", fmt.Errorf("start new sale: %w", err)
	}
	if err := d.accessor.WaitSettled(ctx); err != nil {
		return "", fmt.Errorf("settle sale page: %w", err)
	}

	loc, err := d.accessor.Location(ctx)
	if err != nil {
		return "", fmt.Errorf("read cart location: %w", err)
	}
	matches := cartIDPattern.FindStringSubmatch(loc)
	if len(matches) < 2 {
		return "", fmt.Errorf("no cart identifier in location %q", loc)
	}
	return matches[1], nil
}

// clearCart removes any pre-existing lines. A fresh cart should already be
// empty; the guard protects against reused or stale carts.
func (d *Driver) clearCart(ctx context.Context) {
	for i := 0; i < maxCartClears; i++ {
		if err := d.accessor.Click(ctx, page.SelCartRemoveButton); err != nil {
			if !errors.Is(err, page.ErrNoElement) {
				log.Warnf("Cart clear stopped: %v", err)
			}
			return
		}
		log.Debug("Removed a stale cart line")
	}
	log.Warnf("Cart clear hit the %d-line cap, continuing anyway", maxCartClears)
}

// enterItem submits one barserial through the product search. The remote
// system accumulates repeated entries by key, so each distinct barserial is
// entered exactly once.
func (d *Driver) enterItem(ctx context.Context, barserial string) error {
	if err := d.accessor.Fill(ctx, page.SelSearchInput, barserial); err != nil {
		return err
	}
	if err := d.accessor.Click(ctx, page.SelSearchSubmit); err != nil {
		return err
	}
	return d.accessor.WaitSettled(ctx)
}

// priceItems fills the pricing form. Field indexes follow discovery order of
// distinct barserials, zero-based.
func (d *Driver) priceItems(ctx context.Context, groups []domain.GroupedItem) error {
	for i, g := range groups {
		if err := d.accessor.Fill(ctx, page.SelQuantityField(i), strconv.Itoa(g.Quantity())); err != nil {
			return fmt.Errorf("fill quantity for %s: %w", g.Barserial, err)
		}
		if err := d.accessor.Fill(ctx, page.SelUnitPriceField(i), fmt.Sprintf("%.2f", g.CostPerUnit())); err != nil {
			return fmt.Errorf("fill price for %s: %w", g.Barserial, err)
		}
		if err := d.accessor.Fill(ctx, page.SelDiscountReasonField(i), discountJustification); err != nil {
			return fmt.Errorf("fill discount reason for %s: %w", g.Barserial, err)
		}
	}
	return nil
}

func (d *Driver) branchName(ctx context.Context) string {
	raw, err := d.accessor.Extract(ctx, page.QueryBranchName)
	if err != nil || len(raw) == 0 {
		return "Unknown Branch"
	}
	var branch string
	if err := json.Unmarshal(raw, &branch); err != nil || branch == "" {
		return "Unknown Branch"
	}
	return branch
}

func (d *Driver) reportFailure(ctx context.Context, n int, cartID string, batch domain.Batch, cause error) {
	if d.queue == nil {
		return
	}
	t := &task.BatchFailureTask{
		BatchNumber: n,
		CartID:      cartID,
		Barserials:  batch.Barserials(),
		Error:       cause.Error(),
	}
	if _, err := d.queue.Publish(ctx, t); err != nil {
		log.Errorf("Failed to publish batch %d failure: %v", n, err)
	}
}
