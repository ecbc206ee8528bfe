package refund

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/allendavis-developer/cg-stock-take/internal/domain"
	"github.com/allendavis-developer/cg-stock-take/internal/domain/task"
	"github.com/allendavis-developer/cg-stock-take/internal/fetch"
	"github.com/allendavis-developer/cg-stock-take/internal/page"
	"github.com/allendavis-developer/cg-stock-take/internal/queue"

	log "github.com/sirupsen/logrus"
)

// refundReason is the placeholder justification entered on every card; the
// form requires one.
const refundReason = "Till correction"

// errMethodUnavailable marks a card whose refund method control never
// appeared. The rest of that receipt is skipped: without the method nothing
// on the page can be submitted coherently.
var errMethodUnavailable = errors.New("refund method unavailable")

// amountHintPattern matches "£0.00 / £17.50 Refunded" style hints: the
// amount already refunded, then the refundable total.
var amountHintPattern = regexp.MustCompile(`£?([0-9][0-9,]*(?:\.[0-9]+)?)\s*/\s*£?([0-9][0-9,]*(?:\.[0-9]+)?)`)

// quantityHintPattern matches "0 / 2 Returned" style hints.
var quantityHintPattern = regexp.MustCompile(`(\d+)\s*/\s*(\d+)`)

// LoadReceiptIDs reads newline-delimited receipt identifiers. Blank lines
// are skipped; non-integer lines are dropped with a warning, never fatal.
func LoadReceiptIDs(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open refund input: %w", err)
	}
	defer f.Close()

	var ids []int
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		id, err := strconv.Atoi(text)
		if err != nil {
			log.Warnf("Refund input line %d: %q is not a receipt ID, dropping", line, text)
			continue
		}
		ids = append(ids, id)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read refund input: %w", err)
	}
	return ids, nil
}

// card is one refund line as extracted from the page.
type card struct {
	Amount   string `json:"amount"`   // e.g. "£0.00 / £17.50 Refunded"
	Quantity string `json:"quantity"` // e.g. "0 / 2 Returned"
}

// Driver fills refund forms for a list of receipts. Receipts and cards are
// processed strictly in sequence against the shared session.
type Driver struct {
	accessor    page.Accessor
	fetcher     *fetch.Fetcher
	queue       queue.Queue // optional failure stream
	baseURL     string
	submitDelay time.Duration

	sleep func(time.Duration)
}

func NewDriver(accessor page.Accessor, fetcher *fetch.Fetcher, q queue.Queue, baseURL string, submitDelay time.Duration) *Driver {
	return &Driver{
		accessor:    accessor,
		fetcher:     fetcher,
		queue:       q,
		baseURL:     baseURL,
		submitDelay: submitDelay,
		sleep:       time.Sleep,
	}
}

// Run processes each receipt in order. Per-card failures are logged and the
// driver continues with the next card, then the next receipt; only a closed
// session stops the run.
func (d *Driver) Run(ctx context.Context, ids []int) error {
	for _, id := range ids {
		if err := d.processReceipt(ctx, id); err != nil {
			if errors.Is(err, page.ErrSessionClosed) {
				return err
			}
			log.Errorf("Receipt %d failed, moving on: %v", id, err)
		}
	}
	return nil
}

func (d *Driver) processReceipt(ctx context.Context, id int) error {
	url := fmt.Sprintf("%s/pos/refund?receipt=%d", d.baseURL, id)

	resp := d.fetcher.FetchWithRetry(ctx, url)
	if resp == nil {
		if d.accessor.IsClosed() {
			return page.ErrSessionClosed
		}
		return fmt.Errorf("refund page unreachable")
	}
	if err := d.accessor.WaitSettled(ctx); err != nil {
		return fmt.Errorf("settle refund page: %w", err)
	}

	cards, err := d.readCards(ctx)
	if err != nil {
		return err
	}
	if len(cards) == 0 {
		log.Warnf("Receipt %d: no refund cards found", id)
		return nil
	}
	log.Infof("Receipt %d: %d refund cards", id, len(cards))

	for i, c := range cards {
		if err := d.fillCard(ctx, i, c); err != nil {
			if errors.Is(err, page.ErrSessionClosed) {
				return err
			}
			if errors.Is(err, errMethodUnavailable) {
				log.Warnf("Receipt %d card %d: refund method unavailable, skipping rest of receipt", id, i)
				d.reportFailure(ctx, id, i, err)
				return nil
			}
			log.Errorf("Receipt %d card %d failed, continuing: %v", id, i, err)
			d.reportFailure(ctx, id, i, err)
		}
	}
	return nil
}

func (d *Driver) readCards(ctx context.Context) ([]card, error) {
	raw, err := d.accessor.Extract(ctx, page.QueryRefundCards)
	if err != nil {
		if d.accessor.IsClosed() {
			return nil, page.ErrSessionClosed
		}
		return nil, fmt.Errorf("read refund cards: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var cards []card
	if err := json.Unmarshal(raw, &cards); err != nil {
		return nil, fmt.Errorf("decode refund cards: %w", err)
	}
	return cards, nil
}

// fillCard refunds one line in full: remaining refundable amount, remaining
// returnable quantity, zero faulty units.
func (d *Driver) fillCard(ctx context.Context, i int, c card) error {
	amount, ok := parseAmountRemainder(c.Amount)
	if !ok {
		log.Warnf("Card %d: unparseable amount hint %q, defaulting to 0", i, c.Amount)
	}
	if err := d.accessor.Fill(ctx, page.SelRefundAmountField(i), fmt.Sprintf("%.2f", amount)); err != nil {
		return fmt.Errorf("fill refund amount: %w", err)
	}

	if err := d.accessor.Click(ctx, page.SelRefundMethodOption(i)); err != nil {
		if errors.Is(err, page.ErrNoElement) {
			return errMethodUnavailable
		}
		return fmt.Errorf("select refund method: %w", err)
	}

	qty, ok := parseQuantityRemainder(c.Quantity)
	if !ok {
		log.Warnf("Card %d: unparseable quantity hint %q, defaulting to 0", i, c.Quantity)
	}
	if err := d.accessor.Fill(ctx, page.SelReturnQuantityField(i), strconv.Itoa(qty)); err != nil {
		return fmt.Errorf("fill return quantity: %w", err)
	}
	if err := d.accessor.Fill(ctx, page.SelFaultyQuantityField(i), "0"); err != nil {
		return fmt.Errorf("zero faulty quantity: %w", err)
	}
	if err := d.accessor.Fill(ctx, page.SelRefundReasonField(i), refundReason); err != nil {
		return fmt.Errorf("fill refund reason: %w", err)
	}

	d.sleep(d.submitDelay)

	if err := d.accessor.Click(ctx, page.SelRefundSubmit(i)); err != nil {
		return fmt.Errorf("submit refund: %w", err)
	}
	return nil
}

// parseAmountRemainder extracts the already-refunded and refundable figures
// from a hint like "£0.00 / £17.50 Refunded" and returns what is left to
// refund.
func parseAmountRemainder(hint string) (float64, bool) {
	matches := amountHintPattern.FindStringSubmatch(hint)
	if len(matches) < 3 {
		return 0, false
	}
	refunded, err1 := domain.ParseMoney(matches[1])
	total, err2 := domain.ParseMoney(matches[2])
	if err1 != nil || err2 != nil {
		return 0, false
	}
	return total - refunded, true
}

// parseQuantityRemainder extracts returned and returnable counts from a hint
// like "0 / 2 Returned" and returns the remaining returnable quantity.
func parseQuantityRemainder(hint string) (int, bool) {
	matches := quantityHintPattern.FindStringSubmatch(hint)
	if len(matches) < 3 {
		return 0, false
	}
	returned, err1 := strconv.Atoi(matches[1])
	total, err2 := strconv.Atoi(matches[2])
	if err1 != nil || err2 != nil {
		return 0, false
	}
	return total - returned, true
}

func (d *Driver) reportFailure(ctx context.Context, receiptID, cardIndex int, cause error) {
	if d.queue == nil {
		return
	}
	t := &task.RefundFailureTask{ReceiptID: receiptID, Card: cardIndex, Error: cause.Error()}
	if _, err := d.queue.Publish(ctx, t); err != nil {
		log.Errorf("Failed to publish refund failure for receipt %d: %v", receiptID, err)
	}
}
