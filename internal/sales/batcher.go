package sales

import (
	"github.com/allendavis-developer/cg-stock-take/internal/domain"

	log "github.com/sirupsen/logrus"
)

// DefaultBatchSize matches the remote workflow's practical per-transaction
// item-entry limit. Fixed-size batches also scope partial failure to one
// batch instead of the whole run.
const DefaultBatchSize = 20

// ExpandUnits turns quantity-bearing rows into individual unit records. A
// row with quantity q yields q units sharing unitCost = cost/q; rows with
// non-positive quantity yield nothing.
func ExpandUnits(rows []Row) []domain.Unit {
	var units []domain.Unit
	for _, row := range rows {
		if row.Quantity <= 0 {
			log.Warnf("Skipping %q: non-positive quantity %d", row.Barserial, row.Quantity)
			continue
		}
		unitCost := row.Cost / float64(row.Quantity)
		for i := 0; i < row.Quantity; i++ {
			units = append(units, domain.Unit{Barserial: row.Barserial, UnitCost: unitCost})
		}
	}
	return units
}

// MakeBatches partitions the unit sequence into consecutive slices of
// batchSize; the final batch may be shorter. Order is preserved exactly:
// concatenating the batches reproduces the input sequence.
func MakeBatches(units []domain.Unit, batchSize int) []domain.Batch {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	batches := make([]domain.Batch, 0, (len(units)+batchSize-1)/batchSize)
	for start := 0; start < len(units); start += batchSize {
		end := start + batchSize
		if end > len(units) {
			end = len(units)
		}
		batches = append(batches, domain.Batch{Units: units[start:end]})
	}
	return batches
}
