package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// BatchEntry is the audit row written after each processed sales batch.
type BatchEntry struct {
	CartID    string
	Branch    string
	Lines     int // distinct barserials
	Units     int
	Total     float64 // independently computed payment total
	Finalized bool
}

// SaleLedger records processed batches. Pure side output; nothing reads it
// back during a run.
type SaleLedger interface {
	RecordBatch(ctx context.Context, entry BatchEntry) error
}

type saleLedger struct {
	db *pgxpool.Pool
}

func NewSaleLedger(db *pgxpool.Pool) SaleLedger {
	return &saleLedger{
		db: db,
	}
}

func (r *saleLedger) RecordBatch(ctx context.Context, entry BatchEntry) error {
	query := `
	INSERT INTO sale_batches (cart_id, branch, lines, units, total, finalized, recorded_at)
	VALUES ($1, $2, $3, $4, $5, $6, now())`
	_, err := r.db.Exec(ctx, query,
		entry.CartID, entry.Branch, entry.Lines, entry.Units, entry.Total, entry.Finalized)
	if err != nil {
		return fmt.Errorf("failed to record batch: %w", err)
	}

	return nil
}
