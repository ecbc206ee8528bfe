package service

import (
	"context"
	"fmt"

	"github.com/allendavis-developer/cg-stock-take/internal/crawler"
	"github.com/allendavis-developer/cg-stock-take/internal/refund"
	"github.com/allendavis-developer/cg-stock-take/internal/report"
	"github.com/allendavis-developer/cg-stock-take/internal/sales"

	log "github.com/sirupsen/logrus"
)

// Service ties the drivers to their inputs and outputs, one method per
// invocation mode.
type Service struct {
	crawler   *crawler.Crawler
	writer    *report.Writer
	checkout  *sales.Driver
	refunds   *refund.Driver
	batchSize int
}

func NewService(
	c *crawler.Crawler,
	writer *report.Writer,
	checkout *sales.Driver,
	refunds *refund.Driver,
	batchSize int,
) *Service {
	return &Service{
		crawler:   c,
		writer:    writer,
		checkout:  checkout,
		refunds:   refunds,
		batchSize: batchSize,
	}
}

// Crawl walks the valuation report and writes one table per top-level
// category.
func (s *Service) Crawl(ctx context.Context) error {
	results, err := s.crawler.Crawl(ctx)
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}

	for _, result := range results {
		path, err := s.writer.WriteCategory(result.Category, result.Records)
		if err != nil {
			return fmt.Errorf("write table for %q: %w", result.Category, err)
		}
		log.Infof("Category %q: %d records -> %s", result.Category, len(result.Records), path)
	}

	log.Infof("Crawl complete: %d top-level categories", len(results))
	return nil
}

// ReplaySales expands the input file into unit batches and drives the
// checkout workflow for each. Input validation happens before any remote
// interaction.
func (s *Service) ReplaySales(ctx context.Context, file string, finalize bool) error {
	rows, err := sales.LoadRows(file)
	if err != nil {
		return err
	}

	units := sales.ExpandUnits(rows)
	batches := sales.MakeBatches(units, s.batchSize)
	log.Infof("Loaded %d rows -> %d units -> %d batches of up to %d",
		len(rows), len(units), len(batches), s.batchSize)

	return s.checkout.Run(ctx, batches, finalize)
}

// Refund processes every receipt identifier in the input file.
func (s *Service) Refund(ctx context.Context, file string) error {
	ids, err := refund.LoadReceiptIDs(file)
	if err != nil {
		return err
	}
	log.Infof("Loaded %d receipt IDs", len(ids))

	return s.refunds.Run(ctx, ids)
}
