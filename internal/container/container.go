package container

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/allendavis-developer/cg-stock-take/internal/config"
	"github.com/allendavis-developer/cg-stock-take/internal/crawler"
	"github.com/allendavis-developer/cg-stock-take/internal/fetch"
	"github.com/allendavis-developer/cg-stock-take/internal/page"
	"github.com/allendavis-developer/cg-stock-take/internal/queue"
	"github.com/allendavis-developer/cg-stock-take/internal/receipt"
	"github.com/allendavis-developer/cg-stock-take/internal/refund"
	"github.com/allendavis-developer/cg-stock-take/internal/report"
	"github.com/allendavis-developer/cg-stock-take/internal/repository"
	"github.com/allendavis-developer/cg-stock-take/internal/sales"
	"github.com/allendavis-developer/cg-stock-take/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Container holds all initialized components
type Container struct {
	Config   *config.Config
	Accessor *page.RodAccessor
	Service  *service.Service

	db    *pgxpool.Pool
	redis *redis.Client
}

// New creates a new container with all dependencies initialized, including
// the browser session (which may require the operator to complete login).
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	container := &Container{
		Config: cfg,
	}

	accessor, err := page.NewRodAccessor(cfg.Browser)
	if err != nil {
		return nil, fmt.Errorf("failed to start browser session: %w", err)
	}
	container.Accessor = accessor

	if err := accessor.WaitForLogin(ctx, cfg.NOSPOS.BaseURL+cfg.NOSPOS.ReportPath, cfg.Browser.LoginCheckLimit); err != nil {
		_ = accessor.Close()
		return nil, fmt.Errorf("login not completed: %w", err)
	}

	var q queue.Queue
	if cfg.Queue.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Queue.Host, cfg.Queue.Port),
			Password: cfg.Queue.Password,
			DB:       cfg.Queue.Database,
		})
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			_ = accessor.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		log.Info("Connected to Redis failure stream")
		container.redis = rdb
		q = queue.NewRedisQueue(rdb)
	}

	var ledger repository.SaleLedger
	if cfg.Audit.Enabled {
		db, err := pgxpool.New(ctx,
			fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
				cfg.Audit.Host,
				cfg.Audit.Port,
				cfg.Audit.User,
				cfg.Audit.Password,
				cfg.Audit.Name,
			))
		if err != nil {
			_ = accessor.Close()
			return nil, fmt.Errorf("failed to connect to audit database: %w", err)
		}
		log.Info("Connected to audit database")
		container.db = db
		ledger = repository.NewSaleLedger(db)
	}

	fetcher := fetch.New(accessor,
		cfg.NOSPOS.MaxRequestsPerSecond,
		cfg.NOSPOS.MaxRetries,
		cfg.NOSPOS.RetryDelayDuration(),
	)

	crawl := crawler.New(accessor, fetcher, q,
		cfg.NOSPOS.BaseURL,
		cfg.NOSPOS.ReportPath,
		cfg.Crawl.FirstChildOnly,
		time.Duration(cfg.Crawl.MinDelayMs)*time.Millisecond,
		time.Duration(cfg.Crawl.MaxDelayMs)*time.Millisecond,
	)

	writer := report.NewWriter(cfg.Crawl.OutputDir)
	capturer := receipt.NewCapturer(cfg.NOSPOS.BaseURL, cfg.Sales.ReceiptDir, accessor)
	checkout := sales.NewDriver(accessor, fetcher, cfg.NOSPOS.BaseURL,
		cfg.Sales.CooldownDuration(), ledger, q, capturer)
	refunds := refund.NewDriver(accessor, fetcher, q, cfg.NOSPOS.BaseURL, cfg.Refund.SubmitDelay())

	container.Service = service.NewService(crawl, writer, checkout, refunds, cfg.Sales.BatchSize)

	return container, nil
}

// Run dispatches the invocation mode alongside a session watchdog: when the
// operator closes the browser window mid-run, everything aborts.
func (c *Container) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: cg-stock-take crawl | sales <file> [finalize] | refund <file>")
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, runCtx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer cancel()
		return c.dispatch(runCtx, args)
	})
	g.Go(func() error {
		return c.watchSession(runCtx)
	})
	return g.Wait()
}

func (c *Container) dispatch(ctx context.Context, args []string) error {
	switch args[0] {
	case "crawl":
		return c.Service.Crawl(ctx)

	case "sales":
		if len(args) < 2 {
			return fmt.Errorf("sales mode needs an input file")
		}
		finalize := c.Config.Sales.Finalize
		if len(args) > 2 && args[2] == "finalize" {
			finalize = true
		}
		return c.Service.ReplaySales(ctx, args[1], finalize)

	case "refund":
		if len(args) < 2 {
			return fmt.Errorf("refund mode needs an input file")
		}
		return c.Service.Refund(ctx, args[1])

	default:
		return fmt.Errorf("unknown mode %q", args[0])
	}
}

func (c *Container) watchSession(ctx context.Context) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if c.Accessor.IsClosed() {
				log.Error("Browser session closed externally")
				return page.ErrSessionClosed
			}
		}
	}
}

// Close performs cleanup when shutting down
func (c *Container) Close() error {
	log.Info("Shutting down...")

	if c.db != nil {
		c.db.Close()
	}
	if c.redis != nil {
		_ = c.redis.Close()
	}
	if c.Accessor != nil {
		return c.Accessor.Close()
	}
	return nil
}
