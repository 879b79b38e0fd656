package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	analytichttp "github.com/shopdesk/shopdesk/internal/analytics/http"
	"github.com/shopdesk/shopdesk/internal/events"
	"github.com/shopdesk/shopdesk/internal/inventory"
	jobmetrics "github.com/shopdesk/shopdesk/internal/jobs"
	"github.com/shopdesk/shopdesk/internal/masterdata/categories"
	"github.com/shopdesk/shopdesk/internal/masterdata/products"
	"github.com/shopdesk/shopdesk/internal/observability"
	"github.com/shopdesk/shopdesk/internal/platform/cache"
	"github.com/shopdesk/shopdesk/internal/platform/db"
	"github.com/shopdesk/shopdesk/internal/querycache"
	"github.com/shopdesk/shopdesk/internal/realtime"
	"github.com/shopdesk/shopdesk/internal/sales"
	"github.com/shopdesk/shopdesk/internal/sales/commissions"
	"github.com/shopdesk/shopdesk/internal/sales/customers"
	"github.com/shopdesk/shopdesk/internal/servicerequests"
	"github.com/shopdesk/shopdesk/internal/shared"
	"github.com/shopdesk/shopdesk/internal/users"
	"github.com/shopdesk/shopdesk/migrations"
)

// Container holds the infrastructure clients and domain services shared by
// the API server and the worker.
type Container struct {
	Config     *Config
	Logger     *slog.Logger
	Pool       *pgxpool.Pool
	Redis      *redis.Client
	Cache      *querycache.Cache
	Metrics    *observability.Metrics
	JobMetrics *jobmetrics.Metrics
	Hub        *realtime.Hub
	Notifier   shared.Notifier

	Audit       *shared.AuditLogger
	Idempotency *shared.IdempotencyStore

	Users             *users.Service
	Products          *products.Service
	ProductCategories *categories.Service
	ServiceCategories *categories.Service
	Inventory         *inventory.Service
	Customers         *customers.Service
	Sales             *sales.Service
	Commissions       *commissions.Service
	ServiceRequests   *servicerequests.Service
	Reports           *analytichttp.Handler

	kafka    *events.KafkaPublisher
	embedded *db.Embedded
}

// Bootstrap connects to PostgreSQL and Redis, applies migrations when enabled
// and wires every domain service. Close releases what it opened.
func Bootstrap(ctx context.Context, cfg *Config, logger *slog.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}

	dsn := cfg.PGDSN
	if cfg.PGEmbedded {
		embedded, err := db.StartEmbedded(db.EmbeddedConfig{Port: cfg.PGEmbedPort, DataDir: cfg.PGEmbedData}, logger)
		if err != nil {
			return nil, err
		}
		c.embedded = embedded
		dsn = embedded.DSN()
	}

	pool, err := db.New(ctx, dsn)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Pool = pool

	if cfg.DBAutoMigrate && !InTestMode() {
		applied, err := db.Migrate(ctx, pool, migrations.FS)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		if len(applied) > 0 {
			logger.Info("migrations applied", slog.Any("files", applied))
		}
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		// Reads fall through to PostgreSQL without a cache.
		logger.Warn("redis unavailable, query cache disabled", slog.Any("error", err))
	} else {
		c.Redis = redisClient
	}

	c.Metrics = observability.NewMetrics()
	c.JobMetrics = jobmetrics.NewMetrics(c.Metrics.Registerer())
	c.Hub = realtime.NewHub(logger, c.Metrics)
	c.Cache = querycache.New(c.Redis, cfg.CacheTTL, logger)
	c.Cache.OnInvalidate(c.Hub.Invalidated)
	c.Cache.OnInvalidate(func(_ context.Context, resources []string) {
		c.Metrics.ObserveInvalidation(resources)
	})
	c.kafka = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, c.Metrics, logger)
	c.Audit = shared.NewAuditLogger(pool)
	c.Notifier = shared.Notifier{
		Cache:     c.Cache,
		Publisher: events.Fanout{c.kafka, c.Hub},
		Audit:     c.Audit,
		Logger:    logger,
	}

	c.Idempotency = shared.NewIdempotencyStore(pool)
	c.wireServices()
	return c, nil
}

func (c *Container) wireServices() {
	cfg, pool, qc, notify := c.Config, c.Pool, c.Cache, c.Notifier

	c.Users = users.NewService(users.NewRepository(pool), qc, notify, c.Audit)
	c.Products = products.NewService(products.NewRepository(pool), qc, notify)
	c.ProductCategories = categories.NewService(categories.NewRepository(pool, categories.ProductKind), categories.ProductKind, qc, notify)
	c.ServiceCategories = categories.NewService(categories.NewRepository(pool, categories.ServiceKind), categories.ServiceKind, qc, notify)
	c.Inventory = inventory.NewService(inventory.NewRepository(pool), c.Audit, qc, notify,
		inventory.ServiceConfig{AllowNegativeStock: cfg.AllowNegativeStock})
	c.Customers = customers.NewService(customers.NewRepository(pool), qc, notify)
	c.Sales = sales.NewService(sales.NewRepository(pool), c.Idempotency, qc, notify,
		sales.Config{TaxRate: cfg.SalesTaxRate, AllowNegativeStock: cfg.AllowNegativeStock})
	c.Commissions = commissions.NewService(commissions.NewRepository(pool), qc, notify)
	c.ServiceRequests = servicerequests.NewService(servicerequests.NewRepository(pool),
		servicerequests.NewDiskStore(cfg.AttachmentDir, cfg.AttachmentMaxBytes),
		qc, notify, c.Audit, servicerequests.Config{AllowNegativeStock: cfg.AllowNegativeStock})
	c.Reports = analytichttp.NewHandler(c.Logger, analytichttp.Sources{
		Sales:       c.Sales,
		Commissions: c.Commissions,
		Services:    c.ServiceRequests,
		Stock:       c.Inventory,
	}, cfg.ReportLocation())
}

// Close releases every client in reverse order of creation.
func (c *Container) Close() {
	if c == nil {
		return
	}
	if err := c.kafka.Close(); err != nil {
		c.Logger.Warn("kafka close", slog.Any("error", err))
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.Warn("redis close", slog.Any("error", err))
		}
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
	if err := c.embedded.Stop(); err != nil {
		c.Logger.Warn("embedded postgres stop", slog.Any("error", err))
	}
}
