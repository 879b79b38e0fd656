package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/shopdesk/shopdesk/cmd/shopdesk/cli"
	"github.com/shopdesk/shopdesk/internal/app"
	"github.com/shopdesk/shopdesk/internal/audit"
	audithttp "github.com/shopdesk/shopdesk/internal/audit/http"
	"github.com/shopdesk/shopdesk/internal/inventory"
	"github.com/shopdesk/shopdesk/internal/masterdata"
	"github.com/shopdesk/shopdesk/internal/masterdata/categories"
	"github.com/shopdesk/shopdesk/internal/masterdata/products"
	"github.com/shopdesk/shopdesk/internal/sales"
	"github.com/shopdesk/shopdesk/internal/sales/commissions"
	"github.com/shopdesk/shopdesk/internal/sales/customers"
	"github.com/shopdesk/shopdesk/internal/servicerequests"
	"github.com/shopdesk/shopdesk/internal/users"
	"github.com/shopdesk/shopdesk/jobs"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	args := os.Args[1:]
	if len(args) > 0 && args[0] == "jobs" {
		fs := flag.NewFlagSet("jobs", flag.ExitOnError)
		jsonOut := fs.Bool("json", false, "print JSON output")
		_ = fs.Parse(args[1:])
		jobsCLI := cli.NewJobsCLI(cfg.RedisAddr, cfg.IdempotencyRetention)
		code := jobsCLI.Run(ctx, fs.Args(), cli.Options{JSONOutput: *jsonOut})
		if err := jobsCLI.Close(); err != nil {
			logger.Warn("jobs cli close", slog.Any("error", err))
		}
		stop()
		os.Exit(code)
	}

	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	migrateOnly := len(args) > 0 && args[0] == "migrate"
	if migrateOnly {
		cfg.DBAutoMigrate = true
	}
	container, err := app.Bootstrap(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap", slog.Any("error", err))
		os.Exit(1)
	}
	defer container.Close()

	if migrateOnly {
		logger.Info("migrations up to date")
		return
	}

	if err := container.Cache.ListenForInvalidation(ctx); err != nil {
		logger.Warn("invalidation listener", slog.Any("error", err))
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:       logger,
		Config:       cfg,
		Metrics:      container.Metrics,
		Pool:         container.Pool,
		Redis:        container.Redis,
		UsersHandler: users.NewHandler(logger, container.Users),
		MasterDataHandler: masterdata.NewHandler(
			products.NewHandler(logger, container.Products),
			categories.NewHandler(logger, container.ProductCategories),
			categories.NewHandler(logger, container.ServiceCategories),
		),
		InventoryHandler:       inventory.NewHandler(logger, container.Inventory),
		CustomersHandler:       customers.NewHandler(logger, container.Customers),
		SalesHandler:           sales.NewHandler(logger, container.Sales),
		CommissionsHandler:     commissions.NewHandler(logger, container.Commissions, jobClient),
		ServiceRequestsHandler: servicerequests.NewHandler(logger, container.ServiceRequests),
		ReportsHandler:         container.Reports,
		AuditHandler:           audithttp.NewHandler(logger, audit.NewService(audit.NewRepository(container.Pool)), cfg.ReportLocation()),
		JobHandler:             jobs.NewHandler(inspector, logger),
		Hub:                    container.Hub,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
