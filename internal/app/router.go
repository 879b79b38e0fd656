package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	analytichttp "github.com/shopdesk/shopdesk/internal/analytics/http"
	audithttp "github.com/shopdesk/shopdesk/internal/audit/http"
	"github.com/shopdesk/shopdesk/internal/inventory"
	"github.com/shopdesk/shopdesk/internal/masterdata"
	"github.com/shopdesk/shopdesk/internal/observability"
	"github.com/shopdesk/shopdesk/internal/platform/httpx"
	"github.com/shopdesk/shopdesk/internal/realtime"
	"github.com/shopdesk/shopdesk/internal/sales"
	"github.com/shopdesk/shopdesk/internal/sales/commissions"
	"github.com/shopdesk/shopdesk/internal/sales/customers"
	"github.com/shopdesk/shopdesk/internal/servicerequests"
	"github.com/shopdesk/shopdesk/internal/users"
	"github.com/shopdesk/shopdesk/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics
	Pool    *pgxpool.Pool
	Redis   *redis.Client

	UsersHandler           *users.Handler
	MasterDataHandler      *masterdata.Handler
	InventoryHandler       *inventory.Handler
	CustomersHandler       *customers.Handler
	SalesHandler           *sales.Handler
	CommissionsHandler     *commissions.Handler
	ServiceRequestsHandler *servicerequests.Handler
	ReportsHandler         *analytichttp.Handler
	AuditHandler           *audithttp.Handler
	JobHandler             *jobs.Handler
	Hub                    *realtime.Hub
}

// NewRouter constructs the chi.Router with shopdesk defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	// The websocket stays outside the timeout and compression middleware.
	if params.Hub != nil {
		r.Handle("/ws", params.Hub)
	}

	r.Group(func(r chi.Router) {
		for _, mw := range MiddlewareStack(MiddlewareConfig{
			Logger:  params.Logger,
			Config:  params.Config,
			Metrics: params.Metrics,
		}) {
			r.Use(mw)
		}
		r.Use(chimw.Logger)

		r.Get("/healthz", healthHandler(params.Pool, params.Redis))
		if params.Metrics != nil {
			r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}

		r.Route("/api", func(r chi.Router) {
			if params.UsersHandler != nil {
				r.Route("/users", params.UsersHandler.MountRoutes)
			}
			if params.MasterDataHandler != nil {
				params.MasterDataHandler.MountRoutes(r)
			}
			if params.InventoryHandler != nil {
				r.Route("/inventory", params.InventoryHandler.MountRoutes)
			}
			if params.CustomersHandler != nil {
				r.Route("/customers", params.CustomersHandler.MountRoutes)
			}
			if params.SalesHandler != nil {
				r.Route("/sales", params.SalesHandler.MountRoutes)
			}
			if params.CommissionsHandler != nil {
				r.Route("/commissions", params.CommissionsHandler.MountRoutes)
			}
			if params.ServiceRequestsHandler != nil {
				r.Route("/service-requests", params.ServiceRequestsHandler.MountRoutes)
			}
			if params.ReportsHandler != nil {
				r.Route("/reports", params.ReportsHandler.MountRoutes)
			}
			if params.AuditHandler != nil {
				r.Route("/audit-logs", params.AuditHandler.MountRoutes)
			}
		})
	})

	return r
}

type healthStatus struct {
	Status   string `json:"status"`
	Postgres string `json:"postgres"`
	Redis    string `json:"redis"`
}

// healthHandler reports 503 only when PostgreSQL is unreachable. Redis is
// optional and reported as degraded.
func healthHandler(pool *pgxpool.Pool, rdb *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := healthStatus{Status: "ok", Postgres: "ok", Redis: "ok"}
		code := http.StatusOK
		if pool == nil {
			status.Postgres = "unconfigured"
		} else if err := pool.Ping(ctx); err != nil {
			status.Status, status.Postgres = "down", "unreachable"
			code = http.StatusServiceUnavailable
		}
		if rdb == nil {
			status.Redis = "disabled"
		} else if err := rdb.Ping(ctx).Err(); err != nil {
			status.Redis = "unreachable"
		}
		if code == http.StatusOK && status.Redis != "ok" {
			status.Status = "degraded"
		}
		httpx.JSON(w, code, status)
	}
}
