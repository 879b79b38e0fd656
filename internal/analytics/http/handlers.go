package analytichttp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shopdesk/shopdesk/internal/analytics"
	"github.com/shopdesk/shopdesk/internal/platform/httpx"
	"github.com/shopdesk/shopdesk/internal/shared"
)

const (
	requestTimeout   = 5 * time.Second
	defaultRangeDays = 30
	defaultTopN      = 10
)

// Handler serves the dashboard report endpoints.
type Handler struct {
	logger  *slog.Logger
	sources Sources
	loc     *time.Location
	now     func() time.Time
}

// NewHandler constructs the report handler. loc buckets sales by hour and
// weekday; nil means UTC.
func NewHandler(logger *slog.Logger, sources Sources, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{logger: logger, sources: sources, loc: loc, now: time.Now}
}

// WithNow overrides the clock used for default ranges.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

// SalesReport is the payload of /reports/sales.
type SalesReport struct {
	Range         Range                        `json:"range"`
	Summary       analytics.SalesSummary       `json:"summary"`
	Daily         []analytics.DailySales       `json:"daily"`
	BySalesPerson []analytics.SalesPersonSales `json:"by_sales_person"`
	ByCategory    []analytics.CategorySales    `json:"by_category"`
	ByHour        []analytics.HourlySales      `json:"by_hour"`
	ByWeekday     []analytics.WeekdaySales     `json:"by_weekday"`
	TopProducts   []analytics.ProductSales     `json:"top_products"`
}

// Dashboard is the combined card set of /reports/dashboard.
type Dashboard struct {
	Range       Range                         `json:"range"`
	Sales       analytics.SalesSummary        `json:"sales"`
	Daily       []analytics.DailySales        `json:"daily"`
	TopProducts []analytics.ProductSales      `json:"top_products"`
	Commissions []analytics.CommissionSummary `json:"commissions"`
	Services    analytics.ServiceSummary      `json:"services"`
	Inventory   analytics.InventorySummary    `json:"inventory"`
}

func (h *Handler) handleSales(w http.ResponseWriter, r *http.Request) {
	rng, err := h.parseRange(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	query, err := parseSaleQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	top := parseTop(r)

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var rows []analytics.SaleRow
	var lines []analytics.SaleLineRow
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = h.sources.saleRows(gctx, rng)
		return err
	})
	g.Go(func() error {
		var err error
		lines, err = h.sources.lineRows(gctx, rng)
		return err
	})
	if err := g.Wait(); err != nil {
		h.fail(w, "sales report", err)
		return
	}

	rows = analytics.FilterSales(rows, query)
	lines = linesOf(lines, rows)
	httpx.JSON(w, http.StatusOK, SalesReport{
		Range:         rng,
		Summary:       analytics.SummarizeSales(rows),
		Daily:         analytics.GroupByDate(rows, h.loc),
		BySalesPerson: analytics.GroupBySalesPerson(rows),
		ByCategory:    analytics.GroupByCategory(lines),
		ByHour:        analytics.GroupByHour(rows, h.loc),
		ByWeekday:     analytics.GroupByWeekday(rows, h.loc),
		TopProducts:   analytics.TopProducts(lines, top),
	})
}

// linesOf keeps the lines that belong to the given sales.
func linesOf(lines []analytics.SaleLineRow, sales []analytics.SaleRow) []analytics.SaleLineRow {
	keep := make(map[int64]struct{}, len(sales))
	for _, s := range sales {
		keep[s.ID] = struct{}{}
	}
	out := make([]analytics.SaleLineRow, 0, len(lines))
	for _, l := range lines {
		if _, ok := keep[l.SaleID]; ok {
			out = append(out, l)
		}
	}
	return out
}

func (h *Handler) handleCommissions(w http.ResponseWriter, r *http.Request) {
	rng, err := h.parseRange(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	rows, err := h.sources.commissionRows(ctx, rng)
	if err != nil {
		h.fail(w, "commission report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"range":   rng,
		"summary": analytics.SummarizeCommissions(rows),
	})
}

func (h *Handler) handleServices(w http.ResponseWriter, r *http.Request) {
	rng, err := h.parseRange(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	query := analytics.ServiceQuery{
		Search: httpx.QueryString(r, "search"),
		Status: httpx.QueryString(r, "status"),
	}
	if query.TechnicianID, err = httpx.QueryInt64(r, "technician_id"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if query.CategoryID, err = httpx.QueryInt64(r, "category_id"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	rows, err := h.sources.serviceRows(ctx, rng)
	if err != nil {
		h.fail(w, "service report", err)
		return
	}
	rows = analytics.FilterServices(rows, query)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"range":   rng,
		"summary": analytics.SummarizeServices(rows),
	})
}

func (h *Handler) handleInventory(w http.ResponseWriter, r *http.Request) {
	query := analytics.ProductQuery{Search: httpx.QueryString(r, "search")}
	var err error
	if query.CategoryID, err = httpx.QueryInt64(r, "category_id"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	stock, products, err := h.sources.stockRows(ctx)
	if err != nil {
		h.fail(w, "inventory report", err)
		return
	}
	matched := analytics.FilterProducts(products, query)
	keep := make(map[int64]struct{}, len(matched))
	for _, p := range matched {
		keep[p.ID] = struct{}{}
	}
	filtered := make([]analytics.StockRow, 0, len(matched))
	for _, row := range stock {
		if _, ok := keep[row.ProductID]; ok {
			filtered = append(filtered, row)
		}
	}
	httpx.JSON(w, http.StatusOK, analytics.SummarizeInventory(filtered))
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	rng, err := h.parseRange(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	data, err := h.loadDashboard(ctx, rng, parseTop(r))
	if err != nil {
		h.fail(w, "dashboard", err)
		return
	}
	httpx.JSON(w, http.StatusOK, data)
}

// Dashboard loads every card of the dashboard for rng.
func (h *Handler) Dashboard(ctx context.Context, rng Range) (Dashboard, error) {
	return h.loadDashboard(ctx, rng, defaultTopN)
}

func (h *Handler) loadDashboard(ctx context.Context, rng Range, top int) (Dashboard, error) {
	var (
		sales       []analytics.SaleRow
		lines       []analytics.SaleLineRow
		commissions []analytics.CommissionRow
		services    []analytics.ServiceRow
		stock       []analytics.StockRow
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sales, err = h.sources.saleRows(ctx, rng)
		return err
	})
	g.Go(func() error {
		var err error
		lines, err = h.sources.lineRows(ctx, rng)
		return err
	})
	g.Go(func() error {
		var err error
		commissions, err = h.sources.commissionRows(ctx, rng)
		return err
	})
	g.Go(func() error {
		var err error
		services, err = h.sources.serviceRows(ctx, rng)
		return err
	})
	g.Go(func() error {
		var err error
		stock, _, err = h.sources.stockRows(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return Dashboard{
		Range:       rng,
		Sales:       analytics.SummarizeSales(sales),
		Daily:       analytics.GroupByDate(sales, h.loc),
		TopProducts: analytics.TopProducts(lines, top),
		Commissions: analytics.SummarizeCommissions(commissions),
		Services:    analytics.SummarizeServices(services),
		Inventory:   analytics.SummarizeInventory(stock),
	}, nil
}

func (h *Handler) fail(w http.ResponseWriter, what string, err error) {
	h.logger.Error(what+" failed", slog.Any("error", err))
	httpx.RespondError(w, err)
}

// parseRange reads from and to as calendar days in the report zone. to is
// inclusive; the default is the last 30 days including today.
func (h *Handler) parseRange(r *http.Request) (Range, error) {
	today := dayIn(h.now().In(h.loc), h.loc)
	rng := Range{To: today.AddDate(0, 0, 1)}
	from, err := httpx.QueryDate(r, "from")
	if err != nil {
		return rng, err
	}
	to, err := httpx.QueryDate(r, "to")
	if err != nil {
		return rng, err
	}
	if to != nil {
		rng.To = dayIn(*to, h.loc).AddDate(0, 0, 1)
	}
	rng.From = rng.To.AddDate(0, 0, -defaultRangeDays)
	if from != nil {
		rng.From = dayIn(*from, h.loc)
	}
	if !rng.From.Before(rng.To) {
		return rng, fmt.Errorf("%w: from must not be after to", shared.ErrValidation)
	}
	return rng, nil
}

// dayIn returns midnight in loc of the calendar day written in t.
func dayIn(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func parseSaleQuery(r *http.Request) (analytics.SaleQuery, error) {
	q := analytics.SaleQuery{
		Search:        httpx.QueryString(r, "search"),
		PaymentStatus: httpx.QueryString(r, "payment_status"),
	}
	var err error
	q.SalesPersonID, err = httpx.QueryInt64(r, "sales_person_id")
	return q, err
}

func parseTop(r *http.Request) int {
	if n, err := strconv.Atoi(httpx.QueryString(r, "top")); err == nil && n > 0 {
		return n
	}
	return defaultTopN
}
