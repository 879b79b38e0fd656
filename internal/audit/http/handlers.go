package audithttp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopdesk/shopdesk/internal/audit"
	"github.com/shopdesk/shopdesk/internal/platform/httpx"
	"github.com/shopdesk/shopdesk/internal/shared"
)

const (
	defaultRangeDays = 7
	maxRangeDays     = 90
)

// TimelineService defines the business contract for timeline data.
type TimelineService interface {
	Timeline(ctx context.Context, filters audit.TimelineFilters) (audit.Result, error)
	Export(ctx context.Context, filters audit.TimelineFilters) ([]audit.TimelineRow, error)
}

// Handler serves the audit timeline.
type Handler struct {
	logger  *slog.Logger
	service TimelineService
	loc     *time.Location
	now     func() time.Time
}

// NewHandler builds the audit handler. Day boundaries of from/to are taken in
// loc.
func NewHandler(logger *slog.Logger, service TimelineService, loc *time.Location) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{logger: logger, service: service, loc: loc, now: time.Now}
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("load audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rows, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.logger.Error("export audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	body, err := audit.WriteCSV(rows)
	if err != nil {
		h.logger.Error("encode audit csv", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-logs.csv"`)
	if _, err := w.Write(body); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

func (h *Handler) parseFilters(r *http.Request) (audit.TimelineFilters, error) {
	q := r.URL.Query()
	local := h.now().In(h.loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, h.loc)

	to := today
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		day, err := h.parseDay(v)
		if err != nil {
			return audit.TimelineFilters{}, invalid("to must be YYYY-MM-DD")
		}
		to = day
	}
	from := to.AddDate(0, 0, -defaultRangeDays+1)
	if v := strings.TrimSpace(q.Get("from")); v != "" {
		day, err := h.parseDay(v)
		if err != nil {
			return audit.TimelineFilters{}, invalid("from must be YYYY-MM-DD")
		}
		from = day
	}
	if from.After(to) {
		return audit.TimelineFilters{}, invalid("from must not be after to")
	}
	if to.Sub(from) > maxRangeDays*24*time.Hour {
		return audit.TimelineFilters{}, invalid(fmt.Sprintf("range must not exceed %d days", maxRangeDays))
	}

	filters := audit.TimelineFilters{
		From:     from,
		To:       to.AddDate(0, 0, 1),
		Entity:   strings.TrimSpace(q.Get("entity")),
		EntityID: strings.TrimSpace(q.Get("entity_id")),
		Action:   strings.TrimSpace(q.Get("action")),
	}
	actorID, err := httpx.QueryInt64(r, "actor_id")
	if err != nil {
		return audit.TimelineFilters{}, err
	}
	filters.ActorID = actorID
	if filters.Page, err = positiveInt(q.Get("page"), "page"); err != nil {
		return audit.TimelineFilters{}, err
	}
	if filters.PageSize, err = positiveInt(q.Get("page_size"), "page_size"); err != nil {
		return audit.TimelineFilters{}, err
	}
	return filters, nil
}

func (h *Handler) parseDay(v string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, h.loc), nil
}

func positiveInt(raw, field string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, invalid(field + " must be a positive integer")
	}
	return n, nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", shared.ErrValidation, msg)
}
