package commissions

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shopdesk/shopdesk/internal/platform/httpx"
)

// SyncEnqueuer hands a sync run to the background worker.
type SyncEnqueuer interface {
	EnqueueCommissionSync(ctx context.Context) (string, error)
}

type Handler struct {
	logger   *slog.Logger
	service  *Service
	enqueuer SyncEnqueuer
}

// NewHandler builds the handler. With a nil enqueuer sync runs inline.
func NewHandler(logger *slog.Logger, service *Service, enqueuer SyncEnqueuer) *Handler {
	return &Handler{logger: logger, service: service, enqueuer: enqueuer}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/summary", h.summary)
	r.Post("/sync", h.sync)
	r.Get("/{id}", h.show)
	r.Post("/{id}/pay", h.markPaid)
	r.Post("/{id}/unpay", h.markUnpaid)
}

func parseFilter(r *http.Request) (ListFilter, error) {
	var f ListFilter
	var err error
	if f.SalesPersonID, err = httpx.QueryInt64(r, "sales_person_id"); err != nil {
		return f, err
	}
	if f.IsPaid, err = httpx.QueryBool(r, "is_paid"); err != nil {
		return f, err
	}
	if f.From, err = httpx.QueryDate(r, "from"); err != nil {
		return f, err
	}
	if f.To, err = httpx.QueryDate(r, "to"); err != nil {
		return f, err
	}
	return f, nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list commissions failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out, err := h.service.Summary(r.Context(), filter)
	if err != nil {
		h.logger.Error("commission summary failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	c, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) markPaid(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	c, err := h.service.MarkPaid(r.Context(), id)
	if err != nil {
		h.logger.Error("mark commission paid failed", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) markUnpaid(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	c, err := h.service.MarkUnpaid(r.Context(), id)
	if err != nil {
		h.logger.Error("mark commission unpaid failed", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) sync(w http.ResponseWriter, r *http.Request) {
	if h.enqueuer != nil {
		taskID, err := h.enqueuer.EnqueueCommissionSync(r.Context())
		if err != nil {
			h.logger.Error("enqueue commission sync failed", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusAccepted, map[string]string{"task_id": taskID})
		return
	}
	result, err := h.service.Sync(r.Context())
	if err != nil {
		h.logger.Error("commission sync failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}
