package sales

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shopdesk/shopdesk/internal/platform/httpx"
	"github.com/shopdesk/shopdesk/internal/shared"
)

// Handler manages sales endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers sales routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listSales)
	r.Post("/", h.createSale)
	r.Get("/{id}", h.showSale)
	r.Put("/{id}", h.updateSale)
	r.Delete("/{id}", h.deleteSale)
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	req, err := parseListRequest(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	sales, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list sales failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sales)
}

func parseListRequest(r *http.Request) (ListSalesRequest, error) {
	req := ListSalesRequest{Search: httpx.QueryString(r, "search")}
	var err error
	if req.From, err = httpx.QueryDate(r, "from"); err != nil {
		return req, err
	}
	if req.To, err = httpx.QueryDate(r, "to"); err != nil {
		return req, err
	}
	if req.SalesPersonID, err = httpx.QueryInt64(r, "sales_person_id"); err != nil {
		return req, err
	}
	if req.CustomerID, err = httpx.QueryInt64(r, "customer_id"); err != nil {
		return req, err
	}
	if raw := httpx.QueryString(r, "payment_status"); raw != "" {
		status := PaymentStatus(raw)
		req.PaymentStatus = &status
	}
	if raw := httpx.QueryString(r, "limit"); raw != "" {
		req.Limit, _ = strconv.Atoi(raw)
	}
	if raw := httpx.QueryString(r, "offset"); raw != "" {
		req.Offset, _ = strconv.Atoi(raw)
	}
	return req, httpx.Validator().Struct(req)
}

func (h *Handler) showSale(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	sale, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	var req CreateSaleRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	sale, replayed, err := h.service.CreateOrReplay(r.Context(), req, r.Header.Get(shared.IdempotencyHeader))
	if err != nil {
		h.logger.Error("create sale failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if replayed {
		w.Header().Set(shared.IdempotentReplayedHeader, "true")
		httpx.JSON(w, http.StatusOK, sale)
		return
	}
	httpx.JSON(w, http.StatusCreated, sale)
}

func (h *Handler) updateSale(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req UpdateSaleRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	sale, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.logger.Error("update sale failed", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) deleteSale(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete sale failed", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}
