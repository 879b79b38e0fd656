package servicerequests

import (
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/shopdesk/shopdesk/internal/platform/httpx"
)

const multipartMemory = 8 << 20

// Handler exposes the repair workflow over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers service request routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Post("/upload", h.upload)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.show)
		r.Put("/", h.update)
		r.Delete("/", h.delete)
		r.Post("/status", h.changeStatus)
		r.Post("/assign", h.assign)
		r.Post("/payment", h.recordPayment)
		r.Get("/updates", h.listUpdates)
		r.Post("/updates", h.addUpdate)
		r.Get("/parts", h.listParts)
		r.Post("/parts", h.addPart)
		r.Delete("/parts/{partID}", h.removePart)
		r.Get("/attachments", h.listAttachments)
		r.Post("/attachments", h.uploadForRequest)
		r.Put("/attachments/{attachmentID}", h.updateAttachment)
		r.Delete("/attachments/{attachmentID}", h.deleteAttachment)
		r.Get("/attachments/{attachmentID}/download", h.downloadAttachment)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list service requests failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func parseListFilter(r *http.Request) (ListFilter, error) {
	filter := ListFilter{Search: httpx.QueryString(r, "search")}
	if raw := httpx.QueryString(r, "status"); raw != "" {
		status := Status(raw)
		if !status.IsValid() {
			return filter, fmt.Errorf("%w: unknown status %q", ErrValidation, raw)
		}
		filter.Status = &status
	}
	if raw := httpx.QueryString(r, "priority"); raw != "" {
		priority := Priority(raw)
		filter.Priority = &priority
	}
	var err error
	if filter.TechnicianID, err = httpx.QueryInt64(r, "technician_id"); err != nil {
		return filter, err
	}
	if filter.CategoryID, err = httpx.QueryInt64(r, "category_id"); err != nil {
		return filter, err
	}
	if filter.CustomerID, err = httpx.QueryInt64(r, "customer_id"); err != nil {
		return filter, err
	}
	if filter.From, err = httpx.QueryDate(r, "from"); err != nil {
		return filter, err
	}
	if filter.To, err = httpx.QueryDate(r, "to"); err != nil {
		return filter, err
	}
	if raw := httpx.QueryString(r, "limit"); raw != "" {
		filter.Limit, _ = strconv.Atoi(raw)
	}
	if raw := httpx.QueryString(r, "offset"); raw != "" {
		filter.Offset, _ = strconv.Atoi(raw)
	}
	return filter, nil
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	sr, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sr)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	sr, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.logger.Error("create service request failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sr)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req UpdateRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	sr, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.logger.Error("update service request failed", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sr)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete service request failed", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req ChangeStatusRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	sr, err := h.service.ChangeStatus(r.Context(), id, req)
	if err != nil {
		h.logger.Warn("change status failed", slog.Any("error", err), slog.Int64("id", id), slog.String("to", string(req.Status)))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sr)
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req AssignRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	sr, err := h.service.Assign(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sr)
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req PaymentRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	sr, err := h.service.RecordPayment(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sr)
}

func (h *Handler) listUpdates(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	updates, err := h.service.Updates(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updates)
}

func (h *Handler) addUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req AddUpdateRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	u, err := h.service.AddUpdate(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, u)
}

func (h *Handler) listParts(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	parts, err := h.service.Parts(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, parts)
}

func (h *Handler) addPart(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req AddPartRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	part, err := h.service.AddPart(r.Context(), id, req)
	if err != nil {
		h.logger.Error("add part failed", slog.Any("error", err), slog.Int64("id", id), slog.Int64("product_id", req.ProductID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, part)
}

func (h *Handler) removePart(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	partID, err := httpx.PathID(r, "partID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.RemovePart(r.Context(), id, partID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

// ============================================================================
// ATTACHMENTS
// ============================================================================

func (h *Handler) listAttachments(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, err := h.service.Attachments(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

// upload accepts multipart fields file, serviceRequestId, description and
// isCustomerVisible.
func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid upload", err.Error())
		return
	}
	id, err := strconv.ParseInt(strings.TrimSpace(r.FormValue("serviceRequestId")), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid upload", "serviceRequestId must be a positive integer")
		return
	}
	h.storeUpload(w, r, id)
}

func (h *Handler) uploadForRequest(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid upload", err.Error())
		return
	}
	h.storeUpload(w, r, id)
}

func (h *Handler) storeUpload(w http.ResponseWriter, r *http.Request, id int64) {
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid upload", "no file uploaded")
		return
	}
	defer file.Close()

	in := UploadInput{ServiceRequestID: id, FileName: header.Filename}
	if desc := strings.TrimSpace(r.FormValue("description")); desc != "" {
		in.Description = &desc
	}
	in.IsCustomerVisible, _ = strconv.ParseBool(r.FormValue("isCustomerVisible"))

	a, err := h.service.Upload(r.Context(), in, file)
	if err != nil {
		h.logger.Error("upload attachment failed", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, a)
}

func (h *Handler) updateAttachment(w http.ResponseWriter, r *http.Request) {
	id, attachmentID, ok := attachmentPath(w, r)
	if !ok {
		return
	}
	var req UpdateAttachmentRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	a, err := h.service.UpdateAttachment(r.Context(), id, attachmentID, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, a)
}

func (h *Handler) deleteAttachment(w http.ResponseWriter, r *http.Request) {
	id, attachmentID, ok := attachmentPath(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteAttachment(r.Context(), id, attachmentID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) downloadAttachment(w http.ResponseWriter, r *http.Request) {
	id, attachmentID, ok := attachmentPath(w, r)
	if !ok {
		return
	}
	a, body, err := h.service.OpenAttachment(r.Context(), id, attachmentID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	defer body.Close()
	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.FileName}))
	w.Header().Set("Content-Length", strconv.FormatInt(a.SizeBytes, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("download attachment interrupted", slog.Any("error", err), slog.Int64("attachment_id", attachmentID))
	}
}

func attachmentPath(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return 0, 0, false
	}
	attachmentID, err := httpx.PathID(r, "attachmentID")
	if err != nil {
		httpx.RespondError(w, err)
		return 0, 0, false
	}
	return id, attachmentID, true
}
