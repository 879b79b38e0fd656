package servicerequests

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/shopdesk/shopdesk/internal/inventory"
	"github.com/shopdesk/shopdesk/internal/querycache"
	salesshared "github.com/shopdesk/shopdesk/internal/sales/shared"
	"github.com/shopdesk/shopdesk/internal/shared"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, filter ListFilter) ([]ServiceRequest, error)
	Get(ctx context.Context, id int64) (*ServiceRequest, error)
	Updates(ctx context.Context, requestID int64) ([]Update, error)
	Parts(ctx context.Context, requestID int64) ([]PartUsed, error)
	Attachments(ctx context.Context, requestID int64) ([]Attachment, error)
	GetAttachment(ctx context.Context, requestID, attachmentID int64) (*Attachment, error)
	InsertAttachment(ctx context.Context, a Attachment) (int64, error)
	UpdateAttachment(ctx context.Context, id int64, description *string, visible *bool) error
	DeleteAttachment(ctx context.Context, id int64) error
}

// Config carries the stock policy applied to parts.
type Config struct {
	AllowNegativeStock bool
}

// Service implements the repair workflow.
type Service struct {
	repo   RepositoryPort
	files  AttachmentStore
	cache  *querycache.Cache
	notify shared.Notifier
	audit  shared.AuditRecorder
	cfg    Config
	now    func() time.Time
}

// NewService builds the service. files, cache and audit may be nil.
func NewService(repo RepositoryPort, files AttachmentStore, cache *querycache.Cache, notify shared.Notifier, audit shared.AuditRecorder, cfg Config) *Service {
	return &Service{repo: repo, files: files, cache: cache, notify: notify, audit: audit, cfg: cfg, now: time.Now}
}

// NewRequestNumber formats SR-YYYYMMDD-XXXXXX.
func NewRequestNumber(at time.Time) string {
	return "SR-" + at.Format("20060102") + "-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
}

// ============================================================================
// READS
// ============================================================================

// List returns requests matching filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]ServiceRequest, error) {
	return querycache.Load(ctx, s.cache,
		[]string{querycache.ServiceRequests, querycache.ServiceCategories, querycache.Customers, querycache.Users},
		[]string{"service-requests", querycache.FilterToken(filter)},
		func(ctx context.Context) ([]ServiceRequest, error) {
			return s.repo.List(ctx, filter)
		})
}

// Get returns a request with its history, parts and attachments.
func (s *Service) Get(ctx context.Context, id int64) (*ServiceRequest, error) {
	sr, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sr.Updates, err = s.repo.Updates(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		sr.Parts, err = s.repo.Parts(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		sr.Attachments, err = s.repo.Attachments(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sr, nil
}

// Updates returns the history of a request.
func (s *Service) Updates(ctx context.Context, id int64) ([]Update, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.Updates(ctx, id)
}

// Parts returns the parts consumed by a request.
func (s *Service) Parts(ctx context.Context, id int64) ([]PartUsed, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.Parts(ctx, id)
}

// ============================================================================
// WRITES
// ============================================================================

// Create opens a request. Supplying a technician starts it as assigned.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*ServiceRequest, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	priority := req.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	actorID := shared.ActorFromContext(ctx)
	now := s.now()
	sr := ServiceRequest{
		RequestNumber:        NewRequestNumber(now),
		Title:                strings.TrimSpace(req.Title),
		Description:          req.Description,
		ServiceCategoryID:    req.ServiceCategoryID,
		CustomerID:           req.CustomerID,
		AssignedTechnicianID: req.AssignedTechnicianID,
		Status:               StatusPending,
		Priority:             priority,
		DeviceType:           req.DeviceType,
		DeviceBrand:          req.DeviceBrand,
		DeviceModel:          req.DeviceModel,
		SerialNumber:         req.SerialNumber,
		EstimatedCost:        req.EstimatedCost,
		PaymentStatus:        PaymentUnpaid,
		Notes:                req.Notes,
		CreatedBy:            actorPtr(actorID),
	}

	var id int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if sr.AssignedTechnicianID != nil {
			if err := checkTechnician(ctx, tx, *sr.AssignedTechnicianID); err != nil {
				return err
			}
			sr.Status = StatusAssigned
			sr.AssignedDate = &now
		}
		var err error
		id, err = tx.Insert(ctx, sr)
		if err != nil {
			return err
		}
		to := sr.Status
		_, err = tx.InsertUpdate(ctx, Update{
			ServiceRequestID:  id,
			StatusTo:          &to,
			Title:             "Service request created",
			IsCustomerVisible: true,
			CreatedBy:         sr.CreatedBy,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "service_request.create", id, map[string]any{"request_number": sr.RequestNumber})
	s.notify.Changed(ctx, querycache.ServiceRequests)
	s.notify.Emit(ctx, "service_request.created", sr.RequestNumber, map[string]any{"id": id})
	return s.Get(ctx, id)
}

// Update edits the descriptive fields of a request.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (*ServiceRequest, error) {
	updates := make(map[string]interface{})
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", ErrValidation)
		}
		updates["title"] = title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.ServiceCategoryID != nil {
		updates["service_category_id"] = *req.ServiceCategoryID
	}
	if req.CustomerID != nil {
		updates["customer_id"] = *req.CustomerID
	}
	if req.Priority != nil {
		updates["priority"] = string(*req.Priority)
	}
	if req.DeviceType != nil {
		updates["device_type"] = *req.DeviceType
	}
	if req.DeviceBrand != nil {
		updates["device_brand"] = *req.DeviceBrand
	}
	if req.DeviceModel != nil {
		updates["device_model"] = *req.DeviceModel
	}
	if req.SerialNumber != nil {
		updates["serial_number"] = *req.SerialNumber
	}
	if req.EstimatedCost != nil {
		updates["estimated_cost"] = *req.EstimatedCost
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if len(updates) == 0 {
		return s.Get(ctx, id)
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateFields(ctx, id, updates)
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "service_request.update", id, nil)
	s.notify.Changed(ctx, querycache.ServiceRequests)
	return s.Get(ctx, id)
}

// ChangeStatus moves a request through the workflow and records the change
// in its history. Moving to the current status is a no-op.
func (s *Service) ChangeStatus(ctx context.Context, id int64, req ChangeStatusRequest) (*ServiceRequest, error) {
	actorID := shared.ActorFromContext(ctx)
	var changed bool
	var from Status
	var number string
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status == req.Status {
			return nil
		}
		if err := CanTransition(current.Status, req.Status, req.Force); err != nil {
			return err
		}
		from, number = current.Status, current.RequestNumber
		updates := statusSideEffects(current, req.Status, s.now())
		if err := tx.UpdateFields(ctx, id, updates); err != nil {
			return err
		}
		fromCopy, to := current.Status, req.Status
		_, err = tx.InsertUpdate(ctx, Update{
			ServiceRequestID:  id,
			StatusFrom:        &fromCopy,
			StatusTo:          &to,
			Title:             fmt.Sprintf("Status changed from %s to %s", current.Status, req.Status),
			Description:       req.Note,
			IsCustomerVisible: req.IsCustomerVisible,
			CreatedBy:         actorPtr(actorID),
		})
		changed = err == nil
		return err
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.recordAudit(ctx, "service_request.status", id, map[string]any{"from": from, "to": req.Status})
		s.notify.Changed(ctx, querycache.ServiceRequests)
		s.notify.Emit(ctx, "service_request.status_changed", number, map[string]any{
			"id": id, "from": from, "to": req.Status,
		})
	}
	return s.Get(ctx, id)
}

// statusSideEffects returns the columns written when a request enters to.
// Milestone dates are set once and kept on later transitions; reopening a
// completed request clears its completion date.
func statusSideEffects(current ServiceRequest, to Status, now time.Time) map[string]interface{} {
	updates := map[string]interface{}{"status": string(to)}
	switch to {
	case StatusAssigned:
		if current.AssignedDate == nil {
			updates["assigned_date"] = now
		}
	case StatusInProgress:
		if current.StartedDate == nil {
			updates["started_date"] = now
		}
		if current.Status == StatusCompleted {
			updates["completed_date"] = nil
		}
	case StatusCompleted:
		updates["completed_date"] = now
		if current.StartedDate == nil {
			updates["started_date"] = now
		}
	}
	return updates
}

// Assign sets the technician of a request. A pending request becomes assigned.
func (s *Service) Assign(ctx context.Context, id int64, req AssignRequest) (*ServiceRequest, error) {
	actorID := shared.ActorFromContext(ctx)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status.IsClosed() {
			return fmt.Errorf("%w: cannot assign a %s request", ErrClosed, current.Status)
		}
		if err := checkTechnician(ctx, tx, req.TechnicianID); err != nil {
			return err
		}
		now := s.now()
		updates := map[string]interface{}{"assigned_technician_id": req.TechnicianID, "assigned_date": now}
		update := Update{
			ServiceRequestID: id,
			Title:            "Technician assigned",
			CreatedBy:        actorPtr(actorID),
		}
		if current.Status == StatusPending {
			updates["status"] = string(StatusAssigned)
			from, to := StatusPending, StatusAssigned
			update.StatusFrom, update.StatusTo = &from, &to
			update.IsCustomerVisible = true
		}
		if err := tx.UpdateFields(ctx, id, updates); err != nil {
			return err
		}
		_, err = tx.InsertUpdate(ctx, update)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "service_request.assign", id, map[string]any{"technician_id": req.TechnicianID})
	s.notify.Changed(ctx, querycache.ServiceRequests)
	s.notify.Emit(ctx, "service_request.assigned", strconv.FormatInt(id, 10), map[string]any{"technician_id": req.TechnicianID})
	return s.Get(ctx, id)
}

func checkTechnician(ctx context.Context, tx TxRepository, userID int64) error {
	role, active, err := tx.Technician(ctx, userID)
	if errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("%w: user %d: %w", ErrValidation, userID, ErrNotTechnician)
	}
	if err != nil {
		return err
	}
	if role != "technician" || !active {
		return fmt.Errorf("%w: user %d: %w", ErrValidation, userID, ErrNotTechnician)
	}
	return nil
}

// RecordPayment stores the final cost and payment state of a request.
func (s *Service) RecordPayment(ctx context.Context, id int64, req PaymentRequest) (*ServiceRequest, error) {
	if req.FinalCost < 0 {
		return nil, fmt.Errorf("%w: final cost cannot be negative", ErrValidation)
	}
	switch req.PaymentStatus {
	case PaymentUnpaid, PaymentPartial, PaymentPaid:
	default:
		return nil, fmt.Errorf("%w: unknown payment status %q", ErrValidation, req.PaymentStatus)
	}
	updates := map[string]interface{}{
		"final_cost":     salesshared.RoundTo2(req.FinalCost),
		"payment_status": string(req.PaymentStatus),
	}
	if req.PaymentMethod != nil {
		updates["payment_method"] = *req.PaymentMethod
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateFields(ctx, id, updates)
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "service_request.payment", id, nil)
	s.notify.Changed(ctx, querycache.ServiceRequests)
	s.notify.Emit(ctx, "service_request.payment", strconv.FormatInt(id, 10), map[string]any{
		"final_cost": req.FinalCost, "payment_status": req.PaymentStatus,
	})
	return s.Get(ctx, id)
}

// AddUpdate appends a free-form note to the history.
func (s *Service) AddUpdate(ctx context.Context, id int64, req AddUpdateRequest) (*Update, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	var out Update
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetForUpdate(ctx, id); err != nil {
			return err
		}
		var err error
		out, err = tx.InsertUpdate(ctx, Update{
			ServiceRequestID:  id,
			Title:             strings.TrimSpace(req.Title),
			Description:       req.Description,
			IsCustomerVisible: req.IsCustomerVisible,
			CreatedBy:         actorPtr(shared.ActorFromContext(ctx)),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notify.Changed(ctx, querycache.ServiceRequests)
	return &out, nil
}

// AddPart records a product used in the repair and takes it out of stock.
// The unit cost defaults to the product's cost price.
func (s *Service) AddPart(ctx context.Context, id int64, req AddPartRequest) (*PartUsed, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	actorID := shared.ActorFromContext(ctx)
	var out PartUsed
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status.IsClosed() {
			return fmt.Errorf("%w: cannot add parts to a %s request", ErrClosed, current.Status)
		}
		name, cost, err := tx.ProductCost(ctx, req.ProductID)
		if errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("%w: product %d does not exist", ErrValidation, req.ProductID)
		}
		if err != nil {
			return err
		}
		if req.UnitCost != nil {
			cost = *req.UnitCost
		}
		out, err = tx.InsertPart(ctx, PartUsed{
			ServiceRequestID: id,
			ProductID:        req.ProductID,
			ProductName:      name,
			Quantity:         req.Quantity,
			UnitCost:         salesshared.RoundTo2(cost),
			TotalCost:        salesshared.RoundTo2(cost * float64(req.Quantity)),
		})
		if err != nil {
			return err
		}
		out.ProductName = name
		_, err = inventory.ApplyMovement(ctx, tx.Stock(), inventory.MoveInput{
			ProductID: req.ProductID,
			Change:    -req.Quantity,
			Reason:    inventory.ReasonServicePart,
			RefType:   "service_request",
			RefID:     strconv.FormatInt(id, 10),
			Note:      current.RequestNumber,
			ActorID:   actorID,
		}, s.cfg.AllowNegativeStock)
		if err != nil && !errors.Is(err, inventory.ErrNotTracked) {
			return fmt.Errorf("take part %d from stock: %w", req.ProductID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "service_request.add_part", id, map[string]any{"product_id": req.ProductID, "quantity": req.Quantity})
	s.notify.Changed(ctx, querycache.ServiceRequests, querycache.Inventory)
	return &out, nil
}

// RemovePart deletes a part line and returns its quantity to stock.
func (s *Service) RemovePart(ctx context.Context, id, partID int64) error {
	actorID := shared.ActorFromContext(ctx)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status.IsClosed() {
			return fmt.Errorf("%w: cannot remove parts from a %s request", ErrClosed, current.Status)
		}
		part, err := tx.GetPart(ctx, id, partID)
		if err != nil {
			return err
		}
		if err := tx.DeletePart(ctx, partID); err != nil {
			return err
		}
		_, err = inventory.ApplyMovement(ctx, tx.Stock(), inventory.MoveInput{
			ProductID: part.ProductID,
			Change:    part.Quantity,
			Reason:    inventory.ReasonPartReturn,
			RefType:   "service_request",
			RefID:     strconv.FormatInt(id, 10),
			Note:      current.RequestNumber,
			ActorID:   actorID,
		}, true)
		if err != nil && !errors.Is(err, inventory.ErrNotTracked) {
			return fmt.Errorf("return part %d to stock: %w", part.ProductID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, "service_request.remove_part", id, map[string]any{"part_id": partID})
	s.notify.Changed(ctx, querycache.ServiceRequests, querycache.Inventory)
	return nil
}

// Delete removes a request with its history, parts and attachments. Stored
// files are removed after the rows are gone.
func (s *Service) Delete(ctx context.Context, id int64) error {
	attachments, err := s.repo.Attachments(ctx, id)
	if err != nil {
		return err
	}
	var number string
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		number = current.RequestNumber
		return tx.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	if s.files != nil {
		for _, a := range attachments {
			if err := s.files.Remove(ctx, a.StorageKey); err != nil {
				s.logger().Warn("remove attachment file failed", slog.String("key", a.StorageKey), slog.Any("error", err))
			}
		}
	}
	s.recordAudit(ctx, "service_request.delete", id, map[string]any{"request_number": number})
	s.notify.Changed(ctx, querycache.ServiceRequests)
	s.notify.Emit(ctx, "service_request.deleted", number, map[string]any{"id": id})
	return nil
}

func (s *Service) recordAudit(ctx context.Context, action string, id int64, meta map[string]any) {
	s.notify.RecordTo(ctx, s.audit, shared.AuditLog{
		ActorID:  shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   "service_request",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
		At:       s.now(),
	})
}

func (s *Service) logger() *slog.Logger {
	if s.notify.Logger != nil {
		return s.notify.Logger
	}
	return slog.Default()
}

func actorPtr(id int64) *int64 {
	if id <= 0 {
		return nil
	}
	return &id
}
