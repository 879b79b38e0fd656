package inventory

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopdesk/shopdesk/internal/querycache"
	"github.com/shopdesk/shopdesk/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, filter ListFilter) ([]Item, error)
	Get(ctx context.Context, id int64) (Item, error)
	GetByProduct(ctx context.Context, productID int64) (Item, error)
	Create(ctx context.Context, in CreateInput, actorID int64) (int64, error)
	UpdateReorderLevel(ctx context.Context, id int64, level int) error
	Delete(ctx context.Context, id int64) error
	Movements(ctx context.Context, productID int64, limit int) ([]Movement, error)
}

// Service coordinates inventory operations.
type Service struct {
	repo     RepositoryPort
	audit    shared.AuditRecorder
	cache    *querycache.Cache
	notify   shared.Notifier
	allowNeg bool
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	AllowNegativeStock bool
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit shared.AuditRecorder, cache *querycache.Cache, notify shared.Notifier, cfg ServiceConfig) *Service {
	return &Service{repo: repo, audit: audit, cache: cache, notify: notify, allowNeg: cfg.AllowNegativeStock}
}

// List returns inventory rows with computed stock status.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Item, error) {
	return querycache.Load(ctx, s.cache, []string{querycache.Inventory, querycache.Products}, []string{"inventory", querycache.FilterToken(filter)},
		func(ctx context.Context) ([]Item, error) {
			return s.repo.List(ctx, filter)
		})
}

// LowStock lists products at or below their reorder level.
func (s *Service) LowStock(ctx context.Context) ([]Item, error) {
	return s.List(ctx, ListFilter{LowStockOnly: true})
}

// Get returns an inventory row by id.
func (s *Service) Get(ctx context.Context, id int64) (Item, error) {
	return s.repo.Get(ctx, id)
}

// GetByProduct returns the inventory row of a product.
func (s *Service) GetByProduct(ctx context.Context, productID int64) (Item, error) {
	return s.repo.GetByProduct(ctx, productID)
}

// Create opens the inventory row of a product. A product has at most one row.
func (s *Service) Create(ctx context.Context, in CreateInput) (Item, error) {
	if in.ProductID <= 0 {
		return Item{}, fmt.Errorf("%w: product is required", shared.ErrValidation)
	}
	if in.Quantity < 0 || in.ReorderLevel < 0 {
		return Item{}, fmt.Errorf("%w: quantity and reorder level cannot be negative", shared.ErrValidation)
	}
	if _, err := s.repo.GetByProduct(ctx, in.ProductID); err == nil {
		return Item{}, ErrAlreadyTracked
	} else if !errors.Is(err, ErrNotTracked) {
		return Item{}, err
	}
	id, err := s.repo.Create(ctx, in, shared.ActorFromContext(ctx))
	if err != nil {
		return Item{}, err
	}
	s.changed(ctx, "inventory.create", id, map[string]any{"product_id": in.ProductID, "quantity": in.Quantity})
	return s.repo.Get(ctx, id)
}

// Update sets the reorder level and/or an absolute quantity. A quantity change
// is recorded on the stock card as an adjustment.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (Item, error) {
	if in.ReorderLevel != nil && *in.ReorderLevel < 0 {
		return Item{}, fmt.Errorf("%w: reorder level cannot be negative", shared.ErrValidation)
	}
	if in.Quantity != nil && *in.Quantity < 0 {
		return Item{}, fmt.Errorf("%w: quantity cannot be negative", shared.ErrValidation)
	}
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return Item{}, err
	}
	if in.ReorderLevel != nil {
		if err := s.repo.UpdateReorderLevel(ctx, id, *in.ReorderLevel); err != nil {
			return Item{}, err
		}
	}
	if in.Quantity != nil && *in.Quantity != item.Quantity {
		note := "manual count"
		if in.Note != nil {
			note = *in.Note
		}
		if _, err := s.move(ctx, MoveInput{ProductID: item.ProductID, Change: *in.Quantity - item.Quantity, Reason: ReasonAdjustment, Note: note}); err != nil {
			return Item{}, err
		}
	}
	s.changed(ctx, "inventory.update", id, nil)
	return s.repo.Get(ctx, id)
}

// Restock adds received quantity and stamps last_restock_date.
func (s *Service) Restock(ctx context.Context, id int64, in RestockInput) (Item, error) {
	if in.Quantity <= 0 {
		return Item{}, fmt.Errorf("%w: restock quantity must be positive", shared.ErrValidation)
	}
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return Item{}, err
	}
	if _, err := s.move(ctx, MoveInput{ProductID: item.ProductID, Change: in.Quantity, Reason: ReasonRestock, Note: in.Note, Restock: true}); err != nil {
		return Item{}, err
	}
	s.changed(ctx, "inventory.restock", id, map[string]any{"quantity": in.Quantity})
	return s.repo.Get(ctx, id)
}

// Adjust applies a signed correction such as breakage or a recount.
func (s *Service) Adjust(ctx context.Context, id int64, in AdjustInput) (Item, error) {
	if in.Change == 0 {
		return Item{}, fmt.Errorf("%w: %v", shared.ErrValidation, ErrInvalidQuantity)
	}
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return Item{}, err
	}
	if _, err := s.move(ctx, MoveInput{ProductID: item.ProductID, Change: in.Change, Reason: ReasonAdjustment, Note: in.Reason}); err != nil {
		return Item{}, err
	}
	s.changed(ctx, "inventory.adjust", id, map[string]any{"change": in.Change, "reason": in.Reason})
	return s.repo.Get(ctx, id)
}

// Delete removes an inventory row.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, "inventory.delete", id, nil)
	return nil
}

// Movements returns the stock card of a product.
func (s *Service) Movements(ctx context.Context, productID int64, limit int) ([]Movement, error) {
	return s.repo.Movements(ctx, productID, limit)
}

func (s *Service) move(ctx context.Context, in MoveInput) (Movement, error) {
	in.ActorID = shared.ActorFromContext(ctx)
	var m Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		m, err = ApplyMovement(ctx, tx, in, s.allowNeg)
		return err
	})
	return m, err
}

func (s *Service) changed(ctx context.Context, action string, id int64, meta map[string]any) {
	s.notify.RecordTo(ctx, s.audit, shared.AuditLog{
		ActorID:  shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   "inventory",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	s.notify.Changed(ctx, querycache.Inventory)
	if action != "inventory.update" {
		s.notify.Emit(ctx, action, strconv.FormatInt(id, 10), meta)
	}
}
