package products

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopdesk/shopdesk/internal/masterdata/shared"
	"github.com/shopdesk/shopdesk/internal/querycache"
	root "github.com/shopdesk/shopdesk/internal/shared"
)

type Service struct {
	repo   Repository
	cache  *querycache.Cache
	notify root.Notifier
}

func NewService(repo Repository, cache *querycache.Cache, notify root.Notifier) *Service {
	return &Service{repo: repo, cache: cache, notify: notify}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Product, error) {
	filters = filters.Normalize()
	return querycache.Load(ctx, s.cache, []string{querycache.Products, querycache.ProductCategories},
		[]string{"products", querycache.FilterToken(filters)},
		func(ctx context.Context) ([]Product, error) {
			return s.repo.List(ctx, filters)
		})
}

func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, fmt.Errorf("%w: invalid product ID", shared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, form ProductForm) (Product, error) {
	product := form.toProduct()
	if err := s.validate(&product); err != nil {
		return Product{}, err
	}
	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return Product{}, err
	}
	s.notify.Record(ctx, "product.create", "product", strconv.FormatInt(created.ID, 10), map[string]any{"sku": created.SKU})
	s.notify.Changed(ctx, querycache.Products)
	s.notify.Emit(ctx, "product.created", strconv.FormatInt(created.ID, 10), created)
	return created, nil
}

func (s *Service) Update(ctx context.Context, id int64, form ProductForm) (Product, error) {
	if id <= 0 {
		return Product{}, fmt.Errorf("%w: invalid product ID", shared.ErrValidation)
	}
	product := form.toProduct()
	if err := s.validate(&product); err != nil {
		return Product{}, err
	}
	updated, err := s.repo.Update(ctx, id, product)
	if err != nil {
		return Product{}, err
	}
	s.notify.Record(ctx, "product.update", "product", strconv.FormatInt(id, 10), nil)
	// Inventory and sales listings join product names and prices.
	s.notify.Changed(ctx, querycache.Products, querycache.Inventory, querycache.Sales)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid product ID", shared.ErrValidation)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.notify.Record(ctx, "product.delete", "product", strconv.FormatInt(id, 10), nil)
	s.notify.Changed(ctx, querycache.Products, querycache.Inventory)
	s.notify.Emit(ctx, "product.deleted", strconv.FormatInt(id, 10), nil)
	return nil
}
