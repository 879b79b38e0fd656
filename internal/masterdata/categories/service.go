package categories

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopdesk/shopdesk/internal/masterdata/shared"
	"github.com/shopdesk/shopdesk/internal/querycache"
	root "github.com/shopdesk/shopdesk/internal/shared"
)

type Service struct {
	repo   Repository
	kind   Kind
	cache  *querycache.Cache
	notify root.Notifier
}

func NewService(repo Repository, kind Kind, cache *querycache.Cache, notify root.Notifier) *Service {
	return &Service{repo: repo, kind: kind, cache: cache, notify: notify}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Category, error) {
	filters = filters.Normalize()
	return querycache.Load(ctx, s.cache, []string{s.kind.Resource}, []string{s.kind.Table, querycache.FilterToken(filters)},
		func(ctx context.Context) ([]Category, error) {
			return s.repo.List(ctx, filters)
		})
}

func (s *Service) Get(ctx context.Context, id int64) (Category, error) {
	if id <= 0 {
		return Category{}, fmt.Errorf("%w: invalid %s ID", shared.ErrValidation, s.kind.Name)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, form CategoryForm) (Category, error) {
	c := Category{Name: form.Name, Description: form.Description, BasePrice: form.BasePrice}
	if err := s.validate(&c); err != nil {
		return Category{}, err
	}
	created, err := s.repo.Create(ctx, c)
	if err != nil {
		return Category{}, err
	}
	s.record(ctx, "create", created.ID)
	s.notify.Changed(ctx, s.kind.Resource)
	return created, nil
}

func (s *Service) Update(ctx context.Context, id int64, form CategoryForm) (Category, error) {
	if id <= 0 {
		return Category{}, fmt.Errorf("%w: invalid %s ID", shared.ErrValidation, s.kind.Name)
	}
	c := Category{Name: form.Name, Description: form.Description, BasePrice: form.BasePrice}
	if err := s.validate(&c); err != nil {
		return Category{}, err
	}
	updated, err := s.repo.Update(ctx, id, c)
	if err != nil {
		return Category{}, err
	}
	s.record(ctx, "update", id)
	s.notify.Changed(ctx, s.kind.Resource)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid %s ID", shared.ErrValidation, s.kind.Name)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, "delete", id)
	// Products and service requests fall back to a NULL category.
	s.notify.Changed(ctx, s.kind.Resource, querycache.Products, querycache.ServiceRequests)
	return nil
}

func (s *Service) record(ctx context.Context, verb string, id int64) {
	entity := strings.ReplaceAll(s.kind.Name, " ", "_")
	s.notify.Record(ctx, entity+"."+verb, entity, strconv.FormatInt(id, 10), nil)
}
