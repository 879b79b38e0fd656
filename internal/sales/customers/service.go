package customers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopdesk/shopdesk/internal/querycache"
	"github.com/shopdesk/shopdesk/internal/shared"
)

type Service struct {
	repo   Repository
	cache  *querycache.Cache
	notify shared.Notifier
}

func NewService(repo Repository, cache *querycache.Cache, notify shared.Notifier) *Service {
	return &Service{repo: repo, cache: cache, notify: notify}
}

func (s *Service) Create(ctx context.Context, req CreateCustomerRequest) (*Customer, error) {
	customer := Customer{
		Name:    strings.TrimSpace(req.Name),
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	}
	if customer.Name == "" {
		return nil, fmt.Errorf("%w: customer name is required", shared.ErrValidation)
	}
	id, err := s.repo.Create(ctx, customer)
	if err != nil {
		return nil, err
	}
	s.notify.Record(ctx, "customer.create", "customer", strconv.FormatInt(id, 10), nil)
	s.notify.Changed(ctx, querycache.Customers)
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateCustomerRequest) (*Customer, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: customer name is required", shared.ErrValidation)
		}
		updates["name"] = name
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if len(updates) == 0 {
		return existing, nil
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, err
	}
	s.notify.Record(ctx, "customer.update", "customer", strconv.FormatInt(id, 10), nil)
	// Sales and service listings show the customer name.
	s.notify.Changed(ctx, querycache.Customers, querycache.Sales, querycache.ServiceRequests)
	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.notify.Record(ctx, "customer.delete", "customer", strconv.FormatInt(id, 10), nil)
	s.notify.Changed(ctx, querycache.Customers, querycache.Sales, querycache.ServiceRequests)
	s.notify.Emit(ctx, "customer.deleted", strconv.FormatInt(id, 10), nil)
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Customer, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListCustomersRequest) ([]Customer, error) {
	return querycache.Load(ctx, s.cache, []string{querycache.Customers}, []string{"customers", querycache.FilterToken(req)},
		func(ctx context.Context) ([]Customer, error) {
			return s.repo.List(ctx, req)
		})
}
