package categories

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopdesk/shopdesk/internal/masterdata/shared"
	root "github.com/shopdesk/shopdesk/internal/shared"
)

type stubRepo struct {
	created []Category
}

func (s *stubRepo) List(context.Context, shared.ListFilters) ([]Category, error) {
	return []Category{}, nil
}

func (s *stubRepo) Get(_ context.Context, id int64) (Category, error) {
	return Category{}, fmt.Errorf("category %d: %w", id, shared.ErrNotFound)
}

func (s *stubRepo) Create(_ context.Context, c Category) (Category, error) {
	c.ID = int64(len(s.created) + 1)
	s.created = append(s.created, c)
	return c, nil
}

func (s *stubRepo) Update(_ context.Context, id int64, c Category) (Category, error) {
	c.ID = id
	return c, nil
}

func (s *stubRepo) Delete(context.Context, int64) error { return nil }

type invalidations struct{ got []string }

func (i *invalidations) Invalidate(_ context.Context, resources ...string) error {
	i.got = append(i.got, resources...)
	return nil
}

func TestServiceCategoryDefaultsBasePrice(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, ServiceKind, nil, root.Notifier{})

	c, err := svc.Create(context.Background(), CategoryForm{Name: " Screen Repair "})
	require.NoError(t, err)
	assert.Equal(t, "Screen Repair", c.Name)
	require.NotNil(t, c.BasePrice)
	assert.Equal(t, 0.0, *c.BasePrice)

	neg := -10.0
	_, err = svc.Create(context.Background(), CategoryForm{Name: "Bad", BasePrice: &neg})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestProductCategoryDropsBasePrice(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, ProductKind, nil, root.Notifier{})

	price := 50.0
	c, err := svc.Create(context.Background(), CategoryForm{Name: "Accessories", BasePrice: &price})
	require.NoError(t, err)
	assert.Nil(t, c.BasePrice)
}

func TestDeleteInvalidatesDependents(t *testing.T) {
	inv := &invalidations{}
	svc := NewService(&stubRepo{}, ServiceKind, nil, root.Notifier{Cache: inv})

	require.NoError(t, svc.Delete(context.Background(), 3))
	assert.Equal(t, []string{"service_categories", "products", "service_requests"}, inv.got)

	assert.ErrorIs(t, svc.Delete(context.Background(), 0), shared.ErrValidation)
}
