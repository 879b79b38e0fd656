package products

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopdesk/shopdesk/internal/masterdata/shared"
	root "github.com/shopdesk/shopdesk/internal/shared"
)

type memoryRepo struct {
	items      map[int64]Product
	nextID     int64
	referenced map[int64]bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: map[int64]Product{}, nextID: 1, referenced: map[int64]bool{}}
}

func (m *memoryRepo) List(_ context.Context, f shared.ListFilters) ([]Product, error) {
	out := make([]Product, 0)
	for _, p := range m.items {
		if f.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *f.CategoryID) {
			continue
		}
		if f.IsActive != nil && p.IsActive != *f.IsActive {
			continue
		}
		if !root.AnyContainsFold(f.Search, p.Name, p.SKU) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (Product, error) {
	p, ok := m.items[id]
	if !ok {
		return Product{}, fmt.Errorf("product: %w", shared.ErrNotFound)
	}
	return p, nil
}

func (m *memoryRepo) Create(_ context.Context, p Product) (Product, error) {
	for _, existing := range m.items {
		if existing.SKU == p.SKU {
			return Product{}, fmt.Errorf("create product: %w (products_sku_key)", shared.ErrDuplicate)
		}
	}
	p.ID = m.nextID
	m.nextID++
	m.items[p.ID] = p
	return p, nil
}

func (m *memoryRepo) Update(_ context.Context, id int64, p Product) (Product, error) {
	if _, ok := m.items[id]; !ok {
		return Product{}, fmt.Errorf("product: %w", shared.ErrNotFound)
	}
	p.ID = id
	m.items[id] = p
	return p, nil
}

func (m *memoryRepo) Delete(_ context.Context, id int64) error {
	if m.referenced[id] {
		return fmt.Errorf("delete product: %w", shared.ErrInUse)
	}
	if _, ok := m.items[id]; !ok {
		return fmt.Errorf("product: %w", shared.ErrNotFound)
	}
	delete(m.items, id)
	return nil
}

type recordingCache struct{ resources []string }

func (r *recordingCache) Invalidate(_ context.Context, resources ...string) error {
	r.resources = append(r.resources, resources...)
	return nil
}

func TestCreateNormalisesSKU(t *testing.T) {
	cache := &recordingCache{}
	svc := NewService(newMemoryRepo(), nil, root.Notifier{Cache: cache})

	p, err := svc.Create(context.Background(), ProductForm{Name: " USB Mouse ", SKU: " acc-001 ", SellingPrice: 25, CommissionRate: 5})
	require.NoError(t, err)
	assert.Equal(t, "USB Mouse", p.Name)
	assert.Equal(t, "ACC-001", p.SKU)
	assert.True(t, p.IsActive)
	assert.Equal(t, []string{"products"}, cache.resources)

	_, err = svc.Create(context.Background(), ProductForm{Name: "Other", SKU: "ACC-001"})
	assert.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestCreateRejectsBadCommissionRate(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, root.Notifier{})
	_, err := svc.Create(context.Background(), ProductForm{Name: "SSD", SKU: "SSD-1", CommissionRate: 120})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestSearchNoMatchIsEmptyNotNil(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, root.Notifier{})
	_, err := svc.Create(context.Background(), ProductForm{Name: "Keyboard", SKU: "KB-1"})
	require.NoError(t, err)

	out, err := svc.List(context.Background(), shared.ListFilters{Search: "monitor"})
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestUpdateInvalidatesJoinedListings(t *testing.T) {
	cache := &recordingCache{}
	repo := newMemoryRepo()
	svc := NewService(repo, nil, root.Notifier{Cache: cache})
	_, err := svc.Create(context.Background(), ProductForm{Name: "Charger", SKU: "CH-1"})
	require.NoError(t, err)
	cache.resources = nil

	_, err = svc.Update(context.Background(), 1, ProductForm{Name: "Charger 65W", SKU: "CH-1", SellingPrice: 40})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"products", "inventory", "sales"}, cache.resources)
}

func TestProductRoutes(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, root.Notifier{})
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	r := chi.NewRouter()
	r.Get("/products", h.List)
	r.Post("/products", h.Create)
	r.Delete("/products/{id}", h.Delete)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(`{"name":"HDMI Cable","sku":"hd-2","selling_price":8.5,"commission_rate":2}`)))
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), `"sku":"HD-2"`)

	repo.referenced[1] = true
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/products/1", nil))
	assert.Equal(t, http.StatusConflict, rr.Code)

	repo.referenced[1] = false
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/products/1", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products?is_active=maybe", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
