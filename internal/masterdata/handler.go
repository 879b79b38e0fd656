package masterdata

import (
	"github.com/go-chi/chi/v5"

	"github.com/shopdesk/shopdesk/internal/masterdata/categories"
	"github.com/shopdesk/shopdesk/internal/masterdata/products"
)

// Handler mounts the catalogue endpoints: products and both category sets.
type Handler struct {
	products          *products.Handler
	productCategories *categories.Handler
	serviceCategories *categories.Handler
}

// NewHandler builds Handler instance.
func NewHandler(products *products.Handler, productCategories, serviceCategories *categories.Handler) *Handler {
	return &Handler{products: products, productCategories: productCategories, serviceCategories: serviceCategories}
}

// MountRoutes registers master data routes.
func (h *Handler) MountRoutes(r chi.Router) {
	if h.products != nil {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.products.List)
			r.Post("/", h.products.Create)
			r.Get("/{id}", h.products.Show)
			r.Put("/{id}", h.products.Update)
			r.Delete("/{id}", h.products.Delete)
		})
	}
	if h.productCategories != nil {
		r.Route("/product-categories", h.productCategories.MountRoutes)
	}
	if h.serviceCategories != nil {
		r.Route("/service-categories", h.serviceCategories.MountRoutes)
	}
}
