package categories

import (
	"time"

	"github.com/shopdesk/shopdesk/internal/querycache"
)

// Category groups products or service offerings. BasePrice is only carried
// by service categories.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	BasePrice   *float64  `json:"base_price,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// CategoryForm is the create/replace payload.
type CategoryForm struct {
	Name        string   `json:"name" validate:"required,max=120"`
	Description *string  `json:"description,omitempty"`
	BasePrice   *float64 `json:"base_price,omitempty" validate:"omitempty,gte=0"`
}

// Kind selects the backing table of a category set.
type Kind struct {
	Name         string
	Table        string
	Resource     string
	HasBasePrice bool
}

var (
	ProductKind = Kind{Name: "product category", Table: "product_categories", Resource: querycache.ProductCategories}
	ServiceKind = Kind{Name: "service category", Table: "service_categories", Resource: querycache.ServiceCategories, HasBasePrice: true}
)
