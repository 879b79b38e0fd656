package inventory

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopdesk/shopdesk/internal/shared"
)

// StockStatus classifies an inventory row against its reorder level.
type StockStatus string

const (
	StatusInStock    StockStatus = "In Stock"
	StatusLowStock   StockStatus = "Low Stock"
	StatusOutOfStock StockStatus = "Out of Stock"
)

// StatusFor classifies a quantity. Zero or less is out of stock; at or below
// the reorder level is low.
func StatusFor(quantity, reorderLevel int) StockStatus {
	switch {
	case quantity <= 0:
		return StatusOutOfStock
	case quantity <= reorderLevel:
		return StatusLowStock
	default:
		return StatusInStock
	}
}

// Item is the single inventory row of a product joined with catalogue data.
type Item struct {
	ID              int64       `json:"id"`
	ProductID       int64       `json:"product_id"`
	ProductName     string      `json:"product_name"`
	SKU             string      `json:"sku"`
	CategoryID      *int64      `json:"category_id,omitempty"`
	CategoryName    *string     `json:"category_name,omitempty"`
	CostPrice       float64     `json:"cost_price"`
	SellingPrice    float64     `json:"selling_price"`
	Quantity        int         `json:"quantity"`
	ReorderLevel    int         `json:"reorder_level"`
	LastRestockDate *time.Time  `json:"last_restock_date,omitempty"`
	Status          StockStatus `json:"status"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// StockValue is the cost value of the quantity on hand.
func (i Item) StockValue() float64 {
	if i.Quantity <= 0 {
		return 0
	}
	return float64(i.Quantity) * i.CostPrice
}

// MovementReason describes why a quantity changed.
type MovementReason string

const (
	ReasonInitial     MovementReason = "initial"
	ReasonRestock     MovementReason = "restock"
	ReasonAdjustment  MovementReason = "adjustment"
	ReasonSale        MovementReason = "sale"
	ReasonSaleVoid    MovementReason = "sale_void"
	ReasonServicePart MovementReason = "service_part"
	ReasonPartReturn  MovementReason = "service_part_return"
)

// Movement is one entry of a product's stock card.
type Movement struct {
	ID            int64          `json:"id"`
	ProductID     int64          `json:"product_id"`
	Change        int            `json:"change"`
	QuantityAfter int            `json:"quantity_after"`
	Reason        MovementReason `json:"reason"`
	RefType       *string        `json:"ref_type,omitempty"`
	RefID         *string        `json:"ref_id,omitempty"`
	Note          *string        `json:"note,omitempty"`
	CreatedBy     *int64         `json:"created_by,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// MoveInput requests a quantity change for a product.
type MoveInput struct {
	ProductID int64
	Change    int
	Reason    MovementReason
	RefType   string
	RefID     string
	Note      string
	ActorID   int64
	Restock   bool
}

// ListFilter narrows the inventory list.
type ListFilter struct {
	Search       string       `json:"search,omitempty"`
	CategoryID   *int64       `json:"category_id,omitempty"`
	Status       *StockStatus `json:"status,omitempty"`
	LowStockOnly bool         `json:"low_stock_only,omitempty"`
}

// CreateInput opens the inventory row of a product.
type CreateInput struct {
	ProductID    int64 `json:"product_id" validate:"required,gt=0"`
	Quantity     int   `json:"quantity" validate:"gte=0"`
	ReorderLevel int   `json:"reorder_level" validate:"gte=0"`
}

// UpdateInput changes quantity and/or reorder level.
type UpdateInput struct {
	Quantity     *int    `json:"quantity,omitempty" validate:"omitempty,gte=0"`
	ReorderLevel *int    `json:"reorder_level,omitempty" validate:"omitempty,gte=0"`
	Note         *string `json:"note,omitempty"`
}

// RestockInput adds received stock.
type RestockInput struct {
	Quantity int    `json:"quantity" validate:"required,gt=0"`
	Note     string `json:"note,omitempty" validate:"max=300"`
}

// AdjustInput applies a signed correction.
type AdjustInput struct {
	Change int    `json:"change" validate:"required,ne=0"`
	Reason string `json:"reason" validate:"required,max=300"`
}

var (
	// ErrNegativeStock is returned when a movement would leave less than zero on hand.
	ErrNegativeStock = fmt.Errorf("%w: insufficient stock", shared.ErrConflict)
	// ErrNotTracked marks products without an inventory row.
	ErrNotTracked = fmt.Errorf("%w: product has no inventory record", shared.ErrNotFound)
	// ErrAlreadyTracked rejects a second inventory row for a product.
	ErrAlreadyTracked = fmt.Errorf("%w: product already has an inventory record", shared.ErrDuplicate)
	// ErrInvalidQuantity rejects zero movements.
	ErrInvalidQuantity = errors.New("inventory: quantity change must not be zero")
)
