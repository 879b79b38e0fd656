package sales

import (
	"errors"
	"time"

	"github.com/shopdesk/shopdesk/internal/shared"
)

var (
	ErrNotFound   = shared.ErrNotFound
	ErrValidation = shared.ErrValidation
	// ErrProductInactive is returned when a sale line references a disabled product.
	ErrProductInactive = errors.New("product is not active")
)

// PaymentMethod of a sale.
type PaymentMethod string

const (
	PaymentCash        PaymentMethod = "cash"
	PaymentCard        PaymentMethod = "card"
	PaymentTransfer    PaymentMethod = "transfer"
	PaymentMobileMoney PaymentMethod = "mobile_money"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer, PaymentMobileMoney:
		return true
	}
	return false
}

// PaymentStatus of a sale.
type PaymentStatus string

const (
	PaymentPaid     PaymentStatus = "paid"
	PaymentPending  PaymentStatus = "pending"
	PaymentPartial  PaymentStatus = "partial"
	PaymentRefunded PaymentStatus = "refunded"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPaid, PaymentPending, PaymentPartial, PaymentRefunded:
		return true
	}
	return false
}

// ============================================================================
// SALE
// ============================================================================

type Sale struct {
	ID              int64         `json:"id"`
	InvoiceNumber   string        `json:"invoice_number"`
	SaleDate        time.Time     `json:"sale_date"`
	CustomerID      *int64        `json:"customer_id,omitempty"`
	CustomerName    *string       `json:"customer_name,omitempty"`
	SalesPersonID   int64         `json:"sales_person_id"`
	SalesPersonName string        `json:"sales_person_name"`
	Subtotal        float64       `json:"subtotal"`
	TaxAmount       float64       `json:"tax_amount"`
	DiscountAmount  float64       `json:"discount_amount"`
	TotalAmount     float64       `json:"total_amount"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
	PaymentStatus   PaymentStatus `json:"payment_status"`
	Notes           *string       `json:"notes,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	Items           []SaleItem    `json:"items,omitempty"`
}

type SaleItem struct {
	ID              int64   `json:"id"`
	SaleID          int64   `json:"sale_id"`
	ProductID       int64   `json:"product_id"`
	ProductName     string  `json:"product_name,omitempty"`
	ProductSKU      string  `json:"product_sku,omitempty"`
	CategoryID      *int64  `json:"category_id,omitempty"`
	CategoryName    *string `json:"category_name,omitempty"`
	Quantity        int     `json:"quantity"`
	UnitPrice       float64 `json:"unit_price"`
	DiscountPercent float64 `json:"discount_percent"`
	CommissionRate  float64 `json:"commission_rate"`
	TotalPrice      float64 `json:"total_price"`
}

// ProductRef is the catalogue data a sale line is priced from.
type ProductRef struct {
	ID             int64
	Name           string
	SellingPrice   float64
	CommissionRate float64
	IsActive       bool
}

// CommissionRow is the commission created alongside a sale.
type CommissionRow struct {
	SaleID        int64
	SalesPersonID int64
	Amount        float64
}

// ============================================================================
// REQUESTS
// ============================================================================

type CreateSaleRequest struct {
	SaleDate       *time.Time          `json:"sale_date,omitempty"`
	CustomerID     *int64              `json:"customer_id,omitempty" validate:"omitempty,gt=0"`
	SalesPersonID  int64               `json:"sales_person_id" validate:"omitempty,gt=0"`
	PaymentMethod  PaymentMethod       `json:"payment_method" validate:"required,oneof=cash card transfer mobile_money"`
	PaymentStatus  PaymentStatus       `json:"payment_status" validate:"omitempty,oneof=paid pending partial refunded"`
	DiscountAmount float64             `json:"discount_amount" validate:"gte=0"`
	Notes          *string             `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Items          []CreateItemRequest `json:"items" validate:"required,min=1,dive"`
}

type CreateItemRequest struct {
	ProductID       int64    `json:"product_id" validate:"required,gt=0"`
	Quantity        int      `json:"quantity" validate:"required,gt=0"`
	UnitPrice       *float64 `json:"unit_price,omitempty" validate:"omitempty,gte=0"`
	DiscountPercent float64  `json:"discount_percent" validate:"gte=0,lte=100"`
}

type UpdateSaleRequest struct {
	PaymentMethod *PaymentMethod `json:"payment_method,omitempty" validate:"omitempty,oneof=cash card transfer mobile_money"`
	PaymentStatus *PaymentStatus `json:"payment_status,omitempty" validate:"omitempty,oneof=paid pending partial refunded"`
	Notes         *string        `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

type ListSalesRequest struct {
	From          *time.Time     `json:"from,omitempty"`
	To            *time.Time     `json:"to,omitempty"`
	SalesPersonID *int64         `json:"sales_person_id,omitempty"`
	CustomerID    *int64         `json:"customer_id,omitempty"`
	PaymentStatus *PaymentStatus `json:"payment_status,omitempty" validate:"omitempty,oneof=paid pending partial refunded"`
	Search        string         `json:"search,omitempty"`
	Limit         int            `json:"limit" validate:"omitempty,gte=0,lte=500"`
	Offset        int            `json:"offset" validate:"omitempty,gte=0"`
}
