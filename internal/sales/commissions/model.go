package commissions

import (
	"time"

	"github.com/shopdesk/shopdesk/internal/shared"
)

var (
	ErrNotFound   = shared.ErrNotFound
	ErrValidation = shared.ErrValidation
)

// Commission is the amount earned by a sales person on one sale.
type Commission struct {
	ID              int64      `json:"id"`
	SaleID          int64      `json:"sale_id"`
	InvoiceNumber   string     `json:"invoice_number"`
	SaleDate        time.Time  `json:"sale_date"`
	SaleTotal       float64    `json:"sale_total"`
	SalesPersonID   int64      `json:"sales_person_id"`
	SalesPersonName string     `json:"sales_person_name"`
	Amount          float64    `json:"commission_amount"`
	IsPaid          bool       `json:"is_paid"`
	PaymentDate     *time.Time `json:"payment_date,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// ListFilter narrows commission listings. From/To bound the sale date.
type ListFilter struct {
	SalesPersonID *int64     `json:"sales_person_id,omitempty"`
	IsPaid        *bool      `json:"is_paid,omitempty"`
	From          *time.Time `json:"from,omitempty"`
	To            *time.Time `json:"to,omitempty"`
}

// SaleRef identifies a sale that has no commission row yet.
type SaleRef struct {
	SaleID        int64
	SalesPersonID int64
}

// SyncResult reports what a sync pass changed.
type SyncResult struct {
	Recomputed int `json:"recomputed"`
	Created    int `json:"created"`
}
