package products

import (
	"time"
)

// Product is a catalogue item that can be sold or consumed as a service part.
type Product struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	SKU            string    `json:"sku"`
	CategoryID     *int64    `json:"category_id"`
	CategoryName   *string   `json:"category_name,omitempty"`
	Description    *string   `json:"description,omitempty"`
	CostPrice      float64   `json:"cost_price"`
	SellingPrice   float64   `json:"selling_price"`
	CommissionRate float64   `json:"commission_rate"`
	ImageURL       *string   `json:"image_url,omitempty"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Margin returns the unit gross margin.
func (p Product) Margin() float64 {
	return p.SellingPrice - p.CostPrice
}
