// Package analytics folds fetched rows into the grouped summaries shown on
// the dashboard. Functions here are pure: callers load the rows and pass them in.
package analytics

import "time"

// SaleRow is one sale as seen by the reports.
type SaleRow struct {
	ID              int64
	InvoiceNumber   string
	SaleDate        time.Time
	CustomerName    *string
	SalesPersonID   int64
	SalesPersonName string
	TotalAmount     float64
	PaymentStatus   string
}

// SaleLineRow is one sale item. ProductID or CategoryID may be unknown when
// the product lookup failed.
type SaleLineRow struct {
	SaleID       int64
	ProductID    *int64
	ProductName  string
	CategoryID   *int64
	CategoryName *string
	Quantity     int
	TotalPrice   *float64
}

// CommissionRow is one commission record.
type CommissionRow struct {
	SalesPersonID   int64
	SalesPersonName string
	Amount          *float64
	IsPaid          bool
}

// ServiceRow is one service request.
type ServiceRow struct {
	RequestNumber  string
	Title          string
	Status         string
	CustomerName   *string
	DeviceType     *string
	DeviceBrand    *string
	DeviceModel    *string
	TechnicianID   *int64
	TechnicianName *string
	CategoryID     *int64
	CategoryName   *string
	FinalCost      *float64
	EstimatedCost  *float64
	CreatedAt      time.Time
}

// ProductRow is one catalogue entry for search predicates.
type ProductRow struct {
	ID           int64
	Name         string
	SKU          string
	CategoryID   *int64
	CategoryName *string
	IsActive     bool
}

// StockRow is one inventory row.
type StockRow struct {
	ProductID    int64
	ProductName  string
	Quantity     int
	ReorderLevel int
	CostPrice    *float64
}

func valueOr0(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func idOr0(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

func strOr(v *string, fallback string) string {
	if v == nil || *v == "" {
		return fallback
	}
	return *v
}

func ratio(sum float64, count int) float64 {
	if count > 0 {
		return sum / float64(count)
	}
	return 0
}
