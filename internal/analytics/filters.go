package analytics

import (
	"github.com/shopdesk/shopdesk/internal/shared"
)

// ProductQuery filters catalogue rows. Zero values match everything.
type ProductQuery struct {
	Search     string
	CategoryID *int64
	ActiveOnly bool
}

// FilterProducts keeps products whose name, SKU or category name contains
// the search text and which match the category and active flag.
func FilterProducts(rows []ProductRow, q ProductQuery) []ProductRow {
	out := make([]ProductRow, 0)
	for _, row := range rows {
		if !shared.AnyContainsFold(q.Search, row.Name, row.SKU, strOr(row.CategoryName, "")) {
			continue
		}
		if q.CategoryID != nil && (row.CategoryID == nil || *row.CategoryID != *q.CategoryID) {
			continue
		}
		if q.ActiveOnly && !row.IsActive {
			continue
		}
		out = append(out, row)
	}
	return out
}

// SaleQuery filters sale rows.
type SaleQuery struct {
	Search        string
	SalesPersonID *int64
	PaymentStatus string
}

// FilterSales matches invoice number or customer name, then equality filters.
func FilterSales(rows []SaleRow, q SaleQuery) []SaleRow {
	out := make([]SaleRow, 0)
	for _, row := range rows {
		if !shared.AnyContainsFold(q.Search, row.InvoiceNumber, strOr(row.CustomerName, "")) {
			continue
		}
		if q.SalesPersonID != nil && row.SalesPersonID != *q.SalesPersonID {
			continue
		}
		if q.PaymentStatus != "" && row.PaymentStatus != q.PaymentStatus {
			continue
		}
		out = append(out, row)
	}
	return out
}

// ServiceQuery filters service rows.
type ServiceQuery struct {
	Search       string
	Status       string
	TechnicianID *int64
	CategoryID   *int64
}

// FilterServices matches request number, title, customer or device fields,
// then equality filters.
func FilterServices(rows []ServiceRow, q ServiceQuery) []ServiceRow {
	out := make([]ServiceRow, 0)
	for _, row := range rows {
		if !shared.AnyContainsFold(q.Search, row.RequestNumber, row.Title, strOr(row.CustomerName, ""),
			strOr(row.DeviceType, ""), strOr(row.DeviceBrand, ""), strOr(row.DeviceModel, "")) {
			continue
		}
		if q.Status != "" && row.Status != q.Status {
			continue
		}
		if q.TechnicianID != nil && (row.TechnicianID == nil || *row.TechnicianID != *q.TechnicianID) {
			continue
		}
		if q.CategoryID != nil && (row.CategoryID == nil || *row.CategoryID != *q.CategoryID) {
			continue
		}
		out = append(out, row)
	}
	return out
}
