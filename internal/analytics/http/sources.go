package analytichttp

import (
	"context"
	"time"

	"github.com/shopdesk/shopdesk/internal/analytics"
	"github.com/shopdesk/shopdesk/internal/inventory"
	"github.com/shopdesk/shopdesk/internal/sales"
	"github.com/shopdesk/shopdesk/internal/sales/commissions"
	"github.com/shopdesk/shopdesk/internal/servicerequests"
)

// SalesSource loads sales and their lines.
type SalesSource interface {
	List(ctx context.Context, req sales.ListSalesRequest) ([]sales.Sale, error)
	ItemsBetween(ctx context.Context, from, to time.Time) ([]sales.SaleItem, error)
}

// CommissionSource loads commissions.
type CommissionSource interface {
	List(ctx context.Context, filter commissions.ListFilter) ([]commissions.Commission, error)
}

// ServiceSource loads service requests.
type ServiceSource interface {
	List(ctx context.Context, filter servicerequests.ListFilter) ([]servicerequests.ServiceRequest, error)
}

// StockSource loads inventory rows.
type StockSource interface {
	List(ctx context.Context, filter inventory.ListFilter) ([]inventory.Item, error)
}

// Sources groups the loaders behind the report endpoints.
type Sources struct {
	Sales       SalesSource
	Commissions CommissionSource
	Services    ServiceSource
	Stock       StockSource
}

// Range is a half-open report period [From, To).
type Range struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (s Sources) saleRows(ctx context.Context, rng Range) ([]analytics.SaleRow, error) {
	list, err := s.Sales.List(ctx, sales.ListSalesRequest{From: &rng.From, To: &rng.To})
	if err != nil {
		return nil, err
	}
	rows := make([]analytics.SaleRow, 0, len(list))
	for _, sale := range list {
		rows = append(rows, analytics.SaleRow{
			ID:              sale.ID,
			InvoiceNumber:   sale.InvoiceNumber,
			SaleDate:        sale.SaleDate,
			CustomerName:    sale.CustomerName,
			SalesPersonID:   sale.SalesPersonID,
			SalesPersonName: sale.SalesPersonName,
			TotalAmount:     sale.TotalAmount,
			PaymentStatus:   string(sale.PaymentStatus),
		})
	}
	return rows, nil
}

func (s Sources) lineRows(ctx context.Context, rng Range) ([]analytics.SaleLineRow, error) {
	items, err := s.Sales.ItemsBetween(ctx, rng.From, rng.To)
	if err != nil {
		return nil, err
	}
	rows := make([]analytics.SaleLineRow, 0, len(items))
	for _, item := range items {
		row := analytics.SaleLineRow{
			SaleID:       item.SaleID,
			ProductName:  item.ProductName,
			CategoryID:   item.CategoryID,
			CategoryName: item.CategoryName,
			Quantity:     item.Quantity,
		}
		if item.ProductID > 0 {
			id := item.ProductID
			row.ProductID = &id
		}
		total := item.TotalPrice
		row.TotalPrice = &total
		rows = append(rows, row)
	}
	return rows, nil
}

func (s Sources) commissionRows(ctx context.Context, rng Range) ([]analytics.CommissionRow, error) {
	list, err := s.Commissions.List(ctx, commissions.ListFilter{From: &rng.From, To: &rng.To})
	if err != nil {
		return nil, err
	}
	return commissions.Rows(list), nil
}

func (s Sources) serviceRows(ctx context.Context, rng Range) ([]analytics.ServiceRow, error) {
	list, err := s.Services.List(ctx, servicerequests.ListFilter{From: &rng.From, To: &rng.To})
	if err != nil {
		return nil, err
	}
	rows := make([]analytics.ServiceRow, 0, len(list))
	for _, sr := range list {
		rows = append(rows, analytics.ServiceRow{
			RequestNumber:  sr.RequestNumber,
			Title:          sr.Title,
			Status:         string(sr.Status),
			CustomerName:   sr.CustomerName,
			DeviceType:     sr.DeviceType,
			DeviceBrand:    sr.DeviceBrand,
			DeviceModel:    sr.DeviceModel,
			TechnicianID:   sr.AssignedTechnicianID,
			TechnicianName: sr.TechnicianName,
			CategoryID:     sr.ServiceCategoryID,
			CategoryName:   sr.ServiceCategoryName,
			FinalCost:      sr.FinalCost,
			EstimatedCost:  sr.EstimatedCost,
			CreatedAt:      sr.CreatedAt,
		})
	}
	return rows, nil
}

// stockRows returns the stock rows alongside their catalogue view so the
// inventory report can apply product search.
func (s Sources) stockRows(ctx context.Context) ([]analytics.StockRow, []analytics.ProductRow, error) {
	items, err := s.Stock.List(ctx, inventory.ListFilter{})
	if err != nil {
		return nil, nil, err
	}
	stock := make([]analytics.StockRow, 0, len(items))
	products := make([]analytics.ProductRow, 0, len(items))
	for _, it := range items {
		cost := it.CostPrice
		stock = append(stock, analytics.StockRow{
			ProductID:    it.ProductID,
			ProductName:  it.ProductName,
			Quantity:     it.Quantity,
			ReorderLevel: it.ReorderLevel,
			CostPrice:    &cost,
		})
		products = append(products, analytics.ProductRow{
			ID:           it.ProductID,
			Name:         it.ProductName,
			SKU:          it.SKU,
			CategoryID:   it.CategoryID,
			CategoryName: it.CategoryName,
			IsActive:     true,
		})
	}
	return stock, products, nil
}
