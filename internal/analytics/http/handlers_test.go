package analytichttp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopdesk/shopdesk/internal/analytics"
	"github.com/shopdesk/shopdesk/internal/inventory"
	"github.com/shopdesk/shopdesk/internal/sales"
	"github.com/shopdesk/shopdesk/internal/sales/commissions"
	"github.com/shopdesk/shopdesk/internal/servicerequests"
)

type stubSales struct {
	sales []sales.Sale
	items []sales.SaleItem
	got   sales.ListSalesRequest
	err   error
}

func (s *stubSales) List(_ context.Context, req sales.ListSalesRequest) ([]sales.Sale, error) {
	s.got = req
	return s.sales, s.err
}

func (s *stubSales) ItemsBetween(context.Context, time.Time, time.Time) ([]sales.SaleItem, error) {
	return s.items, nil
}

type stubCommissions struct{ rows []commissions.Commission }

func (s stubCommissions) List(context.Context, commissions.ListFilter) ([]commissions.Commission, error) {
	return s.rows, nil
}

type stubServices struct{ rows []servicerequests.ServiceRequest }

func (s stubServices) List(context.Context, servicerequests.ListFilter) ([]servicerequests.ServiceRequest, error) {
	return s.rows, nil
}

type stubStock struct{ rows []inventory.Item }

func (s stubStock) List(context.Context, inventory.ListFilter) ([]inventory.Item, error) {
	return s.rows, nil
}

func ptr[T any](v T) *T { return &v }

var fixedNow = time.Date(2024, 3, 20, 15, 0, 0, 0, time.UTC)

func newTestRouter(t *testing.T) (http.Handler, *stubSales) {
	t.Helper()
	salesSrc := &stubSales{
		sales: []sales.Sale{
			{ID: 1, InvoiceNumber: "INV-20240318-AAAAAA", SaleDate: time.Date(2024, 3, 18, 9, 0, 0, 0, time.UTC),
				SalesPersonID: 7, SalesPersonName: "Kofi", TotalAmount: 100, PaymentStatus: sales.PaymentPaid, CustomerName: ptr("Abena")},
			{ID: 2, InvoiceNumber: "INV-20240319-BBBBBB", SaleDate: time.Date(2024, 3, 19, 14, 0, 0, 0, time.UTC),
				SalesPersonID: 8, SalesPersonName: "Ama", TotalAmount: 50, PaymentStatus: sales.PaymentPending},
		},
		items: []sales.SaleItem{
			{SaleID: 1, ProductID: 1, ProductName: "SSD", CategoryID: ptr(int64(3)), CategoryName: ptr("Storage"), Quantity: 1, TotalPrice: 100},
			{SaleID: 2, ProductID: 2, ProductName: "Mouse", CategoryID: ptr(int64(4)), CategoryName: ptr("Accessories"), Quantity: 2, TotalPrice: 50},
		},
	}
	sources := Sources{
		Sales: salesSrc,
		Commissions: stubCommissions{rows: []commissions.Commission{
			{SalesPersonID: 7, SalesPersonName: "Kofi", Amount: 5, IsPaid: true},
			{SalesPersonID: 8, SalesPersonName: "Ama", Amount: 2.5},
		}},
		Services: stubServices{rows: []servicerequests.ServiceRequest{
			{RequestNumber: "SR-1", Title: "Screen swap", Status: servicerequests.StatusCompleted, FinalCost: ptr(80.0),
				AssignedTechnicianID: ptr(int64(5)), TechnicianName: ptr("Yaw"), DeviceBrand: ptr("Dell")},
			{RequestNumber: "SR-2", Title: "Virus removal", Status: servicerequests.StatusPending, EstimatedCost: ptr(30.0)},
		}},
		Stock: stubStock{rows: []inventory.Item{
			{ProductID: 1, ProductName: "SSD", SKU: "SSD-512", Quantity: 11, ReorderLevel: 10, CostPrice: 40},
			{ProductID: 2, ProductName: "Mouse", SKU: "MS-01", Quantity: 5, ReorderLevel: 10, CostPrice: 4},
			{ProductID: 3, ProductName: "HDMI Cable", SKU: "HD-01", Quantity: 0, ReorderLevel: 5, CostPrice: 2},
		}},
	}
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), sources, time.UTC)
	h.WithNow(func() time.Time { return fixedNow })
	r := chi.NewRouter()
	r.Route("/api/reports", h.MountRoutes)
	return r, salesSrc
}

func get(t *testing.T, h http.Handler, url string, dest any) int {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, url, nil))
	if dest != nil && rr.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), dest))
	}
	return rr.Code
}

func TestSalesReport(t *testing.T) {
	router, src := newTestRouter(t)

	var got SalesReport
	require.Equal(t, http.StatusOK, get(t, router, "/api/reports/sales?from=2024-03-01&to=2024-03-19", &got))
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *src.got.From)
	assert.Equal(t, time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC), *src.got.To, "to is inclusive")

	assert.Equal(t, 2, got.Summary.TotalSales)
	assert.InDelta(t, 150, got.Summary.TotalRevenue, 0.001)
	assert.Equal(t, 1, got.Summary.PendingPayments)
	require.Len(t, got.Daily, 2)
	assert.Equal(t, "2024-03-18", got.Daily[0].Date)
	assert.Len(t, got.ByHour, 24)
	assert.Len(t, got.ByWeekday, 7)
	require.Len(t, got.ByCategory, 2)
	assert.Equal(t, "Storage", got.ByCategory[0].CategoryName)

	var filtered SalesReport
	require.Equal(t, http.StatusOK, get(t, router, "/api/reports/sales?search=abena", &filtered))
	assert.Equal(t, 1, filtered.Summary.TotalSales)
	require.Len(t, filtered.TopProducts, 1)
	assert.Equal(t, "SSD", filtered.TopProducts[0].ProductName)
}

func TestReportRangeDefaultsAndValidation(t *testing.T) {
	router, src := newTestRouter(t)

	require.Equal(t, http.StatusOK, get(t, router, "/api/reports/sales", nil))
	assert.Equal(t, time.Date(2024, 3, 21, 0, 0, 0, 0, time.UTC), *src.got.To)
	assert.Equal(t, time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC), *src.got.From)

	assert.Equal(t, http.StatusBadRequest, get(t, router, "/api/reports/sales?from=2024-04-01&to=2024-03-01", nil))
	assert.Equal(t, http.StatusBadRequest, get(t, router, "/api/reports/sales?from=yesterday", nil))
}

func TestCommissionAndServiceReports(t *testing.T) {
	router, _ := newTestRouter(t)

	var comm struct {
		Summary []analytics.CommissionSummary `json:"summary"`
	}
	require.Equal(t, http.StatusOK, get(t, router, "/api/reports/commissions", &comm))
	require.Len(t, comm.Summary, 2)
	assert.Equal(t, "Kofi", comm.Summary[0].SalesPersonName)
	assert.InDelta(t, 2.5, comm.Summary[1].Unpaid, 0.001)

	var svc struct {
		Summary analytics.ServiceSummary `json:"summary"`
	}
	require.Equal(t, http.StatusOK, get(t, router, "/api/reports/services", &svc))
	assert.Equal(t, 2, svc.Summary.Total)
	assert.Equal(t, 1, svc.Summary.Open)
	assert.InDelta(t, 80, svc.Summary.Revenue, 0.001)
	assert.InDelta(t, 30, svc.Summary.EstimatedValue, 0.001)

	require.Equal(t, http.StatusOK, get(t, router, "/api/reports/services?search=dell", &svc))
	assert.Equal(t, 1, svc.Summary.Total)
	require.Len(t, svc.Summary.ByTechnician, 1)
	assert.Equal(t, "Yaw", svc.Summary.ByTechnician[0].Key)
}

func TestInventoryReportStatuses(t *testing.T) {
	router, _ := newTestRouter(t)

	var got analytics.InventorySummary
	require.Equal(t, http.StatusOK, get(t, router, "/api/reports/inventory", &got))
	assert.Equal(t, 3, got.Products)
	assert.Equal(t, 1, got.InStock)
	assert.Equal(t, 1, got.LowStock)
	assert.Equal(t, 1, got.OutOfStock)
	assert.InDelta(t, 11*40+5*4, got.StockValue, 0.001)

	require.Equal(t, http.StatusOK, get(t, router, "/api/reports/inventory?search=hd-", &got))
	assert.Equal(t, 1, got.Products)

	require.Equal(t, http.StatusOK, get(t, router, "/api/reports/inventory?search=nothing", &got))
	assert.Equal(t, 0, got.Products)
	assert.NotNil(t, got.Reorder)
}

func TestDashboardCombinesCards(t *testing.T) {
	router, _ := newTestRouter(t)

	var got Dashboard
	require.Equal(t, http.StatusOK, get(t, router, "/api/reports/dashboard", &got))
	assert.Equal(t, 2, got.Sales.TotalSales)
	assert.InDelta(t, 75, got.Sales.AverageOrderValue, 0.001)
	assert.Len(t, got.Commissions, 2)
	assert.Equal(t, 2, got.Services.Total)
	assert.Equal(t, 3, got.Inventory.Products)
	assert.Len(t, got.TopProducts, 2)
}

func TestDashboardSourceFailure(t *testing.T) {
	router, src := newTestRouter(t)
	src.err = errors.New("db down")
	assert.Equal(t, http.StatusInternalServerError, get(t, router, "/api/reports/dashboard", nil))
}
