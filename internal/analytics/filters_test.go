package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var catalogue = []ProductRow{
	{ID: 1, Name: "Samsung SSD 512GB", SKU: "SSD-512", CategoryID: ptr(int64(10)), CategoryName: ptr("Storage"), IsActive: true},
	{ID: 2, Name: "HP Laptop Charger", SKU: "CHG-HP65", CategoryID: ptr(int64(20)), CategoryName: ptr("Power"), IsActive: true},
	{ID: 3, Name: "PS/2 Keyboard", SKU: "KB-PS2", IsActive: false},
}

func TestFilterProductsNoMatchIsEmpty(t *testing.T) {
	got := FilterProducts(catalogue, ProductQuery{Search: "graphics card"})
	require.NotNil(t, got)
	assert.Empty(t, got)

	got = FilterProducts(nil, ProductQuery{})
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFilterProductsMatchesNameSKUAndCategory(t *testing.T) {
	assert.Len(t, FilterProducts(catalogue, ProductQuery{Search: "ssd"}), 1)
	assert.Len(t, FilterProducts(catalogue, ProductQuery{Search: "chg-"}), 1)
	assert.Len(t, FilterProducts(catalogue, ProductQuery{Search: "POWER"}), 1)
	assert.Len(t, FilterProducts(catalogue, ProductQuery{}), 3)
}

func TestFilterProductsCombinesPredicates(t *testing.T) {
	got := FilterProducts(catalogue, ProductQuery{Search: "k", ActiveOnly: true})
	assert.Empty(t, got)

	got = FilterProducts(catalogue, ProductQuery{CategoryID: ptr(int64(10))})
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)
}

func TestFilterSales(t *testing.T) {
	rows := []SaleRow{
		{InvoiceNumber: "INV-20240101-AAAAAA", CustomerName: ptr("Efua Mensah"), SalesPersonID: 1, PaymentStatus: "paid"},
		{InvoiceNumber: "INV-20240102-BBBBBB", SalesPersonID: 2, PaymentStatus: "pending"},
	}
	assert.Len(t, FilterSales(rows, SaleQuery{Search: "mensah"}), 1)
	assert.Len(t, FilterSales(rows, SaleQuery{Search: "bbbbbb"}), 1)
	assert.Len(t, FilterSales(rows, SaleQuery{PaymentStatus: "pending", SalesPersonID: ptr(int64(1))}), 0)
	assert.NotNil(t, FilterSales(rows, SaleQuery{Search: "zzz"}))
}

func TestFilterServices(t *testing.T) {
	rows := []ServiceRow{
		{RequestNumber: "SR-20240101-000001", Title: "Screen replacement", Status: "pending", DeviceBrand: ptr("Dell")},
		{RequestNumber: "SR-20240101-000002", Title: "Virus removal", Status: "completed", TechnicianID: ptr(int64(4)), CustomerName: ptr("Yaw")},
	}
	assert.Len(t, FilterServices(rows, ServiceQuery{Search: "dell"}), 1)
	assert.Len(t, FilterServices(rows, ServiceQuery{Search: "yaw"}), 1)
	assert.Len(t, FilterServices(rows, ServiceQuery{TechnicianID: ptr(int64(4)), Status: "completed"}), 1)
	assert.Len(t, FilterServices(rows, ServiceQuery{TechnicianID: ptr(int64(9))}), 0)
}
