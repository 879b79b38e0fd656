package analytics

import (
	"fmt"
	"testing"
	"time"
)

func benchSales(n int) ([]SaleRow, []SaleLineRow) {
	start := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	sales := make([]SaleRow, n)
	lines := make([]SaleLineRow, 0, n*3)
	for i := range sales {
		sales[i] = SaleRow{
			ID:              int64(i + 1),
			InvoiceNumber:   fmt.Sprintf("INV-%06d", i),
			SaleDate:        start.Add(time.Duration(i) * 17 * time.Minute),
			SalesPersonID:   int64(i%6 + 1),
			SalesPersonName: fmt.Sprintf("staff-%d", i%6),
			TotalAmount:     float64(i%40) * 12.5,
			PaymentStatus:   "paid",
		}
		for j := 0; j < 3; j++ {
			pid := int64((i + j) % 200)
			cid := int64(pid % 12)
			total := float64(j+1) * 9.99
			cat := fmt.Sprintf("cat-%d", cid)
			lines = append(lines, SaleLineRow{SaleID: int64(i + 1), ProductID: &pid, ProductName: fmt.Sprintf("p-%d", pid),
				CategoryID: &cid, CategoryName: &cat, Quantity: j + 1, TotalPrice: &total})
		}
	}
	return sales, lines
}

// A year of sales for a busy shop: well under the dashboard's request budget.
func BenchmarkDashboardSalesCards(b *testing.B) {
	sales, lines := benchSales(20000)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = SummarizeSales(sales)
		_ = GroupByDate(sales, time.UTC)
		_ = GroupBySalesPerson(sales)
		_ = GroupByHour(sales, time.UTC)
		_ = GroupByWeekday(sales, time.UTC)
		_ = GroupByCategory(lines)
		_ = TopProducts(lines, 10)
	}
}

func BenchmarkFilterSales(b *testing.B) {
	sales, _ := benchSales(20000)
	q := SaleQuery{Search: "inv-0001"}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = FilterSales(sales, q)
	}
}
