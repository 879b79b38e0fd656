package analytics

import (
	"math/rand"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

func TestGroupByDateExample(t *testing.T) {
	rows := []SaleRow{
		{ID: 3, SaleDate: day(2024, 1, 2, 9), TotalAmount: 75},
		{ID: 1, SaleDate: day(2024, 1, 1, 10), TotalAmount: 100},
		{ID: 2, SaleDate: day(2024, 1, 1, 15), TotalAmount: 50},
	}

	got := GroupByDate(rows, time.UTC)

	assert.Equal(t, []DailySales{
		{Date: "2024-01-01", SalesCount: 2, Revenue: 150},
		{Date: "2024-01-02", SalesCount: 1, Revenue: 75},
	}, got)
}

func TestGroupByDatePreservesRevenue(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 50; run++ {
		n := rng.Intn(200)
		rows := make([]SaleRow, n)
		var want float64
		for i := range rows {
			amount := float64(rng.Intn(100000)) / 100
			rows[i] = SaleRow{
				ID:          int64(i + 1),
				SaleDate:    day(2024, time.Month(1+rng.Intn(12)), 1+rng.Intn(28), rng.Intn(24)),
				TotalAmount: amount,
			}
			want += amount
		}

		groups := GroupByDate(rows, time.UTC)
		var got float64
		var count int
		for _, g := range groups {
			got += g.Revenue
			count += g.SalesCount
		}
		assert.InDelta(t, want, got, 0.0001)
		assert.Equal(t, n, count)
		for i := 1; i < len(groups); i++ {
			assert.Less(t, groups[i-1].Date, groups[i].Date)
		}
	}
}

func TestGroupByDateUsesReportZone(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	rows := []SaleRow{
		{ID: 1, SaleDate: time.Date(2024, 1, 2, 2, 0, 0, 0, time.UTC), TotalAmount: 40},
		{ID: 2, SaleDate: time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC), TotalAmount: 60},
	}

	assert.Equal(t, []DailySales{
		{Date: "2024-01-01", SalesCount: 1, Revenue: 40},
		{Date: "2024-01-02", SalesCount: 1, Revenue: 60},
	}, GroupByDate(rows, ny))

	assert.Equal(t, []DailySales{
		{Date: "2024-01-02", SalesCount: 2, Revenue: 100},
	}, GroupByDate(rows, time.UTC))
}

func TestGroupByDateSkipsUndatedRows(t *testing.T) {
	got := GroupByDate([]SaleRow{{ID: 1, TotalAmount: 10}}, nil)
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSummarizeSalesWithoutSales(t *testing.T) {
	s := SummarizeSales(nil)
	assert.Equal(t, 0, s.TotalSales)
	assert.Equal(t, 0.0, s.AverageOrderValue)

	s = SummarizeSales([]SaleRow{
		{TotalAmount: 100, PaymentStatus: "paid"},
		{TotalAmount: 50, PaymentStatus: "pending"},
	})
	assert.InDelta(t, 75, s.AverageOrderValue, 0.001)
	assert.Equal(t, 1, s.PendingPayments)
}

func TestGroupBySalesPersonOrdersByRevenue(t *testing.T) {
	rows := []SaleRow{
		{SalesPersonID: 1, SalesPersonName: "Kofi", TotalAmount: 40},
		{SalesPersonID: 2, SalesPersonName: "Ama", TotalAmount: 300},
		{SalesPersonID: 1, SalesPersonName: "Kofi", TotalAmount: 60},
		{SalesPersonID: 0, TotalAmount: 999},
	}
	got := GroupBySalesPerson(rows)
	require.Len(t, got, 2)
	assert.Equal(t, "Ama", got[0].SalesPersonName)
	assert.Equal(t, 2, got[1].SalesCount)
	assert.InDelta(t, 50, got[1].AverageOrderValue, 0.001)
}

func TestGroupByCategorySkipsUnknownProducts(t *testing.T) {
	lines := []SaleLineRow{
		{ProductID: ptr(int64(1)), CategoryID: ptr(int64(10)), CategoryName: ptr("Storage"), Quantity: 2, TotalPrice: ptr(160.0)},
		{ProductID: ptr(int64(2)), CategoryID: ptr(int64(20)), CategoryName: ptr("Power"), Quantity: 1, TotalPrice: ptr(25.0)},
		{ProductID: ptr(int64(3)), CategoryID: ptr(int64(10)), CategoryName: ptr("Storage"), Quantity: 1, TotalPrice: nil},
		{ProductID: nil, CategoryID: ptr(int64(20)), Quantity: 5, TotalPrice: ptr(500.0)},
		{ProductID: ptr(int64(4)), CategoryID: nil, Quantity: 1, TotalPrice: ptr(80.0)},
	}
	got := GroupByCategory(lines)
	require.Len(t, got, 2)
	assert.Equal(t, CategorySales{CategoryID: 10, CategoryName: "Storage", ItemsSold: 3, Revenue: 160}, got[0])
	assert.Equal(t, CategorySales{CategoryID: 20, CategoryName: "Power", ItemsSold: 1, Revenue: 25}, got[1])
}

func TestGroupByHourAndWeekday(t *testing.T) {
	rows := []SaleRow{
		{SaleDate: day(2024, 1, 1, 9), TotalAmount: 10},  // Monday
		{SaleDate: day(2024, 1, 1, 9), TotalAmount: 20},  // Monday
		{SaleDate: day(2024, 1, 6, 17), TotalAmount: 30}, // Saturday
	}
	hours := GroupByHour(rows, nil)
	require.Len(t, hours, 24)
	assert.Equal(t, HourlySales{Hour: 9, SalesCount: 2, Revenue: 30}, hours[9])
	assert.Equal(t, 1, hours[17].SalesCount)
	assert.Equal(t, 0, hours[0].SalesCount)

	days := GroupByWeekday(rows, time.UTC)
	require.Len(t, days, 7)
	assert.Equal(t, "Monday", days[1].Name)
	assert.Equal(t, 2, days[1].SalesCount)
	assert.InDelta(t, 30, days[6].Revenue, 0.001)

	eastAfrica := time.FixedZone("EAT", 3*3600)
	shifted := GroupByHour(rows, eastAfrica)
	assert.Equal(t, 2, shifted[12].SalesCount)
}

func TestTopProducts(t *testing.T) {
	lines := []SaleLineRow{
		{ProductID: ptr(int64(1)), ProductName: "SSD", Quantity: 1, TotalPrice: ptr(80.0)},
		{ProductID: ptr(int64(2)), ProductName: "Charger", Quantity: 4, TotalPrice: ptr(100.0)},
		{ProductID: ptr(int64(1)), ProductName: "SSD", Quantity: 1, TotalPrice: ptr(80.0)},
		{ProductID: ptr(int64(3)), ProductName: "Mouse", Quantity: 1, TotalPrice: ptr(15.0)},
	}
	got := TopProducts(lines, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "SSD", got[0].ProductName)
	assert.Equal(t, 2, got[0].Quantity)
	assert.Equal(t, "Charger", got[1].ProductName)

	assert.Len(t, TopProducts(lines, 0), 3)
}
