package analytics

import (
	"sort"
	"time"
)

const dateLayout = "2006-01-02"

// DailySales is the revenue of one calendar date.
type DailySales struct {
	Date       string  `json:"date"`
	SalesCount int     `json:"sales_count"`
	Revenue    float64 `json:"revenue"`
}

// GroupByDate sums revenue per calendar date in loc, in ascending date
// order. Rows without a sale date are excluded.
func GroupByDate(rows []SaleRow, loc *time.Location) []DailySales {
	if loc == nil {
		loc = time.UTC
	}
	acc := make(map[string]*DailySales)
	for _, row := range rows {
		if row.SaleDate.IsZero() {
			continue
		}
		key := row.SaleDate.In(loc).Format(dateLayout)
		entry, ok := acc[key]
		if !ok {
			entry = &DailySales{Date: key}
			acc[key] = entry
		}
		entry.SalesCount++
		entry.Revenue += row.TotalAmount
	}
	out := make([]DailySales, 0, len(acc))
	for _, v := range acc {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// SalesPersonSales is the revenue booked by one employee.
type SalesPersonSales struct {
	SalesPersonID     int64   `json:"sales_person_id"`
	SalesPersonName   string  `json:"sales_person_name"`
	SalesCount        int     `json:"sales_count"`
	Revenue           float64 `json:"revenue"`
	AverageOrderValue float64 `json:"average_order_value"`
}

// GroupBySalesPerson sums revenue per sales person, highest revenue first.
func GroupBySalesPerson(rows []SaleRow) []SalesPersonSales {
	acc := make(map[int64]*SalesPersonSales)
	for _, row := range rows {
		if row.SalesPersonID <= 0 {
			continue
		}
		entry, ok := acc[row.SalesPersonID]
		if !ok {
			entry = &SalesPersonSales{SalesPersonID: row.SalesPersonID, SalesPersonName: row.SalesPersonName}
			acc[row.SalesPersonID] = entry
		}
		entry.SalesCount++
		entry.Revenue += row.TotalAmount
	}
	out := make([]SalesPersonSales, 0, len(acc))
	for _, v := range acc {
		v.AverageOrderValue = ratio(v.Revenue, v.SalesCount)
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return out[i].SalesPersonID < out[j].SalesPersonID
	})
	return out
}

// CategorySales is the revenue of one product category.
type CategorySales struct {
	CategoryID   int64   `json:"category_id"`
	CategoryName string  `json:"category_name"`
	ItemsSold    int     `json:"items_sold"`
	Revenue      float64 `json:"revenue"`
}

// GroupByCategory sums line revenue per product category, highest first.
// Lines whose product or category is unknown contribute nothing.
func GroupByCategory(lines []SaleLineRow) []CategorySales {
	acc := make(map[int64]*CategorySales)
	for _, line := range lines {
		if line.ProductID == nil || line.CategoryID == nil {
			continue
		}
		entry, ok := acc[*line.CategoryID]
		if !ok {
			entry = &CategorySales{CategoryID: *line.CategoryID, CategoryName: strOr(line.CategoryName, "Uncategorized")}
			acc[*line.CategoryID] = entry
		}
		entry.ItemsSold += line.Quantity
		entry.Revenue += valueOr0(line.TotalPrice)
	}
	out := make([]CategorySales, 0, len(acc))
	for _, v := range acc {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return out[i].CategoryName < out[j].CategoryName
	})
	return out
}

// HourlySales is the activity of one hour of the day.
type HourlySales struct {
	Hour       int     `json:"hour"`
	SalesCount int     `json:"sales_count"`
	Revenue    float64 `json:"revenue"`
}

// GroupByHour buckets sales into the 24 hours of the day, in loc. Every hour
// is present so charts get a continuous axis.
func GroupByHour(rows []SaleRow, loc *time.Location) []HourlySales {
	if loc == nil {
		loc = time.UTC
	}
	out := make([]HourlySales, 24)
	for h := range out {
		out[h].Hour = h
	}
	for _, row := range rows {
		if row.SaleDate.IsZero() {
			continue
		}
		h := row.SaleDate.In(loc).Hour()
		out[h].SalesCount++
		out[h].Revenue += row.TotalAmount
	}
	return out
}

// WeekdaySales is the activity of one day of the week.
type WeekdaySales struct {
	Weekday    int     `json:"weekday"`
	Name       string  `json:"name"`
	SalesCount int     `json:"sales_count"`
	Revenue    float64 `json:"revenue"`
}

// GroupByWeekday buckets sales into Sunday..Saturday, in loc.
func GroupByWeekday(rows []SaleRow, loc *time.Location) []WeekdaySales {
	if loc == nil {
		loc = time.UTC
	}
	out := make([]WeekdaySales, 7)
	for d := range out {
		out[d].Weekday = d
		out[d].Name = time.Weekday(d).String()
	}
	for _, row := range rows {
		if row.SaleDate.IsZero() {
			continue
		}
		d := row.SaleDate.In(loc).Weekday()
		out[d].SalesCount++
		out[d].Revenue += row.TotalAmount
	}
	return out
}

// ProductSales is the volume of one product.
type ProductSales struct {
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	Revenue     float64 `json:"revenue"`
}

// TopProducts returns the limit best-selling products by revenue. A
// non-positive limit returns all of them.
func TopProducts(lines []SaleLineRow, limit int) []ProductSales {
	acc := make(map[int64]*ProductSales)
	for _, line := range lines {
		if line.ProductID == nil {
			continue
		}
		entry, ok := acc[*line.ProductID]
		if !ok {
			entry = &ProductSales{ProductID: *line.ProductID, ProductName: line.ProductName}
			acc[*line.ProductID] = entry
		}
		entry.Quantity += line.Quantity
		entry.Revenue += valueOr0(line.TotalPrice)
	}
	out := make([]ProductSales, 0, len(acc))
	for _, v := range acc {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return out[i].ProductID < out[j].ProductID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SalesSummary holds the headline sales figures.
type SalesSummary struct {
	TotalRevenue      float64 `json:"total_revenue"`
	TotalSales        int     `json:"total_sales"`
	AverageOrderValue float64 `json:"average_order_value"`
	PendingPayments   int     `json:"pending_payments"`
}

// SummarizeSales totals revenue and count. The average is 0 without sales.
func SummarizeSales(rows []SaleRow) SalesSummary {
	var s SalesSummary
	for _, row := range rows {
		s.TotalSales++
		s.TotalRevenue += row.TotalAmount
		if row.PaymentStatus == "pending" || row.PaymentStatus == "partial" {
			s.PendingPayments++
		}
	}
	s.AverageOrderValue = ratio(s.TotalRevenue, s.TotalSales)
	return s
}
