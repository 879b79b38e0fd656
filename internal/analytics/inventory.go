package analytics

import (
	"sort"

	"github.com/shopdesk/shopdesk/internal/inventory"
)

// InventorySummary holds the stock card of the dashboard.
type InventorySummary struct {
	Products   int        `json:"products"`
	Units      int        `json:"units"`
	StockValue float64    `json:"stock_value"`
	InStock    int        `json:"in_stock"`
	LowStock   int        `json:"low_stock"`
	OutOfStock int        `json:"out_of_stock"`
	Reorder    []StockRow `json:"reorder"`
}

// SummarizeInventory counts rows per stock status and lists the rows that
// need reordering, emptiest first.
func SummarizeInventory(rows []StockRow) InventorySummary {
	s := InventorySummary{Reorder: make([]StockRow, 0)}
	for _, row := range rows {
		s.Products++
		if row.Quantity > 0 {
			s.Units += row.Quantity
			s.StockValue += float64(row.Quantity) * valueOr0(row.CostPrice)
		}
		switch inventory.StatusFor(row.Quantity, row.ReorderLevel) {
		case inventory.StatusOutOfStock:
			s.OutOfStock++
			s.Reorder = append(s.Reorder, row)
		case inventory.StatusLowStock:
			s.LowStock++
			s.Reorder = append(s.Reorder, row)
		default:
			s.InStock++
		}
	}
	sort.SliceStable(s.Reorder, func(i, j int) bool { return s.Reorder[i].Quantity < s.Reorder[j].Quantity })
	return s
}
