package analytics

import "sort"

// CommissionSummary is the commission position of one sales person.
type CommissionSummary struct {
	SalesPersonID   int64   `json:"sales_person_id"`
	SalesPersonName string  `json:"sales_person_name"`
	Count           int     `json:"count"`
	Total           float64 `json:"total"`
	Paid            float64 `json:"paid"`
	Unpaid          float64 `json:"unpaid"`
}

// SummarizeCommissions groups commissions per sales person, largest total first.
func SummarizeCommissions(rows []CommissionRow) []CommissionSummary {
	acc := make(map[int64]*CommissionSummary)
	for _, row := range rows {
		if row.SalesPersonID <= 0 {
			continue
		}
		entry, ok := acc[row.SalesPersonID]
		if !ok {
			entry = &CommissionSummary{SalesPersonID: row.SalesPersonID, SalesPersonName: row.SalesPersonName}
			acc[row.SalesPersonID] = entry
		}
		amount := valueOr0(row.Amount)
		entry.Count++
		entry.Total += amount
		if row.IsPaid {
			entry.Paid += amount
		} else {
			entry.Unpaid += amount
		}
	}
	out := make([]CommissionSummary, 0, len(acc))
	for _, v := range acc {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].SalesPersonID < out[j].SalesPersonID
	})
	return out
}
