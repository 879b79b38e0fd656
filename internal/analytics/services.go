package analytics

import "sort"

// ServiceGroup is the service workload of one status, technician or category.
type ServiceGroup struct {
	Key     string  `json:"key"`
	ID      *int64  `json:"id,omitempty"`
	Count   int     `json:"count"`
	Revenue float64 `json:"revenue"`
}

// ServiceSummary holds the headline service figures.
type ServiceSummary struct {
	Total          int            `json:"total"`
	Open           int            `json:"open"`
	Completed      int            `json:"completed"`
	Revenue        float64        `json:"revenue"`
	AverageTicket  float64        `json:"average_ticket"`
	ByStatus       []ServiceGroup `json:"by_status"`
	ByTechnician   []ServiceGroup `json:"by_technician"`
	ByCategory     []ServiceGroup `json:"by_category"`
	EstimatedValue float64        `json:"estimated_value"`
}

// ServicesByStatus counts requests per status, most frequent first.
func ServicesByStatus(rows []ServiceRow) []ServiceGroup {
	return groupServices(rows, func(r ServiceRow) (string, *int64, bool) {
		return r.Status, nil, r.Status != ""
	})
}

// ServicesByTechnician counts requests per assigned technician. Unassigned
// requests are skipped.
func ServicesByTechnician(rows []ServiceRow) []ServiceGroup {
	return groupServices(rows, func(r ServiceRow) (string, *int64, bool) {
		if r.TechnicianID == nil {
			return "", nil, false
		}
		return strOr(r.TechnicianName, "Unknown"), r.TechnicianID, true
	})
}

// ServicesByCategory counts requests per service category.
func ServicesByCategory(rows []ServiceRow) []ServiceGroup {
	return groupServices(rows, func(r ServiceRow) (string, *int64, bool) {
		if r.CategoryID == nil {
			return "", nil, false
		}
		return strOr(r.CategoryName, "Uncategorized"), r.CategoryID, true
	})
}

// groupKey identifies a group by id when it has one, so two technicians
// sharing a display name stay apart.
type groupKey struct {
	id    int64
	label string
}

func groupServices(rows []ServiceRow, keyOf func(ServiceRow) (string, *int64, bool)) []ServiceGroup {
	acc := make(map[groupKey]*ServiceGroup)
	for _, row := range rows {
		label, id, ok := keyOf(row)
		if !ok {
			continue
		}
		k := groupKey{label: label}
		if id != nil {
			k = groupKey{id: *id}
		}
		entry, found := acc[k]
		if !found {
			entry = &ServiceGroup{Key: label, ID: id}
			acc[k] = entry
		}
	entry.Count++
		entry.Revenue += valueOr0(row.FinalCost)
	}
	out := make([]ServiceGroup, 0, len(acc))
	for _, v := range acc {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].Key != out[j].Key {
			return out[i].Key < out[j].Key
		}
		return idOr0(out[i].ID) < idOr0(out[j].ID)
	})
	return out
}

// SummarizeServices folds service requests into the dashboard card.
func SummarizeServices(rows []ServiceRow) ServiceSummary {
	s := ServiceSummary{
		ByStatus:     ServicesByStatus(rows),
		ByTechnician: ServicesByTechnician(rows),
		ByCategory:   ServicesByCategory(rows),
	}
	for _, row := range rows {
		s.Total++
		switch row.Status {
		case "completed":
			s.Completed++
			s.Revenue += valueOr0(row.FinalCost)
		case "cancelled":
		default:
			s.Open++
			s.EstimatedValue += valueOr0(row.EstimatedCost)
		}
	}
	s.AverageTicket = ratio(s.Revenue, s.Completed)
	return s
}
