package shared

// ListFilters represents the common catalogue list filters.
type ListFilters struct {
	Search     string `json:"search,omitempty"`
	SortBy     string `json:"sort,omitempty"`
	SortDir    string `json:"dir,omitempty"`
	IsActive   *bool  `json:"is_active,omitempty"`
	CategoryID *int64 `json:"category_id,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
}

// Normalize clamps paging values. A zero limit means "all rows".
func (f ListFilters) Normalize() ListFilters {
	if f.Limit < 0 {
		f.Limit = 0
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.SortDir != SortDesc {
		f.SortDir = SortAsc
	}
	return f
}
