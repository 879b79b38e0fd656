package shared

const (
	DefaultLimit = 50
	MaxLimit     = 500

	SortAsc  = "asc"
	SortDesc = "desc"
)
