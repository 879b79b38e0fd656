package shared

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/shopdesk/shopdesk/internal/platform/httpx"
)

// ParseListFilters reads the common catalogue filters from the query string.
func ParseListFilters(r *http.Request) (ListFilters, error) {
	filters := ListFilters{
		Search:  httpx.QueryString(r, "search"),
		SortBy:  httpx.QueryString(r, "sort"),
		SortDir: httpx.QueryString(r, "dir"),
	}
	var err error
	if filters.CategoryID, err = httpx.QueryInt64(r, "category_id"); err != nil {
		return ListFilters{}, err
	}
	if filters.IsActive, err = httpx.QueryBool(r, "is_active"); err != nil {
		return ListFilters{}, err
	}
	for name, dst := range map[string]*int{"limit": &filters.Limit, "offset": &filters.Offset} {
		raw := httpx.QueryString(r, name)
		if raw == "" {
			continue
		}
		n, convErr := strconv.Atoi(raw)
		if convErr != nil {
			return ListFilters{}, fmt.Errorf("%w: invalid %s %q", ErrValidation, name, raw)
		}
		*dst = n
	}
	return filters.Normalize(), nil
}
