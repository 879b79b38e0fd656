package shared

import (
	"strings"

	"golang.org/x/text/cases"
)

// ContainsFold reports whether needle occurs in haystack ignoring case.
// An empty needle always matches.
func ContainsFold(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	// Casers carry state and are not safe for concurrent use.
	folder := cases.Fold()
	return strings.Contains(folder.String(haystack), folder.String(needle))
}

// AnyContainsFold reports whether any of the values contains needle.
func AnyContainsFold(needle string, values ...string) bool {
	if needle == "" {
		return true
	}
	for _, v := range values {
		if ContainsFold(v, needle) {
			return true
		}
	}
	return false
}
