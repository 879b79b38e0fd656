package shared

import (
	"fmt"

	root "github.com/shopdesk/shopdesk/internal/shared"
)

var (
	ErrNotFound   = root.ErrNotFound
	ErrDuplicate  = root.ErrDuplicate
	ErrValidation = root.ErrValidation
	ErrInUse      = fmt.Errorf("%w: record is still referenced", root.ErrConflict)
)
