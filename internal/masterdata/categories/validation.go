package categories

import (
	"fmt"
	"strings"

	"github.com/shopdesk/shopdesk/internal/masterdata/shared"
)

func (s *Service) validate(c *Category) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return fmt.Errorf("%w: %s name is required", shared.ErrValidation, s.kind.Name)
	}
	if !s.kind.HasBasePrice {
		c.BasePrice = nil
		return nil
	}
	if c.BasePrice == nil {
		zero := 0.0
		c.BasePrice = &zero
	}
	if *c.BasePrice < 0 {
		return fmt.Errorf("%w: base price cannot be negative", shared.ErrValidation)
	}
	return nil
}
