package products

import (
	"fmt"
	"strings"

	"github.com/shopdesk/shopdesk/internal/masterdata/shared"
)

func (s *Service) validate(p *Product) error {
	p.Name = strings.TrimSpace(p.Name)
	p.SKU = strings.ToUpper(strings.TrimSpace(p.SKU))
	if p.Name == "" {
		return fmt.Errorf("%w: product name is required", shared.ErrValidation)
	}
	if p.SKU == "" {
		return fmt.Errorf("%w: product sku is required", shared.ErrValidation)
	}
	if p.CostPrice < 0 || p.SellingPrice < 0 {
		return fmt.Errorf("%w: prices cannot be negative", shared.ErrValidation)
	}
	if p.CommissionRate < 0 || p.CommissionRate > 100 {
		return fmt.Errorf("%w: commission rate must be between 0 and 100", shared.ErrValidation)
	}
	return nil
}
