package products

// ProductForm is the create/replace payload.
type ProductForm struct {
	Name           string  `json:"name" validate:"required,max=160"`
	SKU            string  `json:"sku" validate:"required,max=64"`
	CategoryID     *int64  `json:"category_id,omitempty" validate:"omitempty,gt=0"`
	Description    *string `json:"description,omitempty"`
	CostPrice      float64 `json:"cost_price" validate:"gte=0"`
	SellingPrice   float64 `json:"selling_price" validate:"gte=0"`
	CommissionRate float64 `json:"commission_rate" validate:"gte=0,lte=100"`
	ImageURL       *string `json:"image_url,omitempty" validate:"omitempty,url"`
	IsActive       *bool   `json:"is_active,omitempty"`
}

func (f ProductForm) toProduct() Product {
	p := Product{
		Name:           f.Name,
		SKU:            f.SKU,
		CategoryID:     f.CategoryID,
		Description:    f.Description,
		CostPrice:      f.CostPrice,
		SellingPrice:   f.SellingPrice,
		CommissionRate: f.CommissionRate,
		ImageURL:       f.ImageURL,
		IsActive:       true,
	}
	if f.IsActive != nil {
		p.IsActive = *f.IsActive
	}
	return p
}
