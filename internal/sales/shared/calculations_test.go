package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateLineTotals(t *testing.T) {
	tests := []struct {
		name         string
		qty          int
		price        float64
		discount     float64
		wantDiscount float64
		wantTotal    float64
	}{
		{"no discount", 2, 150, 0, 0, 300},
		{"ten percent", 3, 99.99, 10, 30, 269.97},
		{"full discount", 1, 50, 100, 50, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, total := CalculateLineTotals(tt.qty, tt.price, tt.discount)
			assert.InDelta(t, tt.wantDiscount, d, 0.001)
			assert.InDelta(t, tt.wantTotal, total, 0.001)
		})
	}
}

func TestCalculateTax(t *testing.T) {
	assert.Equal(t, 0.0, CalculateTax(100, 0))
	assert.Equal(t, 0.0, CalculateTax(-5, 10))
	assert.InDelta(t, 7.5, CalculateTax(100, 7.5), 0.001)
}

func TestCommissionAmount(t *testing.T) {
	lines := []CommissionLine{
		{TotalPrice: 1000, CommissionRate: 5},
		{TotalPrice: 250, CommissionRate: 2.5},
		{TotalPrice: 80, CommissionRate: 0},
	}
	assert.InDelta(t, 56.25, CommissionAmount(lines), 0.001)
	assert.Equal(t, 0.0, CommissionAmount(nil))
}
