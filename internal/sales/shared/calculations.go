// Package shared holds the money arithmetic used by sales and commissions.
package shared

import "math"

// CalculateLineTotals returns the discount and the net total of one sale line.
func CalculateLineTotals(quantity int, unitPrice, discountPercent float64) (discountAmount, lineTotal float64) {
	grossAmount := float64(quantity) * unitPrice
	discountAmount = RoundTo2(grossAmount * (discountPercent / 100))
	lineTotal = RoundTo2(grossAmount - discountAmount)
	return
}

// CalculateTax applies a percentage rate to a taxable amount.
func CalculateTax(taxable, ratePercent float64) float64 {
	if taxable <= 0 || ratePercent <= 0 {
		return 0
	}
	return RoundTo2(taxable * ratePercent / 100)
}

// CommissionLine is the part of a sale item that earns commission.
type CommissionLine struct {
	TotalPrice     float64
	CommissionRate float64
}

// CommissionAmount sums total_price * commission_rate / 100 over lines.
func CommissionAmount(lines []CommissionLine) float64 {
	var sum float64
	for _, l := range lines {
		sum += l.TotalPrice * l.CommissionRate / 100
	}
	return RoundTo2(sum)
}

// RoundTo2 rounds half away from zero to cents.
func RoundTo2(val float64) float64 {
	return math.Round(val*100) / 100
}
