package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices go over the wire as JSON numbers, e.g. 2.5 rather than "2.5".
	decimal.MarshalJSONWithoutQuotes = true
}

// Pence is an amount of money in minor units. All till arithmetic happens
// in Pence; conversion to decimal pounds only happens at the edges.
type Pence int64

var hundred = decimal.NewFromInt(100)

// PenceFromDecimal converts pounds to pence, rounding half away from zero.
func PenceFromDecimal(d decimal.Decimal) Pence {
	return Pence(d.Mul(hundred).Round(0).IntPart())
}

// Decimal returns the amount in pounds with two decimal places.
func (p Pence) Decimal() decimal.Decimal {
	return decimal.New(int64(p), -2)
}

// MulRate returns round(p × rate) to the nearest penny, half away from zero.
func (p Pence) MulRate(rate decimal.Decimal) Pence {
	return Pence(decimal.NewFromInt(int64(p)).Mul(rate).Round(0).IntPart())
}

// String formats the amount as pounds, e.g. £8.16 or -£0.50.
func (p Pence) String() string {
	sign := ""
	v := int64(p)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s£%d.%02d", sign, v/100, v%100)
}
