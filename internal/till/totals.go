package till

import "bakery-pos/internal/models"

// Totals is the money breakdown of a cart
type Totals struct {
	Subtotal models.Pence `json:"subtotal"`
	VAT      models.Pence `json:"vat"`
	Service  models.Pence `json:"service"`
	Total    models.Pence `json:"total"`
}

// ComputeTotals prices entries. VAT and service are each rounded to the
// penny, and service only applies to eat-in orders.
func ComputeTotals(entries []CartEntry, rates Rates, orderType models.OrderType) Totals {
	var t Totals
	for _, e := range entries {
		t.Subtotal += e.Item.PricePence() * models.Pence(e.Quantity)
	}
	t.VAT = t.Subtotal.MulRate(rates.VAT)
	if orderType.HasServiceCharge() {
		t.Service = t.Subtotal.MulRate(rates.Service)
	}
	t.Total = t.Subtotal + t.VAT + t.Service
	return t
}
