package till

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"bakery-pos/internal/till/store"
)

// ErrInvalidRate is returned for a rate outside 0..1
var ErrInvalidRate = errors.New("rate must be between 0 and 1")

// Rates are the VAT and service charge fractions, e.g. 0.20 for 20%
type Rates struct {
	VAT     decimal.Decimal `json:"vat"`
	Service decimal.Decimal `json:"service"`
}

// DefaultRates is used until the operator saves other rates
func DefaultRates() Rates {
	return Rates{
		VAT:     decimal.RequireFromString("0.20"),
		Service: decimal.RequireFromString("0.10"),
	}
}

// Validate rejects negative rates and rates above 100%
func (r Rates) Validate() error {
	one := decimal.NewFromInt(1)
	for name, v := range map[string]decimal.Decimal{"vat": r.VAT, "service": r.Service} {
		if v.IsNegative() || v.GreaterThan(one) {
			return fmt.Errorf("%s %s: %w", name, v, ErrInvalidRate)
		}
	}
	return nil
}

// String renders the rates as percentages, e.g. "VAT 20% · Service 12.5%"
func (r Rates) String() string {
	hundred := decimal.NewFromInt(100)
	return fmt.Sprintf("VAT %s%% · Service %s%%", r.VAT.Mul(hundred).String(), r.Service.Mul(hundred).String())
}

// LoadRates reads the saved rates. Missing or unreadable values fall back to
// DefaultRates; a decode failure is still returned so it can be reported.
func LoadRates(s store.Store) (Rates, error) {
	var r Rates
	ok, err := store.Load(s, store.KeyRates, &r)
	if err != nil || !ok {
		return DefaultRates(), err
	}
	if err := r.Validate(); err != nil {
		return DefaultRates(), err
	}
	return r, nil
}

// SaveRates validates and persists r
func SaveRates(s store.Store, r Rates) error {
	if err := r.Validate(); err != nil {
		return err
	}
	return store.Save(s, store.KeyRates, r)
}
