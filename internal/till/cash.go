package till

import (
	"fmt"
	"strconv"
	"strings"

	"bakery-pos/internal/models"
)

const maxCashDigits = 6

// Backspace deletes the last keypad character
const Backspace = '\b'

// Keypad collects a cash amount in pounds, e.g. "20.5". It holds at most
// six digits and two decimal places.
type Keypad struct {
	input string
}

// Press applies one key and reports whether the input changed
func (k *Keypad) Press(key rune) bool {
	switch {
	case key == Backspace:
		if k.input == "" {
			return false
		}
		k.input = k.input[:len(k.input)-1]
		return true
	case key == '.':
		if strings.Contains(k.input, ".") {
			return false
		}
		if k.input == "" {
			k.input = "0"
		}
		k.input += "."
		return true
	case key >= '0' && key <= '9':
		if len(strings.ReplaceAll(k.input, ".", "")) >= maxCashDigits {
			return false
		}
		if _, frac, ok := strings.Cut(k.input, "."); ok && len(frac) >= 2 {
			return false
		}
		k.input += string(key)
		if len(k.input) > 1 && k.input[0] == '0' && k.input[1] != '.' {
			k.input = k.input[1:]
		}
		return true
	default:
		return false
	}
}

// Set replaces the input with amount
func (k *Keypad) Set(amount models.Pence) {
	k.input = fmt.Sprintf("%d.%02d", amount/100, amount%100)
}

func (k Keypad) String() string { return k.input }

// Pence converts the input without floating point. Empty input is zero.
func (k Keypad) Pence() models.Pence {
	whole, frac, _ := strings.Cut(k.input, ".")
	pounds, _ := strconv.ParseInt(whole, 10, 64)
	frac = (frac + "00")[:2]
	pence, _ := strconv.ParseInt(frac, 10, 64)
	return models.Pence(pounds*100 + pence)
}

// CashPreset is a quick tender button
type CashPreset struct {
	Label  string
	Offset models.Pence
}

// CashPresets tender the exact total or the total plus a round amount
var CashPresets = []CashPreset{
	{Label: "Exact", Offset: 0},
	{Label: "+£5", Offset: 500},
	{Label: "+£10", Offset: 1000},
	{Label: "+£20", Offset: 2000},
}

func changeDue(tendered, total models.Pence) models.Pence {
	if tendered < total {
		return 0
	}
	return tendered - total
}

func shortfall(tendered, total models.Pence) models.Pence {
	if tendered >= total {
		return 0
	}
	return total - tendered
}

// PressKey types into the cash keypad
func (w *Workflow) PressKey(key rune) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireMethod(models.PaymentCash); err != nil {
		return err
	}
	w.cash.Press(key)
	return nil
}

// ApplyPreset sets the tendered amount to the total plus the preset offset
func (w *Workflow) ApplyPreset(p CashPreset) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireMethod(models.PaymentCash); err != nil {
		return err
	}
	w.cash.Set(w.totals.Total + p.Offset)
	return nil
}

// Tender completes a cash payment. It is refused while the tendered amount
// is below the total.
func (w *Workflow) Tender() error {
	w.mu.Lock()
	if err := w.requireMethod(models.PaymentCash); err != nil {
		w.mu.Unlock()
		return err
	}
	tendered := w.cash.Pence()
	if tendered < w.totals.Total {
		w.mu.Unlock()
		return fmt.Errorf("%w: short by %s", ErrInsufficientCash, shortfall(tendered, w.totals.Total))
	}
	out := w.complete("", tendered)
	w.mu.Unlock()

	w.deliver(*out)
	return nil
}
