package till

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"bakery-pos/internal/models"
)

const (
	qrWindow = 5 * time.Minute

	// Merchant is shown to the customer's banking app
	Merchant = "Happy Day Everyday Bakery"
)

// QRPayload is the JSON encoded in the QR code
type QRPayload struct {
	Ref      string    `json:"ref"`
	OrderID  string    `json:"orderId"`
	Amount   string    `json:"amount"`
	Currency string    `json:"currency"`
	Merchant string    `json:"merchant"`
	Expires  time.Time `json:"expires"`
}

type qrState struct {
	ref     string
	expires time.Time
	expired bool
}

func (q qrState) remaining(now time.Time) time.Duration {
	if q.expired || !now.Before(q.expires) {
		return 0
	}
	return q.expires.Sub(now)
}

func (q qrState) expiredAt(now time.Time) bool {
	return q.expired || !now.Before(q.expires)
}

// startQR issues a fresh reference and expiry window. Callers hold mu.
func (w *Workflow) startQR() {
	w.qr = qrState{
		ref:     "QR-" + uuid.NewString(),
		expires: w.clock.Now().Add(qrWindow),
	}
	w.schedule(qrWindow, func() *Outcome {
		w.qr.expired = true
		return nil
	})
}

// RegenerateQR replaces the code with a new reference and a full window
func (w *Workflow) RegenerateQR() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireMethod(models.PaymentQR); err != nil {
		return err
	}
	w.dispose()
	w.startQR()
	return nil
}

// QRPayload returns the JSON for the current code
func (w *Workflow) QRPayload() ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireMethod(models.PaymentQR); err != nil {
		return nil, err
	}
	return json.Marshal(QRPayload{
		Ref:      w.qr.ref,
		OrderID:  w.orderRef,
		Amount:   w.totals.Total.Decimal().StringFixed(2),
		Currency: "GBP",
		Merchant: Merchant,
		Expires:  w.qr.expires.UTC(),
	})
}

// ConfirmReceived completes a QR payment. An expired code must be
// regenerated first.
func (w *Workflow) ConfirmReceived() error {
	w.mu.Lock()
	if err := w.requireMethod(models.PaymentQR); err != nil {
		w.mu.Unlock()
		return err
	}
	if w.qr.expiredAt(w.clock.Now()) {
		w.qr.expired = true
		w.mu.Unlock()
		return ErrQRExpired
	}
	out := w.complete(w.qr.ref, 0)
	w.mu.Unlock()

	w.deliver(*out)
	return nil
}
