package till

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"bakery-pos/internal/models"
)

// Stage is the outer state of a payment
type Stage string

const (
	StageSelecting    Stage = "selecting"
	StageMethodActive Stage = "method_active"
	StageCompleted    Stage = "completed"
	StageCancelled    Stage = "cancelled"
)

var (
	ErrPaymentClosed    = errors.New("payment is already completed or cancelled")
	ErrWrongMethod      = errors.New("action does not apply to the selected payment method")
	ErrCardBusy         = errors.New("card payment already in progress")
	ErrInsufficientCash = errors.New("tendered cash is less than the total")
	ErrQRExpired        = errors.New("QR code has expired: generate a new one")
)

// Outcome is the finished payment handed to order submission
type Outcome struct {
	Method    models.PaymentMethod
	PaidAt    time.Time
	Totals    Totals
	Reference string
	Tendered  models.Pence
	Change    models.Pence
}

// OutcomeFunc receives the single outcome of a workflow. It may run on a
// timer goroutine.
type OutcomeFunc func(Outcome)

// View is a read-only copy of the workflow state for display
type View struct {
	Stage  Stage
	Method models.PaymentMethod
	Totals Totals

	Card    CardState
	CardErr error

	CashInput string
	Tendered  models.Pence
	Change    models.Pence
	Shortfall models.Pence
	CanTender bool

	QRRef       string
	QRRemaining time.Duration
	QRExpired   bool
}

// Workflow drives one payment from method selection to completion. Timers
// belong to the current method and are stopped whenever the method changes
// or the workflow ends; a generation counter drops fires that were already
// in flight.
type Workflow struct {
	mu        sync.Mutex
	clock     Clock
	orderRef  string
	totals    Totals
	processor CardProcessor
	done      OutcomeFunc

	stage   Stage
	method  models.PaymentMethod
	gen     uint64
	timers  []Timer
	cancels []context.CancelFunc

	card cardState
	cash Keypad
	qr   qrState
}

// NewWorkflow starts a payment of totals in the selecting stage. orderRef
// identifies the order on QR payloads.
func NewWorkflow(orderRef string, totals Totals, clock Clock, processor CardProcessor, done OutcomeFunc) *Workflow {
	if processor == nil {
		processor = SimulatedProcessor{}
	}
	return &Workflow{
		clock:     clock,
		orderRef:  orderRef,
		totals:    totals,
		processor: processor,
		done:      done,
		stage:     StageSelecting,
	}
}

// SelectMethod switches to m, abandoning any progress in the previous method
func (w *Workflow) SelectMethod(m models.PaymentMethod) error {
	if !m.Valid() {
		return fmt.Errorf("unknown payment method %q", m)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed() {
		return ErrPaymentClosed
	}
	w.dispose()
	w.method = m
	w.stage = StageMethodActive
	w.card = cardState{}
	w.cash = Keypad{}
	w.qr = qrState{}

	switch m {
	case models.PaymentCard:
		w.card.state = CardIdle
	case models.PaymentQR:
		w.startQR()
	}
	return nil
}

// Cancel abandons the payment. Timers stop and no outcome is delivered.
func (w *Workflow) Cancel() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed() {
		return ErrPaymentClosed
	}
	w.dispose()
	w.stage = StageCancelled
	return nil
}

// Stage returns the outer state
func (w *Workflow) Stage() Stage {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stage
}

// View returns a snapshot for display
func (w *Workflow) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.clock.Now()
	tendered := w.cash.Pence()
	v := View{
		Stage:     w.stage,
		Method:    w.method,
		Totals:    w.totals,
		Card:      w.card.state,
		CardErr:   w.card.err,
		CashInput: w.cash.String(),
		Tendered:  tendered,
		Change:    changeDue(tendered, w.totals.Total),
		Shortfall: shortfall(tendered, w.totals.Total),
		CanTender: tendered >= w.totals.Total,
		QRRef:     w.qr.ref,
	}
	if w.method == models.PaymentQR {
		v.QRRemaining = w.qr.remaining(now)
		v.QRExpired = w.qr.expiredAt(now)
	}
	return v
}

func (w *Workflow) closed() bool {
	return w.stage == StageCompleted || w.stage == StageCancelled
}

// requireMethod checks the workflow is active on m. Callers hold mu.
func (w *Workflow) requireMethod(m models.PaymentMethod) error {
	if w.closed() {
		return ErrPaymentClosed
	}
	if w.stage != StageMethodActive || w.method != m {
		return ErrWrongMethod
	}
	return nil
}

// dispose stops every timer of the current method and cancels any card
// authorisation in flight. Callers hold mu.
func (w *Workflow) dispose() {
	for _, t := range w.timers {
		t.Stop()
	}
	for _, cancel := range w.cancels {
		cancel()
	}
	w.timers = nil
	w.cancels = nil
	w.gen++
}

// schedule runs fn under mu after d unless the workflow has moved on. A
// non-nil outcome returned by fn is delivered after mu is released.
func (w *Workflow) schedule(d time.Duration, fn func() *Outcome) {
	gen := w.gen
	t := w.clock.AfterFunc(d, func() {
		w.mu.Lock()
		if gen != w.gen || w.closed() {
			w.mu.Unlock()
			return
		}
		out := fn()
		w.mu.Unlock()

		if out != nil {
			w.deliver(*out)
		}
	})
	w.timers = append(w.timers, t)
}

// complete closes the workflow and builds its outcome. Callers hold mu and
// must deliver the result after unlocking.
func (w *Workflow) complete(reference string, tendered models.Pence) *Outcome {
	w.dispose()
	w.stage = StageCompleted

	out := &Outcome{
		Method:    w.method,
		PaidAt:    w.clock.Now().UTC(),
		Totals:    w.totals,
		Reference: reference,
	}
	if w.method == models.PaymentCash {
		out.Tendered = tendered
		out.Change = changeDue(tendered, w.totals.Total)
	}
	return out
}

func (w *Workflow) deliver(out Outcome) {
	if w.done != nil {
		w.done(out)
	}
}
