package till

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"bakery-pos/internal/models"
)

// CardState is the progress of a card payment
type CardState string

const (
	CardIdle       CardState = "idle"
	CardProcessing CardState = "processing"
	CardApproved   CardState = "approved"
)

const (
	cardProcessingDelay = 2 * time.Second
	cardApprovedDelay   = 1200 * time.Millisecond
	cardAuthTimeout     = 30 * time.Second
)

// CardProcessor authorises a card payment and returns its reference
type CardProcessor interface {
	Authorize(ctx context.Context, amount models.Pence) (string, error)
}

// SimulatedProcessor approves every payment
type SimulatedProcessor struct{}

func (SimulatedProcessor) Authorize(ctx context.Context, amount models.Pence) (string, error) {
	return "AUTH-" + strings.ToUpper(uuid.NewString()[:8]), nil
}

type cardState struct {
	state CardState
	ref   string
	err   error
}

// Tap starts a card payment. The terminal shows processing, then approved,
// then the workflow completes.
func (w *Workflow) Tap() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireMethod(models.PaymentCard); err != nil {
		return err
	}
	if w.card.state == CardProcessing || w.card.state == CardApproved {
		return ErrCardBusy
	}

	w.card = cardState{state: CardProcessing}
	ctx, cancel := context.WithTimeout(context.Background(), cardAuthTimeout)
	w.cancels = append(w.cancels, cancel)

	gen, amount := w.gen, w.totals.Total
	w.timers = append(w.timers, w.clock.AfterFunc(cardProcessingDelay, func() {
		w.authorize(ctx, gen, amount)
	}))
	return nil
}

// authorize asks the processor for approval with mu released. The result
// is dropped when the workflow moved on in the meantime.
func (w *Workflow) authorize(ctx context.Context, gen uint64, amount models.Pence) {
	w.mu.Lock()
	stale := gen != w.gen || w.closed()
	w.mu.Unlock()
	if stale {
		return
	}

	ref, err := w.processor.Authorize(ctx, amount)

	w.mu.Lock()
	defer w.mu.Unlock()
	if gen != w.gen || w.closed() {
		return
	}
	if err != nil {
		w.card = cardState{state: CardIdle, err: err}
		return
	}
	w.card = cardState{state: CardApproved, ref: ref}
	w.schedule(cardApprovedDelay, func() *Outcome {
		return w.complete(w.card.ref, 0)
	})
}
