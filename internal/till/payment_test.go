package till

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"bakery-pos/internal/models"
)

type outcomes struct {
	mu  sync.Mutex
	got []Outcome
}

func (o *outcomes) record(out Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.got = append(o.got, out)
}

func (o *outcomes) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.got)
}

var due = Totals{Subtotal: 680, VAT: 136, Total: 816}

func newTestWorkflow(processor CardProcessor) (*Workflow, *fakeClock, *outcomes) {
	clock := newFakeClock()
	outs := &outcomes{}
	return NewWorkflow("ORD-1", due, clock, processor, outs.record), clock, outs
}

func TestCardFlow(t *testing.T) {
	w, clock, outs := newTestWorkflow(nil)

	if err := w.Tap(); !errors.Is(err, ErrWrongMethod) {
		t.Fatalf("tap before choosing card = %v", err)
	}
	if err := w.SelectMethod(models.PaymentCard); err != nil {
		t.Fatal(err)
	}
	if w.View().Card != CardIdle {
		t.Fatalf("card state = %q", w.View().Card)
	}

	if err := w.Tap(); err != nil {
		t.Fatal(err)
	}
	if err := w.Tap(); !errors.Is(err, ErrCardBusy) {
		t.Fatalf("double tap = %v", err)
	}

	steps := []struct {
		advance time.Duration
		card    CardState
		stage   Stage
	}{
		{1999 * time.Millisecond, CardProcessing, StageMethodActive},
		{time.Millisecond, CardApproved, StageMethodActive},
		{1199 * time.Millisecond, CardApproved, StageMethodActive},
		{time.Millisecond, CardApproved, StageCompleted},
	}
	for i, s := range steps {
		clock.Advance(s.advance)
		v := w.View()
		if v.Card != s.card || v.Stage != s.stage {
			t.Fatalf("step %d: card %q stage %q, want %q %q", i, v.Card, v.Stage, s.card, s.stage)
		}
	}

	if outs.count() != 1 {
		t.Fatalf("outcomes = %d", outs.count())
	}
	out := outs.got[0]
	if out.Method != models.PaymentCard || out.Totals != due || !strings.HasPrefix(out.Reference, "AUTH-") {
		t.Fatalf("outcome = %+v", out)
	}
	if err := w.SelectMethod(models.PaymentCash); !errors.Is(err, ErrPaymentClosed) {
		t.Fatalf("switch after completion = %v", err)
	}
}

type decliningProcessor struct{}

func (decliningProcessor) Authorize(ctx context.Context, amount models.Pence) (string, error) {
	return "", errors.New("card declined")
}

func TestCardProcessorFailureReturnsToIdle(t *testing.T) {
	w, clock, outs := newTestWorkflow(decliningProcessor{})
	w.SelectMethod(models.PaymentCard)
	w.Tap()
	clock.Advance(5 * time.Second)

	v := w.View()
	if v.Card != CardIdle || v.CardErr == nil || v.Stage != StageMethodActive || outs.count() != 0 {
		t.Fatalf("view = %+v outcomes = %d", v, outs.count())
	}
	if err := w.Tap(); err != nil {
		t.Fatalf("retry tap = %v", err)
	}
}

// blockingProcessor holds Authorize until released or cancelled
type blockingProcessor struct {
	started chan struct{}
	release chan struct{}
	ctxErr  chan error
}

func newBlockingProcessor() *blockingProcessor {
	return &blockingProcessor{
		started: make(chan struct{}),
		release: make(chan struct{}),
		ctxErr:  make(chan error, 1),
	}
}

func (p *blockingProcessor) Authorize(ctx context.Context, amount models.Pence) (string, error) {
	close(p.started)
	select {
	case <-p.release:
		return "AUTH-SLOW", nil
	case <-ctx.Done():
		p.ctxErr <- ctx.Err()
		return "", ctx.Err()
	}
}

func TestCancelDuringCardAuthorisation(t *testing.T) {
	processor := newBlockingProcessor()
	w, clock, outs := newTestWorkflow(processor)
	w.SelectMethod(models.PaymentCard)
	w.Tap()

	advanced := make(chan struct{})
	go func() {
		defer close(advanced)
		clock.Advance(cardProcessingDelay)
	}()
	<-processor.started

	returned := make(chan error, 1)
	go func() {
		if v := w.View(); v.Card != CardProcessing {
			returned <- fmt.Errorf("card = %q while authorising", v.Card)
			return
		}
		returned <- w.Cancel()
	}()
	select {
	case err := <-returned:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(time.Second):
		close(processor.release)
		t.Fatal("workflow blocked while the processor authorises")
	}

	select {
	case err := <-processor.ctxErr:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("processor ctx err = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("cancel did not reach the processor")
	}
	<-advanced

	clock.Advance(10 * time.Second)
	if w.Stage() != StageCancelled || outs.count() != 0 {
		t.Fatalf("stage = %q outcomes = %d", w.Stage(), outs.count())
	}
}

func TestSwitchDuringCardAuthorisation(t *testing.T) {
	processor := newBlockingProcessor()
	w, clock, outs := newTestWorkflow(processor)
	w.SelectMethod(models.PaymentCard)
	w.Tap()

	advanced := make(chan struct{})
	go func() {
		defer close(advanced)
		clock.Advance(cardProcessingDelay)
	}()
	<-processor.started

	if err := w.SelectMethod(models.PaymentCash); err != nil {
		t.Fatal(err)
	}
	<-advanced
	clock.Advance(10 * time.Second)

	v := w.View()
	if v.Method != models.PaymentCash || v.Card != "" || v.Stage != StageMethodActive || outs.count() != 0 {
		t.Fatalf("view = %+v outcomes = %d", v, outs.count())
	}
}

func TestSwitchingMethodStopsTimers(t *testing.T) {
	w, clock, outs := newTestWorkflow(nil)
	w.SelectMethod(models.PaymentCard)
	w.Tap()
	pending := clock.lastTimer()

	if err := w.SelectMethod(models.PaymentCash); err != nil {
		t.Fatal(err)
	}
	if !pending.stopped {
		t.Fatal("card timer still running")
	}

	// a fire that raced the switch must not touch the new method
	pending.f()
	clock.Advance(10 * time.Second)

	v := w.View()
	if v.Method != models.PaymentCash || v.Card != "" || outs.count() != 0 {
		t.Fatalf("view = %+v outcomes = %d", v, outs.count())
	}
}

func TestCancelDisposesEverything(t *testing.T) {
	w, clock, outs := newTestWorkflow(nil)
	w.SelectMethod(models.PaymentQR)
	qrTimer := clock.lastTimer()

	if err := w.Cancel(); err != nil {
		t.Fatal(err)
	}
	if !qrTimer.stopped || w.Stage() != StageCancelled {
		t.Fatal("cancel left the QR timer running")
	}
	clock.Advance(10 * time.Minute)

	if err := w.ConfirmReceived(); !errors.Is(err, ErrPaymentClosed) {
		t.Fatalf("confirm after cancel = %v", err)
	}
	if err := w.Cancel(); !errors.Is(err, ErrPaymentClosed) {
		t.Fatalf("second cancel = %v", err)
	}
	if outs.count() != 0 {
		t.Fatal("cancelled payment delivered an outcome")
	}
}

func TestKeypad(t *testing.T) {
	tests := []struct {
		keys  string
		input string
		pence models.Pence
	}{
		{"5", "5", 500},
		{"05", "5", 500},
		{"0", "0", 0},
		{".5", "0.5", 50},
		{"12.345", "12.34", 1234},
		{"1234567", "123456", 12345600},
		{"12.3<", "12.", 1200},
		{"..", "0.", 0},
		{"1.2.3", "1.23", 123},
		{"10.10", "10.10", 1010},
		{"<<", "", 0},
		{"7x", "7", 700},
	}
	for _, tt := range tests {
		t.Run(tt.keys, func(t *testing.T) {
			var k Keypad
			for _, r := range tt.keys {
				if r == '<' {
					r = Backspace
				}
				k.Press(r)
			}
			if k.String() != tt.input || k.Pence() != tt.pence {
				t.Fatalf("keypad = %q (%d), want %q (%d)", k.String(), k.Pence(), tt.input, tt.pence)
			}
		})
	}
}

func TestCashFlow(t *testing.T) {
	w, _, outs := newTestWorkflow(nil)
	w.SelectMethod(models.PaymentCash)

	for _, r := range "5" {
		w.PressKey(r)
	}
	v := w.View()
	if v.CanTender || v.Shortfall != 316 || v.Change != 0 {
		t.Fatalf("view = %+v", v)
	}
	if err := w.Tender(); !errors.Is(err, ErrInsufficientCash) {
		t.Fatalf("tender short = %v", err)
	}

	if err := w.ApplyPreset(CashPresets[0]); err != nil {
		t.Fatal(err)
	}
	if v := w.View(); !v.CanTender || v.Change != 0 || v.CashInput != "8.16" {
		t.Fatalf("exact preset view = %+v", v)
	}

	w.ApplyPreset(CashPresets[1])
	if v := w.View(); v.Tendered != 1316 || v.Change != 500 {
		t.Fatalf("+£5 view = %+v", v)
	}

	if err := w.Tender(); err != nil {
		t.Fatal(err)
	}
	if outs.count() != 1 {
		t.Fatalf("outcomes = %d", outs.count())
	}
	out := outs.got[0]
	if out.Method != models.PaymentCash || out.Tendered != 1316 || out.Change != 500 {
		t.Fatalf("outcome = %+v", out)
	}
}

func TestCashExactChangeIsZero(t *testing.T) {
	clock := newFakeClock()
	w := NewWorkflow("ORD-2", Totals{Subtotal: 1010, Total: 1010}, clock, nil, nil)
	w.SelectMethod(models.PaymentCash)
	for _, r := range "10.10" {
		w.PressKey(r)
	}

	v := w.View()
	if !v.CanTender || v.Change != 0 || v.Shortfall != 0 || v.Change.String() != "£0.00" {
		t.Fatalf("view = %+v", v)
	}
}

func TestQRFlow(t *testing.T) {
	w, clock, outs := newTestWorkflow(nil)
	w.SelectMethod(models.PaymentQR)

	first := w.View()
	if !strings.HasPrefix(first.QRRef, "QR-") || first.QRRemaining != 5*time.Minute || first.QRExpired {
		t.Fatalf("view = %+v", first)
	}

	raw, err := w.QRPayload()
	if err != nil {
		t.Fatal(err)
	}
	var payload QRPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Amount != "8.16" || payload.Currency != "GBP" || payload.OrderID != "ORD-1" || payload.Ref != first.QRRef || payload.Merchant != Merchant {
		t.Fatalf("payload = %+v", payload)
	}

	clock.Advance(4 * time.Minute)
	if v := w.View(); v.QRRemaining != time.Minute || v.QRExpired {
		t.Fatalf("after 4m = %+v", v)
	}
	clock.Advance(time.Minute)
	if v := w.View(); !v.QRExpired || v.QRRemaining != 0 {
		t.Fatalf("after 5m = %+v", v)
	}
	if err := w.ConfirmReceived(); !errors.Is(err, ErrQRExpired) {
		t.Fatalf("confirm expired = %v", err)
	}

	if err := w.RegenerateQR(); err != nil {
		t.Fatal(err)
	}
	second := w.View()
	if second.QRRef == first.QRRef || second.QRExpired || second.QRRemaining != 300*time.Second {
		t.Fatalf("regenerated = %+v", second)
	}

	if err := w.ConfirmReceived(); err != nil {
		t.Fatal(err)
	}
	if outs.count() != 1 || outs.got[0].Reference != second.QRRef || outs.got[0].Method != models.PaymentQR {
		t.Fatalf("outcomes = %+v", outs.got)
	}
}

func TestQRRegenerateResetsExpiryTimer(t *testing.T) {
	w, clock, _ := newTestWorkflow(nil)
	w.SelectMethod(models.PaymentQR)

	clock.Advance(2 * time.Minute)
	w.RegenerateQR()
	clock.Advance(3 * time.Minute)

	if v := w.View(); v.QRExpired || v.QRRemaining != 2*time.Minute {
		t.Fatalf("old expiry timer still applied: %+v", v)
	}
}
