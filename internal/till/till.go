// Package till is the terminal side of the point of sale: the cart, held
// orders, rates and the payment workflow, backed by a small local store and
// the back office API.
package till

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"bakery-pos/internal/logger"
	"bakery-pos/internal/models"
	"bakery-pos/internal/till/store"
)

var (
	ErrNotSignedIn       = errors.New("no staff member is signed in")
	ErrNoOrderType       = errors.New("choose takeaway or eat in first")
	ErrUnknownItem       = errors.New("item is not on the menu")
	ErrNotOrderable      = errors.New("item cannot be ordered on this channel")
	ErrPaymentInProgress = errors.New("a payment is in progress")
	ErrNoPayment         = errors.New("no payment in progress")
)

// WalkIn is used when the cashier does not take a name
const WalkIn = "Walk-in"

// API is the part of the back office the till uses
type API interface {
	MenuSource
	Login(ctx context.Context, accessCode string) (*models.Staff, error)
	Logout(ctx context.Context, staffID int64) error
	CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error)
	Reconcile(ctx context.Context, req *models.ReconciliationRequest) (*models.Reconciliation, error)
	AppendAudit(ctx context.Context, staffID int64, action, details string)
}

// Options tunes a Till. Zero values pick the defaults.
type Options struct {
	UndoWindow time.Duration
	Clock      Clock
	Cards      CardProcessor
}

// pendingPayment is the order being paid for, frozen when payment starts
type pendingPayment struct {
	workflow  *Workflow
	ref       string
	customer  string
	entries   []CartEntry
	orderType models.OrderType
	totals    Totals
}

// Till is one point of sale device
type Till struct {
	Cart    *Cart
	Held    *HeldQueue
	Catalog *Catalog

	api    API
	store  store.Store
	clock  Clock
	cards  CardProcessor
	logger *logger.Logger

	mu      sync.Mutex
	rates   Rates
	user    *models.Staff
	payment *pendingPayment
}

// New restores the till state saved in s
func New(api API, s store.Store, log *logger.Logger, opts Options) (*Till, error) {
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}

	held, err := LoadHeldQueue(s, opts.Clock)
	if err != nil {
		return nil, err
	}
	rates, err := LoadRates(s)
	if err != nil {
		log.Warn("rates_load_failed", "Saved rates unreadable, using defaults", "", map[string]interface{}{
			"error": err.Error(),
		})
	}
	user, err := LoadUser(s)
	if err != nil {
		log.Warn("session_load_failed", "Saved session unreadable, signing out", "", map[string]interface{}{
			"error": err.Error(),
		})
		user = nil
	}

	return &Till{
		Cart:    NewCart(opts.Clock, opts.UndoWindow),
		Held:    held,
		Catalog: NewCatalog(),
		api:     api,
		store:   s,
		clock:   opts.Clock,
		cards:   opts.Cards,
		logger:  log,
		rates:   rates,
		user:    user,
	}, nil
}

// User returns the signed in staff member, or nil
func (t *Till) User() *models.Staff {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.user
}

func (t *Till) requireUser() (*models.Staff, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.user == nil {
		return nil, ErrNotSignedIn
	}
	return t.user, nil
}

// Login signs a staff member in and remembers them on this device
func (t *Till) Login(ctx context.Context, accessCode string) (*models.Staff, error) {
	u, err := t.api.Login(ctx, accessCode)
	if err != nil {
		return nil, err
	}
	if err := SaveUser(t.store, u); err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.user = u
	t.mu.Unlock()

	t.logger.Info("till_login", fmt.Sprintf("%s signed in", u.FullName), logger.RequestIDFromContext(ctx), map[string]interface{}{
		"staff_id": u.ID,
	})
	return u, nil
}

// Logout signs the current staff member out
func (t *Till) Logout(ctx context.Context) error {
	u, err := t.requireUser()
	if err != nil {
		return err
	}
	if err := t.api.Logout(ctx, u.ID); err != nil {
		return err
	}
	if err := ClearUser(t.store); err != nil {
		return err
	}

	t.mu.Lock()
	t.user = nil
	t.mu.Unlock()
	return nil
}

// RefreshMenu reloads the catalog. The cart keeps its own snapshots.
func (t *Till) RefreshMenu(ctx context.Context) error {
	if _, err := t.Catalog.Refresh(ctx, t.api); err != nil {
		return fmt.Errorf("refresh menu: %w", err)
	}
	return nil
}

// AddItem adds one of the catalog item id to the cart
func (t *Till) AddItem(id int64) error {
	item, ok := t.Catalog.Find(id)
	if !ok {
		return fmt.Errorf("item %d: %w", id, ErrUnknownItem)
	}
	if !t.Cart.Add(item) {
		return fmt.Errorf("%s: %w", item.Name, ErrNotOrderable)
	}
	return nil
}

// Rates returns the active VAT and service rates
func (t *Till) Rates() Rates {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rates
}

// UpdateRates saves new rates and audits the change
func (t *Till) UpdateRates(ctx context.Context, r Rates) error {
	u, err := t.requireUser()
	if err != nil {
		return err
	}
	if err := SaveRates(t.store, r); err != nil {
		return err
	}

	t.mu.Lock()
	prev := t.rates
	t.rates = r
	t.mu.Unlock()

	t.api.AppendAudit(ctx, u.ID, models.ActionRatesUpdated, fmt.Sprintf("%s → %s", prev, r))
	return nil
}

// Totals prices the cart with the active rates
func (t *Till) Totals() Totals {
	return t.Cart.Totals(t.Rates())
}

// Hold parks the cart in the held queue
func (t *Till) Hold(customerName string) (*HeldOrder, error) {
	u, err := t.requireUser()
	if err != nil {
		return nil, err
	}
	if t.Payment() != nil {
		return nil, ErrPaymentInProgress
	}
	return t.Held.Hold(t.Cart, strings.TrimSpace(customerName), u.FullName)
}

// Resume brings a held order back into the cart
func (t *Till) Resume(id string, confirmReplace bool) (*HeldOrder, error) {
	if t.Payment() != nil {
		return nil, ErrPaymentInProgress
	}
	return t.Held.Resume(id, t.Cart, confirmReplace)
}

// Payment returns the workflow in progress, or nil
func (t *Till) Payment() *Workflow {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.payment == nil {
		return nil
	}
	return t.payment.workflow
}

// StartPayment freezes the cart and opens a payment workflow for it. done
// receives the outcome, possibly from a timer goroutine.
func (t *Till) StartPayment(customerName string, done OutcomeFunc) (*Workflow, error) {
	if _, err := t.requireUser(); err != nil {
		return nil, err
	}

	entries, orderType := t.Cart.Snapshot()
	if len(entries) == 0 {
		return nil, ErrEmptyCart
	}
	if !orderType.Valid() {
		return nil, ErrNoOrderType
	}

	customerName = strings.TrimSpace(customerName)
	if customerName == "" {
		customerName = WalkIn
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.payment != nil && t.payment.workflow.Stage() != StageCancelled {
		return nil, ErrPaymentInProgress
	}

	totals := ComputeTotals(entries, t.rates, orderType)
	ref := "ORD-" + strings.ToUpper(uuid.NewString()[:8])
	w := NewWorkflow(ref, totals, t.clock, t.cards, done)
	t.payment = &pendingPayment{
		workflow:  w,
		ref:       ref,
		customer:  customerName,
		entries:   entries,
		orderType: orderType,
		totals:    totals,
	}
	return w, nil
}

// CancelPayment abandons the payment in progress. With hold set the order
// goes to the held queue, otherwise it is discarded. Either way the choice
// is audited.
func (t *Till) CancelPayment(ctx context.Context, hold bool) (*HeldOrder, error) {
	u, err := t.requireUser()
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	p := t.payment
	t.mu.Unlock()
	if p == nil {
		return nil, ErrNoPayment
	}
	if err := p.workflow.Cancel(); err != nil {
		return nil, err
	}

	details := fmt.Sprintf("%s · %s", p.customer, p.totals.Total)
	var held *HeldOrder
	if hold {
		t.Cart.Replace(p.entries, p.orderType)
		if held, err = t.Held.Hold(t.Cart, p.customer, u.FullName); err != nil {
			return nil, err
		}
		t.api.AppendAudit(ctx, u.ID, models.ActionOrderHeld, details)
	} else {
		t.Cart.Clear()
		t.api.AppendAudit(ctx, u.ID, models.ActionOrderCancelled, details)
	}

	t.mu.Lock()
	t.payment = nil
	t.mu.Unlock()
	return held, nil
}

// Submit stores the paid order. The cart is cleared only once the back
// office has accepted it, so a failed submission can be retried.
func (t *Till) Submit(ctx context.Context, out Outcome) (*models.Order, error) {
	u, err := t.requireUser()
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	p := t.payment
	t.mu.Unlock()
	if p == nil {
		return nil, ErrNoPayment
	}

	req := buildOrderRequest(p, u.ID, out)
	order, err := t.api.CreateOrder(ctx, req)
	if err != nil {
		t.logger.Error("order_submit_failed", "Order submission failed", logger.RequestIDFromContext(ctx), err, map[string]interface{}{
			"order_ref": p.ref,
			"total":     out.Totals.Total.String(),
		})
		return nil, err
	}

	t.Cart.Clear()
	t.mu.Lock()
	t.payment = nil
	t.mu.Unlock()

	t.logger.Info("order_submitted", fmt.Sprintf("Order %d paid by %s", order.ID, out.Method), logger.RequestIDFromContext(ctx), map[string]interface{}{
		"order_id":  order.ID,
		"order_ref": p.ref,
		"total":     out.Totals.Total.String(),
	})
	return order, nil
}

func buildOrderRequest(p *pendingPayment, staffID int64, out Outcome) *models.CreateOrderRequest {
	total := out.Totals.Total.Decimal()
	subtotal := out.Totals.Subtotal.Decimal()
	vat := out.Totals.VAT.Decimal()
	service := out.Totals.Service.Decimal()

	req := &models.CreateOrderRequest{
		CustomerName:  p.customer,
		OrderType:     p.orderType,
		StaffID:       staffID,
		PaymentMethod: out.Method,
		Total:         &total,
		Subtotal:      &subtotal,
		VATAmount:     &vat,
		ServiceAmount: &service,
		Items:         make([]models.CreateOrderItem, 0, len(p.entries)),
	}
	for _, e := range p.entries {
		req.Items = append(req.Items, models.CreateOrderItem{ItemID: e.Item.ID, Quantity: e.Quantity})
	}
	return req
}

// Reconcile submits the end of day cash count
func (t *Till) Reconcile(ctx context.Context, counted models.Pence) (*models.Reconciliation, error) {
	u, err := t.requireUser()
	if err != nil {
		return nil, err
	}
	c := counted.Decimal()
	return t.api.Reconcile(ctx, &models.ReconciliationRequest{StaffID: u.ID, CountedCash: &c})
}
