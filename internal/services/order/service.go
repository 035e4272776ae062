package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bakery-pos/internal/config"
	"bakery-pos/internal/logger"
	"bakery-pos/internal/metrics"
	"bakery-pos/internal/models"
	"bakery-pos/internal/validation"
)

// Store persists orders
type Store interface {
	Create(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error)
	Get(ctx context.Context, id int64) (*models.Order, error)
	List(ctx context.Context, since *time.Time) ([]models.Order, error)
	CashTakingsSince(ctx context.Context, since time.Time) (decimal.Decimal, int, error)
}

// Catalog resolves the items and add-ons referenced by an order
type Catalog interface {
	GetMany(ctx context.Context, ids []int64) (map[int64]models.MenuItem, error)
	AddOns(ctx context.Context, ids []int64) (map[int64]models.AddOn, error)
}

// StaffLookup loads the staff member placing an order
type StaffLookup interface {
	Get(ctx context.Context, id int64) (*models.Staff, error)
}

// Auditor records completed payments and reconciliations
type Auditor interface {
	Record(ctx context.Context, staffID int64, action, details string)
}

// EventPublisher announces committed orders
type EventPublisher interface {
	PublishOrderPaid(ctx context.Context, msg *models.OrderPaidMessage) error
}

// tolerance is the largest accepted rounding difference between submitted
// and recomputed money fields
var tolerance = decimal.New(1, -2)

// Service stores paid orders and reports on them
type Service struct {
	store       Store
	catalog     Catalog
	staff       StaffLookup
	audit       Auditor
	events      EventPublisher
	logger      *logger.Logger
	totalsCheck string
	now         func() time.Time
}

// NewService creates an order service. events may be nil when no broker is
// configured.
func NewService(store Store, catalog Catalog, staff StaffLookup, audit Auditor, events EventPublisher, cfg config.OrdersConfig, log *logger.Logger) *Service {
	return &Service{
		store:       store,
		catalog:     catalog,
		staff:       staff,
		audit:       audit,
		events:      events,
		logger:      log,
		totalsCheck: cfg.TotalsCheck,
		now:         time.Now,
	}
}

// Create validates and stores a paid order. Audit, event publication and
// metrics run after the commit and never fail the request.
func (s *Service) Create(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error) {
	requestID := logger.RequestIDFromContext(ctx)

	if err := validation.Struct(req); err != nil {
		metrics.OrdersRejected.WithLabelValues("validation").Inc()
		return nil, err
	}

	items, addOns, err := s.resolveReferences(ctx, req)
	if err != nil {
		return nil, err
	}

	if mismatches := checkTotals(req, items, addOns); len(mismatches) > 0 {
		switch s.totalsCheck {
		case config.TotalsCheckReject:
			metrics.OrdersRejected.WithLabelValues("totals").Inc()
			ve := validation.New()
			for _, m := range mismatches {
				ve.Add(m.field, m.message)
			}
			return nil, ve
		case config.TotalsCheckWarn:
			metrics.TotalsMismatches.Inc()
			fields := map[string]interface{}{"staff_id": req.StaffID}
			for _, m := range mismatches {
				fields[m.field] = m.message
			}
			s.logger.Warn("order_totals_mismatch", "Submitted totals disagree with catalog prices", requestID, fields)
		}
	}

	order, err := s.store.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.logger.Info("order_created", fmt.Sprintf("Order %d stored", order.ID), requestID, map[string]interface{}{
		"order_id":       order.ID,
		"order_type":     order.OrderType,
		"payment_method": req.PaymentMethod,
		"total":          req.Total.StringFixed(2),
		"items":          summarizeItems(order.Items),
	})
	s.afterCommit(ctx, order)
	return order, nil
}

func (s *Service) afterCommit(ctx context.Context, order *models.Order) {
	total := decimal.Zero
	method := ""
	if order.Payment != nil {
		total = order.Payment.Total
		method = string(order.Payment.Method)
	}

	s.audit.Record(ctx, order.StaffID, models.ActionPaymentCompleted,
		fmt.Sprintf("Order %d · %s · %s · %s", order.ID, order.CustomerName, models.PenceFromDecimal(total), method))

	totalFloat, _ := total.Float64()
	metrics.RecordOrder(string(order.OrderType), method, totalFloat)

	if s.events == nil {
		return
	}
	if err := s.events.PublishOrderPaid(ctx, models.NewOrderPaidMessage(order)); err != nil {
		s.logger.Warn("order_event_failed", "Order stored but paid event was not published", logger.RequestIDFromContext(ctx), map[string]interface{}{
			"order_id": order.ID,
			"error":    err.Error(),
		})
	}
}

// resolveReferences checks staff, items and add-ons before any write. Every
// problem is reported against the offending field.
func (s *Service) resolveReferences(ctx context.Context, req *models.CreateOrderRequest) (map[int64]models.MenuItem, map[int64]models.AddOn, error) {
	ve := validation.New()

	member, err := s.staff.Get(ctx, req.StaffID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		ve.Add("staff_id", "The selected staff id is invalid.")
	case err != nil:
		return nil, nil, fmt.Errorf("load staff: %w", err)
	case !member.IsActive:
		ve.Add("staff_id", "The selected staff member is inactive.")
	}
	if !ve.Empty() {
		metrics.OrdersRejected.WithLabelValues("staff").Inc()
	}

	itemIDs := make([]int64, 0, len(req.Items))
	var addOnIDs []int64
	for _, line := range req.Items {
		itemIDs = append(itemIDs, line.ItemID)
		addOnIDs = append(addOnIDs, line.AddOnIDs...)
	}

	items, err := s.catalog.GetMany(ctx, uniqueIDs(itemIDs))
	if err != nil {
		return nil, nil, fmt.Errorf("load menu items: %w", err)
	}
	addOns, err := s.catalog.AddOns(ctx, uniqueIDs(addOnIDs))
	if err != nil {
		return nil, nil, fmt.Errorf("load add-ons: %w", err)
	}

	itemProblems := false
	for i, line := range req.Items {
		item, ok := items[line.ItemID]
		switch {
		case !ok:
			ve.Add(fmt.Sprintf("items.%d.item_id", i), "The selected item is invalid.")
			itemProblems = true
		case item.IsArchived:
			ve.Add(fmt.Sprintf("items.%d.item_id", i), fmt.Sprintf("%s is no longer on the menu.", item.Name))
			itemProblems = true
		}
		for j, id := range line.AddOnIDs {
			if _, ok := addOns[id]; !ok {
				ve.Add(fmt.Sprintf("items.%d.add_on_ids.%d", i, j), "The selected add-on is invalid.")
				itemProblems = true
			}
		}
	}
	if itemProblems {
		metrics.OrdersRejected.WithLabelValues("item").Inc()
	}

	if err := ve.Err(); err != nil {
		return nil, nil, err
	}
	return items, addOns, nil
}

type mismatch struct {
	field   string
	message string
}

// checkTotals compares the submitted breakdown with itself and with the
// catalog. Add-on prices count towards each unit.
func checkTotals(req *models.CreateOrderRequest, items map[int64]models.MenuItem, addOns map[int64]models.AddOn) []mismatch {
	var out []mismatch

	parts := req.Subtotal.Add(*req.VATAmount).Add(*req.ServiceAmount)
	if req.Total.Sub(parts).Abs().GreaterThan(tolerance) {
		out = append(out, mismatch{"total", fmt.Sprintf(
			"The total %s does not equal subtotal + vat + service (%s).", req.Total.StringFixed(2), parts.StringFixed(2))})
	}

	expected := decimal.Zero
	for _, line := range req.Items {
		unit := items[line.ItemID].Price
		for _, id := range uniqueIDs(line.AddOnIDs) {
			unit = unit.Add(addOns[id].Price)
		}
		expected = expected.Add(unit.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	if req.Subtotal.Sub(expected).Abs().GreaterThan(tolerance) {
		out = append(out, mismatch{"subtotal", fmt.Sprintf(
			"The subtotal %s does not match catalog prices (%s).", req.Subtotal.StringFixed(2), expected.StringFixed(2))})
	}

	if req.OrderType == models.OrderTypeTakeaway && req.ServiceAmount.GreaterThan(tolerance) {
		out = append(out, mismatch{"service_amount", "Takeaway orders carry no service charge."})
	}
	return out
}

// Get returns one order
func (s *Service) Get(ctx context.Context, id int64) (*models.Order, error) {
	return s.store.Get(ctx, id)
}

// List returns the orders of period, newest first
func (s *Service) List(ctx context.Context, period models.Period) ([]models.Order, error) {
	var since *time.Time
	if t, ok := period.Since(s.now()); ok {
		since = &t
	}
	return s.store.List(ctx, since)
}

// Reconcile compares today's cash takings with the counted drawer
func (s *Service) Reconcile(ctx context.Context, req *models.ReconciliationRequest) (*models.Reconciliation, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	member, err := s.staff.Get(ctx, req.StaffID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, validation.Field("staff_id", "The selected staff id is invalid.")
	}
	if err != nil {
		return nil, fmt.Errorf("load staff: %w", err)
	}
	if !member.IsActive {
		return nil, validation.Field("staff_id", "The selected staff member is inactive.")
	}

	now := s.now()
	startOfDay, _ := models.PeriodToday.Since(now)
	expected, count, err := s.store.CashTakingsSince(ctx, startOfDay)
	if err != nil {
		return nil, err
	}

	counted := req.CountedCash.Round(2)
	rec := &models.Reconciliation{
		Date:         now.Format(models.DateLayout),
		CashOrders:   count,
		ExpectedCash: expected.Round(2),
		CountedCash:  counted,
		Discrepancy:  counted.Sub(expected).Round(2),
	}

	s.logger.Info("cash_reconciled", "End of day cash reconciliation", logger.RequestIDFromContext(ctx), map[string]interface{}{
		"staff_id":    member.ID,
		"expected":    rec.ExpectedCash.StringFixed(2),
		"counted":     rec.CountedCash.StringFixed(2),
		"discrepancy": rec.Discrepancy.StringFixed(2),
	})
	s.audit.Record(ctx, member.ID, models.ActionReconciliation, reconciliationDetails(rec))
	return rec, nil
}

func reconciliationDetails(rec *models.Reconciliation) string {
	diff := models.PenceFromDecimal(rec.Discrepancy)
	sign := ""
	if diff > 0 {
		sign = "+"
	}
	return fmt.Sprintf("Expected %s - Actual %s - Discrepancy %s%s",
		models.PenceFromDecimal(rec.ExpectedCash), models.PenceFromDecimal(rec.CountedCash), sign, diff)
}

// summarizeItems renders lines as "2× Croissant, 1× Latte"
func summarizeItems(items []models.OrderedItem) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf("%d× %s", it.Quantity, it.Name))
	}
	return strings.Join(parts, ", ")
}
