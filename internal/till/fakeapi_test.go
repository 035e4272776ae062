package till

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"bakery-pos/internal/models"
)

type auditCall struct {
	staffID int64
	action  string
	details string
}

// fakeAPI is an in-memory back office
type fakeAPI struct {
	mu        sync.Mutex
	menu      []models.MenuItem
	staff     map[string]*models.Staff
	createErr error
	orders    []*models.CreateOrderRequest
	audits    []auditCall
	loggedOut []int64
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		menu: []models.MenuItem{croissant, flatWhite, sourdough},
		staff: map[string]*models.Staff{
			"1111": {ID: 7, FullName: "Sam Server", Role: models.RoleStaff, IsActive: true},
		},
	}
}

func (a *fakeAPI) MenuItems(ctx context.Context) ([]models.MenuItem, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.MenuItem(nil), a.menu...), nil
}

func (a *fakeAPI) Login(ctx context.Context, accessCode string) (*models.Staff, error) {
	if s, ok := a.staff[accessCode]; ok {
		return s, nil
	}
	return nil, models.ErrUnauthorized
}

func (a *fakeAPI) Logout(ctx context.Context, staffID int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.loggedOut = append(a.loggedOut, staffID)
	return nil
}

func (a *fakeAPI) CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.createErr != nil {
		return nil, a.createErr
	}
	a.orders = append(a.orders, req)
	return &models.Order{
		ID:           int64(len(a.orders)),
		CustomerName: req.CustomerName,
		OrderType:    req.OrderType,
		StaffID:      req.StaffID,
		PaidAt:       time.Now().UTC(),
	}, nil
}

func (a *fakeAPI) Reconcile(ctx context.Context, req *models.ReconciliationRequest) (*models.Reconciliation, error) {
	expected := decimal.RequireFromString("8.84")
	return &models.Reconciliation{
		Date:         "2026-03-18",
		CashOrders:   1,
		ExpectedCash: expected,
		CountedCash:  *req.CountedCash,
		Discrepancy:  req.CountedCash.Sub(expected),
	}, nil
}

func (a *fakeAPI) AppendAudit(ctx context.Context, staffID int64, action, details string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.audits = append(a.audits, auditCall{staffID, action, details})
}

func (a *fakeAPI) failOrders(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.createErr = err
}

var errBackOffice = errors.New("back office unreachable")
