package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"bakery-pos/internal/logger"
	"bakery-pos/internal/models"
	"bakery-pos/internal/validation"
	"bakery-pos/internal/web"
)

type memStore struct {
	items  map[int64]*models.MenuItem
	nextID int64
}

func newMemStore() *memStore {
	m := &memStore{items: map[int64]*models.MenuItem{}, nextID: 1}
	m.add("Croissant", "2.50", "Pastries", true, false)
	m.add("Sourdough Loaf", "4.20", "Bread", true, false)
	m.add("Old Bun", "1.00", "Bread", false, true)
	return m
}

func (m *memStore) add(name, price, category string, published, archived bool) *models.MenuItem {
	item := &models.MenuItem{
		ID:           m.nextID,
		Name:         name,
		Price:        decimal.RequireFromString(price),
		CategoryName: category,
		IsPublished:  published,
		IsArchived:   archived,
	}
	for _, t := range models.OrderTypes {
		item.Channels = append(item.Channels, models.Channel{OrderTypeID: t.ID(), IsAvailable: published})
	}
	m.items[item.ID] = item
	m.nextID++
	return item
}

func clone(item *models.MenuItem) *models.MenuItem {
	cp := *item
	cp.Channels = append([]models.Channel(nil), item.Channels...)
	return &cp
}

func (m *memStore) List(ctx context.Context) ([]models.MenuItem, error) {
	out := []models.MenuItem{}
	for _, item := range m.items {
		out = append(out, *clone(item))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) Get(ctx context.Context, id int64) (*models.MenuItem, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("menu item %d: %w", id, models.ErrNotFound)
	}
	return clone(item), nil
}

func (m *memStore) Categories(ctx context.Context) ([]string, error) {
	seen := map[string]bool{}
	out := []string{}
	for _, item := range m.items {
		if !seen[item.CategoryName] {
			seen[item.CategoryName] = true
			out = append(out, item.CategoryName)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memStore) Create(ctx context.Context, req *models.CreateMenuItemRequest) (*models.MenuItem, error) {
	published := req.IsPublished == nil || *req.IsPublished
	item := m.add(req.ItemName, req.UnitCost.String(), req.CategoryName, published, false)
	for i := range item.Channels {
		item.Channels[i].IsAvailable = true
	}
	return clone(item), nil
}

func (m *memStore) Update(ctx context.Context, id int64, req *models.UpdateMenuItemRequest) (*models.MenuItem, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("menu item %d: %w", id, models.ErrNotFound)
	}
	if req.UnitCost != nil {
		item.Price = *req.UnitCost
	}
	if req.IsArchived != nil {
		item.IsArchived = *req.IsArchived
	}
	if req.IsPublished != nil {
		item.IsPublished = *req.IsPublished
	}
	if item.IsArchived {
		item.IsPublished = false
	}
	if req.IsPublished != nil || req.IsArchived != nil {
		for i := range item.Channels {
			item.Channels[i].IsAvailable = item.IsPublished
		}
	}
	return clone(item), nil
}

func (m *memStore) UpdateChannel(ctx context.Context, itemID int64, orderType models.OrderType, available bool) (*models.ChannelStatus, error) {
	item, ok := m.items[itemID]
	if !ok {
		return nil, models.ErrNotFound
	}
	for i := range item.Channels {
		if item.Channels[i].OrderTypeID == orderType.ID() {
			item.Channels[i].IsAvailable = available
			return &models.ChannelStatus{ItemID: itemID, OrderTypeID: orderType.ID(), IsAvailable: available}, nil
		}
	}
	return nil, models.ErrNotFound
}

type auditCall struct {
	action  string
	details string
}

type recordingAuditor struct {
	calls []auditCall
}

func (a *recordingAuditor) Record(ctx context.Context, staffID int64, action, details string) {
	a.calls = append(a.calls, auditCall{action, details})
}

var (
	manager = &models.Staff{ID: 1, FullName: "Mia Manager", Role: models.RoleManager, IsActive: true}
	toggler = &models.Staff{ID: 2, FullName: "Tia Toggler", Role: models.RoleStaff, IsActive: true, CanToggleChannel: true}
	server  = &models.Staff{ID: 3, FullName: "Sam Server", Role: models.RoleStaff, IsActive: true}
)

func newTestService() (*Service, *memStore, *recordingAuditor) {
	store := newMemStore()
	audit := &recordingAuditor{}
	return NewService(store, audit, logger.Nop()), store, audit
}

func boolPtr(b bool) *bool { return &b }

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestUpdateAuditsEachChange(t *testing.T) {
	tests := []struct {
		name        string
		id          int64
		req         models.UpdateMenuItemRequest
		wantActions []string
		wantDetails string
	}{
		{
			name:        "price change",
			id:          1,
			req:         models.UpdateMenuItemRequest{UnitCost: dec("2.60")},
			wantActions: []string{models.ActionPriceUpdated},
			wantDetails: "Croissant: £2.50 → £2.60",
		},
		{
			name:        "same price is not audited",
			id:          1,
			req:         models.UpdateMenuItemRequest{UnitCost: dec("2.5")},
			wantActions: nil,
		},
		{
			name:        "unpublish",
			id:          2,
			req:         models.UpdateMenuItemRequest{IsPublished: boolPtr(false)},
			wantActions: []string{models.ActionItemUnpublished},
			wantDetails: "Sourdough Loaf (Bread)",
		},
		{
			name:        "archive unpublishes once",
			id:          1,
			req:         models.UpdateMenuItemRequest{IsArchived: boolPtr(true)},
			wantActions: []string{models.ActionItemArchived},
			wantDetails: "Croissant",
		},
		{
			name:        "restore",
			id:          3,
			req:         models.UpdateMenuItemRequest{IsArchived: boolPtr(false)},
			wantActions: []string{models.ActionItemRestored},
			wantDetails: "Old Bun",
		},
		{
			name:        "restore and publish",
			id:          3,
			req:         models.UpdateMenuItemRequest{IsArchived: boolPtr(false), IsPublished: boolPtr(true)},
			wantActions: []string{models.ActionItemRestored, models.ActionItemPublished},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, audit := newTestService()

			if _, err := svc.Update(context.Background(), manager, tt.id, &tt.req); err != nil {
				t.Fatalf("Update: %v", err)
			}
			var got []string
			for _, c := range audit.calls {
				got = append(got, c.action)
			}
			if strings.Join(got, ",") != strings.Join(tt.wantActions, ",") {
				t.Fatalf("actions = %v, want %v", got, tt.wantActions)
			}
			if tt.wantDetails != "" && audit.calls[0].details != tt.wantDetails {
				t.Errorf("details = %q, want %q", audit.calls[0].details, tt.wantDetails)
			}
		})
	}
}

func TestArchiveForcesUnpublishAndChannels(t *testing.T) {
	svc, _, _ := newTestService()

	item, err := svc.Update(context.Background(), manager, 1, &models.UpdateMenuItemRequest{IsArchived: boolPtr(true)})
	if err != nil {
		t.Fatal(err)
	}
	if item.IsPublished || !item.IsArchived {
		t.Fatalf("item = %+v", item)
	}
	for _, c := range item.Channels {
		if c.IsAvailable {
			t.Errorf("channel %d still available", c.OrderTypeID)
		}
	}
	if item.Orderable() {
		t.Error("archived item orderable")
	}
}

func TestUpdateRejections(t *testing.T) {
	svc, _, _ := newTestService()

	tests := []struct {
		name  string
		actor *models.Staff
		id    int64
		req   models.UpdateMenuItemRequest
		check func(error) bool
	}{
		{"staff forbidden", server, 1, models.UpdateMenuItemRequest{UnitCost: dec("1")},
			func(err error) bool { return errors.Is(err, models.ErrForbidden) }},
		{"empty body", manager, 1, models.UpdateMenuItemRequest{},
			func(err error) bool { _, ok := validation.As(err); return ok }},
		{"negative price", manager, 1, models.UpdateMenuItemRequest{UnitCost: dec("-0.01")},
			func(err error) bool { _, ok := validation.As(err); return ok }},
		{"publish archived", manager, 3, models.UpdateMenuItemRequest{IsPublished: boolPtr(true)},
			func(err error) bool { _, ok := validation.As(err); return ok }},
		{"unknown item", manager, 99, models.UpdateMenuItemRequest{UnitCost: dec("1")},
			func(err error) bool { return errors.Is(err, models.ErrNotFound) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Update(context.Background(), tt.actor, tt.id, &tt.req)
			if !tt.check(err) {
				t.Fatalf("unexpected err: %v", err)
			}
		})
	}
}

func TestCreate(t *testing.T) {
	svc, _, audit := newTestService()

	item, err := svc.Create(context.Background(), manager, &models.CreateMenuItemRequest{
		ItemName:     "  Cinnamon Roll ",
		UnitCost:     dec("3.10"),
		CategoryName: "Pastries",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if item.Name != "Cinnamon Roll" || !item.IsPublished || len(item.Channels) != 2 {
		t.Fatalf("item = %+v", item)
	}
	if len(audit.calls) != 1 || audit.calls[0].details != "Cinnamon Roll · £3.10" {
		t.Fatalf("audits = %+v", audit.calls)
	}

	_, err = svc.Create(context.Background(), manager, &models.CreateMenuItemRequest{ItemName: "No Price", CategoryName: "Bread"})
	ve, ok := validation.As(err)
	if !ok || len(ve.Fields["unit_cost"]) == 0 {
		t.Fatalf("err = %v, want unit_cost error", err)
	}
}

func TestSetChannel(t *testing.T) {
	tests := []struct {
		name        string
		actor       *models.Staff
		orderTypeID int
		wantErr     error
	}{
		{"manager", manager, 2, nil},
		{"staff with permission", toggler, 1, nil},
		{"staff without permission", server, 1, models.ErrForbidden},
		{"unknown channel", manager, 7, models.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, audit := newTestService()

			status, err := svc.SetChannel(context.Background(), tt.actor, 1, tt.orderTypeID, &models.UpdateChannelRequest{IsAvailable: boolPtr(false)})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("SetChannel: %v", err)
			}
			if status.IsAvailable || status.OrderTypeID != tt.orderTypeID {
				t.Fatalf("status = %+v", status)
			}
			orderType, _ := models.OrderTypeFromID(tt.orderTypeID)
			if store.items[1].AvailableFor(orderType) {
				t.Error("channel still available")
			}
			if len(audit.calls) != 1 || audit.calls[0].action != models.ActionChannelToggled {
				t.Fatalf("audits = %+v", audit.calls)
			}
		})
	}
}

func newTestRouter(svc *Service, staff web.StaffLookup) http.Handler {
	r := chi.NewRouter()
	h := NewHandler(svc, logger.Nop())
	h.Routes(r)
	r.Group(func(r chi.Router) {
		r.Use(web.RequireActor(staff))
		h.AdminRoutes(r)
	})
	return r
}

type staffLookup map[int64]*models.Staff

func (s staffLookup) Get(ctx context.Context, id int64) (*models.Staff, error) {
	if m, ok := s[id]; ok {
		return m, nil
	}
	return nil, models.ErrNotFound
}

func TestHandlerMenuItemsJSON(t *testing.T) {
	svc, _, _ := newTestService()
	router := newTestRouter(svc, staffLookup{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/menu-items", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var raw []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatal(err)
	}
	if len(raw) != 3 {
		t.Fatalf("items = %d, want 3 including archived", len(raw))
	}
	if price, ok := raw[0]["price"].(float64); !ok || price != 2.5 {
		t.Errorf("price = %#v, want number 2.5", raw[0]["price"])
	}
	if _, ok := raw[0]["channels"].([]interface{}); !ok {
		t.Errorf("channels missing: %v", raw[0])
	}
}

func TestHandlerChannelToggle(t *testing.T) {
	svc, _, _ := newTestService()
	router := newTestRouter(svc, staffLookup{1: manager, 3: server})

	tests := []struct {
		name       string
		path       string
		actor      string
		body       string
		wantStatus int
	}{
		{"ok", "/menu-channel-statuses/1/2", "1", `{"is_available":false}`, http.StatusOK},
		{"forbidden", "/menu-channel-statuses/1/2", "3", `{"is_available":false}`, http.StatusForbidden},
		{"no actor", "/menu-channel-statuses/1/2", "", `{"is_available":false}`, http.StatusUnauthorized},
		{"bad item id", "/menu-channel-statuses/abc/2", "1", `{"is_available":false}`, http.StatusBadRequest},
		{"missing flag", "/menu-channel-statuses/1/2", "1", `{}`, http.StatusUnprocessableEntity},
		{"unknown item", "/menu-channel-statuses/99/1", "1", `{"is_available":true}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPatch, tt.path, strings.NewReader(tt.body))
			if tt.actor != "" {
				req.Header.Set(web.ActorHeader, tt.actor)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}
