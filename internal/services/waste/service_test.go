package waste

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"bakery-pos/internal/logger"
	"bakery-pos/internal/models"
	"bakery-pos/internal/validation"
	"bakery-pos/internal/web"
)

type memStore struct {
	entries map[int64]*models.WasteEntry
	nextID  int64
	since   *time.Time
}

func newMemStore() *memStore {
	return &memStore{entries: map[int64]*models.WasteEntry{}, nextID: 1}
}

func (m *memStore) List(ctx context.Context, since *time.Time) ([]models.WasteEntry, error) {
	m.since = since
	out := []models.WasteEntry{}
	for id := m.nextID - 1; id > 0; id-- {
		if e, ok := m.entries[id]; ok {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *memStore) Get(ctx context.Context, id int64) (*models.WasteEntry, error) {
	e, ok := m.entries[id]
	if !ok {
		return nil, fmt.Errorf("waste entry %d: %w", id, models.ErrNotFound)
	}
	cp := *e
	return &cp, nil
}

func (m *memStore) Create(ctx context.Context, req *models.CreateWasteRequest) (*models.WasteEntry, error) {
	e := &models.WasteEntry{
		ID:           m.nextID,
		StaffID:      req.StaffID,
		ItemID:       req.ItemID,
		ItemName:     req.ItemName,
		CategoryName: req.CategoryName,
		Quantity:     req.Quantity,
		UnitCost:     *req.UnitCost,
		RecordedAt:   time.Date(2026, 3, 18, 16, 0, 0, 0, time.UTC),
	}
	m.entries[e.ID] = e
	m.nextID++
	cp := *e
	return &cp, nil
}

func (m *memStore) Delete(ctx context.Context, id int64) error {
	if _, ok := m.entries[id]; !ok {
		return models.ErrNotFound
	}
	delete(m.entries, id)
	return nil
}

type staffLookup map[int64]*models.Staff

func (s staffLookup) Get(ctx context.Context, id int64) (*models.Staff, error) {
	if m, ok := s[id]; ok {
		return m, nil
	}
	return nil, fmt.Errorf("staff %d: %w", id, models.ErrNotFound)
}

type itemLookup map[int64]*models.MenuItem

func (l itemLookup) Get(ctx context.Context, id int64) (*models.MenuItem, error) {
	if m, ok := l[id]; ok {
		return m, nil
	}
	return nil, models.ErrNotFound
}

type recordingAuditor struct {
	actions []string
	details []string
}

func (a *recordingAuditor) Record(ctx context.Context, staffID int64, action, details string) {
	a.actions = append(a.actions, action)
	a.details = append(a.details, details)
}

var team = staffLookup{
	1: {ID: 1, FullName: "Mia Manager", Role: models.RoleManager, IsActive: true},
	2: {ID: 2, FullName: "Wes Waster", Role: models.RoleStaff, IsActive: true, CanWaste: true},
	3: {ID: 3, FullName: "Sam Server", Role: models.RoleStaff, IsActive: true},
	4: {ID: 4, FullName: "Ina Active", Role: models.RoleStaff, CanWaste: true},
}

func newTestService() (*Service, *memStore, *recordingAuditor) {
	store := newMemStore()
	audit := &recordingAuditor{}
	items := itemLookup{1: {ID: 1, Name: "Croissant"}}
	svc := NewService(store, team, items, audit, logger.Nop())
	svc.now = func() time.Time { return time.Date(2026, 3, 18, 17, 0, 0, 0, time.UTC) }
	return svc, store, audit
}

func int64Ptr(v int64) *int64 { return &v }

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func validRequest() *models.CreateWasteRequest {
	return &models.CreateWasteRequest{
		StaffID:      2,
		ItemID:       int64Ptr(1),
		ItemName:     "Croissant",
		CategoryName: "Pastries",
		Quantity:     3,
		UnitCost:     dec("2.50"),
	}
}

func TestRecord(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(r *models.CreateWasteRequest)
		wantErr   error
		wantField string
	}{
		{"with permission", func(r *models.CreateWasteRequest) {}, nil, ""},
		{"manager", func(r *models.CreateWasteRequest) { r.StaffID = 1 }, nil, ""},
		{"free text item", func(r *models.CreateWasteRequest) { r.ItemID = nil; r.ItemName = "Day-old scones" }, nil, ""},
		{"no permission", func(r *models.CreateWasteRequest) { r.StaffID = 3 }, models.ErrForbidden, ""},
		{"inactive", func(r *models.CreateWasteRequest) { r.StaffID = 4 }, nil, "staff_id"},
		{"unknown staff", func(r *models.CreateWasteRequest) { r.StaffID = 9 }, nil, "staff_id"},
		{"unknown item", func(r *models.CreateWasteRequest) { r.ItemID = int64Ptr(8) }, nil, "item_id"},
		{"zero quantity", func(r *models.CreateWasteRequest) { r.Quantity = 0 }, nil, "quantity"},
		{"blank name", func(r *models.CreateWasteRequest) { r.ItemName = "   " }, nil, "item_name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, audit := newTestService()
			req := validRequest()
			tt.mutate(req)

			entry, err := svc.Record(context.Background(), req)
			switch {
			case tt.wantField != "":
				ve, ok := validation.As(err)
				if !ok || len(ve.Fields[tt.wantField]) == 0 {
					t.Fatalf("err = %v, want %s field error", err, tt.wantField)
				}
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
			default:
				if err != nil {
					t.Fatalf("Record: %v", err)
				}
				if entry.ID == 0 || len(audit.actions) != 1 || audit.actions[0] != models.ActionWasteRecorded {
					t.Fatalf("entry = %+v audits = %v", entry, audit.actions)
				}
				return
			}
			if len(store.entries) != 0 || len(audit.actions) != 0 {
				t.Fatal("rejected entry had side effects")
			}
		})
	}
}

func TestRecordAuditDetails(t *testing.T) {
	svc, _, audit := newTestService()

	if _, err := svc.Record(context.Background(), validRequest()); err != nil {
		t.Fatal(err)
	}
	if audit.details[0] != "Croissant × 3 · £7.50" {
		t.Fatalf("details = %q", audit.details[0])
	}
}

func TestDelete(t *testing.T) {
	svc, store, audit := newTestService()
	if _, err := svc.Record(context.Background(), validRequest()); err != nil {
		t.Fatal(err)
	}
	audit.actions = nil

	if err := svc.Delete(context.Background(), team[3], 1); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	if err := svc.Delete(context.Background(), team[1], 99); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(context.Background(), team[1], 1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(store.entries) != 0 {
		t.Fatal("entry not removed")
	}
	if len(audit.actions) != 1 || audit.actions[0] != models.ActionWasteDeleted {
		t.Fatalf("audits = %v", audit.actions)
	}
}

func newTestRouter(svc *Service) http.Handler {
	r := chi.NewRouter()
	h := NewHandler(svc, logger.Nop())
	h.Routes(r)
	r.Group(func(r chi.Router) {
		r.Use(web.RequireActor(team))
		h.AdminRoutes(r)
	})
	return r
}

func TestHandlerRoundTrip(t *testing.T) {
	svc, store, _ := newTestService()
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	body := `{"staff_id":2,"item_id":1,"item_name":"Croissant","category_name":"Pastries","quantity":3,"unit_cost":2.5}`
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/waste", strings.NewReader(body)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST status = %d (%s)", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/waste?period=week", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d", rec.Code)
	}
	if store.since == nil || !store.since.Equal(time.Date(2026, 3, 11, 17, 0, 0, 0, time.UTC)) {
		t.Fatalf("since = %v", store.since)
	}

	req := httptest.NewRequest(http.MethodDelete, "/waste/1", nil)
	req.Header.Set(web.ActorHeader, "2")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("DELETE status = %d (%s)", rec.Code, rec.Body.String())
	}
	var resp map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || !resp["deleted"] {
		t.Fatalf("body = %s", rec.Body.String())
	}
}
