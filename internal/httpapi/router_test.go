package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"bakery-pos/internal/config"
	"bakery-pos/internal/logger"
	"bakery-pos/internal/models"
	"bakery-pos/internal/web"
)

type fakeDB struct{ err error }

func (f fakeDB) Ping(ctx context.Context) error { return f.err }

type staffLookup map[int64]*models.Staff

func (s staffLookup) Get(ctx context.Context, id int64) (*models.Staff, error) {
	if m, ok := s[id]; ok {
		return m, nil
	}
	return nil, models.ErrNotFound
}

func newTestRouter(db Pinger, loginLimit int) http.Handler {
	cfg := config.Default().Server
	cfg.LoginRateLimit = loginLimit

	ok := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }
	routes := Routes{
		Public: []func(chi.Router){
			func(r chi.Router) { r.Get("/menu-items", ok); r.Post("/orders", ok) },
		},
		Sessions: func(r chi.Router) { r.Post("/login", ok) },
		Admin: []func(chi.Router){
			func(r chi.Router) {
				r.Get("/staff", func(w http.ResponseWriter, r *http.Request) {
					actor, _ := web.ActorFrom(r.Context())
					w.Write([]byte(actor.FullName))
				})
			},
		},
	}
	staff := staffLookup{1: {ID: 1, FullName: "Olive Owner", Role: models.RoleOwner, IsActive: true}}
	return NewRouter(cfg, db, staff, routes, logger.Nop())
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name string
		db   Pinger
		want int
	}{
		{"database up", fakeDB{}, http.StatusOK},
		{"database down", fakeDB{err: errors.New("connection refused")}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newTestRouter(tt.db, 0).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestMetricsExposed(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(fakeDB{}, 0).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAdminRoutesRequireActor(t *testing.T) {
	router := newTestRouter(fakeDB{}, 0)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/staff", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("without header status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/staff", nil)
	req.Header.Set(web.ActorHeader, "1")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "Olive Owner" {
		t.Fatalf("with header status = %d body = %q", rec.Code, rec.Body.String())
	}
}

func TestMutationsRequireJSON(t *testing.T) {
	router := newTestRouter(fakeDB{}, 0)

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader("customer=alice"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("form post status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("json post status = %d", rec.Code)
	}
}

func TestLoginRateLimited(t *testing.T) {
	router := newTestRouter(fakeDB{}, 2)

	var codes []int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}

	// other routes are not limited
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/menu-items", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("menu status = %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/orders", nil)
	req.Header.Set("Origin", "http://till.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	newTestRouter(fakeDB{}, 0).ServeHTTP(rec, req)

	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatalf("no CORS headers: %v", rec.Header())
	}
}
