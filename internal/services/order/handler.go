package order

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"bakery-pos/internal/logger"
	"bakery-pos/internal/models"
	"bakery-pos/internal/web"
)

// Handler serves the order and reconciliation endpoints
type Handler struct {
	service *Service
	logger  *logger.Logger
}

func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

// Routes registers the order endpoints
func (h *Handler) Routes(r chi.Router) {
	r.Post("/orders", h.Create)
	r.Get("/orders", h.List)
	r.Get("/orders/{id}", h.Get)
	r.Post("/reconciliations", h.Reconcile)
}

// Create handles POST /orders
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateOrderRequest
	if err := web.Decode(w, r, &req); err != nil {
		web.Fail(w, r, h.logger, "order_create_failed", err)
		return
	}

	order, err := h.service.Create(r.Context(), &req)
	if err != nil {
		web.Fail(w, r, h.logger, "order_create_failed", err)
		return
	}
	web.WriteJSON(w, http.StatusCreated, order)
}

// List handles GET /orders?period=today|week|month|year|all
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	period := models.ParsePeriod(r.URL.Query().Get("period"))
	orders, err := h.service.List(r.Context(), period)
	if err != nil {
		web.Fail(w, r, h.logger, "order_list_failed", err)
		return
	}
	web.WriteJSON(w, http.StatusOK, orders)
}

// Get handles GET /orders/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := web.PathID(chi.URLParam(r, "id"), "order id")
	if err != nil {
		web.Fail(w, r, h.logger, "order_get_failed", err)
		return
	}

	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		web.Fail(w, r, h.logger, "order_get_failed", err)
		return
	}
	web.WriteJSON(w, http.StatusOK, order)
}

// Reconcile handles POST /reconciliations
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	var req models.ReconciliationRequest
	if err := web.Decode(w, r, &req); err != nil {
		web.Fail(w, r, h.logger, "reconciliation_failed", err)
		return
	}

	rec, err := h.service.Reconcile(r.Context(), &req)
	if err != nil {
		web.Fail(w, r, h.logger, "reconciliation_failed", err)
		return
	}
	web.WriteJSON(w, http.StatusCreated, rec)
}
