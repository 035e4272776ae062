package waste

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"bakery-pos/internal/logger"
	"bakery-pos/internal/models"
	"bakery-pos/internal/web"
)

// Handler serves the waste endpoints
type Handler struct {
	service *Service
	logger  *logger.Logger
}

func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

// Routes registers GET and POST /waste
func (h *Handler) Routes(r chi.Router) {
	r.Get("/waste", h.List)
	r.Post("/waste", h.Create)
}

// AdminRoutes registers DELETE /waste/{id}. It expects web.RequireActor.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Delete("/waste/{id}", h.Delete)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	period := models.ParsePeriod(r.URL.Query().Get("period"))
	entries, err := h.service.List(r.Context(), period)
	if err != nil {
		web.Fail(w, r, h.logger, "waste_list_failed", err)
		return
	}
	web.WriteJSON(w, http.StatusOK, entries)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateWasteRequest
	if err := web.Decode(w, r, &req); err != nil {
		web.Fail(w, r, h.logger, "waste_create_failed", err)
		return
	}

	entry, err := h.service.Record(r.Context(), &req)
	if err != nil {
		web.Fail(w, r, h.logger, "waste_create_failed", err)
		return
	}
	web.WriteJSON(w, http.StatusCreated, entry)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, _ := web.ActorFrom(r.Context())

	id, err := web.PathID(chi.URLParam(r, "id"), "waste id")
	if err != nil {
		web.Fail(w, r, h.logger, "waste_delete_failed", err)
		return
	}

	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		web.Fail(w, r, h.logger, "waste_delete_failed", err)
		return
	}
	web.WriteJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
