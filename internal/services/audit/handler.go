package audit

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"bakery-pos/internal/logger"
	"bakery-pos/internal/models"
	"bakery-pos/internal/web"
)

// Handler serves the audit log endpoints
type Handler struct {
	service *Service
	logger  *logger.Logger
}

func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

// Routes registers GET and POST /audit-logs
func (h *Handler) Routes(r chi.Router) {
	r.Get("/audit-logs", h.List)
	r.Post("/audit-logs", h.Create)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.List(r.Context())
	if err != nil {
		web.Fail(w, r, h.logger, "audit_list_failed", err)
		return
	}
	web.WriteJSON(w, http.StatusOK, entries)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAuditRequest
	if err := web.Decode(w, r, &req); err != nil {
		web.Fail(w, r, h.logger, "audit_append_failed", err)
		return
	}

	entry, err := h.service.Append(r.Context(), &req)
	if err != nil {
		web.Fail(w, r, h.logger, "audit_append_failed", err)
		return
	}
	web.WriteJSON(w, http.StatusCreated, entry)
}
