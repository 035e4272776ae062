package staff

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bakery-pos/internal/logger"
	"bakery-pos/internal/models"
	"bakery-pos/internal/web"
)

const invalidLoginMessage = "Invalid access code or account is inactive."

// Handler serves sign in and staff administration
type Handler struct {
	service *Service
	logger  *logger.Logger
}

func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

// SessionRoutes registers POST /login and POST /logout
func (h *Handler) SessionRoutes(r chi.Router) {
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
}

// AdminRoutes registers the staff endpoints. They expect web.RequireActor.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Get("/staff", h.List)
	r.Post("/staff", h.Create)
	r.Patch("/staff/{id}", h.Update)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := web.Decode(w, r, &req); err != nil {
		web.Fail(w, r, h.logger, "login_failed", err)
		return
	}

	member, err := h.service.Login(r.Context(), &req)
	if errors.Is(err, ErrInvalidLogin) {
		web.WriteError(w, r, http.StatusUnauthorized, invalidLoginMessage)
		return
	}
	if err != nil {
		web.Fail(w, r, h.logger, "login_failed", err)
		return
	}
	web.WriteJSON(w, http.StatusOK, member)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req models.LogoutRequest
	if err := web.Decode(w, r, &req); err != nil {
		web.Fail(w, r, h.logger, "logout_failed", err)
		return
	}
	if err := h.service.Logout(r.Context(), &req); err != nil {
		web.Fail(w, r, h.logger, "logout_failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.List(r.Context())
	if err != nil {
		web.Fail(w, r, h.logger, "staff_list_failed", err)
		return
	}
	web.WriteJSON(w, http.StatusOK, members)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := web.ActorFrom(r.Context())

	var req models.CreateStaffRequest
	if err := web.Decode(w, r, &req); err != nil {
		web.Fail(w, r, h.logger, "staff_create_failed", err)
		return
	}

	member, err := h.service.Create(r.Context(), actor, &req)
	if err != nil {
		web.Fail(w, r, h.logger, "staff_create_failed", err)
		return
	}
	web.WriteJSON(w, http.StatusCreated, member)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, _ := web.ActorFrom(r.Context())

	id, err := web.PathID(chi.URLParam(r, "id"), "staff id")
	if err != nil {
		web.Fail(w, r, h.logger, "staff_update_failed", err)
		return
	}

	var req models.UpdateStaffRequest
	if err := web.Decode(w, r, &req); err != nil {
		web.Fail(w, r, h.logger, "staff_update_failed", err)
		return
	}

	member, err := h.service.Update(r.Context(), actor, id, &req)
	if err != nil {
		web.Fail(w, r, h.logger, "staff_update_failed", err)
		return
	}
	web.WriteJSON(w, http.StatusOK, member)
}
