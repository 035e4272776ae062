package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"bakery-pos/internal/logger"
	"bakery-pos/internal/models"
	"bakery-pos/internal/web"
)

// Handler serves the menu endpoints
type Handler struct {
	service *Service
	logger  *logger.Logger
}

func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

// Routes registers the read-only catalog endpoints
func (h *Handler) Routes(r chi.Router) {
	r.Get("/menu-items", h.List)
	r.Get("/categories", h.Categories)
}

// AdminRoutes registers menu edits. They expect web.RequireActor.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Post("/menu-items", h.Create)
	r.Patch("/menu-items/{id}", h.Update)
	r.Patch("/menu-channel-statuses/{itemId}/{orderTypeId}", h.SetChannel)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		web.Fail(w, r, h.logger, "menu_list_failed", err)
		return
	}
	web.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	names, err := h.service.Categories(r.Context())
	if err != nil {
		web.Fail(w, r, h.logger, "category_list_failed", err)
		return
	}
	web.WriteJSON(w, http.StatusOK, names)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := web.ActorFrom(r.Context())

	var req models.CreateMenuItemRequest
	if err := web.Decode(w, r, &req); err != nil {
		web.Fail(w, r, h.logger, "menu_item_create_failed", err)
		return
	}

	item, err := h.service.Create(r.Context(), actor, &req)
	if err != nil {
		web.Fail(w, r, h.logger, "menu_item_create_failed", err)
		return
	}
	web.WriteJSON(w, http.StatusCreated, item)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, _ := web.ActorFrom(r.Context())

	id, err := web.PathID(chi.URLParam(r, "id"), "item id")
	if err != nil {
		web.Fail(w, r, h.logger, "menu_item_update_failed", err)
		return
	}

	var req models.UpdateMenuItemRequest
	if err := web.Decode(w, r, &req); err != nil {
		web.Fail(w, r, h.logger, "menu_item_update_failed", err)
		return
	}

	item, err := h.service.Update(r.Context(), actor, id, &req)
	if err != nil {
		web.Fail(w, r, h.logger, "menu_item_update_failed", err)
		return
	}
	web.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) SetChannel(w http.ResponseWriter, r *http.Request) {
	actor, _ := web.ActorFrom(r.Context())

	itemID, err := web.PathID(chi.URLParam(r, "itemId"), "item id")
	if err != nil {
		web.Fail(w, r, h.logger, "channel_update_failed", err)
		return
	}
	orderTypeID, err := web.PathID(chi.URLParam(r, "orderTypeId"), "order type id")
	if err != nil {
		web.Fail(w, r, h.logger, "channel_update_failed", err)
		return
	}

	var req models.UpdateChannelRequest
	if err := web.Decode(w, r, &req); err != nil {
		web.Fail(w, r, h.logger, "channel_update_failed", err)
		return
	}

	status, err := h.service.SetChannel(r.Context(), actor, itemID, int(orderTypeID), &req)
	if err != nil {
		web.Fail(w, r, h.logger, "channel_update_failed", err)
		return
	}
	web.WriteJSON(w, http.StatusOK, status)
}
