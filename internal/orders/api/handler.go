package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"browntable/internal/apperr"
	"browntable/internal/auth"
	"browntable/internal/logger"
	"browntable/internal/models"
	"browntable/internal/orders"
	"browntable/internal/utils"
)

type Handler struct {
	Service *orders.Service
	Logger  *logger.Logger
}

func NewHandler(service *orders.Service, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

// Routes mounts the member-facing order endpoints; all of them require a
// user session. The leading path segment is a group id except on the
// status route, where it is an order id, so the parameter is named "id".
func (h *Handler) Routes(tm *auth.TokenManager, loader auth.SessionLoader) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.Middleware(tm, loader))
	r.Post("/{id}", h.EnsureOrder)
	r.Get("/{id}", h.GroupOrder)
	r.Get("/{id}/view", h.GroupOrderView)
	r.Post("/{id}/update-order", h.ReplaceItems)
	r.Put("/{id}/status", h.SetStatus)
	r.Delete("/{id}/item/{itemID}", h.RemoveItem)
	return r
}

func (h *Handler) EnsureOrder(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFrom(r.Context())
	order, err := h.Service.EnsureCurrentOrder(r.Context(), session, chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "Order", order)
}

func (h *Handler) GroupOrder(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFrom(r.Context())
	order, err := h.Service.CurrentOrder(r.Context(), session, chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "Order", order)
}

func (h *Handler) GroupOrderView(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFrom(r.Context())
	view, err := h.Service.GroupOrderView(r.Context(), session, chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "Group order", view)
}

func (h *Handler) ReplaceItems(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFrom(r.Context())
	var req models.UpdateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, apperr.Validation("invalid request body"))
		return
	}
	order, err := h.Service.ReplaceMyItems(r.Context(), session, chi.URLParam(r, "id"), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "Order updated", order)
}

func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req models.OrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, apperr.Validation("invalid request body"))
		return
	}
	order, err := h.Service.SetStatus(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "Order updated", order)
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFrom(r.Context())
	order, err := h.Service.RemoveItem(r.Context(), session.UserID,
		chi.URLParam(r, "id"), chi.URLParam(r, "itemID"), false)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "Item removed", order)
}
