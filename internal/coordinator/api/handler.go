package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"browntable/internal/apperr"
	"browntable/internal/auth"
	"browntable/internal/coordinator"
	"browntable/internal/logger"
	"browntable/internal/models"
	"browntable/internal/orders"
	"browntable/internal/tables"
	"browntable/internal/utils"
	"browntable/internal/weather"
)

// Handler is the staff surface: reservation workflows, the table registry,
// order status and the dashboard.
type Handler struct {
	Coordinator *coordinator.Service
	Tables      *tables.Service
	Orders      *orders.Service
	Weather     *weather.Service
	Logger      *logger.Logger
}

func NewHandler(coord *coordinator.Service, tableSvc *tables.Service, orderSvc *orders.Service, weatherSvc *weather.Service, log *logger.Logger) *Handler {
	return &Handler{
		Coordinator: coord,
		Tables:      tableSvc,
		Orders:      orderSvc,
		Weather:     weatherSvc,
		Logger:      log,
	}
}

// Routes mounts the admin endpoints behind the admin token middleware.
func (h *Handler) Routes(tm *auth.TokenManager) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.AdminMiddleware(tm))

	r.Get("/dashboard", h.Dashboard)
	r.Get("/test", h.Test)
	r.Get("/upcoming-orders", h.UpcomingOrders)

	r.Post("/reservation/{groupID}/confirm", h.ConfirmReservation)
	r.Post("/reservation/{groupID}/cancel", h.CancelReservation)

	r.Get("/tables", h.ListTables)
	r.Get("/table/{number}", h.GetTable)
	r.Put("/table/{number}/status", h.SetTableStatus)

	r.Post("/order/{orderID}/clear", h.ClearOrder)
	r.Put("/order/{orderID}/status", h.SetOrderStatus)
	r.Delete("/order/group/{groupID}/item/{itemID}", h.RemoveOrderItem)

	r.Put("/weather", h.UpdateWeather)
	return r
}

// Test is a liveness probe for the admin frontend.
func (h *Handler) Test(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, "Admin API is up", nil)
}

// super_admin bypasses per-permission checks.
func (h *Handler) allowed(w http.ResponseWriter, r *http.Request, perm string) bool {
	session := auth.AdminSessionFrom(r.Context())
	if session.Role == models.AdminRoleSuperAdmin || session.HasPermission(perm) {
		return true
	}
	utils.WriteError(w, apperr.Forbidden("missing permission: "+perm))
	return false
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	view, err := h.Coordinator.Dashboard(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "Dashboard", view)
}

func (h *Handler) UpcomingOrders(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Coordinator.UpcomingOrders(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "Upcoming orders", rows)
}

func (h *Handler) ConfirmReservation(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, "manage_reservations") {
		return
	}
	var body struct {
		Table int `json:"table"`
	}
	// an empty body means "use the table already on the group"
	_ = json.NewDecoder(r.Body).Decode(&body)

	group, err := h.Coordinator.Confirm(r.Context(), chi.URLParam(r, "groupID"), body.Table)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "Reservation confirmed", group)
}

func (h *Handler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, "manage_reservations") {
		return
	}
	group, err := h.Coordinator.Cancel(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "Reservation cancelled", group)
}

func (h *Handler) ClearOrder(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, "manage_orders") {
		return
	}
	group, err := h.Coordinator.ClearByOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "Visit closed", group)
}

func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	views, err := h.Tables.ListTables(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "Tables", views)
}

func (h *Handler) GetTable(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil {
		utils.WriteError(w, apperr.Validation("invalid table number"))
		return
	}
	view, err := h.Tables.TableByNumber(r.Context(), number)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "Table", view)
}

func (h *Handler) SetTableStatus(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, "manage_tables") {
		return
	}
	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil {
		utils.WriteError(w, apperr.Validation("invalid table number"))
		return
	}
	var req models.TableStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, apperr.Validation("invalid request body"))
		return
	}
	view, err := h.Tables.SetStatus(r.Context(), number, req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "Table updated", view)
}

func (h *Handler) SetOrderStatus(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, "manage_orders") {
		return
	}
	var req models.OrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, apperr.Validation("invalid request body"))
		return
	}
	order, err := h.Orders.SetStatus(r.Context(), chi.URLParam(r, "orderID"), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "Order updated", order)
}

func (h *Handler) RemoveOrderItem(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, "manage_orders") {
		return
	}
	session := auth.AdminSessionFrom(r.Context())
	order, err := h.Orders.RemoveItem(r.Context(), session.AdminID,
		chi.URLParam(r, "groupID"), chi.URLParam(r, "itemID"), true)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "Item removed", order)
}

func (h *Handler) UpdateWeather(w http.ResponseWriter, r *http.Request) {
	var req models.WeatherUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, apperr.Validation("invalid request body"))
		return
	}
	view, err := h.Weather.Update(r.Context(), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "Weather updated", view)
}
