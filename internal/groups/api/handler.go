package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"browntable/internal/apperr"
	"browntable/internal/auth"
	"browntable/internal/groups"
	"browntable/internal/logger"
	"browntable/internal/models"
	"browntable/internal/utils"
)

// OrderViews supplies the consolidated group-order view served under the
// group surface.
type OrderViews interface {
	GroupOrderView(ctx context.Context, session *models.Session, groupID string) (*models.GroupOrderView, error)
}

// Notifier lists a user's pending invites for the invite surface.
type Notifier interface {
	Notifications(ctx context.Context, userID string) ([]models.PendingInvite, error)
}

type Handler struct {
	Service *groups.Service
	Orders  OrderViews
	Logger  *logger.Logger
}

func NewHandler(service *groups.Service, orderViews OrderViews, log *logger.Logger) *Handler {
	return &Handler{Service: service, Orders: orderViews, Logger: log}
}

// Routes mounts the group registry; every endpoint requires a user session.
func (h *Handler) Routes(tm *auth.TokenManager, loader auth.SessionLoader) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.Middleware(tm, loader))
	r.Post("/create-group", h.Create)
	r.Get("/my-groups", h.MyGroups)
	r.Get("/{groupID}", h.Get)
	r.Put("/{groupID}/update", h.Update)
	r.Delete("/{groupID}", h.Delete)
	r.Get("/{groupID}/group-order", h.GroupOrder)
	r.Get("/{groupID}/invite-link", h.InviteLink)
	r.Get("/{groupID}/invite-qr", h.InviteQR)
	return r
}

// InviteRoutes mounts the invitation surface. Code previews and QR codes
// are public; the code itself is the credential.
func (h *Handler) InviteRoutes(tm *auth.TokenManager, loader auth.SessionLoader, notifier Notifier) chi.Router {
	r := chi.NewRouter()
	r.Get("/group/{inviteCode}", h.Preview)
	r.Get("/group/{inviteCode}/qr", h.QRByCode)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tm, loader))
		r.Post("/invite-member", h.Invite)
		r.Post("/invite-user", h.Invite)
		r.Post("/join", h.Join)
		r.Post("/accept/{groupID}", h.AcceptInvite)
		r.Post("/reject/{groupID}", h.RejectInvite)
		r.Get("/notifications", func(w http.ResponseWriter, r *http.Request) {
			session := auth.SessionFrom(r.Context())
			invites, err := notifier.Notifications(r.Context(), session.UserID)
			if err != nil {
				utils.WriteError(w, err)
				return
			}
			utils.WriteJSON(w, http.StatusOK, "Notifications", invites)
		})
	})
	return r
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFrom(r.Context())
	var req models.CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, apperr.Validation("invalid request body"))
		return
	}
	group, err := h.Service.CreateGroup(r.Context(), session, req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, "Group created", group)
}

func (h *Handler) MyGroups(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFrom(r.Context())
	summaries, err := h.Service.MyGroups(r.Context(), session)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "Groups", summaries)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFrom(r.Context())
	group, err := h.Service.GroupByID(r.Context(), session, chi.URLParam(r, "groupID"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "Group", group)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFrom(r.Context())
	var req models.UpdateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, apperr.Validation("invalid request body"))
		return
	}
	group, err := h.Service.UpdateGroup(r.Context(), session, chi.URLParam(r, "groupID"), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "Group updated", group)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFrom(r.Context())
	if err := h.Service.DeleteGroup(r.Context(), session, chi.URLParam(r, "groupID")); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "Group deleted", nil)
}

func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFrom(r.Context())
	var req models.JoinGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, apperr.Validation("invalid request body"))
		return
	}
	group, err := h.Service.JoinByInviteCode(r.Context(), session, req.InviteCode)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "Joined group", group)
}

func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFrom(r.Context())
	var req models.InviteUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, apperr.Validation("invalid request body"))
		return
	}
	invite, err := h.Service.InviteByPhone(r.Context(), session, req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, "Invite sent", invite)
}

func (h *Handler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFrom(r.Context())
	group, err := h.Service.AcceptInvite(r.Context(), session, chi.URLParam(r, "groupID"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "Invite accepted", group)
}

func (h *Handler) RejectInvite(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFrom(r.Context())
	if err := h.Service.RejectInvite(r.Context(), session, chi.URLParam(r, "groupID")); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "Invite rejected", nil)
}

func (h *Handler) GroupOrder(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFrom(r.Context())
	view, err := h.Orders.GroupOrderView(r.Context(), session, chi.URLParam(r, "groupID"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "Group order", view)
}

func (h *Handler) QRByCode(w http.ResponseWriter, r *http.Request) {
	png, err := h.Service.InviteQRByCode(r.Context(), chi.URLParam(r, "inviteCode"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	preview, err := h.Service.Preview(r.Context(), chi.URLParam(r, "inviteCode"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "Group preview", preview)
}

func (h *Handler) InviteLink(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFrom(r.Context())
	link, err := h.Service.InviteLink(r.Context(), session, chi.URLParam(r, "groupID"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "Invite link", map[string]string{"link": link})
}

func (h *Handler) InviteQR(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFrom(r.Context())
	png, err := h.Service.InviteQR(r.Context(), session, chi.URLParam(r, "groupID"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
