package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"browntable/internal/apperr"
	"browntable/internal/auth"
	"browntable/internal/identity"
	"browntable/internal/logger"
	"browntable/internal/models"
	"browntable/internal/utils"
)

type Handler struct {
	Service *identity.Service
	Logger  *logger.Logger
}

func NewHandler(service *identity.Service, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

// Routes mounts the public auth endpoints and the authenticated profile
// endpoints.
func (h *Handler) Routes(tm *auth.TokenManager) chi.Router {
	r := chi.NewRouter()
	r.Post("/signup", h.Signup)
	r.Post("/login", h.Login)
	r.Post("/send-otp", h.SendOTP)
	r.Post("/verify-otp", h.VerifyOTP)
	r.Post("/admin-login", h.AdminLogin)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tm, h.Service))
		r.Get("/me", h.Profile)
		r.Put("/profile", h.UpdateProfile)
		r.Post("/search-user", h.SearchUsers)
		r.Get("/notifications", h.Notifications)
	})
	return r
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, apperr.Validation("invalid request body"))
		return
	}
	view, err := h.Service.Signup(r.Context(), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, "Account created", view)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, apperr.Validation("invalid request body"))
		return
	}
	view, err := h.Service.Login(r.Context(), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "Logged in", view)
}

func (h *Handler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req models.SendOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, apperr.Validation("invalid request body"))
		return
	}
	data, err := h.Service.SendOTP(r.Context(), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "OTP sent", data)
}

func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, apperr.Validation("invalid request body"))
		return
	}
	view, err := h.Service.VerifyOTP(r.Context(), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "OTP verified", view)
}

func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req models.AdminLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, apperr.Validation("invalid request body"))
		return
	}
	view, err := h.Service.AdminLogin(r.Context(), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "Logged in", view)
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFrom(r.Context())
	user, err := h.Service.Profile(r.Context(), session.UserID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "Profile", user)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFrom(r.Context())
	var req models.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, apperr.Validation("invalid request body"))
		return
	}
	user, err := h.Service.UpdateProfile(r.Context(), session.UserID, req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "Profile updated", user)
}

func (h *Handler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	var req models.SearchUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, apperr.Validation("invalid request body"))
		return
	}
	users, err := h.Service.SearchUsers(r.Context(), req.Phone)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "Users found", users)
}

func (h *Handler) Notifications(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFrom(r.Context())
	invites, err := h.Service.Notifications(r.Context(), session.UserID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "Notifications", invites)
}
