package weather

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"browntable/internal/apperr"
	"browntable/internal/auth"
	"browntable/internal/models"
	"browntable/internal/utils"
)

// Routes mounts the weather endpoints. Reads are public; updates are staff
// actions behind the admin token.
func (s *Service) Routes(tm *auth.TokenManager) chi.Router {
	r := chi.NewRouter()
	r.Get("/current", s.CurrentHandler)
	r.Get("/history", s.HistoryHandler)

	r.Group(func(r chi.Router) {
		r.Use(auth.AdminMiddleware(tm))
		r.Post("/update", s.UpdateHandler)
	})
	return r
}

func (s *Service) CurrentHandler(w http.ResponseWriter, r *http.Request) {
	view, err := s.Current(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "Weather", view)
}

func (s *Service) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	rows, err := s.History(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "Weather history", rows)
}

func (s *Service) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	var req models.WeatherUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, apperr.Validation("invalid request body"))
		return
	}
	view, err := s.Update(r.Context(), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "Weather updated", view)
}
