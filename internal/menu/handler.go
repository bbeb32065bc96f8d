package menu

import (
	"net/http"

	"browntable/internal/utils"
)

// SectionsHandler serves the public menu endpoint.
func (s *Service) SectionsHandler(w http.ResponseWriter, r *http.Request) {
	sections, err := s.Sections(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "Menu", sections)
}
