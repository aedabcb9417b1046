package api

import (
	"net/http"

	"studio/internal/model"
)

// GET /api/settings
func (s *HTTPServer) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.settings.Get(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// PUT /api/settings
func (s *HTTPServer) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var settings model.BusinessSettings
	if err := decodeJSON(r, &settings); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.settings.Save(r.Context(), &settings); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &settings)
}
