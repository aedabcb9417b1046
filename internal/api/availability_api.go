package api

import (
	"fmt"
	"net/http"

	"studio/internal/model"
)

// OverrideRequest is the body for PUT /api/artists/{id}/overrides/{date}.
type OverrideRequest struct {
	Type      model.OverrideType `json:"type"`
	TimeSlots model.CoarseSlots  `json:"time_slots"`
	Note      string             `json:"note,omitempty"`
}

// GET /api/artists
func (s *HTTPServer) handleListArtists(w http.ResponseWriter, r *http.Request) {
	artists, err := s.availability.ListActiveArtists(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if artists == nil {
		artists = []model.Artist{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"artists": artists})
}

// handleGetWeekly returns the artist's weekly schedule, empty when never saved.
// GET /api/artists/{id}/weekly
func (s *HTTPServer) handleGetWeekly(w http.ResponseWriter, r *http.Request) {
	artistID := r.PathValue("id")
	if _, err := s.availability.GetArtist(r.Context(), artistID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	sched, err := s.availability.GetWeeklySchedule(r.Context(), artistID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if sched == nil {
		sched = model.NewWeeklySchedule(artistID)
	}
	writeJSON(w, http.StatusOK, sched)
}

// handlePutWeekly replaces the artist's weekly schedule.
// PUT /api/artists/{id}/weekly
func (s *HTTPServer) handlePutWeekly(w http.ResponseWriter, r *http.Request) {
	artistID := r.PathValue("id")
	if _, err := s.availability.GetArtist(r.Context(), artistID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	var body struct {
		Days map[string]model.WeeklyAvailabilityTemplate `json:"days"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	sched := model.NewWeeklySchedule(artistID)
	for name, tpl := range body.Days {
		day, err := model.ParseWeekday(name)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		sched.SetTemplate(day, tpl)
	}
	if err := sched.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.availability.SaveWeeklySchedule(r.Context(), sched); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.logger.Info().Str("artist_id", artistID).Int("days", len(sched.Days)).Msg("weekly schedule saved")
	writeJSON(w, http.StatusOK, sched)
}

// GET /api/artists/{id}/overrides?from=YYYY-MM-DD&to=YYYY-MM-DD
func (s *HTTPServer) handleListOverrides(w http.ResponseWriter, r *http.Request) {
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	if from == "" {
		from = "0000-01-01"
	}
	if to == "" {
		to = "9999-12-31"
	}
	if !validDate(from) || !validDate(to) {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	overrides, err := s.availability.ListDateOverrides(r.Context(), r.PathValue("id"), from, to)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if overrides == nil {
		overrides = []model.DateOverride{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"overrides": overrides})
}

// handlePutOverride creates or replaces the override for one date.
// PUT /api/artists/{id}/overrides/{date}
func (s *HTTPServer) handlePutOverride(w http.ResponseWriter, r *http.Request) {
	artistID := r.PathValue("id")
	if _, err := s.availability.GetArtist(r.Context(), artistID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	var req OverrideRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	o := &model.DateOverride{
		ArtistID:  artistID,
		Date:      r.PathValue("date"),
		Type:      req.Type,
		TimeSlots: req.TimeSlots,
		Note:      req.Note,
	}
	if err := o.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if o.Type == model.OverrideAvailable && !o.TimeSlots.Any() {
		writeError(w, http.StatusBadRequest, "available override needs at least one of morning, afternoon, evening")
		return
	}

	if err := s.availability.SaveDateOverride(r.Context(), o); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	saved, err := s.availability.GetDateOverride(r.Context(), artistID, o.Date)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if saved == nil {
		s.writeServiceError(w, r, fmt.Errorf("override %s/%s missing after save", artistID, o.Date))
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// DELETE /api/artists/{id}/overrides/{date}
func (s *HTTPServer) handleDeleteOverride(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")
	if !validDate(date) {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}
	if err := s.availability.DeleteDateOverride(r.Context(), r.PathValue("id"), date); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
