package api

import (
	"net/http"

	"studio/internal/model"
)

// NextAvailableResponse wraps the forward scan result; Found is false when the horizon was exhausted.
type NextAvailableResponse struct {
	Found     bool             `json:"found"`
	Date      string           `json:"date,omitempty"`
	TimeSlots []model.TimeSlot `json:"time_slots,omitempty"`
}

// handleDaySlots returns every window for a date.
// GET /api/slots?date=YYYY-MM-DD
func (s *HTTPServer) handleDaySlots(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}

	result, err := s.slots.DaySlots(r.Context(), date)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleNextAvailable scans forward from a date (tomorrow by default).
// GET /api/slots/next?from=YYYY-MM-DD&mode=daily|weekend
func (s *HTTPServer) handleNextAvailable(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")

	var (
		next *model.NextAvailable
		err  error
	)
	switch mode := r.URL.Query().Get("mode"); mode {
	case "", "daily":
		next, err = s.slots.NextAvailableDate(r.Context(), from)
	case "weekend":
		next, err = s.slots.NextWeekendSlot(r.Context(), from)
	default:
		writeError(w, http.StatusBadRequest, "mode must be daily or weekend")
		return
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if next == nil {
		writeJSON(w, http.StatusOK, NextAvailableResponse{Found: false})
		return
	}
	writeJSON(w, http.StatusOK, NextAvailableResponse{Found: true, Date: next.Date, TimeSlots: next.TimeSlots})
}
