package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"studio/internal/export"
	"studio/internal/model"
)

// CreateBookingRequest is the body for POST /api/bookings.
type CreateBookingRequest struct {
	ClientName       string  `json:"client_name"`
	ClientEmail      string  `json:"client_email,omitempty"`
	ClientPhone      string  `json:"client_phone,omitempty"`
	ArtistID         string  `json:"artist_id"`
	ServiceName      string  `json:"service_name"`
	Date             string  `json:"date"`
	Time             string  `json:"time"`
	Status           string  `json:"status,omitempty"`
	Price            float64 `json:"price"`
	DepositPaid      bool    `json:"deposit_paid"`
	GHLContactID     string  `json:"ghl_contact_id,omitempty"`
	GHLAppointmentID string  `json:"ghl_appointment_id,omitempty"`
}

// GET /api/bookings?date=YYYY-MM-DD or ?from=YYYY-MM-DD&to=YYYY-MM-DD
func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date, from, to := q.Get("date"), q.Get("from"), q.Get("to")

	switch {
	case date != "":
		if !validDate(date) {
			writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
			return
		}
	case from == "" || to == "":
		writeError(w, http.StatusBadRequest, "date or from and to are required")
		return
	case !validDate(from) || !validDate(to):
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	case from > to:
		writeError(w, http.StatusBadRequest, "from must be before or equal to to")
		return
	}

	bookings, err := s.bookings.ListBookings(r.Context(), date, from, to)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if bookings == nil {
		bookings = []model.Booking{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

// POST /api/bookings
func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	b := &model.Booking{
		ClientName:       req.ClientName,
		ClientEmail:      req.ClientEmail,
		ClientPhone:      req.ClientPhone,
		ArtistID:         req.ArtistID,
		ServiceName:      req.ServiceName,
		Date:             req.Date,
		Time:             req.Time,
		Status:           model.BookingStatus(req.Status),
		Price:            req.Price,
		DepositPaid:      req.DepositPaid,
		GHLContactID:     req.GHLContactID,
		GHLAppointmentID: req.GHLAppointmentID,
	}
	if err := s.bookings.CreateBooking(r.Context(), b); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// GET /api/bookings/{id}
func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	b, err := s.bookings.GetBooking(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// PATCH /api/bookings/{id}/status
func (s *HTTPServer) handleBookingStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	b, err := s.bookings.UpdateStatus(r.Context(), r.PathValue("id"), body.Status)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// PATCH /api/bookings/{id}/schedule
func (s *HTTPServer) handleReschedule(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Date string `json:"date"`
		Time string `json:"time"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Date == "" || body.Time == "" {
		writeError(w, http.StatusBadRequest, "date and time are required")
		return
	}

	b, err := s.bookings.RescheduleBooking(r.Context(), r.PathValue("id"), body.Date, body.Time)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// DELETE /api/bookings/{id}?cascade=true
func (s *HTTPServer) handleDeleteBooking(w http.ResponseWriter, r *http.Request) {
	cascade := false
	if v := r.URL.Query().Get("cascade"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "cascade must be a boolean")
			return
		}
		cascade = parsed
	}

	if err := s.bookings.DeleteBooking(r.Context(), r.PathValue("id"), cascade); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExportBookings streams the month's bookings as an xlsx workbook.
// GET /api/bookings/export?month=YYYY-MM
func (s *HTTPServer) handleExportBookings(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	start, err := time.Parse("2006-01", month)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid month format; expected YYYY-MM")
		return
	}
	end := start.AddDate(0, 1, -1)

	bookings, err := s.bookings.ListBookings(r.Context(), "", start.Format(model.DateLayout), end.Format(model.DateLayout))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	names := make(map[string]string)
	if artists, err := s.availability.ListActiveArtists(r.Context()); err == nil {
		for _, a := range artists {
			names[a.ID] = a.Name
		}
	} else {
		s.logger.Warn().Err(err).Msg("export without artist names")
	}

	var buf bytes.Buffer
	if err := export.WriteBookingsWorkbook(&buf, month, bookings, names); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="bookings_%s.xlsx"`, month))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
