package model

// TimeSlot is a computed bookable window. It is never persisted.
type TimeSlot struct {
	Time            string `json:"time"` // HH:MM
	DurationMinutes int    `json:"duration_minutes"`
	Available       bool   `json:"available"`
	ArtistID        string `json:"artist_id"`
	ArtistName      string `json:"artist_name"`
	Reason          string `json:"reason,omitempty"`
	AppointmentID   string `json:"appointment_id,omitempty"`
}

// DayTimeSlots is the result of a day computation.
type DayTimeSlots struct {
	Date            string     `json:"date"`
	DayOfWeek       int        `json:"day_of_week"` // 0=Sunday
	TimeSlots       []TimeSlot `json:"time_slots"`
	HasAvailability bool       `json:"has_availability"`
	SkippedArtists  []string   `json:"skipped_artists,omitempty"`
}

// AvailableSlots returns only the windows that can still be booked.
func (d *DayTimeSlots) AvailableSlots() []TimeSlot {
	available := make([]TimeSlot, 0, len(d.TimeSlots))
	for _, s := range d.TimeSlots {
		if s.Available {
			available = append(available, s)
		}
	}
	return available
}

// NextAvailable is the first date with free windows found by a forward scan.
type NextAvailable struct {
	Date      string     `json:"date"`
	TimeSlots []TimeSlot `json:"time_slots"`
}
