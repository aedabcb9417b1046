package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidStatus = errors.New("invalid booking status")

// BookingStatus is the admin-driven lifecycle state of a booking.
// Any status may follow any other.
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCompleted BookingStatus = "completed"
	StatusCancelled BookingStatus = "cancelled"
)

// ParseBookingStatus normalizes s and checks it is a known status.
// The legacy spelling "canceled" is accepted.
func ParseBookingStatus(s string) (BookingStatus, error) {
	switch st := BookingStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return st, nil
	case "canceled":
		return StatusCancelled, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

type Booking struct {
	ID               string        `json:"id"`
	ClientName       string        `json:"client_name"`
	ClientEmail      string        `json:"client_email,omitempty"`
	ClientPhone      string        `json:"client_phone,omitempty"`
	ArtistID         string        `json:"artist_id"`
	ServiceName      string        `json:"service_name"`
	Date             string        `json:"date"` // YYYY-MM-DD
	Time             string        `json:"time"` // HH:MM
	Status           BookingStatus `json:"status"`
	Price            float64       `json:"price"`
	DepositPaid      bool          `json:"deposit_paid"`
	GHLContactID     string        `json:"ghl_contact_id,omitempty"`
	GHLAppointmentID string        `json:"ghl_appointment_id,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// ConsumesSlot reports whether the booking occupies its time slot.
func (b *Booking) ConsumesSlot() bool {
	return b.Status != StatusCancelled
}

// StartMinutes returns the booking start as minutes since midnight.
func (b *Booking) StartMinutes() (int, error) {
	return ParseClock(b.Time)
}

// Validate checks the fields required to store a booking and normalizes Status to its
// canonical spelling.
func (b *Booking) Validate() error {
	if strings.TrimSpace(b.ClientName) == "" {
		return fmt.Errorf("client_name is required")
	}
	if b.ArtistID == "" {
		return fmt.Errorf("artist_id is required")
	}
	if b.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	if _, err := time.Parse(DateLayout, b.Date); err != nil {
		return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", b.Date)
	}
	if _, err := ParseClock(b.Time); err != nil {
		return fmt.Errorf("invalid time: %w", err)
	}
	status, err := ParseBookingStatus(string(b.Status))
	if err != nil {
		return err
	}
	b.Status = status
	if b.Price < 0 {
		return fmt.Errorf("price cannot be negative")
	}
	return nil
}

// IsPast reports whether the booking's date is before the day containing now.
func (b *Booking) IsPast(now time.Time) bool {
	d, err := ParseDate(b.Date, now.Location())
	if err != nil {
		return false
	}
	return d.Before(StartOfDay(now))
}
