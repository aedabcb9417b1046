package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"studio/internal/crmapi"
	"studio/internal/metrics"
	"studio/internal/model"
)

var (
	// ErrSlotTaken is returned when another active booking already holds the artist's time.
	ErrSlotTaken      = errors.New("time slot already booked")
	ErrInvalidBooking = errors.New("invalid booking")
)

// BookingRepository provides booking persistence.
type BookingRepository interface {
	CreateBooking(ctx context.Context, b *model.Booking) error
	GetBooking(ctx context.Context, id string) (*model.Booking, error)
	UpdateBooking(ctx context.Context, b *model.Booking) error
	UpdateBookingStatus(ctx context.Context, id string, status model.BookingStatus) error
	DeleteBooking(ctx context.Context, id string) error
	GetBookingsForDate(ctx context.Context, date string) ([]model.Booking, error)
	GetBookingsForArtistAndDate(ctx context.Context, artistID, date string) ([]model.Booking, error)
	ListBookingsBetween(ctx context.Context, from, to string) ([]model.Booking, error)
}

// CRMClient is the part of the GHL API the booking service uses.
type CRMClient interface {
	GetContact(ctx context.Context, contactID string) (*crmapi.Contact, error)
	DeleteAppointment(ctx context.Context, appointmentID string) error
}

// Service provides booking administration.
type Service struct {
	bookings BookingRepository
	crm      CRMClient
	now      func() time.Time
	logger   zerolog.Logger
}

// NewService creates a booking service. crm may be nil when the CRM integration is disabled.
func NewService(bookings BookingRepository, crm CRMClient, logger zerolog.Logger) *Service {
	return &Service{
		bookings: bookings,
		crm:      crm,
		now:      time.Now,
		logger:   logger.With().Str("component", "manager").Logger(),
	}
}

// ListBookings returns bookings for a single date (active only) or for a date range (all statuses).
func (s *Service) ListBookings(ctx context.Context, date, from, to string) ([]model.Booking, error) {
	if date != "" {
		return s.bookings.GetBookingsForDate(ctx, date)
	}
	if from == "" || to == "" {
		return nil, fmt.Errorf("either date or from and to are required")
	}
	if from > to {
		return nil, fmt.Errorf("from must not be after to")
	}
	return s.bookings.ListBookingsBetween(ctx, from, to)
}

func (s *Service) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	return s.bookings.GetBooking(ctx, id)
}

// CreateBooking assigns an id, defaults the status and stores the booking.
// Bookings entered for past dates default to completed.
func (s *Service) CreateBooking(ctx context.Context, b *model.Booking) error {
	b.ID = uuid.NewString()
	s.fillClientFromContact(ctx, b)
	b.ClientName = strings.TrimSpace(b.ClientName)
	if b.Status == "" {
		b.Status = model.StatusPending
		if b.IsPast(s.now()) {
			b.Status = model.StatusCompleted
		}
	}
	status, err := model.ParseBookingStatus(string(b.Status))
	if err != nil {
		return err
	}
	b.Status = status
	if err := b.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBooking, err)
	}

	if b.ConsumesSlot() {
		if err := s.ensureSlotFree(ctx, b); err != nil {
			return err
		}
	}

	if err := s.bookings.CreateBooking(ctx, b); err != nil {
		return fmt.Errorf("create booking: %w", err)
	}

	metrics.IncBookingChange("create")
	s.logger.Info().Str("booking_id", b.ID).Str("artist_id", b.ArtistID).
		Str("date", b.Date).Str("time", b.Time).Msg("booking created")
	return nil
}

// UpdateStatus sets any status; the lifecycle has no enforced order.
func (s *Service) UpdateStatus(ctx context.Context, id, status string) (*model.Booking, error) {
	st, err := model.ParseBookingStatus(status)
	if err != nil {
		return nil, err
	}

	booking, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}

	// Reactivating a cancelled booking needs its slot back.
	if booking.Status == model.StatusCancelled && st != model.StatusCancelled {
		booking.Status = st
		if err := s.ensureSlotFree(ctx, booking); err != nil {
			return nil, err
		}
	}

	if err := s.bookings.UpdateBookingStatus(ctx, id, st); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	booking.Status = st

	metrics.IncBookingChange("status_" + string(st))
	s.logger.Info().Str("booking_id", id).Str("status", string(st)).Msg("booking status changed")
	return booking, nil
}

// RescheduleBooking moves a booking to a new date and time.
func (s *Service) RescheduleBooking(ctx context.Context, id, date, clock string) (*model.Booking, error) {
	booking, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}

	oldDate, oldTime := booking.Date, booking.Time
	booking.Date = date
	booking.Time = clock
	if err := booking.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBooking, err)
	}

	if booking.ConsumesSlot() {
		if err := s.ensureSlotFree(ctx, booking); err != nil {
			return nil, err
		}
	}

	if err := s.bookings.UpdateBooking(ctx, booking); err != nil {
		return nil, fmt.Errorf("update booking: %w", err)
	}

	metrics.IncBookingChange("reschedule")
	s.logger.Info().Str("booking_id", id).
		Str("from", oldDate+" "+oldTime).Str("to", date+" "+clock).Msg("booking rescheduled")
	return booking, nil
}

// DeleteBooking removes a booking. With cascade, the linked CRM appointment is deleted first;
// a CRM failure is logged and does not block the local delete.
func (s *Service) DeleteBooking(ctx context.Context, id string, cascade bool) error {
	booking, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return fmt.Errorf("get booking: %w", err)
	}

	if cascade && s.crm != nil && booking.GHLAppointmentID != "" {
		err := s.crm.DeleteAppointment(ctx, booking.GHLAppointmentID)
		switch {
		case err == nil, errors.Is(err, crmapi.ErrNotFound):
		default:
			s.logger.Warn().Err(err).Str("booking_id", id).
				Str("appointment_id", booking.GHLAppointmentID).Msg("crm appointment delete failed")
		}
	}

	if err := s.bookings.DeleteBooking(ctx, id); err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}

	metrics.IncBookingChange("delete")
	s.logger.Info().Str("booking_id", id).Bool("cascade", cascade).Msg("booking deleted")
	return nil
}

// fillClientFromContact copies missing client details from the linked GHL contact.
// Lookup failures are logged; validation then decides whether the booking is still complete.
func (s *Service) fillClientFromContact(ctx context.Context, b *model.Booking) {
	if s.crm == nil || b.GHLContactID == "" {
		return
	}
	if strings.TrimSpace(b.ClientName) != "" && b.ClientEmail != "" && b.ClientPhone != "" {
		return
	}

	contact, err := s.crm.GetContact(ctx, b.GHLContactID)
	if err != nil {
		s.logger.Warn().Err(err).Str("contact_id", b.GHLContactID).Msg("crm contact lookup failed")
		return
	}
	if strings.TrimSpace(b.ClientName) == "" {
		b.ClientName = contact.FullName()
	}
	if b.ClientEmail == "" {
		b.ClientEmail = contact.Email
	}
	if b.ClientPhone == "" {
		b.ClientPhone = contact.Phone
	}
}

func (s *Service) ensureSlotFree(ctx context.Context, b *model.Booking) error {
	start, err := b.StartMinutes()
	if err != nil {
		return err
	}
	existing, err := s.bookings.GetBookingsForArtistAndDate(ctx, b.ArtistID, b.Date)
	if err != nil {
		return fmt.Errorf("check slot: %w", err)
	}
	for i := range existing {
		other := &existing[i]
		if other.ID == b.ID {
			continue
		}
		if otherStart, err := other.StartMinutes(); err == nil && otherStart == start {
			return fmt.Errorf("%w: %s %s (booking %s)", ErrSlotTaken, b.Date, b.Time, other.ID)
		}
	}
	return nil
}
