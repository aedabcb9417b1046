package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"studio/internal/model"
)

const bookingColumns = `id, client_name, client_email, client_phone, artist_id, service_name,
	date, time, status, price, deposit_paid, ghl_contact_id, ghl_appointment_id, created_at, updated_at`

// GetBookingsForDate returns every booking on date that still holds its slot.
// Cancelled bookings are excluded here so slot computation never sees them.
func (db *DB) GetBookingsForDate(ctx context.Context, date string) ([]model.Booking, error) {
	return db.queryBookings(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE date = ? AND status != ?
		ORDER BY time, artist_id`,
		date, string(model.StatusCancelled),
	)
}

// GetBookingsForArtistAndDate is GetBookingsForDate narrowed to one artist.
func (db *DB) GetBookingsForArtistAndDate(ctx context.Context, artistID, date string) ([]model.Booking, error) {
	return db.queryBookings(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE artist_id = ? AND date = ? AND status != ?
		ORDER BY time`,
		artistID, date, string(model.StatusCancelled),
	)
}

// ListBookingsBetween returns all bookings, including cancelled ones, with dates in [from, to].
func (db *DB) ListBookingsBetween(ctx context.Context, from, to string) ([]model.Booking, error) {
	return db.queryBookings(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE date >= ? AND date <= ?
		ORDER BY date, time, artist_id`,
		from, to,
	)
}

func (db *DB) CreateBooking(ctx context.Context, b *model.Booking) error {
	if err := b.Validate(); err != nil {
		return err
	}
	now := time.Now()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now

	_, err := db.ExecContext(ctx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.ClientName, nullString(b.ClientEmail), nullString(b.ClientPhone), b.ArtistID, b.ServiceName,
		b.Date, b.Time, string(b.Status), b.Price, b.DepositPaid,
		nullString(b.GHLContactID), nullString(b.GHLAppointmentID), b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

func (db *DB) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	row := db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

// UpdateBooking overwrites every mutable field of an existing booking.
func (db *DB) UpdateBooking(ctx context.Context, b *model.Booking) error {
	if err := b.Validate(); err != nil {
		return err
	}
	b.UpdatedAt = time.Now()

	res, err := db.ExecContext(ctx, `
		UPDATE bookings SET
			client_name = ?, client_email = ?, client_phone = ?, artist_id = ?, service_name = ?,
			date = ?, time = ?, status = ?, price = ?, deposit_paid = ?,
			ghl_contact_id = ?, ghl_appointment_id = ?, updated_at = ?
		WHERE id = ?`,
		b.ClientName, nullString(b.ClientEmail), nullString(b.ClientPhone), b.ArtistID, b.ServiceName,
		b.Date, b.Time, string(b.Status), b.Price, b.DepositPaid,
		nullString(b.GHLContactID), nullString(b.GHLAppointmentID), b.UpdatedAt,
		b.ID,
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (db *DB) UpdateBookingStatus(ctx context.Context, id string, status model.BookingStatus) error {
	status, err := model.ParseBookingStatus(string(status))
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx,
		"UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?",
		string(status), time.Now(), id,
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (db *DB) DeleteBooking(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, "DELETE FROM bookings WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...any) ([]model.Booking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func scanBooking(s scanner) (*model.Booking, error) {
	var b model.Booking
	var status string
	var email, phone, contactID, appointmentID sql.NullString
	if err := s.Scan(
		&b.ID, &b.ClientName, &email, &phone, &b.ArtistID, &b.ServiceName,
		&b.Date, &b.Time, &status, &b.Price, &b.DepositPaid,
		&contactID, &appointmentID, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	b.Status = model.BookingStatus(status)
	b.ClientEmail = email.String
	b.ClientPhone = phone.String
	b.GHLContactID = contactID.String
	b.GHLAppointmentID = appointmentID.String
	return &b, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
