package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"studio/internal/model"
)

// GetWeeklySchedule returns the artist's schedule document, or nil when none was saved.
func (db *DB) GetWeeklySchedule(ctx context.Context, artistID string) (*model.WeeklySchedule, error) {
	return getWeeklySchedule(ctx, db.DB, artistID)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getWeeklySchedule(ctx context.Context, q queryRower, artistID string) (*model.WeeklySchedule, error) {
	var raw string
	s := model.NewWeeklySchedule(artistID)
	err := q.QueryRowContext(ctx,
		"SELECT days, updated_at FROM weekly_schedules WHERE artist_id = ?", artistID,
	).Scan(&raw, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(raw), &s.Days); err != nil {
		return nil, fmt.Errorf("decode schedule for %s: %w", artistID, err)
	}
	return s, nil
}

// GetWeeklyTemplate returns one weekday of the artist's schedule, or nil when absent.
func (db *DB) GetWeeklyTemplate(ctx context.Context, artistID string, day time.Weekday) (*model.WeeklyAvailabilityTemplate, error) {
	s, err := db.GetWeeklySchedule(ctx, artistID)
	if err != nil || s == nil {
		return nil, err
	}
	t, ok := s.Template(day)
	if !ok {
		return nil, nil
	}
	return &t, nil
}

// SaveWeeklySchedule validates and replaces the artist's schedule document.
func (db *DB) SaveWeeklySchedule(ctx context.Context, s *model.WeeklySchedule) error {
	if s == nil {
		return fmt.Errorf("schedule is nil")
	}
	if err := s.Validate(); err != nil {
		return err
	}
	return upsertWeeklySchedule(ctx, db.DB, s)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertWeeklySchedule(ctx context.Context, ex execer, s *model.WeeklySchedule) error {
	data, err := json.Marshal(s.Days)
	if err != nil {
		return err
	}
	now := time.Now()
	_, err = ex.ExecContext(ctx, `
		INSERT INTO weekly_schedules (artist_id, days, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(artist_id) DO UPDATE SET
			days = excluded.days,
			updated_at = excluded.updated_at`,
		s.ArtistID, string(data), now, now,
	)
	if err == nil {
		s.UpdatedAt = now
	}
	return err
}

// SaveWeeklyTemplate replaces a single weekday inside the artist's schedule document.
func (db *DB) SaveWeeklyTemplate(ctx context.Context, artistID string, day time.Weekday, t model.WeeklyAvailabilityTemplate) error {
	if err := t.Validate(); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	s, err := getWeeklySchedule(ctx, tx, artistID)
	if err != nil {
		return err
	}
	if s == nil {
		s = model.NewWeeklySchedule(artistID)
	}
	s.SetTemplate(day, t)

	if err := upsertWeeklySchedule(ctx, tx, s); err != nil {
		return err
	}
	return tx.Commit()
}

// GetDateOverride returns the override for an artist on a date, or nil when absent.
func (db *DB) GetDateOverride(ctx context.Context, artistID, date string) (*model.DateOverride, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, artist_id, date, type, morning, afternoon, evening, note, created_at, updated_at
		FROM date_overrides
		WHERE artist_id = ? AND date = ?
		LIMIT 1`,
		artistID, date,
	)
	o, err := scanOverride(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return o, err
}

// SaveDateOverride creates the override or replaces the existing one for the same artist and date.
func (db *DB) SaveDateOverride(ctx context.Context, o *model.DateOverride) error {
	if o == nil {
		return fmt.Errorf("override is nil")
	}
	if err := o.Validate(); err != nil {
		return err
	}

	now := time.Now()
	_, err := db.ExecContext(ctx, `
		INSERT INTO date_overrides (
			artist_id, date, type, morning, afternoon, evening, note, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(artist_id, date) DO UPDATE SET
			type = excluded.type,
			morning = excluded.morning,
			afternoon = excluded.afternoon,
			evening = excluded.evening,
			note = excluded.note,
			updated_at = excluded.updated_at`,
		o.ArtistID, o.Date, string(o.Type),
		o.TimeSlots.Morning, o.TimeSlots.Afternoon, o.TimeSlots.Evening,
		o.Note, now, now,
	)
	return err
}

// DeleteDateOverride removes the override for a date. Deleting a missing override is not an error.
func (db *DB) DeleteDateOverride(ctx context.Context, artistID, date string) error {
	_, err := db.ExecContext(ctx,
		"DELETE FROM date_overrides WHERE artist_id = ? AND date = ?",
		artistID, date,
	)
	return err
}

// SetDayOff blocks an artist for a whole date.
func (db *DB) SetDayOff(ctx context.Context, artistID, date, note string) error {
	return db.SaveDateOverride(ctx, &model.DateOverride{
		ArtistID: artistID,
		Date:     date,
		Type:     model.OverrideBlocked,
		Note:     note,
	})
}

// ListDateOverrides returns an artist's overrides within [from, to], inclusive.
func (db *DB) ListDateOverrides(ctx context.Context, artistID, from, to string) ([]model.DateOverride, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, artist_id, date, type, morning, afternoon, evening, note, created_at, updated_at
		FROM date_overrides
		WHERE artist_id = ? AND date >= ? AND date <= ?
		ORDER BY date`,
		artistID, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var overrides []model.DateOverride
	for rows.Next() {
		o, err := scanOverride(rows)
		if err != nil {
			return nil, err
		}
		overrides = append(overrides, *o)
	}
	return overrides, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOverride(s scanner) (*model.DateOverride, error) {
	var o model.DateOverride
	var typ string
	var note sql.NullString
	if err := s.Scan(
		&o.ID, &o.ArtistID, &o.Date, &typ,
		&o.TimeSlots.Morning, &o.TimeSlots.Afternoon, &o.TimeSlots.Evening,
		&note, &o.CreatedAt, &o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	o.Type = model.OverrideType(typ)
	if note.Valid {
		o.Note = note.String
	}
	return &o, nil
}
