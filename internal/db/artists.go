package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"studio/internal/model"
)

// ListActiveArtists returns active artists in display order.
func (db *DB) ListActiveArtists(ctx context.Context) ([]model.Artist, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, is_active, sort_order, created_at, updated_at
		FROM artists
		WHERE is_active = 1
		ORDER BY sort_order, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artists []model.Artist
	for rows.Next() {
		var a model.Artist
		if err := rows.Scan(&a.ID, &a.Name, &a.IsActive, &a.SortOrder, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		artists = append(artists, a)
	}
	return artists, rows.Err()
}

// GetArtist returns an artist by id.
func (db *DB) GetArtist(ctx context.Context, id string) (*model.Artist, error) {
	var a model.Artist
	err := db.QueryRowContext(ctx, `
		SELECT id, name, is_active, sort_order, created_at, updated_at
		FROM artists WHERE id = ?`, id,
	).Scan(&a.ID, &a.Name, &a.IsActive, &a.SortOrder, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// UpsertArtist creates or updates an artist, preserving created_at.
func (db *DB) UpsertArtist(ctx context.Context, a *model.Artist) error {
	now := time.Now()
	_, err := db.ExecContext(ctx, `
		INSERT INTO artists (id, name, is_active, sort_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			is_active = excluded.is_active,
			sort_order = excluded.sort_order,
			updated_at = excluded.updated_at`,
		a.ID, a.Name, a.IsActive, a.SortOrder, now, now,
	)
	return err
}
