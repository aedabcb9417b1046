package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"studio/internal/model"
)

// GetBusinessSettings returns the stored settings, or the defaults when none were saved.
func (db *DB) GetBusinessSettings(ctx context.Context) (*model.BusinessSettings, error) {
	var raw string
	var updatedAt time.Time
	err := db.QueryRowContext(ctx,
		"SELECT data, updated_at FROM business_settings WHERE id = 1",
	).Scan(&raw, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DefaultBusinessSettings(), nil
	}
	if err != nil {
		return nil, err
	}

	s := model.DefaultBusinessSettings()
	if err := json.Unmarshal([]byte(raw), s); err != nil {
		return nil, err
	}
	s.UpdatedAt = updatedAt
	return s, nil
}

func (db *DB) SaveBusinessSettings(ctx context.Context, s *model.BusinessSettings) error {
	s.UpdatedAt = time.Now()
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO business_settings (id, data, updated_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at`,
		string(data), s.UpdatedAt,
	)
	return err
}
