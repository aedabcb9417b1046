package db

import (
	"context"
	"fmt"
	"time"

	"studio/internal/config"
	"studio/internal/model"
)

// SyncArtistsFromConfig applies artists.yaml to the database.
// It upserts artists, seeds a weekly schedule for artists that have none,
// and marks artists missing from the file inactive. Schedules edited through
// the API are never overwritten.
func (db *DB) SyncArtistsFromConfig(ctx context.Context, cfg *config.ArtistsConfig) error {
	if cfg == nil {
		return fmt.Errorf("artists config is nil")
	}

	now := time.Now()
	seen := make(map[string]struct{}, len(cfg.Artists))

	for i := range cfg.Artists {
		a := &cfg.Artists[i]
		if err := db.UpsertArtist(ctx, &model.Artist{
			ID:        a.ID,
			Name:      a.Name,
			IsActive:  a.IsActive,
			SortOrder: a.SortOrder,
		}); err != nil {
			return fmt.Errorf("sync artist %s: %w", a.ID, err)
		}
		seen[a.ID] = struct{}{}

		existing, err := db.GetWeeklySchedule(ctx, a.ID)
		if err != nil {
			return fmt.Errorf("sync artist %s schedule: %w", a.ID, err)
		}
		if existing != nil {
			continue
		}
		if err := db.SaveWeeklySchedule(ctx, cfg.SeedSchedule(a)); err != nil {
			return fmt.Errorf("seed artist %s schedule: %w", a.ID, err)
		}
		db.logger.Info().Str("artist_id", a.ID).Msg("seeded weekly schedule from config")
	}

	// Deactivate artists that disappeared from config.
	rows, err := db.QueryContext(ctx, `SELECT id FROM artists WHERE is_active = 1`)
	if err != nil {
		return err
	}
	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		if _, ok := seen[id]; !ok {
			stale = append(stale, id)
		}
	}
	if err := rows.Close(); err != nil {
		return err
	}
	for _, id := range stale {
		if _, err := db.ExecContext(ctx, `UPDATE artists SET is_active = 0, updated_at = ? WHERE id = ?`, now, id); err != nil {
			return fmt.Errorf("deactivate artist %s: %w", id, err)
		}
		db.logger.Info().Str("artist_id", id).Msg("artist removed from config, deactivated")
	}

	// Best-effort creation of blocked overrides for configured holidays.
	for _, h := range cfg.Holidays {
		targets := h.Artists
		if len(targets) == 0 {
			for id := range seen {
				targets = append(targets, id)
			}
		}
		for _, id := range targets {
			existing, err := db.GetDateOverride(ctx, id, h.Date)
			if err != nil {
				db.logger.Warn().Err(err).Str("artist_id", id).Str("date", h.Date).Msg("holiday override lookup failed")
				continue
			}
			if existing != nil {
				continue
			}
			if err := db.SetDayOff(ctx, id, h.Date, h.Name); err != nil {
				db.logger.Warn().Err(err).Str("artist_id", id).Str("date", h.Date).Msg("holiday override skipped")
			}
		}
	}

	return nil
}
