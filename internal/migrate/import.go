package migrate

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"studio/internal/model"
)

// Store is the write side used by an import.
type Store interface {
	UpsertArtist(ctx context.Context, a *model.Artist) error
	SaveWeeklySchedule(ctx context.Context, s *model.WeeklySchedule) error
	SaveDateOverride(ctx context.Context, o *model.DateOverride) error
}

// Stats counts what an import wrote.
type Stats struct {
	Artists   int
	Schedules int
	Overrides int
	Skipped   int
}

// ImportFile normalizes a legacy export and writes it to store.
// Artists are written first so schedules and overrides can reference them.
func ImportFile(ctx context.Context, path string, store Store, logger zerolog.Logger) (Stats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Stats{}, err
	}
	e, err := Parse(data)
	if err != nil {
		return Stats{}, err
	}
	return Apply(ctx, Normalize(e), store, logger)
}

// Apply writes a normalized result. A failing record is logged and skipped.
func Apply(ctx context.Context, res *Result, store Store, logger zerolog.Logger) (Stats, error) {
	var st Stats
	for _, w := range res.Warnings {
		logger.Warn().Str("record", w).Msg("legacy record skipped")
		st.Skipped++
	}

	for i := range res.Artists {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		a := &res.Artists[i]
		if err := store.UpsertArtist(ctx, a); err != nil {
			return st, fmt.Errorf("import artist %s: %w", a.ID, err)
		}
		st.Artists++
	}

	for _, s := range res.Schedules {
		if err := store.SaveWeeklySchedule(ctx, s); err != nil {
			logger.Warn().Err(err).Str("artist_id", s.ArtistID).Msg("schedule import failed")
			st.Skipped++
			continue
		}
		st.Schedules++
	}

	for i := range res.Overrides {
		o := &res.Overrides[i]
		if err := store.SaveDateOverride(ctx, o); err != nil {
			logger.Warn().Err(err).Str("artist_id", o.ArtistID).Str("date", o.Date).Msg("override import failed")
			st.Skipped++
			continue
		}
		st.Overrides++
	}

	logger.Info().Int("artists", st.Artists).Int("schedules", st.Schedules).
		Int("overrides", st.Overrides).Int("skipped", st.Skipped).Msg("legacy availability imported")
	return st, nil
}
