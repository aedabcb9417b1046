package migrate

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studio/internal/db"
	"studio/internal/model"
)

const legacyExport = `{
  "artists": [
    {"id": "victoria", "displayName": "Victoria K."},
    {"uid": "alina", "profile": {"firstName": "Alina", "lastName": "Petrova"}, "isActive": false},
    {"displayName": "No Id"}
  ],
  "availability": [
    {"artistId": "victoria", "dayOfWeek": "monday", "isEnabled": true,
     "timeRanges": [{"startTime": "10:00", "endTime": "18:00", "isActive": true}]},
    {"artistId": "victoria", "dayOfWeek": 2, "enabled": true,
     "timeSlots": [{"start": "09:00", "end": "13:00"}], "servicesOffered": ["brows"]},
    {"artistId": "alina", "days": {
       "saturday": {"enabled": true, "timeSlots": [{"startTime": "10:00", "endTime": "14:00"}]},
       "sunday": {"isEnabled": false}
    }},
    {"artistId": "broken", "days": {
       "monday": {"isEnabled": true, "timeRanges": [
         {"startTime": "10:00", "endTime": "14:00"}, {"startTime": "12:00", "endTime": "16:00"}]}
    }},
    {"artistId": "victoria"}
  ],
  "dateOverrides": [
    {"artistId": "victoria", "date": "2026-03-09", "type": "blocked", "note": "old"},
    {"artistId": "victoria", "date": "2026-03-09", "type": "Available", "timeSlots": {"morning": true}},
    {"artistId": "victoria", "date": "09/03/2026", "type": "blocked"}
  ]
}`

func TestNormalize(t *testing.T) {
	e, err := Parse([]byte(legacyExport))
	require.NoError(t, err)
	res := Normalize(e)

	require.Len(t, res.Artists, 2)
	assert.Equal(t, "Victoria K.", res.Artists[0].Name)
	assert.True(t, res.Artists[0].IsActive)
	assert.Equal(t, "alina", res.Artists[1].ID)
	assert.Equal(t, "Alina Petrova", res.Artists[1].Name)
	assert.False(t, res.Artists[1].IsActive)

	require.Len(t, res.Schedules, 2)
	alina, victoria := res.Schedules[0], res.Schedules[1]

	mon, ok := victoria.Template(time.Monday)
	require.True(t, ok)
	assert.True(t, mon.IsEnabled)
	assert.Equal(t, []string{model.ServicesAll}, mon.ServicesOffered)

	tue, ok := victoria.Template(time.Tuesday)
	require.True(t, ok)
	assert.True(t, tue.IsEnabled)
	require.Len(t, tue.TimeRanges, 1)
	assert.Equal(t, model.TimeRange{StartTime: "09:00", EndTime: "13:00", IsActive: true}, tue.TimeRanges[0])
	assert.Equal(t, []string{"brows"}, tue.ServicesOffered)

	sat, ok := alina.Template(time.Saturday)
	require.True(t, ok)
	assert.True(t, sat.IsEnabled)
	sun, ok := alina.Template(time.Sunday)
	require.True(t, ok)
	assert.False(t, sun.IsEnabled)

	require.Len(t, res.Overrides, 1)
	assert.Equal(t, model.OverrideAvailable, res.Overrides[0].Type)
	assert.True(t, res.Overrides[0].TimeSlots.Morning)

	// Missing id, document without days, overlapping schedule, bad override date.
	assert.Len(t, res.Warnings, 4)
}

func TestImportFile_IntoSQLite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "export.json")
	require.NoError(t, os.WriteFile(path, []byte(legacyExport), 0o644))

	store, err := db.NewDB(filepath.Join(dir, "studio.db"), zerolog.Nop())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	st, err := ImportFile(ctx, path, store, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, Stats{Artists: 2, Schedules: 2, Overrides: 1, Skipped: 4}, st)

	tpl, err := store.GetWeeklyTemplate(ctx, "victoria", time.Monday)
	require.NoError(t, err)
	require.NotNil(t, tpl)
	assert.True(t, tpl.IsEnabled)

	o, err := store.GetDateOverride(ctx, "victoria", "2026-03-09")
	require.NoError(t, err)
	require.NotNil(t, o)
	assert.Equal(t, model.OverrideAvailable, o.Type)
}
