package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const artistsYAML = `
artists:
  - id: victoria
    name: Victoria
    is_active: true
    weekly:
      monday:
        enabled: true
        ranges:
          - {start: "10:00", end: "18:00"}
  - id: alina
    name: Alina
    is_active: false
defaults:
  weekly:
    tuesday:
      enabled: true
      ranges:
        - {start: "09:00", end: "13:00"}
    sunday:
      enabled: true
      ranges:
        - {start: "10:00", end: "14:00"}
  days_off: [0]
holidays:
  - date: "2026-12-25"
    name: Christmas
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_ExpandsEnvAndDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STUDIO_TEST_KEY", "secret")
	path := writeFile(t, dir, "config.yaml", `
http:
  api_key: ${STUDIO_TEST_KEY}
database:
  path: `+filepath.Join(dir, "db", "studio.db")+`
studio:
  timezone: Europe/London
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.HTTP.APIKey)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "configs/artists.yaml", cfg.Studio.ArtistsConfigPath)
	assert.Equal(t, 5*time.Minute, cfg.SettingsCacheTTL())
	assert.Equal(t, time.Duration(0), cfg.GHLCacheTTL())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/London", loc.String())

	_, err = os.Stat(filepath.Join(dir, "db"))
	assert.NoError(t, err)
}

func TestLoad_RejectsUnknownTimezone(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
database:
  path: `+filepath.Join(dir, "studio.db")+`
studio:
  timezone: Mars/Olympus
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadArtistsConfig(t *testing.T) {
	path := writeFile(t, t.TempDir(), "artists.yaml", artistsYAML)

	cfg, err := LoadArtistsConfig(path)
	require.NoError(t, err)

	assert.Len(t, cfg.Artists, 2)
	assert.Len(t, cfg.GetActiveArtists(), 1)
	assert.True(t, cfg.IsDayOff(time.Sunday))
	assert.False(t, cfg.IsDayOff(time.Monday))

	victoria, alina := &cfg.Artists[0], &cfg.Artists[1]
	require.Equal(t, "victoria", victoria.ID)
	require.Equal(t, "alina", alina.ID)
	assert.Equal(t, 2, alina.SortOrder)
	assert.Contains(t, alina.Weekly, "tuesday")

	sched := cfg.SeedSchedule(victoria)
	mon, ok := sched.Template(time.Monday)
	require.True(t, ok)
	assert.True(t, mon.IsEnabled)
	require.Len(t, mon.TimeRanges, 1)
	assert.True(t, mon.TimeRanges[0].IsActive)
	assert.Equal(t, []string{"all"}, mon.ServicesOffered)

	tue, ok := sched.Template(time.Tuesday)
	require.True(t, ok)
	assert.False(t, tue.IsEnabled)

	// Days off disable configured hours.
	alinaSched := cfg.SeedSchedule(alina)
	sun, _ := alinaSched.Template(time.Sunday)
	assert.False(t, sun.IsEnabled)
	assert.Len(t, sun.TimeRanges, 1)
}

func TestArtistsConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no artists", "artists: []"},
		{"duplicate id", "artists:\n  - {id: a, name: A}\n  - {id: a, name: B}"},
		{"missing name", "artists:\n  - {id: a}"},
		{"bad weekday", "artists:\n  - id: a\n    name: A\n    weekly:\n      funday: {enabled: true}"},
		{"overlapping ranges", "artists:\n  - id: a\n    name: A\n    weekly:\n      monday:\n        enabled: true\n        ranges:\n          - {start: '10:00', end: '14:00'}\n          - {start: '12:00', end: '16:00'}"},
		{"bad holiday", "artists:\n  - {id: a, name: A}\nholidays:\n  - {date: '25.12.2026'}"},
		{"unknown holiday artist", "artists:\n  - {id: a, name: A}\nholidays:\n  - {date: '2026-12-25', artists: [b]}"},
		{"bad day off", "artists:\n  - {id: a, name: A}\ndefaults:\n  days_off: [7]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "artists.yaml", tt.yaml)
			_, err := LoadArtistsConfig(path)
			assert.Error(t, err)
		})
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// rewrite replaces the file content and pushes its mtime forward so the watcher notices
// even on filesystems with coarse timestamps.
func rewrite(t *testing.T, path, content string, step int) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	mod := time.Now().Add(time.Duration(step) * time.Minute)
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestWatchArtists_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "artists.yaml", artistsYAML)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var logs lockedBuffer
	var calls atomic.Int32
	var latest atomic.Pointer[ArtistsConfig]
	err := WatchArtists(ctx, path, 10*time.Millisecond, zerolog.New(&logs), func(cfg *ArtistsConfig) {
		latest.Store(cfg)
		calls.Add(1)
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Contains(t, logs.String(), `"artists":2`)

	// touch only
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, strings.Count(logs.String(), "artists config"))

	// broken edit keeps the previous roster
	rewrite(t, path, "artists: []\n", 2)
	assert.Eventually(t, func() bool { return strings.Contains(logs.String(), "reload rejected") }, time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	withMila := strings.Replace(artistsYAML, "defaults:", "  - id: mila\n    name: Mila\n    is_active: true\ndefaults:", 1)
	withMila = strings.Replace(withMila, "  - id: alina\n    name: Alina\n    is_active: false\n", "", 1)
	rewrite(t, path, withMila, 3)

	assert.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 10*time.Millisecond)
	cfg := latest.Load()
	require.Len(t, cfg.Artists, 2)
	assert.Equal(t, "mila", cfg.Artists[1].ID)
	assert.Contains(t, logs.String(), `"added":["mila"]`)
	assert.Contains(t, logs.String(), `"removed":["alina"]`)
}
