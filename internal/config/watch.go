package config

import (
	"context"
	"crypto/sha256"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// artistsWatcher remembers the last applied artists.yaml so a touch without an
// edit, or an edit that fails validation, never reaches the roster sync.
type artistsWatcher struct {
	path    string
	modTime time.Time
	digest  [sha256.Size]byte
	current *ArtistsConfig
	logger  zerolog.Logger
}

// WatchArtists loads artists.yaml, hands it to onUpdate and then polls the file every
// interval. onUpdate runs again only when the content changes and the new roster validates;
// a broken edit keeps the previous roster in force.
func WatchArtists(ctx context.Context, path string, interval time.Duration, logger zerolog.Logger, onUpdate func(*ArtistsConfig)) error {
	if path == "" {
		path = "configs/artists.yaml"
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}

	w := &artistsWatcher{path: path, logger: logger.With().Str("component", "artists_watch").Str("path", path).Logger()}
	cfg, err := w.check()
	if err != nil {
		return err
	}
	if onUpdate != nil {
		onUpdate(cfg)
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cfg, err := w.check()
				if err != nil {
					w.logger.Warn().Err(err).Int("artists", len(w.current.Artists)).Msg("artists config reload rejected, keeping previous roster")
					continue
				}
				if cfg != nil && onUpdate != nil {
					onUpdate(cfg)
				}
			}
		}
	}()

	return nil
}

// check returns the new roster when artists.yaml changed since the last call, nil when
// it did not.
func (w *artistsWatcher) check() (*ArtistsConfig, error) {
	info, err := os.Stat(w.path)
	if err != nil {
		return nil, err
	}
	if w.current != nil && info.ModTime().Equal(w.modTime) {
		return nil, nil
	}

	data, err := os.ReadFile(w.path)
	if err != nil {
		return nil, err
	}
	digest := sha256.Sum256(data)
	w.modTime = info.ModTime()
	if w.current != nil && digest == w.digest {
		return nil, nil
	}

	cfg, err := ParseArtistsConfig(data)
	if err != nil {
		return nil, err
	}
	w.digest = digest
	w.logChange(cfg)
	w.current = cfg
	return cfg, nil
}

func (w *artistsWatcher) logChange(cfg *ArtistsConfig) {
	ev := w.logger.Info().Int("artists", len(cfg.Artists)).Int("active", len(cfg.GetActiveArtists())).Int("holidays", len(cfg.Holidays))
	if w.current == nil {
		ev.Msg("artists config loaded")
		return
	}

	before := make(map[string]bool, len(w.current.Artists))
	for _, a := range w.current.Artists {
		before[a.ID] = true
	}
	var added, removed []string
	for _, a := range cfg.Artists {
		if !before[a.ID] {
			added = append(added, a.ID)
		}
		delete(before, a.ID)
	}
	for _, a := range w.current.Artists {
		if before[a.ID] {
			removed = append(removed, a.ID)
		}
	}
	ev.Strs("added", added).Strs("removed", removed).Msg("artists config reloaded")
}
