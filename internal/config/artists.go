package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"studio/internal/model"
)

// ArtistConfig represents a single artist entry in artists.yaml.
type ArtistConfig struct {
	ID        string                     `yaml:"id"`
	Name      string                     `yaml:"name"`
	IsActive  bool                       `yaml:"is_active"`
	SortOrder int                        `yaml:"sort_order"`
	Weekly    map[string]*DayHoursConfig `yaml:"weekly,omitempty"`
}

// DayHoursConfig is the seed template for one weekday.
type DayHoursConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Ranges   []RangeConfig `yaml:"ranges"`
	Services []string      `yaml:"services,omitempty"`
}

type RangeConfig struct {
	Start string `yaml:"start"` // "10:00"
	End   string `yaml:"end"`   // "18:00"
}

// HolidayConfig closes the studio for a date. An empty Artists list applies to everyone.
type HolidayConfig struct {
	Date    string   `yaml:"date"` // "2026-12-25"
	Name    string   `yaml:"name"`
	Artists []string `yaml:"artists,omitempty"`
}

// DefaultsConfig represents global default settings.
type DefaultsConfig struct {
	Weekly  map[string]*DayHoursConfig `yaml:"weekly"`
	DaysOff []int                      `yaml:"days_off"` // 0=Sun .. 6=Sat
}

// ArtistsConfig is the root configuration for artists.yaml.
type ArtistsConfig struct {
	Artists  []ArtistConfig  `yaml:"artists"`
	Defaults DefaultsConfig  `yaml:"defaults"`
	Holidays []HolidayConfig `yaml:"holidays"`
}

// LoadArtistsConfig loads and validates artists configuration from YAML file.
func LoadArtistsConfig(path string) (*ArtistsConfig, error) {
	if path == "" {
		path = "configs/artists.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artists config: %w", err)
	}
	return ParseArtistsConfig(data)
}

// ParseArtistsConfig decodes, validates and applies defaults to an artists.yaml document.
func ParseArtistsConfig(data []byte) (*ArtistsConfig, error) {
	var cfg ArtistsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse artists config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate artists config: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// Validate checks the configuration for errors.
func (c *ArtistsConfig) Validate() error {
	if len(c.Artists) == 0 {
		return fmt.Errorf("no artists defined")
	}

	ids := make(map[string]bool)
	for i, a := range c.Artists {
		if a.ID == "" {
			return fmt.Errorf("artist[%d]: id is required", i)
		}
		if ids[a.ID] {
			return fmt.Errorf("artist[%d]: duplicate id '%s'", i, a.ID)
		}
		ids[a.ID] = true

		if a.Name == "" {
			return fmt.Errorf("artist[%d]: name is required", i)
		}
		if err := validateWeekly(a.Weekly, fmt.Sprintf("artist[%d].weekly", i)); err != nil {
			return err
		}
	}

	if err := validateWeekly(c.Defaults.Weekly, "defaults.weekly"); err != nil {
		return err
	}

	for i, h := range c.Holidays {
		if h.Date == "" {
			return fmt.Errorf("holiday[%d]: date is required", i)
		}
		if _, err := time.Parse(model.DateLayout, h.Date); err != nil {
			return fmt.Errorf("holiday[%d]: invalid date format '%s', expected YYYY-MM-DD", i, h.Date)
		}
		for _, id := range h.Artists {
			if !ids[id] {
				return fmt.Errorf("holiday[%d]: unknown artist '%s'", i, id)
			}
		}
	}

	for i, d := range c.Defaults.DaysOff {
		if d < 0 || d > 6 {
			return fmt.Errorf("defaults.days_off[%d]: invalid day %d, must be 0-6 (0=Sun, 6=Sat)", i, d)
		}
	}

	return nil
}

func validateWeekly(weekly map[string]*DayHoursConfig, prefix string) error {
	for day, hours := range weekly {
		if _, err := model.ParseWeekday(day); err != nil {
			return fmt.Errorf("%s: %w", prefix, err)
		}
		if hours == nil {
			continue
		}
		if err := hours.template().Validate(); err != nil {
			return fmt.Errorf("%s.%s: %w", prefix, day, err)
		}
	}
	return nil
}

func (d *DayHoursConfig) template() model.WeeklyAvailabilityTemplate {
	t := model.WeeklyAvailabilityTemplate{
		IsEnabled:       d.Enabled,
		ServicesOffered: d.Services,
	}
	if len(t.ServicesOffered) == 0 {
		t.ServicesOffered = []string{model.ServicesAll}
	}
	for _, r := range d.Ranges {
		t.TimeRanges = append(t.TimeRanges, model.TimeRange{StartTime: r.Start, EndTime: r.End, IsActive: true})
	}
	return t
}

// applyDefaults gives artists without explicit hours the default week.
func (c *ArtistsConfig) applyDefaults() {
	for i := range c.Artists {
		if c.Artists[i].Weekly == nil && c.Defaults.Weekly != nil {
			c.Artists[i].Weekly = c.Defaults.Weekly
		}
		if c.Artists[i].SortOrder == 0 {
			c.Artists[i].SortOrder = i + 1
		}
	}
}

// SeedSchedule builds the initial weekly schedule for an artist.
// Days off and days missing from the config are stored disabled.
func (c *ArtistsConfig) SeedSchedule(a *ArtistConfig) *model.WeeklySchedule {
	s := model.NewWeeklySchedule(a.ID)
	for day := time.Sunday; day <= time.Saturday; day++ {
		hours := a.Weekly[model.WeekdayName(day)]
		if hours == nil {
			s.SetTemplate(day, model.WeeklyAvailabilityTemplate{ServicesOffered: []string{model.ServicesAll}})
			continue
		}
		t := hours.template()
		if c.IsDayOff(day) {
			t.IsEnabled = false
		}
		s.SetTemplate(day, t)
	}
	return s
}

// GetActiveArtists returns only active artists.
func (c *ArtistsConfig) GetActiveArtists() []ArtistConfig {
	result := make([]ArtistConfig, 0)
	for _, a := range c.Artists {
		if a.IsActive {
			result = append(result, a)
		}
	}
	return result
}

// IsDayOff checks if a weekday is a studio-wide day off.
func (c *ArtistsConfig) IsDayOff(weekday time.Weekday) bool {
	for _, d := range c.Defaults.DaysOff {
		if d == int(weekday) {
			return true
		}
	}
	return false
}

// String returns a summary of the configuration.
func (c *ArtistsConfig) String() string {
	return fmt.Sprintf("ArtistsConfig: %d artists (%d active), %d holidays",
		len(c.Artists), len(c.GetActiveArtists()), len(c.Holidays))
}
