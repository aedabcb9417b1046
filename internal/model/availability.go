package model

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	ErrInvalidTimeRange  = errors.New("invalid time range")
	ErrOverlappingRanges = errors.New("overlapping time ranges")
	ErrInvalidOverride   = errors.New("invalid date override")
)

// ServicesAll marks a template that offers every service.
const ServicesAll = "all"

// TimeRange is a studio-local wall-clock interval inside one day.
type TimeRange struct {
	StartTime string `json:"start_time"` // "10:00"
	EndTime   string `json:"end_time"`   // "18:00"
	IsActive  bool   `json:"is_active"`
}

// Bounds returns the range as minutes since midnight.
func (r TimeRange) Bounds() (start, end int, err error) {
	start, err = ParseClock(r.StartTime)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: start: %v", ErrInvalidTimeRange, err)
	}
	end, err = ParseClock(r.EndTime)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: end: %v", ErrInvalidTimeRange, err)
	}
	return start, end, nil
}

// Validate requires well-formed times and start < end.
func (r TimeRange) Validate() error {
	start, end, err := r.Bounds()
	if err != nil {
		return err
	}
	if start >= end {
		return fmt.Errorf("%w: %s-%s: end must be after start", ErrInvalidTimeRange, r.StartTime, r.EndTime)
	}
	return nil
}

// WeeklyAvailabilityTemplate is an artist's recurring availability for one weekday.
// A disabled template contributes no slots whatever its ranges say.
type WeeklyAvailabilityTemplate struct {
	IsEnabled       bool        `json:"is_enabled"`
	TimeRanges      []TimeRange `json:"time_ranges"`
	ServicesOffered []string    `json:"services_offered"`
}

// Validate checks every range and rejects overlapping active ranges.
func (t WeeklyAvailabilityTemplate) Validate() error {
	type span struct{ start, end int }
	var active []span

	for i, r := range t.TimeRanges {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("time_ranges[%d]: %w", i, err)
		}
		if !r.IsActive {
			continue
		}
		start, end, _ := r.Bounds()
		active = append(active, span{start, end})
	}

	sort.Slice(active, func(i, j int) bool { return active[i].start < active[j].start })
	for i := 1; i < len(active); i++ {
		if active[i].start < active[i-1].end {
			return fmt.Errorf("%w: %s-%s and %s-%s", ErrOverlappingRanges,
				FormatClock(active[i-1].start), FormatClock(active[i-1].end),
				FormatClock(active[i].start), FormatClock(active[i].end))
		}
	}

	for _, s := range t.ServicesOffered {
		if s == ServicesAll && len(t.ServicesOffered) > 1 {
			return fmt.Errorf("services_offered: %q cannot be combined with specific services", ServicesAll)
		}
	}
	return nil
}

// WeeklySchedule is the canonical per-artist availability document: one template per weekday,
// keyed by lowercase day name.
type WeeklySchedule struct {
	ArtistID  string                                `json:"artist_id"`
	Days      map[string]WeeklyAvailabilityTemplate `json:"days"`
	UpdatedAt time.Time                             `json:"updated_at"`
}

// NewWeeklySchedule returns an empty schedule for artistID.
func NewWeeklySchedule(artistID string) *WeeklySchedule {
	return &WeeklySchedule{ArtistID: artistID, Days: make(map[string]WeeklyAvailabilityTemplate)}
}

// Template returns the template for a weekday, if one was ever saved.
func (s *WeeklySchedule) Template(day time.Weekday) (WeeklyAvailabilityTemplate, bool) {
	if s == nil || s.Days == nil {
		return WeeklyAvailabilityTemplate{}, false
	}
	t, ok := s.Days[WeekdayName(day)]
	return t, ok
}

// SetTemplate stores the template for a weekday.
func (s *WeeklySchedule) SetTemplate(day time.Weekday, t WeeklyAvailabilityTemplate) {
	if s.Days == nil {
		s.Days = make(map[string]WeeklyAvailabilityTemplate)
	}
	s.Days[WeekdayName(day)] = t
}

// Validate checks day keys and every template.
func (s *WeeklySchedule) Validate() error {
	if s.ArtistID == "" {
		return fmt.Errorf("artist_id is required")
	}
	for name, t := range s.Days {
		if _, err := ParseWeekday(name); err != nil {
			return err
		}
		if err := t.Validate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// OverrideType is the kind of a date-specific exception.
type OverrideType string

const (
	OverrideAvailable OverrideType = "available"
	OverrideBlocked   OverrideType = "blocked"
)

// CoarseSlots selects which coarse parts of the day an "available" override offers.
type CoarseSlots struct {
	Morning   bool `json:"morning"`
	Afternoon bool `json:"afternoon"`
	Evening   bool `json:"evening"`
}

// Any reports whether at least one coarse slot is selected.
func (c CoarseSlots) Any() bool {
	return c.Morning || c.Afternoon || c.Evening
}

// DateOverride takes precedence over the weekly template for one artist on one date.
// There is at most one override per (artist, date).
type DateOverride struct {
	ID        int64        `json:"id"`
	ArtistID  string       `json:"artist_id"`
	Date      string       `json:"date"` // YYYY-MM-DD
	Type      OverrideType `json:"type"`
	TimeSlots CoarseSlots  `json:"time_slots"`
	Note      string       `json:"note,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Validate checks the key fields and the override type.
func (o *DateOverride) Validate() error {
	if o.ArtistID == "" {
		return fmt.Errorf("%w: artist_id is required", ErrInvalidOverride)
	}
	if _, err := time.Parse(DateLayout, o.Date); err != nil {
		return fmt.Errorf("%w: invalid date %q, expected YYYY-MM-DD", ErrInvalidOverride, o.Date)
	}
	switch o.Type {
	case OverrideBlocked, OverrideAvailable:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidOverride, o.Type)
	}
	return nil
}
