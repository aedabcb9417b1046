// Package migrate converts exported legacy availability documents into the canonical schema.
// Legacy exports mix two document shapes and several field spellings; everything is resolved
// here once so the rest of the service reads a single shape.
package migrate

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"studio/internal/model"
)

// Export is the top-level layout of a legacy JSON dump.
type Export struct {
	Artists      []json.RawMessage `json:"artists"`
	Availability []json.RawMessage `json:"availability"`
	Overrides    []json.RawMessage `json:"dateOverrides"`
}

// Result is the normalized content of an export.
type Result struct {
	Artists   []model.Artist
	Schedules []*model.WeeklySchedule
	Overrides []model.DateOverride
	Warnings  []string
}

type legacyArtist struct {
	ID          string `json:"id"`
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	Name        string `json:"name"`
	Profile     struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	} `json:"profile"`
	IsActive  *bool `json:"isActive"`
	SortOrder int   `json:"sortOrder"`
}

type legacyRange struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Start     string `json:"start"`
	End       string `json:"end"`
	IsActive  *bool  `json:"isActive"`
}

type legacyDay struct {
	IsEnabled       *bool         `json:"isEnabled"`
	Enabled         *bool         `json:"enabled"`
	TimeRanges      []legacyRange `json:"timeRanges"`
	TimeSlots       []legacyRange `json:"timeSlots"`
	ServicesOffered []string      `json:"servicesOffered"`
}

// legacyAvailability covers both shapes: a per-weekday document (DayOfWeek set, day fields
// inline) and a per-artist document with a day map.
type legacyAvailability struct {
	ArtistID  string               `json:"artistId"`
	DayOfWeek json.RawMessage      `json:"dayOfWeek"`
	Days      map[string]legacyDay `json:"days"`
	Schedule  map[string]legacyDay `json:"schedule"`
	legacyDay
}

type legacyOverride struct {
	ArtistID  string            `json:"artistId"`
	Date      string            `json:"date"`
	Type      string            `json:"type"`
	TimeSlots model.CoarseSlots `json:"timeSlots"`
	Note      string            `json:"note"`
}

// Parse reads a legacy export.
func Parse(data []byte) (*Export, error) {
	var e Export
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode export: %w", err)
	}
	return &e, nil
}

// Normalize converts an export into canonical records. Records that cannot be interpreted are
// skipped and reported in Warnings; invalid schedules are rejected the same way the API rejects them.
func Normalize(e *Export) *Result {
	res := &Result{}

	for i, raw := range e.Artists {
		var la legacyArtist
		if err := json.Unmarshal(raw, &la); err != nil {
			res.warnf("artists[%d]: %v", i, err)
			continue
		}
		a, ok := la.normalize()
		if !ok {
			res.warnf("artists[%d]: missing id", i)
			continue
		}
		if a.SortOrder == 0 {
			a.SortOrder = i + 1
		}
		res.Artists = append(res.Artists, a)
	}

	schedules := make(map[string]*model.WeeklySchedule)
	for i, raw := range e.Availability {
		var la legacyAvailability
		if err := json.Unmarshal(raw, &la); err != nil {
			res.warnf("availability[%d]: %v", i, err)
			continue
		}
		if la.ArtistID == "" {
			res.warnf("availability[%d]: missing artistId", i)
			continue
		}
		s := schedules[la.ArtistID]
		if s == nil {
			s = model.NewWeeklySchedule(la.ArtistID)
			schedules[la.ArtistID] = s
		}
		if err := la.mergeInto(s); err != nil {
			res.warnf("availability[%d]: %v", i, err)
		}
	}

	ids := make([]string, 0, len(schedules))
	for id := range schedules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		s := schedules[id]
		if err := s.Validate(); err != nil {
			res.warnf("schedule %s: %v", id, err)
			continue
		}
		res.Schedules = append(res.Schedules, s)
	}

	// Later saves for the same artist and date replace earlier ones.
	seen := make(map[string]int)
	for i, raw := range e.Overrides {
		var lo legacyOverride
		if err := json.Unmarshal(raw, &lo); err != nil {
			res.warnf("dateOverrides[%d]: %v", i, err)
			continue
		}
		o := model.DateOverride{
			ArtistID:  lo.ArtistID,
			Date:      lo.Date,
			Type:      model.OverrideType(strings.ToLower(lo.Type)),
			TimeSlots: lo.TimeSlots,
			Note:      lo.Note,
		}
		if err := o.Validate(); err != nil {
			res.warnf("dateOverrides[%d]: %v", i, err)
			continue
		}
		key := o.ArtistID + "|" + o.Date
		if idx, ok := seen[key]; ok {
			res.Overrides[idx] = o
			continue
		}
		seen[key] = len(res.Overrides)
		res.Overrides = append(res.Overrides, o)
	}

	return res
}

func (r *Result) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (la *legacyArtist) normalize() (model.Artist, bool) {
	id := la.ID
	if id == "" {
		id = la.UID
	}
	if id == "" {
		return model.Artist{}, false
	}
	active := true
	if la.IsActive != nil {
		active = *la.IsActive
	}
	return model.Artist{
		ID:        id,
		Name:      la.displayName(id),
		IsActive:  active,
		SortOrder: la.SortOrder,
	}, true
}

// displayName resolves the name from displayName, then name, then profile first/last name.
func (la *legacyArtist) displayName(fallback string) string {
	if n := strings.TrimSpace(la.DisplayName); n != "" {
		return n
	}
	if n := strings.TrimSpace(la.Name); n != "" {
		return n
	}
	if n := strings.TrimSpace(la.Profile.FirstName + " " + la.Profile.LastName); n != "" {
		return n
	}
	return fallback
}

func (la *legacyAvailability) mergeInto(s *model.WeeklySchedule) error {
	days := la.Days
	if days == nil {
		days = la.Schedule
	}
	for name, d := range days {
		wd, err := model.ParseWeekday(name)
		if err != nil {
			return err
		}
		s.SetTemplate(wd, d.template())
	}

	if len(la.DayOfWeek) == 0 {
		if days == nil {
			return fmt.Errorf("document has neither dayOfWeek nor a day map")
		}
		return nil
	}
	wd, err := parseDayOfWeek(la.DayOfWeek)
	if err != nil {
		return err
	}
	s.SetTemplate(wd, la.legacyDay.template())
	return nil
}

// parseDayOfWeek accepts a day name or a 0-6 number, quoted or not.
func parseDayOfWeek(raw json.RawMessage) (time.Weekday, error) {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return model.ParseWeekday(name)
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("invalid dayOfWeek %s", string(raw))
	}
	return model.ParseWeekday(fmt.Sprint(n))
}

func (d legacyDay) template() model.WeeklyAvailabilityTemplate {
	enabled := false
	switch {
	case d.IsEnabled != nil:
		enabled = *d.IsEnabled
	case d.Enabled != nil:
		enabled = *d.Enabled
	}

	ranges := d.TimeRanges
	if len(ranges) == 0 {
		ranges = d.TimeSlots
	}

	t := model.WeeklyAvailabilityTemplate{
		IsEnabled:       enabled,
		ServicesOffered: d.ServicesOffered,
	}
	if len(t.ServicesOffered) == 0 {
		t.ServicesOffered = []string{model.ServicesAll}
	}
	for _, r := range ranges {
		tr := model.TimeRange{StartTime: r.StartTime, EndTime: r.EndTime, IsActive: true}
		if tr.StartTime == "" {
			tr.StartTime = r.Start
		}
		if tr.EndTime == "" {
			tr.EndTime = r.End
		}
		if r.IsActive != nil {
			tr.IsActive = *r.IsActive
		}
		t.TimeRanges = append(t.TimeRanges, tr)
	}
	return t
}
