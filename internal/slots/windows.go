package slots

import (
	"studio/internal/model"
)

// WindowMinutes is the fixed appointment length. Every template range is cut into windows of this size.
const WindowMinutes = 240

// coarseWindow is one of the fixed parts of the day an "available" override can offer.
type coarseWindow struct {
	start, end int
}

var (
	morningWindow   = coarseWindow{start: 10 * 60, end: 13 * 60}
	afternoonWindow = coarseWindow{start: 13 * 60, end: 16 * 60}
	eveningWindow   = coarseWindow{start: 16 * 60, end: 19 * 60}
)

// window is a candidate slot before bookings are applied.
type window struct {
	start    int // minutes since midnight
	duration int
}

// expandRange cuts an active range into back-to-back windows starting at its start time.
// A trailing remainder shorter than WindowMinutes is dropped.
func expandRange(r model.TimeRange) []window {
	if !r.IsActive {
		return nil
	}
	start, end, err := r.Bounds()
	if err != nil {
		return nil
	}

	var out []window
	for cursor := start; cursor+WindowMinutes <= end; cursor += WindowMinutes {
		out = append(out, window{start: cursor, duration: WindowMinutes})
	}
	return out
}

// expandTemplate returns the template's windows, de-duplicated by start time.
// The first range that produces a start time wins.
func expandTemplate(t *model.WeeklyAvailabilityTemplate) []window {
	if t == nil || !t.IsEnabled {
		return nil
	}

	seen := make(map[int]struct{})
	var out []window
	for _, r := range t.TimeRanges {
		for _, w := range expandRange(r) {
			if _, dup := seen[w.start]; dup {
				continue
			}
			seen[w.start] = struct{}{}
			out = append(out, w)
		}
	}
	return out
}

// expandOverride returns the windows for the coarse slots an "available" override names.
func expandOverride(o *model.DateOverride) []window {
	if o == nil || o.Type != model.OverrideAvailable {
		return nil
	}

	var out []window
	add := func(on bool, cw coarseWindow) {
		if on {
			out = append(out, window{start: cw.start, duration: cw.end - cw.start})
		}
	}
	add(o.TimeSlots.Morning, morningWindow)
	add(o.TimeSlots.Afternoon, afternoonWindow)
	add(o.TimeSlots.Evening, eveningWindow)
	return out
}

// artistWindows applies override precedence: blocked gives nothing, available gives the
// coarse windows, and no override falls back to the weekly template.
func artistWindows(tpl *model.WeeklyAvailabilityTemplate, o *model.DateOverride) []window {
	if o != nil {
		switch o.Type {
		case model.OverrideBlocked:
			return nil
		case model.OverrideAvailable:
			return expandOverride(o)
		}
	}
	return expandTemplate(tpl)
}
