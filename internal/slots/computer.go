package slots

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"studio/internal/metrics"
	"studio/internal/model"
)

var (
	// ErrStoreUnavailable means no meaningful partial result could be computed.
	ErrStoreUnavailable = errors.New("availability store unavailable")
	ErrInvalidDate      = errors.New("invalid date, expected YYYY-MM-DD")
)

const (
	// DailyHorizonDays bounds the next-available scan.
	DailyHorizonDays = 30
	// WeekendHorizonDays bounds the weekend-only scan.
	WeekendHorizonDays = 60

	ReasonBooked = "Booked"
)

// ArtistDirectory lists the artists whose availability is considered.
type ArtistDirectory interface {
	ListActiveArtists(ctx context.Context) ([]model.Artist, error)
}

// AvailabilityStore returns nil (not an error) for an absent template or override.
type AvailabilityStore interface {
	GetWeeklyTemplate(ctx context.Context, artistID string, day time.Weekday) (*model.WeeklyAvailabilityTemplate, error)
	GetDateOverride(ctx context.Context, artistID, date string) (*model.DateOverride, error)
}

// BookingLedger returns the bookings that hold a slot on a date. Cancelled bookings are
// expected to be filtered out by the implementation.
type BookingLedger interface {
	GetBookingsForDate(ctx context.Context, date string) ([]model.Booking, error)
}

// Computer derives bookable windows from weekly templates, date overrides and existing bookings.
// It holds no mutable state and is safe for concurrent use.
type Computer struct {
	artists ArtistDirectory
	store   AvailabilityStore
	ledger  BookingLedger
	loc     *time.Location
	now     func() time.Time
	logger  zerolog.Logger
}

type Option func(*Computer)

// WithClock overrides the time source used to resolve "today".
func WithClock(now func() time.Time) Option {
	return func(c *Computer) { c.now = now }
}

func NewComputer(artists ArtistDirectory, store AvailabilityStore, ledger BookingLedger, loc *time.Location, logger zerolog.Logger, opts ...Option) *Computer {
	if loc == nil {
		loc = time.Local
	}
	c := &Computer{
		artists: artists,
		store:   store,
		ledger:  ledger,
		loc:     loc,
		now:     time.Now,
		logger:  logger.With().Str("component", "slots").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type candidate struct {
	window
	artist model.Artist
}

// DaySlots computes every window for date across all active artists.
// A failing artist is skipped and listed in SkippedArtists; only a failure that leaves no
// meaningful result returns ErrStoreUnavailable.
func (c *Computer) DaySlots(ctx context.Context, date string) (*model.DayTimeSlots, error) {
	day, err := model.ParseDate(date, c.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	result, err := c.daySlots(ctx, day)
	switch {
	case err != nil:
		metrics.IncSlotComputation("error")
	case len(result.SkippedArtists) > 0:
		metrics.IncSlotComputation("partial")
	default:
		metrics.IncSlotComputation("ok")
	}
	return result, err
}

func (c *Computer) daySlots(ctx context.Context, day time.Time) (*model.DayTimeSlots, error) {
	date := day.Format(model.DateLayout)
	weekday := day.Weekday()

	artists, err := c.artists.ListActiveArtists(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list artists: %v", ErrStoreUnavailable, err)
	}

	result := &model.DayTimeSlots{
		Date:      date,
		DayOfWeek: int(weekday),
		TimeSlots: []model.TimeSlot{},
	}

	var candidates []candidate
	for _, a := range artists {
		windows, err := c.windowsFor(ctx, a.ID, date, weekday)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn().Err(err).Str("artist_id", a.ID).Str("date", date).Msg("skipping artist")
			metrics.IncArtistFetchFailure()
			result.SkippedArtists = append(result.SkippedArtists, a.ID)
			continue
		}
		for _, w := range windows {
			candidates = append(candidates, candidate{window: w, artist: a})
		}
	}

	if len(artists) > 0 && len(result.SkippedArtists) == len(artists) {
		return nil, fmt.Errorf("%w: every artist failed for %s", ErrStoreUnavailable, date)
	}
	if len(candidates) == 0 {
		return result, nil
	}

	bookings, err := c.ledger.GetBookingsForDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("%w: bookings for %s: %v", ErrStoreUnavailable, date, err)
	}
	booked := c.bookingIndex(bookings)

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].start < candidates[j].start
	})

	for _, cand := range candidates {
		slot := model.TimeSlot{
			Time:            model.FormatClock(cand.start),
			DurationMinutes: cand.duration,
			Available:       true,
			ArtistID:        cand.artist.ID,
			ArtistName:      cand.artist.Name,
		}
		if id, ok := booked[slotKey{artistID: cand.artist.ID, start: cand.start}]; ok {
			slot.Available = false
			slot.Reason = ReasonBooked
			slot.AppointmentID = id
		}
		if slot.Available {
			result.HasAvailability = true
		}
		result.TimeSlots = append(result.TimeSlots, slot)
	}

	return result, nil
}

func (c *Computer) windowsFor(ctx context.Context, artistID, date string, weekday time.Weekday) ([]window, error) {
	override, err := c.store.GetDateOverride(ctx, artistID, date)
	if err != nil {
		return nil, fmt.Errorf("date override: %w", err)
	}
	if override != nil {
		return artistWindows(nil, override), nil
	}

	tpl, err := c.store.GetWeeklyTemplate(ctx, artistID, weekday)
	if err != nil {
		return nil, fmt.Errorf("weekly template: %w", err)
	}
	return artistWindows(tpl, nil), nil
}

type slotKey struct {
	artistID string
	start    int
}

// bookingIndex maps (artist, start minute) to the first booking holding it.
func (c *Computer) bookingIndex(bookings []model.Booking) map[slotKey]string {
	index := make(map[slotKey]string, len(bookings))
	for i := range bookings {
		b := &bookings[i]
		start, err := b.StartMinutes()
		if err != nil {
			c.logger.Warn().Err(err).Str("booking_id", b.ID).Msg("booking has unparseable time")
			continue
		}
		key := slotKey{artistID: b.ArtistID, start: start}
		if _, ok := index[key]; !ok {
			index[key] = b.ID
		}
	}
	return index
}

// NextAvailableDate scans the days after from (today when empty) up to DailyHorizonDays and
// returns the first date with a free window. It returns nil, nil when nothing is free.
func (c *Computer) NextAvailableDate(ctx context.Context, from string) (*model.NextAvailable, error) {
	return c.scan(ctx, from, DailyHorizonDays, "daily", nil)
}

// NextWeekendSlot is NextAvailableDate restricted to Saturdays and Sundays within WeekendHorizonDays.
func (c *Computer) NextWeekendSlot(ctx context.Context, from string) (*model.NextAvailable, error) {
	return c.scan(ctx, from, WeekendHorizonDays, "weekend", func(d time.Weekday) bool {
		return d == time.Saturday || d == time.Sunday
	})
}

func (c *Computer) scan(ctx context.Context, from string, horizon int, mode string, include func(time.Weekday) bool) (*model.NextAvailable, error) {
	start, err := c.resolveFrom(from)
	if err != nil {
		metrics.IncNextAvailableScan(mode, "error")
		return nil, err
	}

	for i := 1; i <= horizon; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		day := start.AddDate(0, 0, i)
		if include != nil && !include(day.Weekday()) {
			continue
		}

		result, err := c.DaySlots(ctx, day.Format(model.DateLayout))
		if err != nil {
			metrics.IncNextAvailableScan(mode, "error")
			return nil, err
		}
		if result.HasAvailability {
			metrics.IncNextAvailableScan(mode, "found")
			return &model.NextAvailable{Date: result.Date, TimeSlots: result.AvailableSlots()}, nil
		}
	}

	metrics.IncNextAvailableScan(mode, "exhausted")
	return nil, nil
}

func (c *Computer) resolveFrom(from string) (time.Time, error) {
	if from == "" {
		return model.StartOfDay(c.now().In(c.loc)), nil
	}
	d, err := model.ParseDate(from, c.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, from)
	}
	return d, nil
}
