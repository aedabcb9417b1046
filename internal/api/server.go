package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"studio/internal/db"
	"studio/internal/manager"
	"studio/internal/metrics"
	"studio/internal/model"
	"studio/internal/settings"
	"studio/internal/slots"
)

// SlotComputer answers availability questions.
type SlotComputer interface {
	DaySlots(ctx context.Context, date string) (*model.DayTimeSlots, error)
	NextAvailableDate(ctx context.Context, from string) (*model.NextAvailable, error)
	NextWeekendSlot(ctx context.Context, from string) (*model.NextAvailable, error)
}

// AvailabilityStore is the admin-facing side of artist availability.
type AvailabilityStore interface {
	ListActiveArtists(ctx context.Context) ([]model.Artist, error)
	GetArtist(ctx context.Context, id string) (*model.Artist, error)
	GetWeeklySchedule(ctx context.Context, artistID string) (*model.WeeklySchedule, error)
	SaveWeeklySchedule(ctx context.Context, s *model.WeeklySchedule) error
	GetDateOverride(ctx context.Context, artistID, date string) (*model.DateOverride, error)
	ListDateOverrides(ctx context.Context, artistID, from, to string) ([]model.DateOverride, error)
	SaveDateOverride(ctx context.Context, o *model.DateOverride) error
	DeleteDateOverride(ctx context.Context, artistID, date string) error
}

// BookingManager administers bookings.
type BookingManager interface {
	ListBookings(ctx context.Context, date, from, to string) ([]model.Booking, error)
	GetBooking(ctx context.Context, id string) (*model.Booking, error)
	CreateBooking(ctx context.Context, b *model.Booking) error
	UpdateStatus(ctx context.Context, id, status string) (*model.Booking, error)
	RescheduleBooking(ctx context.Context, id, date, clock string) (*model.Booking, error)
	DeleteBooking(ctx context.Context, id string, cascade bool) error
}

// SettingsService reads and writes business settings.
type SettingsService interface {
	Get(ctx context.Context) (*model.BusinessSettings, error)
	Save(ctx context.Context, s *model.BusinessSettings) error
}

// Options configures the HTTP server.
type Options struct {
	Port           int
	APIKey         string
	RateLimitRPS   float64
	RateLimitBurst int
}

// HTTPServer exposes the studio admin API.
type HTTPServer struct {
	server       *http.Server
	slots        SlotComputer
	availability AvailabilityStore
	bookings     BookingManager
	settings     SettingsService
	apiKey       string
	limiters     *limiterStore
	logger       zerolog.Logger
}

func NewHTTPServer(
	opts Options,
	slotComputer SlotComputer,
	availability AvailabilityStore,
	bookings BookingManager,
	settingsSvc SettingsService,
	logger zerolog.Logger,
) *HTTPServer {
	s := &HTTPServer{
		slots:        slotComputer,
		availability: availability,
		bookings:     bookings,
		settings:     settingsSvc,
		apiKey:       opts.APIKey,
		limiters:     newLimiterStore(opts.RateLimitRPS, opts.RateLimitBurst),
		logger:       logger.With().Str("component", "api").Logger(),
	}

	mux := http.NewServeMux()
	s.route(mux, "GET /api/slots", "slots", s.handleDaySlots)
	s.route(mux, "GET /api/slots/next", "slots_next", s.handleNextAvailable)

	s.route(mux, "GET /api/artists", "artists", s.handleListArtists)
	s.route(mux, "GET /api/artists/{id}/weekly", "weekly_get", s.handleGetWeekly)
	s.route(mux, "PUT /api/artists/{id}/weekly", "weekly_put", s.handlePutWeekly)
	s.route(mux, "GET /api/artists/{id}/overrides", "overrides_list", s.handleListOverrides)
	s.route(mux, "PUT /api/artists/{id}/overrides/{date}", "override_put", s.handlePutOverride)
	s.route(mux, "DELETE /api/artists/{id}/overrides/{date}", "override_delete", s.handleDeleteOverride)

	s.route(mux, "GET /api/bookings", "bookings_list", s.handleListBookings)
	s.route(mux, "POST /api/bookings", "bookings_create", s.handleCreateBooking)
	s.route(mux, "GET /api/bookings/export", "bookings_export", s.handleExportBookings)
	s.route(mux, "GET /api/bookings/{id}", "booking_get", s.handleGetBooking)
	s.route(mux, "PATCH /api/bookings/{id}/status", "booking_status", s.handleBookingStatus)
	s.route(mux, "PATCH /api/bookings/{id}/schedule", "booking_reschedule", s.handleReschedule)
	s.route(mux, "DELETE /api/bookings/{id}", "booking_delete", s.handleDeleteBooking)

	s.route(mux, "GET /api/settings", "settings_get", s.handleGetSettings)
	s.route(mux, "PUT /api/settings", "settings_put", s.handlePutSettings)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           s.rateLimit(s.auth(mux)),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return s
}

// Handler returns the root handler with middleware applied.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until Shutdown is called.
func (s *HTTPServer) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("api server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// route registers a handler and counts requests per endpoint and status code.
func (s *HTTPServer) route(mux *http.ServeMux, pattern, endpoint string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		metrics.IncHTTPRequest(endpoint, strconv.Itoa(rec.status))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// auth requires the x-api-key header when a key is configured.
func (s *HTTPServer) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" && r.Header.Get("x-api-key") != s.apiKey {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !s.limiters.get(ip).Allow() {
			s.logger.Warn().Str("ip", ip).Msg("rate limit exceeded")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// limiterStore holds one token bucket per client IP.
type limiterStore struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

func newLimiterStore(rps float64, burst int) *limiterStore {
	if rps <= 0 {
		rps = 20
	}
	if burst <= 0 {
		burst = 40
	}
	return &limiterStore{limiters: make(map[string]*rate.Limiter), rps: rate.Limit(rps), burst: burst}
}

func (l *limiterStore) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[ip]
	if !ok {
		lim = rate.NewLimiter(l.rps, l.burst)
		l.limiters[ip] = lim
	}
	return lim
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps domain errors to HTTP status codes.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, manager.ErrSlotTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, slots.ErrInvalidDate),
		errors.Is(err, manager.ErrInvalidBooking),
		errors.Is(err, settings.ErrInvalidSettings),
		errors.Is(err, model.ErrInvalidStatus),
		errors.Is(err, model.ErrInvalidTimeRange),
		errors.Is(err, model.ErrOverlappingRanges),
		errors.Is(err, model.ErrInvalidOverride):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, slots.ErrStoreUnavailable):
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("store unavailable")
		writeError(w, http.StatusServiceUnavailable, "availability store unavailable")
	default:
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func validDate(s string) bool {
	_, err := time.Parse(model.DateLayout, s)
	return err == nil
}
