package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"studio/internal/db"
	"studio/internal/manager"
	"studio/internal/model"
	"studio/internal/settings"
	"studio/internal/slots"
)

const testAPIKey = "valid-key"

type ErrorResponse struct {
	Error string `json:"error"`
}

type testServer struct {
	*httptest.Server
	Handler http.Handler
}

// 2030-03-01 is a Friday; 2030-03-04 is the next Monday.
var fixedNow = time.Date(2030, 3, 1, 9, 0, 0, 0, time.UTC)

func setupTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	store, err := db.NewDB(filepath.Join(t.TempDir(), "studio.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	require.NoError(t, store.UpsertArtist(ctx, &model.Artist{ID: "victoria", Name: "Victoria", IsActive: true, SortOrder: 1}))
	require.NoError(t, store.SaveWeeklyTemplate(ctx, "victoria", time.Monday, model.WeeklyAvailabilityTemplate{
		IsEnabled:       true,
		TimeRanges:      []model.TimeRange{{StartTime: "10:00", EndTime: "18:00", IsActive: true}},
		ServicesOffered: []string{model.ServicesAll},
	}))

	computer := slots.NewComputer(store, store, store, time.UTC, zerolog.Nop(),
		slots.WithClock(func() time.Time { return fixedNow }))
	bookings := manager.NewService(store, nil, zerolog.Nop())
	settingsSvc := settings.NewService(store, nil, zerolog.Nop())

	if opts.APIKey == "" {
		opts.APIKey = testAPIKey
	}
	server := NewHTTPServer(opts, computer, store, bookings, settingsSvc, zerolog.Nop())
	handler := server.Handler()
	ts := &testServer{Server: httptest.NewServer(handler), Handler: handler}
	t.Cleanup(ts.Close)
	return ts
}

func (s *testServer) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("x-api-key", testAPIKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestAuth_RequiresAPIKey(t *testing.T) {
	srv := setupTestServer(t, Options{})

	resp, err := http.Get(srv.URL + "/api/artists")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	ok := srv.do(t, http.MethodGet, "/api/artists", nil)
	assert.Equal(t, http.StatusOK, ok.StatusCode)
}

func TestRateLimit_PerIP(t *testing.T) {
	srv := setupTestServer(t, Options{RateLimitRPS: 0.001, RateLimitBurst: 1})

	first := srv.do(t, http.MethodGet, "/api/artists", nil)
	assert.Equal(t, http.StatusOK, first.StatusCode)
	second := srv.do(t, http.MethodGet, "/api/artists", nil)
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)
}

func TestHandleDaySlots_Validation(t *testing.T) {
	srv := setupTestServer(t, Options{})

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantError  string
	}{
		{"missing date", "/api/slots", http.StatusBadRequest, "date is required"},
		{"invalid date", "/api/slots?date=04-03-2030", http.StatusBadRequest, ""},
		{"invalid mode", "/api/slots/next?mode=hourly", http.StatusBadRequest, "mode must be daily or weekend"},
		{"invalid from", "/api/slots/next?from=2030/03/01", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := srv.do(t, http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, decode[ErrorResponse](t, resp).Error)
			}
		})
	}
}

func TestBookingFlow_MarksWindowBooked(t *testing.T) {
	srv := setupTestServer(t, Options{})

	resp := srv.do(t, http.MethodGet, "/api/slots?date=2030-03-04", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	day := decode[model.DayTimeSlots](t, resp)
	require.Len(t, day.TimeSlots, 2)
	assert.True(t, day.HasAvailability)
	assert.Equal(t, 1, day.DayOfWeek)

	create := CreateBookingRequest{
		ClientName: "Anna", ArtistID: "victoria", ServiceName: "brows",
		Date: "2030-03-04", Time: "10:00", Price: 120,
	}
	resp = srv.do(t, http.MethodPost, "/api/bookings", create)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	booking := decode[model.Booking](t, resp)
	assert.NotEmpty(t, booking.ID)
	assert.Equal(t, model.StatusPending, booking.Status)

	resp = srv.do(t, http.MethodPost, "/api/bookings", create)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = srv.do(t, http.MethodGet, "/api/slots?date=2030-03-04", nil)
	day = decode[model.DayTimeSlots](t, resp)
	require.Len(t, day.TimeSlots, 2)
	assert.Equal(t, "10:00", day.TimeSlots[0].Time)
	assert.False(t, day.TimeSlots[0].Available)
	assert.Equal(t, slots.ReasonBooked, day.TimeSlots[0].Reason)
	assert.Equal(t, booking.ID, day.TimeSlots[0].AppointmentID)
	assert.True(t, day.TimeSlots[1].Available)

	// Cancelling frees the window again.
	resp = srv.do(t, http.MethodPatch, "/api/bookings/"+booking.ID+"/status", map[string]string{"status": "cancelled"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = srv.do(t, http.MethodGet, "/api/slots?date=2030-03-04", nil)
	day = decode[model.DayTimeSlots](t, resp)
	assert.True(t, day.TimeSlots[0].Available)
}

func TestBookings_RescheduleAndDelete(t *testing.T) {
	srv := setupTestServer(t, Options{})

	resp := srv.do(t, http.MethodPost, "/api/bookings", CreateBookingRequest{
		ClientName: "Anna", ArtistID: "victoria", ServiceName: "brows", Date: "2030-03-04", Time: "10:00",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	first := decode[model.Booking](t, resp)

	resp = srv.do(t, http.MethodPost, "/api/bookings", CreateBookingRequest{
		ClientName: "Olga", ArtistID: "victoria", ServiceName: "lashes", Date: "2030-03-04", Time: "14:00",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = srv.do(t, http.MethodPatch, "/api/bookings/"+first.ID+"/schedule", map[string]string{"date": "2030-03-04", "time": "14:00"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = srv.do(t, http.MethodPatch, "/api/bookings/"+first.ID+"/schedule", map[string]string{"date": "2030-03-11", "time": "10:00"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "2030-03-11", decode[model.Booking](t, resp).Date)

	resp = srv.do(t, http.MethodGet, "/api/bookings?from=2030-03-01&to=2030-03-31", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[struct {
		Bookings []model.Booking `json:"bookings"`
	}](t, resp)
	assert.Len(t, list.Bookings, 2)

	resp = srv.do(t, http.MethodDelete, "/api/bookings/"+first.ID+"?cascade=true", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = srv.do(t, http.MethodGet, "/api/bookings/"+first.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandleListBookings_Validation(t *testing.T) {
	srv := setupTestServer(t, Options{})

	tests := []struct {
		name      string
		query     string
		wantError string
	}{
		{"no filters", "", "date or from and to are required"},
		{"missing to", "?from=2030-03-01", "date or from and to are required"},
		{"bad date", "?date=2030-3-4", "invalid date format; expected YYYY-MM-DD"},
		{"from after to", "?from=2030-03-10&to=2030-03-01", "from must be before or equal to to"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := srv.do(t, http.MethodGet, "/api/bookings"+tt.query, nil)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.wantError, decode[ErrorResponse](t, resp).Error)
		})
	}
}

func TestHandleCreateBooking_Invalid(t *testing.T) {
	srv := setupTestServer(t, Options{})

	resp := srv.do(t, http.MethodPost, "/api/bookings", map[string]any{"client_name": "Anna", "unknown": 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = srv.do(t, http.MethodPost, "/api/bookings", CreateBookingRequest{
		ClientName: "Anna", ArtistID: "victoria", ServiceName: "brows", Date: "2030-03-04", Time: "25:00",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = srv.do(t, http.MethodPost, "/api/bookings", CreateBookingRequest{
		ClientName: "Anna", ArtistID: "victoria", ServiceName: "brows", Date: "2030-03-04", Time: "10:00", Status: "archived",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestNextAvailable(t *testing.T) {
	srv := setupTestServer(t, Options{})

	resp := srv.do(t, http.MethodGet, "/api/slots/next", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	next := decode[NextAvailableResponse](t, resp)
	assert.True(t, next.Found)
	assert.Equal(t, "2030-03-04", next.Date)
	assert.Len(t, next.TimeSlots, 2)

	// Only Mondays are configured, so no weekend window exists.
	resp = srv.do(t, http.MethodGet, "/api/slots/next?mode=weekend", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decode[NextAvailableResponse](t, resp).Found)
}

func TestOverrides_BlockAndRestore(t *testing.T) {
	srv := setupTestServer(t, Options{})

	resp := srv.do(t, http.MethodPut, "/api/artists/victoria/overrides/2030-03-04", OverrideRequest{Type: model.OverrideBlocked, Note: "vacation"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	saved := decode[model.DateOverride](t, resp)
	assert.NotZero(t, saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())
	assert.False(t, saved.UpdatedAt.IsZero())
	assert.Equal(t, "vacation", saved.Note)

	resp = srv.do(t, http.MethodGet, "/api/slots?date=2030-03-04", nil)
	day := decode[model.DayTimeSlots](t, resp)
	assert.Empty(t, day.TimeSlots)
	assert.False(t, day.HasAvailability)

	// An available override on a day without a template offers the coarse windows.
	resp = srv.do(t, http.MethodPut, "/api/artists/victoria/overrides/2030-03-05", OverrideRequest{
		Type: model.OverrideAvailable, TimeSlots: model.CoarseSlots{Morning: true, Evening: true},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = srv.do(t, http.MethodGet, "/api/slots?date=2030-03-05", nil)
	day = decode[model.DayTimeSlots](t, resp)
	require.Len(t, day.TimeSlots, 2)
	assert.Equal(t, "10:00", day.TimeSlots[0].Time)
	assert.Equal(t, 180, day.TimeSlots[0].DurationMinutes)
	assert.Equal(t, "16:00", day.TimeSlots[1].Time)

	resp = srv.do(t, http.MethodGet, "/api/artists/victoria/overrides?from=2030-03-01&to=2030-03-31", nil)
	list := decode[struct {
		Overrides []model.DateOverride `json:"overrides"`
	}](t, resp)
	assert.Len(t, list.Overrides, 2)

	resp = srv.do(t, http.MethodDelete, "/api/artists/victoria/overrides/2030-03-04", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = srv.do(t, http.MethodGet, "/api/slots?date=2030-03-04", nil)
	assert.Len(t, decode[model.DayTimeSlots](t, resp).TimeSlots, 2)

	resp = srv.do(t, http.MethodPut, "/api/artists/victoria/overrides/2030-03-06", OverrideRequest{Type: "maybe"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = srv.do(t, http.MethodPut, "/api/artists/victoria/overrides/2030-03-06", OverrideRequest{Type: model.OverrideAvailable})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decode[ErrorResponse](t, resp).Error, "at least one of morning")
	resp = srv.do(t, http.MethodPut, "/api/artists/ghost/overrides/2030-03-06", OverrideRequest{Type: model.OverrideBlocked})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWeekly_GetAndPut(t *testing.T) {
	srv := setupTestServer(t, Options{})

	resp := srv.do(t, http.MethodGet, "/api/artists/ghost/weekly", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	body := map[string]any{
		"days": map[string]any{
			"tuesday": map[string]any{
				"is_enabled":       true,
				"time_ranges":      []map[string]any{{"start_time": "12:00", "end_time": "20:00", "is_active": true}},
				"services_offered": []string{"all"},
			},
		},
	}
	resp = srv.do(t, http.MethodPut, "/api/artists/victoria/weekly", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = srv.do(t, http.MethodGet, "/api/artists/victoria/weekly", nil)
	sched := decode[model.WeeklySchedule](t, resp)
	_, hasMonday := sched.Template(time.Monday)
	assert.False(t, hasMonday)
	tue, ok := sched.Template(time.Tuesday)
	require.True(t, ok)
	assert.Equal(t, "12:00", tue.TimeRanges[0].StartTime)

	resp = srv.do(t, http.MethodGet, "/api/slots?date=2030-03-05", nil)
	day := decode[model.DayTimeSlots](t, resp)
	require.Len(t, day.TimeSlots, 2)
	assert.Equal(t, "12:00", day.TimeSlots[0].Time)

	overlap := map[string]any{
		"days": map[string]any{
			"friday": map[string]any{
				"is_enabled": true,
				"time_ranges": []map[string]any{
					{"start_time": "10:00", "end_time": "14:00", "is_active": true},
					{"start_time": "12:00", "end_time": "16:00", "is_active": true},
				},
			},
		},
	}
	resp = srv.do(t, http.MethodPut, "/api/artists/victoria/weekly", overlap)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = srv.do(t, http.MethodPut, "/api/artists/victoria/weekly", map[string]any{"days": map[string]any{"funday": map[string]any{}}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSettings_GetAndPut(t *testing.T) {
	srv := setupTestServer(t, Options{})

	resp := srv.do(t, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.DefaultBusinessSettings().StudioName, decode[model.BusinessSettings](t, resp).StudioName)

	resp = srv.do(t, http.MethodPut, "/api/settings", model.BusinessSettings{StudioName: ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = srv.do(t, http.MethodPut, "/api/settings", model.BusinessSettings{
		StudioName: "Brow Bar", Timezone: "UTC", Currency: "RUB", DefaultDeposit: 1000,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = srv.do(t, http.MethodGet, "/api/settings", nil)
	got := decode[model.BusinessSettings](t, resp)
	assert.Equal(t, "Brow Bar", got.StudioName)
	assert.Equal(t, "RUB", got.Currency)
}

func TestExportBookings(t *testing.T) {
	srv := setupTestServer(t, Options{})

	resp := srv.do(t, http.MethodGet, "/api/bookings/export?month=March", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = srv.do(t, http.MethodPost, "/api/bookings", CreateBookingRequest{
		ClientName: "Anna", ArtistID: "victoria", ServiceName: "brows", Date: "2030-03-04", Time: "10:00", Price: 100,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = srv.do(t, http.MethodGet, "/api/bookings/export?month=2030-03", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "bookings_2030-03.xlsx")

	f, err := excelize.OpenReader(resp.Body)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "Summary")
}
