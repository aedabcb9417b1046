package model

import "time"

// BusinessSettings stores studio-wide preferences edited from the admin console.
type BusinessSettings struct {
	StudioName      string    `json:"studio_name"`
	Timezone        string    `json:"timezone"`
	Currency        string    `json:"currency"`
	DefaultDeposit  float64   `json:"default_deposit"`
	BookingLeadDays int       `json:"booking_lead_days"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DefaultBusinessSettings is returned when nothing has been saved yet.
func DefaultBusinessSettings() *BusinessSettings {
	return &BusinessSettings{
		StudioName:      "Studio",
		Timezone:        "Local",
		Currency:        "USD",
		DefaultDeposit:  50,
		BookingLeadDays: 1,
	}
}
