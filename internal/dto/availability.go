package dto

import "github.com/noah-isme/elevate-booking-api/internal/models"

// AvailabilityResponse lists the slot grid for a date.
type AvailabilityResponse struct {
	Date  string        `json:"date" example:"2025-06-02"`
	Slots []models.Slot `json:"slots"`
}

// BlockedDatesResponse lists blocked dates inside the booking window.
type BlockedDatesResponse struct {
	Dates []string `json:"dates"`
}

// WorkingDay describes the public opening hours of one weekday.
type WorkingDay struct {
	Day       int    `json:"day"`
	StartTime string `json:"start_time" example:"09:00"`
	EndTime   string `json:"end_time" example:"17:00"`
}

// WorkingDaysResponse lists the weekdays currently open for booking.
type WorkingDaysResponse struct {
	Days []WorkingDay `json:"days"`
}
