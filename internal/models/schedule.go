package models

import "time"

// WorkingHoursRule is the active opening window for one weekday.
type WorkingHoursRule struct {
	ID        string    `db:"id" json:"id"`
	DayOfWeek int       `db:"day_of_week" json:"day_of_week"`
	StartTime string    `db:"start_time" json:"start_time" example:"09:00"`
	EndTime   string    `db:"end_time" json:"end_time" example:"17:00"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Hours is a working window expressed in whole hours.
type Hours struct {
	Start int `json:"start_hour"`
	End   int `json:"end_hour"`
}

// BlockedDate removes an entire calendar day from availability.
type BlockedDate struct {
	ID        string    `db:"id" json:"id"`
	Date      Date      `db:"date" json:"date" swaggertype:"string" example:"2025-12-25"`
	Reason    *string   `db:"reason" json:"reason,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// BlockedSlot removes a single time slot on a calendar day.
type BlockedSlot struct {
	ID        string    `db:"id" json:"id"`
	Date      Date      `db:"date" json:"date" swaggertype:"string" example:"2025-06-02"`
	TimeSlot  string    `db:"time_slot" json:"time_slot" example:"10:00"`
	Reason    *string   `db:"reason" json:"reason,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Slot is one entry of a resolved availability grid.
type Slot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// Availability is the resolved grid for a date.
type Availability struct {
	Date     Date   `json:"date" swaggertype:"string"`
	Slots    []Slot `json:"slots"`
	Degraded bool   `json:"-"`
	Cached   bool   `json:"-"`
}
