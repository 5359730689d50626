package models

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending     BookingStatus = "pending"
	BookingConfirmed   BookingStatus = "confirmed"
	BookingRescheduled BookingStatus = "rescheduled"
	BookingCancelled   BookingStatus = "cancelled"
	BookingCompleted   BookingStatus = "completed"
)

// OccupyingStatuses hold their (date, time) slot against other bookings.
var OccupyingStatuses = []BookingStatus{BookingConfirmed, BookingRescheduled}

// Valid reports whether s is a declared status.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingRescheduled, BookingCancelled, BookingCompleted:
		return true
	}
	return false
}

// Occupies reports whether a booking in this status reserves its slot.
func (s BookingStatus) Occupies() bool {
	return s == BookingConfirmed || s == BookingRescheduled
}

// Terminal reports whether no further transition is possible.
func (s BookingStatus) Terminal() bool {
	return s == BookingCancelled || s == BookingCompleted
}

// Booking is a reserved consultation slot.
type Booking struct {
	ID        string        `db:"id" json:"id"`
	Name      string        `db:"name" json:"name"`
	Email     string        `db:"email" json:"email"`
	Service   string        `db:"service" json:"service"`
	Date      Date          `db:"date" json:"date" swaggertype:"string" example:"2025-06-02"`
	Time      string        `db:"time" json:"time" example:"09:30"`
	Status    BookingStatus `db:"status" json:"status"`
	Timezone  string        `db:"timezone" json:"timezone"`
	Notes     *string       `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

// BookingFilter narrows the admin booking list.
type BookingFilter struct {
	Status   *BookingStatus
	From     *Date
	To       *Date
	Email    string
	Page     int
	PageSize int
}
