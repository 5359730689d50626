package models

import "time"

// BookingEventType names a booking lifecycle event.
type BookingEventType string

const (
	EventBookingConfirmation BookingEventType = "booking.confirmation"
	EventBookingAdminNotice  BookingEventType = "booking.admin_notice"
	EventBookingCancelled    BookingEventType = "booking.cancelled"
	EventBookingRescheduled  BookingEventType = "booking.rescheduled"
	EventBookingStatus       BookingEventType = "booking.status_updated"
)

// BookingEvent is handed to the notification collaborator.
type BookingEvent struct {
	Type       BookingEventType `json:"type"`
	BookingID  string           `json:"booking_id"`
	Name       string           `json:"name"`
	Email      string           `json:"email"`
	Recipient  string           `json:"recipient"`
	Service    string           `json:"service,omitempty"`
	Date       string           `json:"date"`
	Time       string           `json:"time"`
	Timezone   string           `json:"timezone,omitempty"`
	Status     BookingStatus    `json:"status"`
	OldDate    string           `json:"old_date,omitempty"`
	OldTime    string           `json:"old_time,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}
