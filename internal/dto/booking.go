package dto

// CreateBookingRequest is the public booking form. Fields are checked by the
// booking service so each failure surfaces its own error code.
type CreateBookingRequest struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Date     string  `json:"date" example:"2025-06-02"`
	Time     string  `json:"time" example:"09:30"`
	Timezone string  `json:"timezone,omitempty" example:"Asia/Jakarta"`
	Service  string  `json:"service,omitempty"`
	Notes    *string `json:"notes,omitempty"`
}

// UpdateBookingRequest carries a status change and/or a reschedule.
type UpdateBookingRequest struct {
	Status string `json:"status,omitempty" validate:"omitempty,oneof=pending confirmed rescheduled cancelled completed"`
	Date   string `json:"date,omitempty" example:"2025-06-03"`
	Time   string `json:"time,omitempty" example:"10:00"`
}

// BookingListQuery binds the admin list and export filters.
type BookingListQuery struct {
	Status   string `form:"status" validate:"omitempty,oneof=pending confirmed rescheduled cancelled completed"`
	From     string `form:"from"`
	To       string `form:"to"`
	Email    string `form:"email"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Format   string `form:"format" validate:"omitempty,oneof=csv pdf"`
}
