package dto

// WorkingHoursDay is one weekday entry of the admin schedule editor.
type WorkingHoursDay struct {
	Day       int  `json:"day" validate:"min=0,max=6"`
	Enabled   bool `json:"enabled"`
	StartHour int  `json:"startHour" validate:"min=0,max=23"`
	EndHour   int  `json:"endHour" validate:"min=1,max=24"`
}

// ReplaceWorkingHoursRequest replaces the whole weekly schedule.
type ReplaceWorkingHoursRequest struct {
	Days []WorkingHoursDay `json:"days" validate:"required,min=1,max=7,dive"`
}

// CreateBlockedDateRequest blocks a whole day.
type CreateBlockedDateRequest struct {
	Date   string  `json:"date" validate:"required" example:"2025-12-25"`
	Reason *string `json:"reason,omitempty"`
}

// CreateBlockedSlotRequest blocks one slot on a day.
type CreateBlockedSlotRequest struct {
	Date     string  `json:"date" validate:"required" example:"2025-06-02"`
	TimeSlot string  `json:"time_slot" validate:"required" example:"10:00"`
	Reason   *string `json:"reason,omitempty"`
}

// BlockedListQuery narrows admin blocked-date and blocked-slot listings.
type BlockedListQuery struct {
	From string `form:"from"`
	To   string `form:"to"`
}
