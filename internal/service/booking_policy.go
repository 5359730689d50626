package service

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/noah-isme/elevate-booking-api/internal/models"
	"github.com/noah-isme/elevate-booking-api/pkg/config"
	appErrors "github.com/noah-isme/elevate-booking-api/pkg/errors"
)

const day = 24 * time.Hour

// BookingPolicy resolves the booking window in the reference calendar.
type BookingPolicy struct {
	minNotice    time.Duration
	maxDaysAhead int
	slotMinutes  int
	location     *time.Location
	clock        Clock
}

// NewBookingPolicy builds a policy from configuration. A nil clock uses the wall clock.
func NewBookingPolicy(cfg config.BookingConfig, clock Clock) (*BookingPolicy, error) {
	loc := time.UTC
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load booking timezone %q: %w", cfg.Timezone, err)
		}
		loc = l
	}
	if clock == nil {
		clock = SystemClock{}
	}
	p := &BookingPolicy{
		minNotice:    cfg.MinNotice,
		maxDaysAhead: cfg.MaxDaysAhead,
		slotMinutes:  cfg.SlotMinutes,
		location:     loc,
		clock:        clock,
	}
	if p.minNotice < 0 {
		p.minNotice = 0
	}
	if p.maxDaysAhead <= 0 {
		p.maxDaysAhead = 30
	}
	if p.slotMinutes <= 0 || p.slotMinutes > 60 {
		p.slotMinutes = 30
	}
	return p, nil
}

// SlotMinutes is the grid interval.
func (p *BookingPolicy) SlotMinutes() int { return p.slotMinutes }

// Today is the current calendar day in the reference timezone.
func (p *BookingPolicy) Today() models.Date {
	return models.DateOf(p.clock.Now().In(p.location))
}

// Window returns the first and last bookable dates, inclusive. Minimum notice
// is rounded up to whole days, so 24h means "from tomorrow".
func (p *BookingPolicy) Window() (models.Date, models.Date) {
	today := p.Today()
	noticeDays := int((p.minNotice + day - 1) / day)
	return today.AddDays(noticeDays), today.AddDays(p.maxDaysAhead)
}

// CheckWindow fails with OUTSIDE_BOOKING_WINDOW when date falls outside Window.
func (p *BookingPolicy) CheckWindow(date models.Date) error {
	minDate, maxDate := p.Window()
	if date.Before(minDate) {
		return appErrors.WithField(appErrors.ErrOutsideWindow, "date",
			fmt.Sprintf("bookings open from %s; please pick a later date", minDate))
	}
	if date.After(maxDate) {
		return appErrors.WithField(appErrors.ErrOutsideWindow, "date",
			fmt.Sprintf("bookings can be made up to %s; please pick an earlier date", maxDate))
	}
	return nil
}
