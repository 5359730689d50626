package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/elevate-booking-api/internal/dto"
	"github.com/noah-isme/elevate-booking-api/internal/middleware"
	"github.com/noah-isme/elevate-booking-api/internal/models"
	"github.com/noah-isme/elevate-booking-api/internal/service"
	"github.com/noah-isme/elevate-booking-api/pkg/response"
)

type availabilityResolver interface {
	Resolve(ctx context.Context, date models.Date) (*models.Availability, error)
}

type publicScheduleReader interface {
	WorkingDays(ctx context.Context) (map[time.Weekday]models.Hours, error)
	BlockedDatesInWindow(ctx context.Context) []string
}

// AvailabilityHandler serves the public availability endpoints.
type AvailabilityHandler struct {
	availability availabilityResolver
	schedule     publicScheduleReader
}

// NewAvailabilityHandler constructs the handler.
func NewAvailabilityHandler(availability availabilityResolver, schedule publicScheduleReader) *AvailabilityHandler {
	return &AvailabilityHandler{availability: availability, schedule: schedule}
}

// Get godoc
// @Summary Slot availability for a date
// @Description Returns every slot of the day's grid with its availability. Closed or blocked days return an empty list.
// @Tags Availability
// @Produce json
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope{data=dto.AvailabilityResponse}
// @Failure 400 {object} response.Envelope
// @Router /availability [get]
func (h *AvailabilityHandler) Get(c *gin.Context) {
	date, err := service.ParseRequestedDate(c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.availability.Resolve(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetCacheHit(c, result.Cached)
	if result.Degraded {
		middleware.SetDegraded(c)
	}
	response.JSON(c, http.StatusOK, dto.AvailabilityResponse{Date: result.Date.String(), Slots: result.Slots}, nil, middleware.ExtractMeta(c))
}

// BlockedDates godoc
// @Summary Blocked dates inside the booking window
// @Tags Availability
// @Produce json
// @Success 200 {object} response.Envelope{data=dto.BlockedDatesResponse}
// @Router /availability/blocked-dates [get]
func (h *AvailabilityHandler) BlockedDates(c *gin.Context) {
	dates := h.schedule.BlockedDatesInWindow(c.Request.Context())
	response.JSON(c, http.StatusOK, dto.BlockedDatesResponse{Dates: dates}, nil)
}

// WorkingDays godoc
// @Summary Open weekdays and hours
// @Tags Availability
// @Produce json
// @Success 200 {object} response.Envelope{data=dto.WorkingDaysResponse}
// @Failure 500 {object} response.Envelope
// @Router /availability/working-days [get]
func (h *AvailabilityHandler) WorkingDays(c *gin.Context) {
	days, err := h.schedule.WorkingDays(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.WorkingDay, 0, len(days))
	for weekday, hours := range days {
		out = append(out, dto.WorkingDay{
			Day:       int(weekday),
			StartTime: service.HourLabel(hours.Start),
			EndTime:   service.HourLabel(hours.End),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	response.JSON(c, http.StatusOK, dto.WorkingDaysResponse{Days: out}, nil)
}
