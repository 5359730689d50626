package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/elevate-booking-api/internal/dto"
	"github.com/noah-isme/elevate-booking-api/internal/models"
	appErrors "github.com/noah-isme/elevate-booking-api/pkg/errors"
	"github.com/noah-isme/elevate-booking-api/pkg/response"
)

type scheduleConfigService interface {
	Rules(ctx context.Context) ([]models.WorkingHoursRule, error)
	ReplaceWorkingHours(ctx context.Context, req dto.ReplaceWorkingHoursRequest) ([]models.WorkingHoursRule, error)
	ListBlockedDates(ctx context.Context, query dto.BlockedListQuery) ([]models.BlockedDate, error)
	AddBlockedDate(ctx context.Context, req dto.CreateBlockedDateRequest) (*models.BlockedDate, error)
	RemoveBlockedDate(ctx context.Context, id string) error
	ListBlockedSlots(ctx context.Context, query dto.BlockedListQuery) ([]models.BlockedSlot, error)
	AddBlockedSlot(ctx context.Context, req dto.CreateBlockedSlotRequest) (*models.BlockedSlot, error)
	RemoveBlockedSlot(ctx context.Context, id string) error
}

// ScheduleHandler exposes working hours and blocked date/slot administration.
type ScheduleHandler struct {
	service scheduleConfigService
}

// NewScheduleHandler constructs the handler.
func NewScheduleHandler(svc scheduleConfigService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// WorkingHours godoc
// @Summary List working hours
// @Tags Admin Schedule
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope{data=[]models.WorkingHoursRule}
// @Router /admin/working-hours [get]
func (h *ScheduleHandler) WorkingHours(c *gin.Context) {
	rules, err := h.service.Rules(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rules, nil)
}

// ReplaceWorkingHours godoc
// @Summary Replace the weekly schedule
// @Description Only enabled days are persisted. The swap is atomic.
// @Tags Admin Schedule
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.ReplaceWorkingHoursRequest true "Weekly schedule"
// @Success 200 {object} response.Envelope{data=[]models.WorkingHoursRule}
// @Failure 400 {object} response.Envelope
// @Router /admin/working-hours [put]
func (h *ScheduleHandler) ReplaceWorkingHours(c *gin.Context) {
	var req dto.ReplaceWorkingHoursRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid working hours payload"))
		return
	}

	rules, err := h.service.ReplaceWorkingHours(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rules, nil)
}

// BlockedDates godoc
// @Summary List blocked dates
// @Tags Admin Schedule
// @Produce json
// @Security BearerAuth
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope{data=[]models.BlockedDate}
// @Router /admin/blocked-dates [get]
func (h *ScheduleHandler) BlockedDates(c *gin.Context) {
	var query dto.BlockedListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	dates, err := h.service.ListBlockedDates(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dates, nil)
}

// CreateBlockedDate godoc
// @Summary Block a date
// @Tags Admin Schedule
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateBlockedDateRequest true "Blocked date"
// @Success 201 {object} response.Envelope{data=models.BlockedDate}
// @Failure 409 {object} response.Envelope
// @Router /admin/blocked-dates [post]
func (h *ScheduleHandler) CreateBlockedDate(c *gin.Context) {
	var req dto.CreateBlockedDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid blocked date payload"))
		return
	}
	blocked, err := h.service.AddBlockedDate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, blocked)
}

// DeleteBlockedDate godoc
// @Summary Unblock a date
// @Tags Admin Schedule
// @Security BearerAuth
// @Param id path string true "Blocked date ID"
// @Success 204
// @Router /admin/blocked-dates/{id} [delete]
func (h *ScheduleHandler) DeleteBlockedDate(c *gin.Context) {
	if err := h.service.RemoveBlockedDate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// BlockedSlots godoc
// @Summary List blocked slots
// @Tags Admin Schedule
// @Produce json
// @Security BearerAuth
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope{data=[]models.BlockedSlot}
// @Router /admin/blocked-slots [get]
func (h *ScheduleHandler) BlockedSlots(c *gin.Context) {
	var query dto.BlockedListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	slots, err := h.service.ListBlockedSlots(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// CreateBlockedSlot godoc
// @Summary Block a single slot
// @Tags Admin Schedule
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateBlockedSlotRequest true "Blocked slot"
// @Success 201 {object} response.Envelope{data=models.BlockedSlot}
// @Failure 409 {object} response.Envelope
// @Router /admin/blocked-slots [post]
func (h *ScheduleHandler) CreateBlockedSlot(c *gin.Context) {
	var req dto.CreateBlockedSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid blocked slot payload"))
		return
	}
	slot, err := h.service.AddBlockedSlot(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slot)
}

// DeleteBlockedSlot godoc
// @Summary Reopen a slot
// @Tags Admin Schedule
// @Security BearerAuth
// @Param id path string true "Blocked slot ID"
// @Success 204
// @Router /admin/blocked-slots/{id} [delete]
func (h *ScheduleHandler) DeleteBlockedSlot(c *gin.Context) {
	if err := h.service.RemoveBlockedSlot(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
