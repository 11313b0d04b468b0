package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Domenick1991/staybooking/internal/domain"
)

type AvailabilityUseCase interface {
	Range(ctx context.Context, propertyID int64, r domain.DateRange) ([]domain.AvailabilityDay, error)
	SetAvailability(ctx context.Context, actor domain.Actor, propertyID int64, date time.Time, fields domain.DayFields) (domain.AvailabilityDay, error)
	BulkSetAvailability(ctx context.Context, actor domain.Actor, propertyID int64, r domain.DateRange, fields domain.DayFields) ([]domain.AvailabilityDay, error)
	BlockDates(ctx context.Context, actor domain.Actor, propertyID int64, r domain.DateRange, reason string) ([]domain.AvailabilityDay, error)
	ReleaseDates(ctx context.Context, actor domain.Actor, propertyID int64, r domain.DateRange) ([]domain.AvailabilityDay, error)
	ClearDay(ctx context.Context, actor domain.Actor, propertyID int64, date time.Time) (domain.AvailabilityDay, error)
}

type AvailabilityHandler struct {
	service AvailabilityUseCase
}

type rangeRequest struct {
	CheckIn  string `json:"check_in" binding:"required"`
	CheckOut string `json:"check_out" binding:"required"`
}

type bulkAvailabilityRequest struct {
	rangeRequest
	domain.DayFields
}

type blockRequest struct {
	rangeRequest
	Reason string `json:"reason"`
}

type dayResponse struct {
	Date            string `json:"date"`
	IsAvailable     bool   `json:"is_available"`
	PriceCents      *int64 `json:"price_override_cents,omitempty"`
	MinStay         *int   `json:"min_stay,omitempty"`
	MaxStay         *int   `json:"max_stay,omitempty"`
	IsInstantBook   *bool  `json:"is_instant_book,omitempty"`
	BlockedReason   string `json:"blocked_reason,omitempty"`
	Booked          bool   `json:"booked"`
	CheckInAllowed  *bool  `json:"check_in_allowed,omitempty"`
	CheckOutAllowed *bool  `json:"check_out_allowed,omitempty"`
}

// toDayResponse hides which booking holds a day.
func toDayResponse(d domain.AvailabilityDay) dayResponse {
	out := dayResponse{
		Date:            domain.FormatDate(d.Date),
		IsAvailable:     d.IsAvailable,
		MinStay:         d.MinStay,
		MaxStay:         d.MaxStay,
		IsInstantBook:   d.IsInstantBook,
		Booked:          d.HeldByBooking(),
		CheckInAllowed:  d.CheckInAllowed,
		CheckOutAllowed: d.CheckOutAllowed,
	}
	if d.PriceOverride != nil {
		cents := int64(*d.PriceOverride)
		out.PriceCents = &cents
	}
	if d.BlockedReason != nil && !out.Booked {
		out.BlockedReason = *d.BlockedReason
	}
	return out
}

func toDayResponses(days []domain.AvailabilityDay) []dayResponse {
	out := make([]dayResponse, 0, len(days))
	for _, d := range days {
		out = append(out, toDayResponse(d))
	}
	return out
}

func NewAvailabilityHandler(service AvailabilityUseCase) *AvailabilityHandler {
	return &AvailabilityHandler{service: service}
}

func (h *AvailabilityHandler) Register(router *gin.RouterGroup) {
	calendar := router.Group("/properties/:id/calendar")
	calendar.GET("", h.calendar)
	calendar.PATCH("", h.bulkSet)
	calendar.PUT("/:date", h.setDay)
	calendar.DELETE("/:date", h.clearDay)
	calendar.POST("/block", h.block)
	calendar.POST("/release", h.release)
}

func (h *AvailabilityHandler) calendar(c *gin.Context) {
	propertyID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	r, ok := queryRange(c, "from", "to")
	if !ok {
		return
	}
	days, err := h.service.Range(c.Request.Context(), propertyID, r)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDayResponses(days))
}

func (h *AvailabilityHandler) setDay(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	propertyID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	date, err := domain.ParseDate(c.Param("date"))
	if err != nil {
		respondError(c, err)
		return
	}
	var fields domain.DayFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		badRequest(c, err.Error())
		return
	}

	day, err := h.service.SetAvailability(c.Request.Context(), actor, propertyID, date, fields)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDayResponse(day))
}

func (h *AvailabilityHandler) clearDay(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	propertyID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	date, err := domain.ParseDate(c.Param("date"))
	if err != nil {
		respondError(c, err)
		return
	}

	day, err := h.service.ClearDay(c.Request.Context(), actor, propertyID, date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDayResponse(day))
}

func (h *AvailabilityHandler) bulkSet(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	propertyID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var req bulkAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	r, err := parseRange(req.CheckIn, req.CheckOut)
	if err != nil {
		respondError(c, err)
		return
	}

	days, err := h.service.BulkSetAvailability(c.Request.Context(), actor, propertyID, r, req.DayFields)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDayResponses(days))
}

func (h *AvailabilityHandler) block(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	propertyID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var req blockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	r, err := parseRange(req.CheckIn, req.CheckOut)
	if err != nil {
		respondError(c, err)
		return
	}

	days, err := h.service.BlockDates(c.Request.Context(), actor, propertyID, r, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDayResponses(days))
}

func (h *AvailabilityHandler) release(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	propertyID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var req rangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	r, err := parseRange(req.CheckIn, req.CheckOut)
	if err != nil {
		respondError(c, err)
		return
	}

	days, err := h.service.ReleaseDates(c.Request.Context(), actor, propertyID, r)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDayResponses(days))
}
