package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/Domenick1991/staybooking/internal/service/booking"
	"github.com/Domenick1991/staybooking/internal/service/conflict"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type createBookingRequest struct {
	PropertyID int64  `json:"property_id" binding:"required"`
	CheckIn    string `json:"check_in" binding:"required"`
	CheckOut   string `json:"check_out" binding:"required"`
	Adults     int    `json:"adults"`
	Children   int    `json:"children"`
}

type updateBookingRequest struct {
	CheckIn            *string `json:"check_in"`
	CheckOut           *string `json:"check_out"`
	Adults             *int    `json:"adults"`
	Children           *int    `json:"children"`
	HostNotes          *string `json:"host_notes"`
	Status             *string `json:"status"`
	CancellationReason *string `json:"cancellation_reason"`
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

type bookingResponse struct {
	ID                 string  `json:"id"`
	ConfirmationCode   string  `json:"confirmation_code"`
	PropertyID         int64   `json:"property_id"`
	GuestID            int64   `json:"guest_id"`
	HostID             int64   `json:"host_id"`
	CheckIn            string  `json:"check_in"`
	CheckOut           string  `json:"check_out"`
	Nights             int     `json:"nights"`
	Adults             int     `json:"adults"`
	Children           int     `json:"children"`
	Status             string  `json:"status"`
	TotalAmountCents   int64   `json:"total_amount_cents"`
	NightlyRateCents   int64   `json:"nightly_rate_cents"`
	RefundAmountCents  int64   `json:"refund_amount_cents"`
	HostNotes          string  `json:"host_notes,omitempty"`
	CancellationReason string  `json:"cancellation_reason,omitempty"`
	ConfirmedAt        *string `json:"confirmed_at,omitempty"`
	CheckedInAt        *string `json:"checked_in_at,omitempty"`
	CompletedAt        *string `json:"completed_at,omitempty"`
	CancelledAt        *string `json:"cancelled_at,omitempty"`
	CreatedAt          string  `json:"created_at"`
	UpdatedAt          string  `json:"updated_at"`
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	return bookingResponse{
		ID:                 b.ID,
		ConfirmationCode:   b.ConfirmationCode,
		PropertyID:         b.PropertyID,
		GuestID:            b.GuestID,
		HostID:             b.HostID,
		CheckIn:            domain.FormatDate(b.CheckIn),
		CheckOut:           domain.FormatDate(b.CheckOut),
		Nights:             b.Range().Nights(),
		Adults:             b.Adults,
		Children:           b.Children,
		Status:             string(b.Status),
		TotalAmountCents:   int64(b.TotalAmount),
		NightlyRateCents:   int64(b.NightlyRate),
		RefundAmountCents:  int64(b.RefundAmount),
		HostNotes:          b.HostNotes,
		CancellationReason: b.CancellationReason,
		ConfirmedAt:        formatTime(b.ConfirmedAt),
		CheckedInAt:        formatTime(b.CheckedInAt),
		CompletedAt:        formatTime(b.CompletedAt),
		CancelledAt:        formatTime(b.CancelledAt),
		CreatedAt:          b.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          b.UpdatedAt.Format(time.RFC3339),
	}
}

func toBookingResponses(bookings []domain.Booking) []bookingResponse {
	out := make([]bookingResponse, 0, len(bookings))
	for i := range bookings {
		out = append(out, toBookingResponse(&bookings[i]))
	}
	return out
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.GET("/properties/:id/availability", h.checkAvailability)
	router.GET("/properties/:id/bookings", h.listByProperty)
	router.GET("/properties/:id/statistics", h.statistics)

	bookings := router.Group("/bookings")
	bookings.POST("", h.create)
	bookings.GET("/:id", h.get)
	bookings.GET("/code/:code", h.getByCode)
	bookings.PATCH("/:id", h.update)
	bookings.POST("/:id/confirm", h.confirm)
	bookings.POST("/:id/cancel", h.cancel)
	bookings.POST("/:id/check-in", h.checkIn)
	bookings.POST("/:id/complete", h.complete)

	router.GET("/me/bookings", h.listMine)
	host := router.Group("/host")
	host.GET("/bookings", h.listHosted)
	host.GET("/check-ins", h.upcomingCheckIns)
	host.GET("/check-outs", h.upcomingCheckOuts)
}

func (h *BookingHandler) checkAvailability(c *gin.Context) {
	propertyID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	r, ok := queryRange(c, "check_in", "check_out")
	if !ok {
		return
	}
	adults, ok := queryInt(c, "adults", 1)
	if !ok {
		return
	}
	children, ok := queryInt(c, "children", 0)
	if !ok {
		return
	}

	result, err := h.service.CheckAvailability(c.Request.Context(), conflict.Request{
		PropertyID: propertyID,
		Range:      r,
		Occupancy:  domain.Occupancy{Adults: adults, Children: children},
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *BookingHandler) create(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	r, err := parseRange(req.CheckIn, req.CheckOut)
	if err != nil {
		respondError(c, err)
		return
	}

	b, err := h.service.CreateBooking(c.Request.Context(), actor, booking.CreateBookingInput{
		PropertyID: req.PropertyID,
		CheckIn:    r.CheckIn,
		CheckOut:   r.CheckOut,
		Adults:     req.Adults,
		Children:   req.Children,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBookingResponse(b))
}

func (h *BookingHandler) get(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	b, err := h.service.GetBooking(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) getByCode(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	code := strings.ToUpper(strings.TrimSpace(c.Param("code")))
	b, err := h.service.GetByConfirmationCode(c.Request.Context(), actor, code)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) update(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req updateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	input, err := req.toInput()
	if err != nil {
		respondError(c, err)
		return
	}

	b, err := h.service.UpdateBooking(c.Request.Context(), actor, c.Param("id"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func (req updateBookingRequest) toInput() (booking.UpdateBookingInput, error) {
	checkIn, err := parseOptionalDate(req.CheckIn)
	if err != nil {
		return booking.UpdateBookingInput{}, err
	}
	checkOut, err := parseOptionalDate(req.CheckOut)
	if err != nil {
		return booking.UpdateBookingInput{}, err
	}
	input := booking.UpdateBookingInput{
		CheckIn:            checkIn,
		CheckOut:           checkOut,
		Adults:             req.Adults,
		Children:           req.Children,
		HostNotes:          req.HostNotes,
		CancellationReason: req.CancellationReason,
	}
	if req.Status != nil {
		st, err := domain.ParseBookingStatus(strings.ToUpper(strings.TrimSpace(*req.Status)))
		if err != nil {
			return booking.UpdateBookingInput{}, err
		}
		input.Status = &st
	}
	return input, nil
}

func (h *BookingHandler) confirm(c *gin.Context) {
	h.transition(c, h.service.ConfirmBooking)
}

func (h *BookingHandler) checkIn(c *gin.Context) {
	h.transition(c, h.service.CheckInBooking)
}

func (h *BookingHandler) complete(c *gin.Context) {
	h.transition(c, h.service.CompleteBooking)
}

func (h *BookingHandler) cancel(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req cancelBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}

	b, err := h.service.CancelBooking(c.Request.Context(), actor, c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) transition(c *gin.Context, fn func(ctx context.Context, actor domain.Actor, id string) (*domain.Booking, error)) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	b, err := fn(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) listMine(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	statuses, ok := queryStatuses(c)
	if !ok {
		return
	}
	bookings, err := h.service.ListGuestBookings(c.Request.Context(), actor, statuses)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponses(bookings))
}

func (h *BookingHandler) listHosted(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	statuses, ok := queryStatuses(c)
	if !ok {
		return
	}
	bookings, err := h.service.ListHostBookings(c.Request.Context(), actor, statuses)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponses(bookings))
}

func (h *BookingHandler) listByProperty(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	propertyID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	statuses, ok := queryStatuses(c)
	if !ok {
		return
	}
	bookings, err := h.service.ListPropertyBookings(c.Request.Context(), actor, propertyID, statuses)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponses(bookings))
}

func (h *BookingHandler) upcomingCheckIns(c *gin.Context) {
	h.upcoming(c, h.service.UpcomingCheckIns)
}

func (h *BookingHandler) upcomingCheckOuts(c *gin.Context) {
	h.upcoming(c, h.service.UpcomingCheckOuts)
}

func (h *BookingHandler) upcoming(c *gin.Context, fn func(ctx context.Context, actor domain.Actor, days int) ([]domain.Booking, error)) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	days, ok := queryInt(c, "days", 7)
	if !ok {
		return
	}
	bookings, err := fn(c.Request.Context(), actor, days)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponses(bookings))
}

func (h *BookingHandler) statistics(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	propertyID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	window, ok := queryRange(c, "from", "to")
	if !ok {
		return
	}
	st, err := h.service.PropertyStatistics(c.Request.Context(), actor, propertyID, window)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
