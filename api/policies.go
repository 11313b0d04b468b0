package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/Domenick1991/staybooking/internal/service/policy"
)

type PolicyUseCase interface {
	GetPolicy(ctx context.Context, propertyID int64) (domain.CancellationPolicy, error)
	SetPolicy(ctx context.Context, actor domain.Actor, propertyID int64, in policy.Input) (*domain.CancellationPolicy, error)
	History(ctx context.Context, actor domain.Actor, propertyID int64) ([]domain.CancellationPolicy, error)
}

type PolicyHandler struct {
	service PolicyUseCase
}

type policyResponse struct {
	ID                string `json:"id,omitempty"`
	PropertyID        int64  `json:"property_id"`
	Type              string `json:"type"`
	RefundPercentage  int    `json:"refund_percentage"`
	DaysBeforeCheckin int    `json:"days_before_checkin"`
	Description       string `json:"description,omitempty"`
	IsActive          bool   `json:"is_active"`
	IsDefault         bool   `json:"is_default"`
	CreatedAt         string `json:"created_at,omitempty"`
}

func toPolicyResponse(p domain.CancellationPolicy) policyResponse {
	out := policyResponse{
		ID:                p.ID,
		PropertyID:        p.PropertyID,
		Type:              p.Type.String(),
		RefundPercentage:  p.RefundPercentage,
		DaysBeforeCheckin: p.DaysBeforeCheckin,
		Description:       p.Description,
		IsActive:          p.IsActive,
		IsDefault:         p.ID == "",
	}
	if !p.CreatedAt.IsZero() {
		out.CreatedAt = p.CreatedAt.Format(time.RFC3339)
	}
	return out
}

func NewPolicyHandler(service PolicyUseCase) *PolicyHandler {
	return &PolicyHandler{service: service}
}

func (h *PolicyHandler) Register(router *gin.RouterGroup) {
	group := router.Group("/properties/:id/policy")
	group.GET("", h.get)
	group.PUT("", h.set)
	group.GET("/history", h.history)
}

func (h *PolicyHandler) get(c *gin.Context) {
	propertyID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	p, err := h.service.GetPolicy(c.Request.Context(), propertyID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPolicyResponse(p))
}

func (h *PolicyHandler) set(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	propertyID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var in policy.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}

	p, err := h.service.SetPolicy(c.Request.Context(), actor, propertyID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPolicyResponse(*p))
}

func (h *PolicyHandler) history(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	propertyID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	policies, err := h.service.History(c.Request.Context(), actor, propertyID)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]policyResponse, 0, len(policies))
	for _, p := range policies {
		out = append(out, toPolicyResponse(p))
	}
	c.JSON(http.StatusOK, out)
}
