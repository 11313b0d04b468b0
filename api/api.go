package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Domenick1991/staybooking/internal/domain"
)

const (
	actorContextKey = "staybooking.actor"

	// Identity is resolved by the gateway in front of the service.
	HeaderUserID    = "X-User-ID"
	HeaderUserRole  = "X-User-Role"
	HeaderRequestID = "X-Request-ID"
)

// Authenticate reads the caller identity set by the gateway. Requests
// without one continue anonymously.
func Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if raw == "" {
			c.Next()
			return
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid user id"})
			return
		}
		c.Set(actorContextKey, domain.Actor{
			UserID: id,
			Admin:  strings.EqualFold(strings.TrimSpace(c.GetHeader(HeaderUserRole)), "admin"),
		})
		c.Next()
	}
}

func currentActor(c *gin.Context) (domain.Actor, bool) {
	v, ok := c.Get(actorContextKey)
	if !ok {
		return domain.Actor{}, false
	}
	a, ok := v.(domain.Actor)
	return a, ok
}

func requireActor(c *gin.Context) (domain.Actor, bool) {
	a, ok := currentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
		return domain.Actor{}, false
	}
	return a, true
}

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Writer.Header().Set(HeaderRequestID, id)
		c.Set("request_id", id)
		c.Next()
	}
}

func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.InfoContext(c.Request.Context(), "http",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"request_id", c.GetString("request_id"))
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func int64Param(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

// queryRange reads a [from, to) date range from two query parameters.
func queryRange(c *gin.Context, fromKey, toKey string) (domain.DateRange, bool) {
	r, err := parseRange(c.Query(fromKey), c.Query(toKey))
	if err != nil {
		respondError(c, err)
		return domain.DateRange{}, false
	}
	return r, true
}

func parseRange(from, to string) (domain.DateRange, error) {
	checkIn, err := domain.ParseDate(from)
	if err != nil {
		return domain.DateRange{}, err
	}
	checkOut, err := domain.ParseDate(to)
	if err != nil {
		return domain.DateRange{}, err
	}
	return domain.NewDateRange(checkIn, checkOut)
}

func parseOptionalDate(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	d, err := domain.ParseDate(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// queryStatuses parses ?status=A,B or repeated ?status= values.
func queryStatuses(c *gin.Context) ([]domain.BookingStatus, bool) {
	var out []domain.BookingStatus
	for _, raw := range c.QueryArray("status") {
		for _, part := range strings.Split(raw, ",") {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			st, err := domain.ParseBookingStatus(part)
			if err != nil {
				respondError(c, err)
				return nil, false
			}
			out = append(out, st)
		}
	}
	return out, true
}
