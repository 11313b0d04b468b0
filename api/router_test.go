package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/Domenick1991/staybooking/internal/domain"
)

type actorEcho struct{}

func (actorEcho) Register(router *gin.RouterGroup) {
	router.GET("/whoami", func(c *gin.Context) {
		actor, ok := currentActor(c)
		c.JSON(http.StatusOK, gin.H{"authenticated": ok, "user_id": actor.UserID, "admin": actor.Admin})
	})
}

func TestRouter_Authenticate(t *testing.T) {
	router := newTestRouter(actorEcho{})

	testCases := []struct {
		name   string
		userID string
		role   string
		status int
		body   string
	}{
		{"anonymous", "", "", http.StatusOK, `{"authenticated":false,"user_id":0,"admin":false}`},
		{"user", "42", "", http.StatusOK, `{"authenticated":true,"user_id":42,"admin":false}`},
		{"admin", "42", "admin", http.StatusOK, `{"authenticated":true,"user_id":42,"admin":true}`},
		{"negative id", "-3", "", http.StatusUnauthorized, `{"error":"invalid user id"}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
			if tc.userID != "" {
				req.Header.Set(HeaderUserID, tc.userID)
			}
			if tc.role != "" {
				req.Header.Set(HeaderUserRole, tc.role)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			assert.JSONEq(t, tc.body, w.Body.String())
		})
	}
}

func TestRouter_RequestIDPassthrough(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	req.Header.Set(HeaderRequestID, "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-123", w.Header().Get(HeaderRequestID))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(domain.NotFoundError("x")))
	assert.Equal(t, http.StatusForbidden, statusFor(domain.PermissionError("x")))
	assert.Equal(t, http.StatusBadRequest, statusFor(domain.ValidationError("x")))
	assert.Equal(t, http.StatusConflict, statusFor(domain.ConflictError("x")))
	assert.Equal(t, http.StatusInternalServerError, statusFor(domain.SystemError("op", errors.New("boom"))))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("plain")))
}
