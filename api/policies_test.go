package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/Domenick1991/staybooking/internal/service/policy"
)

type MockPolicyUseCase struct {
	mock.Mock
}

func (m *MockPolicyUseCase) GetPolicy(ctx context.Context, propertyID int64) (domain.CancellationPolicy, error) {
	args := m.Called(ctx, propertyID)
	return args.Get(0).(domain.CancellationPolicy), args.Error(1)
}

func (m *MockPolicyUseCase) SetPolicy(ctx context.Context, actor domain.Actor, propertyID int64, in policy.Input) (*domain.CancellationPolicy, error) {
	args := m.Called(ctx, actor, propertyID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CancellationPolicy), args.Error(1)
}

func (m *MockPolicyUseCase) History(ctx context.Context, actor domain.Actor, propertyID int64) ([]domain.CancellationPolicy, error) {
	args := m.Called(ctx, actor, propertyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CancellationPolicy), args.Error(1)
}

func TestPolicyHandler_getDefault(t *testing.T) {
	mockService := &MockPolicyUseCase{}
	router := newTestRouter(NewPolicyHandler(mockService))

	mockService.On("GetPolicy", mock.Anything, int64(1)).Return(domain.DefaultPolicy(1), nil).Once()
	mockService.On("GetPolicy", mock.Anything, int64(99)).Return(domain.CancellationPolicy{}, domain.NotFoundError("property 99 not found")).Once()

	w := doRequest(router, http.MethodGet, "/api/v1/properties/1/policy", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp policyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "MODERATE", resp.Type)
	assert.Equal(t, 50, resp.RefundPercentage)
	assert.Equal(t, 5, resp.DaysBeforeCheckin)
	assert.True(t, resp.IsDefault)

	w = doRequest(router, http.MethodGet, "/api/v1/properties/99/policy", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	mockService.AssertExpectations(t)
}

func TestPolicyHandler_set(t *testing.T) {
	mockService := &MockPolicyUseCase{}
	router := newTestRouter(NewPolicyHandler(mockService))

	in := policy.Input{Type: domain.PolicyStrict, RefundPercentage: 50, DaysBeforeCheckin: 7, Description: "strict"}
	saved := &domain.CancellationPolicy{
		ID: "p-1", PropertyID: 1, Type: domain.PolicyStrict, RefundPercentage: 50, DaysBeforeCheckin: 7,
		Description: "strict", IsActive: true, CreatedAt: time.Date(2030, time.May, 1, 9, 0, 0, 0, time.UTC),
	}
	mockService.On("SetPolicy", mock.Anything, hostActor, int64(1), in).Return(saved, nil).Once()

	w := doRequest(router, http.MethodPut, "/api/v1/properties/1/policy", gin.H{
		"type": "strict", "refund_percentage": 50, "days_before_checkin": 7, "description": "strict",
	}, "10")
	require.Equal(t, http.StatusOK, w.Code)
	var resp policyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "p-1", resp.ID)
	assert.Equal(t, "STRICT", resp.Type)
	assert.False(t, resp.IsDefault)
	assert.Equal(t, "2030-05-01T09:00:00Z", resp.CreatedAt)

	w = doRequest(router, http.MethodPut, "/api/v1/properties/1/policy", gin.H{"type": "LENIENT"}, "10")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertExpectations(t)
}

func TestPolicyHandler_history(t *testing.T) {
	mockService := &MockPolicyUseCase{}
	router := newTestRouter(NewPolicyHandler(mockService))

	history := []domain.CancellationPolicy{
		{ID: "p-2", PropertyID: 1, Type: domain.PolicyFlexible, RefundPercentage: 100, DaysBeforeCheckin: 1, IsActive: true},
		{ID: "p-1", PropertyID: 1, Type: domain.PolicyStrict, RefundPercentage: 50, DaysBeforeCheckin: 7},
	}
	mockService.On("History", mock.Anything, hostActor, int64(1)).Return(history, nil).Once()

	w := doRequest(router, http.MethodGet, "/api/v1/properties/1/policy/history", nil, "10")
	require.Equal(t, http.StatusOK, w.Code)
	var resp []policyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.True(t, resp[0].IsActive)
	assert.False(t, resp[1].IsActive)
	mockService.AssertExpectations(t)
}
