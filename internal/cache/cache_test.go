package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Domenick1991/staybooking/config"
	"github.com/Domenick1991/staybooking/internal/domain"
)

func TestNewRedisCache(t *testing.T) {
	c := NewRedisCache(config.RedisConfig{Addr: "localhost:6379"}, time.Minute)
	assert.NotNil(t, c)
	assert.NoError(t, c.Close())
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "cache:property:7", propertyKey(7))
	assert.Equal(t, "lock:property:7:date:2024-06-01", dateLockKey(7, domain.Date(2024, 6, 1)))
}

func TestSortedDates(t *testing.T) {
	in := []time.Time{domain.Date(2024, 6, 3), time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), domain.Date(2024, 6, 2), domain.Date(2024, 6, 1)}
	assert.Equal(t, []time.Time{domain.Date(2024, 6, 1), domain.Date(2024, 6, 2), domain.Date(2024, 6, 3)}, sortedDates(in))
}

func TestLocalLocks(t *testing.T) {
	ctx := context.Background()
	locks := NewLocalLocks()
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	locks.clock = func() time.Time { return now }

	first := []time.Time{domain.Date(2024, 6, 1), domain.Date(2024, 6, 2)}
	overlap := []time.Time{domain.Date(2024, 6, 2), domain.Date(2024, 6, 3)}

	ok, err := locks.AcquireDateLocks(ctx, 1, first, "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = locks.AcquireDateLocks(ctx, 1, overlap, "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, _ = locks.AcquireDateLocks(ctx, 2, overlap, "b", time.Minute)
	assert.True(t, ok, "other property is independent")

	require.NoError(t, locks.ReleaseDateLocks(ctx, 1, first, "b"))
	ok, _ = locks.AcquireDateLocks(ctx, 1, overlap, "c", time.Minute)
	assert.False(t, ok, "release by non-owner is ignored")

	require.NoError(t, locks.ReleaseDateLocks(ctx, 1, first, "a"))
	ok, _ = locks.AcquireDateLocks(ctx, 1, overlap, "c", time.Minute)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	ok, _ = locks.AcquireDateLocks(ctx, 1, overlap, "d", time.Minute)
	assert.True(t, ok, "expired locks are taken over")
}

type MockPropertyCache struct {
	mock.Mock
}

func (m *MockPropertyCache) GetProperty(ctx context.Context, id int64) (*domain.Property, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Property), args.Error(1)
}

func (m *MockPropertyCache) SetProperty(ctx context.Context, p *domain.Property) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

type MockPropertyRepository struct {
	mock.Mock
}

func (m *MockPropertyRepository) GetByID(ctx context.Context, id int64) (*domain.Property, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Property), args.Error(1)
}

func TestCachedProperties(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	property := &domain.Property{ID: 1, OwnerID: 2, BasePrice: 10000}

	t.Run("hit", func(t *testing.T) {
		c := &MockPropertyCache{}
		repo := &MockPropertyRepository{}
		c.On("GetProperty", ctx, int64(1)).Return(property, nil).Once()

		got, err := NewCachedProperties(repo, c, logger).GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, property, got)
		repo.AssertNotCalled(t, "GetByID")
	})

	t.Run("miss fills cache", func(t *testing.T) {
		c := &MockPropertyCache{}
		repo := &MockPropertyRepository{}
		c.On("GetProperty", ctx, int64(1)).Return(nil, nil).Once()
		repo.On("GetByID", ctx, int64(1)).Return(property, nil).Once()
		c.On("SetProperty", ctx, property).Return(nil).Once()

		got, err := NewCachedProperties(repo, c, logger).GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, property, got)
		c.AssertExpectations(t)
		repo.AssertExpectations(t)
	})

	t.Run("cache down", func(t *testing.T) {
		c := &MockPropertyCache{}
		repo := &MockPropertyRepository{}
		c.On("GetProperty", ctx, int64(1)).Return(nil, errors.New("redis down")).Once()
		repo.On("GetByID", ctx, int64(1)).Return(property, nil).Once()
		c.On("SetProperty", ctx, property).Return(errors.New("redis down")).Once()

		got, err := NewCachedProperties(repo, c, logger).GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, property, got)
	})

	t.Run("not found", func(t *testing.T) {
		c := &MockPropertyCache{}
		repo := &MockPropertyRepository{}
		c.On("GetProperty", ctx, int64(9)).Return(nil, nil).Once()
		repo.On("GetByID", ctx, int64(9)).Return(nil, domain.NotFoundError("property 9 not found")).Once()

		_, err := NewCachedProperties(repo, c, logger).GetByID(ctx, 9)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
		c.AssertNotCalled(t, "SetProperty", mock.Anything, mock.Anything)
	})
}
