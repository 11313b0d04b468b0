package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Domenick1991/staybooking/internal/cache"
	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/Domenick1991/staybooking/internal/repository"
)

const (
	hostID  int64 = 10
	guestID int64 = 20
)

func newTestService(t *testing.T, opts ...Option) (*Service, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	store.PutProperty(domain.Property{ID: 1, OwnerID: hostID, BasePrice: 100_00, Currency: "USD"})
	return NewService(store, store.Properties(), opts...), store
}

func june(day int) time.Time {
	return domain.Date(2030, time.June, day)
}

func mustRange(t *testing.T, from, to int) domain.DateRange {
	t.Helper()
	r, err := domain.NewDateRange(june(from), june(to))
	require.NoError(t, err)
	return r
}

func TestRangeFillsDefaults(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	host := domain.Actor{UserID: hostID}

	_, err := svc.SetAvailability(ctx, host, 1, june(2), domain.DayFields{PriceOverride: domain.Ptr(domain.Money(150_00))})
	require.NoError(t, err)

	days, err := svc.Range(ctx, 1, mustRange(t, 1, 4))
	require.NoError(t, err)
	require.Len(t, days, 3)
	assert.Equal(t, june(1), days[0].Date)
	assert.True(t, days[0].IsAvailable)
	assert.Nil(t, days[0].PriceOverride)
	require.NotNil(t, days[1].PriceOverride)
	assert.Equal(t, domain.Money(150_00), *days[1].PriceOverride)
	assert.Equal(t, june(3), days[2].Date)
}

func TestDayDefaultsWhenAbsent(t *testing.T) {
	svc, _ := newTestService(t)

	day, err := svc.Day(context.Background(), 1, june(9))
	require.NoError(t, err)
	assert.True(t, day.IsAvailable)
	assert.Equal(t, int64(1), day.PropertyID)
}

func TestHostEditsRequireOwnership(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.BlockDates(ctx, domain.Actor{UserID: guestID}, 1, mustRange(t, 1, 3), "maintenance")
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	_, err = svc.BlockDates(ctx, domain.Actor{UserID: guestID, Admin: true}, 1, mustRange(t, 1, 3), "maintenance")
	assert.NoError(t, err)

	_, err = svc.BlockDates(ctx, domain.Actor{UserID: hostID}, 99, mustRange(t, 1, 3), "maintenance")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBlockAndReleaseAreIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	host := domain.Actor{UserID: hostID}
	r := mustRange(t, 1, 4)

	for range 2 {
		days, err := svc.BlockDates(ctx, host, 1, r, "maintenance")
		require.NoError(t, err)
		require.Len(t, days, 3)
		for _, d := range days {
			assert.False(t, d.IsAvailable)
			require.NotNil(t, d.BlockedReason)
			assert.Equal(t, "maintenance", *d.BlockedReason)
		}
	}

	for range 2 {
		days, err := svc.ReleaseDates(ctx, host, 1, r)
		require.NoError(t, err)
		for _, d := range days {
			assert.True(t, d.IsAvailable)
			assert.Nil(t, d.BlockedReason)
		}
	}
}

func TestHostCannotTouchBookingHolds(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	host := domain.Actor{UserID: hostID}

	err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return On(tx.Availability()).Hold(ctx, 1, mustRange(t, 2, 4), "b-1")
	})
	require.NoError(t, err)

	_, err = svc.ReleaseDates(ctx, host, 1, mustRange(t, 1, 5))
	require.NoError(t, err)

	day, err := svc.Day(ctx, 1, june(3))
	require.NoError(t, err)
	assert.False(t, day.IsAvailable)
	assert.True(t, day.HeldBy("b-1"))

	_, err = svc.SetAvailability(ctx, host, 1, june(3), domain.DayFields{IsAvailable: domain.Ptr(true), PriceOverride: domain.Ptr(domain.Money(90_00))})
	require.NoError(t, err)
	day, err = svc.Day(ctx, 1, june(3))
	require.NoError(t, err)
	assert.True(t, day.HeldBy("b-1"))
	require.NotNil(t, day.PriceOverride)
	assert.Equal(t, domain.Money(90_00), *day.PriceOverride)
}

func TestBookingReasonIsReserved(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.BlockDates(context.Background(), domain.Actor{UserID: hostID}, 1, mustRange(t, 1, 2), "booking:fake")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCalendarReleaseOnlyOwnHold(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()
	cal := On(store.Availability())

	require.NoError(t, cal.Hold(ctx, 1, mustRange(t, 1, 3), "b-1"))
	_, err := cal.SetRangeAvailability(ctx, 1, mustRange(t, 3, 5), false, domain.Ptr("owner stay"))
	require.NoError(t, err)

	released, err := cal.Release(ctx, 1, mustRange(t, 1, 5), "b-1")
	require.NoError(t, err)
	assert.Equal(t, 2, released)

	released, err = cal.Release(ctx, 1, mustRange(t, 1, 5), "b-1")
	require.NoError(t, err)
	assert.Zero(t, released)

	day, err := cal.Get(ctx, 1, june(4))
	require.NoError(t, err)
	assert.False(t, day.IsAvailable)
}

func TestCalendarHoldConflictsWithOtherBooking(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()
	cal := On(store.Availability())

	require.NoError(t, cal.Hold(ctx, 1, mustRange(t, 1, 3), "b-1"))
	require.NoError(t, cal.Hold(ctx, 1, mustRange(t, 1, 3), "b-1"))
	assert.ErrorIs(t, cal.Hold(ctx, 1, mustRange(t, 2, 4), "b-2"), domain.ErrConflict)
}

func TestEditRangeValidation(t *testing.T) {
	svc, _ := newTestService(t)
	host := domain.Actor{UserID: hostID}

	_, err := svc.BlockDates(context.Background(), host, 1, domain.DateRange{CheckIn: june(5), CheckOut: june(5)}, "x")
	assert.ErrorIs(t, err, domain.ErrValidation)

	long := domain.DateRange{CheckIn: june(1), CheckOut: june(1).AddDate(3, 0, 0)}
	_, err = svc.BulkSetAvailability(context.Background(), host, 1, long, domain.DayFields{MinStay: domain.Ptr(2)})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) AcquireDateLocks(ctx context.Context, propertyID int64, dates []time.Time, owner string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, propertyID, dates, owner, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockLocker) ReleaseDateLocks(ctx context.Context, propertyID int64, dates []time.Time, owner string) error {
	args := m.Called(ctx, propertyID, dates, owner)
	return args.Error(0)
}

func TestReserve(t *testing.T) {
	ctx := context.Background()
	r := mustRange(t, 1, 3)

	t.Run("without locker", func(t *testing.T) {
		svc, _ := newTestService(t)
		res, err := svc.Reserve(ctx, 1, r)
		require.NoError(t, err)
		assert.NotEmpty(t, res.Token)
		assert.NoError(t, res.Release(ctx))
	})

	t.Run("acquired and released", func(t *testing.T) {
		locker := new(MockLocker)
		svc, _ := newTestService(t, WithLocker(locker, time.Minute))
		locker.On("AcquireDateLocks", ctx, int64(1), r.Dates(), mock.AnythingOfType("string"), time.Minute).Return(true, nil)
		locker.On("ReleaseDateLocks", ctx, int64(1), r.Dates(), mock.AnythingOfType("string")).Return(nil)

		res, err := svc.Reserve(ctx, 1, r)
		require.NoError(t, err)
		require.NoError(t, res.Release(ctx))
		locker.AssertExpectations(t)
	})

	t.Run("contended", func(t *testing.T) {
		locker := new(MockLocker)
		svc, _ := newTestService(t, WithLocker(locker, time.Minute))
		locker.On("AcquireDateLocks", ctx, int64(1), r.Dates(), mock.Anything, time.Minute).Return(false, nil)

		_, err := svc.Reserve(ctx, 1, r)
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("backend failure", func(t *testing.T) {
		locker := new(MockLocker)
		svc, _ := newTestService(t, WithLocker(locker, time.Minute))
		locker.On("AcquireDateLocks", ctx, int64(1), r.Dates(), mock.Anything, time.Minute).Return(false, errors.New("redis down"))

		_, err := svc.Reserve(ctx, 1, r)
		assert.ErrorIs(t, err, domain.ErrSystem)
	})

	t.Run("local locks exclude overlapping ranges", func(t *testing.T) {
		svc, _ := newTestService(t, WithLocker(cache.NewLocalLocks(), time.Minute))
		first, err := svc.Reserve(ctx, 1, mustRange(t, 1, 4))
		require.NoError(t, err)

		_, err = svc.Reserve(ctx, 1, mustRange(t, 3, 5))
		assert.ErrorIs(t, err, domain.ErrConflict)

		other, err := svc.Reserve(ctx, 1, mustRange(t, 4, 6))
		require.NoError(t, err)
		require.NoError(t, other.Release(ctx))

		require.NoError(t, first.Release(ctx))
		second, err := svc.Reserve(ctx, 1, mustRange(t, 3, 5))
		require.NoError(t, err)
		assert.NoError(t, second.Release(ctx))
	})
}

func TestPurgeBefore(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	host := domain.Actor{UserID: hostID}

	_, err := svc.BlockDates(ctx, host, 1, mustRange(t, 1, 6), "x")
	require.NoError(t, err)

	n, err := svc.PurgeBefore(ctx, june(3))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestClearDay(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	host := domain.Actor{UserID: hostID}

	_, err := svc.SetAvailability(ctx, host, 1, june(3), domain.DayFields{IsAvailable: domain.Ptr(false), PriceOverride: domain.Ptr(domain.Money(90_00))})
	require.NoError(t, err)

	_, err = svc.ClearDay(ctx, domain.Actor{UserID: guestID}, 1, june(3))
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	day, err := svc.ClearDay(ctx, host, 1, june(3))
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultDay(1, june(3)), day)

	stored, err := store.Availability().GetDay(ctx, 1, june(3))
	require.NoError(t, err)
	assert.Nil(t, stored)

	// Clearing an absent day is a no-op.
	_, err = svc.ClearDay(ctx, host, 1, june(3))
	require.NoError(t, err)

	err = store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return On(tx.Availability()).Hold(ctx, 1, mustRange(t, 5, 6), "b-1")
	})
	require.NoError(t, err)
	_, err = svc.ClearDay(ctx, host, 1, june(5))
	assert.ErrorIs(t, err, domain.ErrConflict)
}
