//go:build integration

package booking

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Domenick1991/staybooking/internal/clock"
	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/Domenick1991/staybooking/internal/obs"
	"github.com/Domenick1991/staybooking/internal/repository"
	"github.com/Domenick1991/staybooking/internal/service/availability"
)

// Run with: STAYBOOKING_TEST_DSN=postgres://... go test -tags integration ./internal/service/booking/
func newPGPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("STAYBOOKING_TEST_DSN")
	if dsn == "" {
		t.Skip("STAYBOOKING_TEST_DSN not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, pool.Ping(ctx))
	require.NoError(t, repository.Migrate(ctx, pool))
	return pool
}

func seedPGProperty(t *testing.T, pool *pgxpool.Pool) int64 {
	t.Helper()
	ctx := context.Background()
	var id int64
	err := pool.QueryRow(ctx,
		`INSERT INTO properties (owner_id, title, base_price_cents, currency, max_adults, instant_book)
		 VALUES ($1, 'integration', 10000, 'EUR', 4, TRUE) RETURNING id`, hostID).Scan(&id)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, `DELETE FROM bookings WHERE property_id=$1`, id)
		_, _ = pool.Exec(ctx, `DELETE FROM availability_days WHERE property_id=$1`, id)
		_, _ = pool.Exec(ctx, `DELETE FROM properties WHERE id=$1`, id)
	})
	return id
}

func TestPGBookingService_CreateBooking_ConcurrentOverlap(t *testing.T) {
	pool := newPGPool(t)
	propertyID := seedPGProperty(t, pool)

	const n = 12
	store := repository.NewPGStore(pool, n)
	properties := repository.NewPropertyRepository(pool)
	c := clock.NewFixed(time.Date(2030, time.May, 1, 0, 0, 0, 0, time.UTC))
	calendar := availability.NewService(store, properties, availability.WithClock(c))
	svc := NewBookingService(store, properties, calendar, nil, "", WithClock(c), WithLogger(obs.Discard()))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		failures  []error
	)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Every request overlaps June 3.
			in := CreateBookingInput{PropertyID: propertyID, CheckIn: june(1 + i%3), CheckOut: june(4 + i%2), Adults: 1}
			_, err := svc.CreateBooking(context.Background(), domain.Actor{UserID: int64(100 + i)}, in)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err)
				return
			}
			successes++
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	require.Len(t, failures, n-1)
	for _, err := range failures {
		assert.ErrorIs(t, err, domain.ErrConflict)
	}

	held, err := store.Bookings().List(context.Background(), repository.BookingFilter{PropertyID: propertyID, Statuses: domain.HeldStatuses})
	require.NoError(t, err)
	require.Len(t, held, 1)

	days, err := calendar.Range(context.Background(), propertyID, domain.DateRange{CheckIn: held[0].CheckIn, CheckOut: held[0].CheckOut})
	require.NoError(t, err)
	for _, d := range days {
		assert.True(t, d.HeldBy(held[0].ID), domain.FormatDate(d.Date))
	}
}
