package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/jackc/pgx/v5"
)

const availabilityColumns = `property_id, date, is_available, price_override_cents, min_stay, max_stay, is_instant_book, blocked_reason, check_in_allowed, check_out_allowed, created_at, updated_at`

type PGAvailabilityRepository struct {
	db querier
}

func (r *PGAvailabilityRepository) GetDay(ctx context.Context, propertyID int64, date time.Time) (*domain.AvailabilityDay, error) {
	row := r.db.QueryRow(ctx, `SELECT `+availabilityColumns+` FROM availability_days WHERE property_id=$1 AND date=$2`, propertyID, domain.Day(date))
	day, err := scanDay(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.SystemError("get availability day", err)
	}
	return day, nil
}

func (r *PGAvailabilityRepository) ListDays(ctx context.Context, propertyID int64, dr domain.DateRange) ([]domain.AvailabilityDay, error) {
	rows, err := r.db.Query(ctx, `SELECT `+availabilityColumns+` FROM availability_days WHERE property_id=$1 AND date >= $2 AND date < $3 ORDER BY date`, propertyID, dr.CheckIn, dr.CheckOut)
	if err != nil {
		return nil, domain.SystemError("list availability days", err)
	}
	defer rows.Close()

	days := make([]domain.AvailabilityDay, 0)
	for rows.Next() {
		day, err := scanDay(rows)
		if err != nil {
			return nil, domain.SystemError("scan availability day", err)
		}
		days = append(days, *day)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.SystemError("list availability days", err)
	}
	return days, nil
}

func (r *PGAvailabilityRepository) UpsertDay(ctx context.Context, day domain.AvailabilityDay) (domain.AvailabilityDay, error) {
	day.Date = domain.Day(day.Date)
	err := r.db.QueryRow(ctx, `INSERT INTO availability_days (`+availabilityColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		ON CONFLICT (property_id, date) DO UPDATE SET
			is_available = EXCLUDED.is_available,
			price_override_cents = EXCLUDED.price_override_cents,
			min_stay = EXCLUDED.min_stay,
			max_stay = EXCLUDED.max_stay,
			is_instant_book = EXCLUDED.is_instant_book,
			blocked_reason = EXCLUDED.blocked_reason,
			check_in_allowed = EXCLUDED.check_in_allowed,
			check_out_allowed = EXCLUDED.check_out_allowed,
			updated_at = now()
		RETURNING created_at, updated_at`,
		day.PropertyID, day.Date, day.IsAvailable, moneyToNullable(day.PriceOverride), day.MinStay, day.MaxStay,
		day.IsInstantBook, day.BlockedReason, day.CheckInAllowed, day.CheckOutAllowed).
		Scan(&day.CreatedAt, &day.UpdatedAt)
	if err != nil {
		return domain.AvailabilityDay{}, domain.SystemError("upsert availability day", err)
	}
	return day, nil
}

func (r *PGAvailabilityRepository) DeleteDay(ctx context.Context, propertyID int64, date time.Time) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM availability_days WHERE property_id=$1 AND date=$2`, propertyID, domain.Day(date)); err != nil {
		return domain.SystemError("delete availability day", err)
	}
	return nil
}

func (r *PGAvailabilityRepository) DeleteDaysBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	cmd, err := r.db.Exec(ctx, `DELETE FROM availability_days WHERE date < $1`, domain.Day(cutoff))
	if err != nil {
		return 0, domain.SystemError("purge availability days", err)
	}
	return cmd.RowsAffected(), nil
}

func scanDay(row pgx.Row) (*domain.AvailabilityDay, error) {
	var (
		d     domain.AvailabilityDay
		price *int64
	)
	if err := row.Scan(&d.PropertyID, &d.Date, &d.IsAvailable, &price, &d.MinStay, &d.MaxStay, &d.IsInstantBook,
		&d.BlockedReason, &d.CheckInAllowed, &d.CheckOutAllowed, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	if price != nil {
		m := domain.Money(*price)
		d.PriceOverride = &m
	}
	d.Date = domain.Day(d.Date)
	return &d, nil
}

func moneyToNullable(m *domain.Money) *int64 {
	if m == nil {
		return nil
	}
	v := int64(*m)
	return &v
}

var _ AvailabilityRepository = (*PGAvailabilityRepository)(nil)
