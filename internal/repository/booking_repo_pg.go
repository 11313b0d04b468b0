package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/jackc/pgx/v5"
)

const bookingColumns = `id, property_id, guest_id, host_id, check_in, check_out, adults, children, total_amount_cents, nightly_rate_cents, refund_amount_cents, status, confirmation_code, host_notes, cancellation_reason, confirmed_at, checked_in_at, completed_at, cancelled_at, created_at, updated_at, version`

type PGBookingRepository struct {
	db querier
}

func (r *PGBookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	b.Version = 1
	_, err := r.db.Exec(ctx, `INSERT INTO bookings (`+bookingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`,
		b.ID, b.PropertyID, b.GuestID, b.HostID, b.CheckIn, b.CheckOut, b.Adults, b.Children,
		int64(b.TotalAmount), int64(b.NightlyRate), int64(b.RefundAmount), string(b.Status), b.ConfirmationCode,
		b.HostNotes, b.CancellationReason, b.ConfirmedAt, b.CheckedInAt, b.CompletedAt, b.CancelledAt,
		b.CreatedAt, b.UpdatedAt, b.Version)
	if err != nil {
		if isConstraintViolation(err) {
			return domain.ConflictError("property %d already booked for %s", b.PropertyID, b.Range())
		}
		return domain.SystemError("create booking", err)
	}
	return nil
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	return r.getOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id)
}

func (r *PGBookingRepository) GetByConfirmationCode(ctx context.Context, code string) (*domain.Booking, error) {
	return r.getOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE confirmation_code=$1`, code)
}

func (r *PGBookingRepository) getOne(ctx context.Context, query, key string) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, query, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NotFoundError("booking %s not found", key)
	}
	if err != nil {
		return nil, domain.SystemError("get booking", err)
	}
	return b, nil
}

func (r *PGBookingRepository) Update(ctx context.Context, b *domain.Booking) error {
	var version int64
	err := r.db.QueryRow(ctx, `UPDATE bookings SET
			check_in=$3, check_out=$4, adults=$5, children=$6, total_amount_cents=$7, nightly_rate_cents=$8,
			refund_amount_cents=$9, status=$10, host_notes=$11, cancellation_reason=$12, confirmed_at=$13,
			checked_in_at=$14, completed_at=$15, cancelled_at=$16, updated_at=$17, version=version+1
		WHERE id=$1 AND version=$2
		RETURNING version`,
		b.ID, b.Version, b.CheckIn, b.CheckOut, b.Adults, b.Children, int64(b.TotalAmount), int64(b.NightlyRate),
		int64(b.RefundAmount), string(b.Status), b.HostNotes, b.CancellationReason, b.ConfirmedAt,
		b.CheckedInAt, b.CompletedAt, b.CancelledAt, b.UpdatedAt).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ConflictError("booking %s was modified concurrently", b.ID)
	}
	if err != nil {
		if isConstraintViolation(err) {
			return domain.ConflictError("property %d already booked for %s", b.PropertyID, b.Range())
		}
		return domain.SystemError("update booking", err)
	}
	b.Version = version
	return nil
}

func (r *PGBookingRepository) List(ctx context.Context, f BookingFilter) ([]domain.Booking, error) {
	query, args := listBookingsQuery(f)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, domain.SystemError("list bookings", err)
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, domain.SystemError("scan booking", err)
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.SystemError("list bookings", err)
	}
	return bookings, nil
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var (
		b                   domain.Booking
		total, rate, refund int64
		status              string
	)
	if err := row.Scan(&b.ID, &b.PropertyID, &b.GuestID, &b.HostID, &b.CheckIn, &b.CheckOut, &b.Adults, &b.Children,
		&total, &rate, &refund, &status, &b.ConfirmationCode, &b.HostNotes, &b.CancellationReason,
		&b.ConfirmedAt, &b.CheckedInAt, &b.CompletedAt, &b.CancelledAt, &b.CreatedAt, &b.UpdatedAt, &b.Version); err != nil {
		return nil, err
	}
	b.TotalAmount = domain.Money(total)
	b.NightlyRate = domain.Money(rate)
	b.RefundAmount = domain.Money(refund)
	b.Status = domain.BookingStatus(status)
	b.CheckIn = domain.Day(b.CheckIn)
	b.CheckOut = domain.Day(b.CheckOut)
	return &b, nil
}

var _ BookingRepository = (*PGBookingRepository)(nil)

// listBookingsQuery orders by id last so equal check-in and creation times
// still page deterministically.
func listBookingsQuery(f BookingFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.GuestID != 0 {
		add("guest_id=$%d", f.GuestID)
	}
	if f.HostID != 0 {
		add("host_id=$%d", f.HostID)
	}
	if f.PropertyID != 0 {
		add("property_id=$%d", f.PropertyID)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		add("status = ANY($%d)", statuses)
	}
	if f.Overlapping != nil {
		add("check_in < $%d", f.Overlapping.CheckOut)
		add("check_out > $%d", f.Overlapping.CheckIn)
	}
	if f.CheckInFrom != nil {
		add("check_in >= $%d", *f.CheckInFrom)
	}
	if f.CheckInTo != nil {
		add("check_in < $%d", *f.CheckInTo)
	}
	if f.CheckOutFrom != nil {
		add("check_out >= $%d", *f.CheckOutFrom)
	}
	if f.CheckOutTo != nil {
		add("check_out < $%d", *f.CheckOutTo)
	}
	if f.CreatedBefore != nil {
		add("created_at < $%d", *f.CreatedBefore)
	}
	if f.ExcludeID != "" {
		add("id <> $%d", f.ExcludeID)
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY check_in, created_at, id`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	return query, args
}
