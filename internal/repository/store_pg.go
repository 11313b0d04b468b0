package repository

import (
	"context"
	"errors"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateUniqueViolation      = "23505"
	sqlStateExclusionViolation   = "23P01"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgReader struct {
	q querier
}

func (r pgReader) Availability() AvailabilityRepository {
	return &PGAvailabilityRepository{db: r.q}
}

func (r pgReader) Bookings() BookingRepository {
	return &PGBookingRepository{db: r.q}
}

func (r pgReader) Policies() PolicyRepository {
	return &PGPolicyRepository{db: r.q}
}

type PGStore struct {
	pgReader
	pool       *pgxpool.Pool
	maxRetries int
}

func NewPGStore(pool *pgxpool.Pool, maxRetries int) *PGStore {
	return &PGStore{pgReader: pgReader{q: pool}, pool: pool, maxRetries: maxRetries}
}

// WithinTx runs fn in a SERIALIZABLE transaction, retrying on serialization
// failures and deadlocks.
func (s *PGStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	for attempt := 0; ; attempt++ {
		err := s.runTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !isRetryable(err) || attempt >= s.maxRetries {
			return err
		}
	}
}

func (s *PGStore) runTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return domain.SystemError("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &pgTx{pgReader: pgReader{q: tx}, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.SystemError("commit transaction", err)
	}
	return nil
}

type pgTx struct {
	pgReader
	tx pgx.Tx
}

func (t *pgTx) LockProperty(ctx context.Context, propertyID int64) error {
	if _, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, propertyID); err != nil {
		return domain.SystemError("lock property", err)
	}
	return nil
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == sqlStateSerializationFailure || pgErr.Code == sqlStateDeadlockDetected
}

func isConstraintViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == sqlStateUniqueViolation || pgErr.Code == sqlStateExclusionViolation
}

var _ Store = (*PGStore)(nil)
