package repository

import (
	"context"
	"errors"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/jackc/pgx/v5"
)

const policyColumns = `id, property_id, policy_type, refund_percentage, days_before_checkin, description, is_active, created_at, updated_at`

type PGPolicyRepository struct {
	db querier
}

func (r *PGPolicyRepository) GetActive(ctx context.Context, propertyID int64) (*domain.CancellationPolicy, error) {
	p, err := scanPolicy(r.db.QueryRow(ctx, `SELECT `+policyColumns+` FROM cancellation_policies WHERE property_id=$1 AND is_active`, propertyID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.SystemError("get active policy", err)
	}
	return p, nil
}

func (r *PGPolicyRepository) ReplaceActive(ctx context.Context, p *domain.CancellationPolicy) error {
	if _, err := r.db.Exec(ctx, `UPDATE cancellation_policies SET is_active=false, updated_at=$2 WHERE property_id=$1 AND is_active`, p.PropertyID, p.UpdatedAt); err != nil {
		return domain.SystemError("deactivate policy", err)
	}
	p.IsActive = true
	_, err := r.db.Exec(ctx, `INSERT INTO cancellation_policies (`+policyColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.PropertyID, p.Type.String(), p.RefundPercentage, p.DaysBeforeCheckin, p.Description, p.IsActive, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isConstraintViolation(err) {
			return domain.ConflictError("property %d policy changed concurrently", p.PropertyID)
		}
		return domain.SystemError("insert policy", err)
	}
	return nil
}

func (r *PGPolicyRepository) ListByProperty(ctx context.Context, propertyID int64) ([]domain.CancellationPolicy, error) {
	rows, err := r.db.Query(ctx, `SELECT `+policyColumns+` FROM cancellation_policies WHERE property_id=$1 ORDER BY created_at DESC, id DESC`, propertyID)
	if err != nil {
		return nil, domain.SystemError("list policies", err)
	}
	defer rows.Close()

	policies := make([]domain.CancellationPolicy, 0)
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, domain.SystemError("scan policy", err)
		}
		policies = append(policies, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.SystemError("list policies", err)
	}
	return policies, nil
}

func scanPolicy(row pgx.Row) (*domain.CancellationPolicy, error) {
	var (
		p          domain.CancellationPolicy
		policyType string
	)
	if err := row.Scan(&p.ID, &p.PropertyID, &policyType, &p.RefundPercentage, &p.DaysBeforeCheckin, &p.Description, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	t, err := domain.ParsePolicyType(policyType)
	if err != nil {
		return nil, err
	}
	p.Type = t
	return &p, nil
}

var _ PolicyRepository = (*PGPolicyRepository)(nil)
