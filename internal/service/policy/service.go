package policy

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Domenick1991/staybooking/internal/clock"
	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/Domenick1991/staybooking/internal/repository"
)

type Input struct {
	Type              domain.PolicyType `json:"type"`
	RefundPercentage  int               `json:"refund_percentage"`
	DaysBeforeCheckin int               `json:"days_before_checkin"`
	Description       string            `json:"description"`
}

type Service struct {
	store      repository.Store
	properties repository.PropertyRepository
	clock      clock.Clock
	logger     *slog.Logger
}

func NewService(store repository.Store, properties repository.PropertyRepository, c clock.Clock, logger *slog.Logger) *Service {
	return &Service{store: store, properties: properties, clock: c, logger: logger}
}

// Active returns the property's active policy or the default one.
func Active(ctx context.Context, repo repository.PolicyRepository, propertyID int64) (domain.CancellationPolicy, error) {
	p, err := repo.GetActive(ctx, propertyID)
	if err != nil {
		return domain.CancellationPolicy{}, err
	}
	if p == nil {
		return domain.DefaultPolicy(propertyID), nil
	}
	return *p, nil
}

// Quote evaluates the refund for cancelling booking on cancelDate under the
// policy active at that moment.
func Quote(ctx context.Context, repo repository.PolicyRepository, booking domain.Booking, cancelDate time.Time) (domain.RefundQuote, domain.CancellationPolicy, error) {
	p, err := Active(ctx, repo, booking.PropertyID)
	if err != nil {
		return domain.RefundQuote{}, domain.CancellationPolicy{}, err
	}
	return p.Refund(booking.TotalAmount, cancelDate, booking.CheckIn), p, nil
}

func (s *Service) GetPolicy(ctx context.Context, propertyID int64) (domain.CancellationPolicy, error) {
	if _, err := s.properties.GetByID(ctx, propertyID); err != nil {
		return domain.CancellationPolicy{}, err
	}
	return Active(ctx, s.store.Policies(), propertyID)
}

func (s *Service) SetPolicy(ctx context.Context, actor domain.Actor, propertyID int64, in Input) (*domain.CancellationPolicy, error) {
	if err := s.authorize(ctx, actor, propertyID); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	p := &domain.CancellationPolicy{
		ID:                uuid.NewString(),
		PropertyID:        propertyID,
		Type:              in.Type,
		RefundPercentage:  in.RefundPercentage,
		DaysBeforeCheckin: in.DaysBeforeCheckin,
		Description:       in.Description,
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return tx.Policies().ReplaceActive(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "cancellation policy replaced",
		"property_id", propertyID, "type", p.Type.String(), "refund_percentage", p.RefundPercentage)
	return p, nil
}

// History lists every policy the property has had, newest first.
func (s *Service) History(ctx context.Context, actor domain.Actor, propertyID int64) ([]domain.CancellationPolicy, error) {
	if err := s.authorize(ctx, actor, propertyID); err != nil {
		return nil, err
	}
	return s.store.Policies().ListByProperty(ctx, propertyID)
}

func (s *Service) authorize(ctx context.Context, actor domain.Actor, propertyID int64) error {
	property, err := s.properties.GetByID(ctx, propertyID)
	if err != nil {
		return err
	}
	if !actor.Admin && !property.OwnedBy(actor) {
		return domain.PermissionError("only the property owner can manage its cancellation policy")
	}
	return nil
}
