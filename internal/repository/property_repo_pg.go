package repository

import (
	"context"
	"errors"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGPropertyRepository reads the property directory table.
type PGPropertyRepository struct {
	db *pgxpool.Pool
}

func NewPropertyRepository(db *pgxpool.Pool) PropertyRepository {
	return &PGPropertyRepository{db: db}
}

func (r *PGPropertyRepository) GetByID(ctx context.Context, id int64) (*domain.Property, error) {
	row := r.db.QueryRow(ctx, `SELECT id, owner_id, title, base_price_cents, currency, max_adults, max_children, instant_book, min_stay, max_stay FROM properties WHERE id=$1`, id)
	var (
		p     domain.Property
		price int64
	)
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Title, &price, &p.Currency, &p.MaxAdults, &p.MaxChildren, &p.InstantBook, &p.MinStay, &p.MaxStay); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFoundError("property %d not found", id)
		}
		return nil, domain.SystemError("get property", err)
	}
	p.BasePrice = domain.Money(price)
	return &p, nil
}

var _ PropertyRepository = (*PGPropertyRepository)(nil)
