package cache

import (
	"context"
	"log/slog"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/Domenick1991/staybooking/internal/repository"
)

type PropertyCache interface {
	GetProperty(ctx context.Context, id int64) (*domain.Property, error)
	SetProperty(ctx context.Context, p *domain.Property) error
}

// CachedProperties is a read-through cache in front of the property
// directory. Cache failures fall back to the directory.
type CachedProperties struct {
	repo   repository.PropertyRepository
	cache  PropertyCache
	logger *slog.Logger
}

func NewCachedProperties(repo repository.PropertyRepository, cache PropertyCache, logger *slog.Logger) *CachedProperties {
	return &CachedProperties{repo: repo, cache: cache, logger: logger}
}

func (c *CachedProperties) GetByID(ctx context.Context, id int64) (*domain.Property, error) {
	if cached, err := c.cache.GetProperty(ctx, id); err == nil && cached != nil {
		return cached, nil
	} else if err != nil {
		c.logger.WarnContext(ctx, "property cache read failed", "property_id", id, "error", err)
	}

	p, err := c.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.cache.SetProperty(ctx, p); err != nil {
		c.logger.WarnContext(ctx, "property cache write failed", "property_id", id, "error", err)
	}
	return p, nil
}

var _ repository.PropertyRepository = (*CachedProperties)(nil)
