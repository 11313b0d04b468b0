package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/Domenick1991/staybooking/config"
	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes a lock only if it is still owned by the caller.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisCache struct {
	client      *redis.Client
	propertyTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, propertyTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:      redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		propertyTTL: propertyTTL,
	}
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) GetProperty(ctx context.Context, id int64) (*domain.Property, error) {
	data, err := c.client.Get(ctx, propertyKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var p domain.Property
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *RedisCache) SetProperty(ctx context.Context, p *domain.Property) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, propertyKey(p.ID), payload, c.propertyTTL).Err()
}

// AcquireDateLocks takes one lock per (property, date) in ascending date
// order. On any miss the locks taken so far are released and false is
// returned.
func (c *RedisCache) AcquireDateLocks(ctx context.Context, propertyID int64, dates []time.Time, owner string, ttl time.Duration) (bool, error) {
	sorted := sortedDates(dates)
	for i, d := range sorted {
		ok, err := c.client.SetNX(ctx, dateLockKey(propertyID, d), owner, ttl).Result()
		if err != nil || !ok {
			_ = c.ReleaseDateLocks(ctx, propertyID, sorted[:i], owner)
			return false, err
		}
	}
	return true, nil
}

func (c *RedisCache) ReleaseDateLocks(ctx context.Context, propertyID int64, dates []time.Time, owner string) error {
	var errs []error
	for _, d := range dates {
		if err := releaseScript.Run(ctx, c.client, []string{dateLockKey(propertyID, d)}, owner).Err(); err != nil && !errors.Is(err, redis.Nil) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func sortedDates(dates []time.Time) []time.Time {
	sorted := make([]time.Time, len(dates))
	for i, d := range dates {
		sorted[i] = domain.Day(d)
	}
	slices.SortFunc(sorted, func(a, b time.Time) int { return a.Compare(b) })
	return slices.Compact(sorted)
}

func propertyKey(id int64) string {
	return fmt.Sprintf("cache:property:%d", id)
}

func dateLockKey(propertyID int64, date time.Time) string {
	return fmt.Sprintf("lock:property:%d:date:%s", propertyID, domain.FormatDate(date))
}
