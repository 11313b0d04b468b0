package cache

import (
	"context"
	"sync"
	"time"
)

// LocalLocks is an in-process implementation of the date-lock contract used
// when Redis is not configured.
type LocalLocks struct {
	mu    sync.Mutex
	held  map[string]localLock
	clock func() time.Time
}

type localLock struct {
	owner   string
	expires time.Time
}

func NewLocalLocks() *LocalLocks {
	return &LocalLocks{held: make(map[string]localLock), clock: time.Now}
}

func (l *LocalLocks) AcquireDateLocks(ctx context.Context, propertyID int64, dates []time.Time, owner string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	sorted := sortedDates(dates)
	for _, d := range sorted {
		if lk, ok := l.held[dateLockKey(propertyID, d)]; ok && lk.owner != owner && now.Before(lk.expires) {
			return false, nil
		}
	}
	for _, d := range sorted {
		l.held[dateLockKey(propertyID, d)] = localLock{owner: owner, expires: now.Add(ttl)}
	}
	return true, nil
}

func (l *LocalLocks) ReleaseDateLocks(ctx context.Context, propertyID int64, dates []time.Time, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, d := range dates {
		key := dateLockKey(propertyID, d)
		if lk, ok := l.held[key]; ok && lk.owner == owner {
			delete(l.held, key)
		}
	}
	return nil
}
