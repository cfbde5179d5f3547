package snapshot

import (
	"context"
	"sync"

	"github.com/TorontoBikeTraffic/BT-Backend/internal/models"
)

// Cache loads each snapshot file at most once per process and serves it
// to concurrent readers. There is no invalidation: the pipeline runs out
// of process, so fresh data arrives with a restart. Stale data within a
// process lifetime is an accepted limitation.
type Cache struct {
	dailyPath      string
	fifteenMinPath string

	mu         sync.RWMutex
	daily      []models.DailyCount
	fifteenMin []models.FifteenMinCount
}

func NewCache(dailyPath, fifteenMinPath string) *Cache {
	return &Cache{dailyPath: dailyPath, fifteenMinPath: fifteenMinPath}
}

// DailyCounts returns the cached daily snapshot, loading it on first use.
func (c *Cache) DailyCounts(ctx context.Context) ([]models.DailyCount, error) {
	c.mu.RLock()
	rows := c.daily
	c.mu.RUnlock()
	if rows != nil {
		return rows, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.daily != nil {
		return c.daily, nil
	}
	loaded, err := ReadDailyCounts(ctx, c.dailyPath)
	if err != nil {
		return nil, err
	}
	c.daily = loaded
	return loaded, nil
}

// FifteenMinCounts returns the cached 15-minute snapshot, loading it on
// first use.
func (c *Cache) FifteenMinCounts(ctx context.Context) ([]models.FifteenMinCount, error) {
	c.mu.RLock()
	rows := c.fifteenMin
	c.mu.RUnlock()
	if rows != nil {
		return rows, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fifteenMin != nil {
		return c.fifteenMin, nil
	}
	loaded, err := ReadFifteenMinCounts(ctx, c.fifteenMinPath)
	if err != nil {
		return nil, err
	}
	c.fifteenMin = loaded
	return loaded, nil
}
