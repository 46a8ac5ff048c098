package history

import (
	"context"
	"fmt"
	"time"

	"github.com/stylisthq/stylist-server/internal/models"

	log "github.com/sirupsen/logrus"
)

// Chain tries each backend in rank order, falling through on failure.
//
// Backends are deliberately not reconciled: an item saved to a fallback
// during an outage stays in that fallback only. Each call reports which
// backend served it so callers and tests can observe the fallback.
type Chain struct {
	stores []Store

	// SaveFailureHook, when set, observes each backend that rejects a save.
	SaveFailureHook func(backend string)
}

// NewChain constructs a Chain from ranked backends, primary first.
func NewChain(stores ...Store) *Chain {
	return &Chain{stores: stores}
}

// Save stores the item in the first backend that accepts it.
func (c *Chain) Save(ctx context.Context, item models.HistoryItem) (string, error) {
	var lastErr error
	for _, store := range c.stores {
		if errSave := store.Save(ctx, item); errSave != nil {
			log.WithError(errSave).WithField("backend", store.Name()).Warn("history: save failed, trying next backend")
			if c.SaveFailureHook != nil {
				c.SaveFailureHook(store.Name())
			}
			lastErr = errSave
			continue
		}
		return store.Name(), nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("history: no backends configured")
	}
	return "", lastErr
}

// List returns items from the first backend that answers.
func (c *Chain) List(ctx context.Context, userID uint64) ([]models.HistoryItem, string, error) {
	var lastErr error
	for _, store := range c.stores {
		items, errList := store.List(ctx, userID)
		if errList != nil {
			log.WithError(errList).WithField("backend", store.Name()).Warn("history: list failed, trying next backend")
			lastErr = errList
			continue
		}
		return items, store.Name(), nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("history: no backends configured")
	}
	return nil, "", lastErr
}

// Count returns the windowed count from the first backend that answers.
func (c *Chain) Count(ctx context.Context, userID uint64, window time.Duration) (int64, string, error) {
	var lastErr error
	for _, store := range c.stores {
		count, errCount := store.Count(ctx, userID, window)
		if errCount != nil {
			log.WithError(errCount).WithField("backend", store.Name()).Warn("history: count failed, trying next backend")
			lastErr = errCount
			continue
		}
		return count, store.Name(), nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("history: no backends configured")
	}
	return 0, "", lastErr
}
