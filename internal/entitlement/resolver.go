// Package entitlement resolves the premium state of a user, settling any
// pending payment against the gateway along the way.
package entitlement

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/stylisthq/stylist-server/internal/history"
	"github.com/stylisthq/stylist-server/internal/models"
	"github.com/stylisthq/stylist-server/internal/payment"
)

// Resolution is the outcome of a resolver pass.
type Resolution struct {
	User           models.User
	Premium        bool
	History        []models.HistoryItem
	HistoryBackend string
}

// Resolver settles pending payments and reports the user's entitlement.
type Resolver struct {
	db      *gorm.DB
	gateway payment.Gateway
	store   *history.Chain
	nowFn   func() time.Time
}

// NewResolver builds a resolver over the given datastore, gateway and history chain.
func NewResolver(conn *gorm.DB, gateway payment.Gateway, store *history.Chain, nowFn func() time.Time) *Resolver {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Resolver{db: conn, gateway: gateway, store: store, nowFn: nowFn}
}

// Resolve loads the user, settles at most one pending payment and returns the
// premium flag together with recent history.
//
// A pending payment is checked against the gateway exactly once: whatever the
// outcome, the row leaves the pending state so the next pass skips the gateway.
func (r *Resolver) Resolve(ctx context.Context, userID uint64) (Resolution, error) {
	var user models.User
	if errFind := r.db.WithContext(ctx).First(&user, "id = ?", userID).Error; errFind != nil {
		return Resolution{}, fmt.Errorf("entitlement: load user %d: %w", userID, errFind)
	}

	if !user.Premium {
		if flipped, errSettle := r.settlePending(ctx, &user); errSettle != nil {
			log.WithError(errSettle).WithField("user_id", userID).Warn("entitlement: pending payment settlement failed")
		} else if flipped {
			user.Premium = true
		}
	}

	resolution := Resolution{User: user, Premium: user.Premium}
	if r.store != nil {
		items, backend, errList := r.store.List(ctx, userID)
		if errList != nil {
			log.WithError(errList).WithField("user_id", userID).Warn("entitlement: history listing failed")
		} else {
			resolution.History = items
			resolution.HistoryBackend = backend
		}
	}
	return resolution, nil
}

// settlePending performs the single gateway check for the user's pending
// payment, if one exists. It reports whether the user became premium.
func (r *Resolver) settlePending(ctx context.Context, user *models.User) (bool, error) {
	var pending models.Payment
	errFind := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", user.ID, models.PaymentStatusPending).
		Order("created_at DESC").
		First(&pending).Error
	if errFind != nil {
		if errFind == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, fmt.Errorf("entitlement: find pending payment: %w", errFind)
	}

	now := r.nowFn().UTC()
	status := models.PaymentStatusUnpaid
	paid := false

	if r.gateway != nil {
		result, errStatus := r.gateway.Status(ctx, pending.ID)
		if errStatus != nil {
			log.WithError(errStatus).WithField("payment_id", pending.ID).Warn("entitlement: gateway status check failed, resolving unpaid")
		} else if result.Paid {
			status = models.PaymentStatusPaid
			paid = true
		}
	}

	updates := map[string]any{"status": status, "checked_at": now}
	if errUpdate := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ?", pending.ID).Updates(updates).Error; errUpdate != nil {
		return false, fmt.Errorf("entitlement: resolve payment %s: %w", pending.ID, errUpdate)
	}

	if !paid {
		return false, nil
	}

	if errFlip := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", user.ID).Update("premium", true).Error; errFlip != nil {
		return false, fmt.Errorf("entitlement: persist premium flag for user %d: %w", user.ID, errFlip)
	}
	return true, nil
}

// HasPending reports whether the user currently has an unsettled payment.
func (r *Resolver) HasPending(ctx context.Context, userID uint64) (bool, error) {
	var count int64
	errCount := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("user_id = ? AND status = ?", userID, models.PaymentStatusPending).
		Count(&count).Error
	if errCount != nil {
		return false, fmt.Errorf("entitlement: count pending payments: %w", errCount)
	}
	return count > 0, nil
}
