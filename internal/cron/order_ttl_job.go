package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/showcart-backend/pkg/db/models"
	"github.com/angelmondragon/showcart-backend/pkg/logger"
)

const defaultPendingOrderTTL = 8 * time.Minute

// OrderTTLJobParams configure the pending order sweeper.
type OrderTTLJobParams struct {
	Logger        *logger.Logger
	PendingReader pendingOrderReader
	Expirer       orderExpirer
	TTL           time.Duration
}

type pendingOrderReader interface {
	FindPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error)
}

type orderExpirer interface {
	Expire(ctx context.Context, orderID uuid.UUID) error
}

// NewOrderTTLJob builds the sweeper that expires orders whose payment
// never arrived, releasing the inventory they hold.
func NewOrderTTLJob(params OrderTTLJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.PendingReader == nil {
		return nil, fmt.Errorf("pending orders reader required")
	}
	if params.Expirer == nil {
		return nil, fmt.Errorf("order expirer required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultPendingOrderTTL
	}
	return &orderTTLJob{
		logg:          params.Logger,
		pendingReader: params.PendingReader,
		expirer:       params.Expirer,
		ttl:           ttl,
		now:           time.Now,
	}, nil
}

type orderTTLJob struct {
	logg          *logger.Logger
	pendingReader pendingOrderReader
	expirer       orderExpirer
	ttl           time.Duration
	now           func() time.Time
}

func (j *orderTTLJob) Name() string { return "order-ttl" }

// Run expires every pending order older than the TTL. Each order gets
// its own transaction inside Expire, so one poisoned row cannot hold
// the rest of the sweep hostage; failures are collected and reported
// together. An order that pays between the read and the expiry is left
// alone by Expire's status guard.
func (j *orderTTLJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	stale, err := j.pendingReader.FindPendingBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("query stale pending orders: %w", err)
	}

	var errs []error
	expired := 0
	for _, order := range stale {
		if err := j.expirer.Expire(ctx, order.ID); err != nil {
			errs = append(errs, fmt.Errorf("expire order %s: %w", order.ID, err))
			continue
		}
		expired++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"scanned": len(stale),
		"expired": expired,
		"failed":  len(errs),
	})
	j.logg.Info(logCtx, "pending order sweep complete")
	return multierr.Combine(errs...)
}
