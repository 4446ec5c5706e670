package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/showcart-backend/pkg/logger"
)

// Housekeeping jobs. Both sweep rows that have aged past a retention
// window; they share the purge runner below and differ only in what
// they delete.

const (
	defaultNotificationRetention = 30 * 24 * time.Hour
	defaultOutboxRetention       = 30 * 24 * time.Hour
	defaultOutboxMinAttempts     = 5
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// purgeFunc deletes rows older than cutoff and reports how many went.
type purgeFunc func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)

type purgeJob struct {
	name   string
	logg   *logger.Logger
	db     txRunner
	window time.Duration
	purge  purgeFunc
	now    func() time.Time
}

func (j *purgeJob) Name() string { return j.name }

func (j *purgeJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.window)
	var purged int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		purged, err = j.purge(ctx, tx, cutoff)
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff": cutoff,
		"window": j.window.String(),
		"purged": purged,
	})
	j.logg.Info(logCtx, j.name+" sweep complete")
	return nil
}

func newPurgeJob(name string, logg *logger.Logger, db txRunner, window time.Duration, purge purgeFunc) (*purgeJob, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if db == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if purge == nil {
		return nil, fmt.Errorf("purge function required")
	}
	return &purgeJob{
		name:   name,
		logg:   logg,
		db:     db,
		window: window,
		purge:  purge,
		now:    time.Now,
	}, nil
}

type notificationsCleanupRepo interface {
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// NotificationCleanupJobParams configure the read-notification purge.
// A zero Retention means the 30-day default.
type NotificationCleanupJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository notificationsCleanupRepo
	Retention  time.Duration
}

// NewNotificationCleanupJob builds the job that drops notifications old
// enough that nobody will scroll back to them.
func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	window := params.Retention
	if window <= 0 {
		window = defaultNotificationRetention
	}
	return newPurgeJob("notification-cleanup", params.Logger, params.DB, window, params.Repository.DeleteOlderThan)
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

// OutboxRetentionJobParams configure the published-outbox purge. Rows
// are only eligible once published and past MinAttempts, so a stuck
// event keeps its delivery history until an operator looks at it.
type OutboxRetentionJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Repository  outboxRetentionRepo
	Retention   time.Duration
	MinAttempts int
}

// NewOutboxRetentionJob builds the job that trims delivered outbox rows.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	window := params.Retention
	if window <= 0 {
		window = defaultOutboxRetention
	}
	minAttempts := params.MinAttempts
	if minAttempts <= 0 {
		minAttempts = defaultOutboxMinAttempts
	}
	repo := params.Repository
	return newPurgeJob("outbox-retention", params.Logger, params.DB, window, func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
		return repo.DeletePublishedBefore(ctx, tx, cutoff, minAttempts)
	})
}
