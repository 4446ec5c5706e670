package cron

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/showcart-backend/pkg/logger"
)

type passthroughTxRunner struct{}

func (passthroughTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type recordingPurge struct {
	cutoffs []time.Time
	rows    int64
	err     error
}

func (r *recordingPurge) purge(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	r.cutoffs = append(r.cutoffs, cutoff)
	return r.rows, r.err
}

func TestNotificationCleanupJobCutoff(t *testing.T) {
	frozen := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	rec := &recordingPurge{rows: 7}

	job, err := NewNotificationCleanupJob(NotificationCleanupJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		DB:         passthroughTxRunner{},
		Repository: notificationPurgeAdapter{rec},
	})
	if err != nil {
		t.Fatalf("NewNotificationCleanupJob: %v", err)
	}
	job.(*purgeJob).now = func() time.Time { return frozen }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rec.cutoffs) != 1 {
		t.Fatalf("want one purge call, got %d", len(rec.cutoffs))
	}
	want := frozen.Add(-defaultNotificationRetention)
	if !rec.cutoffs[0].Equal(want) {
		t.Fatalf("cutoff = %s, want %s", rec.cutoffs[0], want)
	}
}

func TestNotificationCleanupJobCustomRetention(t *testing.T) {
	frozen := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	rec := &recordingPurge{}

	job, err := NewNotificationCleanupJob(NotificationCleanupJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		DB:         passthroughTxRunner{},
		Repository: notificationPurgeAdapter{rec},
		Retention:  48 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewNotificationCleanupJob: %v", err)
	}
	job.(*purgeJob).now = func() time.Time { return frozen }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := frozen.Add(-48 * time.Hour)
	if !rec.cutoffs[0].Equal(want) {
		t.Fatalf("cutoff = %s, want %s", rec.cutoffs[0], want)
	}
}

func TestNotificationCleanupJobWrapsError(t *testing.T) {
	rec := &recordingPurge{err: errors.New("table gone")}
	job, err := NewNotificationCleanupJob(NotificationCleanupJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		DB:         passthroughTxRunner{},
		Repository: notificationPurgeAdapter{rec},
	})
	if err != nil {
		t.Fatalf("NewNotificationCleanupJob: %v", err)
	}

	err = job.Run(context.Background())
	if err == nil {
		t.Fatal("want error")
	}
	if !strings.Contains(err.Error(), "notification-cleanup") {
		t.Fatalf("error %q should name the job", err)
	}
}

func TestOutboxRetentionJobDefaults(t *testing.T) {
	frozen := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	repo := &fakeOutboxRetentionRepo{rows: 12}

	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		DB:         passthroughTxRunner{},
		Repository: repo,
	})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	job.(*purgeJob).now = func() time.Time { return frozen }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !repo.lastCutoff.Equal(frozen.Add(-defaultOutboxRetention)) {
		t.Fatalf("cutoff = %s", repo.lastCutoff)
	}
	if repo.lastMinAttempts != defaultOutboxMinAttempts {
		t.Fatalf("minAttempts = %d, want %d", repo.lastMinAttempts, defaultOutboxMinAttempts)
	}
}

func TestOutboxRetentionJobRejectsNilRepo(t *testing.T) {
	_, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		DB:     passthroughTxRunner{},
	})
	if err == nil {
		t.Fatal("want constructor error")
	}
}

// notificationPurgeAdapter exposes recordingPurge under the repo
// interface the constructor expects.
type notificationPurgeAdapter struct {
	rec *recordingPurge
}

func (a notificationPurgeAdapter) DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	return a.rec.purge(ctx, tx, cutoff)
}

type fakeOutboxRetentionRepo struct {
	lastCutoff      time.Time
	lastMinAttempts int
	rows            int64
	err             error
}

func (f *fakeOutboxRetentionRepo) DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error) {
	f.lastCutoff = cutoff
	f.lastMinAttempts = minAttemptCount
	if f.err != nil {
		return 0, f.err
	}
	return f.rows, nil
}
