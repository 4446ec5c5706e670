package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/showcart-backend/pkg/logger"
)

type countingLock struct {
	held     bool
	acquires int
	releases int
	denyAll  bool
}

func (l *countingLock) Acquire(context.Context) (bool, error) {
	l.acquires++
	if l.denyAll || l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

func (l *countingLock) Release(context.Context) error {
	l.held = false
	l.releases++
	return nil
}

type scriptedJob struct {
	name   string
	err    error
	panics bool
	runs   int
}

func (j *scriptedJob) Name() string { return j.name }

func (j *scriptedJob) Run(context.Context) error {
	j.runs++
	if j.panics {
		panic("job blew up")
	}
	return j.err
}

func testService(t *testing.T, lock Lock, jobs ...Job) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test"}),
		Registry: NewRegistry(jobs...),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestTickRunsEveryJobDespiteFailures(t *testing.T) {
	ok := &scriptedJob{name: "ok"}
	bad := &scriptedJob{name: "bad", err: errors.New("boom")}
	after := &scriptedJob{name: "after"}
	lock := &countingLock{}

	svc := testService(t, lock, ok, bad, after)
	svc.tick(context.Background())

	for _, j := range []*scriptedJob{ok, bad, after} {
		if j.runs != 1 {
			t.Fatalf("job %s ran %d times, want 1", j.name, j.runs)
		}
	}
	if lock.releases != 1 {
		t.Fatalf("lock released %d times, want 1", lock.releases)
	}
}

func TestTickSurvivesPanickingJob(t *testing.T) {
	angry := &scriptedJob{name: "angry", panics: true}
	calm := &scriptedJob{name: "calm"}
	lock := &countingLock{}

	svc := testService(t, lock, angry, calm)
	svc.tick(context.Background())

	if calm.runs != 1 {
		t.Fatalf("job after the panic ran %d times, want 1", calm.runs)
	}
	if lock.releases != 1 {
		t.Fatal("lock not released after panic")
	}
}

func TestTickSkipsWhenLockHeldElsewhere(t *testing.T) {
	job := &scriptedJob{name: "job"}
	lock := &countingLock{denyAll: true}

	svc := testService(t, lock, job)
	svc.tick(context.Background())

	if job.runs != 0 {
		t.Fatalf("job ran %d times while lock was held elsewhere", job.runs)
	}
	if lock.releases != 0 {
		t.Fatal("released a lock it never acquired")
	}
}

func TestNewServiceRequiresLock(t *testing.T) {
	_, err := NewService(ServiceParams{
		Logger: logger.New(logger.Options{ServiceName: "cron-test"}),
	})
	if err == nil {
		t.Fatal("want constructor error")
	}
}
