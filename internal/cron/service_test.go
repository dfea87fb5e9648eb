package cron

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/martincervantes/procurehub-backend/internal/queue"
	"github.com/martincervantes/procurehub-backend/pkg/logger"
)

type fakeLock struct {
	held     bool
	acquired int
	released int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held {
		return false, nil
	}
	f.held = true
	f.acquired++
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.released++
	return nil
}

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	registry := NewRegistry(&testJob{name: "success"}, &testJob{name: "fail", err: errors.New("boom")})
	locks := map[string]*fakeLock{}
	service, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: registry,
		Locks: func(job string) Lock {
			if _, ok := locks[job]; !ok {
				locks[job] = &fakeLock{}
			}
			return locks[job]
		},
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	err = service.RunCycle(context.Background())
	if err == nil {
		t.Fatalf("expected aggregated cycle error")
	}
	if !strings.Contains(err.Error(), "fail: boom") {
		t.Fatalf("expected failing job in aggregate error, got %v", err)
	}

	jobs := registry.Jobs()
	for _, job := range jobs {
		typed := job.(*testJob)
		if typed.runs != 1 {
			t.Fatalf("expected %s to run once, ran %d", typed.name, typed.runs)
		}
	}
	for name, lock := range locks {
		if lock.acquired != 1 || lock.released != 1 {
			t.Fatalf("lock for %s acquired=%d released=%d", name, lock.acquired, lock.released)
		}
	}
}

func TestServiceSkipsJobWhoseLockIsHeld(t *testing.T) {
	job := &testJob{name: "busy"}
	lock := &fakeLock{held: true}
	service, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(job),
		Locks:    func(string) Lock { return lock },
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	if err := service.RunCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("expected job skipped while lock held, ran %d", job.runs)
	}
}

type stubReconciler struct {
	report queue.ReconcileReport
	err    error
	calls  int
}

func (s *stubReconciler) Reconcile(context.Context) (*queue.ReconcileReport, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &s.report, nil
}

func TestQueueReconcileJob(t *testing.T) {
	reconciler := &stubReconciler{report: queue.ReconcileReport{Dropped: 1, Restored: 2}}
	job, err := NewQueueReconcileJob(reconciler, testLogger())
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if job.Name() != "queue_reconcile" {
		t.Fatalf("unexpected job name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if reconciler.calls != 1 {
		t.Fatalf("expected one reconcile call, got %d", reconciler.calls)
	}

	reconciler.err = errors.New("redis down")
	if err := job.Run(context.Background()); err == nil {
		t.Fatalf("expected reconcile error to propagate")
	}
}

type stubWarmer struct {
	err   error
	calls int
}

func (s *stubWarmer) WarmAll(context.Context) error {
	s.calls++
	return s.err
}

func TestSnapshotRefreshJob(t *testing.T) {
	warmer := &stubWarmer{}
	job, err := NewSnapshotRefreshJob(warmer)
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if job.Name() != "snapshot_refresh" {
		t.Fatalf("unexpected job name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if warmer.calls != 1 {
		t.Fatalf("expected one warm call, got %d", warmer.calls)
	}
}
