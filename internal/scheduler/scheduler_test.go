package scheduler

import (
	"context"
	"errors"
	"testing"

	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/notifications"
	"clipforge/internal/queue"
	"clipforge/internal/services"
	"clipforge/internal/testsupport"
)

func newScheduler(t *testing.T, cfg *config.Config) (*Scheduler, *queue.Store) {
	t.Helper()
	store := testsupport.MustOpenStore(t, cfg)
	sched, err := New(cfg, store, logging.NewNop(), notifications.NewService(cfg))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return sched, store
}

func TestSchedulerRegistersJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithScheduler(
		config.SchedulerJob{Name: "nightly", Cron: "0 3 * * *"},
		config.SchedulerJob{Name: "weekly", Cron: "0 6 * * 1", MaxClips: 20},
	))
	sched, _ := newScheduler(t, cfg)

	runs := sched.NextRuns()
	if len(runs) != 2 {
		t.Fatalf("next runs = %v, want 2 jobs", runs)
	}
	if runs[0].Name != "nightly" || runs[1].Name != "weekly" {
		t.Fatalf("jobs out of order: %v", runs)
	}
}

func TestSchedulerRejectsInvalidCron(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithScheduler(
		config.SchedulerJob{Name: "broken", Cron: "not a cron"},
	))
	store := testsupport.MustOpenStore(t, cfg)

	_, err := New(cfg, store, logging.NewNop(), notifications.NewService(cfg))
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestSchedulerRejectsUnnamedJob(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithScheduler(
		config.SchedulerJob{Cron: "0 3 * * *"},
	))
	store := testsupport.MustOpenStore(t, cfg)

	_, err := New(cfg, store, logging.NewNop(), notifications.NewService(cfg))
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestSchedulerDisabledIsInert(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Scheduler.Jobs = []config.SchedulerJob{{Name: "ignored", Cron: "bad"}}
	sched, _ := newScheduler(t, cfg)

	// Disabled schedulers validate nothing and never fire.
	sched.Start()
	defer sched.Stop()
	if runs := sched.NextRuns(); runs != nil {
		t.Fatalf("disabled scheduler should have no runs: %v", runs)
	}
}

func TestSchedulerEnqueueSkipsActiveRun(t *testing.T) {
	job := config.SchedulerJob{Name: "nightly", Cron: "0 3 * * *", MaxClips: 5}
	cfg := testsupport.NewConfig(t, testsupport.WithScheduler(job))
	sched, store := newScheduler(t, cfg)

	ctx := context.Background()
	if err := sched.enqueue(ctx, job); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	items, err := store.ItemsByStatus(ctx, queue.StatusPending)
	if err != nil {
		t.Fatalf("ItemsByStatus: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("pending items = %d, want 1", len(items))
	}
	if items[0].Schedule != "nightly" || items[0].MaxClips != 5 {
		t.Fatalf("unexpected item: %+v", items[0])
	}

	// Previous run still pending, so the next fire is a no-op.
	if err := sched.enqueue(ctx, job); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	items, err = store.ItemsByStatus(ctx, queue.StatusPending)
	if err != nil {
		t.Fatalf("ItemsByStatus: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("active schedule should not stack runs, got %d items", len(items))
	}
}
