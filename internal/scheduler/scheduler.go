// Package scheduler enqueues recurring compilation runs from cron rules.
//
// Each configured job carries a cron expression evaluated in the configured
// timezone. Firing a job enqueues one queue item tagged with the job name;
// the workflow picks it up like any manually queued run. A job whose previous
// run is still in flight is skipped, never stacked.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/robfig/cron/v3"

	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/notifications"
	"clipforge/internal/queue"
	"clipforge/internal/services"
)

const enqueueTimeout = 30 * time.Second

// Scheduler owns the cron runner and the configured recurring jobs.
type Scheduler struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	notifier notifications.Service

	cron    *cron.Cron
	entries map[string]cron.EntryID
}

// JobSchedule reports when a configured job fires next.
type JobSchedule struct {
	Name string
	Spec string
	Next time.Time
}

// New validates the configured jobs and registers them with a cron runner.
// The runner is not started; call Start. A disabled scheduler builds fine and
// Start becomes a no-op, so the daemon can compose it unconditionally.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) (*Scheduler, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Scheduler{
		cfg:      cfg,
		store:    store,
		logger:   logging.NewComponentLogger(logger, "scheduler"),
		notifier: notifier,
		entries:  make(map[string]cron.EntryID),
	}
	if !cfg.Scheduler.Enabled {
		return s, nil
	}

	location := time.Local
	if tz := cfg.Scheduler.Timezone; tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "scheduler", "timezone",
				fmt.Sprintf("unknown timezone %q", tz), err)
		}
		location = loc
	}
	s.cron = cron.New(cron.WithLocation(location))

	for _, job := range cfg.Scheduler.Jobs {
		job := job
		if job.Name == "" || job.Cron == "" {
			return nil, services.Wrap(services.ErrConfiguration, "scheduler", "jobs",
				"scheduler jobs need both a name and a cron expression", nil)
		}
		if _, exists := s.entries[job.Name]; exists {
			return nil, services.Wrap(services.ErrConfiguration, "scheduler", "jobs",
				fmt.Sprintf("duplicate scheduler job %q", job.Name), nil)
		}
		entryID, err := s.cron.AddFunc(job.Cron, func() { s.fire(job) })
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "scheduler", job.Name,
				fmt.Sprintf("invalid cron expression %q", job.Cron), err)
		}
		s.entries[job.Name] = entryID
		s.logger.Info("scheduler job registered",
			logging.String("job", job.Name),
			logging.String("cron", job.Cron))
	}
	return s, nil
}

// Start begins firing jobs. No-op when the scheduler is disabled or empty.
func (s *Scheduler) Start() {
	if s.cron == nil || len(s.entries) == 0 {
		s.logger.Debug("scheduler idle; no jobs to run")
		return
	}
	s.cron.Start()
	s.logger.Info("scheduler started", logging.Int("jobs", len(s.entries)))
}

// Stop halts the cron runner and waits for any in-flight enqueue to finish.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// NextRuns reports the upcoming fire time for every registered job, sorted by
// job name.
func (s *Scheduler) NextRuns() []JobSchedule {
	if s.cron == nil {
		return nil
	}
	runs := make([]JobSchedule, 0, len(s.entries))
	for _, job := range s.cfg.Scheduler.Jobs {
		entryID, ok := s.entries[job.Name]
		if !ok {
			continue
		}
		runs = append(runs, JobSchedule{
			Name: job.Name,
			Spec: job.Cron,
			Next: s.cron.Entry(entryID).Next,
		})
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Name < runs[j].Name })
	return runs
}

// fire enqueues one run for the job unless its previous run is still active.
func (s *Scheduler) fire(job config.SchedulerJob) {
	ctx, cancel := context.WithTimeout(context.Background(), enqueueTimeout)
	defer cancel()

	if err := s.enqueue(ctx, job); err != nil {
		s.logger.Error("scheduled enqueue failed",
			logging.String("job", job.Name),
			logging.Error(err))
	}
}

func (s *Scheduler) enqueue(ctx context.Context, job config.SchedulerJob) error {
	active, err := s.store.HasActiveForSchedule(ctx, job.Name)
	if err != nil {
		return fmt.Errorf("check active runs: %w", err)
	}
	if active {
		s.logger.Info("skipping scheduled run; previous run still active",
			logging.String("job", job.Name))
		return nil
	}

	item, err := s.store.NewItem(ctx, queue.NewItemRequest{
		Schedule: job.Name,
		MaxClips: job.MaxClips,
	})
	if err != nil {
		return fmt.Errorf("enqueue run: %w", err)
	}

	s.logger.Info("scheduled run enqueued",
		logging.String("job", job.Name),
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String(logging.FieldRunID, item.RunID))

	if s.notifier != nil {
		if err := s.notifier.NotifyJobQueued(ctx, item.Label()); err != nil {
			s.logger.Debug("queue notification failed", logging.Error(err))
		}
	}
	return nil
}
