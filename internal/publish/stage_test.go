package publish

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/queue"
	"clipforge/internal/services"
	"clipforge/internal/testsupport"
)

type stageStubTarget struct {
	name string
	err  error
	seen []string
}

func (s *stageStubTarget) Name() string { return s.name }

func (s *stageStubTarget) Publish(_ context.Context, path string, _ Metadata) error {
	if s.err != nil {
		return s.err
	}
	s.seen = append(s.seen, path)
	return nil
}

type publishNotifier struct {
	published [][]string
}

func (n *publishNotifier) NotifyJobQueued(context.Context, string) error          { return nil }
func (n *publishNotifier) NotifyRenderStarted(context.Context, string, int) error { return nil }
func (n *publishNotifier) NotifyRenderCompleted(context.Context, string, string, int64, time.Duration) error {
	return nil
}

func (n *publishNotifier) NotifyPublishCompleted(_ context.Context, _ string, targets []string) error {
	n.published = append(n.published, targets)
	return nil
}

func (n *publishNotifier) NotifyJobFailed(context.Context, string, string, error) error {
	return nil
}
func (n *publishNotifier) TestNotification(context.Context) error { return nil }

func registryWith(targets ...*stageStubTarget) *Registry {
	registry := NewRegistry()
	for _, target := range targets {
		target := target
		registry.Register(target.name, func(*config.Config, *slog.Logger) (Target, error) {
			return target, nil
		})
	}
	return registry
}

func finishedItem(t *testing.T, cfg *config.Config, store *queue.Store, req queue.NewItemRequest) *queue.Item {
	t.Helper()
	item := testsupport.NewItem(t, store, req)
	final := filepath.Join(cfg.Paths.OutputDir, "final.mp4")
	testsupport.WriteFile(t, final, 1024)
	item.FinalPath = final
	return item
}

func TestPublishStageExecute(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithPublishTargets("local"))
	store := testsupport.MustOpenStore(t, cfg)
	item := finishedItem(t, cfg, store, queue.NewItemRequest{})

	// Leftover staging artifacts from the render should be swept.
	staging := item.StagingRoot(cfg.Paths.StagingDir)
	testsupport.WriteFile(t, filepath.Join(staging, "clips", "clip_000.mp4"), 64)

	target := &stageStubTarget{name: "local"}
	notifier := &publishNotifier{}
	st := NewStageWithRegistry(cfg, store, nil, notifier, registryWith(target))

	ctx := context.Background()
	if err := st.Prepare(ctx, item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := st.Execute(ctx, item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(target.seen) != 1 || target.seen[0] != item.FinalPath {
		t.Fatalf("target deliveries = %v", target.seen)
	}
	if item.PublishedTargets != "local" {
		t.Fatalf("published targets = %q", item.PublishedTargets)
	}
	if len(notifier.published) != 1 || notifier.published[0][0] != "local" {
		t.Fatalf("publish notifications = %v", notifier.published)
	}
	if _, err := os.Stat(staging); !os.IsNotExist(err) {
		t.Fatalf("staging root should be removed after publish: %v", err)
	}
}

func TestPublishStagePrepareWithoutRenderedOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.NewItem(t, store, queue.NewItemRequest{})

	st := NewStage(cfg, store, nil, nil)
	err := st.Prepare(context.Background(), item)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	item.FinalPath = filepath.Join(t.TempDir(), "gone.mp4")
	err = st.Prepare(context.Background(), item)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for missing file, got %v", err)
	}
}

func TestPublishStagePartialFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithPublishTargets("good", "bad"))
	store := testsupport.MustOpenStore(t, cfg)
	item := finishedItem(t, cfg, store, queue.NewItemRequest{})

	good := &stageStubTarget{name: "good"}
	bad := &stageStubTarget{name: "bad", err: errors.New("upload refused")}
	notifier := &publishNotifier{}
	st := NewStageWithRegistry(cfg, store, nil, notifier, registryWith(good, bad))

	err := st.Execute(context.Background(), item)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if item.PublishedTargets != "good" {
		t.Fatalf("published targets = %q, want the surviving target recorded", item.PublishedTargets)
	}
	if len(notifier.published) != 0 {
		t.Fatal("no completion notification on partial failure")
	}
	if !strings.Contains(err.Error(), "bad") {
		t.Fatalf("error should name the failed target: %v", err)
	}
}

func TestPublishStageScheduleTargetOverride(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithPublishTargets("everywhere"),
		testsupport.WithScheduler(config.SchedulerJob{
			Name:    "nightly",
			Cron:    "0 3 * * *",
			Targets: []string{"special"},
		}))
	store := testsupport.MustOpenStore(t, cfg)
	item := finishedItem(t, cfg, store, queue.NewItemRequest{Schedule: "nightly"})

	everywhere := &stageStubTarget{name: "everywhere"}
	special := &stageStubTarget{name: "special"}
	st := NewStageWithRegistry(cfg, store, nil, nil, registryWith(everywhere, special))

	if err := st.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(everywhere.seen) != 0 {
		t.Fatalf("global target should not receive scheduled run: %v", everywhere.seen)
	}
	if len(special.seen) != 1 {
		t.Fatalf("schedule target deliveries = %v", special.seen)
	}
}

func TestPublishStageHealthCheck(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithPublishTargets(TargetArchive))
	store := testsupport.MustOpenStore(t, cfg)

	st := NewStage(cfg, store, nil, nil)
	if health := st.HealthCheck(context.Background()); !health.Ready {
		t.Fatalf("expected healthy publish targets, got %q", health.Detail)
	}

	cfg.Publish.ArchiveDir = ""
	if health := st.HealthCheck(context.Background()); health.Ready {
		t.Fatal("expected unhealthy archive target without archive_dir")
	}
}
