package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"clipforge/internal/queue"
	"clipforge/internal/services"
	"clipforge/internal/testsupport"
)

type recordingNotifier struct {
	started   []string
	completed []string
}

func (n *recordingNotifier) NotifyJobQueued(context.Context, string) error { return nil }

func (n *recordingNotifier) NotifyRenderStarted(_ context.Context, label string, clipCount int) error {
	n.started = append(n.started, fmt.Sprintf("%s:%d", label, clipCount))
	return nil
}

func (n *recordingNotifier) NotifyRenderCompleted(_ context.Context, label, outputPath string, size int64, _ time.Duration) error {
	n.completed = append(n.completed, outputPath)
	return nil
}

func (n *recordingNotifier) NotifyPublishCompleted(context.Context, string, []string) error {
	return nil
}
func (n *recordingNotifier) NotifyJobFailed(context.Context, string, string, error) error {
	return nil
}
func (n *recordingNotifier) TestNotification(context.Context) error { return nil }

func stageClips(t *testing.T, item *queue.Item, stagingDir string, count int) {
	t.Helper()
	dir := item.CollectDir(stagingDir)
	for i := 0; i < count; i++ {
		testsupport.WriteFile(t, filepath.Join(dir, fmt.Sprintf("clip_%03d.mp4", i)), 512)
	}
}

func TestRenderStageExecute(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.NewItem(t, store, queue.NewItemRequest{})
	stageClips(t, item, cfg.Paths.StagingDir, 2)

	engine := &fakeEngine{}
	notifier := &recordingNotifier{}
	st := NewStage(cfg, store, nil, notifier, WithEngine(engine), WithAudioProbe(alwaysAudio))

	ctx := context.Background()
	if err := st.Prepare(ctx, item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := st.Execute(ctx, item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	wantOutput := filepath.Join(cfg.Paths.OutputDir,
		fmt.Sprintf("compilation_%s.mp4", strings.ToLower(item.RunID)))
	if item.FinalPath != wantOutput {
		t.Fatalf("final path = %q, want %q", item.FinalPath, wantOutput)
	}
	if _, err := os.Stat(wantOutput); err != nil {
		t.Fatalf("output missing: %v", err)
	}
	if item.ProgressPercent != 100 {
		t.Fatalf("progress percent = %v", item.ProgressPercent)
	}
	if len(notifier.started) != 1 || !strings.HasSuffix(notifier.started[0], ":2") {
		t.Fatalf("render start notifications = %v", notifier.started)
	}
	if len(notifier.completed) != 1 || notifier.completed[0] != wantOutput {
		t.Fatalf("render completion notifications = %v", notifier.completed)
	}
}

func TestRenderStageHonorsItemOutputPath(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	custom := filepath.Join(t.TempDir(), "custom", "weekly.mp4")
	item := testsupport.NewItem(t, store, queue.NewItemRequest{OutputPath: custom})
	stageClips(t, item, cfg.Paths.StagingDir, 1)

	st := NewStage(cfg, store, nil, nil, WithEngine(&fakeEngine{}), WithAudioProbe(alwaysAudio))
	if err := st.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if item.FinalPath != custom {
		t.Fatalf("final path = %q, want %q", item.FinalPath, custom)
	}
	if _, err := os.Stat(custom); err != nil {
		t.Fatalf("output missing: %v", err)
	}
}

func TestRenderStagePrepareWithoutClips(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.NewItem(t, store, queue.NewItemRequest{})

	st := NewStage(cfg, store, nil, nil, WithEngine(&fakeEngine{}), WithAudioProbe(alwaysAudio))
	err := st.Prepare(context.Background(), item)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !errors.Is(err, ErrNoInput) {
		t.Fatalf("expected ErrNoInput, got %v", err)
	}
}

func TestRenderStagePersistsProgress(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.NewItem(t, store, queue.NewItemRequest{})
	stageClips(t, item, cfg.Paths.StagingDir, 1)

	st := NewStage(cfg, store, nil, nil, WithEngine(&fakeEngine{}), WithAudioProbe(alwaysAudio))
	ctx := context.Background()
	if err := st.Execute(ctx, item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	stored, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.ProgressStage != "Rendering" {
		t.Fatalf("stored progress stage = %q", stored.ProgressStage)
	}
	if stored.ProgressPercent == 0 {
		t.Fatal("expected persisted progress updates during render")
	}
}

func TestRenderStageHealthCheck(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	store := testsupport.MustOpenStore(t, cfg)

	st := NewStage(cfg, store, nil, nil)
	if health := st.HealthCheck(context.Background()); !health.Ready {
		t.Fatalf("expected healthy tools, got %q", health.Detail)
	}

	cfg.Tools.FFmpeg = filepath.Join(t.TempDir(), "no-such-ffmpeg")
	if health := st.HealthCheck(context.Background()); health.Ready {
		t.Fatal("expected unhealthy tools for missing ffmpeg")
	}
}
