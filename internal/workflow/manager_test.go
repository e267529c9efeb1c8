package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/notifications"
	"clipforge/internal/queue"
	"clipforge/internal/services"
	"clipforge/internal/stage"
	"clipforge/internal/testsupport"
)

type stubHandler struct {
	name    string
	execute func(ctx context.Context, item *queue.Item) error
	calls   *callLog
}

func (h *stubHandler) Prepare(ctx context.Context, item *queue.Item) error { return nil }

func (h *stubHandler) Execute(ctx context.Context, item *queue.Item) error {
	h.calls.record(h.name)
	if h.execute != nil {
		return h.execute(ctx, item)
	}
	return nil
}

func (h *stubHandler) HealthCheck(context.Context) stage.Health {
	return stage.Healthy(h.name)
}

type callLog struct {
	mu    sync.Mutex
	names []string
}

func (c *callLog) record(name string) {
	c.mu.Lock()
	c.names = append(c.names, name)
	c.mu.Unlock()
}

func (c *callLog) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.names...)
}

type failureNotifier struct {
	notifications.Service
	mu     sync.Mutex
	failed []string
}

func (n *failureNotifier) NotifyJobFailed(_ context.Context, label, stageName string, _ error) error {
	n.mu.Lock()
	n.failed = append(n.failed, stageName)
	n.mu.Unlock()
	return nil
}

func fastWorkflowConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.QueuePollInterval = 0
	cfg.Workflow.ErrorRetryInterval = 0
	cfg.Workflow.HeartbeatInterval = 1
	cfg.Workflow.HeartbeatTimeout = 60
	return cfg
}

func waitForStatus(t *testing.T, store *queue.Store, id int64, want queue.Status) *queue.Item {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		item, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if item != nil && item.Status == want {
			return item
		}
		time.Sleep(10 * time.Millisecond)
	}
	item, _ := store.GetByID(context.Background(), id)
	t.Fatalf("item never reached %s; last state %+v", want, item)
	return nil
}

func TestManagerRunsItemToCompletion(t *testing.T) {
	cfg := fastWorkflowConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.NewItem(t, store, queue.NewItemRequest{})

	calls := &callLog{}
	manager := NewManagerWithNotifier(cfg, store, logging.NewNop(), notifications.NewService(cfg))
	manager.ConfigureStages(StageSet{
		Scraper:   &stubHandler{name: "scrape", calls: calls},
		Renderer:  &stubHandler{name: "render", calls: calls},
		Publisher: &stubHandler{name: "publish", calls: calls},
	})

	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer manager.Stop()

	done := waitForStatus(t, store, item.ID, queue.StatusCompleted)
	if done.ErrorMessage != "" {
		t.Fatalf("unexpected error message: %q", done.ErrorMessage)
	}

	got := calls.snapshot()
	want := []string{"scrape", "render", "publish"}
	if len(got) != len(want) {
		t.Fatalf("stage calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("stage calls = %v, want %v", got, want)
		}
	}
}

func TestManagerStageFailureMarksItemFailed(t *testing.T) {
	cfg := fastWorkflowConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.NewItem(t, store, queue.NewItemRequest{})

	calls := &callLog{}
	notifier := &failureNotifier{Service: notifications.NewService(cfg)}
	manager := NewManagerWithNotifier(cfg, store, logging.NewNop(), notifier)
	manager.ConfigureStages(StageSet{
		Scraper: &stubHandler{name: "scrape", calls: calls},
		Renderer: &stubHandler{name: "render", calls: calls, execute: func(context.Context, *queue.Item) error {
			return services.Wrap(services.ErrMediaProcessing, services.StageRender, "concat", "broken stream", errors.New("exit status 1"))
		}},
		Publisher: &stubHandler{name: "publish", calls: calls},
	})

	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer manager.Stop()

	failed := waitForStatus(t, store, item.ID, queue.StatusFailed)
	if failed.ErrorMessage == "" {
		t.Fatal("failed item should carry an error message")
	}

	for _, name := range calls.snapshot() {
		if name == "publish" {
			t.Fatal("publish must not run after a render failure")
		}
	}

	notifier.mu.Lock()
	failures := append([]string(nil), notifier.failed...)
	notifier.mu.Unlock()
	if len(failures) != 1 || failures[0] != "render" {
		t.Fatalf("failure notifications = %v", failures)
	}

	summary := manager.Status(context.Background())
	if summary.LastError == "" {
		t.Fatal("status should surface the last error")
	}
}

func TestManagerStartRequiresStages(t *testing.T) {
	cfg := fastWorkflowConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	manager := NewManagerWithNotifier(cfg, store, logging.NewNop(), notifications.NewService(cfg))
	if err := manager.Start(context.Background()); err == nil {
		manager.Stop()
		t.Fatal("Start should fail without configured stages")
	}
}

func TestManagerStatusReportsStageHealth(t *testing.T) {
	cfg := fastWorkflowConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	calls := &callLog{}
	manager := NewManagerWithNotifier(cfg, store, logging.NewNop(), notifications.NewService(cfg))
	manager.ConfigureStages(StageSet{
		Scraper:   &stubHandler{name: "scrape", calls: calls},
		Renderer:  &stubHandler{name: "render", calls: calls},
		Publisher: &stubHandler{name: "publish", calls: calls},
	})

	summary := manager.Status(context.Background())
	if summary.Running {
		t.Fatal("manager should not report running before Start")
	}
	for _, name := range []string{"scrape", "render", "publish"} {
		health, ok := summary.StageHealth[name]
		if !ok || !health.Ready {
			t.Fatalf("missing or unhealthy stage %q: %+v", name, summary.StageHealth)
		}
	}
	if summary.QueueStats == nil {
		t.Fatal("status should include queue stats")
	}
}
