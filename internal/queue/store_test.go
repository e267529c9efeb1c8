package queue_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"clipforge/internal/queue"
	"clipforge/internal/testsupport"
)

func TestOpenInitializesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item, err := store.NewItem(ctx, queue.NewItemRequest{Schedule: "daily"})
	if err != nil {
		t.Fatalf("NewItem failed: %v", err)
	}
	if item.ID == 0 {
		t.Fatal("expected item ID to be assigned")
	}
	if len(item.RunID) != 26 {
		t.Fatalf("expected ULID run id, got %q", item.RunID)
	}
	if item.Status != queue.StatusPending {
		t.Fatalf("expected pending status, got %s", item.Status)
	}

	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.Schedule != "daily" {
		t.Fatalf("unexpected fetched item: %#v", fetched)
	}

	byRun, err := store.GetByRunID(ctx, item.RunID)
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}
	if byRun == nil || byRun.ID != item.ID {
		t.Fatalf("expected to find item by run id, got %#v", byRun)
	}
}

func TestNewItemCarriesOverrides(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item, err := store.NewItem(ctx, queue.NewItemRequest{SourceDir: "/mnt/clips", MaxClips: 7})
	if err != nil {
		t.Fatalf("NewItem failed: %v", err)
	}
	if item.SourceDir != "/mnt/clips" {
		t.Fatalf("expected source dir override, got %q", item.SourceDir)
	}
	if item.MaxClips != 7 {
		t.Fatalf("expected max clips override, got %d", item.MaxClips)
	}
	if item.Schedule != "" {
		t.Fatalf("expected manual item without schedule, got %q", item.Schedule)
	}
}

func TestUpdatePersistsRunArtifacts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.NewItem(t, store, queue.NewItemRequest{})

	item.Status = queue.StatusRendering
	item.ClipCount = 5
	item.OutputPath = "/videos/final_20240305_093015.mp4"
	item.SetProgress("Rendering", "Normalizing segment 2/5", 28)
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != queue.StatusRendering || fetched.ClipCount != 5 {
		t.Fatalf("unexpected persisted item: %#v", fetched)
	}
	if fetched.OutputPath != "/videos/final_20240305_093015.mp4" {
		t.Fatalf("output path not persisted: %q", fetched.OutputPath)
	}
	if fetched.ProgressStage != "Rendering" || fetched.ProgressPercent != 28 {
		t.Fatalf("progress not persisted: %s %f", fetched.ProgressStage, fetched.ProgressPercent)
	}

	fetched.Status = queue.StatusCompleted
	fetched.FinalPath = fetched.OutputPath
	fetched.PublishedTargets = "archive"
	if err := store.Update(ctx, fetched); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	final, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if final.FinalPath == "" || final.PublishedTargets != "archive" {
		t.Fatalf("run artifacts not persisted: %#v", final)
	}
}

func TestResetStuckProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	cases := []struct {
		name          string
		initialStatus queue.Status
		expected      queue.Status
	}{
		{"scraping", queue.StatusScraping, queue.StatusPending},
		{"rendering", queue.StatusRendering, queue.StatusRendering},
		{"publishing", queue.StatusPublishing, queue.StatusPublishing},
	}
	now := time.Now().UTC()
	var ids []int64
	for _, tc := range cases {
		item := testsupport.NewItem(t, store, queue.NewItemRequest{})
		item.Status = tc.initialStatus
		item.ProgressStage = tc.name
		item.LastHeartbeat = &now
		if err := store.Update(ctx, item); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		ids = append(ids, item.ID)
	}

	count, err := store.ResetStuckProcessing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckProcessing failed: %v", err)
	}
	if int(count) != len(cases) {
		t.Fatalf("expected %d items reset, got %d", len(cases), count)
	}

	for idx, tc := range cases {
		updated, err := store.GetByID(ctx, ids[idx])
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if updated.Status != tc.expected {
			t.Fatalf("%s: expected status %s, got %s", tc.name, tc.expected, updated.Status)
		}
		if updated.LastHeartbeat != nil {
			t.Fatalf("%s: expected heartbeat cleared", tc.name)
		}
	}
}

func TestReclaimStaleProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	stale := time.Now().UTC().Add(-time.Hour)
	fresh := time.Now().UTC()

	staleItem := testsupport.NewItem(t, store, queue.NewItemRequest{})
	staleItem.Status = queue.StatusScraping
	staleItem.LastHeartbeat = &stale
	if err := store.Update(ctx, staleItem); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	freshItem := testsupport.NewItem(t, store, queue.NewItemRequest{})
	freshItem.Status = queue.StatusRendering
	freshItem.LastHeartbeat = &fresh
	if err := store.Update(ctx, freshItem); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	count, err := store.ReclaimStaleProcessing(ctx, time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("ReclaimStaleProcessing failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one reclaimed item, got %d", count)
	}

	reclaimed, err := store.GetByID(ctx, staleItem.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if reclaimed.Status != queue.StatusPending || reclaimed.LastHeartbeat != nil {
		t.Fatalf("stale item not reclaimed: %#v", reclaimed)
	}

	untouched, err := store.GetByID(ctx, freshItem.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if untouched.Status != queue.StatusRendering || untouched.LastHeartbeat == nil {
		t.Fatalf("fresh item should be untouched: %#v", untouched)
	}
}

func TestListSupportsStatusFilter(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	a := testsupport.NewItem(t, store, queue.NewItemRequest{})
	b := testsupport.NewItem(t, store, queue.NewItemRequest{})
	b.Status = queue.StatusRendering
	if err := store.Update(ctx, b); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	c := testsupport.NewItem(t, store, queue.NewItemRequest{})
	c.Status = queue.StatusFailed
	c.ErrorMessage = "boom"
	if err := store.Update(ctx, c); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	items, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].ID != a.ID || items[1].ID != b.ID || items[2].ID != c.ID {
		t.Fatalf("expected creation order, got IDs %d,%d,%d", items[0].ID, items[1].ID, items[2].ID)
	}

	filtered, err := store.List(ctx, queue.StatusRendering, queue.StatusFailed)
	if err != nil {
		t.Fatalf("Filtered list failed: %v", err)
	}
	if len(filtered) != 2 {
		t.Fatalf("expected 2 items, got %d", len(filtered))
	}
	if filtered[0].ID != b.ID || filtered[1].ID != c.ID {
		t.Fatalf("unexpected filtered order: got %d,%d", filtered[0].ID, filtered[1].ID)
	}
}

func TestNextForStatusesReturnsOldest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first := testsupport.NewItem(t, store, queue.NewItemRequest{})
	testsupport.NewItem(t, store, queue.NewItemRequest{})

	next, err := store.NextForStatuses(ctx, queue.StatusPending)
	if err != nil {
		t.Fatalf("NextForStatuses failed: %v", err)
	}
	if next == nil || next.ID != first.ID {
		t.Fatalf("expected oldest pending item, got %#v", next)
	}

	first.Status = queue.StatusCompleted
	if err := store.Update(ctx, first); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	next, err = store.NextForStatuses(ctx, queue.StatusPending)
	if err != nil {
		t.Fatalf("NextForStatuses failed: %v", err)
	}
	if next == nil || next.ID == first.ID {
		t.Fatalf("expected second item, got %#v", next)
	}

	none, err := store.NextForStatuses(ctx)
	if err != nil {
		t.Fatalf("NextForStatuses with no statuses failed: %v", err)
	}
	if none != nil {
		t.Fatalf("expected nil without statuses, got %#v", none)
	}
}

func TestRetryFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	a := testsupport.NewItem(t, store, queue.NewItemRequest{})
	b := testsupport.NewItem(t, store, queue.NewItemRequest{})
	for _, item := range []*queue.Item{a, b} {
		item.SetFailed("boom")
		if err := store.Update(ctx, item); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
	}

	count, err := store.RetryFailed(ctx, a.ID)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one retried item, got %d", count)
	}
	retried, err := store.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if retried.Status != queue.StatusPending || retried.ErrorMessage != "" {
		t.Fatalf("retry did not reset item: %#v", retried)
	}

	count, err = store.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("RetryFailed all failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected remaining failed item retried, got %d", count)
	}
}

func TestHasActiveForSchedule(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	active, err := store.HasActiveForSchedule(ctx, "daily")
	if err != nil {
		t.Fatalf("HasActiveForSchedule failed: %v", err)
	}
	if active {
		t.Fatal("expected no active items for empty queue")
	}

	item := testsupport.NewItem(t, store, queue.NewItemRequest{Schedule: "daily"})
	active, err = store.HasActiveForSchedule(ctx, "daily")
	if err != nil {
		t.Fatalf("HasActiveForSchedule failed: %v", err)
	}
	if !active {
		t.Fatal("expected pending scheduled item to count as active")
	}

	item.Status = queue.StatusCompleted
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	active, err = store.HasActiveForSchedule(ctx, "daily")
	if err != nil {
		t.Fatalf("HasActiveForSchedule failed: %v", err)
	}
	if active {
		t.Fatal("completed item should not count as active")
	}
}

func TestStatsAndHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.NewItem(t, store, queue.NewItemRequest{})
	rendering := testsupport.NewItem(t, store, queue.NewItemRequest{})
	rendering.Status = queue.StatusRendering
	if err := store.Update(ctx, rendering); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	failed := testsupport.NewItem(t, store, queue.NewItemRequest{})
	failed.SetFailed("render exploded")
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[queue.StatusPending] != 1 || stats[queue.StatusRendering] != 1 || stats[queue.StatusFailed] != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Total != 3 || health.Pending != 1 || health.Processing != 1 || health.Failed != 1 {
		t.Fatalf("unexpected health summary: %#v", health)
	}
}

func TestCheckHealthReportsSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.TableExists {
		t.Fatalf("expected healthy database, got %#v", health)
	}
	if len(health.MissingColumns) != 0 {
		t.Fatalf("expected no missing columns, got %v", health.MissingColumns)
	}
	if !health.IntegrityCheck {
		t.Fatal("expected integrity check to pass")
	}
}

func TestClearOperations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	done := testsupport.NewItem(t, store, queue.NewItemRequest{})
	done.Status = queue.StatusCompleted
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	failed := testsupport.NewItem(t, store, queue.NewItemRequest{})
	failed.SetFailed("boom")
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	testsupport.NewItem(t, store, queue.NewItemRequest{})

	count, err := store.ClearCompleted(ctx)
	if err != nil {
		t.Fatalf("ClearCompleted failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one completed item cleared, got %d", count)
	}

	count, err = store.ClearFailed(ctx)
	if err != nil {
		t.Fatalf("ClearFailed failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one failed item cleared, got %d", count)
	}

	removed, err := store.Remove(ctx, 9999)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if removed {
		t.Fatal("expected Remove to report missing item")
	}

	remaining, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Status != queue.StatusPending {
		t.Fatalf("expected lone pending item, got %#v", remaining)
	}
}

func TestStagingRoot(t *testing.T) {
	item := queue.Item{ID: 42, RunID: "01J8ZD8YB0R6NVDGHQW3JZK5M4"}
	root := item.StagingRoot("/srv/staging")
	if !strings.HasPrefix(root, "/srv/staging/run-01j8zd8yb0") {
		t.Fatalf("unexpected staging root: %s", root)
	}

	fallback := queue.Item{ID: 42}
	if got := fallback.StagingRoot("/srv/staging"); got != "/srv/staging/run-queue-42" {
		t.Fatalf("unexpected fallback staging root: %s", got)
	}

	if got := item.StagingRoot("  "); got != "" {
		t.Fatalf("expected empty root for blank base, got %q", got)
	}
}
