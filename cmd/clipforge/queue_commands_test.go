package main

import (
	"context"
	"strconv"
	"testing"

	"clipforge/internal/queue"
	"clipforge/internal/testsupport"
)

func TestQueueListAndShow(t *testing.T) {
	env := setupCLITestEnv(t)
	store := testsupport.MustOpenStore(t, env.cfg)
	item := testsupport.NewItem(t, store, queue.NewItemRequest{Schedule: "nightly", MaxClips: 4})

	out, _, err := runCLI(t, []string{"queue", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "nightly")
	requireContains(t, out, string(queue.StatusPending))

	out, _, err = runCLI(t, []string{"queue", "show", strconv.FormatInt(item.ID, 10)}, env.configPath)
	if err != nil {
		t.Fatalf("queue show: %v", err)
	}
	requireContains(t, out, item.RunID)
	requireContains(t, out, "nightly")
}

func TestQueueListEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"queue", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "Queue is empty")
}

func TestQueueRetryFailedItem(t *testing.T) {
	env := setupCLITestEnv(t)
	store := testsupport.MustOpenStore(t, env.cfg)
	item := testsupport.NewItem(t, store, queue.NewItemRequest{})
	item.SetFailed("render exploded")
	if err := store.Update(context.Background(), item); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "retry", strconv.FormatInt(item.ID, 10)}, env.configPath)
	if err != nil {
		t.Fatalf("queue retry: %v", err)
	}
	requireContains(t, out, "Retried 1 failed items")

	refreshed, err := store.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if refreshed.Status != queue.StatusPending {
		t.Fatalf("status = %s, want pending", refreshed.Status)
	}
}

func TestQueueClear(t *testing.T) {
	env := setupCLITestEnv(t)
	store := testsupport.MustOpenStore(t, env.cfg)
	testsupport.NewItem(t, store, queue.NewItemRequest{})
	testsupport.NewItem(t, store, queue.NewItemRequest{})

	out, _, err := runCLI(t, []string{"queue", "clear"}, env.configPath)
	if err != nil {
		t.Fatalf("queue clear: %v", err)
	}
	requireContains(t, out, "Cleared 2 queue items")
}

func TestQueueShowUnknownItem(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"queue", "show", "9001"}, env.configPath)
	if err == nil {
		t.Fatal("expected error for unknown item")
	}
	requireContains(t, err.Error(), "not found")
}
