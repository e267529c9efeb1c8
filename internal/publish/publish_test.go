package publish

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/services"
)

type stubTarget struct {
	name  string
	err   error
	calls atomic.Int32
}

func (s *stubTarget) Name() string { return s.name }

func (s *stubTarget) Publish(ctx context.Context, path string, meta Metadata) error {
	s.calls.Add(1)
	return s.err
}

func TestPublishAllFansOut(t *testing.T) {
	source := filepath.Join(t.TempDir(), "final.mp4")
	writeVideo(t, source)

	first := &stubTarget{name: "archive"}
	second := &stubTarget{name: "mirror"}
	publisher := NewPublisher(logging.NewNop(), first, second)

	report, err := publisher.PublishAll(context.Background(), source, Metadata{Title: "Daily"})
	if err != nil {
		t.Fatalf("PublishAll returned error: %v", err)
	}
	if !slices.Equal(report.Published, []string{"archive", "mirror"}) {
		t.Fatalf("unexpected published targets: %v", report.Published)
	}
	if len(report.Failed) != 0 {
		t.Fatalf("expected no failures, got %v", report.Failed)
	}
	if first.calls.Load() != 1 || second.calls.Load() != 1 {
		t.Fatalf("expected every target attempted once, got %d and %d", first.calls.Load(), second.calls.Load())
	}
}

func TestPublishAllAttemptsEveryTargetOnFailure(t *testing.T) {
	source := filepath.Join(t.TempDir(), "final.mp4")
	writeVideo(t, source)

	failure := errors.New("upload rejected")
	good := &stubTarget{name: "archive"}
	bad := &stubTarget{name: "mirror", err: failure}
	also := &stubTarget{name: "backup"}
	publisher := NewPublisher(logging.NewNop(), good, bad, also)

	report, err := publisher.PublishAll(context.Background(), source, Metadata{})
	if err == nil {
		t.Fatal("expected aggregate error when a target fails")
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !errors.Is(err, failure) {
		t.Fatalf("expected aggregate error to wrap the target failure, got %v", err)
	}
	if !slices.Equal(report.Published, []string{"archive", "backup"}) {
		t.Fatalf("unexpected published targets: %v", report.Published)
	}
	if !errors.Is(report.Failed["mirror"], failure) {
		t.Fatalf("expected mirror failure recorded, got %v", report.Failed)
	}
	for _, target := range []*stubTarget{good, bad, also} {
		if target.calls.Load() != 1 {
			t.Fatalf("target %s attempted %d times", target.name, target.calls.Load())
		}
	}
}

func TestPublishAllMissingFile(t *testing.T) {
	target := &stubTarget{name: "archive"}
	publisher := NewPublisher(logging.NewNop(), target)

	_, err := publisher.PublishAll(context.Background(), filepath.Join(t.TempDir(), "absent.mp4"), Metadata{})
	if err == nil {
		t.Fatal("expected error for missing final video")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if target.calls.Load() != 0 {
		t.Fatal("no target should run when the final video is missing")
	}
}

func TestPublishAllEmptyFile(t *testing.T) {
	source := filepath.Join(t.TempDir(), "empty.mp4")
	if err := os.WriteFile(source, nil, 0o644); err != nil {
		t.Fatalf("write empty file: %v", err)
	}
	publisher := NewPublisher(logging.NewNop(), &stubTarget{name: "archive"})

	_, err := publisher.PublishAll(context.Background(), source, Metadata{})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty file, got %v", err)
	}
}

func TestPublishAllNoTargets(t *testing.T) {
	publisher := NewPublisher(logging.NewNop())

	report, err := publisher.PublishAll(context.Background(), "ignored.mp4", Metadata{})
	if err != nil {
		t.Fatalf("expected no-op success without targets, got %v", err)
	}
	if len(report.Published) != 0 || len(report.Failed) != 0 {
		t.Fatalf("expected empty report, got %+v", report)
	}
}

func TestRegistryResolveSkipsUnknownTargets(t *testing.T) {
	cfg := config.Default()
	cfg.Publish.ArchiveDir = t.TempDir()

	targets, err := NewRegistry().Resolve(&cfg, logging.NewNop(), []string{"archive", "youtube", ""})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if len(targets) != 1 || targets[0].Name() != TargetArchive {
		t.Fatalf("expected only the archive target, got %v", targets)
	}
}

func TestNewFromConfigArchiveRequiresDir(t *testing.T) {
	cfg := config.Default()
	cfg.Publish.Targets = []string{"archive"}
	cfg.Publish.ArchiveDir = ""

	if _, err := NewFromConfig(&cfg, logging.NewNop()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestBuildMetadata(t *testing.T) {
	cfg := config.Default()
	cfg.Publish.TitleTemplate = "daily compilation {date}"
	cfg.Publish.Description = "Automated compilation."
	cfg.Publish.Tags = []string{"clips", "daily"}

	at := time.Date(2024, 3, 5, 18, 0, 0, 0, time.UTC)
	meta := BuildMetadata(&cfg, at)

	if meta.Title != "Daily Compilation 2024-03-05" {
		t.Fatalf("unexpected title: %q", meta.Title)
	}
	if meta.Description != "Automated compilation." {
		t.Fatalf("unexpected description: %q", meta.Description)
	}
	if !slices.Equal(meta.Tags, []string{"clips", "daily"}) {
		t.Fatalf("unexpected tags: %v", meta.Tags)
	}

	cfg.Publish.Tags[0] = "mutated"
	if meta.Tags[0] != "clips" {
		t.Fatal("metadata tags must not alias the config slice")
	}
}

func TestBuildMetadataDefaultTemplate(t *testing.T) {
	cfg := config.Default()
	cfg.Publish.TitleTemplate = "   "

	meta := BuildMetadata(&cfg, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	if meta.Title != "Compilation 2024-01-02" {
		t.Fatalf("unexpected fallback title: %q", meta.Title)
	}
}
