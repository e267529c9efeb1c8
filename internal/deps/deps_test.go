package deps_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"clipforge/internal/deps"
)

func TestCheckBinariesReportsMissing(t *testing.T) {
	results := deps.CheckBinaries(context.Background(), []deps.Requirement{
		{Name: "FFmpeg", Command: "definitely-not-a-real-binary"},
	})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Available {
		t.Fatal("expected missing binary to be unavailable")
	}
	if results[0].Detail == "" {
		t.Fatal("expected detail for missing binary")
	}
}

func TestCheckBinariesReportsUnconfigured(t *testing.T) {
	results := deps.CheckBinaries(context.Background(), []deps.Requirement{
		{Name: "FFmpeg", Command: "   "},
	})
	if results[0].Available {
		t.Fatal("expected unconfigured binary to be unavailable")
	}
	if results[0].Detail != "command not configured" {
		t.Fatalf("unexpected detail %q", results[0].Detail)
	}
}

func TestCheckBinariesFindsStub(t *testing.T) {
	dir := t.TempDir()
	stub := filepath.Join(dir, "ffmpeg")
	script := "#!/bin/sh\necho 'ffmpeg version 7.0-test'\n"
	if err := os.WriteFile(stub, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	results := deps.CheckBinaries(context.Background(), []deps.Requirement{
		{Name: "FFmpeg", Command: stub},
	})
	if !results[0].Available {
		t.Fatalf("expected stub to be available: %+v", results[0])
	}
	if results[0].Version != "ffmpeg version 7.0-test" {
		t.Fatalf("unexpected version %q", results[0].Version)
	}
}
