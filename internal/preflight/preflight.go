package preflight

import (
	"context"
	"fmt"
	"strings"

	"clipforge/internal/config"
	"clipforge/internal/publish"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Directory checks assume EnsureDirectories already ran; a missing directory
// here is a real permission or mount problem.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir))
	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))
	results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))

	if cfg.Scrape.Source == "" || cfg.Scrape.Source == "directory" {
		results = append(results, CheckDirectoryAccess("Clip directory", cfg.Scrape.Directory))
	}
	if hasTarget(cfg.Publish.Targets, publish.TargetArchive) && cfg.Publish.ArchiveDir != "" {
		results = append(results, CheckDirectoryAccess("Archive directory", cfg.Publish.ArchiveDir))
	}

	for _, status := range CheckSystemDeps(ctx, cfg) {
		result := Result{Name: status.Name, Passed: status.Available}
		switch {
		case status.Available && status.Version != "":
			result.Detail = status.Version
		case status.Available:
			result.Detail = status.Command
		default:
			result.Detail = status.Detail
		}
		if status.Optional && !status.Available {
			result.Passed = true
			result.Detail = fmt.Sprintf("%s (optional)", result.Detail)
		}
		results = append(results, result)
	}

	return results
}

// Failures filters results down to the checks that did not pass.
func Failures(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}

// Summarize renders failures into one error-message line.
func Summarize(failed []Result) string {
	parts := make([]string, 0, len(failed))
	for _, result := range failed {
		parts = append(parts, fmt.Sprintf("%s: %s", result.Name, result.Detail))
	}
	return strings.Join(parts, "; ")
}

func hasTarget(targets []string, name string) bool {
	for _, target := range targets {
		if strings.EqualFold(strings.TrimSpace(target), name) {
			return true
		}
	}
	return false
}
