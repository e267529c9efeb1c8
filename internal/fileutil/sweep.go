package fileutil

import (
	"os"
	"path/filepath"
	"strings"
)

// SweepOptions selects which entries of a directory Sweep removes. A file is
// removed when its extension matches Extensions or its base name starts with
// one of Prefixes. Names listed in Preserve are never removed regardless of
// the other rules. Subdirectories are always left alone.
type SweepOptions struct {
	Extensions []string
	Prefixes   []string
	Preserve   []string
}

// SweepReport describes what a Sweep pass did. Failures are recorded per file
// so one stubborn entry does not abort the rest of the pass.
type SweepReport struct {
	Removed []string
	Failed  map[string]error
}

// Sweep removes leftover working files from dir according to opts and reports
// the outcome. A missing directory is not an error; there is nothing to clean.
func Sweep(dir string, opts SweepOptions) (SweepReport, error) {
	report := SweepReport{Failed: map[string]error{}}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return report, nil
		}
		return report, err
	}

	preserve := make(map[string]struct{}, len(opts.Preserve))
	for _, name := range opts.Preserve {
		preserve[filepath.Base(name)] = struct{}{}
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if _, keep := preserve[name]; keep {
			continue
		}
		if !matchesSweep(name, opts) {
			continue
		}
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			report.Failed[path] = err
			continue
		}
		report.Removed = append(report.Removed, path)
	}
	return report, nil
}

func matchesSweep(name string, opts SweepOptions) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range opts.Extensions {
		if !strings.HasPrefix(want, ".") {
			want = "." + want
		}
		if ext == strings.ToLower(want) {
			return true
		}
	}
	for _, prefix := range opts.Prefixes {
		if prefix != "" && strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
