package queue

import (
	"fmt"
	"path/filepath"
	"strings"
)

// StagingRoot returns the per-run staging directory rooted at base. The run
// identifier keeps concurrent and historical runs from colliding; items that
// predate run identifiers fall back to queue-{ID}.
func (i Item) StagingRoot(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return ""
	}
	segment := strings.ToLower(strings.TrimSpace(i.RunID))
	if segment == "" {
		segment = fmt.Sprintf("queue-%d", i.ID)
	}
	return filepath.Join(base, "run-"+segment)
}

// CollectDir returns the directory under the run's staging root where the
// scrape stage places collected clips for the render stage.
func (i Item) CollectDir(base string) string {
	root := i.StagingRoot(base)
	if root == "" {
		return ""
	}
	return filepath.Join(root, "clips")
}
