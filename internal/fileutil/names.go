package fileutil

import (
	"os"
	"strings"

	"github.com/google/uuid"
)

// UniqueName builds a collision-resistant filename of the form
// prefix_<32 hex chars><ext>. Concurrent jobs sharing a directory stay safe
// because the identifier is random, not sequential.
func UniqueName(prefix, ext string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if prefix == "" {
		return id + ext
	}
	return prefix + "_" + id + ext
}

// EnsureDir creates path and any missing parents.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}
