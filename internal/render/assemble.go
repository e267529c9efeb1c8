package render

import (
	"log/slog"
	"os"
	"strings"

	"clipforge/internal/logging"
)

// Role identifies a segment's slot in the compilation.
type Role string

const (
	RoleIntro Role = "intro"
	RoleClip  Role = "clip"
	RoleOutro Role = "outro"
)

// Segment is one source file queued for normalization.
type Segment struct {
	Path string
	Role Role
}

// AssembleSegments orders intro, clips, and outro into the render sequence,
// dropping entries whose files are missing. A dropped file is a warning,
// never fatal; the caller decides whether an empty result aborts the job.
func AssembleSegments(logger *slog.Logger, clips []string, introPath, outroPath string) []Segment {
	if logger == nil {
		logger = logging.NewNop()
	}

	segments := make([]Segment, 0, len(clips)+2)
	if path, ok := usableSegment(logger, introPath, RoleIntro); ok {
		segments = append(segments, Segment{Path: path, Role: RoleIntro})
	}
	for _, clip := range clips {
		if path, ok := usableSegment(logger, clip, RoleClip); ok {
			segments = append(segments, Segment{Path: path, Role: RoleClip})
		}
	}
	if path, ok := usableSegment(logger, outroPath, RoleOutro); ok {
		segments = append(segments, Segment{Path: path, Role: RoleOutro})
	}
	return segments
}

func usableSegment(logger *slog.Logger, path string, role Role) (string, bool) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", false
	}
	if _, err := os.Stat(trimmed); err != nil {
		logger.Warn("segment file missing, skipping",
			logging.String("role", string(role)),
			logging.String("path", trimmed))
		return "", false
	}
	return trimmed, true
}
