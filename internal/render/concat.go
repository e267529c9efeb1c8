package render

import (
	"os"
	"strings"
)

// writeConcatManifest writes the concat demuxer manifest: one file directive
// per segment, in order, with single quotes escaped per the demuxer's
// quoting rules.
func writeConcatManifest(path string, segments []string) error {
	var b strings.Builder
	for _, segment := range segments {
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(segment, "'", `'\''`))
		b.WriteString("'\n")
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// buildConcatCommand renders the stream-copy concatenation. No re-encode
// happens here; the normalizer already guaranteed identical codec
// parameters across segments.
func buildConcatCommand(binary, manifestPath, outputPath string) Command {
	return Command{
		Binary: binary,
		Args: []string{
			"-hide_banner", "-nostdin", "-y",
			"-f", "concat",
			"-safe", "0",
			"-i", manifestPath,
			"-c", "copy",
			"-movflags", "+faststart",
			outputPath,
		},
	}
}
