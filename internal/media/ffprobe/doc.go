// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// The render pipeline probes every source clip before normalizing it: audio
// presence decides whether a silent track is synthesized, and dimensions and
// duration feed logging and status reporting. The package depends only on
// the standard library so it stays usable from any layer.
package ffprobe
