package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/fileutil"
	"clipforge/internal/logging"
	"clipforge/internal/media/ffprobe"
	"clipforge/internal/services"
)

// ErrNoInput marks a job whose assembled segment list came out empty: every
// clip, plus any configured intro and outro, was missing.
var ErrNoInput = errors.New("no valid input segments")

// Render phases reported through the progress callback.
const (
	PhaseAssembling    = "assembling"
	PhaseNormalizing   = "normalizing"
	PhaseConcatenating = "concatenating"
	PhaseCompositing   = "compositing"
	PhaseDone          = "done"
)

// ProgressUpdate reports render progress to observers such as the queue.
type ProgressUpdate struct {
	Phase   string
	Percent float64
	Message string
}

// AudioProbe reports whether the file at path carries an audio stream.
type AudioProbe func(ctx context.Context, path string) (bool, error)

// Pipeline drives a render job through assembly, per-segment normalization,
// lossless concatenation, and the final composite encode. Stages run
// strictly in sequence; the pipeline owns every temporary artifact it
// creates and removes them before returning, whether the job succeeded or
// failed.
type Pipeline struct {
	logger   *slog.Logger
	engine   Engine
	probe    AudioProbe
	ffmpeg   string
	ffprobe  string
	timeout  time.Duration
	debug    bool
	progress func(ProgressUpdate)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithEngine substitutes the media engine, primarily for tests.
func WithEngine(engine Engine) Option {
	return func(p *Pipeline) {
		if engine != nil {
			p.engine = engine
		}
	}
}

// WithAudioProbe substitutes the audio probe, primarily for tests.
func WithAudioProbe(probe AudioProbe) Option {
	return func(p *Pipeline) {
		if probe != nil {
			p.probe = probe
		}
	}
}

// WithBinaries overrides the ffmpeg and ffprobe executables.
func WithBinaries(ffmpegBin, ffprobeBin string) Option {
	return func(p *Pipeline) {
		if strings.TrimSpace(ffmpegBin) != "" {
			p.ffmpeg = ffmpegBin
		}
		if strings.TrimSpace(ffprobeBin) != "" {
			p.ffprobe = ffprobeBin
		}
	}
}

// WithTimeout bounds each external invocation. Zero leaves them unbounded.
func WithTimeout(timeout time.Duration) Option {
	return func(p *Pipeline) {
		if timeout > 0 {
			p.timeout = timeout
		}
	}
}

// WithDebug forwards every line of tool output to the logger.
func WithDebug(debug bool) Option {
	return func(p *Pipeline) {
		p.debug = debug
	}
}

// WithProgress registers a callback invoked as the job advances.
func WithProgress(fn func(ProgressUpdate)) Option {
	return func(p *Pipeline) {
		p.progress = fn
	}
}

// New constructs a pipeline. Defaults: ffmpeg and ffprobe resolved from
// PATH, the exec-backed engine, no invocation timeout.
func New(logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	p := &Pipeline{
		logger:  logging.NewComponentLogger(logger, "render"),
		ffmpeg:  "ffmpeg",
		ffprobe: "ffprobe",
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.engine == nil {
		p.engine = NewToolEngine(p.logger, p.debug)
	}
	if p.probe == nil {
		p.probe = p.ffprobeAudio
	}
	return p
}

// NewFromConfig builds a pipeline wired to the configured binaries,
// per-invocation timeout, and debug flag.
func NewFromConfig(cfg *config.Config, logger *slog.Logger, opts ...Option) *Pipeline {
	base := []Option{
		WithBinaries(cfg.FFmpegBinary(), cfg.FFprobeBinary()),
		WithTimeout(time.Duration(cfg.Render.CommandTimeout) * time.Second),
		WithDebug(cfg.Render.DebugToolOutput),
	}
	return New(logger, append(base, opts...)...)
}

// Render executes the full pipeline for one job and returns the final output
// path. Temporary artifacts are removed before it returns regardless of
// outcome. Errors are tagged services.ErrValidation when the inputs were
// unusable, services.ErrMediaProcessing when an external invocation failed,
// and services.ErrTimeout when an invocation exceeded the configured bound.
func (p *Pipeline) Render(ctx context.Context, job Job) (string, error) {
	if err := job.Validate(); err != nil {
		return "", services.Wrap(services.ErrValidation, services.StageRender, "validate", "", err)
	}

	width, height := job.Orientation.Dimensions()
	p.logger.Info("starting render",
		logging.Int("clips", len(job.Clips)),
		logging.String("orientation", string(job.Orientation)),
		logging.Int("width", width),
		logging.Int("height", height),
		logging.Int("fps", job.FrameRate),
		logging.String("output", job.OutputPath))

	if err := os.MkdirAll(filepath.Dir(job.OutputPath), 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, services.StageRender, "prepare", "create output directory", err)
	}
	if err := os.MkdirAll(job.StagingDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, services.StageRender, "prepare", "create staging directory", err)
	}

	p.emit(PhaseAssembling, 2, "assembling segments")
	segments := AssembleSegments(p.logger, job.Clips, job.IntroPath, job.OutroPath)
	if len(segments) == 0 {
		return "", services.Wrap(services.ErrValidation, services.StageRender, "assemble", "", ErrNoInput)
	}
	p.logger.Info("segments assembled", logging.Int("count", len(segments)))

	var prepared []string
	var concatenated string
	defer func() {
		p.cleanupArtifacts(prepared, concatenated)
	}()

	for i, segment := range segments {
		percent := 5 + 60*float64(i)/float64(len(segments))
		p.emit(PhaseNormalizing, percent,
			fmt.Sprintf("normalizing %s (%d/%d)", filepath.Base(segment.Path), i+1, len(segments)))
		path, err := p.normalizeSegment(ctx, job, segment)
		if err != nil {
			return "", err
		}
		prepared = append(prepared, path)
	}
	p.logger.Info("segments normalized", logging.Int("count", len(prepared)))

	p.emit(PhaseConcatenating, 70, "concatenating segments")
	var err error
	concatenated, err = p.concatSegments(ctx, job, prepared)
	if err != nil {
		return "", err
	}

	p.emit(PhaseCompositing, 80, "compositing and encoding")
	if err := p.compose(ctx, job, concatenated); err != nil {
		return "", err
	}

	p.emit(PhaseDone, 100, "render complete")
	p.logger.Info("render complete", logging.String("output", job.OutputPath))
	return job.OutputPath, nil
}

// normalizeSegment converts one source file into a prepared segment in the
// staging directory and returns its path.
func (p *Pipeline) normalizeSegment(ctx context.Context, job Job, segment Segment) (string, error) {
	hasAudio := p.hasAudioStream(ctx, segment.Path)
	outputPath := filepath.Join(job.StagingDir, fileutil.UniqueName("segment", ".mp4"))
	p.logger.Debug("normalizing segment",
		logging.String("source", segment.Path),
		logging.String("role", string(segment.Role)),
		logging.Bool("has_audio", hasAudio),
		logging.String("target", outputPath))

	cmd := buildNormalizeCommand(p.ffmpeg, job, segment.Path, outputPath, hasAudio)
	if err := p.runTool(ctx, cmd, "normalize", filepath.Base(segment.Path)); err != nil {
		return "", err
	}
	return outputPath, nil
}

// concatSegments joins the prepared segments via stream copy. The manifest
// is removed before returning no matter how the invocation went.
func (p *Pipeline) concatSegments(ctx context.Context, job Job, prepared []string) (string, error) {
	manifestPath := filepath.Join(job.StagingDir, fileutil.UniqueName("concat", ".txt"))
	if err := writeConcatManifest(manifestPath, prepared); err != nil {
		return "", services.Wrap(services.ErrMediaProcessing, services.StageRender, "concat", "write manifest", err)
	}
	defer func() {
		if err := os.Remove(manifestPath); err != nil && !os.IsNotExist(err) {
			p.logger.Warn("could not remove concat manifest",
				logging.String("path", manifestPath),
				logging.Error(err))
		}
	}()

	outputPath := filepath.Join(job.StagingDir, fileutil.UniqueName("concat", ".mp4"))
	p.logger.Debug("concatenating segments",
		logging.Int("count", len(prepared)),
		logging.String("target", outputPath))

	if err := p.runTool(ctx, buildConcatCommand(p.ffmpeg, manifestPath, outputPath), "concat", ""); err != nil {
		return "", err
	}
	return outputPath, nil
}

// compose applies the watermark and music, re-normalizes loudness, and
// writes the final output. A failed final encode never leaves a partial
// output file behind.
func (p *Pipeline) compose(ctx context.Context, job Job, concatenatedPath string) error {
	includeWatermark := p.watermarkUsable(job.Watermark)
	includeMusic := p.musicUsable(job.Music)
	p.logger.Debug("compositing",
		logging.Bool("watermark", includeWatermark),
		logging.Bool("music", includeMusic),
		logging.String("target", job.OutputPath))

	cmd := buildComposeCommand(p.ffmpeg, job, concatenatedPath, includeWatermark, includeMusic)
	if err := p.runTool(ctx, cmd, "composite", filepath.Base(job.OutputPath)); err != nil {
		if removeErr := os.Remove(job.OutputPath); removeErr != nil && !os.IsNotExist(removeErr) {
			p.logger.Warn("could not remove partial output",
				logging.String("path", job.OutputPath),
				logging.Error(removeErr))
		}
		return err
	}
	return nil
}

// runTool executes one engine command, applying the configured timeout and
// tagging failures with the operation and the offending file.
func (p *Pipeline) runTool(ctx context.Context, cmd Command, operation, subject string) error {
	runCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	err := p.engine.Run(runCtx, cmd)
	if err == nil {
		return nil
	}
	marker := services.ErrMediaProcessing
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		marker = services.ErrTimeout
	}
	return services.Wrap(marker, services.StageRender, operation, subject, err)
}

// hasAudioStream probes for an audio track. A probe failure falls back to
// synthesizing silence rather than failing the job.
func (p *Pipeline) hasAudioStream(ctx context.Context, path string) bool {
	hasAudio, err := p.probe(ctx, path)
	if err != nil {
		p.logger.Warn("audio probe failed, synthesizing silence",
			logging.String("path", path),
			logging.Error(err))
		return false
	}
	return hasAudio
}

func (p *Pipeline) ffprobeAudio(ctx context.Context, path string) (bool, error) {
	result, err := ffprobe.Inspect(ctx, p.ffprobe, path)
	if err != nil {
		return false, err
	}
	return result.HasAudioStream(), nil
}

func (p *Pipeline) watermarkUsable(spec *WatermarkSpec) bool {
	if spec == nil || strings.TrimSpace(spec.Path) == "" {
		return false
	}
	if _, err := os.Stat(spec.Path); err != nil {
		p.logger.Warn("watermark file missing, skipping overlay",
			logging.String("path", spec.Path))
		return false
	}
	return true
}

func (p *Pipeline) musicUsable(spec *MusicSpec) bool {
	if spec == nil || strings.TrimSpace(spec.Path) == "" {
		return false
	}
	if _, err := os.Stat(spec.Path); err != nil {
		p.logger.Warn("music file missing, skipping mix",
			logging.String("path", spec.Path))
		return false
	}
	return true
}

// cleanupArtifacts removes every temporary file the job created. Failures
// are logged and ignored; cleanup must never mask the job's own outcome.
func (p *Pipeline) cleanupArtifacts(prepared []string, concatenatedPath string) {
	paths := make([]string, 0, len(prepared)+1)
	paths = append(paths, prepared...)
	if concatenatedPath != "" {
		paths = append(paths, concatenatedPath)
	}
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			p.logger.Warn("could not remove temp file",
				logging.String("path", path),
				logging.Error(err))
		}
	}
}

func (p *Pipeline) emit(phase string, percent float64, message string) {
	if p.progress != nil {
		p.progress(ProgressUpdate{Phase: phase, Percent: percent, Message: message})
	}
}
