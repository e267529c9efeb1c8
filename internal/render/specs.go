package render

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"clipforge/internal/config"
)

// Position places a watermark overlay relative to the video frame.
type Position string

const (
	PositionTopLeft     Position = "top-left"
	PositionTopRight    Position = "top-right"
	PositionBottomLeft  Position = "bottom-left"
	PositionBottomRight Position = "bottom-right"
	PositionCenter      Position = "center"
)

// ParsePosition validates a position name. Empty defaults to top-right.
func ParsePosition(value string) (Position, error) {
	switch p := Position(strings.ToLower(strings.TrimSpace(value))); p {
	case "":
		return PositionTopRight, nil
	case PositionTopLeft, PositionTopRight, PositionBottomLeft, PositionBottomRight, PositionCenter:
		return p, nil
	default:
		return "", fmt.Errorf("unknown watermark position %q", value)
	}
}

// Coordinates resolves the overlay x/y expressions for this position using
// ffmpeg's overlay variables: W/H are the video dimensions, w/h the
// overlay's.
func (p Position) Coordinates(margin int) (x, y string) {
	m := strconv.Itoa(margin)
	switch p {
	case PositionTopLeft:
		return m, m
	case PositionBottomLeft:
		return m, fmt.Sprintf("H-h-%d", margin)
	case PositionBottomRight:
		return fmt.Sprintf("W-w-%d", margin), fmt.Sprintf("H-h-%d", margin)
	case PositionCenter:
		return "(W-w)/2", "(H-h)/2"
	default:
		return fmt.Sprintf("W-w-%d", margin), m
	}
}

// Orientation selects the output canvas.
type Orientation string

const (
	Vertical   Orientation = "vertical"   // 1080x1920, phone portrait
	Horizontal Orientation = "horizontal" // 1920x1080, landscape
)

// Dimensions returns the canvas size in pixels.
func (o Orientation) Dimensions() (width, height int) {
	if o == Horizontal {
		return 1920, 1080
	}
	return 1080, 1920
}

// LoudnessProfile holds the EBU R128 normalization targets applied per
// segment and again after the final mix.
type LoudnessProfile struct {
	IntegratedLUFS float64
	TruePeakDB     float64
	RangeLU        float64
}

// DefaultLoudness returns the targets used when none are configured.
func DefaultLoudness() LoudnessProfile {
	return LoudnessProfile{IntegratedLUFS: -16, TruePeakDB: -1.5, RangeLU: 11}
}

// WatermarkSpec describes the overlay image composited onto the final video.
// WidthPx wins over WidthFraction when both are set. A missing image file
// disables the watermark with a warning rather than failing the job.
type WatermarkSpec struct {
	Path          string
	Position      Position
	Margin        int
	WidthPx       int
	WidthFraction float64
	Opacity       float64
}

// ScaledWidth resolves the overlay's target width against the video width.
// Zero means the overlay keeps its native size.
func (w WatermarkSpec) ScaledWidth(videoWidth int) int {
	if w.WidthPx > 0 {
		return w.WidthPx
	}
	if w.WidthFraction > 0 {
		return int(float64(videoWidth) * w.WidthFraction)
	}
	return 0
}

// MusicSpec describes background music mixed under the compilation audio.
// The music loops for the video's full length. Ducking attenuates the
// original audio while music plays; zero disables ducking.
type MusicSpec struct {
	Path    string
	Volume  float64
	Ducking float64
}

// EncodeSettings carries the encoder parameters shared by segment
// normalization and the final composite pass.
type EncodeSettings struct {
	Preset       string
	VideoBitrate string
	AudioBitrate string
	PixelFormat  string
	PaddingColor string
}

// DefaultEncodeSettings returns broadly compatible encoder defaults.
func DefaultEncodeSettings() EncodeSettings {
	return EncodeSettings{
		Preset:       "medium",
		VideoBitrate: "6000k",
		AudioBitrate: "192k",
		PixelFormat:  "yuv420p",
		PaddingColor: "black",
	}
}

// Job is one full render invocation: the ordered clips, the output target,
// and every knob the pipeline honors. Zero values fall back to defaults
// during Validate.
type Job struct {
	Clips       []string
	OutputPath  string
	Orientation Orientation
	FrameRate   int
	StagingDir  string

	IntroPath string
	OutroPath string
	Watermark *WatermarkSpec
	Music     *MusicSpec
	Loudness  LoudnessProfile
	Encode    EncodeSettings
}

// Validate normalizes and range-checks the job exactly once, before any
// processing starts. Specs with an empty path are treated as absent.
func (j *Job) Validate() error {
	if strings.TrimSpace(j.OutputPath) == "" {
		return errors.New("output path required")
	}
	if strings.TrimSpace(j.StagingDir) == "" {
		return errors.New("staging directory required")
	}

	switch j.Orientation {
	case "":
		j.Orientation = Vertical
	case Vertical, Horizontal:
	default:
		return fmt.Errorf("unknown orientation %q", j.Orientation)
	}

	if j.FrameRate == 0 {
		j.FrameRate = 30
	}
	if j.FrameRate < 1 || j.FrameRate > 240 {
		return fmt.Errorf("frame rate %d out of range [1, 240]", j.FrameRate)
	}

	if j.Loudness == (LoudnessProfile{}) {
		j.Loudness = DefaultLoudness()
	}

	defaults := DefaultEncodeSettings()
	if strings.TrimSpace(j.Encode.Preset) == "" {
		j.Encode.Preset = defaults.Preset
	}
	if strings.TrimSpace(j.Encode.VideoBitrate) == "" {
		j.Encode.VideoBitrate = defaults.VideoBitrate
	}
	if strings.TrimSpace(j.Encode.AudioBitrate) == "" {
		j.Encode.AudioBitrate = defaults.AudioBitrate
	}
	if strings.TrimSpace(j.Encode.PixelFormat) == "" {
		j.Encode.PixelFormat = defaults.PixelFormat
	}
	if strings.TrimSpace(j.Encode.PaddingColor) == "" {
		j.Encode.PaddingColor = defaults.PaddingColor
	}

	if j.Watermark != nil && strings.TrimSpace(j.Watermark.Path) == "" {
		j.Watermark = nil
	}
	if j.Watermark != nil {
		position, err := ParsePosition(string(j.Watermark.Position))
		if err != nil {
			return err
		}
		j.Watermark.Position = position
		if j.Watermark.Margin < 0 {
			return fmt.Errorf("watermark margin %d must not be negative", j.Watermark.Margin)
		}
		if j.Watermark.WidthFraction < 0 || j.Watermark.WidthFraction > 1 {
			return fmt.Errorf("watermark width fraction %v outside [0, 1]", j.Watermark.WidthFraction)
		}
		// Zero means unset and resolves to fully opaque; out-of-range
		// values are clamped rather than rejected.
		switch {
		case j.Watermark.Opacity == 0:
			j.Watermark.Opacity = 1
		case j.Watermark.Opacity < 0:
			j.Watermark.Opacity = 0
		case j.Watermark.Opacity > 1:
			j.Watermark.Opacity = 1
		}
	}

	if j.Music != nil && strings.TrimSpace(j.Music.Path) == "" {
		j.Music = nil
	}
	if j.Music != nil {
		if j.Music.Volume == 0 {
			j.Music.Volume = 0.1
		}
		if j.Music.Volume < 0 || j.Music.Volume > 1 {
			return fmt.Errorf("music volume %v outside (0, 1]", j.Music.Volume)
		}
		if j.Music.Ducking != 0 && (j.Music.Ducking <= 0 || j.Music.Ducking >= 1) {
			return fmt.Errorf("music ducking %v outside (0, 1)", j.Music.Ducking)
		}
	}

	return nil
}

// NewJobFromConfig builds a render job for the given clips using the
// configured defaults for everything else.
func NewJobFromConfig(cfg *config.Config, clips []string, outputPath string) Job {
	orientation := Horizontal
	if cfg.Render.Vertical {
		orientation = Vertical
	}

	job := Job{
		Clips:       clips,
		OutputPath:  outputPath,
		Orientation: orientation,
		FrameRate:   cfg.Render.FPS,
		StagingDir:  cfg.Paths.StagingDir,
		IntroPath:   cfg.Render.IntroPath,
		OutroPath:   cfg.Render.OutroPath,
		Loudness: LoudnessProfile{
			IntegratedLUFS: cfg.Render.Loudness.IntegratedLUFS,
			TruePeakDB:     cfg.Render.Loudness.TruePeakDB,
			RangeLU:        cfg.Render.Loudness.RangeLU,
		},
		Encode: EncodeSettings{
			Preset:       cfg.Render.Preset,
			VideoBitrate: cfg.Render.VideoBitrate,
			AudioBitrate: cfg.Render.AudioBitrate,
			PixelFormat:  cfg.Render.PixelFormat,
			PaddingColor: cfg.Render.PaddingColor,
		},
	}

	if cfg.Render.Watermark.Path != "" {
		job.Watermark = &WatermarkSpec{
			Path:          cfg.Render.Watermark.Path,
			Position:      Position(cfg.Render.Watermark.Position),
			Margin:        cfg.Render.Watermark.Margin,
			WidthPx:       cfg.Render.Watermark.WidthPx,
			WidthFraction: cfg.Render.Watermark.WidthFraction,
			Opacity:       cfg.Render.Watermark.Opacity,
		}
	}
	if cfg.Render.Music.Path != "" {
		job.Music = &MusicSpec{
			Path:    cfg.Render.Music.Path,
			Volume:  cfg.Render.Music.Volume,
			Ducking: cfg.Render.Music.Ducking,
		}
	}
	return job
}
