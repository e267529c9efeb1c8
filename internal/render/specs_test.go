package render

import (
	"testing"

	"clipforge/internal/config"
)

func TestOrientationDimensions(t *testing.T) {
	if w, h := Vertical.Dimensions(); w != 1080 || h != 1920 {
		t.Fatalf("vertical = %dx%d", w, h)
	}
	if w, h := Horizontal.Dimensions(); w != 1920 || h != 1080 {
		t.Fatalf("horizontal = %dx%d", w, h)
	}
}

func TestPositionCoordinates(t *testing.T) {
	cases := []struct {
		position Position
		wantX    string
		wantY    string
	}{
		{PositionTopLeft, "40", "40"},
		{PositionTopRight, "W-w-40", "40"},
		{PositionBottomLeft, "40", "H-h-40"},
		{PositionBottomRight, "W-w-40", "H-h-40"},
		{PositionCenter, "(W-w)/2", "(H-h)/2"},
	}
	for _, tc := range cases {
		x, y := tc.position.Coordinates(40)
		if x != tc.wantX || y != tc.wantY {
			t.Fatalf("%s: got (%s, %s), want (%s, %s)", tc.position, x, y, tc.wantX, tc.wantY)
		}
	}
}

func TestParsePosition(t *testing.T) {
	if p, err := ParsePosition(""); err != nil || p != PositionTopRight {
		t.Fatalf("empty position: %v, %v", p, err)
	}
	if p, err := ParsePosition("  Bottom-Left "); err != nil || p != PositionBottomLeft {
		t.Fatalf("case-insensitive parse failed: %v, %v", p, err)
	}
	if _, err := ParsePosition("middle"); err == nil {
		t.Fatal("expected error for unknown position")
	}
}

func TestScaledWidth(t *testing.T) {
	absolute := WatermarkSpec{WidthPx: 200, WidthFraction: 0.5}
	if got := absolute.ScaledWidth(1080); got != 200 {
		t.Fatalf("absolute width should win: got %d", got)
	}
	relative := WatermarkSpec{WidthFraction: 0.5}
	if got := relative.ScaledWidth(1080); got != 540 {
		t.Fatalf("relative width: got %d, want 540", got)
	}
	native := WatermarkSpec{}
	if got := native.ScaledWidth(1080); got != 0 {
		t.Fatalf("native size: got %d, want 0", got)
	}
}

func TestJobValidateAppliesDefaults(t *testing.T) {
	job := Job{OutputPath: "/tmp/out.mp4", StagingDir: "/tmp/staging"}
	if err := job.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if job.Orientation != Vertical {
		t.Fatalf("orientation = %q", job.Orientation)
	}
	if job.FrameRate != 30 {
		t.Fatalf("frame rate = %d", job.FrameRate)
	}
	if job.Loudness != DefaultLoudness() {
		t.Fatalf("loudness = %+v", job.Loudness)
	}
	if job.Encode != DefaultEncodeSettings() {
		t.Fatalf("encode = %+v", job.Encode)
	}
}

func TestJobValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		job  Job
	}{
		{"missing output", Job{StagingDir: "/tmp/s"}},
		{"missing staging", Job{OutputPath: "/tmp/out.mp4"}},
		{"bad orientation", Job{OutputPath: "/tmp/out.mp4", StagingDir: "/tmp/s", Orientation: "diagonal"}},
		{"bad frame rate", Job{OutputPath: "/tmp/out.mp4", StagingDir: "/tmp/s", FrameRate: 500}},
		{"negative margin", Job{OutputPath: "/tmp/out.mp4", StagingDir: "/tmp/s",
			Watermark: &WatermarkSpec{Path: "/tmp/wm.png", Margin: -1}}},
		{"width fraction too large", Job{OutputPath: "/tmp/out.mp4", StagingDir: "/tmp/s",
			Watermark: &WatermarkSpec{Path: "/tmp/wm.png", WidthFraction: 1.5}}},
		{"bad watermark position", Job{OutputPath: "/tmp/out.mp4", StagingDir: "/tmp/s",
			Watermark: &WatermarkSpec{Path: "/tmp/wm.png", Position: "middle"}}},
		{"ducking at one", Job{OutputPath: "/tmp/out.mp4", StagingDir: "/tmp/s",
			Music: &MusicSpec{Path: "/tmp/m.mp3", Ducking: 1}}},
		{"ducking negative", Job{OutputPath: "/tmp/out.mp4", StagingDir: "/tmp/s",
			Music: &MusicSpec{Path: "/tmp/m.mp3", Ducking: -0.5}}},
		{"music volume too loud", Job{OutputPath: "/tmp/out.mp4", StagingDir: "/tmp/s",
			Music: &MusicSpec{Path: "/tmp/m.mp3", Volume: 1.5}}},
	}
	for _, tc := range cases {
		job := tc.job
		if err := job.Validate(); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestJobValidateClampsOpacity(t *testing.T) {
	cases := []struct {
		opacity float64
		want    float64
	}{
		{0, 1},    // zero value means unset
		{0.7, 0.7},
		{1.5, 1},
		{-0.5, 0},
	}
	for _, tc := range cases {
		job := Job{
			OutputPath: "/tmp/out.mp4",
			StagingDir: "/tmp/s",
			Watermark:  &WatermarkSpec{Path: "/tmp/wm.png", Opacity: tc.opacity},
		}
		if err := job.Validate(); err != nil {
			t.Fatalf("opacity %v: %v", tc.opacity, err)
		}
		if job.Watermark.Opacity != tc.want {
			t.Fatalf("opacity %v clamped to %v, want %v", tc.opacity, job.Watermark.Opacity, tc.want)
		}
	}
}

func TestJobValidateDropsEmptySpecs(t *testing.T) {
	job := Job{
		OutputPath: "/tmp/out.mp4",
		StagingDir: "/tmp/s",
		Watermark:  &WatermarkSpec{},
		Music:      &MusicSpec{},
	}
	if err := job.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if job.Watermark != nil || job.Music != nil {
		t.Fatal("specs with empty paths should be dropped")
	}
}

func TestJobValidateDefaultsMusicVolume(t *testing.T) {
	job := Job{
		OutputPath: "/tmp/out.mp4",
		StagingDir: "/tmp/s",
		Music:      &MusicSpec{Path: "/tmp/m.mp3"},
	}
	if err := job.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if job.Music.Volume != 0.1 {
		t.Fatalf("volume = %v, want 0.1", job.Music.Volume)
	}
}

func TestNewJobFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.StagingDir = "/tmp/staging"
	cfg.Render.Vertical = false
	cfg.Render.FPS = 24
	cfg.Render.Watermark.Path = "/assets/logo.png"
	cfg.Render.Watermark.WidthFraction = 0.25
	cfg.Render.Music.Path = "/assets/bed.mp3"
	cfg.Render.Music.Ducking = 0.8

	job := NewJobFromConfig(&cfg, []string{"a.mp4", "b.mp4"}, "/out/final.mp4")
	if job.Orientation != Horizontal {
		t.Fatalf("orientation = %q", job.Orientation)
	}
	if job.FrameRate != 24 {
		t.Fatalf("frame rate = %d", job.FrameRate)
	}
	if job.StagingDir != "/tmp/staging" {
		t.Fatalf("staging = %q", job.StagingDir)
	}
	if job.Watermark == nil || job.Watermark.Path != "/assets/logo.png" || job.Watermark.WidthFraction != 0.25 {
		t.Fatalf("watermark = %+v", job.Watermark)
	}
	if job.Music == nil || job.Music.Ducking != 0.8 {
		t.Fatalf("music = %+v", job.Music)
	}
	if len(job.Clips) != 2 || job.OutputPath != "/out/final.mp4" {
		t.Fatalf("job basics wrong: %+v", job)
	}
	if err := job.Validate(); err != nil {
		t.Fatalf("config-derived job should validate: %v", err)
	}
}

func TestNewJobFromConfigWithoutSpecs(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.StagingDir = "/tmp/staging"

	job := NewJobFromConfig(&cfg, []string{"a.mp4"}, "/out/final.mp4")
	if job.Watermark != nil {
		t.Fatal("watermark should be absent when no path configured")
	}
	if job.Music != nil {
		t.Fatal("music should be absent when no path configured")
	}
	if job.Orientation != Vertical {
		t.Fatalf("default orientation = %q", job.Orientation)
	}
}
