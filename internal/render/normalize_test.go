package render

import (
	"strings"
	"testing"
)

func normalizeTestJob() Job {
	job := Job{
		OutputPath: "/out/final.mp4",
		StagingDir: "/staging",
	}
	if err := job.Validate(); err != nil {
		panic(err)
	}
	return job
}

func TestBuildNormalizeCommandWithAudio(t *testing.T) {
	job := normalizeTestJob()
	cmd := buildNormalizeCommand("ffmpeg", job, "/clips/a.mp4", "/staging/segment_x.mp4", true)

	if cmd.Binary != "ffmpeg" {
		t.Fatalf("binary = %q", cmd.Binary)
	}
	rendered := cmd.String()

	wantGraph := "[0:v]scale=1080:-2,pad=1080:1920:(ow-iw)/2:(oh-ih)/2:color=black,fps=30[vout];" +
		"[0:a]loudnorm=I=-16:TP=-1.5:LRA=11[aout]"
	if !strings.Contains(rendered, "-filter_complex "+wantGraph) {
		t.Fatalf("missing filter graph in %q", rendered)
	}
	if !strings.Contains(rendered, "-i /clips/a.mp4") {
		t.Fatalf("missing input in %q", rendered)
	}
	if strings.Contains(rendered, "lavfi") || strings.Contains(rendered, "-shortest") {
		t.Fatalf("audio synthesis args present for clip with audio: %q", rendered)
	}
	if !strings.Contains(rendered, "-map [vout] -map [aout]") {
		t.Fatalf("missing stream maps in %q", rendered)
	}
	if !strings.Contains(rendered, "-c:v libx264 -preset medium -b:v 6000k -pix_fmt yuv420p -r 30 -c:a aac -b:a 192k -ac 2 -movflags +faststart") {
		t.Fatalf("missing encode args in %q", rendered)
	}
	if cmd.Args[len(cmd.Args)-1] != "/staging/segment_x.mp4" {
		t.Fatalf("output path must be last, got %q", cmd.Args[len(cmd.Args)-1])
	}
}

func TestBuildNormalizeCommandSynthesizesSilence(t *testing.T) {
	job := normalizeTestJob()
	cmd := buildNormalizeCommand("ffmpeg", job, "/clips/mute.mp4", "/staging/segment_y.mp4", false)
	rendered := cmd.String()

	if !strings.Contains(rendered, "-f lavfi -i "+silentAudioSource) {
		t.Fatalf("missing silent audio input in %q", rendered)
	}
	if !strings.Contains(rendered, "[1:a]loudnorm=") {
		t.Fatalf("loudnorm should read the synthesized track: %q", rendered)
	}
	if !strings.Contains(rendered, "-shortest") {
		t.Fatalf("-shortest required with the infinite null source: %q", rendered)
	}
}

func TestBuildNormalizeCommandHorizontal(t *testing.T) {
	job := normalizeTestJob()
	job.Orientation = Horizontal
	job.FrameRate = 60
	job.Encode.PaddingColor = "white"

	cmd := buildNormalizeCommand("ffmpeg", job, "/clips/a.mp4", "/staging/segment_z.mp4", true)
	rendered := cmd.String()
	if !strings.Contains(rendered, "scale=1920:-2,pad=1920:1080:(ow-iw)/2:(oh-ih)/2:color=white,fps=60") {
		t.Fatalf("horizontal canvas not applied: %q", rendered)
	}
	if !strings.Contains(rendered, "-r 60") {
		t.Fatalf("output frame rate not applied: %q", rendered)
	}
}
