package render

import "strconv"

// silentAudioSource is the lavfi description for a synthesized stereo
// silence track, used when a source clip has no audio of its own.
const silentAudioSource = "anullsrc=channel_layout=stereo:sample_rate=44100"

// buildNormalizeCommand renders the invocation that converts one source
// segment into the canonical format: scaled to the target width, padded
// centered to the exact canvas, forced to the target frame rate, with a
// loudness-normalized audio track. When the source has no audio a silent
// track is synthesized; -shortest then stops the encode at the video's end,
// since the null source is otherwise infinite.
func buildNormalizeCommand(binary string, job Job, sourcePath, outputPath string, hasAudio bool) Command {
	width, height := job.Orientation.Dimensions()

	args := []string{"-hide_banner", "-nostdin", "-y", "-i", sourcePath}
	audioInput := "0:a"
	if !hasAudio {
		args = append(args, "-f", "lavfi", "-i", silentAudioSource)
		audioInput = "1:a"
	}

	var graph Graph
	graph.Add(Chain{
		Inputs: []string{"0:v"},
		Filters: []Filter{
			ScaleToWidth(width),
			Pad(width, height, job.Encode.PaddingColor),
			FPS(job.FrameRate),
		},
		Outputs: []string{"vout"},
	})
	graph.Add(Chain{
		Inputs:  []string{audioInput},
		Filters: []Filter{Loudnorm(job.Loudness)},
		Outputs: []string{"aout"},
	})

	args = append(args, "-filter_complex", graph.String(), "-map", "[vout]", "-map", "[aout]")
	if !hasAudio {
		args = append(args, "-shortest")
	}
	args = append(args, encodeArgs(job.Encode, job.FrameRate)...)
	args = append(args, outputPath)
	return Command{Binary: binary, Args: args}
}

// encodeArgs renders the output encoder parameters shared by segment
// normalization and the final composite pass. The fast-start flag keeps the
// container streamable, which upload targets require.
func encodeArgs(settings EncodeSettings, fps int) []string {
	return []string{
		"-c:v", "libx264",
		"-preset", settings.Preset,
		"-b:v", settings.VideoBitrate,
		"-pix_fmt", settings.PixelFormat,
		"-r", strconv.Itoa(fps),
		"-c:a", "aac",
		"-b:a", settings.AudioBitrate,
		"-ac", "2",
		"-movflags", "+faststart",
	}
}
