package render

import "fmt"

// inputSpec is one -i entry with the input options that precede it.
type inputSpec struct {
	options []string
	path    string
}

// buildComposeCommand renders the final pass: watermark overlay, background
// music mix, the mandatory loudness pass over the combined audio, and the
// output encode, all in a single invocation so the concatenated intermediate
// is decoded only once. The include flags are resolved by the caller, which
// checks spec presence and file existence.
func buildComposeCommand(binary string, job Job, concatenatedPath string, includeWatermark, includeMusic bool) Command {
	width, _ := job.Orientation.Dimensions()

	inputs := []inputSpec{{path: concatenatedPath}}
	var graph Graph

	videoMap := "0:v"
	if includeWatermark && job.Watermark != nil {
		watermark := job.Watermark
		overlayLabel := fmt.Sprintf("%d:v", len(inputs))
		inputs = append(inputs, inputSpec{path: watermark.Path})

		var overlayFilters []Filter
		if scaled := watermark.ScaledWidth(width); scaled > 0 {
			overlayFilters = append(overlayFilters, ScaleOverlay(scaled))
		}
		if watermark.Opacity < 1 {
			overlayFilters = append(overlayFilters, FormatRGBA(), AlphaOpacity(watermark.Opacity))
		}
		if len(overlayFilters) > 0 {
			graph.Add(Chain{
				Inputs:  []string{overlayLabel},
				Filters: overlayFilters,
				Outputs: []string{"wm"},
			})
			overlayLabel = "wm"
		}

		x, y := watermark.Position.Coordinates(watermark.Margin)
		graph.Add(Chain{
			Inputs:  []string{"0:v", overlayLabel},
			Filters: []Filter{Overlay(x, y)},
			Outputs: []string{"vout"},
		})
		videoMap = "[vout]"
	}

	audioLabel := "0:a"
	if includeMusic && job.Music != nil {
		music := job.Music
		musicInput := fmt.Sprintf("%d:a", len(inputs))
		inputs = append(inputs, inputSpec{
			options: []string{"-stream_loop", "-1"},
			path:    music.Path,
		})

		graph.Add(Chain{
			Inputs:  []string{musicInput},
			Filters: []Filter{Volume(music.Volume)},
			Outputs: []string{"music"},
		})
		if music.Ducking > 0 && music.Ducking < 1 {
			graph.Add(Chain{
				Inputs:  []string{audioLabel},
				Filters: []Filter{Volume(music.Ducking)},
				Outputs: []string{"aduck"},
			})
			audioLabel = "aduck"
		}
		graph.Add(Chain{
			Inputs:  []string{audioLabel, "music"},
			Filters: []Filter{Amix(2)},
			Outputs: []string{"amixed"},
		})
		audioLabel = "amixed"
	}

	// The mix can shift perceived loudness, so normalization always runs
	// again on the final audio even when nothing was mixed in.
	graph.Add(Chain{
		Inputs:  []string{audioLabel},
		Filters: []Filter{Loudnorm(job.Loudness)},
		Outputs: []string{"aout"},
	})

	args := []string{"-hide_banner", "-nostdin", "-y"}
	for _, input := range inputs {
		args = append(args, input.options...)
		args = append(args, "-i", input.path)
	}
	args = append(args, "-filter_complex", graph.String())
	args = append(args, "-map", videoMap, "-map", "[aout]")
	args = append(args, encodeArgs(job.Encode, job.FrameRate)...)
	args = append(args, job.OutputPath)
	return Command{Binary: binary, Args: args}
}
