package render

import (
	"fmt"
	"strconv"
	"strings"
)

// Filter is one node in a filter graph: a named operation with its arguments
// already rendered in ffmpeg's name=a:b:k=v syntax.
type Filter struct {
	Name string
	Args []string
}

func (f Filter) String() string {
	if len(f.Args) == 0 {
		return f.Name
	}
	return f.Name + "=" + strings.Join(f.Args, ":")
}

// Chain applies a sequence of filters to labeled input streams and binds the
// result to labeled outputs. Labels omit the surrounding brackets.
type Chain struct {
	Inputs  []string
	Filters []Filter
	Outputs []string
}

func (c Chain) String() string {
	var b strings.Builder
	for _, in := range c.Inputs {
		b.WriteString("[")
		b.WriteString(in)
		b.WriteString("]")
	}
	rendered := make([]string, 0, len(c.Filters))
	for _, f := range c.Filters {
		rendered = append(rendered, f.String())
	}
	b.WriteString(strings.Join(rendered, ","))
	for _, out := range c.Outputs {
		b.WriteString("[")
		b.WriteString(out)
		b.WriteString("]")
	}
	return b.String()
}

// Graph is a complete -filter_complex description, built up one chain at a
// time and rendered into the single string ffmpeg expects.
type Graph struct {
	Chains []Chain
}

func (g *Graph) Add(chain Chain) {
	g.Chains = append(g.Chains, chain)
}

func (g Graph) Empty() bool {
	return len(g.Chains) == 0
}

func (g Graph) String() string {
	rendered := make([]string, 0, len(g.Chains))
	for _, c := range g.Chains {
		rendered = append(rendered, c.String())
	}
	return strings.Join(rendered, ";")
}

// ScaleToWidth resizes video to the given width preserving aspect ratio. The
// -2 height expression rounds to an even value, which 4:2:0 encoders require.
func ScaleToWidth(width int) Filter {
	return Filter{Name: "scale", Args: []string{strconv.Itoa(width), "-2"}}
}

// ScaleOverlay resizes an overlay image to the given width preserving aspect
// ratio, without the even-height constraint video streams need.
func ScaleOverlay(width int) Filter {
	return Filter{Name: "scale", Args: []string{strconv.Itoa(width), "-1"}}
}

// Pad expands the frame to exactly width x height, centering the content and
// filling the borders with color.
func Pad(width, height int, color string) Filter {
	return Filter{Name: "pad", Args: []string{
		strconv.Itoa(width),
		strconv.Itoa(height),
		"(ow-iw)/2",
		"(oh-ih)/2",
		"color=" + color,
	}}
}

// FPS forces a constant frame rate.
func FPS(fps int) Filter {
	return Filter{Name: "fps", Args: []string{strconv.Itoa(fps)}}
}

// Loudnorm normalizes audio to the EBU R128 targets in the profile.
func Loudnorm(profile LoudnessProfile) Filter {
	return Filter{Name: "loudnorm", Args: []string{
		"I=" + formatFloat(profile.IntegratedLUFS),
		"TP=" + formatFloat(profile.TruePeakDB),
		"LRA=" + formatFloat(profile.RangeLU),
	}}
}

// FormatRGBA converts a stream to an alpha-capable pixel format so its
// transparency can be adjusted.
func FormatRGBA() Filter {
	return Filter{Name: "format", Args: []string{"rgba"}}
}

// AlphaOpacity multiplies the alpha channel, making an overlay translucent.
func AlphaOpacity(opacity float64) Filter {
	return Filter{Name: "colorchannelmixer", Args: []string{"aa=" + formatFloat(opacity)}}
}

// Volume scales audio amplitude by gain.
func Volume(gain float64) Filter {
	return Filter{Name: "volume", Args: []string{formatFloat(gain)}}
}

// Amix mixes the given number of audio inputs, truncating to the shortest so
// an indefinitely looped music bed ends with the video.
func Amix(inputs int) Filter {
	return Filter{Name: "amix", Args: []string{
		"inputs=" + strconv.Itoa(inputs),
		"duration=shortest",
		"dropout_transition=2",
	}}
}

// Overlay composites one stream on top of another at the given x/y
// expressions.
func Overlay(x, y string) Filter {
	return Filter{Name: "overlay", Args: []string{fmt.Sprintf("x=%s", x), fmt.Sprintf("y=%s", y)}}
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'g', -1, 64)
}
