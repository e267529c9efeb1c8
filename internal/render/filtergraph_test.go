package render

import "testing"

func TestFilterString(t *testing.T) {
	if got := FormatRGBA().String(); got != "format=rgba" {
		t.Fatalf("unexpected filter: %q", got)
	}
	if got := (Filter{Name: "anull"}).String(); got != "anull" {
		t.Fatalf("expected bare name, got %q", got)
	}
	if got := Pad(1080, 1920, "black").String(); got != "pad=1080:1920:(ow-iw)/2:(oh-ih)/2:color=black" {
		t.Fatalf("unexpected pad filter: %q", got)
	}
}

func TestChainString(t *testing.T) {
	chain := Chain{
		Inputs: []string{"0:v"},
		Filters: []Filter{
			ScaleToWidth(1080),
			Pad(1080, 1920, "black"),
			FPS(30),
		},
		Outputs: []string{"vout"},
	}
	want := "[0:v]scale=1080:-2,pad=1080:1920:(ow-iw)/2:(oh-ih)/2:color=black,fps=30[vout]"
	if got := chain.String(); got != want {
		t.Fatalf("chain = %q, want %q", got, want)
	}
}

func TestGraphString(t *testing.T) {
	var graph Graph
	if !graph.Empty() {
		t.Fatal("new graph should be empty")
	}
	graph.Add(Chain{Inputs: []string{"0:v"}, Filters: []Filter{FPS(30)}, Outputs: []string{"v"}})
	graph.Add(Chain{Inputs: []string{"0:a"}, Filters: []Filter{Loudnorm(DefaultLoudness())}, Outputs: []string{"a"}})

	want := "[0:v]fps=30[v];[0:a]loudnorm=I=-16:TP=-1.5:LRA=11[a]"
	if got := graph.String(); got != want {
		t.Fatalf("graph = %q, want %q", got, want)
	}
	if graph.Empty() {
		t.Fatal("graph with chains reported empty")
	}
}

func TestLoudnormFormatting(t *testing.T) {
	profile := LoudnessProfile{IntegratedLUFS: -14, TruePeakDB: -2, RangeLU: 7.5}
	if got := Loudnorm(profile).String(); got != "loudnorm=I=-14:TP=-2:LRA=7.5" {
		t.Fatalf("unexpected loudnorm: %q", got)
	}
}

func TestAudioFilters(t *testing.T) {
	if got := Volume(0.1).String(); got != "volume=0.1" {
		t.Fatalf("unexpected volume: %q", got)
	}
	if got := AlphaOpacity(0.7).String(); got != "colorchannelmixer=aa=0.7" {
		t.Fatalf("unexpected opacity: %q", got)
	}
	if got := Amix(2).String(); got != "amix=inputs=2:duration=shortest:dropout_transition=2" {
		t.Fatalf("unexpected amix: %q", got)
	}
}

func TestOverlayScale(t *testing.T) {
	if got := ScaleOverlay(540).String(); got != "scale=540:-1" {
		t.Fatalf("unexpected overlay scale: %q", got)
	}
	if got := Overlay("W-w-40", "40").String(); got != "overlay=x=W-w-40:y=40" {
		t.Fatalf("unexpected overlay: %q", got)
	}
}
