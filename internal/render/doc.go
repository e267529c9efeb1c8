// Package render turns a list of source clips into one published-ready
// compilation video.
//
// A Job describes the invocation: ordered clips, optional intro and outro,
// target orientation and frame rate, watermark, background music, loudness
// targets, and encoder settings. Pipeline.Render drives it through four
// sequential stages:
//
//  1. assembly — order intro, clips, outro; drop missing files with a warning
//  2. normalization — per segment: scale, pad, force fps, guarantee an audio
//     track, normalize loudness
//  3. concatenation — lossless stream-copy join via a concat manifest
//  4. composite — watermark overlay, music mix with optional ducking, a final
//     loudness pass, and the output encode in a single invocation
//
// Media operations are described as typed filter graphs and executed through
// the Engine interface; the default engine shells out to ffmpeg. The
// pipeline owns all temporary artifacts and removes them before Render
// returns, on success and on failure alike.
package render
