// Package beep voices the call lifecycle: a rising two-note chime when
// the assistant picks up, the falling inverse on hang-up, a low double
// tone on failure. Playback goes through PulseAudio on Linux and
// miniaudio on darwin; Windows stays silent.
package beep

var disabled bool

// Disable turns every chime into a no-op (demo and test runs).
func Disable() { disabled = true }

const (
	sampleRate = 44100

	// Chime notes: E5 up to A5 on connect, reversed on disconnect.
	chimeLowFreq  = 659.25
	chimeHighFreq = 880.0
	chimeVolume   = 0.45
	chimeDecay    = 22
	chimeNoteDur  = 0.12
	chimeGapDur   = 0.03

	// Error tone: Eb4 double-beep
	errorFreq   = 311.13
	errorVolume = 0.55
	errorDecay  = 30
	errorDur    = 0.08
	errorGapDur = 0.05
)
