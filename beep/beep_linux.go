//go:build linux

package beep

import (
	"math"
	"sync"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

var (
	connectSamples    []int16
	disconnectSamples []int16
	errorSamples      []int16
	soundOnce         sync.Once
)

func initSound() {
	connectSamples = chime(chimeLowFreq, chimeHighFreq)
	disconnectSamples = chime(chimeHighFreq, chimeLowFreq)
	errorSamples = doubleBeep()
}

func note(freq, duration, volume, decay float64) []int16 {
	n := int(sampleRate * duration)
	samples := make([]int16, n*2)
	for i := 0; i < n; i++ {
		t := float64(i) / sampleRate
		envelope := math.Exp(-t * decay)
		s := int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
		samples[i*2] = s
		samples[i*2+1] = s
	}
	return samples
}

func chime(first, second float64) []int16 {
	gap := make([]int16, int(sampleRate*chimeGapDur)*2)
	out := note(first, chimeNoteDur, chimeVolume, chimeDecay)
	out = append(out, gap...)
	out = append(out, note(second, chimeNoteDur, chimeVolume, chimeDecay)...)
	return out
}

func doubleBeep() []int16 {
	gap := make([]int16, int(sampleRate*errorGapDur)*2)
	out := note(errorFreq, errorDur, errorVolume, errorDecay)
	out = append(out, gap...)
	out = append(out, note(errorFreq, errorDur, errorVolume, errorDecay)...)
	return out
}

func playSamples(samples []int16) {
	if len(samples) == 0 {
		return
	}
	c, err := pulse.NewClient()
	if err != nil {
		return
	}
	defer c.Close()

	pos := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if pos >= len(samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, samples[pos:])
		pos += n
		return n, nil
	})
	stream, err := c.NewPlayback(reader,
		pulse.PlaybackStereo,
		pulse.PlaybackSampleRate(sampleRate),
		pulse.PlaybackLatency(0.1),
		pulse.PlaybackRawOption(func(p *proto.CreatePlaybackStream) {
			p.ChannelVolumes = proto.ChannelVolumes{uint32(proto.VolumeNorm), uint32(proto.VolumeNorm)}
		}),
	)
	if err != nil {
		return
	}
	stream.Start()
	stream.Drain()
	stream.Stop()
	stream.Close()
}

func Init() {
	soundOnce.Do(initSound)
}

func PlayConnect() {
	if disabled {
		return
	}
	soundOnce.Do(initSound)
	go playSamples(connectSamples)
}

func PlayDisconnect() {
	if disabled {
		return
	}
	soundOnce.Do(initSound)
	go playSamples(disconnectSamples)
}

func PlayError() {
	if disabled {
		return
	}
	soundOnce.Do(initSound)
	go playSamples(errorSamples)
}
