//go:build darwin

package beep

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

var (
	malgoCtx          *malgo.AllocatedContext
	device            *malgo.Device
	connectSamples    []byte
	disconnectSamples []byte
	errorSamples      []byte
	soundOnce         sync.Once

	// Playback state, touched from the realtime callback
	playSamples atomic.Pointer[[]byte]
	playPos     atomic.Uint32
	playMu      sync.Mutex
)

func initDevice() error {
	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = 1
	config.SampleRate = sampleRate

	callbacks := malgo.DeviceCallbacks{
		Data: dataCallback,
	}

	var err error
	device, err = malgo.InitDevice(malgoCtx.Context, config, callbacks)
	return err
}

func initSound() {
	var err error
	malgoCtx, err = malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return
	}

	connectSamples = chimeBytes(chimeLowFreq, chimeHighFreq)
	disconnectSamples = chimeBytes(chimeHighFreq, chimeLowFreq)
	errorSamples = doubleBeepBytes()

	if err := initDevice(); err != nil {
		malgoCtx.Uninit()
		malgoCtx = nil
		return
	}
}

func dataCallback(pOutput, _ []byte, frameCount uint32) {
	samples := playSamples.Load()
	if samples == nil || len(*samples) == 0 {
		for i := range pOutput {
			pOutput[i] = 0
		}
		return
	}

	pos := playPos.Load()
	total := uint32(len(*samples))
	bytesToWrite := frameCount * 2
	remaining := total - pos

	if remaining == 0 {
		playSamples.Store(nil)
		for i := range pOutput {
			pOutput[i] = 0
		}
		return
	}

	if bytesToWrite > remaining {
		bytesToWrite = remaining
	}

	copy(pOutput[:bytesToWrite], (*samples)[pos:pos+bytesToWrite])
	playPos.Store(pos + bytesToWrite)

	for i := bytesToWrite; i < frameCount*2; i++ {
		pOutput[i] = 0
	}
}

func noteBytes(freq, duration, volume, decay float64) []byte {
	n := int(sampleRate * duration)
	buf := make([]byte, n*2)
	for i := 0; i < n; i++ {
		t := float64(i) / sampleRate
		envelope := math.Exp(-t * decay)
		sample := int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
		buf[i*2] = byte(sample)
		buf[i*2+1] = byte(sample >> 8)
	}
	return buf
}

func chimeBytes(first, second float64) []byte {
	gap := make([]byte, int(sampleRate*chimeGapDur)*2)
	out := noteBytes(first, chimeNoteDur, chimeVolume, chimeDecay)
	out = append(out, gap...)
	out = append(out, noteBytes(second, chimeNoteDur, chimeVolume, chimeDecay)...)
	return out
}

func doubleBeepBytes() []byte {
	gap := make([]byte, int(sampleRate*errorGapDur)*2)
	out := noteBytes(errorFreq, errorDur, errorVolume, errorDecay)
	out = append(out, gap...)
	out = append(out, noteBytes(errorFreq, errorDur, errorVolume, errorDecay)...)
	return out
}

func playBytes(samples []byte) {
	if malgoCtx == nil || len(samples) == 0 {
		return
	}

	playMu.Lock()
	defer playMu.Unlock()

	if device == nil {
		return
	}

	// Clean slate; Stop is a no-op when the device is idle
	device.Stop()

	playPos.Store(0)
	playSamples.Store(&samples)

	if err := device.Start(); err != nil {
		// Recreate once; covers devices lost across sleep/wake
		device.Uninit()
		if err := initDevice(); err != nil {
			playSamples.Store(nil)
			return
		}
		if err := device.Start(); err != nil {
			playSamples.Store(nil)
			return
		}
	}
}

func Init() {
	soundOnce.Do(initSound)
}

func PlayConnect() {
	if disabled {
		return
	}
	soundOnce.Do(initSound)
	playBytes(connectSamples)
}

func PlayDisconnect() {
	if disabled {
		return
	}
	soundOnce.Do(initSound)
	playBytes(disconnectSamples)
}

func PlayError() {
	if disabled {
		return
	}
	soundOnce.Do(initSound)
	playBytes(errorSamples)
}
