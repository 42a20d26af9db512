package audio

import (
	"encoding/binary"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// 50 ms chunks at the wire rate, matching the pulse backend cadence.
const toneChunkFrames = SampleRate / 20

// ToneContext synthesizes a tremolo test tone instead of opening a real
// microphone. Demo mode runs on it: the level meter moves, the silence
// monitor sees speech, and the call gets plausible PCM without any
// audio hardware.
type ToneContext struct {
	freq float64
}

func NewToneContext(freq float64) *ToneContext {
	if freq <= 0 {
		freq = 220
	}
	return &ToneContext{freq: freq}
}

func (c *ToneContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "tone", Name: "tone generator"}}, nil
}

func (c *ToneContext) NewCapture(_ *DeviceInfo, config CaptureConfig) (CaptureDevice, error) {
	rate := int(config.SampleRate)
	if rate == 0 {
		rate = SampleRate
	}
	return &ToneCapture{freq: c.freq, rate: rate}, nil
}

func (c *ToneContext) Close() {}

type ToneCapture struct {
	freq float64
	rate int

	callback atomic.Pointer[DataCallback]

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func (c *ToneCapture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		return nil
	}
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.feed(c.stop, c.done)
	return nil
}

func (c *ToneCapture) feed(stop, done chan struct{}) {
	defer close(done)

	interval := time.Duration(toneChunkFrames) * time.Second / time.Duration(c.rate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	step := 1.0 / float64(c.rate)
	var t float64
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		cb := c.callback.Load()
		if cb == nil {
			continue
		}

		data := make([]byte, toneChunkFrames*2)
		for i := 0; i < toneChunkFrames; i++ {
			// slow tremolo so the level meter visibly breathes
			env := 0.35 + 0.25*math.Sin(2*math.Pi*0.4*t)
			s := math.Sin(2*math.Pi*c.freq*t) * env * 32767
			binary.LittleEndian.PutUint16(data[i*2:], uint16(int16(s)))
			t += step
		}
		(*cb)(data, uint32(toneChunkFrames))
	}
}

func (c *ToneCapture) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop == nil {
		return
	}
	close(c.stop)
	<-c.done
	c.stop = nil
	c.done = nil
}

func (c *ToneCapture) Close() {
	c.Stop()
}

func (c *ToneCapture) SetCallback(cb DataCallback) {
	c.callback.Store(&cb)
}

func (c *ToneCapture) ClearCallback() {
	c.callback.Store(nil)
}

func (c *ToneCapture) DeviceName() string {
	return "tone generator"
}
