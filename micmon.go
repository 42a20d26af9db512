package main

import (
	"encoding/binary"
	"math"
	"time"
)

// Mic level samples arrive once per capture callback, 50 ms apart on
// the pulse backend; window lengths below are tick counts at that
// cadence.
const (
	micSampleInterval = 50 * time.Millisecond
	micWarnAfter      = 8 * time.Second
	micAutoEndAfter   = 30 * time.Second

	micSpeechFloor = 0.015 // RMS above this counts as the user talking
	micSpeechMin   = 0.10
	micSpeechClear = 0.25 // higher threshold to clear warning (hysteresis)
)

type MicEvent int

const (
	MicNone      MicEvent = iota
	MicWarn               // no voice picked up
	MicWarnClear          // speech resumed after warning
	MicAutoEnd            // long dead air, hang up (-autoend)
)

// micMonitor watches capture energy for dead air during a live call. A
// sliding window keeps one speech/silence bit per sample; the warning
// clears only once speech properly resumes.
type micMonitor struct {
	warnAt   int
	windowSz int

	autoEnd bool

	ticks       int
	window      []bool
	speechCount int
	warned      bool
	ended       bool
}

func newMicMonitor(autoEnd bool) *micMonitor {
	warnAt := int(micWarnAfter / micSampleInterval)
	windowSz := int(micAutoEndAfter / micSampleInterval)
	return &micMonitor{
		warnAt:   warnAt,
		windowSz: windowSz,
		autoEnd:  autoEnd,
		window:   make([]bool, windowSz),
	}
}

// Reset starts a fresh window for a new call.
func (m *micMonitor) Reset() {
	m.ticks = 0
	m.speechCount = 0
	m.warned = false
	m.ended = false
	for i := range m.window {
		m.window[i] = false
	}
}

func (m *micMonitor) ratio(n int) float64 {
	if m.ticks < n {
		n = m.ticks
	}
	if n == 0 {
		return 1.0
	}
	count := 0
	for i := 0; i < n; i++ {
		if m.window[(m.ticks-1-i+m.windowSz)%m.windowSz] {
			count++
		}
	}
	return float64(count) / float64(n)
}

// Sample folds one capture buffer's level into the window. The
// assistant talking counts as activity: nobody gets nagged for
// listening.
func (m *micMonitor) Sample(rms float64, assistantSpeaking bool) MicEvent {
	if m.ended {
		return MicNone
	}

	hasSpeech := rms >= micSpeechFloor || assistantSpeaking
	idx := m.ticks % m.windowSz
	if m.ticks >= m.windowSz && m.window[idx] {
		m.speechCount--
	}
	m.window[idx] = hasSpeech
	if hasSpeech {
		m.speechCount++
	}
	m.ticks++

	r := m.ratio(m.warnAt)

	// Warn: 8s window below threshold
	if m.ticks >= m.warnAt && r < micSpeechMin && !m.warned {
		m.warned = true
		return MicWarn
	}
	// Clear: speech ratio above clear threshold
	if m.warned && r >= micSpeechClear {
		m.warned = false
		return MicWarnClear
	}

	if !m.autoEnd {
		return MicNone
	}

	// Auto-end: 30s window below threshold
	if m.ticks >= m.windowSz && float64(m.speechCount)/float64(m.windowSz) < micSpeechMin {
		m.ended = true
		return MicAutoEnd
	}

	return MicNone
}

// micRMS measures one PCM16LE capture buffer, normalized to [0, 1].
func micRMS(data []byte) float64 {
	if len(data) < 2 {
		return 0
	}
	var sumSquares float64
	for i := 0; i+1 < len(data); i += 2 {
		s := float64(int16(binary.LittleEndian.Uint16(data[i:]))) / 32768.0
		sumSquares += s * s
	}
	return math.Sqrt(sumSquares / float64(len(data)/2))
}
