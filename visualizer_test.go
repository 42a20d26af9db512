package main

import (
	"math"
	"strings"
	"testing"
)

func TestCurrentConvergesGeometrically(t *testing.T) {
	v := newVisualizer()
	v.current = 1.0
	v.target = 0

	frames := 0
	for v.current > 0.01 {
		v.Step()
		v.target = 0 // pin the target, decay is tested separately
		frames++
		if frames > 30 {
			t.Fatalf("current still %v after %d frames", v.current, frames)
		}
	}
	// (1-0.18)^24 < 0.01
	if frames > 24 {
		t.Errorf("converged in %d frames, want <= 24", frames)
	}
}

func TestTargetDecaysMultiplicatively(t *testing.T) {
	v := newVisualizer()
	v.SetTarget(1.0)

	frames := 0
	for v.target >= 0.01 {
		v.Step()
		frames++
		if frames > 60 {
			t.Fatalf("target still %v after %d frames", v.target, frames)
		}
	}
	// 0.92^56 < 0.01
	if frames > 56 {
		t.Errorf("decayed in %d frames, want <= 56", frames)
	}
}

func TestCurrentStepIsBoundedFraction(t *testing.T) {
	v := newVisualizer()
	v.SetTarget(1.0)
	prev := v.current
	for i := 0; i < 20; i++ {
		gap := math.Abs(v.target - prev)
		v.Step()
		step := math.Abs(v.current - prev)
		if step > gap*ringSmoothing+1e-9 {
			t.Fatalf("frame %d jumped by %v, gap was %v", i, step, gap)
		}
		prev = v.current
	}
}

func TestSetTargetClamps(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"over range", 1.7, 1},
		{"negative", -0.3, 0},
		{"nan", math.NaN(), 0},
		{"in range", 0.42, 0.42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newVisualizer()
			v.SetTarget(tt.in)
			if v.target != tt.want {
				t.Errorf("got %v, want %v", v.target, tt.want)
			}
		})
	}
}

func TestResetZeroesState(t *testing.T) {
	v := newVisualizer()
	v.SetTarget(0.8)
	for i := 0; i < 5; i++ {
		v.Step()
	}
	v.Reset()
	if v.current != 0 || v.target != 0 || v.phase != 0 {
		t.Errorf("after reset: current=%v target=%v phase=%v", v.current, v.target, v.phase)
	}
}

func TestStepReturnsAllPoints(t *testing.T) {
	v := newVisualizer()
	if got := len(v.Step()); got != ringPoints {
		t.Errorf("got %d dots, want %d", got, ringPoints)
	}
}

func TestPhaseAdvancesPerFrame(t *testing.T) {
	v := newVisualizer()
	v.Step()
	v.Step()
	if diff := math.Abs(v.phase - 2*ringPhaseStep); diff > 1e-12 {
		t.Errorf("phase %v after two frames, want %v", v.phase, 2*ringPhaseStep)
	}
}

func TestHaloTracksThreshold(t *testing.T) {
	loud := newVisualizer()
	loud.current = 0.5
	loud.target = 0.5
	for _, d := range loud.Step() {
		if !d.Halo {
			t.Error("expected halo above threshold")
			break
		}
	}

	quiet := newVisualizer()
	quiet.current = 0.05
	quiet.target = 0.05
	for _, d := range quiet.Step() {
		if d.Halo {
			t.Error("expected no halo below threshold")
			break
		}
	}
}

func TestIdleBreathingKeepsMotion(t *testing.T) {
	v := newVisualizer()
	first := v.Step()[0]
	var moved bool
	for i := 0; i < 30; i++ {
		d := v.Step()[0]
		if d.X != first.X || d.Size != first.Size {
			moved = true
			break
		}
	}
	if !moved {
		t.Error("ring frozen at zero volume; breathing floor missing")
	}
}

func TestRenderRingShape(t *testing.T) {
	v := newVisualizer()
	v.SetTarget(0.6)
	out := renderRing(v.Step())
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != ringCharsH {
		t.Errorf("got %d canvas rows, want %d", len(lines), ringCharsH)
	}
	if !strings.ContainsAny(out, "█▀▄") {
		t.Error("canvas has no lit pixels at audible volume")
	}
}

func TestBlankRingIsEmptyCanvas(t *testing.T) {
	out := blankRing()
	if strings.ContainsAny(out, "█▀▄") {
		t.Error("cleared canvas still has lit pixels")
	}
	if got := strings.Count(out, "\n"); got != ringCharsH {
		t.Errorf("got %d rows, want %d", got, ringCharsH)
	}
}
