package main

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	colorful "github.com/lucasb-eyer/go-colorful"
)

const (
	ringPoints    = 24
	ringSmoothing = 0.18
	ringPhaseStep = 0.025
	ringDecay     = 0.92
	ringHaloMin   = 0.15
	ringIdleFloor = 0.01
)

// ringDot is one per-frame draw command. X/Y are offsets from the ring
// center in units of the base radius; Size, Alpha and ColorT are
// normalized to [0,1].
type ringDot struct {
	X, Y   float64
	Size   float64
	Alpha  float64
	ColorT float64
	Halo   bool
}

// visualizer turns the sparse agent volume signal into stable per-frame
// ring geometry. It runs only while a call is live; the caller resets
// it when the loop suspends.
type visualizer struct {
	current float64
	target  float64
	phase   float64
	dots    [ringPoints]ringDot
}

func newVisualizer() *visualizer { return &visualizer{} }

// SetTarget records a raw volume sample. Out-of-range and non-finite
// samples are clamped, never treated as errors.
func (v *visualizer) SetTarget(level float64) {
	if math.IsNaN(level) || level < 0 {
		level = 0
	} else if level > 1 {
		level = 1
	}
	v.target = level
}

func (v *visualizer) Reset() {
	v.current = 0
	v.target = 0
	v.phase = 0
}

// Step advances one frame: smooth toward the target, advance the
// animation clock, lay out the dots, then decay the target so a stale
// signal relaxes to silence on its own. The returned slice is reused
// between frames.
func (v *visualizer) Step() []ringDot {
	v.current += (v.target - v.current) * ringSmoothing
	v.phase += ringPhaseStep

	effective := v.current
	if v.target < ringIdleFloor && v.current < ringIdleFloor {
		// breathing floor so a silent live call never looks frozen
		effective = 0.06 + 0.04*math.Sin(v.phase/2)
	}

	for i := range v.dots {
		angle := float64(i) / ringPoints * 2 * math.Pi
		// two averaged sinusoids at different frequencies, phase
		// stepped per point so the wave travels instead of pulsing
		wave := (math.Sin(v.phase*2.4+float64(i)*0.47) + math.Sin(v.phase*3.7+float64(i)*0.29)) / 2
		lift := (wave + 1) / 2
		radial := 1 + wave*effective*0.45

		v.dots[i] = ringDot{
			X:      math.Cos(angle) * radial,
			Y:      math.Sin(angle) * radial,
			Size:   0.12 + lift*effective*0.6,
			Alpha:  0.35 + lift*effective*0.6,
			ColorT: lift,
			Halo:   effective > ringHaloMin,
		}
	}

	v.target *= ringDecay
	return v.dots[:]
}

// Terminal rendering. Each character cell is two stacked pixels via
// half blocks; styles are precomputed so the frame loop only indexes.
const (
	ringCharsW = 33
	ringCharsH = 17

	ringColorSteps = 16
	ringAlphaSteps = 6
)

var (
	ringEndA = colorful.Color{R: 0.20, G: 0.83, B: 0.75} // teal
	ringEndB = colorful.Color{R: 0.62, G: 0.50, B: 0.98} // violet

	ringStyles [1 + ringColorSteps*ringAlphaSteps]lipgloss.Style
	ringPair   = map[int]lipgloss.Style{}
	ringHex    [1 + ringColorSteps*ringAlphaSteps]string
)

func init() {
	black := colorful.Color{}
	for ci := 0; ci < ringColorSteps; ci++ {
		base := ringEndA.BlendRgb(ringEndB, float64(ci)/(ringColorSteps-1))
		for ai := 0; ai < ringAlphaSteps; ai++ {
			alpha := float64(ai+1) / ringAlphaSteps
			shade := black.BlendRgb(base, alpha)
			idx := 1 + ci*ringAlphaSteps + ai
			ringHex[idx] = shade.Hex()
			ringStyles[idx] = lipgloss.NewStyle().Foreground(lipgloss.Color(shade.Hex()))
		}
	}
}

func ringPaletteIndex(colorT, alpha float64) int {
	if colorT < 0 {
		colorT = 0
	} else if colorT > 1 {
		colorT = 1
	}
	if alpha <= 0 {
		return 0
	}
	if alpha > 1 {
		alpha = 1
	}
	ci := int(colorT*float64(ringColorSteps-1) + 0.5)
	ai := int(alpha*float64(ringAlphaSteps-1) + 0.5)
	return 1 + ci*ringAlphaSteps + ai
}

// ringPairStyle styles a cell whose top and bottom pixels differ. The
// pair table is filled lazily; View runs on one goroutine.
func ringPairStyle(top, bot int) lipgloss.Style {
	key := top*len(ringHex) + bot
	if st, ok := ringPair[key]; ok {
		return st
	}
	st := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ringHex[top])).
		Background(lipgloss.Color(ringHex[bot]))
	ringPair[key] = st
	return st
}

func fillCircle(pixels [][]int, cx, cy, r float64, idx int) {
	x0 := int(math.Floor(cx - r))
	x1 := int(math.Ceil(cx + r))
	y0 := int(math.Floor(cy - r))
	y1 := int(math.Ceil(cy + r))
	for y := y0; y <= y1; y++ {
		if y < 0 || y >= len(pixels) {
			continue
		}
		for x := x0; x <= x1; x++ {
			if x < 0 || x >= len(pixels[y]) {
				continue
			}
			dx := float64(x) - cx
			dy := float64(y) - cy
			if dx*dx+dy*dy < r*r {
				pixels[y][x] = idx
			}
		}
	}
}

// renderRing rasterizes one frame of dots onto a half-block canvas.
func renderRing(dots []ringDot) string {
	const pixW = ringCharsW
	const pixH = ringCharsH * 2
	const baseRadius = 10.0

	centerX := float64(pixW-1) / 2
	centerY := float64(pixH-1) / 2

	pixels := make([][]int, pixH)
	for i := range pixels {
		pixels[i] = make([]int, pixW)
	}

	// halos first so the dots overdraw them
	haloIdx := ringPaletteIndex(0.5, 0.15)
	for _, d := range dots {
		if !d.Halo {
			continue
		}
		cx := centerX + d.X*baseRadius
		cy := centerY + d.Y*baseRadius
		fillCircle(pixels, cx, cy, 1.2+d.Size*4.5, haloIdx)
	}
	for _, d := range dots {
		cx := centerX + d.X*baseRadius
		cy := centerY + d.Y*baseRadius
		fillCircle(pixels, cx, cy, 0.8+d.Size*3.2, ringPaletteIndex(d.ColorT, d.Alpha))
	}

	var result strings.Builder
	for cy := 0; cy < ringCharsH; cy++ {
		for cx := 0; cx < ringCharsW; cx++ {
			top := pixels[cy*2][cx]
			bot := pixels[cy*2+1][cx]
			switch {
			case top == 0 && bot == 0:
				result.WriteString(" ")
			case top == bot:
				result.WriteString(ringStyles[top].Render("█"))
			case bot == 0:
				result.WriteString(ringStyles[top].Render("▀"))
			case top == 0:
				result.WriteString(ringStyles[bot].Render("▄"))
			default:
				result.WriteString(ringPairStyle(top, bot).Render("▀"))
			}
		}
		result.WriteString("\n")
	}
	return result.String()
}

// blankRing is the cleared canvas shown while no call is active.
func blankRing() string {
	row := strings.Repeat(" ", ringCharsW) + "\n"
	return strings.Repeat(row, ringCharsH)
}
