// Package animator renders the volume-driven orb as a list of canvas shapes.
package animator

import (
	"context"
	"math"
	"sync"
	"time"
)

// Canvas geometry and cadence.
const (
	Width     = 500
	Height    = 360
	CenterX   = Width / 2
	CenterY   = Height / 2
	Interval  = 16 * time.Millisecond
	PhaseStep = 0.08

	baseRadius   = 42
	breathDepth  = 4
	glowRings    = 6
	glowSpacing  = 6
	rippleOffset = 24
	rippleDepth  = 6
)

// Colors.
const (
	GlowColor      = "#1e3a8a"
	CoreColor      = "#0ea5e9"
	HighlightColor = "#bae6fd"
	RippleColor    = "#38bdf8"
)

// Shape is an oval described by its bounding box, like a canvas create_oval call.
// An empty Fill draws only the outline; an empty Outline draws only the fill.
type Shape struct {
	X0      float64 `json:"x0"`
	Y0      float64 `json:"y0"`
	X1      float64 `json:"x1"`
	Y1      float64 `json:"y1"`
	Fill    string  `json:"fill,omitempty"`
	Outline string  `json:"outline,omitempty"`
	Width   int     `json:"width,omitempty"`
}

// Frame is one redraw: the canvas is cleared and Shapes drawn in order.
type Frame struct {
	Type   string  `json:"type"` // "frame"
	Phase  float64 `json:"phase"`
	Volume float64 `json:"volume"`
	Shapes []Shape `json:"shapes"`
}

// VolumeFunc reports the current volume.
type VolumeFunc func() float64

// Animator owns the animation phase. It is safe for concurrent use.
type Animator struct {
	volume VolumeFunc

	mu    sync.Mutex
	phase float64
}

// New creates an Animator reading volume on every tick.
func New(volume VolumeFunc) *Animator {
	return &Animator{volume: volume}
}

// Phase returns the current phase.
func (a *Animator) Phase() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.phase
}

// Tick renders a frame at the current phase, then advances the phase by PhaseStep.
func (a *Animator) Tick() Frame {
	volume := a.volume()

	a.mu.Lock()
	phase := a.phase
	a.phase += PhaseStep
	a.mu.Unlock()

	return Render(volume, phase)
}

// Run ticks every Interval and hands each frame to publish until ctx is done.
// publish must not block.
func (a *Animator) Run(ctx context.Context, publish func(Frame)) {
	ticker := time.NewTicker(Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			publish(a.Tick())
		}
	}
}

// BaseRadius returns the core radius for volume and phase, truncated to an integer.
func BaseRadius(volume, phase float64) int {
	return int(baseRadius + volume + breathDepth*math.Sin(phase))
}

// GlowRadii returns the glow ring radii, innermost first.
func GlowRadii(r int) []int {
	radii := make([]int, glowRings)
	for i := range radii {
		radii[i] = r + i*glowSpacing
	}
	return radii
}

// RippleRadius returns the outer ripple radius.
func RippleRadius(r int, phase float64) float64 {
	return float64(r) + rippleOffset + rippleDepth*math.Sin(2*phase)
}

// Render builds the frame for volume and phase.
func Render(volume, phase float64) Frame {
	r := BaseRadius(volume, phase)
	shapes := make([]Shape, 0, glowRings+3)

	for _, rr := range GlowRadii(r) {
		shapes = append(shapes, circle(float64(rr), "", GlowColor, 1))
	}

	shapes = append(shapes, circle(float64(r), CoreColor, "", 0))

	// Highlight sits toward the upper-left; offsets use floor division.
	near := math.Floor(float64(r) / 1.8)
	far := math.Floor(float64(r) / 3)
	shapes = append(shapes, Shape{
		X0:   CenterX - near,
		Y0:   CenterY - near,
		X1:   CenterX - far,
		Y1:   CenterY - far,
		Fill: HighlightColor,
	})

	shapes = append(shapes, circle(RippleRadius(r, phase), "", RippleColor, 2))

	return Frame{Type: "frame", Phase: phase, Volume: volume, Shapes: shapes}
}

func circle(radius float64, fill, outline string, width int) Shape {
	return Shape{
		X0:      CenterX - radius,
		Y0:      CenterY - radius,
		X1:      CenterX + radius,
		Y1:      CenterY + radius,
		Fill:    fill,
		Outline: outline,
		Width:   width,
	}
}
