// Package input turns polled device state into the per-frame events the
// editor consumes.
package input

import (
	"github.com/tdmap/mapbuilder/internal/geo"
	"github.com/tdmap/mapbuilder/pkg/core"
)

// Pointer tracks the primary pointer button across frames.
type Pointer struct {
	// Threshold is the distance from the click start the pointer must exceed
	// before a press counts as a drag. Zero or less means any movement.
	Threshold float64
	// Window and Texture, when both set, rescale raw window coordinates
	// into texture coordinates.
	Window  core.Vec2
	Texture core.Vec2

	state core.PointerEvent
}

// NewPointer creates a tracker with the given drag threshold.
func NewPointer(threshold float64) *Pointer {
	return &Pointer{Threshold: threshold}
}

// SetViewport sets the window and texture sizes used to rescale positions.
func (p *Pointer) SetViewport(window, texture core.Vec2) {
	p.Window = window
	p.Texture = texture
}

// Update advances the tracker by one frame from the raw position and
// button state and returns the resulting event.
func (p *Pointer) Update(raw core.Vec2, down bool) core.PointerEvent {
	pos := raw
	if !p.Window.IsZero() && !p.Texture.IsZero() {
		pos = geo.Rescale(raw, p.Window, p.Texture)
	}

	prev := p.state
	s := core.PointerEvent{
		Position:   pos,
		Delta:      pos.Sub(prev.Position),
		ClickStart: prev.ClickStart,
	}

	// movement is judged against the previous frame's button state, so the
	// flag survives into the release frame and drops on the one after
	s.MovedWhilePressed = prev.Pressed && (prev.MovedWhilePressed || p.moved(s.Delta, pos, prev.ClickStart))

	if down {
		if !prev.Pressed {
			s.PressedThisFrame = true
			s.ClickStart = pos
		}
		s.Pressed = true
	} else if prev.Pressed {
		s.ReleasedThisFrame = true
	}

	p.state = s
	return s
}

// State returns the event produced by the last Update.
func (p *Pointer) State() core.PointerEvent {
	return p.state
}

func (p *Pointer) moved(delta, pos, start core.Vec2) bool {
	if p.Threshold <= 0 {
		return !delta.IsZero()
	}
	d := pos.Sub(start)
	return d.X*d.X+d.Y*d.Y > p.Threshold*p.Threshold
}
