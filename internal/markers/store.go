// Package markers holds the ordered marker collection edited by a session.
package markers

import (
	"github.com/tdmap/mapbuilder/internal/geo"
	"github.com/tdmap/mapbuilder/pkg/core"
)

// Default appearance for a fresh project.
const DefaultRadius = 25

var (
	DefaultFill    = core.RGBA(0, 0, 139, 128)
	DefaultOutline = core.RGBA(0, 0, 200, 255)
)

// Store is an ordered collection of markers sharing one radius and color scheme.
// Order is insertion order; it decides which marker wins an overlapping hit test.
// A Store is not safe for concurrent use.
type Store struct {
	Radius  float64       `json:"radius"`
	Fill    core.Color    `json:"fill_color"`
	Outline core.Color    `json:"outline_color"`
	Markers []core.Marker `json:"entities"`

	dirty bool
}

// New creates an empty store.
func New(radius float64, fill, outline core.Color) *Store {
	return &Store{
		Radius:  radius,
		Fill:    fill,
		Outline: outline,
		Markers: make([]core.Marker, 0),
	}
}

// NewDefault creates an empty store with the default appearance.
func NewDefault() *Store {
	return New(DefaultRadius, DefaultFill, DefaultOutline)
}

// Len returns the number of markers.
func (s *Store) Len() int {
	return len(s.Markers)
}

// Add appends a selected marker at position.
func (s *Store) Add(position core.Vec2) {
	s.Markers = append(s.Markers, core.Marker{Position: position, Selected: true})
	s.dirty = true
}

// Delete removes the marker at index. Out of range indices are ignored.
func (s *Store) Delete(index int) bool {
	if index < 0 || index >= len(s.Markers) {
		return false
	}
	s.Markers = append(s.Markers[:index], s.Markers[index+1:]...)
	s.dirty = true
	return true
}

// DeleteSelected removes every selected marker, keeping the order of the rest.
// It returns the number of markers removed.
func (s *Store) DeleteSelected() int {
	kept := s.Markers[:0]
	for _, m := range s.Markers {
		if !m.Selected {
			kept = append(kept, m)
		}
	}
	removed := len(s.Markers) - len(kept)
	// clear the tail so the backing array holds no stale markers
	clear(s.Markers[len(kept):])
	s.Markers = kept
	if removed > 0 {
		s.dirty = true
	}
	return removed
}

// DeselectAll clears every selection flag and returns how many were set.
func (s *Store) DeselectAll() int {
	n := 0
	for i := range s.Markers {
		if s.Markers[i].Selected {
			s.Markers[i].Selected = false
			n++
		}
	}
	if n > 0 {
		s.dirty = true
	}
	return n
}

// SetSelected sets the selection flag of the marker at index and reports
// whether it changed.
func (s *Store) SetSelected(index int, selected bool) bool {
	if index < 0 || index >= len(s.Markers) || s.Markers[index].Selected == selected {
		return false
	}
	s.Markers[index].Selected = selected
	s.dirty = true
	return true
}

// MoveSelected translates every selected marker by delta and returns how
// many were moved.
func (s *Store) MoveSelected(delta core.Vec2) int {
	n := 0
	for i := range s.Markers {
		if s.Markers[i].Selected {
			s.Markers[i].Position = s.Markers[i].Position.Add(delta)
			n++
		}
	}
	if n > 0 && !delta.IsZero() {
		s.dirty = true
	}
	return n
}

// NumSelected counts the selected markers.
func (s *Store) NumSelected() int {
	n := 0
	for _, m := range s.Markers {
		if m.Selected {
			n++
		}
	}
	return n
}

// Intersect returns the lowest index whose marker circle strictly contains point.
func (s *Store) Intersect(point core.Vec2) (int, bool) {
	for i, m := range s.Markers {
		if geo.InCircle(point, m.Position, s.Radius) {
			return i, true
		}
	}
	return -1, false
}

// IntersectRect returns, per marker, whether its position lies inside r.
func (s *Store) IntersectRect(r geo.Rect) []bool {
	hits := make([]bool, len(s.Markers))
	for i, m := range s.Markers {
		hits[i] = r.Contains(m.Position)
	}
	return hits
}

// Dirty reports whether the store changed since the last ClearDirty.
func (s *Store) Dirty() bool {
	return s.dirty
}

// ClearDirty resets the change flag.
func (s *Store) ClearDirty() {
	s.dirty = false
}

// Clone returns a deep copy.
func (s *Store) Clone() *Store {
	c := *s
	c.Markers = make([]core.Marker, len(s.Markers))
	copy(c.Markers, s.Markers)
	return &c
}
