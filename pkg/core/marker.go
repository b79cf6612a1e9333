// pkg/core/marker.go
package core

// Marker is a single point placed on the map.
// Shapes used for drawing are derived from Position, Selected and the
// owning collection's radius and colors; they are never stored here.
type Marker struct {
	Position Vec2 `json:"position"`
	Selected bool `json:"is_selected"`
}
