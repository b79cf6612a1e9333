// pkg/core/input.go
package core

// PointerEvent is the normalized state of the primary pointer button for one frame.
type PointerEvent struct {
	Position          Vec2 `json:"position"`
	Pressed           bool `json:"pressed"`
	PressedThisFrame  bool `json:"pressedThisFrame"`
	ReleasedThisFrame bool `json:"releasedThisFrame"`
	// MovedWhilePressed stays true from the first movement of a press until
	// the frame after release.
	MovedWhilePressed bool `json:"movedWhilePressed"`
	ClickStart        Vec2 `json:"clickStart"`
	Delta             Vec2 `json:"delta"`
}

// KeyboardEvent is the normalized keyboard state for one frame.
// Save, Undo and Redo are one-frame chord triggers: true only on the frame
// the full key combination becomes held.
type KeyboardEvent struct {
	Ctrl   bool `json:"ctrl"`
	Shift  bool `json:"shift"`
	Esc    bool `json:"esc"`
	Delete bool `json:"delete"`

	Save bool `json:"save"`
	Undo bool `json:"undo"`
	Redo bool `json:"redo"`
}
