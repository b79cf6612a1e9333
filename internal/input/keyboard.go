// internal/input/keyboard.go
package input

import "github.com/tdmap/mapbuilder/pkg/core"

// Key identifies a physical key the editor listens to.
type Key int

const (
	KeyCtrl Key = iota
	KeyShift
	KeyEsc
	KeyBackspace
	KeyS
	KeyZ
	KeyY
)

var keyNames = map[Key]string{
	KeyCtrl:      "ctrl",
	KeyShift:     "shift",
	KeyEsc:       "esc",
	KeyBackspace: "backspace",
	KeyS:         "s",
	KeyZ:         "z",
	KeyY:         "y",
}

func (k Key) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKey resolves a key by name.
func ParseKey(name string) (Key, bool) {
	for k, n := range keyNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}

// KeySource reports whether a key is currently held.
type KeySource interface {
	IsDown(Key) bool
}

// KeySet is a KeySource backed by a set of held keys.
type KeySet map[Key]bool

// IsDown implements KeySource.
func (s KeySet) IsDown(k Key) bool {
	return s[k]
}

// Chord fires for exactly one frame when all of its keys become held together.
type Chord struct {
	keys []Key
	held bool
}

// NewChord creates a chord over keys.
func NewChord(keys ...Key) *Chord {
	return &Chord{keys: keys}
}

// Update polls src and reports whether the chord fired this frame.
// Releasing any key of the chord re-arms it.
func (c *Chord) Update(src KeySource) bool {
	for _, k := range c.keys {
		if !src.IsDown(k) {
			c.held = false
			return false
		}
	}
	fired := !c.held
	c.held = true
	return fired
}

// Keyboard builds KeyboardEvents from a KeySource.
type Keyboard struct {
	save *Chord
	undo *Chord
	redo *Chord
}

// NewKeyboard creates a keyboard with the ctrl+S / ctrl+Z / ctrl+Y chords.
func NewKeyboard() *Keyboard {
	return &Keyboard{
		save: NewChord(KeyCtrl, KeyS),
		undo: NewChord(KeyCtrl, KeyZ),
		redo: NewChord(KeyCtrl, KeyY),
	}
}

// Update polls src once for this frame.
func (k *Keyboard) Update(src KeySource) core.KeyboardEvent {
	return core.KeyboardEvent{
		Save:   k.save.Update(src),
		Undo:   k.undo.Update(src),
		Redo:   k.redo.Update(src),
		Ctrl:   src.IsDown(KeyCtrl),
		Shift:  src.IsDown(KeyShift),
		Esc:    src.IsDown(KeyEsc),
		Delete: src.IsDown(KeyBackspace),
	}
}
