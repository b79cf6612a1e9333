// internal/edit/machine.go
package edit

import (
	"github.com/tdmap/mapbuilder/internal/markers"
	"github.com/tdmap/mapbuilder/pkg/core"
)

// Machine holds the sticky gesture flags that carry across frames.
// massSelect and moving are never both set, and both are clear outside a
// press-drag gesture. deleteLatched stays set from entering delete until the
// key is released, so a held key deletes once.
type Machine struct {
	massSelect         bool
	moving             bool
	pressedWithControl bool
	deleteLatched      bool
}

// NewMachine returns a machine with no gesture in progress.
func NewMachine() *Machine {
	return &Machine{}
}

// MassSelect reports whether the current drag gesture is selecting by rectangle.
func (m *Machine) MassSelect() bool { return m.massSelect }

// Moving reports whether the current drag gesture is moving the selection.
func (m *Machine) Moving() bool { return m.moving }

// AddGesture reports whether a ctrl press is in progress.
func (m *Machine) AddGesture() bool { return m.pressedWithControl }

// Compute decides the mode and intents for one frame. It reads store but
// never modifies it. Rules are tried in order and the first match decides
// the whole frame.
func (m *Machine) Compute(store *markers.Store, kb core.KeyboardEvent, ptr core.PointerEvent, opts *Options) {
	numSelected := store.NumSelected()
	hit, hitOK := store.Intersect(ptr.Position)
	inSelect := opts.Mode.IsSelect()

	opts.resetIntents()

	// the release frame still reports the drag, so flags survive into it
	// and are gone by the next press edge
	if !ptr.MovedWhilePressed {
		m.massSelect = false
		m.moving = false
	}

	// delete lasts only while its key is held
	if !kb.Delete {
		m.deleteLatched = false
		if opts.Mode.Kind == Delete {
			opts.Mode = NewMode(Idle)
		}
	}

	// ctrl on the press edge turns the whole press into an add gesture
	if kb.Ctrl && ptr.PressedThisFrame {
		m.pressedWithControl = true
	}
	if m.pressedWithControl {
		opts.enter(Add)
		if ptr.ReleasedThisFrame {
			opts.AttemptGlobalDeselect = true
			opts.WillSave = true
			m.pressedWithControl = false
		}
		return
	}

	if ptr.PressedThisFrame && hitOK && !store.Markers[hit].Selected {
		opts.Mode = NewMode(SelectClick)
		opts.Mode.anchor = hit
		opts.AttemptGlobalDeselect = true
		opts.WillSave = !inSelect
		return
	}

	if ptr.MovedWhilePressed {
		// decided once per gesture from where the press started, so crossing
		// a marker mid-drag cannot flip it
		if !m.massSelect && !m.moving {
			_, startOK := store.Intersect(ptr.ClickStart)
			if !startOK || numSelected == 0 || kb.Shift {
				m.massSelect = true
			} else {
				m.moving = true
			}
		}

		if m.massSelect {
			opts.enter(SelectDrag)
			opts.WillSave = !inSelect
		} else if opts.enter(Move) {
			opts.WillSave = true
		}
		return
	}

	if ptr.ReleasedThisFrame {
		opts.AttemptGlobalDeselect = true
		if hitOK || numSelected > 0 {
			opts.enter(SelectClick)
			opts.WillSave = !inSelect
		} else {
			opts.enter(Add)
			opts.WillSave = true
		}
		return
	}

	if ptr.Pressed {
		return
	}

	saveChord := kb.Save && opts.HasUnsavedChanges
	switch {
	case kb.Undo:
		// pending changes are committed by the caller before stepping back
		opts.WillUndo = true
		leaveDelete(opts)
	case kb.Redo:
		opts.WillRedo = true
		leaveDelete(opts)
	case kb.Delete:
		entered := false
		if !m.deleteLatched {
			m.deleteLatched = true
			entered = opts.enter(Delete)
		}
		opts.WillSave = (entered && numSelected > 0) || saveChord
	case kb.Esc && numSelected > 0:
		opts.AttemptGlobalDeselect = true
		opts.enter(SelectClick)
		opts.WillSave = !inSelect || saveChord
	default:
		opts.WillSave = saveChord
	}
}

// leaveDelete drops out of delete mode so a restored selection survives the
// frame that restored it.
func leaveDelete(opts *Options) {
	if opts.Mode.Kind == Delete {
		opts.Mode = NewMode(Idle)
	}
}
