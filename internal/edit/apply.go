// internal/edit/apply.go
package edit

import (
	"github.com/tdmap/mapbuilder/internal/geo"
	"github.com/tdmap/mapbuilder/internal/markers"
	"github.com/tdmap/mapbuilder/pkg/core"
)

// Apply executes the mode chosen by Compute against store and raises
// HasUnsavedChanges when the store changed. It reports whether it did.
func Apply(store *markers.Store, kb core.KeyboardEvent, ptr core.PointerEvent, opts *Options) bool {
	changed := false

	// shift keeps the current selection unless escape overrides it
	if opts.AttemptGlobalDeselect && (!kb.Shift || kb.Esc) {
		changed = store.DeselectAll() > 0
	}

	switch opts.Mode.Kind {
	case Move:
		if ptr.Pressed && !ptr.Delta.IsZero() {
			changed = store.MoveSelected(ptr.Delta) > 0 || changed
		}
	case Add:
		if ptr.ReleasedThisFrame {
			store.Add(ptr.Position)
			changed = true
		}
	case Delete:
		changed = store.DeleteSelected() > 0 || changed
	case SelectClick:
		changed = applySelectClick(store, ptr, &opts.Mode) || changed
	case SelectDrag:
		changed = applySelectDrag(store, ptr, &opts.Mode) || changed
	case Idle:
	}

	if changed {
		opts.HasUnsavedChanges = true
	}
	return changed
}

// applySelectClick selects the marker under the pointer on both edges and
// toggles it back off on release unless this press freshly selected it.
func applySelectClick(store *markers.Store, ptr core.PointerEvent, mode *Mode) bool {
	if store.Len() == 0 {
		return false
	}
	hit, ok := store.Intersect(ptr.Position)
	if !ok {
		return false
	}

	changed := false
	if ptr.PressedThisFrame {
		if store.Markers[hit].Selected {
			mode.anchor = -1
		} else {
			mode.anchor = hit
		}
		changed = store.SetSelected(hit, true)
	}
	if ptr.ReleasedThisFrame {
		wasSelected := store.Markers[hit].Selected
		keep := hit == mode.anchor
		store.SetSelected(hit, keep)
		changed = changed || wasSelected != keep
	}
	return changed
}

// applySelectDrag paints selection with the drag rectangle. A marker follows
// the rectangle only after the rectangle touched it once during the gesture.
func applySelectDrag(store *markers.Store, ptr core.PointerEvent, mode *Mode) bool {
	if store.Len() == 0 || !ptr.MovedWhilePressed {
		return false
	}
	if len(mode.dragMask) != store.Len() {
		mode.dragMask = make([]bool, store.Len())
	}

	changed := false
	hits := store.IntersectRect(geo.RectFromCorners(ptr.ClickStart, ptr.Position))
	for i, inside := range hits {
		if inside {
			mode.dragMask[i] = true
		}
		if mode.dragMask[i] && store.SetSelected(i, inside) {
			changed = true
		}
	}

	if ptr.ReleasedThisFrame {
		mode.dragMask = nil
	}
	return changed
}
