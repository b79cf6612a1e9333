// Package edit turns per-frame input into an editing mode and applies that
// mode to a marker store.
package edit

// Kind identifies the active editing mode.
type Kind int

const (
	Idle Kind = iota
	SelectClick
	SelectDrag
	Move
	Add
	Delete
)

func (k Kind) String() string {
	switch k {
	case Idle:
		return "idle"
	case SelectClick:
		return "select-click"
	case SelectDrag:
		return "select-drag"
	case Move:
		return "move"
	case Add:
		return "add"
	case Delete:
		return "delete"
	default:
		return "unknown"
	}
}

// Mode is the active editing mode plus the gesture state owned by the
// select modes. The zero value is Idle.
type Mode struct {
	Kind Kind

	// anchor is the marker a SelectClick press freshly selected, or -1.
	anchor int
	// dragMask records which markers a SelectDrag gesture has touched.
	dragMask []bool
}

// NewMode returns a freshly entered mode of kind k.
func NewMode(k Kind) Mode {
	return Mode{Kind: k, anchor: -1}
}

// IsSelect reports whether m is one of the select modes.
func (m Mode) IsSelect() bool {
	return m.Kind == SelectClick || m.Kind == SelectDrag
}

// Anchor returns the pending SelectClick anchor, or -1.
func (m Mode) Anchor() int {
	if m.Kind != SelectClick {
		return -1
	}
	return m.anchor
}

func (m Mode) String() string {
	return m.Kind.String()
}

// Options is the per-frame outcome of Compute plus the sticky unsaved flag.
type Options struct {
	Mode Mode

	// HasUnsavedChanges stays set until a save, undo or redo succeeds.
	HasUnsavedChanges bool

	WillSave              bool
	WillUndo              bool
	WillRedo              bool
	AttemptGlobalDeselect bool
}

// NewOptions returns options in Idle mode.
func NewOptions() Options {
	return Options{Mode: NewMode(Idle)}
}

// Intents counts the persistence intents raised this frame.
func (o *Options) Intents() int {
	n := 0
	for _, v := range []bool{o.WillSave, o.WillUndo, o.WillRedo} {
		if v {
			n++
		}
	}
	return n
}

func (o *Options) resetIntents() {
	o.WillSave = false
	o.WillUndo = false
	o.WillRedo = false
	o.AttemptGlobalDeselect = false
}

// enter switches to a fresh mode of kind k unless it is already active.
// It reports whether the mode changed.
func (o *Options) enter(k Kind) bool {
	if o.Mode.Kind == k {
		return false
	}
	o.Mode = NewMode(k)
	return true
}
