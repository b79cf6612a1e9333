package edit

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tdmap/mapbuilder/internal/input"
	"github.com/tdmap/mapbuilder/internal/markers"
	"github.com/tdmap/mapbuilder/pkg/core"
)

var testPositions = []core.Vec2{
	{X: 0, Y: 0},
	{X: 100, Y: 100},
	{X: 200, Y: 100},
	{X: 500, Y: 500},
}

var allKinds = []Kind{Idle, SelectClick, SelectDrag, Move, Add, Delete}

func newTestStore(positions ...core.Vec2) *markers.Store {
	s := markers.NewDefault()
	for _, p := range positions {
		s.Markers = append(s.Markers, core.Marker{Position: p})
	}
	return s
}

func selectAll(s *markers.Store) {
	for i := range s.Markers {
		s.Markers[i].Selected = true
	}
}

func selectedIndices(s *markers.Store) []int {
	out := []int{}
	for i, m := range s.Markers {
		if m.Selected {
			out = append(out, i)
		}
	}
	return out
}

// harness drives Compute and Apply from raw pointer state through the
// input tracker, one frame per call.
type harness struct {
	t       *testing.T
	machine *Machine
	store   *markers.Store
	opts    Options
	pointer *input.Pointer
	kb      core.KeyboardEvent
	pos     core.Vec2
	down    bool
}

func newHarness(t *testing.T, store *markers.Store) *harness {
	return &harness{
		t:       t,
		machine: NewMachine(),
		store:   store,
		opts:    NewOptions(),
		pointer: input.NewPointer(0),
	}
}

// hover places the pointer without running a frame.
func (h *harness) hover(p core.Vec2) {
	h.pos = p
	h.pointer.Update(p, h.down)
}

// frame runs one Compute/Apply cycle and returns the options Compute produced.
func (h *harness) frame() Options {
	h.t.Helper()
	ptr := h.pointer.Update(h.pos, h.down)
	h.machine.Compute(h.store, h.kb, ptr, &h.opts)
	require.LessOrEqual(h.t, h.opts.Intents(), 1, "more than one persistence intent in a frame")
	require.False(h.t, h.machine.MassSelect() && h.machine.Moving())
	out := h.opts
	Apply(h.store, h.kb, ptr, &h.opts)
	return out
}

// gesture performs press, hold, move to target and release, returning the
// options of each frame.
func (h *harness) gesture(target core.Vec2) []Options {
	h.t.Helper()
	var frames []Options

	h.down = true
	frames = append(frames, h.frame())
	frames = append(frames, h.frame())

	h.pos = target
	frames = append(frames, h.frame())

	h.down = false
	frames = append(frames, h.frame())
	return frames
}

func modesOf(frames []Options) []Kind {
	out := make([]Kind, len(frames))
	for i, f := range frames {
		out[i] = f.Mode.Kind
	}
	return out
}
