package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChordFiresOnce(t *testing.T) {
	c := NewChord(KeyCtrl, KeyZ)

	assert.False(t, c.Update(KeySet{KeyCtrl: true}))
	assert.True(t, c.Update(KeySet{KeyCtrl: true, KeyZ: true}))
	assert.False(t, c.Update(KeySet{KeyCtrl: true, KeyZ: true}), "held chord does not repeat")

	assert.False(t, c.Update(KeySet{KeyCtrl: true}))
	assert.True(t, c.Update(KeySet{KeyCtrl: true, KeyZ: true}), "re-armed after release")
}

func TestKeyboardUpdate(t *testing.T) {
	k := NewKeyboard()

	e := k.Update(KeySet{KeyCtrl: true, KeyS: true, KeyShift: true})
	assert.True(t, e.Save)
	assert.False(t, e.Undo)
	assert.False(t, e.Redo)
	assert.True(t, e.Ctrl)
	assert.True(t, e.Shift)
	assert.False(t, e.Esc)

	e = k.Update(KeySet{KeyCtrl: true, KeyS: true})
	assert.False(t, e.Save)

	e = k.Update(KeySet{KeyBackspace: true, KeyEsc: true, KeyY: true})
	assert.True(t, e.Delete)
	assert.True(t, e.Esc)
	assert.False(t, e.Redo, "redo needs ctrl")
}

func TestParseKey(t *testing.T) {
	for k, name := range keyNames {
		got, ok := ParseKey(name)
		assert.True(t, ok)
		assert.Equal(t, k, got)
		assert.Equal(t, name, k.String())
	}

	_, ok := ParseKey("f13")
	assert.False(t, ok)
	assert.Equal(t, "unknown", Key(99).String())
}
