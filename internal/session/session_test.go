package session

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tdmap/mapbuilder/internal/config"
	"github.com/tdmap/mapbuilder/internal/edit"
	"github.com/tdmap/mapbuilder/internal/input"
	"github.com/tdmap/mapbuilder/internal/markers"
	"github.com/tdmap/mapbuilder/internal/project"
	"github.com/tdmap/mapbuilder/pkg/core"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func testConfig(t *testing.T, storageType string) Config {
	t.Helper()
	paths, err := project.Create(t.TempDir(), "test", "", project.Files{
		Bookmark: "bookmark.txt",
		Database: "history.db",
	})
	require.NoError(t, err)

	return Config{
		Paths:   paths,
		Storage: config.StorageConfig{Type: storageType},
		Author:  "tester",
		Markers: config.MarkerDefaults{
			Radius:  markers.DefaultRadius,
			Fill:    markers.DefaultFill,
			Outline: markers.DefaultOutline,
		},
		Logger:      quiet,
		StoreLogger: zerolog.Nop(),
	}
}

func openSession(t *testing.T, cfg Config) *Session {
	t.Helper()
	s, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// driver feeds raw frames through the input trackers like a window loop.
type driver struct {
	t   *testing.T
	s   *Session
	ptr *input.Pointer
	pos core.Vec2
}

func newDriver(t *testing.T, s *Session) *driver {
	return &driver{t: t, s: s, ptr: input.NewPointer(0)}
}

func (d *driver) frame(down bool, kb core.KeyboardEvent) StepResult {
	return d.s.Step(context.Background(), kb, d.ptr.Update(d.pos, down))
}

func (d *driver) click(p core.Vec2) {
	d.pos = p
	d.frame(true, core.KeyboardEvent{})
	d.frame(false, core.KeyboardEvent{})
}

func (d *driver) key(kb core.KeyboardEvent) StepResult {
	return d.frame(false, kb)
}

func TestOpenCreatesWorkingFileAndRoot(t *testing.T) {
	cfg := testConfig(t, "memory")
	s := openSession(t, cfg)

	assert.Equal(t, 0, s.Store().Len())
	assert.Equal(t, float64(markers.DefaultRadius), s.Store().Radius)
	assert.Equal(t, 1, s.History().Len())
	assert.Nil(t, s.Database())

	loaded, err := markers.Load(cfg.Paths.Markers)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.Len())
}

func TestOpenUnknownStorage(t *testing.T) {
	_, err := Open(context.Background(), testConfig(t, "carrier-pigeon"))
	assert.ErrorContains(t, err, "unknown storage type")
}

func TestClickAddsMarkerAndSaveCommits(t *testing.T) {
	s := openSession(t, testConfig(t, "memory"))
	d := newDriver(t, s)

	d.click(core.Vec2{X: 300, Y: 300})

	require.Equal(t, 1, s.Store().Len())
	assert.True(t, s.Store().Markers[0].Selected)
	assert.Equal(t, edit.Add, s.Options().Mode.Kind)
	assert.True(t, s.Options().HasUnsavedChanges)
	// entering Add commits the state before the marker
	assert.Equal(t, 2, s.History().Len())

	res := d.key(core.KeyboardEvent{Ctrl: true, Save: true})
	assert.True(t, res.Saved)
	assert.NoError(t, res.Err)
	assert.False(t, s.Options().HasUnsavedChanges)
	assert.Equal(t, 3, s.History().Len())

	loaded, err := markers.Load(s.Paths().Markers)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Len())
}

func TestSaveWithoutChangesDoesNothing(t *testing.T) {
	s := openSession(t, testConfig(t, "memory"))
	d := newDriver(t, s)

	res := d.key(core.KeyboardEvent{Ctrl: true, Save: true})
	assert.False(t, res.Saved)
	assert.Equal(t, 1, s.History().Len())
}

func TestUndoRedoReloadsStore(t *testing.T) {
	s := openSession(t, testConfig(t, "memory"))
	d := newDriver(t, s)

	d.click(core.Vec2{X: 300, Y: 300})
	d.key(core.KeyboardEvent{Ctrl: true, Save: true})
	d.key(core.KeyboardEvent{})

	res := d.key(core.KeyboardEvent{Ctrl: true, Undo: true})
	assert.True(t, res.Undone)
	assert.Equal(t, 0, s.Store().Len())
	assert.Equal(t, 1, s.History().Position())
	d.key(core.KeyboardEvent{})

	res = d.key(core.KeyboardEvent{Ctrl: true, Redo: true})
	assert.True(t, res.Redone)
	assert.Equal(t, 1, s.Store().Len())
	assert.Equal(t, 2, s.History().Position())
}

func TestUndoCommitsPendingChangesFirst(t *testing.T) {
	s := openSession(t, testConfig(t, "memory"))
	d := newDriver(t, s)

	d.click(core.Vec2{X: 300, Y: 300})
	require.True(t, s.Options().HasUnsavedChanges)

	res := d.key(core.KeyboardEvent{Ctrl: true, Undo: true})
	assert.True(t, res.Saved)
	assert.True(t, res.Undone)
	assert.Equal(t, 0, s.Store().Len())
	assert.False(t, s.Options().HasUnsavedChanges)
	d.key(core.KeyboardEvent{})

	res = d.key(core.KeyboardEvent{Ctrl: true, Redo: true})
	assert.True(t, res.Redone)
	assert.Equal(t, 1, s.Store().Len(), "the pending edit is redoable")
}

func TestUndoAtRootIsNoop(t *testing.T) {
	s := openSession(t, testConfig(t, "memory"))
	d := newDriver(t, s)

	res := d.key(core.KeyboardEvent{Ctrl: true, Undo: true})
	assert.False(t, res.Undone)
	assert.NoError(t, res.Err)
	assert.Equal(t, 0, s.History().Position())
}

func TestDeleteSavesThenRemoves(t *testing.T) {
	s := openSession(t, testConfig(t, "memory"))
	d := newDriver(t, s)

	d.click(core.Vec2{X: 300, Y: 300})
	require.Equal(t, 1, s.Store().NumSelected())
	before := s.History().Len()

	res := d.key(core.KeyboardEvent{Delete: true})
	assert.True(t, res.Saved)
	assert.True(t, res.Changed)
	assert.Equal(t, edit.Delete, res.Mode)
	assert.Equal(t, 0, s.Store().Len())
	assert.Equal(t, before+1, s.History().Len())

	res = d.key(core.KeyboardEvent{})
	assert.Equal(t, edit.Idle, res.Mode)
	assert.False(t, res.Changed)
}

func TestUndoWithDeleteHeldKeepsRestoredMarkers(t *testing.T) {
	s := openSession(t, testConfig(t, "memory"))
	d := newDriver(t, s)

	d.click(core.Vec2{X: 300, Y: 300})
	d.key(core.KeyboardEvent{Ctrl: true, Save: true})
	d.key(core.KeyboardEvent{})

	held := core.KeyboardEvent{Delete: true}
	res := d.key(held)
	require.Equal(t, edit.Delete, res.Mode)
	require.Equal(t, 0, s.Store().Len())
	deletedAt := s.History().Position()

	res = d.key(core.KeyboardEvent{Delete: true, Ctrl: true, Undo: true})
	assert.True(t, res.Undone)
	assert.NoError(t, res.Err)
	assert.Equal(t, edit.Idle, res.Mode)
	assert.Equal(t, 1, s.Store().Len())
	assert.Equal(t, deletedAt, s.History().Position())
	assert.False(t, s.Options().HasUnsavedChanges)

	res = d.key(held)
	assert.False(t, res.Changed)
	assert.Equal(t, 1, s.Store().Len())
}

func TestSqliteHistorySurvivesReopen(t *testing.T) {
	cfg := testConfig(t, "sqlite")

	s, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, s.Database())
	d := newDriver(t, s)

	d.click(core.Vec2{X: 300, Y: 300})
	d.key(core.KeyboardEvent{Ctrl: true, Save: true})
	d.key(core.KeyboardEvent{})
	d.key(core.KeyboardEvent{Ctrl: true, Undo: true})
	chain := s.History().Chain()
	require.NoError(t, s.Close())

	reopened := openSession(t, cfg)
	assert.Equal(t, chain, reopened.History().Chain())
	assert.Equal(t, 1, reopened.History().Position())
	assert.Equal(t, 0, reopened.Store().Len())
	assert.True(t, reopened.History().CanRedo())
}

func TestOpenRestoresMissingWorkingFile(t *testing.T) {
	cfg := testConfig(t, "sqlite")

	s, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	d := newDriver(t, s)
	d.click(core.Vec2{X: 300, Y: 300})
	d.key(core.KeyboardEvent{Ctrl: true, Save: true})
	position := s.History().Position()
	require.NoError(t, s.Close())

	require.NoError(t, os.Remove(cfg.Paths.Markers))

	reopened := openSession(t, cfg)
	assert.Equal(t, position, reopened.History().Position())
	assert.Equal(t, 1, reopened.Store().Len())
	assert.False(t, reopened.Options().HasUnsavedChanges)

	loaded, err := markers.Load(cfg.Paths.Markers)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Len())
}
