// Package history keeps the linear undo/redo chain over a snapshot backend.
//
// The chain is the ancestry of the backend's head, root first. Position
// points at the snapshot matching the working file; commits truncate
// everything after it before appending.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	mbotel "github.com/tdmap/mapbuilder/internal/otel"
	"github.com/tdmap/mapbuilder/internal/storage"
)

// ErrBookmarkNotInChain is returned by Open when the bookmark names a stored
// snapshot that is not an ancestor of head.
var ErrBookmarkNotInChain = errors.New("bookmark is not an ancestor of head")

// Snapshot messages
const (
	RootMessage   = "Initial commit"
	CommitMessage = "Update entities"
)

// Options configures a Manager.
type Options struct {
	// Workspace receives the serialized state on Commit.
	Workspace storage.Workspace
	// BookmarkPath is where the current position is persisted. Empty disables it.
	BookmarkPath string
	Logger       *slog.Logger
}

// Manager tracks the chain and the current position in it.
type Manager struct {
	backend  storage.Backend
	ws       storage.Workspace
	bookmark string
	log      *slog.Logger

	chain    []storage.Handle
	position int

	commits  metric.Int64Counter
	undos    metric.Int64Counter
	redos    metric.Int64Counter
	failures metric.Int64Counter
}

// Open loads the chain from the backend and reconciles it with the bookmark.
// An empty backend gets a root snapshot of the current working file.
func Open(ctx context.Context, backend storage.Backend, opts Options) (*Manager, error) {
	if opts.Workspace == nil {
		return nil, fmt.Errorf("history needs a workspace")
	}
	m := &Manager{
		backend:  backend,
		ws:       opts.Workspace,
		bookmark: opts.BookmarkPath,
		log:      opts.Logger,
	}
	if m.log == nil {
		m.log = slog.Default()
	}
	if err := m.initMetrics(); err != nil {
		return nil, err
	}

	ancestors, err := backend.Ancestors(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	if len(ancestors) == 0 {
		root, err := backend.Create(ctx, storage.NoParent, RootMessage)
		if err != nil {
			return nil, fmt.Errorf("failed to create root snapshot: %w", err)
		}
		m.log.Info("Created root snapshot", "snapshot", root.Short())
		ancestors = []storage.Handle{root}
	}

	m.chain = slices.Clone(ancestors)
	slices.Reverse(m.chain)
	m.position = len(m.chain) - 1

	h, ok, err := ReadBookmark(m.bookmark)
	if err != nil {
		return nil, err
	}
	if !ok {
		return m, nil
	}

	if i := slices.Index(m.chain, h); i >= 0 {
		m.position = i
		return m, nil
	}

	found, err := backend.Exists(ctx, h)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve bookmark: %w", err)
	}
	if found {
		return nil, fmt.Errorf("snapshot %s: %w", h.Short(), ErrBookmarkNotInChain)
	}
	m.log.Warn("Bookmark does not resolve, using head", "bookmark", h.Short())
	return m, nil
}

func (m *Manager) initMetrics() error {
	meter := mbotel.Meter("history")

	var err error
	if m.commits, err = meter.Int64Counter("history.commits",
		metric.WithDescription("Snapshots committed")); err != nil {
		return fmt.Errorf("creating commits counter: %w", err)
	}
	if m.undos, err = meter.Int64Counter("history.undos",
		metric.WithDescription("Successful undo steps")); err != nil {
		return fmt.Errorf("creating undos counter: %w", err)
	}
	if m.redos, err = meter.Int64Counter("history.redos",
		metric.WithDescription("Successful redo steps")); err != nil {
		return fmt.Errorf("creating redos counter: %w", err)
	}
	if m.failures, err = meter.Int64Counter("history.failures",
		metric.WithDescription("Failed history operations")); err != nil {
		return fmt.Errorf("creating failures counter: %w", err)
	}
	return nil
}

// Commit writes state to the working file and snapshots it as the child of
// the current position. On failure the chain and position are unchanged but
// the working file may already hold state.
func (m *Manager) Commit(ctx context.Context, state []byte) (storage.Handle, error) {
	if err := m.ws.Write(state); err != nil {
		m.fail(ctx, "commit")
		return "", err
	}

	parent := m.chain[m.position]
	h, err := m.backend.Create(ctx, parent, CommitMessage)
	if err != nil {
		m.fail(ctx, "commit")
		return "", fmt.Errorf("failed to commit: %w", err)
	}

	if dropped := len(m.chain) - m.position - 1; dropped > 0 {
		m.log.Debug("Discarding redo branch", "snapshots", dropped)
	}
	m.chain = append(m.chain[:m.position+1:m.position+1], h)
	m.position = len(m.chain) - 1
	m.commits.Add(ctx, 1)
	m.saveBookmark()

	m.log.Debug("Committed snapshot", "snapshot", h.Short(), "position", m.position)
	return h, nil
}

// Undo restores the previous snapshot. It returns false without error at
// the root.
func (m *Manager) Undo(ctx context.Context) (bool, error) {
	if m.position == 0 {
		return false, nil
	}
	if err := m.restore(ctx, m.position-1, "undo"); err != nil {
		return false, err
	}
	m.undos.Add(ctx, 1)
	return true, nil
}

// Redo restores the next snapshot. It returns false without error at the
// end of the chain.
func (m *Manager) Redo(ctx context.Context) (bool, error) {
	if m.position >= len(m.chain)-1 {
		return false, nil
	}
	if err := m.restore(ctx, m.position+1, "redo"); err != nil {
		return false, err
	}
	m.redos.Add(ctx, 1)
	return true, nil
}

func (m *Manager) restore(ctx context.Context, i int, op string) error {
	h := m.chain[i]
	if err := m.backend.Reset(ctx, h); err != nil {
		m.fail(ctx, op)
		return fmt.Errorf("failed to %s to %s: %w", op, h.Short(), err)
	}
	m.position = i
	m.saveBookmark()
	m.log.Debug("Restored snapshot", "op", op, "snapshot", h.Short(), "position", i)
	return nil
}

func (m *Manager) fail(ctx context.Context, op string) {
	m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

// saveBookmark persists the current position. A failure only costs the
// position on the next start, so it is logged and not returned.
func (m *Manager) saveBookmark() {
	if m.bookmark == "" {
		return
	}
	if err := WriteBookmark(m.bookmark, m.Current()); err != nil {
		m.log.Warn("Failed to save bookmark", "error", err)
	}
}

// Chain returns a copy of the chain, root first.
func (m *Manager) Chain() []storage.Handle {
	return slices.Clone(m.chain)
}

// Len returns the number of snapshots in the chain.
func (m *Manager) Len() int {
	return len(m.chain)
}

func (m *Manager) Position() int {
	return m.position
}

// Current returns the snapshot matching the working file.
func (m *Manager) Current() storage.Handle {
	return m.chain[m.position]
}

// Head returns the last snapshot of the chain.
func (m *Manager) Head() storage.Handle {
	return m.chain[len(m.chain)-1]
}

func (m *Manager) CanUndo() bool {
	return m.position > 0
}

func (m *Manager) CanRedo() bool {
	return m.position < len(m.chain)-1
}
