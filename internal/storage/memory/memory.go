// internal/storage/memory/memory.go
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tdmap/mapbuilder/internal/storage"
)

// record is one snapshot held in memory
type record struct {
	info    storage.Info
	content []byte
}

// Backend keeps the snapshot log in memory. Nothing survives Close.
type Backend struct {
	workspace storage.Workspace
	author    string

	records map[storage.Handle]*record
	head    storage.Handle

	mu sync.RWMutex
}

// New creates a new memory backend over the given working file
func New(ws storage.Workspace, author string) *Backend {
	return &Backend{
		workspace: ws,
		author:    author,
		records:   make(map[storage.Handle]*record),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// Create snapshots the working file on top of parent
func (b *Backend) Create(_ context.Context, parent storage.Handle, message string) (storage.Handle, error) {
	content, err := b.workspace.Read()
	if err != nil {
		return "", err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if parent != storage.NoParent {
		if _, ok := b.records[parent]; !ok {
			return "", fmt.Errorf("parent %s: %w", parent.Short(), storage.ErrNotFound)
		}
	}

	h := storage.HandleFor(parent, content)
	if _, ok := b.records[h]; !ok {
		b.records[h] = &record{
			info: storage.Info{
				Handle:    h,
				Parent:    parent,
				Author:    b.author,
				Message:   message,
				CreatedAt: time.Now().UTC(),
			},
			content: append([]byte(nil), content...),
		}
	}
	b.head = h
	return h, nil
}

// Reset restores the working file from a snapshot
func (b *Backend) Reset(_ context.Context, h storage.Handle) error {
	b.mu.RLock()
	r, ok := b.records[h]
	b.mu.RUnlock()
	if !ok {
		return fmt.Errorf("snapshot %s: %w", h.Short(), storage.ErrNotFound)
	}
	return b.workspace.Write(r.content)
}

// Ancestors lists head to root
func (b *Backend) Ancestors(_ context.Context) ([]storage.Handle, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return storage.WalkAncestors(b.head, func(h storage.Handle) (storage.Handle, bool) {
		r, ok := b.records[h]
		if !ok {
			return storage.NoParent, false
		}
		return r.info.Parent, true
	})
}

// Exists reports whether h is stored
func (b *Backend) Exists(_ context.Context, h storage.Handle) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, ok := b.records[h]
	return ok, nil
}

// Head returns the latest created snapshot
func (b *Backend) Head(_ context.Context) (storage.Handle, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.head == storage.NoParent {
		return "", storage.ErrNoHead
	}
	return b.head, nil
}

// Info returns snapshot metadata
func (b *Backend) Info(_ context.Context, h storage.Handle) (storage.Info, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	r, ok := b.records[h]
	if !ok {
		return storage.Info{}, fmt.Errorf("snapshot %s: %w", h.Short(), storage.ErrNotFound)
	}
	return r.info, nil
}
