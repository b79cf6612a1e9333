// internal/storage/storage.go
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/tdmap/mapbuilder/internal/util"
)

var (
	// ErrNotFound is returned when a snapshot handle does not resolve.
	ErrNotFound = errors.New("snapshot not found")
	// ErrNoHead is returned by Head when the store holds no snapshots yet.
	ErrNoHead = errors.New("snapshot store is empty")
)

// Handle is the content address of a snapshot.
type Handle string

// NoParent is the parent of a root snapshot.
const NoParent Handle = ""

// Short returns an abbreviated handle for display.
func (h Handle) Short() string {
	if len(h) > 8 {
		return string(h[:8])
	}
	return string(h)
}

// HandleFor derives the handle of a snapshot from its parent and content.
func HandleFor(parent Handle, content []byte) Handle {
	sum := sha256.New()
	sum.Write([]byte(parent))
	sum.Write([]byte{0})
	sum.Write(content)
	return Handle(hex.EncodeToString(sum.Sum(nil)))
}

// Info describes one stored snapshot.
type Info struct {
	Handle    Handle
	Parent    Handle
	Author    string
	Message   string
	CreatedAt time.Time
}

// Backend is the snapshot store behind the version history. It owns one
// working file: Create snapshots it and Reset overwrites it.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Create snapshots the working file as a child of parent and makes it
	// the head. Creating identical content on the same parent again returns
	// the existing handle.
	Create(ctx context.Context, parent Handle, message string) (Handle, error)
	// Reset overwrites the working file with the snapshot's content.
	// It does not move the head.
	Reset(ctx context.Context, h Handle) error
	// Ancestors lists the head and its ancestors, head first.
	// An empty store yields an empty list.
	Ancestors(ctx context.Context) ([]Handle, error)
	Exists(ctx context.Context, h Handle) (bool, error)
	Head(ctx context.Context) (Handle, error)
}

// Inspector is an optional interface for backends that keep snapshot metadata.
type Inspector interface {
	Info(ctx context.Context, h Handle) (Info, error)
}

// Workspace is the working file a backend snapshots and restores.
type Workspace interface {
	Read() ([]byte, error)
	Write(data []byte) error
}

// FileWorkspace is a Workspace backed by a file on disk.
type FileWorkspace struct {
	Path string
}

func (w FileWorkspace) Read() ([]byte, error) {
	data, err := os.ReadFile(w.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read working file: %w", err)
	}
	return data, nil
}

func (w FileWorkspace) Write(data []byte) error {
	return util.WriteFileAtomic(w.Path, data)
}

// WalkAncestors follows parent links from head to the root. parentOf
// reports the parent of a handle and whether the handle exists.
func WalkAncestors(head Handle, parentOf func(Handle) (Handle, bool)) ([]Handle, error) {
	if head == NoParent {
		return []Handle{}, nil
	}

	chain := []Handle{}
	seen := map[Handle]bool{}
	for h := head; h != NoParent; {
		if seen[h] {
			return nil, fmt.Errorf("snapshot %s: parent cycle", h.Short())
		}
		seen[h] = true

		parent, ok := parentOf(h)
		if !ok {
			return nil, fmt.Errorf("snapshot %s: %w", h.Short(), ErrNotFound)
		}
		chain = append(chain, h)
		h = parent
	}
	return chain, nil
}
