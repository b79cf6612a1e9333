// Package gormstorage implements the storage.Backend interface on GORM.
// Snapshots are content-addressed rows and the HEAD ref row tracks the tip.
package gormstorage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tdmap/mapbuilder/internal/model"
	"github.com/tdmap/mapbuilder/internal/storage"
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB        *gorm.DB
	Workspace storage.Workspace
	Author    string
	Logger    zerolog.Logger
}

// Backend implements storage.Backend using GORM.
type Backend struct {
	deps Dependencies
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	return &Backend{
		deps: deps,
	}
}

// Init makes sure the history tables exist.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("database not connected")
	}
	if err := b.deps.DB.AutoMigrate(&model.Snapshot{}, &model.Ref{}); err != nil {
		return fmt.Errorf("failed to migrate history tables: %w", err)
	}
	return nil
}

// Close is a no-op; the connection belongs to the database manager.
func (b *Backend) Close() error {
	return nil
}

// Create snapshots the working file on top of parent and moves HEAD to it.
func (b *Backend) Create(ctx context.Context, parent storage.Handle, message string) (storage.Handle, error) {
	content, err := b.deps.Workspace.Read()
	if err != nil {
		return "", err
	}
	h := storage.HandleFor(parent, content)
	now := time.Now().UTC()

	err = b.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var parentID *string
		if parent != storage.NoParent {
			ok, err := exists(tx, parent)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("parent %s: %w", parent.Short(), storage.ErrNotFound)
			}
			p := string(parent)
			parentID = &p
		}

		snap := model.Snapshot{
			ID:        string(h),
			ParentID:  parentID,
			Content:   datatypes.JSON(content),
			Author:    b.deps.Author,
			Message:   message,
			CreatedAt: now,
		}
		// identical content on the same parent is already stored
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&snap).Error; err != nil {
			return fmt.Errorf("failed to insert snapshot: %w", err)
		}

		ref := model.Ref{Name: model.HeadRef, SnapshotID: string(h), UpdatedAt: now}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"snapshot_id", "updated_at"}),
		}).Create(&ref).Error; err != nil {
			return fmt.Errorf("failed to move head: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	b.deps.Logger.Debug().Str("snapshot", h.Short()).Str("parent", parent.Short()).Msg("Created snapshot")
	return h, nil
}

// Reset restores the working file from a snapshot.
func (b *Backend) Reset(ctx context.Context, h storage.Handle) error {
	var snap model.Snapshot
	err := b.deps.DB.WithContext(ctx).Where("id = ?", string(h)).First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("snapshot %s: %w", h.Short(), storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	if err := b.deps.Workspace.Write(snap.Content); err != nil {
		return err
	}
	b.deps.Logger.Debug().Str("snapshot", h.Short()).Msg("Restored working file")
	return nil
}

// link is the parent edge of one snapshot row
type link struct {
	ID       string
	ParentID *string
}

// Ancestors walks parent links from HEAD to the root.
func (b *Backend) Ancestors(ctx context.Context) ([]storage.Handle, error) {
	db := b.deps.DB.WithContext(ctx)

	head, err := b.head(db)
	if errors.Is(err, storage.ErrNoHead) {
		return []storage.Handle{}, nil
	}
	if err != nil {
		return nil, err
	}

	var links []link
	if err := db.Model(&model.Snapshot{}).Select("id", "parent_id").Find(&links).Error; err != nil {
		return nil, fmt.Errorf("failed to read snapshot links: %w", err)
	}
	parents := make(map[storage.Handle]storage.Handle, len(links))
	for _, l := range links {
		parent := storage.NoParent
		if l.ParentID != nil {
			parent = storage.Handle(*l.ParentID)
		}
		parents[storage.Handle(l.ID)] = parent
	}

	return storage.WalkAncestors(head, func(h storage.Handle) (storage.Handle, bool) {
		p, ok := parents[h]
		return p, ok
	})
}

// Exists reports whether h is stored.
func (b *Backend) Exists(ctx context.Context, h storage.Handle) (bool, error) {
	return exists(b.deps.DB.WithContext(ctx), h)
}

// Head returns the snapshot the HEAD ref points at.
func (b *Backend) Head(ctx context.Context) (storage.Handle, error) {
	return b.head(b.deps.DB.WithContext(ctx))
}

// Info returns snapshot metadata.
func (b *Backend) Info(ctx context.Context, h storage.Handle) (storage.Info, error) {
	var snap model.Snapshot
	err := b.deps.DB.WithContext(ctx).
		Select("id", "parent_id", "author", "message", "created_at").
		Where("id = ?", string(h)).First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.Info{}, fmt.Errorf("snapshot %s: %w", h.Short(), storage.ErrNotFound)
	}
	if err != nil {
		return storage.Info{}, fmt.Errorf("failed to read snapshot: %w", err)
	}

	info := storage.Info{
		Handle:    storage.Handle(snap.ID),
		Author:    snap.Author,
		Message:   snap.Message,
		CreatedAt: snap.CreatedAt,
	}
	if snap.ParentID != nil {
		info.Parent = storage.Handle(*snap.ParentID)
	}
	return info, nil
}

func (b *Backend) head(db *gorm.DB) (storage.Handle, error) {
	var ref model.Ref
	err := db.Where("name = ?", model.HeadRef).First(&ref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", storage.ErrNoHead
	}
	if err != nil {
		return "", fmt.Errorf("failed to read head: %w", err)
	}
	return storage.Handle(ref.SnapshotID), nil
}

func exists(db *gorm.DB, h storage.Handle) (bool, error) {
	var count int64
	if err := db.Model(&model.Snapshot{}).Where("id = ?", string(h)).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to look up snapshot: %w", err)
	}
	return count > 0, nil
}
