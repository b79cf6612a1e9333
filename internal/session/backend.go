package session

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tdmap/mapbuilder/internal/config"
	"github.com/tdmap/mapbuilder/internal/database"
	"github.com/tdmap/mapbuilder/internal/storage"
	gormstorage "github.com/tdmap/mapbuilder/internal/storage/gorm"
	"github.com/tdmap/mapbuilder/internal/storage/memory"
)

// BackendDeps holds what a snapshot backend needs besides its config.
type BackendDeps struct {
	Project   string
	Workspace storage.Workspace
	Author    string
	Logger    zerolog.Logger
}

// NewBackend creates the storage backend selected by cfg.Type. SQL backends
// also return the database manager that owns their connection.
func NewBackend(cfg config.StorageConfig, deps BackendDeps) (storage.Backend, *database.Manager, error) {
	switch cfg.Type {
	case "memory":
		return memory.New(deps.Workspace, deps.Author), nil, nil
	case "sqlite", "postgres":
		db := database.NewManager(deps.Logger)
		if err := db.Connect(cfg); err != nil {
			return nil, nil, err
		}
		if err := db.Setup(deps.Project); err != nil {
			db.Close()
			return nil, nil, err
		}
		return gormstorage.New(gormstorage.Dependencies{
			DB:        db.DB,
			Workspace: deps.Workspace,
			Author:    deps.Author,
			Logger:    deps.Logger,
		}), db, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
