// Package session runs the per-frame edit loop for one open project:
// Compute, then any persistence the frame asked for, then Apply.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/tdmap/mapbuilder/internal/config"
	"github.com/tdmap/mapbuilder/internal/database"
	"github.com/tdmap/mapbuilder/internal/edit"
	"github.com/tdmap/mapbuilder/internal/history"
	"github.com/tdmap/mapbuilder/internal/influx"
	"github.com/tdmap/mapbuilder/internal/markers"
	mbotel "github.com/tdmap/mapbuilder/internal/otel"
	"github.com/tdmap/mapbuilder/internal/project"
	"github.com/tdmap/mapbuilder/internal/storage"
	"github.com/tdmap/mapbuilder/internal/util"
	"github.com/tdmap/mapbuilder/pkg/core"
)

// Config holds everything needed to open a session.
type Config struct {
	Paths   project.Paths
	Storage config.StorageConfig
	Author  string
	Markers config.MarkerDefaults

	// Logger receives session and history logs; StoreLogger the storage layer's.
	Logger      *slog.Logger
	StoreLogger zerolog.Logger

	// Influx is optional.
	Influx *influx.Manager
}

// StepResult reports what a frame did.
type StepResult struct {
	Mode    edit.Kind
	Saved   bool
	Undone  bool
	Redone  bool
	Changed bool
	// Err is the persistence failure of this frame, if any. It has already
	// been logged.
	Err error
}

// Session owns the marker store, the edit machine and the history of one project.
type Session struct {
	paths   project.Paths
	store   *markers.Store
	machine *edit.Machine
	opts    edit.Options
	history *history.Manager
	backend storage.Backend
	db      *database.Manager
	influx  *influx.Manager
	log     *slog.Logger

	frames metric.Int64Counter
}

// Open loads the working file, creating it from the marker defaults when
// missing, and reconciles the history.
func Open(ctx context.Context, cfg Config) (*Session, error) {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	s := &Session{
		paths:   cfg.Paths,
		machine: edit.NewMachine(),
		opts:    edit.NewOptions(),
		influx:  cfg.Influx,
		log:     log,
	}

	var err error
	if s.frames, err = mbotel.Meter("session").Int64Counter("session.frames",
		metric.WithDescription("Frames stepped")); err != nil {
		return nil, fmt.Errorf("creating frames counter: %w", err)
	}

	created := !util.FileExists(cfg.Paths.Markers)
	if !created {
		s.store, err = markers.Load(cfg.Paths.Markers)
		if err != nil {
			return nil, err
		}
	} else {
		s.store = markers.New(cfg.Markers.Radius, cfg.Markers.Fill, cfg.Markers.Outline)
		if err := s.store.Save(cfg.Paths.Markers); err != nil {
			return nil, err
		}
		log.Info("Created markers file", "path", cfg.Paths.Markers)
	}
	s.store.ClearDirty()

	storageCfg := cfg.Storage
	if storageCfg.Type == "sqlite" {
		storageCfg.SQLiteFile = cfg.Paths.Database
	}
	ws := storage.FileWorkspace{Path: cfg.Paths.Markers}
	s.backend, s.db, err = NewBackend(storageCfg, BackendDeps{
		Project:   cfg.Paths.Name,
		Workspace: ws,
		Author:    cfg.Author,
		Logger:    cfg.StoreLogger,
	})
	if err != nil {
		return nil, err
	}
	if err := s.backend.Init(); err != nil {
		s.Close()
		return nil, err
	}

	s.history, err = history.Open(ctx, s.backend, history.Options{
		Workspace:    ws,
		BookmarkPath: cfg.Paths.Bookmark,
		Logger:       log,
	})
	if err != nil {
		s.Close()
		return nil, err
	}

	// a recreated working file must match the snapshot at the bookmark
	if created && s.history.Len() > 1 {
		if err := s.restoreWorkingFile(ctx); err != nil {
			s.Close()
			return nil, err
		}
		log.Info("Restored markers file from history", "snapshot", s.history.Current().Short())
	}

	log.Info("Opened project",
		"project", cfg.Paths.Name,
		"markers", s.store.Len(),
		"position", s.history.Position(),
		"snapshots", s.history.Len())
	return s, nil
}

func (s *Session) restoreWorkingFile(ctx context.Context) error {
	if err := s.backend.Reset(ctx, s.history.Current()); err != nil {
		return fmt.Errorf("failed to restore markers file: %w", err)
	}
	store, err := markers.Load(s.paths.Markers)
	if err != nil {
		return err
	}
	store.ClearDirty()
	s.store = store
	return nil
}

// Step runs one frame.
func (s *Session) Step(ctx context.Context, kb core.KeyboardEvent, ptr core.PointerEvent) StepResult {
	var res StepResult

	s.machine.Compute(s.store, kb, ptr, &s.opts)

	switch {
	case s.opts.WillSave:
		res.Saved = s.save(ctx, &res)
	case s.opts.WillUndo:
		// commit pending edits first so they stay redoable
		if s.opts.HasUnsavedChanges && !s.save(ctx, &res) {
			break
		}
		res.Undone = s.restore(ctx, "undo", s.history.Undo, &res)
	case s.opts.WillRedo:
		res.Redone = s.restore(ctx, "redo", s.history.Redo, &res)
	}

	res.Changed = edit.Apply(s.store, kb, ptr, &s.opts)
	res.Mode = s.opts.Mode.Kind
	s.frames.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", res.Mode.String())))
	return res
}

func (s *Session) save(ctx context.Context, res *StepResult) bool {
	state, err := s.store.Encode()
	if err == nil {
		_, err = s.history.Commit(ctx, state)
	}
	if err != nil {
		s.log.Warn("Save failed", "error", err)
		res.Err = err
		return false
	}

	s.opts.HasUnsavedChanges = false
	s.store.ClearDirty()
	s.record("commit")
	return true
}

func (s *Session) restore(ctx context.Context, op string, step func(context.Context) (bool, error), res *StepResult) bool {
	ok, err := step(ctx)
	if err != nil {
		s.log.Warn("History step failed", "op", op, "error", err)
		res.Err = err
		return false
	}
	if !ok {
		s.log.Debug("Nothing to " + op)
		return false
	}

	store, err := markers.Load(s.paths.Markers)
	if err != nil {
		s.log.Error("Failed to reload markers", "op", op, "error", err)
		res.Err = err
		return false
	}
	s.store = store
	s.opts.HasUnsavedChanges = false
	s.record(op)
	return true
}

// record sends one edit point to influx when configured.
func (s *Session) record(op string) {
	if s.influx == nil {
		return
	}
	p := influx.EditPoint(influx.EditStats{
		Project:     s.paths.Name,
		Operation:   op,
		Markers:     s.store.Len(),
		Selected:    s.store.NumSelected(),
		Position:    s.history.Position(),
		ChainLength: s.history.Len(),
	}, time.Now())
	if err := s.influx.WritePoint(p); err != nil {
		s.log.Debug("Failed to record edit", "error", err)
	}
}

// Store returns the current marker store. It is replaced after undo and redo.
func (s *Session) Store() *markers.Store {
	return s.store
}

// Options returns the edit state after the last frame.
func (s *Session) Options() edit.Options {
	return s.opts
}

func (s *Session) History() *history.Manager {
	return s.history
}

func (s *Session) Paths() project.Paths {
	return s.paths
}

// Backend exposes the snapshot store, e.g. for metadata lookups.
func (s *Session) Backend() storage.Backend {
	return s.backend
}

// Database returns the SQL connection manager, or nil for the memory backend.
func (s *Session) Database() *database.Manager {
	return s.db
}

// Close releases the backend and database connection.
func (s *Session) Close() error {
	var errs []error
	if s.backend != nil {
		errs = append(errs, s.backend.Close())
	}
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	return errors.Join(errs...)
}
