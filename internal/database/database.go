package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tdmap/mapbuilder/internal/config"
	"github.com/tdmap/mapbuilder/internal/model"
)

// Manager handles the snapshot database connection.
type Manager struct {
	DB     *gorm.DB
	SqlDB  *sql.DB
	Logger zerolog.Logger
}

// NewManager creates a new database manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{Logger: log}
}

// Connect opens the database selected by cfg. SQLiteFile is used as given;
// callers resolve it against the project directory first.
func (m *Manager) Connect(cfg config.StorageConfig) error {
	var err error

	switch cfg.Type {
	case "postgres":
		m.Logger.Debug().Str("host", cfg.Postgres.Host).Str("database", cfg.Postgres.Database).
			Msg("Connecting to Postgres DB")
		m.DB, err = OpenPostgres(cfg.Postgres)
	case "sqlite":
		m.DB, err = OpenSqlite(cfg.SQLiteFile)
		if err == nil {
			if cfg.SQLiteFile == "" {
				m.Logger.Info().Msg("Using SQLite DB in memory")
			} else {
				m.Logger.Info().Str("path", cfg.SQLiteFile).Msg("Using local SQLite DB")
			}
		}
	default:
		return fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
	if err != nil {
		return fmt.Errorf("failed to open %s database: %w", cfg.Type, err)
	}

	// test connection
	m.SqlDB, err = m.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err := m.SqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to validate connection: %w", err)
	}

	if cfg.Type == "sqlite" {
		// one writer; sqlite serializes anyway and an in-memory DB must not
		// be split over several connections
		m.SqlDB.SetMaxOpenConns(1)
	}

	m.Logger.Info().Str("type", cfg.Type).Msg("Connected to database")
	return nil
}

// Setup migrates the schema and records the owning project.
func (m *Manager) Setup(projectName string) error {
	return Setup(m.DB, projectName, m.Logger)
}

// Close closes the underlying connection pool.
func (m *Manager) Close() error {
	if m.SqlDB == nil {
		return nil
	}
	return m.SqlDB.Close()
}

// DumpToDisk copies the database to a standalone sqlite file.
func (m *Manager) DumpToDisk(path string) error {
	start := time.Now()
	if err := DumpSqliteToDisk(m.DB, path); err != nil {
		return err
	}
	m.Logger.Debug().Dur("duration", time.Since(start)).Str("path", path).Msg("Dumped DB to disk")
	return nil
}

// OpenPostgres returns a connection to the Postgres database.
func OpenPostgres(cfg config.PostgresConfig) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
}

// OpenSqlite returns a connection to a SQLite database.
// If path is empty, uses an in-memory database.
func OpenSqlite(path string) (*gorm.DB, error) {
	dsn := path
	if dsn == "" {
		dsn = "file::memory:?cache=shared"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// set PRAGMAS
	pragmas := []string{
		"PRAGMA user_version = 1;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	}
	if path != "" {
		// snapshots are the edit history, so favor durability over speed
		pragmas = append(pragmas,
			"PRAGMA journal_mode = WAL;",
			"PRAGMA synchronous = NORMAL;",
		)
	}

	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %s", err)
		}
	}

	return db, nil
}

// Setup migrates tables and creates the project row if it doesn't exist.
func Setup(db *gorm.DB, projectName string, log zerolog.Logger) error {
	log.Info().Msg("Migrating schema")
	if err := db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	var info model.ProjectInfo
	err := db.Where("name = ?", projectName).First(&info).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := db.Create(&model.ProjectInfo{Name: projectName}).Error; err != nil {
			return fmt.Errorf("failed to create project_info entry: %w", err)
		}
	case err != nil:
		return fmt.Errorf("failed to read project_info: %w", err)
	}

	log.Info().Msg("Database setup complete")
	return nil
}

// DumpSqliteToDisk writes a point-in-time copy of a sqlite database to path
// with VACUUM INTO, replacing any existing file.
func DumpSqliteToDisk(db *gorm.DB, path string) error {
	if path == "" {
		return fmt.Errorf("dump path not set")
	}
	if db.Dialector.Name() != "sqlite" {
		return fmt.Errorf("dump requires a sqlite database, got %s", db.Dialector.Name())
	}

	// remove existing file if it exists
	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("error removing existing DB file: %s", err)
		}
	}

	if err := db.Exec("VACUUM INTO '" + strings.ReplaceAll(path, "'", "''") + "';").Error; err != nil {
		return fmt.Errorf("error dumping DB to disk: %s", err)
	}
	return nil
}
