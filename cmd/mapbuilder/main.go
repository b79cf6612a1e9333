package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/tdmap/mapbuilder/internal/config"
	"github.com/tdmap/mapbuilder/internal/influx"
	"github.com/tdmap/mapbuilder/internal/logging"
	mbotel "github.com/tdmap/mapbuilder/internal/otel"
	"github.com/tdmap/mapbuilder/internal/project"
	"github.com/tdmap/mapbuilder/internal/session"
)

const AppName = "mapbuilder"

var (
	SessionStartTime = time.Now()

	LogFile     *os.File
	LogFilePath string

	SlogManager *logging.SlogManager
	Logger      *slog.Logger
	StoreLogger zerolog.Logger

	OTelProvider *mbotel.Provider
)

const usage = `usage: mapbuilder [-config dir] <command> [args]

commands:
  list                          list projects
  new <project> [background]    create a project, copying the background image
  status <project>              show markers and history position
  log <project>                 print the history chain
  undo <project>                step back one snapshot
  redo <project>                step forward one snapshot
  replay <project> <frames>     feed a recorded frame script (JSON lines)
  dump <project> <path>         copy the sqlite history database to path
`

func main() {
	configDir := flag.String("config", ".", "directory containing "+config.FileName)
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	setupLogging(*configDir)
	defer closeLogging()

	if err := run(context.Background(), os.Stdout, strings.ToLower(args[0]), args[1:]); err != nil {
		Logger.Error("Command failed", "command", args[0], "error", err)
		fmt.Fprintln(os.Stderr, "error:", err)
		closeLogging()
		os.Exit(1)
	}
}

// setupLogging loads config and switches logging from stdout to the
// session log file plus any configured sinks.
func setupLogging(configDir string) {
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(nil, "info")
	Logger = SlogManager.Logger()

	if err := config.Load(configDir); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config")
	}
	level := viper.GetString("logLevel")

	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		Logger.Error("Failed to create logs directory", "error", err, "path", logsDir)
	}
	LogFilePath = logging.LogFilePath(logsDir, AppName, SessionStartTime)

	var out io.Writer
	f, err := os.OpenFile(LogFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", LogFilePath)
	} else {
		LogFile = f
		out = f
		SlogManager.AddCloser(f)
	}

	var extra []slog.Handler
	if gl := config.GetGraylogConfig(); gl.Enabled {
		h, closer, err := logging.GraylogHandler(gl.Address, level)
		if err != nil {
			Logger.Warn("Graylog disabled", "error", err)
		} else {
			extra = append(extra, h)
			SlogManager.AddCloser(closer)
		}
	}

	SlogManager.Setup(out, level, extra...)
	Logger = SlogManager.Logger()
	StoreLogger = logging.NewZerolog(LogFileOrStderr(), level, "storage")

	otelCfg := config.GetOTelConfig()
	OTelProvider = mbotel.New(mbotel.Config{
		Enabled:     otelCfg.Enabled,
		ServiceName: otelCfg.ServiceName,
	})
	Logger.Debug("Startup complete", "log", LogFilePath, "otel", OTelProvider.Enabled())
}

func closeLogging() {
	if SlogManager != nil {
		_ = SlogManager.Close()
	}
}

func projectFiles() project.Files {
	return project.Files{
		Bookmark: config.GetHistoryConfig().BookmarkFile,
		Database: config.GetStorageConfig().SQLiteFile,
	}
}

// openSession opens a project session wired to the configured storage,
// telemetry and logging. The returned cleanup closes all of it.
func openSession(ctx context.Context, name string) (*session.Session, func(), error) {
	paths, err := project.Open(viper.GetString("projectsDir"), name, projectFiles())
	if err != nil {
		return nil, nil, err
	}

	var tel *influx.Manager
	if ic := config.GetInfluxConfig(); ic.Enabled {
		tel = influx.NewManager(ic, logging.NewZerolog(LogFileOrStderr(), viper.GetString("logLevel"), "influx"),
			filepath.Join(paths.Dir, "edits.lp.gz"))
		if err := tel.Connect(ctx); err != nil && !errors.Is(err, influx.ErrDisabled) {
			Logger.Warn("Edit telemetry unavailable", "error", err)
			tel = nil
		}
	}

	var sess *session.Session
	log := SlogManager.WithContext(func() []slog.Attr {
		attrs := []slog.Attr{slog.String("project", paths.Name)}
		if sess != nil {
			attrs = append(attrs, slog.Int("position", sess.History().Position()))
		}
		return attrs
	})

	hist := config.GetHistoryConfig()
	sess, err = session.Open(ctx, session.Config{
		Paths:       paths,
		Storage:     config.GetStorageConfig(),
		Author:      hist.Author,
		Markers:     config.GetMarkerDefaults(),
		Logger:      log,
		StoreLogger: StoreLogger,
		Influx:      tel,
	})
	if err != nil {
		if tel != nil {
			tel.Close()
		}
		return nil, nil, err
	}

	cleanup := func() {
		if err := sess.Close(); err != nil {
			Logger.Warn("Failed to close session", "error", err)
		}
		if tel != nil {
			if err := tel.Close(); err != nil {
				Logger.Warn("Failed to close telemetry", "error", err)
			}
		}
	}
	return sess, cleanup, nil
}

// LogFileOrStderr returns the session log file, falling back to stderr.
func LogFileOrStderr() io.Writer {
	if LogFile != nil {
		return LogFile
	}
	return os.Stderr
}
