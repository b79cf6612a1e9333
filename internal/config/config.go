package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/tdmap/mapbuilder/pkg/core"
)

// FileName is the name of the config file looked up in the config directory.
const FileName = "mapbuilder.cfg.json"

// PostgresConfig holds connection settings for the postgres snapshot store
type PostgresConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// DSN formats the settings as a libpq connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		c.Host, c.Port, c.Username, c.Password, c.Database)
}

// StorageConfig selects and configures the snapshot backend
type StorageConfig struct {
	Type string `json:"type" mapstructure:"type"` // sqlite, postgres or memory
	// SQLiteFile is relative to the project directory unless absolute.
	SQLiteFile string         `json:"sqliteFile" mapstructure:"sqliteFile"`
	Postgres   PostgresConfig `json:"postgres" mapstructure:"postgres"`
}

// HistoryConfig holds version history settings
type HistoryConfig struct {
	BookmarkFile string `json:"bookmarkFile" mapstructure:"bookmarkFile"`
	Author       string `json:"author" mapstructure:"author"`
}

// InfluxConfig holds settings for the optional edit telemetry sink
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`
}

// URL returns the server address.
func (c InfluxConfig) URL() string {
	return fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port)
}

// GraylogConfig holds settings for the optional GELF log sink
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled     bool   `json:"enabled" mapstructure:"enabled"`
	ServiceName string `json:"serviceName" mapstructure:"serviceName"`
}

// MarkerDefaults is the appearance given to a new project's markers
type MarkerDefaults struct {
	Radius  float64
	Fill    core.Color
	Outline core.Color
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// setDefaults registers every default. Load calls it before reading the
// file, so callers that continue after a missing file still see defaults.
func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")
	viper.SetDefault("projectsDir", "./projects")

	viper.SetDefault("markers.radius", 25)
	setColorDefault("markers.fill", core.RGBA(0, 0, 139, 128))
	setColorDefault("markers.outline", core.RGBA(0, 0, 200, 255))

	viper.SetDefault("input.dragThreshold", 0)

	viper.SetDefault("storage.type", "sqlite")
	viper.SetDefault("storage.sqlite.file", "history.db")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "mapbuilder")

	viper.SetDefault("history.bookmarkFile", "bookmark.txt")
	viper.SetDefault("history.author", "mapbuilder")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "mapbuilder")
	viper.SetDefault("influx.bucket", "edits")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "mapbuilder")
}

func setColorDefault(key string, c core.Color) {
	viper.SetDefault(key+".r", c.R)
	viper.SetDefault(key+".g", c.G)
	viper.SetDefault(key+".b", c.B)
	viper.SetDefault(key+".a", c.A)
}

func getColor(key string) core.Color {
	return core.RGBA(
		clampByte(viper.GetInt(key+".r")),
		clampByte(viper.GetInt(key+".g")),
		clampByte(viper.GetInt(key+".b")),
		clampByte(viper.GetInt(key+".a")),
	)
}

func clampByte(v int) uint8 {
	return uint8(min(max(v, 0), 255))
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetFloat returns a float config value.
func GetFloat(key string) float64 {
	return viper.GetFloat64(key)
}

// GetStorageConfig returns the snapshot backend configuration.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type:       viper.GetString("storage.type"),
		SQLiteFile: viper.GetString("storage.sqlite.file"),
		Postgres: PostgresConfig{
			Host:     viper.GetString("db.host"),
			Port:     viper.GetString("db.port"),
			Username: viper.GetString("db.username"),
			Password: viper.GetString("db.password"),
			Database: viper.GetString("db.database"),
		},
	}
}

// GetHistoryConfig returns the version history configuration.
func GetHistoryConfig() HistoryConfig {
	return HistoryConfig{
		BookmarkFile: viper.GetString("history.bookmarkFile"),
		Author:       viper.GetString("history.author"),
	}
}

// GetMarkerDefaults returns the appearance for new projects.
func GetMarkerDefaults() MarkerDefaults {
	return MarkerDefaults{
		Radius:  viper.GetFloat64("markers.radius"),
		Fill:    getColor("markers.fill"),
		Outline: getColor("markers.outline"),
	}
}

// GetInfluxConfig returns the InfluxDB configuration.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Protocol: viper.GetString("influx.protocol"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

// GetGraylogConfig returns the Graylog configuration.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetOTelConfig returns the OpenTelemetry configuration.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:     viper.GetBool("otel.enabled"),
		ServiceName: viper.GetString("otel.serviceName"),
	}
}
