package config

import (
	"fmt"

	"github.com/mnjoroge/rentdash/internal/db"

	"github.com/spf13/viper"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

// ReconcileConfig holds the scheduled consistency-scan settings.
type ReconcileConfig struct {
	Enabled  bool
	Schedule string
}

// Config is the full service configuration.
type Config struct {
	Database        db.Config
	Server          ServerConfig
	Reconcile       ReconcileConfig
	LogLevel        string
	UndoWindowHours int
	MigrationsPath  string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database: db.DefaultConfig(),
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Reconcile: ReconcileConfig{
			Enabled:  true,
			Schedule: "30 * * * *",
		},
		LogLevel:        "info",
		UndoWindowHours: 24,
		MigrationsPath:  "./migrations",
	}
}

// Load reads config.yaml from configPath, with RENTDASH_-prefixed environment
// overrides. A missing file is fine; defaults and env vars apply.
func Load(configPath string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()
	v.SetEnvPrefix("RENTDASH")

	v.BindEnv("database.host")
	v.BindEnv("database.port")
	v.BindEnv("database.user")
	v.BindEnv("database.password")
	v.BindEnv("database.dbname")
	v.BindEnv("database.sslmode")
	v.BindEnv("server.addr")
	v.BindEnv("log.level")
	v.BindEnv("undo.window_hours")
	v.BindEnv("reconcile.enabled")
	v.BindEnv("reconcile.schedule")
	v.BindEnv("migrations.path")

	if err := v.ReadInConfig(); err != nil {
		fmt.Println("No config.yaml found, using defaults and env vars")
	} else {
		fmt.Println("Loaded config.yaml")
	}

	if v.IsSet("database.host") {
		cfg.Database.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.Database.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.Database.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.Database.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.Database.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.Database.SSLMode = v.GetString("database.sslmode")
	}
	if v.IsSet("server.addr") {
		cfg.Server.Addr = v.GetString("server.addr")
	}
	if v.IsSet("server.allowed_origins") {
		cfg.Server.AllowedOrigins = v.GetStringSlice("server.allowed_origins")
	}
	if v.IsSet("log.level") {
		cfg.LogLevel = v.GetString("log.level")
	}
	if v.IsSet("undo.window_hours") {
		cfg.UndoWindowHours = v.GetInt("undo.window_hours")
	}
	if v.IsSet("reconcile.enabled") {
		cfg.Reconcile.Enabled = v.GetBool("reconcile.enabled")
	}
	if v.IsSet("reconcile.schedule") {
		cfg.Reconcile.Schedule = v.GetString("reconcile.schedule")
	}
	if v.IsSet("migrations.path") {
		cfg.MigrationsPath = v.GetString("migrations.path")
	}

	return cfg, nil
}
