// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	RepositoryPostgres = "postgres"
	RepositorySQLite   = "sqlite"
	RepositoryInMemory = "inmemory"
)

const DefaultMinNoteChars = 30

const envPrefix = "ROUTINE"

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	SQLite     SQLiteConfig     `yaml:"sqlite"`
	Logging    LoggingConfig    `yaml:"logging"`
	Repository RepositoryConfig `yaml:"repository"`
	Completion CompletionConfig `yaml:"completion"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	Host            string        `yaml:"host"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RateLimitRPM    int           `yaml:"rate_limit_rpm"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

type DatabaseConfig struct {
	URL            string        `yaml:"url"`
	MaxConnections int           `yaml:"max_connections"`
	MinConnections int           `yaml:"min_connections"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Development bool `yaml:"development"`
}

type RepositoryConfig struct {
	Type string `yaml:"type"` // "postgres", "sqlite" или "inmemory"
}

type CompletionConfig struct {
	// значение по умолчанию; строка TASK_COMPLETION_MIN_CHARS в хранилище настроек его перекрывает
	MinNoteChars int `yaml:"min_note_chars"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "",
			Port:            "8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimitRPM:    100,
		},
		Database: DatabaseConfig{
			MaxConnections: 10,
			MinConnections: 2,
			IdleTimeout:    5 * time.Minute,
		},
		SQLite: SQLiteConfig{
			Path: "data/routine.db",
		},
		Repository: RepositoryConfig{
			Type: RepositoryInMemory,
		},
		Completion: CompletionConfig{
			MinNoteChars: DefaultMinNoteChars,
		},
	}
}

// Load читает YAML-файл (если он есть), затем применяет переменные окружения ROUTINE_*.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		file, err := os.Open(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// файл необязателен, хватает значений по умолчанию и окружения
		case err != nil:
			return nil, fmt.Errorf("не могу открыть %s: %w", path, err)
		default:
			defer file.Close()
			if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
				return nil, fmt.Errorf("ошибка парсинга %s: %w", path, err)
			}
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	keys := []string{
		"server.host",
		"server.port",
		"server.rate_limit_rpm",
		"server.shutdown_timeout",
		"database.url",
		"sqlite.path",
		"logging.development",
		"repository.type",
		"completion.min_note_chars",
	}
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("привязка переменной окружения %s: %w", key, err)
		}
	}

	if v.IsSet("server.host") {
		cfg.Server.Host = v.GetString("server.host")
	}
	if v.IsSet("server.port") {
		cfg.Server.Port = v.GetString("server.port")
	}
	if v.IsSet("server.rate_limit_rpm") {
		cfg.Server.RateLimitRPM = v.GetInt("server.rate_limit_rpm")
	}
	if v.IsSet("server.shutdown_timeout") {
		cfg.Server.ShutdownTimeout = v.GetDuration("server.shutdown_timeout")
	}
	if v.IsSet("database.url") {
		cfg.Database.URL = v.GetString("database.url")
	}
	if v.IsSet("sqlite.path") {
		cfg.SQLite.Path = v.GetString("sqlite.path")
	}
	if v.IsSet("logging.development") {
		cfg.Logging.Development = v.GetBool("logging.development")
	}
	if v.IsSet("repository.type") {
		cfg.Repository.Type = v.GetString("repository.type")
	}
	if v.IsSet("completion.min_note_chars") {
		cfg.Completion.MinNoteChars = v.GetInt("completion.min_note_chars")
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Repository.Type {
	case RepositoryInMemory:
	case RepositorySQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("sqlite.path обязателен для repository.type=%s", c.Repository.Type)
		}
	case RepositoryPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("database.url обязателен для repository.type=%s", c.Repository.Type)
		}
	default:
		return fmt.Errorf("неизвестный repository.type %q", c.Repository.Type)
	}

	if c.Completion.MinNoteChars < 0 {
		return fmt.Errorf("completion.min_note_chars не может быть отрицательным")
	}
	if c.Server.Port == "" {
		return fmt.Errorf("server.port обязателен")
	}
	return nil
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}
