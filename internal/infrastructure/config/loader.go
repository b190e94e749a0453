package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"

	"github.com/doeshing/pdqa/assets"
	"github.com/doeshing/pdqa/internal/domain"
	"github.com/doeshing/pdqa/internal/pkg/filesystem"
	"github.com/doeshing/pdqa/internal/ports"
)

const (
	// EnvConfigPath overrides the config file location.
	EnvConfigPath = "PDQA_CONFIG"
	// EnvPrefix marks variables that override config keys. A double
	// underscore separates nesting levels: PDQA_API__BASE_URL -> api.base_url.
	EnvPrefix = "PDQA_"

	dotenvFile = ".env"
	keyDelim   = "."
)

// FileLoader loads YAML configuration from ~/.pdqa/config.yaml (overridable
// via PDQA_CONFIG), layered over built-in defaults and under PDQA_*
// environment variables.
type FileLoader struct {
	overridePath string
	dotenvPath   string
	last         *koanf.Koanf
}

// NewFileLoader builds a new loader.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{overridePath: path, dotenvPath: dotenvFile}
}

// Load implements ports.ConfigProvider.
func (l *FileLoader) Load(context.Context) (domain.Config, error) {
	path := l.resolvePath()
	if err := ensureConfigDir(path); err != nil {
		return domain.Config{}, fmt.Errorf("ensure config dir: %w", err)
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := writeDefault(path); err != nil {
			return domain.Config{}, fmt.Errorf("write default config: %w", err)
		}
	}

	if err := godotenv.Load(l.dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return domain.Config{}, fmt.Errorf("load %s: %w", l.dotenvPath, err)
	}

	k := koanf.New(keyDelim)
	setDefaults(k)
	if err := k.Load(file.Provider(path), kyaml.Parser()); err != nil {
		return domain.Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := k.Load(env.Provider(keyDelim, env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: envKey,
	}), nil); err != nil {
		return domain.Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg domain.Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return domain.Config{}, fmt.Errorf("decode config: %w", err)
	}
	l.last = k

	return hydrateDefaults(cfg), nil
}

// Lookup returns the raw value of a dotted key from the most recent Load.
func (l *FileLoader) Lookup(ctx context.Context, key string) (interface{}, bool, error) {
	if l.last == nil {
		if _, err := l.Load(ctx); err != nil {
			return nil, false, err
		}
	}
	if !l.last.Exists(key) {
		return nil, false, nil
	}
	return l.last.Get(key), true, nil
}

// Path returns the resolved config file path.
func (l *FileLoader) Path() string {
	return l.resolvePath()
}

// Save writes the given config back to disk.
func (l *FileLoader) Save(cfg domain.Config) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	path := l.resolvePath()
	if err := ensureConfigDir(path); err != nil {
		return err
	}
	return os.WriteFile(path, raw, domain.SecureFilePermissions)
}

// Reset overwrites the config file with the shipped defaults.
func (l *FileLoader) Reset() (domain.Config, error) {
	path := l.resolvePath()
	if err := ensureConfigDir(path); err != nil {
		return domain.Config{}, err
	}
	if err := writeDefault(path); err != nil {
		return domain.Config{}, err
	}
	return DefaultConfig(), nil
}

// Backup copies the current config file to a timestamped backup.
func (l *FileLoader) Backup() (string, error) {
	path := l.resolvePath()
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	backup := fmt.Sprintf("%s.%s.bak", path, time.Now().Format("20060102T150405"))
	if err := os.WriteFile(backup, data, domain.SecureFilePermissions); err != nil {
		return "", err
	}
	return backup, nil
}

func (l *FileLoader) resolvePath() string {
	if l.overridePath != "" {
		return filesystem.ExpandHome(l.overridePath)
	}
	if custom := os.Getenv(EnvConfigPath); custom != "" {
		return filesystem.ExpandHome(custom)
	}
	return filesystem.AppPath("config.yaml")
}

// envKey maps PDQA_VIEWER__PDF_STORAGE_URL to viewer.pdf_storage_url.
// Variables without a section separator (PDQA_CONFIG, PDQA_DEBUG) are not
// config keys and are skipped.
func envKey(key, value string) (string, any) {
	key = strings.TrimPrefix(key, EnvPrefix)
	if !strings.Contains(key, "__") {
		return "", nil
	}
	return strings.ToLower(strings.ReplaceAll(key, "__", keyDelim)), value
}

func setDefaults(k *koanf.Koanf) {
	defaults := map[string]interface{}{
		"config_format_version": "1",

		"api.base_url": domain.DefaultAPIBaseURL,
		"api.timeout":  "0s",

		"polling.interval": domain.DefaultPollInterval.String(),

		"viewer.base_url":        domain.DefaultViewerBaseURL,
		"viewer.pdf_storage_url": domain.DefaultPDFStorageURL,
		"viewer.listen_addr":     domain.DefaultViewerListenAddr,
		"viewer.rate_limit":      domain.DefaultViewerRateLimit,
		"viewer.rate_burst":      domain.DefaultViewerRateBurst,

		"history.enabled":        true,
		"history.backend":        domain.HistoryBackendSQLite,
		"history.retention_days": domain.DefaultHistoryRetainDays,

		"log.level":  "warn",
		"log.format": "console",
	}
	for key, value := range defaults {
		_ = k.Set(key, value)
	}
}

func ensureConfigDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions)
}

func writeDefault(path string) error {
	return os.WriteFile(path, assets.DefaultConfigYAML, domain.SecureFilePermissions)
}

// DefaultConfig exposes the shipped configuration template.
func DefaultConfig() domain.Config {
	var cfg domain.Config
	if err := yaml.Unmarshal(assets.DefaultConfigYAML, &cfg); err != nil {
		return hydrateDefaults(domain.Config{ConfigFormatVersion: "1"})
	}
	return hydrateDefaults(cfg)
}

func hydrateDefaults(cfg domain.Config) domain.Config {
	if cfg.ConfigFormatVersion == "" {
		cfg.ConfigFormatVersion = "1"
	}
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = domain.DefaultAPIBaseURL
	}
	if cfg.Polling.Interval <= 0 {
		cfg.Polling.Interval = domain.DefaultPollInterval
	}
	if cfg.Viewer.BaseURL == "" {
		cfg.Viewer.BaseURL = domain.DefaultViewerBaseURL
	}
	if cfg.Viewer.PDFStorageURL == "" {
		cfg.Viewer.PDFStorageURL = domain.DefaultPDFStorageURL
	}
	if cfg.Viewer.ListenAddr == "" {
		cfg.Viewer.ListenAddr = domain.DefaultViewerListenAddr
	}
	if cfg.History.Backend == "" {
		cfg.History.Backend = domain.HistoryBackendSQLite
	}
	if cfg.History.Path == "" {
		cfg.History.Path = defaultHistoryPath(cfg.History.Backend)
	}
	cfg.History.Path = filesystem.ExpandHome(cfg.History.Path)
	if cfg.History.RetentionDays < 0 {
		cfg.History.RetentionDays = 0
	}
	return cfg
}

func defaultHistoryPath(backend string) string {
	name := "history.db"
	if backend == domain.HistoryBackendFile {
		name = "history.jsonl"
	}
	return filesystem.AppPath(name)
}

var _ ports.ConfigProvider = (*FileLoader)(nil)
