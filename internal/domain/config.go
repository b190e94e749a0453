package domain

import "time"

// Config mirrors ~/.pdqa/config.yaml.
type Config struct {
	ConfigFormatVersion string          `yaml:"config_format_version" koanf:"config_format_version" json:"config_format_version"`
	API                 APIConfig       `yaml:"api" koanf:"api" json:"api"`
	Polling             PollingSettings `yaml:"polling" koanf:"polling" json:"polling"`
	Viewer              ViewerSettings  `yaml:"viewer" koanf:"viewer" json:"viewer"`
	History             HistorySettings `yaml:"history" koanf:"history" json:"history"`
	Log                 LogSettings     `yaml:"log" koanf:"log" json:"log"`
}

// APIConfig locates the query backend. It is handed to the query client at
// construction time.
type APIConfig struct {
	BaseURL string `yaml:"base_url" koanf:"base_url" json:"base_url"`
	// Timeout of 0 leaves the transport default in place.
	Timeout time.Duration `yaml:"timeout" koanf:"timeout" json:"timeout"`
}

// PollingSettings controls the status polling loop.
type PollingSettings struct {
	Interval time.Duration `yaml:"interval" koanf:"interval" json:"interval"`
}

// ViewerSettings configures citation links and the local viewer server.
type ViewerSettings struct {
	BaseURL         string  `yaml:"base_url" koanf:"base_url" json:"base_url"`
	PDFStorageURL   string  `yaml:"pdf_storage_url" koanf:"pdf_storage_url" json:"pdf_storage_url"`
	ChunkServiceURL string  `yaml:"chunk_service_url" koanf:"chunk_service_url" json:"chunk_service_url"`
	ListenAddr      string  `yaml:"listen_addr" koanf:"listen_addr" json:"listen_addr"`
	RateLimit       float64 `yaml:"rate_limit" koanf:"rate_limit" json:"rate_limit"`
	RateBurst       int     `yaml:"rate_burst" koanf:"rate_burst" json:"rate_burst"`
}

// HistorySettings configures the local log of asked queries.
type HistorySettings struct {
	Enabled       bool   `yaml:"enabled" koanf:"enabled" json:"enabled"`
	Backend       string `yaml:"backend" koanf:"backend" json:"backend"`
	Path          string `yaml:"path" koanf:"path" json:"path"`
	RedisAddr     string `yaml:"redis_addr" koanf:"redis_addr" json:"redis_addr"`
	RetentionDays int    `yaml:"retention_days" koanf:"retention_days" json:"retention_days"`
}

// LogSettings configures structured logging.
type LogSettings struct {
	Level  string `yaml:"level" koanf:"level" json:"level"`
	Format string `yaml:"format" koanf:"format" json:"format"`
}

// History backends.
const (
	HistoryBackendSQLite = "sqlite"
	HistoryBackendFile   = "file"
	HistoryBackendRedis  = "redis"
)
