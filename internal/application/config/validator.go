package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/doeshing/pdqa/internal/domain"
)

// Validate ensures config structure is consistent.
func Validate(cfg domain.Config) error {
	if err := validateAPI(cfg.API); err != nil {
		return err
	}
	if cfg.Polling.Interval <= 0 {
		return errors.New("polling.interval must be > 0")
	}
	if err := validateViewer(cfg.Viewer); err != nil {
		return err
	}
	if err := validateHistory(cfg.History); err != nil {
		return err
	}
	return validateLog(cfg.Log)
}

func validateAPI(api domain.APIConfig) error {
	if err := validateURL("api.base_url", api.BaseURL, true); err != nil {
		return err
	}
	if api.Timeout < 0 {
		return errors.New("api.timeout must be >= 0")
	}
	return nil
}

func validateViewer(viewer domain.ViewerSettings) error {
	if err := validateURL("viewer.base_url", viewer.BaseURL, true); err != nil {
		return err
	}
	if err := validateURL("viewer.pdf_storage_url", viewer.PDFStorageURL, true); err != nil {
		return err
	}
	if err := validateURL("viewer.chunk_service_url", viewer.ChunkServiceURL, false); err != nil {
		return err
	}
	if viewer.RateLimit < 0 {
		return errors.New("viewer.rate_limit must be >= 0")
	}
	if viewer.RateLimit > 0 && viewer.RateBurst <= 0 {
		return errors.New("viewer.rate_burst must be > 0 when rate limiting is enabled")
	}
	return nil
}

func validateHistory(history domain.HistorySettings) error {
	if history.RetentionDays < 0 {
		return fmt.Errorf("history.retention_days must be >= 0")
	}
	if !history.Enabled {
		return nil
	}
	switch history.Backend {
	case domain.HistoryBackendSQLite, domain.HistoryBackendFile:
		if history.Path == "" {
			return fmt.Errorf("history.path must be set for the %s backend", history.Backend)
		}
	case domain.HistoryBackendRedis:
		if history.RedisAddr == "" {
			return errors.New("history.redis_addr must be set for the redis backend")
		}
	default:
		return fmt.Errorf("history.backend must be sqlite|file|redis, got %s", history.Backend)
	}
	return nil
}

func validateLog(log domain.LogSettings) error {
	switch strings.ToLower(log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug|info|warn|error, got %s", log.Level)
	}
	switch strings.ToLower(log.Format) {
	case "", "console", "json":
	default:
		return fmt.Errorf("log.format must be console|json, got %s", log.Format)
	}
	return nil
}

func validateURL(key, raw string, required bool) error {
	if raw == "" {
		if required {
			return fmt.Errorf("%s must be set", key)
		}
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s invalid: %w", key, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL, got %s", key, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s has no host", key)
	}
	return nil
}
