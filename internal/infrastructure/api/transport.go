package api

import (
	"net/http"
	"time"

	"github.com/doeshing/pdqa/internal/domain"
)

const (
	maxIdleConns        = 20
	maxIdleConnsPerHost = 10
	idleConnTimeout     = 60 * time.Second
)

// NewHTTPClient returns the pooled client shared by the backend adapters.
// No overall timeout is set unless cfg.Timeout is positive.
func NewHTTPClient(cfg domain.APIConfig) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = maxIdleConns
	transport.MaxIdleConnsPerHost = maxIdleConnsPerHost
	transport.IdleConnTimeout = idleConnTimeout

	client := &http.Client{Transport: transport}
	if cfg.Timeout > 0 {
		client.Timeout = cfg.Timeout
	}
	return client
}
