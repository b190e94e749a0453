// Package api is the HTTP adapter for the query backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/doeshing/pdqa/internal/domain"
	"github.com/doeshing/pdqa/internal/infrastructure/metrics"
	"github.com/doeshing/pdqa/internal/pkg/logger"
	"github.com/doeshing/pdqa/internal/ports"
)

const (
	opSubmit = "submit_query"
	opGet    = "get_query"
	opHealth = "health"

	requestIDHeader = "X-Request-Id"
)

// Client talks to the query backend. It owns no session state.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     ports.Logger
}

// NewClient builds a client for cfg.BaseURL. A nil httpClient uses
// NewHTTPClient(cfg).
func NewClient(cfg domain.APIConfig, httpClient *http.Client, log ports.Logger) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient(cfg)
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		logger:     log,
	}
}

// SubmitQuery implements ports.QueryClient.
func (c *Client) SubmitQuery(ctx context.Context, text string) (domain.Query, error) {
	body, err := json.Marshal(domain.SubmitQueryRequest{QueryText: text})
	if err != nil {
		return domain.Query{}, err
	}
	endpoint := c.baseURL + "/submit_query"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.Query{}, &domain.TransportError{Op: opSubmit, URL: endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doQuery(req, opSubmit)
}

// GetQuery implements ports.QueryClient. The identifier is forwarded as-is.
func (c *Client) GetQuery(ctx context.Context, queryID string) (domain.Query, error) {
	endpoint := c.baseURL + "/get_query?" + url.Values{"query_id": {queryID}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Query{}, &domain.TransportError{Op: opGet, URL: endpoint, Err: err}
	}
	return c.doQuery(req, opGet)
}

// CheckHealth implements ports.QueryClient.
func (c *Client) CheckHealth(ctx context.Context) bool {
	endpoint := c.baseURL + "/"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false
	}
	resp, err := c.send(req, opHealth)
	if err != nil {
		c.logger.Debug("health probe failed", map[string]interface{}{"url": endpoint, "error": err.Error()})
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

func (c *Client) doQuery(req *http.Request, op string) (domain.Query, error) {
	endpoint := req.URL.String()

	resp, err := c.send(req, op)
	if err != nil {
		c.logger.Error("backend request failed", err, map[string]interface{}{"op": op, "url": endpoint})
		return domain.Query{}, &domain.TransportError{Op: op, URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		terr := &domain.TransportError{Op: op, URL: endpoint, StatusCode: resp.StatusCode}
		c.logger.Error("backend returned non-success status", terr, map[string]interface{}{
			"op":     op,
			"status": resp.StatusCode,
			"body":   strings.TrimSpace(string(snippet)),
		})
		return domain.Query{}, terr
	}

	var q domain.Query
	if err := json.NewDecoder(resp.Body).Decode(&q); err != nil {
		c.logger.Error("backend response not understood", err, map[string]interface{}{"op": op, "url": endpoint})
		return domain.Query{}, &domain.TransportError{Op: op, URL: endpoint, Err: err}
	}
	if q.Sources == nil {
		q.Sources = []string{}
	}

	c.logger.Debug("backend response", map[string]interface{}{
		"op":          op,
		"query_id":    q.QueryID,
		"is_complete": q.IsComplete,
		"sources":     len(q.Sources),
	})
	return q, nil
}

func (c *Client) send(req *http.Request, op string) (*http.Response, error) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, uuid.NewString())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	status := "error"
	if err == nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	metrics.ObserveBackendRequest(op, status, time.Since(start))
	return resp, err
}

var _ ports.QueryClient = (*Client)(nil)
