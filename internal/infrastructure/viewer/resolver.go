package viewer

import (
	"context"
	"encoding/json"
	"fmt"
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

const opResolve = "pdf_chunks"

// HTTPResolver asks the chunk service where a cited passage sits on its page.
type HTTPResolver struct {
	baseURL    string
	httpClient *http.Client
	logger     ports.Logger
}

// NewHTTPResolver returns a resolver for serviceURL. An empty serviceURL
// yields a resolver that always reports domain.ErrResolverUnavailable.
func NewHTTPResolver(serviceURL string, httpClient *http.Client, log ports.Logger) *HTTPResolver {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &HTTPResolver{
		baseURL:    strings.TrimRight(serviceURL, "/"),
		httpClient: httpClient,
		logger:     log,
	}
}

// Resolve implements ports.CitationResolver.
func (r *HTTPResolver) Resolve(ctx context.Context, c domain.Citation) (domain.ChunkLocation, error) {
	if r.baseURL == "" {
		return domain.ChunkLocation{}, domain.ErrResolverUnavailable
	}

	q := url.Values{}
	q.Set("file", c.Filename)
	q.Set("page", strconv.Itoa(c.Page))
	q.Set("chunk", strconv.Itoa(c.ChunkIndex))
	endpoint := r.baseURL + "/pdf-chunks?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.ChunkLocation{}, &domain.TransportError{Op: opResolve, URL: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, uuid.NewString())

	start := time.Now()
	resp, err := r.httpClient.Do(req)
	if err != nil {
		metrics.ObserveBackendRequest(opResolve, "error", time.Since(start))
		r.logger.Warn("chunk service unreachable", map[string]interface{}{"url": endpoint, "error": err.Error()})
		return domain.ChunkLocation{}, fmt.Errorf("%w: %w", domain.ErrResolverUnavailable, &domain.TransportError{Op: opResolve, URL: endpoint, Err: err})
	}
	defer resp.Body.Close()
	metrics.ObserveBackendRequest(opResolve, strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return domain.ChunkLocation{}, &domain.TransportError{Op: opResolve, URL: endpoint, StatusCode: resp.StatusCode}
	}

	var loc domain.ChunkLocation
	if err := json.NewDecoder(resp.Body).Decode(&loc); err != nil {
		return domain.ChunkLocation{}, &domain.TransportError{Op: opResolve, URL: endpoint, Err: err}
	}
	if loc.Page == 0 {
		loc.Page = c.Page
	}
	return loc, nil
}

var _ ports.CitationResolver = (*HTTPResolver)(nil)
