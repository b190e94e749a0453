package viewer

import (
	"context"
	"errors"
	"html/template"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/doeshing/pdqa/assets"
	"github.com/doeshing/pdqa/internal/domain"
	"github.com/doeshing/pdqa/internal/infrastructure/metrics"
	"github.com/doeshing/pdqa/internal/pkg/logger"
	"github.com/doeshing/pdqa/internal/ports"
)

const (
	requestIDHeader = "X-Request-Id"
	shutdownTimeout = 5 * time.Second
)

type requestIDKey struct{}

var pageTemplate = template.Must(template.New("viewer").Parse(string(assets.ViewerPageHTML)))

type pageData struct {
	Title    string
	Page     int
	Passage  string
	PDFURL   string
	FrameURL string
}

// Server serves the PDF viewer page that citation links point at.
type Server struct {
	cfg         domain.ViewerSettings
	links       Links
	resolver    ports.CitationResolver
	highlighter ports.Highlighter
	logger      ports.Logger
	limiter     *IPRateLimiter
	server      *http.Server
}

// NewServer wires the viewer. A nil resolver behaves like an unconfigured
// chunk service.
func NewServer(cfg domain.ViewerSettings, resolver ports.CitationResolver, highlighter ports.Highlighter, log ports.Logger) *Server {
	if resolver == nil {
		resolver = NewHTTPResolver("", nil, log)
	}
	if highlighter == nil {
		highlighter = IframeHighlighter{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	s := &Server{
		cfg:         cfg,
		links:       NewLinks(cfg),
		resolver:    resolver,
		highlighter: highlighter,
		logger:      log,
	}
	if cfg.RateLimit > 0 {
		s.limiter = NewIPRateLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.recordStatus)
	r.Use(middleware.Recoverer)
	r.Use(s.rateLimit)

	r.Get("/pdf-viewer", s.handleViewer)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	return r
}

// Run listens on cfg.ListenAddr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("viewer listening", map[string]interface{}{"addr": s.cfg.ListenAddr})
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("viewer shutting down", nil)
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filename := query.Get("file")
	if filename == "" {
		http.Error(w, "missing file parameter", http.StatusBadRequest)
		return
	}
	page := intParam(query.Get("page"), domain.DefaultViewerPage, 1)
	chunk := intParam(query.Get("chunk"), domain.DefaultViewerChunk, 0)

	citation := domain.Citation{
		Filename:    filename,
		Page:        page,
		ChunkIndex:  chunk,
		DisplayName: domain.DisplayName(filename),
	}

	var passage string
	loc, err := s.resolver.Resolve(r.Context(), citation)
	switch {
	case err == nil:
		passage = loc.Text
		if loc.Page > 0 {
			page = loc.Page
		}
	case errors.Is(err, domain.ErrResolverUnavailable):
		s.logger.Debug("chunk resolver unavailable, page-level navigation only", map[string]interface{}{"file": filename})
	default:
		s.logger.Warn("chunk resolution failed", map[string]interface{}{"file": filename, "error": err.Error()})
	}

	doc := s.links.Document(filename)
	frame, err := s.highlighter.LocateAndHighlight(r.Context(), doc, page, passage)
	if err != nil {
		s.logger.Error("highlight failed", err, map[string]interface{}{"file": filename})
		http.Error(w, "document unavailable", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, pageData{
		Title:    citation.DisplayName,
		Page:     page,
		Passage:  passage,
		PDFURL:   doc.URL,
		FrameURL: frame,
	}); err != nil {
		s.logger.Error("render viewer page", err, nil)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !s.limiter.GetLimiter(ip).Allow() {
			s.logger.Warn("rate limit exceeded", map[string]interface{}{"ip": ip})
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// unmatchedRoute labels requests no route matched, keeping the path label
// bounded to the registered patterns.
const unmatchedRoute = "unmatched"

func (s *Server) recordStatus(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HTTPStatusRecorder{ResponseWriter: w, Status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := unmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		metrics.HTTPRequestsTotal.WithLabelValues(path, strconv.Itoa(rec.Status)).Inc()
		s.logger.Debug("viewer request", map[string]interface{}{
			"path":       r.URL.Path,
			"status":     rec.Status,
			"request_id": RequestID(r.Context()),
		})
	})
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// RequestID returns the id assigned to the request carried by ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func intParam(raw string, fallback, lowest int) int {
	v, err := strconv.Atoi(raw)
	if err != nil || v < lowest {
		return fallback
	}
	return v
}
