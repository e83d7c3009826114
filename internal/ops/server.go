// Package ops serves the operator HTTP surface: configuration preview and
// comparison, discovery cache management, scope detection and metrics.
package ops

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/conduit-lang/scopegraph/internal/discovery"
	"github.com/conduit-lang/scopegraph/internal/entity"
	"github.com/conduit-lang/scopegraph/internal/generator"
	"github.com/conduit-lang/scopegraph/internal/model"
	"github.com/conduit-lang/scopegraph/internal/resolver"
	"github.com/conduit-lang/scopegraph/internal/scope"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ShutdownTimeout bounds graceful shutdown of the ops server
const ShutdownTimeout = 30 * time.Second

// Server is the ops HTTP server
type Server struct {
	resolver  *resolver.Resolver
	registry  *model.Registry
	generator *generator.Generator
	auth      *AuthService
	logger    *zap.Logger
}

// Option configures a Server
type Option func(*Server)

// WithAuth requires an HS256 bearer token signed with secret on every
// route except /healthz and /metrics
func WithAuth(secret string) Option {
	return func(s *Server) {
		if secret != "" {
			s.auth = NewAuthService(secret)
		}
	}
}

// WithGenerator enables query generation on /detect
func WithGenerator(g *generator.Generator) Option {
	return func(s *Server) {
		s.generator = g
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates an ops server over a resolver and the entity registry
func New(res *resolver.Resolver, registry *model.Registry, opts ...Option) *Server {
	s := &Server{
		resolver: res,
		registry: registry,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID, recovery(s.logger), logging(s.logger))
	if s.auth != nil {
		r.Use(authenticate(s.auth, "/healthz", "/metrics"))
	}

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/entities", func(r chi.Router) {
		r.Get("/", s.handleEntities)
		r.Get("/{name}/preview", s.handlePreview)
		r.Get("/{name}/compare", s.handleCompare)
	})

	r.Route("/cache", func(r chi.Router) {
		r.Get("/", s.handleCached)
		r.Post("/warm", s.handleWarm)
		r.Delete("/", s.handleClear)
		r.Delete("/{name}", s.handleClearEntity)
	})

	r.Post("/detect", s.handleDetect)
	return r
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting ops server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("ops server failed: %w", err)
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down ops server", zap.Duration("timeout", ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ops server shutdown error: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// EntitySummary is one entry of GET /entities
type EntitySummary struct {
	Name      string          `json:"name"`
	ShortName string          `json:"short_name"`
	Label     string          `json:"label"`
	Source    resolver.Source `json:"source"`
	Scopes    int             `json:"scopes"`
}

func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	descriptors := s.registry.All()
	result := make([]EntitySummary, 0, len(descriptors))
	for _, d := range descriptors {
		res, err := s.resolver.Resolve(r.Context(), d)
		if err != nil {
			renderError(w, http.StatusInternalServerError, err)
			return
		}
		result = append(result, EntitySummary{
			Name:      d.Name(),
			ShortName: d.ShortName(),
			Label:     res.Graph.Label,
			Source:    res.Source,
			Scopes:    len(res.Graph.Scopes),
		})
	}
	renderJSON(w, http.StatusOK, result)
}

// PreviewResponse is the body of GET /entities/{name}/preview
type PreviewResponse struct {
	Entity string                `json:"entity"`
	Config *entity.Configuration `json:"config"`
	Report *discovery.Report     `json:"report"`
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	d, ok := s.descriptor(w, r)
	if !ok {
		return
	}
	cfg, report := s.resolver.Preview(r.Context(), d)
	renderJSON(w, http.StatusOK, &PreviewResponse{Entity: d.Name(), Config: cfg, Report: report})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	d, ok := s.descriptor(w, r)
	if !ok {
		return
	}
	renderJSON(w, http.StatusOK, s.resolver.Compare(r.Context(), d))
}

// WarmRequest is the optional body of POST /cache/warm. Without entities
// every registered entity is warmed.
type WarmRequest struct {
	Entities []string `json:"entities"`
}

func (s *Server) handleWarm(w http.ResponseWriter, r *http.Request) {
	var req WarmRequest
	if err := decodeBody(r, &req); err != nil {
		renderError(w, http.StatusBadRequest, err)
		return
	}

	descriptors := s.registry.All()
	if len(req.Entities) > 0 {
		descriptors = descriptors[:0:0]
		for _, name := range req.Entities {
			d, err := resolver.Lookup(s.registry, name)
			if err != nil {
				renderError(w, http.StatusNotFound, err)
				return
			}
			descriptors = append(descriptors, d)
		}
	}

	warmed, err := s.resolver.Warm(r.Context(), descriptors...)
	if err != nil {
		renderError(w, cacheErrorStatus(err), err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]int{"warmed": warmed})
}

func (s *Server) handleCached(w http.ResponseWriter, r *http.Request) {
	names, err := s.resolver.Cached(r.Context())
	if err != nil {
		renderError(w, cacheErrorStatus(err), err)
		return
	}
	renderJSON(w, http.StatusOK, map[string][]string{"entities": names})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.resolver.Clear(r.Context()); err != nil {
		renderError(w, cacheErrorStatus(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearEntity(w http.ResponseWriter, r *http.Request) {
	d, ok := s.descriptor(w, r)
	if !ok {
		return
	}
	if err := s.resolver.Clear(r.Context(), d.Name()); err != nil {
		renderError(w, cacheErrorStatus(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DetectRequest is the body of POST /detect
type DetectRequest struct {
	Question string `json:"question"`
	Generate bool   `json:"generate"`
}

// DetectResponse is the body of a successful POST /detect
type DetectResponse struct {
	Detections []scope.Detection `json:"detections"`
	Scopes     string            `json:"scopes"`
	Query      string            `json:"query,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	var req DetectRequest
	if err := decodeBody(r, &req); err != nil {
		renderError(w, http.StatusBadRequest, err)
		return
	}
	if req.Question == "" {
		renderError(w, http.StatusBadRequest, generator.ErrEmptyQuestion)
		return
	}
	if req.Generate && s.generator == nil {
		renderError(w, http.StatusServiceUnavailable, fmt.Errorf("query generation is not configured"))
		return
	}

	resolutions, err := s.resolver.ResolveAll(r.Context(), s.registry)
	if err != nil {
		renderError(w, http.StatusInternalServerError, err)
		return
	}
	configs := resolver.Configs(resolutions)

	if !req.Generate {
		detections := scope.Detect(req.Question, configs)
		renderJSON(w, http.StatusOK, &DetectResponse{
			Detections: detections,
			Scopes:     scope.Format(detections),
		})
		return
	}

	result, err := s.generator.Generate(r.Context(), req.Question, configs)
	if err != nil {
		renderError(w, http.StatusBadGateway, err)
		return
	}
	renderJSON(w, http.StatusOK, &DetectResponse{
		Detections: result.Detections,
		Scopes:     scope.Format(result.Detections),
		Query:      result.Query,
		RequestID:  result.RequestID,
	})
}

// descriptor resolves the {name} URL parameter, writing a 404 when unknown
func (s *Server) descriptor(w http.ResponseWriter, r *http.Request) (model.Descriptor, bool) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		renderError(w, http.StatusBadRequest, err)
		return nil, false
	}
	d, err := resolver.Lookup(s.registry, name)
	if err != nil {
		renderError(w, http.StatusNotFound, err)
		return nil, false
	}
	return d, true
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func cacheErrorStatus(err error) int {
	if errors.Is(err, resolver.ErrCacheDisabled) || errors.Is(err, resolver.ErrDiscoveryDisabled) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
