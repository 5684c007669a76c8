package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/aretw0/chaptree"
	"github.com/aretw0/chaptree/internal/logging"
	"github.com/aretw0/chaptree/pkg/domain"
	"github.com/aretw0/chaptree/pkg/layout"
	"github.com/aretw0/chaptree/pkg/schema"
	"github.com/aretw0/chaptree/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MaxBodySize bounds the size of a command request body.
const MaxBodySize = 64 << 10

// Documents is the document service the handlers talk to.
// *session.Manager implements it.
type Documents interface {
	Open(ctx context.Context, documentID string) (*domain.Document, error)
	Apply(ctx context.Context, documentID string, cmd domain.Command) (*domain.Document, error)
	Delete(ctx context.Context, documentID string) error
	List(ctx context.Context) ([]string, error)
	Observe(obs session.Observer)
	Engine() *chaptree.Engine
}

// Server serves the chaptree JSON API.
type Server struct {
	Documents Documents
	Streams   *StreamManager

	gatherer    prometheus.Gatherer
	corsOrigins []string
	logger      *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger used by the handlers.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithGatherer sets the registry exposed at /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithCORSOrigins restricts the origins allowed to call the API and open
// WebSocket streams. No origins, or "*", allows every origin.
func WithCORSOrigins(origins ...string) Option {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}

// NewServer creates a Server and subscribes it to new revisions of docs.
func NewServer(docs Documents, opts ...Option) *Server {
	s := &Server{
		Documents: docs,
		gatherer:  prometheus.DefaultGatherer,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams = NewStreamManager(s.logger)
	docs.Observe(s.publish)
	return s
}

// NewHandler creates a new HTTP handler for the document service.
func NewHandler(docs Documents, opts ...Option) http.Handler {
	return NewServer(docs, opts...).Routes()
}

// Routes returns the router with every endpoint mounted.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.cors)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(RawContract())
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/documents", func(r chi.Router) {
		r.Get("/", s.ListDocuments)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetDocument)
			r.Delete("/", s.DeleteDocument)
			r.Post("/commands", s.ApplyCommand)
			r.Get("/layout", s.GetLayout)
			r.Get("/node", s.GetNode)
			r.Get("/events", s.SubscribeEvents)
			r.Get("/ws", s.StreamDocument)
		})
	})
	return r
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && s.allowOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) allowOrigin(origin string) bool {
	if len(s.corsOrigins) == 0 || slices.Contains(s.corsOrigins, "*") {
		return true
	}
	return slices.Contains(s.corsOrigins, origin)
}

// publish is the session observer feeding the streams.
func (s *Server) publish(_ context.Context, before, after *domain.Document) {
	diff := domain.Diff(before, after)
	if diff == nil {
		return
	}
	s.Streams.Broadcast(after.ID, Update{Diff: diff, Document: after})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if contract, err := Contract(); err == nil && contract.Info != nil {
		apiVersion = contract.Info.Version
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":         "chaptree-http",
		"version":     strings.TrimSpace(chaptree.Version),
		"api_version": apiVersion,
	})
}

// ListDocuments handles the GET /documents request.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Documents.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"documents": ids})
}

// GetDocument handles the GET /documents/{id} request.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.Documents.Open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}

// DeleteDocument handles the DELETE /documents/{id} request.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.Documents.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApplyCommand handles the POST /documents/{id}/commands request.
func (s *Server) ApplyCommand(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodySize))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %w", schema.ErrInvalidCommand, err))
		return
	}
	if err := validateBody("CommandEnvelope", body); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %w", schema.ErrInvalidCommand, err))
		return
	}
	cmd, err := schema.Decode(bytes.NewReader(body))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	doc, err := s.Documents.Apply(r.Context(), id, cmd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}

// LayoutParams are the optional query parameters of GET /documents/{id}/layout.
type LayoutParams struct {
	Viewport         *float64
	BoxWidth         *float64
	BoxHeight        *float64
	HorizontalMargin *float64
	VerticalMargin   *float64
}

func bindLayoutParams(r *http.Request) (LayoutParams, error) {
	var p LayoutParams
	query := r.URL.Query()
	for name, dest := range map[string]**float64{
		"viewport":          &p.Viewport,
		"box_width":         &p.BoxWidth,
		"box_height":        &p.BoxHeight,
		"horizontal_margin": &p.HorizontalMargin,
		"vertical_margin":   &p.VerticalMargin,
	} {
		if err := runtime.BindQueryParameter("form", true, false, name, query, dest); err != nil {
			return p, fmt.Errorf("%w: %w", errBadParameter, err)
		}
	}
	return p, nil
}

// Apply overrides the dimensions that were given.
func (p LayoutParams) Apply(cfg layout.Config) layout.Config {
	set := func(dst *float64, v *float64) {
		if v != nil && *v > 0 {
			*dst = *v
		}
	}
	set(&cfg.BoxWidth, p.BoxWidth)
	set(&cfg.BoxHeight, p.BoxHeight)
	set(&cfg.HorizontalMargin, p.HorizontalMargin)
	set(&cfg.VerticalMargin, p.VerticalMargin)
	return cfg
}

// GetLayout handles the GET /documents/{id}/layout request.
func (s *Server) GetLayout(w http.ResponseWriter, r *http.Request) {
	params, err := bindLayoutParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	doc, err := s.Documents.Open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	cfg := params.Apply(s.Documents.Engine().LayoutConfig())
	viewport := 0.0
	if params.Viewport != nil {
		viewport = *params.Viewport
	}
	s.writeJSON(w, http.StatusOK, layout.Plan(doc.Forest, cfg, viewport))
}

// NodeResult is the response of GET /documents/{id}/node.
type NodeResult struct {
	Path string       `json:"path"`
	Node *domain.Node `json:"node"`
}

// GetNode handles the GET /documents/{id}/node request.
func (s *Server) GetNode(w http.ResponseWriter, r *http.Request) {
	var path []int
	if err := runtime.BindQueryParameter("form", false, true, "path", r.URL.Query(), &path); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %w", errBadParameter, err))
		return
	}
	doc, err := s.Documents.Open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	node, ok := doc.Forest.NodeAt(path)
	if !ok {
		s.writeError(w, r, fmt.Errorf("%w: %s", domain.ErrPathOutOfRange, domain.Path(path)))
		return
	}
	s.writeJSON(w, http.StatusOK, NodeResult{Path: domain.Path(path).String(), Node: node})
}

// SubscribeEvents handles the GET /documents/{id}/events request (SSE).
// The first data event carries the whole forest; later ones carry diffs.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	id := chi.URLParam(r, "id")
	ch, cancel := s.Streams.Subscribe(id)
	defer cancel()

	doc, err := s.Documents.Open(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.logger.Info("SSE: Subscribing to document updates", "document", id)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	if payload, err := json.Marshal(domain.Diff(nil, doc)); err == nil {
		fmt.Fprintf(w, "data: %s\n\n", payload)
	}
	flusher.Flush()

	sent := doc.Revision
	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE: Client disconnected", "document", id)
			return
		case u, ok := <-ch:
			if !ok {
				return
			}
			if u.Diff.Revision <= sent {
				continue
			}
			sent = u.Diff.Revision
			payload, err := json.Marshal(u.Diff)
			if err != nil {
				s.logger.Error("SSE: Failed to encode diff", "document", id, "err", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

// errBadParameter marks query parameters that could not be bound.
var errBadParameter = errors.New("invalid parameter")

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error  string              `json:"error"`
	Fields []schema.FieldError `json:"fields,omitempty"`
}

// StatusCode maps an error of the document service to an HTTP status.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, schema.ErrInvalidCommand),
		errors.Is(err, domain.ErrUnknownCommand),
		errors.Is(err, domain.ErrInvalidDocumentID),
		errors.Is(err, errBadParameter):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrPathOutOfRange),
		errors.Is(err, domain.ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRootRemovalRejected):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusCode(err)
	resp := ErrorResponse{Error: err.Error()}
	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}

	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	} else {
		s.logger.DebugContext(r.Context(), "request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}
