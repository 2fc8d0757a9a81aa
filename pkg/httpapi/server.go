// Package httpapi hosts form sessions over HTTP. Clients create a session
// from a form source, then drive it either through JSON endpoints (set
// values, advance, retreat, go to step, submit) or through plain browser
// form posts rendered by the vanilla HTML renderer.
package httpapi

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formflow/pkg/engine"
	formlog "github.com/goliatone/go-formflow/pkg/log"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/render"
	"github.com/goliatone/go-formflow/pkg/renderers/jsonview"
	"github.com/goliatone/go-formflow/pkg/renderers/vanilla"
)

const defaultMaxUploadSize = 32 << 20

// Sessions is the session store the server drives. It is satisfied by
// *session.Manager.
type Sessions interface {
	Create(ctx context.Context, data model.FormData, locale string) (string, error)
	Do(ctx context.Context, id string, fn func(*engine.Engine) error) error
	Reopen(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// Guard authorises a request before it reaches a handler. Returning an
// error implementing HTTPError selects the response status; any other error
// yields 403.
type Guard func(*http.Request) error

// Mux is the minimal interface required to mount the server. It is satisfied
// by *http.ServeMux.
type Mux interface {
	Handle(pattern string, handler http.Handler)
}

// Option customises a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *logrus.Entry) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRenderers replaces the renderer registry. The default registry holds
// the vanilla HTML and JSON view renderers.
func WithRenderers(registry *render.Registry) Option {
	return func(s *Server) {
		if registry != nil {
			s.renderers = registry
		}
	}
}

// WithDefaultRenderer selects the renderer used when the request neither
// names one nor accepts JSON.
func WithDefaultRenderer(name string) Option {
	return func(s *Server) {
		if name = strings.TrimSpace(name); name != "" {
			s.defaultRenderer = name
		}
	}
}

// WithAssets overrides the static assets served under /assets/.
func WithAssets(assets fs.FS) Option {
	return func(s *Server) {
		s.assets = assets
	}
}

// WithRequestValidation toggles validation of requests against the
// embedded OpenAPI document. It is on by default.
func WithRequestValidation(enabled bool) Option {
	return func(s *Server) {
		s.validateRequests = enabled
	}
}

// WithMaxUploadSize caps the size of browser form posts, uploads included.
func WithMaxUploadSize(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadSize = n
		}
	}
}

// WithBasePath sets the prefix the server is mounted under. It is used for
// Location headers, form actions and asset links.
func WithBasePath(path string) Option {
	return func(s *Server) {
		s.basePath = normalizeBasePath(path)
	}
}

// WithGuard installs a guard run before every API route.
func WithGuard(guard Guard) Option {
	return func(s *Server) {
		s.guard = guard
	}
}

// Server exposes sessions over HTTP.
type Server struct {
	sessions         Sessions
	forms            FormSource
	renderers        *render.Registry
	defaultRenderer  string
	assets           fs.FS
	validateRequests bool
	maxUploadSize    int64
	basePath         string
	guard            Guard
	logger           *logrus.Entry

	doc      *openapi3.T
	validate *validator.Validate
	mux      *http.ServeMux
}

var _ http.Handler = (*Server)(nil)

// New builds a server over sessions, creating sessions from forms.
func New(sessions Sessions, forms FormSource, options ...Option) (*Server, error) {
	if sessions == nil {
		return nil, fmt.Errorf("httpapi: sessions are required")
	}
	if forms == nil {
		return nil, fmt.Errorf("httpapi: form source is required")
	}

	s := &Server{
		sessions:         sessions,
		forms:            forms,
		defaultRenderer:  "vanilla",
		assets:           vanilla.AssetsFS(),
		validateRequests: true,
		maxUploadSize:    defaultMaxUploadSize,
		logger:           formlog.Discard(),
		validate:         validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}

	if s.renderers == nil {
		registry, err := defaultRenderers(s.basePath)
		if err != nil {
			return nil, err
		}
		s.renderers = registry
	}
	if !s.renderers.Has(s.defaultRenderer) {
		return nil, fmt.Errorf("httpapi: default renderer %q is not registered", s.defaultRenderer)
	}

	doc, err := loadDocument(context.Background())
	if err != nil {
		return nil, err
	}
	s.doc = doc

	if err := s.routes(); err != nil {
		return nil, err
	}
	return s, nil
}

func defaultRenderers(basePath string) (*render.Registry, error) {
	html, err := vanilla.New(vanilla.WithAssetsBase(basePath + "/assets"))
	if err != nil {
		return nil, fmt.Errorf("httpapi: vanilla renderer: %w", err)
	}
	registry := render.NewRegistry()
	if err := registry.Register(html); err != nil {
		return nil, err
	}
	if err := registry.Register(jsonview.New()); err != nil {
		return nil, err
	}
	return registry, nil
}

// ServeHTTP dispatches to the session routes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Mount registers the server on mux under the configured base path.
func (s *Server) Mount(mux Mux) (string, error) {
	if mux == nil {
		return "", fmt.Errorf("httpapi: missing mux")
	}
	if s.basePath == "" {
		mux.Handle("/", s)
		return "/", nil
	}
	pattern := s.basePath + "/"
	mux.Handle(pattern, http.StripPrefix(s.basePath, s))
	return pattern, nil
}

type route struct {
	method    string
	path      string
	handler   http.HandlerFunc
	unchecked bool
}

func (s *Server) routes() error {
	table := []route{
		{method: http.MethodPost, path: "/sessions", handler: s.createSession},
		{method: http.MethodGet, path: "/sessions/{id}", handler: s.renderSession},
		{method: http.MethodPost, path: "/sessions/{id}", handler: s.postSession},
		{method: http.MethodDelete, path: "/sessions/{id}", handler: s.deleteSession},
		{method: http.MethodGet, path: "/sessions/{id}/state", handler: s.getState},
		{method: http.MethodPut, path: "/sessions/{id}/values/{field}", handler: s.setValue},
		{method: http.MethodDelete, path: "/sessions/{id}/values/{field}", handler: s.clearValue},
		{method: http.MethodPost, path: "/sessions/{id}/advance", handler: s.advance},
		{method: http.MethodPost, path: "/sessions/{id}/retreat", handler: s.retreat},
		{method: http.MethodPost, path: "/sessions/{id}/steps/{step}", handler: s.goToStep},
		{method: http.MethodPost, path: "/sessions/{id}/submit", handler: s.submit},
		{method: http.MethodPost, path: "/sessions/{id}/reopen", handler: s.reopen},
		{method: http.MethodDelete, path: "/sessions/{id}/files/{field}/{fileId}", handler: s.removeFile},
		{method: http.MethodGet, path: "/openapi.yaml", handler: s.serveDocument, unchecked: true},
		{method: http.MethodGet, path: "/healthz", handler: s.health, unchecked: true},
	}

	s.mux = http.NewServeMux()
	for _, rt := range table {
		handler := http.Handler(rt.handler)
		if !rt.unchecked {
			checked, err := s.validated(rt, handler)
			if err != nil {
				return err
			}
			handler = s.guarded(checked)
		}
		s.mux.Handle(rt.method+" "+rt.path, s.logged(handler))
	}
	if s.assets != nil {
		s.mux.Handle("GET /assets/", http.StripPrefix("/assets/", http.FileServerFS(s.assets)))
	}
	return nil
}

func (s *Server) guarded(next http.Handler) http.Handler {
	if s.guard == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.guard(r); err != nil {
			writeGuardError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logged(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		ctx := formlog.WithLogger(r.Context(), s.logger)
		next.ServeHTTP(rec, r.WithContext(ctx))

		entry := s.logger.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"status": rec.status,
		})
		if rec.status >= http.StatusInternalServerError {
			entry.Warn("request failed")
			return
		}
		entry.Debug("request served")
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) serveDocument(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openapiDocument)
}

func (s *Server) sessionPath(id string) string {
	return s.basePath + "/sessions/" + id
}

func normalizeBasePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || path == "/" {
		return ""
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(path, "/")
}
