// Package preview serves a live view in the browser.
//
// The server owns one dom.Document. The view is rendered into its body and
// every later mutation (model updates posted by the client, DOM events
// replayed from the client, template reloads) is streamed to connected
// browsers as patches over a WebSocket. All document and model access is
// serialized, so the template engine keeps its single-threaded model.
package preview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/vango-dev/vtemplate/pkg/dom"
	"github.com/vango-dev/vtemplate/pkg/telemetry"
	"github.com/vango-dev/vtemplate/pkg/view"
)

// Loader builds the (unrendered) view to preview in doc.
type Loader func(doc *dom.Document) (*view.View, error)

// Config configures a Server.
type Config struct {
	// Title is the page title.
	Title string

	// WebSocketPath is the patch stream endpoint (default "/ws").
	WebSocketPath string

	// Logger receives server logs (default slog.Default()).
	Logger *slog.Logger

	// Metrics, if set, records operations and is served on MetricsPath.
	Metrics *telemetry.Metrics

	// MetricsPath is the metrics endpoint (default "/metrics").
	MetricsPath string

	// Tracer wraps operations in spans (default: a tracer on the global
	// provider).
	Tracer *telemetry.Tracer
}

// MessageType is the type of a message sent to browsers.
type MessageType string

const (
	MessageConnected MessageType = "connected"
	MessagePatches   MessageType = "patches"
	MessageReload    MessageType = "reload"
	MessageError     MessageType = "error"
)

// Message is sent to browsers via WebSocket.
type Message struct {
	Type    MessageType `json:"type"`
	Patches []dom.Patch `json:"patches,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// EventRequest replays a DOM event on the server document.
type EventRequest struct {
	Path   []int  `json:"path"`
	Type   string `json:"type"`
	Detail any    `json:"detail,omitempty"`
}

// Server previews one view.
type Server struct {
	config Config
	load   Loader
	logger *slog.Logger
	tracer *telemetry.Tracer

	// mu serializes every access to doc and view.
	mu         sync.Mutex
	doc        *dom.Document
	view       *view.View
	pending    []dom.Patch
	detachDocs []func()
	loadErr    error

	clientsMu sync.RWMutex
	clients   map[*websocket.Conn]bool
	writeMu   sync.Mutex
	upgrader  websocket.Upgrader

	router chi.Router
}

// New creates a server and renders the first view.
func New(load Loader, cfg Config) (*Server, error) {
	if cfg.WebSocketPath == "" {
		cfg.WebSocketPath = "/ws"
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.Title == "" {
		cfg.Title = "vtemplate preview"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = telemetry.NewTracer("")
	}

	s := &Server{
		config:  cfg,
		load:    load,
		logger:  logger,
		tracer:  tracer,
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // preview is a development tool
			},
		},
	}
	s.router = s.routes()

	if err := s.Reload(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", s.handlePage)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get(s.config.WebSocketPath, s.handleWebSocket)
	r.Get("/model", s.handleGetModel)
	r.Post("/model", s.handleSetModel)
	r.Post("/events", s.handleEvent)
	if s.config.Metrics != nil {
		r.Handle(s.config.MetricsPath, s.config.Metrics.Handler())
	}
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Reload destroys the current view and renders a fresh one into a new
// document. Browsers are told to reload. A failed load keeps serving the
// error until the next successful Reload.
func (s *Server) Reload(ctx context.Context) error {
	err := s.do(ctx, "reload", func() error {
		s.teardownLocked()

		doc := dom.NewDocument()
		s.doc = doc
		s.detachDocs = append(s.detachDocs, doc.OnPatch(func(p dom.Patch) {
			s.pending = append(s.pending, p)
		}))
		if s.config.Metrics != nil {
			s.detachDocs = append(s.detachDocs, s.config.Metrics.ObserveDocument(doc))
		}

		v, err := s.load(doc)
		if err != nil {
			s.loadErr = err
			return err
		}
		if err := v.Render(); err != nil {
			s.loadErr = err
			return err
		}
		doc.AppendChild(doc.Body(), v.Element())
		s.view = v
		s.loadErr = nil
		return nil
	})

	if err != nil {
		s.logger.Error("preview load failed", "error", err)
		s.broadcast(Message{Type: MessageError, Error: err.Error()})
		return err
	}
	s.logger.Info("preview loaded")
	s.broadcast(Message{Type: MessageReload})
	return nil
}

// teardownLocked destroys the current view. s.mu must be held.
func (s *Server) teardownLocked() {
	for _, off := range s.detachDocs {
		off()
	}
	s.detachDocs = nil
	if s.view != nil {
		if err := s.view.Destroy(); err != nil {
			s.logger.Warn("destroy previous view", "error", err)
		}
		s.view = nil
	}
}

// Update sets model attributes of the previewed view and streams the
// resulting patches.
func (s *Server) Update(ctx context.Context, values map[string]any) error {
	return s.do(ctx, "update", func() error {
		if s.view == nil {
			return errNoView
		}
		s.view.SetAll(values)
		return nil
	})
}

// Dispatch fires a DOM event at the node at path (child indexes from
// <body>) and streams the resulting patches.
func (s *Server) Dispatch(ctx context.Context, req EventRequest) error {
	return s.do(ctx, "dispatch", func() error {
		if s.view == nil {
			return errNoView
		}
		target := s.doc.Resolve(req.Path)
		if target == nil {
			return fmt.Errorf("%w: %v", errNoNode, req.Path)
		}
		s.doc.Dispatch(target, req.Type, req.Detail)
		return nil
	})
}

// HTML returns the current body content.
func (s *Server) HTML() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return ""
	}
	return dom.RenderChildren(s.doc.Body())
}

var (
	errNoView = errors.New("preview: no view loaded")
	errNoNode = errors.New("preview: no node at path")
)

// do runs fn under the document lock, then broadcasts the patches it
// produced.
func (s *Server) do(ctx context.Context, operation string, fn func() error) error {
	start := time.Now()
	_, span := s.tracer.Start(ctx, operation)

	s.mu.Lock()
	err := fn()
	patches := s.pending
	s.pending = nil
	s.mu.Unlock()

	telemetry.End(span, err)
	if s.config.Metrics != nil {
		s.config.Metrics.ObserveOperation(operation, start, err)
	}
	if operation != "reload" && len(patches) > 0 {
		s.broadcast(Message{Type: MessagePatches, Patches: patches})
	}
	return err
}

func (s *Server) handlePage(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	body := ""
	if s.doc != nil {
		body = dom.RenderChildren(s.doc.Body())
	}
	loadErr := s.loadErr
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderPage(w, s.config.Title, body, s.config.WebSocketPath, loadErr); err != nil {
		s.logger.Error("render page", "error", err)
	}
}

func (s *Server) handleGetModel(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	state := map[string]any{}
	if s.view != nil {
		for _, key := range s.view.Model().Keys() {
			state[key] = s.view.Get(key)
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleSetModel(w http.ResponseWriter, r *http.Request) {
	var values map[string]any
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := s.Update(r.Context(), values); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Type == "" {
		msg := "event type is required"
		if err != nil {
			msg = err.Error()
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}
	if err := s.Dispatch(r.Context(), req); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errNoNode):
		status = http.StatusNotFound
	case errors.Is(err, errNoView):
		status = http.StatusServiceUnavailable
	}
	s.logger.Warn("preview request failed", "error", err, "kind", telemetry.ErrorKind(err))
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Close disconnects every client and destroys the view.
func (s *Server) Close() error {
	s.clientsMu.Lock()
	for client := range s.clients {
		client.Close()
		delete(s.clients, client)
	}
	s.clientsMu.Unlock()

	s.mu.Lock()
	s.teardownLocked()
	s.mu.Unlock()
	return nil
}
