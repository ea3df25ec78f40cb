// Package server implements the development server: it serves the publish
// directory over HTTP and pushes live-reload notifications to browsers over
// a websocket after every rebuild.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/conneroisu/stencil/internal/logging"
	"github.com/conneroisu/stencil/internal/version"
	"github.com/conneroisu/stencil/internal/watcher"
	"github.com/spf13/afero"
)

// Config holds the server settings.
type Config struct {
	Host       string
	Port       int
	LiveReload bool
}

// Address returns host:port.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// UpdateMessage represents a message sent to the browser
type UpdateMessage struct {
	Type      string    `json:"type"`
	Content   string    `json:"content,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Server serves a built site with live reload.
type Server struct {
	config     Config
	fs         afero.Fs
	publishDir string
	logger     logging.Logger
	hub        *Hub
	handler    http.Handler

	ctx    context.Context
	cancel context.CancelFunc

	httpServer  *http.Server
	listener    net.Listener
	serverMutex sync.RWMutex

	buildMutex sync.RWMutex
	lastBuild  *watcher.BuildResult

	shutdownOnce sync.Once
	shutdownErr  error
}

// New creates a server for the site published at publishDir.
func New(fs afero.Fs, publishDir string, cfg Config, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.WithComponent("server")

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:     cfg,
		fs:         fs,
		publishDir: publishDir,
		logger:     logger,
		hub:        NewHub(logger),
		ctx:        ctx,
		cancel:     cancel,
	}
	go s.hub.Run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	if cfg.LiveReload {
		mux.HandleFunc(reloadPath, s.handleWebSocket)
	}
	mux.Handle("/", newStaticHandler(fs, publishDir, cfg.LiveReload))
	s.handler = s.addMiddleware(mux)

	return s
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Hub returns the live-reload hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Address())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Address(), err)
	}

	s.serverMutex.Lock()
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := s.httpServer
	s.serverMutex.Unlock()

	s.logger.Info(ctx, "Serving site",
		"url", "http://"+listener.Addr().String(),
		"dir", s.publishDir,
		"live_reload", s.config.LiveReload)

	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Addr returns the address the server listens on, once started.
func (s *Server) Addr() string {
	s.serverMutex.RLock()
	defer s.serverMutex.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// NotifyBuild tells connected browsers about a finished rebuild: a reload
// after success, the error text after failure.
func (s *Server) NotifyBuild(result watcher.BuildResult) {
	s.buildMutex.Lock()
	s.lastBuild = &result
	s.buildMutex.Unlock()

	msg := UpdateMessage{Type: "reload", Timestamp: time.Now()}
	if result.Err != nil {
		msg = UpdateMessage{Type: "build_error", Content: result.Err.Error(), Timestamp: time.Now()}
	}
	s.broadcastMessage(msg)
}

func (s *Server) broadcastMessage(msg UpdateMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error(s.ctx, err, "Failed to marshal message")
		data = []byte(`{"type":"reload"}`)
	}
	s.hub.Broadcast(data)
}

// Shutdown gracefully shuts down the server and disconnects every client.
// It is safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "Shutting down server")
		s.cancel()

		s.serverMutex.RLock()
		server := s.httpServer
		s.serverMutex.RUnlock()

		if server != nil {
			s.shutdownErr = server.Shutdown(ctx)
		}
	})
	return s.shutdownErr
}

func (s *Server) addMiddleware(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		handler.ServeHTTP(w, r)
		s.logger.Debug(r.Context(), "Request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds())
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"localhost:*", "127.0.0.1:*", s.config.Address()},
	})
	if err != nil {
		s.logger.Warn(r.Context(), err, "WebSocket upgrade failed")
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, 16),
		hub:  s.hub,
	}
	if !s.hub.add(client) {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}

	go client.writePump(s.ctx)
	client.readPump(s.ctx)
}

// handleHealth returns the server health status for health checks
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := map[string]interface{}{
		"status":      "healthy",
		"timestamp":   time.Now().UTC(),
		"version":     version.GetShortVersion(),
		"live_reload": s.config.LiveReload,
		"clients":     s.hub.ClientCount(),
	}

	s.buildMutex.RLock()
	if s.lastBuild != nil {
		build := map[string]interface{}{
			"status":      "success",
			"duration_ms": s.lastBuild.Duration.Milliseconds(),
		}
		if s.lastBuild.Err != nil {
			build["status"] = "failed"
			build["error"] = s.lastBuild.Err.Error()
		}
		health["last_build"] = build
	}
	s.buildMutex.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(health); err != nil {
		s.logger.Warn(r.Context(), err, "Failed to encode health response")
	}
}
