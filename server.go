package main

import (
	"html/template"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/oszuidwest/zwfm-dictation/internal/animator"
	"github.com/oszuidwest/zwfm-dictation/internal/server"
	"github.com/oszuidwest/zwfm-dictation/internal/types"
)

// statusInterval is how often the full status is pushed to each client.
const statusInterval = 3000 * time.Millisecond

var indexTmpl = template.Must(template.New("index").Parse(indexHTML))

type indexData struct {
	Title   string
	Version string
	Year    int
	Width   int
	Height  int
}

// Server is an HTTP server that provides the dictation page.
type Server struct {
	dictation       *Dictation
	commands        *server.CommandHandler
	releases        *ReleaseWatcher
	ffmpegAvailable bool
}

// NewServer returns a new Server for d.
func NewServer(d *Dictation, releases *ReleaseWatcher, ffmpegAvailable bool) *Server {
	return &Server{
		dictation:       d,
		commands:        server.NewCommandHandler(d),
		releases:        releases,
		ffmpegAvailable: ffmpegAvailable,
	}
}

// handleWebSocket handles bidirectional WebSocket communication for real-time updates.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := server.UpgradeConnection(w, r)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}

	// Only the writer goroutine writes to the connection.
	send := make(chan any, 64)
	done := make(chan struct{})
	statusUpdate := make(chan struct{}, 1)

	sub := s.dictation.hub.Subscribe()
	defer sub.Close()

	go s.runWebSocketWriter(conn, send)
	go s.runWebSocketReader(conn, send, done, statusUpdate)

	s.runWebSocketEventLoop(send, done, statusUpdate, sub)
}

// runWebSocketWriter writes messages from the send channel to the connection.
func (s *Server) runWebSocketWriter(conn server.WebSocketConn, send <-chan any) {
	// Keep draining after a failed write so the event loop never blocks.
	defer func() {
		for range send {
		}
	}()
	defer func() {
		if err := conn.Close(); err != nil {
			slog.Debug("WebSocket close error", "error", err)
		}
	}()
	for msg := range send {
		if err := conn.WriteJSON(msg); err != nil {
			slog.Debug("WebSocket write failed", "error", err)
			return
		}
	}
}

// runWebSocketReader reads commands from the connection and dispatches them.
func (s *Server) runWebSocketReader(conn server.WebSocketConn, send chan<- any, done, statusUpdate chan<- struct{}) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in WebSocket reader", "panic", r)
		}
		close(done)
	}()

	for {
		var cmd server.WSCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		s.commands.Handle(cmd, send, func() {
			select {
			case statusUpdate <- struct{}{}:
			default:
			}
		})
	}
}

// runWebSocketEventLoop forwards hub updates and periodic status to the client.
func (s *Server) runWebSocketEventLoop(send chan any, done, statusUpdate <-chan struct{}, sub *server.Subscription) {
	statusTicker := time.NewTicker(statusInterval)
	defer statusTicker.Stop()
	defer close(send)

	// trySend attempts to send a message, returning false if done is closed
	trySend := func(msg any) bool {
		select {
		case send <- msg:
			return true
		case <-done:
			return false
		}
	}

	if !trySend(s.buildWSStatus()) {
		return
	}

	for {
		select {
		case <-done:
			return
		case msg, ok := <-sub.Updates():
			if !ok || !trySend(msg) {
				return
			}
		case frame, ok := <-sub.Frames():
			if !ok || !trySend(frame) {
				return
			}
		case <-statusUpdate:
			if !trySend(s.buildWSStatus()) {
				return
			}
		case <-statusTicker.C:
			if !trySend(s.buildWSStatus()) {
				return
			}
		}
	}
}

// buildWSStatus returns the current WebSocket status response.
func (s *Server) buildWSStatus() types.WSStatusResponse {
	cfg := s.dictation.config.Snapshot()

	return types.WSStatusResponse{
		Type:            "status",
		Listen:          s.dictation.hub.Listen(),
		Monitor:         s.dictation.monitor.Status(),
		FFmpegAvailable: s.ffmpegAvailable,
		Settings: types.WSSettings{
			AudioInput: cfg.AudioInput,
			Backend:    string(cfg.AudioBackend),
			Provider:   cfg.Provider,
			Platform:   runtime.GOOS,
		},
		Version: s.releases.Info(),
	}
}

// SetupRoutes returns an [http.Handler] configured with all application routes.
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.Handle("GET /metrics", s.dictation.metrics.Handler())
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /", s.handleStatic)

	return securityHeaders(mux)
}

// securityHeaders returns middleware that wraps handlers with security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := w.Write([]byte("ok\n")); err != nil {
		slog.Debug("failed to write health response", "error", err)
	}
}

// serveStaticFile serves a static file by path and reports whether it was found.
func serveStaticFile(w http.ResponseWriter, path string) bool {
	file, ok := staticFiles[path]
	if !ok {
		return false
	}
	w.Header().Set("Content-Type", file.contentType)
	if _, err := w.Write([]byte(file.content)); err != nil {
		slog.Error("failed to write static file", "file", file.name, "error", err)
	}
	return true
}

// staticFile is an embedded static file with content type and data.
type staticFile struct {
	contentType string
	content     string
	name        string
}

// staticFiles is a map from URL paths to static file definitions.
var staticFiles = map[string]staticFile{
	"/style.css": {
		contentType: "text/css",
		content:     styleCSS,
		name:        "style.css",
	},
	"/app.js": {
		contentType: "application/javascript",
		content:     appJS,
		name:        "app.js",
	},
	"/favicon.svg": {
		contentType: "image/svg+xml",
		content:     faviconSVG,
		name:        "favicon.svg",
	},
}

// handleStatic handles requests for embedded static web interface files.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path == "/" {
		path = "/index.html"
	}

	if path == "/index.html" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := indexTmpl.Execute(w, indexData{
			Title:   s.dictation.config.Snapshot().Title,
			Version: Version,
			Year:    time.Now().Year(),
			Width:   animator.Width,
			Height:  animator.Height,
		}); err != nil {
			slog.Error("failed to write index.html", "error", err)
		}
		return
	}

	if serveStaticFile(w, path) {
		return
	}

	http.NotFound(w, r)
}

// Start begins the HTTP server.
// Returns an *http.Server that can be used for graceful shutdown.
func (s *Server) Start(addr string) *http.Server {
	slog.Info("starting web server", "addr", addr, "url", "http://"+addr)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	return srv
}
