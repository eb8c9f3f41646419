package server

import (
	"context"
	"fmt"
	"html"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jpalmerr/danmaku/internal/feeder"
	"github.com/jpalmerr/danmaku/internal/scheduler"
	"github.com/jpalmerr/danmaku/internal/stage"
	"github.com/jpalmerr/danmaku/internal/store"
)

const (
	// streamWriteTimeout is the maximum time allowed for a single SSE or
	// WebSocket write. Must be <= shutdown timeout to ensure clean shutdown.
	streamWriteTimeout = 5 * time.Second

	// shutdownTimeout bounds graceful shutdown.
	shutdownTimeout = 5 * time.Second

	// maxBodySize limits request bodies.
	maxBodySize = 64 << 10

	// defaultTitle is used when no custom title is configured.
	defaultTitle = "Danmaku"

	// titlePlaceholder is the marker in HTML that gets replaced with the actual title.
	titlePlaceholder = "{{.Title}}"
)

// Controller is the part of the scheduler the server drives.
type Controller interface {
	Pause()
	Resume()
	ClearScreen()
	SetVisible(visible bool)
	Resize()
	Stats() scheduler.Stats
}

// Display is the virtual stage whose events are streamed to clients.
type Display interface {
	Size() (width, height float64)
	SetSize(width, height float64)
	Snapshot() []stage.Node
	Now() time.Time
	Subscribe() <-chan stage.Event
	Unsubscribe(ch <-chan stage.Event)
}

// SourceReporter reports the status of remote feed sources.
type SourceReporter interface {
	Sources() []feeder.SourceStatus
}

// Config holds the server's presentation settings.
type Config struct {
	// Port is the TCP port to listen on.
	Port int

	// Title is the overlay page title. Defaults to "Danmaku".
	Title string

	// Assets contains assets/index.html. May be nil.
	Assets fs.FS

	Logger *slog.Logger
}

// Server handles HTTP requests for the overlay and API.
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	store   store.Store
	engine  Controller
	display Display
	sources SourceReporter

	// serializes the size compare with the resize that follows
	resizeMu sync.Mutex

	port       int
	assets     fs.FS
	title      string
	logger     *slog.Logger
	httpServer *http.Server
}

// NewServer creates a new HTTP [Server]. sources may be nil.
//
// The server is not started until [Server.Start] is called.
func NewServer(st store.Store, engine Controller, display Display, sources SourceReporter, cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:   st,
		engine:  engine,
		display: display,
		sources: sources,
		port:    cfg.Port,
		assets:  cfg.Assets,
		title:   cfg.Title,
		logger:  logger,
	}
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// page and form submission
	mux.HandleFunc("/", s.handleRoot)

	// messages
	mux.HandleFunc("GET /messages", s.handleListMessages)
	mux.HandleFunc("GET /api/messages", s.handleListMessages)
	mux.HandleFunc("POST /api/messages", s.handleCreateMessage)

	// streams
	mux.HandleFunc("GET /api/sse", s.handleSSE)
	mux.HandleFunc("GET /api/ws", s.handleWS)

	// control
	mux.HandleFunc("POST /api/control/{action}", s.handleControl)
	mux.HandleFunc("POST /api/resize", s.handleResize)
	mux.HandleFunc("POST /api/visibility", s.handleVisibility)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/sources", s.handleSources)

	return mux
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// request contexts derive from ctx so long-lived streams end on shutdown
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	s.logger.Info("http server listening", "addr", ln.Addr().String())
	return nil
}

// handleRoot serves the overlay on GET and accepts form submissions on POST.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		s.handleOverlay(w, r)
	case http.MethodPost:
		s.handleSubmit(w, r)
	default:
		w.Header().Set("Allow", "GET, HEAD, POST")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleOverlay serves the overlay page.
func (s *Server) handleOverlay(w http.ResponseWriter, _ *http.Request) {
	if s.assets == nil {
		http.Error(w, "Overlay not found", http.StatusInternalServerError)
		return
	}

	content, err := fs.ReadFile(s.assets, "assets/index.html")
	if err != nil {
		http.Error(w, "Overlay not found", http.StatusInternalServerError)
		return
	}

	// apply title substitution with HTML escaping to prevent XSS
	title := s.title
	if title == "" {
		title = defaultTitle
	}
	rendered := strings.ReplaceAll(string(content), titlePlaceholder, html.EscapeString(title))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err = w.Write([]byte(rendered)); err != nil {
		s.logger.Error("failed to write overlay response", "error", err)
	}
}
