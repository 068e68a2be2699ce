package panel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"atlas/internal/logging"
	"atlas/internal/prefs"
	"atlas/internal/workflow"
)

const (
	maxJSONBody  = 1 << 20
	maxAudioBody = 25 << 20
)

// Options configures a Server.
type Options struct {
	Bind   string
	Token  string
	Logger *slog.Logger
	// Prefs backs the theme routes. Nil disables them.
	Prefs *prefs.Store
	// Logs backs /api/logs. Nil serves an empty stream.
	Logs *logging.StreamHub
}

// Server exposes one workflow session over HTTP.
type Server struct {
	session *workflow.Session
	prefs   *prefs.Store
	logs    *logging.StreamHub
	bind    string
	logger  *slog.Logger
	handler http.Handler

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
	done     chan struct{}
	stopOnce sync.Once
}

// New builds the router for session. Nothing listens until Start.
func New(session *workflow.Session, opts Options) *Server {
	s := &Server{
		session: session,
		prefs:   opts.Prefs,
		logs:    opts.Logs,
		bind:    strings.TrimSpace(opts.Bind),
		logger:  logging.NewComponentLogger(opts.Logger, "panel"),
		done:    make(chan struct{}),
	}

	r := mux.NewRouter()
	r.Use(recoverMiddleware(s.logger), requestIDMiddleware, authMiddleware(opts.Token))

	r.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	api.HandleFunc("/alerts", s.handleAlerts).Methods(http.MethodGet)
	api.HandleFunc("/gallery", s.handleGallery).Methods(http.MethodGet)
	api.HandleFunc("/logs", s.handleLogs).Methods(http.MethodGet)
	api.HandleFunc("/mode", s.handleMode).Methods(http.MethodPost)

	api.HandleFunc("/chat", s.handleChat).Methods(http.MethodPost)
	api.HandleFunc("/draw", s.handleDraw).Methods(http.MethodPost)
	api.HandleFunc("/voice", s.handleVoice).Methods(http.MethodPost)
	api.HandleFunc("/speak/{index:[0-9]+}", s.handleSpeak).Methods(http.MethodPost)

	api.HandleFunc("/studio/single", s.handleSingle).Methods(http.MethodPost)
	api.HandleFunc("/studio/carousel", s.handleCarousel).Methods(http.MethodPost)
	api.HandleFunc("/studio/agent", s.handleAgent).Methods(http.MethodPost)
	api.HandleFunc("/studio/agent/cancel", s.handleAgentCancel).Methods(http.MethodPost)
	api.HandleFunc("/studio/publish", s.handlePublish).Methods(http.MethodPost)
	api.HandleFunc("/studio/reset", s.handleReset(workflow.ModeStudio)).Methods(http.MethodPost)
	api.HandleFunc("/video", s.handleVideo).Methods(http.MethodPost)
	api.HandleFunc("/video/reset", s.handleReset(workflow.ModeVideo)).Methods(http.MethodPost)

	api.HandleFunc("/theme", s.handleTheme).Methods(http.MethodGet)
	api.HandleFunc("/theme", s.handleSetTheme).Methods(http.MethodPost)

	api.HandleFunc("/instagram/open", s.handleInstagramOpen).Methods(http.MethodPost)
	api.HandleFunc("/instagram/close", s.handleInstagramClose).Methods(http.MethodPost)
	api.HandleFunc("/instagram/tab", s.handleInstagramTab).Methods(http.MethodPost)
	api.HandleFunc("/instagram/graph", s.handleGraphStatus).Methods(http.MethodGet)
	api.HandleFunc("/instagram/graph", s.handleSaveGraph).Methods(http.MethodPost)
	api.HandleFunc("/instagram/credentials", s.handleCredentials).Methods(http.MethodPost)
	api.HandleFunc("/instagram/session/reset", s.handleSessionReset).Methods(http.MethodPost)
	api.HandleFunc("/instagram/imgbb", s.handleImgBB).Methods(http.MethodGet)
	api.HandleFunc("/instagram/imgbb", s.handleSaveImgBB).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	s.handler = r
	return s
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and serves until ctx is done or
// Stop is called.
func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.bind == "" {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("panel listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("panel server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("panel listening",
		logging.String("address", listener.Addr().String()),
		logging.Event("panel_listening"),
	)
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the listener down. Open websockets are closed with it.
func (s *Server) Stop() {
	if s == nil {
		return
	}
	s.stopOnce.Do(func() { close(s.done) })
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()
	if server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	_ = server.Close()
}
