// Package web serves the chat widget: a page with the toggle control and
// panel, JSON endpoints for panel events, and a websocket that pushes every
// rendered View.
package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/diogo/waychat/internal/api"
	"github.com/diogo/waychat/internal/panel"
)

const (
	sessionCookie     = "waychat_session"
	defaultSessionTTL = 24 * time.Hour
	maxBodyBytes      = 64 << 10
)

// Options configures a Server
type Options struct {
	Addr         string
	Client       api.Completer
	SystemPrompt string
	Model        string // reported in exports
	SessionTTL   time.Duration
	Logger       zerolog.Logger
}

type session struct {
	id       string
	ctrl     *panel.Controller
	lastSeen time.Time
}

// Server hosts one panel.Controller per browser session
type Server struct {
	opts   Options
	logger zerolog.Logger
	mux    *http.ServeMux
	server *http.Server

	mu       sync.Mutex
	sessions map[string]*session
	addr     string

	// done is closed by Stop; websocket loops watch it because Shutdown
	// does not track hijacked connections.
	done     chan struct{}
	stopOnce sync.Once

	// baseCtx parents every request context and is cancelled when a
	// graceful shutdown runs out of time.
	baseCtx    context.Context
	cancelBase context.CancelFunc

	now func() time.Time
}

// NewServer creates a server; call Start to listen or use Handler directly.
func NewServer(opts Options) *Server {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = defaultSessionTTL
	}

	s := &Server{
		opts:     opts,
		logger:   opts.Logger.With().Str("component", "web").Logger(),
		sessions: make(map[string]*session),
		done:     make(chan struct{}),
		now:      time.Now,
	}
	s.baseCtx, s.cancelBase = context.WithCancel(context.Background())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux = http.NewServeMux()
	s.mux.HandleFunc("GET /{$}", s.handlePage)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("POST /chat/toggle", s.handleToggle)
	s.mux.HandleFunc("POST /chat/click", s.handleClick)
	s.mux.HandleFunc("POST /chat/send", s.handleSend)
	s.mux.HandleFunc("GET /chat/view", s.handleView)
	s.mux.HandleFunc("GET /chat/export", s.handleExport)
	s.mux.HandleFunc("GET /chat/ws", s.handleWebsocket)
}

// Handler returns the HTTP handler with request logging applied
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// Start listens on Options.Addr and serves in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}

	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return s.baseCtx },
	}

	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	s.logger.Info().Str("addr", s.Addr()).Msg("widget server started")

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("widget server error")
		}
	}()
	return nil
}

// Addr returns the address the server listens on, or "" before Start
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Stop closes every websocket and shuts the listener down, waiting for
// in-flight requests until ctx ends. Requests still running at that point
// have their context cancelled and their connections closed, and ctx's
// error is returned.
func (s *Server) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.done) })
	if s.server == nil {
		return nil
	}

	s.logger.Info().Msg("widget server stopping")
	if err := s.server.Shutdown(ctx); err != nil {
		s.cancelBase()
		_ = s.server.Close()
		return err
	}
	s.cancelBase()
	return nil
}

// SessionCount returns the number of live sessions
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// session returns the caller's session, creating one (and setting the
// cookie) when the request carries none or an unknown id.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *session {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if cookie, err := r.Cookie(sessionCookie); err == nil {
		if sess, ok := s.sessions[cookie.Value]; ok {
			sess.lastSeen = now
			return sess
		}
	}

	s.sweepLocked(now)

	id := uuid.NewString()
	sess := &session{
		id: id,
		ctrl: panel.New(s.opts.Client, s.opts.SystemPrompt,
			panel.WithLogger(s.logger.With().Str("session", id).Logger())),
		lastSeen: now,
	}
	s.sessions[id] = sess

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(s.opts.SessionTTL.Seconds()),
	})

	s.logger.Debug().Str("session", id).Msg("session created")
	return sess
}

func (s *Server) sweepLocked(now time.Time) {
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.opts.SessionTTL {
			delete(s.sessions, id)
			s.logger.Debug().Str("session", id).Msg("session expired")
		}
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}
