package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/scenelink-dev/scenelink/pkg/scene"
)

// Server is the consumer endpoint: it owns the scene store, the resolver
// loop, and all live sessions.
type Server struct {
	cfg     Config
	log     *slog.Logger
	store   *scene.Store
	metrics *Metrics
	tracer  trace.Tracer

	capture CaptureFunc
	shots   ScreenshotStore

	upgrader websocket.Upgrader
	requests chan *pending

	mu       sync.Mutex
	sessions map[int32]*Session
	nextSID  atomic.Int32
}

// Option configures a Server beyond its Config.
type Option func(*Server)

// WithCapture sets the screenshot capture collaborator.
func WithCapture(fn CaptureFunc) Option {
	return func(s *Server) {
		s.capture = fn
	}
}

// WithScreenshotStore sets where captured screenshots are persisted.
func WithScreenshotStore(store ScreenshotStore) Option {
	return func(s *Server) {
		s.shots = store
	}
}

// WithIndexer forwards a snapshot indexer to the scene store, enabling
// RootNodes/AllNodes query answers.
func WithIndexer(ix scene.Indexer) Option {
	return func(s *Server) {
		s.store = scene.NewStore(scene.WithIndexer(ix))
	}
}

// New creates a Server. Run must be started before connections are accepted.
func New(cfg Config, opts ...Option) *Server {
	cfg = cfg.withDefaults()
	s := &Server{
		cfg:     cfg,
		log:     cfg.Logger,
		store:   scene.NewStore(),
		metrics: newMetrics(cfg.Registry),
		tracer:  otel.Tracer("scenelink/server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			// The producer is a desktop application, not a browser;
			// origin checks do not apply.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		requests: make(chan *pending, cfg.RequestQueue),
		sessions: make(map[int32]*Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the scene store the server applies updates to.
func (s *Server) Store() *scene.Store {
	return s.store
}

// Handler returns the HTTP surface: the WebSocket endpoint, a health probe,
// and Prometheus metrics.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/scenelink", s.handleWS)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics",
		promhttp.HandlerFor(s.cfg.Registry, promhttp.HandlerOpts{}))
	return r
}

// Run drives the scene-owning resolver loop until ctx is cancelled. All
// request kinds resolve here, one at a time, so resolvers observe a
// consistent store.
func (s *Server) Run(ctx context.Context) error {
	for {
		select {
		case p := <-s.requests:
			s.resolve(ctx, p)
		case <-ctx.Done():
			s.closeAll()
			return ctx.Err()
		}
	}
}

// handleWS upgrades the connection and runs the session read loop.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	sess := s.newSession(conn)
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	s.metrics.ActiveSessions.Inc()

	sess.log.Info("session opened", "remote", r.RemoteAddr)

	go sess.WriteLoop()
	sess.ReadLoop()
}

func (s *Server) dropSession(sess *Session) {
	s.mu.Lock()
	_, live := s.sessions[sess.ID]
	delete(s.sessions, sess.ID)
	s.mu.Unlock()
	if live {
		s.metrics.ActiveSessions.Dec()
	}
}

func (s *Server) closeAll() {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()
	for _, sess := range sessions {
		sess.Close()
	}
}

// enqueue hands a request to the resolver loop without blocking the caller's
// read loop.
func (s *Server) enqueue(p *pending) bool {
	select {
	case s.requests <- p:
		return true
	default:
		return false
	}
}

// applyUpdate applies one fenced scene update atomically.
func (s *Server) applyUpdate(ctx context.Context, sess *Session, u *scene.Update) {
	_, span := s.tracer.Start(ctx, "scene.apply",
		trace.WithAttributes(
			attribute.Int("session.id", int(sess.ID)),
			attribute.Int("update.sets", u.Sets),
			attribute.Int("update.deletes", u.Deletes),
		))
	defer span.End()

	rev := s.store.Apply(u)
	s.metrics.UpdatesApplied.Inc()
	span.SetAttributes(attribute.Int64("scene.revision", int64(rev)))
	sess.log.Info("scene update applied",
		"revision", rev, "sets", u.Sets, "deletes", u.Deletes)
}
