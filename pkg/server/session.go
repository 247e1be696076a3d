package server

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/scenelink-dev/scenelink/pkg/protocol"
	"github.com/scenelink-dev/scenelink/pkg/scene"
)

// Session is one producer connection. The read loop owns inbound decode and
// dispatch; writes from the read loop and from request-reply goroutines
// serialize on writeMu.
type Session struct {
	ID int32

	srv    *Server
	conn   *websocket.Conn
	log    *slog.Logger
	stager *scene.Stager

	ctx    context.Context
	cancel context.CancelFunc

	writeMu   sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once

	createdAt time.Time
}

func (s *Server) newSession(conn *websocket.Conn) *Session {
	id := s.nextSID.Add(1)
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		ID:        id,
		srv:       s,
		conn:      conn,
		log:       s.log.With("session", id),
		stager:    scene.NewStager(),
		ctx:       ctx,
		cancel:    cancel,
		createdAt: time.Now(),
	}
}

// Close tears the session down: staged state is discarded, parked waiters are
// cancelled, the connection closes.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.cancel()
		s.stager.Abort()
		s.conn.Close()
		s.srv.dropSession(s)
		s.log.Info("session closed", "uptime", time.Since(s.createdAt))
	})
}

// reply writes a message answering req: same session, same message id, so the
// issuer can correlate.
func (s *Session) reply(req *protocol.Header, m protocol.Message) {
	h := m.Header()
	h.SessionID = req.SessionID
	h.MessageID = req.MessageID
	s.write(m)
}

// notify writes a server-initiated message. Notifications carry message id 0,
// disjoint from the request id space (issuers start at 1), so the peer can
// never mistake one for the answer to a parked request.
func (s *Session) notify(m protocol.Message) {
	h := m.Header()
	h.SessionID = s.ID
	h.MessageID = 0
	s.write(m)
}

func (s *Session) write(m protocol.Message) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.closed.Load() {
		return
	}

	m.Header().Stamp()
	f := &protocol.Frame{Kind: m.Kind(), Payload: protocol.EncodeMessage(m)}
	data := f.Encode()

	s.conn.SetWriteDeadline(time.Now().Add(s.srv.cfg.WriteTimeout))
	if err := s.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		s.log.Error("write error", "error", err, "kind", m.Kind())
		go s.Close()
		return
	}
	s.srv.metrics.MessagesSent.WithLabelValues(m.Kind().String()).Inc()
	s.srv.metrics.BytesSent.Add(float64(len(data)))
}

// sendText sends a diagnostic back to the producer.
func (s *Session) sendText(text string, severity protocol.TextSeverity) {
	s.notify(protocol.NewTextMessage(text, severity))
}

// WriteLoop sends WebSocket-level pings until the session closes.
func (s *Session) WriteLoop() {
	ticker := time.NewTicker(s.srv.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.writeMu.Lock()
			s.conn.SetWriteDeadline(time.Now().Add(s.srv.cfg.WriteTimeout))
			err := s.conn.WriteMessage(websocket.PingMessage, nil)
			s.writeMu.Unlock()
			if err != nil {
				s.Close()
				return
			}
		case <-s.ctx.Done():
			return
		}
	}
}
