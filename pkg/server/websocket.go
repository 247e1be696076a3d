package server

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/scenelink-dev/scenelink/pkg/protocol"
)

// ReadLoop reads frames until the connection closes or the stream
// desynchronizes. Each WebSocket binary message carries exactly one frame.
func (s *Session) ReadLoop() {
	defer s.Close()

	for {
		s.conn.SetReadDeadline(time.Now().Add(s.srv.cfg.ReadTimeout))

		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.log.Error("read error", "error", err)
			}
			return
		}
		s.srv.metrics.BytesReceived.Add(float64(len(data)))

		msg, err := protocol.ReadMessage(bytes.NewReader(data))
		if err != nil {
			if !s.handleDecodeError(err) {
				return
			}
			continue
		}

		s.srv.metrics.MessagesReceived.WithLabelValues(msg.Kind().String()).Inc()
		s.dispatch(msg)
	}
}

// handleDecodeError classifies a decode failure. Returns true if the
// connection may continue reading.
func (s *Session) handleDecodeError(err error) bool {
	var vm *protocol.VersionMismatchError
	if errors.As(err, &vm) {
		// Incompatible peer. The frame boundary is intact, but nothing
		// this peer sends will decode; surface it and hang up.
		s.srv.metrics.DecodeErrors.WithLabelValues("version_mismatch").Inc()
		s.log.Error("protocol version mismatch", "peer", vm.Got, "compiled", vm.Want)
		s.sendText(vm.Error(), protocol.TextError)
		return false
	}

	if protocol.IsDesync(err) {
		s.srv.metrics.DecodeErrors.WithLabelValues("desync").Inc()
		s.log.Error("stream desynchronized, closing", "error", err)
		return false
	}

	s.srv.metrics.DecodeErrors.WithLabelValues("other").Inc()
	s.log.Error("decode error", "error", err)
	return false
}

func (s *Session) dispatch(msg protocol.Message) {
	switch m := msg.(type) {
	case *protocol.FenceMessage:
		s.handleFence(m)

	case *protocol.SetMessage:
		if err := s.stager.Set(m); err != nil {
			s.fenceViolation(m.Header(), err)
		}

	case *protocol.DeleteMessage:
		if err := s.stager.Delete(m); err != nil {
			s.fenceViolation(m.Header(), err)
		}

	case *protocol.TextMessage:
		s.logText(m)

	case protocol.Request:
		s.handleRequest(m)

	case *protocol.ResponseMessage:
		// Producers answer queries the server issues over a client
		// endpoint, not over this inbound path.
		s.log.Warn("unsolicited response", "message_id", m.Header().MessageID)

	default:
		s.log.Warn("unhandled message kind", "kind", msg.Kind())
	}
}

// handleFence advances the per-session transaction guard. Sequencing
// violations reject the message but keep the connection: the stream framing
// is still intact.
func (s *Session) handleFence(m *protocol.FenceMessage) {
	switch m.Type {
	case protocol.FenceSceneBegin:
		if err := s.stager.Begin(); err != nil {
			s.fenceViolation(m.Header(), err)
		}
	case protocol.FenceSceneEnd:
		u, err := s.stager.End()
		if err != nil {
			s.fenceViolation(m.Header(), err)
			return
		}
		s.srv.applyUpdate(s.ctx, s, u)
	}
}

func (s *Session) fenceViolation(h *protocol.Header, err error) {
	s.srv.metrics.FenceViolations.Inc()
	s.log.Warn("fence sequencing violation", "error", err, "message_id", h.MessageID)
	s.sendText(err.Error(), protocol.TextError)
}

func (s *Session) logText(m *protocol.TextMessage) {
	switch m.Severity {
	case protocol.TextError:
		s.log.Error("producer diagnostic", "text", m.Text)
	case protocol.TextWarning:
		s.log.Warn("producer diagnostic", "text", m.Text)
	default:
		s.log.Info("producer diagnostic", "text", m.Text)
	}
}

// handleRequest queues a request for the scene-owning resolver and parks a
// goroutine on its completion indicator. The resolver writes the answer into
// the pending slot before completing, so the waiter reads it safely after
// Await returns.
func (s *Session) handleRequest(req protocol.Request) {
	p := &pending{req: req, sess: s, revision: s.srv.store.Revision()}

	if !s.srv.enqueue(p) {
		s.log.Warn("resolver queue full, rejecting request", "kind", req.Kind())
		s.reply(req.Header(), protocol.NewTextMessage(
			fmt.Sprintf("server busy, %v request dropped", req.Kind()), protocol.TextError))
		return
	}

	go func() {
		if err := protocol.Await(s.ctx, req); err != nil {
			// Session gone; the resolver completing later writes into
			// an abandoned request, which is harmless.
			return
		}
		if p.reply != nil {
			s.reply(req.Header(), p.reply)
		}
	}()
}
