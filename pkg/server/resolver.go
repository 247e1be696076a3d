package server

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/scenelink-dev/scenelink/pkg/protocol"
)

// pending couples a request with its eventual answer. The resolver writes
// reply before flipping the request's completion indicator; the session
// goroutine reads it only after observing ready, so the slot needs no lock.
type pending struct {
	req  protocol.Request
	sess *Session

	// revision is the store revision when the request arrived. Poll
	// requests wait for the store to move past it.
	revision uint64

	reply protocol.Message
}

// resolve answers one request on the scene-owning loop.
func (s *Server) resolve(ctx context.Context, p *pending) {
	ctx, span := s.tracer.Start(ctx, "request.resolve",
		trace.WithAttributes(
			attribute.String("request.kind", p.req.Kind().String()),
			attribute.Int("session.id", int(p.sess.ID)),
		))
	defer span.End()

	switch req := p.req.(type) {
	case *protocol.GetMessage:
		// The snapshot is opaque; aspect flags and refine settings are
		// forwarded to the producer when the server fetches, and echoed
		// back as-is when it serves its own store.
		p.reply = protocol.NewSetMessage(s.store.Snapshot())
		req.Complete()

	case *protocol.QueryMessage:
		resp := s.answerQuery(req)
		p.reply = resp
		req.Resolve(resp)

	case *protocol.ScreenshotMessage:
		p.reply = s.takeScreenshot(ctx, p)
		req.Complete()

	case *protocol.PollMessage:
		// Parking here would stall every other request; polls wait on
		// their own goroutine.
		go s.resolvePoll(p, req)
		return

	default:
		span.SetStatus(codes.Error, "unresolvable request kind")
		p.req.Complete()
		return
	}

	s.metrics.RequestsResolved.WithLabelValues(p.req.Kind().String()).Inc()
}

func (s *Server) answerQuery(req *protocol.QueryMessage) *protocol.ResponseMessage {
	switch req.Type {
	case protocol.QueryClientName:
		return protocol.NewResponseMessage(s.cfg.Name)
	case protocol.QueryRootNodes:
		return protocol.NewResponseMessage(s.store.RootNodes()...)
	case protocol.QueryAllNodes:
		return protocol.NewResponseMessage(s.store.AllNodes()...)
	default:
		return protocol.NewResponseMessage()
	}
}

// resolvePoll completes a Poll(SceneUpdate) once the store's revision moves
// past the revision the request arrived at.
func (s *Server) resolvePoll(p *pending, req *protocol.PollMessage) {
	if req.Type != protocol.PollSceneUpdate {
		req.Complete()
		return
	}
	if err := s.store.WaitForUpdate(p.sess.ctx, p.revision); err != nil {
		// Session closed while parked; complete so no waiter leaks.
		req.Complete()
		return
	}
	p.reply = protocol.NewTextMessage("scene updated", protocol.TextNormal)
	req.Complete()
	s.metrics.RequestsResolved.WithLabelValues(req.Kind().String()).Inc()
}

// takeScreenshot captures via the injected collaborator and persists the
// image if a store is configured. The answer names the stored location.
func (s *Server) takeScreenshot(ctx context.Context, p *pending) protocol.Message {
	if s.capture == nil {
		return protocol.NewTextMessage("screenshot capture not available", protocol.TextError)
	}

	img, err := s.capture(ctx)
	if err != nil {
		p.sess.log.Error("screenshot capture failed", "error", err)
		return protocol.NewTextMessage(
			fmt.Sprintf("screenshot capture failed: %v", err), protocol.TextError)
	}

	if s.shots == nil {
		return protocol.NewTextMessage("screenshot captured", protocol.TextNormal)
	}

	key := fmt.Sprintf("s%d-m%d.png", p.sess.ID, p.req.Header().MessageID)
	location, err := s.shots.Save(ctx, key, img)
	if err != nil {
		p.sess.log.Error("screenshot store failed", "error", err, "key", key)
		return protocol.NewTextMessage(
			fmt.Sprintf("screenshot store failed: %v", err), protocol.TextError)
	}
	return protocol.NewTextMessage(location, protocol.TextNormal)
}
