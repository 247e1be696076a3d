// Package client implements the producer endpoint of a SceneLink channel:
// the side holding scene state in a DCC application. It pushes fenced scene
// updates and diagnostics, and issues request messages whose answers arrive
// asynchronously, correlated by message id.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/scenelink-dev/scenelink/pkg/protocol"
)

// ErrClosed reports an operation on a closed client.
var ErrClosed = errors.New("client: connection closed")

// Client is one producer session. Safe for concurrent use; writes serialize
// on an internal lock, reads happen on a single loop goroutine.
type Client struct {
	conn *websocket.Conn
	log  *slog.Logger

	sessionID int32
	nextID    atomic.Int32

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[int32]*pendingReq

	done      chan struct{}
	closeOnce sync.Once

	onText       func(*protocol.TextMessage)
	writeTimeout time.Duration
}

// pendingReq couples an issued request with its eventual answer. The read
// loop writes reply before completing the request.
type pendingReq struct {
	req   protocol.Request
	reply protocol.Message
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// WithTextHandler receives unsolicited Text diagnostics from the peer.
// Without one they are logged.
func WithTextHandler(fn func(*protocol.TextMessage)) Option {
	return func(c *Client) {
		c.onText = fn
	}
}

// WithWriteTimeout bounds one WebSocket write. Default 10s.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.writeTimeout = d
	}
}

// Dial connects to a SceneLink server endpoint (ws://host/scenelink) and
// starts the read loop. The session id is chosen locally and carried on
// every message.
func Dial(ctx context.Context, url string, opts ...Option) (*Client, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", url, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	c := &Client{
		conn:         conn,
		log:          slog.Default(),
		sessionID:    rand.Int31(),
		pending:      make(map[int32]*pendingReq),
		done:         make(chan struct{}),
		writeTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("session", c.sessionID)

	go c.readLoop()
	return c, nil
}

// SessionID returns the locally chosen session identifier.
func (c *Client) SessionID() int32 {
	return c.sessionID
}

// Close tears down the connection. Parked Await callers unblock via their
// contexts; late resolutions into abandoned requests are harmless.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

// Send stamps and writes one message. The message must not be mutated after
// Send returns.
func (c *Client) Send(m protocol.Message) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	h := m.Header()
	h.SessionID = c.sessionID
	if h.MessageID == 0 {
		h.MessageID = c.nextID.Add(1)
	}
	h.Stamp()

	f := &protocol.Frame{Kind: m.Kind(), Payload: protocol.EncodeMessage(m)}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	if err := c.conn.WriteMessage(websocket.BinaryMessage, f.Encode()); err != nil {
		return fmt.Errorf("client: write %v: %w", m.Kind(), err)
	}
	return nil
}

// Issue registers a request for answer correlation and sends it. Use Await
// to block for the answer.
func (c *Client) Issue(req protocol.Request) error {
	h := req.Header()
	if h.MessageID == 0 {
		h.MessageID = c.nextID.Add(1)
	}

	p := &pendingReq{req: req}
	c.mu.Lock()
	c.pending[h.MessageID] = p
	c.mu.Unlock()

	if err := c.Send(req); err != nil {
		c.mu.Lock()
		delete(c.pending, h.MessageID)
		c.mu.Unlock()
		return err
	}
	return nil
}

// Await blocks until the issued request resolves or ctx is cancelled, and
// returns the answer message. A cancelled Await abandons the request; the
// read loop resolving it later is harmless.
func (c *Client) Await(ctx context.Context, req protocol.Request) (protocol.Message, error) {
	if err := protocol.Await(ctx, req); err != nil {
		return nil, err
	}

	c.mu.Lock()
	p := c.pending[req.Header().MessageID]
	delete(c.pending, req.Header().MessageID)
	c.mu.Unlock()

	if p == nil {
		return nil, fmt.Errorf("client: request %d not issued here", req.Header().MessageID)
	}
	return p.reply, nil
}

// Query issues a Query and blocks for its Response lines.
func (c *Client) Query(ctx context.Context, qt protocol.QueryType) ([]string, error) {
	q := protocol.NewQueryMessage(qt)
	if err := c.Issue(q); err != nil {
		return nil, err
	}
	if _, err := c.Await(ctx, q); err != nil {
		return nil, err
	}
	resp := q.Response()
	if resp == nil {
		return nil, fmt.Errorf("client: query %v resolved without a response", qt)
	}
	return resp.Text, nil
}

// SendText sends a one-way diagnostic.
func (c *Client) SendText(text string, severity protocol.TextSeverity) error {
	return c.Send(protocol.NewTextMessage(text, severity))
}

// SendSceneUpdate emits one fenced transaction: SceneBegin, the snapshots and
// removals, SceneEnd. The receiver applies it atomically.
func (c *Client) SendSceneUpdate(snapshots [][]byte, removals *protocol.DeleteMessage) error {
	if err := c.Send(protocol.NewFenceMessage(protocol.FenceSceneBegin)); err != nil {
		return err
	}
	for _, snap := range snapshots {
		if err := c.Send(protocol.NewSetMessage(snap)); err != nil {
			return err
		}
	}
	if removals != nil && !removals.Empty() {
		if err := c.Send(removals); err != nil {
			return err
		}
	}
	return c.Send(protocol.NewFenceMessage(protocol.FenceSceneEnd))
}

// readLoop decodes inbound messages and resolves pending requests by message
// id. Unsolicited Text goes to the text handler.
func (c *Client) readLoop() {
	defer c.Close()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					c.log.Error("read error", "error", err)
				}
			}
			return
		}

		msg, err := protocol.ReadMessage(bytes.NewReader(data))
		if err != nil {
			var vm *protocol.VersionMismatchError
			if errors.As(err, &vm) {
				c.log.Error("protocol version mismatch", "peer", vm.Got, "compiled", vm.Want)
			} else {
				c.log.Error("decode error", "error", err)
			}
			return
		}

		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg protocol.Message) {
	// Message id 0 is the notification space: server-initiated messages,
	// never an answer. Issued request ids start at 1.
	var p *pendingReq
	if id := msg.Header().MessageID; id != 0 {
		c.mu.Lock()
		p = c.pending[id]
		c.mu.Unlock()
	}

	if p != nil {
		p.reply = msg
		// Resolve after the reply slot is written: completion is the
		// synchronization point for Await.
		if q, ok := p.req.(*protocol.QueryMessage); ok {
			if resp, ok := msg.(*protocol.ResponseMessage); ok {
				q.Resolve(resp)
				return
			}
		}
		p.req.Complete()
		return
	}

	if text, ok := msg.(*protocol.TextMessage); ok {
		if c.onText != nil {
			c.onText(text)
			return
		}
		c.log.Info("peer diagnostic", "severity", text.Severity, "text", text.Text)
		return
	}

	c.log.Warn("unsolicited message", "kind", msg.Kind(), "message_id", msg.Header().MessageID)
}
