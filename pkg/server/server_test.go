package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/scenelink-dev/scenelink/pkg/client"
	"github.com/scenelink-dev/scenelink/pkg/protocol"
	"github.com/scenelink-dev/scenelink/pkg/scene"
)

// lineIndexer treats a snapshot as newline-separated node paths.
var lineIndexer = scene.IndexerFunc(func(snapshot []byte) []string {
	var nodes []string
	for _, line := range strings.Split(string(snapshot), "\n") {
		if line != "" {
			nodes = append(nodes, line)
		}
	}
	return nodes
})

func newTestServer(t *testing.T, opts ...Option) (*Server, string) {
	t.Helper()

	cfg := Config{
		Name:     "test-receiver",
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Registry: prometheus.NewRegistry(),
	}
	s := New(cfg, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})
	return s, "ws" + strings.TrimPrefix(ts.URL, "http") + "/scenelink"
}

func dialTest(t *testing.T, url string, opts ...client.Option) *client.Client {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	opts = append(opts, client.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	c, err := client.Dial(ctx, url, opts...)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestFencedUpdateApplied(t *testing.T) {
	s, url := newTestServer(t)
	c := dialTest(t, url)

	removals := protocol.NewDeleteMessage()
	removals.Entities = []protocol.Identifier{{Name: "/gone", ID: 7}}

	err := c.SendSceneUpdate([][]byte{[]byte("first"), []byte("second")}, removals)
	if err != nil {
		t.Fatalf("SendSceneUpdate: %v", err)
	}

	if err := s.Store().WaitForUpdate(testContext(t), 0); err != nil {
		t.Fatalf("update never applied: %v", err)
	}
	if got := string(s.Store().Snapshot()); got != "second" {
		t.Errorf("Snapshot() = %q, want %q", got, "second")
	}
	if rev := s.Store().Revision(); rev != 1 {
		t.Errorf("Revision() = %d, want 1 (one fenced transaction, one revision)", rev)
	}
}

func TestMutationOutsideFenceRejected(t *testing.T) {
	s, url := newTestServer(t)

	diags := make(chan *protocol.TextMessage, 1)
	c := dialTest(t, url, client.WithTextHandler(func(m *protocol.TextMessage) {
		select {
		case diags <- m:
		default:
		}
	}))

	if err := c.Send(protocol.NewSetMessage([]byte("stray"))); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case m := <-diags:
		if m.Severity != protocol.TextError {
			t.Errorf("diagnostic severity = %v, want TextError", m.Severity)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no rejection diagnostic for a Set outside a fence")
	}

	if rev := s.Store().Revision(); rev != 0 {
		t.Errorf("Revision() = %d after rejected Set, want 0", rev)
	}
}

func TestStrayFenceEndRejected(t *testing.T) {
	s, url := newTestServer(t)

	diags := make(chan *protocol.TextMessage, 1)
	c := dialTest(t, url, client.WithTextHandler(func(m *protocol.TextMessage) {
		select {
		case diags <- m:
		default:
		}
	}))

	if err := c.Send(protocol.NewFenceMessage(protocol.FenceSceneEnd)); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case <-diags:
	case <-time.After(5 * time.Second):
		t.Fatal("no rejection diagnostic for a stray SceneEnd")
	}

	// The connection stays usable: a proper transaction still applies.
	if err := c.SendSceneUpdate([][]byte{[]byte("after")}, nil); err != nil {
		t.Fatalf("SendSceneUpdate after violation: %v", err)
	}
	if err := s.Store().WaitForUpdate(testContext(t), 0); err != nil {
		t.Fatalf("update never applied after violation: %v", err)
	}
}

func TestQueryClientName(t *testing.T) {
	_, url := newTestServer(t)
	c := dialTest(t, url)

	lines, err := c.Query(testContext(t), protocol.QueryClientName)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(lines) != 1 || lines[0] != "test-receiver" {
		t.Errorf("Query(ClientName) = %v, want [test-receiver]", lines)
	}
}

func TestQueryNodes(t *testing.T) {
	s, url := newTestServer(t, WithIndexer(lineIndexer))
	c := dialTest(t, url)

	err := c.SendSceneUpdate([][]byte{[]byte("/root\n/root/child\n/other")}, nil)
	if err != nil {
		t.Fatalf("SendSceneUpdate: %v", err)
	}
	if err := s.Store().WaitForUpdate(testContext(t), 0); err != nil {
		t.Fatalf("update never applied: %v", err)
	}

	all, err := c.Query(testContext(t), protocol.QueryAllNodes)
	if err != nil {
		t.Fatalf("Query(AllNodes): %v", err)
	}
	wantAll := []string{"/other", "/root", "/root/child"}
	if len(all) != len(wantAll) {
		t.Fatalf("Query(AllNodes) = %v, want %v", all, wantAll)
	}
	for i := range wantAll {
		if all[i] != wantAll[i] {
			t.Errorf("AllNodes[%d] = %q, want %q", i, all[i], wantAll[i])
		}
	}

	roots, err := c.Query(testContext(t), protocol.QueryRootNodes)
	if err != nil {
		t.Fatalf("Query(RootNodes): %v", err)
	}
	if len(roots) != 2 || roots[0] != "/other" || roots[1] != "/root" {
		t.Errorf("Query(RootNodes) = %v, want [/other /root]", roots)
	}
}

func TestGetReturnsSnapshot(t *testing.T) {
	s, url := newTestServer(t)
	c := dialTest(t, url)

	if err := c.SendSceneUpdate([][]byte{[]byte("the scene")}, nil); err != nil {
		t.Fatalf("SendSceneUpdate: %v", err)
	}
	if err := s.Store().WaitForUpdate(testContext(t), 0); err != nil {
		t.Fatalf("update never applied: %v", err)
	}

	get := protocol.NewGetMessage()
	get.Flags = protocol.GetEverything
	if err := c.Issue(get); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	reply, err := c.Await(testContext(t), get)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	set, ok := reply.(*protocol.SetMessage)
	if !ok {
		t.Fatalf("Get answered with %T, want *SetMessage", reply)
	}
	if string(set.Scene) != "the scene" {
		t.Errorf("answered scene = %q, want %q", set.Scene, "the scene")
	}
	if set.Header().MessageID != get.Header().MessageID {
		t.Errorf("answer message id = %d, want %d (echoed for correlation)",
			set.Header().MessageID, get.Header().MessageID)
	}
}

func TestScreenshotSavedToDir(t *testing.T) {
	dir := t.TempDir()
	png := []byte("\x89PNG fake")

	_, url := newTestServer(t,
		WithCapture(func(context.Context) ([]byte, error) { return png, nil }),
		WithScreenshotStore(&DirStore{Dir: dir}),
	)
	c := dialTest(t, url)

	shot := protocol.NewScreenshotMessage()
	if err := c.Issue(shot); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	reply, err := c.Await(testContext(t), shot)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	text, ok := reply.(*protocol.TextMessage)
	if !ok {
		t.Fatalf("Screenshot answered with %T, want *TextMessage", reply)
	}
	if text.Severity != protocol.TextNormal {
		t.Fatalf("answer severity = %v, text = %q", text.Severity, text.Text)
	}

	data, err := os.ReadFile(text.Text)
	if err != nil {
		t.Fatalf("reading stored screenshot %q: %v", text.Text, err)
	}
	if string(data) != string(png) {
		t.Errorf("stored bytes differ from captured bytes")
	}
}

func TestScreenshotWithoutCapture(t *testing.T) {
	_, url := newTestServer(t)
	c := dialTest(t, url)

	shot := protocol.NewScreenshotMessage()
	if err := c.Issue(shot); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	reply, err := c.Await(testContext(t), shot)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	text, ok := reply.(*protocol.TextMessage)
	if !ok {
		t.Fatalf("Screenshot answered with %T, want *TextMessage", reply)
	}
	if text.Severity != protocol.TextError {
		t.Errorf("answer severity = %v, want TextError", text.Severity)
	}
}

func TestPollWakesOnSceneUpdate(t *testing.T) {
	_, url := newTestServer(t)
	watcher := dialTest(t, url)
	producer := dialTest(t, url)

	poll := protocol.NewPollMessage(protocol.PollSceneUpdate)
	if err := watcher.Issue(poll); err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// The poll must still be parked when the update lands.
	awaitCtx := testContext(t)
	var woke sync.WaitGroup
	woke.Add(1)
	var reply protocol.Message
	var awaitErr error
	go func() {
		defer woke.Done()
		reply, awaitErr = watcher.Await(awaitCtx, poll)
	}()

	select {
	case <-poll.Done():
		t.Fatal("poll completed before any update")
	case <-time.After(100 * time.Millisecond):
	}

	if err := producer.SendSceneUpdate([][]byte{[]byte("news")}, nil); err != nil {
		t.Fatalf("SendSceneUpdate: %v", err)
	}

	woke.Wait()
	if awaitErr != nil {
		t.Fatalf("Await: %v", awaitErr)
	}
	if _, ok := reply.(*protocol.TextMessage); !ok {
		t.Errorf("poll answered with %T, want *TextMessage", reply)
	}
}

func TestDiagnosticDoesNotResolveParkedRequest(t *testing.T) {
	_, url := newTestServer(t)

	diags := make(chan *protocol.TextMessage, 1)
	c := dialTest(t, url, client.WithTextHandler(func(m *protocol.TextMessage) {
		select {
		case diags <- m:
		default:
		}
	}))

	poll := protocol.NewPollMessage(protocol.PollSceneUpdate)
	if err := c.Issue(poll); err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Provoke a rejection diagnostic while the poll is parked. Its message
	// id must not land on the poll's.
	if err := c.Send(protocol.NewSetMessage([]byte("stray"))); err != nil {
		t.Fatalf("Send: %v", err)
	}

	var diag *protocol.TextMessage
	select {
	case diag = <-diags:
	case <-time.After(5 * time.Second):
		t.Fatal("rejection diagnostic never delivered")
	}
	if diag.Header().MessageID != 0 {
		t.Errorf("diagnostic message id = %d, want 0 (notification space)", diag.Header().MessageID)
	}

	select {
	case <-poll.Done():
		t.Fatal("poll resolved by an unrelated diagnostic; no scene update was applied")
	case <-time.After(100 * time.Millisecond):
	}

	// A real update still completes it.
	if err := c.SendSceneUpdate([][]byte{[]byte("news")}, nil); err != nil {
		t.Fatalf("SendSceneUpdate: %v", err)
	}
	if _, err := c.Await(testContext(t), poll); err != nil {
		t.Fatalf("Await after update: %v", err)
	}
}

func TestHandlerEndpoints(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	for _, path := range []string{"/healthz", "/metrics"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, resp.StatusCode)
		}
	}
}
