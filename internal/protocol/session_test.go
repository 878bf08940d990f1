package protocol

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/lilsweetcaligula/seneca-repl/internal/transport"
)

// fakeTransport is an in-memory Transport fed by the test.
type fakeTransport struct {
	chunks chan transport.Chunk

	mu     sync.Mutex
	writes [][]byte
	closed bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{chunks: make(chan transport.Chunk, 16)}
}

func (f *fakeTransport) Name() string                   { return "fake" }
func (f *fakeTransport) Open(context.Context) error     { return nil }
func (f *fakeTransport) Chunks() <-chan transport.Chunk { return f.chunks }

func (f *fakeTransport) Write(p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, append([]byte(nil), p...))
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) wrote(i int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i >= len(f.writes) {
		return ""
	}
	return string(f.writes[i])
}

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestConnectHandshake(t *testing.T) {
	tr := newFakeTransport()
	tr.chunks <- transport.Chunk{Data: []byte("[{\"id\":\"web-1\"}]\x00")}

	sess, err := Connect(context.Background(), tr, testLogger())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer sess.Close()

	if got := tr.wrote(0); got != Greeting {
		t.Errorf("first write = %q, want greeting %q", got, Greeting)
	}
	if sess.ID().ID != "web-1" {
		t.Errorf("remote id = %q, want web-1", sess.ID().ID)
	}
}

func TestConnectHandshakeSplitAcrossChunks(t *testing.T) {
	tr := newFakeTransport()
	tr.chunks <- transport.Chunk{Data: []byte("[{\"id\":")}
	tr.chunks <- transport.Chunk{Data: []byte("\"web-1\"}]\x00")}

	sess, err := Connect(context.Background(), tr, testLogger())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer sess.Close()

	if sess.ID().ID != "web-1" {
		t.Errorf("remote id = %q, want web-1", sess.ID().ID)
	}
}

func TestConnectBadHandshakeIsFatal(t *testing.T) {
	tr := newFakeTransport()
	tr.chunks <- transport.Chunk{Data: []byte("garbage\x00")}

	_, err := Connect(context.Background(), tr, testLogger())
	var hs *HandshakeError
	if !errors.As(err, &hs) {
		t.Fatalf("error is %T (%v), want *HandshakeError", err, err)
	}
	if !tr.isClosed() {
		t.Error("transport should be closed after a failed handshake")
	}
}

func TestSessionFramesCollapseTrailingNewlines(t *testing.T) {
	tr := newFakeTransport()
	tr.chunks <- transport.Chunk{Data: []byte("[{\"id\":\"web-1\"}]\x00")}

	sess, err := Connect(context.Background(), tr, testLogger())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer sess.Close()

	tests := []struct {
		raw  string
		want string
	}{
		{"pong\n\n\n\x00", "pong\n"},
		{"no newline\x00", "no newline\n"},
		{"crlf\r\n\x00", "crlf\n"},
	}
	for _, tt := range tests {
		tr.chunks <- transport.Chunk{Data: []byte(tt.raw)}
		select {
		case got := <-sess.Frames():
			if got != tt.want {
				t.Errorf("frame for %q = %q, want %q", tt.raw, got, tt.want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timeout waiting for frame of %q", tt.raw)
		}
	}
}

func TestSessionSendLine(t *testing.T) {
	tr := newFakeTransport()
	tr.chunks <- transport.Chunk{Data: []byte("[{\"id\":\"web-1\"}]\x00")}

	sess, err := Connect(context.Background(), tr, testLogger())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer sess.Close()

	if err := sess.SendLine("role:seneca,cmd:stats"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := tr.wrote(1); got != "role:seneca,cmd:stats\n" {
		t.Errorf("sent %q, want newline-terminated line", got)
	}
}

func TestSessionEndsOnTransportError(t *testing.T) {
	tr := newFakeTransport()
	tr.chunks <- transport.Chunk{Data: []byte("[{\"id\":\"web-1\"}]\x00")}

	sess, err := Connect(context.Background(), tr, testLogger())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	tr.chunks <- transport.Chunk{Err: io.ErrUnexpectedEOF}
	select {
	case <-sess.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for session end")
	}
	if !errors.Is(sess.Err(), io.ErrUnexpectedEOF) {
		t.Errorf("err = %v, want %v", sess.Err(), io.ErrUnexpectedEOF)
	}
}

func TestSessionEndsOnChunkChannelClose(t *testing.T) {
	tr := newFakeTransport()
	tr.chunks <- transport.Chunk{Data: []byte("[{\"id\":\"web-1\"}]\x00")}

	sess, err := Connect(context.Background(), tr, testLogger())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	close(tr.chunks)
	select {
	case <-sess.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for session end")
	}
	if !errors.Is(sess.Err(), io.EOF) {
		t.Errorf("err = %v, want io.EOF", sess.Err())
	}
}
