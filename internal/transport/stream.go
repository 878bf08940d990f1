package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/lilsweetcaligula/seneca-repl/internal/target"
)

const dialTimeout = 6 * time.Second

// Stream is the persistent byte-stream variant: one TCP connection, bytes
// flowing in both directions with no inherent framing. Reads happen on a
// background goroutine feeding the chunk channel; writes are serialized.
type Stream struct {
	dest target.Destination
	log  *slog.Logger

	conn      net.Conn
	chunks    chan Chunk
	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

func NewStream(dest target.Destination, log *slog.Logger) *Stream {
	return &Stream{
		dest:   dest,
		log:    log.With("component", "transport", "variant", "stream"),
		chunks: make(chan Chunk, chunkBacklog),
		done:   make(chan struct{}),
	}
}

func (s *Stream) Name() string { return "stream" }

func (s *Stream) Open(ctx context.Context) error {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.dest.Addr())
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.dest.Addr(), err)
	}
	s.conn = conn
	s.log.Debug("connected", "remote", conn.RemoteAddr().String())
	go readChunks(conn, s.chunks, s.done)
	return nil
}

func (s *Stream) Chunks() <-chan Chunk { return s.chunks }

func (s *Stream) Write(p []byte) error {
	if s.conn == nil {
		return ErrNotOpen
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.conn.Write(p); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Close closes the connection, which unblocks the read loop and ends the
// chunk feed. Safe to call more than once.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		if s.conn != nil {
			err = s.conn.Close()
		}
	})
	return err
}
