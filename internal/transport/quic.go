package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/lilsweetcaligula/seneca-repl/internal/target"
)

const alpnProtocol = "seneca-repl-v1"

func init() {
	Register("quic", func(dest target.Destination, log *slog.Logger) Transport {
		return NewQUIC(dest, log)
	})
}

// QUIC runs the stream protocol over a single bidirectional QUIC stream.
// It goes through the scheme registry rather than the built-in switch: it
// doubles as the reference implementation for external protocol plugins.
//
// InsecureSkipVerify mirrors the stream variant's trust model: the REPL
// protocol carries no authentication of its own.
type QUIC struct {
	dest target.Destination
	log  *slog.Logger

	conn      *quic.Conn
	stream    *quic.Stream
	chunks    chan Chunk
	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

func NewQUIC(dest target.Destination, log *slog.Logger) *QUIC {
	return &QUIC{
		dest:   dest,
		log:    log.With("component", "transport", "variant", "quic"),
		chunks: make(chan Chunk, chunkBacklog),
		done:   make(chan struct{}),
	}
}

func (q *QUIC) Name() string { return "quic" }

func (q *QUIC) Open(ctx context.Context) error {
	tlsConf := &tls.Config{
		InsecureSkipVerify: true,
		NextProtos:         []string{alpnProtocol},
		MinVersion:         tls.VersionTLS13,
	}
	quicConf := &quic.Config{
		MaxIdleTimeout: 30 * time.Second,
	}

	conn, err := quic.DialAddr(ctx, q.dest.Addr(), tlsConf, quicConf)
	if err != nil {
		return fmt.Errorf("quic dial %s: %w", q.dest.Addr(), err)
	}

	// Open the one data stream. The greeting write that follows announces
	// the stream to the server (QUIC sends no STREAM frame until the first
	// write).
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		conn.CloseWithError(1, "open stream failed")
		return fmt.Errorf("quic open stream: %w", err)
	}

	q.conn = conn
	q.stream = stream
	q.log.Debug("connected", "remote", conn.RemoteAddr().String())
	go readChunks(stream, q.chunks, q.done)
	return nil
}

func (q *QUIC) Chunks() <-chan Chunk { return q.chunks }

func (q *QUIC) Write(p []byte) error {
	if q.stream == nil {
		return ErrNotOpen
	}
	q.writeMu.Lock()
	defer q.writeMu.Unlock()
	if _, err := q.stream.Write(p); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

func (q *QUIC) Close() error {
	var err error
	q.closeOnce.Do(func() {
		close(q.done)
		if q.stream != nil {
			q.stream.CancelRead(0)
			q.stream.Close()
		}
		if q.conn != nil {
			err = q.conn.CloseWithError(0, "closed")
		}
	})
	return err
}
