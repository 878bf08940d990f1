// Package transport provides the duplex byte channel a protocol session
// runs over. Two built-in variants exist, a persistent stream connection
// and an HTTP request/response polling connection, plus a registry so
// additional schemes can be plugged in by name.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/lilsweetcaligula/seneca-repl/internal/target"
)

// Terminator is the single byte that ends every logical response frame.
const Terminator byte = 0x00

var (
	// ErrUnsupportedScheme reports a destination scheme with no built-in
	// variant and no registered factory. Fatal: the caller exits 1.
	ErrUnsupportedScheme = errors.New("unsupported protocol scheme")

	// ErrNotOpen reports a write on a transport that was never opened or
	// has been closed.
	ErrNotOpen = errors.New("transport is not open")
)

// Chunk carries one read from the remote, or the terminal error that ended
// reading. After a Chunk with a non-nil Err the chunk channel is closed.
type Chunk struct {
	Data []byte
	Err  error
}

// Transport is a duplex byte channel. Open establishes the channel and
// starts the asynchronous chunk feed; Write sends raw bytes; Close tears
// the channel down, which ends the feed.
type Transport interface {
	Name() string
	Open(ctx context.Context) error
	Chunks() <-chan Chunk
	Write(p []byte) error
	Close() error
}

// Factory builds a transport for a resolved destination.
type Factory func(dest target.Destination, log *slog.Logger) Transport

var registry = map[string]Factory{}

// Register installs a factory for a scheme name. Built-in schemes take
// precedence over registered ones.
func Register(scheme string, f Factory) {
	registry[scheme] = f
}

// New selects a transport variant by the destination's scheme: built-in
// stream and polling variants first, then the registry.
func New(dest target.Destination, log *slog.Logger) (Transport, error) {
	switch dest.Scheme {
	case "telnet", "tcp":
		return NewStream(dest, log), nil
	case "http", "https":
		return NewPolling(dest, log), nil
	}
	if f, ok := registry[dest.Scheme]; ok {
		return f(dest, log), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, dest.Scheme)
}

const (
	readBufSize  = 4 * 1024
	chunkBacklog = 16
)

// readChunks reads r into fresh buffers and feeds them to chunks until an
// error or done. The error (io.EOF included) is delivered as the final
// Chunk, then chunks is closed.
func readChunks(r io.Reader, chunks chan<- Chunk, done <-chan struct{}) {
	defer close(chunks)
	for {
		buf := make([]byte, readBufSize)
		n, err := r.Read(buf)
		if n > 0 {
			select {
			case chunks <- Chunk{Data: buf[:n]}:
			case <-done:
				return
			}
		}
		if err != nil {
			select {
			case chunks <- Chunk{Err: err}:
			case <-done:
			}
			return
		}
	}
}
