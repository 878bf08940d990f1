// Package protocol layers the line-oriented console protocol on a raw
// transport: the hello greeting, the wrapped-JSON handshake, and
// zero-terminated frame reassembly.
package protocol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lilsweetcaligula/seneca-repl/internal/transport"
)

// Greeting is sent, literally, as the first bytes of every connection.
const Greeting = "hello\n"

const handshakeTimeout = 10 * time.Second

// Session is an established console protocol session: handshake done,
// response frames flowing. One frame is expected per sent line, in the
// order sent; there is no other correlation.
type Session struct {
	tr  transport.Transport
	log *slog.Logger
	id  Identity

	frames    chan string
	done      chan struct{}
	closeOnce sync.Once
	err       error // set before done closes
}

// Connect sends the greeting over an already-open transport and completes
// the handshake. Greeting failures are connect-class errors; a
// *HandshakeError means the remote answered but could not be identified.
// On any error the transport is closed.
func Connect(ctx context.Context, tr transport.Transport, log *slog.Logger) (*Session, error) {
	log = log.With("component", "session")

	if err := tr.Write([]byte(Greeting)); err != nil {
		tr.Close()
		return nil, fmt.Errorf("send greeting: %w", err)
	}

	fr := &Reassembler{}
	raw, err := awaitFrame(ctx, tr, fr)
	if err != nil {
		tr.Close()
		return nil, fmt.Errorf("await handshake: %w", err)
	}

	id, err := ParseHandshake(raw)
	if err != nil {
		tr.Close()
		return nil, err
	}
	log.Debug("handshake complete", "remote_id", id.ID)

	s := &Session{
		tr:     tr,
		log:    log,
		id:     id,
		frames: make(chan string, 4),
		done:   make(chan struct{}),
	}
	go s.readLoop(fr)
	return s, nil
}

// awaitFrame blocks until the reassembler emits one complete frame.
func awaitFrame(ctx context.Context, tr transport.Transport, fr *Reassembler) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()

	for {
		select {
		case ch, ok := <-tr.Chunks():
			if !ok {
				return nil, errors.New("transport closed")
			}
			if ch.Err != nil {
				return nil, ch.Err
			}
			if frame, done := fr.Push(ch.Data); done {
				return frame, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// ID returns the remote identity parsed from the handshake.
func (s *Session) ID() Identity { return s.id }

// SendLine forwards one command line, newline-terminated, to the remote.
func (s *Session) SendLine(text string) error {
	return s.tr.Write([]byte(text + "\n"))
}

// Frames delivers response texts with trailing newlines collapsed to
// exactly one. Closed when the session ends.
func (s *Session) Frames() <-chan string { return s.frames }

// Done closes when the session ends, whichever side ended it.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err reports why the session ended. Valid after Done closes; nil for a
// local Close.
func (s *Session) Err() error { return s.err }

// Close tears the session down. Safe to call more than once.
func (s *Session) Close() error {
	s.finish(nil)
	return s.tr.Close()
}

func (s *Session) finish(err error) {
	s.closeOnce.Do(func() {
		s.err = err
		close(s.done)
	})
}

func (s *Session) readLoop(fr *Reassembler) {
	defer close(s.frames)
	for {
		select {
		case ch, ok := <-s.tr.Chunks():
			if !ok {
				s.finish(io.EOF)
				return
			}
			if ch.Err != nil {
				s.log.Debug("transport ended", "error", ch.Err)
				s.finish(ch.Err)
				return
			}
			frame, done := fr.Push(ch.Data)
			if !done {
				continue
			}
			select {
			case s.frames <- collapseNewlines(string(frame)):
			case <-s.done:
				return
			}
		case <-s.done:
			return
		}
	}
}

// collapseNewlines trims trailing line breaks down to exactly one.
func collapseNewlines(text string) string {
	return strings.TrimRight(text, "\r\n") + "\n"
}
