package repl

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/lilsweetcaligula/seneca-repl/internal/protocol"
	"github.com/lilsweetcaligula/seneca-repl/internal/target"
	"github.com/lilsweetcaligula/seneca-repl/internal/transport"
)

// State is the connection lifecycle state. Exactly one Connector (and
// therefore one State) exists per process run.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateHandshaking
	StateReady
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateHandshaking:
		return "handshaking"
	case StateReady:
		return "ready"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Connector owns the connect/retry policy: transport selection, dial,
// handshake, exponential backoff, and quit suppression. All methods run
// on the single control goroutine.
type Connector struct {
	dest target.Destination
	log  *slog.Logger

	state    State
	backoff  Backoff
	quit     bool
	attempts int
}

func NewConnector(dest target.Destination, log *slog.Logger) *Connector {
	return &Connector{
		dest:    dest,
		log:     log.With("component", "connector"),
		state:   StateIdle,
		backoff: NewBackoff(),
	}
}

// Establish runs one connect attempt: pick the transport variant by
// scheme, open it, complete the greeting/handshake. On success the state
// is Ready and the backoff resets to its floor.
func (c *Connector) Establish(ctx context.Context) (*protocol.Session, error) {
	c.attempts++
	c.state = StateConnecting

	tr, err := transport.New(c.dest, c.log)
	if err != nil {
		c.state = StateClosed
		return nil, err
	}
	if err := tr.Open(ctx); err != nil {
		c.state = StateClosed
		c.log.Debug("open failed", "attempt", c.attempts, "error", err)
		return nil, err
	}

	c.state = StateHandshaking
	sess, err := protocol.Connect(ctx, tr, c.log)
	if err != nil {
		c.state = StateClosed
		return nil, err
	}

	c.state = StateReady
	c.backoff.Reset()
	c.log.Debug("established", "remote_id", sess.ID().ID, "attempt", c.attempts)
	return sess, nil
}

// Retryable reports whether a failed attempt should feed the backoff.
// Never: after a quit, on the very first attempt (cannot even dial), for
// a handshake parse failure, or for an unknown scheme.
func (c *Connector) Retryable(err error) bool {
	if c.quit {
		return false
	}
	if c.attempts <= 1 {
		return false
	}
	var hs *protocol.HandshakeError
	if errors.As(err, &hs) {
		return false
	}
	return !errors.Is(err, transport.ErrUnsupportedScheme)
}

// RetryDelay returns the delay before the next attempt, growing the
// backoff. ok is false when a quit was requested: no retry is ever
// scheduled then, regardless of backoff state.
func (c *Connector) RetryDelay() (delay time.Duration, ok bool) {
	if c.quit {
		return 0, false
	}
	return c.backoff.Next(), true
}

// RequestQuit marks the shutdown as user-initiated, suppressing retries.
func (c *Connector) RequestQuit() {
	c.quit = true
	c.state = StateClosing
}

func (c *Connector) QuitRequested() bool { return c.quit }

// MarkClosed records that the live session ended.
func (c *Connector) MarkClosed() {
	c.state = StateClosed
}

func (c *Connector) State() State { return c.state }
