// Package repl drives the interactive console: it owns the terminal state
// machine, the reconnect policy, and the single control goroutine that
// multiplexes keystrokes, response frames, and retry timers.
package repl

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/lilsweetcaligula/seneca-repl/internal/history"
	"github.com/lilsweetcaligula/seneca-repl/internal/protocol"
	"github.com/lilsweetcaligula/seneca-repl/internal/target"
)

// discardHandler is a no-op slog handler that discards all log records.
// Used when --verbose is off to suppress logging with zero overhead.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// Config holds console configuration.
type Config struct {
	Dest    target.Destination
	Verbose bool // structured logs to stderr
}

// Client is the interactive controller. All mutable console state (the
// machine, the history buffer, the connector and its backoff) is owned
// by the single goroutine running Run.
type Client struct {
	cfg   Config
	log   *slog.Logger
	conn  *Connector
	store *history.Store

	hist    *History
	machine *Machine
	rend    *Renderer

	sess  *protocol.Session
	retry <-chan time.Time

	stdin   io.Reader
	stdout  io.Writer
	stdinFd int // for MakeRaw/Restore; -1 if pipe (skip raw mode)
}

// New creates a client wired to the real terminal. If stdin is not a
// terminal (pipe, FIFO), raw mode and prompt redrawing are skipped and
// input is consumed line-wise through the same machine.
func New(cfg Config) *Client {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		fd = -1
	}
	var logger *slog.Logger
	if cfg.Verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	} else {
		logger = slog.New(&discardHandler{})
	}
	return &Client{
		cfg:     cfg,
		log:     logger,
		conn:    NewConnector(cfg.Dest, logger),
		store:   history.Open(cfg.Dest, logger),
		rend:    NewRenderer(os.Stdout, fd >= 0),
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		stdinFd: fd,
	}
}

// newTestClient wires the client to pipes instead of the real terminal.
func newTestClient(cfg Config, stdin io.Reader, stdout io.Writer, store *history.Store) *Client {
	logger := slog.New(&discardHandler{})
	if store == nil {
		store = history.At("", logger)
	}
	return &Client{
		cfg:     cfg,
		log:     logger,
		conn:    NewConnector(cfg.Dest, logger),
		store:   store,
		rend:    NewRenderer(stdout, false),
		stdin:   stdin,
		stdout:  stdout,
		stdinFd: -1,
	}
}

// inputChunk carries one stdin read or the error that ended reading.
type inputChunk struct {
	data []byte
	err  error
}

// Run is the console's main entry point: establish a session, then loop
// until the user quits, stdin ends, or the context is cancelled. The
// returned error is nil for every user-initiated exit.
func (c *Client) Run(ctx context.Context) error {
	c.hist = NewHistory(c.store.Load())
	c.machine = NewMachine(c.hist)

	// First attempt: a failure here is fatal, no retry.
	sess, err := c.conn.Establish(ctx)
	if err != nil {
		return err
	}
	c.sess = sess
	c.rend.SetPrompt(sess.ID().Prompt())

	if c.stdinFd >= 0 {
		oldState, err := term.MakeRaw(c.stdinFd)
		if err != nil {
			sess.Close()
			return fmt.Errorf("make raw: %w", err)
		}
		defer term.Restore(c.stdinFd, oldState)
	}

	// Permanent goroutine: read stdin. Survives reconnections.
	inputCh := make(chan inputChunk, 4)
	go c.readInput(inputCh)

	dec := &Decoder{}
	c.rend.Redraw(c.machine)

	for {
		var framesCh <-chan string
		var doneCh <-chan struct{}
		if c.sess != nil {
			framesCh = c.sess.Frames()
			doneCh = c.sess.Done()
		}

		select {
		case in, ok := <-inputCh:
			if !ok {
				// Terminal stream closed: exit 0.
				c.shutdown()
				return nil
			}
			if in.err != nil {
				c.shutdown()
				return fmt.Errorf("terminal input: %w", in.err)
			}
			for _, k := range dec.Feed(in.data) {
				quit, err := c.applyKey(ctx, k)
				if err != nil {
					return err
				}
				if quit {
					return nil
				}
			}

		case frame, ok := <-framesCh:
			if !ok {
				continue // doneCh fires next
			}
			c.rend.Frame(frame)
			c.rend.Redraw(c.machine)

		case <-doneCh:
			err := c.sess.Err()
			c.sess = nil
			c.conn.MarkClosed()
			if c.conn.QuitRequested() {
				return nil
			}
			c.scheduleRetry(err)
			c.rend.Redraw(c.machine)

		case <-c.retry:
			if err := c.tryReconnect(ctx); err != nil {
				return err
			}
			c.rend.Redraw(c.machine)

		case <-ctx.Done():
			c.shutdown()
			return nil
		}
	}
}

// applyKey feeds one keystroke to the machine and applies its effects.
func (c *Client) applyKey(ctx context.Context, k Key) (quit bool, err error) {
	for _, eff := range c.machine.Step(k) {
		switch eff.Kind {
		case EffectRedraw:
			c.rend.Redraw(c.machine)

		case EffectQuit:
			c.rend.EndLine()
			c.shutdown()
			return true, nil

		case EffectSubmit:
			c.rend.EndLine()
			if err := c.submit(ctx, eff.Line); err != nil {
				return false, err
			}
			c.rend.Redraw(c.machine)
		}
	}
	return false, nil
}

// submit handles one finished line. When the connection is down the line
// triggers a fresh reconnect attempt and is dropped, never queued or
// replayed after the reconnect.
func (c *Client) submit(ctx context.Context, line string) error {
	if c.sess == nil {
		c.rend.Notice(protocol.ErrorMarker + ": not connected, reconnecting")
		return c.tryReconnect(ctx)
	}
	c.hist.Add(line)
	c.store.Append(line)
	if err := c.sess.SendLine(line); err != nil {
		c.log.Debug("send failed", "error", err)
		c.rend.Notice(fmt.Sprintf("%s: send failed: %v", protocol.ErrorMarker, err))
	}
	return nil
}

// tryReconnect runs one reconnect attempt. Non-retryable failures (a
// handshake that cannot be parsed, quit requested) propagate as fatal;
// retryable ones schedule the next attempt per the backoff.
func (c *Client) tryReconnect(ctx context.Context) error {
	c.retry = nil
	sess, err := c.conn.Establish(ctx)
	if err != nil {
		if !c.conn.Retryable(err) {
			return err
		}
		c.scheduleRetry(err)
		return nil
	}
	c.sess = sess
	c.rend.SetPrompt(sess.ID().Prompt())
	c.rend.Notice("# reconnected")
	return nil
}

// scheduleRetry arms the retry timer with the current backoff delay,
// unless a quit was requested.
func (c *Client) scheduleRetry(cause error) {
	d, ok := c.conn.RetryDelay()
	if !ok {
		return
	}
	reason := ""
	if cause != nil && cause != io.EOF {
		reason = fmt.Sprintf(": %v", cause)
	}
	c.rend.Notice(fmt.Sprintf("%s: connection closed%s (retrying in %s)", protocol.ErrorMarker, reason, d))
	c.retry = time.After(d)
}

// shutdown marks the exit as user-initiated and closes the live session,
// suppressing any retry.
func (c *Client) shutdown() {
	c.conn.RequestQuit()
	if c.sess != nil {
		c.sess.Close()
		c.sess = nil
	}
}

// readInput reads stdin in a loop, sending chunks to ch. EOF closes the
// channel; any other failure is delivered before closing.
func (c *Client) readInput(ch chan<- inputChunk) {
	defer close(ch)
	for {
		buf := make([]byte, 4096)
		n, err := c.stdin.Read(buf)
		if n > 0 {
			ch <- inputChunk{data: buf[:n]}
		}
		if err != nil {
			if err != io.EOF {
				ch <- inputChunk{err: err}
			}
			return
		}
	}
}
