package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/lilsweetcaligula/seneca-repl/internal/target"
)

const (
	requestTimeout  = 30 * time.Second
	maxResponseSize = 4 * 1024 * 1024
)

// pollRequest is the body of one command exchange.
type pollRequest struct {
	ID  string `json:"id"`
	Cmd string `json:"cmd"`
}

// pollResponse carries either a success payload or an error payload.
type pollResponse struct {
	OK  bool            `json:"ok"`
	Out json.RawMessage `json:"out"`
	Err json.RawMessage `json:"err"`
}

// text flattens the response into frame text: out on success, err on
// failure, a generic error marker when neither is present.
func (r pollResponse) text() string {
	if r.OK {
		return rawText(r.Out)
	}
	if len(r.Err) > 0 {
		return rawText(r.Err)
	}
	return "# ERROR: unknown"
}

// rawText unquotes a JSON string payload; any other payload is rendered as
// its raw JSON text.
func rawText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// Polling is the request/response variant: each written line is exactly
// one HTTP POST carrying {id, cmd}, and the response is pushed into the
// read side as a synthetic zero-terminated frame. At most one request is
// in flight; later writes queue and dispatch strictly after the prior
// response's frame has been delivered.
//
// A failed exchange surfaces as an in-band error frame rather than a
// channel-level error, so one bad request does not tear down the logical
// connection.
type Polling struct {
	dest   target.Destination
	log    *slog.Logger
	url    string
	client *http.Client
	ctx    context.Context

	chunks    chan Chunk
	done      chan struct{}
	closeOnce sync.Once

	mu       sync.Mutex
	open     bool
	inflight bool
	pending  [][]byte
}

func NewPolling(dest target.Destination, log *slog.Logger) *Polling {
	return &Polling{
		dest:   dest,
		log:    log.With("component", "transport", "variant", "polling"),
		url:    fmt.Sprintf("%s://%s", dest.Scheme, dest.Addr()),
		client: &http.Client{Timeout: requestTimeout},
		chunks: make(chan Chunk, chunkBacklog),
		done:   make(chan struct{}),
	}
}

func (p *Polling) Name() string { return "polling" }

// Open records the lifetime context. There is no persistent connection to
// establish: an unreachable endpoint shows up as an in-band error frame on
// the first exchange.
func (p *Polling) Open(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ctx = ctx
	p.open = true
	p.log.Debug("ready", "url", p.url)
	return nil
}

func (p *Polling) Chunks() <-chan Chunk { return p.chunks }

// Write queues one logical request. If no request is outstanding it is
// dispatched immediately; otherwise it waits for the prior response.
func (p *Polling) Write(line []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return ErrNotOpen
	}
	line = append([]byte(nil), line...)
	if p.inflight {
		p.pending = append(p.pending, line)
		return nil
	}
	p.inflight = true
	go p.exchangeLoop(line)
	return nil
}

// exchangeLoop performs one exchange, delivers its frame, then drains any
// queued requests one at a time. Delivery before dequeue is what gives the
// strict one-outstanding-request ordering.
func (p *Polling) exchangeLoop(line []byte) {
	for {
		frame := p.roundTrip(line)
		select {
		case p.chunks <- Chunk{Data: frame}:
		case <-p.done:
			return
		}

		p.mu.Lock()
		if len(p.pending) == 0 {
			p.inflight = false
			p.mu.Unlock()
			return
		}
		line = p.pending[0]
		p.pending = p.pending[1:]
		p.mu.Unlock()
	}
}

func (p *Polling) roundTrip(line []byte) []byte {
	cmd := strings.TrimRight(string(line), "\r\n")
	body, err := json.Marshal(pollRequest{ID: p.dest.Session, Cmd: cmd})
	if err != nil {
		return errorFrame(err)
	}

	req, err := http.NewRequestWithContext(p.ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return errorFrame(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Debug("request failed", "error", err)
		return errorFrame(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return errorFrame(err)
	}
	if resp.StatusCode != http.StatusOK {
		return errorFrame(fmt.Errorf("unexpected status %s", resp.Status))
	}

	var pr pollResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return errorFrame(fmt.Errorf("bad response body: %w", err))
	}
	return synthFrame(pr.text())
}

func (p *Polling) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.open = false
		p.pending = nil
		p.mu.Unlock()
		// The chunk channel stays open: a dispatch goroutine may still be
		// mid-send, and it bails out via done.
		close(p.done)
	})
	return nil
}

// synthFrame builds a synthetic frame: payload plus the zero terminator.
func synthFrame(text string) []byte {
	return append([]byte(text), Terminator)
}

func errorFrame(err error) []byte {
	return synthFrame("# ERROR: " + err.Error())
}
