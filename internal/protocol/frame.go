package protocol

import "github.com/lilsweetcaligula/seneca-repl/internal/transport"

// Reassembler accumulates raw byte chunks of a zero-terminated frame.
//
// A frame is complete when a chunk's last byte is the terminator; the
// frame payload is the concatenation of all accumulated chunks minus that
// byte. The terminator is only recognized at the end of a chunk; this is
// a strict single-terminator delimiter protocol with no length prefix and
// no escaping, so a zero byte embedded mid-payload is malformed input.
type Reassembler struct {
	parts [][]byte
	size  int
}

// Push adds one chunk. When the chunk completes a frame, the payload and
// true are returned and the accumulator is cleared.
func (r *Reassembler) Push(chunk []byte) ([]byte, bool) {
	if len(chunk) == 0 {
		return nil, false
	}
	r.parts = append(r.parts, chunk)
	r.size += len(chunk)
	if chunk[len(chunk)-1] != transport.Terminator {
		return nil, false
	}

	frame := make([]byte, 0, r.size-1)
	for _, p := range r.parts {
		frame = append(frame, p...)
	}
	frame = frame[:len(frame)-1]
	r.parts = nil
	r.size = 0
	return frame, true
}

// Pending reports whether a partial frame is buffered.
func (r *Reassembler) Pending() bool {
	return len(r.parts) > 0
}
