package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ErrorMarker prefixes every user-visible failure line, so scripts
// wrapping the console can grep for it.
const ErrorMarker = "# ERROR"

// Identity is the remote's self-description carried by the handshake
// frame. The prompt is built from it.
type Identity struct {
	ID string `json:"id"`
}

// Prompt returns the interactive prompt for this remote.
func (id Identity) Prompt() string {
	return id.ID + "> "
}

// HandshakeError is fatal and never retried: a session that cannot
// identify its remote is not a session worth retrying.
type HandshakeError struct {
	Raw string // handshake text as received, after whitespace cleanup
	Err error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("handshake failed: %v", e.Err)
}

func (e *HandshakeError) Unwrap() error { return e.Err }

// Message returns the line shown to the user: the raw text verbatim when
// the remote already sent an explicit error marker, a generic failure
// line otherwise.
func (e *HandshakeError) Message() string {
	if strings.HasPrefix(e.Raw, ErrorMarker) {
		return e.Raw
	}
	return ErrorMarker + ": cannot identify remote (bad handshake)"
}

// ParseHandshake parses the first frame of a session. The remote wraps
// its JSON handshake payload in a single delimiter character on each side,
// so the unwrap strips the first and last character rather than decoding a
// generic JSON envelope, a compatibility quirk of the wire protocol kept
// as-is.
func ParseHandshake(raw []byte) (Identity, error) {
	text := strings.TrimSpace(string(raw))
	text = strings.ReplaceAll(text, "\r", "")
	text = strings.ReplaceAll(text, "\n", "")

	if len(text) < 2 {
		return Identity{}, &HandshakeError{Raw: text, Err: fmt.Errorf("payload too short (%d bytes)", len(text))}
	}

	inner := text[1 : len(text)-1]
	var id Identity
	if err := json.Unmarshal([]byte(inner), &id); err != nil {
		return Identity{}, &HandshakeError{Raw: text, Err: err}
	}
	if id.ID == "" {
		return Identity{}, &HandshakeError{Raw: text, Err: fmt.Errorf("missing id field")}
	}
	return id, nil
}
