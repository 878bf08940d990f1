package repl

import (
	"fmt"
	"io"
	"strings"
)

// Renderer owns the prompt line: clearing, redrawing, and the \r\n
// discipline required while the terminal is in raw mode. With interactive
// off (piped stdin) it degrades to plain sequential output.
type Renderer struct {
	w           io.Writer
	prompt      string
	interactive bool
}

func NewRenderer(w io.Writer, interactive bool) *Renderer {
	return &Renderer{w: w, prompt: "> ", interactive: interactive}
}

// SetPrompt installs the prompt built from the remote identity.
func (r *Renderer) SetPrompt(p string) {
	r.prompt = p
}

// Redraw clears the current line and renders the prompt for the machine's
// state: the command line in Command mode, the search prompt with the
// found value in Search mode.
func (r *Renderer) Redraw(m *Machine) {
	if !r.interactive {
		return
	}
	fmt.Fprintf(r.w, "\r\x1b[K%s", r.promptLine(m))
}

func (r *Renderer) promptLine(m *Machine) string {
	if m.Mode() == ModeSearch {
		cur := m.Cursor()
		found, _ := m.Found()
		return fmt.Sprintf("(reverse-i-search)`%s': %s", cur.Query, found)
	}
	return r.prompt + m.Line()
}

// EndLine terminates the prompt line after a submit or quit.
func (r *Renderer) EndLine() {
	if r.interactive {
		fmt.Fprint(r.w, "\r\n")
	}
}

// Frame prints one response frame, clearing the prompt line first. The
// caller redraws the prompt afterwards.
func (r *Renderer) Frame(text string) {
	if !r.interactive {
		fmt.Fprint(r.w, text)
		return
	}
	fmt.Fprint(r.w, "\r\x1b[K")
	fmt.Fprint(r.w, strings.ReplaceAll(text, "\n", "\r\n"))
}

// Notice prints one out-of-band line (connection errors and the like).
func (r *Renderer) Notice(text string) {
	if !r.interactive {
		fmt.Fprintln(r.w, text)
		return
	}
	fmt.Fprintf(r.w, "\r\x1b[K%s\r\n", text)
}
