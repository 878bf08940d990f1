package repl

// Mode is the interactive input state: normal command entry or
// incremental reverse-history search.
type Mode int

const (
	ModeCommand Mode = iota
	ModeSearch
)

// SearchCursor exists only while in Search mode; it is reset on entering
// and on leaving the mode.
type SearchCursor struct {
	Query  string
	Offset int
}

// EffectKind classifies an instruction from the machine to its caller.
type EffectKind int

const (
	// EffectRedraw re-renders the prompt line.
	EffectRedraw EffectKind = iota
	// EffectSubmit delivers a finished line for sending.
	EffectSubmit
	// EffectQuit terminates the process with status 0. Nothing is sent.
	EffectQuit
)

// Effect is one instruction; Line is set for EffectSubmit.
type Effect struct {
	Kind EffectKind
	Line string
}

// Literal commands that terminate the console without sending anything.
func isExitKeyword(line string) bool {
	return line == "quit" || line == "exit"
}

// Machine is the two-state keystroke machine. Command mode edits and
// submits lines with arrow-key history recall; Search mode runs an
// incremental reverse lookup over the shared history buffer. Step is a
// pure transition: it mutates only the machine and returns effects for
// the caller to apply, so the whole thing tests without a terminal.
type Machine struct {
	mode Mode
	hist *History

	line   []rune
	recall int    // index into hist during arrow recall; -1 = fresh line
	draft  []rune // in-progress line saved when recall starts

	search SearchCursor
}

func NewMachine(hist *History) *Machine {
	return &Machine{hist: hist, recall: -1}
}

func (m *Machine) Mode() Mode           { return m.mode }
func (m *Machine) Line() string         { return string(m.line) }
func (m *Machine) Cursor() SearchCursor { return m.search }

// Found returns the history entry matched by the current search cursor.
func (m *Machine) Found() (string, bool) {
	return m.hist.Search(m.search.Query, m.search.Offset)
}

// Step feeds one keystroke through the machine.
func (m *Machine) Step(k Key) []Effect {
	if m.mode == ModeSearch {
		return m.stepSearch(k)
	}
	return m.stepCommand(k)
}

func (m *Machine) stepCommand(k Key) []Effect {
	switch k.Kind {
	case KeyRune:
		m.line = append(m.line, k.Rune)
		m.recall = -1
		return redraw()

	case KeyBackspace:
		if len(m.line) > 0 {
			m.line = m.line[:len(m.line)-1]
			m.recall = -1
		}
		return redraw()

	case KeyEnter:
		line := string(m.line)
		m.line = nil
		m.draft = nil
		m.recall = -1
		if isExitKeyword(line) {
			return []Effect{{Kind: EffectQuit}}
		}
		return []Effect{{Kind: EffectSubmit, Line: line}}

	case KeyUp:
		if next, ok := m.hist.At(m.recall + 1); ok {
			if m.recall == -1 {
				m.draft = m.line
			}
			m.recall++
			m.line = []rune(next)
		}
		return redraw()

	case KeyDown:
		switch {
		case m.recall > 0:
			m.recall--
			entry, _ := m.hist.At(m.recall)
			m.line = []rune(entry)
		case m.recall == 0:
			m.recall = -1
			m.line = m.draft
			m.draft = nil
		}
		return redraw()

	case KeySearch:
		m.mode = ModeSearch
		m.search = SearchCursor{}
		return redraw()

	case KeyEOF:
		if len(m.line) == 0 {
			return []Effect{{Kind: EffectQuit}}
		}
		return nil

	case KeyInterrupt:
		return []Effect{{Kind: EffectQuit}}
	}
	return nil
}

func (m *Machine) stepSearch(k Key) []Effect {
	switch k.Kind {
	case KeyRune:
		m.search.Query += string(k.Rune)
		return redraw()

	case KeySearch:
		m.search.Offset++
		return redraw()

	case KeyBackspace:
		if q := []rune(m.search.Query); len(q) > 0 {
			m.search.Query = string(q[:len(q)-1])
		}
		return redraw()

	case KeyEnter:
		// Copy the found value (or empty) into the command line; nothing
		// is sent to the remote from search mode.
		found, _ := m.Found()
		m.line = []rune(found)
		m.leaveSearch()
		return redraw()

	case KeyCancel:
		m.leaveSearch()
		return redraw()

	case KeyInterrupt:
		return []Effect{{Kind: EffectQuit}}
	}
	return nil
}

func (m *Machine) leaveSearch() {
	m.mode = ModeCommand
	m.search = SearchCursor{}
	m.recall = -1
}

func redraw() []Effect {
	return []Effect{{Kind: EffectRedraw}}
}
