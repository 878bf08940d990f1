package repl

import "unicode/utf8"

// KeyKind classifies one decoded keystroke.
type KeyKind int

const (
	KeyRune      KeyKind = iota // printable rune in Key.Rune
	KeyEnter                    // \r or \n
	KeyBackspace                // DEL or BS
	KeyUp                       // CSI A
	KeyDown                     // CSI B
	KeySearch                   // Ctrl-R: enter search / next match
	KeyCancel                   // Ctrl-G (or a completed bare ESC)
	KeyEOF                      // Ctrl-D
	KeyInterrupt                // Ctrl-C
)

// Key is one decoded keystroke.
type Key struct {
	Kind KeyKind
	Rune rune
}

const (
	ctrlC = 0x03
	ctrlD = 0x04
	ctrlG = 0x07
	bs    = 0x08
	ctrlR = 0x12
	esc   = 0x1b
	del   = 0x7f
)

// Decoder turns raw terminal bytes into keystrokes. Escape sequences and
// UTF-8 runes can arrive split across reads, so the decoder keeps state
// between Feed calls. A bare ESC press is only reported once a following
// byte shows it is not a CSI introducer (the classic tty ambiguity).
type Decoder struct {
	inEsc bool   // consumed ESC, deciding what follows
	inCSI bool   // consumed ESC [, collecting until the final byte
	part  []byte // incomplete UTF-8 rune
}

// Feed decodes a batch of bytes into keystrokes.
func (d *Decoder) Feed(data []byte) []Key {
	var keys []Key
	for _, b := range data {
		keys = d.feedByte(keys, b)
	}
	return keys
}

func (d *Decoder) feedByte(keys []Key, b byte) []Key {
	if d.inCSI {
		// CSI sequences end with a byte in 0x40..0x7e; parameter bytes
		// before that are skipped.
		if b < 0x40 || b > 0x7e {
			return keys
		}
		d.inCSI = false
		switch b {
		case 'A':
			return append(keys, Key{Kind: KeyUp})
		case 'B':
			return append(keys, Key{Kind: KeyDown})
		}
		return keys
	}

	if d.inEsc {
		d.inEsc = false
		if b == '[' {
			d.inCSI = true
			return keys
		}
		// Bare ESC: report the cancel, then decode b on its own.
		keys = append(keys, Key{Kind: KeyCancel})
		return d.feedByte(keys, b)
	}

	if len(d.part) > 0 {
		return d.feedRuneByte(keys, b)
	}

	switch b {
	case '\r', '\n':
		return append(keys, Key{Kind: KeyEnter})
	case del, bs:
		return append(keys, Key{Kind: KeyBackspace})
	case ctrlR:
		return append(keys, Key{Kind: KeySearch})
	case ctrlG:
		return append(keys, Key{Kind: KeyCancel})
	case ctrlC:
		return append(keys, Key{Kind: KeyInterrupt})
	case ctrlD:
		return append(keys, Key{Kind: KeyEOF})
	case esc:
		d.inEsc = true
		return keys
	}
	if b < 0x20 {
		// other control bytes are ignored
		return keys
	}
	return d.feedRuneByte(keys, b)
}

func (d *Decoder) feedRuneByte(keys []Key, b byte) []Key {
	d.part = append(d.part, b)
	if utf8.FullRune(d.part) {
		r, _ := utf8.DecodeRune(d.part)
		d.part = d.part[:0]
		if r != utf8.RuneError {
			keys = append(keys, Key{Kind: KeyRune, Rune: r})
		}
		return keys
	}
	if len(d.part) >= utf8.UTFMax {
		d.part = d.part[:0]
	}
	return keys
}
