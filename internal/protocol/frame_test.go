package protocol

import "testing"

func TestReassembler(t *testing.T) {
	tests := []struct {
		name   string
		chunks []string
		want   []string
	}{
		{
			name:   "single chunk",
			chunks: []string{"abc\x00"},
			want:   []string{"abc"},
		},
		{
			name:   "split after two bytes",
			chunks: []string{"ab", "c\x00"},
			want:   []string{"abc"},
		},
		{
			name:   "split after one byte",
			chunks: []string{"a", "bc\x00"},
			want:   []string{"abc"},
		},
		{
			name:   "byte at a time",
			chunks: []string{"a", "b", "c", "\x00"},
			want:   []string{"abc"},
		},
		{
			name:   "two frames",
			chunks: []string{"first\x00", "sec", "ond\x00"},
			want:   []string{"first", "second"},
		},
		{
			name:   "empty frame",
			chunks: []string{"\x00"},
			want:   []string{""},
		},
		{
			name:   "incomplete stays pending",
			chunks: []string{"abc"},
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Reassembler
			var got []string
			for _, c := range tt.chunks {
				if frame, done := r.Push([]byte(c)); done {
					got = append(got, string(frame))
				}
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d frames %q, want %d %q", len(got), got, len(tt.want), tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("frame %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestReassemblerPending(t *testing.T) {
	var r Reassembler
	if r.Pending() {
		t.Error("fresh reassembler should not be pending")
	}
	r.Push([]byte("partial"))
	if !r.Pending() {
		t.Error("expected pending after partial chunk")
	}
	r.Push([]byte("\x00"))
	if r.Pending() {
		t.Error("expected cleared accumulator after complete frame")
	}
}

func TestReassemblerIgnoresEmptyChunk(t *testing.T) {
	var r Reassembler
	if _, done := r.Push(nil); done {
		t.Error("empty chunk must not complete a frame")
	}
	frame, done := r.Push([]byte("x\x00"))
	if !done || string(frame) != "x" {
		t.Errorf("got (%q, %v), want (\"x\", true)", frame, done)
	}
}
