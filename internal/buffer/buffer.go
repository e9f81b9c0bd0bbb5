package buffer

import "strings"

// TextBuffer accumulates plain text and keeps enough state to manage block
// spacing (trailing newlines) without rescanning the whole output.
type TextBuffer struct {
	b        strings.Builder
	trailing int // trailing '\n' count of everything written so far
}

// New creates a new TextBuffer.
func New() *TextBuffer {
	return &TextBuffer{}
}

// Write appends text to the buffer.
func (tb *TextBuffer) Write(text string) {
	if text == "" {
		return
	}
	tb.b.WriteString(text)
	n := 0
	for i := len(text) - 1; i >= 0 && text[i] == '\n'; i-- {
		n++
	}
	if n == len(text) {
		tb.trailing += n
	} else {
		tb.trailing = n
	}
}

// Len returns the number of bytes written.
func (tb *TextBuffer) Len() int {
	return tb.b.Len()
}

// TrailingNewlineCount counts trailing newline characters in the buffer.
func (tb *TextBuffer) TrailingNewlineCount() int {
	return tb.trailing
}

// EnsureBlankLine pads the buffer so that the next block starts after an
// empty line. Nothing is written into an empty buffer.
func (tb *TextBuffer) EnsureBlankLine() {
	if tb.b.Len() == 0 {
		return
	}
	if need := 2 - tb.trailing; need > 0 {
		tb.Write(strings.Repeat("\n", need))
	}
}

// EnsureNewline makes sure the buffer ends with a line break.
func (tb *TextBuffer) EnsureNewline() {
	if tb.b.Len() > 0 && tb.trailing == 0 {
		tb.Write("\n")
	}
}

// String returns the accumulated text.
func (tb *TextBuffer) String() string {
	return tb.b.String()
}

// Reset clears the buffer.
func (tb *TextBuffer) Reset() {
	tb.b.Reset()
	tb.trailing = 0
}
