package streaming

import (
	"strings"
	"unicode/utf8"
)

// runeBuffer holds back a trailing partial UTF-8 sequence so no chunk ever splits a code point.
type runeBuffer struct {
	pending []byte
}

// Push appends text and returns the longest prefix that ends on a rune boundary.
func (b *runeBuffer) Push(text string) string {
	b.pending = append(b.pending, text...)
	cut := completePrefix(b.pending)
	out := string(b.pending[:cut])
	b.pending = append(b.pending[:0], b.pending[cut:]...)
	return out
}

// Flush returns whatever is left, with invalid sequences replaced.
func (b *runeBuffer) Flush() string {
	if len(b.pending) == 0 {
		return ""
	}
	out := strings.ToValidUTF8(string(b.pending), string(utf8.RuneError))
	b.pending = b.pending[:0]
	return out
}

// completePrefix returns the length of p without a trailing incomplete rune.
func completePrefix(p []byte) int {
	n := len(p)
	for i := n - 1; i >= 0 && i >= n-utf8.UTFMax; i-- {
		if !utf8.RuneStart(p[i]) {
			continue
		}
		if utf8.FullRune(p[i:]) {
			return n
		}
		return i
	}
	return n
}
