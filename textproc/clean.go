// Package textproc turns raw article text into fixed-length integer sequences.
package textproc

import (
	"strings"
	"unicode"
)

// punctuation mirrors the ASCII punctuation set stripped by Clean.
const punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// Clean lowercases text, strips ASCII punctuation and digits and collapses
// whitespace to single spaces.
func Clean(text string) string {
	text = strings.ToLower(text)
	text = strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && strings.ContainsRune(punctuation, r) {
			return -1
		}
		if unicode.IsDigit(r) {
			return -1
		}
		return r
	}, text)
	return strings.Join(strings.Fields(text), " ")
}
