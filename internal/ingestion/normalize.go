package ingestion

import "strings"

// Normalize reduces a column label to its lower-case ASCII alphanumeric skeleton
// so that spacing, punctuation, casing and unit annotations do not matter.
func Normalize(label string) string {
	var b strings.Builder
	b.Grow(len(label))
	for i := 0; i < len(label); i++ {
		c := label[i]
		switch {
		case c >= 'A' && c <= 'Z':
			b.WriteByte(c + ('a' - 'A'))
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteByte(c)
		}
	}
	return b.String()
}
