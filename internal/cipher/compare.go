package cipher

import "strings"

// HintPlaceholder stands in for each hidden character of a hint.
const HintPlaceholder = '_'

type compareOptions struct {
	caseSensitive bool
}

type CompareOption func(*compareOptions)

// CaseSensitive makes Equal compare exact case after trimming.
func CaseSensitive() CompareOption {
	return func(o *compareOptions) { o.caseSensitive = true }
}

// Equal reports whether a submitted answer matches the expected plaintext.
// Surrounding whitespace is ignored; case is ignored unless CaseSensitive
// is passed.
func Equal(answer, expected string, opts ...CompareOption) bool {
	var o compareOptions
	for _, opt := range opts {
		opt(&o)
	}
	a, e := strings.TrimSpace(answer), strings.TrimSpace(expected)
	if o.caseSensitive {
		return a == e
	}
	return strings.EqualFold(a, e)
}

// Hint reveals the first reveal characters of plain and masks the rest,
// one placeholder per hidden character.
func Hint(plain string, reveal int) string {
	runes := []rune(plain)
	if reveal < 0 {
		reveal = 0
	}
	if len(runes) <= reveal {
		return plain
	}
	var b strings.Builder
	b.WriteString(string(runes[:reveal]))
	for range runes[reveal:] {
		b.WriteRune(HintPlaceholder)
	}
	return b.String()
}
