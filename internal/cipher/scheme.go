// Package cipher implements the reversible text transforms players decode.
package cipher

import (
	"fmt"
	"strings"
)

type Scheme string

const (
	ROT13  Scheme = "rot13"
	Hex    Scheme = "hex"
	Base64 Scheme = "base64"
	URL    Scheme = "url"
	XOR    Scheme = "xor"
)

var allSchemes = []Scheme{ROT13, Hex, Base64, URL, XOR}

// AllSchemes returns every supported scheme in display order.
func AllSchemes() []Scheme {
	out := make([]Scheme, len(allSchemes))
	copy(out, allSchemes)
	return out
}

// ParseScheme accepts a scheme name in any case.
func ParseScheme(s string) (Scheme, error) {
	switch Scheme(strings.ToLower(strings.TrimSpace(s))) {
	case ROT13:
		return ROT13, nil
	case Hex:
		return Hex, nil
	case Base64:
		return Base64, nil
	case URL:
		return URL, nil
	case XOR:
		return XOR, nil
	}
	return "", fmt.Errorf("unknown encoding scheme %q", s)
}

func (s Scheme) Valid() bool {
	_, err := ParseScheme(string(s))
	return err == nil
}

// DisplayName is the label shown next to an encoded challenge.
func (s Scheme) DisplayName() string {
	return strings.ToUpper(string(s))
}

func (s Scheme) bit() SchemeSet {
	switch s {
	case ROT13:
		return 1 << 0
	case Hex:
		return 1 << 1
	case Base64:
		return 1 << 2
	case URL:
		return 1 << 3
	case XOR:
		return 1 << 4
	}
	return 0
}

// SchemeSet is a value-type set of schemes.
type SchemeSet uint8

func SetOf(schemes ...Scheme) SchemeSet {
	var s SchemeSet
	for _, sc := range schemes {
		s = s.Add(sc)
	}
	return s
}

func (s SchemeSet) Add(sc Scheme) SchemeSet { return s | sc.bit() }

func (s SchemeSet) Has(sc Scheme) bool {
	b := sc.bit()
	return b != 0 && s&b == b
}

func (s SchemeSet) Len() int {
	n := 0
	for _, sc := range allSchemes {
		if s.Has(sc) {
			n++
		}
	}
	return n
}

// Complete reports whether every supported scheme is in the set.
func (s SchemeSet) Complete() bool {
	return s.Len() == len(allSchemes)
}

func (s SchemeSet) Schemes() []Scheme {
	var out []Scheme
	for _, sc := range allSchemes {
		if s.Has(sc) {
			out = append(out, sc)
		}
	}
	return out
}
