package cipher

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/url"
	"strings"
	"unicode/utf8"

	"cypher_arena/internal/apperr"
)

// ErrInvalidInput is wrapped by every decode failure caused by the payload.
var ErrInvalidInput = errors.New("invalid encoded input")

const (
	minRandomKey = 1
	maxRandomKey = 200
)

// Result is the output of an encode. Key is set only for XOR.
type Result struct {
	Encoded string
	Key     *int
}

// RandomKey draws an XOR key from [1,200]. A zero key would leave the
// plaintext unchanged. r may be nil.
func RandomKey(r *rand.Rand) int {
	if r == nil {
		return rand.IntN(maxRandomKey-minRandomKey+1) + minRandomKey
	}
	return r.IntN(maxRandomKey-minRandomKey+1) + minRandomKey
}

// Encode transforms plain with the given scheme, generating an XOR key
// when needed.
func Encode(plain string, scheme Scheme) (Result, error) {
	if scheme == XOR {
		return EncodeWithKey(plain, scheme, RandomKey(nil))
	}
	return EncodeWithKey(plain, scheme, 0)
}

// EncodeWithKey is Encode with an explicit XOR key. The key is ignored by
// every other scheme.
func EncodeWithKey(plain string, scheme Scheme, key int) (Result, error) {
	switch scheme {
	case ROT13:
		return Result{Encoded: rot13(plain)}, nil
	case Hex:
		return Result{Encoded: hex.EncodeToString([]byte(plain))}, nil
	case Base64:
		return Result{Encoded: base64.StdEncoding.EncodeToString([]byte(plain))}, nil
	case URL:
		return Result{Encoded: uriComponentEscape(plain)}, nil
	case XOR:
		if err := checkKey(key); err != nil {
			return Result{}, err
		}
		k := key
		return Result{Encoded: hex.EncodeToString(xorBytes([]byte(plain), byte(key))), Key: &k}, nil
	}
	return Result{}, fmt.Errorf("encode: unknown encoding scheme %q", scheme)
}

// Decode reverses Encode. key is required for XOR and ignored otherwise.
func Decode(encoded string, scheme Scheme, key *int) (string, error) {
	switch scheme {
	case ROT13:
		return rot13(encoded), nil
	case Hex:
		b, err := decodeHex(encoded)
		if err != nil {
			return "", invalid(scheme, err.Error())
		}
		return utf8Text(scheme, b)
	case Base64:
		b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
		if err != nil {
			return "", invalid(scheme, "malformed base64")
		}
		return utf8Text(scheme, b)
	case URL:
		s, err := url.PathUnescape(encoded)
		if err != nil {
			return "", invalid(scheme, "malformed percent escape")
		}
		if !utf8.ValidString(s) {
			return "", invalid(scheme, "escapes do not form UTF-8 text")
		}
		return s, nil
	case XOR:
		if key == nil {
			return "", invalid(scheme, "key required")
		}
		if err := checkKey(*key); err != nil {
			return "", err
		}
		b, err := decodeHex(encoded)
		if err != nil {
			return "", invalid(scheme, err.Error())
		}
		return utf8Text(scheme, xorBytes(b, byte(*key)))
	}
	return "", fmt.Errorf("decode: unknown encoding scheme %q", scheme)
}

func invalid(scheme Scheme, reason string) error {
	return &apperr.InvalidInputError{Op: "decode " + string(scheme), Reason: reason, Err: ErrInvalidInput}
}

func checkKey(key int) error {
	if key < 0 || key > 255 {
		return &apperr.InvalidInputError{Op: "xor", Reason: fmt.Sprintf("key %d outside 0-255", key), Err: ErrInvalidInput}
	}
	return nil
}

func utf8Text(scheme Scheme, b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", invalid(scheme, "decoded bytes are not UTF-8 text")
	}
	return string(b), nil
}

func rot13(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return 'a' + (r-'a'+13)%26
		case r >= 'A' && r <= 'Z':
			return 'A' + (r-'A'+13)%26
		}
		return r
	}, s)
}

var hexSeparators = strings.NewReplacer(" ", "", "\t", "", "\n", "", "\r", "", ":", "", "-", "")

func decodeHex(s string) ([]byte, error) {
	s = strings.ToLower(hexSeparators.Replace(s))
	if len(s)%2 != 0 {
		return nil, errors.New("odd-length hex")
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.New("non-hex character")
	}
	return b, nil
}

func xorBytes(b []byte, key byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		out[i] = c ^ key
	}
	return out
}

// QueryEscape leaves only -_.~ alone and writes spaces as '+'. Undo the
// differences so the output matches encodeURIComponent.
var uriComponentFixups = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

func uriComponentEscape(s string) string {
	return uriComponentFixups.Replace(url.QueryEscape(s))
}
