package domain

import (
	"strconv"

	"cypher_arena/internal/cipher"
)

// Question is one encoded challenge. It is immutable once generated and
// Decode(Encoded, Scheme, Key) always yields Plaintext.
type Question struct {
	Plaintext string        `json:"plain"`
	Encoded   string        `json:"encoded"`
	Scheme    cipher.Scheme `json:"encoding"`
	Key       *int          `json:"key,omitempty"`
	Category  string        `json:"category"`
}

// Identity is the content key the duel deduplication gate compares. Two
// questions with the same identity are the same round.
func (q Question) Identity() string {
	key := ""
	if q.Key != nil {
		key = strconv.Itoa(*q.Key)
	}
	return string(q.Scheme) + "|" + key + "|" + q.Encoded + "|" + q.Plaintext
}

// Verify checks the codec invariant for q.
func (q Question) Verify() error {
	got, err := cipher.Decode(q.Encoded, q.Scheme, q.Key)
	if err != nil {
		return err
	}
	if got != q.Plaintext {
		return &mismatchError{scheme: q.Scheme}
	}
	return nil
}

type mismatchError struct{ scheme cipher.Scheme }

func (e *mismatchError) Error() string {
	return "question does not decode to its plaintext under " + string(e.scheme)
}
