// Package apperr defines the error kinds surfaced by the arena engine.
// None of them is fatal to the process; each is scoped to the current
// session or match.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// InvalidInputError reports malformed encoded text handed to a decoder.
type InvalidInputError struct {
	Op     string
	Reason string
	Err    error
}

func (e *InvalidInputError) Error() string {
	if e.Op == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("%s: invalid input: %s", e.Op, e.Reason)
}

func (e *InvalidInputError) Unwrap() error { return e.Err }

// ConfigurationError reports missing credentials for external services.
// Duel mode is disabled while one is outstanding; practice is unaffected.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return "missing configuration: " + strings.Join(e.Missing, ", ")
}

// TransportError wraps a failed publish, subscribe, or record write.
// These are logged and dropped, never retried.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NotFoundError reports a lookup that returned nothing, such as an unknown
// room code. The action can simply be retried.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return e.Kind + " not found"
	}
	return fmt.Sprintf("%s %q not found", e.Kind, e.Key)
}

// NotFound is shorthand for &NotFoundError{Kind: kind, Key: key}.
func NotFound(kind, key string) error {
	return &NotFoundError{Kind: kind, Key: key}
}

// Transport is shorthand for &TransportError{Op: op, Err: err}. A nil err
// yields nil.
func Transport(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransportError{Op: op, Err: err}
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

func IsInvalidInput(err error) bool {
	var ie *InvalidInputError
	return errors.As(err, &ie)
}

func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
