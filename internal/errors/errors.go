package errors

import (
	"errors"
	"fmt"
)

// ErrBot is the common parent of every failure the bot anticipates and
// knows how to survive without telling the chat about it.
var ErrBot = errors.New("bot failure")

var (
	ErrServerUnavailable = fmt.Errorf("%w: review server unavailable", ErrBot)
	ErrSendFailed        = fmt.Errorf("%w: message send failed", ErrBot)
	ErrMissingConfig     = fmt.Errorf("%w: missing configuration", ErrBot)
)

var (
	ErrTypeMismatch  = errors.New("type mismatch")
	ErrMissingKey    = errors.New("missing key")
	ErrUnknownStatus = errors.New("unknown homework status")
	ErrBodyTooLarge  = errors.New("response body too large")
)

// Kind is the closed set of categories the poll loop branches on.
type Kind int

const (
	KindNone Kind = iota
	KindFatal
	KindDomain
	KindUnexpected
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "ok"
	case KindFatal:
		return "fatal"
	case KindDomain:
		return "domain"
	case KindUnexpected:
		return "unexpected"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Classify maps err onto a Kind. Missing configuration is checked before
// ErrBot because it wraps it.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrMissingConfig):
		return KindFatal
	case errors.Is(err, ErrBot):
		return KindDomain
	default:
		return KindUnexpected
	}
}

func NewServerUnavailable(format string, a ...interface{}) error {
	return wrap(ErrServerUnavailable, format, a...)
}

func NewSendFailed(format string, a ...interface{}) error {
	return wrap(ErrSendFailed, format, a...)
}

func NewTypeMismatch(format string, a ...interface{}) error {
	return wrap(ErrTypeMismatch, format, a...)
}

func NewMissingKey(key string) error {
	return fmt.Errorf("%w: %q", ErrMissingKey, key)
}

func NewUnknownStatus(status interface{}) error {
	return fmt.Errorf("%w: %v", ErrUnknownStatus, status)
}

func NewBodyTooLarge(limit int64) error {
	return fmt.Errorf("%w: exceeds %d bytes", ErrBodyTooLarge, limit)
}

// IsFatal reports whether err must stop the bot before polling starts.
func IsFatal(err error) bool {
	return Classify(err) == KindFatal
}

// IsDomain reports whether err is an anticipated failure that is only logged.
func IsDomain(err error) bool {
	return Classify(err) == KindDomain
}

// wrap keeps sentinel matching through errors.Is while still allowing the
// caller to wrap an underlying cause with %w in format.
func wrap(sentinel error, format string, a ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{sentinel}, a...)...)
}
