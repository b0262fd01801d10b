package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	KindEnumeration Kind = "enumeration" // Source root missing or unreadable. Fatal for the stage.
	KindRead        Kind = "read"
	KindCodec       Kind = "codec"
	KindWrite       Kind = "write"
	KindTimeout     Kind = "timeout"
	KindCanceled    Kind = "canceled"
)

// ErrCodecTimeout is the cause of KindTimeout failures.
var ErrCodecTimeout = errors.New("codec timeout")

// Error is a classified pipeline failure. Descriptor is the label of the
// transform descriptor involved, if any.
type Error struct {
	Kind       Kind
	Op         string
	Path       string
	Descriptor string
	Cause      error
}

func (e *Error) Error() string {
	where := e.Path
	if e.Descriptor != "" {
		where += " [" + e.Descriptor + "]"
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Kind, e.Op, where, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Kind, e.Op, where)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Wrap returns err classified as kind. An error that is already an *Error
// is returned unchanged.
func Wrap(kind Kind, op, path, descriptor string, err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	return &Error{Kind: kind, Op: op, Path: path, Descriptor: descriptor, Cause: err}
}

// IsKind reports whether err carries a pipeline *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind == kind
	}
	return false
}

// KindOf returns the kind of err, or "" when err is not a pipeline error.
func KindOf(err error) Kind {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind
	}
	return ""
}
