package value

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind enumerates the error taxonomy of §7. It is a classification, not a
// concrete type: callers compare with errors.Is against a sentinel of the
// matching Kind, or switch on (*Error).Kind.
type Kind int

const (
	KindParser Kind = iota
	KindEval
	KindName
	KindMismatchedType
	KindMismatchedLength
	KindUnsupportedUnaryOp
	KindUnsupportedBinaryOp
	KindInvalidHandle
	KindReadLock
	KindWriteLock
	KindServer
	KindNotAbleToSerialize
	KindNotAbleToDeserialize
	KindNotSupportedKType
	KindNotSupportedKList
	KindNotSupportedKNestedList
	KindNotSupportedKMixedList
	KindOverLength
	KindNotYetImplemented
)

func (k Kind) String() string {
	switch k {
	case KindParser:
		return "ParserErr"
	case KindEval:
		return "EvalErr"
	case KindName:
		return "NameErr"
	case KindMismatchedType:
		return "MismatchedType"
	case KindMismatchedLength:
		return "MismatchedLength"
	case KindUnsupportedUnaryOp:
		return "UnsupportedUnaryOp"
	case KindUnsupportedBinaryOp:
		return "UnsupportedBinaryOp"
	case KindInvalidHandle:
		return "InvalidHandle"
	case KindReadLock:
		return "ReadLock"
	case KindWriteLock:
		return "WriteLock"
	case KindServer:
		return "ServerErr"
	case KindNotAbleToSerialize:
		return "NotAbleToSerialize"
	case KindNotAbleToDeserialize:
		return "NotAbleToDeserialize"
	case KindNotSupportedKType:
		return "NotSupportedKType"
	case KindNotSupportedKList:
		return "NotSupportedKList"
	case KindNotSupportedKNestedList:
		return "NotSupportedKNestedList"
	case KindNotSupportedKMixedList:
		return "NotSupportedKMixedList"
	case KindOverLength:
		return "OverLength"
	case KindNotYetImplemented:
		return "NotYetImplemented"
	default:
		return "UnknownErr"
	}
}

// Error is the single error type raised by this module and its siblings.
// It carries a Kind for programmatic dispatch and a message for display.
type Error struct {
	Kind Kind
	Msg  string
	// cause is optional, wrapped context (e.g. an underlying I/O error).
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.cause }

// Is reports equality by Kind, so callers can do:
//
//	errors.Is(err, &value.Error{Kind: value.KindName})
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// NewError builds an *Error of the given kind with a formatted message.
func NewError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// WrapError builds an *Error that wraps an underlying cause via pkg/errors,
// preserving a stack trace for diagnostics.
func WrapError(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), cause: errors.WithStack(cause)}
}

// MismatchedType is a convenience constructor for the most common conversion
// failure (§4.1 "Conversions fail with MismatchedType when impossible").
func MismatchedType(op string, v Value) *Error {
	return NewError(KindMismatchedType, "%s: cannot apply to %s", op, v.TypeName())
}
