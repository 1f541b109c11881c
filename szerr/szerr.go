// Package szerr defines the error kinds surfaced across the compressor, as
// enumerated in the error handling design: ConfigError, PredictorInapplicable,
// EncoderError, LosslessError, CorruptStream and ErrorBoundViolation.
package szerr

import "fmt"

// Kind identifies which policy table row an error belongs to.
type Kind uint8

const (
	// ConfigError: invalid N, dims, eps <= 0, unsupported algorithm combo.
	// Fails before a pass starts.
	ConfigError Kind = iota
	// PredictorInapplicable: a predictor declines a block (e.g. regression
	// asked for N != 3, or an axis length <= 1). Treated as a fallthrough by
	// Composed; fatal if the predictor is the sole choice.
	PredictorInapplicable
	// EncoderError: Huffman decode reaches an invalid prefix, or the decoded
	// symbol count doesn't match what was requested.
	EncoderError
	// LosslessError: the lossless back-end returned a non-nil error.
	LosslessError
	// CorruptStream: magic/version mismatch, length overrun, unpredictable
	// count mismatch.
	CorruptStream
	// ErrorBoundViolation: an internal invariant check failed. Abort.
	ErrorBoundViolation
)

func (k Kind) String() string {
	switch k {
	case ConfigError:
		return "ConfigError"
	case PredictorInapplicable:
		return "PredictorInapplicable"
	case EncoderError:
		return "EncoderError"
	case LosslessError:
		return "LosslessError"
	case CorruptStream:
		return "CorruptStream"
	case ErrorBoundViolation:
		return "ErrorBoundViolation"
	default:
		return "UnknownError"
	}
}

// Error is a typed error carrying one of the Kind values above plus the
// underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an *Error of the given kind with a formatted message.
func New(kind Kind, format string, a ...interface{}) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, a...)}
}

// Wrap returns an *Error of the given kind wrapping err.
func Wrap(kind Kind, err error, format string, a ...interface{}) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, a...), Err: err}
}

// Is reports whether err is an *Error of the given kind, unwrapping as
// needed. Mirrors the stdlib errors.Is contract without requiring a
// sentinel value per kind.
func Is(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			if e.Kind == kind {
				return true
			}
			err = e.Err
			continue
		}
		type unwrapper interface{ Unwrap() error }
		u, ok := err.(unwrapper)
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
