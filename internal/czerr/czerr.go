// Package czerr defines the structural-pipeline error taxonomy.
//
// Codes follow the same ranged layout as the reference implementation this
// package is grounded on: Chan-theory errors occupy 0-99, KL/bar-data errors
// occupy 200-299. The 100-199 trade-execution range is intentionally unused.
package czerr

import "fmt"

// Code identifies the category of a structural-pipeline error.
type Code int

const (
	chanErrBegin Code = 0

	// CommonError is an unclassified programming error.
	CommonError Code = 1
	// ParamError reports an unknown config option or algorithm selection.
	ParamError Code = 5
	// SegEndValueError reports a segment whose endpoints contradict its direction.
	SegEndValueError Code = 7
	// SegEigenError reports the characteristic-sequence state machine reaching
	// an unreachable configuration.
	SegEigenError Code = 8
	// StrokeError reports a direction/extreme mismatch on stroke construction
	// or mutation.
	StrokeError Code = 9
	// CombinerError reports an unreachable merged-bar combine classification.
	CombinerError Code = 10
	// SegLenError reports a confirmed segment spanning fewer than two strokes.
	SegLenError Code = 13
	// FeatureError reports a failure computing a divergence/feature metric.
	FeatureError Code = 16

	chanErrEnd Code = 99

	klErrBegin Code = 200

	// BarInvalid reports an OHLC ordering violation on ingest. Together with
	// KlTimeInconsistent it is one of the two codes a caller of
	// Pipeline.Append is expected to branch on; every other code is a
	// programming error.
	BarInvalid Code = 203
	// KlTimeInconsistent reports a duplicate or non-monotone bar timestamp.
	KlTimeInconsistent Code = 204

	klErrEnd Code = 299
)

func (c Code) String() string {
	switch c {
	case CommonError:
		return "COMMON_ERROR"
	case ParamError:
		return "PARA_ERROR"
	case SegEndValueError:
		return "SEG_END_VALUE_ERR"
	case SegEigenError:
		return "SEG_EIGEN_ERR"
	case StrokeError:
		return "BI_ERR"
	case CombinerError:
		return "COMBINER_ERR"
	case SegLenError:
		return "SEG_LEN_ERR"
	case FeatureError:
		return "FEATURE_ERROR"
	case BarInvalid:
		return "KL_DATA_INVALID"
	case KlTimeInconsistent:
		return "KL_TIME_INCONSISTENT"
	default:
		return fmt.Sprintf("ERR_CODE_%d", int(c))
	}
}

// IsChanErr reports whether c falls in the Chan-theory structural range.
func (c Code) IsChanErr() bool { return c > chanErrBegin && c < chanErrEnd }

// IsKLDataErr reports whether c falls in the bar-data range.
func (c Code) IsKLDataErr() bool { return c > klErrBegin && c < klErrEnd }

// Error is a typed structural-pipeline error carrying a Code.
type Error struct {
	Code Code
	Msg  string
	err  error
}

// New builds an Error with no wrapped cause.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// Newf builds an Error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error that wraps an underlying cause.
func Wrap(code Code, msg string, cause error) *Error {
	return &Error{Code: code, Msg: msg, err: cause}
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error { return e.err }

// Is reports whether target is an *Error with the same Code, so callers can
// use errors.Is(err, czerr.New(czerr.BarInvalid, "")) style checks via
// errors.Is against a sentinel built with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}
