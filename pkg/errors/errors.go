// Package errors provides structured error handling for the collector.
//
// Two layers live here: the generic typed Error (category, message, cause,
// details, stack) used for registry and validation failures, and the
// collector taxonomy (LoadConfigError, PlatformAPIError and its two kinds,
// MappingDataError, ParserError) that callers match with errors.As.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"sort"

	"go.uber.org/zap/zapcore"
)

// ErrorType groups failures by what the operator has to fix.
type ErrorType string

const (
	ErrorTypeInternal       ErrorType = "internal"
	ErrorTypeValidation     ErrorType = "validation"     // a plugin or setting is malformed
	ErrorTypeNotFound       ErrorType = "not_found"      // no adapter or provider for a type
	ErrorTypeConflict       ErrorType = "conflict"       // duplicate plugin or adapter name
	ErrorTypeConnection     ErrorType = "connection"     // a source or the platform is unreachable
	ErrorTypeAuthentication ErrorType = "authentication" // the platform refused the token
	ErrorTypeConfig         ErrorType = "config"
	ErrorTypeData           ErrorType = "data"       // metadata could not be read or mapped
	ErrorTypeCapability     ErrorType = "capability" // the adapter shape is not supported
)

// Error is a typed failure. It logs as a structured object through zap.Object.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame is one caller captured when the error was created.
type StackFrame struct {
	Function string
	File     string
	Line     int
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail attaches a key-value pair that is logged with the error.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Origin is the innermost frame captured, or the zero frame.
func (e *Error) Origin() StackFrame {
	if len(e.Stack) == 0 {
		return StackFrame{}
	}
	return e.Stack[0]
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (e *Error) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("type", string(e.Type))
	enc.AddString("message", e.Message)
	if origin := e.Origin(); origin.Function != "" {
		enc.AddString("origin", fmt.Sprintf("%s:%d", origin.File, origin.Line))
	}
	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := enc.AddReflected(k, e.Details[k]); err != nil {
			return err
		}
	}
	return nil
}

func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf is New with a format string.
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap types err. A nil err stays nil, and an already typed cause keeps the
// stack it was created with.
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// IsType reports whether the outermost typed error in err's chain has errType.
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// Is and As re-export the standard library helpers so callers importing this
// package under the name "errors" keep them at hand.
var (
	Is   = errors.Is
	As   = errors.As
	Join = errors.Join
)

func captureStack(skip int) []StackFrame {
	const maxFrames = 16
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
