package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseSerialize   Phase = "serialize"   // value graph to payload bytes
	PhaseDeserialize Phase = "deserialize" // payload bytes to value graph
	PhaseTransfer    Phase = "transfer"    // transfer-list processing
	PhasePort        Phase = "port"        // port operations
	PhaseCompile     Phase = "compile"     // code unit compilation
	PhaseSnapshot    Phase = "snapshot"    // snapshot read/write passes
)

// Kind categorizes the error
type Kind string

const (
	KindDataClone    Kind = "data_clone"    // structured-clone failure
	KindSelfTransfer Kind = "self_transfer" // port listed in its own transfer
	KindUnclonable   Kind = "unclonable"    // value the serializer cannot represent
	KindDetached     Kind = "detached"      // use of a transferred/detached handle
	KindClosed       Kind = "closed"        // operation on a closed port
	KindInvalidState Kind = "invalid_state" // operation out of lifecycle order
	KindInvalidData  Kind = "invalid_data"
	KindTagMismatch  Kind = "tag_mismatch"
	KindTruncated    Kind = "truncated"
	KindUnsupported  Kind = "unsupported"
	KindAllocation   Kind = "allocation"
	KindNotFound     Kind = "not_found"
)

// Error is the structured error type used throughout the library
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	GoType string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" {
		b.WriteString(": Go type ")
		b.WriteString(e.GoType)
	}

	if e.Detail != "" {
		if e.GoType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// SelfTransfer creates the DataClone-style error reported when a port is
// listed in its own transfer list.
func SelfTransfer() *Error {
	return &Error{
		Phase:  PhaseTransfer,
		Kind:   KindSelfTransfer,
		Detail: "the source port was found in the transfer list",
	}
}

// Unclonable creates an error for a value the host serializer cannot
// represent.
func Unclonable(phase Phase, path []string, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnclonable,
		Path:   path,
		GoType: goType,
		Detail: "value cannot be cloned",
	}
}

// Detached creates an error for use of a transferred or detached handle.
func Detached(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindDetached,
		Detail: fmt.Sprintf("%s has been detached", what),
	}
}

// Closed creates an error for an operation on a closed port.
func Closed(what string) *Error {
	return &Error{
		Phase:  PhasePort,
		Kind:   KindClosed,
		Detail: fmt.Sprintf("%s is closed", what),
	}
}

// InvalidState creates an error for an operation performed out of
// lifecycle order.
func InvalidState(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidState,
		Detail: detail,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// NotFound creates a lookup failure error
func NotFound(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: what,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
