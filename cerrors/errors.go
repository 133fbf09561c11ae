// Package cerrors defines the abstract error kinds of the container's
// error-handling design: a single tagged error type shared by the
// definition registry, the singleton store, the resolver, and the
// placeholder engine, so callers can branch on Kind without depending on
// which package raised the failure.
package cerrors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Kind is one of the abstract error kinds a container operation can fail with.
type Kind int

const (
	KindUnknown Kind = iota
	KindNoSuchBean
	KindNoUniqueBean
	KindBeanCreation
	KindCircularCreation
	KindCircularPrototype
	KindInconsistentEarlyReference
	KindAmbiguousConstructor
	KindUnresolvableDependency
	KindConfigurationFrozen
	KindContainerClosed
	KindNameConflict
	KindCircularAlias
	KindUnknownAlias
	KindUnresolvedPlaceholder
	KindCircularPlaceholder
)

func (k Kind) String() string {
	switch k {
	case KindNoSuchBean:
		return "NoSuchBean"
	case KindNoUniqueBean:
		return "NoUniqueBean"
	case KindBeanCreation:
		return "BeanCreation"
	case KindCircularCreation:
		return "CircularCreation"
	case KindCircularPrototype:
		return "CircularPrototype"
	case KindInconsistentEarlyReference:
		return "InconsistentEarlyReference"
	case KindAmbiguousConstructor:
		return "AmbiguousConstructor"
	case KindUnresolvableDependency:
		return "UnresolvableDependency"
	case KindConfigurationFrozen:
		return "ConfigurationFrozen"
	case KindContainerClosed:
		return "ContainerClosed"
	case KindNameConflict:
		return "NameConflict"
	case KindCircularAlias:
		return "CircularAlias"
	case KindUnknownAlias:
		return "UnknownAlias"
	case KindUnresolvedPlaceholder:
		return "UnresolvedPlaceholder"
	case KindCircularPlaceholder:
		return "CircularPlaceholder"
	default:
		return "Unknown"
	}
}

// Error is the container's error type. It carries the offending bean name
// (when applicable), a human-readable message, an optional causal chain,
// and a list of suppressed causes — recoverable sub-failures that occurred
// on the way to the final outcome.
type Error struct {
	Kind       Kind
	Bean       string
	Message    string
	cause      error
	suppressed []error
}

// New creates an Error with no cause.
func New(kind Kind, bean, message string) *Error {
	return &Error{Kind: kind, Bean: bean, Message: message}
}

// Wrap creates an Error wrapping cause with a pkg/errors stack trace, so the
// root cause of a BeanCreation failure is never lost even if it originated
// several frames down in user code.
func Wrap(kind Kind, bean string, cause error, format string, args ...interface{}) *Error {
	msg := fmt.Sprintf(format, args...)
	var wrapped error
	if cause != nil {
		wrapped = errors.Wrap(cause, msg)
	}
	return &Error{Kind: kind, Bean: bean, Message: msg, cause: wrapped}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Bean != "" {
		b.WriteString(" [")
		b.WriteString(e.Bean)
		b.WriteString("]")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	if n := len(e.suppressed); n > 0 {
		fmt.Fprintf(&b, " (%d suppressed)", n)
	}
	return b.String()
}

// Unwrap exposes the causal chain to errors.Is / errors.As.
func (e *Error) Unwrap() error { return e.cause }

// AddSuppressed records a recoverable sub-failure that preceded the final
// outcome — e.g. a circular-reference resolution attempt that failed before
// a later attempt succeeded differently.
func (e *Error) AddSuppressed(err error) {
	if err == nil {
		return
	}
	e.suppressed = append(e.suppressed, err)
}

// Suppressed returns the recorded suppressed causes, if any.
func (e *Error) Suppressed() []error {
	return e.suppressed
}

// Is reports whether err is a *Error of the given kind, unwrapping as needed.
func Is(err error, kind Kind) bool {
	var ce *Error
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Kind == kind
}

// KindOf extracts the Kind from err, or KindUnknown if err is not a *Error.
func KindOf(err error) Kind {
	var ce *Error
	if !errors.As(err, &ce) {
		return KindUnknown
	}
	return ce.Kind
}
