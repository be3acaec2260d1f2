// Package nmerr defines the error taxonomy shared by every stage of the
// state pipeline: parse, merge, revert, policy, and transaction.
package nmerr

import "fmt"

// Kind classifies a nmstate error so callers can decide whether to reject,
// rollback, or tolerate.
type Kind string

const (
	// InvalidArgument means the input document violates schema or invariants.
	InvalidArgument Kind = "InvalidArgument"
	// NotImplementedError means the configuration is recognized but unsupported.
	NotImplementedError Kind = "NotImplementedError"
	// NotSupported means the backend or kernel lacks the needed capability.
	NotSupported Kind = "NotSupported"
	// VerificationError means applied state didn't match desired after settle.
	VerificationError Kind = "VerificationError"
	// Bug means an internal invariant was violated.
	Bug Kind = "Bug"
	// DependencyError means a required predecessor is missing or cyclic.
	DependencyError Kind = "DependencyError"
	// KernelIntegerRoundedError means a numeric field was silently clamped.
	KernelIntegerRoundedError Kind = "KernelIntegerRoundedError"
	// PolicyFailed means a capture or template could not resolve.
	PolicyFailed Kind = "PolicyFailed"
)

// Error is the error type returned by every exported operation in this
// module. Path carries the offending field path (e.g.
// "interfaces[2].vlan.id") when one is known; it is empty otherwise.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("nmstate: %s: %s: %v", e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("nmstate: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an Error of the given kind wrapping msg.
func New(kind Kind, path string, format string, args ...any) *Error {
	return &Error{Kind: kind, Path: path, Err: fmt.Errorf(format, args...)}
}

// Wrap builds an Error of the given kind wrapping an existing error.
func Wrap(kind Kind, path string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Path: path, Err: err}
}

// KindOf returns the Kind carried by err if it (or something it wraps) is
// an *Error, and ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if ok := asError(err, &e); ok {
		return e.Kind, true
	}
	return "", false
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
