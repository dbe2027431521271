// Package errors provides domain-specific error types for sockcat.
//
// Session operations fail with an [*OpError] whose Kind is one of the
// sentinel kinds below, so callers can branch with errors.Is without
// caring which protocol produced the failure.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ── Operation error kinds ────────────────────────────────────────────

var (
	ErrAddress       = errors.New("invalid address")
	ErrBind          = errors.New("bind failed")
	ErrConnect       = errors.New("connect failed")
	ErrIO            = errors.New("i/o failed")
	ErrCancelled     = errors.New("operation cancelled")
	ErrGuard         = errors.New("operation not allowed in current state")
	ErrSessionClosed = errors.New("session is closed")
)

// ── Tunnel sentinels ─────────────────────────────────────────────────

var (
	ErrNotConnected    = errors.New("not connected")
	ErrAuthFailed      = errors.New("authentication failed")
	ErrHostKeyMismatch = errors.New("host key mismatch")
)

// ── Structured error types ───────────────────────────────────────────

// OpError represents a failed session operation.
type OpError struct {
	Kind      error  // one of the Err* kinds above
	Op        string // "connect", "listen", "accept", "read", "write", ...
	Addr      string // network address involved, if any
	Err       error  // underlying error
	Retryable bool   // whether the caller should retry
}

func (e *OpError) Error() string {
	s := e.Op
	if e.Addr != "" {
		s += " " + e.Addr
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	} else {
		s += ": " + e.Kind.Error()
	}
	if e.Retryable {
		s += " (retryable)"
	}
	return s
}

func (e *OpError) Unwrap() error { return e.Err }

// Is matches the error's kind, so errors.Is(err, ErrBind) works
// without exposing the concrete type.
func (e *OpError) Is(target error) bool {
	if target == e.Kind {
		return true
	}
	// Cancellation also reads as a context cancellation.
	return e.Kind == ErrCancelled && target == context.Canceled
}

// GuardError reports an operation whose precondition was not met.
type GuardError struct {
	Op    string
	State string
}

func (e *GuardError) Error() string {
	return fmt.Sprintf("%s not allowed while %s", e.Op, e.State)
}

func (e *GuardError) Is(target error) bool { return target == ErrGuard }

// SSHError represents an SSH-specific failure with host context.
type SSHError struct {
	Op   string // "handshake", "auth", "hostkey"
	Host string
	Port int
	Err  error
}

func (e *SSHError) Error() string {
	return fmt.Sprintf("ssh %s %s:%d: %v", e.Op, e.Host, e.Port, e.Err)
}

func (e *SSHError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Wrap creates an OpError of the given kind, automatically detecting
// retryability from the underlying error.
func Wrap(kind error, op, addr string, err error) *OpError {
	return &OpError{
		Kind:      kind,
		Op:        op,
		Addr:      addr,
		Err:       err,
		Retryable: classifyRetryable(err),
	}
}

// Cancelled creates the error reported by an operation that was
// aborted before it completed.
func Cancelled(op, addr string) *OpError {
	return &OpError{Kind: ErrCancelled, Op: op, Addr: addr}
}

// Guard creates a GuardError.
func Guard(op, state string) *GuardError {
	return &GuardError{Op: op, State: state}
}

// WrapSSH creates an SSHError.
func WrapSSH(op, host string, port int, err error) *SSHError {
	return &SSHError{Op: op, Host: host, Port: port, Err: err}
}

// ── Classification helpers ───────────────────────────────────────────

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Retryable
	}
	return classifyRetryable(err)
}

// IsCancelled reports whether err stems from cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

// IsResolveError reports whether err came from name resolution or a
// malformed address rather than from the network itself.
func IsResolveError(err error) bool {
	var dnsErr *net.DNSError
	var addrErr *net.AddrError
	return errors.As(err, &dnsErr) || errors.As(err, &addrErr)
}

// classifyRetryable inspects standard library error types.
func classifyRetryable(err error) bool {
	if err == nil {
		return false
	}
	// net.OpError with Temporary() hint
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Temporary() //nolint:staticcheck // Temporary is deprecated but still useful
	}
	// DNS errors
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary() //nolint:staticcheck
	}
	return false
}

// ── Re-exports for convenience ───────────────────────────────────────
//
// These allow callers to use sockcat/internal/errors as a drop-in
// replacement for the standard library in common operations.

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Unwrap is [errors.Unwrap].
func Unwrap(err error) error { return errors.Unwrap(err) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
