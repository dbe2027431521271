package errors

import (
	"context"
	"fmt"
	"io"
	"net"
	"testing"
)

func TestOpError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  OpError
		want string
	}{
		{
			name: "retryable",
			err:  OpError{Kind: ErrConnect, Op: "connect", Addr: "example.com:80", Err: io.EOF, Retryable: true},
			want: "connect example.com:80: EOF (retryable)",
		},
		{
			name: "non-retryable",
			err:  OpError{Kind: ErrBind, Op: "listen", Addr: ":8080", Err: fmt.Errorf("address already in use")},
			want: "listen :8080: address already in use",
		},
		{
			name: "kind only",
			err:  OpError{Kind: ErrCancelled, Op: "receive", Addr: ":9000"},
			want: "receive :9000: operation cancelled",
		},
		{
			name: "no address",
			err:  OpError{Kind: ErrAddress, Op: "connect", Err: fmt.Errorf("missing port")},
			want: "connect: missing port",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOpError_IsKind(t *testing.T) {
	err := fmt.Errorf("outer: %w", Wrap(ErrBind, "listen", ":80", io.EOF))

	if !Is(err, ErrBind) {
		t.Error("should match its kind")
	}
	if Is(err, ErrConnect) {
		t.Error("should not match another kind")
	}
	if !Is(err, io.EOF) {
		t.Error("should unwrap to the cause")
	}
}

func TestCancelled_MatchesContext(t *testing.T) {
	err := Cancelled("receive", ":9000")
	if !Is(err, ErrCancelled) || !Is(err, context.Canceled) {
		t.Error("cancellation should match ErrCancelled and context.Canceled")
	}
	if !IsCancelled(err) || !IsCancelled(context.Canceled) {
		t.Error("IsCancelled should accept both forms")
	}
	if IsCancelled(Wrap(ErrIO, "read", "", io.EOF)) {
		t.Error("an I/O error is not a cancellation")
	}
}

func TestGuardError(t *testing.T) {
	err := Guard("SEND", "IDLE")
	if got, want := err.Error(), "SEND not allowed while IDLE"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if !Is(err, ErrGuard) {
		t.Error("guard error should match ErrGuard")
	}
}

func TestSSHError_Format(t *testing.T) {
	err := WrapSSH("handshake", "bastion.example.com", 22, fmt.Errorf("connection refused"))
	want := "ssh handshake bastion.example.com:22: connection refused"
	if got := err.Error(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSSHError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("auth fail")
	err := WrapSSH("auth", "host", 22, inner)
	if !Is(err, inner) {
		t.Error("should unwrap to inner error")
	}
}

func TestConfigError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  ConfigError
		want string
	}{
		{
			name: "with value and hint",
			err: ConfigError{
				Field:   "port",
				Value:   99999,
				Message: "out of range 0-65535",
				Hint:    "use a port between 1 and 65535",
			},
			want: "config: --port=99999: out of range 0-65535\n  hint: use a port between 1 and 65535",
		},
		{
			name: "missing value no hint",
			err: ConfigError{
				Field:   "port",
				Message: "required with -l",
			},
			want: "config: --port: required with -l",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got:\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	inner := fmt.Errorf("connection refused")
	err := Wrap(ErrConnect, "connect", "10.0.0.1:22", inner)

	if err.Op != "connect" || err.Addr != "10.0.0.1:22" {
		t.Errorf("wrong fields: Op=%q Addr=%q", err.Op, err.Addr)
	}
	if !Is(err, inner) {
		t.Error("should unwrap to inner error")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"retryable op", &OpError{Kind: ErrConnect, Op: "connect", Err: io.EOF, Retryable: true}, true},
		{"non-retryable op", &OpError{Kind: ErrConnect, Op: "connect", Err: io.EOF}, false},
		{"plain error", fmt.Errorf("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsResolveError(t *testing.T) {
	dns := &net.OpError{Op: "dial", Net: "tcp", Err: &net.DNSError{Name: "nope.invalid", IsNotFound: true}}
	if !IsResolveError(dns) {
		t.Error("DNS failure should be a resolve error")
	}
	if !IsResolveError(&net.AddrError{Err: "missing port", Addr: "x"}) {
		t.Error("AddrError should be a resolve error")
	}
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: fmt.Errorf("connection refused")}
	if IsResolveError(refused) {
		t.Error("refused connection is not a resolve error")
	}
}

func TestClassifyRetryable_NetOpError(t *testing.T) {
	opErr := &net.OpError{
		Op:  "dial",
		Net: "tcp",
		Err: &net.DNSError{IsTemporary: true},
	}
	if !classifyRetryable(opErr) {
		t.Error("temporary OpError should be retryable")
	}
}

func TestSentinels(t *testing.T) {
	// Verify sentinel errors are distinct.
	sentinels := []error{
		ErrAddress, ErrBind, ErrConnect, ErrIO, ErrCancelled, ErrGuard,
		ErrSessionClosed, ErrNotConnected, ErrAuthFailed, ErrHostKeyMismatch,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && Is(a, b) {
				t.Errorf("sentinel %d and %d should not match", i, j)
			}
		}
	}
}
