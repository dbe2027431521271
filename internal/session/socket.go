package session

import (
	"context"
	"net"
	"time"
)

// Socket is one open OS socket owned by a Session.  The TCP and UDP
// variants differ only in how they wait and how they are interrupted;
// the state machine in session.go never looks past this interface.
type Socket interface {
	// Await blocks until a peer shows up on a bound socket.  Any
	// payload that arrived with the peer is copied into p and its
	// length returned.  Cancelling ctx aborts the wait.
	Await(ctx context.Context, p []byte) (peer net.Addr, n int, err error)

	// Read reads at most len(p) bytes from the peer.  wait bounds how
	// long to wait for data (zero waits forever); expiry returns
	// (0, nil).  End of stream is io.EOF.  Cancelling ctx aborts.
	Read(ctx context.Context, p []byte, wait time.Duration) (int, error)

	// Write sends p to the peer.
	Write(p []byte) (int, error)

	// LocalAddr returns the bound local address.
	LocalAddr() net.Addr

	// RemoteAddr returns the peer address, or nil before one is known.
	RemoteAddr() net.Addr

	// Close releases the OS resource.
	Close() error
}

// halfCloser is implemented by sockets that can tell the peer no more
// data follows while still reading.
type halfCloser interface {
	CloseWrite() error
}

// variant opens sockets for one protocol.
type variant interface {
	dial(ctx context.Context, address string) (Socket, error)
	bind(ctx context.Context, address string) (Socket, error)
}

// interruptByClose arranges for c to be closed if ctx is cancelled
// while a blocking call is parked on it.  Closing is the only way to
// wake a blocked accept.  The returned stop must be called when the
// call returns; it reports whether the close fired.
func interruptByClose(ctx context.Context, c interface{ Close() error }) (stop func() (fired bool)) {
	release := context.AfterFunc(ctx, func() { c.Close() }) //nolint:errcheck
	return func() bool { return !release() }
}
