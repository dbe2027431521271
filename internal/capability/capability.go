// Package capability defines the local side of a connection.  Each
// Capability opens an Endpoint that a session reads outbound bytes
// from (SEND) and writes inbound bytes to (RECEIVE): the terminal for
// plain relaying, or a child process for -e/-c.
package capability

import (
	"context"
	"io"
)

// Endpoint is an opened local byte stream.  Read never blocks: it
// returns (0, nil) while nothing is pending and io.EOF once the local
// side has finished.
type Endpoint interface {
	io.Reader
	io.Writer

	// Ready is signalled whenever Read has something new to return.
	Ready() <-chan struct{}

	// Close releases the endpoint.
	Close() error
}

// Capability opens an Endpoint for one connection.
type Capability interface {
	Open(ctx context.Context) (Endpoint, error)
}
