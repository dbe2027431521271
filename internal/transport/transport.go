// Package transport provides the dialers CONNECT uses to open an
// outbound socket.  A dialer only establishes the connection; what
// flows over it afterwards is the session's business.
package transport

import (
	"context"
	"net"
)

// Dialer opens outbound network connections.  Implementations include
// plain TCP/UDP dialers and an SSH-tunnelled dialer that routes TCP
// traffic through a gateway.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases any long-lived resources held by the dialer
	// (e.g. an SSH session).  Stateless dialers return nil.
	Close() error
}
