package transport

import (
	"context"
	"fmt"
	"net"
	"time"
)

// UDPDialer opens connected datagram sockets.  "Connecting" a UDP
// socket only fixes its default peer; no packet is exchanged, so the
// dial succeeds even when nothing listens on the other side.
type UDPDialer struct {
	Timeout   time.Duration // bounds name resolution only
	LocalPort int           // optional source-port binding (0 = ephemeral)
}

// Dial resolves address and returns a *net.UDPConn bound to it.
func (d *UDPDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: d.Timeout}

	if d.LocalPort > 0 {
		a, err := net.ResolveUDPAddr(network, fmt.Sprintf(":%d", d.LocalPort))
		if err != nil {
			return nil, fmt.Errorf("resolve local addr: %w", err)
		}
		dialer.LocalAddr = a
	}

	return dialer.DialContext(ctx, network, address)
}

// Close is a no-op for stateless UDP dialers.
func (d *UDPDialer) Close() error { return nil }
