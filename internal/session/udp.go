package session

import (
	"context"
	"fmt"
	"net"
	"time"

	"sockcat/internal/transport"
	"sockcat/util"
)

// udpVariant opens datagram sockets.  Blocking waits are polled with
// a short read deadline and the context is checked between polls.
type udpVariant struct {
	dialer transport.Dialer
	poll   time.Duration
}

func (v udpVariant) dial(ctx context.Context, address string) (Socket, error) {
	conn, err := v.dialer.Dial(ctx, "udp", address)
	if err != nil {
		return nil, err
	}
	uc, ok := conn.(*net.UDPConn)
	if !ok {
		conn.Close() //nolint:errcheck
		return nil, fmt.Errorf("dialer returned %T, want *net.UDPConn", conn)
	}
	peer, _ := uc.RemoteAddr().(*net.UDPAddr)
	return &udpSocket{conn: uc, peer: peer, dialed: true, poll: v.poll}, nil
}

func (v udpVariant) bind(ctx context.Context, address string) (Socket, error) {
	var lc net.ListenConfig
	pc, err := lc.ListenPacket(ctx, "udp", address)
	if err != nil {
		return nil, err
	}
	uc, ok := pc.(*net.UDPConn)
	if !ok {
		pc.Close() //nolint:errcheck
		return nil, fmt.Errorf("listen returned %T, want *net.UDPConn", pc)
	}
	return &udpSocket{conn: uc, poll: v.poll}, nil
}

// udpSocket exchanges datagrams with a single peer.  A dialed socket
// is connected by the kernel.  A bound socket learns its peer from the
// first datagram and from then on drops datagrams from anyone else.
type udpSocket struct {
	conn   *net.UDPConn
	peer   *net.UDPAddr
	dialed bool
	poll   time.Duration
}

func (s *udpSocket) Await(ctx context.Context, p []byte) (net.Addr, int, error) {
	if s.peer != nil {
		return s.peer, 0, nil
	}
	for {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		s.conn.SetReadDeadline(time.Now().Add(s.poll)) //nolint:errcheck
		n, from, err := s.conn.ReadFromUDP(p)
		if err != nil {
			if util.IsTimeout(err) {
				continue
			}
			return nil, 0, err
		}
		s.conn.SetReadDeadline(time.Time{}) //nolint:errcheck
		s.peer = from
		return from, n, nil
	}
}

func (s *udpSocket) Read(ctx context.Context, p []byte, wait time.Duration) (int, error) {
	defer s.conn.SetReadDeadline(time.Time{}) //nolint:errcheck

	var deadline time.Time
	if wait > 0 {
		deadline = time.Now().Add(wait)
	}
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		next := time.Now().Add(s.poll)
		if !deadline.IsZero() && next.After(deadline) {
			next = deadline
		}
		s.conn.SetReadDeadline(next) //nolint:errcheck

		n, from, err := s.readFrom(p)
		if err != nil {
			if !util.IsTimeout(err) {
				return 0, err
			}
			if !deadline.IsZero() && !time.Now().Before(deadline) {
				return 0, nil
			}
			continue
		}
		if !samePeer(from, s.peer) {
			continue
		}
		return n, nil
	}
}

func (s *udpSocket) readFrom(p []byte) (int, *net.UDPAddr, error) {
	if s.dialed {
		n, err := s.conn.Read(p)
		return n, s.peer, err
	}
	return s.conn.ReadFromUDP(p)
}

func (s *udpSocket) Write(p []byte) (int, error) {
	if s.dialed {
		return s.conn.Write(p)
	}
	if s.peer == nil {
		return 0, fmt.Errorf("no peer")
	}
	return s.conn.WriteToUDP(p, s.peer)
}

func (s *udpSocket) LocalAddr() net.Addr { return s.conn.LocalAddr() }

func (s *udpSocket) RemoteAddr() net.Addr {
	if s.peer == nil {
		return nil
	}
	return s.peer
}

func (s *udpSocket) Close() error { return s.conn.Close() }

func samePeer(a, b *net.UDPAddr) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Port == b.Port && a.IP.Equal(b.IP)
}
