package session

import (
	"context"
	"io"
	"net"
	"time"

	"sockcat/internal/transport"
	"sockcat/util"
)

// tcpVariant opens stream sockets.  Blocking accepts and reads are
// interrupted by closing the socket from a context watcher.
type tcpVariant struct {
	dialer transport.Dialer
}

func (v tcpVariant) dial(ctx context.Context, address string) (Socket, error) {
	conn, err := v.dialer.Dial(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}
	return &tcpSocket{conn: conn}, nil
}

func (v tcpVariant) bind(ctx context.Context, address string) (Socket, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}
	return &tcpSocket{ln: ln}, nil
}

// tcpSocket is either a listener waiting for its first peer or an
// established stream.  Accepting swaps the first for the second.
type tcpSocket struct {
	ln   net.Listener
	conn net.Conn
	shut bool // write side closed
}

func (s *tcpSocket) Await(ctx context.Context, _ []byte) (net.Addr, int, error) {
	if s.ln == nil {
		return s.conn.RemoteAddr(), 0, nil
	}
	stop := interruptByClose(ctx, s.ln)
	conn, err := s.ln.Accept()
	fired := stop()
	if fired && err == nil {
		conn.Close() //nolint:errcheck
		return nil, 0, ctx.Err()
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, 0, ctxErr
		}
		return nil, 0, err
	}
	// Only one peer per session.
	s.ln.Close() //nolint:errcheck
	s.ln = nil
	s.conn = conn
	return conn.RemoteAddr(), 0, nil
}

func (s *tcpSocket) Read(ctx context.Context, p []byte, wait time.Duration) (int, error) {
	if wait > 0 {
		s.conn.SetReadDeadline(time.Now().Add(wait)) //nolint:errcheck
		defer s.conn.SetReadDeadline(time.Time{})    //nolint:errcheck
	}
	stop := interruptByClose(ctx, s.conn)
	n, err := s.conn.Read(p)
	fired := stop()
	switch {
	case fired:
		// The stream is gone even if the read raced the close.
		return n, ctx.Err()
	case err == nil:
		return n, nil
	case err == io.EOF:
		return n, io.EOF
	case ctx.Err() != nil:
		return n, ctx.Err()
	case util.IsTimeout(err):
		return n, nil
	}
	return n, err
}

func (s *tcpSocket) Write(p []byte) (int, error) {
	return s.conn.Write(p)
}

// CloseWrite half-closes the stream once.
func (s *tcpSocket) CloseWrite() error {
	if s.shut || s.conn == nil {
		return nil
	}
	s.shut = true
	if cw, ok := s.conn.(halfCloser); ok {
		return cw.CloseWrite()
	}
	return nil
}

func (s *tcpSocket) LocalAddr() net.Addr {
	if s.ln != nil {
		return s.ln.Addr()
	}
	return s.conn.LocalAddr()
}

func (s *tcpSocket) RemoteAddr() net.Addr {
	if s.conn == nil {
		return nil
	}
	return s.conn.RemoteAddr()
}

func (s *tcpSocket) Close() error {
	if s.ln != nil {
		return s.ln.Close()
	}
	return s.conn.Close()
}
