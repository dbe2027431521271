// Package session implements the connection engine behind sockcat.
//
// A Session owns at most one socket and moves it through the states
// IDLE, LISTENING, CONNECTED and CLOSED in response to five operations:
// CONNECT, LISTEN, RECEIVE, SEND and DISCONNECT.  Operations run one at
// a time on a per-session worker goroutine; callers submit them with
// [Session.Execute] or [Session.Do] and receive exactly one [Result]
// per submission.
//
// The local side of a session is a [ByteTransport]: SEND reads from
// it, RECEIVE writes to it.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	ncerr "sockcat/internal/errors"
	"sockcat/internal/metrics"
	"sockcat/internal/transport"
	"sockcat/util"
)

// DefaultPollInterval is how often a UDP wait checks for cancellation.
const DefaultPollInterval = 100 * time.Millisecond

// ByteTransport is the local end of a session.  Read may return 0, nil
// when nothing is available yet; io.EOF means the local side is done.
type ByteTransport interface {
	io.Reader
	io.Writer
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger used for operation traces.
func WithLogger(l *util.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithMetrics records operations, bytes and connections into c.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Session) { s.metrics = c }
}

// WithDialer sets the dialer CONNECT uses.  The session closes it on
// [Session.Close].
func WithDialer(d transport.Dialer) Option {
	return func(s *Session) { s.dialer = d }
}

// WithObserver registers fn to see every Result before it is handed
// to the submitter.  fn runs on the worker goroutine.
func WithObserver(fn func(Result)) Option {
	return func(s *Session) { s.observer = fn }
}

// WithPollInterval sets how often UDP waits check for cancellation.
func WithPollInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.poll = d
		}
	}
}

// WithReceiveWait bounds how long a RECEIVE on a connected session
// waits for data.  Zero, the default, waits until data, end of stream
// or cancellation.
func WithReceiveWait(d time.Duration) Option {
	return func(s *Session) { s.receiveWait = d }
}

// WithStrictGuards makes operations issued in the wrong state fail
// with ErrGuard instead of completing as a no-op.
func WithStrictGuards() Option {
	return func(s *Session) { s.strict = true }
}

// WithListenHost sets the address LISTEN binds to.  The default binds
// all interfaces.
func WithListenHost(host string) Option {
	return func(s *Session) { s.listenHost = host }
}

// Session is a single network endpoint plus the worker that drives it.
type Session struct {
	proto    Protocol
	local    ByteTransport
	variant  variant
	dialer   transport.Dialer
	log      *util.Logger
	metrics  *metrics.Collector
	observer func(Result)

	strict      bool
	listenHost  string
	poll        time.Duration
	receiveWait time.Duration

	// sock is touched only by the worker goroutine.
	sock Socket

	mu        sync.RWMutex // guards the fields below for status queries
	state     State
	peer      net.Addr
	localAddr net.Addr

	runner
}

// New creates a session for proto whose local side is local and
// starts its worker.  Call Close to stop it.
func New(proto Protocol, local ByteTransport, opts ...Option) *Session {
	s := &Session{
		proto: proto,
		local: local,
		poll:  DefaultPollInterval,
	}
	for _, o := range opts {
		o(s)
	}
	if s.local == nil {
		s.local = discard{}
	}
	if s.log == nil {
		s.log = util.NewLogger(0)
	}
	s.log = s.log.With(zap.String("proto", proto.String()))
	if s.dialer == nil {
		if proto == UDP {
			s.dialer = &transport.UDPDialer{}
		} else {
			s.dialer = &transport.TCPDialer{}
		}
	}
	if proto == UDP {
		s.variant = udpVariant{dialer: s.dialer, poll: s.poll}
	} else {
		s.variant = tcpVariant{dialer: s.dialer}
	}
	s.runner.start(s)
	return s
}

// Protocol returns the session's protocol.
func (s *Session) Protocol() Protocol { return s.proto }

// State returns the current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsListening reports whether the session is waiting for a peer.
func (s *Session) IsListening() bool { return s.State() == Listening }

// IsConnected reports whether the session has a peer.
func (s *Session) IsConnected() bool { return s.State() == Connected }

// Peer returns the remote address, or nil without a peer.
func (s *Session) Peer() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.peer
}

// LocalAddr returns the bound local address, or nil without a socket.
func (s *Session) LocalAddr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.localAddr
}

// run executes one operation on the worker goroutine.
func (s *Session) run(ctx context.Context, op Operation, args []string) Result {
	res := Result{Op: op, Proto: s.proto}
	s.log.Verbose("%s %s: begin state=%s", op, strings.Join(args, " "), s.State())

	if ctx.Err() != nil && op != Receive {
		res.Err = ncerr.Cancelled(strings.ToLower(op.String()), "")
	} else {
		switch op {
		case Connect:
			s.connect(ctx, args, &res)
		case Listen:
			s.listen(ctx, args, &res)
		case Receive:
			s.receive(ctx, &res)
		case Send:
			s.send(&res)
		case Disconnect:
			s.disconnect(&res)
		default:
			res.Err = ncerr.Guard(op.String(), s.State().String())
		}
	}

	s.trace(res)
	s.metrics.OperationExecuted(op.String())
	if res.Cancelled() {
		s.metrics.Cancelled()
	} else if res.Err != nil {
		s.metrics.RecordError(res.Err.Error())
	}
	return res
}

func (s *Session) connect(ctx context.Context, args []string, res *Result) {
	if st := s.State(); st == Listening || st == Connected {
		s.guard(res, st)
		return
	}
	if len(args) != 2 {
		res.Err = ncerr.Wrap(ncerr.ErrAddress, "connect", strings.Join(args, " "),
			fmt.Errorf("want host and port, got %d argument(s)", len(args)))
		return
	}
	host := strings.TrimSpace(args[0])
	if host == "" {
		res.Err = ncerr.Wrap(ncerr.ErrAddress, "connect", "", fmt.Errorf("empty host"))
		return
	}
	port, err := util.ParsePort(args[1], 1)
	if err != nil {
		res.Err = ncerr.Wrap(ncerr.ErrAddress, "connect", host, err)
		return
	}
	addr := util.FormatAddr(host, port)

	// A connect in progress is never torn down half way; the dialer's
	// own timeout bounds it.
	sock, err := s.variant.dial(context.WithoutCancel(ctx), addr)
	if err != nil {
		kind := ncerr.ErrConnect
		if ncerr.IsResolveError(err) {
			kind = ncerr.ErrAddress
		}
		res.Err = ncerr.Wrap(kind, "connect", addr, err)
		return
	}
	peer := sock.RemoteAddr()
	s.attach(sock, Connected, peer)
	res.Local, res.Peer = sock.LocalAddr(), peer
}

func (s *Session) listen(ctx context.Context, args []string, res *Result) {
	if st := s.State(); st == Listening || st == Connected {
		s.guard(res, st)
		return
	}
	if len(args) != 1 {
		res.Err = ncerr.Wrap(ncerr.ErrAddress, "listen", strings.Join(args, " "),
			fmt.Errorf("want a port, got %d argument(s)", len(args)))
		return
	}
	port, err := util.ParsePort(args[0], 0)
	if err != nil {
		res.Err = ncerr.Wrap(ncerr.ErrAddress, "listen", args[0], err)
		return
	}
	addr := util.FormatAddr(s.listenHost, port)

	sock, err := s.variant.bind(context.WithoutCancel(ctx), addr)
	if err != nil {
		kind := ncerr.ErrBind
		if ncerr.IsResolveError(err) {
			kind = ncerr.ErrAddress
		}
		res.Err = ncerr.Wrap(kind, "listen", addr, err)
		return
	}
	s.attach(sock, Listening, nil)
	res.Local = sock.LocalAddr()
}

// receive dispatches on state.  A RECEIVE cancelled before it starts
// still releases the socket, the same as one cancelled mid-wait.
func (s *Session) receive(ctx context.Context, res *Result) {
	switch st := s.State(); st {
	case Listening:
		if ctx.Err() != nil {
			s.abort(res, "accept")
			return
		}
		s.await(ctx, res)
	case Connected:
		if ctx.Err() != nil {
			s.abort(res, "read")
			return
		}
		s.pull(ctx, res)
	default:
		if ctx.Err() != nil {
			res.Err = ncerr.Cancelled("receive", "")
			return
		}
		s.guard(res, st)
	}
}

// await waits for the first peer on a listening socket.
func (s *Session) await(ctx context.Context, res *Result) {
	buf := util.GetBuf()
	defer util.PutBuf(buf)

	peer, n, err := s.sock.Await(ctx, *buf)
	if err != nil {
		if ctx.Err() != nil {
			s.abort(res, "accept")
			return
		}
		res.Err = ncerr.Wrap(ncerr.ErrIO, "accept", addrString(s.LocalAddr()), err)
		return
	}
	s.mu.Lock()
	s.state, s.peer = Connected, peer
	s.mu.Unlock()
	res.Peer = peer
	if n > 0 {
		s.deliver(res, (*buf)[:n])
	}
}

// pull reads one buffer from the peer into the local transport.
func (s *Session) pull(ctx context.Context, res *Result) {
	buf := util.GetBuf()
	defer util.PutBuf(buf)

	n, err := s.sock.Read(ctx, *buf, s.receiveWait)
	if n > 0 {
		s.deliver(res, (*buf)[:n])
	}
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		res.EOF = true
	case ctx.Err() != nil:
		s.abort(res, "read")
	case res.Err == nil:
		res.Err = ncerr.Wrap(ncerr.ErrIO, "read", addrString(s.Peer()), err)
	}
}

func (s *Session) deliver(res *Result, data []byte) {
	s.metrics.BytesReceived(int64(len(data)))
	n, err := s.local.Write(data)
	res.Bytes += n
	if err != nil {
		res.Err = ncerr.Wrap(ncerr.ErrIO, "local write", "", err)
	}
}

func (s *Session) send(res *Result) {
	if st := s.State(); st != Connected {
		s.guard(res, st)
		return
	}
	buf := util.GetBuf()
	defer util.PutBuf(buf)

	n, rerr := s.local.Read(*buf)
	if n > 0 {
		w, err := s.sock.Write((*buf)[:n])
		res.Bytes = w
		s.metrics.BytesSent(int64(w))
		if err != nil {
			res.Err = ncerr.Wrap(ncerr.ErrIO, "write", addrString(s.Peer()), err)
			return
		}
	}
	switch {
	case rerr == nil:
	case errors.Is(rerr, io.EOF):
		res.EOF = true
		if hc, ok := s.sock.(halfCloser); ok {
			if err := hc.CloseWrite(); err != nil {
				s.log.Debug("half-close: %v", err)
			}
		}
	default:
		res.Err = ncerr.Wrap(ncerr.ErrIO, "local read", "", rerr)
	}
}

func (s *Session) disconnect(res *Result) {
	st := s.State()
	if st != Listening && st != Connected {
		return
	}
	addr := addrString(s.Peer())
	if addr == "" {
		addr = addrString(s.LocalAddr())
	}
	if err := s.detach(); err != nil && !util.IsClosedErr(err) {
		res.Err = ncerr.Wrap(ncerr.ErrIO, "close", addr, err)
	}
}

// abort releases the socket after a cancelled wait.
func (s *Session) abort(res *Result, op string) {
	addr := addrString(s.LocalAddr())
	s.detach() //nolint:errcheck
	res.Err = ncerr.Cancelled(op, addr)
}

func (s *Session) guard(res *Result, st State) {
	if s.strict {
		res.Err = ncerr.Guard(res.Op.String(), st.String())
		return
	}
	s.log.Debug("%s ignored while %s", res.Op, st)
}

func (s *Session) attach(sock Socket, st State, peer net.Addr) {
	s.sock = sock
	s.mu.Lock()
	s.state, s.peer, s.localAddr = st, peer, sock.LocalAddr()
	s.mu.Unlock()
	s.metrics.ConnectionOpened()
}

// detach closes the socket, if any, and moves to CLOSED.
func (s *Session) detach() error {
	if s.sock == nil {
		return nil
	}
	err := s.sock.Close()
	s.sock = nil
	s.mu.Lock()
	s.state, s.peer, s.localAddr = Closed, nil, nil
	s.mu.Unlock()
	s.metrics.ConnectionClosed()
	return err
}

func (s *Session) trace(res Result) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: end state=%s", res.Op, s.State())
	if res.Local != nil {
		fmt.Fprintf(&b, " local=%s", res.Local)
	}
	if res.Peer != nil {
		fmt.Fprintf(&b, " peer=%s", res.Peer)
	}
	if res.Bytes > 0 {
		fmt.Fprintf(&b, " bytes=%d", res.Bytes)
	}
	if res.EOF {
		b.WriteString(" eof")
	}
	if res.Err != nil {
		fmt.Fprintf(&b, " err=%q", res.Err)
	}
	s.log.Verbose("%s", b.String())
}

func addrString(a net.Addr) string {
	if a == nil {
		return ""
	}
	return a.String()
}

type discard struct{}

func (discard) Read([]byte) (int, error)    { return 0, nil }
func (discard) Write(p []byte) (int, error) { return len(p), nil }
