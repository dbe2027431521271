package session

import (
	"context"
	"strings"
	"sync"

	ncerr "sockcat/internal/errors"
)

// job is one submitted operation.
type job struct {
	op     Operation
	args   []string
	ctx    context.Context
	cancel context.CancelFunc
	result chan Result
}

// runner serialises operations onto one worker goroutine.  Jobs run in
// submission order; at most one is in flight.
type runner struct {
	qmu     sync.Mutex
	queue   []*job
	current *job
	latest  *job // most recently submitted, until it finishes
	closed  bool

	wake chan struct{}
	done chan struct{}

	base     context.Context
	stopBase context.CancelFunc
}

func (r *runner) start(s *Session) {
	r.wake = make(chan struct{}, 1)
	r.done = make(chan struct{})
	r.base, r.stopBase = context.WithCancel(context.Background())
	go r.loop(s)
}

// Execute submits op and returns a channel that yields its Result
// exactly once.  Operations submitted while another is running wait
// their turn.
func (s *Session) Execute(op Operation, args ...string) <-chan Result {
	return s.submit(op, args).result
}

// Do submits op and waits for its Result.  If ctx ends first the
// operation is cancelled and Do still returns the Result it produced.
func (s *Session) Do(ctx context.Context, op Operation, args ...string) Result {
	j := s.submit(op, args)
	select {
	case res := <-j.result:
		return res
	case <-ctx.Done():
		j.cancel()
		return <-j.result
	}
}

// Cancel aborts the operation in flight and the most recently
// submitted one, even if the worker has not picked it up yet; that
// job then fails with ErrCancelled without touching the socket.  Other
// waiting operations are not affected.  Calling Cancel with nothing
// pending is a no-op.
func (s *Session) Cancel() {
	s.qmu.Lock()
	defer s.qmu.Unlock()
	if s.current != nil {
		s.current.cancel()
	}
	if s.latest != nil {
		s.latest.cancel()
	}
}

// Close cancels the operation in flight, fails every waiting operation
// with ErrCancelled, releases the socket and stops the worker.  It
// blocks until the worker has exited.  Operations submitted after
// Close fail with ErrSessionClosed.
func (s *Session) Close() error {
	s.qmu.Lock()
	already := s.closed
	s.closed = true
	s.qmu.Unlock()

	if !already {
		s.stopBase()
		s.poke()
	}
	<-s.done
	if already {
		return nil
	}
	return s.dialer.Close()
}

func (s *Session) submit(op Operation, args []string) *job {
	j := &job{
		op:     op,
		args:   append([]string(nil), args...),
		result: make(chan Result, 1),
	}
	j.ctx, j.cancel = context.WithCancel(s.base)

	s.qmu.Lock()
	if s.closed {
		s.qmu.Unlock()
		j.cancel()
		j.result <- Result{Op: op, Proto: s.proto, Err: ncerr.Wrap(ncerr.ErrSessionClosed, strings.ToLower(op.String()), "", nil)}
		return j
	}
	s.queue = append(s.queue, j)
	s.latest = j
	s.qmu.Unlock()
	s.poke()
	return j
}

func (r *runner) poke() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *runner) loop(s *Session) {
	defer close(r.done)
	for {
		j := r.next(s)
		if j == nil {
			break
		}
		res := s.run(j.ctx, j.op, j.args)
		r.finish(s, j, res)
	}
	if err := s.detach(); err != nil {
		s.log.Debug("release on close: %v", err)
	}
}

// next blocks for the next job.  It returns nil once the runner is
// closed, after failing everything still queued.
func (r *runner) next(s *Session) *job {
	for {
		r.qmu.Lock()
		if r.closed {
			pending := r.queue
			r.queue = nil
			r.qmu.Unlock()
			for _, j := range pending {
				r.finish(s, j, Result{Op: j.op, Proto: s.proto, Err: ncerr.Cancelled(strings.ToLower(j.op.String()), "")})
			}
			return nil
		}
		if len(r.queue) > 0 {
			j := r.queue[0]
			r.queue[0] = nil
			r.queue = r.queue[1:]
			r.current = j
			r.qmu.Unlock()
			return j
		}
		r.qmu.Unlock()
		<-r.wake
	}
}

func (r *runner) finish(s *Session, j *job, res Result) {
	r.qmu.Lock()
	if r.current == j {
		r.current = nil
	}
	if r.latest == j {
		r.latest = nil
	}
	r.qmu.Unlock()
	j.cancel()

	if s.observer != nil {
		s.observer(res)
	}
	j.result <- res
}
