package util

import (
	"bytes"
	"errors"
	"io"
	"net"
	"sync"
)

// DefaultBufSize is the transfer unit of one SEND or RECEIVE (1 KiB).
const DefaultBufSize = 1024

// AsyncReader turns a blocking reader (typically stdin or a child
// process pipe) into one that never blocks: a background goroutine
// drains the source into a buffer, and Read returns whatever has
// arrived so far.
//
// Read returns (0, nil) when nothing is buffered yet and the source's
// terminal error (usually io.EOF) once the buffer is drained.
type AsyncReader struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	err   error
	ready chan struct{}
}

// NewAsyncReader starts draining r in the background.
func NewAsyncReader(r io.Reader) *AsyncReader {
	a := &AsyncReader{ready: make(chan struct{}, 1)}
	go a.pump(r)
	return a
}

func (a *AsyncReader) pump(r io.Reader) {
	chunk := GetBuf()
	defer PutBuf(chunk)

	for {
		n, err := r.Read(*chunk)
		a.mu.Lock()
		if n > 0 {
			a.buf.Write((*chunk)[:n])
		}
		if err != nil {
			a.err = err
		}
		a.mu.Unlock()

		if n > 0 || err != nil {
			a.signal()
		}
		if err != nil {
			return
		}
	}
}

func (a *AsyncReader) signal() {
	select {
	case a.ready <- struct{}{}:
	default:
	}
}

// Read implements io.Reader without blocking.
func (a *AsyncReader) Read(p []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.buf.Len() > 0 {
		return a.buf.Read(p)
	}
	if a.err != nil {
		return 0, a.err
	}
	return 0, nil
}

// Ready is signalled whenever new data or the terminal error arrives.
func (a *AsyncReader) Ready() <-chan struct{} { return a.ready }

// IsClosedErr reports errors that only mean "the socket was closed
// underneath us", which is how an interrupted accept or read surfaces.
func IsClosedErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed)
	}
	return false
}

// IsTimeout reports whether err is a deadline expiry.
func IsTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
