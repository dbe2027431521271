package capability

import (
	"context"
	"io"
	"sync"

	"sockcat/util"
)

// Relay connects a session to a pair of streams, normally the
// process's stdin and stdout.
type Relay struct {
	In  io.Reader
	Out io.Writer

	once sync.Once
	ep   *Stdio
}

// Open starts draining In in the background.  Every call returns the
// same Stdio so successive connections share one reader of In.
func (r *Relay) Open(_ context.Context) (Endpoint, error) {
	r.once.Do(func() {
		r.ep = &Stdio{in: util.NewAsyncReader(r.In), out: r.Out}
	})
	return r.ep, nil
}

// Stdio is the Endpoint a Relay opens.
type Stdio struct {
	in  *util.AsyncReader
	out io.Writer
}

func (s *Stdio) Read(p []byte) (int, error)  { return s.in.Read(p) }
func (s *Stdio) Write(p []byte) (int, error) { return s.out.Write(p) }
func (s *Stdio) Ready() <-chan struct{}      { return s.in.Ready() }

// Close leaves the underlying streams open; they belong to the caller.
func (s *Stdio) Close() error { return nil }
