package core

import (
	"bytes"
	"sync"

	"sockcat/internal/capability"
)

// endpointSlot is the ByteTransport a mode hands to its session.  The
// real endpoint is attached once a peer exists, so a child process is
// only spawned for an actual connection.  Bytes received before that
// (the first UDP datagram) are held and replayed on attach.
type endpointSlot struct {
	mu      sync.Mutex
	ep      capability.Endpoint
	pending bytes.Buffer
}

func (s *endpointSlot) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ep == nil {
		return 0, nil
	}
	return s.ep.Read(p)
}

func (s *endpointSlot) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ep == nil {
		return s.pending.Write(p)
	}
	return s.ep.Write(p)
}

func (s *endpointSlot) attach(ep capability.Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ep = ep
	if s.pending.Len() == 0 {
		return nil
	}
	_, err := ep.Write(s.pending.Bytes())
	s.pending.Reset()
	return err
}

// detach closes and forgets the current endpoint.
func (s *endpointSlot) detach() error {
	s.mu.Lock()
	ep := s.ep
	s.ep = nil
	s.pending.Reset()
	s.mu.Unlock()
	if ep == nil {
		return nil
	}
	return ep.Close()
}
