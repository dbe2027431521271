package session

import (
	"fmt"
	"net"
	"strings"

	ncerr "sockcat/internal/errors"
)

// Operation is one of the verbs a Session executes.
type Operation int

const (
	Connect Operation = iota
	Listen
	Receive
	Send
	Disconnect
)

var operationNames = [...]string{"CONNECT", "LISTEN", "RECEIVE", "SEND", "DISCONNECT"}

func (o Operation) String() string {
	if o < 0 || int(o) >= len(operationNames) {
		return fmt.Sprintf("Operation(%d)", int(o))
	}
	return operationNames[o]
}

// ParseOperation accepts an operation name in any case.
func ParseOperation(s string) (Operation, error) {
	for i, name := range operationNames {
		if strings.EqualFold(s, name) {
			return Operation(i), nil
		}
	}
	return 0, fmt.Errorf("unknown operation %q", s)
}

// Protocol selects the socket variant of a Session.
type Protocol int

const (
	TCP Protocol = iota
	UDP
)

// String returns the network name ("tcp" or "udp").
func (p Protocol) String() string {
	switch p {
	case TCP:
		return "tcp"
	case UDP:
		return "udp"
	default:
		return fmt.Sprintf("Protocol(%d)", int(p))
	}
}

// ParseProtocol accepts "tcp" or "udp" in any case.
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(s) {
	case "tcp":
		return TCP, nil
	case "udp":
		return UDP, nil
	}
	return 0, fmt.Errorf("unknown protocol %q", s)
}

// State is the connection state of a Session.
type State int

const (
	Idle State = iota
	Listening
	Connected
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Listening:
		return "LISTENING"
	case Connected:
		return "CONNECTED"
	case Closed:
		return "CLOSED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Result is the outcome of one executed operation.  Exactly one is
// produced per Execute call.
type Result struct {
	Op    Operation
	Proto Protocol

	// Local is the session's socket address after CONNECT or LISTEN.
	Local net.Addr
	// Peer is the remote address after CONNECT, or after a RECEIVE
	// that discovered a peer while listening.
	Peer net.Addr
	// Bytes is the payload size moved by SEND or RECEIVE.
	Bytes int
	// EOF is set when the peer (RECEIVE) or the local side (SEND)
	// reported end of stream.  It is not an error.
	EOF bool

	Err error
}

// Cancelled reports whether the operation was aborted by cancellation.
func (r Result) Cancelled() bool {
	return ncerr.IsCancelled(r.Err)
}
