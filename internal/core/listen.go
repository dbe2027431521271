package core

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"sockcat/internal/capability"
	"sockcat/internal/metrics"
	"sockcat/internal/session"
	"sockcat/util"
)

// ListenMode binds a port with LISTEN, waits for a peer with RECEIVE
// and pumps bytes between the peer and a capability.  With KeepOpen
// the port is bound again after each peer leaves; peers are served
// one at a time.
type ListenMode struct {
	Protocol   session.Protocol
	Port       int
	KeepOpen   bool
	Capability capability.Capability
	Options    []session.Option

	Idle           time.Duration
	StopOnLocalEOF bool

	Metrics *metrics.Collector
	Logger  *util.Logger

	// bound receives the listening address each time LISTEN succeeds.
	bound func(addr string)
}

// Run serves peers until ctx ends, or after the first one without
// KeepOpen.
func (m *ListenMode) Run(ctx context.Context) error {
	slot := &endpointSlot{}
	opts := append([]session.Option{
		session.WithLogger(m.Logger),
		session.WithMetrics(m.Metrics),
	}, m.Options...)
	sess := session.New(m.Protocol, slot, opts...)
	defer sess.Close()
	defer func() {
		if m.Metrics != nil {
			m.Logger.Debug("metrics: %s", m.Metrics.JSON())
		}
	}()

	for {
		res := sess.Do(ctx, session.Listen, strconv.Itoa(m.Port))
		if res.Err != nil {
			return fmt.Errorf("listen on port %d: %w", m.Port, res.Err)
		}
		m.Logger.Verbose("listening on %s (%s)", res.Local, m.Protocol)
		if m.bound != nil {
			m.bound(res.Local.String())
		}

		res = sess.Do(ctx, session.Receive)
		if res.Cancelled() {
			return nil
		}
		if res.Err != nil {
			return fmt.Errorf("accept: %w", res.Err)
		}
		m.Logger.Verbose("connection from %s", res.Peer)

		if err := m.serve(ctx, sess, slot); err != nil {
			return err
		}
		if !m.KeepOpen || ctx.Err() != nil {
			return nil
		}
	}
}

// serve runs one peer's exchange and releases the socket afterwards.
func (m *ListenMode) serve(ctx context.Context, sess *session.Session, slot *endpointSlot) error {
	defer func() {
		if res := sess.Do(context.Background(), session.Disconnect); res.Err != nil {
			m.Logger.Debug("disconnect: %v", res.Err)
		}
		if err := slot.detach(); err != nil {
			m.Logger.Debug("local close: %v", err)
		}
	}()

	local, err := m.Capability.Open(ctx)
	if err != nil {
		return err
	}
	if err := slot.attach(local); err != nil {
		return fmt.Errorf("local write: %w", err)
	}

	p := &pump{sess: sess, idle: m.Idle, stopOnLocalEOF: m.StopOnLocalEOF, logger: m.Logger}
	return p.run(ctx)
}
