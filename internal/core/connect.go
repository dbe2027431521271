package core

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"sockcat/internal/capability"
	ncerr "sockcat/internal/errors"
	"sockcat/internal/history"
	"sockcat/internal/metrics"
	"sockcat/internal/retry"
	"sockcat/internal/session"
	"sockcat/internal/transport"
	"sockcat/util"
)

// ConnectMode dials a remote address with CONNECT and then pumps bytes
// between the peer and a capability.
type ConnectMode struct {
	Protocol   session.Protocol
	Host       string
	Port       int
	Dialer     transport.Dialer
	Capability capability.Capability
	Options    []session.Option

	Backoff        *retry.Backoff // nil → a single attempt
	Idle           time.Duration
	StopOnLocalEOF bool

	History *history.Store // nil disables recording
	Metrics *metrics.Collector
	Logger  *util.Logger
}

// Run connects, runs the exchange, and disconnects.  The dialer is
// closed when Run returns.
func (m *ConnectMode) Run(ctx context.Context) error {
	slot := &endpointSlot{}
	opts := append([]session.Option{
		session.WithDialer(m.Dialer),
		session.WithLogger(m.Logger),
		session.WithMetrics(m.Metrics),
	}, m.Options...)
	sess := session.New(m.Protocol, slot, opts...)
	defer sess.Close()
	defer m.logMetrics()

	address := util.FormatAddr(m.Host, m.Port)
	m.Logger.Verbose("connecting to %s (%s)", address, m.Protocol)

	res, err := m.connect(ctx, sess)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", address, err)
	}
	m.Logger.Verbose("connected to %s from %s", res.Peer, res.Local)
	m.remember(address)

	local, err := m.Capability.Open(ctx)
	if err != nil {
		return err
	}
	if err := slot.attach(local); err != nil {
		return fmt.Errorf("local write: %w", err)
	}
	defer slot.detach() //nolint:errcheck

	p := &pump{sess: sess, idle: m.Idle, stopOnLocalEOF: m.StopOnLocalEOF, logger: m.Logger}
	perr := p.run(ctx)

	if res := sess.Do(context.Background(), session.Disconnect); res.Err != nil {
		m.Logger.Debug("disconnect: %v", res.Err)
	}
	return perr
}

// connect issues CONNECT, retrying per m.Backoff.  Bad addresses are
// never retried.
func (m *ConnectMode) connect(ctx context.Context, sess *session.Session) (session.Result, error) {
	b := retry.ConnectBackoff(1)
	if m.Backoff != nil {
		copied := *m.Backoff
		b = &copied
	}
	b.OnRetry = func(attempt int, err error, wait time.Duration) {
		m.Metrics.ConnectRetry()
		m.Logger.Verbose("attempt %d failed (%v), retrying in %v", attempt, err, wait.Round(time.Millisecond))
	}

	var res session.Result
	err := b.Do(ctx, func(_ int) error {
		res = sess.Do(ctx, session.Connect, m.Host, strconv.Itoa(m.Port))
		if ncerr.Is(res.Err, ncerr.ErrAddress) || res.Cancelled() {
			return retry.Permanent(res.Err)
		}
		return res.Err
	})
	return res, err
}

func (m *ConnectMode) remember(address string) {
	if m.History == nil || !m.History.Add(address) {
		return
	}
	if err := m.History.Save(); err != nil {
		m.Logger.Warn("could not save history: %v", err)
	}
}

func (m *ConnectMode) logMetrics() {
	if m.Metrics != nil {
		m.Logger.Debug("metrics: %s", m.Metrics.JSON())
	}
}
