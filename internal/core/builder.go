package core

import (
	"os"

	"sockcat/config"
	"sockcat/internal/capability"
	"sockcat/internal/history"
	"sockcat/internal/metrics"
	"sockcat/internal/retry"
	"sockcat/internal/session"
	"sockcat/internal/transport"
	"sockcat/tunnel"
	"sockcat/util"
)

// Build constructs the appropriate Mode from the given configuration.
func Build(cfg *config.Config, logger *util.Logger) (Mode, error) {
	if cfg.Listen {
		return buildListen(cfg, logger), nil
	}
	return buildConnect(cfg, logger)
}

// ── mode builders ────────────────────────────────────────────────────

func buildConnect(cfg *config.Config, logger *util.Logger) (Mode, error) {
	if err := util.CheckNumericHost(cfg.Host, cfg.NoDNS); err != nil {
		return nil, err
	}

	m := &ConnectMode{
		Protocol:       protocol(cfg),
		Host:           cfg.Host,
		Port:           cfg.Port,
		Dialer:         buildDialer(cfg, logger),
		Capability:     buildCapability(cfg, logger),
		Options:        sessionOptions(cfg),
		Backoff:        retry.ConnectBackoff(cfg.Retries),
		Idle:           cfg.Timeout,
		StopOnLocalEOF: stopOnLocalEOF(cfg),
		History:        openHistory(cfg, logger),
		Metrics:        metrics.New(),
		Logger:         logger,
	}
	return m, nil
}

func buildListen(cfg *config.Config, logger *util.Logger) Mode {
	opts := sessionOptions(cfg)
	if cfg.Host != "" {
		opts = append(opts, session.WithListenHost(cfg.Host))
	}
	return &ListenMode{
		Protocol:       protocol(cfg),
		Port:           cfg.LocalPort,
		KeepOpen:       cfg.KeepOpen,
		Capability:     buildCapability(cfg, logger),
		Options:        opts,
		Idle:           cfg.Timeout,
		StopOnLocalEOF: stopOnLocalEOF(cfg),
		Metrics:        metrics.New(),
		Logger:         logger,
	}
}

// ── shared helpers ───────────────────────────────────────────────────

func protocol(cfg *config.Config) session.Protocol {
	if cfg.UDP {
		return session.UDP
	}
	return session.TCP
}

func sessionOptions(cfg *config.Config) []session.Option {
	opts := []session.Option{
		session.WithPollInterval(cfg.PollInterval),
		session.WithReceiveWait(cfg.ReceiveWait),
	}
	if cfg.StrictGuards {
		opts = append(opts, session.WithStrictGuards())
	}
	return opts
}

// stopOnLocalEOF ends UDP exchanges and exec'd children as soon as the
// local side is finished; a TCP relay keeps reading until the peer
// closes.
func stopOnLocalEOF(cfg *config.Config) bool {
	return cfg.UDP || cfg.Execute != "" || cfg.Command != ""
}

// buildDialer creates the right transport.Dialer for the given config.
func buildDialer(cfg *config.Config, logger *util.Logger) transport.Dialer {
	if cfg.TunnelEnabled {
		return transport.NewSSHDialer(&tunnel.SSHConfig{
			User:          cfg.TunnelUser,
			Host:          cfg.TunnelHost,
			Port:          cfg.TunnelPort,
			KeyPath:       cfg.SSHKeyPath,
			PromptPass:    cfg.SSHPassword,
			UseAgent:      cfg.UseSSHAgent,
			StrictHostKey: cfg.StrictHostKey,
			KnownHosts:    cfg.KnownHostsPath,
			ConnTimeout:   cfg.Timeout,
		}, logger)
	}

	if cfg.UDP {
		return &transport.UDPDialer{
			Timeout:   cfg.Timeout,
			LocalPort: cfg.LocalPort,
		}
	}

	return &transport.TCPDialer{
		Timeout:   cfg.Timeout,
		LocalPort: cfg.LocalPort,
	}
}

// buildCapability selects the local side of the connection.
func buildCapability(cfg *config.Config, logger *util.Logger) capability.Capability {
	if cfg.Execute != "" || cfg.Command != "" {
		return &capability.Exec{
			Program: cfg.Execute,
			Command: cfg.Command,
			Logger:  logger,
		}
	}
	return &capability.Relay{In: os.Stdin, Out: os.Stdout}
}

// openHistory returns the recent-targets store, or nil when disabled
// or unreadable.
func openHistory(cfg *config.Config, logger *util.Logger) *history.Store {
	if cfg.NoHistory {
		return nil
	}
	path := cfg.HistoryPath
	if path == "" {
		path = history.DefaultPath()
	}
	store, err := history.Open(path)
	if err != nil {
		logger.Warn("%v; not recording this target", err)
		return nil
	}
	return store
}
