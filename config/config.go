// Package config defines the runtime configuration for sockcat and
// provides helpers for parsing ports and tunnel specifications.
package config

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	ncerr "sockcat/internal/errors"
	"sockcat/util"
)

// Config holds every tuneable for a single sockcat run.
type Config struct {
	// ── Connection ───────────────────────────────────────────────────
	Host      string // connect target, or bind address with -l
	Port      int    // connect target port
	LocalPort int    // -p: listen port, or source port when connecting
	Listen    bool
	UDP       bool
	Timeout   time.Duration // -w: connect timeout and idle limit
	KeepOpen  bool
	NoDNS     bool

	// ── SSH tunnel ───────────────────────────────────────────────────
	TunnelSpec     string // raw user@host[:port] from -T
	TunnelEnabled  bool
	TunnelUser     string
	TunnelHost     string
	TunnelPort     int
	SSHKeyPath     string
	SSHPassword    bool // true → prompt interactively
	UseSSHAgent    bool
	StrictHostKey  bool
	KnownHostsPath string

	// ── Execution ────────────────────────────────────────────────────
	Execute string // -e: program path
	Command string // -c: shell command

	// ── Session engine ───────────────────────────────────────────────
	Retries      int           // CONNECT attempts
	StrictGuards bool          // report operations issued in the wrong state
	PollInterval time.Duration // UDP cancellation poll
	ReceiveWait  time.Duration // bound on one connected RECEIVE

	// ── History ──────────────────────────────────────────────────────
	HistoryPath string
	NoHistory   bool
	ShowRecent  bool

	// ── Output ───────────────────────────────────────────────────────
	Verbose int
	LogFile string
	EnvFile string
}

// Defaults returns a Config holding every default from defaults.go.
func Defaults() *Config {
	return &Config{
		Retries:      DefaultRetries,
		PollInterval: DefaultPollInterval,
		ReceiveWait:  DefaultReceiveWait,
	}
}

// ParsePort accepts a connect port ("1"-"65535").
func ParsePort(spec string) (int, error) {
	return util.ParsePort(spec, 1)
}

// ── Tunnel-spec parser ───────────────────────────────────────────────

// tunnelRe matches [user@]host[:port].
var tunnelRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:]+)(?::(\d+))?$`)

// ParseTunnelSpec extracts user, host, and port from a string such as
// "admin@bastion.example.com:2222".  Port defaults to 22.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	m := tunnelRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid tunnel spec %q – expected [user@]host[:port]", spec)
	}
	user = m[1]
	host = m[2]
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid tunnel port %q", m[3])
		}
	}
	if host == "" {
		return "", "", 0, fmt.Errorf("tunnel host is required")
	}
	return user, host, port, nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Listen {
		if c.LocalPort == 0 {
			return &ncerr.ConfigError{
				Field:   "port",
				Message: "listen mode requires -p <port>",
				Hint:    "sockcat -l -p 4444",
			}
		}
		if c.TunnelEnabled {
			return &ncerr.ConfigError{
				Field:   "tunnel",
				Value:   c.TunnelSpec,
				Message: "listen mode through an SSH tunnel is not supported",
				Hint:    "the tunnel only carries outbound TCP connections",
			}
		}
	} else {
		if c.Host == "" {
			return &ncerr.ConfigError{
				Field:   "host",
				Message: "hostname is required",
				Hint:    "sockcat [options] host port (use --help for usage)",
			}
		}
		if c.Port < 1 || c.Port > 65535 {
			return &ncerr.ConfigError{
				Field:   "port",
				Value:   c.Port,
				Message: "destination port must be 1-65535",
			}
		}
		if c.KeepOpen {
			return &ncerr.ConfigError{
				Field:   "keep-open",
				Message: "-k only applies to listen mode",
				Hint:    "add -l, or drop -k",
			}
		}
	}

	if c.LocalPort < 0 || c.LocalPort > 65535 {
		return &ncerr.ConfigError{Field: "port", Value: c.LocalPort, Message: "local port must be 0-65535"}
	}

	if c.Execute != "" && c.Command != "" {
		return &ncerr.ConfigError{Field: "exec", Message: "-e and -c are mutually exclusive"}
	}

	if c.UDP && c.TunnelEnabled {
		return &ncerr.ConfigError{
			Field:   "tunnel",
			Value:   c.TunnelSpec,
			Message: "UDP is not supported through SSH tunnels",
			Hint:    "SSH forwards TCP streams only; drop -u or -T",
		}
	}

	if c.TunnelEnabled && c.TunnelHost == "" {
		return &ncerr.ConfigError{Field: "tunnel", Message: "tunnel host is required"}
	}

	if c.Retries < 0 {
		return &ncerr.ConfigError{Field: "retry", Value: c.Retries, Message: "must not be negative"}
	}
	if c.PollInterval <= 0 {
		return &ncerr.ConfigError{Field: "poll-interval", Value: c.PollInterval, Message: "must be positive"}
	}
	if c.ReceiveWait <= 0 {
		return &ncerr.ConfigError{
			Field:   "receive-wait",
			Value:   c.ReceiveWait,
			Message: "must be positive",
			Hint:    "it bounds how long a receive blocks before local input is checked",
		}
	}

	if c.NoDNS && !c.Listen {
		if err := util.CheckNumericHost(c.Host, true); err != nil {
			return &ncerr.ConfigError{Field: "no-dns", Value: c.Host, Message: err.Error()}
		}
	}

	return nil
}
