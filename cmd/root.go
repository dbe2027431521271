// Package cmd wires up the CLI flags and dispatches to the session core.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"sockcat/config"
	"sockcat/internal/core"
	"sockcat/internal/history"
	"sockcat/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X sockcat/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// stdout receives --version and --recent output.
var stdout io.Writer = os.Stdout //nolint:gochecknoglobals

// Execute parses args and runs the appropriate sockcat mode.
//
// Settings are layered defaults < .env file < SOCKCAT_* variables <
// flags.
func Execute(ctx context.Context, args []string) error {
	cfg := config.Defaults()
	if err := config.LoadEnvFile(envFileArg(args)); err != nil {
		return err
	}
	config.LoadFromEnv(cfg)
	envVerbose := cfg.Verbose

	fs := flag.NewFlagSet("sockcat", flag.ContinueOnError)

	// ── connection ───────────────────────────────────────────────
	fs.BoolVarP(&cfg.Listen, "listen", "l", cfg.Listen, "Listen mode")
	fs.IntVarP(&cfg.LocalPort, "port", "p", cfg.LocalPort, "Local port number")
	fs.BoolVarP(&cfg.UDP, "udp", "u", cfg.UDP, "UDP mode")
	fs.BoolVarP(&cfg.NoDNS, "no-dns", "n", cfg.NoDNS, "Numeric-only, no DNS resolution")
	fs.BoolVarP(&cfg.KeepOpen, "keep-open", "k", cfg.KeepOpen, "Accept multiple connections (with -l)")

	timeoutSec := int(cfg.Timeout / time.Second)
	fs.IntVarP(&timeoutSec, "timeout", "w", timeoutSec, "Connect timeout and idle limit in seconds")

	// ── execution ────────────────────────────────────────────────
	fs.StringVarP(&cfg.Execute, "exec", "e", cfg.Execute, "Execute program after connect")
	fs.StringVarP(&cfg.Command, "command", "c", cfg.Command, "Execute shell command after connect")

	// ── SSH tunnel ───────────────────────────────────────────────
	fs.StringVarP(&cfg.TunnelSpec, "tunnel", "T", cfg.TunnelSpec, "SSH tunnel via [user@]host[:port]")
	fs.StringVar(&cfg.SSHKeyPath, "ssh-key", cfg.SSHKeyPath, "SSH private key file")
	fs.BoolVar(&cfg.SSHPassword, "ssh-password", cfg.SSHPassword, "Prompt for SSH password")
	fs.BoolVar(&cfg.UseSSHAgent, "ssh-agent", cfg.UseSSHAgent, "Use SSH agent")
	fs.BoolVar(&cfg.StrictHostKey, "strict-hostkey", cfg.StrictHostKey, "Verify SSH host keys")
	fs.StringVar(&cfg.KnownHostsPath, "known-hosts", cfg.KnownHostsPath, "Custom known_hosts path")

	// ── session engine ───────────────────────────────────────────
	fs.IntVar(&cfg.Retries, "retry", cfg.Retries, "Connect attempts before giving up")
	fs.BoolVar(&cfg.StrictGuards, "strict", cfg.StrictGuards, "Report operations issued in the wrong state")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "UDP cancellation poll interval")
	fs.DurationVar(&cfg.ReceiveWait, "receive-wait", cfg.ReceiveWait, "Longest wait of one receive while connected")

	// ── history ──────────────────────────────────────────────────
	fs.StringVar(&cfg.HistoryPath, "history", cfg.HistoryPath, "Recent targets file (default ~/.sockcat/history.yaml)")
	fs.BoolVar(&cfg.NoHistory, "no-history", cfg.NoHistory, "Do not record connect targets")
	fs.BoolVar(&cfg.ShowRecent, "recent", false, "List recent connect targets and exit")

	// ── output ───────────────────────────────────────────────────
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Write logs to a rotated file instead of stderr")
	fs.StringVar(&cfg.EnvFile, "env-file", "", "Load settings from this .env file (default ./.env)")

	var showVersion, showHelp, dryRun bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVar(&dryRun, "dry-run", false, "Validate the configuration and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp || len(args) == 0 {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Fprintf(stdout, "sockcat %s\n", version)
		return nil
	}
	if cfg.ShowRecent {
		return printRecent(cfg.HistoryPath)
	}

	if cfg.Verbose == 0 {
		cfg.Verbose = envVerbose
	}
	if fs.Changed("timeout") {
		cfg.Timeout = time.Duration(timeoutSec) * time.Second
	}

	// ── positional arguments ─────────────────────────────────────
	if err := parsePositional(cfg, fs.Args()); err != nil {
		return err
	}

	// ── tunnel spec ──────────────────────────────────────────────
	if cfg.TunnelSpec != "" {
		user, host, port, err := config.ParseTunnelSpec(cfg.TunnelSpec)
		if err != nil {
			return fmt.Errorf("tunnel: %w", err)
		}
		cfg.TunnelEnabled = true
		cfg.TunnelUser = user
		cfg.TunnelHost = host
		cfg.TunnelPort = port
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}
	if dryRun {
		return nil
	}

	// ── build and run ────────────────────────────────────────────
	logger := newLogger(cfg)
	defer logger.Sync() //nolint:errcheck

	mode, err := core.Build(cfg, logger)
	if err != nil {
		return err
	}
	return mode.Run(ctx)
}

// ── helpers ──────────────────────────────────────────────────────────

// envFileArg finds --env-file ahead of the full parse, since the file
// feeds the defaults every other flag starts from.
func envFileArg(args []string) string {
	pre := flag.NewFlagSet("sockcat", flag.ContinueOnError)
	pre.ParseErrorsWhitelist.UnknownFlags = true
	pre.SetOutput(io.Discard)
	pre.Usage = func() {}
	path := pre.String("env-file", "", "")
	pre.BoolP("help", "h", false, "")
	_ = pre.Parse(args)
	return *path
}

func newLogger(cfg *config.Config) *util.Logger {
	if cfg.LogFile != "" {
		return util.NewFileLogger(cfg.Verbose, cfg.LogFile,
			config.DefaultLogMaxSizeMB, config.DefaultLogMaxBackups)
	}
	return util.NewLogger(cfg.Verbose)
}

func parsePositional(cfg *config.Config, remaining []string) error {
	if cfg.Listen {
		switch len(remaining) {
		case 0: // sockcat -l -p PORT
		case 1:
			cfg.Host = remaining[0]
		case 2:
			cfg.Host = remaining[0]
			port, err := config.ParsePort(remaining[1])
			if err != nil {
				return fmt.Errorf("port: %w", err)
			}
			if cfg.LocalPort == 0 {
				cfg.LocalPort = port
			}
		default:
			return fmt.Errorf("too many arguments for listen mode")
		}
		return nil
	}

	// Connect mode: host port
	switch len(remaining) {
	case 0:
		return fmt.Errorf("hostname required (use --help for usage)")
	case 1:
		return fmt.Errorf("port required")
	case 2:
	default:
		return fmt.Errorf("too many arguments: want host and port")
	}
	cfg.Host = remaining[0]
	port, err := config.ParsePort(remaining[1])
	if err != nil {
		return fmt.Errorf("port %q: %w", remaining[1], err)
	}
	cfg.Port = port
	return nil
}

func printRecent(path string) error {
	if path == "" {
		path = history.DefaultPath()
	}
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	for _, target := range store.Targets() {
		fmt.Fprintln(stdout, target)
	}
	return nil
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `sockcat v%s

A netcat-style TCP/UDP tool built on a cancellable session engine.

Usage:
  sockcat [options] <host> <port>             Connect
  sockcat -l -p <port> [options]              Listen
  sockcat -T user@gateway <host> <port>       Tunnel
  sockcat --recent                            Recent targets

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Environment:
  SOCKCAT_* variables (and a .env file) preset any option; flags win.

Examples:
  sockcat example.com 80                      TCP connect
  sockcat -l -p 8080                          Listen on 8080
  sockcat -u -l -p 5353                       UDP listen
  sockcat -T admin@bastion db-internal 5432   SSH tunnel
  echo "hello" | sockcat host.example.com 9000
`)
}
