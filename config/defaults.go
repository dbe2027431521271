package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, .env files and environment variable loading.

const (
	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultConnTimeout is the SSH gateway connection timeout.
	DefaultConnTimeout = 30 * time.Second

	// DefaultRetries is how many CONNECT attempts are made.
	DefaultRetries = 1

	// DefaultPollInterval is how often UDP waits check for cancellation.
	DefaultPollInterval = 100 * time.Millisecond

	// DefaultReceiveWait bounds one connected RECEIVE so the CLI can
	// interleave SENDs.
	DefaultReceiveWait = 100 * time.Millisecond

	// DefaultEnvFile is loaded when present and --env-file is not given.
	DefaultEnvFile = ".env"

	// DefaultLogMaxSizeMB and DefaultLogMaxBackups govern --log-file
	// rotation.
	DefaultLogMaxSizeMB  = 10
	DefaultLogMaxBackups = 3
)
