package config

// loader.go - configuration loading from the environment.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. .env file  (LoadEnvFile)
//   4. Defaults   (defaults.go)

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadEnvFile exports the variables in a .env file into the process
// environment.  Variables that are already set win, which keeps real
// environment variables above the file.  With path empty the default
// file is loaded only if it exists.
func LoadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("env file %s: %w", path, err)
	}
	return nil
}

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the SOCKCAT_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  This should be called BEFORE
// CLI flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("SOCKCAT_HOST"); v != "" {
		cfg.Host = v
	}
	if v := envInt("SOCKCAT_PORT"); v > 0 {
		cfg.LocalPort = v
	}
	if envBool("SOCKCAT_LISTEN") {
		cfg.Listen = true
	}
	if envBool("SOCKCAT_UDP") {
		cfg.UDP = true
	}
	if envBool("SOCKCAT_NO_DNS") {
		cfg.NoDNS = true
	}
	if envBool("SOCKCAT_KEEP_OPEN") {
		cfg.KeepOpen = true
	}
	if v := envInt("SOCKCAT_TIMEOUT"); v > 0 {
		cfg.Timeout = secondsDuration(v)
	}

	// SSH tunnel
	if v := os.Getenv("SOCKCAT_TUNNEL"); v != "" {
		cfg.TunnelSpec = v
	}
	if v := os.Getenv("SOCKCAT_SSH_KEY"); v != "" {
		cfg.SSHKeyPath = v
	}
	if envBool("SOCKCAT_SSH_PASSWORD") {
		cfg.SSHPassword = true
	}
	if envBool("SOCKCAT_SSH_AGENT") {
		cfg.UseSSHAgent = true
	}
	if envBool("SOCKCAT_STRICT_HOSTKEY") {
		cfg.StrictHostKey = true
	}
	if v := os.Getenv("SOCKCAT_KNOWN_HOSTS"); v != "" {
		cfg.KnownHostsPath = v
	}

	// Session engine
	if v := envInt("SOCKCAT_RETRY"); v > 0 {
		cfg.Retries = v
	}
	if envBool("SOCKCAT_STRICT") {
		cfg.StrictGuards = true
	}
	if v := envDuration("SOCKCAT_POLL_INTERVAL"); v > 0 {
		cfg.PollInterval = v
	}
	if v := envDuration("SOCKCAT_RECEIVE_WAIT"); v > 0 {
		cfg.ReceiveWait = v
	}

	// History
	if v := os.Getenv("SOCKCAT_HISTORY"); v != "" {
		cfg.HistoryPath = v
	}
	if envBool("SOCKCAT_NO_HISTORY") {
		cfg.NoHistory = true
	}

	// Output
	if v := envInt("SOCKCAT_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
	if v := os.Getenv("SOCKCAT_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

// envDuration accepts Go durations ("250ms") and treats bare numbers
// as milliseconds.
func envDuration(key string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Millisecond
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func secondsDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}
