package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	ncerr "sockcat/internal/errors"
)

// ── ParseTunnelSpec ──────────────────────────────────────────────────

func TestParseTunnelSpec(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantUser string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{"full", "admin@bastion.example.com:2222", "admin", "bastion.example.com", 2222, false},
		{"no port", "root@gateway", "root", "gateway", 22, false},
		{"no user", "jump-host:2200", "", "jump-host", 2200, false},
		{"host only", "gateway.local", "", "gateway.local", 22, false},
		{"bad port", "user@host:999999", "", "", 0, true},
		{"port zero", "host:0", "", "", 0, true},
		{"empty", "", "", "", 0, true},
		{"colon only", ":", "", "", 0, true},
		{"no host before colon", ":22", "", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, host, port, err := ParseTunnelSpec(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr = %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if user != tt.wantUser || host != tt.wantHost || port != tt.wantPort {
				t.Errorf("got (%q, %q, %d), want (%q, %q, %d)",
					user, host, port, tt.wantUser, tt.wantHost, tt.wantPort)
			}
		})
	}
}

// ── ParsePort ────────────────────────────────────────────────────────

func TestParsePort(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"80", 80, false},
		{"1", 1, false},
		{"65535", 65535, false},
		{"0", 0, true},
		{"70000", 0, true},
		{"abc", 0, true},
		{"80-90", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePort(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePort(%q) error = %v, wantErr = %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

// ── Config.Validate ──────────────────────────────────────────────────

func valid(c Config) Config {
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.ReceiveWait == 0 {
		c.ReceiveWait = DefaultReceiveWait
	}
	return c
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid connect", Config{Host: "example.com", Port: 80}, false},
		{"valid listen", Config{Listen: true, LocalPort: 8080}, false},
		{"valid udp listen", Config{Listen: true, UDP: true, LocalPort: 53}, false},
		{"valid tunnel", Config{Host: "db", Port: 5432, TunnelEnabled: true, TunnelHost: "gw"}, false},
		{"listen no port", Config{Listen: true}, true},
		{"connect no host", Config{Port: 80}, true},
		{"connect no port", Config{Host: "x"}, true},
		{"keep-open without listen", Config{Host: "x", Port: 80, KeepOpen: true}, true},
		{"exec conflict", Config{Host: "x", Port: 80, Execute: "a", Command: "b"}, true},
		{"udp tunnel", Config{Host: "x", Port: 80, UDP: true, TunnelEnabled: true, TunnelHost: "gw", TunnelUser: "u"}, true},
		{"listen tunnel", Config{Listen: true, LocalPort: 80, TunnelEnabled: true, TunnelHost: "gw"}, true},
		{"tunnel no host", Config{Host: "x", Port: 80, TunnelEnabled: true}, true},
		{"negative retries", Config{Host: "x", Port: 80, Retries: -1}, true},
		{"no-dns with name", Config{Host: "example.com", Port: 80, NoDNS: true}, true},
		{"no-dns with ip", Config{Host: "10.0.0.1", Port: 80, NoDNS: true}, false},
		{"zero poll interval", Config{Host: "x", Port: 80, PollInterval: -time.Second}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid(tt.cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}

// TestValidate_ErrorMessages verifies that Validate returns actionable
// error messages with hints.
func TestValidate_ErrorMessages(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantSub string
	}{
		{"listen no port has hint", Config{Listen: true}, "hint:"},
		{"udp tunnel has hint", Config{Host: "x", Port: 80, UDP: true, TunnelEnabled: true, TunnelHost: "gw"}, "hint:"},
		{"exec conflict", Config{Host: "x", Port: 80, Execute: "a", Command: "b"}, "-e and -c are mutually exclusive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid(tt.cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q should contain %q", err.Error(), tt.wantSub)
			}
			var ce *ncerr.ConfigError
			if !errors.As(err, &ce) {
				t.Errorf("error %T is not a *ConfigError", err)
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Retries != DefaultRetries || cfg.PollInterval != DefaultPollInterval || cfg.ReceiveWait != DefaultReceiveWait {
		t.Errorf("Defaults() = %+v", cfg)
	}
	cfg.Host, cfg.Port = "localhost", 80
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults plus a target should validate: %v", err)
	}
}
