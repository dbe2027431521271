package util

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// ParsePort converts s to a port number in [min, 65535].  Connect
// targets use min=1; listeners accept 0 for an ephemeral port.
func ParsePort(s string, min int) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	if port < min || port > 65535 {
		return 0, fmt.Errorf("port %d out of range %d-65535", port, min)
	}
	return port, nil
}

// CheckNumericHost rejects anything but an IP literal when noDNS is set.
func CheckNumericHost(host string, noDNS bool) error {
	if noDNS && net.ParseIP(host) == nil {
		return fmt.Errorf("cannot parse %q as an IP address (DNS disabled with -n)", host)
	}
	return nil
}

// ResolveAddr builds a host:port string, validating that the host is a
// numeric IP when noDNS is true.
func ResolveAddr(host string, port int, noDNS bool) (string, error) {
	if err := CheckNumericHost(host, noDNS); err != nil {
		return "", err
	}
	return FormatAddr(host, port), nil
}

// FormatAddr returns "host:port".
func FormatAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// FindFreePort returns an available TCP port on 127.0.0.1.
func FindFreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("finding free port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// FindFreeUDPPort returns an available UDP port on 127.0.0.1.
func FindFreeUDPPort() (int, error) {
	c, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		return 0, fmt.Errorf("finding free udp port: %w", err)
	}
	defer c.Close()
	return c.LocalAddr().(*net.UDPAddr).Port, nil
}
