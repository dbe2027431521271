package core

import (
	"bytes"
	"context"
	"io"
	"net"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sockcat/internal/capability"
	ncerr "sockcat/internal/errors"
	"sockcat/internal/history"
	"sockcat/internal/metrics"
	"sockcat/internal/retry"
	"sockcat/internal/session"
	"sockcat/internal/transport"
	"sockcat/util"
)

func fastOptions() []session.Option {
	return []session.Option{
		session.WithReceiveWait(20 * time.Millisecond),
		session.WithPollInterval(20 * time.Millisecond),
	}
}

func newConnectMode(proto session.Protocol, addr net.Addr, in io.Reader, out io.Writer) *ConnectMode {
	host, port := "127.0.0.1", 0
	switch a := addr.(type) {
	case *net.TCPAddr:
		port = a.Port
	case *net.UDPAddr:
		port = a.Port
	}
	var dialer transport.Dialer = &transport.TCPDialer{Timeout: 2 * time.Second}
	if proto == session.UDP {
		dialer = &transport.UDPDialer{Timeout: 2 * time.Second}
	}
	return &ConnectMode{
		Protocol:       proto,
		Host:           host,
		Port:           port,
		Dialer:         dialer,
		Capability:     &capability.Relay{In: in, Out: out},
		Options:        fastOptions(),
		StopOnLocalEOF: proto == session.UDP,
		Metrics:        metrics.New(),
		Logger:         util.NewLogger(0),
	}
}

// TestConnectMode_TCP verifies end-to-end connect mode with Relay.
func TestConnectMode_TCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	// Server: accept one conn, send greeting, close.
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte("hello from server\n")) //nolint:errcheck
	}()

	output := &bytes.Buffer{}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	mode := newConnectMode(session.TCP, ln.Addr(), strings.NewReader(""), output)
	require.NoError(t, mode.Run(ctx))
	assert.Equal(t, "hello from server\n", output.String())
	assert.Equal(t, int64(1), mode.Metrics.OperationCount("connect"))
}

// TestConnectMode_SendData verifies data flows from client to server
// and that local EOF reaches the server.
func TestConnectMode_SendData(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		var buf bytes.Buffer
		io.Copy(&buf, conn) //nolint:errcheck
		received <- buf.String()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	mode := newConnectMode(session.TCP, ln.Addr(), strings.NewReader("payload from client"), io.Discard)
	require.NoError(t, mode.Run(ctx))

	select {
	case got := <-received:
		assert.Equal(t, "payload from client", got)
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for data")
	}
}

func TestConnectMode_UDP(t *testing.T) {
	server, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	mode := newConnectMode(session.UDP, server.LocalAddr(), strings.NewReader("datagram"), io.Discard)
	require.NoError(t, mode.Run(ctx))

	buf := make([]byte, 64)
	server.SetReadDeadline(time.Now().Add(3 * time.Second))
	n, err := server.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "datagram", string(buf[:n]))
}

func TestConnectMode_RetriesThenFails(t *testing.T) {
	port, err := util.FindFreePort()
	require.NoError(t, err)

	mode := newConnectMode(session.TCP, &net.TCPAddr{Port: port}, strings.NewReader(""), io.Discard)
	mode.Backoff = &retry.Backoff{InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, MaxAttempts: 3}

	err = mode.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ncerr.ErrConnect)
	assert.Equal(t, int64(2), mode.Metrics.ConnectRetries())
	assert.Equal(t, int64(3), mode.Metrics.OperationCount("connect"))
}

func TestConnectMode_BadAddressNotRetried(t *testing.T) {
	mode := newConnectMode(session.TCP, &net.TCPAddr{Port: 80}, strings.NewReader(""), io.Discard)
	mode.Host = "no-such-host.invalid"
	mode.Backoff = &retry.Backoff{InitialDelay: time.Millisecond, MaxAttempts: 5}

	err := mode.Run(context.Background())
	assert.ErrorIs(t, err, ncerr.ErrAddress)
	assert.Equal(t, int64(0), mode.Metrics.ConnectRetries())
}

func TestConnectMode_RecordsHistory(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		if c, err := ln.Accept(); err == nil {
			c.Close()
		}
	}()

	path := filepath.Join(t.TempDir(), "history.yaml")
	store, err := history.Open(path)
	require.NoError(t, err)

	mode := newConnectMode(session.TCP, ln.Addr(), strings.NewReader(""), io.Discard)
	mode.History = store

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, mode.Run(ctx))

	again, err := history.Open(path)
	require.NoError(t, err)
	assert.Equal(t, []string{ln.Addr().String()}, again.Targets())
}

func TestConnectMode_Exec(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs /bin/sh")
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	echoed := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte("through cat\n")) //nolint:errcheck
		buf := make([]byte, 64)
		conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		n, _ := conn.Read(buf)
		echoed <- string(buf[:n])
	}()

	mode := newConnectMode(session.TCP, ln.Addr(), nil, nil)
	mode.Capability = &capability.Exec{Command: "cat"}
	mode.StopOnLocalEOF = true

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, mode.Run(ctx))

	select {
	case got := <-echoed:
		assert.Equal(t, "through cat\n", got)
	case <-time.After(3 * time.Second):
		t.Fatal("child output never reached the server")
	}
}
