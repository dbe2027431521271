package session

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"sockcat/util"
)

// echoTransport hands the same payload to every SEND and drops
// whatever RECEIVE delivers.
type echoTransport struct{ payload []byte }

func (e *echoTransport) Read(p []byte) (int, error)  { return copy(p, e.payload), nil }
func (e *echoTransport) Write(p []byte) (int, error) { return len(p), nil }

// BenchmarkSendReceive measures one SEND plus one RECEIVE round trip
// through a TCP echo server, worker queue included.
func BenchmarkSendReceive(b *testing.B) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		b.Fatal(err)
	}
	defer ln.Close()

	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				io.Copy(c, c) //nolint:errcheck
			}(c)
		}
	}()

	payload := make([]byte, util.DefaultBufSize)
	for i := range payload {
		payload[i] = byte(i)
	}

	s := New(TCP, &echoTransport{payload: payload}, WithReceiveWait(time.Second))
	defer s.Close()

	ctx := context.Background()
	addr := ln.Addr().(*net.TCPAddr)
	if res := s.Do(ctx, Connect, "127.0.0.1", portOf(addr)); res.Err != nil {
		b.Fatal(res.Err)
	}

	b.SetBytes(int64(len(payload)))
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if res := s.Do(ctx, Send); res.Err != nil {
			b.Fatal(res.Err)
		}
		got := 0
		for got < len(payload) {
			res := s.Do(ctx, Receive)
			if res.Err != nil || res.EOF {
				b.Fatalf("receive: %v eof=%v", res.Err, res.EOF)
			}
			got += res.Bytes
		}
	}
}
