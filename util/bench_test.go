package util

import (
	"bytes"
	"testing"
)

// BenchmarkAsyncReader measures draining a source through the
// non-blocking reader one transfer buffer at a time.
func BenchmarkAsyncReader(b *testing.B) {
	payload := bytes.Repeat([]byte("X"), 64*DefaultBufSize)
	buf := make([]byte, DefaultBufSize)

	b.SetBytes(int64(len(payload)))
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		a := NewAsyncReader(bytes.NewReader(payload))
		total := 0
		for total < len(payload) {
			n, err := a.Read(buf)
			total += n
			if err != nil {
				break
			}
			if n == 0 {
				<-a.Ready()
			}
		}
	}
}

// BenchmarkBufPool measures the allocation advantage of sync.Pool
// buffer reuse versus fresh allocation.
func BenchmarkBufPool(b *testing.B) {
	b.Run("pool", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			buf := GetBuf()
			_ = (*buf)[0]
			PutBuf(buf)
		}
	})
	b.Run("alloc", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			buf := make([]byte, DefaultBufSize)
			_ = buf[0]
		}
	})
}
