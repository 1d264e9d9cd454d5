package host

import (
	"unsafe"

	"github.com/djeday123/datastore/backend"
)

// buffer is a host memory block backed by a Go byte slice.
type buffer struct {
	data []byte
}

func newBuffer(byteLen int) *buffer {
	return &buffer{data: make([]byte, byteLen)}
}

func (b *buffer) MemType() backend.MemType { return backend.Host }

func (b *buffer) Ptr() unsafe.Pointer {
	if len(b.data) == 0 {
		return nil
	}
	return unsafe.Pointer(&b.data[0])
}

func (b *buffer) Bytes() []byte { return b.data }

func (b *buffer) ByteLen() int { return len(b.data) }

func (b *buffer) Free() error {
	b.data = nil
	return nil
}

// Float32s interprets a host buffer as a float32 slice of n elements.
func Float32s(b backend.Buffer, n int) []float32 {
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(b.Ptr()), n)
}

// Float64s interprets a host buffer as a float64 slice of n elements.
func Float64s(b backend.Buffer, n int) []float64 {
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*float64)(b.Ptr()), n)
}
