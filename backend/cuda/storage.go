package cuda

import (
	"fmt"
	"unsafe"

	"github.com/djeday123/datastore/backend"
)

// Buffer represents a GPU memory block.
// Implements backend.Buffer.
type Buffer struct {
	ptr     uintptr // CUDA device pointer (not a Go pointer — just a numeric handle)
	byteLen int
}

func (b *Buffer) MemType() backend.MemType { return backend.Device }
func (b *Buffer) Ptr() unsafe.Pointer      { return unsafe.Pointer(b.ptr) }
func (b *Buffer) Bytes() []byte            { return nil } // GPU memory — no direct access
func (b *Buffer) ByteLen() int             { return b.byteLen }

func (b *Buffer) Free() error {
	if b.ptr == 0 {
		return nil
	}
	if r := cuMemFree(b.ptr); r != CUDA_SUCCESS {
		return fmt.Errorf("cuMemFree: %s", r.Error())
	}
	b.ptr = 0
	return nil
}

// DevicePtr returns the raw uintptr for CUDA API calls.
func (b *Buffer) DevicePtr() uintptr { return b.ptr }
