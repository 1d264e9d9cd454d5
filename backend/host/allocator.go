package host

import (
	"fmt"

	"github.com/djeday123/datastore/backend"
)

// Allocator implements backend.Allocator for host memory.
type Allocator struct{}

func init() {
	backend.Register(&Allocator{})
}

func (a *Allocator) Name() string             { return "host" }
func (a *Allocator) MemType() backend.MemType { return backend.Host }

// Alloc returns a zero-initialized host buffer. Go slices are zeroed by
// the runtime, so no explicit memset is needed.
func (a *Allocator) Alloc(byteLen int) (backend.Buffer, error) {
	if byteLen < 0 {
		return nil, fmt.Errorf("host: invalid allocation size %d", byteLen)
	}
	return newBuffer(byteLen), nil
}

func (a *Allocator) Free(b backend.Buffer) error {
	return b.Free()
}
