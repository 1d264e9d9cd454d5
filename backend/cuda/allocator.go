package cuda

// Device memory allocator backed by the CUDA Driver API via purego.
//
// Registration: import _ "github.com/djeday123/datastore/backend/cuda"
// This triggers init(), which registers the allocator only when libcuda
// loads and cuInit succeeds. Binaries run unchanged on machines without
// NVIDIA GPUs; there backend.Get(backend.Device) reports ErrNoAllocator.
// The CUDA context is created lazily on first allocation.

import (
	"fmt"
	"sync"

	"github.com/djeday123/datastore/backend"
)

// Allocator implements backend.Allocator for NVIDIA GPUs.
type Allocator struct {
	mu          sync.Mutex
	initialized bool

	deviceIdx int
	device    int32
	ctx       uintptr
	info      *DeviceInfo
}

func init() {
	// Only register if the CUDA driver is available.
	if err := initDriver(); err != nil {
		return // no libcuda -- host-only process
	}
	if r := cuInit(0); r != CUDA_SUCCESS {
		return // no CUDA devices
	}
	backend.Register(&Allocator{})
}

func (a *Allocator) Name() string             { return "cuda" }
func (a *Allocator) MemType() backend.MemType { return backend.Device }

// ensureInit performs lazy initialization on first use.
func (a *Allocator) ensureInit() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.initialized {
		cuCtxSetCurrent(a.ctx)
		return nil
	}

	if r := cuDeviceGet(&a.device, int32(a.deviceIdx)); r != CUDA_SUCCESS {
		return fmt.Errorf("cuDeviceGet(%d): %s", a.deviceIdx, r.Error())
	}
	if r := cuCtxCreate(&a.ctx, 0, a.device); r != CUDA_SUCCESS {
		return fmt.Errorf("cuCtxCreate: %s", r.Error())
	}

	var err error
	a.info, err = QueryDevice(a.deviceIdx)
	if err != nil {
		return fmt.Errorf("QueryDevice: %w", err)
	}

	a.initialized = true
	return nil
}

// Alloc allocates device memory and zeroes it, so Host and Device buffers
// come up with identical contents.
func (a *Allocator) Alloc(byteLen int) (backend.Buffer, error) {
	if err := a.ensureInit(); err != nil {
		return nil, err
	}
	b := &Buffer{byteLen: byteLen}
	if r := cuMemAlloc(&b.ptr, uint64(byteLen)); r != CUDA_SUCCESS {
		return nil, fmt.Errorf("cuMemAlloc(%d bytes): %s", byteLen, r.Error())
	}
	if r := cuMemsetD8(b.ptr, 0, uint64(byteLen)); r != CUDA_SUCCESS {
		cuMemFree(b.ptr)
		return nil, fmt.Errorf("cuMemsetD8: %s", r.Error())
	}
	return b, nil
}

func (a *Allocator) Free(b backend.Buffer) error {
	return b.Free()
}

// Info returns device information, initializing the context if needed.
func (a *Allocator) Info() (*DeviceInfo, error) {
	if err := a.ensureInit(); err != nil {
		return nil, err
	}
	return a.info, nil
}
