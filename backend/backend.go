package backend

import (
	"errors"
	"fmt"
	"unsafe"
)

// MemType identifies a physical memory domain.
type MemType uint8

const (
	Host MemType = iota
	Device

	// NumMemTypes is the number of memory domains a record can span.
	NumMemTypes = 2
)

func (m MemType) String() string {
	names := [...]string{"host", "device"}
	if int(m) < len(names) {
		return names[m]
	}
	return fmt.Sprintf("memtype(%d)", m)
}

// Valid reports whether m names a known memory domain.
func (m MemType) Valid() bool { return m < NumMemTypes }

// Buffer represents a raw memory block on one memory domain.
type Buffer interface {
	// MemType returns which memory domain this buffer lives on.
	MemType() MemType

	// Ptr returns the raw pointer to the data.
	// For Host this is a Go pointer, for Device it's a device pointer.
	Ptr() unsafe.Pointer

	// Bytes returns the underlying byte slice (Host only, nil for Device).
	Bytes() []byte

	// ByteLen returns the total size in bytes.
	ByteLen() int

	// Free releases the memory. A buffer is freed at most once.
	Free() error
}

// Allocator is the native allocation primitive of one memory domain.
type Allocator interface {
	Name() string
	MemType() MemType

	// Alloc returns a zero-initialized buffer of byteLen bytes.
	Alloc(byteLen int) (Buffer, error)

	// Free releases a buffer obtained from Alloc.
	Free(b Buffer) error
}

// ErrNoAllocator is returned by Get when a memory domain has no registered
// allocator, e.g. a Device lookup in a process without a usable driver.
var ErrNoAllocator = errors.New("no allocator registered")

// Registry holds all available allocators.
var registry = map[MemType]Allocator{}

// Register adds an allocator to the global registry.
func Register(a Allocator) {
	registry[a.MemType()] = a
}

// Get returns the allocator for a memory domain.
func Get(mt MemType) (Allocator, error) {
	a, ok := registry[mt]
	if !ok {
		return nil, fmt.Errorf("%w for %s", ErrNoAllocator, mt)
	}
	return a, nil
}

// Available reports whether a memory domain has a registered allocator.
func Available(mt MemType) bool {
	_, ok := registry[mt]
	return ok
}
