// Package store manages the lifetime of numeric buffers identified by
// opaque handles across host and device memory. Records are reference
// counted by the surrounding executor; a count reaching zero reclaims
// every buffer the handle holds and removes the record.
package store

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/djeday123/datastore/backend"
	"github.com/djeday123/datastore/core"
)

// Handle identifies a logical buffer. Handles are assigned by the caller
// and must be unique while live; a reclaimed handle may be reused after a
// fresh Create.
type Handle uint64

// ElemType is the element type of every stored buffer. Buffer size in
// bytes is length × ElemType.Size().
const ElemType = core.Float32

// record tracks one handle: element count, reference count, and at most
// one live buffer per memory domain.
type record struct {
	length int
	refs   int
	bufs   [backend.NumMemTypes]backend.Buffer
}

// Store owns every buffer it allocates, from creation until reclamation.
// Callers borrow buffers via Get and never take ownership.
//
// All operations serialize on one mutex. The executor is expected to call
// the store only for short metadata operations, so total serialization
// keeps the semantics linearizable without costing real throughput.
//
// Contract violations — unknown handle, duplicate creation for a
// handle+domain pair, length mismatch, refcount underflow, negative
// amounts — panic: they indicate a broken caller, not a runtime fault.
// Allocation failure is the one recoverable condition and is returned
// as an error from Create.
type Store struct {
	mu      sync.Mutex
	records map[Handle]*record
	log     *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger enables debug traces of create and reclaim on l.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		records: make(map[Handle]*record),
		log:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create allocates a zero-initialized buffer of length elements for
// (h, mt) and sets the handle's reference count to rc.
//
// The first Create for a handle pins its length; later calls adding other
// memory domains must pass the same length. On allocation failure an error
// is returned and the store is left exactly as it was.
func (s *Store) Create(h Handle, mt backend.MemType, length int, rc int) error {
	if !mt.Valid() {
		panic(fmt.Sprintf("store: invalid memory type %d", mt))
	}
	if length < 0 {
		panic(fmt.Sprintf("store: handle=%d invalid length %d", h, length))
	}
	if rc < 0 {
		panic(fmt.Sprintf("store: handle=%d invalid refcount %d", h, rc))
	}

	alloc, err := backend.Get(mt)
	if err != nil {
		return fmt.Errorf("create handle=%d: %w", h, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[h]
	if !ok {
		rec = &record{length: length}
	}
	if rec.bufs[mt] != nil {
		panic(fmt.Sprintf("store: handle=%d already created on %s", h, mt))
	}
	if rec.length != length {
		panic(fmt.Sprintf("store: handle=%d length mismatch: have %d, got %d", h, rec.length, length))
	}

	buf, err := alloc.Alloc(length * int(ElemType.Size()))
	if err != nil {
		return fmt.Errorf("create handle=%d on %s: %w", h, mt, err)
	}
	rec.bufs[mt] = buf
	rec.refs = rc
	s.records[h] = rec
	s.log.Debug("create", "handle", uint64(h), "memtype", mt.String(), "length", length, "refs", rc)
	return nil
}

// Get returns the buffer for (h, mt). The store retains ownership: the
// caller must not free the buffer or hold it past the handle's lifetime.
func (s *Store) Get(h Handle, mt backend.MemType) backend.Buffer {
	if !mt.Valid() {
		panic(fmt.Sprintf("store: invalid memory type %d", mt))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.lookup(h)
	buf := rec.bufs[mt]
	if buf == nil {
		panic(fmt.Sprintf("store: handle=%d has no buffer on %s", h, mt))
	}
	return buf
}

// IncrRef raises h's reference count by amount and reports whether the
// record was reclaimed (only possible for amount 0 on a zero count).
func (s *Store) IncrRef(h Handle, amount int) bool {
	if amount < 0 {
		panic(fmt.Sprintf("store: handle=%d negative increment %d", h, amount))
	}
	return s.adjustRef(h, amount)
}

// DecrRef lowers h's reference count by amount and reports whether the
// count reached zero and the record was reclaimed. Decrementing past zero
// panics.
func (s *Store) DecrRef(h Handle, amount int) bool {
	if amount < 0 {
		panic(fmt.Sprintf("store: handle=%d negative decrement %d", h, amount))
	}
	return s.adjustRef(h, -amount)
}

func (s *Store) adjustRef(h Handle, delta int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.lookup(h)
	if rec.refs+delta < 0 {
		panic(fmt.Sprintf("store: handle=%d refcount underflow: %d%+d", h, rec.refs, delta))
	}
	rec.refs += delta
	if rec.refs == 0 {
		s.reclaim(h, rec)
		return true
	}
	return false
}

// SetRef sets h's reference count to rc and reports whether the record
// was reclaimed.
func (s *Store) SetRef(h Handle, rc int) bool {
	if rc < 0 {
		panic(fmt.Sprintf("store: handle=%d invalid refcount %d", h, rc))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.lookup(h)
	rec.refs = rc
	if rec.refs == 0 {
		s.reclaim(h, rec)
		return true
	}
	return false
}

// RefCount returns h's current reference count.
func (s *Store) RefCount(h Handle) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(h).refs
}

// Exists reports whether h has a live record.
func (s *Store) Exists(h Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[h]
	return ok
}

// TotalBytes sums the byte sizes of all live buffers on mt.
func (s *Store) TotalBytes(mt backend.MemType) uint64 {
	if !mt.Valid() {
		panic(fmt.Sprintf("store: invalid memory type %d", mt))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var total uint64
	for _, rec := range s.records {
		if rec.bufs[mt] != nil {
			total += uint64(rec.length) * uint64(ElemType.Size())
		}
	}
	return total
}

// ForceRelease reclaims h's record regardless of its reference count.
func (s *Store) ForceRelease(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reclaim(h, s.lookup(h))
}

// Close reclaims every surviving record. The store stays usable and
// empty afterwards.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for h, rec := range s.records {
		s.reclaim(h, rec)
	}
}

// lookup returns h's record. Caller holds s.mu.
func (s *Store) lookup(h Handle) *record {
	rec, ok := s.records[h]
	if !ok {
		panic(fmt.Sprintf("store: unknown handle %d", h))
	}
	return rec
}

// reclaim frees every populated slot of rec and removes it from the
// store. Caller holds s.mu, so no Get or Create can observe a
// half-released record. A failed free panics: the record is already
// partially torn down and the process state can no longer be trusted.
func (s *Store) reclaim(h Handle, rec *record) {
	for mt, buf := range rec.bufs {
		if buf == nil {
			continue
		}
		if err := buf.Free(); err != nil {
			panic(fmt.Sprintf("store: free handle=%d on %s: %v", h, backend.MemType(mt), err))
		}
		rec.bufs[mt] = nil
	}
	delete(s.records, h)
	s.log.Debug("reclaim", "handle", uint64(h), "length", rec.length)
}
