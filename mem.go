package diskalloc

import (
	"fmt"

	"github.com/Giulio2002/diskalloc/mmap"
)

// MemAlloc is the in-memory twin of DiskAlloc: the same bump arena over
// an anonymous reservation instead of a file. It exists for consumers
// that pick disk or RAM behind the same Allocator seam, and for tests
// that want a reference arena without disk I/O.
type MemAlloc struct {
	handle
}

// NewMem reserves an anonymous span of o.capacity bytes and returns a
// handle over it. WithDir has no effect; there is no backing file.
func NewMem(opts ...Option) (*MemAlloc, error) {
	o := applyOptions(opts)

	region, err := mmap.ReserveAnon(o.capacity)
	if err != nil {
		return nil, &Error{
			Code:    CodeMappingFailed,
			Message: fmt.Sprintf("cannot reserve %d bytes of anonymous memory", o.capacity),
			Err:     err,
		}
	}

	s := &shared{arena: arena{region: region}, logger: o.logger}
	s.refs.Store(1)

	if o.logger != nil {
		o.logger.Debug("diskalloc: anonymous reservation established", "capacity", o.capacity)
	}

	return &MemAlloc{handle{s: s}}, nil
}

// Clone returns a new handle sharing the same arena.
func (m *MemAlloc) Clone() *MemAlloc {
	return &MemAlloc{handle{s: m.retain()}}
}

// Borrow returns m as its capability surface without touching the
// reference count.
func (m *MemAlloc) Borrow() Allocator {
	return m
}

// Close releases this handle; the last Close unmaps the reservation.
func (m *MemAlloc) Close() error {
	return m.close()
}
