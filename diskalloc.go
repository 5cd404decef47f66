package diskalloc

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/Giulio2002/diskalloc/mmap"
)

// DefaultCapacity is the reservation cap used when no WithCapacity option
// is given: 512 GiB of virtual address space. Only the file-backed prefix
// of the span ever costs disk, so the cap merely bounds how far one
// container can grow.
const DefaultCapacity int64 = 512 << 30

// DefaultDir is where New places its private backing file. /var/tmp
// rather than /tmp: /tmp is frequently a RAM-backed tmpfs, which would
// put the disk-backed storage right back into memory.
const DefaultDir = "/var/tmp"

// shared is the state every clone of a handle points at.
type shared struct {
	mu     sync.Mutex
	arena  arena
	refs   atomic.Int64
	logger *slog.Logger // lifecycle events only; nil means silent
	// closed is set under mu when the last handle goes away.
	closed bool
}

// handle gives its embedders the five capability operations plus
// refcounted teardown over one shared arena.
type handle struct {
	s *shared
	// released guards this particular clone against double Close.
	released atomic.Bool
}

// Allocate implements Allocator.
func (h *handle) Allocate(layout Layout) ([]byte, error) {
	if h.released.Load() {
		return nil, ErrClosed
	}
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	if h.s.closed {
		return nil, ErrClosed
	}
	return h.s.arena.allocate(layout)
}

// AllocateZeroed implements Allocator. Every span Allocate returns comes
// from a fresh extension of the backing file, which the OS zero-fills, so
// there is no separate zeroing path.
func (h *handle) AllocateZeroed(layout Layout) ([]byte, error) {
	return h.Allocate(layout)
}

// Grow implements Allocator.
func (h *handle) Grow(p []byte, oldLayout, newLayout Layout) ([]byte, error) {
	if h.released.Load() {
		return nil, ErrClosed
	}
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	if h.s.closed {
		return nil, ErrClosed
	}
	return h.s.arena.grow(p, oldLayout, newLayout)
}

// Shrink implements Allocator.
func (h *handle) Shrink(p []byte, oldLayout, newLayout Layout) ([]byte, error) {
	if h.released.Load() {
		return nil, ErrClosed
	}
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	if h.s.closed {
		return nil, ErrClosed
	}
	return h.s.arena.shrink(p, oldLayout, newLayout)
}

// Deallocate implements Allocator.
func (h *handle) Deallocate(p []byte, layout Layout) {
	if h.released.Load() {
		return
	}
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	if h.s.closed {
		return
	}
	h.s.arena.deallocate(p, layout)
}

// Size returns the current high-water mark in bytes. It equals the
// backing file's length after every completed operation.
func (h *handle) Size() int64 {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	return h.s.arena.size
}

// Capacity returns the reservation cap, or 0 after teardown.
func (h *handle) Capacity() int64 {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	if h.s.closed {
		return 0
	}
	return h.s.arena.region.Capacity()
}

func (h *handle) retain() *shared {
	h.s.refs.Add(1)
	return h.s
}

func (h *handle) close() error {
	if h.released.Swap(true) {
		return ErrClosed
	}
	if h.s.refs.Add(-1) > 0 {
		return nil
	}

	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	h.s.closed = true
	if h.s.logger != nil {
		h.s.logger.Debug("diskalloc: arena torn down", "size", h.s.arena.size)
	}
	return h.s.arena.region.Close()
}

// DiskAlloc is a cheaply-cloneable, goroutine-safe handle to one
// disk-backed bump arena. All clones share the arena and serialize their
// operations behind one lock; the arena, its mapping and its backing file
// are torn down when the last handle is closed.
//
// The arena hands out spans of a fixed 512 GiB (by default) reservation
// mapped over a resizable file, so a container built on it can grow far
// past RAM while its contents stay inspectable as raw file bytes.
type DiskAlloc struct {
	handle
}

// New creates an arena over a fresh private file in DefaultDir (or the
// WithDir override). The file is unlinked immediately after creation, so
// its storage disappears with the arena.
//
// A MappingFailed error means no contiguous address range of the
// requested capacity was available; an IO error means the file could not
// be created.
func New(opts ...Option) (*DiskAlloc, error) {
	o := applyOptions(opts)

	dir := o.dir
	if dir == DefaultDir {
		if _, err := os.Stat(dir); err != nil {
			dir = os.TempDir()
		}
	}

	f, err := os.CreateTemp(dir, "diskalloc-*")
	if err != nil {
		return nil, errIO("create backing file", err)
	}
	// Drop the name right away; the fd keeps the storage alive.
	os.Remove(f.Name())

	return onFile(f, o)
}

// OnFile builds an arena over a caller-supplied file, which must be open
// read-write. The file is truncated to zero so its length and the arena's
// high-water mark start out equal, and the arena owns it from here on.
//
// Pointing two arenas at the same file would let each treat the file
// length as its private high-water mark and corrupt the other's memory;
// the file is locked exclusively, so a second arena fails to construct.
func OnFile(f *os.File, opts ...Option) (*DiskAlloc, error) {
	o := applyOptions(opts)

	if err := f.Truncate(0); err != nil {
		return nil, errIO("truncate backing file", err)
	}

	return onFile(f, o)
}

func onFile(f *os.File, o options) (*DiskAlloc, error) {
	region, err := mmap.Reserve(f, o.capacity)
	if err != nil {
		f.Close()
		return nil, &Error{
			Code:    CodeMappingFailed,
			Message: fmt.Sprintf("cannot reserve %d bytes of address space", o.capacity),
			Err:     err,
		}
	}

	s := &shared{arena: arena{region: region}, logger: o.logger}
	s.refs.Store(1)

	if o.logger != nil {
		o.logger.Debug("diskalloc: reservation established", "capacity", o.capacity)
	}

	return &DiskAlloc{handle{s: s}}, nil
}

// Clone returns a new handle sharing the same arena. Clones are how the
// arena crosses goroutines; the arena stays alive until the last one is
// closed.
func (d *DiskAlloc) Clone() *DiskAlloc {
	return &DiskAlloc{handle{s: d.retain()}}
}

// Borrow returns d as its capability surface without touching the
// reference count, for consumers that wrap an allocator they do not own.
func (d *DiskAlloc) Borrow() Allocator {
	return d
}

// Close releases this handle. The last Close tears down the arena:
// unmaps the reservation and closes the backing file, invalidating every
// span ever handed out. Closing the same handle twice returns ErrClosed.
func (d *DiskAlloc) Close() error {
	return d.close()
}
