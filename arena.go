package diskalloc

import (
	"unsafe"

	"github.com/Giulio2002/diskalloc/mmap"
)

// arena is the bump allocator proper: one fixed reservation plus a single
// high-water mark. It is not safe for concurrent use; the exported
// handles serialize every call to it behind their mutex.
//
// Invariant after every completed operation: size equals the backing
// file's length and 0 <= size <= region capacity. The file length is
// changed first and size committed only on success, so a failed resize
// leaves both consistent.
type arena struct {
	region *mmap.Region
	size   int64
}

// pad returns how many bytes to skip so that off becomes align-aligned.
// align is a power of two (Layout guarantees it).
func pad(off, align int64) int64 {
	return -off & (align - 1)
}

func (a *arena) allocate(layout Layout) ([]byte, error) {
	if err := layout.check(); err != nil {
		return nil, err
	}

	start := a.size + pad(a.size, layout.align)
	tail := start + layout.size
	if tail < start || tail > a.region.Capacity() {
		// Report the bytes left above the aligned start, not the raw
		// high-water mark, so the figure matches what the request saw.
		free := a.region.Capacity() - start
		if free < 0 {
			free = 0
		}
		return nil, errCapacity(layout.size, free)
	}

	if err := a.region.Resize(tail); err != nil {
		return nil, errIO("extend backing file", err)
	}
	a.size = tail

	// Freshly extended region bytes read as zero.
	return a.region.Slice(start, layout.size), nil
}

// isTail reports whether the span ends exactly at the high-water mark,
// i.e. nothing was allocated above it since.
func (a *arena) isTail(p []byte, layout Layout) bool {
	off, ok := a.region.OffsetOf(unsafe.Pointer(unsafe.SliceData(p)))
	return ok && off+layout.size == a.size
}

func (a *arena) grow(p []byte, oldLayout, newLayout Layout) ([]byte, error) {
	if err := oldLayout.check(); err != nil {
		return nil, err
	}
	if err := newLayout.check(); err != nil {
		return nil, err
	}
	if oldLayout.align != newLayout.align {
		return nil, &Error{Code: CodeUnsupported, Message: "grow cannot change alignment"}
	}
	if newLayout.size < oldLayout.size {
		return nil, &Error{Code: CodeBadLayout, Message: "grow to a smaller size"}
	}

	if !a.isTail(p, oldLayout) {
		// The span is buried under later allocations; hand out a fresh
		// one at the tail. The caller copies its live bytes across.
		return a.allocate(newLayout)
	}

	tail := a.size + (newLayout.size - oldLayout.size)
	if tail < a.size || tail > a.region.Capacity() {
		return nil, errCapacity(newLayout.size-oldLayout.size, a.region.Capacity()-a.size)
	}

	if err := a.region.Resize(tail); err != nil {
		return nil, errIO("extend backing file", err)
	}
	a.size = tail

	return a.region.Slice(tail-newLayout.size, newLayout.size), nil
}

func (a *arena) shrink(p []byte, oldLayout, newLayout Layout) ([]byte, error) {
	if err := oldLayout.check(); err != nil {
		return nil, err
	}
	if err := newLayout.check(); err != nil {
		return nil, err
	}
	if newLayout.size > oldLayout.size {
		return nil, &Error{Code: CodeBadLayout, Message: "shrink to a larger size"}
	}

	if !a.isTail(p, oldLayout) {
		// Capacity under the tail is never reclaimed; the span just
		// narrows in place.
		return p[:newLayout.size:newLayout.size], nil
	}

	tail := a.size - (oldLayout.size - newLayout.size)
	if err := a.region.Resize(tail); err != nil {
		return nil, errIO("shrink backing file", err)
	}
	a.size = tail

	return a.region.Slice(tail-newLayout.size, newLayout.size), nil
}

func (a *arena) deallocate(p []byte, layout Layout) {
	if layout.check() != nil || !a.isTail(p, layout) {
		// Not the tail: the span leaks until the arena is torn down.
		return
	}

	tail := a.size - layout.size
	if err := a.region.Resize(tail); err != nil {
		// Best effort; keep size consistent with the file length.
		return
	}
	a.size = tail
}
