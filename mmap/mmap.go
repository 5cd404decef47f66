// Package mmap provides the fixed-address reservation that backs a disk
// arena: one memory mapping whose base address and span never change for
// its whole lifetime, layered over a resizable file.
//
// All unsafe pointer/offset arithmetic in the module lives in this
// package. Code above it deals only in offsets and in bounds-checked byte
// slices handed out by Slice.
package mmap

import (
	"os"
	"unsafe"
)

// Region represents one reserved virtual-address span over a backing file.
//
// The reservation is established once, at full capacity, and is never
// remapped: remapping would move the base address and invalidate every
// slice previously handed out. The backing file's length decides how much
// of the span is live; bytes past the file length become readable (as
// zeros) only after Resize extends the file, and touching them before
// that faults.
type Region struct {
	data   []byte   // the full reserved span; len == capacity
	file   *os.File // backing file; nil for anonymous reservations
	size   int64    // current live length, tracks the last Resize
	closed bool
}

// Error represents an mmap error.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return "mmap: " + e.Op + ": " + e.Err.Error()
	}
	return "mmap: " + e.Op
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Common errors
var (
	ErrInvalidCapacity = &Error{Op: "invalid capacity"}
)

// Capacity returns the reserved span size in bytes.
func (r *Region) Capacity() int64 {
	return int64(len(r.data))
}

// Anonymous reports whether the region has no backing file.
func (r *Region) Anonymous() bool {
	return r.file == nil
}

// Slice returns the [off, off+length) window of the reservation as a byte
// slice with its capacity clipped to length. The range must lie inside
// the reservation; a caller asking for bytes outside it has corrupted its
// own bookkeeping, so the failure is a panic rather than an error.
func (r *Region) Slice(off, length int64) []byte {
	if r.closed {
		panic("mmap: use of closed region")
	}
	if off < 0 || length < 0 || off > int64(len(r.data))-length {
		panic("mmap: slice out of reservation bounds")
	}
	return r.data[off : off+length : off+length]
}

// OffsetOf translates a pointer back into an offset from the reservation
// base. ok is false when p does not point into the reservation.
func (r *Region) OffsetOf(p unsafe.Pointer) (off int64, ok bool) {
	if r.closed || p == nil {
		return 0, false
	}
	base := uintptr(unsafe.Pointer(unsafe.SliceData(r.data)))
	addr := uintptr(p)
	// One-past-the-end is a valid position for an empty span at the tail.
	if addr < base || addr > base+uintptr(len(r.data)) {
		return 0, false
	}
	return int64(addr - base), true
}

// Resize changes the region's live length. For file-backed regions the
// backing file is truncated, so extending makes the new tail readable as
// zeros. Anonymous regions have no file whose extension would zero the
// tail, so the dropped bytes are cleared on shrink instead; either way a
// later extension over the same offsets reads as zero.
func (r *Region) Resize(size int64) error {
	if r.closed {
		panic("mmap: use of closed region")
	}
	if size < 0 || size > int64(len(r.data)) {
		panic("mmap: resize out of reservation bounds")
	}
	if r.file == nil {
		if size < r.size {
			clear(r.data[size:r.size])
		}
		r.size = size
		return nil
	}
	if err := r.file.Truncate(size); err != nil {
		return &Error{Op: "truncate", Err: err}
	}
	r.size = size
	return nil
}
