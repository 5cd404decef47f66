// Package vec implements a resizable array over the diskalloc capability
// surface. Backed by a DiskAlloc its elements live in a file-backed
// mapping and can outgrow RAM; backed by a MemAlloc they live in
// anonymous memory. The container itself cannot tell the difference.
package vec

import (
	"math"
	"unsafe"

	"github.com/Giulio2002/diskalloc"
)

// Vec is a growable array whose element storage is one span obtained from
// an Allocator. All mutations that can reallocate invalidate previously
// returned views. Vec is not goroutine-safe; the allocator behind it is.
type Vec[T any] struct {
	alloc diskalloc.Allocator
	buf   []byte // current span; len == cap * sizeof(T)
	len   int    // live elements
	cap   int    // elements the span can hold
}

// New returns an empty Vec drawing storage from a. Nothing is allocated
// until the first element arrives.
func New[T any](a diskalloc.Allocator) *Vec[T] {
	if sizeOf[T]() == 0 {
		panic("vec: zero-sized element type")
	}
	return &Vec[T]{alloc: a}
}

// WithCapacity returns an empty Vec with room for n elements already
// allocated.
func WithCapacity[T any](a diskalloc.Allocator, n int) (*Vec[T], error) {
	v := New[T](a)
	if err := v.Reserve(n); err != nil {
		return nil, err
	}
	return v, nil
}

func sizeOf[T any]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

func layoutFor[T any](n int) (diskalloc.Layout, error) {
	size := int64(sizeOf[T]())
	var zero T
	if int64(n) > math.MaxInt64/size {
		return diskalloc.Layout{}, diskalloc.ErrBadLayout
	}
	return diskalloc.NewLayout(int64(n)*size, int64(unsafe.Alignof(zero)))
}

// elems reinterprets the byte span as elements, sized to the capacity.
func (v *Vec[T]) elems() []T {
	if v.cap == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(v.buf))), v.cap)
}

// Len returns the number of live elements.
func (v *Vec[T]) Len() int {
	return v.len
}

// Cap returns how many elements fit in the current span.
func (v *Vec[T]) Cap() int {
	return v.cap
}

// ensure makes the span hold at least n elements, doubling the capacity
// to amortize repeated pushes.
func (v *Vec[T]) ensure(n int) error {
	if n <= v.cap {
		return nil
	}

	newCap := v.cap * 2
	if newCap < n {
		newCap = n
	}
	if newCap < 4 {
		newCap = 4
	}

	newLayout, err := layoutFor[T](newCap)
	if err != nil {
		return err
	}

	if v.cap == 0 {
		buf, err := v.alloc.Allocate(newLayout)
		if err != nil {
			return err
		}
		v.buf = buf
		v.cap = newCap
		return nil
	}

	oldLayout, err := layoutFor[T](v.cap)
	if err != nil {
		return err
	}
	buf, err := v.alloc.Grow(v.buf, oldLayout, newLayout)
	if err != nil {
		return err
	}
	if unsafe.SliceData(buf) != unsafe.SliceData(v.buf) {
		// Relocated: the allocator does not copy for us.
		copy(buf, v.buf[:v.len*sizeOf[T]()])
		v.alloc.Deallocate(v.buf, oldLayout)
	}
	v.buf = buf
	v.cap = newCap
	return nil
}

// Push appends x, growing the span as needed.
func (v *Vec[T]) Push(x T) error {
	if err := v.ensure(v.len + 1); err != nil {
		return err
	}
	v.elems()[v.len] = x
	v.len++
	return nil
}

// Append appends all of xs.
func (v *Vec[T]) Append(xs ...T) error {
	if err := v.ensure(v.len + len(xs)); err != nil {
		return err
	}
	copy(v.elems()[v.len:], xs)
	v.len += len(xs)
	return nil
}

// Pop removes and returns the last element. ok is false when the Vec is
// empty. Capacity is kept; use ShrinkToFit to return it.
func (v *Vec[T]) Pop() (x T, ok bool) {
	if v.len == 0 {
		return x, false
	}
	v.len--
	return v.elems()[v.len], true
}

// At returns element i. Panics when i is out of range, like slice
// indexing.
func (v *Vec[T]) At(i int) T {
	if i < 0 || i >= v.len {
		panic("vec: index out of range")
	}
	return v.elems()[i]
}

// Set replaces element i. Panics when i is out of range.
func (v *Vec[T]) Set(i int, x T) {
	if i < 0 || i >= v.len {
		panic("vec: index out of range")
	}
	v.elems()[i] = x
}

// Slice returns a view of the live elements. The view is invalidated by
// any operation that can reallocate.
func (v *Vec[T]) Slice() []T {
	return v.elems()[:v.len]
}

// Reserve makes room for at least additional more elements beyond the
// current length.
func (v *Vec[T]) Reserve(additional int) error {
	if additional <= 0 {
		return nil
	}
	return v.ensure(v.len + additional)
}

// Truncate drops elements past n. It never touches the allocator; the
// spare capacity stays with the Vec.
func (v *Vec[T]) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if n < v.len {
		v.len = n
	}
}

// ShrinkToFit gives spare capacity back to the allocator. When the Vec
// sits at the arena tail this also shrinks the backing file.
func (v *Vec[T]) ShrinkToFit() error {
	if v.cap == v.len {
		return nil
	}

	oldLayout, err := layoutFor[T](v.cap)
	if err != nil {
		return err
	}

	if v.len == 0 {
		v.alloc.Deallocate(v.buf, oldLayout)
		v.buf = nil
		v.cap = 0
		return nil
	}

	newLayout, err := layoutFor[T](v.len)
	if err != nil {
		return err
	}
	buf, err := v.alloc.Shrink(v.buf, oldLayout, newLayout)
	if err != nil {
		return err
	}
	v.buf = buf
	v.cap = v.len
	return nil
}

// Free returns the element storage to the allocator and leaves the Vec
// empty but reusable.
func (v *Vec[T]) Free() {
	if v.cap > 0 {
		layout, err := layoutFor[T](v.cap)
		if err == nil {
			v.alloc.Deallocate(v.buf, layout)
		}
	}
	v.buf = nil
	v.len = 0
	v.cap = 0
}
