package diskalloc

// Allocator is the capability surface a growable contiguous container
// needs from its backing store: carve new space at the tail, grow or
// shrink an existing span, and hand a span back. A disk-backed arena and
// a plain in-memory arena both satisfy it, and a container cannot tell
// which one it was given.
//
// Spans travel as []byte slices whose base address identifies the
// allocation. The caller passes the same slice (or one with the same
// base) back to Grow, Shrink and Deallocate, together with the layout it
// holds. The arena keeps no per-allocation bookkeeping and cannot detect
// a fabricated span; supplying one is a caller bug with undefined
// behavior.
type Allocator interface {
	// Allocate returns a span of layout.Size() bytes whose address is a
	// multiple of layout.Align(). The bytes read as zero.
	Allocate(layout Layout) ([]byte, error)

	// AllocateZeroed is Allocate. It exists so a container can demand
	// guaranteed-zero memory without knowing that every span the arena
	// hands out covers freshly extended, zero bytes and is zero anyway.
	AllocateZeroed(layout Layout) ([]byte, error)

	// Grow extends the span p from oldLayout.Size() to newLayout.Size() bytes under
	// the same alignment. A span at the arena tail grows in place and
	// keeps its address, with the added bytes zero-filled. Any other
	// span is not copied: Grow returns a fresh span at the tail and the
	// caller moves its live bytes across, exactly as a resizable array
	// relocating its buffer would.
	Grow(p []byte, oldLayout, newLayout Layout) ([]byte, error)

	// Shrink trims the span p from oldLayout.Size() to newLayout.Size() bytes. Only
	// a span at the arena tail returns storage; shrinking any other
	// span just narrows the slice in place.
	Shrink(p []byte, oldLayout, newLayout Layout) ([]byte, error)

	// Deallocate releases the span's storage if it sits at the arena
	// tail and deliberately leaks it otherwise. The intended consumer
	// is a single resizable array that only ever frees its one live
	// buffer, so the leak is bounded by one relocation's garbage. Best
	// effort: no error is reported.
	Deallocate(p []byte, layout Layout)
}
