package diskalloc

import (
	"fmt"
	"math"
)

// Layout describes one allocation request: a byte size and a power-of-two
// alignment. The zero value is not a valid layout; construct layouts
// through NewLayout and the arena will reject anything else.
type Layout struct {
	size  int64
	align int64
}

// NewLayout validates and builds a layout. The alignment must be a
// nonzero power of two; the size must be non-negative and leave room for
// worst-case alignment padding without overflowing.
func NewLayout(size, align int64) (Layout, error) {
	l := Layout{size: size, align: align}
	if err := l.check(); err != nil {
		return Layout{}, err
	}
	return l, nil
}

// Size returns the requested byte size.
func (l Layout) Size() int64 {
	return l.size
}

// Align returns the required alignment.
func (l Layout) Align() int64 {
	return l.align
}

func (l Layout) check() error {
	if l.align <= 0 || l.align&(l.align-1) != 0 {
		return &Error{Code: CodeBadLayout, Message: fmt.Sprintf("alignment %d is not a power of two", l.align)}
	}
	if l.size < 0 || l.size > math.MaxInt64-l.align {
		return &Error{Code: CodeBadLayout, Message: fmt.Sprintf("size %d out of range for alignment %d", l.size, l.align)}
	}
	return nil
}
