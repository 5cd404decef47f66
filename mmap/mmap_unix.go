//go:build linux || darwin

package mmap

import (
	"math"
	"os"

	"golang.org/x/sys/unix"
)

// Reserve maps capacity bytes of f, read-write and file-shared, at a base
// address that stays fixed until Close. The single mmap call either
// honors the full contiguous span or fails outright; the kernel never
// hands back a shorter or relocatable reservation.
//
// f's current length does not matter: the part of the span past the file
// length is reserved address space, usable only after Resize extends the
// file. The region owns f from here on and closes it in Close.
func Reserve(f *os.File, capacity int64) (*Region, error) {
	if capacity <= 0 || capacity > math.MaxInt {
		return nil, ErrInvalidCapacity
	}

	// Refuse to share the file with another region: each would treat the
	// file length as its private high-water mark and corrupt the other.
	// The lock lives on the fd and is released by Close.
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		return nil, &Error{Op: "lock", Err: err}
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(capacity),
		unix.PROT_READ|unix.PROT_WRITE, sharedFlags)
	if err != nil {
		return nil, &Error{Op: "reserve", Err: err}
	}

	return &Region{data: data, file: f}, nil
}

// ReserveAnon reserves capacity bytes of private zero-filled memory with
// no backing file. Untouched pages cost nothing where the platform
// supports MAP_NORESERVE, so a large capacity is as cheap as a small one.
func ReserveAnon(capacity int64) (*Region, error) {
	if capacity <= 0 || capacity > math.MaxInt {
		return nil, ErrInvalidCapacity
	}

	data, err := unix.Mmap(-1, 0, int(capacity),
		unix.PROT_READ|unix.PROT_WRITE, anonFlags)
	if err != nil {
		return nil, &Error{Op: "reserve anon", Err: err}
	}

	return &Region{data: data}, nil
}

// Close unmaps the reservation and closes the backing file. Every slice
// handed out through the region is invalid afterwards. Closing twice is a
// caller bug and panics.
func (r *Region) Close() error {
	if r.closed {
		panic("mmap: region closed twice")
	}
	r.closed = true

	err := unix.Munmap(r.data)
	r.data = nil

	if r.file != nil {
		cerr := r.file.Close()
		if err == nil {
			err = cerr
		}
		r.file = nil
	}

	if err != nil {
		return &Error{Op: "close", Err: err}
	}
	return nil
}
