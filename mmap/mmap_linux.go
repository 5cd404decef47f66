//go:build linux

package mmap

import "golang.org/x/sys/unix"

// MAP_SHARED_VALIDATE makes the kernel reject flags it does not know
// instead of silently ignoring them, so the reservation is exactly what
// was asked for.
const sharedFlags = unix.MAP_SHARED_VALIDATE

// Anonymous reservations opt out of swap-space accounting: the span is
// huge and mostly never touched.
const anonFlags = unix.MAP_ANON | unix.MAP_PRIVATE | unix.MAP_NORESERVE
