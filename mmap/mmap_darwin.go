//go:build darwin

package mmap

import "golang.org/x/sys/unix"

// Darwin has no MAP_SHARED_VALIDATE; plain MAP_SHARED already maps the
// full span at a fixed base or fails.
const sharedFlags = unix.MAP_SHARED

const anonFlags = unix.MAP_ANON | unix.MAP_PRIVATE
