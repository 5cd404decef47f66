// Package diskalloc is a disk-backed bump allocator for growable
// contiguous containers.
//
// A DiskAlloc reserves a large fixed span of virtual address space (512
// GiB by default) mapped over a resizable file and carves allocations out
// of it by advancing a single high-water mark. The backing file's length
// always equals the high-water mark, so a container built on the
// allocator can grow far past available RAM while its elements remain
// inspectable as raw file bytes.
//
// The allocator is deliberately minimal: it supports exactly the
// operation set a resizable array needs (allocate, grow, shrink,
// deallocate), only the tail allocation can ever move the high-water mark
// back, and nothing below the tail is reclaimed or reused before the
// arena is torn down. General-purpose free-list allocation, compaction
// and multi-process access to one backing file are out of scope.
//
// Basic usage:
//
//	alloc, err := diskalloc.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer alloc.Close()
//
//	v := vec.New[uint64](alloc)
//	for i := uint64(0); i < 1e9; i++ {
//	    if err := v.Push(i); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// Handles are cheap to clone and goroutine-safe; every operation runs
// under one exclusive lock for its full duration, including the backing
// file resize. The arena, its mapping and its file are torn down when the
// last handle is closed.
package diskalloc
