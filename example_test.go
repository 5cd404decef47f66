package diskalloc_test

import (
	"fmt"
	"log"

	"github.com/Giulio2002/diskalloc"
	"github.com/Giulio2002/diskalloc/vec"
)

func ExampleNew() {
	alloc, err := diskalloc.New(diskalloc.WithCapacity(1 << 30))
	if err != nil {
		log.Fatal(err)
	}
	defer alloc.Close()

	// Every element lives in the backing file, not on the heap.
	v := vec.New[uint64](alloc)
	for i := uint64(0); i < 1000; i++ {
		if err := v.Push(i * i); err != nil {
			log.Fatal(err)
		}
	}

	fmt.Println(v.Len(), v.At(999))
	// Output: 1000 998001
}
