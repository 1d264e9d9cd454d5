package main

// devprobe lists the registered memory backends and smoke-tests an
// allocation on each. Handy for checking whether libcuda gets picked up
// on a given machine.

import (
	"flag"
	"fmt"
	"os"

	"github.com/djeday123/datastore/backend"
	"github.com/djeday123/datastore/backend/cuda"
	_ "github.com/djeday123/datastore/backend/host"
)

func main() {
	size := flag.Int("size", 1<<20, "smoke allocation size in bytes")
	flag.Parse()

	for _, mt := range []backend.MemType{backend.Host, backend.Device} {
		a, err := backend.Get(mt)
		if err != nil {
			fmt.Printf("%-7s unavailable: %v\n", mt, err)
			continue
		}
		buf, err := a.Alloc(*size)
		if err != nil {
			fmt.Printf("%-7s alloc %d bytes failed: %v\n", mt, *size, err)
			os.Exit(1)
		}
		fmt.Printf("%-7s %s: allocated and zeroed %d bytes\n", mt, a.Name(), buf.ByteLen())
		if err := a.Free(buf); err != nil {
			fmt.Printf("%-7s free failed: %v\n", mt, err)
			os.Exit(1)
		}
	}

	if a, err := backend.Get(backend.Device); err == nil {
		if dev, ok := a.(*cuda.Allocator); ok {
			info, err := dev.Info()
			if err != nil {
				fmt.Printf("device info: %v\n", err)
				return
			}
			fmt.Printf("device: %s\n", info)
		}
	}
}
