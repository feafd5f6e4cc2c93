// rustcore-go packs bootfs images and runs the boot handshake of a small
// x86_64 microkernel against a simulated CPU: frame allocator seeding,
// interrupt enable, the BOOT handshake with the init task, and service
// manifest validation, all without real hardware or an emulator.
//
// Commands:
//
//	build    - Pack a bootfs image from artifacts and service flags
//	inspect  - Validate a bootfs image's service manifest
//	boot     - Run the boot handshake
//	version  - Print version information
package main

import (
	"fmt"
	"os"

	"rustcore-go/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
