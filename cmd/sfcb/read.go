package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/gentam/sfcb"
)

// readCmd issues a transparent RAW read at an arbitrary byte address,
// bypassing any queue — the CLI surface for Handle.FlashRead.
func readCmd(args []string) {
	fs := flag.NewFlagSet("read", flag.ExitOnError)
	var (
		flashType int
		addr      uint
		nread     int
		outFile   string
	)
	fs.IntVar(&flashType, "t", 0, "flash type index (see info)")
	fs.UintVar(&addr, "a", 0, "byte address")
	fs.IntVar(&nread, "n", 256, "number of bytes to read")
	fs.StringVar(&outFile, "o", "", "output file (default: hexdump)")
	fs.Parse(args)

	h, err := sfcb.Init(flashType, 0)
	if err != nil {
		fatalf("%v", err)
	}
	if nread+4 > len(h.Scratch()) {
		fatalUsage("-n %d exceeds the scratch buffer (%d bytes); split the read", nread, len(h.Scratch())-4)
	}

	d, err := NewDevice()
	if err != nil {
		fatalf("SPI connection failed: %v", err)
	}
	if err := d.PowerUp(h.FlashType()); err != nil {
		fatalf("flash power up failed: %v", err)
	}
	defer d.PowerDown(h.FlashType())

	out := make([]byte, nread)
	if err := h.FlashRead(uint32(addr), out); err != nil {
		fatalf("%v", err)
	}
	if err := d.Drive(h); err != nil {
		fatalf("read failed: %v", err)
	}

	if outFile == "" {
		fmt.Println(hex.Dump(out[:h.GetOutLen()]))
		return
	}
	if err := os.WriteFile(outFile, out[:h.GetOutLen()], 0644); err != nil {
		fmt.Fprintln(os.Stderr, "write file failed:", err)
	}
}
