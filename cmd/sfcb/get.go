package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gentam/sfcb"
)

// getCmd rebuilds a queue and reads its oldest record.
func getCmd(args []string) {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	var (
		flashType int
		magic     uint
		elemSize  uint
		numElems  uint
		outFile   string
	)
	fs.IntVar(&flashType, "t", 0, "flash type index (see info)")
	fs.UintVar(&magic, "magic", 0xA5A5A5A5, "queue magic number")
	fs.UintVar(&elemSize, "elem", 256, "element payload size in bytes")
	fs.UintVar(&numElems, "n", 64, "element capacity")
	fs.StringVar(&outFile, "o", "", "output file (default: stdout)")
	fs.Parse(args)

	h, err := sfcb.Init(flashType, 1)
	if err != nil {
		fatalf("%v", err)
	}
	qid, err := h.NewCircularBuffer(uint32(magic), uint32(elemSize), uint32(numElems))
	if err != nil {
		fatalf("new_cb failed: %v", err)
	}

	d, err := NewDevice()
	if err != nil {
		fatalf("SPI connection failed: %v", err)
	}
	if err := d.PowerUp(h.FlashType()); err != nil {
		fatalf("flash power up failed: %v", err)
	}
	defer d.PowerDown(h.FlashType())

	if err := h.Rebuild(); err != nil {
		fatalf("rebuild failed: %v", err)
	}
	if err := d.Drive(h); err != nil {
		fatalf("rebuild failed: %v", err)
	}

	out := make([]byte, elemSize)
	if err := h.Get(qid, out); err != nil {
		fatalf("get failed: %v", err)
	}
	if err := d.Drive(h); err != nil {
		fatalf("get failed: %v", err)
	}
	out = out[:h.GetOutLen()]

	if outFile == "" {
		os.Stdout.Write(out)
		fmt.Fprintln(os.Stderr)
		return
	}
	if err := os.WriteFile(outFile, out, 0644); err != nil {
		fatalf("write file failed: %v", err)
	}
}
