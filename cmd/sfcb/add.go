package main

import (
	"flag"
	"io"
	"os"

	"github.com/gentam/sfcb"
)

// addCmd rebuilds a queue's state from the flash itself, then appends one
// record to it. The queue's shape (magic/elem size/num elems) is supplied
// on every invocation since there is no persisted RAM state between CLI
// runs — Rebuild is exactly the mechanism that makes this safe.
func addCmd(args []string) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	var (
		flashType int
		magic     uint
		elemSize  uint
		numElems  uint
		filename  string
	)
	fs.IntVar(&flashType, "t", 0, "flash type index (see info)")
	fs.UintVar(&magic, "magic", 0xA5A5A5A5, "queue magic number")
	fs.UintVar(&elemSize, "elem", 256, "element payload size in bytes")
	fs.UintVar(&numElems, "n", 64, "element capacity")
	fs.StringVar(&filename, "f", "", "input file (default: stdin)")
	fs.Parse(args)

	var input io.Reader = os.Stdin
	if filename != "" {
		f, err := os.Open(filename)
		if err != nil {
			fatalf("failed to open file: %v", err)
		}
		defer f.Close()
		input = f
	}
	data, err := io.ReadAll(input)
	if err != nil {
		fatalf("failed to read input: %v", err)
	}

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

	if err := h.Add(qid, data); err != nil {
		fatalf("add failed: %v", err)
	}
	if err := d.Drive(h); err != nil {
		fatalf("add failed: %v", err)
	}
}
