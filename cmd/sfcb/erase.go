package main

import (
	"flag"

	"github.com/gentam/sfcb"
)

// eraseCmd is a maintenance operation outside the worker's staged
// commands entirely (SPEC_FULL Part C.6): a bulk chip erase, or a single
// sector erase at an operator-given address. Unlike add/get/read this
// does not go through Device.Drive — there is no queue bookkeeping to
// reconcile, just a direct blocking flash operation.
func eraseCmd(args []string) {
	fs := flag.NewFlagSet("erase", flag.ExitOnError)
	var (
		flashType int
		addr      uint
		chip      bool
	)
	fs.IntVar(&flashType, "t", 0, "flash type index (see info)")
	fs.UintVar(&addr, "a", 0, "sector-containing byte address (ignored with -chip)")
	fs.BoolVar(&chip, "chip", false, "erase the entire chip instead of one sector")
	fs.Parse(args)

	if flashType < 0 || flashType >= len(sfcb.FlashTypes) {
		fatalUsage("bad flash type index %d", flashType)
	}
	ft := sfcb.FlashTypes[flashType]

	d, err := NewDevice()
	if err != nil {
		fatalf("SPI connection failed: %v", err)
	}
	if err := d.PowerUp(ft); err != nil {
		fatalf("flash power up failed: %v", err)
	}
	defer d.PowerDown(ft)

	if chip {
		if err := d.EraseChip(ft); err != nil {
			fatalf("chip erase failed: %v", err)
		}
		return
	}
	if err := d.EraseSector(ft, uint32(addr)); err != nil {
		fatalf("sector erase failed: %v", err)
	}
}
