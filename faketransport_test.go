package sfcb_test

import "github.com/gentam/sfcb"

// fakeFlash is a RAM-backed stand-in for the physical SPI NOR flash,
// grounded on the in-memory backend pattern of ehrlich-b-go-ublk's
// backend.Memory: a byte-addressable array answering the same request
// surface hardware would, so Handle's worker can be driven end-to-end
// without an SPI bus. It implements the host-loop contract §6 describes:
// for each MOSI frame the worker stages, produce the matching MISO bytes.
type fakeFlash struct {
	mem           []byte
	ft            sfcb.FlashType
	statusStalls  int // number of RDSR reads that still report WIP set
	writeEnabled  bool
	program, read int // exchange counters, for assertions
	erase         int
}

func newFakeFlash(ft sfcb.FlashType) *fakeFlash {
	mem := make([]byte, ft.TotalSizeBytes)
	for i := range mem {
		mem[i] = 0xFF
	}
	return &fakeFlash{mem: mem, ft: ft}
}

func addr24(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

// exchange answers one full-duplex SPI transaction in place, the way a
// real flash chip would drive MISO while the host clocks out buf as MOSI.
func (f *fakeFlash) exchange(buf []byte) {
	switch buf[0] {
	case f.ft.OpReadStatus:
		if f.statusStalls > 0 {
			f.statusStalls--
			buf[1] = f.ft.WIPMask
		} else {
			buf[1] = 0
		}
	case f.ft.OpReadData:
		f.read++
		addr := addr24(buf[1:4])
		copy(buf[4:], f.mem[addr:addr+uint32(len(buf)-4)])
	case f.ft.OpWriteEnable:
		f.writeEnabled = true
	case f.ft.OpWritePage:
		f.program++
		addr := addr24(buf[1:4])
		for i, b := range buf[4:] {
			f.mem[addr+uint32(i)] &= b // NOR program only clears bits
		}
		f.writeEnabled = false
	case f.ft.OpEraseSector:
		f.erase++
		addr := addr24(buf[1:4])
		start := addr - addr%f.ft.SectorSizeBytes
		for i := start; i < start+f.ft.SectorSizeBytes; i++ {
			f.mem[i] = 0xFF
		}
		f.writeEnabled = false
	}
}

// run drives h to completion against f, alternating Tick with exchange the
// way cmd/sfcb's real host loop alternates Tick with an SPI transfer.
func (f *fakeFlash) run(h *sfcb.Handle) {
	for h.Busy() {
		h.Tick()
		if n := h.SPILen(); n > 0 {
			f.exchange(h.Scratch()[:n])
		}
	}
}
