package sfcb

// Tick is the worker: one non-blocking, non-reentrant, allocation-free step
// of whichever command is in flight. Each call either stages one SPI
// transaction's MOSI bytes into Scratch()[:SPILen()] and returns — the host
// must clock exactly that many bytes full-duplex and place the MISO bytes
// back into the same range before calling Tick again — or finishes the
// command, clearing Busy. Calling Tick while Busy is false is a no-op.
func (h *Handle) Tick() {
	switch h.cmd {
	case cmdIdle:
		return
	case cmdMKCB:
		h.tickMKCB()
	case cmdAdd:
		h.tickAdd()
	case cmdGet:
		h.tickGet()
	case cmdRaw:
		h.tickRaw()
	}
}

// wipPending reports whether the last completed exchange was not a status
// read (the very first tick of a command, or a write/erase/program frame
// that must be followed by a status poll), or the last inspected status
// byte still has the write-in-progress bit set. A status read is the only
// 2-byte frame the worker ever stages.
func (h *Handle) wipPending() bool {
	return h.spiLen != 2 || h.scratch[1]&h.flashType.WIPMask != 0
}

// pollWIP is the common stage-S0 preamble every command shares: poll the
// status register until WIP clears, then fall through to S1 in the same
// tick. It reports whether the caller should continue into S1 this tick.
func (h *Handle) pollWIP() bool {
	if h.wipPending() {
		h.scratch[0] = h.flashType.OpReadStatus
		h.scratch[1] = 0
		h.spiLen = 2
		return false
	}
	h.spiLen = 0
	h.stage = stageS1
	return true
}

func (h *Handle) finish() {
	h.spiLen = 0
	h.cmd = cmdIdle
	h.stage = stageS0
	h.busy = false
}

func (h *Handle) fail(code ErrorCode) {
	h.err = code
	h.finish()
}

// put24 writes a 24-bit big-endian address, as §6 requires for every
// opcode that carries one.
func put24(buf []byte, addr uint32) {
	buf[0] = byte(addr >> 16)
	buf[1] = byte(addr >> 8)
	buf[2] = byte(addr)
}

// --- MKCB: rebuild / discovery -------------------------------------------

func (h *Handle) tickMKCB() {
	if h.stage == stageS0 {
		if !h.pollWIP() {
			return
		}
	}

	switch h.stage {
	case stageS1:
		h.mkcbScanOne()
	case stageS2:
		h.mkcbEraseSector()
	case stageS3:
		h.mkcbPostErase()
	}
}

// mkcbScanOne inspects the page read staged by the previous tick (if any),
// then stages a read for the next page in the current queue. When the
// queue has been fully scanned it either advances to the next queue
// needing a rebuild, finishes, or — if no erased page was ever found —
// schedules the wrap erase.
func (h *Handle) mkcbScanOne() {
	q := &h.queues[h.iterQueue]

	if h.iterElem == 0 && h.spiLen == 0 {
		// Fresh entry into this queue's scan (first pass, or the rescan
		// mkcbPostErase schedules): reconstruct from scratch rather than
		// accumulate onto whatever a previous scan left behind.
		q.CountElems = 0
		q.IDMax = 0
		q.IDMin = ^uint32(0)
	}

	if h.spiLen != 0 {
		hdr := h.scratch[4 : 4+headerSize]
		switch dec := decodeHeader(hdr); {
		case dec.Magic == q.Magic:
			q.CountElems++
			if dec.ID > q.IDMax {
				q.IDMax = dec.ID
			}
			if dec.ID < q.IDMin {
				q.IDMin = dec.ID
				q.PageOfIDMin = h.iterPage
			}
		case !q.Initialized && headerErased(hdr):
			q.PageNextWrite = h.iterPage
			q.Initialized = true
		}
	}

	h.iterPage = q.StartSector*h.flashType.SectorSizeBytes +
		q.PagesPerElem*h.flashType.PageSizeBytes*h.iterElem
	h.spiLen = 4 + headerSize
	h.scratch[0] = h.flashType.OpReadData
	put24(h.scratch[1:4], h.iterPage)
	for i := 4; i < h.spiLen; i++ {
		h.scratch[i] = 0
	}

	// Only advance past the last valid slot (iter_elem == CapacityElems-1)
	// once it has actually been staged above — the increment must happen
	// after staging, and the continue/terminate check must use the
	// pre-increment index, or the final slot is staged but never inspected.
	if h.iterElem < q.CapacityElems {
		h.iterElem++
		return // the read staged above is this tick's real request
	}

	// Queue fully scanned. The read staged above addresses page
	// CapacityElems — one past the last valid slot — and is discarded
	// below before the host ever clocks it out.
	if q.Initialized {
		next := -1
		for i := h.iterQueue + 1; i < len(h.queues); i++ {
			if h.queues[i].Used && !h.queues[i].Initialized {
				next = i
				break
			}
		}
		if next == -1 {
			h.finish()
			return
		}
		h.iterQueue = next
		h.iterElem = 0
		h.spiLen = 0 // discard the stale read before rescanning fresh
		h.mkcbScanOne()
		return
	}

	h.scratch[0] = h.flashType.OpWriteEnable
	h.spiLen = 1
	h.stage = stageS2
}

// mkcbEraseSector assembles the erase targeting id_min's page — the
// sector holding the oldest record, which becomes free space.
func (h *Handle) mkcbEraseSector() {
	q := &h.queues[h.iterQueue]
	h.scratch[0] = h.flashType.OpEraseSector
	put24(h.scratch[1:4], q.PageOfIDMin)
	h.spiLen = 4
	h.stage = stageS3
}

// mkcbPostErase resets the per-queue scan cursor and re-enters the WIP
// preamble; the next S0→S1 cycle discovers the newly erased page.
func (h *Handle) mkcbPostErase() {
	h.iterElem = 0
	h.scratch[0] = h.flashType.OpReadStatus
	h.scratch[1] = 0
	h.spiLen = 2
	h.stage = stageS0
}

// --- ADD: append one record -----------------------------------------------

func (h *Handle) tickAdd() {
	if h.stage == stageS0 {
		if !h.pollWIP() {
			return
		}
	}

	switch h.stage {
	case stageS1:
		h.addNextPage()
	case stageS2:
		h.addProgramPage()
	}
}

func (h *Handle) addNextPage() {
	if h.iterElem >= h.dataLen {
		q := &h.queues[h.iterQueue]
		q.IDMax++
		q.CountElems++
		h.finish()
		return
	}
	h.scratch[0] = h.flashType.OpWriteEnable
	h.spiLen = 1
	h.stage = stageS2
}

func (h *Handle) addProgramPage() {
	q := &h.queues[h.iterQueue]
	pageSize := h.flashType.PageSizeBytes

	h.scratch[0] = h.flashType.OpWritePage
	put24(h.scratch[1:4], h.iterPage)
	n := 4

	avail := pageSize
	if h.iterElem == 0 {
		encodeHeader(h.scratch[n:n+headerSize], q.Magic, q.IDMax+1)
		n += headerSize
		avail -= headerSize
	}

	remaining := h.dataLen - h.iterElem
	cpy := avail
	if remaining < cpy {
		cpy = remaining
	}
	copy(h.scratch[n:n+int(cpy)], h.data[h.iterElem:h.iterElem+cpy])
	n += int(cpy)

	h.spiLen = n
	h.iterElem += cpy
	h.iterPage += pageSize
	h.stage = stageS0
}

// --- RAW: transparent read -------------------------------------------------

func (h *Handle) tickRaw() {
	if h.stage == stageS0 {
		if !h.pollWIP() {
			return
		}
	}

	switch h.stage {
	case stageS1:
		if int(h.dataLen)+4 > len(h.scratch) {
			h.fail(ErrSPIBufSize)
			return
		}
		h.scratch[0] = h.flashType.OpReadData
		put24(h.scratch[1:4], h.iterPage)
		h.spiLen = int(h.dataLen) + 4
		for i := 4; i < h.spiLen; i++ {
			h.scratch[i] = 0
		}
		h.stage = stageS2
	case stageS2:
		h.getOutLen = copy(h.getOut, h.scratch[4:4+h.dataLen])
		h.finish()
	}
}

// --- GET: oldest-record read ------------------------------------------------

// tickGet reads a queue's oldest element one page at a time (the scratch
// buffer, sized page_size+4, cannot hold a multi-page element in one
// transfer), stripping the header from the first page and copying the
// payload into the caller's buffer, truncated to its length.
func (h *Handle) tickGet() {
	if h.stage == stageS0 {
		if !h.pollWIP() {
			return
		}
	}

	switch h.stage {
	case stageS1:
		h.scratch[0] = h.flashType.OpReadData
		put24(h.scratch[1:4], h.iterPage)
		h.spiLen = int(h.flashType.PageSizeBytes) + 4
		for i := 4; i < h.spiLen; i++ {
			h.scratch[i] = 0
		}
		h.stage = stageS2
	case stageS2:
		q := &h.queues[h.iterQueue]
		payload := h.scratch[4:h.spiLen]
		if h.iterElem == 0 {
			payload = payload[headerSize:]
		}
		if h.getOutLen < h.getLenMax {
			h.getOutLen += copy(h.getOut[h.getOutLen:], payload)
		}
		h.iterPage += h.flashType.PageSizeBytes
		h.iterElem++
		if h.iterElem >= q.PagesPerElem {
			h.finish()
			return
		}
		h.stage = stageS0
	}
}
