package sfcb

// Init binds a fresh handle to the flash descriptor at flashTypeIndex and
// reserves numQueues queue slots, all unused. It never touches the flash.
func Init(flashTypeIndex int, numQueues int) (*Handle, error) {
	if flashTypeIndex < 0 || flashTypeIndex >= len(FlashTypes) {
		return nil, newErr("init", ErrBadFlashType)
	}
	ft := FlashTypes[flashTypeIndex]
	h := &Handle{
		flashType:      ft,
		flashTypeIndex: flashTypeIndex,
		queues:         make([]Queue, numQueues),
		scratch:        make([]byte, ft.PageSizeBytes+4),
		cmd:            cmdIdle,
		stage:          stageS0,
	}
	return h, nil
}

// NewCircularBuffer reserves the next free queue slot, sized to hold
// numElems records of elemSizeBytes payload bytes each. Sectors are
// reserved immediately after the previous queue's range (the first queue
// starts at sector 0). It never touches the flash.
func (h *Handle) NewCircularBuffer(magic uint32, elemSizeBytes uint32, numElems uint32) (int, error) {
	startSector := uint32(0)
	slot := -1
	for i := range h.queues {
		if !h.queues[i].Used {
			slot = i
			break
		}
		startSector = h.queues[i].StopSector + 1
	}
	if slot == -1 {
		return 0, newErr("new_cb", ErrNoSlot)
	}

	q := &h.queues[slot]
	q.Used = true
	q.Magic = magic
	q.IDMax = 0
	q.IDMin = ^uint32(0)
	q.PagesPerElem = ceilDiv(elemSizeBytes+headerSize, h.flashType.PageSizeBytes)
	q.StartSector = startSector
	numSectors := maxU32(2, ceilDiv(numElems*q.PagesPerElem, uint32(h.flashType.PagesPerSector)))
	q.StopSector = q.StartSector + numSectors - 1
	q.CapacityElems = numSectors * uint32(h.flashType.PagesPerSector) / q.PagesPerElem
	q.CountElems = 0

	return slot, nil
}

// Rebuild arms the worker to rediscover head/tail/write-cursor for every
// queue that needs it (MKCB). Call Tick repeatedly, clocking the SPI bus
// in between, until Busy reports false.
func (h *Handle) Rebuild() error {
	if h.busy {
		return newErr("mkcb", ErrBusy)
	}
	if len(h.queues) == 0 || !h.queues[0].Used {
		return newErr("mkcb", ErrNoQueue)
	}

	// Find the first queue still needing a scan; if every queue is
	// already initialized, fall back to the last used one so Rebuild
	// always has a well-defined, idempotent target.
	first, last := -1, -1
	for i := range h.queues {
		if !h.queues[i].Used {
			continue
		}
		last = i
		if !h.queues[i].Initialized {
			first = i
			break
		}
	}
	if first == -1 {
		first = last
	}

	h.iterQueue = first
	h.iterElem = 0
	h.stage = stageS0
	h.spiLen = 0
	h.cmd = cmdMKCB
	h.err = ErrNone
	h.busy = true
	return nil
}

// Add appends data as one record to queue queueID. The queue becomes dirty
// (Rebuild must run again before the next Add).
func (h *Handle) Add(queueID int, data []byte) error {
	if h.busy {
		return newErr("add", ErrBusy)
	}
	if queueID < 0 || queueID >= len(h.queues) {
		return newErr("add", ErrNotReady)
	}
	q := &h.queues[queueID]
	if !q.Used || !q.Initialized {
		return newErr("add", ErrNotReady)
	}
	maxPayload := q.PagesPerElem*h.flashType.PageSizeBytes - headerSize
	if uint32(len(data)) > maxPayload {
		return newErr("add", ErrTooLarge)
	}

	h.iterQueue = queueID
	q.Initialized = false // dirty: a Rebuild is required before the next Add
	h.iterPage = q.PageNextWrite
	h.data = data
	h.dataLen = uint32(len(data))
	h.iterElem = 0
	h.stage = stageS0
	h.spiLen = 0
	h.cmd = cmdAdd
	h.err = ErrNone
	h.busy = true
	return nil
}

// Get copies queue queueID's oldest record's payload (header stripped)
// into out, truncated to len(out). Call GetOutLen once Busy returns false
// to learn how many bytes were written.
func (h *Handle) Get(queueID int, out []byte) error {
	if h.busy {
		return newErr("get", ErrBusy)
	}
	if queueID < 0 || queueID >= len(h.queues) {
		return newErr("get", ErrNotReady)
	}
	q := &h.queues[queueID]
	if !q.Used || !q.Initialized || q.CountElems == 0 {
		return newErr("get", ErrNotReady)
	}

	h.iterQueue = queueID
	h.iterPage = q.PageOfIDMin
	h.iterElem = 0
	h.getOut = out
	h.getOutLen = 0
	h.getLenMax = len(out)
	h.stage = stageS0
	h.spiLen = 0
	h.cmd = cmdGet
	h.err = ErrNone
	h.busy = true
	return nil
}

// FlashRead issues a transparent raw read of len(out) bytes starting at
// the absolute byte address addr. This is the RAW command the spec
// defines at the primitive level; it is not scoped to any queue.
func (h *Handle) FlashRead(addr uint32, out []byte) error {
	if h.busy {
		return newErr("flash_read", ErrBusy)
	}

	h.iterPage = addr
	h.dataLen = uint32(len(out))
	h.getOut = out
	h.getOutLen = 0
	h.getLenMax = len(out)
	h.stage = stageS0
	h.spiLen = 0
	h.cmd = cmdRaw
	h.err = ErrNone
	h.busy = true
	return nil
}
