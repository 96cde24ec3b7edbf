package sfcb

// command identifies which operation the worker is currently driving.
type command int

const (
	cmdIdle command = iota
	cmdMKCB
	cmdAdd
	cmdGet
	cmdRaw
)

// stage identifies where within a command's state machine the worker is.
type stage int

const (
	stageS0 stage = iota
	stageS1
	stageS2
	stageS3
)

// Handle is the sole state container for one flash's worker (C4). It owns
// the queue registry and the SPI scratch buffer; the host must not touch
// either while Busy reports true. A Handle is constructed by Init and
// lives for the program's duration — there is no Close.
type Handle struct {
	flashType      FlashType
	flashTypeIndex int

	queues []Queue

	cmd   command
	stage stage
	busy  bool
	err   ErrorCode

	iterQueue int
	iterElem  uint32
	iterPage  uint32

	scratch []byte
	spiLen  int

	// Add's payload.
	data    []byte
	dataLen uint32

	// Get/FlashRead's output staging.
	getOut    []byte
	getOutLen int
	getLenMax int
}

// Queues returns the queue registry. The returned slice aliases the
// handle's own storage; callers must not mutate it while Busy is true.
func (h *Handle) Queues() []Queue {
	return h.queues
}

// Queue returns a copy of one queue's descriptor.
func (h *Handle) Queue(id int) Queue {
	return h.queues[id]
}

// FlashType returns the descriptor this handle was initialized with.
func (h *Handle) FlashType() FlashType {
	return h.flashType
}

// Scratch returns the SPI scratch buffer (C6). When SPILen is non-zero the
// host must clock exactly that many bytes full-duplex against Scratch
// before calling Tick again.
func (h *Handle) Scratch() []byte {
	return h.scratch
}

// SPILen reports how many bytes of Scratch belong to the pending SPI
// transfer. Zero means no transfer is pending — call Tick again.
func (h *Handle) SPILen() int {
	return h.spiLen
}

// Busy reports whether a command is in flight.
func (h *Handle) Busy() bool {
	return h.busy
}

// Err returns the last asynchronous fault the worker recorded, or ErrNone.
// It is only meaningful once Busy has returned to false.
func (h *Handle) Err() ErrorCode {
	return h.err
}

// GetOutLen reports how many bytes the most recently completed Get or
// FlashRead wrote into its output buffer.
func (h *Handle) GetOutLen() int {
	return h.getOutLen
}
