package sfcb_test

import (
	"testing"

	"github.com/gentam/sfcb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestHandle returns a handle over a fresh fakeFlash, both bound to the
// Winbond descriptor E1-E5 are written against (page_size=256,
// sector_size=4096, pages_per_sector=16).
func newTestHandle(t *testing.T, numQueues int) (*sfcb.Handle, *fakeFlash) {
	t.Helper()
	h, err := sfcb.Init(0, numQueues)
	require.NoError(t, err)
	return h, newFakeFlash(h.FlashType())
}

// Invariant 1.
func TestInit(t *testing.T) {
	h, _ := newTestHandle(t, 3)
	assert.False(t, h.Busy())
	for _, q := range h.Queues() {
		assert.False(t, q.Used)
	}
}

// Invariant 2.
func TestNewCircularBufferRangesDisjointAndContiguous(t *testing.T) {
	h, _ := newTestHandle(t, 3)

	id0, err := h.NewCircularBuffer(0xA5A5A5A5, 120, 4)
	require.NoError(t, err)
	id1, err := h.NewCircularBuffer(0xB6B6B6B6, 500, 8)
	require.NoError(t, err)

	q0 := h.Queue(id0)
	q1 := h.Queue(id1)
	assert.Equal(t, uint32(0), q0.StartSector)
	assert.Equal(t, q0.StopSector+1, q1.StartSector, "second queue must start immediately after the first's range")
	assert.LessOrEqual(t, q0.StartSector, q0.StopSector)
	assert.LessOrEqual(t, q1.StartSector, q1.StopSector)
}

// E1 — first boot, one queue, empty media.
func TestFirstBootEmptyMedia(t *testing.T) {
	h, f := newTestHandle(t, 1)

	id, err := h.NewCircularBuffer(0xA5A5A5A5, 120, 4)
	require.NoError(t, err)
	require.Equal(t, 0, id)

	q := h.Queue(id)
	assert.Equal(t, uint32(0), q.StartSector)
	assert.Equal(t, uint32(1), q.StopSector)
	assert.Equal(t, uint32(1), q.PagesPerElem)
	assert.Equal(t, uint32(32), q.CapacityElems)

	require.NoError(t, h.Rebuild())
	f.run(h)
	require.Equal(t, sfcb.ErrNone, h.Err())

	q = h.Queue(id)
	assert.True(t, q.Initialized)
	assert.Equal(t, uint32(0), q.CountElems)
	assert.Equal(t, uint32(0), q.PageNextWrite)
	assert.Equal(t, uint32(0), q.IDMax)
}

// E2 — append and re-scan.
func TestAppendAndRescan(t *testing.T) {
	h, f := newTestHandle(t, 1)
	id, err := h.NewCircularBuffer(0xA5A5A5A5, 120, 4)
	require.NoError(t, err)
	require.NoError(t, h.Rebuild())
	f.run(h)
	require.Equal(t, sfcb.ErrNone, h.Err())

	require.NoError(t, h.Add(id, []byte("HELLO")))
	f.run(h)
	require.Equal(t, sfcb.ErrNone, h.Err())
	assert.Equal(t, 1, f.program, "exactly one write_page for a single-page element")
	assert.True(t, f.writeEnabled == false, "write latch drops after the program completes")

	// Queue goes dirty across Add; verify the on-media bytes directly,
	// the way invariant 4's round-trip check does.
	page := make([]byte, 256)
	copy(page, f.mem[0:256])
	assert.Equal(t, byte(0xA5), page[0])
	assert.Equal(t, byte(0x00), page[4])
	assert.Equal(t, byte(0x01), page[7], "id == 1")
	assert.Equal(t, []byte("HELLO"), page[12:17])
	assert.Equal(t, byte(0xFF), page[17], "remainder of the page stays erased")

	q := h.Queue(id)
	assert.False(t, q.Initialized, "Add dirties the queue")

	require.NoError(t, h.Rebuild())
	f.run(h)
	require.Equal(t, sfcb.ErrNone, h.Err())

	q = h.Queue(id)
	assert.Equal(t, uint32(1), q.CountElems)
	assert.Equal(t, uint32(1), q.IDMin)
	assert.Equal(t, uint32(1), q.IDMax)
	assert.Equal(t, h.FlashType().PageSizeBytes, q.PageNextWrite, "write cursor at page 1 (byte address 256)")
}

// Invariant 3: id_max advances by exactly 1 per add, record count tracks
// the number of calls, for a run that stays within capacity_elems-1.
func TestAddSequenceCountsAndIDs(t *testing.T) {
	h, f := newTestHandle(t, 1)
	id, err := h.NewCircularBuffer(0xC0FFEE, 20, 4)
	require.NoError(t, err)
	require.NoError(t, h.Rebuild())
	f.run(h)
	require.Equal(t, sfcb.ErrNone, h.Err())

	const n = 5 // capacity_elems - 1 == 31; well within range
	for i := 0; i < n; i++ {
		require.NoError(t, h.Add(id, []byte("x")))
		f.run(h)
		require.Equal(t, sfcb.ErrNone, h.Err())
		require.NoError(t, h.Rebuild())
		f.run(h)
		require.Equal(t, sfcb.ErrNone, h.Err())
	}

	q := h.Queue(id)
	assert.Equal(t, uint32(n), q.CountElems)
	assert.Equal(t, uint32(n), q.IDMax)
}

// Invariant 5: mkcb run twice in succession is idempotent.
func TestRebuildIdempotent(t *testing.T) {
	h, f := newTestHandle(t, 1)
	id, err := h.NewCircularBuffer(0xA5A5A5A5, 120, 4)
	require.NoError(t, err)

	require.NoError(t, h.Rebuild())
	f.run(h)
	require.Equal(t, sfcb.ErrNone, h.Err())
	first := h.Queue(id)

	require.NoError(t, h.Rebuild())
	f.run(h)
	require.Equal(t, sfcb.ErrNone, h.Err())
	second := h.Queue(id)

	assert.Equal(t, first, second)
}

// E3 — wrap erase. Filling a queue to capacity leaves no erased page for
// mkcb to find; it erases the sector holding id_min, then the next scan
// discovers the freshly erased pages and resumes writing there.
func TestWrapErase(t *testing.T) {
	h, f := newTestHandle(t, 1)
	// pages_per_sector=16, 2 sectors => capacity_elems=32, 1 page/elem.
	id, err := h.NewCircularBuffer(0xA5A5A5A5, 120, 4)
	require.NoError(t, err)
	require.NoError(t, h.Rebuild())
	f.run(h)
	require.Equal(t, sfcb.ErrNone, h.Err())

	capacity := h.Queue(id).CapacityElems

	for i := uint32(0); i < capacity; i++ {
		require.NoError(t, h.Add(id, []byte("x")))
		f.run(h)
		require.Equal(t, sfcb.ErrNone, h.Err())
		require.NoError(t, h.Rebuild())
		f.run(h)
		require.Equal(t, sfcb.ErrNone, h.Err())
	}

	assert.Equal(t, 1, f.erase, "exactly one sector erase once the queue fills")

	q := h.Queue(id)
	assert.True(t, q.Initialized)
	assert.Equal(t, uint32(0), q.PageNextWrite, "the post-erase scan finds the erased sector 0's first page as the write cursor")
}

// E4 — raw read with an oversized request.
func TestFlashReadOversized(t *testing.T) {
	h, f := newTestHandle(t, 1)
	scratchSize := len(h.Scratch())
	out := make([]byte, scratchSize)

	require.NoError(t, h.FlashRead(0, out))
	f.run(h)

	assert.Equal(t, sfcb.ErrSPIBufSize, h.Err())
	assert.False(t, h.Busy())
}

// Round-trip (invariant 4) via flash_read against a freshly written slot.
func TestFlashReadRoundTrip(t *testing.T) {
	h, f := newTestHandle(t, 1)
	id, err := h.NewCircularBuffer(0xA5A5A5A5, 120, 4)
	require.NoError(t, err)
	require.NoError(t, h.Rebuild())
	f.run(h)
	require.Equal(t, sfcb.ErrNone, h.Err())

	payload := []byte("round-trip-me")
	require.NoError(t, h.Add(id, payload))
	f.run(h)
	require.Equal(t, sfcb.ErrNone, h.Err())

	out := make([]byte, 32)
	require.NoError(t, h.FlashRead(0, out))
	f.run(h)
	require.Equal(t, sfcb.ErrNone, h.Err())

	assert.Equal(t, byte(0xA5), out[0], "magic")
	assert.Equal(t, payload, out[12:12+len(payload)])
	assert.Equal(t, byte(0xFF), out[12+len(payload)])
}

// Get retrieves the oldest record and strips its header.
func TestGetOldestRecord(t *testing.T) {
	h, f := newTestHandle(t, 1)
	id, err := h.NewCircularBuffer(0xA5A5A5A5, 120, 4)
	require.NoError(t, err)
	require.NoError(t, h.Rebuild())
	f.run(h)
	require.Equal(t, sfcb.ErrNone, h.Err())

	require.NoError(t, h.Add(id, []byte("oldest")))
	f.run(h)
	require.Equal(t, sfcb.ErrNone, h.Err())
	require.NoError(t, h.Rebuild())
	f.run(h)
	require.Equal(t, sfcb.ErrNone, h.Err())

	out := make([]byte, 6)
	require.NoError(t, h.Get(id, out))
	f.run(h)
	require.Equal(t, sfcb.ErrNone, h.Err())
	assert.Equal(t, 6, h.GetOutLen())
	assert.Equal(t, []byte("oldest"), out)
}

// Get on an empty, initialized queue reports not_ready.
func TestGetOnEmptyQueue(t *testing.T) {
	h, f := newTestHandle(t, 1)
	id, err := h.NewCircularBuffer(0xA5A5A5A5, 120, 4)
	require.NoError(t, err)
	require.NoError(t, h.Rebuild())
	f.run(h)
	require.Equal(t, sfcb.ErrNone, h.Err())

	out := make([]byte, 6)
	err = h.Get(id, out)
	require.Error(t, err)
	var sfcbErr *sfcb.Error
	require.ErrorAs(t, err, &sfcbErr)
	assert.Equal(t, sfcb.ErrNotReady, sfcbErr.Code)
}

// E5 — WIP stall: the worker re-issues the identical 2-byte status poll
// for as long as WIP stays set, then proceeds once it clears.
func TestWIPStall(t *testing.T) {
	h, f := newTestHandle(t, 1)
	id, err := h.NewCircularBuffer(0xA5A5A5A5, 120, 4)
	require.NoError(t, err)
	require.NoError(t, h.Rebuild())
	f.run(h)
	require.Equal(t, sfcb.ErrNone, h.Err())

	f.statusStalls = 3
	require.NoError(t, h.Add(id, []byte("stalled")))

	statusPolls := 0
	for h.Busy() {
		h.Tick()
		n := h.SPILen()
		if n == 0 {
			continue
		}
		if h.Scratch()[0] == h.FlashType().OpReadStatus {
			require.Equal(t, 2, n)
			statusPolls++
		}
		f.exchange(h.Scratch()[:n])
	}

	require.Equal(t, sfcb.ErrNone, h.Err())
	assert.GreaterOrEqual(t, statusPolls, 4, "three stalled polls plus the final clearing poll")
	assert.Equal(t, 1, f.program)
}

// Busy rejects a second Request API call while a command is in flight.
func TestBusyRejectsConcurrentRequest(t *testing.T) {
	h, _ := newTestHandle(t, 1)
	id, err := h.NewCircularBuffer(0xA5A5A5A5, 120, 4)
	require.NoError(t, err)
	require.NoError(t, h.Rebuild())

	err = h.Rebuild()
	require.Error(t, err)
	var sfcbErr *sfcb.Error
	require.ErrorAs(t, err, &sfcbErr)
	assert.Equal(t, sfcb.ErrBusy, sfcbErr.Code)
	_ = id
}
