package sfcb

import "time"

// FlashType is the read-only per-chip descriptor C1 describes: page/sector
// geometry, the opcodes the worker issues, and the status register's
// write-in-progress mask. A FlashType is selected once, by index, at Init
// and never mutated afterward.
type FlashType struct {
	Name string

	TotalSizeBytes  uint32
	SectorSizeBytes uint32
	PageSizeBytes   uint32
	PagesPerSector  uint16

	// Opcodes the worker issues.
	OpReadData    byte
	OpReadStatus  byte
	OpWriteEnable byte
	OpWritePage   byte
	OpEraseSector byte
	WIPMask       byte

	// Opcodes the worker never issues, but cmd/sfcb's maintenance and
	// identification subcommands do (SPEC_FULL Part C.4, C.5, C.6).
	OpReadID    byte
	OpPowerUp   byte
	OpPowerDown byte
	OpEraseChip byte

	// Timing hints: the worker never sleeps (it polls WIP instead). Only
	// cmd/sfcb reads PowerUpTime/PowerDownTime, sleeping that long after the
	// power opcodes; the other three fields are not read anywhere.
	ProgramPageTime time.Duration
	EraseSectorTime time.Duration
	EraseChipTime   time.Duration
	PowerUpTime     time.Duration
	PowerDownTime   time.Duration
}

// [N25Q32|Table 16: Command Set] / [W25Q128|8.1.2 Instruction Set Table 1]
const (
	opReadData    = 0x03
	opReadStatus  = 0x05
	opWriteEnable = 0x06
	opWritePage   = 0x02
	opEraseSector = 0x20 // subsector/sector erase, 4KB
	opEraseChip   = 0xC7
	opReadID      = 0x9F
	opPowerUp     = 0xAB
	opPowerDown   = 0xB9
)

// FlashTypes is the descriptor table consumed through Init's flashType
// index. Index 0 must exist; this ships entries for the two parts the
// reference hardware (an FT2232H-backed iCEstick-class board) is known to
// carry.
var FlashTypes = []FlashType{
	{
		Name:            "Winbond W25Q128JV",
		TotalSizeBytes:  128 << 17, // 128 Mbit
		SectorSizeBytes: 4096,
		PageSizeBytes:   256,
		PagesPerSector:  16,
		OpReadData:      opReadData,
		OpReadStatus:    opReadStatus,
		OpWriteEnable:   opWriteEnable,
		OpWritePage:     opWritePage,
		OpEraseSector:   opEraseSector,
		WIPMask:         0x01,
		OpReadID:        opReadID,
		OpPowerUp:       opPowerUp,
		OpPowerDown:     opPowerDown,
		OpEraseChip:     opEraseChip,
		ProgramPageTime: 3 * time.Millisecond,   // [W25Q128JV-DTR|9.6 AC Electrical Characteristics: tPP]
		EraseSectorTime: 400 * time.Millisecond, // [W25Q128JV-DTR|9.6: tSE]
		EraseChipTime:   200 * time.Second,      // [W25Q128JV-DTR|9.6: tCE]
		PowerUpTime:     3 * time.Microsecond,   // [W25Q128JV-DTR|9.6: tRES1]
		PowerDownTime:   3 * time.Microsecond,   // [W25Q128JV-DTR|9.6: tDP]
	},
	{
		Name:            "Micron N25Q032A",
		TotalSizeBytes:  32 << 17, // 32 Mbit
		SectorSizeBytes: 4096,
		PageSizeBytes:   256,
		PagesPerSector:  16,
		OpReadData:      opReadData,
		OpReadStatus:    opReadStatus,
		OpWriteEnable:   opWriteEnable,
		OpWritePage:     opWritePage,
		OpEraseSector:   opEraseSector,
		WIPMask:         0x01,
		OpReadID:        opReadID,
		OpPowerUp:       opPowerUp,
		OpPowerDown:     opPowerDown,
		OpEraseChip:     opEraseChip,
		ProgramPageTime: 5 * time.Millisecond,   // [N25Q32|Table 38: AC Characteristics: tPP]
		EraseSectorTime: 800 * time.Millisecond, // [N25Q32|Table 38: tSSE]
		EraseChipTime:   60 * time.Second,       // [N25Q32|Table 38: tBE]
	},
}

// JEDECIDs maps a JEDEC ID (the 3-byte response to OpReadID) to its
// FlashTypes index, used by cmd/sfcb's info/auto-detect path.
var JEDECIDs = map[[3]byte]int{
	{0xEF, 0x70, 0x18}: 0, // Winbond W25Q128JVIM
	{0x20, 0xBA, 0x16}: 1, // Micron N25Q032
}
