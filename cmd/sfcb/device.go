package main

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/host/v3"
	"periph.io/x/host/v3/ftdi"

	"github.com/gentam/sfcb"
	"github.com/gentam/sfcb/internal/logging"
)

// Device is the FT2232H-backed SPI bridge to the flash chip. It owns the
// single blocking Tx the worker's non-blocking Tick contract is driven
// through — the bridge itself has no notion of staged commands; in Drive it
// only clocks whatever bytes Handle.Scratch() holds.
type Device struct {
	ft *ftdi.FT232H
	cs gpio.PinIO // ADBUS4 chip select

	clock physic.Frequency
	conn  spi.Conn
}

// NewDevice finds the FT2232H device and opens an MPSSE/SPI connection.
func NewDevice() (*Device, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host initialization failed: %w", err)
	}

	d := &Device{
		clock: 30 * physic.MegaHertz, // [AN_135 3.2.1 Divisors]
	}
	if err := d.openFT2232H(); err != nil {
		return nil, err
	}

	// [EB82|Appendix A. Sheet 2 of 5 (USB to SPI/RS232)]
	// ADBUS0 | iCE_SCK
	// ADBUS1 | iCE_MOSI / FLASH_MOSI
	// ADBUS2 | iCE_MISO / FLASH_MISO
	// ADBUS4 | iCE_SS_B (CS)
	d.cs = d.ft.D4

	if err := d.connectSPI(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Device) openFT2232H() error {
	const (
		vendorID  = 0x0403 // FTDI
		productID = 0x6010 // FT2232H
	)

	info := ftdi.Info{}
	for _, dev := range ftdi.All() {
		dev.Info(&info)
		if info.VenID != vendorID || info.DevID != productID {
			continue
		}
		if ft, ok := dev.(*ftdi.FT232H); ok {
			d.ft = ft
			return nil
		}
	}
	return errors.New("FT2232H device not found")
}

func (d *Device) connectSPI() (err error) {
	port, err := d.ft.SPI()
	if err != nil {
		return fmt.Errorf("failed to get SPI port: %w", err)
	}

	// [FTDI AN_114|1.2] > FTDI device can only support mode 0 and mode 2
	// due to the limitation of the MPSSE engine; the target parts accept
	// mode 0 [n25q_32mb_3v_65nm.pdf|Table 7] / [W25Q128JV-DTR|8.1.2].
	mode := spi.Mode0
	d.conn, err = port.Connect(d.clock, mode, 8)
	return err
}

// tx clocks buf full-duplex, CS-bracketed.
func (d *Device) tx(buf []byte) (err error) {
	if err = d.cs.Out(gpio.Low); err != nil {
		return err
	}
	defer func() {
		if csErr := d.cs.Out(gpio.High); csErr != nil && err == nil {
			err = csErr
		}
	}()
	return d.conn.Tx(buf, buf)
}

// Drive runs h to completion, alternating Tick with a physical SPI
// transaction — the host loop §6 describes, here implemented against
// real hardware instead of faketransport_test.go's in-memory stand-in.
func (d *Device) Drive(h *sfcb.Handle) error {
	transactions := 0
	for h.Busy() {
		h.Tick()
		if n := h.SPILen(); n > 0 {
			transactions++
			logging.Debug("spi transaction", "op", h.Scratch()[0], "len", n)
			if err := d.tx(h.Scratch()[:n]); err != nil {
				return err
			}
		}
	}
	logging.Debug("worker finished", "transactions", transactions, "err", h.Err())
	if h.Err() != sfcb.ErrNone {
		return fmt.Errorf("worker fault: %s", h.Err())
	}
	return nil
}

// --- CLI-only operations the worker never issues (SPEC_FULL Part C.4, C.5, C.6) ---

// ReadFlashID issues the flash chip's JEDEC ID opcode directly; the
// worker's staged state machine never needs this, it is purely a CLI
// identification aid.
func (d *Device) ReadFlashID(ft sfcb.FlashType) (id [3]byte, err error) {
	buf := make([]byte, 4)
	buf[0] = ft.OpReadID
	if err = d.tx(buf); err != nil {
		return
	}
	return [3]byte(buf[1:]), nil
}

func (d *Device) PowerUp(ft sfcb.FlashType) error {
	buf := []byte{ft.OpPowerUp}
	if err := d.tx(buf); err != nil {
		return err
	}
	time.Sleep(ft.PowerUpTime)
	return nil
}

func (d *Device) PowerDown(ft sfcb.FlashType) error {
	buf := []byte{ft.OpPowerDown}
	if err := d.tx(buf); err != nil {
		return err
	}
	time.Sleep(ft.PowerDownTime)
	return nil
}

func (d *Device) waitIdle(ft sfcb.FlashType) error {
	for {
		buf := []byte{ft.OpReadStatus, 0}
		if err := d.tx(buf); err != nil {
			return err
		}
		if buf[1]&ft.WIPMask == 0 {
			return nil
		}
	}
}

// EraseChip erases the entire device. It is a maintenance operation the
// spec's worker never models (erasing is always scoped to one sector via
// MKCB's wrap logic); exposed here because a full-chip wipe is something
// only an operator issues deliberately.
func (d *Device) EraseChip(ft sfcb.FlashType) error {
	if err := d.tx([]byte{ft.OpWriteEnable}); err != nil {
		return err
	}
	if err := d.tx([]byte{ft.OpEraseChip}); err != nil {
		return err
	}
	return d.waitIdle(ft)
}

// EraseSector erases the 4KB sector containing addr.
func (d *Device) EraseSector(ft sfcb.FlashType, addr uint32) error {
	if err := d.tx([]byte{ft.OpWriteEnable}); err != nil {
		return err
	}
	buf := []byte{ft.OpEraseSector, byte(addr >> 16), byte(addr >> 8), byte(addr)}
	if err := d.tx(buf); err != nil {
		return err
	}
	return d.waitIdle(ft)
}
