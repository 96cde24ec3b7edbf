package main

import (
	"flag"
	"fmt"

	"periph.io/x/host/v3/ftdi"

	"github.com/gentam/sfcb"
)

// infoCmd auto-detects the attached flash chip's JEDEC ID (SPEC_FULL Part
// C.4) and reports the FTDI bridge's EEPROM identity, the way gice's own
// info subcommand reported only the latter.
func infoCmd(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	fs.Parse(args)

	d, err := NewDevice()
	if err != nil {
		fatalf("%v", err)
	}

	// Flash identification needs some descriptor to issue read_id/power_up
	// with; any entry works since the opcodes are shared across the table.
	probe := sfcb.FlashTypes[0]
	if err := d.PowerUp(probe); err != nil {
		fatalf("flash power up failed: %v", err)
	}

	id, err := d.ReadFlashID(probe)
	if err != nil {
		fatalf("read flash ID failed: %v", err)
	}
	if idx, known := sfcb.JEDECIDs[id]; known {
		fmt.Printf("Flash:           %s (JEDEC %X)\n", sfcb.FlashTypes[idx].Name, id)
	} else {
		fmt.Printf("Flash:           unknown (JEDEC %X)\n", id)
	}
	if err := d.PowerDown(probe); err != nil {
		fatalf("flash power down failed: %v", err)
	}

	// Reference: https://github.com/periph/cmd/tree/main/ftdi-list
	i := ftdi.Info{}
	d.ft.Info(&i)
	fmt.Printf("Bridge type:     %s\n", i.Type)
	fmt.Printf("Vendor ID:       %#04x\n", i.VenID)
	fmt.Printf("Device ID:       %#04x\n", i.DevID)

	ee := ftdi.EEPROM{}
	if err := d.ft.EEPROM(&ee); err != nil {
		fatalf("failed to read EEPROM: %v", err)
	}
	fmt.Printf("Manufacturer:    %s\n", ee.Manufacturer)
	fmt.Printf("ManufacturerID:  %s\n", ee.ManufacturerID)
	fmt.Printf("Desc:            %s\n", ee.Desc)
	fmt.Printf("Serial:          %s\n", ee.Serial)
}
