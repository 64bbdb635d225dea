//go:build tinygo

package atwinc1500

import "machine"

// PinOutput adapts a machine.Pin, already configured as an output, to the
// OutputPin type the driver takes for its control pins.
func PinOutput(p machine.Pin) OutputPin {
	return func(level bool) error {
		p.Set(level)
		return nil
	}
}

// FeatherWingSpi returns the wiring for the Adafruit ATWINC1500 WiFi
// FeatherWing on a Raspberry Pi Pico using hardware SPI0. The caller still
// configures and owns the SPI peripheral clock rate.
func FeatherWingSpi() (spi *machine.SPI, cs, irq, reset, wake machine.Pin) {
	const (
		CS    = machine.GPIO17
		SCK   = machine.GPIO18
		SDO   = machine.GPIO19 // to WINC MOSI
		SDI   = machine.GPIO16 // from WINC MISO
		IRQ   = machine.GPIO20
		RESET = machine.GPIO21
		WAKE  = machine.GPIO22
	)
	spi = machine.SPI0
	spi.Configure(machine.SPIConfig{
		Frequency: 8_000_000,
		Mode:      0,
		SCK:       SCK,
		SDO:       SDO,
		SDI:       SDI,
	})
	CS.Configure(machine.PinConfig{Mode: machine.PinOutput})
	RESET.Configure(machine.PinConfig{Mode: machine.PinOutput})
	WAKE.Configure(machine.PinConfig{Mode: machine.PinOutput})
	IRQ.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	CS.High()
	return spi, CS, IRQ, RESET, WAKE
}
