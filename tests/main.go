//go:build tinygo

package main

import (
	"machine"
	"time"

	"log/slog"

	"github.com/soypat/atwinc1500"
)

// On-hardware smoke test for the ATWINC1500 FeatherWing on a Pico. Brings the
// chip up, checks the firmware revision registers and toggles a chip GPIO.
// Flash with tinygo and watch the serial monitor.
func main() {
	// Give time for monitor to hook up to USB.
	time.Sleep(time.Second)
	logger := slog.New(slog.NewTextHandler(machine.Serial, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	spi, cs, _, reset, wake := atwinc1500.FeatherWingSpi()
	dev := atwinc1500.New(spi,
		atwinc1500.PinOutput(cs), atwinc1500.PinOutput(reset), atwinc1500.PinOutput(wake))
	err := dev.Init(atwinc1500.Config{Logger: logger})
	if err != nil {
		panic("init failed: " + err.Error())
	}
	println("init success")

	ver, err := dev.GetFirmwareVersion()
	if err != nil {
		panic("firmware version read failed: " + err.Error())
	}
	println("firmware version:", ver.String())
	if ver == (atwinc1500.FirmwareVersion{}) {
		println("got zero firmware version; chip likely not running firmware")
	}

	mac, err := dev.MACAddress()
	if err != nil {
		panic("mac read failed: " + err.Error())
	}
	print("mac:")
	for i, b := range mac {
		if i > 0 {
			print(":")
		}
		print(b)
	}
	println()

	err = dev.SetGpioDirection(atwinc1500.Gpio4, atwinc1500.GpioOutput)
	if err != nil {
		panic("gpio direction failed: " + err.Error())
	}
	for i := 0; i < 10; i++ {
		if err = dev.SetGpioValue(atwinc1500.Gpio4, i%2 == 0); err != nil {
			panic("gpio toggle failed: " + err.Error())
		}
		time.Sleep(200 * time.Millisecond)
	}
	println("setup successfully done")
}
