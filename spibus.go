package atwinc1500

import (
	"log/slog"

	"github.com/soypat/atwinc1500/m2m"
	"tinygo.org/x/drivers"
)

// spibus.go contains the low level register and DMA block access over the
// WINC's SPI protocol. These map to the nm_bus/nmi_spi functions in
// Microchip's reference driver.

// OutputPin sets a digital output high or low and reports failure, matching
// what a GPIO expander or a fallible HAL can provide. Wrap a machine.Pin
// with PinOutput to obtain one.
type OutputPin func(level bool) error

// Number of poll attempts for DMA readiness markers before giving up.
const dmaPollAttempts = 10

type spibus struct {
	spi drivers.SPI
	cs  OutputPin
	// crc is true while the chip validates a CRC7 byte on every command.
	// The chip boots with CRC checking on; Device.Init may turn it off.
	crc    bool
	logger *slog.Logger
	// Command + response scratch. Register reads are the largest fixed
	// transaction at 13 bytes with CRC.
	buf [16]byte
}

// csEnable asserts (active low) or deasserts the chip select line.
func (b *spibus) csEnable(enabled bool) error {
	if err := b.cs(!enabled); err != nil {
		return ErrPinState
	}
	return nil
}

// putCommand encodes cmd into the scratch buffer, appending the CRC7 check
// byte when the session still uses CRC. Returns the total command length.
func (b *spibus) putCommand(cmd m2m.Cmd, addr, data uint32, clockless bool) (int, error) {
	n, err := m2m.PutCommand(b.buf[:], cmd, addr, data, clockless)
	if err != nil {
		return 0, err
	}
	if b.crc {
		b.buf[n] = m2m.Crc7(0x7f, b.buf[:n]) << 1
		n++
	}
	return n, nil
}

// readRegister reads a 32-bit register. Addresses at or below the clockless
// read limit are serviced with a clockless internal read.
//
// The full transaction is one 12 byte full duplex exchange (13 with CRC):
// the response starts right after the command bytes with the echoed opcode,
// a status byte, a 0xF* data marker and the value in little endian order.
func (b *spibus) readRegister(addr uint32) (uint32, error) {
	clockless := addr <= m2m.CLOCKLESS_READ_LIMIT
	cmd := m2m.CMD_SINGLE_READ
	if clockless {
		cmd = m2m.CMD_INTERNAL_READ
	}
	n, err := b.putCommand(cmd, addr, 0, clockless)
	if err != nil {
		return 0, err
	}
	total := n + 8
	for i := n; i < total; i++ {
		b.buf[i] = 0
	}
	if err := b.csEnable(true); err != nil {
		return 0, err
	}
	err = b.spi.Tx(b.buf[:total], b.buf[:total])
	b.csEnable(false)
	if err != nil {
		return 0, ErrTransfer
	}
	rsp := b.buf[n:total]
	if rsp[0] != byte(cmd) {
		return 0, &SpiError{Op: "read register", Cmd: cmd, Addr: addr, Device: CmdErrUnexpectedData, Raw: rsp[0]}
	}
	if status := DecodeCommandError(rsp[1]); status != CmdErrNone {
		return 0, &SpiError{Op: "read register", Cmd: cmd, Addr: addr, Device: status, Raw: rsp[1]}
	}
	if rsp[2]&0xf0 != 0xf0 {
		return 0, &SpiError{Op: "read register", Cmd: cmd, Addr: addr, Device: CmdErrInvalid, Raw: rsp[2]}
	}
	v := uint32(rsp[3]) | uint32(rsp[4])<<8 | uint32(rsp[5])<<16 | uint32(rsp[6])<<24
	b.trace("rr", slog.Uint64("addr", uint64(addr)), slog.Uint64("val", uint64(v)))
	return v, nil
}

// writeRegister writes a 32-bit register. Addresses at or below the clockless
// write limit are serviced with a clockless internal write.
func (b *spibus) writeRegister(addr, data uint32) error {
	clockless := addr <= m2m.CLOCKLESS_WRITE_LIMIT
	cmd := m2m.CMD_SINGLE_WRITE
	if clockless {
		cmd = m2m.CMD_INTERNAL_WRITE
	}
	n, err := b.putCommand(cmd, addr, data, clockless)
	if err != nil {
		return err
	}
	total := n + 2
	b.buf[n] = 0
	b.buf[n+1] = 0
	if err := b.csEnable(true); err != nil {
		return err
	}
	err = b.spi.Tx(b.buf[:total], b.buf[:total])
	b.csEnable(false)
	if err != nil {
		return ErrTransfer
	}
	rsp := b.buf[n:total]
	if rsp[0] != byte(cmd) {
		return &SpiError{Op: "write register", Cmd: cmd, Addr: addr, Device: CmdErrUnexpectedData, Raw: rsp[0]}
	}
	if status := DecodeCommandError(rsp[1]); status != CmdErrNone {
		return &SpiError{Op: "write register", Cmd: cmd, Addr: addr, Device: status}
	}
	b.trace("wr", slog.Uint64("addr", uint64(addr)), slog.Uint64("val", uint64(data)))
	return nil
}

// readData reads len(data) bytes from chip memory at addr using an extended
// DMA read. The chip needs time to stage the transfer, so the command echo
// is polled for a bounded number of attempts before the bulk exchange.
func (b *spibus) readData(data []byte, addr uint32) error {
	const cmd = m2m.CMD_DMA_EXT_READ
	if len(data) == 0 {
		return nil
	}
	n, err := b.putCommand(cmd, addr, uint32(len(data)), false)
	if err != nil {
		return err
	}
	if err := b.csEnable(true); err != nil {
		return err
	}
	defer b.csEnable(false)
	if err := b.spi.Tx(b.buf[:n], nil); err != nil {
		return ErrTransfer
	}
	if err := b.pollResponse(cmd, addr, "read data"); err != nil {
		return err
	}
	if err := b.spi.Tx(nil, data); err != nil {
		return ErrTransfer
	}
	return nil
}

// writeData writes data to chip memory at addr using an extended DMA write.
// The payload is bracketed by a data start byte and a completion byte the
// chip emits once it has consumed the transfer.
func (b *spibus) writeData(data []byte, addr uint32) error {
	const cmd = m2m.CMD_DMA_EXT_WRITE
	if len(data) == 0 {
		return nil
	}
	n, err := b.putCommand(cmd, addr, uint32(len(data)), false)
	if err != nil {
		return err
	}
	if err := b.csEnable(true); err != nil {
		return err
	}
	defer b.csEnable(false)
	if err := b.spi.Tx(b.buf[:n], nil); err != nil {
		return ErrTransfer
	}
	if err := b.pollResponse(cmd, addr, "write data"); err != nil {
		return err
	}
	if err := b.spi.Tx([]byte{m2m.DATA_START_BYTE}, nil); err != nil {
		return ErrTransfer
	}
	if err := b.spi.Tx(data, nil); err != nil {
		return ErrTransfer
	}
	// The chip signals it consumed the payload with a completion byte.
	var rsp [1]byte
	for retries := 0; retries < dmaPollAttempts; retries++ {
		if err := b.spi.Tx(nil, rsp[:]); err != nil {
			return ErrTransfer
		}
		if rsp[0] == m2m.DATA_COMPLETE_BYTE {
			return nil
		}
	}
	return errBusTimeout
}

// pollResponse waits for the echoed opcode of a DMA command and validates the
// status byte that follows it. Exhausting the retry budget is a timeout, not
// a silent success.
func (b *spibus) pollResponse(cmd m2m.Cmd, addr uint32, op string) error {
	var rsp [2]byte
	for retries := 0; retries < dmaPollAttempts; retries++ {
		if err := b.spi.Tx(nil, rsp[:1]); err != nil {
			return ErrTransfer
		}
		if rsp[0] != byte(cmd) {
			continue
		}
		if err := b.spi.Tx(nil, rsp[1:]); err != nil {
			return ErrTransfer
		}
		if status := DecodeCommandError(rsp[1]); status != CmdErrNone {
			return &SpiError{Op: op, Cmd: cmd, Addr: addr, Device: status}
		}
		return nil
	}
	return errBusTimeout
}
