package atwinc1500

import (
	"errors"
	"strconv"

	"github.com/soypat/atwinc1500/m2m"
)

var (
	// ErrPinState is returned when a chip control pin could not be driven.
	ErrPinState = errors.New("pin state change failed")
	// ErrTransfer is returned when the SPI exchange itself failed.
	ErrTransfer = errors.New("spi transfer failed")

	errBusTimeout          = errors.New("dma readiness poll timeout")
	errHifSendTimeout      = errors.New("hif send busy poll timeout")
	errEfuseTimeout        = errors.New("efuse ready poll timeout")
	errBootromTimeout      = errors.New("boot rom poll timeout")
	errFirmwareTimeout     = errors.New("firmware start poll timeout")
	errScanInProgress      = errors.New("scan already in progress")
	errScanIndexRange      = errors.New("scan result index out of range")
	errSSIDTooLong         = errors.New("ssid longer than 32 bytes")
	errPassphraseLen       = errors.New("passphrase longer than 64 bytes")
	errPayloadTooLarge     = errors.New("hif payload length mismatch")
	errMonitorNoHandler    = errors.New("no rx packet handler registered")
	errUnsupportedSecurity = errors.New("unsupported security type")
)

// CommandError is the status nibble the chip embeds in every SPI command
// response. Values above 5 decode to CmdErrInvalid, which does not name a
// real device error: it means the response stream is desynchronized and the
// datasheet error recovery procedure is called for.
type CommandError uint8

const (
	CmdErrNone CommandError = iota
	CmdErrUnsupportedCommand
	CmdErrUnexpectedData
	CmdErrCRC7
	CmdErrCRC16
	CmdErrInternal
	CmdErrInvalid
)

// DecodeCommandError decodes a raw status byte, mapping unknown values to
// CmdErrInvalid.
func DecodeCommandError(b uint8) CommandError {
	if b > uint8(CmdErrInternal) {
		return CmdErrInvalid
	}
	return CommandError(b)
}

func (e CommandError) String() (s string) {
	switch e {
	case CmdErrNone:
		s = "no error"
	case CmdErrUnsupportedCommand:
		s = "unsupported command"
	case CmdErrUnexpectedData:
		s = "unexpected data received"
	case CmdErrCRC7:
		s = "crc7 mismatch"
	case CmdErrCRC16:
		s = "crc16 mismatch"
	case CmdErrInternal:
		s = "device internal error"
	default:
		s = "invalid (response desync)"
	}
	return s
}

// SpiError reports a device-side protocol failure during a register or block
// access. It carries the command and decoded device status so the caller can
// diagnose a desync without re-running the transaction.
type SpiError struct {
	Op     string // "read register", "write data", ...
	Cmd    m2m.Cmd
	Addr   uint32
	Device CommandError
	// Raw response byte that failed validation, for register reads.
	Raw uint8
}

func (e *SpiError) Error() string {
	s := "atwinc1500: " + e.Op + " " + e.Cmd.String() +
		" addr=0x" + strconv.FormatUint(uint64(e.Addr), 16) +
		": " + e.Device.String()
	if e.Raw != 0 {
		s += " (raw=0x" + strconv.FormatUint(uint64(e.Raw), 16) + ")"
	}
	return s
}

// HifSizeError reports an attempt to read more bytes than the chip announced
// for the pending packet.
type HifSizeError struct {
	Requested uint32
	Received  uint32
}

func (e *HifSizeError) Error() string {
	return "atwinc1500: hif read of " + strconv.FormatUint(uint64(e.Requested), 10) +
		" bytes exceeds received " + strconv.FormatUint(uint64(e.Received), 10) + " bytes"
}

// HifAddressError reports an attempt to read outside the bounds of the
// pending packet.
type HifAddressError struct {
	Requested uint32
	Limit     uint32
}

func (e *HifAddressError) Error() string {
	return "atwinc1500: hif read at 0x" + strconv.FormatUint(uint64(e.Requested), 16) +
		" beyond packet end 0x" + strconv.FormatUint(uint64(e.Limit), 16)
}
