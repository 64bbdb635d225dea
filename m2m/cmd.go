package m2m

import "errors"

// Cmd is a raw SPI protocol command opcode. The upper nibble is always 0b1100,
// the lower nibble selects the command.
type Cmd uint8

const (
	CMD_DMA_WRITE      Cmd = 0xc1
	CMD_DMA_READ       Cmd = 0xc2
	CMD_INTERNAL_WRITE Cmd = 0xc3
	CMD_INTERNAL_READ  Cmd = 0xc4
	CMD_TERMINATE      Cmd = 0xc5
	CMD_REPEAT         Cmd = 0xc6
	CMD_DMA_EXT_WRITE  Cmd = 0xc7
	CMD_DMA_EXT_READ   Cmd = 0xc8
	CMD_SINGLE_WRITE   Cmd = 0xc9
	CMD_SINGLE_READ    Cmd = 0xca
	CMD_RESET          Cmd = 0xcf
)

// Data bytes the chip uses to delimit DMA payloads.
const (
	DATA_START_BYTE    = 0xf3
	DATA_COMPLETE_BYTE = 0xc3
)

var errUnknownCmd = errors.New("m2m: unknown spi command")

func (c Cmd) String() (s string) {
	switch c {
	case CMD_DMA_WRITE:
		s = "DMA_WRITE"
	case CMD_DMA_READ:
		s = "DMA_READ"
	case CMD_INTERNAL_WRITE:
		s = "INTERNAL_WRITE"
	case CMD_INTERNAL_READ:
		s = "INTERNAL_READ"
	case CMD_TERMINATE:
		s = "TERMINATE"
	case CMD_REPEAT:
		s = "REPEAT"
	case CMD_DMA_EXT_WRITE:
		s = "DMA_EXT_WRITE"
	case CMD_DMA_EXT_READ:
		s = "DMA_EXT_READ"
	case CMD_SINGLE_WRITE:
		s = "SINGLE_WRITE"
	case CMD_SINGLE_READ:
		s = "SINGLE_READ"
	case CMD_RESET:
		s = "RESET"
	default:
		s = "INVALID"
	}
	return s
}

// CmdSize returns the encoded size in bytes of c without the CRC byte, or 0
// for an unknown opcode.
func CmdSize(c Cmd) int {
	switch c {
	case CMD_INTERNAL_READ, CMD_TERMINATE, CMD_REPEAT, CMD_SINGLE_READ, CMD_RESET:
		return 4
	case CMD_DMA_WRITE, CMD_DMA_READ:
		return 6
	case CMD_INTERNAL_WRITE, CMD_DMA_EXT_WRITE, CMD_DMA_EXT_READ:
		return 7
	case CMD_SINGLE_WRITE:
		return 8
	}
	return 0
}

// PutCommand encodes cmd into dst and returns the number of bytes written.
// The meaning of data depends on the command: a 32-bit register value for the
// write commands, a transfer size for the DMA commands, ignored otherwise.
// clockless sets the high bit of the first address byte so the command is
// serviced without the chip's main clock running. dst must hold CmdSize(cmd)
// bytes. The CRC byte, when the session uses CRC, is appended by the caller.
func PutCommand(dst []byte, cmd Cmd, addr, data uint32, clockless bool) (int, error) {
	size := CmdSize(cmd)
	if size == 0 {
		return 0, errUnknownCmd
	}
	_ = dst[size-1]
	dst[0] = byte(cmd)
	switch cmd {
	case CMD_INTERNAL_READ:
		dst[1] = byte(addr >> 8)
		if clockless {
			dst[1] |= 0x80
		}
		dst[2] = byte(addr)
		dst[3] = 0

	case CMD_INTERNAL_WRITE:
		dst[1] = byte(addr >> 8)
		if clockless {
			dst[1] |= 0x80
		}
		dst[2] = byte(addr)
		dst[3] = byte(data >> 24)
		dst[4] = byte(data >> 16)
		dst[5] = byte(data >> 8)
		dst[6] = byte(data)

	case CMD_SINGLE_READ:
		dst[1] = byte(addr >> 16)
		dst[2] = byte(addr >> 8)
		dst[3] = byte(addr)

	case CMD_SINGLE_WRITE:
		dst[1] = byte(addr >> 16)
		dst[2] = byte(addr >> 8)
		dst[3] = byte(addr)
		dst[4] = byte(data >> 24)
		dst[5] = byte(data >> 16)
		dst[6] = byte(data >> 8)
		dst[7] = byte(data)

	case CMD_DMA_WRITE, CMD_DMA_READ:
		dst[1] = byte(addr >> 16)
		dst[2] = byte(addr >> 8)
		dst[3] = byte(addr)
		dst[4] = byte(data >> 8)
		dst[5] = byte(data)

	case CMD_DMA_EXT_WRITE, CMD_DMA_EXT_READ:
		dst[1] = byte(addr >> 16)
		dst[2] = byte(addr >> 8)
		dst[3] = byte(addr)
		dst[4] = byte(data >> 16)
		dst[5] = byte(data >> 8)
		dst[6] = byte(data)

	case CMD_TERMINATE, CMD_REPEAT:
		dst[1] = 0
		dst[2] = 0
		dst[3] = 0

	case CMD_RESET:
		dst[1] = 0xff
		dst[2] = 0xff
		dst[3] = 0xff
	}
	return size, nil
}

// Crc7 runs data through a 7-bit CRC with polynomial x^7+x^3+1, continuing
// from crc. The protocol seeds with 0x7f and transmits the result shifted
// left by one bit.
func Crc7(crc byte, data []byte) byte {
	for _, b := range data {
		for bit := byte(0x80); bit != 0; bit >>= 1 {
			crc <<= 1
			if (b&bit != 0) != (crc&0x80 != 0) {
				crc ^= 0x09
			}
		}
		crc &= 0x7f
	}
	return crc & 0x7f
}
