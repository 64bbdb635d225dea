// package m2m implements Microchip's machine-to-machine (M2M) host interface
// wire protocol spoken by the ATWINC1500 WiFi network controller over SPI.
package m2m

import (
	"encoding/binary"
)

const (
	// Length of a HIF header as transmitted over the wire. Only the first
	// four bytes carry information, the rest is DMA padding.
	HIF_HEADER_LEN = 8
	// Largest register address serviced with a clockless read.
	CLOCKLESS_READ_LIMIT = 0xff
	// Largest register address serviced with a clockless write.
	CLOCKLESS_WRITE_LIMIT = 0x30
)

// Host interface registers. The addresses come from Microchip's reference
// driver; most are absent from the datasheet.
const (
	WIFI_HOST_RCV_CTRL_0 = 0x1070
	WIFI_HOST_RCV_CTRL_1 = 0x1084
	WIFI_HOST_RCV_CTRL_2 = 0x1078
	WIFI_HOST_RCV_CTRL_3 = 0x106c
	WIFI_HOST_RCV_CTRL_4 = 0x150400
	WIFI_HOST_RCV_CTRL_5 = 0x1088

	NMI_CHIPID              = 0x1000
	EFUSE_REG               = 0x1014
	NMI_STATE_REG           = 0x108c
	NMI_PIN_MUX_0           = 0x1408
	NMI_GP_REG_1            = 0x14a0
	NMI_GP_REG_2            = 0xc0008
	NMI_INTR_REG_BASE       = 0x1a00
	NMI_SPI_PROTOCOL_CONFIG = 0xe824
	NMI_REV_REG             = 0x207ac
	NMI_REV_REG_ATE         = 0x1048
	BOOTROM_REG             = 0xc000c
	M2M_WAIT_FOR_HOST_REG   = 0x207bc
)

// Boot handshake sentinels. Opaque reverse-engineered values, never derived.
const (
	FINISH_BOOT_VAL    = 0x10add09e
	START_FIRMWARE_VAL = 0xef522f61
	FINISH_INIT_VAL    = 0x02532636
	DRIVER_VER_INFO    = 0x13521330
	CONF_VAL           = 0x102
	ATE_FW_IS_UP_VAL   = 0xd75dc1c3
	// Written to NMI_SPI_PROTOCOL_CONFIG to turn off CRC checking.
	PROTOCOL_CONFIG_CRC_OFF = 0x52
)

// GroupID is the coarse routing tag of a HIF packet. It selects which opcode
// table the second header byte is decoded against.
type GroupID uint8

const (
	GROUP_MAIN GroupID = 0
	GROUP_WIFI GroupID = 1
	GROUP_IP   GroupID = 2
	GROUP_HIF  GroupID = 3
)

func (g GroupID) String() (s string) {
	switch g {
	case GROUP_MAIN:
		s = "main"
	case GROUP_WIFI:
		s = "wifi"
	case GROUP_IP:
		s = "ip"
	case GROUP_HIF:
		s = "hif"
	default:
		s = "unknown"
	}
	return s
}

// HifHeader frames every HIF packet exchanged with the chip.
// Length counts the header itself, so it is always payload length + 8.
type HifHeader struct {
	Group  GroupID
	Opcode uint8
	Length uint16
}

// NewHifHeader returns a header for a packet carrying payloadLen bytes of
// payload. The wire length field includes the header size.
func NewHifHeader(group GroupID, opcode uint8, payloadLen uint16) HifHeader {
	return HifHeader{
		Group:  group,
		Opcode: opcode,
		Length: payloadLen + HIF_HEADER_LEN,
	}
}

// DecodeHifHeader decodes a header from the first 4 bytes of b.
func DecodeHifHeader(b []byte) (hdr HifHeader) {
	_ = b[3]
	hdr.Group = GroupID(b[0])
	hdr.Opcode = b[1]
	hdr.Length = binary.LittleEndian.Uint16(b[2:])
	return hdr
}

// Put puts all 8 bytes of the header in dst. Panics if dst is shorter than
// 8 bytes in length.
func (h HifHeader) Put(dst []byte) {
	_ = dst[HIF_HEADER_LEN-1]
	dst[0] = byte(h.Group)
	dst[1] = h.Opcode
	binary.LittleEndian.PutUint16(dst[2:], h.Length)
	dst[4] = 0
	dst[5] = 0
	dst[6] = 0
	dst[7] = 0
}

// RegisterValue packs the header for a control register write. Note the byte
// order differs from the buffer form put by Put; both are fixed by the chip.
func (h HifHeader) RegisterValue() uint32 {
	lo := uint32(h.Length & 0xff)
	hi := uint32(h.Length >> 8)
	return hi<<24 | lo<<16 | uint32(h.Opcode)<<8 | uint32(h.Group)
}

// PayloadLen returns the length of the packet payload, excluding the header.
func (h HifHeader) PayloadLen() uint16 {
	if h.Length < HIF_HEADER_LEN {
		return 0
	}
	return h.Length - HIF_HEADER_LEN
}
