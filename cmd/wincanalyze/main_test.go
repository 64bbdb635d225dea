package main

import (
	"bytes"
	"testing"

	"github.com/soypat/atwinc1500/m2m"
)

func TestCommandFromBytes(t *testing.T) {
	var bus BusCtl
	cmd, data := bus.CommandFromBytes([]byte{0xc9, 0x00, 0x10, 0x8c, 0x13, 0x52, 0x13, 0x30, 0xaa, 0xbb})
	if cmd.Cmd != m2m.CMD_SINGLE_WRITE || !cmd.Write {
		t.Error("expected single write", cmd)
	}
	if cmd.Addr != 0x108c || cmd.Val != 0x13521330 || !cmd.HasVal {
		t.Errorf("addr=%#x val=%#x", cmd.Addr, cmd.Val)
	}
	if !bytes.Equal(data, []byte{0xaa, 0xbb}) {
		t.Errorf("trailing data %#x", data)
	}

	cmd, _ = bus.CommandFromBytes([]byte{0xc8, 0x03, 0x70, 0x00, 0x00, 0x00, 0x2c})
	if cmd.Cmd != m2m.CMD_DMA_EXT_READ || cmd.Write {
		t.Error("expected dma ext read", cmd)
	}
	if cmd.Addr != 0x037000 || cmd.Size != 0x2c {
		t.Errorf("addr=%#x size=%d", cmd.Addr, cmd.Size)
	}

	cmd, _ = bus.CommandFromBytes([]byte{0xc4, 0x80 | 0x00, 0x24, 0x00})
	if cmd.Cmd != m2m.CMD_INTERNAL_READ || !cmd.Clockless {
		t.Error("expected clockless internal read", cmd)
	}
	if cmd.Addr != 0x24 {
		t.Errorf("addr=%#x", cmd.Addr)
	}
}

func TestCommandFromBytesCRC(t *testing.T) {
	bus := BusCtl{CRC: true}
	// 4 command bytes plus the CRC byte, then the response.
	cmd, data := bus.CommandFromBytes([]byte{0xca, 0x0c, 0x00, 0x0c, 0x5e, 0xca, 0x00})
	if cmd.Cmd != m2m.CMD_SINGLE_READ || cmd.Addr != 0xc000c {
		t.Error("decoded", cmd)
	}
	if !bytes.Equal(data, []byte{0xca, 0x00}) {
		t.Errorf("trailing data %#x", data)
	}
}

func TestHifNote(t *testing.T) {
	hdr := m2m.NewHifHeader(m2m.GROUP_WIFI, uint8(m2m.REQ_SCAN), 4)
	cmd, _ := (&BusCtl{}).CommandFromBytes([]byte{
		0xc9, 0x00, 0x10, 0x8c,
		byte(hdr.RegisterValue() >> 24), byte(hdr.RegisterValue() >> 16),
		byte(hdr.RegisterValue() >> 8), byte(hdr.RegisterValue()),
	})
	note := hifNote(cmd)
	if note != "hif wifi/REQ_SCAN" {
		t.Errorf("note %q", note)
	}
	// Reads of the same register are not annotated.
	cmd, _ = (&BusCtl{}).CommandFromBytes([]byte{0xca, 0x00, 0x10, 0x8c})
	if hifNote(cmd) != "" {
		t.Error("read annotated")
	}
}
