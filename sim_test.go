package atwinc1500

import (
	"bytes"
	"testing"
	"time"

	"github.com/soypat/atwinc1500/m2m"
)

// wincSim emulates the chip side of the SPI protocol well enough to drive
// the bus, HIF and device layers in tests. It decodes the command bytes the
// driver sends and answers with the framed responses the real part produces.
type wincSim struct {
	t *testing.T
	// Successive values returned by register reads, keyed by address.
	// The last value repeats once the slice is exhausted.
	regReads map[uint32][]uint32
	// Count of register reads per address.
	readCount map[uint32]int
	regWrites []regWrite
	// DMA readable memory keyed by start address.
	mem       map[uint32][]byte
	memWrites []memWrite
	// Queued replies for read-only transfers.
	rxQueue [][]byte
	// Set between a DMA write command and its payload.
	wrPending  *memWrite
	wrSawStart bool
	txCount    int
}

type regWrite struct {
	addr uint32
	val  uint32
}

type memWrite struct {
	addr uint32
	size uint32
	data []byte
}

func newSim(t *testing.T) *wincSim {
	return &wincSim{
		t:         t,
		regReads:  make(map[uint32][]uint32),
		readCount: make(map[uint32]int),
		mem:       make(map[uint32][]byte),
	}
}

func (s *wincSim) Transfer(b byte) (byte, error) { return 0, nil }

func (s *wincSim) Tx(w, r []byte) error {
	s.txCount++
	switch {
	case len(w) > 0 && len(r) == 0:
		s.handleWrite(w)
	case len(w) == 0 && len(r) > 0:
		s.handleRead(r)
	case len(w) == len(r):
		s.handleDuplex(w, r)
	default:
		s.t.Fatalf("sim: unexpected transfer shape w=%d r=%d", len(w), len(r))
	}
	return nil
}

// handleDuplex services the single full-duplex register transactions.
func (s *wincSim) handleDuplex(w, r []byte) {
	cmd := m2m.Cmd(w[0])
	switch cmd {
	case m2m.CMD_SINGLE_READ, m2m.CMD_INTERNAL_READ:
		cmdLen := len(w) - 8 // 4 without crc, 5 with
		addr := s.cmdAddr(cmd, w)
		val := s.nextRegRead(addr)
		rsp := r[cmdLen:]
		rsp[0] = w[0]
		rsp[1] = 0
		rsp[2] = 0xf3
		rsp[3] = byte(val)
		rsp[4] = byte(val >> 8)
		rsp[5] = byte(val >> 16)
		rsp[6] = byte(val >> 24)
		rsp[7] = 0
	case m2m.CMD_SINGLE_WRITE, m2m.CMD_INTERNAL_WRITE:
		cmdLen := len(w) - 2
		addr := s.cmdAddr(cmd, w)
		var val uint32
		if cmd == m2m.CMD_SINGLE_WRITE {
			val = uint32(w[4])<<24 | uint32(w[5])<<16 | uint32(w[6])<<8 | uint32(w[7])
		} else {
			val = uint32(w[3])<<24 | uint32(w[4])<<16 | uint32(w[5])<<8 | uint32(w[6])
		}
		s.regWrites = append(s.regWrites, regWrite{addr: addr, val: val})
		r[cmdLen] = w[0]
		r[cmdLen+1] = 0
	default:
		s.t.Fatalf("sim: unexpected duplex command %#x", w[0])
	}
}

// handleWrite services write-only transfers: DMA commands, the data start
// byte and DMA payloads.
func (s *wincSim) handleWrite(w []byte) {
	if s.wrPending != nil {
		if !s.wrSawStart {
			if len(w) != 1 || w[0] != m2m.DATA_START_BYTE {
				s.t.Fatalf("sim: expected data start byte, got %#x", w)
			}
			s.wrSawStart = true
			return
		}
		s.wrPending.data = append([]byte{}, w...)
		s.memWrites = append(s.memWrites, *s.wrPending)
		s.wrPending = nil
		s.wrSawStart = false
		s.rxQueue = append(s.rxQueue, []byte{m2m.DATA_COMPLETE_BYTE})
		return
	}
	cmd := m2m.Cmd(w[0])
	addr := uint32(w[1])<<16 | uint32(w[2])<<8 | uint32(w[3])
	size := uint32(w[4])<<16 | uint32(w[5])<<8 | uint32(w[6])
	switch cmd {
	case m2m.CMD_DMA_EXT_READ:
		data, ok := s.mem[addr]
		if !ok {
			data = make([]byte, size)
		}
		s.rxQueue = append(s.rxQueue, []byte{byte(cmd)}, []byte{0}, data)
	case m2m.CMD_DMA_EXT_WRITE:
		s.rxQueue = append(s.rxQueue, []byte{byte(cmd)}, []byte{0})
		s.wrPending = &memWrite{addr: addr, size: size}
	default:
		s.t.Fatalf("sim: unexpected write command %#x", w[0])
	}
}

func (s *wincSim) handleRead(r []byte) {
	if len(s.rxQueue) == 0 {
		for i := range r {
			r[i] = 0
		}
		return
	}
	copy(r, s.rxQueue[0])
	s.rxQueue = s.rxQueue[1:]
}

func (s *wincSim) cmdAddr(cmd m2m.Cmd, w []byte) uint32 {
	switch cmd {
	case m2m.CMD_SINGLE_READ, m2m.CMD_SINGLE_WRITE:
		return uint32(w[1])<<16 | uint32(w[2])<<8 | uint32(w[3])
	}
	// Internal access: 15-bit address, top bit is the clockless flag.
	return uint32(w[1]&0x7f)<<8 | uint32(w[2])
}

func (s *wincSim) nextRegRead(addr uint32) uint32 {
	vals := s.regReads[addr]
	i := s.readCount[addr]
	s.readCount[addr]++
	if len(vals) == 0 {
		return 0
	}
	if i >= len(vals) {
		i = len(vals) - 1
	}
	return vals[i]
}

// lastRegWrite returns the most recent write to addr.
func (s *wincSim) lastRegWrite(addr uint32) (uint32, bool) {
	for i := len(s.regWrites) - 1; i >= 0; i-- {
		if s.regWrites[i].addr == addr {
			return s.regWrites[i].val, true
		}
	}
	return 0, false
}

// wroteValue reports whether val was written to addr at any point.
func (s *wincSim) wroteValue(addr, val uint32) bool {
	for _, rw := range s.regWrites {
		if rw.addr == addr && rw.val == val {
			return true
		}
	}
	return false
}

// memWriteAt returns the DMA write performed at addr.
func (s *wincSim) memWriteAt(addr uint32) ([]byte, bool) {
	for _, mw := range s.memWrites {
		if mw.addr == addr {
			return mw.data, true
		}
	}
	return nil, false
}

func mustEqualBytes(t *testing.T, got, want []byte, msg string) {
	t.Helper()
	if !bytes.Equal(got, want) {
		t.Errorf("%s:\n got %#x\nwant %#x", msg, got, want)
	}
}

// noDelay replaces Device.sleep in tests.
func noDelay(d *Device) {
	d.sleep = func(time.Duration) {}
}
