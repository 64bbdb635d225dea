package atwinc1500

import (
	"log/slog"

	"github.com/soypat/atwinc1500/m2m"
)

// hif.go implements the host interface engine: the packet protocol that
// rides on top of raw register and DMA access. Outbound packets are framed
// with a HifHeader and handed to the chip through a small register dance;
// inbound packets are discovered by polling the receive control register,
// pulled with DMA reads and dispatched by group id.

// Poll attempts for the chip to accept an outbound packet.
const sendPollAttempts = 100

// hifContext tracks the single in-flight inbound packet between the moment
// its header is parsed and the moment reception is acknowledged. The
// protocol does not support read reordering: at most one packet is
// outstanding while readDone is false.
type hifContext struct {
	readAddr uint32
	readSize uint32
	readDone bool
}

type hif struct {
	ctx    hifContext
	logger *slog.Logger
	// rcvEth receives raw 802.11 frames while monitoring mode is on.
	rcvEth func([]byte) error
	rxBuf  [1536]byte
}

// send frames and transmits one outbound HIF packet. data is the packet
// payload and ctrl an optional trailing control block placed right after it.
// Any register failure aborts the whole send.
func (h *hif) send(b *spibus, hdr m2m.HifHeader, data, ctrl []byte) error {
	h.trace("hif:send",
		slog.String("group", hdr.Group.String()),
		slog.Uint64("opcode", uint64(hdr.Opcode)),
		slog.Uint64("len", uint64(hdr.Length)))
	if int(hdr.PayloadLen()) != len(data)+len(ctrl) {
		return errPayloadTooLarge
	}
	if err := b.writeRegister(m2m.NMI_STATE_REG, hdr.RegisterValue()); err != nil {
		return err
	}
	if err := b.writeRegister(m2m.WIFI_HOST_RCV_CTRL_2, 1<<1); err != nil {
		return err
	}
	// The chip clears the flag once it has allocated a DMA destination.
	ready := false
	for retries := 0; retries < sendPollAttempts; retries++ {
		reg, err := b.readRegister(m2m.WIFI_HOST_RCV_CTRL_2)
		if err != nil {
			return err
		}
		if reg&(1<<1) == 0 {
			ready = true
			break
		}
	}
	if !ready {
		return errHifSendTimeout
	}
	dma, err := b.readRegister(m2m.WIFI_HOST_RCV_CTRL_4)
	if err != nil {
		return err
	}
	var hdrBuf [m2m.HIF_HEADER_LEN]byte
	hdr.Put(hdrBuf[:])
	if err := b.writeData(hdrBuf[:], dma); err != nil {
		return err
	}
	if len(data) > 0 {
		if err := b.writeData(data, dma+m2m.HIF_HEADER_LEN); err != nil {
			return err
		}
	}
	if len(ctrl) > 0 {
		if err := b.writeData(ctrl, dma+m2m.HIF_HEADER_LEN+uint32(len(data))); err != nil {
			return err
		}
	}
	return b.writeRegister(m2m.WIFI_HOST_RCV_CTRL_3, dma<<2|1<<1)
}

// isr services the chip's "new packet" interrupt. The embedding application
// calls it when the IRQ line goes active or on a polling cadence. It pulls
// the packet header, dispatches it by group id and acknowledges reception
// unless a callback already consumed the full packet. Returns the recognized
// WiFi opcode, if any, so the application can react synchronously.
func (h *hif) isr(b *spibus, st *driverState) (m2m.WifiCommand, error) {
	reg, err := b.readRegister(m2m.WIFI_HOST_RCV_CTRL_0)
	if err != nil {
		return m2m.WIFI_CMD_INVALID, err
	}
	if reg&1 == 0 {
		// Spurious interrupt, nothing pending.
		return m2m.WIFI_CMD_INVALID, nil
	}
	if err := b.writeRegister(m2m.WIFI_HOST_RCV_CTRL_0, reg&^1); err != nil {
		return m2m.WIFI_CMD_INVALID, err
	}
	h.ctx.readDone = false
	size := (reg >> 2) & 0xfff
	if size == 0 {
		// Nothing to read, but the receive buffer must still be handed
		// back or the chip stalls on the next packet.
		return m2m.WIFI_CMD_INVALID, h.finishReception(b)
	}
	addr, err := b.readRegister(m2m.WIFI_HOST_RCV_CTRL_1)
	if err != nil {
		return m2m.WIFI_CMD_INVALID, err
	}
	h.ctx.readAddr = addr
	h.ctx.readSize = size
	var hdrBuf [4]byte
	if err := h.receive(b, addr, hdrBuf[:]); err != nil {
		return m2m.WIFI_CMD_INVALID, err
	}
	hdr := m2m.DecodeHifHeader(hdrBuf[:])
	h.trace("hif:isr",
		slog.String("group", hdr.Group.String()),
		slog.Uint64("opcode", uint64(hdr.Opcode)),
		slog.Uint64("size", uint64(size)))
	var op m2m.WifiCommand = m2m.WIFI_CMD_INVALID
	switch hdr.Group {
	case m2m.GROUP_WIFI:
		op = m2m.DecodeWifiCommand(hdr.Opcode)
		err = h.wifiCallback(b, st, op)
	case m2m.GROUP_IP:
		err = h.ipCallback(b, st, m2m.DecodeSocketCommand(hdr.Opcode))
	default:
		// Unknown groups are dropped, not fatal.
		h.debug("hif:drop", slog.Uint64("group", uint64(hdr.Group)))
	}
	if err != nil {
		return op, err
	}
	if !h.ctx.readDone {
		err = h.finishReception(b)
	}
	return op, err
}

// receive reads part of the pending packet at addr into buf. Reads are bounds
// checked against what the chip announced. Consuming the last byte of the
// packet acknowledges reception automatically, which lets opcode handlers
// read only the fields they care about.
func (h *hif) receive(b *spibus, addr uint32, buf []byte) error {
	if uint32(len(buf)) > h.ctx.readSize {
		return &HifSizeError{Requested: uint32(len(buf)), Received: h.ctx.readSize}
	}
	end := h.ctx.readAddr + h.ctx.readSize
	if addr < h.ctx.readAddr || addr+uint32(len(buf)) > end {
		return &HifAddressError{Requested: addr + uint32(len(buf)), Limit: end}
	}
	if err := b.readData(buf, addr); err != nil {
		return err
	}
	if addr+uint32(len(buf)) == end {
		return h.finishReception(b)
	}
	return nil
}

// finishReception tells the chip the host receive buffer is free again.
// Called exactly once per inbound packet, by the engine.
func (h *hif) finishReception(b *spibus) error {
	reg, err := b.readRegister(m2m.WIFI_HOST_RCV_CTRL_0)
	if err != nil {
		return err
	}
	if err := b.writeRegister(m2m.WIFI_HOST_RCV_CTRL_0, reg|1<<1); err != nil {
		return err
	}
	h.ctx.readDone = true
	return nil
}

// wifiCallback parses the payload of a WIFI group packet and updates driver
// state. Unhandled opcodes, including WIFI_CMD_INVALID, are deliberately
// no-ops: the opcode table is incomplete relative to the device firmware and
// unknown packets must be dropped, never crash the driver.
func (h *hif) wifiCallback(b *spibus, st *driverState, op m2m.WifiCommand) error {
	payloadAddr := h.ctx.readAddr + m2m.HIF_HEADER_LEN
	switch op {
	case m2m.RESP_CON_STATE_CHANGED:
		var buf [4]byte
		if err := h.receive(b, payloadAddr, buf[:]); err != nil {
			return err
		}
		st.connStateChanged(decodeConnState(buf[0]))

	case m2m.RESP_GET_SYS_TIME:
		var buf [8]byte
		if err := h.receive(b, payloadAddr, buf[:]); err != nil {
			return err
		}
		st.sysTime = DecodeSystemTime(buf[:])
		st.sysTimeValid = true

	case m2m.RESP_CONN_INFO:
		var buf [connInfoLen]byte
		if err := h.receive(b, payloadAddr, buf[:]); err != nil {
			return err
		}
		st.connInfo = DecodeConnectionInfo(buf[:])
		st.connInfoValid = true

	case m2m.RESP_SCAN_DONE:
		var buf [4]byte
		if err := h.receive(b, payloadAddr, buf[:]); err != nil {
			return err
		}
		st.scanInProgress = false
		st.scanCount = buf[0]

	case m2m.RESP_SCAN_RESULT:
		var buf [scanResultLen]byte
		if err := h.receive(b, payloadAddr, buf[:]); err != nil {
			return err
		}
		st.scanResult = DecodeScanResult(buf[:])
		st.scanResultValid = true

	case m2m.RESP_CURRENT_RSSI:
		var buf [4]byte
		if err := h.receive(b, payloadAddr, buf[:]); err != nil {
			return err
		}
		st.rssi = int8(buf[0])
		st.rssiValid = true

	case m2m.RESP_WIFI_RX_PACKET:
		if h.ctx.readSize <= m2m.HIF_HEADER_LEN {
			return nil
		}
		n := h.ctx.readSize - m2m.HIF_HEADER_LEN
		if n > uint32(len(h.rxBuf)) {
			n = uint32(len(h.rxBuf))
		}
		if err := h.receive(b, payloadAddr, h.rxBuf[:n]); err != nil {
			return err
		}
		if h.rcvEth != nil {
			return h.rcvEth(h.rxBuf[:n])
		}
	}
	return nil
}

// ipCallback handles IP group packets. The socket machinery is offloaded to
// the chip firmware and not driven by this host driver, so everything is
// decoded for the logs and dropped.
func (h *hif) ipCallback(b *spibus, st *driverState, op m2m.SocketCommand) error {
	h.debug("hif:ip", slog.String("opcode", op.String()))
	return nil
}
