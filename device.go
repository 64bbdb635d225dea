// Package atwinc1500 implements a driver for the Microchip ATWINC1500 WiFi
// network controller over its SPI host interface.
package atwinc1500

import (
	"sync"
	"time"

	"log/slog"

	"github.com/soypat/atwinc1500/m2m"
	"tinygo.org/x/drivers"
)

// Bring-up retry budgets from the reference driver, one second between polls.
const (
	efusePollAttempts    = 10
	bootromPollAttempts  = 3
	firmwarePollAttempts = 20
)

// GPIO registers on the chip.
const (
	gpioDirReg    = 0x20108
	gpioValReg    = 0x20100
	gpioGetDirReg = 0x20104
)

// Gpio is one of the chip's user controllable GPIO pins.
type Gpio uint8

const (
	Gpio3 Gpio = 3
	Gpio4 Gpio = 4
	Gpio5 Gpio = 5
	Gpio6 Gpio = 6
)

// GpioDirection configures a chip GPIO as input or output.
type GpioDirection uint8

const (
	GpioOutput GpioDirection = 0
	GpioInput  GpioDirection = 1
)

// Device drives an ATWINC1500 module. All exported methods serialize on an
// internal mutex; the bus and the HIF context have exactly one owner.
type Device struct {
	mu    sync.Mutex
	bus   spibus
	hif   hif
	state driverState
	reset OutputPin
	wake  OutputPin
	// sleep is swappable so tests do not wait out the bring-up delays.
	sleep  func(time.Duration)
	logger *slog.Logger
	mac    [6]byte
	macOK  bool
}

// Config holds Device.Init parameters.
type Config struct {
	Logger *slog.Logger
	// KeepCRC leaves the chip's CRC7 command protection on for the whole
	// session instead of disabling it after bring-up.
	KeepCRC bool
	// MAC overrides the one time programmable MAC address for the session.
	MAC *[6]byte
}

// New returns a Device talking over spi with the given control pins. cs,
// reset and wake are all required. Call Init before anything else.
func New(spi drivers.SPI, cs, reset, wake OutputPin) *Device {
	d := &Device{
		bus:   spibus{spi: spi, cs: cs, crc: true},
		reset: reset,
		wake:  wake,
		sleep: time.Sleep,
	}
	return d
}

// Init runs the boot handshake: pin bring-up, optional CRC disable, efuse
// and boot ROM readiness polls, firmware start and interrupt enable. It
// blocks for several seconds on real hardware.
func (d *Device) Init(cfg Config) (err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.logger = cfg.Logger
	d.bus.logger = cfg.Logger
	d.hif.logger = cfg.Logger
	d.info("Init:start")
	start := time.Now()
	if err = d.initPins(); err != nil {
		return err
	}
	if !cfg.KeepCRC {
		err = d.bus.writeRegister(m2m.NMI_SPI_PROTOCOL_CONFIG, m2m.PROTOCOL_CONFIG_CRC_OFF)
		if err != nil {
			return err
		}
		d.bus.crc = false
	}
	ok := false
	for retries := 0; retries < efusePollAttempts; retries++ {
		efuse, err := d.bus.readRegister(m2m.EFUSE_REG)
		if err != nil {
			return err
		}
		if efuse&0x80000000 != 0 {
			ok = true
			break
		}
		d.sleep(time.Second)
	}
	if !ok {
		return errEfuseTimeout
	}
	wait, err := d.bus.readRegister(m2m.M2M_WAIT_FOR_HOST_REG)
	if err != nil {
		return err
	}
	if wait&1 == 0 {
		ok = false
		for retries := 0; retries < bootromPollAttempts; retries++ {
			bootrom, err := d.bus.readRegister(m2m.BOOTROM_REG)
			if err != nil {
				return err
			}
			if bootrom == m2m.FINISH_BOOT_VAL {
				ok = true
				break
			}
			d.sleep(time.Second)
		}
		if !ok {
			return errBootromTimeout
		}
	}
	if err = d.bus.writeRegister(m2m.NMI_STATE_REG, m2m.DRIVER_VER_INFO); err != nil {
		return err
	}
	if err = d.bus.writeRegister(m2m.NMI_GP_REG_1, m2m.CONF_VAL); err != nil {
		return err
	}
	if err = d.bus.writeRegister(m2m.BOOTROM_REG, m2m.START_FIRMWARE_VAL); err != nil {
		return err
	}
	ok = false
	for retries := 0; retries < firmwarePollAttempts; retries++ {
		state, err := d.bus.readRegister(m2m.NMI_STATE_REG)
		if err != nil {
			return err
		}
		if state == m2m.FINISH_INIT_VAL {
			ok = true
			break
		}
		d.sleep(time.Second)
	}
	if !ok {
		return errFirmwareTimeout
	}
	if err = d.bus.writeRegister(m2m.NMI_STATE_REG, 0); err != nil {
		return err
	}
	if err = d.enableChipInterrupt(); err != nil {
		return err
	}
	if cfg.MAC != nil {
		if err = d.setMACAddress(*cfg.MAC); err != nil {
			return err
		}
	}
	d.info("Init:done", slog.Duration("elapsed", time.Since(start)))
	return nil
}

// setMACAddress tells the firmware to use mac instead of the programmed one.
// The record is the 6 address bytes padded to 8.
func (d *Device) setMACAddress(mac [6]byte) error {
	var record [8]byte
	copy(record[:], mac[:])
	hdr := m2m.NewHifHeader(m2m.GROUP_WIFI, uint8(m2m.REQ_SET_MAC_ADDRESS), uint16(len(record)))
	if err := d.hif.send(&d.bus, hdr, record[:], nil); err != nil {
		return err
	}
	d.mac = mac
	d.macOK = true
	return nil
}

// initPins pulls chip select and wake high, then pulses reset with the
// settle delays the reference driver uses.
func (d *Device) initPins() error {
	if err := d.bus.csEnable(false); err != nil {
		return err
	}
	if d.wake(true) != nil {
		return ErrPinState
	}
	if d.reset(false) != nil {
		return ErrPinState
	}
	d.sleep(time.Second)
	if d.reset(true) != nil {
		return ErrPinState
	}
	d.sleep(time.Second)
	return nil
}

func (d *Device) enableChipInterrupt() error {
	mux, err := d.bus.readRegister(m2m.NMI_PIN_MUX_0)
	if err != nil {
		return err
	}
	if err := d.bus.writeRegister(m2m.NMI_PIN_MUX_0, mux|0x100); err != nil {
		return err
	}
	base, err := d.bus.readRegister(m2m.NMI_INTR_REG_BASE)
	if err != nil {
		return err
	}
	return d.bus.writeRegister(m2m.NMI_INTR_REG_BASE, base|0x10000)
}

// TryPoll services the chip's interrupt. Call it when the IRQ line goes
// active or periodically when polling. It returns the WiFi opcode of the
// packet handled, if any.
func (d *Device) TryPoll() (m2m.WifiCommand, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hif.isr(&d.bus, &d.state)
}

// GetFirmwareVersion reads the firmware revision off the chip, falling back
// to the ATE register when the production test firmware is running.
func (d *Device) GetFirmwareVersion() (FirmwareVersion, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rev, err := d.bus.readRegister(m2m.NMI_REV_REG)
	if err != nil {
		return FirmwareVersion{}, err
	}
	if rev == m2m.ATE_FW_IS_UP_VAL {
		rev, err = d.bus.readRegister(m2m.NMI_REV_REG_ATE)
		if err != nil {
			return FirmwareVersion{}, err
		}
	}
	return FirmwareVersion{uint8(rev >> 8), uint8(rev>>4) & 0xf, uint8(rev) & 0xf}, nil
}

// MACAddress reads the working MAC address off the chip's one time
// programmable memory map. The result is cached.
func (d *Device) MACAddress() ([6]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.macOK {
		return d.mac, nil
	}
	reg, err := d.bus.readRegister(m2m.NMI_GP_REG_2)
	if err != nil {
		return [6]byte{}, err
	}
	var data [8]byte
	if err := d.bus.readData(data[:], reg|0x30000); err != nil {
		return [6]byte{}, err
	}
	ofs := uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 | uint32(data[3])<<24
	ofs = ofs&0xffff | 0x30000
	if err := d.bus.readData(d.mac[:], ofs); err != nil {
		return [6]byte{}, err
	}
	d.macOK = true
	return d.mac, nil
}

// SetGpioDirection configures one of the chip's GPIO pins.
func (d *Device) SetGpioDirection(gpio Gpio, dir GpioDirection) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, err := d.bus.readRegister(gpioDirReg)
	if err != nil {
		return err
	}
	if dir == GpioOutput {
		v |= 1 << gpio
	} else {
		v &^= 1 << gpio
	}
	return d.bus.writeRegister(gpioDirReg, v)
}

// SetGpioValue drives one of the chip's GPIO output pins.
func (d *Device) SetGpioValue(gpio Gpio, high bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, err := d.bus.readRegister(gpioValReg)
	if err != nil {
		return err
	}
	if high {
		v |= 1 << gpio
	} else {
		v &^= 1 << gpio
	}
	return d.bus.writeRegister(gpioValReg, v)
}

// GetGpioDirection reads back the configured direction of a chip GPIO pin.
func (d *Device) GetGpioDirection(gpio Gpio) (GpioDirection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, err := d.bus.readRegister(gpioGetDirReg)
	if err != nil {
		return 0, err
	}
	return GpioDirection(v>>gpio) & 1, nil
}

// ConnectNetwork requests association with the network described by c.
// The result arrives asynchronously as a connection state change; watch
// Status after polling.
func (d *Device) ConnectNetwork(c Connection) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var record [connRecordLen]byte
	if err := c.put(record[:]); err != nil {
		return err
	}
	d.info("ConnectNetwork", slog.String("ssid", c.SSID), slog.String("sec", c.Security.String()))
	hdr := m2m.NewHifHeader(m2m.GROUP_WIFI, uint8(m2m.REQ_CONNECT), connRecordLen)
	return d.hif.send(&d.bus, hdr, record[:], nil)
}

// ConnectDefaultNetwork requests association with the last saved network.
func (d *Device) ConnectDefaultNetwork() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	hdr := m2m.NewHifHeader(m2m.GROUP_WIFI, uint8(m2m.REQ_DEFAULT_CONNECT), 0)
	return d.hif.send(&d.bus, hdr, nil, nil)
}

// DisconnectNetwork drops the current association.
func (d *Device) DisconnectNetwork() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	hdr := m2m.NewHifHeader(m2m.GROUP_WIFI, uint8(m2m.REQ_DISCONNECT), 0)
	return d.hif.send(&d.bus, hdr, nil, nil)
}

// StartScan kicks off a network scan on ch. Results arrive as scan done
// and scan result packets; request individual results with RequestScanResult
// once ScanInProgress reports false.
func (d *Device) StartScan(ch Channel) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state.scanInProgress {
		return errScanInProgress
	}
	if ch == 0 {
		ch = ChannelAny
	}
	payload := [4]byte{byte(ch)}
	hdr := m2m.NewHifHeader(m2m.GROUP_WIFI, uint8(m2m.REQ_SCAN), uint16(len(payload)))
	if err := d.hif.send(&d.bus, hdr, payload[:], nil); err != nil {
		return err
	}
	d.state.scanInProgress = true
	d.state.scanResultValid = false
	return nil
}

// RequestScanResult asks for the scan result at index. The record arrives
// asynchronously; read it with LastScanResult.
func (d *Device) RequestScanResult(index uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state.scanInProgress {
		return errScanInProgress
	}
	if index >= d.state.scanCount {
		return errScanIndexRange
	}
	payload := [4]byte{index}
	hdr := m2m.NewHifHeader(m2m.GROUP_WIFI, uint8(m2m.REQ_SCAN_RESULT), uint16(len(payload)))
	return d.hif.send(&d.bus, hdr, payload[:], nil)
}

// RequestConnectionInfo asks the chip for the current association details.
func (d *Device) RequestConnectionInfo() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	hdr := m2m.NewHifHeader(m2m.GROUP_WIFI, uint8(m2m.REQ_GET_CONN_INFO), 0)
	return d.hif.send(&d.bus, hdr, nil, nil)
}

// RequestSystemTime asks the chip for its SNTP kept wall clock.
func (d *Device) RequestSystemTime() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	hdr := m2m.NewHifHeader(m2m.GROUP_WIFI, uint8(m2m.REQ_GET_SYS_TIME), 0)
	return d.hif.send(&d.bus, hdr, nil, nil)
}

// RequestRSSI asks the chip for the current link RSSI.
func (d *Device) RequestRSSI() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	hdr := m2m.NewHifHeader(m2m.GROUP_WIFI, uint8(m2m.REQ_CURRENT_RSSI), 0)
	return d.hif.send(&d.bus, hdr, nil, nil)
}

// EnableMonitoring puts the chip in promiscuous mode on ch. Received
// 802.11 frames are handed to handler from within TryPoll.
func (d *Device) EnableMonitoring(ch Channel, handler func(frame []byte) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if handler == nil {
		return errMonitorNoHandler
	}
	d.hif.rcvEth = handler
	if ch == 0 {
		ch = ChannelAny
	}
	payload := [4]byte{byte(ch)}
	hdr := m2m.NewHifHeader(m2m.GROUP_WIFI, uint8(m2m.REQ_ENABLE_MONITORING), uint16(len(payload)))
	return d.hif.send(&d.bus, hdr, payload[:], nil)
}

// DisableMonitoring leaves promiscuous mode.
func (d *Device) DisableMonitoring() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	hdr := m2m.NewHifHeader(m2m.GROUP_WIFI, uint8(m2m.REQ_DISABLE_MONITORING), 0)
	err := d.hif.send(&d.bus, hdr, nil, nil)
	d.hif.rcvEth = nil
	return err
}

// Status returns the current connection status.
func (d *Device) Status() ConnectionStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.status
}

// ScanInProgress reports whether a started scan has not yet finished.
func (d *Device) ScanInProgress() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.scanInProgress
}

// ScanCount returns the number of access points the last scan found.
func (d *Device) ScanCount() uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.scanCount
}

// LastScanResult returns the most recently received scan result record.
func (d *Device) LastScanResult() (ScanResult, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.scanResult, d.state.scanResultValid
}

// ConnectionInfo returns the most recently received association details.
func (d *Device) ConnectionInfo() (ConnectionInfo, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.connInfo, d.state.connInfoValid
}

// SystemTime returns the most recently received chip wall clock.
func (d *Device) SystemTime() (SystemTime, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.sysTime, d.state.sysTimeValid
}

// RSSI returns the most recently received link RSSI.
func (d *Device) RSSI() (int8, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.rssi, d.state.rssiValid
}
