package atwinc1500

import (
	"errors"
	"testing"

	"github.com/soypat/atwinc1500/m2m"
)

// simDevice wires a Device to the protocol simulator with the bring-up
// delays disabled.
func simDevice(t *testing.T) (*Device, *wincSim) {
	sim := newSim(t)
	d := New(sim, pinOK, pinOK, pinOK)
	noDelay(d)
	return d, sim
}

// stageBoot loads the register values of a chip that boots cleanly.
func stageBoot(sim *wincSim) {
	sim.regReads[m2m.EFUSE_REG] = []uint32{0x80000000}
	sim.regReads[m2m.M2M_WAIT_FOR_HOST_REG] = []uint32{0}
	sim.regReads[m2m.BOOTROM_REG] = []uint32{m2m.FINISH_BOOT_VAL}
	sim.regReads[m2m.NMI_STATE_REG] = []uint32{m2m.FINISH_INIT_VAL}
}

func TestInitHandshake(t *testing.T) {
	d, sim := simDevice(t)
	// Boot ROM comes up on the second poll, inside the retry budget.
	stageBoot(sim)
	sim.regReads[m2m.BOOTROM_REG] = []uint32{0, m2m.FINISH_BOOT_VAL}
	if err := d.Init(Config{}); err != nil {
		t.Fatal(err)
	}
	// CRC protection is switched off before anything else touches the bus.
	if len(sim.regWrites) == 0 {
		t.Fatal("no register writes")
	}
	first := sim.regWrites[0]
	if first.addr != m2m.NMI_SPI_PROTOCOL_CONFIG || first.val != m2m.PROTOCOL_CONFIG_CRC_OFF {
		t.Errorf("first write %#x=%#x, want crc off", first.addr, first.val)
	}
	if d.bus.crc {
		t.Error("bus still appending crc")
	}
	// The driver version write happens on the way in and the state register
	// gets overwritten later, so scan for occurrence rather than last value.
	wants := []regWrite{
		{m2m.NMI_STATE_REG, m2m.DRIVER_VER_INFO},
		{m2m.NMI_GP_REG_1, m2m.CONF_VAL},
		{m2m.BOOTROM_REG, m2m.START_FIRMWARE_VAL},
	}
	for _, want := range wants {
		if !sim.wroteValue(want.addr, want.val) {
			t.Errorf("reg %#x never written with %#x", want.addr, want.val)
		}
	}
	// Firmware start is acknowledged by clearing the state register, which
	// is the last write to it.
	if v, _ := sim.lastRegWrite(m2m.NMI_STATE_REG); v != 0 {
		t.Errorf("state reg left at %#x", v)
	}
	// The chip interrupt muxing ends the sequence.
	if v, ok := sim.lastRegWrite(m2m.NMI_PIN_MUX_0); !ok || v&0x100 == 0 {
		t.Errorf("pin mux %#x", v)
	}
	if v, ok := sim.lastRegWrite(m2m.NMI_INTR_REG_BASE); !ok || v&0x10000 == 0 {
		t.Errorf("intr enable %#x", v)
	}
}

func TestInitKeepCRC(t *testing.T) {
	d, sim := simDevice(t)
	stageBoot(sim)
	if err := d.Init(Config{KeepCRC: true}); err != nil {
		t.Fatal(err)
	}
	if _, ok := sim.lastRegWrite(m2m.NMI_SPI_PROTOCOL_CONFIG); ok {
		t.Error("crc config written despite KeepCRC")
	}
	if !d.bus.crc {
		t.Error("bus stopped appending crc")
	}
}

func TestInitBootromTimeout(t *testing.T) {
	d, sim := simDevice(t)
	stageBoot(sim)
	sim.regReads[m2m.BOOTROM_REG] = []uint32{0}
	err := d.Init(Config{})
	if !errors.Is(err, errBootromTimeout) {
		t.Fatalf("got %v, want errBootromTimeout", err)
	}
	if n := sim.readCount[m2m.BOOTROM_REG]; n != bootromPollAttempts {
		t.Errorf("polled boot rom %d times, want %d", n, bootromPollAttempts)
	}
}

func TestInitSkipsBootromWhenHosted(t *testing.T) {
	// A set wait-for-host bit means firmware is already managing boot and
	// the boot ROM poll is skipped entirely.
	d, sim := simDevice(t)
	stageBoot(sim)
	sim.regReads[m2m.M2M_WAIT_FOR_HOST_REG] = []uint32{1}
	sim.regReads[m2m.BOOTROM_REG] = nil
	if err := d.Init(Config{}); err != nil {
		t.Fatal(err)
	}
	if n := sim.readCount[m2m.BOOTROM_REG]; n != 0 {
		t.Errorf("boot rom read %d times", n)
	}
}

func TestInitMACOverride(t *testing.T) {
	const dma = 0x037000
	d, sim := simDevice(t)
	stageBoot(sim)
	sim.regReads[m2m.WIFI_HOST_RCV_CTRL_4] = []uint32{dma}
	mac := [6]byte{0xf8, 0xf0, 0x05, 1, 2, 3}
	if err := d.Init(Config{MAC: &mac}); err != nil {
		t.Fatal(err)
	}
	record, ok := sim.memWriteAt(dma + m2m.HIF_HEADER_LEN)
	if !ok {
		t.Fatal("mac record never written")
	}
	mustEqualBytes(t, record, append(mac[:], 0, 0), "mac record")
	got, err := d.MACAddress()
	if err != nil {
		t.Fatal(err)
	}
	if got != mac {
		t.Errorf("cached mac %x", got)
	}
	// The override is cached, not read back off the chip.
	if _, ok := sim.mem[0x30000]; ok {
		t.Fatal("test bug: otp memory staged")
	}
}

func TestInitFirmwareTimeout(t *testing.T) {
	d, sim := simDevice(t)
	stageBoot(sim)
	sim.regReads[m2m.NMI_STATE_REG] = []uint32{0}
	err := d.Init(Config{})
	if !errors.Is(err, errFirmwareTimeout) {
		t.Fatalf("got %v, want errFirmwareTimeout", err)
	}
}

func TestGetFirmwareVersion(t *testing.T) {
	d, sim := simDevice(t)
	sim.regReads[m2m.NMI_REV_REG] = []uint32{0x134}
	v, err := d.GetFirmwareVersion()
	if err != nil {
		t.Fatal(err)
	}
	if v.String() != "1.3.4" {
		t.Errorf("version %v", v)
	}
}

func TestGetFirmwareVersionATEFallback(t *testing.T) {
	d, sim := simDevice(t)
	sim.regReads[m2m.NMI_REV_REG] = []uint32{m2m.ATE_FW_IS_UP_VAL}
	sim.regReads[m2m.NMI_REV_REG_ATE] = []uint32{0x219}
	v, err := d.GetFirmwareVersion()
	if err != nil {
		t.Fatal(err)
	}
	if v != (FirmwareVersion{2, 1, 9}) {
		t.Errorf("version %v", v)
	}
}

func TestMACAddress(t *testing.T) {
	d, sim := simDevice(t)
	mac := []byte{0xf8, 0xf0, 0x05, 0xaa, 0xbb, 0xcc}
	sim.regReads[m2m.NMI_GP_REG_2] = []uint32{0x1234}
	sim.mem[0x1234|0x30000] = []byte{0x78, 0x56, 0x00, 0x00, 0, 0, 0, 0}
	sim.mem[0x35678] = mac
	got, err := d.MACAddress()
	if err != nil {
		t.Fatal(err)
	}
	mustEqualBytes(t, got[:], mac, "mac address")
	// The second call is served from the cache.
	before := sim.txCount
	if _, err := d.MACAddress(); err != nil {
		t.Fatal(err)
	}
	if sim.txCount != before {
		t.Errorf("cached read still hit the bus")
	}
}

func TestConnectNetworkRecord(t *testing.T) {
	const dma = 0x037000
	d, sim := simDevice(t)
	sim.regReads[m2m.WIFI_HOST_RCV_CTRL_4] = []uint32{dma}
	err := d.ConnectNetwork(Connection{
		SSID:                "myhouse",
		Passphrase:          "mypassword",
		Security:            SecWpaPsk,
		Channel:             6,
		DontSaveCredentials: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	record, ok := sim.memWriteAt(dma + m2m.HIF_HEADER_LEN)
	if !ok {
		t.Fatal("connect record never written")
	}
	if len(record) != connRecordLen {
		t.Fatalf("record length %d", len(record))
	}
	mustEqualBytes(t, record[0:10], []byte("mypassword"), "passphrase")
	if record[65] != byte(SecWpaPsk) {
		t.Errorf("security byte %#x", record[65])
	}
	if record[68] != 6 || record[69] != 0 {
		t.Errorf("channel bytes %#x %#x", record[68], record[69])
	}
	mustEqualBytes(t, record[70:77], []byte("myhouse"), "ssid")
	if record[103] != 1 {
		t.Errorf("credential flag %#x", record[103])
	}
}

func TestConnectNetworkValidation(t *testing.T) {
	d, sim := simDevice(t)
	longSSID := make([]byte, maxSSIDLen+1)
	for i := range longSSID {
		longSSID[i] = 'a'
	}
	err := d.ConnectNetwork(Connection{SSID: string(longSSID), Security: SecOpen})
	if !errors.Is(err, errSSIDTooLong) {
		t.Errorf("got %v, want errSSIDTooLong", err)
	}
	err = d.ConnectNetwork(Connection{SSID: "net", Security: SecWep, Passphrase: "12345"})
	if !errors.Is(err, errUnsupportedSecurity) {
		t.Errorf("got %v, want errUnsupportedSecurity", err)
	}
	if sim.txCount != 0 {
		t.Errorf("%d bus transfers for rejected connection requests", sim.txCount)
	}
}

func TestTryPollConnects(t *testing.T) {
	d, sim := simDevice(t)
	simPacket(sim, 0x037000, m2m.GROUP_WIFI, uint8(m2m.RESP_CON_STATE_CHANGED), []byte{0, 0, 0, 0})
	op, err := d.TryPoll()
	if err != nil {
		t.Fatal(err)
	}
	if op != m2m.RESP_CON_STATE_CHANGED {
		t.Errorf("got opcode %v", op)
	}
	if d.Status() != StatusConnected {
		t.Errorf("status %v", d.Status())
	}
}

func TestScanFlow(t *testing.T) {
	const dma = 0x037000
	d, sim := simDevice(t)
	sim.regReads[m2m.WIFI_HOST_RCV_CTRL_4] = []uint32{dma}
	if err := d.StartScan(0); err != nil {
		t.Fatal(err)
	}
	if !d.ScanInProgress() {
		t.Error("scan not in progress")
	}
	// The channel-any request rides in the first payload byte.
	if payload, ok := sim.memWriteAt(dma + m2m.HIF_HEADER_LEN); !ok {
		t.Error("scan payload never written")
	} else if payload[0] != byte(ChannelAny) {
		t.Errorf("channel byte %#x", payload[0])
	}
	// A second scan and result requests are refused while one is running.
	if err := d.StartScan(6); !errors.Is(err, errScanInProgress) {
		t.Errorf("got %v, want errScanInProgress", err)
	}
	if err := d.RequestScanResult(0); !errors.Is(err, errScanInProgress) {
		t.Errorf("got %v, want errScanInProgress", err)
	}
	// Scan done packet arrives.
	simPacket(sim, 0x037100, m2m.GROUP_WIFI, uint8(m2m.RESP_SCAN_DONE), []byte{3, 0, 0, 0})
	if _, err := d.TryPoll(); err != nil {
		t.Fatal(err)
	}
	if d.ScanInProgress() {
		t.Error("scan still in progress after done packet")
	}
	if d.ScanCount() != 3 {
		t.Errorf("scan count %d", d.ScanCount())
	}
	if err := d.RequestScanResult(3); !errors.Is(err, errScanIndexRange) {
		t.Errorf("got %v, want errScanIndexRange", err)
	}
	if err := d.RequestScanResult(2); err != nil {
		t.Fatal(err)
	}
}

func TestGpio(t *testing.T) {
	d, sim := simDevice(t)
	if err := d.SetGpioDirection(Gpio4, GpioOutput); err != nil {
		t.Fatal(err)
	}
	if v, ok := sim.lastRegWrite(gpioDirReg); !ok || v != 1<<4 {
		t.Errorf("dir reg %#x", v)
	}
	if err := d.SetGpioValue(Gpio4, true); err != nil {
		t.Fatal(err)
	}
	if v, ok := sim.lastRegWrite(gpioValReg); !ok || v != 1<<4 {
		t.Errorf("val reg %#x", v)
	}
	sim.regReads[gpioValReg] = []uint32{1 << 4}
	if err := d.SetGpioValue(Gpio4, false); err != nil {
		t.Fatal(err)
	}
	if v, _ := sim.lastRegWrite(gpioValReg); v != 0 {
		t.Errorf("val reg %#x after clear", v)
	}
	sim.regReads[gpioGetDirReg] = []uint32{1 << 4}
	dir, err := d.GetGpioDirection(Gpio4)
	if err != nil {
		t.Fatal(err)
	}
	if dir != GpioInput {
		t.Errorf("direction %v", dir)
	}
}

func TestMonitoring(t *testing.T) {
	const dma = 0x037000
	d, sim := simDevice(t)
	sim.regReads[m2m.WIFI_HOST_RCV_CTRL_4] = []uint32{dma}
	if err := d.EnableMonitoring(0, nil); !errors.Is(err, errMonitorNoHandler) {
		t.Errorf("got %v, want errMonitorNoHandler", err)
	}
	var frames int
	handler := func([]byte) error { frames++; return nil }
	if err := d.EnableMonitoring(6, handler); err != nil {
		t.Fatal(err)
	}
	simPacket(sim, 0x037100, m2m.GROUP_WIFI, uint8(m2m.RESP_WIFI_RX_PACKET), make([]byte, 16))
	if _, err := d.TryPoll(); err != nil {
		t.Fatal(err)
	}
	if frames != 1 {
		t.Errorf("handler called %d times", frames)
	}
	if err := d.DisableMonitoring(); err != nil {
		t.Fatal(err)
	}
	if d.hif.rcvEth != nil {
		t.Error("handler still installed")
	}
}
