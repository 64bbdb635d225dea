package atwinc1500

import (
	"encoding/binary"
	"strconv"
)

// Payload sizes of the WIFI group packets the driver parses.
const (
	scanResultLen = 44
	connInfoLen   = 48
	connRecordLen = 108
)

const (
	maxSSIDLen = 32
	maxPSKLen  = 64
)

// SecurityType is the authentication scheme of a wireless network.
type SecurityType uint8

const (
	SecOpen   SecurityType = 1
	SecWpaPsk SecurityType = 2
	SecWep    SecurityType = 3
	Sec8021x  SecurityType = 4
)

func (s SecurityType) String() (str string) {
	switch s {
	case SecOpen:
		str = "open"
	case SecWpaPsk:
		str = "wpa-psk"
	case SecWep:
		str = "wep"
	case Sec8021x:
		str = "wpa-enterprise"
	default:
		str = "unknown"
	}
	return str
}

// Channel is a 2.4GHz wireless channel number. ChannelAny lets the chip pick.
type Channel uint8

const ChannelAny Channel = 255

// ConnectionStatus is the driver's view of the link, updated exclusively by
// connection state change packets from the chip.
type ConnectionStatus uint8

const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnected
	StatusApListening
	StatusApConnected
)

func (c ConnectionStatus) String() (s string) {
	switch c {
	case StatusDisconnected:
		s = "disconnected"
	case StatusConnected:
		s = "connected"
	case StatusApListening:
		s = "ap-listening"
	case StatusApConnected:
		s = "ap-connected"
	default:
		s = "unknown"
	}
	return s
}

// opMode selects station or access point operation.
type opMode uint8

const (
	modeStation opMode = iota
	modeAP
)

// connState is the raw state byte of a RESP_CON_STATE_CHANGED payload.
type connState uint8

const (
	connStateConnected    connState = 0
	connStateDisconnected connState = 1
	connStateUndefined    connState = 2
)

func decodeConnState(b byte) connState {
	switch b {
	case 0:
		return connStateConnected
	case 1:
		return connStateDisconnected
	}
	return connStateUndefined
}

// driverState holds everything HIF dispatch makes caller visible. It is
// passed explicitly into the dispatch path so tests can drive it without a
// device.
type driverState struct {
	mode            opMode
	status          ConnectionStatus
	rssi            int8
	rssiValid       bool
	scanInProgress  bool
	scanCount       uint8
	scanResult      ScanResult
	scanResultValid bool
	connInfo        ConnectionInfo
	connInfoValid   bool
	sysTime         SystemTime
	sysTimeValid    bool
}

// connStateChanged is the only HIF driven transition of the connection
// status. The undefined state byte is a no-op.
func (st *driverState) connStateChanged(cs connState) {
	switch {
	case cs == connStateConnected && st.mode == modeAP:
		st.status = StatusApConnected
	case cs == connStateConnected:
		st.status = StatusConnected
	case cs == connStateDisconnected && st.mode == modeAP:
		st.status = StatusApListening
	case cs == connStateDisconnected:
		st.status = StatusDisconnected
	}
}

// ScanResult describes one access point found by a network scan.
type ScanResult struct {
	Index   uint8
	RSSI    int8
	Auth    SecurityType
	Channel uint8
	BSSID   [6]byte
	ssid    [33]byte
}

// SSID returns the network name, stopping at the NUL terminator.
func (s *ScanResult) SSID() string {
	return cstr(s.ssid[:])
}

// DecodeScanResult decodes the 44 byte scan result record.
func DecodeScanResult(b []byte) (s ScanResult) {
	_ = b[scanResultLen-1]
	s.Index = b[0]
	s.RSSI = int8(b[1])
	s.Auth = SecurityType(b[2])
	s.Channel = b[3]
	copy(s.BSSID[:], b[4:10])
	copy(s.ssid[:], b[10:43])
	return s
}

// ConnectionInfo describes the currently associated network.
type ConnectionInfo struct {
	Security SecurityType
	IP       [4]byte
	MAC      [6]byte
	RSSI     int8
	ssid     [33]byte
}

// SSID returns the network name, stopping at the NUL terminator.
func (c *ConnectionInfo) SSID() string {
	return cstr(c.ssid[:])
}

// DecodeConnectionInfo decodes the 48 byte connection info record.
func DecodeConnectionInfo(b []byte) (c ConnectionInfo) {
	_ = b[connInfoLen-1]
	copy(c.ssid[:], b[0:33])
	c.Security = SecurityType(b[33])
	copy(c.IP[:], b[34:38])
	copy(c.MAC[:], b[38:44])
	c.RSSI = int8(b[44])
	return c
}

// SystemTime is the chip's wall clock, kept by its SNTP client.
type SystemTime struct {
	Year   uint16
	Month  uint8
	Day    uint8
	Hour   uint8
	Minute uint8
	Second uint8
}

// DecodeSystemTime decodes the 8 byte system time record.
func DecodeSystemTime(b []byte) (t SystemTime) {
	_ = b[7]
	t.Year = binary.LittleEndian.Uint16(b)
	t.Month = b[2]
	t.Day = b[3]
	t.Hour = b[4]
	t.Minute = b[5]
	t.Second = b[6]
	return t
}

func (t SystemTime) String() string {
	return strconv.Itoa(int(t.Year)) + "-" + itoa2(t.Month) + "-" + itoa2(t.Day) +
		" " + itoa2(t.Hour) + ":" + itoa2(t.Minute) + ":" + itoa2(t.Second)
}

// Connection holds the parameters for joining a wireless network.
type Connection struct {
	SSID       string
	Passphrase string
	Security   SecurityType
	Channel    Channel
	// DontSaveCredentials keeps the chip from persisting the credentials
	// used by ConnectDefaultNetwork.
	DontSaveCredentials bool
}

// put encodes the 108 byte connection record sent with REQ_CONNECT:
// passphrase at 0, security type at 65, channel at 68, SSID at 70 and the
// credential flag at 103, all regions NUL padded.
func (c *Connection) put(dst []byte) error {
	_ = dst[connRecordLen-1]
	if len(c.SSID) > maxSSIDLen {
		return errSSIDTooLong
	}
	if len(c.Passphrase) > maxPSKLen {
		return errPassphraseLen
	}
	switch c.Security {
	case SecOpen, SecWpaPsk:
	default:
		return errUnsupportedSecurity
	}
	for i := 0; i < connRecordLen; i++ {
		dst[i] = 0
	}
	copy(dst[0:], c.Passphrase)
	dst[65] = byte(c.Security)
	ch := c.Channel
	if ch == 0 {
		ch = ChannelAny
	}
	binary.LittleEndian.PutUint16(dst[68:], uint16(ch))
	copy(dst[70:], c.SSID)
	if c.DontSaveCredentials {
		dst[103] = 1
	}
	return nil
}

// FirmwareVersion is the chip firmware revision in major.minor.patch form.
type FirmwareVersion [3]uint8

func (v FirmwareVersion) String() string {
	return strconv.Itoa(int(v[0])) + "." + strconv.Itoa(int(v[1])) + "." + strconv.Itoa(int(v[2]))
}

func cstr(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

func itoa2(v uint8) string {
	if v < 10 {
		return "0" + strconv.Itoa(int(v))
	}
	return strconv.Itoa(int(v))
}
