package m2m

import "golang.org/x/exp/constraints"

// WifiCommand is a HIF opcode of the WIFI group.
type WifiCommand uint8

// SocketCommand is a HIF opcode of the IP group.
type SocketCommand uint8

// Sentinels returned by the decoders for bytes outside the known opcode sets.
// The firmware speaks more opcodes than the tables below cover; an unknown
// opcode is dropped, never fatal.
const (
	WIFI_CMD_INVALID WifiCommand   = 0xff
	SOCK_CMD_INVALID SocketCommand = 0xff
)

// WIFI group opcodes, station/configuration/AP/P2P ranges.
const (
	REQ_RESTART             WifiCommand = 1
	REQ_SET_MAC_ADDRESS     WifiCommand = 2
	REQ_CURRENT_RSSI        WifiCommand = 3
	RESP_CURRENT_RSSI       WifiCommand = 4
	REQ_GET_CONN_INFO       WifiCommand = 5
	RESP_CONN_INFO          WifiCommand = 6
	REQ_SET_DEVICE_NAME     WifiCommand = 7
	REQ_START_PROVISION     WifiCommand = 8
	RESP_PROVISION_INFO     WifiCommand = 9
	REQ_STOP_PROVISION      WifiCommand = 10
	REQ_SET_SYS_TIME        WifiCommand = 11
	REQ_ENABLE_SNTP_CLIENT  WifiCommand = 12
	REQ_DISABLE_SNTP_CLIENT WifiCommand = 13
	RESP_MEMORY_RECOVER     WifiCommand = 14
	REQ_CUST_INFO_ELEMENT   WifiCommand = 15
	REQ_SCAN                WifiCommand = 16
	RESP_SCAN_DONE          WifiCommand = 17
	REQ_SCAN_RESULT         WifiCommand = 18
	RESP_SCAN_RESULT        WifiCommand = 19
	REQ_SET_SCAN_OPTION     WifiCommand = 20
	REQ_SET_SCAN_REGION     WifiCommand = 21
	REQ_SET_POWER_PROFILE   WifiCommand = 22
	REQ_SET_TX_POWER        WifiCommand = 23
	REQ_SET_BATTERY_VOLTAGE WifiCommand = 24
	REQ_SET_ENABLE_LOGS     WifiCommand = 25
	REQ_GET_SYS_TIME        WifiCommand = 26
	RESP_GET_SYS_TIME       WifiCommand = 27
	REQ_SEND_ETHERNET_PKT   WifiCommand = 28
	RESP_ETHERNET_RX_PKT    WifiCommand = 29
	REQ_SET_MAC_MCAST       WifiCommand = 30
	REQ_GET_PRNG            WifiCommand = 31
	RESP_GET_PRNG           WifiCommand = 32
	REQ_SCAN_SSID_LIST      WifiCommand = 33
	REQ_SET_GAINS           WifiCommand = 34
	REQ_PASSIVE_SCAN        WifiCommand = 35

	REQ_CONNECT            WifiCommand = 40
	REQ_DEFAULT_CONNECT    WifiCommand = 41
	RESP_CONNECT           WifiCommand = 42
	REQ_DISCONNECT         WifiCommand = 43
	RESP_CON_STATE_CHANGED WifiCommand = 44
	REQ_SLEEP              WifiCommand = 45
	REQ_WPS_SCAN           WifiCommand = 46
	REQ_WPS                WifiCommand = 47
	REQ_START_WPS          WifiCommand = 48
	REQ_DISABLE_WPS        WifiCommand = 49
	REQ_DHCP_CONF          WifiCommand = 50
	RESP_IP_CONFIGURED     WifiCommand = 51
	RESP_IP_CONFLICT       WifiCommand = 52
	REQ_ENABLE_MONITORING  WifiCommand = 53
	REQ_DISABLE_MONITORING WifiCommand = 54
	RESP_WIFI_RX_PACKET    WifiCommand = 55
	REQ_SEND_WIFI_PACKET   WifiCommand = 56
	REQ_LSN_INT            WifiCommand = 57
	REQ_DOZE               WifiCommand = 58

	REQ_ENABLE_AP  WifiCommand = 70
	REQ_DISABLE_AP WifiCommand = 71

	REQ_P2P_INT_CONNECT WifiCommand = 80
	REQ_P2P_AUTH        WifiCommand = 81
)

// IP group opcodes.
const (
	SOCK_CMD_BIND            SocketCommand = 0x41
	SOCK_CMD_LISTEN          SocketCommand = 0x42
	SOCK_CMD_ACCEPT          SocketCommand = 0x43
	SOCK_CMD_CONNECT         SocketCommand = 0x44
	SOCK_CMD_SEND            SocketCommand = 0x45
	SOCK_CMD_RECV            SocketCommand = 0x46
	SOCK_CMD_SENDTO          SocketCommand = 0x47
	SOCK_CMD_RECVFROM        SocketCommand = 0x48
	SOCK_CMD_CLOSE           SocketCommand = 0x49
	SOCK_CMD_DNS_RESOLVE     SocketCommand = 0x4a
	SOCK_CMD_SSL_CONNECT     SocketCommand = 0x4b
	SOCK_CMD_SSL_SEND        SocketCommand = 0x4c
	SOCK_CMD_SSL_RECV        SocketCommand = 0x4d
	SOCK_CMD_SSL_CLOSE       SocketCommand = 0x4e
	SOCK_CMD_SET_SOCK_OPT    SocketCommand = 0x4f
	SOCK_CMD_SSL_CREATE      SocketCommand = 0x50
	SOCK_CMD_SSL_SET_SOCKOPT SocketCommand = 0x51
	SOCK_CMD_PING            SocketCommand = 0x52
	SOCK_CMD_SSL_SET_CS_LIST SocketCommand = 0x53
	SOCK_CMD_SSL_BIND        SocketCommand = 0x54
	SOCK_CMD_SSL_EXP_CHECK   SocketCommand = 0x55
)

// The opcode tables are data so they can be audited against the reference
// driver headers line by line. Decode and String both walk them.

type opcodeEntry[T constraints.Unsigned] struct {
	op   T
	name string
}

// decodeOpcode is the checked byte-to-opcode conversion shared by both
// groups: any byte outside the table maps to the group's invalid sentinel.
func decodeOpcode[T constraints.Unsigned](b uint8, table []opcodeEntry[T], invalid T) T {
	for _, e := range table {
		if uint8(e.op) == b {
			return e.op
		}
	}
	return invalid
}

func opcodeString[T constraints.Unsigned](v T, table []opcodeEntry[T], invalid string) string {
	for _, e := range table {
		if e.op == v {
			return e.name
		}
	}
	return invalid
}

var wifiCommands = []opcodeEntry[WifiCommand]{
	{REQ_RESTART, "REQ_RESTART"},
	{REQ_SET_MAC_ADDRESS, "REQ_SET_MAC_ADDRESS"},
	{REQ_CURRENT_RSSI, "REQ_CURRENT_RSSI"},
	{RESP_CURRENT_RSSI, "RESP_CURRENT_RSSI"},
	{REQ_GET_CONN_INFO, "REQ_GET_CONN_INFO"},
	{RESP_CONN_INFO, "RESP_CONN_INFO"},
	{REQ_SET_DEVICE_NAME, "REQ_SET_DEVICE_NAME"},
	{REQ_START_PROVISION, "REQ_START_PROVISION"},
	{RESP_PROVISION_INFO, "RESP_PROVISION_INFO"},
	{REQ_STOP_PROVISION, "REQ_STOP_PROVISION"},
	{REQ_SET_SYS_TIME, "REQ_SET_SYS_TIME"},
	{REQ_ENABLE_SNTP_CLIENT, "REQ_ENABLE_SNTP_CLIENT"},
	{REQ_DISABLE_SNTP_CLIENT, "REQ_DISABLE_SNTP_CLIENT"},
	{RESP_MEMORY_RECOVER, "RESP_MEMORY_RECOVER"},
	{REQ_CUST_INFO_ELEMENT, "REQ_CUST_INFO_ELEMENT"},
	{REQ_SCAN, "REQ_SCAN"},
	{RESP_SCAN_DONE, "RESP_SCAN_DONE"},
	{REQ_SCAN_RESULT, "REQ_SCAN_RESULT"},
	{RESP_SCAN_RESULT, "RESP_SCAN_RESULT"},
	{REQ_SET_SCAN_OPTION, "REQ_SET_SCAN_OPTION"},
	{REQ_SET_SCAN_REGION, "REQ_SET_SCAN_REGION"},
	{REQ_SET_POWER_PROFILE, "REQ_SET_POWER_PROFILE"},
	{REQ_SET_TX_POWER, "REQ_SET_TX_POWER"},
	{REQ_SET_BATTERY_VOLTAGE, "REQ_SET_BATTERY_VOLTAGE"},
	{REQ_SET_ENABLE_LOGS, "REQ_SET_ENABLE_LOGS"},
	{REQ_GET_SYS_TIME, "REQ_GET_SYS_TIME"},
	{RESP_GET_SYS_TIME, "RESP_GET_SYS_TIME"},
	{REQ_SEND_ETHERNET_PKT, "REQ_SEND_ETHERNET_PKT"},
	{RESP_ETHERNET_RX_PKT, "RESP_ETHERNET_RX_PKT"},
	{REQ_SET_MAC_MCAST, "REQ_SET_MAC_MCAST"},
	{REQ_GET_PRNG, "REQ_GET_PRNG"},
	{RESP_GET_PRNG, "RESP_GET_PRNG"},
	{REQ_SCAN_SSID_LIST, "REQ_SCAN_SSID_LIST"},
	{REQ_SET_GAINS, "REQ_SET_GAINS"},
	{REQ_PASSIVE_SCAN, "REQ_PASSIVE_SCAN"},
	{REQ_CONNECT, "REQ_CONNECT"},
	{REQ_DEFAULT_CONNECT, "REQ_DEFAULT_CONNECT"},
	{RESP_CONNECT, "RESP_CONNECT"},
	{REQ_DISCONNECT, "REQ_DISCONNECT"},
	{RESP_CON_STATE_CHANGED, "RESP_CON_STATE_CHANGED"},
	{REQ_SLEEP, "REQ_SLEEP"},
	{REQ_WPS_SCAN, "REQ_WPS_SCAN"},
	{REQ_WPS, "REQ_WPS"},
	{REQ_START_WPS, "REQ_START_WPS"},
	{REQ_DISABLE_WPS, "REQ_DISABLE_WPS"},
	{REQ_DHCP_CONF, "REQ_DHCP_CONF"},
	{RESP_IP_CONFIGURED, "RESP_IP_CONFIGURED"},
	{RESP_IP_CONFLICT, "RESP_IP_CONFLICT"},
	{REQ_ENABLE_MONITORING, "REQ_ENABLE_MONITORING"},
	{REQ_DISABLE_MONITORING, "REQ_DISABLE_MONITORING"},
	{RESP_WIFI_RX_PACKET, "RESP_WIFI_RX_PACKET"},
	{REQ_SEND_WIFI_PACKET, "REQ_SEND_WIFI_PACKET"},
	{REQ_LSN_INT, "REQ_LSN_INT"},
	{REQ_DOZE, "REQ_DOZE"},
	{REQ_ENABLE_AP, "REQ_ENABLE_AP"},
	{REQ_DISABLE_AP, "REQ_DISABLE_AP"},
	{REQ_P2P_INT_CONNECT, "REQ_P2P_INT_CONNECT"},
	{REQ_P2P_AUTH, "REQ_P2P_AUTH"},
}

var socketCommands = []opcodeEntry[SocketCommand]{
	{SOCK_CMD_BIND, "SOCK_CMD_BIND"},
	{SOCK_CMD_LISTEN, "SOCK_CMD_LISTEN"},
	{SOCK_CMD_ACCEPT, "SOCK_CMD_ACCEPT"},
	{SOCK_CMD_CONNECT, "SOCK_CMD_CONNECT"},
	{SOCK_CMD_SEND, "SOCK_CMD_SEND"},
	{SOCK_CMD_RECV, "SOCK_CMD_RECV"},
	{SOCK_CMD_SENDTO, "SOCK_CMD_SENDTO"},
	{SOCK_CMD_RECVFROM, "SOCK_CMD_RECVFROM"},
	{SOCK_CMD_CLOSE, "SOCK_CMD_CLOSE"},
	{SOCK_CMD_DNS_RESOLVE, "SOCK_CMD_DNS_RESOLVE"},
	{SOCK_CMD_SSL_CONNECT, "SOCK_CMD_SSL_CONNECT"},
	{SOCK_CMD_SSL_SEND, "SOCK_CMD_SSL_SEND"},
	{SOCK_CMD_SSL_RECV, "SOCK_CMD_SSL_RECV"},
	{SOCK_CMD_SSL_CLOSE, "SOCK_CMD_SSL_CLOSE"},
	{SOCK_CMD_SET_SOCK_OPT, "SOCK_CMD_SET_SOCK_OPT"},
	{SOCK_CMD_SSL_CREATE, "SOCK_CMD_SSL_CREATE"},
	{SOCK_CMD_SSL_SET_SOCKOPT, "SOCK_CMD_SSL_SET_SOCKOPT"},
	{SOCK_CMD_PING, "SOCK_CMD_PING"},
	{SOCK_CMD_SSL_SET_CS_LIST, "SOCK_CMD_SSL_SET_CS_LIST"},
	{SOCK_CMD_SSL_BIND, "SOCK_CMD_SSL_BIND"},
	{SOCK_CMD_SSL_EXP_CHECK, "SOCK_CMD_SSL_EXP_CHECK"},
}

// DecodeWifiCommand maps a raw opcode byte to its WifiCommand, returning
// WIFI_CMD_INVALID for bytes outside the known set.
func DecodeWifiCommand(b uint8) WifiCommand {
	return decodeOpcode(b, wifiCommands, WIFI_CMD_INVALID)
}

// DecodeSocketCommand maps a raw opcode byte to its SocketCommand, returning
// SOCK_CMD_INVALID for bytes outside the known set.
func DecodeSocketCommand(b uint8) SocketCommand {
	return decodeOpcode(b, socketCommands, SOCK_CMD_INVALID)
}

func (w WifiCommand) String() string {
	return opcodeString(w, wifiCommands, "WIFI_CMD_INVALID")
}

func (s SocketCommand) String() string {
	return opcodeString(s, socketCommands, "SOCK_CMD_INVALID")
}
