// Netdev and netlink implementation of atwinc1500

package atwinc1500

import (
	"net"
	"time"

	"tinygo.org/x/drivers/netdev"
	"tinygo.org/x/drivers/netlink"
)

// The WINC1500 offloads its TCP/IP stack into the chip firmware. The BSD
// socket surface of that firmware is not driven by this package, so the
// netdev socket methods report unsupported. The link level methods work.

func (d *Device) GetHostByName(name string) (net.IP, error) {
	return net.IP{}, netdev.ErrNotSupported
}

func (d *Device) Socket(domain int, stype int, protocol int) (int, error) {
	return -1, netdev.ErrNotSupported
}

func (d *Device) Bind(sockfd int, ip net.IP, port int) error {
	return netdev.ErrNotSupported
}

func (d *Device) Connect(sockfd int, host string, ip net.IP, port int) error {
	return netdev.ErrNotSupported
}

func (d *Device) Listen(sockfd int, backlog int) error {
	return netdev.ErrNotSupported
}

func (d *Device) Accept(sockfd int, ip net.IP, port int) (int, error) {
	return -1, netdev.ErrNotSupported
}

func (d *Device) Send(sockfd int, buf []byte, flags int, deadline time.Time) (int, error) {
	return 0, netdev.ErrNotSupported
}

func (d *Device) Recv(sockfd int, buf []byte, flags int, deadline time.Time) (int, error) {
	return 0, netdev.ErrNotSupported
}

func (d *Device) Close(sockfd int) error {
	return netdev.ErrNotSupported
}

func (d *Device) SetSockOpt(sockfd int, level int, opt int, value interface{}) error {
	return netdev.ErrNotSupported
}

func (d *Device) NetConnect() error {
	return d.ConnectDefaultNetwork()
}

func (d *Device) NetDisconnect() {
	d.DisconnectNetwork()
}

func (d *Device) NetNotify(cb func(netlink.Event)) {
}

func (d *Device) GetHardwareAddr() (net.HardwareAddr, error) {
	mac, err := d.MACAddress()
	if err != nil {
		return nil, err
	}
	return net.HardwareAddr(mac[:]), nil
}

func (d *Device) GetIPAddr() (net.IP, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.state.connInfoValid {
		return net.IP{}, netdev.ErrNotSupported
	}
	ip := d.state.connInfo.IP
	return net.IPv4(ip[0], ip[1], ip[2], ip[3]), nil
}

// NetFlags returns the net.Flags for the device, either net.FlagUp or
// net.FlagRunning.
func (d *Device) NetFlags() (flags net.Flags) {
	switch d.Status() {
	case StatusConnected, StatusApConnected:
		flags = net.FlagUp | net.FlagRunning
	case StatusApListening:
		flags = net.FlagUp
	}
	return flags
}
